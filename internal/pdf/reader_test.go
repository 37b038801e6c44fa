package pdf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFileRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	notPDF := filepath.Join(dir, "roll.txt")
	require.NoError(t, os.WriteFile(notPDF, []byte("plain text"), 0o644))

	fakePDF := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(fakePDF, []byte("not really a pdf"), 0o644))

	bigPDF := filepath.Join(dir, "big.pdf")
	require.NoError(t, os.WriteFile(bigPDF, make([]byte, 128), 0o644))

	tests := []struct {
		name    string
		path    string
		maxSize int64
		wantErr string
	}{
		{
			name:    "empty path",
			path:    "",
			wantErr: "path cannot be empty",
		},
		{
			name:    "missing file",
			path:    filepath.Join(dir, "missing.pdf"),
			wantErr: "does not exist",
		},
		{
			name:    "directory instead of file",
			path:    dir,
			wantErr: "directory, not a file",
		},
		{
			name:    "wrong extension",
			path:    notPDF,
			wantErr: "not a PDF",
		},
		{
			name:    "over the size limit",
			path:    bigPDF,
			maxSize: 64,
			wantErr: "file too large",
		},
		{
			name:    "structurally broken pdf",
			path:    fakePDF,
			wantErr: "failed validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.maxSize)
			_, err := r.ReadFile(tt.path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJoinRow(t *testing.T) {
	tests := []struct {
		name  string
		words []pdf.Text
		want  string
	}{
		{
			name: "adjacent runs join without a space",
			words: []pdf.Text{
				{S: "JO", X: 10, W: 10},
				{S: "ÃO", X: 20, W: 10},
			},
			want: "JOÃO",
		},
		{
			name: "gapped runs join with a space",
			words: []pdf.Text{
				{S: "JOÃO", X: 10, W: 20},
				{S: "TAVARES", X: 40, W: 30},
				{S: "12-03-1985", X: 120, W: 40},
			},
			want: "JOÃO TAVARES 12-03-1985",
		},
		{
			name:  "empty row",
			words: nil,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, joinRow(tt.words))
		})
	}
}
