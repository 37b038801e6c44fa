package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Record represents one citizen entry extracted from a roll PDF, for data
// transfer between layers. JSON tags match the destination column names.
type Record struct {
	FullName  string `json:"nome_completo"`
	Parent1   string `json:"parent_1"`
	Parent2   string `json:"parent_2"`
	BirthDate string `json:"data_nascimento"`
	Concelho  string `json:"concelho"`
	Posto     string `json:"posto"`
	RollType  string `json:"type"`
	FileName  string `json:"file_name"`
}

// fieldSep keeps adjacent fields from colliding in the fingerprint input.
const fieldSep = "\x1f"

// Fingerprint returns the hex sha256 over the trimmed field set. Two records
// with the same content from the same source file hash identically, so the
// unique index on this value makes inserts idempotent across runs.
func (r *Record) Fingerprint() string {
	fields := []string{
		r.FullName,
		r.Parent1,
		r.Parent2,
		r.BirthDate,
		r.Concelho,
		r.Posto,
		r.RollType,
		r.FileName,
	}

	h := sha256.New()
	for i, f := range fields {
		if i > 0 {
			h.Write([]byte(fieldSep))
		}
		h.Write([]byte(strings.TrimSpace(f)))
	}
	return hex.EncodeToString(h.Sum(nil))
}
