package parsefields

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"cadernos-ingest/constants"
	"cadernos-ingest/internal/common"
	"cadernos-ingest/internal/entity"
	"cadernos-ingest/internal/extract"
)

// Pipeline turns extracted page text into citizen records.
type Pipeline struct {
	Logger *slog.Logger
	Rules  *RuleSet
}

func NewPipeline(logger *slog.Logger, rules *RuleSet) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{Logger: logger, Rules: rules}
}

// Result carries the parsed records plus the roll context they came from.
type Result struct {
	Records  []entity.Record
	Concelho string
	Posto    string
	RollType constants.RollType
	Invalid  int
}

// Run parses every page of a roll. Records are anchored on birth-date lines:
// a dated line opens a block and the lines that follow it name the parents.
// The concelho/posto header is captured from the first page that carries it;
// records parsed before that point keep empty context fields.
//
// A file that yields no valid records at all is an extraction failure.
func (p *Pipeline) Run(ctx context.Context, path string, pages []extract.PageText) (Result, error) {
	fileName := filepath.Base(path)
	res := Result{RollType: constants.RollTypeFromPath(path)}

	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if res.Concelho == "" || res.Posto == "" {
			if concelho, posto, ok := p.Rules.MatchContext(page.Text); ok {
				res.Concelho = concelho
				res.Posto = posto
				p.Logger.Debug("parsefields.context",
					"file", fileName,
					"page", page.Number,
					"concelho", concelho,
					"posto", posto)
			}
		}

		for _, block := range p.blocks(page.Rows) {
			rec := p.parseBlock(block)
			rec.Concelho = res.Concelho
			rec.Posto = res.Posto
			rec.RollType = string(res.RollType)
			rec.FileName = fileName

			if err := rec.Validate(); err != nil {
				res.Invalid++
				p.Logger.Debug("parsefields.record.invalid",
					"file", fileName,
					"page", page.Number,
					"error", err)
				continue
			}
			res.Records = append(res.Records, rec)
		}
	}

	if len(res.Records) == 0 {
		return res, common.NewAppError(
			"EXTRACTION_ERROR",
			fmt.Sprintf("no valid records extracted from %s", fileName),
			common.ErrExtraction,
		)
	}

	p.Logger.Info("parsefields.ok",
		"file", fileName,
		"records", len(res.Records),
		"invalid", res.Invalid,
		"concelho", res.Concelho,
		"posto", res.Posto,
		"type", res.RollType)

	return res, nil
}

// blocks groups page rows into record blocks. A dated line starts a block;
// the block runs until the next dated line, a column header, or the end of
// the page. Lines before the first dated line belong to page headers and are
// skipped, as are blocks shorter than the configured minimum.
func (p *Pipeline) blocks(rows []string) [][]string {
	var blocks [][]string
	var current []string

	flush := func() {
		if len(current) >= p.Rules.MinBlockLines() {
			blocks = append(blocks, current)
		}
		current = nil
	}

	for _, row := range rows {
		line := strings.TrimSpace(row)
		if line == "" {
			continue
		}
		if p.Rules.IsTableHeader(line) {
			flush()
			continue
		}
		if p.Rules.HasDate(line) {
			flush()
			current = []string{line}
			continue
		}
		if current == nil {
			continue
		}
		current = append(current, line)
	}
	flush()

	return blocks
}

// parseBlock applies the roll entry layout to one block. The first line is
// read as name plus date, the remaining lines as parents, except that a
// later dated line supersedes the first as the citizen's own name. When no
// later line carried a date the leading line was the citizen after all, and
// the fields shift accordingly.
func (p *Pipeline) parseBlock(lines []string) entity.Record {
	parent1, date := p.Rules.SplitNameAndDate(strings.TrimSpace(lines[0]))

	var fullName, parent2 string
	for _, line := range lines[1:] {
		name, lineDate := p.Rules.SplitNameAndDate(strings.TrimSpace(line))
		if lineDate != "" {
			fullName = name
			date = lineDate
		} else {
			parent2 = name
		}
	}

	if fullName == "" {
		fullName = parent1
		parent1 = parent2
		parent2 = ""
	}

	return entity.Record{
		FullName:  fullName,
		Parent1:   parent1,
		Parent2:   parent2,
		BirthDate: date,
	}
}
