package parsefields

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules is the declarative description of how fields are recognized in roll
// text. The defaults match the layout of the official cadernos; a YAML file
// can override any of them without touching pipeline code.
type Rules struct {
	// DatePattern recognizes birth dates and anchors record blocks.
	DatePattern string `yaml:"date_pattern"`
	// ContextPattern captures the Concelho and Posto from the page header.
	// It must expose exactly two capture groups, in that order.
	ContextPattern string `yaml:"context_pattern"`
	// TableHeader is the column header line skipped during parsing,
	// compared with all whitespace removed.
	TableHeader string `yaml:"table_header"`
	// MinBlockLines is the minimum number of lines a record block needs;
	// shorter blocks are dropped as noise.
	MinBlockLines int `yaml:"min_block_lines"`
}

// DefaultRules returns the built-in recognition rules.
func DefaultRules() Rules {
	return Rules{
		DatePattern:    `\d{2}-\d{2}-\d{4}`,
		ContextPattern: `Concelho\s*:\s*([\w\sçÇáéíóúàèìòùãõâêîôûäëïöüÄËÏÖÜñÑ]+)\s*Posto\s*:\s*([\w\sçÇáéíóúàèìòùãõâêîôûäëïöüÄËÏÖÜñÑ-]+)`,
		TableHeader:    "NOME COMPLETO FILIAÇÃO DATA NASC",
		MinBlockLines:  2,
	}
}

// LoadRules reads a YAML rules file over the defaults, so a file only needs
// the keys it changes.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()

	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read rules file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return rules, fmt.Errorf("parse rules file: %w", err)
	}
	return rules, nil
}

// RuleSet is a compiled, ready-to-match set of rules.
type RuleSet struct {
	dateRe        *regexp.Regexp
	contextRe     *regexp.Regexp
	tableHeader   string
	minBlockLines int
}

// Compile validates the rules and compiles their patterns.
func (r Rules) Compile() (*RuleSet, error) {
	if r.MinBlockLines < 1 {
		return nil, fmt.Errorf("min_block_lines must be at least 1, got %d", r.MinBlockLines)
	}

	dateRe, err := regexp.Compile(r.DatePattern)
	if err != nil {
		return nil, fmt.Errorf("compile date_pattern: %w", err)
	}

	contextRe, err := regexp.Compile(r.ContextPattern)
	if err != nil {
		return nil, fmt.Errorf("compile context_pattern: %w", err)
	}
	if contextRe.NumSubexp() < 2 {
		return nil, fmt.Errorf("context_pattern needs two capture groups (concelho, posto), has %d", contextRe.NumSubexp())
	}

	return &RuleSet{
		dateRe:        dateRe,
		contextRe:     contextRe,
		tableHeader:   stripSpaces(r.TableHeader),
		minBlockLines: r.MinBlockLines,
	}, nil
}

func (rs *RuleSet) MinBlockLines() int {
	return rs.minBlockLines
}

// HasDate reports whether the line carries a birth date.
func (rs *RuleSet) HasDate(line string) bool {
	return rs.dateRe.MatchString(line)
}

// SplitNameAndDate pulls the first date out of the text. It returns the text
// with the date removed plus the date itself, or the text untouched and an
// empty date when none is present.
func (rs *RuleSet) SplitNameAndDate(text string) (string, string) {
	date := rs.dateRe.FindString(text)
	if date == "" {
		return text, ""
	}
	name := strings.TrimSpace(strings.ReplaceAll(text, date, ""))
	return name, date
}

// MatchContext extracts the Concelho and Posto values from page text. The
// posto value on printed rolls carries a trailing 'N' column marker that is
// stripped.
func (rs *RuleSet) MatchContext(pageText string) (string, string, bool) {
	m := rs.contextRe.FindStringSubmatch(pageText)
	if m == nil {
		return "", "", false
	}
	concelho := strings.TrimSpace(m[1])
	posto := strings.TrimSpace(strings.TrimRight(strings.TrimSpace(m[2]), "N"))
	return concelho, posto, true
}

// IsTableHeader reports whether the line is the repeated column header.
// Comparison ignores all whitespace since row joining may drop or add
// spaces between header words.
func (rs *RuleSet) IsTableHeader(line string) bool {
	return strings.Contains(stripSpaces(line), rs.tableHeader)
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
