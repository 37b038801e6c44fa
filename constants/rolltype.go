package constants

import (
	"strings"
)

// RollType classifies an electoral roll by the citizens it lists.
type RollType string

// Stable values (store these exact strings in DB).
const (
	RollNacionais    RollType = "nacionais"
	RollEstrangeiros RollType = "estrangeiros"
	RollUnknown      RollType = "unknown"
)

var allRollTypes = []RollType{
	RollNacionais,
	RollEstrangeiros,
	RollUnknown,
}

func RollTypesAsStringSlice() []string {
	result := make([]string, len(allRollTypes))
	for i, rt := range allRollTypes {
		result[i] = string(rt)
	}
	return result
}

// RollTypeFromPath derives the roll type from the source file path.
// "naciona" also matches the singular form; "estrangeiro" matches both
// 'estrangeiro' and 'estrangeiros'.
func RollTypeFromPath(path string) RollType {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "naciona"):
		return RollNacionais
	case strings.Contains(lower, "estrangeiro"):
		return RollEstrangeiros
	default:
		return RollUnknown
	}
}
