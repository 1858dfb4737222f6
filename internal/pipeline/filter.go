package pipeline

import (
	"strings"

	"github.com/Maybol283/EthoScraper/internal/config"
)

// excluded applies the exclude_if rules to a post-privacy record in order,
// reporting whether any rule matched. Matching is a case-sensitive substring
// test against the field's final string form; a field absent from the record
// (unextracted or anonymized) never matches.
func excluded(rec *Record, rules []config.ExcludeRule) bool {
	for _, rule := range rules {
		raw, ok := rec.Value(rule.Field)
		if !ok {
			continue
		}
		if strings.Contains(stringForm(raw), rule.Contains) {
			return true
		}
	}

	return false
}

// stringForm renders a record value for matching; sequences use the same
// ", " joining as validation.
func stringForm(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	default:
		return ""
	}
}
