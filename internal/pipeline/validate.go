package pipeline

import (
	"unicode/utf8"

	"github.com/Maybol283/EthoScraper/internal/config"
	"github.com/Maybol283/EthoScraper/internal/transform"
)

// validateValue checks a non-empty transformed value against its validation
// block. The pattern and the length bounds apply to the value's final string
// form; lengths count runes and are inclusive.
func validateValue(v transform.Value, rules *config.Validation) bool {
	if rules == nil {
		return true
	}

	final := v.String()

	if rules.Pattern != nil && !rules.Pattern.MatchString(final) {
		return false
	}

	length := utf8.RuneCountInString(final)
	if rules.MinLength > 0 && length < rules.MinLength {
		return false
	}
	if rules.MaxLength > 0 && length > rules.MaxLength {
		return false
	}

	return true
}
