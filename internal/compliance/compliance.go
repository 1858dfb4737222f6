// Package compliance gates a scrape on the mechanical completeness of the
// project's legitimate interest assessment. It checks that the assessment
// sections exist and hold answers; it passes no judgment on their content.
package compliance

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Errors returned by Check.
var (
	// ErrAssessmentIncomplete indicates a missing or empty assessment section.
	ErrAssessmentIncomplete = errors.New("legitimate interest assessment incomplete")
	// ErrDPIARequired indicates the screening concluded a DPIA is needed
	// before scraping may start.
	ErrDPIARequired = errors.New("dpia screening requires a full assessment before scraping")
)

// assessmentSections are the legitimate interest assessment sections that
// must each hold at least one answer.
var assessmentSections = []string{"purpose_test", "necessity_test", "balancing_test"}

// document mirrors the compliance file's checked structure. Sections are
// kept loose: the assessment wizard writes free-form answer maps.
type document struct {
	LegitimateInterestAssessment map[string]map[string]any `yaml:"legitimate_interest_assessment"`
	DPIAScreening                struct {
		Required bool `yaml:"required"`
	} `yaml:"dpia_screening"`
}

// Check loads the compliance file and verifies the assessment is complete.
func Check(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read compliance file: %w", err)
	}

	var doc document
	if unmarshalErr := yaml.Unmarshal(data, &doc); unmarshalErr != nil {
		return fmt.Errorf("parse compliance file: %w", unmarshalErr)
	}

	if doc.DPIAScreening.Required {
		return ErrDPIARequired
	}

	for _, section := range assessmentSections {
		answers, ok := doc.LegitimateInterestAssessment[section]
		if !ok || len(answers) == 0 {
			return fmt.Errorf("%w: %s missing or empty", ErrAssessmentIncomplete, section)
		}
	}

	return nil
}
