package triage

import (
	"errors"
	"strings"
)

// Severity levels produced by symptom analysis.
const (
	SeverityMinor  = "MINOR"
	SeveritySevere = "SEVERE"
)

// Urgency levels produced by symptom analysis.
const (
	UrgencyLow    = "LOW"
	UrgencyMedium = "MEDIUM"
	UrgencyHigh   = "HIGH"
)

// ErrSymptomsRequired is returned when the symptom text is empty.
var ErrSymptomsRequired = errors.New("triage: symptoms required")

// Verdict is the fixed-shape result of symptom analysis. It is persisted
// verbatim onto the appointment that consumed it.
type Verdict struct {
	Severity                   string   `json:"severity"`
	Urgency                    string   `json:"urgency"`
	Recommendations            []string `json:"recommendations"`
	SuggestedMedications       []string `json:"suggestedMedications,omitempty"`
	RequiresDoctorConsultation bool     `json:"requiresDoctorConsultation"`
}

// severeKeywords trigger the SEVERE/HIGH path in the deterministic fallback.
var severeKeywords = []string{
	"chest pain",
	"difficulty breathing",
	"unconscious",
	"stroke",
	"heart attack",
}

// FallbackAnalyze classifies symptoms without any external call. Any severe
// keyword match escalates to an immediate-consultation verdict; everything
// else gets a monitor-at-home verdict.
func FallbackAnalyze(symptoms string) *Verdict {
	lower := strings.ToLower(symptoms)
	for _, kw := range severeKeywords {
		if strings.Contains(lower, kw) {
			return &Verdict{
				Severity:                   SeveritySevere,
				Urgency:                    UrgencyHigh,
				Recommendations:            []string{"Immediate medical attention required", "Call emergency services"},
				RequiresDoctorConsultation: true,
			}
		}
	}
	return &Verdict{
		Severity:                   SeverityMinor,
		Urgency:                    UrgencyMedium,
		Recommendations:            []string{"Monitor symptoms", "Rest and hydrate"},
		SuggestedMedications:       []string{"Paracetamol (if fever)"},
		RequiresDoctorConsultation: false,
	}
}

// Valid reports whether the verdict carries recognized severity and urgency
// values. Classifier output that fails this check is discarded in favor of
// the fallback.
func (v *Verdict) Valid() bool {
	if v == nil {
		return false
	}
	switch v.Severity {
	case SeverityMinor, SeveritySevere:
	default:
		return false
	}
	switch v.Urgency {
	case UrgencyLow, UrgencyMedium, UrgencyHigh:
	default:
		return false
	}
	return true
}
