package triage

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/janjeevan/telehealth/internal/observability/metrics"
	"github.com/janjeevan/telehealth/pkg/logging"
)

var tracer = otel.Tracer("janjeevan.internal.triage")

// Classifier produces a raw model response for the given symptom text.
// Implementations wrap a specific LLM provider.
type Classifier interface {
	Classify(ctx context.Context, symptoms string) (string, error)
	Provider() string
}

// Service turns free-text symptoms into a Verdict. Classifier failures are
// absorbed into the deterministic fallback and never surfaced to callers.
type Service struct {
	classifier Classifier
	cache      *VerdictCache
	metrics    *metrics.WorkflowMetrics
	logger     *logging.Logger
}

// NewService creates a triage service. classifier and cache may be nil; the
// service degrades to the keyword fallback.
func NewService(classifier Classifier, cache *VerdictCache, m *metrics.WorkflowMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		classifier: classifier,
		cache:      cache,
		metrics:    m,
		logger:     logger,
	}
}

// Analyze classifies the symptom description. Empty input is the only error.
func (s *Service) Analyze(ctx context.Context, symptoms string) (*Verdict, error) {
	symptoms = strings.TrimSpace(symptoms)
	if symptoms == "" {
		return nil, ErrSymptomsRequired
	}

	ctx, span := tracer.Start(ctx, "triage.analyze")
	defer span.End()

	if verdict := s.cache.Get(ctx, symptoms); verdict != nil {
		span.SetAttributes(attribute.Bool("janjeevan.triage.cache_hit", true))
		return verdict, nil
	}

	start := time.Now()
	verdict, provider := s.classify(ctx, symptoms)
	s.metrics.ObserveTriage(provider, verdict.Severity, time.Since(start).Seconds())
	span.SetAttributes(
		attribute.String("janjeevan.triage.provider", provider),
		attribute.String("janjeevan.triage.severity", verdict.Severity),
	)

	s.cache.Set(ctx, symptoms, verdict)
	return verdict, nil
}

func (s *Service) classify(ctx context.Context, symptoms string) (*Verdict, string) {
	if s.classifier == nil {
		return FallbackAnalyze(symptoms), "fallback"
	}

	text, err := s.classifier.Classify(ctx, symptoms)
	if err != nil {
		s.logger.Warn("classifier failed, using fallback", "provider", s.classifier.Provider(), "error", err)
		return FallbackAnalyze(symptoms), "fallback"
	}

	verdict := parseVerdictJSON(text)
	if !verdict.Valid() {
		s.logger.Warn("classifier returned unusable verdict, using fallback", "provider", s.classifier.Provider())
		return FallbackAnalyze(symptoms), "fallback"
	}
	return verdict, s.classifier.Provider()
}

// parseVerdictJSON extracts the first JSON object from the model response.
// Responses may be wrapped in markdown code fences.
func parseVerdictJSON(text string) *Verdict {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return nil
	}
	var verdict Verdict
	if err := json.Unmarshal([]byte(text[start:end+1]), &verdict); err != nil {
		return nil
	}
	return &verdict
}

const classificationSystemPrompt = `You are a medical triage assistant for a rural telehealth service. Classify symptom reports conservatively and return only JSON.`

func classificationPrompt(symptoms string) string {
	return `Act as a medical AI assistant. Analyze these symptoms: "` + symptoms + `".
Return a JSON object ONLY with this structure:
{
  "severity": "MINOR" | "SEVERE",
  "urgency": "LOW" | "MEDIUM" | "HIGH",
  "recommendations": ["string"],
  "suggestedMedications": ["string"],
  "requiresDoctorConsultation": boolean
}
Do not include markdown formatting. Just the raw JSON string.`
}
