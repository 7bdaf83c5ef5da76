package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kelasio/kelas-admin-api/internal/dto"
	"github.com/kelasio/kelas-admin-api/internal/grading"
	"github.com/kelasio/kelas-admin-api/internal/models"
)

// analysisSchema guards the ingestion boundary. The scoring model is an
// external system; its payloads are validated structurally before anything
// touches the database.
const analysisSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["score"],
  "additionalProperties": false,
  "properties": {
    "score": {"type": "number", "minimum": 0, "maximum": 100},
    "feedback": {"type": "string", "maxLength": 5000},
    "suggestions": {
      "type": "array",
      "maxItems": 20,
      "items": {"type": "string", "minLength": 1, "maxLength": 500}
    }
  }
}`

// AnalysisStore persists an accepted analysis for one answer.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, submissionID, answerID uint, analysis models.AIAnalysis) error
}

// SuggestionService ingests externally computed answer analyses. Payloads are
// schema-validated and the free-text fields sanitized before storage.
type SuggestionService interface {
	Ingest(ctx context.Context, submissionID, answerID uint, raw []byte) (models.AIAnalysis, error)
}

type suggestionService struct {
	store     AnalysisStore
	schema    *jsonschema.Schema
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewSuggestionService constructs the ingestion service. Compiling the schema
// cannot fail at runtime input; a broken schema is a programming error.
func NewSuggestionService(store AnalysisStore, logger zerolog.Logger) SuggestionService {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("analysis.schema.json", bytes.NewReader([]byte(analysisSchema))); err != nil {
		panic(fmt.Sprintf("invalid analysis schema: %v", err))
	}
	schema := compiler.MustCompile("analysis.schema.json")

	return &suggestionService{
		store:     store,
		schema:    schema,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "suggestion_service").Logger(),
	}
}

func (s *suggestionService) Ingest(ctx context.Context, submissionID, answerID uint, raw []byte) (models.AIAnalysis, error) {
	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return models.AIAnalysis{}, &grading.ValidationError{Field: "body", Reason: "invalid json"}
	}

	if err := s.schema.Validate(document); err != nil {
		s.logger.Warn().
			Err(err).
			Uint("submission_id", submissionID).
			Uint("answer_id", answerID).
			Msg("rejected analysis payload")
		return models.AIAnalysis{}, &grading.ValidationError{Field: "body", Reason: err.Error()}
	}

	var request dto.IngestAnalysisRequest
	if err := json.Unmarshal(raw, &request); err != nil {
		return models.AIAnalysis{}, &grading.ValidationError{Field: "body", Reason: "invalid json"}
	}

	analysis := models.AIAnalysis{
		Score:    request.Score,
		Feedback: s.sanitizer.Sanitize(request.Feedback),
	}
	for _, suggestion := range request.Suggestions {
		analysis.Suggestions = append(analysis.Suggestions, s.sanitizer.Sanitize(suggestion))
	}

	if err := s.store.SaveAnalysis(ctx, submissionID, answerID, analysis); err != nil {
		return models.AIAnalysis{}, &grading.SaveError{SubmissionID: submissionID, Err: err}
	}

	s.logger.Info().
		Uint("submission_id", submissionID).
		Uint("answer_id", answerID).
		Float64("score", request.Score).
		Msg("analysis ingested")

	return analysis, nil
}
