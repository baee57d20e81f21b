package assess

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "air-jarvis/internal/errors"
	"air-jarvis/internal/llm"
	"air-jarvis/internal/pilots"
)

const readinessSystemPrompt = "You are an aviation safety analyst. Analyze the pilot's questionnaire responses, flight data, and weather conditions to assess their readiness to fly. Provide a safety score from 0-100 and a brief 3-sentence explanation."

const readinessUserPrompt = `Analyze this pilot's data and provide a flight readiness score (0-100) and 3-sentence explanation:

%s

Consider: sleep quality, mental state, visibility conditions, planning quality, weather conditions, and overall preparedness. Format your response as JSON with "score" (number) and "explanation" (string) fields.`

// Scorer asks a language model for a readiness score. Its Score method
// satisfies pilots.ScoreFunc.
type Scorer struct {
	client  llm.Client
	service string
}

func NewScorer(client llm.Client, service string) *Scorer {
	if service == "" {
		service = "OpenAI"
	}
	return &Scorer{client: client, service: service}
}

func (s *Scorer) Score(ctx context.Context, rec *pilots.Record) (pilots.Score, error) {
	doc, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return pilots.Score{}, fmt.Errorf("marshal record: %w", err)
	}

	content, err := complete(ctx, s.client, s.service, []llm.Message{
		{Role: "system", Content: readinessSystemPrompt},
		{Role: "user", Content: fmt.Sprintf(readinessUserPrompt, doc)},
	}, 0)
	if err != nil {
		return pilots.Score{}, err
	}

	fields, err := decodeObject(content)
	if err != nil {
		return pilots.Score{}, apperrors.NewExternalService(s.service, err)
	}
	score, ok := pilots.ParseNumber(fields["score"])
	if !ok {
		return pilots.Score{}, apperrors.NewExternalService(s.service, fmt.Errorf("response has no numeric score"))
	}
	return pilots.Score{Score: score, Explanation: text(fields["explanation"])}, nil
}
