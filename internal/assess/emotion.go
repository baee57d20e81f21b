package assess

import (
	"context"
	"strings"

	apperrors "air-jarvis/internal/errors"
	"air-jarvis/internal/llm"
	"air-jarvis/internal/pilots"
)

const emotionSystemPrompt = "You are an expert psychologist and emotion analyst. Analyze the person's facial expression and body language to determine their emotional state, stress level, and mental readiness. Be detailed and professional."

const emotionUserPrompt = "Analyze this person's emotional state. Provide: 1) Primary emotion (e.g., calm, anxious, stressed, tired, alert, etc.), 2) Stress level (1-10), 3) Brief analysis (2-3 sentences) of their facial expression, body language, and overall demeanor. Format as JSON with fields: emotion, stressLevel, analysis."

const emotionMaxTokens = 500

// EmotionAnalyzer infers an emotional state from a face image.
type EmotionAnalyzer struct {
	client  llm.JSONClient
	service string
}

func NewEmotionAnalyzer(client llm.JSONClient, service string) *EmotionAnalyzer {
	if service == "" {
		service = "OpenAI"
	}
	return &EmotionAnalyzer{client: client, service: service}
}

// Analyze sends the image (a data: or http(s) URL) to the vision model.
// CapturedAt is left for the store to stamp.
func (a *EmotionAnalyzer) Analyze(ctx context.Context, image string) (pilots.EmotionResult, error) {
	if strings.TrimSpace(image) == "" {
		return pilots.EmotionResult{}, apperrors.NewInvalidInput("Name and image required")
	}

	content, err := complete(ctx, a.client, a.service, []llm.Message{
		{Role: "system", Content: emotionSystemPrompt},
		{Role: "user", Content: emotionUserPrompt, ImageURL: image},
	}, emotionMaxTokens)
	if err != nil {
		return pilots.EmotionResult{}, err
	}

	fields, err := decodeObject(content)
	if err != nil {
		return pilots.EmotionResult{}, apperrors.NewExternalService(a.service, err)
	}
	stress, _ := pilots.ParseNumber(fields["stressLevel"])
	return pilots.EmotionResult{
		Emotion:     text(fields["emotion"]),
		StressLevel: stress,
		Analysis:    text(fields["analysis"]),
	}, nil
}
