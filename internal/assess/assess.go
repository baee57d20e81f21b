// Package assess turns language model completions into readiness scores and
// emotion readings for pilot records.
package assess

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	apperrors "air-jarvis/internal/errors"
	"air-jarvis/internal/llm"
)

// complete runs a JSON-mode completion when the client supports it and maps
// provider failures to application errors.
func complete(ctx context.Context, client llm.Client, service string, msgs []llm.Message, maxTokens int) (string, error) {
	var (
		resp llm.Response
		err  error
	)
	if jc, ok := client.(llm.JSONClient); ok {
		resp, err = jc.GenerateJSON(ctx, msgs, maxTokens)
	} else {
		resp, err = client.Generate(ctx, msgs)
	}
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return "", apperrors.NewNotConfigured(service)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", apperrors.NewExternalService(service, err)
	}
	log.Printf("🤖 %s completion: model=%s tokens=%d", service, resp.Model, resp.TotalTokens)
	return resp.Content, nil
}

// decodeObject parses a model answer into a field map. Code fences and
// malformed JSON are repaired before giving up.
func decodeObject(content string) (map[string]json.RawMessage, error) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if s == "" {
		s = "{}"
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal([]byte(s), &out); err == nil {
		return out, nil
	}
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, fmt.Errorf("unparseable model response: %w", err)
	}
	log.Printf("🔧 repaired model JSON response")
	if err := json.Unmarshal([]byte(repaired), &out); err != nil {
		return nil, fmt.Errorf("model response is not a JSON object: %w", err)
	}
	return out, nil
}

func text(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
