package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"dirigent/internal/types"
)

// detectionSystemPrompt instructs model backends to emit a single JSON
// object. The low temperature set by each client keeps output stable.
const detectionSystemPrompt = `You classify software engineering task descriptions.
Respond with ONLY a JSON object, no prose, no markdown fences:
{
  "layer": one of "1-Presentation", "2-Application", "3-Domain", "4-Infrastructure", "5-Data", "6-Testing", "7-CrossCutting", or "*",
  "topics": [lowercase topic names],
  "keywords": [salient keywords from the task],
  "technologies": [lowercase technology names],
  "confidence": number between 0 and 1
}`

// contextPayload is the wire shape model backends respond with.
type contextPayload struct {
	Layer        string   `json:"layer"`
	Topics       []string `json:"topics"`
	Keywords     []string `json:"keywords"`
	Technologies []string `json:"technologies"`
	Confidence   float64  `json:"confidence"`
}

// parseContextResponse extracts and validates a TaskContext from a model
// response. Malformed responses are provider failures, not panics.
func parseContextResponse(response string) (*types.TaskContext, error) {
	raw := extractJSON(response)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var payload contextPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("malformed context JSON: %w", err)
	}

	layer := normalizeLayer(payload.Layer)
	conf := payload.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}

	return &types.TaskContext{
		Layer:        layer,
		Topics:       lowerAll(payload.Topics),
		Keywords:     payload.Keywords,
		Technologies: lowerAll(payload.Technologies),
		Confidence:   conf,
	}, nil
}

// normalizeLayer maps a model-supplied layer string onto the enumeration,
// falling back to the wildcard for anything unrecognized.
func normalizeLayer(s string) types.LayerTag {
	tag := types.LayerTag(strings.TrimSpace(s))
	for _, l := range types.OrderedLayers {
		if tag == l {
			return l
		}
	}
	return types.LayerWildcard
}

func lowerAll(ss []string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		s = strings.TrimSpace(strings.ToLower(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// extractJSON finds the first balanced JSON object in a response,
// tolerating markdown wrappers around it.
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	for i := start; i < len(response); i++ {
		switch response[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}
