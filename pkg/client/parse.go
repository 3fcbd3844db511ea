package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zen-systems/structura/pkg/schema"
)

// parseResult decodes a raw model response into a ClassificationResult.
// Models occasionally wrap JSON in markdown fences despite the strict
// instruction, so fences are stripped before decoding.
func parseResult(raw string, total int) (*schema.ClassificationResult, error) {
	content := strings.TrimSpace(raw)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var result schema.ClassificationResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w (content: %s)", err, preview(content))
	}
	if err := result.Validate(total); err != nil {
		return nil, fmt.Errorf("response violates schema: %w", err)
	}
	return &result, nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= 300 {
		return content
	}
	return string(runes[:300]) + "..."
}
