package formatting

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrParseFailed is returned when a reply holds no decodable JSON object.
var ErrParseFailed = errors.New("failed to parse response")

var fencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Parse decodes a model reply into T. The reply may be bare JSON, JSON
// wrapped in a markdown fence, or JSON surrounded by prose.
func Parse[T any](content string) (T, error) {
	var result T
	content = strings.TrimSpace(content)

	candidates := []string{content}
	if m := fencePattern.FindStringSubmatch(content); m != nil {
		candidates = append(candidates, m[1])
	}
	if start, end := strings.IndexByte(content, '{'), strings.LastIndexByte(content, '}'); start >= 0 && end > start {
		candidates = append(candidates, content[start:end+1])
	}

	for _, c := range candidates {
		if err := json.Unmarshal([]byte(c), &result); err == nil {
			return result, nil
		}
	}

	return result, fmt.Errorf("%w: %.200s", ErrParseFailed, content)
}
