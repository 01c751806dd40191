package utils

import (
	"encoding/json"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// PrettyJSON marshals with indentation.
func PrettyJSON(v any) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data)
}

// LimitStr returns a string truncated to n bytes with "..." appended if longer.
func LimitStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Tail returns the last n runes of s.
func Tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

// CleanJSON removes markdown code blocks from a string to extract raw JSON.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		lines := strings.Split(s, "\n")
		if len(lines) >= 2 {
			if strings.HasPrefix(lines[0], "```") {
				lines = lines[1:]
			}
			if len(lines) > 0 && strings.HasPrefix(lines[len(lines)-1], "```") {
				lines = lines[:len(lines)-1]
			}
			s = strings.Join(lines, "\n")
		}
	}
	return strings.TrimSpace(s)
}

// ExtractJSON trims anything surrounding the outermost JSON object or array.
// LLM responses occasionally wrap the payload in prose even after fence removal.
func ExtractJSON(s string) string {
	s = CleanJSON(s)
	if s == "" {
		return s
	}
	opener, closer := "{", "}"
	if i, j := strings.Index(s, "["), strings.Index(s, "{"); i != -1 && (j == -1 || i < j) {
		opener, closer = "[", "]"
	}
	if i := strings.Index(s, opener); i > 0 {
		s = s[i:]
	}
	if j := strings.LastIndex(s, closer); j != -1 && j < len(s)-1 {
		s = s[:j+1]
	}
	return strings.TrimSpace(s)
}

// NumTokens estimates the token count of text using the gpt-4 encoding.
func NumTokens(text string) (int, error) {
	tkm, err := tiktoken.EncodingForModel("gpt-4-0613")
	if err != nil {
		return 0, err
	}
	return len(tkm.Encode(text, nil, nil)), nil
}
