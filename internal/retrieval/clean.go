package retrieval

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// cleanModelJSON strips markdown fences and any chatter around the first
// JSON object in a model response.
func cleanModelJSON(raw string) string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```JSON")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		clean = clean[start : end+1]
	}
	return clean
}

// seconds decodes a time value the model may send as a number, a numeric
// string or null.
type seconds struct {
	value *float64
}

func (s *seconds) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		s.value = nil
		return nil
	}
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		s.value = &num
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	str = strings.TrimSuffix(strings.TrimSpace(str), "s")
	if str == "" {
		s.value = nil
		return nil
	}
	num, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return err
	}
	s.value = &num
	return nil
}

func (s seconds) get() (float64, bool) {
	if s.value == nil {
		return 0, false
	}
	return *s.value, true
}

// Truncate cuts text to limit runes, appending "..." only when something was
// cut.
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit]) + "..."
}
