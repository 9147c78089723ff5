package store

import (
	"encoding/json"
	"strings"
)

// DumpTags renders a tag list as the canonical JSON array string stored in
// the tags column. Entries are trimmed and empties dropped.
func DumpTags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	b, _ := json.Marshal(out)
	return string(b)
}

// LoadTags parses any historical tags representation (JSON array, bracketed
// pseudo-array, comma-separated string) into a trimmed, deduplicated list.
// Order of first appearance is preserved.
func LoadTags(raw string) []string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return []string{}
	}

	var parsed []string
	var arr []any
	if err := json.Unmarshal([]byte(s), &arr); err == nil {
		for _, v := range arr {
			if t, ok := v.(string); ok {
				parsed = append(parsed, t)
			}
		}
	} else if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		// Legacy rows hold Python-ish list literals with stray quotes.
		inner := strings.NewReplacer(`"`, "", `'`, "").Replace(s[1 : len(s)-1])
		parsed = strings.Split(inner, ",")
	} else {
		parsed = strings.Split(s, ",")
	}

	seen := make(map[string]struct{}, len(parsed))
	out := make([]string, 0, len(parsed))
	for _, t := range parsed {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
