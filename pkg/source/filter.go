package source

import (
	"regexp"
	"strings"
)

// Rule is one source's admission configuration. Patterns prefixed "re:" are
// matched as case-insensitive regexes, anything else as a case-insensitive
// substring.
type Rule struct {
	Include []string
	Exclude []string
}

// Filter applies per-source include/exclude rules to candidates before they
// are persisted. It is a pure matcher with no side effects.
type Filter struct {
	rules  map[string]Rule
	bypass bool
}

// NewFilter builds a filter from per-tag rules. When bypass is true every
// candidate is admitted, which is useful when debugging a source.
func NewFilter(rules map[string]Rule, bypass bool) *Filter {
	if rules == nil {
		rules = map[string]Rule{}
	}
	return &Filter{rules: rules, bypass: bypass}
}

// Admit decides whether a candidate from the tagged source should be kept.
// Any exclude match rejects; otherwise the candidate is admitted when the
// include list is empty or at least one include pattern matches.
func (f *Filter) Admit(tag, title, body string) bool {
	if f.bypass {
		return true
	}

	rule, ok := f.rules[tag]
	if !ok {
		return true
	}

	blob := strings.ToLower(title + "\n" + body)

	for _, p := range rule.Exclude {
		if matchPattern(p, blob) {
			return false
		}
	}
	if len(rule.Include) == 0 {
		return true
	}
	for _, p := range rule.Include {
		if matchPattern(p, blob) {
			return true
		}
	}
	return false
}

// matchPattern matches one pattern against an already-lowercased blob.
// Invalid regexes match nothing.
func matchPattern(pattern, blob string) bool {
	if rest, ok := strings.CutPrefix(pattern, "re:"); ok {
		re, err := regexp.Compile("(?i)" + rest)
		if err != nil {
			return false
		}
		return re.MatchString(blob)
	}
	if rest, ok := strings.CutPrefix(pattern, "RE:"); ok {
		re, err := regexp.Compile("(?i)" + rest)
		if err != nil {
			return false
		}
		return re.MatchString(blob)
	}
	return strings.Contains(blob, strings.ToLower(pattern))
}
