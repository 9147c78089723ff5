// Package summarise produces bounded natural-language summaries for items,
// caching one generated summary per item.
package summarise

import (
	"regexp"
	"strings"
)

// DefaultMaxChars caps cleaned article text before it reaches the summariser.
const DefaultMaxChars = 12000

// minCleanedChars is the safety floor: when stripping leaves less than this,
// the original text is returned untouched. Cleaning must never leave less
// usable content than it started with for short articles.
const minCleanedChars = 200

var boilerplateRE = regexp.MustCompile(`(?i)` + strings.Join([]string{
	`\bskip to (main )?content\b`,
	`\b(main )?navigation\b`,
	`\b(show/?hide|toggle) menu\b`,
	`\b(sign in|register|log ?in|log ?out)\b`,
	`\b(search|search results|reset button in search)\b`,
	`\b(cookie(s)? (banner|settings|preferences)|accept all cookies)\b`,
	`\buser account menu\b`,
	`\bfooter\b`,
	`\bshare (this )?page\b`,
	`\brelated (content|links)\b`,
	`\bdata portal\b`,
}, "|"))

var (
	horizontalWS = regexp.MustCompile(`[ \t]+`)
	lineEndings  = regexp.MustCompile("\r\n?")
	blankRuns    = regexp.MustCompile(`\n{3,}`)
)

// sentenceEndings are the terminal marks a short line must end with to be
// treated as prose rather than a stray menu fragment.
var sentenceEndings = []string{".", ":", "?", "!", "…"}

// Clean strips navigation, cookie and footer boilerplate from extracted page
// text. maxChars <= 0 means DefaultMaxChars.
func Clean(title, text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if text == "" {
		return text
	}

	raw := horizontalWS.ReplaceAllString(text, " ")
	raw = lineEndings.ReplaceAllString(raw, "\n")
	titleLow := strings.ToLower(strings.TrimSpace(title))

	var kept []string
	for _, ln := range strings.Split(raw, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" {
			continue
		}
		if boilerplateRE.MatchString(ln) {
			continue
		}
		if len(ln) <= 3 {
			continue
		}
		if len(ln) <= 18 && !endsWithSentenceMark(ln) {
			continue
		}
		if titleLow != "" && strings.ToLower(ln) == titleLow {
			continue
		}
		kept = append(kept, ln)
	}

	cleaned := strings.Join(kept, "\n")
	cleaned = strings.TrimSpace(blankRuns.ReplaceAllString(cleaned, "\n\n"))
	if len(cleaned) < minCleanedChars {
		cleaned = strings.TrimSpace(text)
	}
	if len(cleaned) > maxChars {
		cleaned = cleaned[:maxChars]
	}
	return cleaned
}

func endsWithSentenceMark(ln string) bool {
	for _, mark := range sentenceEndings {
		if strings.HasSuffix(ln, mark) {
			return true
		}
	}
	return false
}
