// Package link scores items against the control taxonomy and maintains the
// item-control link table.
package link

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gmcallister/regwatch/internal/store"
)

// Config holds the scoring constants. They are empirically chosen defaults,
// not fixed semantics; tune per deployment.
type Config struct {
	MinRelevance  float64 // link floor, links below are not persisted
	PhraseBoost   float64 // additive contribution per matched multi-word phrase
	PhraseDivisor float64 // divisor applied to the summed phrase boost
	NameBonus     float64 // flat bonus when a control name token appears in the text
}

// DefaultConfig returns the stock scoring constants.
func DefaultConfig() Config {
	return Config{
		MinRelevance:  0.35,
		PhraseBoost:   0.5,
		PhraseDivisor: 2.0,
		NameBonus:     0.1,
	}
}

// Scored is one qualifying control for an item.
type Scored struct {
	Ref       string
	Relevance float64
}

// Linker computes relevance links between items and controls.
type Linker struct {
	store store.Store
	cfg   Config
}

// New creates a linker. Zero-valued config fields fall back to the defaults.
func New(s store.Store, cfg Config) *Linker {
	def := DefaultConfig()
	if cfg.MinRelevance <= 0 {
		cfg.MinRelevance = def.MinRelevance
	}
	if cfg.PhraseBoost <= 0 {
		cfg.PhraseBoost = def.PhraseBoost
	}
	if cfg.PhraseDivisor <= 0 {
		cfg.PhraseDivisor = def.PhraseDivisor
	}
	if cfg.NameBonus <= 0 {
		cfg.NameBonus = def.NameBonus
	}
	return &Linker{store: s, cfg: cfg}
}

var wordRE = regexp.MustCompile(`[A-Za-z0-9]{3,}`)

// tokenize lowercases text into the set of alphanumeric tokens of length >= 3.
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, w := range wordRE.FindAllString(text, -1) {
		tokens[strings.ToLower(w)] = struct{}{}
	}
	return tokens
}

// Score rates item text against a control keyword set, in [0,1]. Multi-word
// keywords match as substrings of the lowercased text; single words match
// against the token set.
func (l *Linker) Score(text string, keywords []string) float64 {
	var kws []string
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			kws = append(kws, k)
		}
	}
	if len(kws) == 0 {
		return 0
	}

	lower := strings.ToLower(text)
	tokens := tokenize(lower)

	overlap := 0
	singleWords := 0
	phraseBoost := 0.0
	for _, kw := range kws {
		k := strings.ToLower(kw)
		if strings.ContainsAny(k, " \t") {
			if strings.Contains(lower, k) {
				phraseBoost += l.cfg.PhraseBoost
			}
			continue
		}
		singleWords++
		if _, ok := tokens[k]; ok {
			overlap++
		}
	}

	base := float64(overlap) / float64(max(1, singleWords))
	boost := phraseBoost / l.cfg.PhraseDivisor
	if boost > 1.0 {
		boost = 1.0
	}
	score := base + boost
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Relink recomputes scores between one item and every control and replaces
// the item's link rows with the qualifying set. It returns the (ref, score)
// pairs above the floor; nil means both "nothing matched" and "item has no
// text", neither of which is an error.
func (l *Linker) Relink(ctx context.Context, item *store.Item) ([]Scored, error) {
	text := strings.TrimSpace(strings.Join([]string{
		strings.TrimSpace(item.Title),
		firstNonEmpty(item.AISummary, item.Summary, item.Content),
	}, " "))
	if text == "" {
		if err := l.store.ReplaceItemLinks(ctx, item.GUID, nil); err != nil {
			return nil, err
		}
		return nil, nil
	}

	controls, err := l.store.ListControls(ctx)
	if err != nil {
		return nil, fmt.Errorf("relink %s: %w", item.GUID, err)
	}
	if len(controls) == 0 {
		return nil, nil
	}

	lower := strings.ToLower(text)
	now := time.Now().UTC().Format(time.RFC3339)

	var scored []Scored
	var rows []store.ItemControlLink
	for _, c := range controls {
		score := l.Score(text, c.Keywords)
		if nameTokenInText(c.Name, lower) {
			score += l.cfg.NameBonus
		}
		if score > 1.0 {
			score = 1.0
		}
		if score < l.cfg.MinRelevance {
			continue
		}
		scored = append(scored, Scored{Ref: c.Ref, Relevance: score})
		rows = append(rows, store.ItemControlLink{
			ItemGUID:  item.GUID,
			ControlID: c.ID,
			Relevance: score,
			CreatedAt: now,
		})
	}

	if err := l.store.ReplaceItemLinks(ctx, item.GUID, rows); err != nil {
		return nil, err
	}
	return scored, nil
}

func nameTokenInText(name, lowerText string) bool {
	for tok := range tokenize(name) {
		if strings.Contains(lowerText, tok) {
			return true
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
