package summarise

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gmcallister/regwatch/internal/store"
)

// EmptyTextSummary is returned when there is nothing to summarise.
const EmptyTextSummary = "No content available to summarise."

// Ellipsis marks a summary that was truncated to the word limit.
const Ellipsis = "…"

// maxPromptChars bounds how much body text is sent to the provider.
const maxPromptChars = 6000

const systemPrompt = "You are a precise UK energy regulation analyst."

// junkSnippets are known boilerplate artifacts; a summary containing one is
// returned but never cached, so malformed extraction cannot poison the cache.
var junkSnippets = []string{
	"skip to main content",
	"user account menu",
	"reset button in search",
	"data portal",
	"sign in / register",
	"show/hide menu",
	"main navigation",
	"cookies",
}

// ProviderError reports a summarisation provider failure. It is never
// propagated out of Summarise; callers of the provider use it to decide the
// fallback.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Config configures the external provider. An empty APIKey disables it and
// every summary comes from the deterministic fallback.
type Config struct {
	Provider  string // "openai" or "anthropic"
	Model     string
	APIKey    string
	BaseURL   string
	WordLimit int
}

// Manager produces and caches one bounded summary per item.
type Manager struct {
	store     store.Store
	client    *http.Client
	provider  string
	model     string
	apiKey    string
	baseURL   string
	wordLimit int
}

// New creates a summary manager backed by the given store for caching.
func New(s store.Store, cfg Config) *Manager {
	model := cfg.Model
	if model == "" {
		switch cfg.Provider {
		case "anthropic":
			model = "claude-sonnet-4-20250514"
		default:
			model = "gpt-4o-mini"
		}
	}
	wordLimit := cfg.WordLimit
	if wordLimit <= 0 {
		wordLimit = 100
	}
	return &Manager{
		store:     s,
		client:    &http.Client{Timeout: 60 * time.Second},
		provider:  cfg.Provider,
		model:     model,
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		wordLimit: wordLimit,
	}
}

// WordLimit returns the configured summary word budget.
func (m *Manager) WordLimit() int { return m.wordLimit }

// Summarise returns a summary for the item identified by cacheKey. A cached
// summary is returned unchanged, so the external call happens at most once
// per item. The result never exceeds the word limit and this path never
// fails outward: provider problems downgrade to a word-truncation fallback.
func (m *Manager) Summarise(ctx context.Context, title, text, cacheKey string) string {
	if cacheKey != "" {
		cached, err := m.store.GetSummary(ctx, cacheKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  summary cache read %s: %v\n", cacheKey, err)
		} else if cached != "" {
			return cached
		}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return EmptyTextSummary
	}

	var summary string
	if m.apiKey == "" {
		summary = Fallback(text, m.wordLimit)
	} else {
		out, err := m.generate(ctx, title, text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  summary provider fallback for %s: %v\n", cacheKey, err)
			summary = Fallback(text, m.wordLimit)
		} else {
			summary = truncateWords(out, m.wordLimit)
		}
	}

	if cacheKey != "" && !isJunk(summary) {
		if err := m.store.PutSummary(ctx, cacheKey, summary); err != nil {
			fmt.Fprintf(os.Stderr, "  summary cache write %s: %v\n", cacheKey, err)
		}
	}
	return summary
}

// Fallback is the deterministic no-provider path: the first limit words of
// the text, with an ellipsis marker when truncated.
func Fallback(text string, limit int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return EmptyTextSummary
	}
	if len(words) <= limit {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:limit], " ") + Ellipsis
}

// truncateWords enforces the word limit on provider output.
func truncateWords(s string, limit int) string {
	words := strings.Fields(s)
	if len(words) <= limit {
		return s
	}
	return strings.Join(words[:limit], " ") + Ellipsis
}

func isJunk(summary string) bool {
	t := strings.ToLower(strings.TrimSpace(summary))
	if t == "" {
		return true
	}
	for _, snip := range junkSnippets {
		if strings.Contains(t, snip) {
			return true
		}
	}
	return false
}

func (m *Manager) generate(ctx context.Context, title, text string) (string, error) {
	body := text
	if len(body) > maxPromptChars {
		body = body[:maxPromptChars]
	}

	prompt := fmt.Sprintf(`Summarise the following item in up to %d words.
Plain UK English, no bullet points, no headings. Cover what it is, who it affects, and likely action/implication.

TITLE: %s
TEXT:
%s
`, m.wordLimit, title, body)

	var raw string
	var err error
	switch m.provider {
	case "anthropic":
		raw, err = m.callAnthropic(ctx, prompt)
	default:
		raw, err = m.callOpenAI(ctx, prompt)
	}
	if err != nil {
		return "", &ProviderError{Provider: m.provider, Err: err}
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &ProviderError{Provider: m.provider, Err: fmt.Errorf("empty reply")}
	}
	return raw, nil
}

func (m *Manager) callOpenAI(ctx context.Context, prompt string) (string, error) {
	baseURL := m.baseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}

	payload := map[string]any{
		"model": m.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": prompt},
		},
		"temperature": 0.2,
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create openai request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("openai status %d: %v", resp.StatusCode, errResp)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return result.Choices[0].Message.Content, nil
}

func (m *Manager) callAnthropic(ctx context.Context, prompt string) (string, error) {
	baseURL := m.baseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	payload := map[string]any{
		"model":      m.model,
		"max_tokens": 1024,
		"system":     systemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
	}

	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", m.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call anthropic: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]any
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("anthropic status %d: %v", resp.StatusCode, errResp)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode anthropic response: %w", err)
	}
	if len(result.Content) == 0 {
		return "", fmt.Errorf("anthropic: no content returned")
	}
	return result.Content[0].Text, nil
}
