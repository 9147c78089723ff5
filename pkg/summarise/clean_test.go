package summarise

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prosePara = "The regulator has published revised licence conditions for embedded generators. " +
	"Operators must review the new reporting obligations before the compliance deadline. " +
	"The changes apply to all licensees from April and introduce quarterly returns."

func TestCleanStripsBoilerplate(t *testing.T) {
	title := "Revised licence conditions"
	text := strings.Join([]string{
		"Skip to main content",
		"Revised licence conditions",
		"Menu",
		"ok",
		prosePara,
		"User account menu",
		prosePara,
		"Share this page",
	}, "\n")

	got := Clean(title, text, 0)

	assert.NotContains(t, got, "Skip to main content")
	assert.NotContains(t, got, "User account menu")
	assert.NotContains(t, got, "Share this page")
	// Short menu fragments and the repeated title are dropped too.
	assert.NotContains(t, got, "Menu")
	assert.NotContains(t, got, "ok")
	assert.NotContains(t, got, "Revised licence conditions")
	assert.Contains(t, got, "quarterly returns")
}

func TestCleanKeepsShortSentences(t *testing.T) {
	text := prosePara + "\nApplies now.\n" + prosePara
	got := Clean("", text, 0)
	// A short line ending in a sentence mark is prose, not chrome.
	assert.Contains(t, got, "Applies now.")
}

func TestCleanSafetyFloor(t *testing.T) {
	// When stripping would leave almost nothing, the original text wins.
	text := "  Skip to main content\nA short update.  "
	got := Clean("", text, 0)
	require.Equal(t, strings.TrimSpace(text), got)
}

func TestCleanCapsLength(t *testing.T) {
	text := strings.Repeat(prosePara+"\n", 100)
	got := Clean("", text, 1000)
	assert.LessOrEqual(t, len(got), 1000)
	assert.Greater(t, len(got), 500)
}

func TestCleanEmpty(t *testing.T) {
	assert.Equal(t, "", Clean("title", "", 0))
}
