package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReadsSectionsAndKeys(t *testing.T) {
	content := "[EN]\n" +
		"LT_SimulationError = Simulation error\n" +
		"[FR]\n" +
		"LT_SimulationError = Erreur de simulation\n"

	cat := Parse(content)
	require.Contains(t, cat, "EN")
	require.Contains(t, cat, "FR")
	assert.Equal(t, "Simulation error", cat["EN"]["LT_SimulationError"])
	assert.Equal(t, "Erreur de simulation", cat["FR"]["LT_SimulationError"])
}

func TestParseSkipsCommentLines(t *testing.T) {
	content := "; a comment\n[EN]\n# also a comment\nKey = Value\n"
	cat := Parse(content)
	assert.Equal(t, "Value", cat["EN"]["Key"])
	assert.Len(t, cat["EN"], 1)
}

func TestParseIgnoresLinesBeforeFirstSection(t *testing.T) {
	content := "Orphan = Nope\n[EN]\nKey = Value\n"
	cat := Parse(content)
	assert.NotContains(t, cat, "")
	assert.Equal(t, "Value", cat["EN"]["Key"])
}

func TestParseStripsTrailingCommentOutsideQuotes(t *testing.T) {
	content := "[EN]\nKey = Value ; trailing note\n"
	cat := Parse(content)
	assert.Equal(t, "Value", cat["EN"]["Key"])
}

func TestParseKeepsSemicolonInsideQuotes(t *testing.T) {
	content := "[EN]\nKey = \"a; b\"\n"
	cat := Parse(content)
	assert.Equal(t, "a; b", cat["EN"]["Key"])
}

func TestParseUnquotesSingleQuotedValue(t *testing.T) {
	content := "[EN]\nKey = 'spaced value'\n"
	cat := Parse(content)
	assert.Equal(t, "spaced value", cat["EN"]["Key"])
}

func TestParseHandlesUnbalancedQuoteWithCommentInside(t *testing.T) {
	content := "[EN]\nKey = \"unterminated ; looks like comment\n"
	cat := Parse(content)
	assert.Equal(t, "\"unterminated", cat["EN"]["Key"])
}

func TestParseFindsEqualsOutsideQuotedRun(t *testing.T) {
	content := "[EN]\nKey = \"a = b\"\n"
	cat := Parse(content)
	assert.Equal(t, "a = b", cat["EN"]["Key"])
}
