package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `[{"symbol":"SOL"}]`, StripCodeFence("```json\n[{\"symbol\":\"SOL\"}]\n```"))
	assert.Equal(t, `[]`, StripCodeFence("```\n[]\n```"))
	assert.Equal(t, `[]`, StripCodeFence("  []  "))
}

func TestParseIdeas(t *testing.T) {
	raw := "```json\n[" +
		`{"symbol":"sol","thesis":"Breakout retest","confidence":82,"entryPrice":140.5,"stopLoss":"131","takeProfit":165},` +
		`{"ticker":"AVAX/USDT","reason":"Range low bounce"},` +
		`{"thesis":"no symbol"},` +
		`{"symbol":"LINK","confidence":250}` +
		"]\n```"

	ideas, err := ParseIdeas(raw, "grok", 5)
	require.NoError(t, err)
	require.Len(t, ideas, 3)

	assert.Equal(t, "SOL", ideas[0].Symbol)
	assert.Equal(t, 82.0, ideas[0].Confidence)
	require.NotNil(t, ideas[0].StopLoss)
	assert.Equal(t, 131.0, *ideas[0].StopLoss)
	assert.Equal(t, "grok", ideas[0].Source)

	assert.Equal(t, "AVAX", ideas[1].Symbol)
	assert.Equal(t, "Range low bounce", ideas[1].Thesis)
	assert.Equal(t, 70.0, ideas[1].Confidence)
	assert.Nil(t, ideas[1].EntryPrice)
	assert.Nil(t, ideas[1].StopLoss)
	assert.Nil(t, ideas[1].TakeProfit)

	assert.Equal(t, 100.0, ideas[2].Confidence)
}

func TestParseIdeas_Bounded(t *testing.T) {
	ideas, err := ParseIdeas(`[{"symbol":"A"},{"symbol":"B"},{"symbol":"C"}]`, "openai", 2)
	require.NoError(t, err)
	assert.Len(t, ideas, 2)
}

func TestParseIdeas_Failures(t *testing.T) {
	_, err := ParseIdeas(`{"ideas":[]}`, "grok", 5)
	assert.ErrorIs(t, err, ErrNotArray)

	_, err = ParseIdeas("Sure! Here are some ideas: BTC looks strong.", "grok", 5)
	assert.Error(t, err)

	_, err = ParseIdeas("", "grok", 5)
	assert.Error(t, err)
}
