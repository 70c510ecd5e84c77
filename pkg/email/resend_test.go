package email

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("## Signals\n\n| Symbol | Confidence |\n|---|---|\n| SOL | 72 |\n")
	require.NoError(t, err)
	assert.Contains(t, html, "<h2>Signals</h2>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>SOL</td>")
}

func TestFormatUSD(t *testing.T) {
	assert.Equal(t, "$38.21", FormatUSD(38.2125))
	assert.Equal(t, "$1,250.00", FormatUSD(1250))
}

func TestResendSenderNotConfigured(t *testing.T) {
	_, err := NewResendSender("").Send(context.Background(), Message{From: "a@b.c", To: []string{"x@y.z"}})
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = NewResendSender("re_key").Send(context.Background(), Message{To: []string{"x@y.z"}})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
