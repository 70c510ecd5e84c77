package telegram

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatRunFailureAlert(t *testing.T) {
	startedAt := time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)

	assert.Empty(t, FormatRunFailureAlert("run-1", startedAt, nil, nil))

	msg := FormatRunFailureAlert("run-1", startedAt, nil, []TenantFailure{
		{OwnerID: "owner-a", Step: "sync_holdings", Message: "exchange_down"},
	})
	assert.Contains(t, msg, "1 tenant(s) failed")
	assert.Contains(t, msg, "owner-a")
	assert.Contains(t, msg, "exchange\\_down")
	assert.Contains(t, msg, "2026-03-02 13:00")

	msg = FormatRunFailureAlert("run-2", startedAt, errors.New("lock lost"), nil)
	assert.Contains(t, msg, "Run failed:* lock lost")
}
