package telegram

import (
	"fmt"
	"strings"
	"time"
)

const maxMessageLen = 4090

// TenantFailure describes one tenant pipeline that ended in failure.
type TenantFailure struct {
	OwnerID string
	Step    string
	Message string
}

// FormatRunFailureAlert renders an ops alert for a batch run. It returns an empty string when
// nothing failed.
func FormatRunFailureAlert(runID string, startedAt time.Time, runErr error, failures []TenantFailure) string {
	if runErr == nil && len(failures) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("🚨 *ApexPulse daily run*\n")
	sb.WriteString(fmt.Sprintf("🆔 `%s`\n", runID))
	sb.WriteString(fmt.Sprintf("🕐 %s UTC\n\n", startedAt.UTC().Format("2006-01-02 15:04")))

	if runErr != nil {
		sb.WriteString(fmt.Sprintf("❌ *Run failed:* %s\n", escapeMarkdown(runErr.Error())))
	}

	if len(failures) > 0 {
		sb.WriteString(fmt.Sprintf("⚠️ *%d tenant(s) failed*\n", len(failures)))
		for _, f := range failures {
			line := fmt.Sprintf("• `%s` %s: %s\n", f.OwnerID, f.Step, escapeMarkdown(f.Message))
			if sb.Len()+len(line) > maxMessageLen {
				sb.WriteString("…\n")
				break
			}
			sb.WriteString(line)
		}
	}

	return sb.String()
}

func escapeMarkdown(s string) string {
	r := strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")
	return r.Replace(s)
}
