package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ccollicutt/irlog/pkg/output"
)

// Trigger determines when a webhook fires.
type Trigger string

const (
	// TriggerOnIssues fires only when the stream had parse failures or overflows (default).
	TriggerOnIssues Trigger = "on_issues"
	// TriggerAlways fires after every run.
	TriggerAlways Trigger = "always"
	// TriggerNever disables the webhook.
	TriggerNever Trigger = "never"
)

// ParseTrigger validates a trigger name. The empty string means TriggerOnIssues.
func ParseTrigger(s string) (Trigger, error) {
	switch t := Trigger(s); t {
	case "":
		return TriggerOnIssues, nil
	case TriggerOnIssues, TriggerAlways, TriggerNever:
		return t, nil
	default:
		return "", fmt.Errorf("invalid trigger %q (must be on_issues, always, or never)", s)
	}
}

// ShouldFire reports whether a webhook with trigger t fires for a run.
func (t Trigger) ShouldFire(hasIssues bool) bool {
	switch t {
	case TriggerAlways:
		return true
	case TriggerNever:
		return false
	default:
		return hasIssues
	}
}

// Target is one configured endpoint.
type Target struct {
	Name    string
	URL     string
	Token   string
	Trigger Trigger
	Timeout time.Duration
}

// Result is the outcome of notifying one target.
type Result struct {
	Target   Target
	Response *Response
}

// Notify sends report to every target whose trigger fires, logging each
// outcome. Failures never stop the remaining targets.
func (c *Client) Notify(ctx context.Context, targets []Target, report *output.Report, logger zerolog.Logger) []Result {
	var results []Result

	for _, target := range targets {
		if !target.Trigger.ShouldFire(report.HasIssues()) {
			continue
		}

		resp := c.Send(ctx, report, SendOptions{
			URL:     target.URL,
			Token:   target.Token,
			Timeout: target.Timeout,
		})
		results = append(results, Result{Target: target, Response: resp})

		name := target.Name
		if name == "" {
			name = target.URL
		}
		if resp.Success() {
			logger.Info().Str("webhook", name).Int("status", resp.StatusCode).Dur("duration", resp.Duration).Msg("Webhook sent")
		} else {
			logger.Warn().Str("webhook", name).Err(resp.Error).Msg("Webhook failed")
		}
	}

	return results
}
