package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"erasure-portal/pkg/models"
)

// Result records how one target handled a payload
type Result struct {
	Target string
	Tier   Tier
	Err    error
}

// UserMessager is implemented by errors that carry a message safe to show to visitors
type UserMessager interface {
	UserMessage() string
}

// Reason picks the visitor-facing text for a failed critical dispatch
func Reason(err error, fallback string) string {
	var um UserMessager
	if errors.As(err, &um) {
		if msg := strings.TrimSpace(um.UserMessage()); msg != "" {
			return msg
		}
	}
	return fallback
}

// Aggregate applies the outcome rule: a critical failure rejects, a best-effort failure degrades
// to partial, fire-and-forget results are ignored.
func Aggregate(results []Result, fallback string) models.Outcome {
	var warnings []string
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		switch r.Tier {
		case Critical:
			return models.Rejected(Reason(r.Err, fallback))
		case BestEffort:
			warnings = append(warnings, fmt.Sprintf("%s: %v", r.Target, r.Err))
		}
	}
	if len(warnings) > 0 {
		return models.Partial(warnings)
	}
	return models.Accepted()
}
