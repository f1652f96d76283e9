package dispatch

import (
	"context"

	"erasure-portal/pkg/models"
)

// Tier says how much a destination's failure matters to the visitor
type Tier string

const (
	// Critical failures reject the submission
	Critical Tier = "critical"
	// BestEffort failures only degrade the outcome to partial
	BestEffort Tier = "best-effort"
	// FireAndForget results are never inspected
	FireAndForget Tier = "fire-and-forget"
)

// Target is one external destination a submission is sent to
type Target interface {
	Name() string
	Tier() Tier
	Send(ctx context.Context, payload models.Payload) error
}

// SendFunc delivers a payload to a destination
type SendFunc func(ctx context.Context, payload models.Payload) error

type funcTarget struct {
	name string
	tier Tier
	send SendFunc
}

// NewTarget describes a destination by name, tier and the function that delivers to it
func NewTarget(name string, tier Tier, send SendFunc) Target {
	return &funcTarget{name: name, tier: tier, send: send}
}

func (t *funcTarget) Name() string { return t.name }

func (t *funcTarget) Tier() Tier { return t.tier }

func (t *funcTarget) Send(ctx context.Context, payload models.Payload) error {
	return t.send(ctx, payload)
}

// Split separates the targets awaited before answering the visitor from the ones that trail behind.
// Configured order is preserved within each group.
func Split(targets []Target) (critical, trailing []Target) {
	for _, t := range targets {
		if t.Tier() == Critical {
			critical = append(critical, t)
		} else {
			trailing = append(trailing, t)
		}
	}
	return critical, trailing
}
