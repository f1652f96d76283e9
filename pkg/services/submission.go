package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"erasure-portal/pkg/dispatch"
	"erasure-portal/pkg/models"
	"erasure-portal/pkg/notify"
	"erasure-portal/pkg/utils"
)

const (
	submitFailedMessage    = "Failed to send message. Please try again later."
	submitSucceededMessage = "Thank you! Your message has been sent. We'll get back to you shortly."

	localTimeLayout = "1/2/2006, 3:04:05 PM"
	isoTimeLayout   = "2006-01-02T15:04:05.000Z07:00"
)

// Session is the display state a submission acts on: the form being submitted and where
// notifications go.
type Session struct {
	Form    *models.ContactForm
	Notices notify.Notifier
}

// Submission is the result of one submit attempt.
// Outcome is final for the visitor when Submit returns; Wait additionally reports best-effort failures.
type Submission struct {
	ID      string
	Outcome models.Outcome

	// FieldErrors is set when the form failed validation and nothing was sent
	FieldErrors map[string]string

	settled chan struct{}
	final   models.Outcome
}

// Settled is closed once every best-effort destination has finished
func (s *Submission) Settled() <-chan struct{} { return s.settled }

// Wait blocks until the trailing destinations settle and returns the aggregate outcome
func (s *Submission) Wait(ctx context.Context) (models.Outcome, error) {
	select {
	case <-s.settled:
		return s.final, nil
	case <-ctx.Done():
		return s.Outcome, ctx.Err()
	}
}

func (s *Submission) settle(outcome models.Outcome) {
	s.final = outcome
	close(s.settled)
}

// SubmissionService defines the interface for handling contact form submissions
type SubmissionService interface {
	Submit(ctx context.Context, session *Session) *Submission
}

// SubmissionOptions wires the destinations and payload enrichment
type SubmissionOptions struct {
	Targets  []dispatch.Target
	Source   string
	Location *time.Location
	Logger   zerolog.Logger
	Now      func() time.Time
}

type submissionServiceImpl struct {
	targets []dispatch.Target
	source  string
	loc     *time.Location
	now     func() time.Time
	logger  zerolog.Logger
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(opts SubmissionOptions) SubmissionService {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &submissionServiceImpl{
		targets: opts.Targets,
		source:  opts.Source,
		loc:     loc,
		now:     now,
		logger:  opts.Logger.With().Str("component", "submission_service").Logger(),
	}
}

// Submit validates the form, waits for the critical destinations and hands the rest to the
// trailing phase without waiting for it.
func (s *submissionServiceImpl) Submit(ctx context.Context, session *Session) *Submission {
	sub := &Submission{ID: uuid.NewString(), settled: make(chan struct{})}

	if err := session.Form.Validate(); err != nil {
		reason := "Please check the form and try again."
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			reason = verr.Error()
			sub.FieldErrors = verr.Fields
		}
		sub.Outcome = models.Rejected(reason)
		session.Notices.Show(notify.KindError, reason)
		sub.settle(sub.Outcome)
		return sub
	}

	payload := s.enrich(session.Form.Payload(), sub.ID)
	logger := s.logger.With().
		Str("submission_id", sub.ID).
		Str("email_hash", utils.HashString(payload["email"])).
		Logger()
	logger.Info().Msg("processing contact submission")

	critical, trailing := dispatch.Split(s.targets)

	results := s.runCritical(ctx, logger, critical, payload)
	sub.Outcome = dispatch.Aggregate(results, submitFailedMessage)

	if sub.Outcome.Succeeded() {
		session.Form.Reset()
		session.Notices.Show(notify.KindSuccess, submitSucceededMessage)
	} else {
		session.Notices.Show(notify.KindError, sub.Outcome.Reason)
	}

	// The trailing phase is only started once the critical phase has returned.
	done := s.runTrailing(context.WithoutCancel(ctx), logger, trailing, payload)
	go func() {
		trailingResults := <-done
		final := dispatch.Aggregate(append(results, trailingResults...), submitFailedMessage)
		if len(final.Warnings) > 0 {
			logger.Warn().Strs("warnings", final.Warnings).Msg("submission accepted with warnings")
		}
		sub.settle(final)
	}()

	return sub
}

// enrich adds the derived fields every destination receives
func (s *submissionServiceImpl) enrich(payload models.Payload, submissionID string) models.Payload {
	now := s.now()
	payload["submitted_at_local"] = now.In(s.loc).Format(localTimeLayout)
	payload["submitted_at"] = now.UTC().Format(isoTimeLayout)
	payload["source"] = s.source
	payload["submission_id"] = submissionID
	if payload["usage_type"] == "" {
		payload["usage_type"] = models.UsageBusiness
	}
	return payload
}

// runCritical sends to every critical destination in order. A failure does not skip the ones after it.
func (s *submissionServiceImpl) runCritical(ctx context.Context, logger zerolog.Logger, targets []dispatch.Target, payload models.Payload) []dispatch.Result {
	results := make([]dispatch.Result, 0, len(targets))
	for _, t := range targets {
		err := safeSend(ctx, t, payload.Clone())
		results = append(results, dispatch.Result{Target: t.Name(), Tier: t.Tier(), Err: err})
		if err != nil {
			logger.Error().Err(err).Str("target", t.Name()).Msg("critical destination failed")
			continue
		}
		logger.Info().Str("target", t.Name()).Msg("critical destination accepted submission")
	}
	return results
}

// runTrailing starts the best-effort and fire-and-forget destinations. The returned channel yields
// the best-effort results once they have all finished; fire-and-forget sends are never waited on.
func (s *submissionServiceImpl) runTrailing(ctx context.Context, logger zerolog.Logger, targets []dispatch.Target, payload models.Payload) <-chan []dispatch.Result {
	done := make(chan []dispatch.Result, 1)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []dispatch.Result
	)
	for _, t := range targets {
		if t.Tier() == dispatch.FireAndForget {
			go func(t dispatch.Target) {
				if err := safeSend(ctx, t, payload.Clone()); err != nil {
					logger.Debug().Err(err).Str("target", t.Name()).Msg("fire-and-forget destination failed")
				}
			}(t)
			continue
		}

		wg.Add(1)
		go func(t dispatch.Target) {
			defer wg.Done()
			err := safeSend(ctx, t, payload.Clone())
			if err != nil {
				logger.Warn().Err(err).Str("target", t.Name()).Msg("best-effort destination failed")
			}
			mu.Lock()
			results = append(results, dispatch.Result{Target: t.Name(), Tier: t.Tier(), Err: err})
			mu.Unlock()
		}(t)
	}

	go func() {
		wg.Wait()
		done <- results
	}()
	return done
}

// safeSend turns a panicking destination into an ordinary failure
func safeSend(ctx context.Context, t dispatch.Target, payload models.Payload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("destination %s panicked: %v", t.Name(), r)
		}
	}()
	return t.Send(ctx, payload)
}
