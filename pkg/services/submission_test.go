package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"erasure-portal/pkg/clients/backend"
	"erasure-portal/pkg/clients/relay"
	"erasure-portal/pkg/dispatch"
	"erasure-portal/pkg/models"
	"erasure-portal/pkg/notify"
)

type recordingNotifier struct {
	mu    sync.Mutex
	shown []notify.Notification
}

func (r *recordingNotifier) Show(kind notify.Kind, message string) notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := notify.Notification{Kind: kind, Message: message}
	r.shown = append(r.shown, n)
	return n
}

func (r *recordingNotifier) all() []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Notification(nil), r.shown...)
}

var fixedNow = time.Date(2026, 3, 4, 15, 4, 5, 0, time.UTC)

func newTestService(targets ...dispatch.Target) SubmissionService {
	return NewSubmissionService(SubmissionOptions{
		Targets:  targets,
		Source:   "website-contact-form",
		Location: time.UTC,
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return fixedNow },
	})
}

func validForm() *models.ContactForm {
	return &models.ContactForm{Name: "Jane Doe", Email: "jane@ex.com", Message: "hello"}
}

func waitOutcome(t *testing.T, sub *Submission) models.Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	outcome, err := sub.Wait(ctx)
	if err != nil {
		t.Fatalf("submission never settled: %v", err)
	}
	return outcome
}

func counting(name string, tier dispatch.Tier, calls *atomic.Int32, err error) dispatch.Target {
	return dispatch.NewTarget(name, tier, func(context.Context, models.Payload) error {
		calls.Add(1)
		return err
	})
}

func TestSubmitRejectsInvalidFormWithoutDispatch(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := backend.NewClient(backend.Options{BaseURL: server.URL, ContactCollection: "contact-submissions", Logger: zerolog.Nop()})
	var trailing atomic.Int32
	svc := newTestService(
		dispatch.NewTarget("backend", dispatch.Critical, client.CreateSubmission),
		counting("relay", dispatch.BestEffort, &trailing, nil),
		counting("webhook", dispatch.FireAndForget, &trailing, nil),
	)

	tests := []struct {
		name    string
		form    models.ContactForm
		mention string
	}{
		{"missing name", models.ContactForm{Email: "jane@ex.com", Message: "hello"}, "name"},
		{"missing email", models.ContactForm{Name: "Jane Doe", Message: "hello"}, "email"},
		{"missing message", models.ContactForm{Name: "Jane Doe", Email: "jane@ex.com"}, "message"},
		{"blank message", models.ContactForm{Name: "Jane Doe", Email: "jane@ex.com", Message: "   "}, "message"},
		{"invalid email", models.ContactForm{Name: "Jane Doe", Email: "jane-at-ex.com", Message: "hello"}, "email"},
		{"email without domain", models.ContactForm{Name: "Jane Doe", Email: "jane@", Message: "hello"}, "email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notices := &recordingNotifier{}
			form := tt.form
			sub := svc.Submit(context.Background(), &Session{Form: &form, Notices: notices})

			if sub.Outcome.Status != models.OutcomeRejected {
				t.Fatalf("expected rejected, got %+v", sub.Outcome)
			}
			if !strings.Contains(sub.Outcome.Reason, tt.mention) {
				t.Fatalf("expected reason to mention %q, got %q", tt.mention, sub.Outcome.Reason)
			}
			if sub.FieldErrors == nil {
				t.Fatalf("expected field errors to be reported")
			}
			if final := waitOutcome(t, sub); final.Status != models.OutcomeRejected {
				t.Fatalf("expected settled outcome to stay rejected, got %+v", final)
			}
			if form != tt.form {
				t.Fatalf("form must not change on validation failure: got %+v", form)
			}
			shown := notices.all()
			if len(shown) != 1 || shown[0].Kind != notify.KindError {
				t.Fatalf("expected a single error notification, got %+v", shown)
			}
		})
	}

	if requests.Load() != 0 {
		t.Fatalf("expected no network requests, got %d", requests.Load())
	}
	if trailing.Load() != 0 {
		t.Fatalf("expected no trailing dispatches, got %d", trailing.Load())
	}
}

func TestSubmitAcceptedDespiteRelayFailure(t *testing.T) {
	var stored atomic.Int32
	critical := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stored.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id": 1}`))
	}))
	defer critical.Close()

	relayServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "relay down", http.StatusInternalServerError)
	}))
	defer relayServer.Close()

	backendClient := backend.NewClient(backend.Options{BaseURL: critical.URL, ContactCollection: "contact-submissions", Logger: zerolog.Nop()})
	relayClient := relay.NewClient(relay.Options{URL: relayServer.URL, Logger: zerolog.Nop()})

	svc := newTestService(
		dispatch.NewTarget("backend", dispatch.Critical, backendClient.CreateSubmission),
		dispatch.NewTarget("email-relay", dispatch.BestEffort, relayClient.Forward),
	)

	notices := &recordingNotifier{}
	form := validForm()
	sub := svc.Submit(context.Background(), &Session{Form: form, Notices: notices})

	if sub.Outcome.Status != models.OutcomeAccepted {
		t.Fatalf("expected accepted, got %+v", sub.Outcome)
	}
	if form.Name != "" || form.Email != "" || form.Message != "" {
		t.Fatalf("expected form to be cleared, got %+v", form)
	}
	shown := notices.all()
	if len(shown) != 1 || shown[0].Kind != notify.KindSuccess {
		t.Fatalf("expected exactly one success notification, got %+v", shown)
	}

	final := waitOutcome(t, sub)
	if final.Status != models.OutcomePartial || len(final.Warnings) != 1 {
		t.Fatalf("expected partial outcome with one warning, got %+v", final)
	}
	if !strings.Contains(final.Warnings[0], "email-relay") {
		t.Fatalf("expected warning to name the relay, got %q", final.Warnings[0])
	}
	if stored.Load() != 1 {
		t.Fatalf("expected one backend write, got %d", stored.Load())
	}
	if got := len(notices.all()); got != 1 {
		t.Fatalf("trailing failures must not notify the visitor, got %d notifications", got)
	}
}

func TestSubmitRejectedWithServerMessage(t *testing.T) {
	critical := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Server busy"}`))
	}))
	defer critical.Close()

	var relayCalls, webhookCalls atomic.Int32
	backendClient := backend.NewClient(backend.Options{BaseURL: critical.URL, ContactCollection: "contact-submissions", Logger: zerolog.Nop()})
	svc := newTestService(
		dispatch.NewTarget("backend", dispatch.Critical, backendClient.CreateSubmission),
		counting("email-relay", dispatch.BestEffort, &relayCalls, nil),
		counting("analytics", dispatch.FireAndForget, &webhookCalls, nil),
	)

	notices := &recordingNotifier{}
	form := validForm()
	sub := svc.Submit(context.Background(), &Session{Form: form, Notices: notices})

	if sub.Outcome.Status != models.OutcomeRejected || sub.Outcome.Reason != "Server busy" {
		t.Fatalf("expected rejected(Server busy), got %+v", sub.Outcome)
	}
	if *form != *validForm() {
		t.Fatalf("form must keep entered values, got %+v", form)
	}
	shown := notices.all()
	if len(shown) != 1 || shown[0].Kind != notify.KindError || shown[0].Message != "Server busy" {
		t.Fatalf("expected one error notification with the server message, got %+v", shown)
	}
	if final := waitOutcome(t, sub); final.Status != models.OutcomeRejected {
		t.Fatalf("expected settled outcome rejected, got %+v", final)
	}
	if relayCalls.Load() != 1 {
		t.Fatalf("best-effort destinations still receive the payload, got %d calls", relayCalls.Load())
	}
}

func TestSubmitRejectedWithGenericMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"network error", errors.New("dial tcp: connection refused")},
		{"status without message", &backend.APIError{StatusCode: http.StatusBadGateway}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(dispatch.NewTarget("backend", dispatch.Critical,
				func(context.Context, models.Payload) error { return tt.err }))

			form := validForm()
			sub := svc.Submit(context.Background(), &Session{Form: form, Notices: &recordingNotifier{}})
			if sub.Outcome.Status != models.OutcomeRejected || sub.Outcome.Reason != submitFailedMessage {
				t.Fatalf("expected generic rejection, got %+v", sub.Outcome)
			}
			if form.Name == "" {
				t.Fatalf("form must not be cleared on rejection")
			}
		})
	}
}

func TestEveryCriticalTargetReceivesPayload(t *testing.T) {
	var backendCalls, auditCalls atomic.Int32
	svc := newTestService(
		counting("backend", dispatch.Critical, &backendCalls, errors.New("down")),
		counting("audit", dispatch.Critical, &auditCalls, nil),
	)

	form := validForm()
	sub := svc.Submit(context.Background(), &Session{Form: form, Notices: &recordingNotifier{}})

	if sub.Outcome.Status != models.OutcomeRejected || sub.Outcome.Reason != submitFailedMessage {
		t.Fatalf("expected generic rejection, got %+v", sub.Outcome)
	}
	if backendCalls.Load() != 1 || auditCalls.Load() != 1 {
		t.Fatalf("expected each critical destination once, got backend=%d audit=%d", backendCalls.Load(), auditCalls.Load())
	}
	if form.Name == "" {
		t.Fatalf("form must not be cleared on rejection")
	}
}

func TestSubmitMalformedCriticalResponse(t *testing.T) {
	critical := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`<html>oops`))
	}))
	defer critical.Close()

	backendClient := backend.NewClient(backend.Options{BaseURL: critical.URL, ContactCollection: "contact-submissions", Logger: zerolog.Nop()})
	svc := newTestService(dispatch.NewTarget("backend", dispatch.Critical, backendClient.CreateSubmission))

	sub := svc.Submit(context.Background(), &Session{Form: validForm(), Notices: &recordingNotifier{}})
	if sub.Outcome.Status != models.OutcomeRejected {
		t.Fatalf("expected malformed JSON to reject, got %+v", sub.Outcome)
	}
}

func TestFireAndForgetFailuresAreInvisible(t *testing.T) {
	var criticalCalls atomic.Int32
	svc := newTestService(
		counting("backend", dispatch.Critical, &criticalCalls, nil),
		dispatch.NewTarget("analytics", dispatch.FireAndForget, func(context.Context, models.Payload) error {
			return errors.New("network unreachable")
		}),
		dispatch.NewTarget("broken", dispatch.FireAndForget, func(context.Context, models.Payload) error {
			panic("boom")
		}),
	)

	sub := svc.Submit(context.Background(), &Session{Form: validForm(), Notices: &recordingNotifier{}})
	if sub.Outcome.Status != models.OutcomeAccepted {
		t.Fatalf("expected accepted, got %+v", sub.Outcome)
	}
	if final := waitOutcome(t, sub); final.Status != models.OutcomeAccepted || len(final.Warnings) != 0 {
		t.Fatalf("fire-and-forget failures must not change the outcome, got %+v", final)
	}
}

func TestTrailingPhaseStartsAfterCriticalAndIsNotAwaited(t *testing.T) {
	var criticalDone atomic.Bool
	var startedEarly atomic.Bool
	release := make(chan struct{})
	started := make(chan struct{}, 2)

	svc := newTestService(
		dispatch.NewTarget("backend", dispatch.Critical, func(context.Context, models.Payload) error {
			time.Sleep(20 * time.Millisecond)
			criticalDone.Store(true)
			return nil
		}),
		dispatch.NewTarget("email-relay", dispatch.BestEffort, func(ctx context.Context, _ models.Payload) error {
			if !criticalDone.Load() {
				startedEarly.Store(true)
			}
			started <- struct{}{}
			<-release
			return ctx.Err()
		}),
		dispatch.NewTarget("analytics", dispatch.FireAndForget, func(context.Context, models.Payload) error {
			if !criticalDone.Load() {
				startedEarly.Store(true)
			}
			started <- struct{}{}
			return nil
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	sub := svc.Submit(ctx, &Session{Form: validForm(), Notices: &recordingNotifier{}})
	// The caller going away must not cancel trailing deliveries.
	cancel()

	if sub.Outcome.Status != models.OutcomeAccepted {
		t.Fatalf("expected accepted, got %+v", sub.Outcome)
	}
	select {
	case <-sub.Settled():
		t.Fatalf("submission settled before the best-effort destination finished")
	default:
	}

	for i := 0; i < 2; i++ {
		select {
		case <-started:
		case <-time.After(2 * time.Second):
			t.Fatalf("trailing destinations were never started")
		}
	}
	close(release)

	if final := waitOutcome(t, sub); final.Status != models.OutcomeAccepted {
		t.Fatalf("expected accepted once settled, got %+v", final)
	}
	if startedEarly.Load() {
		t.Fatalf("trailing destination started before the critical destination returned")
	}
}

func TestSubmitEnrichesPayload(t *testing.T) {
	var mu sync.Mutex
	var got models.Payload
	svc := newTestService(dispatch.NewTarget("backend", dispatch.Critical, func(_ context.Context, p models.Payload) error {
		mu.Lock()
		got = p
		mu.Unlock()
		return nil
	}))

	form := validForm()
	form.UsageType = models.UsagePersonal
	sub := svc.Submit(context.Background(), &Session{Form: form, Notices: &recordingNotifier{}})

	mu.Lock()
	defer mu.Unlock()
	want := map[string]string{
		"name":               "Jane Doe",
		"email":              "jane@ex.com",
		"message":            "hello",
		"usage_type":         models.UsagePersonal,
		"source":             "website-contact-form",
		"submitted_at":       "2026-03-04T15:04:05.000Z",
		"submitted_at_local": "3/4/2026, 3:04:05 PM",
		"submission_id":      sub.ID,
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("payload[%q] = %q, want %q", k, got[k], v)
		}
	}
	if form.UsageType != models.UsagePersonal {
		t.Fatalf("usage mode should survive the form reset, got %q", form.UsageType)
	}
}
