// Package notify holds the transient display state shared by the submission and order pages:
// a single notification slot that dismisses itself, and the acknowledgement shown after a copy.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// Notification is a short message shown to the visitor
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Notifier shows notifications to the visitor
type Notifier interface {
	Show(kind Kind, message string) Notification
}

// Slot holds at most one notification. Showing a new one replaces the previous one.
type Slot struct {
	mu       sync.Mutex
	duration time.Duration
	current  *Notification
	timer    *time.Timer
}

// NewSlot creates a slot whose notifications dismiss themselves after duration
func NewSlot(duration time.Duration) *Slot {
	return &Slot{duration: duration}
}

func (s *Slot) Show(kind Kind, message string) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Message:   message,
		ExpiresAt: time.Now().Add(s.duration),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.current = &n
	s.timer = time.AfterFunc(s.duration, func() { s.dismiss(n.ID) })
	return n
}

// Current returns the visible notification, if any
func (s *Slot) Current() (Notification, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Notification{}, false
	}
	return *s.current, true
}

// Dismiss hides the visible notification immediately
func (s *Slot) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.current = nil
}

// dismiss only clears the slot if the expiring notification is still the visible one
func (s *Slot) dismiss(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.ID == id {
		s.current = nil
		s.timer = nil
	}
}
