package notify

import (
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

// Clipboard receives copied text
type Clipboard interface {
	WriteAll(text string) error
}

// SystemClipboard writes to the operating system clipboard
type SystemClipboard struct{}

func (SystemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}

// CopyAck copies text and keeps a "copied" acknowledgement up for a fixed delay
type CopyAck struct {
	mu     sync.Mutex
	clip   Clipboard
	delay  time.Duration
	copied string
	gen    int
	timer  *time.Timer
}

func NewCopyAck(clip Clipboard, delay time.Duration) *CopyAck {
	return &CopyAck{clip: clip, delay: delay}
}

// Copy writes text to the clipboard and raises the acknowledgement.
// A failed write leaves the previous state untouched.
func (a *CopyAck) Copy(text string) error {
	if err := a.clip.WriteAll(text); err != nil {
		return fmt.Errorf("error copying to clipboard: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
	a.copied = text
	a.gen++
	gen := a.gen
	a.timer = time.AfterFunc(a.delay, func() { a.revert(gen) })
	return nil
}

// Copied reports whether text is the value most recently copied and still acknowledged
func (a *CopyAck) Copied(text string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.copied != "" && a.copied == text
}

func (a *CopyAck) revert(gen int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		return
	}
	a.copied = ""
	a.timer = nil
}
