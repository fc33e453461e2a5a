package chat

import (
	"context"
	"sync"
	"time"
	"unicode/utf8"
)

// Default talking animation timing.
const (
	DefaultTalkPerRune  = 50 * time.Millisecond
	DefaultTalkInterval = 200 * time.Millisecond
)

// Talker drives the avatar's talking indicator. Each Start runs a timer task
// for a duration proportional to the reply length, toggling the mouth on a
// fixed interval. The task is owned by the Talker and always stops on Stop.
type Talker struct {
	perRune  time.Duration
	interval time.Duration
	onChange func()

	mu        sync.Mutex
	talking   bool
	mouthOpen bool
	closed    bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewTalker creates a talker. onChange, if non-nil, is called after every
// state change from the talker's goroutine.
func NewTalker(perRune, interval time.Duration, onChange func()) *Talker {
	if perRune <= 0 {
		perRune = DefaultTalkPerRune
	}
	if interval <= 0 {
		interval = DefaultTalkInterval
	}
	return &Talker{perRune: perRune, interval: interval, onChange: onChange}
}

// Duration returns how long the talker animates for text.
func (t *Talker) Duration(text string) time.Duration {
	return time.Duration(utf8.RuneCountInString(text)) * t.perRune
}

// State returns whether the talker is active and whether the mouth is open.
func (t *Talker) State() (talking, mouthOpen bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.talking, t.mouthOpen
}

// Start cancels any running task and starts talking for text. It does
// nothing once the talker is closed.
func (t *Talker) Start(text string) {
	t.Stop()

	d := t.Duration(text)
	if d <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		cancel()
		return
	}
	t.cancel = cancel
	t.done = done
	t.talking = true
	t.mouthOpen = false
	t.mu.Unlock()
	t.changed()

	go t.run(ctx, d, done)
}

// Stop cancels the running task, if any, and waits for it to finish.
func (t *Talker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Close stops the running task and prevents any further Start.
func (t *Talker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	t.Stop()
}

func (t *Talker) run(ctx context.Context, d time.Duration, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(d)
	defer timer.Stop()
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.mu.Lock()
			t.mouthOpen = !t.mouthOpen
			t.mu.Unlock()
			t.changed()
		case <-timer.C:
			t.finish()
			return
		case <-ctx.Done():
			t.finish()
			return
		}
	}
}

func (t *Talker) finish() {
	t.mu.Lock()
	t.talking = false
	t.mouthOpen = false
	t.mu.Unlock()
	t.changed()
}

func (t *Talker) changed() {
	if t.onChange != nil {
		t.onChange()
	}
}
