package alert

import (
	"sync"
	"time"
)

// Tone emits one audible beep. Implementations wrap whatever audio output
// the client platform offers.
type Tone interface {
	Play()
}

// NopTone discards beeps.
type NopTone struct{}

// Play implements Tone.
func (NopTone) Play() {}

// Alarm is the repeating audible alert for same-day reminders. It has two
// states, idle and active. Starting while active extends the deadline to the
// monotonic max of the current and requested deadlines instead of stacking a
// second timer window.
type Alarm struct {
	mu       sync.Mutex
	tone     Tone
	visible  func() bool
	now      func() time.Time
	interval time.Duration

	active bool
	until  time.Time
	stop   chan struct{}
}

// NewAlarm creates an idle alarm. visible gates every start: the alarm must
// never sound when the UI is not in front of the user.
func NewAlarm(tone Tone, visible func() bool) *Alarm {
	if visible == nil {
		visible = func() bool { return true }
	}
	return &Alarm{
		tone:     tone,
		visible:  visible,
		now:      time.Now,
		interval: 3 * time.Second,
	}
}

// Start activates the alarm for at least minDuration, or extends the active
// window if already running. A hidden UI makes Start a no-op.
func (a *Alarm) Start(minDuration time.Duration) {
	if !a.visible() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	deadline := a.now().Add(minDuration)
	if a.active {
		if deadline.After(a.until) {
			a.until = deadline
		}
		return
	}

	a.active = true
	a.until = deadline
	a.stop = make(chan struct{})
	go a.loop(a.stop)
}

// loop repeats the tone until the deadline passes or Stop is called.
func (a *Alarm) loop(stop chan struct{}) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.tone.Play()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.mu.Lock()
			expired := !a.now().Before(a.until)
			if expired && a.active && a.stop == stop {
				a.active = false
				close(a.stop)
				a.stop = nil
			}
			a.mu.Unlock()
			if expired {
				return
			}
			a.tone.Play()
		}
	}
}

// Stop transitions back to idle. Stopping an idle alarm is a no-op, so every
// dismissal path can call it unconditionally.
func (a *Alarm) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.active {
		return
	}
	a.active = false
	close(a.stop)
	a.stop = nil
}

// Active reports whether the alarm is currently sounding.
func (a *Alarm) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Deadline returns the instant the alarm will stop on its own.
func (a *Alarm) Deadline() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.until
}
