package alert

import (
	"strings"
	"sync"
	"time"

	"github.com/krodit/krodit-server/internal/domain"
	"github.com/krodit/krodit-server/internal/reminders"
)

// Notification is what a surface displays for one reminder.
type Notification struct {
	Tag   string
	Title string
	Body  string
	URL   string
	// RequiresInteraction keeps the notification on screen until the user
	// acts on it. Used for same-day reminders.
	RequiresInteraction bool
	// AutoDismissAfter closes the notification on its own. Zero means the
	// surface default.
	AutoDismissAfter time.Duration
}

// Surface displays and closes notifications.
type Surface interface {
	Show(n Notification) error
	// CloseByPrefix closes displayed notifications whose tag starts with the
	// prefix and returns how many were closed.
	CloseByPrefix(tagPrefix string) (int, error)
}

// ScheduleEntry is a durably stored pending presentation, so a client
// restart can re-arm timers that have not fired yet.
type ScheduleEntry struct {
	Tag      string
	FireAt   time.Time
	Reminder reminders.Reminder
}

// ScheduleStore persists pending presentations.
type ScheduleStore interface {
	Put(entry ScheduleEntry) error
	DeleteByPrefix(prefix string) error
	List() ([]ScheduleEntry, error)
}

// presentHour is when a scheduled reminder fires on its due day.
const presentHour = 9

// Presenter drives the client-side presentation path: display cap, alarm,
// staggering, scheduling and cancellation.
type Presenter struct {
	counter  *DailyDisplayCounter
	alarm    *Alarm
	surface  Surface
	chime    Tone
	schedule ScheduleStore

	mu      sync.Mutex
	pending map[string]*time.Timer

	// stagger spaces out a batch of shows so alarms and banners do not
	// land on top of each other.
	stagger  time.Duration
	alarmMin time.Duration
	loc      *time.Location
	now      func() time.Time
	sleep    func(time.Duration)
}

// PresenterConfig holds presentation tuning.
type PresenterConfig struct {
	Stagger  time.Duration
	AlarmMin time.Duration
}

// NewPresenter creates a presenter.
func NewPresenter(counter *DailyDisplayCounter, alarm *Alarm, surface Surface, chime Tone, schedule ScheduleStore, loc *time.Location, cfg PresenterConfig) *Presenter {
	if cfg.Stagger <= 0 {
		cfg.Stagger = 500 * time.Millisecond
	}
	if cfg.AlarmMin <= 0 {
		cfg.AlarmMin = time.Minute
	}
	return &Presenter{
		counter:  counter,
		alarm:    alarm,
		surface:  surface,
		chime:    chime,
		schedule: schedule,
		pending:  make(map[string]*time.Timer),
		stagger:  cfg.Stagger,
		alarmMin: cfg.AlarmMin,
		loc:      loc,
		now:      time.Now,
		sleep:    time.Sleep,
	}
}

// Present shows a batch of newly due reminders, staggered, each gated by the
// daily display cap. Returns how many were actually shown.
func (p *Presenter) Present(items []reminders.Reminder) int {
	shown := 0
	for i, rem := range items {
		if i > 0 {
			p.sleep(p.stagger)
		}
		if p.show(rem) {
			shown++
		}
	}
	return shown
}

// show presents one reminder. The counter is bumped before display so a
// racing second attempt cannot slip under the cap.
func (p *Presenter) show(rem reminders.Reminder) bool {
	subID := rem.Subscription.ID
	if !p.counter.CanShow(subID) {
		return false
	}
	p.counter.RecordShown(subID)

	n := Notification{
		Tag:   rem.Tag(),
		Title: rem.Title(),
		Body:  rem.Body(),
		URL:   rem.URL(),
	}

	if rem.Type == domain.ReminderToday {
		n.RequiresInteraction = true
		p.alarm.Start(p.alarmMin)
	} else {
		n.AutoDismissAfter = 10 * time.Second
		p.chime.Play()
	}

	if err := p.surface.Show(n); err != nil {
		return false
	}
	return true
}

// ScheduleAt queues a reminder for presentation at 09:00 local time on its
// due day, durably and in memory. Reminders whose slot already passed are
// presented immediately.
func (p *Presenter) ScheduleAt(rem reminders.Reminder) error {
	due := rem.BillingDate.In(p.loc)
	fireAt := time.Date(due.Year(), due.Month(), due.Day(), presentHour, 0, 0, 0, p.loc)

	delay := fireAt.Sub(p.now())
	if delay <= 0 {
		p.show(rem)
		return nil
	}

	if err := p.schedule.Put(ScheduleEntry{Tag: rem.Tag(), FireAt: fireAt, Reminder: rem}); err != nil {
		return err
	}
	p.arm(rem.Tag(), delay, rem)
	return nil
}

func (p *Presenter) arm(tag string, delay time.Duration, rem reminders.Reminder) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if old, ok := p.pending[tag]; ok {
		old.Stop()
	}
	p.pending[tag] = time.AfterFunc(delay, func() {
		p.mu.Lock()
		delete(p.pending, tag)
		p.mu.Unlock()
		_ = p.schedule.DeleteByPrefix(tag)
		p.show(rem)
	})
}

// Dismiss handles the user acting on or closing a displayed reminder: the
// alarm must never outlive the notification that started it.
func (p *Presenter) Dismiss(tag string) {
	p.alarm.Stop()
	_, _ = p.surface.CloseByPrefix(tag)
}

// CancelForSubscription drops every pending and displayed notification for a
// subscription: in-memory timers, durable schedule entries and anything on
// screen. Called when the billing date changes or the subscription is
// deactivated. A timer firing just before cancellation is tolerated; the
// display cap and the ledger backstop user-visible duplication.
func (p *Presenter) CancelForSubscription(subscriptionID string) error {
	prefix := "reminder-" + subscriptionID

	p.mu.Lock()
	for tag, timer := range p.pending {
		if strings.HasPrefix(tag, prefix) {
			timer.Stop()
			delete(p.pending, tag)
		}
	}
	p.mu.Unlock()

	if err := p.schedule.DeleteByPrefix(prefix); err != nil {
		return err
	}

	closed, err := p.surface.CloseByPrefix(prefix)
	if err != nil {
		return err
	}
	if closed > 0 {
		p.alarm.Stop()
	}
	return nil
}
