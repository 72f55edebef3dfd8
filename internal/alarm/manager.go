// Package alarm delivers reminders. It implements reminder.AlarmPort on top of a
// persistent reminder store: exact reminders are armed as in-process timers, best-effort
// reminders are picked up by a periodic sweep, and both survive a restart through Start.
package alarm

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"visualroutine/internal/clock"
	"visualroutine/internal/models"
	"visualroutine/internal/reminder"
)

// Store persists pending reminders, at most one per key
type Store interface {
	Put(ctx context.Context, rem models.Reminder) error
	Delete(ctx context.Context, key string) (bool, error)
	DeleteFired(ctx context.Context, key string, firedAt time.Time) (bool, error)
	ListAll(ctx context.Context) ([]models.Reminder, error)
	ListDue(ctx context.Context, mode models.DeliveryMode, now time.Time) ([]models.Reminder, error)
}

// FireHandler is called once for every reminder that goes off
type FireHandler interface {
	OnReminderFired(ctx context.Context, payload models.ReminderPayload)
}

type timer interface {
	Stop() bool
}

type armed struct {
	timer timer
	at    time.Time
}

// Manager schedules, cancels and fires reminders
type Manager struct {
	store         Store
	handler       FireHandler
	clock         clock.Clock
	sweepInterval time.Duration
	debug         bool

	exact atomic.Bool

	mu     sync.Mutex
	timers map[string]armed

	afterFunc func(d time.Duration, f func()) timer

	stop chan struct{}
	done chan struct{}
}

// Options configures a Manager
type Options struct {
	ExactCapability bool
	SweepInterval   time.Duration
	Debug           bool
}

// NewManager creates an alarm manager. Call Start to restore persisted reminders.
func NewManager(store Store, handler FireHandler, clk clock.Clock, opts Options) *Manager {
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 30 * time.Second
	}
	m := &Manager{
		store:         store,
		handler:       handler,
		clock:         clk,
		sweepInterval: opts.SweepInterval,
		debug:         opts.Debug,
		timers:        make(map[string]armed),
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
	m.exact.Store(opts.ExactCapability)
	return m
}

// HasExactAlarmCapability reports whether exact alarms may be registered
func (m *Manager) HasExactAlarmCapability() bool {
	return m.exact.Load()
}

// SetExactCapability grants or revokes exact alarm permission
func (m *Manager) SetExactCapability(granted bool) {
	m.exact.Store(granted)
	log.Printf("Exact alarm capability set to %v", granted)
}

// RegisterExact arms a timer for the reminder, replacing any pending one with the same key
func (m *Manager) RegisterExact(ctx context.Context, key string, at time.Time, payload models.ReminderPayload) error {
	if !m.exact.Load() {
		return fmt.Errorf("register exact alarm %s: %w", key, reminder.ErrPermissionDenied)
	}
	rem := models.Reminder{Key: key, FireAt: at, Mode: models.DeliveryExact, Payload: payload, CreatedAt: m.clock.Now()}
	if err := m.store.Put(ctx, rem); err != nil {
		return err
	}
	m.arm(rem)
	return nil
}

// RegisterBestEffort stores the reminder for the next sweep after its fire time,
// replacing any pending one with the same key
func (m *Manager) RegisterBestEffort(ctx context.Context, key string, at time.Time, payload models.ReminderPayload) error {
	rem := models.Reminder{Key: key, FireAt: at, Mode: models.DeliveryBestEffort, Payload: payload, CreatedAt: m.clock.Now()}
	if err := m.store.Put(ctx, rem); err != nil {
		return err
	}
	m.disarm(key)
	return nil
}

// Cancel removes any pending reminder for key. Canceling an unknown key is not an error.
func (m *Manager) Cancel(ctx context.Context, key string) error {
	m.disarm(key)
	if _, err := m.store.Delete(ctx, key); err != nil {
		return err
	}
	return nil
}

// Pending returns the armed fire time for key, if an exact timer is running
func (m *Manager) Pending(key string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.timers[key]
	return a.at, ok
}

// Start re-arms persisted exact reminders, fires overdue best-effort ones and starts the
// background sweep. Exact reminders that came due while the process was down fire at once.
func (m *Manager) Start(ctx context.Context) error {
	pending, err := m.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("restore reminders: %w", err)
	}

	exact := 0
	for _, rem := range pending {
		if rem.Mode == models.DeliveryExact {
			m.arm(rem)
			exact++
		}
	}
	log.Printf("Restored %d reminders (%d exact)", len(pending), exact)

	if _, err := m.Sweep(ctx); err != nil {
		log.Printf("Error sweeping reminders: %v", err)
	}

	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.sweepLoop()
	return nil
}

// Stop halts the sweep and all armed timers. Persisted reminders are kept.
func (m *Manager) Stop() {
	if m.stop != nil {
		close(m.stop)
		<-m.done
		m.stop = nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for key, a := range m.timers {
		a.timer.Stop()
		delete(m.timers, key)
	}
}

// Sweep fires every best-effort reminder that is due and returns how many fired
func (m *Manager) Sweep(ctx context.Context) (int, error) {
	due, err := m.store.ListDue(ctx, models.DeliveryBestEffort, m.clock.Now())
	if err != nil {
		return 0, err
	}
	fired := 0
	for _, rem := range due {
		if m.fire(ctx, rem) {
			fired++
		}
	}
	return fired, nil
}

// sweepLoop periodically delivers due best-effort reminders
func (m *Manager) sweepLoop() {
	defer close(m.done)

	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if _, err := m.Sweep(context.Background()); err != nil {
				log.Printf("Error sweeping reminders: %v", err)
			}
		}
	}
}

func (m *Manager) arm(rem models.Reminder) {
	delay := rem.FireAt.Sub(m.clock.Now())
	if delay < 0 {
		delay = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.timers[rem.Key]; ok {
		prev.timer.Stop()
	}
	t := m.afterFunc(delay, func() {
		m.fire(context.Background(), rem)
	})
	m.timers[rem.Key] = armed{timer: t, at: rem.FireAt}

	if m.debug {
		log.Printf("[DEBUG] armed exact reminder %s in %s", rem.Key, delay)
	}
}

func (m *Manager) disarm(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.timers[key]; ok {
		a.timer.Stop()
		delete(m.timers, key)
	}
}

// fire delivers rem if it is still the pending reminder for its key. Removing the row
// first means a reminder is delivered at most once even if a timer and a sweep race.
func (m *Manager) fire(ctx context.Context, rem models.Reminder) bool {
	deleted, err := m.store.DeleteFired(ctx, rem.Key, rem.FireAt)
	if err != nil {
		log.Printf("Error removing fired reminder %s: %v", rem.Key, err)
		return false
	}

	m.mu.Lock()
	if a, ok := m.timers[rem.Key]; ok && a.at.Equal(rem.FireAt) {
		delete(m.timers, rem.Key)
	}
	m.mu.Unlock()

	if !deleted {
		if m.debug {
			log.Printf("[DEBUG] reminder %s was replaced or canceled before firing", rem.Key)
		}
		return false
	}

	log.Printf("Reminder fired for activity %s (%s)", rem.Key, rem.Mode)
	if m.handler != nil {
		m.handler.OnReminderFired(ctx, rem.Payload)
	}
	return true
}
