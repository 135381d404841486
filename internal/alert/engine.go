// Package alert emits a notification shortly before events, work sessions
// and deadlines come up, driven by a single timer over a min-heap of
// trigger times.
package alert

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"plannerd/internal/model"
	"plannerd/internal/store"
)

var ErrInvalidTriggerTime = errors.New("alert: invalid trigger time")

type Kind string

const (
	KindEventStart   Kind = "event"
	KindSessionStart Kind = "session"
	KindDeadline     Kind = "deadline"
)

// Alert is one pending notification.
type Alert struct {
	EventID string
	Name    string
	Kind    Kind
	At      time.Time
}

type queueItem struct {
	alert Alert
}

type alertQueue []queueItem

func (q alertQueue) Len() int { return len(q) }

func (q alertQueue) Less(i, j int) bool { return q[i].alert.At.Before(q[j].alert.At) }

func (q alertQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *alertQueue) Push(x any) { *q = append(*q, x.(queueItem)) }

func (q *alertQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// Engine delivers due alerts on its output channel. Delivery is
// non-blocking: when the consumer lags, alerts are dropped and counted
// rather than stalling the timer loop.
type Engine struct {
	mu      sync.Mutex
	queue   alertQueue
	out     chan Alert
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool
	dropped uint64
}

func NewEngine(bufferSize int) *Engine {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Engine{
		queue:  make(alertQueue, 0),
		out:    make(chan Alert, bufferSize),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

func (e *Engine) C() <-chan Alert {
	return e.out
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) Schedule(a Alert) error {
	if a.At.IsZero() {
		return ErrInvalidTriggerTime
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return errors.New("alert: engine stopped")
	}

	heap.Push(&e.queue, queueItem{alert: a})
	e.signalWakeup()
	return nil
}

// Reset drops every pending alert, typically before re-planning from a
// changed schedule.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = e.queue[:0]
	heap.Init(&e.queue)
	e.signalWakeup()
}

func (e *Engine) Dropped() uint64 {
	return atomic.LoadUint64(&e.dropped)
}

// PlanSchedule derives the alerts for everything upcoming in the store:
// timed events and their work sessions fire lead before their start,
// deadline-only events fire lead before the deadline. Alerts whose trigger
// already passed are omitted.
func PlanSchedule(s *store.Store, now time.Time, lead time.Duration) []Alert {
	var out []Alert
	add := func(ev model.Event, kind Kind, at time.Time) {
		trigger := at.Add(-lead)
		if trigger.Before(now) {
			return
		}
		out = append(out, Alert{EventID: ev.ID, Name: ev.Name, Kind: kind, At: trigger})
	}
	for _, ev := range s.AllEvents() {
		if ev.HasStart() {
			add(ev, KindEventStart, *ev.Start)
		} else {
			add(ev, KindDeadline, ev.End)
		}
		for _, session := range ev.WorkSessions {
			if session.HasStart() && !session.Completed {
				add(session, KindSessionStart, *session.Start)
			}
		}
	}
	return out
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				return
			}
		}

		wait := time.Until(next.At)
		if wait < 0 {
			wait = 0
		}
		timer = resetTimer(timer, wait)

		select {
		case <-timer.C:
			for _, a := range e.popDue(time.Now()) {
				select {
				case e.out <- a:
				default:
					atomic.AddUint64(&e.dropped, 1)
				}
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			stopTimer(timer)
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (Alert, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return Alert{}, false
	}
	return e.queue[0].alert, true
}

func (e *Engine) popDue(now time.Time) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Alert, 0)
	for len(e.queue) > 0 {
		next := e.queue[0].alert
		if next.At.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(queueItem)
		out = append(out, item.alert)
	}
	return out
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
