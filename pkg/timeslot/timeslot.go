// Package timeslot runs call scripts. A timeslot owns the interpreter of one call,
// serializes event delivery to it and keeps the line mode of the call.
package timeslot

import (
	"strconv"
	"sync"
	"time"

	"github.com/ivrplatform/goivr/pkg/event"
	"github.com/ivrplatform/goivr/pkg/logging"
	"github.com/ivrplatform/goivr/pkg/metrics"
	"github.com/ivrplatform/goivr/pkg/script"
	"github.com/pkg/errors"
	"github.com/qmuntal/stateless"
	"go.uber.org/zap"
)

type SendMode byte

const (
	// SendQueued hands the event to the delivery worker.
	SendQueued SendMode = iota
	// SendNormal locks the timeslot and posts the event.
	SendNormal
	// SendImmediate posts the event; the caller already holds the lock.
	SendImmediate
)

func (m SendMode) String() string {
	switch m {
	case SendQueued:
		return "queued"
	case SendNormal:
		return "normal"
	case SendImmediate:
		return "immediate"
	default:
		return "unknown"
	}
}

type Timeslot struct {
	sync.Mutex

	id       int
	logger   *zap.SugaredLogger
	delivery *Delivery
	line     *stateless.StateMachine
	mode     string

	interp   *script.Interp
	done     func()
	started  time.Time
	resuming bool
	timer    *time.Timer
	timerSeq int
}

// New creates an idle timeslot. Without a delivery worker queued events are posted
// synchronously and scripts run until they wait.
func New(id int, delivery *Delivery) *Timeslot {
	ts := &Timeslot{
		id:       id,
		logger:   zap.S().Named(logging.TimeslotNamespace),
		delivery: delivery,
		mode:     IdleLine,
	}
	ts.line = newLineMachine(ts)
	return ts
}

func (ts *Timeslot) ID() int {
	return ts.id
}

// Start runs the entry section of img on the timeslot until the script waits for an event.
// done is called once when the script stops.
func (ts *Timeslot) Start(img *script.Image, entry string, done func()) error {
	ts.Lock()
	defer ts.Unlock()
	if ts.interp != nil && !ts.interp.Exited() {
		return errors.Errorf("timeslot %d is busy", ts.id)
	}
	in := script.NewInterp(img, ts)
	if err := in.Attach(entry); err != nil {
		return errors.Wrapf(err, "failed to start script on timeslot %d", ts.id)
	}
	in.Set("timeslot", strconv.Itoa(ts.id))
	in.Set("line.mode", ts.mode)
	ts.interp = in
	ts.done = done
	ts.started = time.Now()
	ts.resuming = false
	metrics.TimeslotStarted()
	ts.logger.Debugf("Timeslot %d started section %q of image %d", ts.id, entry, img.ID())
	ts.run()
	return nil
}

// Stop ends the running script.
func (ts *Timeslot) Stop() {
	ts.Lock()
	defer ts.Unlock()
	if ts.interp == nil || ts.interp.Exited() {
		return
	}
	ts.interp.Exit()
	ts.finish()
}

// run steps the script. A script still runnable after one quantum is resumed through
// the delivery queue so that other timeslots get their turn.
func (ts *Timeslot) run() {
	in := ts.interp
	if in == nil || in.Exited() {
		return
	}
	for !in.Waiting() {
		in.Step(0)
		if in.Exited() {
			ts.finish()
			return
		}
		if in.Waiting() || ts.resuming {
			return
		}
		if ts.delivery != nil && ts.delivery.offer(ts, event.New(event.ResumeScript, nil)) {
			ts.resuming = true
			return
		}
	}
}

func (ts *Timeslot) finish() {
	ts.clearTimer()
	metrics.TimeslotStopped()
	ts.logger.Debugf("Timeslot %d script exited after %d steps in %s", ts.id, ts.interp.Steps(), time.Since(ts.started))
	if err := ts.line.Fire(resetTrigger); err != nil {
		ts.logger.Warnf("Timeslot %d failed to reset line: %v", ts.id, err)
	}
	if ts.done != nil {
		ts.done()
		ts.done = nil
	}
}

// Post delivers an event to the running script. The caller must hold the lock.
// It reports whether the script consumed the event.
func (ts *Timeslot) Post(ev *event.Event) bool {
	switch ev.ID {
	case event.TimerExpired:
		st, ok := ev.Status()
		if !ok || ts.timer == nil || st.Status != ts.timerSeq {
			ts.logger.Debugf("Timeslot %d dropped stale timer", ts.id)
			return false
		}
		ts.clearTimer()
	case event.ResumeScript:
		ts.resuming = false
		ts.run()
		return true
	}
	if trigger, ok := lineTrigger(ev.ID); ok {
		if err := ts.line.Fire(trigger); err != nil {
			ts.logger.Debugf("Timeslot %d ignored %s in line mode %s: %v", ts.id, ev.ID, ts.mode, err)
		}
	}
	if ts.interp == nil || ts.interp.Exited() {
		return false
	}
	handled := ts.interp.Post(ev)
	ts.run()
	return handled
}

// Send delivers an event in the given mode.
func (ts *Timeslot) Send(ev *event.Event, mode SendMode) bool {
	switch mode {
	case SendQueued:
		return ts.Notify(ev)
	case SendImmediate:
		metrics.EventDelivered(ev.ID.String(), mode.String())
		return ts.Post(ev)
	default:
		return ts.deliver(ev, mode)
	}
}

func (ts *Timeslot) deliver(ev *event.Event, mode SendMode) bool {
	ts.Lock()
	defer ts.Unlock()
	metrics.EventDelivered(ev.ID.String(), mode.String())
	return ts.Post(ev)
}

// Notify queues an event for the delivery worker. The caller must not hold the lock.
func (ts *Timeslot) Notify(ev *event.Event) bool {
	if ts.delivery == nil {
		return ts.deliver(ev, SendNormal)
	}
	return ts.delivery.Enqueue(ts, ev)
}

// SetTimer arms the call timer. The interpreter calls it with the lock held.
func (ts *Timeslot) SetTimer(d time.Duration) {
	ts.clearTimer()
	ts.timerSeq++
	seq := ts.timerSeq
	ts.timer = time.AfterFunc(d, func() {
		ts.Notify(event.New(event.TimerExpired, event.Status{OK: true, Status: seq}))
	})
}

func (ts *Timeslot) ClearTimer() {
	ts.clearTimer()
}

func (ts *Timeslot) clearTimer() {
	if ts.timer != nil {
		ts.timer.Stop()
		ts.timer = nil
	}
}

// Info is a snapshot of a timeslot.
type Info struct {
	ID      int               `json:"id"`
	Mode    string            `json:"mode"`
	Running bool              `json:"running"`
	Waiting bool              `json:"waiting"`
	Section string            `json:"section,omitempty"`
	Image   uint64            `json:"image,omitempty"`
	Steps   uint64            `json:"steps"`
	Vars    map[string]string `json:"vars,omitempty"`
}

func (ts *Timeslot) Info() Info {
	ts.Lock()
	defer ts.Unlock()
	info := Info{ID: ts.id, Mode: ts.mode}
	if in := ts.interp; in != nil {
		info.Running = !in.Exited()
		info.Waiting = in.Waiting()
		info.Image = in.Image().ID()
		info.Steps = in.Steps()
		info.Vars = in.Vars()
		if sec := in.Section(); sec != nil {
			info.Section = sec.Name
		}
	}
	return info
}

// Mode returns the line mode.
func (ts *Timeslot) Mode() string {
	ts.Lock()
	defer ts.Unlock()
	return ts.mode
}
