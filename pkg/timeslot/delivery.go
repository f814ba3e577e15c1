package timeslot

import (
	"context"

	"github.com/ivrplatform/goivr/pkg/event"
	"github.com/ivrplatform/goivr/pkg/libs/channel"
	"github.com/ivrplatform/goivr/pkg/logging"
	"github.com/ivrplatform/goivr/pkg/metrics"
	"go.uber.org/zap"
)

type message struct {
	ts *Timeslot
	ev *event.Event
}

// Delivery is the process wide event queue. One worker drains it in arrival order
// and posts each event under the lock of its timeslot.
type Delivery struct {
	queue  *channel.Channel[message]
	logger *zap.SugaredLogger
}

func NewDelivery(size uint32) *Delivery {
	return &Delivery{
		queue:  channel.NewChannel[message](size),
		logger: zap.S().Named(logging.DeliveryNamespace),
	}
}

// Enqueue adds an event for a timeslot, waiting while the queue is full.
// It fails once the delivery was stopped.
func (d *Delivery) Enqueue(ts *Timeslot, ev *event.Event) bool {
	if !d.queue.Send(message{ts: ts, ev: ev}) {
		d.logger.Debugf("Dropped %s for timeslot %d: delivery stopped", ev.ID, ts.id)
		return false
	}
	metrics.QueueLength(d.queue.Len())
	return true
}

// offer queues an event only if there is room right away.
func (d *Delivery) offer(ts *Timeslot, ev *event.Event) bool {
	return d.queue.TrySend(message{ts: ts, ev: ev})
}

// Len returns the number of queued events.
func (d *Delivery) Len() int {
	return d.queue.Len()
}

// Run delivers queued events until Stop is called or ctx is done. Events queued
// before the stop are still delivered.
func (d *Delivery) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, d.Stop)
	defer stop()
	d.logger.Debug("Delivery started")
	for {
		m, ok := d.queue.Receive()
		if !ok {
			d.logger.Debug("Delivery stopped")
			return nil
		}
		metrics.QueueLength(d.queue.Len())
		m.ts.deliver(m.ev, SendQueued)
	}
}

func (d *Delivery) Stop() {
	d.queue.Close()
}
