package services

import (
	"github.com/ivrplatform/goivr/pkg/library"
	"github.com/ivrplatform/goivr/pkg/settings"
	"github.com/ivrplatform/goivr/pkg/timeslot"
)

// Services bundles the components shared by the service and its API.
type Services struct {
	Library   *library.Library
	Delivery  *timeslot.Delivery
	Timeslots []*timeslot.Timeslot
	Entry     string
}

// New creates the timeslots described by cfg, all delivering through one queue.
func New(lib *library.Library, cfg settings.TimeslotSettings) Services {
	d := timeslot.NewDelivery(cfg.QueueSize)
	slots := make([]*timeslot.Timeslot, cfg.Count)
	for i := range slots {
		slots[i] = timeslot.New(i, d)
	}
	return Services{
		Library:   lib,
		Delivery:  d,
		Timeslots: slots,
		Entry:     cfg.Entry,
	}
}

// Timeslot returns the timeslot with the given number, nil if there is none.
func (s Services) Timeslot(id int) *timeslot.Timeslot {
	if id < 0 || id >= len(s.Timeslots) {
		return nil
	}
	return s.Timeslots[id]
}
