package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	scriptNamespace   = "script"
	deliveryNamespace = "delivery"
	timeslotNamespace = "timeslot"
)

var (
	imagesCompiled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: scriptNamespace,
			Name:      "images_compiled",
			Help:      "Number of compile passes over script sources",
		},
	)
	compileErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: scriptNamespace,
			Name:      "compile_errors",
			Help:      "Number of errors reported by the compiler",
		},
	)
	imagesActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: scriptNamespace,
			Name:      "images_active",
			Help:      "Number of images currently held by calls or the library",
		},
	)
	instructionsStepped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: scriptNamespace,
			Name:      "instructions_stepped",
			Help:      "Number of instructions executed by interpreters",
		},
	)
	eventsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: deliveryNamespace,
			Name:      "events",
			Help:      "Number of events delivered to timeslots",
		},
		[]string{"event", "mode"},
	)
	queueLength = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: deliveryNamespace,
			Name:      "queue_length",
			Help:      "Number of queued events waiting for delivery",
		},
	)
	timeslotsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: timeslotNamespace,
			Name:      "active",
			Help:      "Number of timeslots running a script",
		},
	)
)

func init() {
	prometheus.MustRegister(
		imagesCompiled,
		compileErrors,
		imagesActive,
		instructionsStepped,
		eventsDelivered,
		queueLength,
		timeslotsActive,
	)
}

// ImageCompiled records one compile pass and the number of errors it reported.
func ImageCompiled(errs int) {
	imagesCompiled.Inc()
	if errs > 0 {
		compileErrors.Add(float64(errs))
	}
}

func ImageAcquired() {
	imagesActive.Inc()
}

func ImageReleased() {
	imagesActive.Dec()
}

func InstructionsStepped(n int) {
	if n > 0 {
		instructionsStepped.Add(float64(n))
	}
}

func EventDelivered(event, mode string) {
	eventsDelivered.WithLabelValues(event, mode).Inc()
}

func QueueLength(n int) {
	queueLength.Set(float64(n))
}

func TimeslotStarted() {
	timeslotsActive.Inc()
}

func TimeslotStopped() {
	timeslotsActive.Dec()
}
