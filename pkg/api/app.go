package api

import (
	"crypto/sha256"
	"crypto/subtle"
	"strconv"

	"github.com/ivrplatform/goivr/pkg/event"
	"github.com/ivrplatform/goivr/pkg/logging"
	"github.com/ivrplatform/goivr/pkg/services"
	"github.com/ivrplatform/goivr/pkg/timeslot"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

var errNotLoaded = &UnavailableError{errors.New("script library is not loaded")}

type App struct {
	hashedApiKey  [sha256.Size]byte
	apiKeyEnabled bool
	services      services.Services
	logger        *zap.SugaredLogger
}

// NewApp creates the application layer of the API. An empty apiKey leaves the
// modifying routes open.
func NewApp(apiKey string, s services.Services) *App {
	return &App{
		hashedApiKey:  sha256.Sum256([]byte(apiKey)),
		apiKeyEnabled: len(apiKey) > 0,
		services:      s,
		logger:        zap.S().Named(logging.APINamespace),
	}
}

func (a *App) checkAuth(key string) error {
	if !a.apiKeyEnabled {
		return nil
	}
	hashed := sha256.Sum256([]byte(key))
	if subtle.ConstantTimeCompare(hashed[:], a.hashedApiKey[:]) != 1 {
		return &AuthError{errors.New("invalid api key")}
	}
	return nil
}

type statusResponse struct {
	Image     uint64          `json:"image"`
	Digest    string          `json:"digest,omitempty"`
	Errors    int             `json:"errors"`
	Queue     int             `json:"queue"`
	Timeslots []timeslot.Info `json:"timeslots"`
}

func (a *App) Status() statusResponse {
	rs := statusResponse{
		Queue:     a.services.Delivery.Len(),
		Timeslots: make([]timeslot.Info, 0, len(a.services.Timeslots)),
	}
	if h := a.services.Library.Acquire(); h != nil {
		rs.Image = h.Image().ID()
		rs.Digest = strconv.FormatUint(h.Digest(), 16)
		rs.Errors = len(h.Image().Errors())
		h.Release()
	}
	for _, ts := range a.services.Timeslots {
		rs.Timeslots = append(rs.Timeslots, ts.Info())
	}
	return rs
}

type sectionInfo struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	File         string   `json:"file,omitempty"`
	Instructions int      `json:"instructions"`
	Events       []string `json:"events,omitempty"`
	Methods      []string `json:"methods,omitempty"`
}

func (a *App) Sections() ([]sectionInfo, error) {
	h := a.services.Library.Acquire()
	if h == nil {
		return nil, errNotLoaded
	}
	defer h.Release()
	sections := h.Image().Sections()
	rs := make([]sectionInfo, 0, len(sections))
	for _, s := range sections {
		si := sectionInfo{Name: s.Name, Kind: s.Kind.String(), File: s.File, Instructions: s.Block.Len()}
		for _, b := range s.Events {
			si.Events = append(si.Events, b.Name)
		}
		for _, b := range s.Methods {
			si.Methods = append(si.Methods, b.Name)
		}
		rs = append(rs, si)
	}
	return rs, nil
}

func (a *App) CompileErrors() ([]string, error) {
	h := a.services.Library.Acquire()
	if h == nil {
		return nil, errNotLoaded
	}
	defer h.Release()
	errs := h.Image().Errors()
	rs := make([]string, len(errs))
	for i, e := range errs {
		rs[i] = e.Error()
	}
	return rs, nil
}

func (a *App) timeslot(id int) (*timeslot.Timeslot, error) {
	ts := a.services.Timeslot(id)
	if ts == nil {
		return nil, &NotFoundError{errors.Errorf("no timeslot %d", id)}
	}
	return ts, nil
}

func (a *App) Timeslot(id int) (timeslot.Info, error) {
	ts, err := a.timeslot(id)
	if err != nil {
		return timeslot.Info{}, err
	}
	return ts.Info(), nil
}

// StartCall runs the entry section of the current image on a timeslot. The image
// stays referenced until the script exits.
func (a *App) StartCall(id int) (timeslot.Info, error) {
	ts, err := a.timeslot(id)
	if err != nil {
		return timeslot.Info{}, err
	}
	if err := a.start(ts); err != nil {
		return timeslot.Info{}, err
	}
	return ts.Info(), nil
}

func (a *App) start(ts *timeslot.Timeslot) error {
	h := a.services.Library.Acquire()
	if h == nil {
		return errNotLoaded
	}
	if err := ts.Start(h.Image(), a.services.Entry, h.Release); err != nil {
		h.Release()
		return &BadRequestError{err}
	}
	a.logger.Debugf("Started %q on timeslot %d", a.services.Entry, ts.ID())
	return nil
}

func (a *App) StopCall(id int) (timeslot.Info, error) {
	ts, err := a.timeslot(id)
	if err != nil {
		return timeslot.Info{}, err
	}
	ts.Stop()
	return ts.Info(), nil
}

type EventRequest struct {
	Event  string `json:"event"`
	Digit  string `json:"digit,omitempty"`
	Tone   string `json:"tone,omitempty"`
	Status int    `json:"status,omitempty"`
	Text   string `json:"text,omitempty"`
}

type eventResponse struct {
	Handled  bool          `json:"handled"`
	Started  bool          `json:"started"`
	Timeslot timeslot.Info `json:"timeslot"`
}

// PostEvent delivers an event to a timeslot. A ring on an idle timeslot starts the
// entry section after the line has seen the ring.
func (a *App) PostEvent(id int, req EventRequest) (eventResponse, error) {
	ts, err := a.timeslot(id)
	if err != nil {
		return eventResponse{}, err
	}
	ev, err := newEvent(req)
	if err != nil {
		return eventResponse{}, &BadRequestError{err}
	}
	var rs eventResponse
	rs.Handled = ts.Send(ev, timeslot.SendNormal)
	if isIncoming(ev.ID) && !ts.Info().Running {
		if err := a.start(ts); err != nil {
			return eventResponse{}, err
		}
		rs.Started = true
	}
	rs.Timeslot = ts.Info()
	return rs, nil
}

func isIncoming(id event.ID) bool {
	return id == event.RingStart || id == event.StartIncoming
}

func newEvent(req EventRequest) (*event.Event, error) {
	id, ok := event.ParseName(req.Event)
	if !ok {
		return nil, errors.Errorf("unknown event %q", req.Event)
	}
	switch id {
	case event.DTMFKeyDown, event.DTMFKeyUp, event.DTMFSync:
		if len(req.Digit) != 1 {
			return nil, errors.Errorf("invalid digit %q", req.Digit)
		}
		d, ok := event.ParseDigit(req.Digit[0])
		if !ok {
			return nil, errors.Errorf("invalid digit %q", req.Digit)
		}
		return event.New(id, event.DTMF{Digit: d}), nil
	case event.ToneStart, event.ToneStop, event.ToneSync:
		return event.New(id, event.Tone{Name: req.Tone}), nil
	case event.RingStart, event.RingStop, event.RingSignal:
		return event.New(id, event.Ring{}), nil
	case event.ResumeScript:
		return nil, errors.Errorf("event %q cannot be posted", req.Event)
	}
	return event.New(id, event.Status{OK: req.Text == "", Status: req.Status, Error: req.Text}), nil
}

type reloadResponse struct {
	Changed bool   `json:"changed"`
	Image   uint64 `json:"image"`
	Errors  int    `json:"errors"`
}

// Reload recompiles the script library when its sources changed, or always with force.
func (a *App) Reload(force bool) (reloadResponse, error) {
	changed, err := a.services.Library.Load(force)
	if err != nil {
		return reloadResponse{}, errors.Wrap(err, "reload failed")
	}
	rs := reloadResponse{Changed: changed}
	if h := a.services.Library.Acquire(); h != nil {
		rs.Image = h.Image().ID()
		rs.Errors = len(h.Image().Errors())
		h.Release()
	}
	return rs, nil
}
