package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	ApiKeyHeader = "X-API-Key"

	readTimeout = 30 * time.Second
)

type IvrApi struct {
	app *App
}

func NewIvrApi(app *App) *IvrApi {
	return &IvrApi{app: app}
}

// Handler returns the routed HTTP handler of the API.
func (a *IvrApi) Handler() http.Handler {
	return a.routes()
}

func (a *IvrApi) Status(w http.ResponseWriter, _ *http.Request) error {
	return trySendJson(w, a.app.Status())
}

func (a *IvrApi) Sections(w http.ResponseWriter, _ *http.Request) error {
	rs, err := a.app.Sections()
	if err != nil {
		return err
	}
	return trySendJson(w, rs)
}

func (a *IvrApi) Errors(w http.ResponseWriter, _ *http.Request) error {
	rs, err := a.app.CompileErrors()
	if err != nil {
		return err
	}
	return trySendJson(w, rs)
}

func (a *IvrApi) Timeslot(w http.ResponseWriter, r *http.Request) error {
	id, err := timeslotID(r)
	if err != nil {
		return err
	}
	rs, err := a.app.Timeslot(id)
	if err != nil {
		return err
	}
	return trySendJson(w, rs)
}

func (a *IvrApi) PostEvent(w http.ResponseWriter, r *http.Request) error {
	id, err := timeslotID(r)
	if err != nil {
		return err
	}
	req := EventRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &BadRequestError{errors.Wrap(err, "failed to decode event")}
	}
	rs, err := a.app.PostEvent(id, req)
	if err != nil {
		return err
	}
	return trySendJson(w, rs)
}

func (a *IvrApi) StartCall(w http.ResponseWriter, r *http.Request) error {
	id, err := timeslotID(r)
	if err != nil {
		return err
	}
	rs, err := a.app.StartCall(id)
	if err != nil {
		return err
	}
	return trySendJson(w, rs)
}

func (a *IvrApi) StopCall(w http.ResponseWriter, r *http.Request) error {
	id, err := timeslotID(r)
	if err != nil {
		return err
	}
	rs, err := a.app.StopCall(id)
	if err != nil {
		return err
	}
	return trySendJson(w, rs)
}

func (a *IvrApi) Reload(w http.ResponseWriter, r *http.Request) error {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	rs, err := a.app.Reload(force)
	if err != nil {
		return err
	}
	return trySendJson(w, rs)
}

func timeslotID(r *http.Request) (int, error) {
	s := chi.URLParam(r, "id")
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, &BadRequestError{errors.Errorf("invalid timeslot %q", s)}
	}
	return id, nil
}

func trySendJson(w http.ResponseWriter, v interface{}) error {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return errors.Wrap(err, "failed to marshal response to JSON")
	}
	return nil
}

// Run serves the API until ctx is done.
func Run(ctx context.Context, address string, a *IvrApi) error {
	apiServer := &http.Server{Addr: address, Handler: a.routes(), ReadHeaderTimeout: readTimeout, ReadTimeout: readTimeout}
	go func() {
		<-ctx.Done()
		zap.S().Info("Shutting down API...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			zap.S().Errorf("Failed to shutdown API server: %v", err)
		}
	}()
	err := apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "failed to serve API on %s", address)
	}
	return nil
}
