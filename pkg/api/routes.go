package api

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/ivrplatform/goivr/pkg/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type HandleErrorFunc func(w http.ResponseWriter, r *http.Request, err error)
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

func toHTTPHandlerFunc(handler HandlerFunc, errorHandler HandleErrorFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		err := handler(writer, request)
		if err != nil {
			errorHandler(writer, request, err)
		}
	}
}

func (a *IvrApi) routes() chi.Router {
	r := chi.NewRouter()
	logger := zap.L().Named(logging.APINamespace)
	r.Use(middleware.RequestID, middleware.RealIP, CreateLoggerMiddleware(logger))
	r.Use(ivrApiMetricsMiddleware, middleware.Recoverer)

	errHandler := NewErrorHandler(logger)
	checkAuthMiddleware := createCheckAuthMiddleware(a.app, errHandler.Handle)

	wrapper := func(handlerFunc HandlerFunc) http.HandlerFunc {
		return toHTTPHandlerFunc(handlerFunc, errHandler.Handle)
	}

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(JsonContentTypeMiddleware)
		r.Get("/status", wrapper(a.Status))
		r.Get("/sections", wrapper(a.Sections))
		r.Get("/errors", wrapper(a.Errors))
		r.Get("/timeslots/{id:\\d+}", wrapper(a.Timeslot))

		rAuth := r.With(checkAuthMiddleware)
		rAuth.Post("/timeslots/{id:\\d+}/events", wrapper(a.PostEvent))
		rAuth.Post("/timeslots/{id:\\d+}/start", wrapper(a.StartCall))
		rAuth.Post("/timeslots/{id:\\d+}/stop", wrapper(a.StopCall))
		rAuth.Post("/reload", wrapper(a.Reload))
	})
	return r
}
