package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"go.uber.org/zap"
)

// CreateLoggerMiddleware creates a middleware that logs each served request with its
// route group, the addressed timeslot if any, status and latency.
func CreateLoggerMiddleware(l *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww, ok := w.(middleware.WrapResponseWriter)
			if !ok {
				ww = middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			}

			t1 := time.Now()
			defer func() {
				group, _ := routeLabels(routePattern(r))
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("group", group),
					zap.String("path", r.URL.Path),
					zap.Duration("lat", time.Since(t1)),
					zap.Int("status", ww.Status()),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				}
				if id := chi.URLParam(r, "id"); id != "" {
					fields = append(fields, zap.String("timeslot", id))
				}
				l.Debug("ServedIvrRequest", fields...)
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

// routePattern returns the matched chi pattern, or the raw path when nothing matched.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// routeLabels maps a route pattern to its group and, for timeslot routes, the action.
// Unmatched paths share the "unknown" group to keep label cardinality bounded.
func routeLabels(pattern string) (group, action string) {
	if pattern == "/metrics" {
		return "metrics", ""
	}
	rest, ok := strings.CutPrefix(pattern, "/api/")
	if !ok || rest == "" {
		return "unknown", ""
	}
	parts := strings.Split(rest, "/")
	switch parts[0] {
	case "status", "sections", "errors", "reload":
		return parts[0], ""
	case "timeslots":
		if len(parts) > 2 {
			return "timeslots", parts[2]
		}
		return "timeslots", "info"
	}
	return "unknown", ""
}

func ivrApiMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		begin := time.Now()

		ww, ok := w.(middleware.WrapResponseWriter)
		if !ok {
			ww = middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		}

		defer func() {
			group, action := routeLabels(routePattern(r))
			metricRequests.WithLabelValues(group, strconv.Itoa(ww.Status())).Inc()
			metricRequestDuration.WithLabelValues(group).Observe(time.Since(begin).Seconds())
			if id := chi.URLParam(r, "id"); id != "" && group == "timeslots" {
				metricTimeslotRequests.WithLabelValues(id, action).Inc()
			}
		}()

		next.ServeHTTP(ww, r)
	})
}

func JsonContentTypeMiddleware(next http.Handler) http.Handler {
	return middleware.SetHeader("Content-Type", "application/json")(next)
}

func createCheckAuthMiddleware(app *App, errorHandler HandleErrorFunc) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := app.checkAuth(r.Header.Get(ApiKeyHeader)); err != nil {
				metricAuthRejected.Inc()
				errorHandler(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
