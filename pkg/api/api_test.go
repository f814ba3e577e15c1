package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ivrplatform/goivr/pkg/library"
	"github.com/ivrplatform/goivr/pkg/services"
	"github.com/ivrplatform/goivr/pkg/settings"
	"github.com/ivrplatform/goivr/pkg/timeslot"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mainScript = `@main
  answer
  collect %pin 2
  set %got %pin
^hangup
  set %got hangup
`

type testAPI struct {
	fs      afero.Fs
	handler http.Handler
	lib     *library.Library
}

func newTestAPI(t *testing.T, apiKey string, load bool) *testAPI {
	timeslot.Init()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/scripts/main.scr", []byte(mainScript), 0644))
	lib := library.New(fs, "/scripts", settings.DefaultScriptSettings())
	if load {
		_, err := lib.Load(false)
		require.NoError(t, err)
	}
	t.Cleanup(lib.Close)
	cfg := settings.DefaultTimeslotSettings()
	cfg.Count = 2
	s := services.New(lib, cfg)
	return &testAPI{fs: fs, handler: NewIvrApi(NewApp(apiKey, s)).Handler(), lib: lib}
}

func (ta *testAPI) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ta.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.NewDecoder(w.Body).Decode(v))
}

func TestStatusAndSections(t *testing.T) {
	ta := newTestAPI(t, "", true)

	w := ta.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var status statusResponse
	decode(t, w, &status)
	assert.NotZero(t, status.Image)
	assert.NotEmpty(t, status.Digest)
	assert.Zero(t, status.Errors)
	require.Len(t, status.Timeslots, 2)
	assert.Equal(t, timeslot.IdleLine, status.Timeslots[1].Mode)
	assert.False(t, status.Timeslots[1].Running)

	w = ta.do(t, http.MethodGet, "/api/sections", "")
	require.Equal(t, http.StatusOK, w.Code)
	var sections []sectionInfo
	decode(t, w, &sections)
	var main *sectionInfo
	for i := range sections {
		if sections[i].Name == "main" {
			main = &sections[i]
		}
	}
	require.NotNil(t, main)
	assert.Equal(t, []string{"hangup"}, main.Events)
	assert.Equal(t, "main", main.File)

	w = ta.do(t, http.MethodGet, "/api/errors", "")
	require.Equal(t, http.StatusOK, w.Code)
	var errs []string
	decode(t, w, &errs)
	assert.Empty(t, errs)
}

func TestNotLoaded(t *testing.T) {
	ta := newTestAPI(t, "", false)
	for _, path := range []string{"/api/sections", "/api/errors"} {
		w := ta.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
	w := ta.do(t, http.MethodPost, "/api/timeslots/0/start", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var rs errorResponse
	decode(t, w, &rs)
	assert.Equal(t, "script library is not loaded", rs.Message)

	w = ta.do(t, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestCallThroughEvents(t *testing.T) {
	ta := newTestAPI(t, "", true)

	w := ta.do(t, http.MethodPost, "/api/timeslots/1/events", `{"event":"ring_start"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rs eventResponse
	decode(t, w, &rs)
	assert.True(t, rs.Started)
	assert.True(t, rs.Timeslot.Running)
	assert.True(t, rs.Timeslot.Waiting)
	assert.Equal(t, timeslot.ConnectedLine, rs.Timeslot.Mode)

	w = ta.do(t, http.MethodPost, "/api/timeslots/1/events", `{"event":"dtmf_key_up","digit":"4"}`)
	require.Equal(t, http.StatusOK, w.Code)
	rs = eventResponse{}
	decode(t, w, &rs)
	assert.True(t, rs.Handled)
	assert.Equal(t, "4", rs.Timeslot.Vars["pin"])

	w = ta.do(t, http.MethodPost, "/api/timeslots/1/events", `{"event":"DTMFKeyUp","digit":"#"}`)
	require.Equal(t, http.StatusOK, w.Code)
	rs = eventResponse{}
	decode(t, w, &rs)
	assert.False(t, rs.Timeslot.Running)
	assert.Equal(t, "4#", rs.Timeslot.Vars["got"])
	assert.Equal(t, timeslot.IdleLine, rs.Timeslot.Mode)

	w = ta.do(t, http.MethodGet, "/api/timeslots/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info timeslot.Info
	decode(t, w, &info)
	assert.Equal(t, 1, info.ID)
	assert.False(t, info.Running)
}

func TestStartAndStop(t *testing.T) {
	ta := newTestAPI(t, "", true)

	w := ta.do(t, http.MethodPost, "/api/timeslots/0/start", "")
	require.Equal(t, http.StatusOK, w.Code)
	var info timeslot.Info
	decode(t, w, &info)
	assert.True(t, info.Running)

	w = ta.do(t, http.MethodPost, "/api/timeslots/0/start", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ta.do(t, http.MethodPost, "/api/timeslots/0/events", `{"event":"call_disconnect"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var rs eventResponse
	decode(t, w, &rs)
	assert.True(t, rs.Handled)
	assert.Equal(t, "hangup", rs.Timeslot.Vars["got"])
	assert.False(t, rs.Timeslot.Running)

	w = ta.do(t, http.MethodPost, "/api/timeslots/0/start", "")
	require.Equal(t, http.StatusOK, w.Code)
	w = ta.do(t, http.MethodPost, "/api/timeslots/0/stop", "")
	require.Equal(t, http.StatusOK, w.Code)
	info = timeslot.Info{}
	decode(t, w, &info)
	assert.False(t, info.Running)
}

func TestRequestErrors(t *testing.T) {
	ta := newTestAPI(t, "", true)
	for _, test := range []struct {
		method string
		path   string
		body   string
		code   int
	}{
		{http.MethodPost, "/api/timeslots/5/events", `{"event":"ring_start"}`, http.StatusNotFound},
		{http.MethodGet, "/api/timeslots/2", "", http.StatusNotFound},
		{http.MethodGet, "/api/timeslots/x", "", http.StatusNotFound},
		{http.MethodPost, "/api/timeslots/0/events", `{"event":"no_such_event"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/timeslots/0/events", `{"event":"dtmf_key_up","digit":"x"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/timeslots/0/events", `{"event":"dtmf_key_up"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/timeslots/0/events", `{"event":"resume_script"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/timeslots/0/events", `{"event":`, http.StatusBadRequest},
		{http.MethodPost, "/api/timeslots/9999999999999999999999/stop", "", http.StatusBadRequest},
	} {
		w := ta.do(t, test.method, test.path, test.body)
		assert.Equal(t, test.code, w.Code, "%s %s %s", test.method, test.path, test.body)
	}
}

func TestAuth(t *testing.T) {
	ta := newTestAPI(t, "secret", true)

	w := ta.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = ta.do(t, http.MethodPost, "/api/reload", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = ta.do(t, http.MethodPost, "/api/reload", "", ApiKeyHeader, "wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = ta.do(t, http.MethodPost, "/api/reload", "", ApiKeyHeader, "secret")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReload(t *testing.T) {
	ta := newTestAPI(t, "", true)

	w := ta.do(t, http.MethodPost, "/api/reload", "")
	require.Equal(t, http.StatusOK, w.Code)
	var rs reloadResponse
	decode(t, w, &rs)
	assert.False(t, rs.Changed)
	first := rs.Image

	require.NoError(t, afero.WriteFile(ta.fs, "/scripts/extra.scr", []byte("@extra\n  bogus\n"), 0644))
	w = ta.do(t, http.MethodPost, "/api/reload", "")
	require.Equal(t, http.StatusOK, w.Code)
	rs = reloadResponse{}
	decode(t, w, &rs)
	assert.True(t, rs.Changed)
	assert.NotEqual(t, first, rs.Image)
	assert.Equal(t, 1, rs.Errors)

	w = ta.do(t, http.MethodPost, "/api/reload?force=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	rs = reloadResponse{}
	decode(t, w, &rs)
	assert.True(t, rs.Changed)

	require.NoError(t, ta.fs.RemoveAll("/scripts"))
	w = ta.do(t, http.MethodPost, "/api/reload", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ta := newTestAPI(t, "secret", true)
	ta.do(t, http.MethodGet, "/api/status", "")
	ta.do(t, http.MethodGet, "/api/timeslots/1", "")
	ta.do(t, http.MethodPost, "/api/timeslots/0/stop", "")
	w := ta.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "script_images_compiled")
	assert.Contains(t, body, `ivr_api_requests{group="status",status="200"}`)
	assert.Contains(t, body, `ivr_api_request_duration_bucket{group="timeslots"`)
	assert.Contains(t, body, `ivr_api_timeslot_requests{action="info",timeslot="1"}`)
	assert.Contains(t, body, "ivr_api_auth_rejected")
}

func TestRouteLabels(t *testing.T) {
	for _, test := range []struct {
		pattern string
		group   string
		action  string
	}{
		{"/api/status", "status", ""},
		{"/api/reload", "reload", ""},
		{"/api/timeslots/{id:\\d+}", "timeslots", "info"},
		{"/api/timeslots/{id:\\d+}/events", "timeslots", "events"},
		{"/api/timeslots/{id:\\d+}/start", "timeslots", "start"},
		{"/metrics", "metrics", ""},
		{"/api/", "unknown", ""},
		{"/favicon.ico", "unknown", ""},
	} {
		group, action := routeLabels(test.pattern)
		assert.Equal(t, test.group, group, test.pattern)
		assert.Equal(t, test.action, action, test.pattern)
	}
}
