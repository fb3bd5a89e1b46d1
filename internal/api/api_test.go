package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/padswitch/internal/autooff"
	"github.com/thatsimonsguy/padswitch/internal/controllers/switchcontroller"
	"github.com/thatsimonsguy/padswitch/internal/gpio"
	"github.com/thatsimonsguy/padswitch/internal/model"
)

var testOutputs = []model.GPIOPin{
	{Number: 27, ActiveHigh: true},
	{Number: 14, ActiveHigh: true},
	{Number: 32, ActiveHigh: true},
	{Number: 33, ActiveHigh: true},
	{Number: 25, ActiveHigh: true},
	{Number: 26, ActiveHigh: true},
}

func setupTestServer(t *testing.T, opts Options) (http.Handler, *gpio.FakeDriver) {
	t.Helper()
	driver := gpio.NewFakeDriver()
	ctrl := switchcontroller.New(driver, testOutputs, model.GPIOPin{Number: 12, ActiveHigh: true}, switchcontroller.Options{
		ClearPinOnAutoOff: true,
	})
	require.NoError(t, ctrl.Init())

	runner := switchcontroller.NewRunner(ctrl)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Run(ctx, nil)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return NewServer(runner, opts).Handler(), driver
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) model.StatusResponse {
	t.Helper()
	var resp model.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Error
}

func TestStatusAtBoot(t *testing.T) {
	h, _ := setupTestServer(t, Options{})

	w := do(t, h, http.MethodGet, "/api/status")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, model.StatusResponse{Pin: "-1", Enabled: "false"}, decodeStatus(t, w))
	assert.JSONEq(t, `{"pin":"-1","enabled":"false"}`, w.Body.String())
}

func TestCommandSequence(t *testing.T) {
	h, driver := setupTestServer(t, Options{})

	tests := []struct {
		target string
		want   model.StatusResponse
	}{
		{"/api/on?pin=2", model.StatusResponse{Pin: "2", Enabled: "true"}},
		{"/api/on?pin=4&timer=5000", model.StatusResponse{Pin: "4", Enabled: "true"}},
		{"/api/off", model.StatusResponse{Pin: "-1", Enabled: "true"}},
		{"/api/ping?timer=2000", model.StatusResponse{Pin: "-1", Enabled: "true"}},
		{"/api/disable", model.StatusResponse{Pin: "-1", Enabled: "false"}},
		{"/api/disable", model.StatusResponse{Pin: "-1", Enabled: "false"}},
		{"/api/enable", model.StatusResponse{Pin: "-1", Enabled: "true"}},
		{"/api/enable?timer=100", model.StatusResponse{Pin: "-1", Enabled: "true"}},
	}

	for _, tt := range tests {
		w := do(t, h, http.MethodGet, tt.target)
		require.Equal(t, http.StatusOK, w.Code, tt.target)
		assert.Equal(t, tt.want, decodeStatus(t, w), tt.target)
	}

	assert.True(t, driver.High(12))
	for _, p := range testOutputs {
		assert.False(t, driver.High(p.Number))
	}
}

func TestOnSelectsExactlyOneLine(t *testing.T) {
	h, driver := setupTestServer(t, Options{})

	do(t, h, http.MethodGet, "/api/on?pin=1")
	do(t, h, http.MethodGet, "/api/on?pin=5")

	for i, p := range testOutputs {
		assert.Equal(t, i == 5, driver.High(p.Number), "pin index %d", i)
	}
}

func TestBadRequests(t *testing.T) {
	h, _ := setupTestServer(t, Options{})
	do(t, h, http.MethodGet, "/api/on?pin=3")

	tests := []struct {
		name    string
		target  string
		wantMsg string
	}{
		{"missing pin", "/api/on", "Missing pin parameter"},
		{"non-numeric pin", "/api/on?pin=abc", "Invalid pin"},
		{"pin too high", "/api/on?pin=6", "invalid pin 6"},
		{"negative pin", "/api/on?pin=-1", "invalid pin -1"},
		{"non-numeric timer", "/api/on?pin=1&timer=soon", "Invalid timer"},
		{"zero timer", "/api/enable?timer=0", "invalid auto-off timeout"},
		{"negative timer", "/api/ping?timer=-5", "invalid auto-off timeout"},
		{"overflowing timer", "/api/enable?timer=18446744073711", "too large"},
		{"timer past int64", "/api/on?pin=1&timer=99999999999999999999", "Invalid timer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, tt.target)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decodeError(t, w), tt.wantMsg)
		})
	}

	// rejected requests leave the selection alone
	w := do(t, h, http.MethodGet, "/api/status")
	assert.Equal(t, model.StatusResponse{Pin: "3", Enabled: "true"}, decodeStatus(t, w))
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := setupTestServer(t, Options{})

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			w := do(t, h, method, "/api/on?pin=1")
			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	h, _ := setupTestServer(t, Options{})

	for _, method := range []string{http.MethodOptions, http.MethodGet} {
		w := do(t, h, method, "/api/status")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "GET, POST, PUT", w.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
	}

	w := do(t, h, http.MethodGet, "/api/on")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	h, _ := setupTestServer(t, Options{RatePerSec: 0.001, Burst: 2})

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/status").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/api/status").Code)

	w := do(t, h, http.MethodGet, "/api/status")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "Rate limit exceeded", decodeError(t, w))

	// preflight is never limited
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodOptions, "/api/status").Code)
}

type stubSwitch struct {
	err error
}

func (s stubSwitch) Activate(context.Context, int, time.Duration) (model.Status, error) {
	return model.Status{ActivePin: model.NoPin}, s.err
}
func (s stubSwitch) Deactivate(context.Context, bool) (model.Status, error) {
	return model.Status{ActivePin: model.NoPin}, s.err
}
func (s stubSwitch) Enable(context.Context, time.Duration) (model.Status, error) {
	return model.Status{ActivePin: model.NoPin}, s.err
}
func (s stubSwitch) Ping(context.Context, time.Duration) (model.Status, error) {
	return model.Status{ActivePin: model.NoPin}, s.err
}
func (s stubSwitch) Status(context.Context) (model.Status, error) {
	return model.Status{ActivePin: model.NoPin}, s.err
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"stopped", switchcontroller.ErrStopped, http.StatusServiceUnavailable},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable},
		{"hardware", &switchcontroller.HardwareError{Op: "activate", Err: errors.New("pinctrl: exit 1")}, http.StatusInternalServerError},
		{"timeout", &autooff.InvalidTimeoutError{}, http.StatusBadRequest},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewServer(stubSwitch{err: tt.err}, Options{}).Handler()
			w := do(t, h, http.MethodGet, "/api/off")
			assert.Equal(t, tt.want, w.Code)
			assert.Equal(t, tt.err.Error(), decodeError(t, w))
		})
	}
}

type stubHistory struct {
	events []model.Event
	limit  int
}

func (s *stubHistory) Recent(limit int) ([]model.Event, error) {
	s.limit = limit
	return s.events, nil
}

func TestHistory(t *testing.T) {
	hist := &stubHistory{events: []model.Event{
		{
			Time:    time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC),
			Kind:    model.EventActivate,
			Pin:     2,
			Enabled: true,
			Timeout: 10 * time.Minute,
			Source:  "api",
		},
	}}
	h := NewServer(stubSwitch{}, Options{History: hist}).Handler()

	w := do(t, h, http.MethodGet, "/api/history?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, hist.limit)
	assert.JSONEq(t, `[{"timestamp":"2026-10-15T08:00:00Z","event":"activate","pin":"2","enabled":"true","timeout_ms":600000,"source":"api"}]`, w.Body.String())

	w = do(t, h, http.MethodGet, "/api/history?limit=zero")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, NewServer(stubSwitch{}, Options{}).Handler(), http.MethodGet, "/api/history")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
