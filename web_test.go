/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Seednode/dyadic/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStatus Status

func (f fixedStatus) Status() Status { return Status(f) }

func get(t *testing.T, cfg *Config, src statusSource, m *metrics, path string) *httptest.ResponseRecorder {
	t.Helper()

	errs := make(chan error, 8)
	rec := httptest.NewRecorder()

	newRouter(cfg, src, m, errs).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	return rec
}

func TestRouter_HealthAndVersion(t *testing.T) {
	cfg := &Config{}
	src := fixedStatus{ParticipantID: "P1"}

	rec := get(t, cfg, src, newMetrics(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ok\n", rec.Body.String())

	rec = get(t, cfg, src, newMetrics(), "/version")
	assert.Equal(t, "dyadic v"+releaseVersion+"\n", rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestRouter_Status(t *testing.T) {
	src := fixedStatus{
		ParticipantID:   "P1",
		PartnerID:       "P2",
		Role:            string(protocol.Director),
		Active:          "director-confirm",
		TrialsCompleted: 9,
	}

	rec := get(t, &Config{}, src, newMetrics(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, Status(src), got)
}

func TestRouter_CompletionQR(t *testing.T) {
	cfg := &Config{}

	rec := get(t, cfg, fixedStatus{ParticipantID: "P1"}, newMetrics(), "/completion/qr")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, cfg, fixedStatus{ParticipantID: "P1", Ending: true}, newMetrics(), "/completion/qr")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())
}

func TestRouter_Metrics(t *testing.T) {
	m := newMetrics()

	hooks := m.interactionHooks()
	hooks.OnInstruction(protocol.TagFeedback)
	hooks.OnSend(protocol.FinishedFeedback, nil)

	rec := get(t, &Config{}, fixedStatus{}, m, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `dyadic_instructions_total{type="Feedback"} 1`)
	assert.Contains(t, body, `dyadic_outbound_messages_total{type="FINISHED_FEEDBACK"} 1`)
}

func TestRouter_ProfileOnlyWhenEnabled(t *testing.T) {
	rec := get(t, &Config{}, fixedStatus{}, newMetrics(), "/debug/pprof/cmdline")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, &Config{profile: true}, fixedStatus{}, newMetrics(), "/debug/pprof/cmdline")
	assert.Equal(t, http.StatusOK, rec.Code)
}
