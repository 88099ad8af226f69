package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"finance_automation/internal/app"
	"finance_automation/internal/infra/scheduler"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	statuses []scheduler.JobStatus
	stats    app.RunStats
	err      error
	ran      []string
}

func (f *fakeRunner) Snapshot() []scheduler.JobStatus { return f.statuses }

func (f *fakeRunner) RunNow(_ context.Context, name string) (app.RunStats, error) {
	f.ran = append(f.ran, name)
	return f.stats, f.err
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	rec := do(t, NewRouter(&fakeRunner{}, fakePinger{}, quietLogger()), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(t, NewRouter(&fakeRunner{}, fakePinger{err: errors.New("refused")}, quietLogger()), http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestJobsSnapshot(t *testing.T) {
	runner := &fakeRunner{statuses: []scheduler.JobStatus{
		{Name: "debt_reminders", Spec: "0 8 * * *", Runs: 2, LastStats: app.RunStats{Sent: 4}},
	}}
	rec := do(t, NewRouter(runner, fakePinger{}, quietLogger()), http.MethodGet, "/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "debt_reminders", got[0]["name"])
	assert.Equal(t, float64(4), got[0]["last_stats"].(map[string]interface{})["sent"])
}

func TestRunJob(t *testing.T) {
	runner := &fakeRunner{stats: app.RunStats{Scanned: 3, Created: 1}}
	h := NewRouter(runner, fakePinger{}, quietLogger())

	rec := do(t, h, http.MethodPost, "/jobs/income_recurrence/run")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"income_recurrence"}, runner.ran)

	var resp runResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Stats.Created)

	runner.err = scheduler.ErrJobAlreadyRunning
	assert.Equal(t, http.StatusConflict, do(t, h, http.MethodPost, "/jobs/income_recurrence/run").Code)

	runner.err = scheduler.ErrUnknownJob
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/jobs/nope/run").Code)

	runner.err = errors.New("list failed")
	assert.Equal(t, http.StatusInternalServerError, do(t, h, http.MethodPost, "/jobs/income_recurrence/run").Code)

	assert.Equal(t, http.StatusMethodNotAllowed, do(t, h, http.MethodGet, "/jobs/income_recurrence/run").Code)
}
