package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRegistry(t *testing.T) {
	reg1 := InitRegistry()
	reg2 := InitRegistry()

	assert.NotNil(t, reg1)
	assert.Same(t, reg1, reg2, "InitRegistry should return the same instance")
}

func TestGetRegistry(t *testing.T) {
	assert.Same(t, InitRegistry(), GetRegistry())
}

func TestRecordJobLifecycle(t *testing.T) {
	InitRegistry()

	started := testutil.ToFloat64(JobsStartedTotal)
	completed := testutil.ToFloat64(JobsFinishedTotal.WithLabelValues("completed"))
	active := testutil.ToFloat64(ActiveJobs)

	RecordJobStarted()
	assert.Equal(t, started+1, testutil.ToFloat64(JobsStartedTotal))
	assert.Equal(t, active+1, testutil.ToFloat64(ActiveJobs))

	RecordJobFinished("completed", 12.5)
	assert.Equal(t, completed+1, testutil.ToFloat64(JobsFinishedTotal.WithLabelValues("completed")))
	assert.Equal(t, active, testutil.ToFloat64(ActiveJobs))
}

func TestRecordJobRejected(t *testing.T) {
	InitRegistry()

	before := testutil.ToFloat64(JobsRejectedTotal)
	RecordJobRejected()
	assert.Equal(t, before+1, testutil.ToFloat64(JobsRejectedTotal))
}

func TestRecordPoll(t *testing.T) {
	InitRegistry()

	tests := []struct {
		name    string
		outcome string
	}{
		{name: "merged", outcome: "merged"},
		{name: "error", outcome: "error"},
		{name: "discarded", outcome: "discarded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(PollsTotal.WithLabelValues(tt.outcome))
			RecordPoll(tt.outcome, 0.05)
			assert.Equal(t, before+1, testutil.ToFloat64(PollsTotal.WithLabelValues(tt.outcome)))
		})
	}
}

func TestRecordMerge(t *testing.T) {
	InitRegistry()

	merged := testutil.ToFloat64(DaysMergedTotal)
	dupes := testutil.ToFloat64(DuplicateDaysTotal)

	RecordMerge(3, 1, 0.75)

	assert.Equal(t, merged+3, testutil.ToFloat64(DaysMergedTotal))
	assert.Equal(t, dupes+1, testutil.ToFloat64(DuplicateDaysTotal))
	assert.Equal(t, 0.75, testutil.ToFloat64(JobProgress))
}

func TestRecordCompile(t *testing.T) {
	InitRegistry()

	rules := testutil.ToFloat64(RulesCompiledTotal)
	diags := testutil.ToFloat64(RuleDiagnosticsTotal)

	RecordCompile(4, 2)

	assert.Equal(t, rules+4, testutil.ToFloat64(RulesCompiledTotal))
	assert.Equal(t, diags+2, testutil.ToFloat64(RuleDiagnosticsTotal))
}

func TestMetricsHandler(t *testing.T) {
	InitRegistry()
	RecordJobRejected()

	handler := Handler()
	require.NotNil(t, handler)
	assert.Implements(t, (*http.Handler)(nil), handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stratsim_jobs_rejected_total")
}

func BenchmarkRecordPoll(b *testing.B) {
	InitRegistry()

	for i := 0; i < b.N; i++ {
		RecordPoll("merged", 0.01)
	}
}
