package scenario

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/aegis-sign/agedcache/pkg/agedcache"
	"github.com/aegis-sign/agedcache/pkg/apierrors"
)

func TestRunPassingScenarios(t *testing.T) {
	for _, name := range []string{"expiry.yaml", "remove.yaml", "replace.yaml"} {
		t.Run(name, func(t *testing.T) {
			s := mustLoad(t, name)
			report, err := NewRunner(RunnerConfig{}).Run(context.Background(), s)
			require.NoError(t, err)
			for _, step := range report.Steps {
				require.True(t, step.Passed, "step %d (%s %s): %s", step.Index, step.Op, step.Key, step.Message)
			}
			require.True(t, report.OK())
			require.Len(t, report.Steps, len(s.Steps))
		})
	}
}

func TestRunReportsFailedExpectations(t *testing.T) {
	s := mustLoad(t, "failing.yaml")
	report, err := NewRunner(RunnerConfig{}).Run(context.Background(), s)
	require.NoError(t, err)
	require.False(t, report.OK())
	require.Equal(t, 2, report.Failed)

	get := report.Steps[2]
	require.False(t, get.Passed)
	require.Equal(t, "absent", get.Observed)
	require.Equal(t, `want "1", got absent`, get.Message)

	size := report.Steps[3]
	require.False(t, size.Passed)
	require.Equal(t, "want size 1, got 0", size.Message)

	require.True(t, report.Steps[4].Passed)
	require.Equal(t, 11*time.Millisecond, report.Elapsed)
}

func TestRunFeedsCacheMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := agedcache.NewMetrics(reg)
	runner := NewRunner(RunnerConfig{CacheName: "replay", Metrics: metrics})

	report, err := runner.Run(context.Background(), mustLoad(t, "remove.yaml"))
	require.NoError(t, err)
	require.True(t, report.OK())

	expected := `
# HELP aged_cache_puts_total Number of entries written to the aged cache
# TYPE aged_cache_puts_total counter
aged_cache_puts_total{cache="replay"} 2
# HELP aged_cache_removals_total Number of entries deleted by explicit removal
# TYPE aged_cache_removals_total counter
aged_cache_removals_total{cache="replay"} 1
# HELP aged_cache_hits_total Number of lookups that returned a live entry
# TYPE aged_cache_hits_total counter
aged_cache_hits_total{cache="replay"} 1
# HELP aged_cache_misses_total Number of lookups that found no live entry
# TYPE aged_cache_misses_total counter
aged_cache_misses_total{cache="replay"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"aged_cache_puts_total", "aged_cache_removals_total", "aged_cache_hits_total", "aged_cache_misses_total"))
}

func TestRunUsesDefaultRetention(t *testing.T) {
	s, err := Parse([]byte(`
name: default-retention
steps:
  - {op: put, key: a, value: x}
  - {op: advance, by: 100ms}
  - {op: get, key: a, expect: x}
  - {op: advance, by: 1ms}
  - {op: get, key: a, absent: true}
`))
	require.NoError(t, err)
	report, err := NewRunner(RunnerConfig{DefaultRetention: durationPtr(100 * time.Millisecond)}).Run(context.Background(), s)
	require.NoError(t, err)
	require.True(t, report.OK(), "%+v", report.Steps)
}

func TestRunKeepsZeroDefaultRetention(t *testing.T) {
	s, err := Parse([]byte(`
name: zero-default-retention
steps:
  - {op: put, key: a, value: x}
  - {op: get, key: a, expect: x}
  - {op: advance, by: 1ms}
  - {op: get, key: a, absent: true}
  - {op: empty, expect: true}
`))
	require.NoError(t, err)
	report, err := NewRunner(RunnerConfig{DefaultRetention: durationPtr(0)}).Run(context.Background(), s)
	require.NoError(t, err)
	require.True(t, report.OK(), "%+v", report.Steps)
}

func TestRunFallsBackToOneMinuteRetention(t *testing.T) {
	s, err := Parse([]byte(`
steps:
  - {op: put, key: a, value: x}
  - {op: advance, by: 1m}
  - {op: get, key: a, expect: x}
  - {op: advance, by: 1ms}
  - {op: get, key: a, absent: true}
`))
	require.NoError(t, err)
	report, err := NewRunner(RunnerConfig{}).Run(context.Background(), s)
	require.NoError(t, err)
	require.True(t, report.OK(), "%+v", report.Steps)
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := NewRunner(RunnerConfig{}).Run(ctx, mustLoad(t, "expiry.yaml"))
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, report.Steps)
}

func TestParseDefaults(t *testing.T) {
	s, err := Parse([]byte("steps:\n  - {op: size}\n"))
	require.NoError(t, err)
	require.Equal(t, "unnamed", s.Name)
	require.Equal(t, time.Unix(0, 0).UTC(), s.StartTime())
	require.Nil(t, s.Steps[0].wantSize)
}

func TestParseStart(t *testing.T) {
	s := mustLoad(t, "expiry.yaml")
	require.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), s.StartTime())
	require.Equal(t, 50*time.Millisecond, s.Steps[0].retention)
	require.True(t, s.Steps[0].hasRetention)
	require.Equal(t, 49*time.Millisecond, s.Steps[1].by)
}

func TestParseDecodesTypedExpectations(t *testing.T) {
	s, err := Parse([]byte(`
steps:
  - {op: get, key: a, expect: "007"}
  - {op: size, expect: 3}
  - {op: empty, expect: false}
  - {op: get, key: b}
`))
	require.NoError(t, err)
	require.Equal(t, "007", *s.Steps[0].wantValue)
	require.Equal(t, 3, *s.Steps[1].wantSize)
	require.False(t, *s.Steps[2].wantEmpty)
	require.Nil(t, s.Steps[3].wantValue)
	require.Nil(t, s.Steps[3].expect)
}

func TestParseRejectsUnknownStepField(t *testing.T) {
	_, err := Parse([]byte("steps:\n  - {op: size, colour: red}\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "field colour not found in step")
}

func TestParseRejectsNonMappingStep(t *testing.T) {
	_, err := Parse([]byte("steps:\n  - size\n"))
	require.Error(t, err)
	require.True(t, apierrors.HasCode(err, apierrors.CodeInvalidArgument))
}

func TestParseRejectsInvalidScenarios(t *testing.T) {
	cases := map[string]string{
		"empty document":    "",
		"no steps":          "name: x\n",
		"unknown field":     "steps:\n  - {op: size, colour: red}\n",
		"missing op":        "steps:\n  - {key: a}\n",
		"unknown op":        "steps:\n  - {op: flush}\n",
		"put without key":   "steps:\n  - {op: put, value: x}\n",
		"negative retain":   "steps:\n  - {op: put, key: a, retention: -5ms}\n",
		"bad retention":     "steps:\n  - {op: put, key: a, retention: soon}\n",
		"get without key":   "steps:\n  - {op: get}\n",
		"expect and absent": "steps:\n  - {op: get, key: a, expect: x, absent: true}\n",
		"absent on size":    "steps:\n  - {op: size, absent: true}\n",
		"size not int":      "steps:\n  - {op: size, expect: many}\n",
		"negative size":     "steps:\n  - {op: size, expect: -1}\n",
		"empty not bool":    "steps:\n  - {op: empty, expect: maybe}\n",
		"advance missing":   "steps:\n  - {op: advance}\n",
		"advance backward":  "steps:\n  - {op: advance, by: -1s}\n",
		"bad set_time":      "steps:\n  - {op: set_time, at: tomorrow}\n",
		"bad start":         "start: yesterday\nsteps:\n  - {op: size}\n",
		"remove no key":     "steps:\n  - {op: remove}\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			require.True(t, apierrors.HasCode(err, apierrors.CodeInvalidArgument), "got %v", err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join("testdata", "does-not-exist.yaml"))
	require.Error(t, err)
}

func durationPtr(d time.Duration) *time.Duration { return &d }

func mustLoad(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := Load(filepath.Join("testdata", name))
	require.NoError(t, err)
	return s
}
