package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aegis-sign/agedcache/pkg/agedcache"
)

const defaultRetention = time.Minute

// RunnerConfig 定义场景回放参数。
type RunnerConfig struct {
	CacheName string
	Metrics   *agedcache.Metrics
	Logger    *slog.Logger

	// DefaultRetention 用于未给出 retention 的 put 步骤，nil 时为一分钟，0 为合法取值。
	DefaultRetention *time.Duration
}

// Runner 在手动时钟上回放场景并校验期望。
type Runner struct {
	cfg RunnerConfig
}

// StepResult 记录单个步骤的观测结果。
type StepResult struct {
	Index    int
	Op       Op
	Key      string
	Observed string
	Passed   bool
	Message  string
}

// Report 汇总一次回放。
type Report struct {
	Name    string
	Steps   []StepResult
	Failed  int
	Elapsed time.Duration
}

// OK 表示所有期望均满足。
func (r Report) OK() bool { return r.Failed == 0 }

// NewRunner 创建 Runner。
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.CacheName == "" {
		cfg.CacheName = "scenario"
	}
	if cfg.DefaultRetention == nil {
		d := defaultRetention
		cfg.DefaultRetention = &d
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{cfg: cfg}
}

// Run 依次执行场景步骤。期望不满足记入 Report，不会中断回放；ctx 取消时返回错误。
func (r *Runner) Run(ctx context.Context, s *Scenario) (Report, error) {
	clock := agedcache.NewManualClock(s.StartTime())
	cache := agedcache.New[string, string](agedcache.Config{
		Name:    r.cfg.CacheName,
		Clock:   clock,
		Metrics: r.cfg.Metrics,
		Logger:  r.cfg.Logger,
	})
	report := Report{Name: s.Name, Steps: make([]StepResult, 0, len(s.Steps))}
	for i := range s.Steps {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("scenario %s interrupted at step %d: %w", s.Name, i+1, err)
		}
		res := r.runStep(cache, clock, &s.Steps[i])
		res.Index = i + 1
		if !res.Passed {
			report.Failed++
			r.cfg.Logger.Warn("scenario expectation failed",
				slog.String("scenario", s.Name),
				slog.Int("step", res.Index),
				slog.String("op", string(res.Op)),
				slog.String("key", res.Key),
				slog.String("reason", res.Message))
		}
		report.Steps = append(report.Steps, res)
	}
	report.Elapsed = clock.Now().Sub(s.StartTime())
	return report, nil
}

func (r *Runner) runStep(cache *agedcache.Cache[string, string], clock *agedcache.ManualClock, st *Step) StepResult {
	res := StepResult{Op: st.Op, Key: st.Key, Passed: true}
	switch st.Op {
	case OpPut:
		retention := *r.cfg.DefaultRetention
		if st.hasRetention {
			retention = st.retention
		}
		if err := cache.Put(st.Key, st.Value, retention); err != nil {
			res.Passed = false
			res.Message = err.Error()
			return res
		}
		res.Observed = fmt.Sprintf("%s for %s", st.Value, retention)
	case OpGet:
		v, ok := cache.Get(st.Key)
		if ok {
			res.Observed = strconv.Quote(v)
		} else {
			res.Observed = "absent"
		}
		switch {
		case st.Absent && ok:
			res.Passed = false
			res.Message = fmt.Sprintf("want absent, got %q", v)
		case st.wantValue != nil && !ok:
			res.Passed = false
			res.Message = fmt.Sprintf("want %q, got absent", *st.wantValue)
		case st.wantValue != nil && v != *st.wantValue:
			res.Passed = false
			res.Message = fmt.Sprintf("want %q, got %q", *st.wantValue, v)
		}
	case OpRemove:
		cache.Remove(st.Key)
	case OpSize:
		n := cache.Size()
		res.Observed = strconv.Itoa(n)
		if st.wantSize != nil && n != *st.wantSize {
			res.Passed = false
			res.Message = fmt.Sprintf("want size %d, got %d", *st.wantSize, n)
		}
	case OpEmpty:
		empty := cache.IsEmpty()
		res.Observed = strconv.FormatBool(empty)
		if st.wantEmpty != nil && empty != *st.wantEmpty {
			res.Passed = false
			res.Message = fmt.Sprintf("want empty=%t, got %t", *st.wantEmpty, empty)
		}
	case OpAdvance:
		clock.Advance(st.by)
		res.Observed = clock.Now().UTC().Format(time.RFC3339Nano)
	case OpSetTime:
		clock.Set(st.at)
		res.Observed = st.at.UTC().Format(time.RFC3339Nano)
	}
	return res
}
