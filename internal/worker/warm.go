package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stingsense/stingsense/internal/analyst"
	"github.com/stingsense/stingsense/internal/query"
)

// Asker answers questions. *analyst.Service implements it.
type Asker interface {
	Ask(ctx context.Context, q analyst.Query) (*analyst.Answer, error)
	Configured() bool
}

// WarmJob asks the benchmark questions so their answers are cached.
type WarmJob struct {
	config WarmConfig
	asker  Asker
	logger zerolog.Logger

	metrics *WarmMetrics
}

// WarmMetrics tracks cache-warm statistics across runs.
type WarmMetrics struct {
	mu sync.RWMutex

	TotalRuns   int64
	Successful  int64
	Failed      int64
	AlreadyWarm int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	TotalDuration   time.Duration
}

// WarmJobConfig holds configuration for creating a WarmJob.
type WarmJobConfig struct {
	Config WarmConfig
	Asker  Asker
	Logger zerolog.Logger
}

// NewWarmJob creates a new cache-warm job.
func NewWarmJob(cfg WarmJobConfig) *WarmJob {
	return &WarmJob{
		config:  cfg.Config.withDefaults(),
		asker:   cfg.Asker,
		logger:  cfg.Logger,
		metrics: &WarmMetrics{},
	}
}

// WarmResult contains the result of one run.
type WarmResult struct {
	StartTime   time.Time     `json:"startTime"`
	EndTime     time.Time     `json:"endTime"`
	Duration    time.Duration `json:"duration"`
	Total       int           `json:"total"`
	Successful  int           `json:"successful"`
	Failed      int           `json:"failed"`
	AlreadyWarm int           `json:"alreadyWarm"`
	Errors      []WarmError   `json:"errors,omitempty"`
}

// WarmError is one question that could not be answered.
type WarmError struct {
	QuestionID string       `json:"questionId"`
	Mode       analyst.Mode `json:"mode"`
	Kind       analyst.Kind `json:"kind"`
	Error      string       `json:"error"`
}

type warmTask struct {
	question query.BenchmarkQuestion
	mode     analyst.Mode
}

type taskResult struct {
	task   warmTask
	cached bool
	err    error
}

// Run asks every configured question in every configured mode. modes, when
// non-empty, overrides the configured modes for this run.
func (j *WarmJob) Run(ctx context.Context, modes ...analyst.Mode) *WarmResult {
	if len(modes) == 0 {
		modes = j.config.Modes
	}

	tasks := make([]warmTask, 0, len(j.config.Questions)*len(modes))
	for _, m := range modes {
		for _, q := range j.config.Questions {
			tasks = append(tasks, warmTask{question: q, mode: m})
		}
	}

	startTime := time.Now()
	result := &WarmResult{
		StartTime: startTime,
		Total:     len(tasks),
	}

	j.logger.Info().
		Int("total", result.Total).
		Int("concurrency", j.config.Concurrency).
		Msg("starting cache warm job")

	taskChan := make(chan warmTask, len(tasks))
	resultsChan := make(chan taskResult, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.warmWorker(ctx, taskChan, resultsChan)
		}()
	}

	for _, t := range tasks {
		taskChan <- t
	}
	close(taskChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for tr := range resultsChan {
		switch {
		case tr.err != nil:
			result.Failed++
			result.Errors = append(result.Errors, WarmError{
				QuestionID: tr.task.question.ID,
				Mode:       tr.task.mode,
				Kind:       analyst.KindOf(tr.err),
				Error:      tr.err.Error(),
			})
		case tr.cached:
			result.AlreadyWarm++
			result.Successful++
		default:
			result.Successful++
		}
	}
	// Tasks skipped after cancellation count as failed.
	if skipped := result.Total - result.Successful - result.Failed; skipped > 0 {
		result.Failed += skipped
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("already_warm", result.AlreadyWarm).
		Msg("cache warm job completed")

	return result
}

func (j *WarmJob) warmWorker(ctx context.Context, tasks <-chan warmTask, results chan<- taskResult) {
	for t := range tasks {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.warmOne(ctx, t)
		}
	}
}

func (j *WarmJob) warmOne(ctx context.Context, t warmTask) taskResult {
	taskCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	answer, err := j.asker.Ask(taskCtx, analyst.Query{Text: t.question.Question, Mode: t.mode})
	if err != nil {
		j.logger.Warn().
			Err(err).
			Str("question_id", t.question.ID).
			Str("mode", string(t.mode)).
			Msg("warming question failed")
		return taskResult{task: t, err: err}
	}
	return taskResult{task: t, cached: answer.Cached}
}

func (j *WarmJob) updateMetrics(result *WarmResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.Successful += int64(result.Successful)
	j.metrics.Failed += int64(result.Failed)
	j.metrics.AlreadyWarm += int64(result.AlreadyWarm)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *WarmJob) GetMetrics() WarmMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return WarmMetrics{
		TotalRuns:       j.metrics.TotalRuns,
		Successful:      j.metrics.Successful,
		Failed:          j.metrics.Failed,
		AlreadyWarm:     j.metrics.AlreadyWarm,
		LastRunAt:       j.metrics.LastRunAt,
		LastRunDuration: j.metrics.LastRunDuration,
		TotalDuration:   j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns the current metrics as a map for logging.
func (j *WarmJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	return map[string]any{
		"total_runs":        m.TotalRuns,
		"successful":        m.Successful,
		"failed":            m.Failed,
		"already_warm":      m.AlreadyWarm,
		"last_run_at":       m.LastRunAt,
		"last_run_duration": m.LastRunDuration.String(),
		"total_duration":    m.TotalDuration.String(),
	}
}
