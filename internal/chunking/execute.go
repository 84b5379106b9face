package chunking

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/stingsense/stingsense/internal/busdata"
	"github.com/stingsense/stingsense/internal/completion"
	"github.com/stingsense/stingsense/internal/prompt"
)

// State is a step of the raw-mode state machine.
type State string

const (
	StateSizeCheck     State = "size_check"
	StateSingleRequest State = "single_request"
	StateMultiChunk    State = "multi_chunk"
	StateSynthesis     State = "synthesis"
	StateFailure       State = "failure"
)

// notesTruncatedNote is added to the synthesis prompt when the notes were cut.
const notesTruncatedNote = "Some analyst notes were shortened to fit the request limit, so the final parts may be incomplete; say so if it matters for the answer."

// Stage identifies the completion call in flight. It is attached to the context
// passed to the provider so decorators can label spans and metrics.
type Stage struct {
	State State
	Chunk int // 1-based; zero outside the chunk stage
	Total int
}

type stageKey struct{}

// WithStage returns a context carrying s.
func WithStage(ctx context.Context, s Stage) context.Context {
	return context.WithValue(ctx, stageKey{}, s)
}

// StageFromContext returns the stage attached by WithStage.
func StageFromContext(ctx context.Context) (Stage, bool) {
	s, ok := ctx.Value(stageKey{}).(Stage)
	return s, ok
}

// StageError reports the completion call that aborted a run.
type StageError struct {
	Stage State
	Chunk int
	Err   error
}

func (e *StageError) Error() string {
	if e.Chunk > 0 {
		return fmt.Sprintf("%s chunk %d: %v", e.Stage, e.Chunk, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Result is the outcome of Execute.
type Result struct {
	Answer         string           `json:"answer"`
	Mode           Mode             `json:"mode"`
	FinalState     State            `json:"finalState"`
	Transitions    []State          `json:"transitions"`
	ChunkCount     int              `json:"chunkCount"`
	Notes          []string         `json:"-"`
	NotesTruncated bool             `json:"notesTruncated"`
	Warnings       []string         `json:"warnings,omitempty"`
	Usage          completion.Usage `json:"usage"`
	Calls          int              `json:"calls"`
	Plan           *Plan            `json:"-"`
}

func (r *Result) enter(s State) {
	r.Transitions = append(r.Transitions, s)
	r.FinalState = s
}

// Execute answers question from events. A single request is used when the serialized
// dataset fits the budget; otherwise every chunk is analysed in order and the notes
// are combined by a synthesis call. Any completion failure aborts the run with a
// *StageError and no partial answer. The returned Result records the transitions
// taken, including on failure.
func (e *Engine) Execute(ctx context.Context, events []busdata.Event, question string) (*Result, error) {
	res := &Result{}
	res.enter(StateSizeCheck)

	if e.provider == nil {
		res.enter(StateFailure)
		return res, ErrNoProvider
	}

	plan, err := e.Plan(events)
	if err != nil {
		res.enter(StateFailure)
		return res, err
	}
	res.Plan = plan
	res.Mode = plan.Mode
	res.ChunkCount = len(plan.Chunks)
	if plan.Warning != "" {
		res.Warnings = append(res.Warnings, plan.Warning)
	}

	e.logger.Debug().
		Str("mode", string(plan.Mode)).
		Int("serialized_chars", plan.SerializedChars).
		Int("budget", plan.Budget).
		Int("total_chunks", len(plan.Chunks)).
		Bool("truncated", plan.Truncated).
		Msg("raw request planned")

	if plan.Mode == ModeSingle {
		res.enter(StateSingleRequest)
		text := e.templates.Raw.Render(prompt.Values{
			prompt.Data:      plan.Serialized,
			prompt.UserQuery: question,
		})
		resp, err := e.complete(WithStage(ctx, Stage{State: StateSingleRequest}), text)
		if err != nil {
			res.enter(StateFailure)
			return res, &StageError{Stage: StateSingleRequest, Err: err}
		}
		res.Calls++
		res.Usage = res.Usage.Add(resp.Usage)
		res.Answer = resp.Text
		return res, nil
	}

	res.enter(StateMultiChunk)
	notes, usage, calls, err := e.analyzeChunks(ctx, plan, question)
	res.Calls += calls
	res.Usage = res.Usage.Add(usage)
	if err != nil {
		res.enter(StateFailure)
		return res, err
	}
	res.Notes = notes

	res.enter(StateSynthesis)
	combined, truncated := e.combineNotes(notes, len(plan.Chunks))
	res.NotesTruncated = truncated

	var truncatedNote []string
	if plan.Truncated {
		truncatedNote = append(truncatedNote, plan.Warning)
	}
	if truncated {
		truncatedNote = append(truncatedNote, notesTruncatedNote)
		res.Warnings = append(res.Warnings, "Analyst notes were shortened before the final summary.")
	}

	text := e.templates.RawFinal.Render(prompt.Values{
		prompt.ChunkCount:    strconv.Itoa(len(plan.Chunks)),
		prompt.TruncatedNote: strings.Join(truncatedNote, " "),
		prompt.Data:          combined,
		prompt.UserQuery:     question,
	})
	resp, err := e.complete(WithStage(ctx, Stage{State: StateSynthesis, Total: len(plan.Chunks)}), text)
	if err != nil {
		res.Notes = nil
		res.enter(StateFailure)
		return res, &StageError{Stage: StateSynthesis, Err: err}
	}
	res.Calls++
	res.Usage = res.Usage.Add(resp.Usage)
	res.Answer = resp.Text
	return res, nil
}

type outcome struct {
	resp *completion.Response
	err  error
}

// analyzeChunks runs one completion per chunk. Up to Prefetch calls run ahead of
// the one being awaited; notes are always collected in chunk order. The first
// failure cancels every outstanding call.
func (e *Engine) analyzeChunks(ctx context.Context, plan *Plan, question string) ([]string, completion.Usage, int, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var usage completion.Usage
	chunks := plan.Chunks
	futures := make([]chan outcome, len(chunks))

	start := func(i int) {
		ch := make(chan outcome, 1)
		futures[i] = ch
		c := chunks[i]
		text := e.templates.RawChunk.Render(prompt.Values{
			prompt.ChunkIndex:  strconv.Itoa(c.Index),
			prompt.TotalChunks: strconv.Itoa(c.Total),
			prompt.Data:        c.Data,
			prompt.UserQuery:   question,
		})
		stageCtx := WithStage(ctx, Stage{State: StateMultiChunk, Chunk: c.Index, Total: c.Total})
		go func() {
			resp, err := e.complete(stageCtx, text)
			ch <- outcome{resp: resp, err: err}
		}()
	}

	next := 0
	for ; next < len(chunks) && next <= e.config.Prefetch; next++ {
		start(next)
	}

	notes := make([]string, 0, len(chunks))
	calls := 0
	for i, c := range chunks {
		var out outcome
		select {
		case out = <-futures[i]:
		case <-ctx.Done():
			return nil, usage, calls, &StageError{Stage: StateMultiChunk, Chunk: c.Index, Err: ctx.Err()}
		}

		if out.err != nil {
			e.logger.Warn().
				Err(out.err).
				Int("chunk_index", c.Index).
				Int("total_chunks", c.Total).
				Msg("chunk analysis failed")
			return nil, usage, calls, &StageError{Stage: StateMultiChunk, Chunk: c.Index, Err: out.err}
		}

		calls++
		usage = usage.Add(out.resp.Usage)
		notes = append(notes, out.resp.Text)

		e.logger.Debug().
			Int("chunk_index", c.Index).
			Int("total_chunks", c.Total).
			Msg("chunk analysed")

		if next < len(chunks) {
			start(next)
			next++
		}
	}

	return notes, usage, calls, nil
}

// combineNotes labels each note with its part number and joins them. The result is
// cut to SynthesisChars characters when needed.
func (e *Engine) combineNotes(notes []string, total int) (string, bool) {
	parts := make([]string, len(notes))
	for i, n := range notes {
		parts[i] = fmt.Sprintf("Part %d of %d:\n%s", i+1, total, strings.TrimSpace(n))
	}
	combined := strings.Join(parts, "\n\n")

	if utf8.RuneCountInString(combined) <= e.config.SynthesisChars {
		return combined, false
	}
	return truncateRunes(combined, e.config.SynthesisChars), true
}

// complete issues one completion and enforces a clean finish.
func (e *Engine) complete(ctx context.Context, text string) (*completion.Response, error) {
	start := time.Now()
	resp, err := e.provider.Complete(ctx, completion.Request{
		Prompt:          text,
		Model:           e.config.Model,
		MaxOutputTokens: e.config.MaxOutputTokens,
	})
	if err != nil {
		return nil, err
	}
	if err := completion.CheckFinish(e.provider.Name(), resp); err != nil {
		return nil, err
	}

	e.logger.Debug().
		Str("provider", e.provider.Name()).
		Int("prompt_chars", utf8.RuneCountInString(text)).
		Dur("duration", time.Since(start)).
		Msg("completion finished")

	return resp, nil
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
