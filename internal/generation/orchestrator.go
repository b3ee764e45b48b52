// Package generation builds prompts from retrieved context, invokes the
// generation backend with retry and timeout, and post-processes the raw
// output. Backend failures never surface as errors to callers; they are
// absorbed into the returned Result.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/stackdocs/docrag/internal/backend"
	"github.com/stackdocs/docrag/internal/retrieval"
)

const (
	// DefaultMaxRetries bounds transient-failure retries per request.
	DefaultMaxRetries = 3

	// DefaultAttemptTimeout bounds a single backend call.
	DefaultAttemptTimeout = 60 * time.Second

	// DefaultContextBudget caps assembled context characters.
	DefaultContextBudget = 12000

	// excerptLength is the fixed source preview length.
	excerptLength = 200
)

// callState tracks a single generation request through its lifecycle.
type callState int

const (
	statePending callState = iota
	stateCalling
	stateRetrying
	stateSucceeded
	stateFailed
)

func (s callState) String() string {
	switch s {
	case statePending:
		return "pending"
	case stateCalling:
		return "calling"
	case stateRetrying:
		return "retrying"
	case stateSucceeded:
		return "succeeded"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Source is a chunk reference carried on a Result for citation, retained
// even when the chunk's content was dropped from the prompt for budget.
type Source struct {
	ChunkID    string
	DocumentID string
	Title      string
	Score      float64
	Excerpt    string
}

// Result is the outcome of one generation request. Err is set instead of
// returned so callers always receive a well-formed result.
type Result struct {
	ResponseText string
	Sources      []Source
	QuestionType QuestionType
	KeyPoints    []string
	Attempts     int
	Latency      time.Duration
	Err          error
}

// Config tunes the orchestrator. Zero values fall back to defaults.
type Config struct {
	MaxRetries     int
	AttemptTimeout time.Duration
	ContextBudget  int

	// NewBackOff produces the retry delay strategy for one request.
	// Tests inject a zero backoff to run without real delays.
	NewBackOff func() backoff.BackOff
}

// Orchestrator coordinates prompt construction, backend invocation, and
// post-processing for generation requests.
type Orchestrator struct {
	backend        backend.GenerationBackend
	maxRetries     int
	attemptTimeout time.Duration
	contextBudget  int
	newBackOff     func() backoff.BackOff
	logger         *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(gen backend.GenerationBackend, cfg Config, logger *slog.Logger) *Orchestrator {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = DefaultContextBudget
	}
	if cfg.NewBackOff == nil {
		cfg.NewBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = 0 // the caller context is the overall deadline
			return b
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		backend:        gen,
		maxRetries:     cfg.MaxRetries,
		attemptTimeout: cfg.AttemptTimeout,
		contextBudget:  cfg.ContextBudget,
		newBackOff:     cfg.NewBackOff,
		logger:         logger,
	}
}

// Generate answers query from the retrieved context. questionType may be
// empty, in which case the query is classified by keyword heuristics.
// The returned Result is always well-formed; backend failures appear in
// Result.Err with a user-facing explanation in ResponseText.
func (o *Orchestrator) Generate(ctx context.Context, query string, retrieved []retrieval.Result, questionType QuestionType) *Result {
	start := time.Now()
	if questionType == "" {
		questionType = Classify(query)
	}

	result := &Result{
		QuestionType: questionType,
		Sources:      buildSources(retrieved),
	}

	if len(retrieved) == 0 {
		result.ResponseText = "No relevant documents were found for this question. " +
			"Try rephrasing it or ingesting more documents."
		result.Latency = time.Since(start)
		return result
	}

	contextText, included := o.assembleContext(retrieved)
	if included < len(retrieved) {
		o.logger.Debug("context truncated for budget",
			"included", included, "retrieved", len(retrieved))
	}

	userPrompt := fmt.Sprintf("Context:\n%s\nQuestion: %s", contextText, query)

	text, attempts, err := o.invoke(ctx, systemPrompt(questionType), userPrompt)
	result.Attempts = attempts
	if err != nil {
		result.Err = err
		result.ResponseText = "The system could not process this request because the " +
			"generation backend did not respond. Please try again later."
		result.Latency = time.Since(start)
		return result
	}

	result.ResponseText = text
	if questionType == QuestionKeyPoints {
		result.KeyPoints = parseKeyPoints(text)
	}
	result.Latency = time.Since(start)
	return result
}

// invoke runs the retry state machine:
//
//	PENDING -> CALLING -> {SUCCEEDED | RETRYING -> CALLING | FAILED}
//
// Only transient errors enter RETRYING; malformed requests and responses
// fail immediately. The caller's context is the total deadline across all
// attempts, checked before every retry wait so retries cannot inflate it.
func (o *Orchestrator) invoke(ctx context.Context, system, user string) (string, int, error) {
	bo := o.newBackOff()
	state := statePending
	attempts := 0

	for {
		state = stateCalling
		attempts++

		attemptCtx, cancel := context.WithTimeout(ctx, o.attemptTimeout)
		text, err := o.backend.Generate(attemptCtx, system, user)
		cancel()

		if err == nil {
			state = stateSucceeded
			o.logger.Debug("generation call finished", "state", state, "attempts", attempts)
			return text, attempts, nil
		}

		if !backend.IsTransient(err) || attempts > o.maxRetries || ctx.Err() != nil {
			state = stateFailed
			o.logger.Warn("generation call failed",
				"state", state, "attempts", attempts, "error", err)
			return "", attempts, err
		}

		state = stateRetrying
		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			state = stateFailed
			return "", attempts, err
		}
		o.logger.Debug("generation call retrying",
			"state", state, "attempt", attempts, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return "", attempts, fmt.Errorf("%w: %v", backend.ErrTimeout, ctx.Err())
		case <-time.After(delay):
		}
	}
}

// assembleContext concatenates retrieved chunks in rank order, each with
// a source label and relevance score, stopping once the character budget
// is reached. Returns the context text and how many chunks made it in.
func (o *Orchestrator) assembleContext(retrieved []retrieval.Result) (string, int) {
	var sb strings.Builder
	included := 0

	for i, r := range retrieved {
		block := fmt.Sprintf("[Source %d: %s (relevance %.2f)]\n%s\n\n",
			i+1, sourceTitle(r), r.CombinedScore, r.Chunk.Content)
		if sb.Len() > 0 && sb.Len()+len(block) > o.contextBudget {
			break
		}
		sb.WriteString(block)
		included++
	}
	return sb.String(), included
}

// buildSources records every retrieved chunk for citation, including ones
// later dropped from the prompt for budget.
func buildSources(retrieved []retrieval.Result) []Source {
	sources := make([]Source, 0, len(retrieved))
	for _, r := range retrieved {
		sources = append(sources, Source{
			ChunkID:    r.Chunk.ID,
			DocumentID: r.Chunk.DocumentID,
			Title:      sourceTitle(r),
			Score:      r.CombinedScore,
			Excerpt:    excerpt(r.Chunk.Content),
		})
	}
	return sources
}

func sourceTitle(r retrieval.Result) string {
	if title, ok := r.Chunk.Metadata["title"]; ok && title != "" {
		return title
	}
	if r.Chunk.HeaderPath != "" {
		return r.Chunk.HeaderPath
	}
	return r.Chunk.DocumentID
}

// excerpt returns a fixed-length preview with an ellipsis.
func excerpt(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= excerptLength {
		return content
	}
	cut := excerptLength
	// Back up to a space so the preview does not end mid-word.
	if idx := strings.LastIndexByte(content[:cut], ' '); idx > excerptLength/2 {
		cut = idx
	}
	return content[:cut] + "..."
}

// parseKeyPoints extracts bullet-prefixed lines from a raw response,
// discarding everything else.
func parseKeyPoints(text string) []string {
	var points []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"- ", "* ", "• "} {
			if strings.HasPrefix(line, prefix) {
				point := strings.TrimSpace(strings.TrimPrefix(line, prefix))
				if point != "" {
					points = append(points, point)
				}
				break
			}
		}
	}
	return points
}
