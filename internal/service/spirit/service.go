//go:generate go run go.uber.org/mock/mockgen -source=service.go -destination=../../mocks/mock_provider.go -package=mocks

package spirit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zhouzirui/seance/backend/internal/metrics"
	model "github.com/zhouzirui/seance/backend/internal/model/spirit"
)

var (
	// ErrInvalidRequest is the only error Generate returns.
	ErrInvalidRequest = errors.New("invalid spirit request")

	ErrNoProvider     = errors.New("no text provider configured")
	ErrEmptyResponse  = errors.New("empty response from provider")
	ErrProviderFailed = errors.New("provider failed")
)

const defaultUserName = "Anonymous"

// Sampling 为一次文本生成调用携带采样参数。
type Sampling struct {
	Temperature     float32
	TopP            float32
	TopK            int
	MaxOutputTokens int
}

// DefaultSampling returns the sampling used when nothing is configured.
func DefaultSampling() Sampling {
	return Sampling{Temperature: 0.8, TopP: 0.95, TopK: 40, MaxOutputTokens: 1000}
}

// Override 用显式配置覆盖采样参数，nil 表示保留原值。
func (s Sampling) Override(temperature, topP *float64, maxTokens *int) Sampling {
	if temperature != nil {
		s.Temperature = float32(*temperature)
	}
	if topP != nil {
		s.TopP = float32(*topP)
	}
	if maxTokens != nil {
		s.MaxOutputTokens = *maxTokens
	}
	return s
}

// Provider 是外部文本生成服务。
type Provider interface {
	Generate(ctx context.Context, prompt, systemInstruction string, sampling Sampling) (string, error)
}

// Config 控制重试、超时与后处理。
type Config struct {
	MaxAttempts    int
	BackoffUnit    time.Duration
	AttemptTimeout time.Duration
	HistoryLimit   int
	MaxWords       int
	Sampling       Sampling
}

// DefaultConfig returns 3 attempts, a 1s backoff unit and a 15s attempt timeout.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		BackoffUnit:    time.Second,
		AttemptTimeout: 15 * time.Second,
		HistoryLimit:   10,
		MaxWords:       30,
		Sampling:       DefaultSampling(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.BackoffUnit < 0 {
		c.BackoffUnit = 0
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = def.AttemptTimeout
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = def.HistoryLimit
	}
	if c.MaxWords <= 0 {
		c.MaxWords = def.MaxWords
	}
	if c.Sampling == (Sampling{}) {
		c.Sampling = def.Sampling
	}
	return c
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithSleeper replaces the backoff wait. It must return early with the
// context error when ctx ends.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

// WithRandom replaces the source used for letter timings.
func WithRandom(intN func(int) int) Option {
	return func(o *Orchestrator) { o.intN = intN }
}

// Orchestrator turns a question into a spirit response: provider call with
// retries, fallback, word limit and letter timings.
type Orchestrator struct {
	provider Provider
	cfg      Config
	validate *validator.Validate
	log      *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
	intN     func(int) int
}

// NewOrchestrator creates an orchestrator. provider may be nil, in which case
// every response is a fallback.
func NewOrchestrator(provider Provider, cfg Config, log *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		cfg:      cfg.withDefaults(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log,
		sleep:    sleepContext,
		intN:     rand.IntN,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProviderConfigured reports whether a text provider is wired.
func (o *Orchestrator) ProviderConfigured() bool { return o.provider != nil }

// Generate produces a response for req. Provider failures are logged and
// replaced by a fallback line; only an invalid request yields an error.
func (o *Orchestrator) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	req.Question = strings.TrimSpace(req.Question)
	if err := o.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if strings.TrimSpace(req.UserName) == "" {
		req.UserName = defaultUserName
	}

	started := time.Now()
	o.log.Info("spirit.generate.start",
		"session_id", req.SessionID,
		"user_name", req.UserName,
		"question_length", len([]rune(req.Question)),
		"history_length", len(req.SessionHistory))

	outcome := metrics.SpiritOutcomeProvider
	text, err := o.callProvider(ctx, req)
	if err != nil {
		o.log.Error("spirit.generate.failed", "session_id", req.SessionID, "error", err)
		text = pickFallback()
		outcome = metrics.SpiritOutcomeFallback
	}

	if words := CountWords(text); words > o.cfg.MaxWords {
		o.log.Warn("spirit.response.too_long",
			"session_id", req.SessionID,
			"word_count", words,
			"max_words", o.cfg.MaxWords)
	}
	text, wordCount := Truncate(text, o.cfg.MaxWords)

	metrics.RecordSpiritResponse(outcome, time.Since(started))
	o.log.Info("spirit.generate.success",
		"session_id", req.SessionID,
		"source", outcome,
		"word_count", wordCount)

	return &model.Response{
		Text:          text,
		WordCount:     wordCount,
		LetterTimings: letterTimings(text, o.intN),
		AudioURL:      nil,
		SessionID:     req.SessionID,
		Question:      req.Question,
	}, nil
}

func (o *Orchestrator) callProvider(ctx context.Context, req model.Request) (string, error) {
	if o.provider == nil {
		return "", ErrNoProvider
	}

	prompt := BuildPrompt(req.SessionHistory, req.UserName, req.Question, o.cfg.HistoryLimit, o.cfg.MaxWords)

	var lastErr error
	for attempt := 0; attempt < o.cfg.MaxAttempts; attempt++ {
		text, err := o.attempt(ctx, prompt)
		metrics.RecordSpiritAttempt(err)
		if err == nil {
			return text, nil
		}
		lastErr = err

		o.log.Warn("spirit.provider.retry",
			"session_id", req.SessionID,
			"attempt", attempt+1,
			"max_attempts", o.cfg.MaxAttempts,
			"error", err)

		if attempt == o.cfg.MaxAttempts-1 {
			break
		}
		wait := o.cfg.BackoffUnit * time.Duration(1<<attempt)
		if err := o.sleep(ctx, wait); err != nil {
			return "", fmt.Errorf("backoff interrupted: %w", err)
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %w", ErrProviderFailed, o.cfg.MaxAttempts, lastErr)
}

func (o *Orchestrator) attempt(ctx context.Context, prompt string) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.AttemptTimeout)
	defer cancel()

	text, err := o.provider.Generate(attemptCtx, prompt, systemInstruction, o.cfg.Sampling)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
