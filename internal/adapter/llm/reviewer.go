package llm

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/arbiterhq/arbiter/internal/config"
	"github.com/arbiterhq/arbiter/internal/domain/specialty"
	"github.com/arbiterhq/arbiter/internal/port/reviewer"
	"github.com/arbiterhq/arbiter/internal/resilience"
)

// Backend name used in reviewer configuration.
const BackendName = "openai-chat"

var (
	defaultsMu sync.RWMutex
	defaults   config.LLM
	breakerCfg config.Breaker
)

// Configure sets the connection defaults reviewers inherit when their
// own options do not override them. Call once at startup before
// reviewers are built.
func Configure(llm config.LLM, breaker config.Breaker) {
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	defaults = llm
	breakerCfg = breaker
}

func init() {
	reviewer.Register(BackendName, newChatReviewer)
}

// chatReviewer implements the reviewer port over an OpenAI-compatible
// chat API.
type chatReviewer struct {
	name   string
	weight float64
	specs  []specialty.Specialty
	client *Client
}

func newChatReviewer(cfg reviewer.Config) (reviewer.Reviewer, error) {
	defaultsMu.RLock()
	llm := defaults
	brk := breakerCfg
	defaultsMu.RUnlock()

	baseURL := optionOr(cfg.Options, "url", llm.URL)
	if baseURL == "" {
		return nil, fmt.Errorf("reviewer %q: no llm url configured", cfg.Name)
	}
	apiKey := optionOr(cfg.Options, "api_key", llm.APIKey)
	model := cfg.Model
	if model == "" {
		model = llm.Model
	}
	if model == "" {
		return nil, fmt.Errorf("reviewer %q: no model configured", cfg.Name)
	}

	timeout := llm.Timeout
	if raw, ok := cfg.Options["timeout"]; ok {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("reviewer %q: bad timeout %q: %w", cfg.Name, raw, err)
		}
		timeout = d
	}

	client := NewClient(baseURL, apiKey, model, timeout)

	maxTokens := llm.MaxTokens
	if raw, ok := cfg.Options["max_tokens"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("reviewer %q: bad max_tokens %q: %w", cfg.Name, raw, err)
		}
		maxTokens = n
	}
	temperature := llm.Temperature
	if raw, ok := cfg.Options["temperature"]; ok {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("reviewer %q: bad temperature %q: %w", cfg.Name, raw, err)
		}
		temperature = f
	}
	client.SetSampling(maxTokens, temperature)

	if brk.MaxFailures > 0 {
		client.SetBreaker(resilience.NewBreaker(brk.MaxFailures, brk.Timeout))
	}

	specs := make([]specialty.Specialty, 0, len(cfg.Specialties))
	for _, raw := range cfg.Specialties {
		sp := specialty.Specialty(raw)
		if !specialty.Valid(sp) {
			return nil, fmt.Errorf("reviewer %q: unknown specialty %q", cfg.Name, raw)
		}
		specs = append(specs, sp)
	}
	if len(specs) == 0 {
		specs = []specialty.Specialty{specialty.General}
	}

	return &chatReviewer{
		name:   cfg.Name,
		weight: reviewer.ClampWeight(cfg.Weight),
		specs:  specs,
		client: client,
	}, nil
}

func (r *chatReviewer) Name() string                       { return r.name }
func (r *chatReviewer) Weight() float64                    { return r.weight }
func (r *chatReviewer) Specialties() []specialty.Specialty { return r.specs }

func (r *chatReviewer) IsAvailable(ctx context.Context) bool {
	ok, _ := r.client.Health(ctx)
	return ok
}

func (r *chatReviewer) Chat(ctx context.Context, messages []reviewer.Message) (string, error) {
	reply, err := r.client.ChatCompletion(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("reviewer %s: %w", r.name, err)
	}
	return reply, nil
}

func optionOr(options map[string]string, key, fallback string) string {
	if v, ok := options[key]; ok && v != "" {
		return v
	}
	return fallback
}
