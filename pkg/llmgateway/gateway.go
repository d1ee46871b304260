// Package llmgateway implements C5, the LLM Gateway: the engine's only
// opaque oracle. Every exported operation is a (schema, inputs) -> value
// call: the gateway streams the model's response and, once the stream
// completes, validates the assembled text is well-formed JSON via
// go-faster/jx before handing the engine the decoded value.
// Partial output has no semantic meaning — per spec.md 9's "Structured
// LLM output as contract" design note.
package llmgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v5"
	"github.com/go-faster/jx"
	"github.com/go-logr/logr"

	"github.com/richard-devbot/chaoshunter/internal/ceerrors"
	"github.com/richard-devbot/chaoshunter/internal/config"
	"github.com/richard-devbot/chaoshunter/internal/metrics"
)

// Gateway is the Anthropic-backed structured oracle.
type Gateway struct {
	client     anthropic.Client
	model      anthropic.Model
	maxRetries int
	maxBackoff time.Duration
	log        logr.Logger
}

// New builds a Gateway from LLMConfig, reading the API key from the
// environment variable it names.
func New(cfg config.LLMConfig, log logr.Logger) (*Gateway, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("llmgateway: environment variable %s is unset", cfg.APIKeyEnv)
	}
	return &Gateway{
		client:     anthropic.NewClient(option.WithAPIKey(apiKey), option.WithRequestTimeout(cfg.Timeout)),
		model:      anthropic.Model(cfg.Model),
		maxRetries: cfg.MaxRetries,
		maxBackoff: cfg.MaxBackoff,
		log:        log,
	}, nil
}

// structured drives one oracle call: stream a completion constrained by
// systemPrompt to the shape schemaHint describes, validate the
// accumulated text is well-formed JSON, and unmarshal it into out.
// Rate-limit errors are retried with capped exponential backoff; a
// non-transient schema violation is returned to the caller to re-prompt
// at most once, per spec.md 7's SchemaFail policy.
func (g *Gateway) structured(ctx context.Context, op, systemPrompt, userPrompt string, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.LLMCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.LLMCallsTotal.WithLabelValues(op, outcome).Inc()
	}()

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0

	raw, err := backoff.Retry(ctx, func() (string, error) {
		text, callErr := g.stream(ctx, systemPrompt, userPrompt)
		if callErr == nil {
			return text, nil
		}
		if isRateLimited(callErr) {
			g.log.V(1).Info("llm rate-limited, backing off", "op", op, "err", callErr)
			return "", callErr
		}
		return "", backoff.Permanent(callErr)
	}, backoff.WithBackOff(policy), backoff.WithMaxTries(uint(g.maxRetries+1)), backoff.WithMaxElapsedTime(g.maxBackoff))
	if err != nil {
		return ceerrors.New(ceerrors.TransientInfra, "llmgateway", op, err)
	}

	return validateAndUnmarshal(op, raw, out)
}

// validateAndUnmarshal checks raw is well-formed JSON (via go-faster/jx's
// incremental decoder) before unmarshaling it into out, classifying both
// failure modes as SchemaFail per spec.md 7.
func validateAndUnmarshal(op, raw string, out any) error {
	dec := jx.DecodeStr(raw)
	if err := dec.Validate(); err != nil {
		return ceerrors.New(ceerrors.SchemaFail, "llmgateway", op, fmt.Errorf("model returned invalid JSON: %w", err))
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return ceerrors.New(ceerrors.SchemaFail, "llmgateway", op, fmt.Errorf("JSON did not match expected schema: %w", err))
	}
	return nil
}

// stream issues one Anthropic streaming completion and returns the fully
// assembled text of the final message. Streaming is an implementation
// detail: the engine never observes a partial value.
func (g *Gateway) stream(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s := g.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: 8192,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})

	message := anthropic.Message{}
	for s.Next() {
		event := s.Current()
		if err := message.Accumulate(event); err != nil {
			return "", fmt.Errorf("llmgateway: accumulating stream: %w", err)
		}
	}
	if err := s.Err(); err != nil {
		return "", fmt.Errorf("llmgateway: streaming completion: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if variant := block.AsAny(); variant != nil {
			if tb, ok := variant.(anthropic.TextBlock); ok {
				text += tb.Text
			}
		}
	}
	return text, nil
}

func isRateLimited(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
