package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jonathan/repocompare/internal/parsing"
	"github.com/jonathan/repocompare/internal/prompts"
	"github.com/jonathan/repocompare/internal/retry"
)

// maxReasonLen bounds the failure description fed back into a retry prompt.
const maxReasonLen = 500

// StructuredRequest describes one structured completion call.
type StructuredRequest struct {
	// Name identifies the call in logs and errors (e.g. "chunk 3 of 8").
	Name    string
	Prompt  string
	Schema  string
	Tier    ModelTier
	Timeout time.Duration
	Policy  retry.Policy
	Logger  *log.Logger
}

// ExhaustedError is returned when every attempt of a structured call failed.
// Callers substitute a documented default rather than failing the run.
type ExhaustedError struct {
	Name     string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts: %v", e.Name, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// GenerateStructured asks client for JSON matching req.Schema and decodes it into out.
// A response that fails to parse or validate is retried with the failure reason appended to the prompt.
// A transport failure or per-call timeout is retried after an exponential backoff.
// Cancellation of ctx is returned as-is; anything else that runs out of attempts is an *ExhaustedError.
// The raw response text is returned on success.
func GenerateStructured(ctx context.Context, client Client, req StructuredRequest, out any) (string, error) {
	policy := req.Policy.Normalize()
	prompt := req.Prompt
	backoff := false
	attempts := 0
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if backoff {
			if err := retry.Wait(ctx, policy.Delay(attempt-1)); err != nil {
				return "", err
			}
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		attempts++

		raw, err := callOnce(ctx, client, req, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			lastErr = err
			logf(req.Logger, "[LLM] %s: attempt %d/%d failed: %v", req.Name, attempt+1, policy.MaxRetries+1, err)
			if retry.IsPermanent(err) {
				break
			}
			backoff = true
			continue
		}

		if err := parsing.Decode(raw, req.Schema, out); err != nil {
			lastErr = err
			logf(req.Logger, "[LLM] %s: attempt %d/%d returned an invalid response: %v", req.Name, attempt+1, policy.MaxRetries+1, err)
			prompt = req.Prompt + invalidResponseSection(err)
			backoff = false
			continue
		}
		return raw, nil
	}

	return "", &ExhaustedError{Name: req.Name, Attempts: attempts, Last: lastErr}
}

func callOnce(ctx context.Context, client Client, req StructuredRequest, prompt string) (string, error) {
	callCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}
	return client.GenerateJSON(callCtx, prompt, req.Tier)
}

func invalidResponseSection(err error) string {
	reason := err.Error()
	var pe *parsing.ParseError
	if errors.As(err, &pe) {
		reason = pe.Reason()
	}
	if len(reason) > maxReasonLen {
		reason = reason[:maxReasonLen] + "..."
	}
	section, rerr := prompts.Render(prompts.RetryFile, "invalid-response", map[string]string{"Reason": reason})
	if rerr != nil {
		return "\n\nYour previous response was invalid because: " + reason
	}
	return section
}

func logf(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}
