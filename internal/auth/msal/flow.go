package msal

import (
	"context"
	"fmt"

	"github.com/tidemark-labs/mailpoll/internal/core/domain"
	"github.com/tidemark-labs/mailpoll/internal/logger"
)

// authStep is one stage of an ordered token-acquisition chain.
type authStep struct {
	name string
	run  func(ctx context.Context) (string, error)
	// fatal aborts the chain on failure instead of falling through.
	fatal bool
}

// runSteps walks the chain in order, stopping at the first step that
// yields a token. Non-fatal failures fall through to the next step.
func runSteps(ctx context.Context, steps []authStep) (string, error) {
	var lastErr error
	for _, step := range steps {
		token, err := step.run(ctx)
		if err == nil && token != "" {
			logger.Debug("msal: %s succeeded", step.name)
			return token, nil
		}
		if err == nil {
			err = fmt.Errorf("%s: %w", step.name, domain.ErrAuthFailed)
		}
		if step.fatal {
			return "", fmt.Errorf("%w: %s: %v", domain.ErrAuthFailed, step.name, err)
		}
		logger.Debug("msal: %s failed, falling through: %v", step.name, err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = domain.ErrAuthFailed
	}
	return "", fmt.Errorf("%w: %v", domain.ErrAuthFailed, lastErr)
}
