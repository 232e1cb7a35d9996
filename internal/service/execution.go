// Package service holds the two flows behind the playground page.
//
// Both flows take plain strings and return the text that ends up in a result
// panel. Failures come back as *apperror.AppError values whose Message is that
// text; the underlying cause is logged here and goes no further.
//
// The services are stateless. Busy flags and buffers belong to the page
// session (see internal/session), which calls into this package.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/online-compiler/internal/apperror"
	"github.com/sakif/online-compiler/internal/executor"
	"github.com/sakif/online-compiler/internal/language"
)

// Texts shown in the output panel.
const (
	MsgExecutorNotConfigured = "❌ JUDGE0_BASE_URL is not set in the server configuration"
	MsgRunFailed             = "❌ Error running code. Check the server logs & your Judge0 config."
)

// ExecutionService runs code on the remote execution service.
type ExecutionService struct {
	exec   executor.Executor
	logger *slog.Logger
}

// NewExecutionService creates an ExecutionService.
func NewExecutionService(exec executor.Executor, logger *slog.Logger) *ExecutionService {
	return &ExecutionService{
		exec:   exec,
		logger: logger,
	}
}

// Check runs the guards of Run without calling out.
func (s *ExecutionService) Check(langKey string) error {
	if s.exec == nil || !s.exec.Configured() {
		return apperror.NotConfigured("JUDGE0_BASE_URL", MsgExecutorNotConfigured)
	}
	if _, ok := language.Lookup(langKey); !ok {
		return apperror.ValidationFailed("language", fmt.Sprintf("unsupported language %q", langKey))
	}
	return nil
}

// Run submits source and stdin for the given language key and returns the report.
//
// Guards, in order, none of which touch the network:
//   - no executor configured: ErrConfiguration
//   - unknown language key: ErrValidation
//
// Any failure of the call itself is reported as ErrUpstream with MsgRunFailed.
func (s *ExecutionService) Run(ctx context.Context, langKey, source, stdin string) (string, error) {
	if err := s.Check(langKey); err != nil {
		return "", err
	}
	lang, _ := language.Lookup(langKey)

	start := time.Now()
	result, err := s.exec.Execute(ctx, executor.ExecutionRequest{
		SourceCode: source,
		LanguageID: lang.ID,
		Stdin:      stdin,
	})
	if err != nil {
		s.logger.Error("code execution failed",
			slog.String("language", lang.Key),
			slog.Int("languageId", lang.ID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("running %s code: %w", lang.Key, apperror.Upstream(MsgRunFailed))
	}

	s.logger.Info("code executed",
		slog.String("language", lang.Key),
		slog.String("status", result.StatusDescription()),
		slog.Duration("duration", time.Since(start)),
	)

	return result.Report(), nil
}
