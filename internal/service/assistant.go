package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/online-compiler/internal/apperror"
	"github.com/sakif/online-compiler/internal/assistant"
	"github.com/sakif/online-compiler/internal/language"
)

// Texts shown in the assistant panel.
const (
	MsgAssistantNotConfigured = "❌ OPENAI_API_KEY is not set in the server configuration"
	MsgEmptyQuestion          = "Please type a question for the AI assistant."
	MsgRemoteError            = "❌ Error from AI API. Check your API key / usage in the server logs."
	MsgAssistantFailed        = "❌ Error calling AI API. Check the server logs for details."
	MsgNoResponse             = "No response from AI."
)

// AssistantService asks the chat-completion service about the current code.
type AssistantService struct {
	completer assistant.Completer
	logger    *slog.Logger
}

// NewAssistantService creates an AssistantService.
func NewAssistantService(completer assistant.Completer, logger *slog.Logger) *AssistantService {
	return &AssistantService{
		completer: completer,
		logger:    logger,
	}
}

// Check runs the guards of Ask without calling out.
func (s *AssistantService) Check(langKey, question string) error {
	if s.completer == nil || !s.completer.Configured() {
		return apperror.NotConfigured("OPENAI_API_KEY", MsgAssistantNotConfigured)
	}
	if strings.TrimSpace(question) == "" {
		return apperror.ValidationFailed("prompt", MsgEmptyQuestion)
	}
	if _, ok := language.Lookup(langKey); !ok {
		return apperror.ValidationFailed("language", fmt.Sprintf("unsupported language %q", langKey))
	}
	return nil
}

// Ask sends the question together with the code and language label and
// returns the trimmed answer, or MsgNoResponse when the answer is empty.
//
// Guards run before any network call: the API key first, then the question.
// The question is checked after trimming but sent as typed.
func (s *AssistantService) Ask(ctx context.Context, langKey, source, question string) (string, error) {
	if err := s.Check(langKey, question); err != nil {
		return "", err
	}
	lang, _ := language.Lookup(langKey)

	start := time.Now()
	content, err := s.completer.Complete(ctx, assistant.BuildMessages(lang.Label, source, question))
	if err != nil {
		var remote *assistant.RemoteError
		if errors.As(err, &remote) {
			s.logger.Error("assistant API returned an error",
				slog.Int("status", remote.StatusCode),
				slog.String("type", remote.Type),
				slog.String("message", remote.Message),
			)
			return "", fmt.Errorf("asking assistant: %w", apperror.Remote(MsgRemoteError))
		}

		s.logger.Error("assistant call failed",
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("asking assistant: %w", apperror.Upstream(MsgAssistantFailed))
	}

	answer := strings.TrimSpace(content)
	if answer == "" {
		answer = MsgNoResponse
	}

	s.logger.Info("assistant answered",
		slog.String("language", lang.Key),
		slog.Int("answerBytes", len(answer)),
		slog.Duration("duration", time.Since(start)),
	)

	return answer, nil
}
