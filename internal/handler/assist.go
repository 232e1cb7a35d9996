package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/online-compiler/internal/apperror"
	"github.com/sakif/online-compiler/internal/session"
)

// AssistRequest is the body of POST /api/assist.
type AssistRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Prompt   string `json:"prompt"`
}

// AssistResponse carries the answer, or the message that replaced it.
type AssistResponse struct {
	Answer string `json:"answer"`
}

// AssistHandler is the JSON entry point of the Assistant Flow.
type AssistHandler struct {
	asker  session.Asker
	logger *slog.Logger
}

// NewAssistHandler creates a new AssistHandler.
func NewAssistHandler(asker session.Asker, logger *slog.Logger) *AssistHandler {
	return &AssistHandler{
		asker:  asker,
		logger: logger,
	}
}

// HandleAssist stores language, code and prompt in the session (stdin is
// left alone) and asks the assistant. Status codes follow HandleExecute.
func (h *AssistHandler) HandleAssist(w http.ResponseWriter, r *http.Request) {
	st, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, errors.New("no session in request context"))
		return
	}

	var req AssistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid assist request body", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	answer, err := st.AskWith(context.WithoutCancel(r.Context()), h.asker, req.Language, req.Code, req.Prompt)
	if errors.Is(err, apperror.ErrConflict) {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AssistResponse{Answer: answer})
}
