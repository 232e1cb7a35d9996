package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/online-compiler/internal/apperror"
	"github.com/sakif/online-compiler/internal/session"
)

// ExecuteRequest is the body of POST /api/execute.
type ExecuteRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Stdin    string `json:"stdin"`
}

// ExecuteResponse carries the report, or the message that replaced it.
type ExecuteResponse struct {
	Output string `json:"output"`
}

// ExecuteHandler is the JSON entry point of the Execution Flow.
type ExecuteHandler struct {
	runner session.Runner
	logger *slog.Logger
}

// NewExecuteHandler creates a new ExecuteHandler.
func NewExecuteHandler(runner session.Runner, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		runner: runner,
		logger: logger,
	}
}

// HandleExecute stores the posted buffers in the session and runs them.
// A busy session stores nothing.
// Flow failures still answer 200 with the message as output; only a busy
// session (409) or an unreadable body (400) are HTTP errors.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	st, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, errors.New("no session in request context"))
		return
	}

	var req ExecuteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	// The run outlives a client that disconnects; trace values still flow.
	output, err := st.RunWith(context.WithoutCancel(r.Context()), h.runner, req.Language, req.Code, req.Stdin)
	if errors.Is(err, apperror.ErrConflict) {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ExecuteResponse{Output: output})
}
