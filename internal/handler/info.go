package handler

import (
	"errors"
	"net/http"

	"github.com/sakif/online-compiler/internal/language"
	"github.com/sakif/online-compiler/internal/session"
)

// Configurable is satisfied by both upstream clients.
type Configurable interface {
	Configured() bool
}

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status              string `json:"status"`
	Judge0Configured    bool   `json:"judge0Configured"`
	AssistantConfigured bool   `json:"assistantConfigured"`
}

// InfoHandler serves the read-only endpoints.
type InfoHandler struct {
	judge0    Configurable
	assistant Configurable
}

// NewInfoHandler creates an InfoHandler. Either client may be nil.
func NewInfoHandler(judge0, assistant Configurable) *InfoHandler {
	return &InfoHandler{judge0: judge0, assistant: assistant}
}

// HandleHealth always answers 200; missing upstream settings are reported, not failed.
func (h *InfoHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:              "ok",
		Judge0Configured:    h.judge0 != nil && h.judge0.Configured(),
		AssistantConfigured: h.assistant != nil && h.assistant.Configured(),
	})
}

// HandleLanguages lists the language table in selector order.
func (h *InfoHandler) HandleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, language.All())
}

// HandleSession returns the caller's session snapshot.
func (h *InfoHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	st, ok := session.FromContext(r.Context())
	if !ok {
		writeError(w, errors.New("no session in request context"))
		return
	}
	writeJSON(w, http.StatusOK, st.Snapshot())
}
