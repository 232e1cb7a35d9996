// Package handler contains the HTTP handlers of the playground server.
//
// Handlers are the glue between HTTP and the session/service layers:
//  1. parse the request (form values or a JSON body)
//  2. update the caller's session and trigger a flow on it
//  3. write the response (a redirect, a page, or JSON)
//
// The caller's session is put in the request context by session.Middleware;
// handlers never look sessions up themselves.
package handler

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/online-compiler/internal/apperror"
	"github.com/sakif/online-compiler/internal/language"
	"github.com/sakif/online-compiler/internal/session"
)

// pageTitle is the <title> of the playground page.
const pageTitle = "Online Compiler + AI Assistant"

// PlaygroundHandler serves the page and its two form actions.
// Templates are parsed once at startup and reused.
type PlaygroundHandler struct {
	templates *template.Template
	runner    session.Runner
	asker     session.Asker
	logger    *slog.Logger
}

// pageData is what the templates render.
type pageData struct {
	Title               string
	Languages           []language.Language
	State               session.Snapshot
	RunningPlaceholder  string
	ThinkingPlaceholder string
}

// NewPlaygroundHandler parses base.html and playground.html from templates.
// base.html holds the page skeleton with a {{template "content" .}} slot that
// playground.html fills in.
func NewPlaygroundHandler(templates fs.FS, runner session.Runner, asker session.Asker, logger *slog.Logger) (*PlaygroundHandler, error) {
	tmpl, err := template.ParseFS(templates, "base.html", "playground.html")
	if err != nil {
		return nil, err
	}

	return &PlaygroundHandler{
		templates: tmpl,
		runner:    runner,
		asker:     asker,
		logger:    logger,
	}, nil
}

// HandlePlayground renders the page from the caller's session snapshot.
func (h *PlaygroundHandler) HandlePlayground(w http.ResponseWriter, r *http.Request) {
	st, ok := session.FromContext(r.Context())
	if !ok {
		h.logger.Error("no session in request context")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	data := pageData{
		Title:               pageTitle,
		Languages:           language.All(),
		State:               st.Snapshot(),
		RunningPlaceholder:  session.PlaceholderRunning,
		ThinkingPlaceholder: session.PlaceholderThinking,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")

	if err := h.templates.ExecuteTemplate(w, "base", data); err != nil {
		h.logger.Error("failed to render template", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// HandleRun is the Run ▶ form action: store every buffer, run the code,
// then redirect back to the page. A trigger while a run is in flight stores nothing.
func (h *PlaygroundHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	st, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	_, err := st.RunWith(context.WithoutCancel(r.Context()), h.runner,
		r.PostFormValue("language"), formText(r, "code"), formText(r, "stdin"))
	if errors.Is(err, apperror.ErrConflict) {
		h.logger.Debug("run ignored, already running")
	} else {
		st.SetPrompt(formText(r, "prompt"))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleAsk is the Ask AI form action; same shape as HandleRun.
func (h *PlaygroundHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	st, ok := h.parseForm(w, r)
	if !ok {
		return
	}

	_, err := st.AskWith(context.WithoutCancel(r.Context()), h.asker,
		r.PostFormValue("language"), formText(r, "code"), formText(r, "prompt"))
	if errors.Is(err, apperror.ErrConflict) {
		h.logger.Debug("ask ignored, already thinking")
	} else {
		st.SetStdin(formText(r, "stdin"))
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// parseForm returns the request's session with the form body parsed.
func (h *PlaygroundHandler) parseForm(w http.ResponseWriter, r *http.Request) (*session.State, bool) {
	st, ok := session.FromContext(r.Context())
	if !ok {
		h.logger.Error("no session in request context")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return nil, false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("invalid form body", slog.String("error", err.Error()))
		http.Error(w, "invalid form body", http.StatusBadRequest)
		return nil, false
	}
	return st, true
}

// formText returns a textarea value with browser CRLF line endings normalised.
func formText(r *http.Request, key string) string {
	return strings.ReplaceAll(r.PostFormValue(key), "\r\n", "\n")
}
