// Package session keeps the per-page state of the playground: the editor
// buffers, the last results and the two busy flags.
//
// A State is shared by every request carrying the same session cookie, so all
// access goes through its methods, which hold the state's mutex. The mutex is
// never held across an upstream call: a flow marks itself busy, releases the
// lock, calls out, then takes the lock again to store the result. Storing a
// flow's inputs and marking it busy happen under one lock, so a flow always
// sends the inputs it was given.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/sakif/online-compiler/internal/apperror"
	"github.com/sakif/online-compiler/internal/language"
	"github.com/sakif/online-compiler/internal/metrics"
	"github.com/sakif/online-compiler/internal/service"
)

// DefaultSource is the editor content of a fresh session.
const DefaultSource = `print("Hello from automation!")`

// Placeholders shown while a flow is in flight.
const (
	PlaceholderRunning  = "⏳ Running code..."
	PlaceholderThinking = "🤖 Thinking..."
)

// Flow names, used in errors and metric labels.
const (
	FlowRun = "run"
	FlowAsk = "ask"
)

// Runner is the Execution Flow (service.ExecutionService). Check runs the
// flow's guards without any network call.
type Runner interface {
	Check(langKey string) error
	Run(ctx context.Context, langKey, source, stdin string) (string, error)
}

// Asker is the Assistant Flow (service.AssistantService).
type Asker interface {
	Check(langKey, question string) error
	Ask(ctx context.Context, langKey, source, question string) (string, error)
}

// Snapshot is a copy of a session's state, safe to render or encode.
type Snapshot struct {
	ID         string `json:"-"`
	Language   string `json:"language"`
	Source     string `json:"code"`
	Stdin      string `json:"stdin"`
	Prompt     string `json:"prompt"`
	Output     string `json:"output"`
	AIResponse string `json:"aiResponse"`
	Running    bool   `json:"isRunning"`
	Thinking   bool   `json:"isThinking"`
}

// State is one page session.
type State struct {
	mu sync.Mutex

	id         string
	language   string
	source     string
	stdin      string
	prompt     string
	output     string
	aiResponse string
	running    bool
	thinking   bool
	lastSeen   time.Time
}

func newState(id string, now time.Time) *State {
	return &State{
		id:       id,
		language: language.Default,
		source:   DefaultSource,
		lastSeen: now,
	}
}

// ID returns the session id.
func (s *State) ID() string {
	return s.id
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:         s.id,
		Language:   s.language,
		Source:     s.source,
		Stdin:      s.stdin,
		Prompt:     s.prompt,
		Output:     s.output,
		AIResponse: s.aiResponse,
		Running:    s.running,
		Thinking:   s.thinking,
	}
}

// SetStdin replaces the stdin buffer.
func (s *State) SetStdin(stdin string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stdin = stdin
}

// SetPrompt replaces the question buffer.
func (s *State) SetPrompt(prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompt = prompt
}

// setSource stores the language selection and source buffer; the caller holds mu.
// An empty key keeps the current selection. An unknown key is stored as is and
// rejected by the flow's guard.
func (s *State) setSource(langKey, source string) {
	if langKey != "" {
		s.language = langKey
	}
	s.source = source
}

// Busy reports whether either flow is in flight.
func (s *State) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running || s.thinking
}

// RunWith stores language, source and stdin and executes exactly those
// through r, storing the report as Output. The returned text is what Output
// now holds.
//
// A call arriving while running is set is rejected with ErrConflict and
// stores nothing. Otherwise the inputs are stored and r's guards checked
// under the same lock: a failing guard stores its message without the state
// ever showing as running. The running flag is then held for the whole
// upstream call and cleared on every exit path.
func (s *State) RunWith(ctx context.Context, r Runner, langKey, source, stdin string) (string, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		metrics.FlowRejectedTotal.WithLabelValues(FlowRun).Inc()
		return "", apperror.Conflict(FlowRun, "code is already running")
	}
	s.setSource(langKey, source)
	s.stdin = stdin
	langKey = s.language
	if err := r.Check(langKey); err != nil {
		s.output = apperror.Message(err, service.MsgRunFailed)
		text := s.output
		s.mu.Unlock()
		return text, err
	}
	s.running = true
	s.output = PlaceholderRunning
	s.mu.Unlock()

	metrics.FlowsInFlight.WithLabelValues(FlowRun).Inc()

	text := service.MsgRunFailed
	defer func() {
		s.mu.Lock()
		s.output = text
		s.running = false
		s.mu.Unlock()
		metrics.FlowsInFlight.WithLabelValues(FlowRun).Dec()
	}()

	report, err := r.Run(ctx, langKey, source, stdin)
	if err != nil {
		text = apperror.Message(err, service.MsgRunFailed)
		return text, err
	}
	text = report
	return text, nil
}

// AskWith stores language, source and prompt (stdin is left alone) and sends
// exactly those through a, storing the answer as AIResponse. Busy handling
// and guards mirror RunWith with the thinking flag.
func (s *State) AskWith(ctx context.Context, a Asker, langKey, source, prompt string) (string, error) {
	s.mu.Lock()
	if s.thinking {
		s.mu.Unlock()
		metrics.FlowRejectedTotal.WithLabelValues(FlowAsk).Inc()
		return "", apperror.Conflict(FlowAsk, "the assistant is already thinking")
	}
	s.setSource(langKey, source)
	s.prompt = prompt
	langKey = s.language
	if err := a.Check(langKey, prompt); err != nil {
		s.aiResponse = apperror.Message(err, service.MsgAssistantFailed)
		text := s.aiResponse
		s.mu.Unlock()
		return text, err
	}
	s.thinking = true
	s.aiResponse = PlaceholderThinking
	s.mu.Unlock()

	metrics.FlowsInFlight.WithLabelValues(FlowAsk).Inc()

	text := service.MsgAssistantFailed
	defer func() {
		s.mu.Lock()
		s.aiResponse = text
		s.thinking = false
		s.mu.Unlock()
		metrics.FlowsInFlight.WithLabelValues(FlowAsk).Dec()
	}()

	answer, err := a.Ask(ctx, langKey, source, prompt)
	if err != nil {
		text = apperror.Message(err, service.MsgAssistantFailed)
		return text, err
	}
	text = answer
	return text, nil
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// idleSince reports whether the state was last seen before cutoff and no flow is in flight.
func (s *State) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.running && !s.thinking && s.lastSeen.Before(cutoff)
}
