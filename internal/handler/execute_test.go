package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/online-compiler/internal/apperror"
	"github.com/sakif/online-compiler/internal/handler"
	"github.com/sakif/online-compiler/internal/service"
	"github.com/sakif/online-compiler/internal/session"
)

// MockRunner stands in for service.ExecutionService.
type MockRunner struct {
	CapturedLang, CapturedSource, CapturedStdin string
	CapturedCtxErr                              error
	ReturnText                                  string
	ReturnErr                                   error
	CheckErr                                    error
	Block                                       chan struct{}
	Entered                                     chan struct{}
}

func (m *MockRunner) Check(string) error { return m.CheckErr }

func (m *MockRunner) Run(ctx context.Context, langKey, source, stdin string) (string, error) {
	m.CapturedLang, m.CapturedSource, m.CapturedStdin = langKey, source, stdin
	m.CapturedCtxErr = ctx.Err()
	if m.Entered != nil {
		close(m.Entered)
	}
	if m.Block != nil {
		<-m.Block
	}
	return m.ReturnText, m.ReturnErr
}

// MockAsker stands in for service.AssistantService.
type MockAsker struct {
	CapturedLang, CapturedSource, CapturedQuestion string
	CapturedCtxErr                                 error
	ReturnText                                     string
	ReturnErr                                      error
	CheckErr                                       error
}

func (m *MockAsker) Check(string, string) error { return m.CheckErr }

func (m *MockAsker) Ask(ctx context.Context, langKey, source, question string) (string, error) {
	m.CapturedLang, m.CapturedSource, m.CapturedQuestion = langKey, source, question
	m.CapturedCtxErr = ctx.Err()
	return m.ReturnText, m.ReturnErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newSessionRequest builds a request already carrying a session.
func newSessionRequest(t *testing.T, method, target, body string) (*http.Request, *session.State) {
	t.Helper()
	st := session.NewStore(time.Minute, testLogger()).Create()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(session.WithState(req.Context(), st)), st
}

func TestExecuteHandler_HandleExecute(t *testing.T) {
	logger := testLogger()

	t.Run("valid execution", func(t *testing.T) {
		runner := &MockRunner{ReturnText: "Status: Accepted\n\nOutput:\nhi\n\n"}
		h := handler.NewExecuteHandler(runner, logger)

		req, st := newSessionRequest(t, http.MethodPost, "/api/execute",
			`{"language":"python","code":"print(\"hi\")","stdin":""}`)
		rr := httptest.NewRecorder()

		h.HandleExecute(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

		var res handler.ExecuteResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "Status: Accepted\n\nOutput:\nhi\n\n", res.Output)

		assert.Equal(t, "python", runner.CapturedLang)
		assert.Equal(t, `print("hi")`, runner.CapturedSource)
		assert.Equal(t, res.Output, st.Snapshot().Output)
	})

	t.Run("flow failures are still 200 with the message", func(t *testing.T) {
		for _, runner := range []*MockRunner{
			{CheckErr: apperror.NotConfigured("JUDGE0_BASE_URL", service.MsgExecutorNotConfigured)},
			{ReturnErr: apperror.Upstream(service.MsgRunFailed)},
		} {
			h := handler.NewExecuteHandler(runner, logger)

			req, _ := newSessionRequest(t, http.MethodPost, "/api/execute", `{"language":"python","code":"x"}`)
			rr := httptest.NewRecorder()
			h.HandleExecute(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			var res handler.ExecuteResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
			assert.Equal(t, apperror.Message(runner.CheckErr, service.MsgRunFailed), res.Output)
		}
	})

	t.Run("client disconnect does not cancel the run", func(t *testing.T) {
		runner := &MockRunner{ReturnText: "done"}
		h := handler.NewExecuteHandler(runner, logger)

		req, st := newSessionRequest(t, http.MethodPost, "/api/execute", `{"language":"python","code":"x"}`)
		ctx, cancel := context.WithCancel(req.Context())
		cancel()
		rr := httptest.NewRecorder()
		h.HandleExecute(rr, req.WithContext(ctx))

		assert.NoError(t, runner.CapturedCtxErr)
		assert.Equal(t, "done", st.Snapshot().Output)
	})

	t.Run("invalid json", func(t *testing.T) {
		runner := &MockRunner{}
		h := handler.NewExecuteHandler(runner, logger)

		req, _ := newSessionRequest(t, http.MethodPost, "/api/execute", `{invalid`)
		rr := httptest.NewRecorder()
		h.HandleExecute(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		var res handler.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "validation_error", res.Error)
		assert.Empty(t, runner.CapturedSource)
	})

	t.Run("busy session stores nothing", func(t *testing.T) {
		first := &MockRunner{ReturnText: "Output:\nA\n", Block: make(chan struct{}), Entered: make(chan struct{})}
		h := handler.NewExecuteHandler(&MockRunner{}, logger)

		req, st := newSessionRequest(t, http.MethodPost, "/api/execute", `{"language":"go","code":"CODE_B"}`)
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = st.RunWith(context.Background(), first, "python", "CODE_A", "")
		}()
		<-first.Entered

		rr := httptest.NewRecorder()
		h.HandleExecute(rr, req)
		assert.Equal(t, http.StatusConflict, rr.Code)

		var res handler.ErrorResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "conflict", res.Error)

		close(first.Block)
		<-done

		snap := st.Snapshot()
		assert.Equal(t, "python", snap.Language)
		assert.Equal(t, "CODE_A", snap.Source)
		assert.Equal(t, "Output:\nA\n", snap.Output)
	})

	t.Run("missing session", func(t *testing.T) {
		h := handler.NewExecuteHandler(&MockRunner{}, logger)
		req := httptest.NewRequest(http.MethodPost, "/api/execute", bytes.NewBufferString(`{}`))
		rr := httptest.NewRecorder()
		h.HandleExecute(rr, req)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestAssistHandler_HandleAssist(t *testing.T) {
	logger := testLogger()

	t.Run("answer", func(t *testing.T) {
		asker := &MockAsker{ReturnText: "It prints hi."}
		h := handler.NewAssistHandler(asker, logger)

		req, st := newSessionRequest(t, http.MethodPost, "/api/assist",
			`{"language":"python","code":"print(\"hi\")","prompt":"What does this do?"}`)
		st.SetStdin("keep me")
		rr := httptest.NewRecorder()
		h.HandleAssist(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var res handler.AssistResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, "It prints hi.", res.Answer)

		assert.Equal(t, `print("hi")`, asker.CapturedSource)
		assert.Equal(t, "What does this do?", asker.CapturedQuestion)
		snap := st.Snapshot()
		assert.Equal(t, "keep me", snap.Stdin)
		assert.Equal(t, "It prints hi.", snap.AIResponse)
	})

	t.Run("validation message is an answer", func(t *testing.T) {
		asker := &MockAsker{CheckErr: apperror.ValidationFailed("prompt", service.MsgEmptyQuestion)}
		h := handler.NewAssistHandler(asker, logger)

		req, _ := newSessionRequest(t, http.MethodPost, "/api/assist", `{"language":"python","code":"x","prompt":"  "}`)
		rr := httptest.NewRecorder()
		h.HandleAssist(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		var res handler.AssistResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&res))
		assert.Equal(t, service.MsgEmptyQuestion, res.Answer)
		assert.Empty(t, asker.CapturedQuestion, "the call is never made")
	})

	t.Run("client disconnect does not cancel the question", func(t *testing.T) {
		asker := &MockAsker{ReturnText: "ok"}
		h := handler.NewAssistHandler(asker, logger)

		req, _ := newSessionRequest(t, http.MethodPost, "/api/assist", `{"language":"python","code":"x","prompt":"q"}`)
		ctx, cancel := context.WithCancel(req.Context())
		cancel()
		rr := httptest.NewRecorder()
		h.HandleAssist(rr, req.WithContext(ctx))

		assert.NoError(t, asker.CapturedCtxErr)
		assert.Equal(t, "q", asker.CapturedQuestion)
	})

	t.Run("invalid json", func(t *testing.T) {
		h := handler.NewAssistHandler(&MockAsker{}, logger)
		req, _ := newSessionRequest(t, http.MethodPost, "/api/assist", `[`)
		rr := httptest.NewRecorder()
		h.HandleAssist(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
