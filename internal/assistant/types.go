// Package assistant talks to an OpenAI-compatible chat-completion endpoint
// on behalf of the assistant panel.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
)

// Completer sends one conversation and returns the first completion text.
// The returned text is untrimmed; an empty string means the service
// answered without any content.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
	Configured() bool
}

// Roles used in ChatMessage.Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry of the messages array.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest is the body POSTed to the chat endpoint.
type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// ChatCompletionResponse covers both shapes the endpoint answers with:
// a list of choices, or an error payload. Error is kept raw because
// compatible servers send a string as often as an object.
type ChatCompletionResponse struct {
	ID      string          `json:"id,omitempty"`
	Model   string          `json:"model,omitempty"`
	Choices []ChatChoice    `json:"choices,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// ChatChoice is one completion alternative.
type ChatChoice struct {
	Index        int          `json:"index"`
	Message      *ChatMessage `json:"message,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// ChatError is the error object reported inside a response body.
type ChatError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Param   string `json:"param,omitempty"`
	Code    any    `json:"code,omitempty"`
}

// Failure returns the reported error when the error payload is present and
// not an empty value (null, false, 0 or ""). Any other JSON value counts:
// an object is decoded into ChatError, a string becomes its Message and
// anything else is kept as raw text.
func (r *ChatCompletionResponse) Failure() (*ChatError, bool) {
	if r == nil {
		return nil, false
	}
	raw := bytes.TrimSpace(r.Error)
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return nil, false
	}

	switch raw[0] {
	case '{':
		var ce ChatError
		if err := json.Unmarshal(raw, &ce); err == nil {
			return &ce, true
		}
	case '"':
		var msg string
		if err := json.Unmarshal(raw, &msg); err == nil {
			return &ChatError{Message: msg}, true
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil && n == 0 {
			return nil, false
		}
	}
	return &ChatError{Message: string(raw)}, true
}

// FirstContent returns choices[0].message.content, or "" when any part is absent.
func (r *ChatCompletionResponse) FirstContent() string {
	if r == nil || len(r.Choices) == 0 || r.Choices[0].Message == nil {
		return ""
	}
	return r.Choices[0].Message.Content
}
