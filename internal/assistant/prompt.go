package assistant

import "fmt"

// SystemPrompt is sent as the first message of every conversation.
const SystemPrompt = "You are a helpful coding assistant inside an online compiler. Explain code, suggest fixes, and help with errors."

// BuildMessages returns the system instruction followed by a user message
// carrying the language label, the code and the question.
func BuildMessages(label, code, question string) []ChatMessage {
	return []ChatMessage{
		{Role: RoleSystem, Content: SystemPrompt},
		{Role: RoleUser, Content: fmt.Sprintf("Language: %s\n\nCode:\n%s\n\nQuestion:\n%s", label, code, question)},
	}
}
