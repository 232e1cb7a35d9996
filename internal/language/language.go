// Package language holds the fixed table of languages offered by the playground.
//
// The numeric IDs are the Judge0 language_id values. They are a wire contract with the
// execution service: changing one routes submissions to a different runtime.
package language

// Language is one entry of the selector.
type Language struct {
	Key   string `json:"key"`        // form value, e.g. "python"
	ID    int    `json:"languageId"` // Judge0 language_id
	Label string `json:"label"`      // display label, also used in assistant prompts
}

// Default is the initial selection of a fresh session.
const Default = "python"

// table is in selector order.
var table = [...]Language{
	{Key: "python", ID: 71, Label: "Python"},
	{Key: "javascript", ID: 63, Label: "JavaScript (Node)"},
	{Key: "java", ID: 62, Label: "Java"},
	{Key: "cpp", ID: 54, Label: "C++ (GCC)"},
	{Key: "c", ID: 50, Label: "C (GCC)"},
	{Key: "csharp", ID: 51, Label: "C#"},
	{Key: "php", ID: 68, Label: "PHP"},
	{Key: "ruby", ID: 72, Label: "Ruby"},
	{Key: "go", ID: 60, Label: "Go"},
	{Key: "rust", ID: 73, Label: "Rust"},
	{Key: "kotlin", ID: 78, Label: "Kotlin"},
	{Key: "swift", ID: 83, Label: "Swift"},
}

var byKey = func() map[string]Language {
	m := make(map[string]Language, len(table))
	for _, l := range table {
		m[l.Key] = l
	}
	return m
}()

// Lookup returns the entry for key.
func Lookup(key string) (Language, bool) {
	l, ok := byKey[key]
	return l, ok
}

// All returns a copy of the table in selector order.
func All() []Language {
	out := make([]Language, len(table))
	copy(out, table[:])
	return out
}

// Valid reports whether key is a member of the table.
func Valid(key string) bool {
	_, ok := byKey[key]
	return ok
}
