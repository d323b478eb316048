// Package requisition builds the extraction prompt for backoffice
// requisition notes and turns model output into canonical records.
package requisition

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// PromptKey identifies this prompt in call records.
const PromptKey = "requisition.extract"

// SystemPrompt returns the system prompt for requisition extraction.
func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}

// UserPrompt builds the user prompt around a single requisition note.
func UserPrompt(text string) string {
	var buf bytes.Buffer
	data := struct{ Text string }{Text: text}
	if err := userTemplate.Execute(&buf, data); err != nil {
		return userPromptTmpl
	}
	return strings.TrimSpace(buf.String())
}

const inputPrefix = `Input text: "`

// UnwrapInput recovers the original note from a rendered user prompt.
// Content that is not a rendered prompt is returned unchanged. The
// offline client relies on this so its pattern matching runs against
// the note itself rather than the prompt scaffolding.
func UnwrapInput(content string) string {
	i := strings.Index(content, inputPrefix)
	if i < 0 {
		return content
	}
	rest := content[i+len(inputPrefix):]
	j := strings.LastIndex(rest, `"`)
	if j < 0 {
		return content
	}
	return rest[:j]
}
