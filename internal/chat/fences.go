package chat

import "regexp"

var (
	closingFence = regexp.MustCompile("\n```[ \t]*(\n|$)")
	openingFence = regexp.MustCompile("```[\\w+-]*\n?")
)

// StripFences removes code-fence markup wrapped around a completion, keeping
// the fenced text itself.
func StripFences(text string) string {
	text = closingFence.ReplaceAllString(text, "${1}")
	return openingFence.ReplaceAllString(text, "")
}
