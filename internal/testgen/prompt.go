package testgen

import "strings"

// ContextSeparator joins retrieved documents inside the prompt. The
// separator line keeps individual test cases visually distinct for the
// model without any extra markup.
const ContextSeparator = "\n---\n"

const (
	promptPreamble = "You are a Senior QA Engineer with deep expertise in the insurance domain.\n" +
		"Your task is to write test cases for a new user story."

	promptTask = "Generate positive, negative, and edge test cases for the new user story.\n" +
		"Match the style, level of detail, and terminology of the existing test cases."

	promptFormat = "Respond with a markdown table with the columns: " +
		"ID, Title, Pre-conditions, Steps, Expected Result."
)

// promptSection is one named block of the final prompt. Sections render in
// a fixed order; the model relies on the headings to tell context apart
// from instructions.
type promptSection struct {
	heading string
	body    string
}

// buildPrompt assembles the full generation prompt from the retrieved
// context block and the user story. Rendering happens here and nowhere
// else, so the prompt shape stays stable across entry points.
func buildPrompt(contextBlock, story string) string {
	sections := []promptSection{
		{heading: "", body: promptPreamble},
		{heading: "EXISTING TEST CASES (CONTEXT):", body: contextBlock},
		{heading: "NEW USER STORY:", body: story},
		{heading: "TASK:", body: promptTask},
		{heading: "FORMAT:", body: promptFormat},
	}

	var b strings.Builder
	for i, s := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		if s.heading != "" {
			b.WriteString(s.heading)
			b.WriteString("\n")
		}
		b.WriteString(s.body)
	}
	return b.String()
}
