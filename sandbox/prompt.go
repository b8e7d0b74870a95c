package sandbox

import "google.golang.org/genai"

// interpreterPrompt defines the core instructions for the interpreter session.
func interpreterPrompt() *genai.Content {
	prompt := `You answer questions about documents retrieved from a vector index. Each request gives you numbered context passages followed by a question.

Ground every answer in the supplied passages. When the question needs computation - arithmetic over values in the passages, aggregation, filtering, unit conversion - write and run code to produce the result instead of estimating. State the final answer plainly and mention which passages it came from. If the passages do not contain the answer, say so; do not invent information.`

	contents := genai.Text(prompt)
	if len(contents) == 0 {
		return nil
	}
	return contents[0]
}
