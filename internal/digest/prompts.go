package digest

import (
	"fmt"
	"strings"
)

// CategoryPrompt asks for one broad category. Placeholders in order: the
// previously chosen categories, the canonical list, the title, the transcript.
const CategoryPrompt = `Based on the following video title and transcript, choose the most appropriate category.
Do not make the category too specific; it should be a broad category.

Previously used categories: %s
If the content is similar to any of the previously used categories, reuse that category for better grouping.

If no previous categories match, you can choose from these examples: %s

Title: %s
Transcript: %s

Respond ONLY with a JSON object in this format:
{"category": "chosen_category"}`

// SummaryPrompt asks for a conference-abstract style summary. Placeholders:
// the title, the transcript.
const SummaryPrompt = `Provide a concise paragraph of at least three sentences summarizing this video content.
Use an abstract style, as you would when proposing a conference talk.

Title: %s
Transcript: %s

Respond ONLY with a JSON object in this format:
{"summary": "your_summary"}`

func categoryPrompt(chosen, canonical []string, title, transcript string) string {
	previous := Uncategorized
	if len(chosen) > 0 {
		previous = strings.Join(chosen, ", ")
	}
	return fmt.Sprintf(CategoryPrompt, previous, strings.Join(canonical, ", "), title, transcript)
}

func summaryPrompt(title, transcript string) string {
	return fmt.Sprintf(SummaryPrompt, title, transcript)
}
