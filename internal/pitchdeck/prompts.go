package pitchdeck

import "fmt"

const tocPrompt = `You are a document analysis expert. Your task is to create a table of contents for this pitch deck.
Analyze all the pages provided and identify the main sections.
Return a JSON object where keys are the main topics (e.g., "Problem", "Solution", "Team", "Market_Size", "Financials", "Competition", "Traction", "Ask") and values are a list of page numbers where that topic is discussed.
Page numbers should be 1-based.
Example response: {"Problem": [2], "Solution": [3, 4], "Team": [5]}`

func topicPrompt(topic string) string {
	return fmt.Sprintf(`You are a startup analyst. Analyze the following pages which are known to be about the topic: '%[1]s'.
Synthesize all information from these pages to provide a complete and detailed summary for this section.
Present the information in a clear, well-structured format. If it's a list (like team members or competitors), use bullet points.
Be very specific when generating the response. Do not include phrases like 'Here is the breakdown' or 'as an AI agent'. Always refer
to the %[1]s and provide accurate responses.`, topic)
}
