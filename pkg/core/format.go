package core

import (
	"fmt"
	"strings"
)

// FormatMemoriesForPrompt renders ranked memories into the context block
// injected ahead of the conversation. Returns "" when nothing was retrieved.
func FormatMemoriesForPrompt(results []*RetrievalResult) string {
	if len(results) == 0 {
		return ""
	}

	var lines []string
	lines = append(lines, "You have access to the following information from previous conversations with this user:")
	lines = append(lines, "")

	for _, res := range results {
		lines = append(lines, fmt.Sprintf("- [%s] %s: %s", strings.ToUpper(string(res.Memory.Type)), res.Memory.Key, res.Memory.Value))
	}

	lines = append(lines, "")
	lines = append(lines, "Use this information naturally when relevant to the conversation. Don't mention that you have access to this context unless directly asked.")

	return strings.Join(lines, "\n")
}
