package gen

import (
	"fmt"
	"strings"
)

const commentSeparator = "\n\n---\n\n"

const scriptSystemPrompt = "You are the host of a short tech podcast covering Hacker News discussions. " +
	"Given a story title and its comment thread, write a conversational podcast script " +
	"that summarizes the story and the most interesting arguments from the comments. " +
	"Speak naturally, attribute notable opinions to commenters in passing, and keep it " +
	"under five minutes of speaking time. Output only the script text."

// ScriptRequest builds the generation request for a podcast script from a
// story title and its flattened comment texts. Empty comments are
// dropped; remaining ones are joined with a separator so the upstream
// sees thread boundaries.
func ScriptRequest(title string, comments []string) Request {
	kept := make([]string, 0, len(comments))
	for _, c := range comments {
		if strings.TrimSpace(c) != "" {
			kept = append(kept, c)
		}
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Story: %s\n\nComments:\n\n", title)
	user.WriteString(strings.Join(kept, commentSeparator))

	return Request{
		Messages: []Message{
			{Role: RoleSystem, Content: scriptSystemPrompt},
			{Role: RoleUser, Content: user.String()},
		},
	}
}
