package gen

import (
	"strings"
	"testing"
)

func TestScriptRequest(t *testing.T) {
	t.Parallel()

	req := ScriptRequest("A story", []string{"first", "", "  ", "second"})
	if len(req.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != RoleSystem || req.Messages[0].Content == "" {
		t.Fatalf("unexpected system message: %+v", req.Messages[0])
	}
	if req.Messages[1].Role != RoleUser {
		t.Fatalf("unexpected user role: %q", req.Messages[1].Role)
	}

	user := req.Messages[1].Content
	if !strings.Contains(user, "A story") {
		t.Fatalf("title missing from prompt: %q", user)
	}
	if !strings.Contains(user, "first"+commentSeparator+"second") {
		t.Fatalf("blank comments not dropped or separator missing: %q", user)
	}
}
