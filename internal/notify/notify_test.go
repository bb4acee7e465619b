package notify

import (
	"testing"

	"github.com/memberd/memberd/internal/models"
)

func TestCompose(t *testing.T) {
	group := &models.Group{Name: "Ottawa Chapter", Slug: "ottawa-chapter"}
	emails := []string{"a@example.org", "b@example.org"}

	msg := Compose(group, "lists.example.org", "Hello", "<p>Hi</p>", true, emails)

	if want := "Ottawa Chapter <ottawa-chapter@lists.example.org>"; msg.From != want {
		t.Fatalf("expected from=%q, got %q", want, msg.From)
	}
	if want := "list-ottawa-chapter@lists.example.org"; msg.To != want {
		t.Fatalf("expected to=%q, got %q", want, msg.To)
	}
	if len(msg.BCC) != 2 {
		t.Fatalf("expected 2 bcc entries, got %d", len(msg.BCC))
	}
	if !msg.HTML {
		t.Fatalf("expected html flag preserved")
	}
}
