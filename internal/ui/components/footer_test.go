package components

import (
	"strings"
	"testing"
)

func TestFooterNotice(t *testing.T) {
	f := NewFooter()
	f.Update("r: Refresh")
	f.Warn("Failed to list queues: [timeout]")

	text := f.GetText(false)
	if !strings.Contains(text, "r: Refresh") || !strings.Contains(text, "Failed to list queues") {
		t.Fatalf("footer = %q, want hints and notice", text)
	}

	f.Update("Enter: Browse")
	if text := f.GetText(false); !strings.Contains(text, "Failed to list queues") {
		t.Fatalf("notice dropped by Update: %q", text)
	}

	f.ClearNotice()
	if text := f.GetText(true); strings.TrimSpace(text) != "Enter: Browse" {
		t.Fatalf("footer = %q, want hints only", text)
	}
}
