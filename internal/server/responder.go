package server

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// EchoResponder acknowledges a manual message with a short markdown digest of it.
type EchoResponder struct{}

func (EchoResponder) Respond(_ context.Context, message string) (string, error) {
	first, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
	chats := strings.Count(message, "\n### Chat ")
	if strings.HasPrefix(message, "### Chat ") {
		chats++
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Received** %d characters", utf8.RuneCountInString(message))
	if chats > 0 {
		fmt.Fprintf(&b, " with context for %d chat(s)", chats)
	}
	b.WriteString(".\n\n> ")
	b.WriteString(first)
	return b.String(), nil
}
