package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/hitoq/hitoq/internal/messaging"
	"golang.org/x/term"
)

const defaultWidth = 80

// terminalWidth returns the column count of w when it is a terminal, and
// defaultWidth otherwise.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil || cols <= 0 {
		return defaultWidth
	}
	return cols
}

// oneLine collapses whitespace and cuts s to at most width runes.
func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 || utf8.RuneCountInString(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	r := []rune(s)
	return string(r[:width-1]) + "…"
}

func senderName(v messaging.MessageView) string {
	if v.FromUser != nil && v.FromUser.UserName != "" {
		return v.FromUser.UserName
	}
	return v.FromUserID
}

// renderThread prints the root and its replies, indenting each reply by
// its depth.
func renderThread(w io.Writer, t *messaging.Thread, width int) {
	head := fmt.Sprintf("%s  %s: ", t.Root.ID, senderName(t.Root))
	tail := fmt.Sprintf("  (%d replies)", t.Root.ReplyCount)
	fmt.Fprintln(w, head+oneLine(t.Root.Content, width-len(head)-len(tail))+tail)

	for _, r := range t.Replies {
		prefix := strings.Repeat("  ", r.ThreadDepth) + "└ " + senderName(r) + ": "
		fmt.Fprintln(w, prefix+oneLine(r.Content, width-utf8.RuneCountInString(prefix)))
	}
}
