package presenter

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/pdftranslate/client/internal/model"
)

const barWidth = 20

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// TerminalRenderer draws views as a single, repeatedly overwritten line
type TerminalRenderer struct {
	mu       sync.Mutex
	w        io.Writer
	frame    int
	lastLink string
	terminal bool
}

// NewTerminalRenderer creates a renderer writing to w
func NewTerminalRenderer(w io.Writer) *TerminalRenderer {
	return &TerminalRenderer{w: w}
}

// Render draws v. It is meant to be registered with Presenter.Subscribe.
func (r *TerminalRenderer) Render(v model.View) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v.Status.IsTerminal() && r.terminal && !r.linkChanged(v) {
		return
	}

	fmt.Fprintf(r.w, "\r\033[K%s", FormatLine(v, spinnerFrames[r.frame%len(spinnerFrames)]))
	r.frame++

	if v.Status.IsTerminal() && !r.terminal {
		fmt.Fprintln(r.w)
	}
	r.terminal = v.Status.IsTerminal()

	if r.linkChanged(v) {
		if v.Download != nil {
			fmt.Fprintf(r.w, "\r\033[K%s: %s\n", v.Download.Label, v.Download.Href)
			r.lastLink = v.Download.Href
		} else {
			r.lastLink = ""
		}
	}
}

func (r *TerminalRenderer) linkChanged(v model.View) bool {
	if v.Download == nil {
		return r.lastLink != ""
	}
	return v.Download.Href != r.lastLink
}

// FormatLine renders the bar, percentage, spinner, message and timer of v
func FormatLine(v model.View, spinner string) string {
	filled := v.Progress * barWidth / 100
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(strings.Repeat("#", filled))
	b.WriteString(strings.Repeat("-", barWidth-filled))
	fmt.Fprintf(&b, "] %3d%%", v.Progress)

	if v.SpinnerVisible {
		b.WriteString(" ")
		b.WriteString(spinner)
	}
	if v.Message != "" {
		b.WriteString(" ")
		b.WriteString(v.Message)
	}
	if v.TimerVisible {
		fmt.Fprintf(&b, " %ds", v.ElapsedSeconds)
	}
	return b.String()
}
