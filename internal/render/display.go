package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
)

// Display is an ordered, append-only list of lines.
type Display interface {
	Append(line string)
}

// History keeps every appended line in memory.
type History struct {
	mu    sync.RWMutex
	lines []string
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{}
}

// Append implements Display.
func (h *History) Append(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = append(h.lines, line)
}

// Lines returns a copy of the lines in arrival order.
func (h *History) Lines() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]string(nil), h.lines...)
}

// Len returns the number of lines.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.lines)
}

// WriterDisplay writes one line per entry to an io.Writer.
type WriterDisplay struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterDisplay creates a WriterDisplay on w.
func NewWriterDisplay(w io.Writer) *WriterDisplay {
	return &WriterDisplay{w: w}
}

// Append implements Display.
func (d *WriterDisplay) Append(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := fmt.Fprintln(d.w, line); err != nil {
		log.Debug().Err(err).Msg("[render] write line")
	}
}

// HTMLDisplay writes each entry as a list item. Lines are stripped of all
// markup so frame bodies cannot inject elements into the page.
type HTMLDisplay struct {
	mu     sync.Mutex
	w      io.Writer
	policy *bluemonday.Policy
}

// NewHTMLDisplay creates an HTMLDisplay on w.
func NewHTMLDisplay(w io.Writer) *HTMLDisplay {
	return &HTMLDisplay{w: w, policy: bluemonday.StrictPolicy()}
}

// Append implements Display.
func (d *HTMLDisplay) Append(line string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	item := d.policy.Sanitize(line)
	if _, err := fmt.Fprintf(d.w, "<li class=\"list-group-item\">%s</li>\n", item); err != nil {
		log.Debug().Err(err).Msg("[render] write item")
	}
}

// MultiDisplay appends every line to each display in order.
type MultiDisplay []Display

// Append implements Display.
func (m MultiDisplay) Append(line string) {
	for _, d := range m {
		d.Append(line)
	}
}
