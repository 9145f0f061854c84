// Package progress renders a multi-bar terminal progress display for
// long running feed ingests. Reporting is best effort: updates that
// arrive while another goroutine holds the display are dropped rather
// than queued, so hot loops can report every chunk without contention.
package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	barLength = 50
	nameLen   = 20
)

type bar struct {
	done  int
	outOf int
}

// A Tracker owns a set of named progress bars and redraws them in
// place using ANSI cursor movement.
type Tracker struct {
	mu           sync.Mutex
	out          io.Writer
	bars         map[string]*bar
	order        []string
	lastBarCount int
	drawn        bool
}

// New returns a Tracker writing to out. Pass nil for stderr.
func New(out io.Writer) *Tracker {
	if out == nil {
		out = os.Stderr
	}
	return &Tracker{
		out:  out,
		bars: map[string]*bar{},
	}
}

// Report records progress for the named bar. When done reaches outOf
// the bar is removed from the display. Reports made while a redraw is
// in flight are silently discarded.
func (t *Tracker) Report(name string, done, outOf int) {
	if !t.mu.TryLock() {
		return
	}
	defer t.mu.Unlock()

	if done >= outOf {
		if _, ok := t.bars[name]; ok {
			delete(t.bars, name)
			t.order = remove(t.order, name)
		}
	} else if b, ok := t.bars[name]; ok {
		b.done = done + 1
	} else {
		t.bars[name] = &bar{done: done + 1, outOf: outOf}
		t.order = append(t.order, name)
	}
	t.display()
}

func remove(names []string, name string) []string {
	for i, n := range names {
		if n == name {
			return append(names[:i], names[i+1:]...)
		}
	}
	return names
}

func (t *Tracker) display() {
	if len(t.bars) == t.lastBarCount && t.drawn {
		t.quickUpdate()
		return
	}
	if t.drawn {
		// Rewind over the previous frame and clear to end of screen.
		fmt.Fprintf(t.out, "\033[G\033[%dA\033[J", t.lastBarCount)
	}
	t.cleanDraw()
}

func (t *Tracker) cleanDraw() {
	t.lastBarCount = len(t.bars)
	t.drawn = true
	for _, name := range t.order {
		display := name
		if len(display) >= nameLen {
			display = display[:nameLen-3] + "..."
		}
		fmt.Fprintf(t.out, "%*s [", nameLen, display)
		t.drawBar(t.bars[name])
		fmt.Fprintln(t.out)
	}
}

func (t *Tracker) quickUpdate() {
	fmt.Fprintf(t.out, "\033[G\033[%dA", t.lastBarCount)
	for _, name := range t.order {
		fmt.Fprintf(t.out, "\033[%dC\033[K", nameLen+2)
		t.drawBar(t.bars[name])
		fmt.Fprint(t.out, "\033[E")
	}
	fmt.Fprint(t.out, "\033[G")
}

func (t *Tracker) drawBar(b *bar) {
	progress := int(float64(b.done) / float64(b.outOf) * barLength)
	for i := 0; i < barLength; i++ {
		switch {
		case i == progress:
			fmt.Fprint(t.out, ">")
		case i < progress:
			fmt.Fprint(t.out, "=")
		default:
			fmt.Fprint(t.out, " ")
		}
	}
	fmt.Fprintf(t.out, "] %d / %d", b.done, b.outOf)
}
