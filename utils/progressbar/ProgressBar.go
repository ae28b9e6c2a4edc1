// Package progressbar implements functionality of printing a progress
// bar to a terminal
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressBar implements a progress bar that must be manually
// managed. That is, Display() must be called whenever an updated
// progress bar should be printed.
//
// ProgressBar does not use concurrency.
type ProgressBar struct {
	out             io.Writer
	width           int
	maxProgress     int
	currentProgress int
	label           string
	startTime       time.Time
}

// New returns a new ProgressBar that is width characters wide, reaches
// 100% after max calls to Increment(), and prints to out
func New(out io.Writer, width, max int) *ProgressBar {
	if width < 1 || max < 1 {
		panic(fmt.Sprintf("new: width and max must be positive "+
			"\n\thave(%v, %v)", width, max))
	}
	return &ProgressBar{
		out:         out,
		width:       width,
		maxProgress: max,
		startTime:   time.Now(),
	}
}

// Increment increments the internal progress counter. Each time an
// iteration is performed, Increment should be called.
func (p *ProgressBar) Increment() {
	if p.currentProgress < p.maxProgress {
		p.currentProgress++
	}
}

// Label sets the text printed after the bar
func (p *ProgressBar) Label(label string) {
	p.label = label
}

// Progress returns the number of completed iterations
func (p *ProgressBar) Progress() int {
	return p.currentProgress
}

// String returns the progress bar without the elapsed time
func (p *ProgressBar) String() string {
	var bar strings.Builder
	bar.WriteString("|")

	filled := p.currentProgress * p.width / p.maxProgress
	bar.WriteString(strings.Repeat("█", filled))
	bar.WriteString(strings.Repeat(" ", p.width-filled))
	fmt.Fprintf(&bar, "| [%.2f%%]",
		float64(p.currentProgress)/float64(p.maxProgress)*100)

	if p.label != "" {
		bar.WriteString(" " + p.label)
	}
	return bar.String()
}

// Display prints the progress bar over the previously displayed one
func (p *ProgressBar) Display() {
	fmt.Fprintf(p.out, "\n\033[1A\033[K%v [elapsed: %v]", p.String(),
		time.Since(p.startTime).Truncate(time.Second))
}

// Close prints a final newline so that later output starts on a fresh
// line
func (p *ProgressBar) Close() {
	fmt.Fprintln(p.out)
}
