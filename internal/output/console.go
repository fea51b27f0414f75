// Package output renders the end-of-run report to the console.
package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/wrussell84/stampede/internal/collector"
)

// ColorScheme defines the colors used by the report printer.
type ColorScheme struct {
	Header  *color.Color
	Label   *color.Color
	Good    *color.Color
	Bad     *color.Color
	Muted   *color.Color
	Warning *color.Color
}

// DefaultColorScheme returns the default scheme.
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Header:  color.New(color.FgCyan, color.Bold),
		Label:   color.New(color.FgWhite),
		Good:    color.New(color.FgGreen),
		Bad:     color.New(color.FgRed, color.Bold),
		Muted:   color.New(color.Faint),
		Warning: color.New(color.FgYellow, color.Bold),
	}
}

// NoColorScheme returns a scheme with all colors disabled.
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	scheme.Header.DisableColor()
	scheme.Label.DisableColor()
	scheme.Good.DisableColor()
	scheme.Bad.DisableColor()
	scheme.Muted.DisableColor()
	scheme.Warning.DisableColor()
	return scheme
}

// Printer writes run reports.
type Printer struct {
	w      io.Writer
	scheme *ColorScheme
}

// NewPrinter creates a printer. Colors are disabled automatically when
// w is not a terminal, or when noColor is set.
func NewPrinter(w io.Writer, noColor bool) *Printer {
	if w == nil {
		w = os.Stdout
	}
	if noColor || !isTerminal(w) {
		return &Printer{w: w, scheme: NoColorScheme()}
	}
	return &Printer{w: w, scheme: DefaultColorScheme()}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// PrintReport renders the per-label table and the run totals.
func (p *Printer) PrintReport(rep *collector.Report) {
	p.scheme.Header.Fprintln(p.w, "Run summary")
	fmt.Fprintf(p.w, "  elapsed: %s   requests: %d   failures: %d\n",
		rep.Elapsed.Round(time.Millisecond), rep.Total, rep.Failures)
	if rep.Dropped > 0 {
		p.scheme.Warning.Fprintf(p.w, "  dropped samples (collector queue full): %d\n", rep.Dropped)
	}
	fmt.Fprintln(p.w)

	fmt.Fprintf(p.w, "  %-34s %8s %8s %10s %10s %10s %10s\n",
		"label", "count", "fail", "p50", "p95", "p99", "max")
	p.scheme.Muted.Fprintf(p.w, "  %s\n", divider(94))

	for _, ls := range rep.Labels {
		verdict := p.scheme.Good
		if ls.Failures > 0 {
			verdict = p.scheme.Bad
		}
		fmt.Fprintf(p.w, "  %-34s %8d ", ls.Label, ls.Count)
		verdict.Fprintf(p.w, "%8d", ls.Failures)
		fmt.Fprintf(p.w, " %10s %10s %10s %10s\n",
			round(ls.P50), round(ls.P95), round(ls.P99), round(ls.Max))
	}

	fmt.Fprintln(p.w)
	if rep.Failures == 0 {
		p.scheme.Good.Fprintln(p.w, "  all requests classified successful")
	} else {
		rate := float64(rep.Failures) / float64(rep.Total) * 100
		p.scheme.Bad.Fprintf(p.w, "  %.1f%% of requests classified failed\n", rate)
	}
}

func round(d time.Duration) string {
	switch {
	case d >= time.Second:
		return d.Round(10 * time.Millisecond).String()
	case d >= time.Millisecond:
		return d.Round(100 * time.Microsecond).String()
	default:
		return d.String()
	}
}

func divider(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '-'
	}
	return string(b)
}
