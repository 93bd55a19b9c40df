// Package report renders a batch.Report or engine.RunReport as human-facing
// terminal output: a color-highlighted summary line plus a go-pretty table
// of per-file counts, with color disabled automatically on a non-terminal
// writer.
package report

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"

	"CDRGo/internal/batch"
	"CDRGo/internal/engine"
)

// Printer renders run reports to an io.Writer, adapting color use to
// whether that writer is an interactive terminal.
type Printer struct {
	w        io.Writer
	useColor bool
}

// NewPrinter builds a Printer for w. Color is auto-detected from w when w
// is an *os.File; any other writer gets plain text.
func NewPrinter(w io.Writer) *Printer {
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Printer{w: w, useColor: useColor}
}

// ForceColor overrides auto-detection, matching the --color/--no-color
// pattern of forcing a library-global on or off around a single render.
func (p *Printer) ForceColor(on bool) {
	p.useColor = on
}

// PrintBatch renders the aggregate outcome of a multi-file run: a summary
// line followed by one table row per input file.
func (p *Printer) PrintBatch(r batch.Report) {
	prevNoColor := color.NoColor
	color.NoColor = !p.useColor
	defer func() { color.NoColor = prevNoColor }()

	if r.RunID != "" {
		fmt.Fprintf(p.w, "%s %s\n", color.CyanString("run"), r.RunID)
	}
	p.printSummaryLine("totals", r.Totals)

	files := make([]string, 0, len(r.PerFile))
	for f := range r.PerFile {
		files = append(files, f)
	}
	sort.Strings(files)

	tbl := table.NewWriter()
	tbl.SetOutputMirror(p.w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"File", "Records", "Calls", "T2T Splits", "Suppressed", "Parse Failures", "Unknown Endpoints"})
	for _, f := range files {
		rr := r.PerFile[f]
		tbl.AppendRow(table.Row{
			f,
			humanize.Comma(int64(rr.RecordsParsed)),
			humanize.Comma(int64(rr.CallsEmitted)),
			humanize.Comma(int64(rr.TrunkToTrunkSplit)),
			humanize.Comma(int64(len(rr.Suppressed))),
			humanize.Comma(int64(len(rr.ParseFailures))),
			humanize.Comma(int64(len(rr.UnknownEndpoints))),
		})
	}
	tbl.AppendFooter(table.Row{"TOTAL",
		humanize.Comma(int64(r.Totals.RecordsParsed)),
		humanize.Comma(int64(r.Totals.CallsEmitted)),
		humanize.Comma(int64(r.Totals.TrunkToTrunkSplit)),
		humanize.Comma(int64(len(r.Totals.Suppressed))),
		humanize.Comma(int64(len(r.Totals.ParseFailures))),
		humanize.Comma(int64(len(r.Totals.UnknownEndpoints))),
	})
	tbl.Render()

	if len(r.Totals.UnknownEndpoints) > 0 {
		p.printUnknownEndpoints(r.Totals.UnknownEndpoints)
	}
}

// PrintRun renders a single-file RunReport, for hosts that never batch.
func (p *Printer) PrintRun(file string, r engine.RunReport) {
	prevNoColor := color.NoColor
	color.NoColor = !p.useColor
	defer func() { color.NoColor = prevNoColor }()

	p.printSummaryLine(file, r)
	if len(r.UnknownEndpoints) > 0 {
		p.printUnknownEndpoints(r.UnknownEndpoints)
	}
}

func (p *Printer) printSummaryLine(label string, r engine.RunReport) {
	status := color.GreenString("ok")
	if r.Aborted || len(r.ParseFailures) > 0 {
		status = color.YellowString("warnings")
	}
	fmt.Fprintf(p.w, "%s [%s]: %s records, %s calls emitted, %s suppressed, %s parse failures\n",
		color.CyanString(label),
		status,
		humanize.Comma(int64(r.RecordsParsed)),
		humanize.Comma(int64(r.CallsEmitted)),
		humanize.Comma(int64(len(r.Suppressed))),
		humanize.Comma(int64(len(r.ParseFailures))),
	)
}

func (p *Printer) printUnknownEndpoints(names []string) {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)
	fmt.Fprintf(p.w, "%s (%d):\n", color.RedString("unrecognized endpoints"), len(sorted))
	for _, n := range sorted {
		fmt.Fprintf(p.w, "  - %s\n", n)
	}
}
