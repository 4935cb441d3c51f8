// Package display renders human-facing command output. Color is applied
// only when writing to a terminal that supports it; plain output is kept
// stable for scripting.
package display

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"

	"sam-backup/internal/archive"
)

// Printer writes formatted summaries for CLI commands
type Printer struct {
	out     io.Writer
	colored bool

	success *color.Color
	warning *color.Color
	failure *color.Color
	accent  *color.Color
	muted   *color.Color
}

// NewPrinter creates a printer for the given writer. Color support is
// detected from the writer and environment; NO_COLOR always disables it.
func NewPrinter(out io.Writer) *Printer {
	return newPrinter(out, detectColorSupport(out))
}

// NewPlainPrinter creates a printer that never emits color codes
func NewPlainPrinter(out io.Writer) *Printer {
	return newPrinter(out, false)
}

func newPrinter(out io.Writer, colored bool) *Printer {
	p := &Printer{
		out:     out,
		colored: colored,
		success: color.New(color.FgGreen),
		warning: color.New(color.FgYellow),
		failure: color.New(color.FgRed, color.Bold),
		accent:  color.New(color.FgCyan),
		muted:   color.New(color.Faint),
	}
	if !colored {
		for _, c := range []*color.Color{p.success, p.warning, p.failure, p.accent, p.muted} {
			c.DisableColor()
		}
	}
	return p
}

func detectColorSupport(out io.Writer) bool {
	file, ok := out.(*os.File)
	if !ok {
		return false
	}
	if !isatty.IsTerminal(file.Fd()) && !isatty.IsCygwinTerminal(file.Fd()) {
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return termenv.ColorProfile() != termenv.Ascii
}

// ExportSummary reports a completed export
func (p *Printer) ExportSummary(destination string, people, contexts, evidence, blobSize int, elapsed time.Duration) {
	fmt.Fprintf(p.out, "%s Backup written to %s\n",
		p.success.Sprint("✓"), p.accent.Sprint(destination))
	fmt.Fprintf(p.out, "  people: %d  contexts: %d  evidence: %d\n", people, contexts, evidence)
	fmt.Fprintf(p.out, "  %s\n",
		p.muted.Sprintf("%s encrypted, %s", formatSize(int64(blobSize)), elapsed.Round(time.Millisecond)))
}

// ImportSummary reports a completed import
func (p *Printer) ImportSummary(source string, people, contexts, evidence int, elapsed time.Duration) {
	fmt.Fprintf(p.out, "%s Backup restored from %s\n",
		p.success.Sprint("✓"), p.accent.Sprint(source))
	fmt.Fprintf(p.out, "  people: %d  contexts: %d  evidence: %d\n", people, contexts, evidence)
	fmt.Fprintf(p.out, "  %s\n", p.muted.Sprint(elapsed.Round(time.Millisecond).String()))
}

// ArchiveList renders stored archive metadata, newest first
func (p *Printer) ArchiveList(metas []*archive.Metadata) {
	if len(metas) == 0 {
		fmt.Fprintln(p.out, p.muted.Sprint("no archives stored"))
		return
	}

	for _, meta := range metas {
		fmt.Fprintf(p.out, "%s  %s  %s",
			p.accent.Sprint(meta.Name),
			meta.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			formatSize(meta.BlobSize))
		if meta.Compression != "" && meta.Compression != archive.CompressionTypeNone {
			fmt.Fprintf(p.out, "  %s", p.muted.Sprintf("(%s, %s stored)",
				meta.Compression, formatSize(meta.StoredSize)))
		}
		fmt.Fprintln(p.out)
	}
}

// Warning prints a highlighted warning line
func (p *Printer) Warning(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "%s %s\n", p.warning.Sprint("!"), fmt.Sprintf(format, args...))
}

// Error prints a highlighted error line
func (p *Printer) Error(format string, args ...interface{}) {
	fmt.Fprintf(p.out, "%s %s\n", p.failure.Sprint("✗"), fmt.Sprintf(format, args...))
}

func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}
