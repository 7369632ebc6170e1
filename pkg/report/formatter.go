package report

import (
	"fmt"
	"strings"
	"time"
)

// Formatter defines the interface for formatting a Report.
type Formatter interface {
	// Format converts a Report to a formatted string.
	Format(r *Report) string
}

// FormatFunc is a function adapter for the Formatter interface.
type FormatFunc func(r *Report) string

// Format implements the Formatter interface.
func (f FormatFunc) Format(r *Report) string {
	return f(r)
}

// MarkdownOption configures a MarkdownFormatter.
type MarkdownOption func(*MarkdownFormatter)

// WithTranslator translates headings and labels.
func WithTranslator(t func(string) string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		if t != nil {
			f.t = t
		}
	}
}

// WithVersion adds the program version to the footer.
func WithVersion(v string) MarkdownOption {
	return func(f *MarkdownFormatter) {
		f.version = v
	}
}

// MarkdownFormatter renders a Report as a Markdown document.
type MarkdownFormatter struct {
	t       func(string) string
	version string
}

// NewMarkdownFormatter creates a formatter with English labels.
func NewMarkdownFormatter(opts ...MarkdownOption) *MarkdownFormatter {
	f := &MarkdownFormatter{t: func(s string) string { return s }}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format implements Formatter.
func (f *MarkdownFormatter) Format(r *Report) string {
	var b strings.Builder
	t := f.t

	fmt.Fprintf(&b, "# %s\n\n", t("Playback Report"))

	f.section(&b, "Source", [][2]string{
		{"Location", r.Source.Location},
		{"Codec", r.Source.Codec},
		{"Backend", r.Source.Backend},
	})

	f.section(&b, "Stream", [][2]string{
		{"Size", fmt.Sprintf("%dx%d", r.Stream.Width, r.Stream.Height)},
		{"Frame Rate", fmt.Sprintf("%.3f fps", r.Stream.FrameRate)},
		{"Duration", formatDuration(r.Stream.Duration)},
	})

	outcome := t("Stopped by user")
	switch {
	case r.Session.Error != "":
		outcome = t("Error") + ": " + r.Session.Error
	case r.Session.EndOfStream:
		outcome = t("End of stream")
	}
	f.section(&b, "Session", [][2]string{
		{"Elapsed", formatDuration(r.Session.Elapsed)},
		{"Final Position", formatDuration(r.Session.FinalPosition)},
		{"Outcome", outcome},
	})

	c := r.Counters
	f.section(&b, "Counters", [][2]string{
		{"Frames Decoded", fmt.Sprint(c.Decodes)},
		{"Frames Published", fmt.Sprint(c.Published)},
		{"Frames Dropped", fmt.Sprintf("%d (%.1f%%)", c.Dropped, c.DropRate()*100)},
		{"Seeks", fmt.Sprint(c.Seeks)},
		{"Draws", fmt.Sprint(c.Draws)},
		{"Texture Uploads", fmt.Sprint(c.Uploads)},
		{"Snapshots", fmt.Sprint(c.Snapshots)},
	})

	footer := fmt.Sprintf("%s %s", t("Generated at"), r.GeneratedAt.Format(time.RFC3339))
	if f.version != "" {
		footer += " by vidplay " + f.version
	}
	fmt.Fprintf(&b, "---\n\n%s\n", footer)
	return b.String()
}

func (f *MarkdownFormatter) section(b *strings.Builder, title string, rows [][2]string) {
	fmt.Fprintf(b, "## %s\n\n", f.t(title))
	fmt.Fprintf(b, "| %s | %s |\n|---|---|\n", f.t("Item"), f.t("Value"))
	for _, row := range rows {
		value := row[1]
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(b, "| %s | %s |\n", f.t(row[0]), strings.ReplaceAll(value, "|", `\|`))
	}
	b.WriteString("\n")
}

// formatDuration renders d as m:ss.mmm.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%d:%02d.%03d", ms/60000, ms/1000%60, ms%1000)
}
