// Package console renders webdrive output in the Play command-line style,
// where every line starts with "~".
package console

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/sirupsen/logrus"
)

// Formatter is a logrus.Formatter producing "~ message" lines.
// Fields are appended as key=value pairs, which only shows up in verbose
// output since callers attach fields to debug entries.
type Formatter struct{}

// Format implements logrus.Formatter.
func (Formatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('~')
	if e.Level <= logrus.WarnLevel {
		b.WriteString(" ")
		b.WriteString(levelTag(e.Level))
	}
	if e.Message != "" {
		b.WriteByte(' ')
		b.WriteString(e.Message)
	}

	keys := make([]string, 0, len(e.Data))
	for k := range e.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Data[k])
	}

	b.WriteByte('\n')
	return b.Bytes(), nil
}

func levelTag(l logrus.Level) string {
	switch l {
	case logrus.WarnLevel:
		return "Warning:"
	default:
		return "Error:"
	}
}

// New returns a logger writing "~" lines to w.
// Debug entries are only emitted when verbose is set.
func New(w io.Writer, verbose bool) *logrus.Logger {
	lg := logrus.New()
	lg.SetOutput(w)
	lg.SetFormatter(Formatter{})
	lg.SetLevel(logrus.InfoLevel)
	if verbose {
		lg.SetLevel(logrus.DebugLevel)
	}
	return lg
}

// Discard returns a logger that drops everything. Useful as a default when
// callers do not supply one.
func Discard() *logrus.Logger {
	lg := logrus.New()
	lg.SetOutput(io.Discard)
	lg.SetFormatter(Formatter{})
	return lg
}
