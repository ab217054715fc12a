package diag

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"modernc.org/token"
)

const (
	colorErr   = "\033[31m\033[1m"
	colorNote  = "\033[36m"
	colorBold  = "\033[1m"
	colorReset = "\033[0m"
)

// Renderer formats diagnostics for a terminal.
type Renderer struct {
	// File resolves positions. Without it only messages are printed.
	File *token.File
	// Source is the file content used for excerpts (optional).
	Source []byte
	// Color enables ANSI escapes.
	Color bool
}

// Position converts p to a line/column position, or the zero Position if p
// does not belong to the renderer's file.
func (r *Renderer) Position(p token.Pos) token.Position {
	if r.File == nil || !p.IsValid() {
		return token.Position{}
	}
	if int(p) < r.File.Base() || int(p) > r.File.Base()+r.File.Size() {
		return token.Position{}
	}
	return r.File.Position(p)
}

// Render writes every diagnostic of l followed by a summary line.
func (r *Renderer) Render(w io.Writer, l List) error {
	var buf bytes.Buffer
	for _, d := range l {
		r.renderOne(&buf, d)
	}
	if len(l) > 0 {
		noun := "errors"
		if len(l) == 1 {
			noun = "error"
		}
		fmt.Fprintf(&buf, "%s%d %s%s\n", r.c(colorBold), len(l), noun, r.c(colorReset))
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func (r *Renderer) renderOne(buf *bytes.Buffer, d Diagnostic) {
	pos := r.Position(d.Span.Start)
	fmt.Fprintf(buf, "%s: %serror[%s]%s: %s\n", pos, r.c(colorErr), d.Kind.Code(), r.c(colorReset), d.Message())
	r.excerpt(buf, d.Span)
	if d.Decl.IsValid() {
		decl := r.Position(d.Decl.Start)
		fmt.Fprintf(buf, "%s: %snote%s: `%s` declared immutable here\n", decl, r.c(colorNote), r.c(colorReset), d.Name)
		r.excerpt(buf, d.Decl)
	}
}

// excerpt prints the source line of s with a caret underline.
func (r *Renderer) excerpt(buf *bytes.Buffer, s Span) {
	if r.Source == nil {
		return
	}
	start := r.Position(s.Start)
	if !start.IsValid() {
		return
	}
	lineStart := start.Offset - (start.Column - 1)
	if lineStart < 0 || lineStart > len(r.Source) {
		return
	}
	line := r.Source[lineStart:]
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	width := 1
	if end := r.Position(s.End); end.IsValid() && end.Line == start.Line && end.Column > start.Column {
		width = end.Column - start.Column
	}
	fmt.Fprintf(buf, "    %s\n", line)
	fmt.Fprintf(buf, "    %s%s%s%s\n", strings.Repeat(" ", start.Column-1), r.c(colorErr), strings.Repeat("^", width), r.c(colorReset))
}

func (r *Renderer) c(code string) string {
	if !r.Color {
		return ""
	}
	return code
}
