package doc

import (
	"fmt"
	"strings"

	"github.com/rubiojr/capcheck/methods"
)

// FormatExplanation formats an explanation for terminal display.
func FormatExplanation(e Explanation) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n\n", e.Kind.Code(), e.Summary)
	sb.WriteString(e.Body)
	sb.WriteString("\n")
	if e.Bad != "" {
		sb.WriteString("\nErroneous example:\n\n")
		sb.WriteString(indent(e.Bad))
	}
	if e.Good != "" {
		sb.WriteString("\nFixed:\n\n")
		sb.WriteString(indent(e.Good))
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// FormatIndex formats the one-line summary of every explanation.
func FormatIndex(es []Explanation) string {
	var sb strings.Builder
	for _, e := range es {
		fmt.Fprintf(&sb, "%s  %-40s %s\n", e.Kind.Code(), e.Kind, e.Summary)
	}
	return sb.String()
}

// FormatMethods formats the signatures of t, one per line, followed by the
// doc of each documented method.
func FormatMethods(t *methods.Table) string {
	var sb strings.Builder
	for _, name := range t.Names() {
		s, _ := t.Lookup(name)
		fmt.Fprintf(&sb, "fn %s(%s)  [%s]\n", s.Name, s.Receiver, s.Source)
		if s.Doc != "" {
			sb.WriteString("    ")
			sb.WriteString(strings.ReplaceAll(s.Doc, "\n", "\n    "))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func indent(s string) string {
	var sb strings.Builder
	for _, line := range strings.Split(s, "\n") {
		sb.WriteString("    ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	return sb.String()
}
