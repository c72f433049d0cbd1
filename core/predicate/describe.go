package predicate

import (
	"fmt"
	"strings"
)

// Describe renders a predicate tree as a single line, e.g.
// `(category eq "Electronics" AND stock gt 0)`. Leaves print through their
// String method when they have one.
func Describe[T any](p Predicate[T]) string {
	var sb strings.Builder
	describe(&sb, p)
	return sb.String()
}

func describe[T any](sb *strings.Builder, p Predicate[T]) {
	if isNil(p) {
		sb.WriteString("<nil>")
		return
	}
	if w, ok := p.(Wrapper[T]); ok {
		describe(sb, w.Unwrap())
		return
	}

	c, ok := p.(Composite[T])
	if !ok {
		if s, ok := p.(fmt.Stringer); ok {
			sb.WriteString(s.String())
			return
		}
		fmt.Fprintf(sb, "%T", p)
		return
	}

	children := c.Children()
	if c.Connective() == ConnectiveNot {
		sb.WriteString("NOT ")
		describe(sb, children[0])
		return
	}

	sb.WriteByte('(')
	for i, child := range children {
		if i > 0 {
			sb.WriteString(" " + c.Connective() + " ")
		}
		describe(sb, child)
	}
	sb.WriteByte(')')
}
