package report

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// LimitContent shortens s to at most n characters, marking the cut with "...".
// Fields built from unbounded text must pass through it; an oversized field is
// never split across embeds.
func LimitContent(n int, s string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n < 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// JoinUnique joins lines in first-seen order, collapsing repeats into one line
// annotated with the number of occurrences.
func JoinUnique(lines []string) string {
	counts := make(map[string]int, len(lines))
	order := make([]string, 0, len(lines))
	for _, l := range lines {
		if counts[l] == 0 {
			order = append(order, l)
		}
		counts[l]++
	}

	var b strings.Builder
	for i, l := range order {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l)
		if n := counts[l]; n > 1 {
			fmt.Fprintf(&b, " *(**%d** times)*", n)
		}
	}
	return b.String()
}

// ErrorKind names the type of the root cause of err, ignoring stack-trace
// wrappers. Anonymous errors from errors.New or fmt.Errorf are reported as
// "Error".
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	t := reflect.TypeOf(errors.Cause(err))
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch name := t.Name(); name {
	case "", "errorString", "wrapError", "wrapErrors", "joinError", "fundamental":
		return "Error"
	default:
		return name
	}
}

// StackTrace renders err with its recorded frames, if any.
func StackTrace(err error) string {
	return fmt.Sprintf("%+v", err)
}
