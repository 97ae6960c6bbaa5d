// Package filter decides which process rows are shown for a given filter text.
//
// Plain text is matched as a case-insensitive substring of the process name
// or its decimal PID. Text beginning with "expr:" is compiled as a boolean
// expression over the row's fields, for example:
//
//	expr: cpu > 5 && user == "root"
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"golang.org/x/text/cases"
)

// ExprPrefix marks filter text as an expression.
const ExprPrefix = "expr:"

// Example is the expression shown in help text and the filter bar.
const Example = `expr: cpu > 5 && user == "root"`

// Row holds the fields a filter can test.
type Row struct {
	PID    int
	PPID   int
	Name   string
	User   string
	State  string
	CPU    float64
	HasCPU bool
	Memory uint64
}

// Matcher tests rows against one compiled filter. A Matcher is not safe for
// concurrent use; compile one per assembly pass.
type Matcher interface {
	Match(Row) bool
}

// Compile builds a Matcher for text. An expression that fails to compile
// yields a substring matcher over the full text together with the compile
// error, so callers always get a usable Matcher.
func Compile(text string) (Matcher, error) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, ExprPrefix) {
		return NewSubstring(text), nil
	}

	source := strings.TrimSpace(strings.TrimPrefix(trimmed, ExprPrefix))
	if source == "" {
		return NewSubstring(""), nil
	}
	m, err := newExprMatcher(source)
	if err != nil {
		return NewSubstring(text), err
	}
	return m, nil
}

// Substring matches when the folded needle occurs in the folded name or the
// decimal PID. An empty needle matches every row.
type Substring struct {
	needle string
	caser  cases.Caser
}

// NewSubstring creates a Substring matcher for text.
func NewSubstring(text string) *Substring {
	caser := cases.Fold()
	return &Substring{needle: caser.String(text), caser: caser}
}

// Match implements Matcher.
func (s *Substring) Match(r Row) bool {
	if s.needle == "" {
		return true
	}
	if strings.Contains(strconv.Itoa(r.PID), s.needle) {
		return true
	}
	return strings.Contains(s.caser.String(r.Name), s.needle)
}

type exprMatcher struct {
	program *vm.Program
}

// exprEnv declares the variables an expression may reference. owner is an
// alias of user, after the OWNER column.
func exprEnv() map[string]interface{} {
	return map[string]interface{}{
		"pid":     0,
		"ppid":    0,
		"name":    "",
		"user":    "",
		"owner":   "",
		"state":   "",
		"cpu":     0.0,
		"has_cpu": false,
		"mem":     0,
	}
}

func newExprMatcher(source string) (*exprMatcher, error) {
	program, err := expr.Compile(source, expr.Env(exprEnv()), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling filter expression %q: %w", source, err)
	}
	return &exprMatcher{program: program}, nil
}

// Match implements Matcher. A runtime evaluation error rejects the row.
func (m *exprMatcher) Match(r Row) bool {
	env := map[string]interface{}{
		"pid":     r.PID,
		"ppid":    r.PPID,
		"name":    r.Name,
		"user":    r.User,
		"owner":   r.User,
		"state":   r.State,
		"cpu":     r.CPU,
		"has_cpu": r.HasCPU,
		"mem":     int(r.Memory),
	}
	out, err := expr.Run(m.program, env)
	if err != nil {
		return false
	}
	ok, _ := out.(bool)
	return ok
}
