package repository

import (
	"fmt"
	"strings"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

// whereBuilder accumulates AND-ed predicates with positional placeholders.
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

// bind registers arg and returns its placeholder.
func (w *whereBuilder) bind(arg interface{}) string {
	w.args = append(w.args, arg)
	return fmt.Sprintf("$%d", len(w.args))
}

// raw appends a predicate whose placeholders were obtained from bind.
func (w *whereBuilder) raw(clause string) {
	w.clauses = append(w.clauses, clause)
}

// add appends a predicate. Every %s in clause is replaced by the placeholder
// of arg, so a value referenced twice is bound once.
func (w *whereBuilder) add(clause string, arg interface{}) {
	w.raw(strings.ReplaceAll(clause, "%s", w.bind(arg)))
}

// addWindow binds the inclusive bounds of window on column.
func (w *whereBuilder) addWindow(column string, window models.Window) {
	w.add(column+" >= %s", window.Start)
	w.add(column+" <= %s", window.End)
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}
