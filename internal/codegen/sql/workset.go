package sql

import "fmt"

// WorksetBuilder assembles the begin/add/end sequence of statements used to
// populate a scenario's parameter overrides, enumerating every cell of a
// multi-dimensional parameter with the innermost dimension moving fastest
// (an odometer: the rightmost "digit" increments every step, carrying into
// its left neighbor only when it wraps).
type WorksetBuilder struct {
	gen       Generator
	name      string
	statements []string
}

// BeginWorkset opens a new workset named name.
func BeginWorkset(gen Generator, name string) *WorksetBuilder {
	w := &WorksetBuilder{gen: gen, name: name}
	w.statements = append(w.statements, fmt.Sprintf(
		"INSERT INTO workset_lst (set_name) SELECT %s WHERE NOT EXISTS (SELECT 1 FROM workset_lst WHERE set_name = %s);\n",
		gen.QuoteString(name), gen.QuoteString(name)))
	return w
}

// AddWorksetParameter enumerates every cell of a dims-shaped parameter in
// odometer order (innermost dimension, the last entry of dims, incrementing
// fastest) and emits one parameter-value row per cell via valueAt(indices).
func (w *WorksetBuilder) AddWorksetParameter(paramName string, dims []int, valueAt func(indices []int) string) {
	if len(dims) == 0 {
		w.statements = append(w.statements, w.insertCellStatement(paramName, nil, valueAt(nil)))
		return
	}

	indices := make([]int, len(dims))
	for {
		cell := make([]int, len(indices))
		copy(cell, indices)
		w.statements = append(w.statements, w.insertCellStatement(paramName, cell, valueAt(cell)))

		// Advance the odometer: innermost (last) dimension fastest.
		pos := len(dims) - 1
		for pos >= 0 {
			indices[pos]++
			if indices[pos] < dims[pos] {
				break
			}
			indices[pos] = 0
			pos--
		}
		if pos < 0 {
			break
		}
	}
}

func (w *WorksetBuilder) insertCellStatement(paramName string, indices []int, value string) string {
	columns := []string{"set_name", "param_name"}
	values := []string{w.gen.QuoteString(w.name), w.gen.QuoteString(paramName)}
	for i, idx := range indices {
		columns = append(columns, fmt.Sprintf("dim%d", i))
		values = append(values, fmt.Sprintf("%d", idx))
	}
	columns = append(columns, "param_value")
	values = append(values, value)
	return w.gen.UpsertIfAbsent("workset_parameter_value", columns, values, append([]string{"set_name", "param_name"}, columnsFor(indices)...))
}

func columnsFor(indices []int) []string {
	cols := make([]string, len(indices))
	for i := range indices {
		cols[i] = fmt.Sprintf("dim%d", i)
	}
	return cols
}

// EndWorkset finalizes the workset and returns the full statement sequence.
func (w *WorksetBuilder) EndWorkset() []string {
	w.statements = append(w.statements, fmt.Sprintf(
		"UPDATE workset_lst SET is_readonly = 1 WHERE set_name = %s;\n", w.gen.QuoteString(w.name)))
	return w.statements
}
