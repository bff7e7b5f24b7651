package store

import (
	"strconv"
	"strings"
)

// WhereBuilder accumulates AND-joined conditions with positional arguments.
type WhereBuilder struct {
	dialect    Dialect
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder creates a builder numbering placeholders from 1.
func NewWhereBuilder(d Dialect) *WhereBuilder {
	return &WhereBuilder{dialect: d, argIndex: 1}
}

func (wb *WhereBuilder) placeholder() string {
	p := wb.dialect.Placeholder(wb.argIndex)
	wb.argIndex++
	return p
}

// Add appends "col = ?". Empty values are skipped.
func (wb *WhereBuilder) Add(col, value string) *WhereBuilder {
	if value == "" {
		return wb
	}
	wb.conditions = append(wb.conditions, col+" = "+wb.placeholder())
	wb.args = append(wb.args, value)
	return wb
}

// AddOp appends "col <op> ?" for any non-nil value.
func (wb *WhereBuilder) AddOp(col, op string, value any) *WhereBuilder {
	if value == nil {
		return wb
	}
	wb.conditions = append(wb.conditions, col+" "+op+" "+wb.placeholder())
	wb.args = append(wb.args, value)
	return wb
}

// NextArgIndex returns the number the next placeholder will get.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns the clause with a leading " WHERE ", or "" with nil args
// when no condition was added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// Dialect captures the SQL differences between the supported drivers.
type Dialect int

const (
	DialectPostgres Dialect = iota
	DialectSQLite
)

// Placeholder returns the positional parameter marker for argument n.
func (d Dialect) Placeholder(n int) string {
	if d == DialectSQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

func (d Dialect) String() string {
	if d == DialectSQLite {
		return "sqlite"
	}
	return "postgres"
}

// rebind rewrites "?" markers to the dialect's placeholders.
func (d Dialect) rebind(query string) string {
	if d == DialectSQLite {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 1
	for _, r := range query {
		if r == '?' {
			b.WriteString(d.Placeholder(n))
			n++
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// jsonText selects a JSON column as text.
func (d Dialect) jsonText(col string) string {
	if d == DialectPostgres {
		return col + "::text"
	}
	return col
}
