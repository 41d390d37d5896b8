package cli

import (
	"fmt"
	"strings"
)

// Table renders aligned columnar output.
type Table struct {
	headers []string
	rows    [][]string
	widths  []int
}

// NewTable creates a table with the given headers.
func NewTable(headers ...string) *Table {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	return &Table{headers: headers, widths: widths}
}

// AddRow appends a row, padding short rows with empty cells.
func (t *Table) AddRow(cells ...string) {
	for len(cells) < len(t.headers) {
		cells = append(cells, "")
	}
	for i, cell := range cells {
		if i < len(t.widths) && len(cell) > t.widths[i] {
			t.widths[i] = len(cell)
		}
	}
	t.rows = append(t.rows, cells)
}

// String renders the table.
func (t *Table) String() string {
	if len(t.headers) == 0 {
		return ""
	}

	var b strings.Builder
	for i, h := range t.headers {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(Header(padRight(h, t.widths[i])))
	}
	b.WriteString("\n")

	for i, w := range t.widths {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(Dim(strings.Repeat("─", w)))
	}
	b.WriteString("\n")

	for _, row := range t.rows {
		for i, cell := range row {
			if i >= len(t.widths) {
				break
			}
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(padRight(cell, t.widths[i]))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}

// PlannedStatement is one DDL statement in a plan preview, with its reverse
// statement when one exists.
type PlannedStatement struct {
	SQL     string `json:"sql"`
	Reverse string `json:"reverse,omitempty"`
}

// RenderPlan formats a table's planned statements. Irreversible statements
// are flagged so the operator can snapshot before applying.
func RenderPlan(table string, stmts []PlannedStatement) string {
	var b strings.Builder
	b.WriteString(Header(table))
	if len(stmts) == 0 {
		b.WriteString(Dim("  (no changes)"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString("\n")

	for i, s := range stmts {
		b.WriteString(fmt.Sprintf("  %s %s\n", Dim(fmt.Sprintf("%d.", i+1)), SQL(s.SQL)))
		if s.Reverse == "" {
			b.WriteString("     " + Warning("irreversible") + "\n")
		}
	}
	return b.String()
}

// RenderReverseHints formats the manual-rollback statements left behind by a
// partially applied batch, most recent change first.
func RenderReverseHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(Warning("partially applied") + "; to roll back by hand, run in order:\n")
	for _, h := range hints {
		b.WriteString("  " + SQL(h) + "\n")
	}
	return b.String()
}
