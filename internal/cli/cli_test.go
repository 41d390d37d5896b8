package cli

import (
	"errors"
	"strings"
	"testing"

	"github.com/enfyra/server-sub005/internal/syncerr"
)

func usePlain(t *testing.T) {
	t.Helper()
	prev := Default()
	SetDefault(&Config{Mode: ModePlain})
	t.Cleanup(func() { SetDefault(prev) })
}

func TestPlainModePassthrough(t *testing.T) {
	usePlain(t)

	funcs := map[string]func(string) string{
		"Error":   Error,
		"Warning": Warning,
		"Success": Success,
		"Note":    Note,
		"Info":    Info,
		"Code":    Code,
		"Header":  Header,
		"Dim":     Dim,
		"SQL":     SQL,
	}
	for name, fn := range funcs {
		if got := fn("text"); got != "text" {
			t.Errorf("%s(%q) = %q in plain mode", name, "text", got)
		}
	}
}

func TestFormatErrorSyncError(t *testing.T) {
	usePlain(t)

	err := syncerr.New(syncerr.ErrNamingConflict, "column name collision").
		WithTable("order").
		WithColumn("customerId")

	got := FormatError(err)
	for _, want := range []string{
		"error[" + string(syncerr.ErrNamingConflict) + "]: column name collision",
		"table: order",
		"column: customerId",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("FormatError() missing %q:\n%s", want, got)
		}
	}
}

func TestFormatErrorWrapped(t *testing.T) {
	usePlain(t)

	cause := errors.New("connection refused")
	err := syncerr.Wrap(syncerr.ErrSQLExecution, cause, "executing ddl statement")

	got := FormatError(err)
	if !strings.Contains(got, "cause: connection refused") {
		t.Errorf("FormatError() missing cause:\n%s", got)
	}
}

func TestFormatErrorGeneric(t *testing.T) {
	usePlain(t)

	got := FormatError(errors.New("boom"))
	if got != "error: boom\n" {
		t.Errorf("FormatError() = %q", got)
	}
	if FormatError(nil) != "" {
		t.Error("FormatError(nil) should be empty")
	}
}

func TestTableRender(t *testing.T) {
	usePlain(t)

	tbl := NewTable("TABLE", "STATUS")
	tbl.AddRow("order", "3 statements")
	tbl.AddRow("user")

	got := tbl.String()
	lines := strings.Split(strings.TrimRight(got, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("table has %d lines, want 4:\n%s", len(lines), got)
	}
	if !strings.HasPrefix(lines[0], "TABLE") {
		t.Errorf("header line = %q", lines[0])
	}
	if !strings.Contains(lines[2], "order") || !strings.Contains(lines[2], "3 statements") {
		t.Errorf("row line = %q", lines[2])
	}
}

func TestRenderPlan(t *testing.T) {
	usePlain(t)

	stmts := []PlannedStatement{
		{SQL: "ALTER TABLE `order` ADD COLUMN `note` TEXT", Reverse: "ALTER TABLE `order` DROP COLUMN `note`"},
		{SQL: "ALTER TABLE `order` DROP COLUMN `legacy`"},
	}
	got := RenderPlan("order", stmts)

	if !strings.Contains(got, "1. ALTER TABLE `order` ADD COLUMN") {
		t.Errorf("plan missing first statement:\n%s", got)
	}
	if strings.Count(got, "irreversible") != 1 {
		t.Errorf("plan should flag exactly the drop as irreversible:\n%s", got)
	}
}

func TestRenderPlanEmpty(t *testing.T) {
	usePlain(t)

	got := RenderPlan("order", nil)
	if !strings.Contains(got, "(no changes)") {
		t.Errorf("RenderPlan() = %q", got)
	}
}

func TestRenderReverseHints(t *testing.T) {
	usePlain(t)

	if RenderReverseHints(nil) != "" {
		t.Error("no hints should render nothing")
	}

	got := RenderReverseHints([]string{"DROP INDEX a", "DROP COLUMN b"})
	idxA := strings.Index(got, "DROP INDEX a")
	idxB := strings.Index(got, "DROP COLUMN b")
	if idxA < 0 || idxB < 0 || idxA > idxB {
		t.Errorf("hints out of order:\n%s", got)
	}
}
