package sqlgen

import (
	"context"
	"strings"
	"testing"

	"github.com/enfyra/server-sub005/internal/dialect"
	"github.com/enfyra/server-sub005/internal/diff"
	"github.com/enfyra/server-sub005/internal/schema"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

func mustDialect(t *testing.T, name string) dialect.Dialect {
	t.Helper()
	d, err := dialect.Get(name)
	if err != nil {
		t.Fatalf("dialect.Get(%q) error = %v", name, err)
	}
	return d
}

func indexOf(t *testing.T, stmts []Statement, substr string) int {
	t.Helper()
	for i, s := range stmts {
		if strings.Contains(s.SQL, substr) {
			return i
		}
	}
	t.Fatalf("no statement contains %q in %v", substr, sqls(stmts))
	return -1
}

func sqls(stmts []Statement) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.SQL
	}
	return out
}

func TestGenerateOrdering(t *testing.T) {
	// A diff that exercises every phase: rename before delete, delete before
	// create, constraints after column work, junction drop after create.
	d := &diff.SchemaDiff{
		TableName:   "order",
		TableRename: &diff.Rename{From: "orders", To: "order"},
		Columns: diff.ColumnDelta{
			Rename: []diff.Rename{{From: "total", To: "amount"}},
			Delete: []diff.ColumnDelete{{Name: "legacy"}},
			Create: []diff.ColumnCreate{{Column: schema.ColumnDescription{Name: "note", Type: schema.TypeText}}},
		},
		Constraints: diff.ConstraintDelta{
			Indexes: diff.GroupDelta{Create: [][]string{{"note"}}},
		},
		Junctions: diff.JunctionDelta{
			Create: []diff.JunctionSpec{{
				Name: "order_tags_tag", SourceTable: "order", TargetTable: "tag",
				SourceColumn: "orderId", TargetColumn: "tagId",
				SourceKey: schema.KeyInteger, TargetKey: schema.KeyInteger,
			}},
			Drop: []string{"order_labels_label"},
		},
	}

	stmts, err := New(mustDialect(t, "mysql"), nil).Generate(context.Background(), d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	tableRename := indexOf(t, stmts, "RENAME TABLE")
	colRename := indexOf(t, stmts, "RENAME COLUMN")
	colDelete := indexOf(t, stmts, "DROP COLUMN")
	colCreate := indexOf(t, stmts, "ADD COLUMN")
	index := indexOf(t, stmts, "CREATE INDEX")
	junctionCreate := indexOf(t, stmts, "CREATE TABLE")
	junctionDrop := indexOf(t, stmts, "DROP TABLE")

	order := []int{tableRename, colRename, colDelete, colCreate, index, junctionCreate, junctionDrop}
	for i := 1; i < len(order); i++ {
		if order[i-1] >= order[i] {
			t.Fatalf("statement order violated at position %d: %v", i, sqls(stmts))
		}
	}
}

func TestGenerateDropsFKBeforeColumn(t *testing.T) {
	d := &diff.SchemaDiff{
		TableName: "order",
		Columns: diff.ColumnDelta{
			Delete: []diff.ColumnDelete{{Name: "customerId", IsForeignKey: true}},
		},
	}

	stmts, err := New(mustDialect(t, "mysql"), nil).Generate(context.Background(), d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("got %d statements, want 2: %v", len(stmts), sqls(stmts))
	}
	if !strings.Contains(stmts[0].SQL, "DROP FOREIGN KEY `fk_order_customerId`") {
		t.Errorf("first statement = %q, want FK drop with conventional name", stmts[0].SQL)
	}
	if !strings.Contains(stmts[1].SQL, "DROP COLUMN") {
		t.Errorf("second statement = %q, want column drop", stmts[1].SQL)
	}
}

type staticLookup struct{ name string }

func (l staticLookup) ForeignKeyName(context.Context, string, string) (string, error) {
	return l.name, nil
}

func TestGenerateUsesIntrospectedFKName(t *testing.T) {
	d := &diff.SchemaDiff{
		TableName: "order",
		Columns: diff.ColumnDelta{
			Delete: []diff.ColumnDelete{{Name: "customerId", IsForeignKey: true}},
		},
	}

	stmts, err := New(mustDialect(t, "postgres"), staticLookup{name: "order_customerid_fkey"}).Generate(context.Background(), d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(stmts[0].SQL, `"order_customerid_fkey"`) {
		t.Errorf("statement = %q, want introspected constraint name", stmts[0].SQL)
	}
}

func TestGenerateSkipsFKDropWhenNoConstraint(t *testing.T) {
	// A live lookup reporting no constraint means there is nothing to drop:
	// the column drop proceeds alone and a recreate degrades to a plain add.
	d := &diff.SchemaDiff{
		TableName: "order",
		Columns: diff.ColumnDelta{
			Delete: []diff.ColumnDelete{{Name: "legacyId", IsForeignKey: true}},
		},
		ForeignKeys: diff.FKDelta{
			Recreate: []diff.FKRecreate{{
				Table:  "order",
				Column: "customerId",
				Ref: diff.ForeignKeyRef{
					TargetTable: "user", TargetColumn: "id",
					KeyType: schema.KeyInteger, OnDelete: "RESTRICT",
				},
			}},
		},
	}

	stmts, err := New(mustDialect(t, "mysql"), staticLookup{name: ""}).Generate(context.Background(), d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, s := range stmts {
		if strings.Contains(s.SQL, "DROP FOREIGN KEY") {
			t.Errorf("emitted a constraint drop with no constraint present: %q", s.SQL)
		}
	}
	if i := indexOf(t, stmts, "DROP COLUMN"); stmts[i].SQL == "" {
		t.Fatal("column drop missing")
	}
	add := stmts[indexOf(t, stmts, "ADD CONSTRAINT")]
	if !strings.Contains(add.SQL, "fk_order_customerId") || add.Reverse == "" {
		t.Errorf("recreate add = %+v, want conventional name with a reverse", add)
	}
}

func TestGenerateFKColumnCreate(t *testing.T) {
	d := &diff.SchemaDiff{
		TableName: "order",
		Columns: diff.ColumnDelta{
			Create: []diff.ColumnCreate{{
				Column: schema.ColumnDescription{Name: "customerId", Type: schema.TypeUUID, IsNullable: true},
				Ref: &diff.ForeignKeyRef{
					TargetTable: "user", TargetColumn: "id",
					KeyType: schema.KeyUUID, IsNullable: true, OnDelete: "SET NULL",
				},
			}},
		},
	}

	stmts, err := New(mustDialect(t, "mysql"), nil).Generate(context.Background(), d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(stmts) != 2 {
		t.Fatalf("got %d statements, want add column + add FK: %v", len(stmts), sqls(stmts))
	}
	if !strings.Contains(stmts[0].SQL, "VARCHAR(36)") {
		t.Errorf("FK column type = %q, must match the uuid key", stmts[0].SQL)
	}
	if strings.Contains(stmts[0].SQL, "INT ") || strings.Contains(stmts[0].SQL, " INT,") {
		t.Errorf("uuid-keyed FK column declared as INT: %q", stmts[0].SQL)
	}
	if !strings.Contains(stmts[1].SQL, "ON DELETE SET NULL") || !strings.Contains(stmts[1].SQL, "ON UPDATE CASCADE") {
		t.Errorf("FK clause = %q, want ON DELETE SET NULL and ON UPDATE CASCADE", stmts[1].SQL)
	}
	if stmts[1].Reverse == "" {
		t.Error("add-FK statement has no reverse")
	}
}

func TestGenerateSQLiteInlineFK(t *testing.T) {
	d := &diff.SchemaDiff{
		TableName: "order",
		Columns: diff.ColumnDelta{
			Create: []diff.ColumnCreate{{
				Column: schema.ColumnDescription{Name: "customerId", Type: schema.TypeInt, IsNullable: true},
				Ref: &diff.ForeignKeyRef{
					TargetTable: "user", TargetColumn: "id",
					KeyType: schema.KeyInteger, IsNullable: true, OnDelete: "SET NULL",
				},
			}},
		},
	}

	stmts, err := New(mustDialect(t, "sqlite"), nil).Generate(context.Background(), d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("got %d statements, want a single inline-FK add: %v", len(stmts), sqls(stmts))
	}
	if !strings.Contains(stmts[0].SQL, `REFERENCES "user" ("id")`) {
		t.Errorf("statement = %q, want inline REFERENCES clause", stmts[0].SQL)
	}
}

func TestGenerateSkipsUpdateOfRenamedColumn(t *testing.T) {
	d := &diff.SchemaDiff{
		TableName: "order",
		Columns: diff.ColumnDelta{
			Rename: []diff.Rename{{From: "total", To: "amount"}},
			Update: []diff.ColumnUpdate{{
				Column:  schema.ColumnDescription{Name: "amount", Type: schema.TypeDecimal},
				OldType: schema.TypeInt,
			}},
		},
	}

	stmts, err := New(mustDialect(t, "mysql"), nil).Generate(context.Background(), d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for _, s := range stmts {
		if strings.Contains(s.SQL, "MODIFY COLUMN") {
			t.Errorf("renamed column also received an update: %q", s.SQL)
		}
	}
}

func TestGenerateSQLiteModifyColumnFails(t *testing.T) {
	d := &diff.SchemaDiff{
		TableName: "order",
		Columns: diff.ColumnDelta{
			Update: []diff.ColumnUpdate{{
				Column:  schema.ColumnDescription{Name: "amount", Type: schema.TypeDecimal},
				OldType: schema.TypeInt,
			}},
		},
	}

	_, err := New(mustDialect(t, "sqlite"), nil).Generate(context.Background(), d)
	if !syncerr.Is(err, syncerr.ErrSQLiteAlterColumn) {
		t.Errorf("Generate() error = %v, want %s", err, syncerr.ErrSQLiteAlterColumn)
	}
}

func TestJunctionTableSQL(t *testing.T) {
	g := New(mustDialect(t, "postgres"), nil)
	sql := g.JunctionTableSQL(&diff.JunctionSpec{
		Name: "order_customers_user", SourceTable: "order", TargetTable: "user",
		SourceColumn: "orderId", TargetColumn: "userId",
		SourceKey: schema.KeyInteger, TargetKey: schema.KeyUUID,
	})

	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "order_customers_user"`,
		`"orderId" INTEGER NOT NULL`,
		`"userId" UUID NOT NULL`,
		`ON DELETE CASCADE`,
		`UNIQUE ("orderId", "userId")`,
	} {
		if !strings.Contains(sql, want) {
			t.Errorf("junction SQL missing %q:\n%s", want, sql)
		}
	}
}

func TestGenerateReversesRenames(t *testing.T) {
	d := &diff.SchemaDiff{
		TableName: "order",
		Columns: diff.ColumnDelta{
			Rename: []diff.Rename{{From: "total", To: "amount"}},
			Delete: []diff.ColumnDelete{{Name: "legacy"}},
		},
	}

	stmts, err := New(mustDialect(t, "postgres"), nil).Generate(context.Background(), d)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	rename := stmts[indexOf(t, stmts, "RENAME COLUMN")]
	if !strings.Contains(rename.Reverse, `"amount" TO "total"`) {
		t.Errorf("rename reverse = %q, want the inverse rename", rename.Reverse)
	}
	drop := stmts[indexOf(t, stmts, "DROP COLUMN")]
	if drop.Reverse != "" {
		t.Errorf("drop reverse = %q, drops are irreversible", drop.Reverse)
	}
}
