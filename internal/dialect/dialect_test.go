package dialect

import (
	"strings"
	"testing"

	"github.com/enfyra/server-sub005/internal/schema"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

func TestGet(t *testing.T) {
	for _, name := range []string{"mysql", "postgres", "sqlite"} {
		d, err := Get(name)
		if err != nil {
			t.Errorf("Get(%q) error = %v", name, err)
			continue
		}
		if d.Name() != name {
			t.Errorf("Get(%q).Name() = %q", name, d.Name())
		}
	}

	if _, err := Get("oracle"); !syncerr.Is(err, syncerr.ErrUnsupportedDialectName) {
		t.Errorf("Get(oracle) error = %v, want %s", err, syncerr.ErrUnsupportedDialectName)
	}
}

func TestQuoteIdent(t *testing.T) {
	tests := []struct {
		dialect string
		name    string
		want    string
	}{
		{"mysql", "order", "`order`"},
		{"mysql", "we`ird", "`we``ird`"},
		{"postgres", "order", `"order"`},
		{"sqlite", `we"ird`, `"we""ird"`},
	}

	for _, tt := range tests {
		t.Run(tt.dialect+"/"+tt.name, func(t *testing.T) {
			d, err := Get(tt.dialect)
			if err != nil {
				t.Fatal(err)
			}
			if got := d.QuoteIdent(tt.name); got != tt.want {
				t.Errorf("QuoteIdent(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestCompileColumn(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
		col     schema.ColumnDescription
		want    []string
	}{
		{
			name:    "mysql varchar default length",
			dialect: "mysql",
			col:     schema.ColumnDescription{Name: "title", Type: schema.TypeVarchar},
			want:    []string{"`title` VARCHAR(255) NOT NULL"},
		},
		{
			name:    "mysql uuid stored as varchar",
			dialect: "mysql",
			col:     schema.ColumnDescription{Name: "ref", Type: schema.TypeUUID, IsNullable: true},
			want:    []string{"`ref` VARCHAR(36)"},
		},
		{
			name:    "mysql boolean default uses numeric literal",
			dialect: "mysql",
			col:     schema.ColumnDescription{Name: "active", Type: schema.TypeBoolean, DefaultValue: true},
			want:    []string{"TINYINT(1)", "DEFAULT 1"},
		},
		{
			name:    "postgres boolean default uses word literal",
			dialect: "postgres",
			col:     schema.ColumnDescription{Name: "active", Type: schema.TypeBoolean, DefaultValue: true},
			want:    []string{"BOOLEAN", "DEFAULT TRUE"},
		},
		{
			name:    "postgres string default is quoted",
			dialect: "postgres",
			col:     schema.ColumnDescription{Name: "status", Type: schema.TypeVarchar, DefaultValue: "it's"},
			want:    []string{"DEFAULT 'it''s'"},
		},
		{
			name:    "postgres expression default is raw",
			dialect: "postgres",
			col:     schema.ColumnDescription{Name: "createdAt", Type: schema.TypeTimestamp, DefaultValue: schema.Expr("CURRENT_TIMESTAMP")},
			want:    []string{"DEFAULT CURRENT_TIMESTAMP"},
		},
		{
			name:    "mysql enum is native",
			dialect: "mysql",
			col: schema.ColumnDescription{
				Name: "state", Type: schema.TypeEnum,
				Options: schema.ColumnOptions{EnumValues: []string{"new", "done"}},
			},
			want: []string{"ENUM('new', 'done')"},
		},
		{
			name:    "postgres enum is varchar with check",
			dialect: "postgres",
			col: schema.ColumnDescription{
				Name: "state", Type: schema.TypeEnum,
				Options: schema.ColumnOptions{EnumValues: []string{"new", "done"}},
			},
			want: []string{"VARCHAR(255)", `CHECK ("state" IN ('new', 'done'))`, "chk_task_state_enum"},
		},
		{
			name:    "decimal defaults",
			dialect: "mysql",
			col:     schema.ColumnDescription{Name: "total", Type: schema.TypeDecimal},
			want:    []string{"DECIMAL(10, 2)"},
		},
		{
			name:    "non-generated primary keeps PRIMARY KEY",
			dialect: "postgres",
			col:     schema.ColumnDescription{Name: "code", Type: schema.TypeVarchar, IsPrimary: true},
			want:    []string{"PRIMARY KEY"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Get(tt.dialect)
			if err != nil {
				t.Fatal(err)
			}
			got := d.CompileColumn("task", &tt.col)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("CompileColumn() = %q, missing %q", got, want)
				}
			}
		})
	}
}

func TestGeneratedPrimarySQL(t *testing.T) {
	tests := []struct {
		dialect string
		colType schema.ColumnType
		want    string
	}{
		{"mysql", schema.TypeInt, "INT AUTO_INCREMENT PRIMARY KEY"},
		{"mysql", schema.TypeUUID, "VARCHAR(36) PRIMARY KEY"},
		{"postgres", schema.TypeInt, "SERIAL PRIMARY KEY"},
		{"postgres", schema.TypeUUID, "UUID PRIMARY KEY DEFAULT gen_random_uuid()"},
		{"sqlite", schema.TypeInt, "INTEGER PRIMARY KEY AUTOINCREMENT"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect+"/"+string(tt.colType), func(t *testing.T) {
			d, err := Get(tt.dialect)
			if err != nil {
				t.Fatal(err)
			}
			col := schema.ColumnDescription{Name: "id", Type: tt.colType, IsPrimary: true, IsGenerated: true}
			got := d.GeneratedPrimarySQL(&col)
			if !strings.Contains(got, tt.want) {
				t.Errorf("GeneratedPrimarySQL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenameTableSQL(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{"mysql", "RENAME TABLE `a` TO `b`"},
		{"postgres", `ALTER TABLE "a" RENAME TO "b"`},
		{"sqlite", `ALTER TABLE "a" RENAME TO "b"`},
	}

	for _, tt := range tests {
		d, err := Get(tt.dialect)
		if err != nil {
			t.Fatal(err)
		}
		if got := d.RenameTableSQL("a", "b"); got != tt.want {
			t.Errorf("%s RenameTableSQL = %q, want %q", tt.dialect, got, tt.want)
		}
	}
}

func TestPostgresModifyColumnSequence(t *testing.T) {
	d, err := Get("postgres")
	if err != nil {
		t.Fatal(err)
	}

	col := schema.ColumnDescription{Name: "count", Type: schema.TypeInt, DefaultValue: 0}
	stmts, err := d.ModifyColumnSQL("item", &col, schema.TypeVarchar)
	if err != nil {
		t.Fatalf("ModifyColumnSQL() error = %v", err)
	}

	joined := strings.Join(stmts, ";\n")
	for _, want := range []string{
		`TYPE INTEGER USING "count"::INTEGER`,
		"SET NOT NULL",
		"SET DEFAULT 0",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("ModifyColumnSQL() missing %q:\n%s", want, joined)
		}
	}

	// TYPE change must come before the NOT NULL change.
	typeIdx := strings.Index(joined, "TYPE INTEGER")
	nullIdx := strings.Index(joined, "SET NOT NULL")
	if typeIdx > nullIdx {
		t.Errorf("TYPE change ordered after NOT NULL:\n%s", joined)
	}
}

func TestPostgresModifyColumnEnumSwap(t *testing.T) {
	d, err := Get("postgres")
	if err != nil {
		t.Fatal(err)
	}

	col := schema.ColumnDescription{
		Name: "state", Type: schema.TypeEnum, IsNullable: true,
		Options: schema.ColumnOptions{EnumValues: []string{"a", "b"}},
	}
	stmts, err := d.ModifyColumnSQL("task", &col, schema.TypeEnum)
	if err != nil {
		t.Fatalf("ModifyColumnSQL() error = %v", err)
	}

	joined := strings.Join(stmts, ";\n")
	dropIdx := strings.Index(joined, "DROP CONSTRAINT IF EXISTS")
	addIdx := strings.Index(joined, "CHECK (")
	if dropIdx == -1 || addIdx == -1 || dropIdx > addIdx {
		t.Errorf("enum CHECK swap wrong:\n%s", joined)
	}
}

func TestSQLiteUnsupportedOperations(t *testing.T) {
	d, err := Get("sqlite")
	if err != nil {
		t.Fatal(err)
	}

	col := schema.ColumnDescription{Name: "count", Type: schema.TypeInt}
	if _, err := d.ModifyColumnSQL("item", &col, schema.TypeVarchar); !syncerr.Is(err, syncerr.ErrSQLiteAlterColumn) {
		t.Errorf("ModifyColumnSQL error = %v, want %s", err, syncerr.ErrSQLiteAlterColumn)
	}
	if _, err := d.AddForeignKeySQL(ForeignKey{Table: "item", Column: "ownerId"}); !syncerr.Is(err, syncerr.ErrSQLiteAddForeignKey) {
		t.Errorf("AddForeignKeySQL error = %v, want %s", err, syncerr.ErrSQLiteAddForeignKey)
	}
	if _, err := d.DropForeignKeySQL("item", "fk_item_ownerId"); !syncerr.Is(err, syncerr.ErrSQLiteDropForeignKey) {
		t.Errorf("DropForeignKeySQL error = %v, want %s", err, syncerr.ErrSQLiteDropForeignKey)
	}
}

func TestLockTimeoutSQL(t *testing.T) {
	tests := []struct {
		dialect string
		want    string
	}{
		{"mysql", "SET SESSION innodb_lock_wait_timeout = 5"},
		{"postgres", "SET lock_timeout = '5s'"},
		{"sqlite", "PRAGMA busy_timeout = 5000"},
	}
	for _, tt := range tests {
		d, err := Get(tt.dialect)
		if err != nil {
			t.Fatal(err)
		}
		if got := d.LockTimeoutSQL(); got != tt.want {
			t.Errorf("%s LockTimeoutSQL() = %q, want %q", tt.dialect, got, tt.want)
		}
	}
}

func TestCreateTableSQL(t *testing.T) {
	d, err := Get("postgres")
	if err != nil {
		t.Fatal(err)
	}

	pk := schema.ColumnDescription{Name: "id", Type: schema.TypeInt, IsPrimary: true, IsGenerated: true}
	defs := []string{
		d.GeneratedPrimarySQL(&pk),
		d.CompileColumn("order", &schema.ColumnDescription{Name: "total", Type: schema.TypeDecimal}),
	}
	fks := []ForeignKey{{
		Name: FKName("order", "customerId"), Table: "order", Column: "customerId",
		RefTable: "user", RefColumn: "id", OnDelete: "SET NULL", OnUpdate: "CASCADE",
	}}
	got := d.CreateTableSQL("order", defs, fks, [][]string{{"total"}})

	for _, want := range []string{
		`CREATE TABLE IF NOT EXISTS "order"`,
		`"id" SERIAL PRIMARY KEY`,
		`CONSTRAINT "fk_order_customerId" FOREIGN KEY ("customerId") REFERENCES "user" ("id") ON DELETE SET NULL ON UPDATE CASCADE`,
		`CONSTRAINT "uniq_order_total" UNIQUE ("total")`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("CreateTableSQL() missing %q:\n%s", want, got)
		}
	}
}
