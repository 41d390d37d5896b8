package introspect

import (
	"context"
	"testing"

	"github.com/enfyra/server-sub005/internal/schema"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

func TestKeyTypeFromPhysical(t *testing.T) {
	tests := []struct {
		dataType   string
		charLength int
		want       schema.KeyType
	}{
		{"int", 0, schema.KeyInteger},
		{"INTEGER", 0, schema.KeyInteger},
		{"bigint", 0, schema.KeyInteger},
		{"uuid", 0, schema.KeyUUID},
		{"character varying", 36, schema.KeyUUID},
		{"varchar", 36, schema.KeyUUID},
		{"character varying", 255, schema.KeyVarchar},
		{"text", 0, schema.KeyVarchar},
	}

	for _, tt := range tests {
		if got := keyTypeFromPhysical(tt.dataType, tt.charLength); got != tt.want {
			t.Errorf("keyTypeFromPhysical(%q, %d) = %v, want %v", tt.dataType, tt.charLength, got, tt.want)
		}
	}
}

func TestSQLiteKeyType(t *testing.T) {
	tests := []struct {
		declared string
		want     schema.KeyType
	}{
		{"INTEGER", schema.KeyInteger},
		{"int", schema.KeyInteger},
		{"VARCHAR(36)", schema.KeyUUID},
		{"VARCHAR(255)", schema.KeyVarchar},
		{"TEXT", schema.KeyVarchar},
	}

	for _, tt := range tests {
		if got := sqliteKeyType(tt.declared); got != tt.want {
			t.Errorf("sqliteKeyType(%q) = %v, want %v", tt.declared, got, tt.want)
		}
	}
}

func TestQuotePragmaIdent(t *testing.T) {
	if got := quotePragmaIdent(`we"ird`); got != `"we""ird"` {
		t.Errorf("quotePragmaIdent() = %q", got)
	}
}

func TestNewUnknownDialect(t *testing.T) {
	if _, err := New("oracle", nil); !syncerr.Is(err, syncerr.ErrUnsupportedDialectName) {
		t.Errorf("New(oracle) error = %v, want %s", err, syncerr.ErrUnsupportedDialectName)
	}
}

func TestSQLiteReferencingScanUnsupported(t *testing.T) {
	insp, err := New("sqlite", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := insp.ListReferencingForeignKeys(context.Background(), "user"); !syncerr.Is(err, syncerr.ErrSQLiteReferencingScan) {
		t.Errorf("error = %v, want %s", err, syncerr.ErrSQLiteReferencingScan)
	}
}
