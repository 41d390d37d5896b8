package diff

import (
	"context"
	"testing"

	"github.com/enfyra/server-sub005/internal/schema"
	"github.com/enfyra/server-sub005/internal/syncerr"
)

func testEnv(tables ...*schema.TableDescription) *MetadataEnvironment {
	env := &MetadataEnvironment{Tables: map[string]*schema.TableDescription{}}
	for _, t := range tables {
		env.Tables[t.Name] = t
	}
	return env
}

func intPK() schema.ColumnDescription {
	return schema.ColumnDescription{ID: "pk", Name: "id", Type: schema.TypeInt, IsPrimary: true, IsGenerated: true}
}

func uuidPK() schema.ColumnDescription {
	return schema.ColumnDescription{ID: "pk", Name: "id", Type: schema.TypeUUID, IsPrimary: true, IsGenerated: true}
}

func TestDiffIdempotence(t *testing.T) {
	table := &schema.TableDescription{
		Name: "order",
		Columns: []schema.ColumnDescription{
			intPK(),
			{ID: "c1", Name: "total", Type: schema.TypeDecimal},
		},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "customer", Type: schema.ManyToOne, TargetTableName: "user", IsNullable: true},
		},
		Uniques: [][]string{{"total"}},
	}
	user := &schema.TableDescription{Name: "user", Columns: []schema.ColumnDescription{intPK()}}

	d, err := Diff(context.Background(), table, table, testEnv(table, user))
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if !d.IsEmpty() {
		t.Errorf("diff of identical descriptions is not empty: %+v", d)
	}
}

func TestDiffColumnRenameNotRecreate(t *testing.T) {
	old := &schema.TableDescription{
		Name:    "product",
		Columns: []schema.ColumnDescription{intPK(), {ID: "c1", Name: "title", Type: schema.TypeVarchar}},
	}
	new := &schema.TableDescription{
		Name:    "product",
		Columns: []schema.ColumnDescription{intPK(), {ID: "c1", Name: "name", Type: schema.TypeVarchar}},
	}

	d, err := Diff(context.Background(), old, new, testEnv(old))
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if len(d.Columns.Rename) != 1 || d.Columns.Rename[0] != (Rename{From: "title", To: "name"}) {
		t.Errorf("Rename = %+v, want [{title name}]", d.Columns.Rename)
	}
	if len(d.Columns.Create) != 0 || len(d.Columns.Delete) != 0 {
		t.Errorf("rename produced create=%d delete=%d, want 0/0", len(d.Columns.Create), len(d.Columns.Delete))
	}
}

func TestDiffColumnOperations(t *testing.T) {
	old := &schema.TableDescription{
		Name: "product",
		Columns: []schema.ColumnDescription{
			intPK(),
			{ID: "c1", Name: "price", Type: schema.TypeInt},
			{ID: "c2", Name: "legacy", Type: schema.TypeText},
			{ID: "c3", Name: "createdAt", Type: schema.TypeTimestamp},
		},
	}
	new := &schema.TableDescription{
		Name: "product",
		Columns: []schema.ColumnDescription{
			intPK(),
			{ID: "c1", Name: "price", Type: schema.TypeDecimal},
			{Name: "sku", Type: schema.TypeVarchar},
		},
	}

	d, err := Diff(context.Background(), old, new, testEnv(old))
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}

	if len(d.Columns.Create) != 1 || d.Columns.Create[0].Column.Name != "sku" {
		t.Errorf("Create = %+v, want [sku]", d.Columns.Create)
	}
	if len(d.Columns.Update) != 1 || d.Columns.Update[0].Column.Name != "price" || d.Columns.Update[0].OldType != schema.TypeInt {
		t.Errorf("Update = %+v, want [price from int]", d.Columns.Update)
	}
	// createdAt is a system column: absent from the new description but
	// never dropped.
	if len(d.Columns.Delete) != 1 || d.Columns.Delete[0].Name != "legacy" {
		t.Errorf("Delete = %+v, want [legacy]", d.Columns.Delete)
	}
}

func TestDiffConstraintFullReplacement(t *testing.T) {
	old := &schema.TableDescription{
		Name:    "t",
		Columns: []schema.ColumnDescription{intPK()},
		Uniques: [][]string{{"a", "b"}},
		Indexes: [][]string{{"c"}},
	}
	new := &schema.TableDescription{
		Name:    "t",
		Columns: []schema.ColumnDescription{intPK()},
		Uniques: [][]string{{"b", "a"}}, // same group, different order
		Indexes: [][]string{{"c"}, {"d"}},
	}

	d, err := Diff(context.Background(), old, new, testEnv(old))
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if len(d.Constraints.Uniques.Create) != 0 || len(d.Constraints.Uniques.Delete) != 0 {
		t.Errorf("order-only unique difference produced a replacement: %+v", d.Constraints.Uniques)
	}
	if len(d.Constraints.Indexes.Delete) != 1 || len(d.Constraints.Indexes.Create) != 2 {
		t.Errorf("index change not emitted as full replacement: %+v", d.Constraints.Indexes)
	}
}

func TestDiffForeignKeyTypeMatching(t *testing.T) {
	user := &schema.TableDescription{Name: "user", Columns: []schema.ColumnDescription{uuidPK()}}
	old := &schema.TableDescription{Name: "order", Columns: []schema.ColumnDescription{intPK()}}
	new := &schema.TableDescription{
		Name:    "order",
		Columns: []schema.ColumnDescription{intPK()},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "customer", Type: schema.ManyToOne, TargetTableName: "user", IsNullable: true},
		},
	}

	d, err := Diff(context.Background(), old, new, testEnv(old, user))
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if len(d.Columns.Create) != 1 {
		t.Fatalf("Create = %+v, want one FK column", d.Columns.Create)
	}
	create := d.Columns.Create[0]
	if create.Column.Name != "customerId" {
		t.Errorf("FK column name = %q, want customerId", create.Column.Name)
	}
	if create.Ref == nil || create.Ref.KeyType != schema.KeyUUID {
		t.Errorf("FK key type = %+v, want uuid to match user.id", create.Ref)
	}
	if create.Ref.OnDelete != "SET NULL" {
		t.Errorf("OnDelete = %q, want SET NULL for nullable relation", create.Ref.OnDelete)
	}
}

func TestDiffRelationDelete(t *testing.T) {
	user := &schema.TableDescription{Name: "user", Columns: []schema.ColumnDescription{intPK()}}
	old := &schema.TableDescription{
		Name:    "order",
		Columns: []schema.ColumnDescription{intPK()},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "customer", Type: schema.ManyToOne, TargetTableName: "user"},
		},
	}
	new := &schema.TableDescription{Name: "order", Columns: []schema.ColumnDescription{intPK()}}

	d, err := Diff(context.Background(), old, new, testEnv(old, user))
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if len(d.Columns.Delete) != 1 || d.Columns.Delete[0].Name != "customerId" || !d.Columns.Delete[0].IsForeignKey {
		t.Errorf("Delete = %+v, want [customerId as FK]", d.Columns.Delete)
	}
}

// rel builds the shared relation used by the transition tests.
func rel(relType schema.RelationType) schema.RelationDescription {
	return schema.RelationDescription{
		ID:                  "r1",
		PropertyName:        "customer",
		Type:                relType,
		TargetTableName:     "user",
		InversePropertyName: "order",
		IsNullable:          false,
	}
}

func TestDiffRelationTypeTransitions(t *testing.T) {
	user := &schema.TableDescription{Name: "user", Columns: []schema.ColumnDescription{intPK()}}

	tests := []struct {
		name  string
		from  schema.RelationType
		to    schema.RelationType
		check func(t *testing.T, d *SchemaDiff)
	}{
		{
			name: "local to many-to-many",
			from: schema.ManyToOne,
			to:   schema.ManyToMany,
			check: func(t *testing.T, d *SchemaDiff) {
				if len(d.Columns.Delete) != 1 || d.Columns.Delete[0].Name != "customerId" {
					t.Errorf("Delete = %+v, want [customerId]", d.Columns.Delete)
				}
				if len(d.Junctions.Create) != 1 || d.Junctions.Create[0].Name != "order_customers_user" {
					t.Errorf("Junctions.Create = %+v, want [order_customers_user]", d.Junctions.Create)
				}
				if len(d.CrossTable) != 0 {
					t.Errorf("unexpected cross-table ops: %+v", d.CrossTable)
				}
			},
		},
		{
			name: "many-to-many to local forces nullable",
			from: schema.ManyToMany,
			to:   schema.ManyToOne,
			check: func(t *testing.T, d *SchemaDiff) {
				if len(d.Junctions.Drop) != 1 || d.Junctions.Drop[0] != "order_customers_user" {
					t.Errorf("Junctions.Drop = %+v, want [order_customers_user]", d.Junctions.Drop)
				}
				if len(d.Columns.Create) != 1 {
					t.Fatalf("Create = %+v, want one FK column", d.Columns.Create)
				}
				if !d.Columns.Create[0].Column.IsNullable || !d.Columns.Create[0].Ref.IsNullable {
					t.Errorf("recreated FK column must be forced nullable: %+v", d.Columns.Create[0])
				}
			},
		},
		{
			name: "one-to-many to many-to-many",
			from: schema.OneToMany,
			to:   schema.ManyToMany,
			check: func(t *testing.T, d *SchemaDiff) {
				if len(d.CrossTable) != 1 || d.CrossTable[0].Kind != CrossDrop || d.CrossTable[0].Drop.Name != "orderId" {
					t.Errorf("CrossTable = %+v, want drop of orderId on user", d.CrossTable)
				}
				if len(d.Junctions.Create) != 1 {
					t.Errorf("Junctions.Create = %+v, want one junction", d.Junctions.Create)
				}
			},
		},
		{
			name: "many-to-many to one-to-many",
			from: schema.ManyToMany,
			to:   schema.OneToMany,
			check: func(t *testing.T, d *SchemaDiff) {
				if len(d.Junctions.Drop) != 1 {
					t.Errorf("Junctions.Drop = %+v, want one junction", d.Junctions.Drop)
				}
				if len(d.CrossTable) != 1 || d.CrossTable[0].Kind != CrossCreate || d.CrossTable[0].Create.Column.Name != "orderId" {
					t.Errorf("CrossTable = %+v, want create of orderId on user", d.CrossTable)
				}
			},
		},
		{
			name: "local to one-to-many",
			from: schema.OneToOne,
			to:   schema.OneToMany,
			check: func(t *testing.T, d *SchemaDiff) {
				if len(d.Columns.Delete) != 1 || d.Columns.Delete[0].Name != "customerId" {
					t.Errorf("Delete = %+v, want [customerId]", d.Columns.Delete)
				}
				if len(d.CrossTable) != 1 || d.CrossTable[0].Kind != CrossCreate || d.CrossTable[0].Create.Column.Name != "orderId" {
					t.Errorf("CrossTable = %+v, want create of orderId on user", d.CrossTable)
				}
			},
		},
		{
			name: "one-to-many to local",
			from: schema.OneToMany,
			to:   schema.ManyToOne,
			check: func(t *testing.T, d *SchemaDiff) {
				if len(d.CrossTable) != 1 || d.CrossTable[0].Kind != CrossDrop || d.CrossTable[0].Drop.Name != "orderId" {
					t.Errorf("CrossTable = %+v, want drop of orderId on user", d.CrossTable)
				}
				if len(d.Columns.Create) != 1 || d.Columns.Create[0].Column.Name != "customerId" {
					t.Errorf("Create = %+v, want [customerId]", d.Columns.Create)
				}
			},
		},
		{
			name: "many-to-one to one-to-one adds unique",
			from: schema.ManyToOne,
			to:   schema.OneToOne,
			check: func(t *testing.T, d *SchemaDiff) {
				if len(d.Columns.Create) != 0 || len(d.Columns.Delete) != 0 {
					t.Errorf("unique toggle produced column ops: %+v", d.Columns)
				}
				want := [][]string{{"customerId"}}
				if len(d.Constraints.Uniques.Create) != 1 || d.Constraints.Uniques.Create[0][0] != want[0][0] {
					t.Errorf("Uniques.Create = %+v, want %+v", d.Constraints.Uniques.Create, want)
				}
			},
		},
		{
			name: "one-to-one to many-to-one drops unique",
			from: schema.OneToOne,
			to:   schema.ManyToOne,
			check: func(t *testing.T, d *SchemaDiff) {
				if len(d.Constraints.Uniques.Delete) != 1 || d.Constraints.Uniques.Delete[0][0] != "customerId" {
					t.Errorf("Uniques.Delete = %+v, want [[customerId]]", d.Constraints.Uniques.Delete)
				}
				if len(d.Junctions.Create) != 0 || len(d.Junctions.Drop) != 0 {
					t.Errorf("unique toggle produced junction ops: %+v", d.Junctions)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := &schema.TableDescription{
				Name:      "order",
				Columns:   []schema.ColumnDescription{intPK()},
				Relations: []schema.RelationDescription{rel(tt.from)},
			}
			new := &schema.TableDescription{
				Name:      "order",
				Columns:   []schema.ColumnDescription{intPK()},
				Relations: []schema.RelationDescription{rel(tt.to)},
			}

			d, err := Diff(context.Background(), old, new, testEnv(old, user))
			if err != nil {
				t.Fatalf("Diff() error = %v", err)
			}
			tt.check(t, d)
		})
	}
}

func TestDiffRelationPropertyRename(t *testing.T) {
	user := &schema.TableDescription{Name: "user", Columns: []schema.ColumnDescription{intPK()}}
	old := &schema.TableDescription{
		Name:    "order",
		Columns: []schema.ColumnDescription{intPK()},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "customer", Type: schema.ManyToOne, TargetTableName: "user"},
		},
	}
	new := &schema.TableDescription{
		Name:    "order",
		Columns: []schema.ColumnDescription{intPK()},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "buyer", Type: schema.ManyToOne, TargetTableName: "user"},
		},
	}

	d, err := Diff(context.Background(), old, new, testEnv(old, user))
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if len(d.Columns.Rename) != 1 || d.Columns.Rename[0] != (Rename{From: "customerId", To: "buyerId"}) {
		t.Errorf("Rename = %+v, want [{customerId buyerId}]", d.Columns.Rename)
	}
	if len(d.Columns.Create) != 0 || len(d.Columns.Delete) != 0 {
		t.Errorf("relation rename produced column create/delete: %+v", d.Columns)
	}
}

func TestDiffRelationNullableFlipRecreatesFK(t *testing.T) {
	user := &schema.TableDescription{Name: "user", Columns: []schema.ColumnDescription{intPK()}}
	old := &schema.TableDescription{
		Name:    "order",
		Columns: []schema.ColumnDescription{intPK()},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "customer", Type: schema.ManyToOne, TargetTableName: "user", IsNullable: true},
		},
	}
	new := &schema.TableDescription{
		Name:    "order",
		Columns: []schema.ColumnDescription{intPK()},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "customer", Type: schema.ManyToOne, TargetTableName: "user", IsNullable: false},
		},
	}

	d, err := Diff(context.Background(), old, new, testEnv(old, user))
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if len(d.ForeignKeys.Recreate) != 1 {
		t.Fatalf("Recreate = %+v, want one entry", d.ForeignKeys.Recreate)
	}
	rec := d.ForeignKeys.Recreate[0]
	if rec.Column != "customerId" || rec.Ref.OnDelete != "RESTRICT" {
		t.Errorf("Recreate = %+v, want customerId with RESTRICT", rec)
	}
}

func TestDiffOneToManyNullableFlipRecreatesFK(t *testing.T) {
	order := &schema.TableDescription{Name: "order", Columns: []schema.ColumnDescription{intPK()}}
	old := &schema.TableDescription{
		Name:    "user",
		Columns: []schema.ColumnDescription{intPK()},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "orders", Type: schema.OneToMany, TargetTableName: "order", InversePropertyName: "customer", IsNullable: false},
		},
	}
	new := &schema.TableDescription{
		Name:    "user",
		Columns: []schema.ColumnDescription{intPK()},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "orders", Type: schema.OneToMany, TargetTableName: "order", InversePropertyName: "customer", IsNullable: true},
		},
	}

	d, err := Diff(context.Background(), old, new, testEnv(old, order))
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if len(d.ForeignKeys.Recreate) != 1 {
		t.Fatalf("Recreate = %+v, want one entry", d.ForeignKeys.Recreate)
	}
	rec := d.ForeignKeys.Recreate[0]
	if rec.Table != "order" || rec.Column != "customerId" {
		t.Errorf("Recreate targets %s.%s, want order.customerId", rec.Table, rec.Column)
	}
	if rec.Ref.TargetTable != "user" || rec.Ref.OnDelete != "SET NULL" {
		t.Errorf("Recreate ref = %+v, want user with SET NULL", rec.Ref)
	}
}

func TestDiffNamingConflict(t *testing.T) {
	user := &schema.TableDescription{Name: "user", Columns: []schema.ColumnDescription{intPK()}}
	old := &schema.TableDescription{
		Name: "order",
		Columns: []schema.ColumnDescription{
			intPK(),
			{ID: "c1", Name: "customerId", Type: schema.TypeVarchar},
		},
	}
	new := &schema.TableDescription{
		Name: "order",
		Columns: []schema.ColumnDescription{
			intPK(),
			{ID: "c1", Name: "customerId", Type: schema.TypeVarchar},
		},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "customer", Type: schema.ManyToOne, TargetTableName: "user"},
		},
	}

	_, err := Diff(context.Background(), old, new, testEnv(old, user))
	if !syncerr.Is(err, syncerr.ErrNamingConflict) {
		t.Errorf("Diff() error = %v, want %s", err, syncerr.ErrNamingConflict)
	}
}

func TestDiffRenameNamingConflict(t *testing.T) {
	user := &schema.TableDescription{Name: "user", Columns: []schema.ColumnDescription{intPK()}}
	old := &schema.TableDescription{
		Name: "order",
		Columns: []schema.ColumnDescription{
			intPK(),
			{ID: "c1", Name: "noteId", Type: schema.TypeVarchar},
		},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "customer", Type: schema.ManyToOne, TargetTableName: "user"},
		},
	}
	// Renaming the relation derives a customerId -> noteId column rename that
	// lands on the existing noteId column.
	new := &schema.TableDescription{
		Name: "order",
		Columns: []schema.ColumnDescription{
			intPK(),
			{ID: "c1", Name: "noteId", Type: schema.TypeVarchar},
		},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "note", Type: schema.ManyToOne, TargetTableName: "user"},
		},
	}

	_, err := Diff(context.Background(), old, new, testEnv(old, user))
	if !syncerr.Is(err, syncerr.ErrNamingConflict) {
		t.Errorf("Diff() error = %v, want %s", err, syncerr.ErrNamingConflict)
	}
}

func TestDiffCrossRenameNamingConflict(t *testing.T) {
	order := &schema.TableDescription{
		Name: "order",
		Columns: []schema.ColumnDescription{
			intPK(),
			{ID: "c1", Name: "ownerId", Type: schema.TypeVarchar},
		},
	}
	old := &schema.TableDescription{
		Name:    "user",
		Columns: []schema.ColumnDescription{intPK()},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "orders", Type: schema.OneToMany, TargetTableName: "order", InversePropertyName: "customer"},
		},
	}
	new := &schema.TableDescription{
		Name:    "user",
		Columns: []schema.ColumnDescription{intPK()},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "orders", Type: schema.OneToMany, TargetTableName: "order", InversePropertyName: "owner"},
		},
	}

	_, err := Diff(context.Background(), old, new, testEnv(old, order))
	if !syncerr.Is(err, syncerr.ErrNamingConflict) {
		t.Errorf("Diff() error = %v, want %s", err, syncerr.ErrNamingConflict)
	}
}

func TestDiffTargetTableMissing(t *testing.T) {
	old := &schema.TableDescription{Name: "order", Columns: []schema.ColumnDescription{intPK()}}
	new := &schema.TableDescription{
		Name:    "order",
		Columns: []schema.ColumnDescription{intPK()},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "customer", Type: schema.ManyToOne, TargetTableName: "ghost"},
		},
	}

	_, err := Diff(context.Background(), old, new, testEnv(old))
	if !syncerr.Is(err, syncerr.ErrTargetTableMissing) {
		t.Errorf("Diff() error = %v, want %s", err, syncerr.ErrTargetTableMissing)
	}
}

func TestDiffTableRename(t *testing.T) {
	old := &schema.TableDescription{Name: "client", Columns: []schema.ColumnDescription{intPK()}}
	new := &schema.TableDescription{Name: "customer", Columns: []schema.ColumnDescription{intPK()}}

	d, err := Diff(context.Background(), old, new, testEnv(old))
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if d.TableRename == nil || *d.TableRename != (Rename{From: "client", To: "customer"}) {
		t.Errorf("TableRename = %+v, want {client customer}", d.TableRename)
	}
}

func TestDiffSelfReferencingJunction(t *testing.T) {
	old := &schema.TableDescription{Name: "user", Columns: []schema.ColumnDescription{intPK()}}
	new := &schema.TableDescription{
		Name:    "user",
		Columns: []schema.ColumnDescription{intPK()},
		Relations: []schema.RelationDescription{
			{ID: "r1", PropertyName: "friend", Type: schema.ManyToMany, TargetTableName: "user", InversePropertyName: "friendOf"},
		},
	}

	d, err := Diff(context.Background(), old, new, testEnv(old))
	if err != nil {
		t.Fatalf("Diff() error = %v", err)
	}
	if len(d.Junctions.Create) != 1 {
		t.Fatalf("Junctions.Create = %+v, want one junction", d.Junctions.Create)
	}
	j := d.Junctions.Create[0]
	if j.SourceColumn == j.TargetColumn {
		t.Errorf("self-referencing junction columns collide: %q", j.SourceColumn)
	}
	if j.TargetColumn != "relatedUserId" {
		t.Errorf("TargetColumn = %q, want relatedUserId", j.TargetColumn)
	}
}
