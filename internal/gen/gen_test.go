package gen

import (
	"bytes"
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shop = `package shop

type Audit struct {
	_         struct{} ` + "`bulk:\"sequence=audit_seq\"`" + `
	CreatedBy string
}

type Person struct {
	Audit
	ID   int64 ` + "`bulk:\"id\"`" + `
	Name string
}

type Employee struct {
	_ struct{} ` + "`bulk:\"table=staff,sequence=employee_seq\"`" + `
	Person
	Salary  float64  ` + "`bulk:\"column=pay\"`" + `
	Manager *Employee ` + "`bulk:\"relation=many-to-one\"`" + `
	Rank    int ` + "`bulk:\"transient\"`" + `
	Notes   string ` + "`bulk:\"-\"`" + `
	cache   string
}

type LineKey struct {
	OrderID int64
	LineNo  int ` + "`bulk:\"column=line\"`" + `
}

type OrderLine struct {
	_   struct{} ` + "`bulk:\"entity\"`" + `
	Key LineKey  ` + "`bulk:\"embeddedid\"`" + `
	Qty int
}

type EnrollmentKey struct {
	StudentID int64
	CourseID  int64
}

type Enrollment struct {
	_         struct{} ` + "`bulk:\"idclass=EnrollmentKey\"`" + `
	StudentID int64 ` + "`bulk:\"id\"`" + `
	CourseID  int64 ` + "`bulk:\"id,generated\"`" + `
	Tags      []string
}

type Plain struct {
	ID int64
}
`

func check(t *testing.T, src string) *types.Package {
	t.Helper()
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "shop.go", src, 0)
	require.NoError(t, err)
	pkg, err := (&types.Config{}).Check("example.com/shop", fset, []*ast.File{file}, nil)
	require.NoError(t, err)
	return pkg
}

func TestInspect(t *testing.T) {
	entities, err := Inspect(check(t, shop), "")
	require.NoError(t, err)
	require.Len(t, entities, 3)

	emp := entities[0]
	assert.Equal(t, "Employee", emp.Name())
	assert.Equal(t, "staff", emp.Table)
	assert.Equal(t, "employee_seq", emp.Sequence)
	require.Len(t, emp.Parents, 1)
	person := emp.Parents[0]
	assert.Equal(t, "Person", person.Field)
	require.Len(t, person.Parents, 1)
	assert.Equal(t, "audit_seq", person.Parents[0].Sequence)
	require.Len(t, person.Fields, 2)
	assert.True(t, person.Fields[0].ID)

	var names []string
	for _, f := range emp.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"Salary", "Manager", "Rank"}, names)
	assert.Equal(t, "pay", emp.Fields[0].Column)
	assert.Equal(t, "ManyToOne", emp.Fields[1].Relation)
	assert.True(t, emp.Fields[2].Transient)

	enr := entities[1]
	assert.Equal(t, "enrollments", enr.Table)
	require.NotNil(t, enr.Key)
	assert.Empty(t, enr.Key.Field)
	assert.Equal(t, "EnrollmentKey", enr.Key.Type.Obj().Name())
	assert.True(t, enr.Fields[1].Generated)

	line := entities[2]
	assert.Equal(t, "order_lines", line.Table)
	require.NotNil(t, line.Key)
	assert.Equal(t, "Key", line.Key.Field)
	require.Len(t, line.Key.Fields, 2)
	assert.Equal(t, "line", line.Key.Fields[1].Column)
	require.Len(t, line.Fields, 1)
}

func TestInspect_Errors(t *testing.T) {
	tests := []struct {
		name, src, err string
	}{
		{
			name: "unknown_option",
			src:  "package p\ntype A struct {\n_ struct{} `bulk:\"entity\"`\nID int `bulk:\"id,primary\"`\n}\n",
			err:  `unknown option "primary"`,
		},
		{
			name: "empty_value",
			src:  "package p\ntype A struct {\n_ struct{} `bulk:\"table=\"`\nID int `bulk:\"id\"`\n}\n",
			err:  "has no value",
		},
		{
			name: "no_key",
			src:  "package p\ntype A struct {\n_ struct{} `bulk:\"entity\"`\nName string\n}\n",
			err:  "no key",
		},
		{
			name: "bad_relation",
			src:  "package p\ntype A struct {\n_ struct{} `bulk:\"entity\"`\nID int `bulk:\"id\"`\nB *A `bulk:\"relation=one-to-one\"`\n}\n",
			err:  "unknown relation",
		},
		{
			name: "missing_idclass",
			src:  "package p\ntype A struct {\n_ struct{} `bulk:\"idclass=AKey\"`\nID int `bulk:\"id\"`\n}\n",
			err:  "type AKey not found",
		},
		{
			name: "scalar_embedded_id",
			src:  "package p\ntype A struct {\n_ struct{} `bulk:\"entity\"`\nKey int64 `bulk:\"embeddedid\"`\n}\n",
			err:  "embedded id must be a named struct",
		},
		{
			name: "type_option_on_field",
			src:  "package p\ntype A struct {\n_ struct{} `bulk:\"entity\"`\nID int `bulk:\"id,table=a\"`\n}\n",
			err:  "belong on the blank field",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Inspect(check(t, tt.src), DefaultTag)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestInspect_Tag(t *testing.T) {
	src := "package p\ntype A struct {\n_ struct{} `db:\"table=as\"`\nID int `db:\"id\"`\n}\n"
	entities, err := Inspect(check(t, src), "db")
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "as", entities[0].Table)

	entities, err = Inspect(check(t, src), DefaultTag)
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestFile(t *testing.T) {
	entities, err := Inspect(check(t, shop), DefaultTag)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, File("shop", "example.com/shop", entities).Render(&buf))
	out := buf.String()

	for _, want := range []string{
		"// " + Header,
		"package shop",
		`"github.com/syssam/bulkwrite/schema"`,
		`"github.com/syssam/bulkwrite/schema/field"`,
		`var EmployeeDefinition = schema.Define[Employee]().Table("staff").Sequence("employee_seq").Inherit(`,
		`func(r *Employee) *Person { return &r.Person },`,
		`field.Of("ID", func(r *Person) *int64 { return &r.ID }).ID(),`,
		`func(r *Person) *Audit { return &r.Audit },`,
		`).Sequence("audit_seq"),`,
		`field.Of("Salary", func(r *Employee) *float64 { return &r.Salary }).Column("pay"),`,
		`field.Of("Manager", func(r *Employee) **Employee { return &r.Manager }).Relation(field.ManyToOne),`,
		`field.Of("Rank", func(r *Employee) *int { return &r.Rank }).Transient(),`,
		`schema.IDClass[EnrollmentKey](`,
		`field.Of("CourseID", func(r *Enrollment) *int64 { return &r.CourseID }).ID().Generated(),`,
		`field.Of("Tags", func(r *Enrollment) *[]string { return &r.Tags }),`,
		`var OrderLineDefinition = schema.Define[OrderLine]().Table("order_lines").Key(schema.EmbeddedID(`,
		`func(r *OrderLine) *LineKey { return &r.Key },`,
		`field.Of("LineNo", func(r *LineKey) *int { return &r.LineNo }).Column("line"),`,
		`schema.MustRegister(EmployeeDefinition, EnrollmentDefinition, OrderLineDefinition)`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "Notes")
	assert.NotContains(t, out, "cache")
	assert.NotContains(t, out, "Plain")
}

func TestFile_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, File("shop", "example.com/shop", nil).Render(&buf))
	assert.NotContains(t, buf.String(), "func init")
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/shop\n\ngo 1.24\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shop.go"), []byte(shop), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "plain"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plain", "plain.go"), []byte("package plain\n\ntype T struct{ ID int }\n"), 0o644))

	written, err := Run(context.Background(), Config{Dir: dir, Output: "bulkwrite_gen.go", Workers: 2})
	require.NoError(t, err)
	require.Len(t, written, 1)
	assert.Equal(t, "bulkwrite_gen.go", filepath.Base(written[0]))

	body, err := os.ReadFile(written[0])
	require.NoError(t, err)
	assert.Contains(t, string(body), "schema.MustRegister(EmployeeDefinition")
	_, err = os.Stat(filepath.Join(dir, "plain", "bulkwrite_gen.go"))
	assert.True(t, os.IsNotExist(err))
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()
	_, err := Run(ctx, Config{})
	assert.Error(t, err)
	_, err = Run(ctx, Config{Output: "sub/out.go"})
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module example.com/bad\n\ngo 1.24\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.go"), []byte("package bad\n\nvar x int = \"s\"\n"), 0o644))
	_, err = Run(ctx, Config{Dir: dir, Output: "out.go"})
	assert.Error(t, err)
}
