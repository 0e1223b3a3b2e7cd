package gen

import (
	"go/types"

	"github.com/dave/jennifer/jen"
)

const (
	schemaPkg = "github.com/syssam/bulkwrite/schema"
	fieldPkg  = "github.com/syssam/bulkwrite/schema/field"
)

// Header is the first line of every generated file.
const Header = "Code generated by bulkwrite. DO NOT EDIT."

// File renders the definitions of entities into a file of package pkgName
// and registers them with the default registry on init.
func File(pkgName, pkgPath string, entities []*Entity) *jen.File {
	f := jen.NewFilePathName(pkgPath, pkgName)
	f.HeaderComment(Header)
	g := &generator{pkgPath: pkgPath}
	defs := make([]jen.Code, 0, len(entities))
	for _, e := range entities {
		name := e.Name() + "Definition"
		f.Commentf("%s maps %s to table %s.", name, e.Name(), e.Table)
		f.Var().Id(name).Op("=").Add(g.definition(e))
		f.Line()
		defs = append(defs, jen.Id(name))
	}
	if len(defs) > 0 {
		f.Func().Id("init").Params().Block(
			jen.Qual(schemaPkg, "MustRegister").Call(defs...),
		)
	}
	return f
}

type generator struct {
	pkgPath string
}

var multi = jen.Options{Open: "(", Close: ")", Separator: ",", Multi: true}

func (g *generator) definition(e *Entity) *jen.Statement {
	s := jen.Qual(schemaPkg, "Define").Types(g.named(e.Type)).Call().
		Dot("Table").Call(jen.Lit(e.Table))
	if e.Sequence != "" {
		s = s.Dot("Sequence").Call(jen.Lit(e.Sequence))
	}
	if len(e.Parents) > 0 {
		parents := make([]jen.Code, len(e.Parents))
		for i, p := range e.Parents {
			parents[i] = g.parent(e.Type, p)
		}
		s = s.Dot("Inherit").Custom(multi, parents...)
	}
	if e.Key != nil {
		s = s.Dot("Key").Call(g.key(e.Type, e.Key))
	}
	if len(e.Fields) > 0 {
		s = s.Dot("Fields").Custom(multi, g.fields(e.Type, e.Fields)...)
	}
	return s
}

func (g *generator) parent(owner *types.Named, p *Parent) *jen.Statement {
	args := append([]jen.Code{g.ref(owner, p.Field, p.Type)}, g.fields(p.Type, p.Fields)...)
	s := jen.Qual(schemaPkg, "Embed").Custom(multi, args...)
	if p.Sequence != "" {
		s = s.Dot("Sequence").Call(jen.Lit(p.Sequence))
	}
	if len(p.Parents) > 0 {
		parents := make([]jen.Code, len(p.Parents))
		for i, gp := range p.Parents {
			parents[i] = g.parent(p.Type, gp)
		}
		s = s.Dot("Inherit").Custom(multi, parents...)
	}
	return s
}

func (g *generator) key(owner *types.Named, k *Key) *jen.Statement {
	fields := g.fields(k.Type, k.Fields)
	if k.Field == "" {
		return jen.Qual(schemaPkg, "IDClass").Types(g.named(k.Type)).Custom(multi, fields...)
	}
	args := append([]jen.Code{jen.Lit(k.Field), g.ref(owner, k.Field, k.Type)}, fields...)
	return jen.Qual(schemaPkg, "EmbeddedID").Custom(multi, args...)
}

func (g *generator) fields(owner *types.Named, fields []*Field) []jen.Code {
	codes := make([]jen.Code, len(fields))
	for i, f := range fields {
		codes[i] = g.field(owner, f)
	}
	return codes
}

// field renders field.Of("Name", func(r *T) *V { return &r.Name }) and
// its option chain.
func (g *generator) field(owner *types.Named, f *Field) *jen.Statement {
	s := jen.Qual(fieldPkg, "Of").Call(jen.Lit(f.Name), g.ref(owner, f.Name, f.Type))
	if f.Column != "" {
		s = s.Dot("Column").Call(jen.Lit(f.Column))
	}
	if f.ID {
		s = s.Dot("ID").Call()
	}
	if f.Generated {
		s = s.Dot("Generated").Call()
	}
	if f.Sequence != "" {
		s = s.Dot("Sequence").Call(jen.Lit(f.Sequence))
	}
	if f.Transient {
		s = s.Dot("Transient").Call()
	}
	if f.Relation != "" {
		s = s.Dot("Relation").Call(jen.Qual(fieldPkg, f.Relation))
	}
	return s
}

// ref renders func(r *Owner) *T { return &r.name }.
func (g *generator) ref(owner *types.Named, name string, t types.Type) *jen.Statement {
	return jen.Func().
		Params(jen.Id("r").Op("*").Add(g.named(owner))).
		Op("*").Add(g.typ(t)).
		Custom(jen.Options{Open: "{", Close: "}"}, jen.Return(jen.Op("&").Id("r").Dot(name)))
}

func (g *generator) named(t *types.Named) *jen.Statement {
	obj := t.Obj()
	var s *jen.Statement
	switch {
	case obj.Pkg() == nil || obj.Pkg().Path() == g.pkgPath:
		s = jen.Id(obj.Name())
	default:
		s = jen.Qual(obj.Pkg().Path(), obj.Name())
	}
	if args := t.TypeArgs(); args.Len() > 0 {
		codes := make([]jen.Code, args.Len())
		for i := range args.Len() {
			codes[i] = g.typ(args.At(i))
		}
		s = s.Types(codes...)
	}
	return s
}

// typ renders t as seen from the generated package.
func (g *generator) typ(t types.Type) *jen.Statement {
	switch t := types.Unalias(t).(type) {
	case *types.Basic:
		return jen.Id(t.Name())
	case *types.Named:
		return g.named(t)
	case *types.Pointer:
		return jen.Op("*").Add(g.typ(t.Elem()))
	case *types.Slice:
		return jen.Index().Add(g.typ(t.Elem()))
	case *types.Array:
		return jen.Index(jen.Lit(int(t.Len()))).Add(g.typ(t.Elem()))
	case *types.Map:
		return jen.Map(g.typ(t.Key())).Add(g.typ(t.Elem()))
	default:
		return jen.Id(types.TypeString(t, g.qualifier))
	}
}

func (g *generator) qualifier(p *types.Package) string {
	if p.Path() == g.pkgPath {
		return ""
	}
	return p.Name()
}
