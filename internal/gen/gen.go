// Package gen writes adaptive stubs: types that implement an extension
// point interface by forwarding every call to the extension a Selector
// picks for it. Pass the stub's constructor to extension.Declare.
package gen

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/printer"
	"go/token"
	"path"
	"slices"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"golang.org/x/tools/imports"
)

// ExtensionImport is the import path of the package declaring Selector.
const ExtensionImport = "github.com/jpl-au/spi/extension"

var (
	// ErrTypeNotFound is returned when the file does not declare the type.
	ErrTypeNotFound = errors.New("type not found")
	// ErrNotInterface is returned when the type is not an interface.
	ErrNotInterface = errors.New("not an interface type")
	// ErrUnsupported is returned for interfaces the generator cannot forward.
	ErrUnsupported = errors.New("unsupported interface")
)

// Request names the interface to generate a stub for.
type Request struct {
	// Filename is used in positions and error messages.
	Filename string
	// Src is the Go source declaring the interface.
	Src []byte
	// Type is the interface name.
	Type string
}

// Stub names the generated type and its constructor for an interface.
func Stub(typeName string) (stub, constructor string) {
	r := []rune(typeName)
	r[0] = unicode.ToLower(r[0])
	return string(r) + "Adaptive", "new" + typeName + "Adaptive"
}

// Generate returns the formatted stub source for req.
func Generate(req Request) ([]byte, error) {
	if req.Type == "" {
		return nil, fmt.Errorf("%w: empty type name", ErrTypeNotFound)
	}
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, req.Filename, req.Src, parser.SkipObjectResolution)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", req.Filename, err)
	}

	it, err := findInterface(f, req.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", req.Filename, req.Type, err)
	}

	data := stubData{Package: f.Name.Name, Type: req.Type}
	data.Stub, data.Constructor = Stub(req.Type)

	used := map[string]bool{}
	for _, field := range it.Methods.List {
		ft, ok := field.Type.(*ast.FuncType)
		if !ok {
			return nil, fmt.Errorf("%s: %s: %w: embedded %s", req.Filename, req.Type, ErrUnsupported, expr(fset, field.Type))
		}
		if ft.TypeParams != nil {
			return nil, fmt.Errorf("%s: %s: %w: type parameters", req.Filename, req.Type, ErrUnsupported)
		}
		collectQualifiers(ft, used)
		for _, name := range field.Names {
			data.Methods = append(data.Methods, newMethod(fset, name.Name, ft))
		}
	}
	if len(data.Methods) == 0 {
		return nil, fmt.Errorf("%s: %s: %w: no methods", req.Filename, req.Type, ErrUnsupported)
	}
	data.Imports = importBlock(importsFor(f, used))

	var buf bytes.Buffer
	if err := stubTpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("executing template: %w", err)
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting stub: %w", err)
	}
	return imports.Process(req.Filename, src, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
}

func findInterface(f *ast.File, name string) (*ast.InterfaceType, error) {
	for _, decl := range f.Decls {
		gd, ok := decl.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			ts := spec.(*ast.TypeSpec)
			if ts.Name.Name != name {
				continue
			}
			it, ok := ts.Type.(*ast.InterfaceType)
			if !ok {
				return nil, ErrNotInterface
			}
			if ts.TypeParams != nil {
				return nil, fmt.Errorf("%w: generic interface", ErrUnsupported)
			}
			return it, nil
		}
	}
	return nil, ErrTypeNotFound
}

type stubData struct {
	Package     string
	Type        string
	Stub        string
	Constructor string
	Imports     string
	Methods     []method
}

type importSpec struct {
	Name string
	Path string
}

type method struct {
	Name    string
	Params  string // parameter list
	Args    string // Select arguments after the method name
	Call    string // forwarded arguments
	Results string // result list, named when the last result is error
	Error   bool   // last result is error
	Returns bool   // has results
}

func newMethod(fset *token.FileSet, name string, ft *ast.FuncType) method {
	m := method{Name: name}

	var results []string
	if ft.Results != nil {
		for _, field := range ft.Results.List {
			n := max(len(field.Names), 1)
			for range n {
				results = append(results, expr(fset, field.Type))
			}
		}
	}
	m.Returns = len(results) > 0
	m.Error = m.Returns && results[len(results)-1] == "error"

	reserved := map[string]bool{"a": true, "ext": true, "err": true}
	for i := range results {
		reserved["r"+strconv.Itoa(i)] = true
	}

	var params, args, call []string
	i := 0
	for _, field := range ft.Params.List {
		typ := expr(fset, field.Type)
		_, variadic := field.Type.(*ast.Ellipsis)
		names := field.Names
		if len(names) == 0 {
			names = []*ast.Ident{{Name: "_"}}
		}
		for _, id := range names {
			n := id.Name
			if n == "_" || reserved[n] {
				n = "p" + strconv.Itoa(i)
			}
			i++
			params = append(params, n+" "+typ)
			args = append(args, n)
			if variadic {
				call = append(call, n+"...")
			} else {
				call = append(call, n)
			}
		}
	}
	m.Params = strings.Join(params, ", ")
	m.Call = strings.Join(call, ", ")
	if len(args) > 0 {
		m.Args = ", " + strings.Join(args, ", ")
	}

	switch {
	case m.Error:
		named := make([]string, 0, len(results))
		for i, r := range results[:len(results)-1] {
			named = append(named, "r"+strconv.Itoa(i)+" "+r)
		}
		named = append(named, "err error")
		m.Results = "(" + strings.Join(named, ", ") + ")"
	case len(results) == 1:
		m.Results = results[0]
	case len(results) > 1:
		m.Results = "(" + strings.Join(results, ", ") + ")"
	}
	return m
}

func expr(fset *token.FileSet, e ast.Expr) string {
	var buf bytes.Buffer
	_ = printer.Fprint(&buf, fset, e)
	return buf.String()
}

// collectQualifiers records the package names a signature refers to.
func collectQualifiers(ft *ast.FuncType, used map[string]bool) {
	ast.Inspect(ft, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok {
				used[id.Name] = true
			}
		}
		return true
	})
}

// importsFor returns the file's imports the signatures use, split into
// standard library and other packages. The extension package is always
// imported.
func importsFor(f *ast.File, used map[string]bool) (std, other []importSpec) {
	specs := []importSpec{{Path: ExtensionImport}}
	for _, is := range f.Imports {
		p, err := strconv.Unquote(is.Path.Value)
		if err != nil || p == ExtensionImport {
			continue
		}
		spec := importSpec{Path: p}
		name := assumedName(p)
		if is.Name != nil {
			spec.Name = is.Name.Name
			name = spec.Name
		}
		if used[name] {
			specs = append(specs, spec)
		}
	}
	slices.SortFunc(specs, func(a, b importSpec) int { return strings.Compare(a.Path, b.Path) })
	for _, s := range specs {
		if first, _, _ := strings.Cut(s.Path, "/"); strings.Contains(first, ".") {
			other = append(other, s)
		} else {
			std = append(std, s)
		}
	}
	return std, other
}

// importBlock renders import specs, standard library first.
func importBlock(std, other []importSpec) string {
	var lines []string
	for _, group := range [][]importSpec{std, other} {
		if len(group) == 0 {
			continue
		}
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		for _, s := range group {
			line := "\t" + strconv.Quote(s.Path)
			if s.Name != "" {
				line = "\t" + s.Name + " " + strconv.Quote(s.Path)
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// assumedName guesses a package name from its import path:
// "gopkg.in/yaml.v3" -> "yaml", "github.com/a/go-diff" -> "diff".
func assumedName(importPath string) string {
	base := path.Base(importPath)
	if strings.HasPrefix(base, "v") {
		if _, err := strconv.Atoi(base[1:]); err == nil {
			base = path.Base(path.Dir(importPath))
		}
	}
	if i := strings.Index(base, ".v"); i > 0 {
		base = base[:i]
	}
	base = strings.TrimPrefix(base, "go-")
	return strings.Map(func(r rune) rune {
		if r == '-' || r == '.' {
			return -1
		}
		return r
	}, base)
}

var stubTpl = template.Must(template.New("stub").Parse(`// Code generated by spi gen. DO NOT EDIT.

package {{.Package}}

import (
{{.Imports}}
)

// {{.Stub}} dispatches {{.Type}} calls to the extension selected for each call.
type {{.Stub}} struct {
	s extension.Selector
}

func {{.Constructor}}(s extension.Selector) {{.Type}} {
	return &{{.Stub}}{s: s}
}
{{range .Methods}}
func (a *{{$.Stub}}) {{.Name}}({{.Params}}) {{.Results}} {
	ext, err := a.s.Select("{{.Name}}"{{.Args}})
	if err != nil {
		{{if .Error}}return{{else}}panic(err){{end}}
	}
	{{if .Returns}}return {{end}}ext.({{$.Type}}).{{.Name}}({{.Call}})
}
{{end}}`))
