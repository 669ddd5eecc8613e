package docs

import (
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"path"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/traefik/yaegi/stdlib"
)

var majorVersion = regexp.MustCompile(`^v[0-9]+$`)

// parseBlock parses code the way the interpreter reads a block: as file-level
// declarations when possible, otherwise as the body of main. It returns nil
// when neither form parses; the interpreter then reports the syntax error.
func parseBlock(code string) (*ast.File, *ast.BlockStmt) {
	fset := token.NewFileSet()
	if f, err := parser.ParseFile(fset, "", "package main\n"+code, 0); err == nil {
		return f, nil
	}
	f, err := parser.ParseFile(fset, "", "package main\nfunc main() {\n"+code+"\n}", 0)
	if err != nil {
		return nil, nil
	}
	for _, d := range f.Decls {
		if fn, ok := d.(*ast.FuncDecl); ok && fn.Name.Name == "main" && fn.Recv == nil {
			return f, fn.Body
		}
	}
	return f, nil
}

// firstUnbound returns the first identifier of code, in source order, that is
// neither bound by code itself, by the namespace nor predeclared.
func (ns *Namespace) firstUnbound(code string) (string, bool) {
	f, _ := parseBlock(code)
	if f == nil || ns.dotImport {
		return "", false
	}

	unresolved := append([]*ast.Ident(nil), f.Unresolved...)
	sort.Slice(unresolved, func(i, j int) bool { return unresolved[i].Pos() < unresolved[j].Pos() })

	var globals map[string]reflect.Value
	for _, id := range unresolved {
		name := id.Name
		if name == "_" || ns.declared[name] || types.Universe.Lookup(name) != nil {
			continue
		}
		if globals == nil {
			globals = ns.interp.Globals()
		}
		if _, ok := globals[name]; ok {
			continue
		}
		return name, true
	}
	return "", false
}

// record adds the top-level names a successfully executed block binds.
func (ns *Namespace) record(code string) {
	f, body := parseBlock(code)
	if f == nil {
		return
	}

	for _, imp := range f.Imports {
		name := importName(strings.Trim(imp.Path.Value, `"`))
		if imp.Name != nil {
			name = imp.Name.Name
		}
		switch name {
		case ".":
			ns.dotImport = true
		case "_":
		default:
			ns.declared[name] = true
		}
	}

	if body == nil {
		for name := range f.Scope.Objects {
			ns.declared[name] = true
		}
		return
	}

	for _, stmt := range body.List {
		switch s := stmt.(type) {
		case *ast.AssignStmt:
			if s.Tok != token.DEFINE {
				continue
			}
			for _, lhs := range s.Lhs {
				if id, ok := lhs.(*ast.Ident); ok {
					ns.declared[id.Name] = true
				}
			}
		case *ast.DeclStmt:
			gd, ok := s.Decl.(*ast.GenDecl)
			if !ok {
				continue
			}
			for _, spec := range gd.Specs {
				switch sp := spec.(type) {
				case *ast.ValueSpec:
					for _, id := range sp.Names {
						ns.declared[id.Name] = true
					}
				case *ast.TypeSpec:
					ns.declared[sp.Name.Name] = true
				}
			}
		}
	}
}

// importName returns the package name an import path binds, using the
// interpreter's symbol table for the standard library.
func importName(importPath string) string {
	prefix := importPath + "/"
	for key := range stdlib.Symbols {
		if rest, ok := strings.CutPrefix(key, prefix); ok && !strings.Contains(rest, "/") {
			return rest
		}
	}

	base := path.Base(importPath)
	if majorVersion.MatchString(base) {
		if dir := path.Dir(importPath); dir != "." {
			return path.Base(dir)
		}
	}
	return base
}
