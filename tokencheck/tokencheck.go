// Package tokencheck defines an analyzer that reports uses of percore.Token
// that outlive the masked region the token was minted for.
//
// A token is only meaningful on the core that minted it and only until the
// outermost percore.Free region on that core returns. The percore package
// checks this at run time on every borrow. This analyzer rejects the ways a
// token can leave its region at compile time:
//
//   - forging a token with a composite literal
//   - storing a token in a package-level variable, a struct field, a channel,
//     or a variable declared outside the function the token was received in
//   - returning a token from a function
//   - handing a token to another goroutine
package tokencheck

import (
	"go/ast"
	"go/token"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

const percorePath = "tinygo.org/x/percore"

const doc = `check that percore.Token values stay inside their masked region

The tokencheck analyzer reports percore.Token values that are forged,
stored outside the function they were received in, returned, sent over
channels or handed to other goroutines.`

var Analyzer = &analysis.Analyzer{
	Name:     "tokencheck",
	Doc:      doc,
	URL:      "https://pkg.go.dev/tinygo.org/x/percore/tokencheck",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (any, error) {
	if pass.Pkg.Path() == percorePath {
		// The package that mints tokens.
		return nil, nil
	}
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	c := &checker{pass: pass, seen: make(map[types.Type]bool)}
	c.checkPackageVars()

	nodeFilter := []ast.Node{
		(*ast.CompositeLit)(nil),
		(*ast.StructType)(nil),
		(*ast.ChanType)(nil),
		(*ast.FuncType)(nil),
		(*ast.AssignStmt)(nil),
		(*ast.GoStmt)(nil),
	}
	inspect.WithStack(nodeFilter, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return true
		}
		switch n := n.(type) {
		case *ast.CompositeLit:
			if isToken(pass.TypesInfo.TypeOf(n)) {
				pass.Reportf(n.Pos(), "percore.Token can only be obtained from percore.Free or percore.Run")
			}
		case *ast.StructType:
			for _, field := range n.Fields.List {
				if !c.holdsToken(pass.TypesInfo.TypeOf(field.Type)) {
					continue
				}
				name := types.ExprString(field.Type)
				if len(field.Names) != 0 {
					name = field.Names[0].Name
				}
				pass.Reportf(field.Pos(), "struct field %s holds a percore.Token", name)
			}
		case *ast.ChanType:
			if c.holdsToken(pass.TypesInfo.TypeOf(n.Value)) {
				pass.Reportf(n.Pos(), "channel element type holds a percore.Token")
			}
		case *ast.FuncType:
			if n.Results == nil {
				return true
			}
			for _, field := range n.Results.List {
				if c.holdsToken(pass.TypesInfo.TypeOf(field.Type)) {
					pass.Reportf(field.Pos(), "function returns a percore.Token")
				}
			}
		case *ast.AssignStmt:
			if n.Tok == token.DEFINE {
				return true
			}
			fn := enclosingFunc(stack)
			for _, lhs := range n.Lhs {
				id, ok := ast.Unparen(lhs).(*ast.Ident)
				if !ok {
					continue
				}
				obj, ok := pass.TypesInfo.Uses[id].(*types.Var)
				if !ok || !c.holdsToken(obj.Type()) {
					continue
				}
				if fn == nil || !within(obj.Pos(), fn) {
					pass.Reportf(lhs.Pos(), "percore.Token escapes its region through assignment to %s", id.Name)
				}
			}
		case *ast.GoStmt:
			c.checkGo(n)
		}
		return true
	})
	return nil, nil
}

type checker struct {
	pass *analysis.Pass
	seen map[types.Type]bool // memoized holdsToken results
}

func (c *checker) checkPackageVars() {
	scope := c.pass.Pkg.Scope()
	for _, name := range scope.Names() {
		v, ok := scope.Lookup(name).(*types.Var)
		if !ok || !c.holdsToken(v.Type()) {
			continue
		}
		c.pass.Reportf(v.Pos(), "package-level variable %s holds a percore.Token", name)
	}
}

// checkGo reports tokens passed as arguments to, or captured by, the function
// started by a go statement.
func (c *checker) checkGo(stmt *ast.GoStmt) {
	info := c.pass.TypesInfo
	for _, arg := range stmt.Call.Args {
		if c.holdsToken(info.TypeOf(arg)) {
			c.pass.Reportf(arg.Pos(), "percore.Token passed to a goroutine")
		}
	}
	lit, ok := ast.Unparen(stmt.Call.Fun).(*ast.FuncLit)
	if !ok {
		return
	}
	ast.Inspect(lit.Body, func(n ast.Node) bool {
		id, ok := n.(*ast.Ident)
		if !ok {
			return true
		}
		obj, ok := info.Uses[id].(*types.Var)
		if ok && !within(obj.Pos(), lit) && c.holdsToken(obj.Type()) {
			c.pass.Reportf(id.Pos(), "percore.Token %s used in a goroutine", id.Name)
		}
		return true
	})
}

// holdsToken reports whether a value of type t carries a percore.Token.
// Functions and interfaces do not count: a func(percore.Token) is how work
// receives a token.
func (c *checker) holdsToken(t types.Type) bool {
	if t == nil {
		return false
	}
	if held, ok := c.seen[t]; ok {
		return held
	}
	c.seen[t] = false // break cycles through named types
	held := c.holds(t)
	c.seen[t] = held
	return held
}

func (c *checker) holds(t types.Type) bool {
	if isToken(t) {
		return true
	}
	switch t := t.(type) {
	case *types.Named:
		return c.holdsToken(t.Underlying())
	case *types.Alias:
		return c.holdsToken(types.Unalias(t))
	case *types.Pointer:
		return c.holdsToken(t.Elem())
	case *types.Slice:
		return c.holdsToken(t.Elem())
	case *types.Array:
		return c.holdsToken(t.Elem())
	case *types.Chan:
		return c.holdsToken(t.Elem())
	case *types.Map:
		return c.holdsToken(t.Key()) || c.holdsToken(t.Elem())
	case *types.Tuple:
		for i := 0; i < t.Len(); i++ {
			if c.holdsToken(t.At(i).Type()) {
				return true
			}
		}
	case *types.Struct:
		for i := 0; i < t.NumFields(); i++ {
			if c.holdsToken(t.Field(i).Type()) {
				return true
			}
		}
	}
	return false
}

func isToken(t types.Type) bool {
	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Name() == "Token" && obj.Pkg() != nil && obj.Pkg().Path() == percorePath
}

// enclosingFunc returns the innermost function declaration or literal on the
// stack.
func enclosingFunc(stack []ast.Node) ast.Node {
	for i := len(stack) - 1; i >= 0; i-- {
		switch stack[i].(type) {
		case *ast.FuncLit, *ast.FuncDecl:
			return stack[i]
		}
	}
	return nil
}

func within(pos token.Pos, n ast.Node) bool {
	return n.Pos() <= pos && pos < n.End()
}
