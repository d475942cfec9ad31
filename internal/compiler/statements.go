package compiler

import (
	"github.com/willow-lang/willow/internal/ast"
	"github.com/willow-lang/willow/internal/bytecode"
)

func (c *Compiler) statement(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		c.expression(s.Expression)
		c.emitOp(bytecode.OpPop, s.Line())

	case *ast.PrintStmt:
		c.expression(s.Expression)
		if s.Newline {
			c.emitOp(bytecode.OpPrintln, s.Line())
		} else {
			c.emitOp(bytecode.OpPrint, s.Line())
		}

	case *ast.VarDecl:
		c.varDecl(s)

	case *ast.Block:
		c.beginScope()
		for _, inner := range s.Statements {
			c.statement(inner)
		}
		c.endScope(s.Line())

	case *ast.IfStmt:
		c.ifStmt(s)

	case *ast.WhileStmt:
		c.whileStmt(s)

	case *ast.ReturnStmt:
		c.returnStmt(s)

	case *ast.FunDecl:
		c.funDecl(s)

	case *ast.ClassDecl:
		c.classDecl(s)

	default:
		c.errorf(stmt.Line(), "unknown statement type %T", stmt)
	}
}

func (c *Compiler) varDecl(s *ast.VarDecl) {
	c.declareVariable(s.Name)
	var global byte
	if c.scopeDepth == 0 {
		global = c.identifierConstant(s.Name.Lexeme)
	}
	if s.Initializer != nil {
		c.expression(s.Initializer)
	} else {
		c.emitOp(bytecode.OpNil, s.Name.Line)
	}
	c.defineVariable(global, s.Name.Line)
}

func (c *Compiler) ifStmt(s *ast.IfStmt) {
	c.expression(s.Condition)
	thenJump := c.emitJump(bytecode.OpJumpIfFalse, s.Line())
	c.emitOp(bytecode.OpPop, s.Line())
	c.statement(s.Then)

	elseJump := c.emitJump(bytecode.OpJump, s.Line())
	c.patchJump(thenJump)
	c.emitOp(bytecode.OpPop, s.Line())

	if s.Else != nil {
		c.statement(s.Else)
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStmt(s *ast.WhileStmt) {
	loopStart := c.chunk().Len()
	c.expression(s.Condition)

	exitJump := c.emitJump(bytecode.OpJumpIfFalse, s.Line())
	c.emitOp(bytecode.OpPop, s.Line())
	c.statement(s.Body)
	c.emitLoop(loopStart, s.Line())

	c.patchJump(exitJump)
	c.emitOp(bytecode.OpPop, s.Line())
}

func (c *Compiler) returnStmt(s *ast.ReturnStmt) {
	if c.kind == funcScript {
		c.errorf(s.Line(), "cannot return from top-level script")
	}
	if s.Value == nil {
		c.emitReturn()
		return
	}
	if c.kind == funcInitializer {
		c.errorf(s.Line(), "cannot return a value from an initializer")
	}
	c.expression(s.Value)
	c.emitOp(bytecode.OpReturn, s.Line())
}

func (c *Compiler) funDecl(s *ast.FunDecl) {
	c.declareVariable(s.Name)
	var global byte
	if c.scopeDepth == 0 {
		global = c.identifierConstant(s.Name.Lexeme)
	}
	c.markInitialized()
	c.compileFunction(s, funcFunction)
	c.defineVariable(global, s.Name.Line)
}

func (c *Compiler) compileFunction(decl *ast.FunDecl, kind funcType) {
	fc := newCompiler(c.vm, c, kind, c.class)
	fc.function.Name = fc.vm.InternString(decl.Name.Lexeme)
	fc.function.Arity = len(decl.Params)
	fc.beginScope()

	for _, param := range decl.Params {
		fc.declareVariable(param)
		fc.markInitialized()
	}
	for _, stmt := range decl.Body {
		fc.statement(stmt)
	}
	fn := fc.finish()

	idx := c.chunk().AddConstant(bytecode.ObjectValue(fn))
	c.emitOpByte(bytecode.OpClosure, byte(idx), decl.Name.Line)
	for _, uv := range fc.upvalues {
		var isLocal byte
		if uv.isLocal {
			isLocal = 1
		}
		c.emitByte(isLocal, decl.Name.Line)
		c.emitByte(uv.index, decl.Name.Line)
	}
}

func (c *Compiler) classDecl(s *ast.ClassDecl) {
	c.declareVariable(s.Name)
	nameConst := c.identifierConstant(s.Name.Lexeme)
	c.emitOpByte(bytecode.OpClass, nameConst, s.Name.Line)
	c.defineVariable(nameConst, s.Name.Line)

	scope := &classScope{enclosing: c.class}
	c.class = scope

	if s.Superclass != nil {
		if s.Superclass.Name.Lexeme == s.Name.Lexeme {
			c.errorf(s.Name.Line, "a class cannot inherit from itself")
		}
		c.namedVariable(s.Superclass.Name, false)

		c.beginScope()
		c.locals = append(c.locals, local{name: "super", depth: c.scopeDepth})
		scope.hasSuperclass = true

		c.namedVariable(s.Name, false)
		c.emitOp(bytecode.OpInherit, s.Name.Line)
	}

	c.namedVariable(s.Name, false)
	for _, method := range s.Methods {
		c.method(method)
	}
	c.emitOp(bytecode.OpPop, s.Name.Line)

	if scope.hasSuperclass {
		c.endScope(s.Name.Line)
	}
	c.class = scope.enclosing
}

func (c *Compiler) method(decl *ast.FunDecl) {
	nameConst := c.identifierConstant(decl.Name.Lexeme)
	kind := funcMethod
	if decl.Name.Lexeme == "init" {
		kind = funcInitializer
	}
	c.compileFunction(decl, kind)
	c.emitOpByte(bytecode.OpMethod, nameConst, decl.Name.Line)
}
