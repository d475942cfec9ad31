package compiler

import (
	"github.com/willow-lang/willow/internal/ast"
	"github.com/willow-lang/willow/internal/bytecode"
	"github.com/willow-lang/willow/internal/token"
)

func (c *Compiler) expression(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.Literal:
		c.literal(e)
	case *ast.ListLiteral:
		c.listLiteral(e)
	case *ast.Variable:
		c.namedVariable(e.Name, false)
	case *ast.Assign:
		c.expression(e.Value)
		c.namedVariable(e.Name, true)
	case *ast.Unary:
		c.unary(e)
	case *ast.Binary:
		c.binary(e)
	case *ast.Logical:
		c.logical(e)
	case *ast.Call:
		c.call(e)
	case *ast.Get:
		c.expression(e.Object)
		c.emitOpByte(bytecode.OpGetProperty, c.identifierConstant(e.Name.Lexeme), e.Name.Line)
	case *ast.Set:
		c.expression(e.Object)
		c.expression(e.Value)
		c.emitOpByte(bytecode.OpSetProperty, c.identifierConstant(e.Name.Lexeme), e.Name.Line)
	case *ast.Index:
		c.expression(e.Object)
		c.expression(e.Index)
		c.emitOp(bytecode.OpListGetIdx, e.Line())
	case *ast.IndexSet:
		c.expression(e.Object)
		c.expression(e.Index)
		c.expression(e.Value)
		c.emitOp(bytecode.OpListSetIdx, e.Line())
	case *ast.This:
		if c.class == nil {
			c.errorf(e.Line(), "cannot use 'this' outside of a class method")
		}
		c.namedVariable(e.Tok, false)
	case *ast.Super:
		c.superGet(e)
	default:
		c.errorf(expr.Line(), "unknown expression type %T", expr)
	}
}

func (c *Compiler) literal(e *ast.Literal) {
	switch v := e.Value.(type) {
	case nil:
		c.emitOp(bytecode.OpNil, e.Line())
	case bool:
		if v {
			c.emitOp(bytecode.OpTrue, e.Line())
		} else {
			c.emitOp(bytecode.OpFalse, e.Line())
		}
	case float64:
		c.emitConstant(bytecode.Number(v), e.Line())
	case string:
		c.emitConstant(bytecode.ObjectValue(c.vm.InternString(v)), e.Line())
	}
}

func (c *Compiler) listLiteral(e *ast.ListLiteral) {
	if len(e.Elements) > 255 {
		c.errorf(e.Line(), "list literal cannot have more than 255 elements")
	}
	for _, elem := range e.Elements {
		c.expression(elem)
	}
	c.emitOpByte(bytecode.OpListInit, byte(len(e.Elements)), e.Line())
}

func (c *Compiler) unary(e *ast.Unary) {
	c.expression(e.Operand)
	switch e.Op.Type {
	case token.Bang:
		c.emitOp(bytecode.OpNot, e.Line())
	case token.Minus:
		c.emitOp(bytecode.OpNegate, e.Line())
	default:
		c.errorf(e.Line(), "unsupported unary operator %s", e.Op.Lexeme)
	}
}

func (c *Compiler) binary(e *ast.Binary) {
	c.expression(e.Left)
	c.expression(e.Right)
	line := e.Line()
	switch e.Op.Type {
	case token.Plus:
		c.emitOp(bytecode.OpAdd, line)
	case token.Minus:
		c.emitOp(bytecode.OpSubtract, line)
	case token.Star:
		c.emitOp(bytecode.OpMultiply, line)
	case token.Slash:
		c.emitOp(bytecode.OpDivide, line)
	case token.EqualEqual:
		c.emitOp(bytecode.OpEqual, line)
	case token.BangEqual:
		c.emitOp(bytecode.OpEqual, line)
		c.emitOp(bytecode.OpNot, line)
	case token.Greater:
		c.emitOp(bytecode.OpGreater, line)
	case token.GreaterEqual:
		c.emitOp(bytecode.OpLess, line)
		c.emitOp(bytecode.OpNot, line)
	case token.Less:
		c.emitOp(bytecode.OpLess, line)
	case token.LessEqual:
		c.emitOp(bytecode.OpGreater, line)
		c.emitOp(bytecode.OpNot, line)
	default:
		c.errorf(line, "unsupported binary operator %s", e.Op.Lexeme)
	}
}

func (c *Compiler) logical(e *ast.Logical) {
	line := e.Line()
	switch e.Op.Type {
	case token.And:
		c.expression(e.Left)
		endJump := c.emitJump(bytecode.OpJumpIfFalse, line)
		c.emitOp(bytecode.OpPop, line)
		c.expression(e.Right)
		c.patchJump(endJump)
	case token.Or:
		c.expression(e.Left)
		elseJump := c.emitJump(bytecode.OpJumpIfFalse, line)
		endJump := c.emitJump(bytecode.OpJump, line)
		c.patchJump(elseJump)
		c.emitOp(bytecode.OpPop, line)
		c.expression(e.Right)
		c.patchJump(endJump)
	default:
		c.errorf(line, "unsupported logical operator %s", e.Op.Lexeme)
	}
}

func (c *Compiler) call(e *ast.Call) {
	if len(e.Arguments) > 255 {
		c.errorf(e.Line(), "cannot pass more than 255 arguments")
	}

	switch callee := e.Callee.(type) {
	case *ast.Get:
		c.expression(callee.Object)
		c.emitArgs(e.Arguments)
		c.emitOpByte(bytecode.OpInvoke, c.identifierConstant(callee.Name.Lexeme), e.Line())
		c.emitByte(byte(len(e.Arguments)), e.Line())

	case *ast.Super:
		if c.class == nil {
			c.errorf(e.Line(), "cannot use 'super' outside of a class method")
		} else if !c.class.hasSuperclass {
			c.errorf(e.Line(), "cannot use 'super' in a class with no superclass")
		}
		c.namedVariable(thisToken(callee.Tok), false)
		c.emitArgs(e.Arguments)
		c.namedVariable(superToken(callee.Tok), false)
		c.emitOpByte(bytecode.OpSuperInvoke, c.identifierConstant(callee.Method.Lexeme), e.Line())
		c.emitByte(byte(len(e.Arguments)), e.Line())

	default:
		c.expression(e.Callee)
		c.emitArgs(e.Arguments)
		c.emitOpByte(bytecode.OpCall, byte(len(e.Arguments)), e.Line())
	}
}

func (c *Compiler) emitArgs(args []ast.Expr) {
	for _, arg := range args {
		c.expression(arg)
	}
}

func (c *Compiler) superGet(e *ast.Super) {
	if c.class == nil {
		c.errorf(e.Line(), "cannot use 'super' outside of a class method")
	} else if !c.class.hasSuperclass {
		c.errorf(e.Line(), "cannot use 'super' in a class with no superclass")
	}
	c.namedVariable(thisToken(e.Tok), false)
	c.namedVariable(superToken(e.Tok), false)
	c.emitOpByte(bytecode.OpGetSuper, c.identifierConstant(e.Method.Lexeme), e.Line())
}

func thisToken(at token.Token) token.Token {
	return token.Token{Type: token.This, Lexeme: "this", Line: at.Line}
}

func superToken(at token.Token) token.Token {
	return token.Token{Type: token.Super, Lexeme: "super", Line: at.Line}
}
