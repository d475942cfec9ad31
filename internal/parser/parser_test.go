package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willow-lang/willow/internal/ast"
)

func parseProgram(t *testing.T, input string) *ast.Program {
	t.Helper()
	p := New(input)
	program, err := p.Parse()
	require.NoError(t, err, "parse errors: %v", p.Errors())
	return program
}

func TestParseVarDeclaration(t *testing.T) {
	program := parseProgram(t, `var x = 1 + 2;`)
	require.Len(t, program.Statements, 1)

	decl, ok := program.Statements[0].(*ast.VarDecl)
	require.True(t, ok)
	assert.Equal(t, "x", decl.Name.Lexeme)

	bin, ok := decl.Initializer.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, float64(1), bin.Left.(*ast.Literal).Value)
	assert.Equal(t, float64(2), bin.Right.(*ast.Literal).Value)
}

func TestParsePrecedenceBindsMultiplicationTighterThanAddition(t *testing.T) {
	program := parseProgram(t, `1 + 2 * 3;`)
	expr := program.Statements[0].(*ast.ExprStmt).Expression
	add, ok := expr.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, float64(1), add.Left.(*ast.Literal).Value)

	mul, ok := add.Right.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, float64(2), mul.Left.(*ast.Literal).Value)
	assert.Equal(t, float64(3), mul.Right.(*ast.Literal).Value)
}

func TestParseAssignmentIsRightAssociative(t *testing.T) {
	program := parseProgram(t, `a = b = 3;`)
	expr := program.Statements[0].(*ast.ExprStmt).Expression
	outer, ok := expr.(*ast.Assign)
	require.True(t, ok)
	assert.Equal(t, "a", outer.Name.Lexeme)

	inner, ok := outer.Value.(*ast.Assign)
	require.True(t, ok)
	assert.Equal(t, "b", inner.Name.Lexeme)
}

func TestParseInvalidAssignmentTargetIsError(t *testing.T) {
	p := New(`1 = 2;`)
	_, err := p.Parse()
	require.Error(t, err)
	assert.Contains(t, p.Errors()[0], "invalid assignment target")
}

func TestParseIfElse(t *testing.T) {
	program := parseProgram(t, `if (x) { print 1; } else { print 2; }`)
	stmt, ok := program.Statements[0].(*ast.IfStmt)
	require.True(t, ok)
	assert.NotNil(t, stmt.Then)
	assert.NotNil(t, stmt.Else)
}

func TestParseForDesugarsToWhileInsideBlock(t *testing.T) {
	program := parseProgram(t, `for (var i = 0; i < 3; i = i + 1) print i;`)
	block, ok := program.Statements[0].(*ast.Block)
	require.True(t, ok)
	require.Len(t, block.Statements, 2)

	_, ok = block.Statements[0].(*ast.VarDecl)
	require.True(t, ok)

	while, ok := block.Statements[1].(*ast.WhileStmt)
	require.True(t, ok)
	assert.IsType(t, &ast.Binary{}, while.Condition)

	whileBody, ok := while.Body.(*ast.Block)
	require.True(t, ok)
	require.Len(t, whileBody.Statements, 2)
}

func TestParseForWithoutClausesLoopsForever(t *testing.T) {
	program := parseProgram(t, `for (;;) print 1;`)
	while := program.Statements[0].(*ast.WhileStmt)
	lit, ok := while.Condition.(*ast.Literal)
	require.True(t, ok)
	assert.Equal(t, true, lit.Value)
}

func TestParseClassWithSuperclassAndMethods(t *testing.T) {
	program := parseProgram(t, `
		class Animal { speak() { print "..."; } }
		class Dog < Animal { speak() { print "woof"; } }
	`)
	require.Len(t, program.Statements, 2)

	dog := program.Statements[1].(*ast.ClassDecl)
	require.NotNil(t, dog.Superclass)
	assert.Equal(t, "Animal", dog.Superclass.Name.Lexeme)
	require.Len(t, dog.Methods, 1)
	assert.Equal(t, "speak", dog.Methods[0].Name.Lexeme)
}

func TestParseCallGetSetAndSuper(t *testing.T) {
	program := parseProgram(t, `
		class Base { init() { this.x = 1; } }
		class Sub < Base {
			init() {
				super.init();
				this.y = this.x + 1;
			}
		}
	`)
	sub := program.Statements[1].(*ast.ClassDecl)
	initMethod := sub.Methods[0]
	require.Len(t, initMethod.Body, 2)

	exprStmt := initMethod.Body[0].(*ast.ExprStmt)
	call := exprStmt.Expression.(*ast.Call)
	sup, ok := call.Callee.(*ast.Super)
	require.True(t, ok)
	assert.Equal(t, "init", sup.Method.Lexeme)
}

func TestParseListLiteralAndIndex(t *testing.T) {
	program := parseProgram(t, `var xs = [1, 2, 3]; xs[0] = 9;`)
	decl := program.Statements[0].(*ast.VarDecl)
	list := decl.Initializer.(*ast.ListLiteral)
	assert.Len(t, list.Elements, 3)

	set := program.Statements[1].(*ast.ExprStmt).Expression.(*ast.IndexSet)
	assert.Equal(t, "xs", set.Object.(*ast.Variable).Name.Lexeme)
}

func TestParseLogicalAndOrShortCircuitShape(t *testing.T) {
	program := parseProgram(t, `a and b or c;`)
	expr := program.Statements[0].(*ast.ExprStmt).Expression
	or, ok := expr.(*ast.Logical)
	require.True(t, ok)
	assert.Equal(t, "or", or.Op.Lexeme)

	and, ok := or.Left.(*ast.Logical)
	require.True(t, ok)
	assert.Equal(t, "and", and.Op.Lexeme)
}
