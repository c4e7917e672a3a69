package compiler

import (
	"strconv"
	"strings"
)

// Format renders prog as source text that parses back to an equal tree.
func Format(prog *Program) string {
	var sb strings.Builder
	formatBlock(&sb, prog.Body, 0)
	return sb.String()
}

// FormatExpr renders a single expression.
func FormatExpr(e Expr) string {
	var sb strings.Builder
	formatExpr(&sb, e, 0)
	return sb.String()
}

func formatBlock(sb *strings.Builder, b *Block, depth int) {
	if b == nil {
		return
	}
	for _, s := range b.Stmts {
		formatStmt(sb, s, depth)
	}
}

func formatStmt(sb *strings.Builder, stmt Stmt, depth int) {
	indent := strings.Repeat("  ", depth)
	sb.WriteString(indent)
	switch s := stmt.(type) {
	case *Assign:
		sb.WriteString(s.Target.Name)
		sb.WriteString(" = ")
		formatExpr(sb, s.Value, 0)
		sb.WriteString(";\n")
	case *Print:
		sb.WriteString("print ")
		formatExpr(sb, s.Value, 0)
		sb.WriteString(";\n")
	case *If:
		sb.WriteString("if ")
		formatExpr(sb, s.Cond, 0)
		sb.WriteString(" then\n")
		formatBlock(sb, s.Then, depth+1)
		if s.Else != nil && len(s.Else.Stmts) > 0 {
			sb.WriteString(indent)
			sb.WriteString("else\n")
			formatBlock(sb, s.Else, depth+1)
		}
		sb.WriteString(indent)
		sb.WriteString("end\n")
	case *While:
		sb.WriteString("while ")
		formatExpr(sb, s.Cond, 0)
		sb.WriteString(" do\n")
		formatBlock(sb, s.Body, depth+1)
		sb.WriteString(indent)
		sb.WriteString("end\n")
	}
}

// precedence returns the binding strength of op; higher binds tighter.
func precedence(op BinOp) int {
	switch op {
	case OpMul:
		return 3
	case OpAdd, OpSub:
		return 2
	default:
		return 1
	}
}

// formatExpr writes e, parenthesized when its operator binds looser than
// min requires.
func formatExpr(sb *strings.Builder, expr Expr, min int) {
	switch e := expr.(type) {
	case *IntLiteral:
		sb.WriteString(strconv.FormatInt(e.Value, 10))
	case *Var:
		sb.WriteString(e.Name)
	case *InputExpr:
		sb.WriteString("args(")
		formatExpr(sb, e.Index, 0)
		sb.WriteString(")")
	case *BinaryExpr:
		prec := precedence(e.Op)
		paren := prec < min
		if paren {
			sb.WriteString("(")
		}
		formatExpr(sb, e.Left, prec)
		sb.WriteString(" ")
		sb.WriteString(e.Op.String())
		sb.WriteString(" ")
		// Operators are left-associative, so an equal-precedence right
		// operand needs parentheses.
		formatExpr(sb, e.Right, prec+1)
		if paren {
			sb.WriteString(")")
		}
	}
}
