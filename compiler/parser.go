package compiler

import (
	"fmt"
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent parser
// ---------------------------------------------------------------------------

// SyntaxError is a parse error at a source position.
type SyntaxError struct {
	Pos Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Msg)
}

// Parser parses quill source code into an AST. It keeps going after an
// error so that editors can report every problem at once.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	prevEnd   Position // end of the last consumed token
	errors    []*SyntaxError
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.prevEnd = p.curToken.End()
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.describe(p.curToken))
	return false
}

// errorf records a parse error at the current token.
func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, &SyntaxError{
		Pos: p.curToken.Pos,
		Msg: fmt.Sprintf(format, args...),
	})
}

// describe renders a token for error messages.
func (p *Parser) describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenIdentifier, TokenInteger:
		return fmt.Sprintf("%s %q", tok.Type, tok.Literal)
	case TokenError:
		return tok.Literal
	}
	return fmt.Sprintf("%q", tok.Type.String())
}

// Errors returns accumulated parse errors.
func (p *Parser) Errors() []*SyntaxError {
	return p.errors
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses the whole input. On errors the returned program holds
// every statement that parsed cleanly.
func (p *Parser) ParseProgram() *Program {
	start := p.curToken.Pos
	body := p.parseBlock()
	return &Program{
		SpanVal: Span{Start: start, End: p.prevEnd},
		Body:    body,
	}
}

// ParseProgram parses source into a Program. It returns the first
// *SyntaxError when the source is malformed.
func ParseProgram(source string) (*Program, error) {
	p := NewParser(source)
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return nil, errs[0]
	}
	return prog, nil
}

// parseBlock parses statements until EOF or one of the terminators.
func (p *Parser) parseBlock(terminators ...TokenType) *Block {
	block := &Block{SpanVal: Span{Start: p.curToken.Pos, End: p.curToken.Pos}}
	for !p.curTokenIs(TokenEOF) && !p.atAny(terminators) {
		before := p.curToken.Pos.Offset
		stmt := p.parseStatement()
		if stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
			block.SpanVal.End = p.prevEnd
			continue
		}
		p.synchronize()
		if p.curToken.Pos.Offset == before && !p.curTokenIs(TokenEOF) {
			// A stray terminator that belongs to no open construct.
			p.nextToken()
		}
	}
	return block
}

func (p *Parser) atAny(types []TokenType) bool {
	for _, t := range types {
		if p.curTokenIs(t) {
			return true
		}
	}
	return false
}

// synchronize skips to a plausible statement boundary after an error.
func (p *Parser) synchronize() {
	for {
		switch p.curToken.Type {
		case TokenEOF, TokenEnd, TokenElse, TokenPrint, TokenIf, TokenWhile:
			return
		case TokenSemicolon:
			p.nextToken()
			return
		}
		p.nextToken()
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseStatement() Stmt {
	switch p.curToken.Type {
	case TokenIdentifier:
		return p.parseAssign()
	case TokenPrint:
		return p.parsePrint()
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenError:
		p.errorf("%s", p.curToken.Literal)
		return nil
	default:
		p.errorf("unexpected %s at start of statement", p.describe(p.curToken))
		return nil
	}
}

func (p *Parser) parseAssign() Stmt {
	tok := p.curToken
	target := &Var{
		SpanVal: Span{Start: tok.Pos, End: tok.End()},
		Name:    tok.Literal,
	}
	p.nextToken()
	if !p.expect(TokenAssign) {
		return nil
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	if !p.expect(TokenSemicolon) {
		return nil
	}
	return &Assign{
		SpanVal: Span{Start: tok.Pos, End: p.prevEnd},
		Target:  target,
		Value:   value,
	}
}

func (p *Parser) parsePrint() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	if !p.expect(TokenSemicolon) {
		return nil
	}
	return &Print{
		SpanVal: Span{Start: start, End: p.prevEnd},
		Value:   value,
	}
}

func (p *Parser) parseIf() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	cond := p.parseExpr()
	if cond == nil || !p.expect(TokenThen) {
		return nil
	}
	then := p.parseBlock(TokenElse, TokenEnd)
	var els *Block
	if p.curTokenIs(TokenElse) {
		p.nextToken()
		els = p.parseBlock(TokenEnd)
	} else {
		els = &Block{SpanVal: Span{Start: p.curToken.Pos, End: p.curToken.Pos}}
	}
	if !p.expect(TokenEnd) {
		return nil
	}
	p.optionalSemicolon()
	return &If{
		SpanVal: Span{Start: start, End: p.prevEnd},
		Cond:    cond,
		Then:    then,
		Else:    els,
	}
}

func (p *Parser) parseWhile() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	cond := p.parseExpr()
	if cond == nil || !p.expect(TokenDo) {
		return nil
	}
	body := p.parseBlock(TokenEnd)
	if !p.expect(TokenEnd) {
		return nil
	}
	p.optionalSemicolon()
	return &While{
		SpanVal: Span{Start: start, End: p.prevEnd},
		Cond:    cond,
		Body:    body,
	}
}

func (p *Parser) optionalSemicolon() {
	if p.curTokenIs(TokenSemicolon) {
		p.nextToken()
	}
}

// ---------------------------------------------------------------------------
// Expressions
//
//	expr       := additive (('<' | '>') additive)*
//	additive   := term (('+' | '-') term)*
//	term       := unary ('*' unary)*
//	unary      := '-' unary | primary
//	primary    := INTEGER | IDENTIFIER | 'args' '(' expr ')' | '(' expr ')'
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	return p.parseExpr()
}

var binaryOps = map[TokenType]BinOp{
	TokenPlus:    OpAdd,
	TokenMinus:   OpSub,
	TokenStar:    OpMul,
	TokenLess:    OpLt,
	TokenGreater: OpGt,
}

func (p *Parser) parseExpr() Expr {
	return p.parseBinary(p.parseAdditive, TokenLess, TokenGreater)
}

func (p *Parser) parseAdditive() Expr {
	return p.parseBinary(p.parseTerm, TokenPlus, TokenMinus)
}

func (p *Parser) parseTerm() Expr {
	return p.parseBinary(p.parseUnary, TokenStar)
}

// parseBinary parses a left-associative chain of the given operators.
func (p *Parser) parseBinary(operand func() Expr, ops ...TokenType) Expr {
	left := operand()
	if left == nil {
		return nil
	}
	for p.atAny(ops) {
		op := binaryOps[p.curToken.Type]
		p.nextToken()
		right := operand()
		if right == nil {
			return nil
		}
		left = &BinaryExpr{
			SpanVal: Span{Start: left.Span().Start, End: right.Span().End},
			Op:      op,
			Left:    left,
			Right:   right,
		}
	}
	return left
}

// parseUnary folds a minus sign into an integer literal and otherwise
// rewrites -e as 0 - e.
func (p *Parser) parseUnary() Expr {
	if !p.curTokenIs(TokenMinus) {
		return p.parsePrimary()
	}
	start := p.curToken.Pos
	p.nextToken()
	if p.curTokenIs(TokenInteger) {
		tok := p.curToken
		p.nextToken()
		v, err := strconv.ParseInt("-"+tok.Literal, 10, 64)
		if err != nil {
			p.errors = append(p.errors, &SyntaxError{Pos: start, Msg: fmt.Sprintf("integer literal out of range: -%s", tok.Literal)})
			return nil
		}
		return &IntLiteral{SpanVal: Span{Start: start, End: p.prevEnd}, Value: v}
	}
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	return &BinaryExpr{
		SpanVal: Span{Start: start, End: operand.Span().End},
		Op:      OpSub,
		Left:    &IntLiteral{SpanVal: Span{Start: start, End: start}, Value: 0},
		Right:   operand,
	}
}

func (p *Parser) parsePrimary() Expr {
	tok := p.curToken
	switch tok.Type {
	case TokenInteger:
		p.nextToken()
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.errors = append(p.errors, &SyntaxError{Pos: tok.Pos, Msg: fmt.Sprintf("integer literal out of range: %s", tok.Literal)})
			return nil
		}
		return &IntLiteral{SpanVal: Span{Start: tok.Pos, End: tok.End()}, Value: v}

	case TokenIdentifier:
		p.nextToken()
		return &Var{SpanVal: Span{Start: tok.Pos, End: tok.End()}, Name: tok.Literal}

	case TokenArgs:
		p.nextToken()
		if !p.expect(TokenLParen) {
			return nil
		}
		index := p.parseExpr()
		if index == nil || !p.expect(TokenRParen) {
			return nil
		}
		return &InputExpr{SpanVal: Span{Start: tok.Pos, End: p.prevEnd}, Index: index}

	case TokenLParen:
		p.nextToken()
		inner := p.parseExpr()
		if inner == nil || !p.expect(TokenRParen) {
			return nil
		}
		return inner

	case TokenError:
		p.errorf("%s", tok.Literal)
		return nil

	default:
		p.errorf("expected expression, got %s", p.describe(tok))
		return nil
	}
}
