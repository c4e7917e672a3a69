package compiler

import (
	"testing"
)

func TestLexerBasicTokens(t *testing.T) {
	input := `( ) ; = + - * < >`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenSemicolon, ";"},
		{TokenAssign, "="},
		{TokenPlus, "+"},
		{TokenMinus, "-"},
		{TokenStar, "*"},
		{TokenLess, "<"},
		{TokenGreater, ">"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok := l.NextToken()
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Literal != exp.lit {
			t.Errorf("token[%d] literal = %q, want %q", i, tok.Literal, exp.lit)
		}
	}
}

func TestLexerKeywordsAndIdentifiers(t *testing.T) {
	tokens := Tokenize("print if then else while do end args printer _x end2")
	want := []TokenType{
		TokenPrint, TokenIf, TokenThen, TokenElse, TokenWhile, TokenDo, TokenEnd, TokenArgs,
		TokenIdentifier, TokenIdentifier, TokenIdentifier, TokenEOF,
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(want), tokens)
	}
	for i, tt := range want {
		if tokens[i].Type != tt {
			t.Errorf("token[%d] = %v, want %v", i, tokens[i], tt)
		}
	}
}

func TestLexerIntegers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		lit   string
	}{
		{"0", TokenInteger, "0"},
		{"42", TokenInteger, "42"},
		{"9223372036854775808", TokenInteger, "9223372036854775808"},
		{"12abc", TokenError, "malformed number: 12abc"},
	}
	for _, tt := range tests {
		tok := NewLexer(tt.input).NextToken()
		if tok.Type != tt.typ || tok.Literal != tt.lit {
			t.Errorf("%q: got %v, want %v(%q)", tt.input, tok, tt.typ, tt.lit)
		}
	}
}

func TestLexerMinusIsAlwaysAnOperator(t *testing.T) {
	tokens := Tokenize("-5")
	if tokens[0].Type != TokenMinus || tokens[1].Type != TokenInteger {
		t.Errorf("got %v, want MINUS INTEGER", tokens)
	}
}

func TestLexerComments(t *testing.T) {
	tokens := Tokenize("# leading comment\nx # trailing\n# last")
	if len(tokens) != 2 || tokens[0].Literal != "x" || tokens[1].Type != TokenEOF {
		t.Errorf("got %v, want [x EOF]", tokens)
	}
}

func TestLexerPositions(t *testing.T) {
	tokens := Tokenize("x = 1;\n  print x;")
	tests := []struct {
		idx    int
		lit    string
		line   int
		column int
		offset int
	}{
		{0, "x", 1, 1, 0},
		{1, "=", 1, 3, 2},
		{3, ";", 1, 6, 5},
		{4, "print", 2, 3, 9},
		{5, "x", 2, 9, 15},
	}
	for _, tt := range tests {
		tok := tokens[tt.idx]
		if tok.Literal != tt.lit {
			t.Fatalf("token[%d] = %v, want %q", tt.idx, tok, tt.lit)
		}
		if tok.Pos.Line != tt.line || tok.Pos.Column != tt.column || tok.Pos.Offset != tt.offset {
			t.Errorf("%q at %+v, want line %d column %d offset %d", tt.lit, tok.Pos, tt.line, tt.column, tt.offset)
		}
	}
}

func TestLexerUnexpectedCharacter(t *testing.T) {
	tokens := Tokenize("x @ y")
	if tokens[1].Type != TokenError {
		t.Fatalf("got %v, want an error token", tokens[1])
	}
	if tokens[2].Literal != "y" {
		t.Errorf("lexing should continue after an error, got %v", tokens[2])
	}
}
