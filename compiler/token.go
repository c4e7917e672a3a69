package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals and names
	TokenInteger    // 42
	TokenIdentifier // x, total_1

	// Operators
	TokenPlus    // +
	TokenMinus   // -
	TokenStar    // *
	TokenLess    // <
	TokenGreater // >
	TokenAssign  // =

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenSemicolon // ;

	// Keywords
	TokenPrint
	TokenIf
	TokenThen
	TokenElse
	TokenWhile
	TokenDo
	TokenEnd
	TokenArgs
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenError:      "ERROR",
	TokenInteger:    "INTEGER",
	TokenIdentifier: "IDENTIFIER",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenLess:       "<",
	TokenGreater:    ">",
	TokenAssign:     "=",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenSemicolon:  ";",
	TokenPrint:      "print",
	TokenIf:         "if",
	TokenThen:       "then",
	TokenElse:       "else",
	TokenWhile:      "while",
	TokenDo:         "do",
	TokenEnd:        "end",
	TokenArgs:       "args",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// End returns the position just past the token.
func (t Token) End() Position {
	return Position{
		Offset: t.Pos.Offset + len(t.Literal),
		Line:   t.Pos.Line,
		Column: t.Pos.Column + len(t.Literal),
	}
}

// Keywords mapped to their token types.
var keywords = map[string]TokenType{
	"print": TokenPrint,
	"if":    TokenIf,
	"then":  TokenThen,
	"else":  TokenElse,
	"while": TokenWhile,
	"do":    TokenDo,
	"end":   TokenEnd,
	"args":  TokenArgs,
}

// Keywords returns the reserved words of the language.
func Keywords() []string {
	return []string{"print", "if", "then", "else", "while", "do", "end", "args"}
}

// IsKeyword reports whether name is reserved.
func IsKeyword(name string) bool {
	_, ok := keywords[name]
	return ok
}
