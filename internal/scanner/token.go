// Package scanner turns lox source text into a lazy sequence of tokens.
// It has no dependency on internal/vm or internal/compiler: the compiler
// is its only client, and pulls one token at a time via Scan.
package scanner

// Kind identifies a token's lexical category.
type Kind int

const (
	// Punctuation
	LeftParen Kind = iota
	RightParen
	LeftBrace
	RightBrace
	Comma
	Dot
	Minus
	Plus
	Semicolon
	Colon
	Slash
	Star
	Bang
	BangEqual
	Equal
	EqualEqual
	Greater
	GreaterEqual
	Less
	LessEqual

	// Literals
	Identifier
	String
	Number

	// Keywords
	And
	Class
	Else
	False
	For
	Fun
	If
	Nil
	Or
	Print
	Return
	Super
	This
	True
	Var
	Final
	While
	Switch
	Case
	Default
	Break
	Continue

	EOF
	Error
)

var keywords = map[string]Kind{
	"and":      And,
	"class":    Class,
	"else":     Else,
	"false":    False,
	"for":      For,
	"fun":      Fun,
	"if":       If,
	"nil":      Nil,
	"or":       Or,
	"print":    Print,
	"return":   Return,
	"super":    Super,
	"this":     This,
	"true":     True,
	"var":      Var,
	"final":    Final,
	"while":    While,
	"switch":   Switch,
	"case":     Case,
	"default":  Default,
	"break":    Break,
	"continue": Continue,
}

// Token is a slice view into the original source: Lexeme never copies.
// Error tokens are the exception: their Lexeme is the error message.
type Token struct {
	Kind   Kind
	Lexeme string
	Line   int
}
