package lexer

import "fmt"

type TokenType string

const (
	TokenIdent    TokenType = "IDENT"    // lowercase-leading name
	TokenConst    TokenType = "CONST"    // Uppercase-leading name
	TokenIVar     TokenType = "IVAR"     // @name
	TokenCVar     TokenType = "CVAR"     // @@name
	TokenGVar     TokenType = "GVAR"     // $name
	TokenInt      TokenType = "INT"
	TokenFloat    TokenType = "FLOAT"
	TokenSymbol   TokenType = "SYMBOL" // :name
	TokenString   TokenType = "STRING" // a complete, non-interpolated literal piece
	TokenInterpBegin TokenType = "INTERP_BEGIN" // #{ inside a "..." literal
	TokenInterpEnd   TokenType = "INTERP_END"   // matching }
	TokenStringBegin TokenType = "STRING_BEGIN" // opening quote of an interpolated string
	TokenStringEnd   TokenType = "STRING_END"   // closing quote of an interpolated string

	TokenNewline TokenType = "NEWLINE"
	TokenEOF     TokenType = "EOF"

	// Keywords
	TokenDef TokenType = "def"
	TokenEnd TokenType = "end"
	TokenClass TokenType = "class"
	TokenModule TokenType = "module"
	TokenIf TokenType = "if"
	TokenElsif TokenType = "elsif"
	TokenElse TokenType = "else"
	TokenUnless TokenType = "unless"
	TokenThen TokenType = "then"
	TokenWhile TokenType = "while"
	TokenUntil TokenType = "until"
	TokenFor TokenType = "for"
	TokenIn TokenType = "in"
	TokenDo TokenType = "do"
	TokenLoop TokenType = "loop"
	TokenCase TokenType = "case"
	TokenWhen TokenType = "when"
	TokenBegin TokenType = "begin"
	TokenRescue TokenType = "rescue"
	TokenEnsure TokenType = "ensure"
	TokenRetry TokenType = "retry"
	TokenRaise TokenType = "raise"
	TokenReturn TokenType = "return"
	TokenBreak TokenType = "break"
	TokenNext TokenType = "next"
	TokenRedo TokenType = "redo"
	TokenYield TokenType = "yield"
	TokenSelf TokenType = "self"
	TokenNil TokenType = "nil"
	TokenTrue TokenType = "true"
	TokenFalse TokenType = "false"
	TokenAndKw TokenType = "and"
	TokenOrKw TokenType = "or"
	TokenNotKw TokenType = "not"
	TokenSuper TokenType = "super"

	// Punctuation / operators (lexeme carries the exact text)
	TokenLParen TokenType = "("
	TokenRParen TokenType = ")"
	TokenLBrace TokenType = "{"
	TokenRBrace TokenType = "}"
	TokenLBracket TokenType = "["
	TokenRBracket TokenType = "]"
	TokenComma TokenType = ","
	TokenDot TokenType = "."
	TokenSafeNav TokenType = "&."
	TokenAmpColon TokenType = "&:"
	TokenDoubleColon TokenType = "::"
	TokenColon TokenType = ":"
	TokenSemicolon TokenType = ";"
	TokenPlus TokenType = "+"
	TokenMinus TokenType = "-"
	TokenStar TokenType = "*"
	TokenDoubleStar TokenType = "**"
	TokenSlash TokenType = "/"
	TokenPercent TokenType = "%"
	TokenEqual TokenType = "="
	TokenPlusEqual TokenType = "+="
	TokenMinusEqual TokenType = "-="
	TokenStarEqual TokenType = "*="
	TokenSlashEqual TokenType = "/="
	TokenAndEqual TokenType = "&&="
	TokenOrEqual TokenType = "||="
	TokenEqualEqual TokenType = "=="
	TokenNotEqual TokenType = "!="
	TokenLess TokenType = "<"
	TokenGreater TokenType = ">"
	TokenLessEqual TokenType = "<="
	TokenGreaterEqual TokenType = ">="
	TokenSpaceship TokenType = "<=>"
	TokenAndAnd TokenType = "&&"
	TokenOrOr TokenType = "||"
	TokenBang TokenType = "!"
	TokenArrow TokenType = "=>"
	TokenFatArrow TokenType = "->"
	TokenPipe TokenType = "|"
	TokenQuestion TokenType = "?"
	TokenAmp TokenType = "&"
	TokenDotDot TokenType = ".."
	TokenDotDotDot TokenType = "..."
	TokenBackslashNewline TokenType = "LINE_CONT"
)

type Token struct {
	Type    TokenType
	Lexeme  string
	Literal interface{} // parsed int64/float64/string payload
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("[%s %q @%d:%d]", t.Type, t.Lexeme, t.Line, t.Column)
}

var keywords = map[string]TokenType{
	"def": TokenDef, "end": TokenEnd, "class": TokenClass, "module": TokenModule,
	"if": TokenIf, "elsif": TokenElsif, "else": TokenElse, "unless": TokenUnless,
	"then": TokenThen, "while": TokenWhile, "until": TokenUntil, "for": TokenFor,
	"in": TokenIn, "do": TokenDo, "loop": TokenLoop, "case": TokenCase, "when": TokenWhen,
	"begin": TokenBegin, "rescue": TokenRescue, "ensure": TokenEnsure, "retry": TokenRetry,
	"raise": TokenRaise, "return": TokenReturn, "break": TokenBreak, "next": TokenNext,
	"redo": TokenRedo, "yield": TokenYield, "self": TokenSelf, "nil": TokenNil,
	"true": TokenTrue, "false": TokenFalse, "and": TokenAndKw, "or": TokenOrKw,
	"not": TokenNotKw, "super": TokenSuper,
}
