package lexer

import "github.com/ejscript/ejsc/internal/ast"

// TokenType identifies the lexical category of a Token, grouped by
// category: literals, keywords, then punctuation and operators.
type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF
	COMMENT

	IDENT
	NUMBER
	STRING
	REGEXP // /pattern/flags, lexed in a dedicated mode
	XMLLIT // E4X literal, captured as balanced-tag text

	literalEnd

	// Keywords
	CLASS
	INTERFACE
	NAMESPACE
	MODULE
	USE
	REQUIRE
	TYPE
	CAST
	IS
	LIKE
	TO
	EACH
	HAS
	FUNCTION
	GET
	SET
	CONST
	LET
	VAR
	DYNAMIC
	FINAL
	NATIVE
	OVERRIDE
	STATIC
	ENUMERABLE
	READONLY
	SYNCHRONIZED
	VOLATILE
	PUBLIC
	PRIVATE
	PROTECTED
	INTERNAL
	INTRINSIC
	GENERATOR
	YIELD
	CALLEE
	THIS
	SUPER
	NEW
	DELETE
	TYPEOF
	VOID
	IN
	INSTANCEOF
	NULL
	TRUE
	FALSE
	UNDEFINED
	IF
	ELSE
	FOR
	DO
	WHILE
	SWITCH
	CASE
	DEFAULT
	BREAK
	CONTINUE
	RETURN
	THROW
	TRY
	CATCH
	FINALLY
	WITH
	LANG
	STANDARD
	STRICT

	keywordEnd

	// Punctuation / operators
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACK
	RBRACK
	SEMI
	COMMA
	DOT
	DOTDOTDOT
	COLON
	COLONCOLON
	QUESTION
	HASH
	BANG

	ASSIGN
	PLUS_ASSIGN
	MINUS_ASSIGN
	STAR_ASSIGN
	SLASH_ASSIGN
	PERCENT_ASSIGN
	AND_ASSIGN
	OR_ASSIGN
	XOR_ASSIGN
	SHL_ASSIGN
	SHR_ASSIGN

	EQ
	NOT_EQ
	STRICT_EQ
	STRICT_NOT_EQ
	LT
	GT
	LE
	GE

	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	INC
	DEC

	SHL
	SHR
	USHR
	AMP
	PIPE
	CARET
	TILDE

	AND_AND
	OR_OR
	NOT
)

var keywords = map[string]TokenType{
	"class": CLASS, "interface": INTERFACE, "namespace": NAMESPACE,
	"module": MODULE, "use": USE, "require": REQUIRE, "type": TYPE,
	"cast": CAST, "is": IS, "like": LIKE, "to": TO, "each": EACH,
	"has": HAS, "function": FUNCTION, "get": GET, "set": SET,
	"const": CONST, "let": LET, "var": VAR, "dynamic": DYNAMIC,
	"final": FINAL, "native": NATIVE, "override": OVERRIDE,
	"static": STATIC, "enumerable": ENUMERABLE, "readonly": READONLY,
	"synchronized": SYNCHRONIZED, "volatile": VOLATILE, "public": PUBLIC,
	"private": PRIVATE, "protected": PROTECTED, "internal": INTERNAL,
	"intrinsic": INTRINSIC, "generator": GENERATOR, "yield": YIELD,
	"callee": CALLEE, "this": THIS, "super": SUPER, "new": NEW,
	"delete": DELETE, "typeof": TYPEOF, "void": VOID, "in": IN,
	"instanceof": INSTANCEOF, "null": NULL, "true": TRUE, "false": FALSE,
	"undefined": UNDEFINED, "if": IF, "else": ELSE, "for": FOR, "do": DO,
	"while": WHILE, "switch": SWITCH, "case": CASE, "default": DEFAULT,
	"break": BREAK, "continue": CONTINUE, "return": RETURN, "throw": THROW,
	"try": TRY, "catch": CATCH, "finally": FINALLY, "with": WITH,
	"lang": LANG, "standard": STANDARD, "strict": STRICT,
}

// reservedNamespaces — these identifiers are usable both as namespace
// attributes and as qualifiers. The lexer gives those that are keywords
// their keyword type and the rest (iterator, construct) IDENT; the
// attribute scanner checks IDENT tokens against this set.
var reservedNamespaces = map[string]bool{
	"public": true, "private": true, "protected": true, "internal": true,
	"intrinsic": true, "iterator": true, "construct": true,
}

// IsReservedNamespace reports whether name is one of the reserved
// namespace identifiers.
func IsReservedNamespace(name string) bool { return reservedNamespaces[name] }

// LookupIdent classifies ident as a keyword TokenType, or IDENT otherwise.
func LookupIdent(ident string) TokenType {
	if tt, ok := keywords[ident]; ok {
		return tt
	}
	return IDENT
}

func (tt TokenType) IsKeyword() bool { return tt > literalEnd && tt < keywordEnd }
func (tt TokenType) IsLiteral() bool { return tt < literalEnd }

var tokenNames = map[TokenType]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF", COMMENT: "COMMENT", IDENT: "IDENT",
	NUMBER: "NUMBER", STRING: "STRING", REGEXP: "REGEXP", XMLLIT: "XMLLIT",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}", LBRACK: "[", RBRACK: "]",
	SEMI: ";", COMMA: ",", DOT: ".", DOTDOTDOT: "...", COLON: ":",
	COLONCOLON: "::", QUESTION: "?", HASH: "#", BANG: "!", ASSIGN: "=",
	EQ: "==", NOT_EQ: "!=", STRICT_EQ: "===", STRICT_NOT_EQ: "!==",
	LT: "<", GT: ">", LE: "<=", GE: ">=", PLUS: "+", MINUS: "-", STAR: "*",
	SLASH: "/", PERCENT: "%", INC: "++", DEC: "--", SHL: "<<", SHR: ">>",
	USHR: ">>>", AMP: "&", PIPE: "|", CARET: "^", TILDE: "~", AND_AND: "&&",
	OR_OR: "||", NOT: "!",
}

func (tt TokenType) String() string {
	if name, ok := tokenNames[tt]; ok {
		return name
	}
	for text, kw := range keywords {
		if kw == tt {
			return text
		}
	}
	return "UNKNOWN"
}

// Position is an alias for ast.Pos so lexer, parser, and ast all share one
// source-coordinate type end to end.
type Position = ast.Pos

// Token is one lexical unit: its type, literal text, decoded value (for
// numbers/strings), and source position.
type Token struct {
	Type    TokenType
	Literal string
	Value   any // decoded number/string value, when applicable
	Pos     Position
}
