package lexer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(src string) []Token {
	l := New("test.ejs", src)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == EOF {
			return toks
		}
	}
}

func types(toks []Token) []TokenType {
	out := make([]TokenType, len(toks))
	for i, tok := range toks {
		out[i] = tok.Type
	}
	return out
}

func TestBasicTokens(t *testing.T) {
	toks := collect(`var x = 1 + 2.5;`)
	require.Equal(t,
		[]TokenType{VAR, IDENT, ASSIGN, NUMBER, PLUS, NUMBER, SEMI, EOF},
		types(toks))
	require.Equal(t, float64(1), toks[3].Value)
	require.Equal(t, 2.5, toks[5].Value)
}

func TestKeywords(t *testing.T) {
	tests := map[string]TokenType{
		"class": CLASS, "interface": INTERFACE, "namespace": NAMESPACE,
		"module": MODULE, "use": USE, "require": REQUIRE,
		"function": FUNCTION, "get": GET, "set": SET,
		"var": VAR, "let": LET, "const": CONST,
		"if": IF, "else": ELSE, "for": FOR, "each": EACH,
		"do": DO, "while": WHILE, "switch": SWITCH,
		"case": CASE, "default": DEFAULT,
		"break": BREAK, "continue": CONTINUE, "return": RETURN,
		"throw": THROW, "try": TRY, "catch": CATCH, "finally": FINALLY,
		"with": WITH, "new": NEW, "delete": DELETE,
		"typeof": TYPEOF, "void": VOID, "in": IN, "instanceof": INSTANCEOF,
		"is": IS, "like": LIKE,
		"this": THIS, "super": SUPER,
		"null": NULL, "true": TRUE, "false": FALSE, "undefined": UNDEFINED,
		"static": STATIC, "final": FINAL, "native": NATIVE,
		"override": OVERRIDE, "enumerable": ENUMERABLE, "dynamic": DYNAMIC,
		"public": PUBLIC, "private": PRIVATE, "protected": PROTECTED,
		"internal": INTERNAL, "intrinsic": INTRINSIC,
		"lang": LANG, "standard": STANDARD, "strict": STRICT,
	}
	for lit, want := range tests {
		require.Equal(t, want, LookupIdent(lit), lit)
	}
}

func TestReservedNamespaces(t *testing.T) {
	for _, ns := range []string{"public", "private", "protected", "internal", "intrinsic", "iterator", "construct"} {
		require.True(t, IsReservedNamespace(ns), ns)
	}
	require.False(t, IsReservedNamespace("custom"))
}

func TestShebangStripped(t *testing.T) {
	toks := collect("#!/usr/bin/env ejs\nvar x;")
	require.Equal(t, VAR, toks[0].Type)
	require.Equal(t, 2, toks[0].Pos.Line, "tokens after the shebang keep their real line numbers")
}

func TestStringEscapes(t *testing.T) {
	toks := collect(`"a\tb\n"`)
	require.Equal(t, STRING, toks[0].Type)
	require.Equal(t, "a\tb\n", toks[0].Value)
}

func TestHexNumber(t *testing.T) {
	toks := collect("0xFF")
	require.Equal(t, NUMBER, toks[0].Type)
	require.Equal(t, float64(255), toks[0].Value)
}

func TestOperators(t *testing.T) {
	toks := collect("=== !== == != <= >= << >> >>> && || += -=...::")
	require.Equal(t,
		[]TokenType{STRICT_EQ, STRICT_NOT_EQ, EQ, NOT_EQ, LE, GE, SHL, SHR, USHR,
			AND_AND, OR_OR, PLUS_ASSIGN, MINUS_ASSIGN, DOTDOTDOT, COLONCOLON, EOF},
		types(toks))
}

func TestComments(t *testing.T) {
	toks := collect("1 // line comment\n/* block */ 2")
	require.Equal(t, []TokenType{NUMBER, NUMBER, EOF}, types(toks))
}

func TestNestedBlockCommentWarns(t *testing.T) {
	l := New("test.ejs", "/* outer /* inner */ */ 1")
	tok := l.NextToken()
	require.Equal(t, NUMBER, tok.Type)
	require.NotEmpty(t, l.Errors(), "nested /* comments are reported")
}

func TestRegexMode(t *testing.T) {
	l := New("test.ejs", "/ab+c/gi rest")
	tok := l.NextRegexToken()
	require.Equal(t, REGEXP, tok.Type)
	require.Equal(t, "/ab+c/gi", tok.Literal)
	require.Equal(t, IDENT, l.NextToken().Type)
}

func TestRegexClassSwallowsSlash(t *testing.T) {
	l := New("test.ejs", "/[/]/ x")
	tok := l.NextRegexToken()
	require.Equal(t, REGEXP, tok.Type)
	require.Equal(t, "/[/]/", tok.Literal)
}

func TestXMLMode(t *testing.T) {
	l := New("test.ejs", "<a><b>text</b></a> tail")
	tok := l.NextXMLToken()
	require.Equal(t, XMLLIT, tok.Type)
	require.Equal(t, "<a><b>text</b></a>", tok.Literal)
	require.Equal(t, IDENT, l.NextToken().Type)
}

func TestIdentifierNFC(t *testing.T) {
	// The same identifier spelled precomposed and decomposed lexes to one
	// normalized literal.
	a := collect("caf\u00e9")[0]
	b := collect("cafe\u0301")[0]
	require.Equal(t, a.Literal, b.Literal)
}

func TestPositionTracking(t *testing.T) {
	toks := collect("a\n  b")
	require.Equal(t, 1, toks[0].Pos.Line)
	require.Equal(t, 2, toks[1].Pos.Line)
	require.Equal(t, 3, toks[1].Pos.Column)
	require.Equal(t, "  b", toks[1].Pos.Text)
}

func TestUnterminatedString(t *testing.T) {
	l := New("test.ejs", `"abc`)
	l.NextToken()
	require.NotEmpty(t, l.Errors())
}
