package lexer

import (
	"strconv"
	"strings"

	"ncc/diag"
	"ncc/token"
)

func isLetter(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_'
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

// Lexer is a streaming scanner over a preprocessed source buffer. It keeps
// exactly one token of lookahead (the current token) and tracks line,
// column, and the absolute byte offset of every token for diagnostics.
//
// The scanner is a pure function of the byte offset, which makes the
// Snapshot/Restore backtracking API safe: restoring a snapshot reinstates
// the position and invalidates the cached current token.
type Lexer struct {
	// The source code being scanned.
	source string

	// Index of the next byte to be read.
	position int

	// 1-based position of the next byte, for error reporting.
	line   int
	column int

	// The one-token lookahead.
	current token.Token

	// Diagnostics sink shared with the rest of the compiler.
	diag *diag.Manager

	// Set when an unrecoverable scan error occurred (unterminated string
	// or character literal, bad hex escape).
	err error
}

// Snapshot captures the full scanner state so the parser can backtrack.
// Restoring it also restores the cached current token.
type Snapshot struct {
	position int
	line     int
	column   int
	current  token.Token
	err      error
}

// New initializes a Lexer over source and primes the current token.
func New(source string, d *diag.Manager) *Lexer {
	l := &Lexer{
		source: source,
		line:   1,
		column: 1,
		diag:   d,
	}
	l.current = l.scan()
	return l
}

// Err returns the first unrecoverable scan error, if any.
func (l *Lexer) Err() error { return l.err }

// Current returns the current token without consuming it.
func (l *Lexer) Current() token.Token { return l.current }

// Next consumes the current token and scans the following one, which
// becomes the new current token.
func (l *Lexer) Next() token.Token {
	l.current = l.scan()
	return l.current
}

// Peek returns the token after the current one without consuming anything.
func (l *Lexer) Peek() token.Token {
	saved := l.Snapshot()
	next := l.scan()
	l.Restore(saved)
	return next
}

// TokenIs reports whether the current token has the given type.
func (l *Lexer) TokenIs(t token.TokenType) bool {
	return l.current.Type == t
}

// Consume advances past the current token if it matches the expected type.
// It reports whether the token was consumed.
func (l *Lexer) Consume(t token.TokenType) bool {
	if l.TokenIs(t) {
		l.Next()
		return true
	}
	return false
}

// ConsumeValue advances past the current token if it matches the expected
// type, returning the token's text.
func (l *Lexer) ConsumeValue(t token.TokenType) (string, bool) {
	if l.TokenIs(t) {
		value := l.current.Value
		l.Next()
		return value, true
	}
	return "", false
}

// Snapshot captures the scanner state for later backtracking.
func (l *Lexer) Snapshot() Snapshot {
	return Snapshot{
		position: l.position,
		line:     l.line,
		column:   l.column,
		current:  l.current,
		err:      l.err,
	}
}

// Restore rewinds the scanner to a previously captured snapshot. The
// cached current token is replaced by the snapshot's, so scanning resumes
// exactly where the snapshot was taken.
func (l *Lexer) Restore(s Snapshot) {
	l.position = s.position
	l.line = s.line
	l.column = s.column
	l.current = s.current
	l.err = s.err
}

func (l *Lexer) eof() bool {
	return l.position >= len(l.source)
}

func (l *Lexer) peekByte(ahead int) byte {
	if l.position+ahead >= len(l.source) {
		return 0
	}
	return l.source[l.position+ahead]
}

// advance moves past n bytes that are known not to contain a newline.
func (l *Lexer) advance(n int) {
	l.position += n
	l.column += n
}

// skipWhitespace skips spaces, newlines, // line comments, and /* */ block
// comments. Nested block comments are not supported.
func (l *Lexer) skipWhitespace() {
	for !l.eof() {
		c := l.source[l.position]
		switch {
		case c == '\n':
			l.position++
			l.line++
			l.column = 1
		case c == ' ' || c == '\t' || c == '\r':
			l.advance(1)
		case c == '/' && l.peekByte(1) == '/':
			l.advance(2)
			for !l.eof() && l.source[l.position] != '\n' {
				l.advance(1)
			}
		case c == '/' && l.peekByte(1) == '*':
			l.advance(2)
			for !l.eof() && !(l.source[l.position] == '*' && l.peekByte(1) == '/') {
				if l.source[l.position] == '\n' {
					l.position++
					l.line++
					l.column = 1
				} else {
					l.advance(1)
				}
			}
			if !l.eof() {
				l.advance(2)
			}
		default:
			return
		}
	}
}

// scan produces the next token from the source.
func (l *Lexer) scan() token.Token {
	l.skipWhitespace()

	tok := token.Token{Line: l.line, Column: l.column, Pos: l.position}

	if l.eof() {
		tok.Type = token.EOF
		return tok
	}

	c := l.source[l.position]

	// Keywords and identifiers.
	if isLetter(c) {
		start := l.position
		for !l.eof() && (isLetter(l.source[l.position]) || isDigit(l.source[l.position])) {
			l.advance(1)
		}
		tok.Value = l.source[start:l.position]
		if keyword, ok := token.KeyWords[tok.Value]; ok {
			tok.Type = keyword
		} else {
			tok.Type = token.IDENTIFIER
		}
		return tok
	}

	// Numbers: decimal, or hex with a 0x/0X prefix.
	if isDigit(c) {
		start := l.position
		if c == '0' && (l.peekByte(1) == 'x' || l.peekByte(1) == 'X') {
			l.advance(2)
			for !l.eof() && isHexDigit(l.source[l.position]) {
				l.advance(1)
			}
		} else {
			for !l.eof() && isDigit(l.source[l.position]) {
				l.advance(1)
			}
		}
		tok.Type = token.NUMBER
		tok.Value = l.source[start:l.position]
		return tok
	}

	// String literals. The raw text between the quotes is kept as is;
	// escape resolution is deferred to the string-table writer.
	if c == '"' {
		l.advance(1)
		start := l.position
		for !l.eof() && l.source[l.position] != '"' && l.source[l.position] != '\n' {
			if l.source[l.position] == '\\' && l.position+1 < len(l.source) {
				l.advance(2)
			} else {
				l.advance(1)
			}
		}
		tok.Value = l.source[start:l.position]
		if l.eof() || l.source[l.position] != '"' {
			l.fail(tok.Pos, "Unterminated string literal")
			tok.Type = token.EOF
			return tok
		}
		l.advance(1)
		tok.Type = token.STRING
		return tok
	}

	// Character literals, with escape decoding done here.
	if c == '\'' {
		l.advance(1)
		value, ok := l.scanCharValue(tok.Pos)
		if !ok {
			tok.Type = token.EOF
			return tok
		}
		if l.eof() || l.source[l.position] != '\'' {
			l.fail(tok.Pos, "Unterminated character literal")
			tok.Type = token.EOF
			return tok
		}
		l.advance(1)
		tok.Type = token.CHAR_LITERAL
		tok.Value = string(value)
		return tok
	}

	// C23 attribute delimiters and the ellipsis.
	if c == '[' && l.peekByte(1) == '[' {
		l.advance(2)
		tok.Type = token.ATTR_OPEN
		return tok
	}
	if c == ']' && l.peekByte(1) == ']' {
		l.advance(2)
		tok.Type = token.ATTR_CLOSE
		return tok
	}
	if c == '.' && l.peekByte(1) == '.' && l.peekByte(2) == '.' {
		l.advance(3)
		tok.Type = token.ELLIPSIS
		return tok
	}

	// Operators and punctuation, longest match first.
	rest := l.source[l.position:]
	for _, m := range operatorMatches {
		if strings.HasPrefix(rest, m.text) {
			l.advance(len(m.text))
			tok.Type = m.kind
			tok.Value = m.text
			return tok
		}
	}

	// Unknown character: warn, skip it, and resume scanning.
	l.diag.Warnf(l.position, "Unexpected character '%c'", c)
	l.advance(1)
	return l.scan()
}

type opMatch struct {
	text string
	kind token.TokenType
}

// operatorMatches is ordered longest first so compound operators win over
// their prefixes.
var operatorMatches = []opMatch{
	{"<<=", token.LEFT_SHIFT_ASSIGN},
	{">>=", token.RIGHT_SHIFT_ASSIGN},
	{"<<", token.LEFT_SHIFT},
	{">>", token.RIGHT_SHIFT},
	{"<=", token.LTE},
	{">=", token.GTE},
	{"==", token.EQ},
	{"!=", token.NEQ},
	{"&&", token.AND},
	{"||", token.OR},
	{"->", token.ARROW},
	{"++", token.INCREMENT},
	{"--", token.DECREMENT},
	{"+=", token.PLUS_ASSIGN},
	{"-=", token.MINUS_ASSIGN},
	{"*=", token.MUL_ASSIGN},
	{"/=", token.DIV_ASSIGN},
	{"%=", token.MOD_ASSIGN},
	{"{", token.LBRACE},
	{"}", token.RBRACE},
	{"(", token.LPAREN},
	{")", token.RPAREN},
	{"[", token.LBRACKET},
	{"]", token.RBRACKET},
	{";", token.SEMICOLON},
	{":", token.COLON},
	{"?", token.QUESTION},
	{",", token.COMMA},
	{".", token.DOT},
	{"+", token.PLUS},
	{"-", token.MINUS},
	{"*", token.STAR},
	{"/", token.SLASH},
	{"%", token.PERCENT},
	{"=", token.ASSIGN},
	{"!", token.NOT},
	{"<", token.LT},
	{">", token.GT},
	{"&", token.AMPERSAND},
	{"|", token.PIPE},
	{"^", token.XOR},
	{"~", token.BITWISE_NOT},
}

// scanCharValue decodes a single character-literal body, handling the
// escapes \n \r \t \0 \\ \' \" \xHH.
func (l *Lexer) scanCharValue(startPos int) (byte, bool) {
	if l.eof() || l.source[l.position] == '\n' {
		l.fail(startPos, "Invalid character literal")
		return 0, false
	}

	c := l.source[l.position]
	if c != '\\' {
		if c == '\'' {
			l.fail(startPos, "Invalid character literal")
			return 0, false
		}
		l.advance(1)
		return c, true
	}

	l.advance(1)
	if l.eof() {
		l.fail(startPos, "Unterminated character literal")
		return 0, false
	}

	esc := l.source[l.position]
	var value byte
	switch esc {
	case 'n':
		value = '\n'
	case 'r':
		value = '\r'
	case 't':
		value = '\t'
	case '0':
		value = 0
	case '\\':
		value = '\\'
	case '\'':
		value = '\''
	case '"':
		value = '"'
	case 'x':
		if !isHexDigit(l.peekByte(1)) || !isHexDigit(l.peekByte(2)) {
			l.fail(startPos, "Invalid hex escape sequence, expected \\xHH format")
			return 0, false
		}
		n, _ := strconv.ParseUint(l.source[l.position+1:l.position+3], 16, 8)
		value = byte(n)
		l.advance(2)
	default:
		value = esc
	}
	l.advance(1)
	return value, true
}

// fail records an unrecoverable scan error.
func (l *Lexer) fail(pos int, message string) {
	err := l.diag.Errorf(pos, "%s", message)
	if l.err == nil {
		l.err = err
	}
}
