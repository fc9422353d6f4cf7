package sparql

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI
	tokPName
	tokVar
	tokString
	tokLangTag
	tokInteger
	tokDecimal
	tokDouble
	tokBNode
	tokIdent
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokIRI:
		return "IRI"
	case tokPName:
		return "prefixed name"
	case tokVar:
		return "variable"
	case tokString:
		return "string"
	case tokLangTag:
		return "language tag"
	case tokInteger, tokDecimal, tokDouble:
		return "number"
	case tokBNode:
		return "blank node"
	case tokIdent:
		return "keyword"
	default:
		return "punctuation"
	}
}

type token struct {
	kind tokenKind
	text string // decoded value: IRI without brackets, string without quotes, var without sigil
	line int
	col  int
}

// lexer turns query text into tokens. All tokens are produced up front so
// the parser can look ahead freely.
type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src, line: 1, col: 1}
	var toks []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks, nil
		}
	}
}

func (lx *lexer) errorf(line, col int, format string, args ...any) error {
	return &SyntaxError{Line: line, Column: col, Msg: fmt.Sprintf(format, args...)}
}

func (lx *lexer) peekRune(offset int) rune {
	i := lx.pos
	for ; offset > 0 && i < len(lx.src); offset-- {
		_, size := utf8.DecodeRuneInString(lx.src[i:])
		i += size
	}
	if i >= len(lx.src) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(lx.src[i:])
	return r
}

func (lx *lexer) advance() rune {
	r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
	lx.pos += size
	if r == '\n' {
		lx.line++
		lx.col = 1
	} else {
		lx.col++
	}
	return r
}

func (lx *lexer) skipSpaceAndComments() {
	for lx.pos < len(lx.src) {
		r := lx.peekRune(0)
		switch {
		case unicode.IsSpace(r):
			lx.advance()
		case r == '#':
			for lx.pos < len(lx.src) && lx.peekRune(0) != '\n' {
				lx.advance()
			}
		default:
			return
		}
	}
}

func (lx *lexer) next() (token, error) {
	lx.skipSpaceAndComments()
	line, col := lx.line, lx.col
	mk := func(kind tokenKind, text string) token {
		return token{kind: kind, text: text, line: line, col: col}
	}
	if lx.pos >= len(lx.src) {
		return mk(tokEOF, ""), nil
	}

	r := lx.peekRune(0)
	switch {
	case r == '<':
		if iri, ok := lx.scanIRI(); ok {
			return mk(tokIRI, iri), nil
		}
		lx.advance()
		if lx.peekRune(0) == '=' {
			lx.advance()
			return mk(tokPunct, "<="), nil
		}
		return mk(tokPunct, "<"), nil

	case r == '?' || r == '$':
		lx.advance()
		name := lx.scanName()
		if name == "" {
			return token{}, lx.errorf(line, col, "empty variable name")
		}
		return mk(tokVar, name), nil

	case r == '"' || r == '\'':
		s, err := lx.scanString()
		if err != nil {
			return token{}, err
		}
		return mk(tokString, s), nil

	case r == '@':
		lx.advance()
		start := lx.pos
		for lx.pos < len(lx.src) {
			c := lx.peekRune(0)
			if c == '-' || c < utf8.RuneSelf && (unicode.IsLetter(c) || unicode.IsDigit(c)) {
				lx.advance()
				continue
			}
			break
		}
		if lx.pos == start {
			return token{}, lx.errorf(line, col, "empty language tag")
		}
		return mk(tokLangTag, lx.src[start:lx.pos]), nil

	case r == '_' && lx.peekRune(1) == ':':
		lx.advance()
		lx.advance()
		label := lx.scanLocal()
		if label == "" {
			return token{}, lx.errorf(line, col, "empty blank node label")
		}
		return mk(tokBNode, label), nil

	case unicode.IsDigit(r) || r == '.' && unicode.IsDigit(lx.peekRune(1)):
		return lx.scanNumber(line, col), nil

	case r == ':' || isNameStart(r):
		name := lx.scanName()
		if lx.peekRune(0) == ':' {
			lx.advance()
			return mk(tokPName, name+":"+lx.scanLocal()), nil
		}
		return mk(tokIdent, name), nil
	}

	lx.advance()
	two := string(r) + string(lx.peekRune(0))
	switch two {
	case "!=", ">=", "&&", "||", "^^":
		lx.advance()
		return mk(tokPunct, two), nil
	}
	switch r {
	case '{', '}', '(', ')', '[', ']', '.', ';', ',', '*', '=', '>', '!', '+', '-', '/', '|', '^':
		return mk(tokPunct, string(r)), nil
	}
	return token{}, lx.errorf(line, col, "unexpected character %q", r)
}

// scanIRI consumes an IRIREF if one starts at the cursor.
func (lx *lexer) scanIRI() (string, bool) {
	end := lx.pos + 1
	for end < len(lx.src) {
		c := lx.src[end]
		if c == '>' {
			break
		}
		if c <= ' ' || strings.IndexByte("<\"{}|^`\\", c) >= 0 {
			return "", false
		}
		end++
	}
	if end >= len(lx.src) {
		return "", false
	}
	iri := lx.src[lx.pos+1 : end]
	for lx.pos <= end {
		lx.advance()
	}
	return iri, true
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return r == '_' || r == '-' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (lx *lexer) scanName() string {
	start := lx.pos
	for lx.pos < len(lx.src) && isNameChar(lx.peekRune(0)) {
		lx.advance()
	}
	return lx.src[start:lx.pos]
}

// scanLocal consumes the local part of a prefixed name. Dots are allowed
// inside but not at the end, where they terminate a triple.
func (lx *lexer) scanLocal() string {
	var b strings.Builder
	for lx.pos < len(lx.src) {
		r := lx.peekRune(0)
		switch {
		case isNameChar(r) || r == ':' || r == '%':
			b.WriteRune(lx.advance())
		case r == '.' && isNameChar(lx.peekRune(1)):
			b.WriteRune(lx.advance())
		case r == '\\' && lx.peekRune(1) != 0:
			lx.advance()
			b.WriteRune(lx.advance())
		default:
			return b.String()
		}
	}
	return b.String()
}

func (lx *lexer) scanNumber(line, col int) token {
	start := lx.pos
	kind := tokInteger
	for unicode.IsDigit(lx.peekRune(0)) {
		lx.advance()
	}
	if lx.peekRune(0) == '.' && unicode.IsDigit(lx.peekRune(1)) {
		kind = tokDecimal
		lx.advance()
		for unicode.IsDigit(lx.peekRune(0)) {
			lx.advance()
		}
	}
	if e := lx.peekRune(0); e == 'e' || e == 'E' {
		next := lx.peekRune(1)
		if unicode.IsDigit(next) || (next == '+' || next == '-') && unicode.IsDigit(lx.peekRune(2)) {
			kind = tokDouble
			lx.advance()
			if next == '+' || next == '-' {
				lx.advance()
			}
			for unicode.IsDigit(lx.peekRune(0)) {
				lx.advance()
			}
		}
	}
	return token{kind: kind, text: lx.src[start:lx.pos], line: line, col: col}
}

func (lx *lexer) scanString() (string, error) {
	line, col := lx.line, lx.col
	quote := lx.advance()
	long := lx.peekRune(0) == quote && lx.peekRune(1) == quote
	if long {
		lx.advance()
		lx.advance()
	}

	var b strings.Builder
	for {
		if lx.pos >= len(lx.src) {
			return "", lx.errorf(line, col, "unterminated string")
		}
		r := lx.advance()
		switch {
		case r == quote && !long:
			return b.String(), nil
		case r == quote && long && lx.peekRune(0) == quote && lx.peekRune(1) == quote:
			lx.advance()
			lx.advance()
			return b.String(), nil
		case r == '\n' && !long:
			return "", lx.errorf(line, col, "newline in string")
		case r == '\\':
			esc, err := lx.scanEscape()
			if err != nil {
				return "", err
			}
			b.WriteRune(esc)
		default:
			b.WriteRune(r)
		}
	}
}

func (lx *lexer) scanEscape() (rune, error) {
	line, col := lx.line, lx.col
	if lx.pos >= len(lx.src) {
		return 0, lx.errorf(line, col, "unterminated escape")
	}
	r := lx.advance()
	switch r {
	case 't':
		return '\t', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case '"', '\'', '\\':
		return r, nil
	case 'u', 'U':
		width := 4
		if r == 'U' {
			width = 8
		}
		if lx.pos+width > len(lx.src) {
			return 0, lx.errorf(line, col, "short unicode escape")
		}
		hex := lx.src[lx.pos : lx.pos+width]
		code, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return 0, lx.errorf(line, col, "bad unicode escape %q", hex)
		}
		for i := 0; i < width; i++ {
			lx.advance()
		}
		return rune(code), nil
	}
	return 0, lx.errorf(line, col, "unknown escape \\%c", r)
}
