// Copyright 2026 The torii-hdl authors.
// Licensed under the BSD 2-Clause license. See license text in the LICENSE file.

package hdl

import (
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/shrine-maiden-heavy-industries/torii-hdl/internal/lex"
)

// Signal spec tokens.
const (
	tokEOF lex.Type = lex.EOF
	tokRaw lex.Type = iota
	tokIdent
	tokBracketOpen
	tokBracketClose
	tokComma
	tokInt
)

func specLexer(input string) lex.Interface {
	return lex.New(strings.NewReader(input), lexSpecInit)
}

func lexSpecInit(l *lex.Lexer) lex.StateFn {
	r := l.Next()
	switch {
	case r == lex.EOF:
		return lexSpecEOF
	case unicode.IsSpace(r):
		l.AcceptWhile(unicode.IsSpace)
	case unicode.IsLetter(r) || r == '_':
		return lexSpecIdent
	case r == '[':
		l.Emit(tokBracketOpen, "[")
	case r == ']':
		l.Emit(tokBracketClose, "]")
	case r == ',':
		l.Emit(tokComma, ",")
	case '0' <= r && r <= '9':
		return lexSpecNumber
	default:
		l.Emit(tokRaw, string(r))
		return lexSpecEOF
	}
	return nil
}

func lexSpecNumber(l *lex.Lexer) lex.StateFn {
	i := int(l.Current() - '0')
	r := l.Next()
	for '0' <= r && r <= '9' {
		i = i*10 + int(r-'0')
		r = l.Next()
	}
	l.Backup()
	l.Emit(tokInt, i)
	return nil
}

func lexSpecIdent(l *lex.Lexer) lex.StateFn {
	var buf strings.Builder
	buf.WriteRune(l.Current())
	r := l.Next()
	for unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
		buf.WriteRune(r)
		r = l.Next()
	}
	l.Backup()
	l.Emit(tokIdent, buf.String())
	return nil
}

// lexSpecEOF places the lexer in end-of-input state. Once in this state, the
// lexer only emits EOF.
//
func lexSpecEOF(l *lex.Lexer) lex.StateFn {
	l.Emit(lex.EOF, "end of input")
	return lexSpecEOF
}

// ParseSignals creates signals from a compact specification string. Each
// comma-separated entry is a signal name, an optional width in brackets
// (default 1), and an optional "signed" keyword:
//
//	ParseSignals("en, data[8] signed, addr[16]")
//
func ParseSignals(spec string) ([]*Signal, error) {
	var out []*Signal

	l := specLexer(spec)
	i := l.Lex()
	if i.Type == tokEOF {
		return nil, nil
	}
	for {
		if i.Type != tokIdent {
			return nil, specError(spec, i.Pos, "expected signal name")
		}
		name := i.Value.(string)
		width := 1
		signed := false

		i = l.Lex()
		if i.Type == tokBracketOpen {
			i = l.Lex()
			if i.Type != tokInt {
				return nil, specError(spec, i.Pos, "missing signal width")
			}
			width = i.Value.(int)
			i = l.Lex()
			if i.Type != tokBracketClose {
				return nil, specError(spec, i.Pos, "missing close bracket")
			}
			i = l.Lex()
		}
		if i.Type == tokIdent && i.Value.(string) == "signed" {
			signed = true
			i = l.Lex()
		}
		if width > MaxWidth {
			return nil, specError(spec, i.Pos, "width exceeds "+maxWidthString)
		}
		out = append(out, NewSignal(name, Shape{Width: width, Signed: signed}))

		switch i.Type {
		case tokEOF:
			return out, nil
		case tokComma:
			i = l.Lex()
		default:
			return nil, specError(spec, i.Pos, "expected comma or end of input")
		}
	}
}

const maxWidthString = "64 bits"

// MustSignals is like ParseSignals but panics on error.
//
func MustSignals(spec string) []*Signal {
	ss, err := ParseSignals(spec)
	if err != nil {
		panic(err)
	}
	return ss
}

func specError(in string, pos lex.Pos, msg string) error {
	return errors.Errorf("in %q at pos %d: %s", in, pos+1, msg)
}
