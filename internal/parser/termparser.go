// Package parser decodes the wire encoding of search state: the legacy
// parenthesis/List(...) query grammar and the free-text boolean term grammar.
package parser

import (
	"strings"
	"unicode"

	"github.com/prospectio/prospect/internal/domain"
	"github.com/prospectio/prospect/internal/domain/term"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokPhrase
	tokAnd
	tokOr
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

// tokenizeTerm splits free text into quoted phrases, AND/OR keywords,
// parentheses, and bare words.
func tokenizeTerm(input string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(input) {
		c := rune(input[i])
		switch {
		case unicode.IsSpace(c):
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, pos: i})
			i++
		case c == '"':
			end := strings.IndexByte(input[i+1:], '"')
			if end < 0 {
				return nil, &domain.ParseError{Pos: i, Msg: "unterminated quoted phrase"}
			}
			toks = append(toks, token{kind: tokPhrase, text: input[i+1 : i+1+end], pos: i})
			i += end + 2
		default:
			start := i
			for i < len(input) && !unicode.IsSpace(rune(input[i])) &&
				input[i] != '(' && input[i] != ')' && input[i] != '"' {
				i++
			}
			word := input[start:i]
			switch word {
			case "AND":
				toks = append(toks, token{kind: tokAnd, text: word, pos: start})
			case "OR":
				toks = append(toks, token{kind: tokOr, text: word, pos: start})
			default:
				toks = append(toks, token{kind: tokWord, text: word, pos: start})
			}
		}
	}
	return toks, nil
}

// termParser is a recursive-descent parser over the token stream.
//
// Grammar:
//
//	expr    := chain (OR chain)*
//	chain   := operand ((AND)? operand)*   -- adjacency is implicit AND
//	operand := WORD | PHRASE | '(' expr ')'
//
// Explicit AND binds before the trailing OR accumulation.
type termParser struct {
	toks []token
	i    int
	len  int // original input length, for end-of-input error positions
}

// ParseTerm parses a free-text search term into its boolean AST.
func ParseTerm(input string) (term.Expr, error) {
	toks, err := tokenizeTerm(input)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, &domain.ParseError{Pos: 0, Msg: "empty search term"}
	}

	p := &termParser{toks: toks, len: len(input)}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.i < len(p.toks) {
		return nil, &domain.ParseError{Pos: p.toks[p.i].pos, Msg: "unexpected closing parenthesis"}
	}
	return expr, nil
}

func (p *termParser) parseExpr() (term.Expr, error) {
	var orOperands []term.Expr

	chain, err := p.parseChain()
	if err != nil {
		return nil, err
	}
	orOperands = append(orOperands, chain)

	for p.peek(tokOr) {
		p.i++
		chain, err := p.parseChain()
		if err != nil {
			return nil, err
		}
		orOperands = append(orOperands, chain)
	}

	if len(orOperands) == 1 {
		return orOperands[0], nil
	}
	return term.Or{Operands: orOperands}, nil
}

func (p *termParser) parseChain() (term.Expr, error) {
	var andOperands []term.Expr

	operand, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	andOperands = append(andOperands, operand)

	for {
		if p.peek(tokAnd) {
			p.i++
			operand, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			andOperands = append(andOperands, operand)
			continue
		}
		// Implicit adjacency: the next operand joins the AND chain.
		if p.peek(tokWord) || p.peek(tokPhrase) || p.peek(tokLParen) {
			operand, err := p.parseOperand()
			if err != nil {
				return nil, err
			}
			andOperands = append(andOperands, operand)
			continue
		}
		break
	}

	if len(andOperands) == 1 {
		return andOperands[0], nil
	}
	return term.And{Operands: andOperands}, nil
}

func (p *termParser) parseOperand() (term.Expr, error) {
	if p.i >= len(p.toks) {
		return nil, &domain.ParseError{Pos: p.len, Msg: "search term ends mid-expression"}
	}

	tok := p.toks[p.i]
	switch tok.kind {
	case tokWord:
		p.i++
		return term.Term{Text: tok.text}, nil
	case tokPhrase:
		p.i++
		return term.Phrase{Text: tok.text}, nil
	case tokLParen:
		p.i++
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.peek(tokRParen) {
			return nil, &domain.ParseError{Pos: tok.pos, Msg: "unbalanced parenthesis"}
		}
		p.i++
		return expr, nil
	case tokAnd, tokOr:
		return nil, &domain.ParseError{Pos: tok.pos, Msg: "dangling operator " + tok.text}
	default:
		return nil, &domain.ParseError{Pos: tok.pos, Msg: "unexpected token"}
	}
}

func (p *termParser) peek(kind tokenKind) bool {
	return p.i < len(p.toks) && p.toks[p.i].kind == kind
}
