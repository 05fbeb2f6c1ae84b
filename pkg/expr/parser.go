package expr

import (
	"fmt"
	"strconv"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
	"github.com/fathom-data/fathom-engine/pkg/table"
)

// node is one AST node. The node set is closed: what is listed here is
// everything an expression can do.
type node interface{}

type literalNode struct{ value any } // int64, float64, string, bool, or nil

type identNode struct{ name string }

type unaryNode struct {
	op    string // "-" or "!"
	child node
}

type binaryNode struct {
	op          string
	left, right node
}

type ternaryNode struct {
	cond, then, els node
}

type callNode struct {
	name string
	args []node
}

type parser struct {
	toks []token
	pos  int
}

// Program is a compiled expression ready for per-row evaluation.
type Program struct {
	root   node
	source string
	idents []string
}

// Source returns the original expression text.
func (p *Program) Source() string { return p.source }

// Identifiers returns the row fields the expression references, in first
// appearance order without duplicates.
func (p *Program) Identifiers() []string { return p.idents }

// Parse parses an expression without binding it to a schema. Use Compile
// when the target schema is known.
func Parse(src string) (*Program, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	root, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at offset %d: %w", p.peek().text, p.peek().pos, apperrors.ErrExpression)
	}
	prog := &Program{root: root, source: src}
	collectIdents(root, &prog.idents)
	return prog, nil
}

// Compile parses an expression and checks that every referenced identifier
// is either a field of the schema or a builtin function.
func Compile(src string, schema table.Schema) (*Program, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	for _, name := range prog.idents {
		if !schema.HasField(name) {
			return nil, fmt.Errorf("expression references unknown column %q: %w", name, apperrors.ErrColumnNotFound)
		}
	}
	return prog, nil
}

// Identifiers parses src and returns the row fields it references. Used by
// the optimizer's projection pushdown to find compute dependencies.
func Identifiers(src string) ([]string, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return prog.idents, nil
}

func collectIdents(n node, out *[]string) {
	switch x := n.(type) {
	case identNode:
		for _, seen := range *out {
			if seen == x.name {
				return
			}
		}
		*out = append(*out, x.name)
	case unaryNode:
		collectIdents(x.child, out)
	case binaryNode:
		collectIdents(x.left, out)
		collectIdents(x.right, out)
	case ternaryNode:
		collectIdents(x.cond, out)
		collectIdents(x.then, out)
		collectIdents(x.els, out)
	case callNode:
		for _, a := range x.args {
			collectIdents(a, out)
		}
	}
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) acceptOp(op string) bool {
	if t := p.peek(); t.kind == tokOp && t.text == op {
		p.pos++
		return true
	}
	return false
}

func (p *parser) acceptPunct(text string) bool {
	if t := p.peek(); t.kind == tokPunct && t.text == text {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind, text string) error {
	t := p.next()
	if t.kind != kind || t.text != text {
		return fmt.Errorf("expected %q, got %q at offset %d: %w", text, t.text, t.pos, apperrors.ErrExpression)
	}
	return nil
}

// parseTernary: or ('?' ternary ':' ternary)?
func (p *parser) parseTernary() (node, error) {
	cond, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.acceptOp("?") {
		return cond, nil
	}
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if err := p.expect(tokOp, ":"); err != nil {
		return nil, err
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return ternaryNode{cond: cond, then: then, els: els}, nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptOp("||") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: "||", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.acceptOp("&&") {
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: "&&", left: left, right: right}
	}
	return left, nil
}

var comparisonOps = []string{"==", "!=", "<=", ">=", "<", ">"}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for _, op := range comparisonOps {
		if p.acceptOp(op) {
			right, err := p.parseAdditive()
			if err != nil {
				return nil, err
			}
			return binaryNode{op: op, left: left, right: right}, nil
		}
	}
	return left, nil
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.acceptOp("+"):
			op = "+"
		case p.acceptOp("-"):
			op = "-"
		default:
			return left, nil
		}
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op string
		switch {
		case p.acceptOp("*"):
			op = "*"
		case p.acceptOp("/"):
			op = "/"
		case p.acceptOp("%"):
			op = "%"
		default:
			return left, nil
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if p.acceptOp("-") {
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: "-", child: child}, nil
	}
	if p.acceptOp("!") {
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{op: "!", child: child}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	t := p.next()
	switch t.kind {
	case tokNumber:
		if i, err := strconv.ParseInt(t.text, 10, 64); err == nil {
			return literalNode{value: i}, nil
		}
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q at offset %d: %w", t.text, t.pos, apperrors.ErrExpression)
		}
		return literalNode{value: f}, nil
	case tokString:
		return literalNode{value: t.text}, nil
	case tokIdent:
		switch t.text {
		case "true":
			return literalNode{value: true}, nil
		case "false":
			return literalNode{value: false}, nil
		case "null":
			return literalNode{value: nil}, nil
		}
		if p.acceptPunct("(") {
			return p.parseCall(t)
		}
		return identNode{name: t.text}, nil
	case tokPunct:
		if t.text == "(" {
			inner, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			if err := p.expect(tokPunct, ")"); err != nil {
				return nil, err
			}
			return inner, nil
		}
	}
	return nil, fmt.Errorf("unexpected %q at offset %d: %w", t.text, t.pos, apperrors.ErrExpression)
}

func (p *parser) parseCall(name token) (node, error) {
	if _, ok := builtins[name.text]; !ok {
		return nil, fmt.Errorf("unknown function %q at offset %d: %w", name.text, name.pos, apperrors.ErrExpression)
	}
	call := callNode{name: name.text}
	if p.acceptPunct(")") {
		return call, nil
	}
	for {
		arg, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		call.args = append(call.args, arg)
		if p.acceptPunct(",") {
			continue
		}
		if err := p.expect(tokPunct, ")"); err != nil {
			return nil, err
		}
		return call, nil
	}
}
