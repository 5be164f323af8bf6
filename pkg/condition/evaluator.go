package condition

import (
	"fmt"
	"strings"

	"github.com/betoarts/masszap/pkg/models"
)

// Evaluate parses and evaluates a boolean expression against the execution
// context. Identifiers resolve as dotted paths into the context; the
// conventional "context." prefix is accepted and stripped. Callers that
// need a total outcome (the condition node does) map any returned error to
// false themselves.
func Evaluate(expression string, ctx models.ExecutionContext) (bool, error) {
	lex := &lexer{input: expression}

	tokens, err := lex.tokens()
	if err != nil {
		return false, err
	}

	parser := &parser{tokens: tokens, ctx: ctx}

	value, err := parser.parseOr()
	if err != nil {
		return false, err
	}

	if parser.current().kind != tokenEOF {
		return false, fmt.Errorf("unexpected trailing input at position %d", parser.current().pos)
	}

	result, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("expression does not evaluate to a boolean, got %T", value)
	}

	return result, nil
}

type parser struct {
	tokens []token
	pos    int
	ctx    models.ExecutionContext
}

func (p *parser) current() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokenEOF {
		p.pos++
	}

	return tok
}

func (p *parser) parseOr() (any, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.current().kind == tokenOr {
		p.advance()

		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}

		leftBool, rightBool, err := bothBooleans(left, right, "||")
		if err != nil {
			return nil, err
		}

		left = leftBool || rightBool
	}

	return left, nil
}

func (p *parser) parseAnd() (any, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for p.current().kind == tokenAnd {
		p.advance()

		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		leftBool, rightBool, err := bothBooleans(left, right, "&&")
		if err != nil {
			return nil, err
		}

		left = leftBool && rightBool
	}

	return left, nil
}

func (p *parser) parseUnary() (any, error) {
	if p.current().kind == tokenNot {
		p.advance()

		value, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		boolean, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("operator '!' requires a boolean operand, got %T", value)
		}

		return !boolean, nil
	}

	return p.parseComparison()
}

func (p *parser) parseComparison() (any, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	if p.current().kind != tokenOperator {
		return left, nil
	}

	op := p.advance().text

	right, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	return compare(op, left, right)
}

func (p *parser) parsePrimary() (any, error) {
	tok := p.advance()

	switch tok.kind {
	case tokenNumber:
		return tok.number, nil
	case tokenString:
		return tok.text, nil
	case tokenLeftParen:
		value, err := p.parseOr()
		if err != nil {
			return nil, err
		}

		if p.advance().kind != tokenRightParen {
			return nil, fmt.Errorf("missing ')' for '(' at position %d", tok.pos)
		}

		return value, nil
	case tokenIdent:
		return p.resolveIdent(tok)
	default:
		return nil, fmt.Errorf("unexpected token %q at position %d", tok.text, tok.pos)
	}
}

func (p *parser) resolveIdent(tok token) (any, error) {
	switch tok.text {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null", "nil":
		return nil, nil
	}

	path := strings.TrimPrefix(tok.text, "context.")
	if path == "" || path == "context" {
		return nil, fmt.Errorf("invalid field reference %q at position %d", tok.text, tok.pos)
	}

	value, ok := p.ctx.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("field %q not found in context", path)
	}

	return normalize(value), nil
}

// normalize coerces context values to the evaluator's value set.
func normalize(value any) any {
	switch v := value.(type) {
	case int:
		return float64(v)
	case int32:
		return float64(v)
	case int64:
		return float64(v)
	case float32:
		return float64(v)
	default:
		return value
	}
}

func compare(op string, left, right any) (bool, error) {
	switch op {
	case "==":
		return equal(left, right), nil
	case "!=":
		return !equal(left, right), nil
	}

	// Ordering operators only apply to pairs of numbers or pairs of strings.
	leftNum, leftIsNum := left.(float64)

	rightNum, rightIsNum := right.(float64)
	if leftIsNum && rightIsNum {
		return orderResult(op, leftNum > rightNum, leftNum < rightNum), nil
	}

	leftStr, leftIsStr := left.(string)

	rightStr, rightIsStr := right.(string)
	if leftIsStr && rightIsStr {
		return orderResult(op, leftStr > rightStr, leftStr < rightStr), nil
	}

	return false, fmt.Errorf("operator %q cannot compare %T with %T", op, left, right)
}

func orderResult(op string, greater, less bool) bool {
	switch op {
	case ">":
		return greater
	case ">=":
		return !less
	case "<":
		return less
	default: // "<="
		return !greater
	}
}

func equal(left, right any) bool {
	if left == nil || right == nil {
		return left == right
	}

	return left == right
}

func bothBooleans(left, right any, op string) (bool, bool, error) {
	leftBool, ok := left.(bool)
	if !ok {
		return false, false, fmt.Errorf("operator %q requires boolean operands, got %T", op, left)
	}

	rightBool, ok := right.(bool)
	if !ok {
		return false, false, fmt.Errorf("operator %q requires boolean operands, got %T", op, right)
	}

	return leftBool, rightBool, nil
}
