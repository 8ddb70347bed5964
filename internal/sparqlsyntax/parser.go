package sparqlsyntax

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/expr"
	"github.com/StreamIntelligenceLab/Kolibrie-sub000/internal/logical"
)

// Parser parses one query string.
type Parser struct {
	input    string
	pos      int
	length   int
	prefixes map[string]string
}

// NewParser creates a Parser over input.
func NewParser(input string) *Parser {
	return &Parser{input: input, length: len(input), prefixes: make(map[string]string)}
}

// Parse parses the query.
func (p *Parser) Parse() (*Query, error) {
	p.skipWhitespace()
	for p.matchKeyword("PREFIX") {
		if err := p.parsePrefix(); err != nil {
			return nil, err
		}
	}

	switch {
	case p.matchKeyword("SELECT"):
		return p.parseSelect()
	case p.matchKeyword("ASK"):
		return p.parseAsk()
	case p.matchKeyword("INSERT"):
		return p.parseInsert()
	default:
		return nil, fmt.Errorf("sparqlsyntax: expected SELECT, ASK, or INSERT")
	}
}

func (p *Parser) parsePrefix() error {
	p.skipWhitespace()
	name := p.readWhile(func(ch byte) bool { return ch != ':' })
	if p.peek() != ':' {
		return fmt.Errorf("sparqlsyntax: expected ':' in PREFIX declaration")
	}
	p.advance()
	p.skipWhitespace()
	iri, err := p.parseIRIRef()
	if err != nil {
		return fmt.Errorf("sparqlsyntax: PREFIX IRI: %w", err)
	}
	p.prefixes[strings.TrimSpace(name)] = iri
	p.skipWhitespace()
	return nil
}

func (p *Parser) parseSelect() (*Query, error) {
	q := &Query{}
	p.skipWhitespace()
	if p.matchKeyword("DISTINCT") {
		q.Distinct = true
	}
	p.skipWhitespace()
	if p.peek() == '*' {
		p.advance()
		q.SelectAll = true
	} else {
		for {
			p.skipWhitespace()
			if p.peek() == '(' {
				agg, err := p.parseAggregateSelector()
				if err != nil {
					return nil, err
				}
				q.Aggregates = append(q.Aggregates, agg)
				continue
			}
			if p.peek() != '?' && p.peek() != '$' {
				break
			}
			name, err := p.parseVariableName()
			if err != nil {
				return nil, err
			}
			q.Variables = append(q.Variables, name)
		}
	}

	if !p.matchKeyword("WHERE") {
		return nil, fmt.Errorf("sparqlsyntax: expected WHERE")
	}
	where, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	q.Where = where

	if err := p.parseSolutionModifiers(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (p *Parser) parseAsk() (*Query, error) {
	q := &Query{Ask: true}
	if !p.matchKeyword("WHERE") {
		return nil, fmt.Errorf("sparqlsyntax: expected WHERE")
	}
	where, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	q.Where = where
	return q, nil
}

func (p *Parser) parseInsert() (*Query, error) {
	q := &Query{Insert: true}
	p.skipWhitespace()
	if p.peek() != '{' {
		return nil, fmt.Errorf("sparqlsyntax: expected '{' after INSERT")
	}
	p.advance()
	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			p.advance()
			break
		}
		pat, err := p.parseTriplePattern()
		if err != nil {
			return nil, fmt.Errorf("sparqlsyntax: INSERT template: %w", err)
		}
		q.InsertTemplate = append(q.InsertTemplate, pat)
		p.skipWhitespace()
		if p.peek() == '.' {
			p.advance()
		}
	}

	p.skipWhitespace()
	if !p.matchKeyword("WHERE") {
		return nil, fmt.Errorf("sparqlsyntax: expected WHERE after INSERT template")
	}
	where, err := p.parseGraphPattern()
	if err != nil {
		return nil, err
	}
	q.Where = where
	return q, nil
}

// parseAggregateSelector parses "(AGGFUNC(DISTINCT? ?var) AS ?alias)".
func (p *Parser) parseAggregateSelector() (logical.AggregateExpr, error) {
	p.advance() // consume '('
	p.skipWhitespace()

	fn, err := p.parseAggregateFunc()
	if err != nil {
		return logical.AggregateExpr{}, err
	}
	p.skipWhitespace()
	if p.peek() != '(' {
		return logical.AggregateExpr{}, fmt.Errorf("sparqlsyntax: expected '(' after aggregate function name")
	}
	p.advance()
	p.skipWhitespace()

	var distinct bool
	if p.matchKeyword("DISTINCT") {
		distinct = true
		p.skipWhitespace()
	}
	varName, err := p.parseVariableName()
	if err != nil {
		return logical.AggregateExpr{}, err
	}
	p.skipWhitespace()
	if p.peek() != ')' {
		return logical.AggregateExpr{}, fmt.Errorf("sparqlsyntax: expected ')' closing aggregate argument")
	}
	p.advance()
	p.skipWhitespace()

	if !p.matchKeyword("AS") {
		return logical.AggregateExpr{}, fmt.Errorf("sparqlsyntax: expected AS in aggregate selector")
	}
	alias, err := p.parseVariableName()
	if err != nil {
		return logical.AggregateExpr{}, err
	}
	p.skipWhitespace()
	if p.peek() != ')' {
		return logical.AggregateExpr{}, fmt.Errorf("sparqlsyntax: expected ')' closing aggregate selector")
	}
	p.advance()

	return logical.AggregateExpr{Func: fn, Variable: varName, Alias: alias, Distinct: distinct}, nil
}

func (p *Parser) parseAggregateFunc() (logical.AggregateFunc, error) {
	switch {
	case p.matchKeyword("COUNT"):
		return logical.AggCount, nil
	case p.matchKeyword("SUM"):
		return logical.AggSum, nil
	case p.matchKeyword("AVG"):
		return logical.AggAvg, nil
	case p.matchKeyword("MIN"):
		return logical.AggMin, nil
	case p.matchKeyword("MAX"):
		return logical.AggMax, nil
	default:
		return 0, fmt.Errorf("sparqlsyntax: unknown aggregate function")
	}
}

func (p *Parser) parseSolutionModifiers(q *Query) error {
	p.skipWhitespace()
	if p.matchKeyword("GROUP") {
		if !p.matchKeyword("BY") {
			return fmt.Errorf("sparqlsyntax: expected BY after GROUP")
		}
		for {
			p.skipWhitespace()
			if p.peek() != '?' && p.peek() != '$' {
				break
			}
			name, err := p.parseVariableName()
			if err != nil {
				return err
			}
			q.GroupBy = append(q.GroupBy, name)
		}
	}

	p.skipWhitespace()
	if p.matchKeyword("ORDER") {
		if !p.matchKeyword("BY") {
			return fmt.Errorf("sparqlsyntax: expected BY after ORDER")
		}
		for {
			p.skipWhitespace()
			desc := false
			if p.matchKeyword("DESC") {
				desc = true
			} else {
				p.matchKeyword("ASC")
			}
			p.skipWhitespace()
			var name string
			var err error
			if p.peek() == '(' {
				p.advance()
				p.skipWhitespace()
				name, err = p.parseVariableName()
				if err != nil {
					return err
				}
				p.skipWhitespace()
				if p.peek() == ')' {
					p.advance()
				}
			} else if p.peek() == '?' || p.peek() == '$' {
				name, err = p.parseVariableName()
				if err != nil {
					return err
				}
			} else {
				break
			}
			q.OrderBy = append(q.OrderBy, OrderTerm{Variable: name, Descending: desc})
		}
	}

	p.skipWhitespace()
	if p.matchKeyword("LIMIT") {
		n, err := p.parseInt()
		if err != nil {
			return fmt.Errorf("sparqlsyntax: LIMIT: %w", err)
		}
		q.Limit = &n
	}

	p.skipWhitespace()
	if p.matchKeyword("OFFSET") {
		n, err := p.parseInt()
		if err != nil {
			return fmt.Errorf("sparqlsyntax: OFFSET: %w", err)
		}
		q.Offset = &n
	}
	return nil
}

func (p *Parser) parseGraphPattern() (*GraphPattern, error) {
	p.skipWhitespace()
	if p.peek() != '{' {
		return nil, fmt.Errorf("sparqlsyntax: expected '{' to start a graph pattern")
	}
	p.advance()

	gp := &GraphPattern{}
	for {
		p.skipWhitespace()
		if p.peek() == '}' {
			p.advance()
			return gp, nil
		}
		if p.matchKeyword("FILTER") {
			p.skipWhitespace()
			if p.peek() != '(' {
				return nil, fmt.Errorf("sparqlsyntax: expected '(' after FILTER")
			}
			p.advance()
			cond, err := p.parseExpression()
			if err != nil {
				return nil, fmt.Errorf("sparqlsyntax: FILTER: %w", err)
			}
			p.skipWhitespace()
			if p.peek() != ')' {
				return nil, fmt.Errorf("sparqlsyntax: expected ')' closing FILTER")
			}
			p.advance()
			gp.Filters = append(gp.Filters, cond)
			p.skipWhitespace()
			if p.peek() == '.' {
				p.advance()
			}
			continue
		}
		pat, err := p.parseTriplePattern()
		if err != nil {
			return nil, err
		}
		gp.Patterns = append(gp.Patterns, pat)
		p.skipWhitespace()
		if p.peek() == '.' {
			p.advance()
		}
	}
}

func (p *Parser) parseTriplePattern() (logical.Scan, error) {
	p.skipWhitespace()
	s, err := p.parseTerm()
	if err != nil {
		return logical.Scan{}, fmt.Errorf("subject: %w", err)
	}
	p.skipWhitespace()
	pr, err := p.parseTerm()
	if err != nil {
		return logical.Scan{}, fmt.Errorf("predicate: %w", err)
	}
	p.skipWhitespace()
	o, err := p.parseTerm()
	if err != nil {
		return logical.Scan{}, fmt.Errorf("object: %w", err)
	}
	return logical.Scan{Subject: s, Predicate: pr, Object: o}, nil
}

func (p *Parser) parseTerm() (logical.Term, error) {
	p.skipWhitespace()
	switch {
	case p.peek() == '?' || p.peek() == '$':
		name, err := p.parseVariableName()
		if err != nil {
			return logical.Term{}, err
		}
		return logical.Var(name), nil
	case p.peek() == '<':
		iri, err := p.parseIRIRef()
		if err != nil {
			return logical.Term{}, err
		}
		return logical.Const(iri), nil
	case p.peek() == '"':
		lit, err := p.parseStringLiteral()
		if err != nil {
			return logical.Term{}, err
		}
		return logical.Const(lit), nil
	case isDigit(p.peek()) || p.peek() == '-' || p.peek() == '+':
		num := p.readWhile(func(ch byte) bool {
			return isDigit(ch) || ch == '.' || ch == '-' || ch == '+' || ch == 'e' || ch == 'E'
		})
		return logical.Const(num), nil
	case isNameStart(p.peek()):
		iri, err := p.parsePrefixedName()
		if err != nil {
			return logical.Term{}, err
		}
		return logical.Const(iri), nil
	default:
		return logical.Term{}, fmt.Errorf("unexpected character %q at position %d", p.peek(), p.pos)
	}
}

func (p *Parser) parsePrefixedName() (string, error) {
	prefix := p.readWhile(func(ch byte) bool { return ch != ':' && !isWhitespaceOrDelim(ch) })
	if p.peek() != ':' {
		return "", fmt.Errorf("expected ':' in prefixed name")
	}
	p.advance()
	local := p.readWhile(func(ch byte) bool { return !isWhitespaceOrDelim(ch) })
	base, ok := p.prefixes[prefix]
	if !ok {
		return "", fmt.Errorf("undefined prefix %q", prefix)
	}
	return base + local, nil
}

func (p *Parser) parseIRIRef() (string, error) {
	if p.peek() != '<' {
		return "", fmt.Errorf("expected '<' to start an IRI")
	}
	p.advance()
	iri := p.readWhile(func(ch byte) bool { return ch != '>' })
	if p.peek() != '>' {
		return "", fmt.Errorf("unclosed IRI reference")
	}
	p.advance()
	return iri, nil
}

func (p *Parser) parseStringLiteral() (string, error) {
	p.advance() // opening quote
	var sb strings.Builder
	for p.pos < p.length && p.input[p.pos] != '"' {
		ch := p.input[p.pos]
		if ch == '\\' && p.pos+1 < p.length {
			p.pos++
			switch p.input[p.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(p.input[p.pos])
			}
			p.pos++
			continue
		}
		sb.WriteByte(ch)
		p.pos++
	}
	if p.pos >= p.length {
		return "", fmt.Errorf("unterminated string literal")
	}
	p.pos++ // closing quote

	// Accept and discard a language tag or datatype suffix, same
	// opaque-lexical-form discipline internal/ntriples uses.
	if p.peek() == '@' {
		p.advance()
		p.readWhile(func(ch byte) bool { return !isWhitespaceOrDelim(ch) })
	} else if p.peek() == '^' && p.pos+1 < p.length && p.input[p.pos+1] == '^' {
		p.pos += 2
		if _, err := p.parseIRIRef(); err != nil {
			return "", fmt.Errorf("datatype IRI: %w", err)
		}
	}
	return sb.String(), nil
}

func (p *Parser) parseVariableName() (string, error) {
	if p.peek() != '?' && p.peek() != '$' {
		return "", fmt.Errorf("expected a variable starting with '?' or '$'")
	}
	p.advance()
	name := p.readWhile(func(ch byte) bool {
		return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '_'
	})
	if name == "" {
		return "", fmt.Errorf("empty variable name")
	}
	return name, nil
}

func (p *Parser) parseInt() (int, error) {
	p.skipWhitespace()
	start := p.pos
	if p.peek() == '-' {
		p.advance()
	}
	digits := p.readWhile(isDigit)
	if digits == "" {
		return 0, fmt.Errorf("expected an integer")
	}
	return strconv.Atoi(p.input[start:p.pos])
}

// --- expression grammar: orExpr -> andExpr -> notExpr -> comparison ->
// additive -> multiplicative -> unary -> primary ---

func (p *Parser) parseExpression() (expr.Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (expr.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if !p.matchLiteral("||") {
			return left, nil
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = expr.Binary{Op: expr.OpOr, Left: left, Right: right}
	}
}

func (p *Parser) parseAnd() (expr.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		if !p.matchLiteral("&&") {
			return left, nil
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = expr.Binary{Op: expr.OpAnd, Left: left, Right: right}
	}
}

func (p *Parser) parseNot() (expr.Expr, error) {
	p.skipWhitespace()
	if p.peek() == '!' && !p.atOperator("!=") {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return expr.Unary{Op: expr.OpNot, Operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *Parser) parseComparison() (expr.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	p.skipWhitespace()
	op, ok := p.matchComparisonOp()
	if !ok {
		return left, nil
	}
	right, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return expr.Binary{Op: op, Left: left, Right: right}, nil
}

func (p *Parser) matchComparisonOp() (expr.Op, bool) {
	switch {
	case p.matchLiteral("!="):
		return expr.OpNe, true
	case p.matchLiteral("<="):
		return expr.OpLe, true
	case p.matchLiteral(">="):
		return expr.OpGe, true
	case p.matchLiteral("="):
		return expr.OpEq, true
	case p.matchLiteral("<"):
		return expr.OpLt, true
	case p.matchLiteral(">"):
		return expr.OpGt, true
	default:
		return 0, false
	}
}

func (p *Parser) parseAdditive() (expr.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		switch {
		case p.matchLiteral("+"):
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = expr.Binary{Op: expr.OpAdd, Left: left, Right: right}
		case p.atOperator("-"):
			p.advance()
			right, err := p.parseMultiplicative()
			if err != nil {
				return nil, err
			}
			left = expr.Binary{Op: expr.OpSub, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseMultiplicative() (expr.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		p.skipWhitespace()
		switch {
		case p.matchLiteral("*"):
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = expr.Binary{Op: expr.OpMul, Left: left, Right: right}
		case p.matchLiteral("/"):
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = expr.Binary{Op: expr.OpDiv, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseUnary() (expr.Expr, error) {
	p.skipWhitespace()
	if p.peek() == '-' {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return expr.Binary{Op: expr.OpSub, Left: expr.Lit{Value: "0"}, Right: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (expr.Expr, error) {
	p.skipWhitespace()
	switch {
	case p.peek() == '(':
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		p.skipWhitespace()
		if p.peek() != ')' {
			return nil, fmt.Errorf("expected ')' closing sub-expression")
		}
		p.advance()
		return inner, nil
	case p.peek() == '?' || p.peek() == '$':
		name, err := p.parseVariableName()
		if err != nil {
			return nil, err
		}
		return expr.Var{Name: name}, nil
	case p.peek() == '"':
		lit, err := p.parseStringLiteral()
		if err != nil {
			return nil, err
		}
		return expr.Lit{Value: lit}, nil
	case isDigit(p.peek()):
		num := p.readWhile(func(ch byte) bool { return isDigit(ch) || ch == '.' })
		return expr.Lit{Value: num}, nil
	case isNameStart(p.peek()):
		name := p.readWhile(func(ch byte) bool { return isNameStart(ch) || isDigit(ch) })
		p.skipWhitespace()
		if p.peek() != '(' {
			return nil, fmt.Errorf("unexpected bare identifier %q in expression", name)
		}
		p.advance()
		var args []expr.Expr
		for {
			p.skipWhitespace()
			if p.peek() == ')' {
				p.advance()
				break
			}
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			p.skipWhitespace()
			if p.peek() == ',' {
				p.advance()
			}
		}
		return expr.Call{Name: strings.ToUpper(name), Args: args}, nil
	default:
		return nil, fmt.Errorf("unexpected character %q at position %d in expression", p.peek(), p.pos)
	}
}

// --- low-level scanning helpers, in the teacher's char-position style ---

func (p *Parser) peek() byte {
	if p.pos >= p.length {
		return 0
	}
	return p.input[p.pos]
}

func (p *Parser) advance() {
	if p.pos < p.length {
		p.pos++
	}
}

func (p *Parser) readWhile(pred func(byte) bool) string {
	start := p.pos
	for p.pos < p.length && pred(p.input[p.pos]) {
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *Parser) skipWhitespace() {
	for p.pos < p.length {
		ch := p.input[p.pos]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			p.pos++
			continue
		}
		if ch == '#' {
			for p.pos < p.length && p.input[p.pos] != '\n' {
				p.pos++
			}
			continue
		}
		break
	}
}

// matchKeyword consumes keyword (case-insensitively) if it appears next,
// bounded by a non-identifier character, and skips trailing whitespace.
func (p *Parser) matchKeyword(keyword string) bool {
	p.skipWhitespace()
	end := p.pos + len(keyword)
	if end > p.length {
		return false
	}
	if !strings.EqualFold(p.input[p.pos:end], keyword) {
		return false
	}
	if end < p.length && isIdentChar(p.input[end]) {
		return false
	}
	p.pos = end
	p.skipWhitespace()
	return true
}

// matchLiteral consumes a non-alphabetic operator token like "&&" or "!=".
func (p *Parser) matchLiteral(lit string) bool {
	end := p.pos + len(lit)
	if end > p.length || p.input[p.pos:end] != lit {
		return false
	}
	p.pos = end
	return true
}

// atOperator reports whether op appears at the current position, without
// consuming it — used to tell "!" apart from the start of "!=", and "-"
// used as a binary operator apart from other meanings.
func (p *Parser) atOperator(op string) bool {
	end := p.pos + len(op)
	return end <= p.length && p.input[p.pos:end] == op
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isNameStart(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch == '_'
}

func isIdentChar(ch byte) bool {
	return isNameStart(ch) || isDigit(ch)
}

func isWhitespaceOrDelim(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '.' || ch == '}' || ch == '{'
}
