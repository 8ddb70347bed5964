package expr

import "testing"

func lookupFrom(m map[string]string) Lookup {
	return func(name string) (string, bool) {
		v, ok := m[name]
		return v, ok
	}
}

func TestEvalComparisonNumeric(t *testing.T) {
	l := lookupFrom(map[string]string{"age": "30"})
	v, err := Eval(Binary{Op: OpGt, Left: Var{"age"}, Right: Lit{"28"}}, l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.AsBool() {
		t.Fatalf("expected 30 > 28 to be true")
	}
}

func TestEvalComparisonNonNumericIsError(t *testing.T) {
	l := lookupFrom(map[string]string{"name": "alice"})
	_, err := Eval(Binary{Op: OpLt, Left: Var{"name"}, Right: Lit{"28"}}, l)
	if err == nil {
		t.Fatalf("expected a type error for ordering a non-numeric string")
	}
}

func TestEvalEqualityStringFallback(t *testing.T) {
	l := lookupFrom(map[string]string{"name": "alice"})
	v, err := Eval(Binary{Op: OpEq, Left: Var{"name"}, Right: Lit{"alice"}}, l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.AsBool() {
		t.Fatalf("expected string equality to hold")
	}
}

func TestEvalArithmetic(t *testing.T) {
	l := lookupFrom(map[string]string{"x": "4", "y": "5"})
	v, err := Eval(Binary{Op: OpMul, Left: Var{"x"}, Right: Var{"y"}}, l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n, ok := v.AsNumber()
	if !ok || n != 20 {
		t.Fatalf("expected 4*5=20, got %v", v)
	}
}

func TestEvalArithmeticTypeErrorDropsRow(t *testing.T) {
	l := lookupFrom(map[string]string{"x": "not-a-number"})
	_, err := Eval(Binary{Op: OpAdd, Left: Var{"x"}, Right: Lit{"1"}}, l)
	if err == nil {
		t.Fatalf("expected arithmetic on non-numeric operand to error")
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	l := lookupFrom(map[string]string{"x": "1", "y": "0"})
	_, err := Eval(Binary{Op: OpDiv, Left: Var{"x"}, Right: Var{"y"}}, l)
	if err == nil {
		t.Fatalf("expected division by zero to error")
	}
}

func TestEvalLogicalShortCircuitAnd(t *testing.T) {
	l := lookupFrom(map[string]string{"a": ""})
	v, err := Eval(Binary{
		Op:   OpAnd,
		Left: Var{"a"},
		// If evaluated, this would error (unbound variable); short-circuit
		// must prevent that since the left side is already false.
		Right: Var{"never-bound"},
	}, l)
	if err != nil {
		t.Fatalf("unexpected error, short-circuit should have skipped right side: %v", err)
	}
	if v.AsBool() {
		t.Fatalf("expected false && _ to be false")
	}
}

func TestEvalLogicalShortCircuitOr(t *testing.T) {
	l := lookupFrom(map[string]string{"a": "yes"})
	v, err := Eval(Binary{
		Op:    OpOr,
		Left:  Var{"a"},
		Right: Var{"never-bound"},
	}, l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.AsBool() {
		t.Fatalf("expected true || _ to be true")
	}
}

func TestEvalNot(t *testing.T) {
	l := lookupFrom(map[string]string{"a": ""})
	v, err := Eval(Unary{Op: OpNot, Operand: Var{"a"}}, l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.AsBool() {
		t.Fatalf("expected !false (empty string is falsy) to be true")
	}
}

func TestEvalUnboundVariableIsError(t *testing.T) {
	l := lookupFrom(map[string]string{})
	_, err := Eval(Var{"missing"}, l)
	if err == nil {
		t.Fatalf("expected unbound variable to error")
	}
}

func TestEvalConcat(t *testing.T) {
	l := lookupFrom(map[string]string{"first": "Jane", "last": "Doe"})
	v, err := Eval(Call{Name: "CONCAT", Args: []Expr{Var{"first"}, Lit{" "}, Var{"last"}}}, l)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.String() != "Jane Doe" {
		t.Fatalf("expected \"Jane Doe\", got %q", v.String())
	}
}

func TestEvalUnknownFunctionIsError(t *testing.T) {
	l := lookupFrom(map[string]string{})
	_, err := Eval(Call{Name: "NOPE", Args: nil}, l)
	if err == nil {
		t.Fatalf("expected unknown function to error")
	}
}
