package expr

import (
	"fmt"
	"math"
	"strings"

	"github.com/fathom-data/fathom-engine/pkg/apperrors"
)

// RowReader supplies the row field values an expression may reference.
// Values are int64, float64, string, bool, or nil.
type RowReader interface {
	ColumnValue(name string) (any, bool)
}

// MapRow adapts a plain map to RowReader.
type MapRow map[string]any

// ColumnValue implements RowReader.
func (m MapRow) ColumnValue(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// Eval evaluates the program against one row. Arithmetic involving a null
// operand yields null; comparisons involving a null operand yield false
// except null == null, which is true.
func (p *Program) Eval(row RowReader) (any, error) {
	return evalNode(p.root, row)
}

func evalNode(n node, row RowReader) (any, error) {
	switch x := n.(type) {
	case literalNode:
		return x.value, nil
	case identNode:
		v, ok := row.ColumnValue(x.name)
		if !ok {
			return nil, fmt.Errorf("row has no column %q: %w", x.name, apperrors.ErrColumnNotFound)
		}
		return v, nil
	case unaryNode:
		return evalUnary(x, row)
	case binaryNode:
		return evalBinary(x, row)
	case ternaryNode:
		cond, err := evalNode(x.cond, row)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return evalNode(x.then, row)
		}
		return evalNode(x.els, row)
	case callNode:
		args := make([]any, len(x.args))
		for i, a := range x.args {
			v, err := evalNode(a, row)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return builtins[x.name](args)
	}
	return nil, fmt.Errorf("unknown expression node %T: %w", n, apperrors.ErrExpression)
}

func evalUnary(x unaryNode, row RowReader) (any, error) {
	v, err := evalNode(x.child, row)
	if err != nil {
		return nil, err
	}
	if v == nil {
		if x.op == "!" {
			return true, nil
		}
		return nil, nil
	}
	switch x.op {
	case "-":
		switch n := v.(type) {
		case int64:
			return -n, nil
		case float64:
			return -n, nil
		}
		return nil, fmt.Errorf("cannot negate %T: %w", v, apperrors.ErrExpression)
	case "!":
		return !truthy(v), nil
	}
	return nil, fmt.Errorf("unknown unary operator %q: %w", x.op, apperrors.ErrExpression)
}

func evalBinary(x binaryNode, row RowReader) (any, error) {
	// Logical operators short-circuit.
	if x.op == "&&" || x.op == "||" {
		left, err := evalNode(x.left, row)
		if err != nil {
			return nil, err
		}
		if x.op == "&&" && !truthy(left) {
			return false, nil
		}
		if x.op == "||" && truthy(left) {
			return true, nil
		}
		right, err := evalNode(x.right, row)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}

	left, err := evalNode(x.left, row)
	if err != nil {
		return nil, err
	}
	right, err := evalNode(x.right, row)
	if err != nil {
		return nil, err
	}

	switch x.op {
	case "+", "-", "*", "/", "%":
		return evalArithmetic(x.op, left, right)
	case "==", "!=", "<", "<=", ">", ">=":
		return evalComparison(x.op, left, right), nil
	}
	return nil, fmt.Errorf("unknown operator %q: %w", x.op, apperrors.ErrExpression)
}

func evalArithmetic(op string, left, right any) (any, error) {
	if left == nil || right == nil {
		return nil, nil
	}
	if op == "+" {
		// String concatenation when either side is a string.
		if ls, ok := left.(string); ok {
			return ls + Stringify(right), nil
		}
		if rs, ok := right.(string); ok {
			return Stringify(left) + rs, nil
		}
	}
	li, lInt := left.(int64)
	ri, rInt := right.(int64)
	if lInt && rInt && op != "/" {
		switch op {
		case "+":
			return li + ri, nil
		case "-":
			return li - ri, nil
		case "*":
			return li * ri, nil
		case "%":
			if ri == 0 {
				return nil, nil
			}
			return li % ri, nil
		}
	}
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if !lok || !rok {
		return nil, fmt.Errorf("cannot apply %q to %T and %T: %w", op, left, right, apperrors.ErrExpression)
	}
	switch op {
	case "+":
		return lf + rf, nil
	case "-":
		return lf - rf, nil
	case "*":
		return lf * rf, nil
	case "/":
		if rf == 0 {
			return nil, nil
		}
		return lf / rf, nil
	case "%":
		if rf == 0 {
			return nil, nil
		}
		return math.Mod(lf, rf), nil
	}
	return nil, fmt.Errorf("unknown arithmetic operator %q: %w", op, apperrors.ErrExpression)
}

func evalComparison(op string, left, right any) bool {
	if left == nil || right == nil {
		// null == null is the one comparison that holds.
		return op == "==" && left == nil && right == nil
	}
	if lf, lok := toFloat(left); lok {
		if rf, rok := toFloat(right); rok {
			return compareOrdered(op, compareFloats(lf, rf))
		}
		return false
	}
	if ls, ok := left.(string); ok {
		if rs, ok := right.(string); ok {
			return compareOrdered(op, strings.Compare(ls, rs))
		}
		return false
	}
	if lb, ok := left.(bool); ok {
		if rb, ok := right.(bool); ok {
			switch op {
			case "==":
				return lb == rb
			case "!=":
				return lb != rb
			}
		}
		return false
	}
	return false
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareOrdered(op string, cmp int) bool {
	switch op {
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	}
	return false
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// Stringify renders a value the way the engine serializes it into string
// columns: integers without exponent, floats with minimal digits.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return fmt.Sprintf("%d", x)
	case float64:
		return fmt.Sprintf("%g", x)
	case bool:
		return fmt.Sprintf("%t", x)
	default:
		return fmt.Sprint(x)
	}
}

type builtinFunc func(args []any) (any, error)

// builtins is the entire callable surface of the expression language.
var builtins = map[string]builtinFunc{
	"abs":      builtinAbs,
	"round":    numericBuiltin("round", math.Round),
	"floor":    numericBuiltin("floor", math.Floor),
	"ceil":     numericBuiltin("ceil", math.Ceil),
	"sqrt":     numericBuiltin("sqrt", math.Sqrt),
	"upper":    stringBuiltin("upper", strings.ToUpper),
	"lower":    stringBuiltin("lower", strings.ToLower),
	"len":      builtinLen,
	"concat":   builtinConcat,
	"coalesce": builtinCoalesce,
	"min":      builtinMinMax("min", func(a, b float64) bool { return b < a }),
	"max":      builtinMinMax("max", func(a, b float64) bool { return b > a }),
}

func builtinAbs(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("abs takes 1 argument: %w", apperrors.ErrExpression)
	}
	switch x := args[0].(type) {
	case nil:
		return nil, nil
	case int64:
		if x < 0 {
			return -x, nil
		}
		return x, nil
	case float64:
		return math.Abs(x), nil
	}
	return nil, fmt.Errorf("abs takes a numeric argument: %w", apperrors.ErrExpression)
}

func numericBuiltin(name string, fn func(float64) float64) builtinFunc {
	return func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes 1 argument: %w", name, apperrors.ErrExpression)
		}
		if args[0] == nil {
			return nil, nil
		}
		f, ok := toFloat(args[0])
		if !ok {
			return nil, fmt.Errorf("%s takes a numeric argument: %w", name, apperrors.ErrExpression)
		}
		return fn(f), nil
	}
}

func stringBuiltin(name string, fn func(string) string) builtinFunc {
	return func(args []any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s takes 1 argument: %w", name, apperrors.ErrExpression)
		}
		if args[0] == nil {
			return nil, nil
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%s takes a string argument: %w", name, apperrors.ErrExpression)
		}
		return fn(s), nil
	}
}

func builtinLen(args []any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("len takes 1 argument: %w", apperrors.ErrExpression)
	}
	if args[0] == nil {
		return nil, nil
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("len takes a string argument: %w", apperrors.ErrExpression)
	}
	return int64(len(s)), nil
}

func builtinConcat(args []any) (any, error) {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(Stringify(a))
	}
	return sb.String(), nil
}

func builtinCoalesce(args []any) (any, error) {
	for _, a := range args {
		if a != nil {
			return a, nil
		}
	}
	return nil, nil
}

func builtinMinMax(name string, better func(best, candidate float64) bool) builtinFunc {
	return func(args []any) (any, error) {
		if len(args) < 2 {
			return nil, fmt.Errorf("%s takes at least 2 arguments: %w", name, apperrors.ErrExpression)
		}
		var best any
		var bestF float64
		for _, a := range args {
			if a == nil {
				continue
			}
			f, ok := toFloat(a)
			if !ok {
				return nil, fmt.Errorf("%s takes numeric arguments: %w", name, apperrors.ErrExpression)
			}
			if best == nil || better(bestF, f) {
				best, bestF = a, f
			}
		}
		return best, nil
	}
}
