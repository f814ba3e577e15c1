package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ericlagergren/decimal"
	"github.com/ivrplatform/goivr/pkg/script/arglist"
	"github.com/pkg/errors"
)

// parseDecimal parses an optionally signed fixed point number. An empty string is zero.
func parseDecimal(s string) (*decimal.Big, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.New(0, 0), true
	}
	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	digits := whole + frac
	if digits == "" {
		return nil, false
	}
	for i := 0; i < len(digits); i++ {
		if !isDigit(digits[i]) {
			return nil, false
		}
	}
	mant, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return nil, false
	}
	if neg {
		mant = -mant
	}
	return decimal.WithContext(decimal.Context128).SetMantScale(mant, len(frac)), true
}

func pow10(n int) int64 {
	p := int64(1)
	for ; n > 0; n-- {
		p *= 10
	}
	return p
}

// formatDecimal renders v rounded to the given number of fractional digits.
// Integral results are rendered without a fraction.
func formatDecimal(v *decimal.Big, decimals int) (string, error) {
	ctx := decimal.Context128
	ctx.RoundingMode = decimal.ToNearestAway
	p := pow10(decimals)
	scaled := decimal.WithContext(ctx).Set(v)
	scaled.Mul(scaled, decimal.WithContext(decimal.Context128).SetMantScale(p, 0))
	m, ok := scaled.RoundToInt().Int64()
	if !ok {
		return "", errors.New("result out of range")
	}
	if m%p == 0 {
		return strconv.FormatInt(m/p, 10), nil
	}
	sign := ""
	if m < 0 {
		sign = "-"
		m = -m
	}
	return fmt.Sprintf("%s%d.%0*d", sign, m/p, decimals, m%p), nil
}

func arith(op string, a, b *decimal.Big) (*decimal.Big, error) {
	r := decimal.WithContext(decimal.Context128)
	switch op {
	case "+":
		return r.Add(a, b), nil
	case "-":
		return r.Sub(a, b), nil
	case "*":
		return r.Mul(a, b), nil
	case "/", "%":
		if b.Sign() == 0 {
			return nil, errors.New("division by zero")
		}
		r.Quo(a, b)
		if err := r.Context.Err(); err != nil {
			return nil, errors.Wrap(err, "division failed")
		}
		if op == "/" {
			return r, nil
		}
		ctx := decimal.Context128
		ctx.RoundingMode = decimal.ToZero
		q := decimal.WithContext(ctx).Set(r).RoundToInt()
		q.Mul(q, b)
		return decimal.WithContext(decimal.Context128).Sub(a, q), nil
	}
	return nil, errors.Errorf("invalid operator %q", op)
}

// evaluate computes an infix expression of operands and + - * / % operators.
func (in *Interp) evaluate(tokens []string) (*decimal.Big, error) {
	if len(tokens) == 0 {
		return nil, errors.New("empty expression")
	}
	operand := func(tok string) (*decimal.Big, error) {
		v, ok := parseDecimal(in.Value(tok))
		if !ok {
			return nil, errors.Errorf("invalid number %q", in.Value(tok))
		}
		return v, nil
	}
	cur, err := operand(tokens[0])
	if err != nil {
		return nil, err
	}
	terms := []*decimal.Big{}
	ops := []string{}
	for i := 1; i < len(tokens); i += 2 {
		if i+1 >= len(tokens) {
			return nil, errors.New("incomplete expression")
		}
		op := tokens[i]
		v, err := operand(tokens[i+1])
		if err != nil {
			return nil, err
		}
		switch op {
		case "*", "/", "%":
			if cur, err = arith(op, cur, v); err != nil {
				return nil, err
			}
		case "+", "-":
			terms = append(terms, cur)
			ops = append(ops, op)
			cur = v
		default:
			return nil, errors.Errorf("invalid operator %q", op)
		}
	}
	terms = append(terms, cur)
	res := terms[0]
	for i, op := range ops {
		if res, err = arith(op, res, terms[i+1]); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Calculate evaluates an expression and formats the result with the configured decimals.
func (in *Interp) Calculate(tokens []string) (string, error) {
	v, err := in.evaluate(tokens)
	if err != nil {
		return "", err
	}
	return formatDecimal(v, in.img.cfg.Decimals)
}

// compare orders two values numerically when both are numbers, lexically otherwise.
func compare(a, b string) int {
	x, okx := parseDecimal(a)
	y, oky := parseDecimal(b)
	if okx && oky && a != "" && b != "" {
		return x.Cmp(y)
	}
	return strings.Compare(a, b)
}

var conditionOps = map[string]func(a, b string) bool{
	"?=":  func(a, b string) bool { return compare(a, b) == 0 },
	"?==": func(a, b string) bool { return a == b },
	"?!=": func(a, b string) bool { return compare(a, b) != 0 },
	"?<>": func(a, b string) bool { return compare(a, b) != 0 },
	"?<":  func(a, b string) bool { return compare(a, b) < 0 },
	"?>":  func(a, b string) bool { return compare(a, b) > 0 },
	"?<=": func(a, b string) bool { return compare(a, b) <= 0 },
	"?>=": func(a, b string) bool { return compare(a, b) >= 0 },
	"?$":  strings.Contains,
	"?!$": func(a, b string) bool { return !strings.Contains(a, b) },
	"?~":  matches,
	"?!~": func(a, b string) bool { return !matches(a, b) },
	"??":  member,
	"?!?": func(a, b string) bool { return !member(a, b) },
}

func matches(s, pattern string) bool {
	ok, err := regexp.MatchString(pattern, s)
	return err == nil && ok
}

func member(item, list string) bool {
	for _, v := range arglist.Split(list) {
		if v == item {
			return true
		}
	}
	return false
}

// clause evaluates one comparison or truth test and returns the number of arguments consumed.
func (in *Interp) clause(args []string) (bool, int, error) {
	if len(args) >= 3 {
		if op, ok := conditionOps[args[1]]; ok {
			return op(in.Value(args[0]), in.Value(args[2])), 3, nil
		}
	}
	if len(args) >= 2 {
		if _, ok := conditionOps[args[1]]; ok {
			return false, 0, errors.Errorf("missing operand after %q", args[1])
		}
	}
	arg := args[0]
	if len(arg) > 1 && arg[0] == '!' {
		return !Bool(in.Var(arg[1:])), 1, nil
	}
	return Bool(in.Value(arg)), 1, nil
}

// Condition evaluates clauses joined left to right by ?&& and ?||.
func (in *Interp) Condition(args []string) bool {
	result, err := in.condition(args)
	if err != nil {
		in.Error(err.Error())
		return false
	}
	return result
}

func (in *Interp) condition(args []string) (bool, error) {
	if len(args) == 0 {
		return false, errors.New("missing condition")
	}
	var result bool
	join := ""
	for i := 0; i < len(args); {
		v, n, err := in.clause(args[i:])
		if err != nil {
			return false, err
		}
		i += n
		switch join {
		case "":
			result = v
		case "?&&":
			result = result && v
		case "?||":
			result = result || v
		}
		if i >= len(args) {
			break
		}
		join = args[i]
		if join != "?&&" && join != "?||" {
			return false, errors.Errorf("invalid condition near %q", join)
		}
		i++
		if i >= len(args) {
			return false, errors.Errorf("missing condition after %q", join)
		}
	}
	return result, nil
}
