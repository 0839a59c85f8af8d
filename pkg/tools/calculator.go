package tools

import (
	"context"
	"errors"

	"github.com/wilhg/toolbridge/pkg/errmodel"
	"github.com/wilhg/toolbridge/pkg/schema"
	"github.com/wilhg/toolbridge/pkg/tool"
)

// ErrDivisionByZero is returned by the calculator for divide with b == 0.
var ErrDivisionByZero = errors.New("division by zero")

var calculatorSchema = schema.MustNew([]schema.Property{
	schema.String("operation", "One of add, subtract, multiply, divide"),
	schema.Number("a", "First operand"),
	schema.Number("b", "Second operand"),
}, "operation", "a", "b")

// Calculator describes the reference arithmetic tool.
func Calculator() tool.Descriptor {
	return tool.Descriptor{
		Name:        "calculator",
		Description: "Performs basic arithmetic on two numbers",
		Schema:      calculatorSchema,
		New:         tool.Static(tool.Func(calculate)),
	}
}

// CalculatorResult is the calculator's return value.
type CalculatorResult struct {
	Operation string  `json:"operation"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	Result    float64 `json:"result"`
}

func calculate(_ context.Context, args tool.Arguments) (any, error) {
	op, _ := args.String("operation")
	a, _ := args.Float("a")
	b, _ := args.Float("b")

	var r float64
	switch op {
	case "add":
		r = a + b
	case "subtract":
		r = a - b
	case "multiply":
		r = a * b
	case "divide":
		if b == 0 {
			return nil, ErrDivisionByZero
		}
		r = a / b
	default:
		return nil, errmodel.InvalidParameter("operation", "one of add, subtract, multiply, divide")
	}
	return CalculatorResult{Operation: op, A: a, B: b, Result: r}, nil
}
