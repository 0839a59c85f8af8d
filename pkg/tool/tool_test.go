package tool

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/wilhg/toolbridge/pkg/capability"
	"github.com/wilhg/toolbridge/pkg/errmodel"
)

func register(t *testing.T, d Descriptor) *Entry {
	t.Helper()
	reg := NewRegistry()
	if err := reg.Register(d, capability.NewMemory()); err != nil {
		t.Fatal(err)
	}
	e, _ := reg.Lookup(d.Name)
	return e
}

func TestSafeInvoke_OK(t *testing.T) {
	e := register(t, sumDescriptor("sum"))
	args, err := DecodeArguments(json.RawMessage(`{"a":1,"b":2.5}`))
	if err != nil {
		t.Fatal(err)
	}
	out, err := SafeInvoke(context.Background(), e, args, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.(map[string]any)["sum"]; got != 3.5 {
		t.Fatalf("sum=%v want 3.5", got)
	}
}

func TestSafeInvoke_ValidationBeforeExecution(t *testing.T) {
	ran := false
	d := sumDescriptor("sum")
	d.New = Static(Func(func(context.Context, Arguments) (any, error) {
		ran = true
		return nil, nil
	}))
	e := register(t, d)

	_, err := SafeInvoke(context.Background(), e, Arguments{"a": json.Number("1")}, 0)
	if !errmodel.IsKind(err, errmodel.KindMissingParameter) {
		t.Fatalf("err=%v want missing_parameter", err)
	}
	_, err = SafeInvoke(context.Background(), e, Arguments{"a": "x", "b": json.Number("1")}, 0)
	if !errmodel.IsKind(err, errmodel.KindInvalidParameter) {
		t.Fatalf("err=%v want invalid_parameter", err)
	}
	if ran {
		t.Fatal("tool executed despite validation failure")
	}
}

func TestSafeInvoke_ErrorsBecomeExecutionFailed(t *testing.T) {
	e := register(t, Descriptor{Name: "fail", New: Static(Func(func(context.Context, Arguments) (any, error) {
		return nil, errmodel.NotAvailable("status")
	}))})
	_, err := SafeInvoke(context.Background(), e, nil, 0)
	ce := errmodel.From(err)
	if ce.Kind != errmodel.KindExecutionFailed {
		t.Fatalf("kind=%s want execution_failed", ce.Kind)
	}
	if len(ce.Causes) != 1 || ce.Causes[0].Kind != errmodel.KindNotAvailable {
		t.Fatalf("causes=%+v", ce.Causes)
	}
}

func TestSafeInvoke_PanicIsContained(t *testing.T) {
	e := register(t, Descriptor{Name: "panic", New: Static(Func(func(context.Context, Arguments) (any, error) {
		panic("kaboom")
	}))})
	_, err := SafeInvoke(context.Background(), e, nil, 0)
	if !errmodel.IsKind(err, errmodel.KindExecutionFailed) {
		t.Fatalf("err=%v want execution_failed", err)
	}
}

func TestSafeInvoke_DeadlineAbandonsStuckTool(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	e := register(t, Descriptor{Name: "stuck", New: Static(Func(func(context.Context, Arguments) (any, error) {
		<-release
		return "late", nil
	}))})

	start := time.Now()
	_, err := SafeInvoke(context.Background(), e, nil, 20*time.Millisecond)
	if !errmodel.IsKind(err, errmodel.KindExecutionFailed) {
		t.Fatalf("err=%v want execution_failed", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v want deadline exceeded cause", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("SafeInvoke waited for a stuck tool")
	}
}

func TestSafeInvoke_CancelledContext(t *testing.T) {
	e := register(t, sumDescriptor("sum"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := SafeInvoke(ctx, e, Arguments{"a": 1.0, "b": 2.0}, 0)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want canceled", err)
	}
}

func TestDecodeArguments(t *testing.T) {
	for _, raw := range []string{``, `null`, `  `} {
		args, err := DecodeArguments(json.RawMessage(raw))
		if err != nil || len(args) != 0 {
			t.Fatalf("DecodeArguments(%q)=%v,%v", raw, args, err)
		}
	}
	if _, err := DecodeArguments(json.RawMessage(`[1,2]`)); err == nil {
		t.Fatal("expected error for array arguments")
	}
	args, err := DecodeArguments(json.RawMessage(`{"n":3,"f":1.5,"s":"x","b":true,"o":{}}`))
	if err != nil {
		t.Fatal(err)
	}
	if n, ok := args.Int("n"); !ok || n != 3 {
		t.Fatalf("n=%v,%v", n, ok)
	}
	if _, ok := args.Int("f"); ok {
		t.Fatal("1.5 reported as integer")
	}
	if f, ok := args.Float("f"); !ok || f != 1.5 {
		t.Fatalf("f=%v,%v", f, ok)
	}
	if s, ok := args.String("s"); !ok || s != "x" {
		t.Fatalf("s=%v,%v", s, ok)
	}
	if b, ok := args.Bool("b"); !ok || !b {
		t.Fatalf("b=%v,%v", b, ok)
	}
	if _, ok := args.Object("o"); !ok {
		t.Fatal("o is not an object")
	}
}

func TestArguments_NativeNumerics(t *testing.T) {
	args := Arguments{
		"i8": int8(-3), "i16": int16(300), "i32": int32(5), "u": uint(7), "u8": uint8(3),
		"u16": uint16(9), "u32": uint32(11), "u64": uint64(13), "f32": float32(2.5),
	}
	for name, want := range map[string]float64{
		"i8": -3, "i16": 300, "i32": 5, "u": 7, "u8": 3, "u16": 9, "u32": 11, "u64": 13, "f32": 2.5,
	} {
		if got, ok := args.Float(name); !ok || got != want {
			t.Fatalf("Float(%s)=%v,%v want %v", name, got, ok, want)
		}
		if want == math.Trunc(want) {
			if got, ok := args.Int(name); !ok || float64(got) != want {
				t.Fatalf("Int(%s)=%v,%v want %v", name, got, ok, want)
			}
		}
	}
}

func TestArguments_IntRange(t *testing.T) {
	args := Arguments{
		"edge":   float64(1 << 63),
		"min":    float64(-(1 << 63)),
		"bigu":   uint64(math.MaxUint64),
		"bignum": json.Number("9223372036854775808"),
		"maxnum": json.Number("9223372036854775807"),
	}
	if _, ok := args.Int("edge"); ok {
		t.Fatal("2^63 reported as int64")
	}
	if got, ok := args.Int("min"); !ok || got != math.MinInt64 {
		t.Fatalf("Int(min)=%v,%v", got, ok)
	}
	if _, ok := args.Int("bigu"); ok {
		t.Fatal("MaxUint64 reported as int64")
	}
	if _, ok := args.Int("bignum"); ok {
		t.Fatal("2^63 json number reported as int64")
	}
	if got, ok := args.Int("maxnum"); !ok || got != math.MaxInt64 {
		t.Fatalf("Int(maxnum)=%v,%v", got, ok)
	}
}
