package fn

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestResultBasics(t *testing.T) {
	r := Ok(42)
	if !r.IsOk() || r.IsErr() {
		t.Fatal("expected ok")
	}
	v, err := r.Unwrap()
	if v != 42 || err != nil {
		t.Fatalf("unwrap: %v %v", v, err)
	}

	e := Err[int](errors.New("boom"))
	if e.IsOk() {
		t.Fatal("expected err")
	}
	if got := e.UnwrapOr(7); got != 7 {
		t.Fatalf("UnwrapOr: %d", got)
	}
}

func TestFromPair(t *testing.T) {
	if r := FromPair(1, nil); r.IsErr() {
		t.Fatal("expected ok")
	}
	if r := FromPair(0, errors.New("x")); r.IsOk() {
		t.Fatal("expected err")
	}
}

func TestCollect(t *testing.T) {
	all := []Result[int]{Ok(1), Ok(2), Ok(3)}
	r := Collect(all)
	vals, err := r.Unwrap()
	if err != nil || len(vals) != 3 {
		t.Fatalf("collect: %v %v", vals, err)
	}

	withErr := []Result[int]{Ok(1), Err[int](errors.New("bad")), Ok(3)}
	if Collect(withErr).IsOk() {
		t.Fatal("expected first error to propagate")
	}
}

func TestValues(t *testing.T) {
	mixed := []Result[int]{Ok(1), Err[int](errors.New("skip")), Ok(3)}
	vals := Values(mixed)
	if len(vals) != 2 || vals[0] != 1 || vals[1] != 3 {
		t.Fatalf("values: %v", vals)
	}
}

func TestThen(t *testing.T) {
	double := Stage[int, int](func(_ context.Context, n int) Result[int] { return Ok(n * 2) })
	str := Stage[int, string](func(_ context.Context, n int) Result[string] {
		if n > 10 {
			return Err[string](errors.New("too big"))
		}
		return Ok("ok")
	})

	combined := Then(double, str)
	if r := combined(context.Background(), 2); r.IsErr() {
		t.Fatal("expected ok")
	}
	if r := combined(context.Background(), 6); r.IsOk() {
		t.Fatal("expected short-circuit error")
	}
}

func TestTraced(t *testing.T) {
	stage := Traced("test", Stage[int, int](func(_ context.Context, n int) Result[int] {
		return Ok(n + 1)
	}))
	v, err := stage(context.Background(), 1).Unwrap()
	if err != nil || v != 2 {
		t.Fatalf("traced: %v %v", v, err)
	}

	failing := Traced("fail", Stage[int, int](func(_ context.Context, _ int) Result[int] {
		return Err[int](errors.New("boom"))
	}))
	if failing(context.Background(), 1).IsOk() {
		t.Fatal("expected error")
	}
}

func TestParMapResult_Order(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7, 8}
	results := ParMapResult(context.Background(), items, 3, func(_ context.Context, n int) Result[int] {
		return Ok(n * 10)
	})
	for i, r := range results {
		v, _ := r.Unwrap()
		if v != items[i]*10 {
			t.Fatalf("order lost at %d: %d", i, v)
		}
	}
}

func TestParMapResult_IsolatedFailures(t *testing.T) {
	var calls atomic.Int32
	items := []int{1, 2, 3, 4}
	results := ParMapResult(context.Background(), items, 2, func(_ context.Context, n int) Result[int] {
		calls.Add(1)
		if n%2 == 0 {
			return Err[int](errors.New("even"))
		}
		return Ok(n)
	})
	if calls.Load() != 4 {
		t.Fatalf("all items should be attempted, got %d calls", calls.Load())
	}
	if len(Values(results)) != 2 {
		t.Fatalf("expected 2 ok values")
	}
}

func TestParMapResult_Empty(t *testing.T) {
	results := ParMapResult(context.Background(), nil, 3, func(_ context.Context, n int) Result[int] {
		return Ok(n)
	})
	if len(results) != 0 {
		t.Fatal("expected empty")
	}
}
