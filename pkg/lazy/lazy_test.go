package lazy

import (
	"sync"
	"sync/atomic"
	"testing"
)

type record struct{ name string }

func TestResolvesOnce(t *testing.T) {
	calls := 0
	v := New(func() *record {
		calls++
		return &record{name: "a"}
	})
	if v.IsResolved() {
		t.Fatalf("resolved before first read")
	}

	first := v.Get()
	second := v.Get()
	if first != second {
		t.Fatalf("Get returned different instances")
	}
	if calls != 1 {
		t.Fatalf("resolver ran %d times, want 1", calls)
	}
}

func TestCachesNil(t *testing.T) {
	calls := 0
	v := New(func() *record {
		calls++
		return nil
	})
	if v.Get() != nil || v.Get() != nil {
		t.Fatalf("expected nil")
	}
	if calls != 1 {
		t.Fatalf("resolver ran %d times for a nil result", calls)
	}
}

func TestSetOverridesResolver(t *testing.T) {
	calls := 0
	v := New(func() int {
		calls++
		return 1
	})
	if v.Get() != 1 {
		t.Fatalf("Get = %d", v.Get())
	}
	v.Set(42)
	if v.Get() != 42 || v.Get() != 42 {
		t.Fatalf("Set value not kept")
	}

	unread := New(func() int {
		calls++
		return 7
	})
	unread.Set(3)
	if unread.Get() != 3 {
		t.Fatalf("Get after Set = %d", unread.Get())
	}
	if calls != 1 {
		t.Fatalf("resolver ran %d times, want 1", calls)
	}
}

func TestOf(t *testing.T) {
	v := Of("x")
	if !v.IsResolved() || v.Get() != "x" {
		t.Fatalf("Of not resolved to x")
	}
	nilResolver := New[int](nil)
	if nilResolver.Get() != 0 {
		t.Fatalf("nil resolver should yield zero value")
	}
}

func TestConcurrentFirstRead(t *testing.T) {
	var calls atomic.Int32
	v := New(func() *record {
		calls.Add(1)
		return &record{}
	})

	var wg sync.WaitGroup
	results := make([]*record, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = v.Get()
		}(i)
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Fatalf("resolver ran %d times", calls.Load())
	}
	for _, r := range results {
		if r != results[0] {
			t.Fatalf("goroutines observed different values")
		}
	}
}

func TestIndexZeroSkipsLookup(t *testing.T) {
	c := NewIndex[*record](0)
	called := false
	got := c.Get(func(uint32) *record {
		called = true
		return &record{}
	})
	if got != nil || called {
		t.Fatalf("index 0 must resolve to nil without a lookup")
	}
}

func TestIndexResolvesOnce(t *testing.T) {
	c := NewIndex[*record](0x1004)
	var seen []uint32
	lookup := func(i uint32) *record {
		seen = append(seen, i)
		return &record{name: "x"}
	}
	a, b := c.Get(lookup), c.Get(lookup)
	if a != b || len(seen) != 1 || seen[0] != 0x1004 {
		t.Fatalf("lookups = %v", seen)
	}
	if c.Raw() != 0x1004 {
		t.Fatalf("Raw = 0x%x", c.Raw())
	}

	c.Set(nil)
	if c.Get(lookup) != nil || len(seen) != 1 {
		t.Fatalf("Set did not override")
	}
}
