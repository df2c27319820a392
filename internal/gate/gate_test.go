package gate

import (
	"reflect"
	"testing"

	"github.com/1broseidon/quickstep/internal/invariant"
)

func newTestVocab() (*Vocabulary, Set, Set, Set, Set) {
	v := NewVocabulary("test")
	a := v.Define("A")
	b := v.Define("B")
	c := v.Define("C")
	d := v.Define("D")
	return v, a, b, c, d
}

func TestGate_FiresOnceWhenAllBitsPresent(t *testing.T) {
	v, a, b, _, _ := newTestVocab()
	g := New(v, nil)

	fired := 0
	g.RunOnceAtState(a|b, "ab", func() { fired++ })

	g.SetState(a)
	if fired != 0 {
		t.Fatalf("fired after A only: %d", fired)
	}
	g.SetState(b)
	if fired != 1 {
		t.Fatalf("fired = %d after A|B, want 1", fired)
	}
	for i := 0; i < 5; i++ {
		g.SetState(a | b)
	}
	g.ClearState(a)
	g.SetState(a)
	if fired != 1 {
		t.Fatalf("fired = %d after repeated sets, want 1", fired)
	}
}

func TestGate_RegisterWhenAlreadySatisfied(t *testing.T) {
	v, a, b, _, _ := newTestVocab()
	g := New(v, nil)
	g.SetState(a | b)

	fired := 0
	g.RunOnceAtState(a, "a", func() { fired++ })
	if fired != 1 {
		t.Fatalf("fired = %d, want immediate fire", fired)
	}
	g.SetState(a)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
}

func TestGate_FixpointFiringFromCallback(t *testing.T) {
	v, a, b, c, d := newTestVocab()
	g := New(v, nil)

	var order []string
	g.RunOnceAtState(a, "first", func() {
		order = append(order, "first")
		g.SetState(b)
	})
	g.RunOnceAtState(b|c, "second", func() {
		order = append(order, "second")
		g.SetState(d)
	})
	g.RunOnceAtState(d, "third", func() {
		order = append(order, "third")
	})

	g.SetState(c)
	g.SetState(a)

	if want := []string{"first", "second", "third"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestGate_RegistrationOrder(t *testing.T) {
	v, a, b, _, _ := newTestVocab()
	g := New(v, nil)

	var order []string
	g.RunOnceAtState(a|b, "ab", func() { order = append(order, "ab") })
	g.RunOnceAtState(a, "a", func() { order = append(order, "a") })
	g.RunOnceAtState(b, "b", func() { order = append(order, "b") })

	g.SetState(a | b)
	if want := []string{"ab", "a", "b"}; !reflect.DeepEqual(order, want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
}

func TestGate_RegistrationInsideCallback(t *testing.T) {
	v, a, b, _, _ := newTestVocab()
	g := New(v, nil)

	fired := 0
	g.RunOnceAtState(a, "outer", func() {
		g.RunOnceAtState(a|b, "inner", func() { fired++ })
	})
	g.SetState(a)
	g.SetState(b)
	g.SetState(b)
	if fired != 1 {
		t.Fatalf("inner fired %d times, want 1", fired)
	}
}

func TestGate_DuplicateRegistrationIsViolation(t *testing.T) {
	v, a, _, _, _ := newTestVocab()
	report := &invariant.Reporter{}
	g := New(v, report)

	fired := 0
	g.RunOnceAtState(a, "dup", func() { fired++ })
	g.RunOnceAtState(a, "dup", func() { fired++ })
	g.SetState(a)

	if fired != 1 {
		t.Fatalf("fired = %d, want duplicate dropped", fired)
	}
	if report.Count() != 1 {
		t.Fatalf("violations = %d, want 1", report.Count())
	}
}

func TestGate_DuplicateRegistrationPanicsWhenStrict(t *testing.T) {
	v, a, _, _, _ := newTestVocab()
	g := New(v, &invariant.Reporter{Strict: true})
	g.RunOnceAtState(a, "dup", func() {})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic in strict mode")
		}
	}()
	g.RunOnceAtState(a, "dup", func() {})
}

func TestGate_OnChange(t *testing.T) {
	v, a, b, _, _ := newTestVocab()
	g := New(v, nil)

	var seen []bool
	g.OnChange(a|b, func(on bool) { seen = append(seen, on) })

	g.SetState(a)
	g.SetState(b)
	g.SetState(a)
	g.ClearState(b)
	g.ClearState(b)

	if want := []bool{true, false}; !reflect.DeepEqual(seen, want) {
		t.Fatalf("changes = %v, want %v", seen, want)
	}
}

func TestVocabulary_Format(t *testing.T) {
	v, a, _, c, _ := newTestVocab()

	tests := []struct {
		name string
		set  Set
		want string
	}{
		{"empty", 0, "none"},
		{"single", a, "A"},
		{"pair", a | c, "A|C"},
		{"unknown bit", Set(1) << 10, "0x400"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := v.Format(tt.set); got != tt.want {
				t.Errorf("Format(%d) = %q, want %q", tt.set, got, tt.want)
			}
		})
	}
}
