// Package gate fires callbacks once a set of independent, asynchronously
// arriving conditions has all been met.
//
// A Gate tracks a bitmask of satisfied flags. Callbacks are registered against
// a required mask and fire exactly once, the first time the accumulated state
// contains every bit of that mask. Setting state from inside a callback is
// processed to a fixpoint before the outermost SetState returns.
//
// A Gate is not safe for concurrent use; it belongs to one looper.
package gate

import (
	"fmt"
	"strings"

	"github.com/1broseidon/quickstep/internal/invariant"
)

// Set is a set of flags from one Vocabulary.
type Set uint64

// Has reports whether s contains every flag in other.
func (s Set) Has(other Set) bool {
	return s&other == other
}

// Vocabulary names the flags a Gate understands.
type Vocabulary struct {
	name  string
	names []string
}

// NewVocabulary creates an empty vocabulary. name shows up in logs.
func NewVocabulary(name string) *Vocabulary {
	return &Vocabulary{name: name}
}

// Define allocates the next flag.
func (v *Vocabulary) Define(name string) Set {
	if len(v.names) >= 64 {
		panic(fmt.Sprintf("gate: vocabulary %q is full", v.name))
	}
	v.names = append(v.names, name)
	return Set(1) << (len(v.names) - 1)
}

// Name returns the vocabulary name.
func (v *Vocabulary) Name() string {
	return v.name
}

// Format renders s as "A|B|C".
func (v *Vocabulary) Format(s Set) string {
	if s == 0 {
		return "none"
	}
	var parts []string
	for i, n := range v.names {
		if s&(Set(1)<<i) != 0 {
			parts = append(parts, n)
		}
	}
	if rest := s &^ (Set(1)<<len(v.names) - 1); rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%x", uint64(rest)))
	}
	return strings.Join(parts, "|")
}

type registration struct {
	mask  Set
	name  string
	fn    func()
	fired bool
}

type changeListener struct {
	mask Set
	fn   func(bool)
}

// Gate is the multi-precondition callback dispatcher.
type Gate struct {
	vocab     *Vocabulary
	state     Set
	regs      []*registration
	listeners []changeListener
	report    *invariant.Reporter
}

// New creates a gate over vocab. report may be nil.
func New(vocab *Vocabulary, report *invariant.Reporter) *Gate {
	return &Gate{vocab: vocab, report: report}
}

// State returns the accumulated flags.
func (g *Gate) State() Set {
	return g.state
}

// HasStates reports whether every flag in bits is set.
func (g *Gate) HasStates(bits Set) bool {
	return g.state.Has(bits)
}

// Describe renders the current state with flag names.
func (g *Gate) Describe() string {
	return g.vocab.Format(g.state)
}

// Vocabulary returns the flag names this gate uses.
func (g *Gate) Vocabulary() *Vocabulary {
	return g.vocab
}

// SetState adds bits and fires every registration that becomes satisfied.
func (g *Gate) SetState(bits Set) {
	old := g.state
	g.state |= bits
	if g.state == old {
		return
	}
	g.notifyChange(old)
	g.drain()
}

// ClearState removes bits. Fired registrations stay fired.
func (g *Gate) ClearState(bits Set) {
	old := g.state
	g.state &^= bits
	if g.state != old {
		g.notifyChange(old)
	}
}

// RunOnceAtState registers fn to run once when mask is satisfied, immediately
// if it already is. name identifies the registration; registering the same
// mask and name twice is a programming error and the duplicate is dropped.
func (g *Gate) RunOnceAtState(mask Set, name string, fn func()) {
	for _, r := range g.regs {
		if r.mask == mask && r.name == name {
			g.report.Violation("duplicate gate registration",
				"vocabulary", g.vocab.name,
				"mask", g.vocab.Format(mask),
				"name", name)
			return
		}
	}
	g.regs = append(g.regs, &registration{mask: mask, name: name, fn: fn})
	if g.state.Has(mask) {
		g.drain()
	}
}

// OnChange calls fn whenever "all bits of mask are set" flips.
func (g *Gate) OnChange(mask Set, fn func(bool)) {
	g.listeners = append(g.listeners, changeListener{mask: mask, fn: fn})
}

// drain fires satisfied registrations in registration order until no more
// fire. Registrations are marked before their callback runs so nested
// SetState calls never fire the same one twice.
func (g *Gate) drain() {
	for {
		progressed := false
		regs := g.regs
		for _, r := range regs {
			if r.fired || !g.state.Has(r.mask) {
				continue
			}
			r.fired = true
			progressed = true
			r.fn()
		}
		if !progressed {
			return
		}
	}
}

func (g *Gate) notifyChange(old Set) {
	if len(g.listeners) == 0 {
		return
	}
	listeners := append([]changeListener(nil), g.listeners...)
	for _, l := range listeners {
		was, is := old.Has(l.mask), g.state.Has(l.mask)
		if was != is {
			l.fn(is)
		}
	}
}
