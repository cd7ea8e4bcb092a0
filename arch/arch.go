// Package arch describes CGRA hardware as a netlist of elements and expands it
// into the modulo routing resource graph of any initiation interval.
package arch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sarchlab/cgrame/mrrg"
)

// ErrInvalid is wrapped by every malformed-architecture error.
var ErrInvalid = errors.New("invalid architecture")

// Wire connects an output port to an input port within the same cycle.
type Wire struct {
	From, To string
}

// Architecture is a netlist of elements.
type Architecture struct {
	Name string

	caps     Capabilities
	elements []Element
	byName   map[string]Element
	wires    []Wire
}

// New creates an empty architecture whose units execute the opcodes listed in
// caps.
func New(name string, caps Capabilities) *Architecture {
	return &Architecture{
		Name:   name,
		caps:   caps,
		byName: make(map[string]Element),
	}
}

// Capabilities returns the opcode table of the architecture.
func (a *Architecture) Capabilities() Capabilities {
	return a.caps
}

// Add appends an element.
func (a *Architecture) Add(e Element) error {
	name := e.ElementName()
	if name == "" || strings.Contains(name, "@") {
		return fmt.Errorf("%w: bad element name %q", ErrInvalid, name)
	}

	if _, dup := a.byName[name]; dup {
		return fmt.Errorf("%w: duplicated element %q", ErrInvalid, name)
	}

	a.elements = append(a.elements, e)
	a.byName[name] = e

	return nil
}

// Element finds an element by name.
func (a *Architecture) Element(name string) (Element, bool) {
	e, ok := a.byName[name]
	return e, ok
}

// Elements returns all elements in insertion order.
func (a *Architecture) Elements() []Element {
	return a.elements
}

// Connect wires the port from to the port to. Ports are named
// "<element>.<port>".
func (a *Architecture) Connect(from, to string) error {
	for _, p := range []string{from, to} {
		i := strings.LastIndex(p, ".")
		if i <= 0 {
			return fmt.Errorf("%w: bad port %q", ErrInvalid, p)
		}

		if _, ok := a.byName[p[:i]]; !ok {
			return fmt.Errorf("%w: port %q of unknown element", ErrInvalid, p)
		}
	}

	a.wires = append(a.wires, Wire{From: from, To: to})

	return nil
}

// Wires returns all connections in insertion order.
func (a *Architecture) Wires() []Wire {
	return a.wires
}

// ResourceGraph expands the architecture for one initiation interval.
func (a *Architecture) ResourceGraph(ii int) (*mrrg.Graph, error) {
	if ii < 1 {
		return nil, fmt.Errorf("%w: II %d is not positive", ErrInvalid, ii)
	}

	x := &expander{g: mrrg.New(ii), caps: a.caps}
	for _, e := range a.elements {
		e.expand(x)
	}

	for _, w := range a.wires {
		for t := 0; t < ii; t++ {
			from, ok := x.g.Lookup(w.From, t)
			if !ok {
				return nil, fmt.Errorf("%w: no port %s", ErrInvalid, w.From)
			}

			to, ok := x.g.Lookup(w.To, t)
			if !ok {
				return nil, fmt.Errorf("%w: no port %s", ErrInvalid, w.To)
			}

			x.g.Link(from, to)
		}
	}

	return x.g, nil
}

// Provider returns a memoizing resource-graph provider for the architecture.
func (a *Architecture) Provider() *mrrg.Cache {
	return mrrg.NewCache(a.ResourceGraph)
}
