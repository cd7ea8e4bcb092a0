package arch

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sarchlab/cgrame/dfg"
	"github.com/sarchlab/cgrame/mapping"
	"github.com/sarchlab/cgrame/mrrg"
)

// Setting is the value of one configuration field of an element in one cycle.
type Setting struct {
	Element string
	Cycle   int
	Field   string
	Bits    int
	Value   int64
	Used    bool
	Note    string
}

type configurator struct {
	m     *mapping.Mapping
	caps  Capabilities
	opOn  map[mrrg.NodeID]dfg.OpID
	valOn map[mrrg.NodeID]dfg.ValID
}

func newConfigurator(caps Capabilities, m *mapping.Mapping) *configurator {
	c := &configurator{
		m:     m,
		caps:  caps,
		opOn:  make(map[mrrg.NodeID]dfg.OpID),
		valOn: make(map[mrrg.NodeID]dfg.ValID),
	}

	for _, op := range m.DFG.Ops() {
		if n, ok := m.Placement(op.ID); ok {
			c.opOn[n] = op.ID
		}
	}

	for _, v := range m.DFG.Vals() {
		for _, n := range m.Route(v.ID) {
			c.valOn[n] = v.ID
		}
	}

	return c
}

func (c *configurator) val(name string, cycle int) (*dfg.Val, bool) {
	id, ok := c.m.Graph.Lookup(name, cycle)
	if !ok {
		return nil, false
	}

	v, ok := c.valOn[id]
	if !ok {
		return nil, false
	}

	return c.m.DFG.Val(v), true
}

func (c *configurator) op(name string, cycle int) (*dfg.Op, bool) {
	id, ok := c.m.Graph.Lookup(name, cycle)
	if !ok {
		return nil, false
	}

	op, ok := c.opOn[id]
	if !ok {
		return nil, false
	}

	return c.m.DFG.Op(op), true
}

// width returns the number of bits needed to tell n choices apart.
func width(n int) int {
	if n <= 1 {
		return 0
	}

	return bits.Len(uint(n - 1))
}

// opcodeSetting encodes the op on a function element as 1 + its index in
// codes, 0 meaning idle.
func (c *configurator) opcodeSetting(name string, cycle int, field string, codes []string) Setting {
	s := Setting{Element: name, Cycle: cycle, Field: field, Bits: width(len(codes) + 1)}

	op, ok := c.op(name, cycle)
	if !ok {
		return s
	}

	for i, code := range codes {
		if code == string(op.Opcode) {
			s.Value = int64(i + 1)
		}
	}

	s.Used = true
	s.Note = op.Name

	return s
}

func (f FuncUnit) settings(c *configurator, cycle int) []Setting {
	return []Setting{c.opcodeSetting(f.Name, cycle, "opcode", c.caps.Ops(f.Class))}
}

func (m MemUnit) settings(c *configurator, cycle int) []Setting {
	return []Setting{c.opcodeSetting(m.Name, cycle, "mode", c.caps.Ops(ClassMemory))}
}

func (i IOUnit) settings(c *configurator, cycle int) []Setting {
	return []Setting{c.opcodeSetting(i.Name, cycle, "direction", c.caps.Ops(ClassIO))}
}

func (k ConstUnit) settings(c *configurator, cycle int) []Setting {
	s := Setting{Element: k.Name, Cycle: cycle, Field: "value", Bits: 32}

	if op, ok := c.op(k.Name, cycle); ok {
		s.Value = op.Const
		s.Used = true
		s.Note = op.Name
	}

	return []Setting{s}
}

func (m Mux) settings(c *configurator, cycle int) []Setting {
	s := Setting{Element: m.Name, Cycle: cycle, Field: "select", Bits: width(m.Inputs)}

	for k := 0; k < m.Inputs; k++ {
		if v, ok := c.val(Port(m.Name, InPort(k)), cycle); ok {
			s.Value = int64(k)
			s.Used = true
			s.Note = v.Name

			break
		}
	}

	return []Setting{s}
}

func (tr Tristate) settings(c *configurator, cycle int) []Setting {
	s := Setting{Element: tr.Name, Cycle: cycle, Field: "enable", Bits: 1}

	if v, ok := c.val(Port(tr.Name, "in"), cycle); ok {
		s.Value = 1
		s.Used = true
		s.Note = v.Name
	}

	return []Setting{s}
}

func (r RegisterFile) settings(c *configurator, cycle int) []Setting {
	var out []Setting

	// A write port addresses the register the same value enters this cycle.
	for k := 0; k < r.WritePorts; k++ {
		out = append(out, r.addressSetting(c, r.writePort(k), cycle, cycle))
	}

	// A read port addresses the register the value left in the previous cycle.
	for k := 0; k < r.ReadPorts; k++ {
		out = append(out, r.addressSetting(c, r.readPort(k), cycle, cycle-1))
	}

	return out
}

func (r RegisterFile) addressSetting(c *configurator, port string, cycle, regCycle int) Setting {
	s := Setting{
		Element: r.Name,
		Cycle:   cycle,
		Field:   port[len(r.Name)+1:],
		Bits:    width(r.Registers),
	}

	v, ok := c.val(port, cycle)
	if !ok {
		return s
	}

	for i := 0; i < r.Registers; i++ {
		if rv, ok := c.val(r.register(i), regCycle); ok && rv.ID == v.ID {
			s.Value = int64(i)
			s.Used = true
			s.Note = v.Name

			break
		}
	}

	return s
}

// ConfigBits derives the configuration of every element in every cycle from a
// mapping onto a resource graph of this architecture.
func (a *Architecture) ConfigBits(m *mapping.Mapping) ([]Setting, error) {
	if !m.IsMapped() {
		return nil, fmt.Errorf("cannot configure %s from a mapping with status %s", a.Name, m.Status)
	}

	c := newConfigurator(a.caps, m)

	var settings []Setting
	for t := 0; t < m.Graph.II; t++ {
		for _, e := range a.elements {
			for _, s := range e.settings(c, t) {
				if s.Bits > 0 {
					settings = append(settings, s)
				}
			}
		}
	}

	return settings, nil
}

// WriteConfigTable prints the used settings and the total bit count.
func WriteConfigTable(w io.Writer, settings []Setting) {
	t := table.NewWriter()
	t.SetTitle("Configuration")
	t.AppendHeader(table.Row{"Cycle", "Element", "Field", "Bits", "Value", "Carries"})

	total := 0
	for _, s := range settings {
		total += s.Bits
		if !s.Used {
			continue
		}

		t.AppendRow(table.Row{s.Cycle, s.Element, s.Field, s.Bits, s.Value, s.Note})
	}

	t.AppendFooter(table.Row{"", "", "Total", total, "", ""})

	fmt.Fprintln(w, t.Render())
}
