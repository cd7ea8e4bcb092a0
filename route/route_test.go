package route_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cgrame/dfg"
	"github.com/sarchlab/cgrame/mapping"
	"github.com/sarchlab/cgrame/mrrg"
	"github.com/sarchlab/cgrame/route"
)

var _ = Describe("Router", func() {
	var (
		g   *mrrg.Graph
		d   *dfg.Graph
		m   *mapping.Mapping
		occ *mapping.Occupancy
		r   *route.Router

		src, out, short, long1, long2 mrrg.NodeID
		dst1, dst2, in1, in2          mrrg.NodeID
		regIn, regOut                 mrrg.NodeID
	)

	// src.out fans out to a one-hop and a two-hop path into dst1.in0, and
	// through a register into dst2.in0 one cycle later.
	BeforeEach(func() {
		g = mrrg.New(2)
		src = g.AddFunction("src", "src", 0, 0, []string{"input"})
		out = g.AddRouting("src.out", "src", 0, 0)
		short = g.AddRouting("short", "short", 0, 0)
		long1 = g.AddRouting("long1", "long", 0, 0)
		long2 = g.AddRouting("long2", "long", 0, 0)
		in1 = g.AddRouting("dst1.in0", "dst1", 0, 0)
		dst1 = g.AddFunction("dst1", "dst1", 0, 0, []string{"output"})
		regIn = g.AddRouting("reg.in", "reg", 0, 1)
		regOut = g.AddRouting("reg.out", "reg", 1, 0)
		in2 = g.AddRouting("dst2.in0", "dst2", 1, 0)
		dst2 = g.AddFunction("dst2", "dst2", 1, 0, []string{"output"})

		g.Link(src, out)
		g.Link(out, short)
		g.Link(out, long1)
		g.Link(long1, long2)
		g.Link(short, in1)
		g.Link(long2, in1)
		g.AddOperand(dst1, in1)
		g.Link(out, regIn)
		g.Link(regIn, regOut)
		g.Link(regOut, in2)
		g.AddOperand(dst2, in2)
		Expect(g.Verify()).To(Succeed())

		d = dfg.New("fanout")
	})

	build := func() {
		m = mapping.New(g, d)
		occ = mapping.NewOccupancy(m, 100)
		r = route.New(occ)
	}

	It("should take the cheapest path", func() {
		a := d.MustAddOp("a", dfg.OpInput)
		o := d.MustAddOp("o", dfg.OpOutput)
		v := d.MustConnect(a, o, 0)
		build()
		occ.Place(a, src)
		occ.Place(o, dst1)

		Expect(r.RouteVal(v)).To(BeTrue())
		Expect(m.Route(v)).To(Equal([]mrrg.NodeID{out, short, in1}))
		Expect(m.SinkLatency(v, 0)).To(Equal(0))
		Expect(mapping.Verify(m)).To(BeEmpty())
	})

	It("should avoid congested nodes", func() {
		a := d.MustAddOp("a", dfg.OpInput)
		o := d.MustAddOp("o", dfg.OpOutput)
		b := d.MustAddOp("b", dfg.OpInput)
		p := d.MustAddOp("p", dfg.OpOutput)
		v := d.MustConnect(a, o, 0)
		x := d.MustConnect(b, p, 0)
		build()
		occ.Place(a, src)
		occ.Place(o, dst1)
		occ.Commit(x, []mrrg.NodeID{short}, []int{0})

		Expect(r.RouteVal(v)).To(BeTrue())
		Expect(m.Route(v)).To(Equal([]mrrg.NodeID{out, long1, long2, in1}))
		Expect(occ.Overused()).To(BeFalse())
	})

	It("should share the common part of a multi-sink route", func() {
		a := d.MustAddOp("a", dfg.OpInput)
		o1 := d.MustAddOp("o1", dfg.OpOutput)
		o2 := d.MustAddOp("o2", dfg.OpOutput)
		v := d.MustConnect(a, o1, 0)
		d.MustConnect(a, o2, 0)
		build()
		occ.Place(a, src)
		occ.Place(o1, dst1)
		occ.Place(o2, dst2)

		Expect(r.RouteVal(v)).To(BeTrue())
		Expect(m.Route(v)).To(ConsistOf(out, short, in1, regIn, regOut, in2))
		Expect(m.SinkLatency(v, 0)).To(Equal(0))
		Expect(m.SinkLatency(v, 1)).To(Equal(1))
		Expect(occ.Use(out)).To(Equal(1))
		Expect(mapping.Verify(m)).To(BeEmpty())
	})

	It("should fail without committing when a sink is unreachable", func() {
		a := d.MustAddOp("a", dfg.OpInput)
		o := d.MustAddOp("o", dfg.OpOutput)
		v := d.MustConnect(a, o, 0)
		build()
		occ.Place(a, dst1)
		occ.Place(o, dst2)
		before := occ.Cost()

		Expect(r.RouteVal(v)).To(BeFalse())
		Expect(m.IsRouted(v)).To(BeFalse())
		Expect(occ.Cost()).To(Equal(before))
	})

	It("should fail when a consumer is not placed", func() {
		a := d.MustAddOp("a", dfg.OpInput)
		o := d.MustAddOp("o", dfg.OpOutput)
		v := d.MustConnect(a, o, 0)
		build()
		occ.Place(a, src)

		Expect(r.RouteVal(v)).To(BeFalse())
	})

	It("should re-route a ripped-up value at no higher cost", func() {
		a := d.MustAddOp("a", dfg.OpInput)
		o1 := d.MustAddOp("o1", dfg.OpOutput)
		o2 := d.MustAddOp("o2", dfg.OpOutput)
		v := d.MustConnect(a, o1, 0)
		d.MustConnect(a, o2, 0)
		build()
		occ.Place(a, src)
		occ.Place(o1, dst1)
		occ.Place(o2, dst2)

		Expect(r.RouteVal(v)).To(BeTrue())
		original := occ.ValCost(v)

		occ.RipUp(v)
		Expect(r.RouteVal(v)).To(BeTrue())
		Expect(occ.ValCost(v)).To(BeNumerically("<=", original))
	})
})
