package dfg_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cgrame/dfg"
)

var _ = Describe("Graph", func() {
	var g *dfg.Graph

	BeforeEach(func() {
		g = dfg.New("test")
	})

	It("should create one value per producer", func() {
		a := g.MustAddOp("a", dfg.OpInput)
		b := g.MustAddOp("b", dfg.OpInput)
		add := g.MustAddOp("add", dfg.OpAdd)
		mul := g.MustAddOp("mul", dfg.OpMul)

		va := g.MustConnect(a, add, 0)
		g.MustConnect(b, add, 1)
		va2 := g.MustConnect(a, mul, 0)
		g.MustConnect(add, mul, 1)

		Expect(va).To(Equal(va2))
		Expect(g.NumVals()).To(Equal(3))
		Expect(g.Val(va).Producer).To(Equal(a))
		Expect(g.Val(va).Uses).To(Equal([]dfg.Use{
			{Op: add, Operand: 0},
			{Op: mul, Operand: 0},
		}))
		Expect(g.Op(mul).Inputs).To(Equal([]dfg.ValID{va, g.Op(add).Output}))
		Expect(g.Op(mul).Output).To(Equal(dfg.NoVal))
		Expect(g.Validate()).To(Succeed())
	})

	It("should reject duplicated names", func() {
		g.MustAddOp("a", dfg.OpInput)
		_, err := g.AddOp("a", dfg.OpAdd)
		Expect(err).To(MatchError(dfg.ErrInvalid))
	})

	It("should reject unknown opcodes", func() {
		_, err := g.AddOp("x", dfg.Opcode("fma"))
		Expect(err).To(MatchError(dfg.ErrInvalid))
	})

	It("should reject operands beyond the arity", func() {
		a := g.MustAddOp("a", dfg.OpInput)
		out := g.MustAddOp("out", dfg.OpOutput)
		_, err := g.Connect(a, out, 1)
		Expect(err).To(MatchError(dfg.ErrInvalid))
	})

	It("should reject connecting an operand twice", func() {
		a := g.MustAddOp("a", dfg.OpInput)
		out := g.MustAddOp("out", dfg.OpOutput)
		g.MustConnect(a, out, 0)
		_, err := g.Connect(a, out, 0)
		Expect(err).To(MatchError(dfg.ErrInvalid))
	})

	It("should reject values from stores", func() {
		st := g.MustAddOp("st", dfg.OpStore)
		out := g.MustAddOp("out", dfg.OpOutput)
		_, err := g.Connect(st, out, 0)
		Expect(err).To(MatchError(dfg.ErrInvalid))
	})

	It("should reject operand gaps", func() {
		a := g.MustAddOp("a", dfg.OpInput)
		add := g.MustAddOp("add", dfg.OpAdd)
		g.MustConnect(a, add, 1)
		Expect(g.Validate()).To(MatchError(dfg.ErrInvalid))
	})

	It("should accept loops through a phi", func() {
		init := g.MustAddOp("init", dfg.OpConst)
		phi := g.MustAddOp("phi", dfg.OpPhi)
		inc := g.MustAddOp("inc", dfg.OpAdd)
		one := g.MustAddOp("one", dfg.OpConst)
		g.MustConnect(init, phi, 0)
		g.MustConnect(inc, phi, 1)
		g.MustConnect(phi, inc, 0)
		g.MustConnect(one, inc, 1)

		Expect(g.Validate()).To(Succeed())

		order, err := g.TopologicalOrder()
		Expect(err).NotTo(HaveOccurred())
		Expect(order).To(HaveLen(4))
		Expect(indexOf(order, phi)).To(BeNumerically("<", indexOf(order, inc)))
	})

	It("should reject loops without a phi", func() {
		a := g.MustAddOp("a", dfg.OpAdd)
		b := g.MustAddOp("b", dfg.OpAdd)
		g.MustConnect(a, b, 0)
		g.MustConnect(b, a, 0)

		Expect(g.Validate()).To(MatchError(dfg.ErrInvalid))
	})
})

var _ = Describe("Parse", func() {
	It("should build a graph from YAML", func() {
		g, err := dfg.Parse([]byte(`
name: mac
ops:
  - {name: a, opcode: input}
  - {name: k, opcode: const, value: 3}
  - {name: m, opcode: mul}
  - {name: o, opcode: output}
edges:
  - {from: a, to: m, operand: 0}
  - {from: k, to: m, operand: 1}
  - {from: m, to: o}
`))
		Expect(err).NotTo(HaveOccurred())
		Expect(g.Name).To(Equal("mac"))
		Expect(g.NumOps()).To(Equal(4))
		Expect(g.NumVals()).To(Equal(3))

		k, ok := g.OpByName("k")
		Expect(ok).To(BeTrue())
		Expect(g.Op(k).Const).To(Equal(int64(3)))
	})

	It("should reject unknown fields", func() {
		_, err := dfg.Parse([]byte("name: x\nnodes: []\n"))
		Expect(err).To(MatchError(dfg.ErrInvalid))
	})

	It("should reject edges to unknown ops", func() {
		_, err := dfg.Parse([]byte(`
ops:
  - {name: a, opcode: input}
edges:
  - {from: a, to: nowhere}
`))
		Expect(err).To(MatchError(dfg.ErrInvalid))
	})

	It("should reject unknown opcodes", func() {
		_, err := dfg.Parse([]byte(`
ops:
  - {name: a, opcode: teleport}
`))
		Expect(err).To(MatchError(dfg.ErrInvalid))
	})
})

func indexOf(order []dfg.OpID, id dfg.OpID) int {
	for i, x := range order {
		if x == id {
			return i
		}
	}

	return -1
}
