package dfg_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/cgrame/dfg"
)

// ramp returns n values counting up from start.
func ramp(start int32, n int) []int32 {
	values := make([]int32, n)
	for i := range values {
		values[i] = start + int32(i)
	}

	return values
}

var _ = Describe("Interpreter", func() {
	It("should evaluate arithmetic per iteration", func() {
		g, err := dfg.Parse([]byte(`
name: axpy
ops:
  - {name: a, opcode: const, value: 3}
  - {name: x, opcode: input}
  - {name: y, opcode: input}
  - {name: ax, opcode: mul}
  - {name: sum, opcode: add}
  - {name: out, opcode: output}
edges:
  - {from: a, to: ax, operand: 0}
  - {from: x, to: ax, operand: 1}
  - {from: ax, to: sum, operand: 0}
  - {from: y, to: sum, operand: 1}
  - {from: sum, to: out, operand: 0}
`))
		Expect(err).NotTo(HaveOccurred())

		in, err := dfg.NewInterpreter(g)
		Expect(err).NotTo(HaveOccurred())
		Expect(in.Feed("x", ramp(1, 4)...)).To(Succeed())
		Expect(in.Feed("y", 10, 20, 30, 40)).To(Succeed())

		Expect(in.Run(4)).To(Succeed())
		Expect(in.Outputs("out")).To(Equal([]int32{13, 26, 39, 52}))
		Expect(in.Iterations()).To(Equal(4))
	})

	It("should carry values around a phi", func() {
		g := dfg.New("accumulate")
		zero := g.MustAddOp("zero", dfg.OpConst)
		x := g.MustAddOp("x", dfg.OpInput)
		acc := g.MustAddOp("acc", dfg.OpPhi)
		next := g.MustAddOp("next", dfg.OpAdd)
		out := g.MustAddOp("out", dfg.OpOutput)
		g.MustConnect(zero, acc, 0)
		g.MustConnect(next, acc, 1)
		g.MustConnect(acc, next, 0)
		g.MustConnect(x, next, 1)
		g.MustConnect(next, out, 0)

		in, err := dfg.NewInterpreter(g)
		Expect(err).NotTo(HaveOccurred())
		Expect(in.Feed("x", 1, 2, 3, 4)).To(Succeed())

		Expect(in.Run(4)).To(Succeed())
		Expect(in.Outputs("out")).To(Equal([]int32{1, 3, 6, 10}))
	})

	It("should load and store memory", func() {
		g := dfg.New("copy")
		src := g.MustAddOp("src", dfg.OpInput)
		dst := g.MustAddOp("dst", dfg.OpInput)
		ld := g.MustAddOp("ld", dfg.OpLoad)
		st := g.MustAddOp("st", dfg.OpStore)
		g.MustConnect(src, ld, 0)
		g.MustConnect(dst, st, 0)
		g.MustConnect(ld, st, 1)

		in, err := dfg.NewInterpreter(g)
		Expect(err).NotTo(HaveOccurred())
		in.Poke(0, 7)
		in.Poke(1, 8)
		Expect(in.Feed("src", 0, 1)).To(Succeed())
		Expect(in.Feed("dst", 100, 101)).To(Succeed())

		Expect(in.Run(2)).To(Succeed())
		Expect(in.Peek(100)).To(Equal(int32(7)))
		Expect(in.Peek(101)).To(Equal(int32(8)))
		Expect(in.Peek(102)).To(Equal(int32(0)))
	})

	It("should shift with 32-bit semantics", func() {
		g := dfg.New("shift")
		x := g.MustAddOp("x", dfg.OpInput)
		k := g.MustAddOp("k", dfg.OpConst)
		shr := g.MustAddOp("shr", dfg.OpShr)
		ashr := g.MustAddOp("ashr", dfg.OpAShr)
		o1 := g.MustAddOp("o1", dfg.OpOutput)
		o2 := g.MustAddOp("o2", dfg.OpOutput)
		g.Op(k).Const = 28
		g.MustConnect(x, shr, 0)
		g.MustConnect(k, shr, 1)
		g.MustConnect(x, ashr, 0)
		g.MustConnect(k, ashr, 1)
		g.MustConnect(shr, o1, 0)
		g.MustConnect(ashr, o2, 0)

		in, err := dfg.NewInterpreter(g)
		Expect(err).NotTo(HaveOccurred())
		Expect(in.Feed("x", -16)).To(Succeed())

		Expect(in.Run(1)).To(Succeed())
		Expect(in.Outputs("o1")).To(Equal([]int32{15}))
		Expect(in.Outputs("o2")).To(Equal([]int32{-1}))
	})

	It("should fail when an input runs dry", func() {
		g := dfg.New("pass")
		x := g.MustAddOp("x", dfg.OpInput)
		out := g.MustAddOp("out", dfg.OpOutput)
		g.MustConnect(x, out, 0)

		in, err := dfg.NewInterpreter(g)
		Expect(err).NotTo(HaveOccurred())
		Expect(in.Feed("x", 5)).To(Succeed())

		err = in.Run(2)
		Expect(errors.Is(err, dfg.ErrExhausted)).To(BeTrue())
		Expect(in.Outputs("out")).To(Equal([]int32{5}))
	})

	It("should fail on a division by zero", func() {
		g := dfg.New("div")
		x := g.MustAddOp("x", dfg.OpInput)
		d := g.MustAddOp("d", dfg.OpDiv)
		g.MustConnect(x, d, 0)
		g.MustConnect(x, d, 1)

		in, err := dfg.NewInterpreter(g)
		Expect(err).NotTo(HaveOccurred())
		Expect(in.Feed("x", 0)).To(Succeed())

		Expect(in.Run(1)).To(MatchError(ContainSubstring("division by zero")))
	})

	It("should only feed input ops", func() {
		g := dfg.New("k")
		g.MustAddOp("k", dfg.OpConst)

		in, err := dfg.NewInterpreter(g)
		Expect(err).NotTo(HaveOccurred())

		Expect(errors.Is(in.Feed("k", 1), dfg.ErrInvalid)).To(BeTrue())
		Expect(errors.Is(in.Feed("missing", 1), dfg.ErrInvalid)).To(BeTrue())
	})
})
