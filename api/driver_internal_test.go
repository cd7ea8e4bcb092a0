package api

import (
	"context"
	"errors"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/cgrame/anneal"
	"github.com/sarchlab/cgrame/arch"
	"github.com/sarchlab/cgrame/config"
	"github.com/sarchlab/cgrame/dfg"
	"github.com/sarchlab/cgrame/ilp"
	"github.com/sarchlab/cgrame/mapping"
	"github.com/sarchlab/cgrame/mrrg"
)

type hookableMapper struct {
	*MockMapper
	hooks []sim.Hook
}

func (m *hookableMapper) AcceptHook(hook sim.Hook) {
	m.hooks = append(m.hooks, hook)
}

func withStatus(status mapping.Status) func(context.Context, *mrrg.Graph, *dfg.Graph) (*mapping.Mapping, error) {
	return func(_ context.Context, g *mrrg.Graph, d *dfg.Graph) (*mapping.Mapping, error) {
		m := mapping.New(g, d)
		m.Status = status

		return m, nil
	}
}

var _ = Describe("Driver", func() {
	var (
		mockCtrl     *gomock.Controller
		mockProvider *MockProvider
		mockFactory  *MockMapperFactory
		mockMapper   *MockMapper
		driver       *driverImpl
		ctx          context.Context
		empty        *dfg.Graph
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		mockProvider = NewMockProvider(mockCtrl)
		mockFactory = NewMockMapperFactory(mockCtrl)
		mockMapper = NewMockMapper(mockCtrl)
		ctx = context.Background()
		empty = dfg.New("empty")

		cfg := config.Default()
		cfg.II = 1
		cfg.MaxII = 3
		cfg.Attempts = 2

		driver = &driverImpl{
			HookableBase:  sim.NewHookableBase(),
			name:          "driver",
			provider:      mockProvider,
			cfg:           cfg,
			mapperFactory: mockFactory,
		}

		mockProvider.EXPECT().
			ResourceGraph(gomock.Any()).
			DoAndReturn(func(ii int) (*mrrg.Graph, error) {
				return mrrg.New(ii), nil
			}).
			AnyTimes()
		mockFactory.EXPECT().make(gomock.Any()).Return(mockMapper).AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should retry with new attempts and then raise the II", func() {
		gomock.InOrder(
			mockMapper.EXPECT().Map(ctx, gomock.Any(), empty).
				DoAndReturn(withStatus(mapping.StatusUnmappedCold)).
				Times(2),
			mockMapper.EXPECT().Map(ctx, gomock.Any(), empty).
				DoAndReturn(withStatus(mapping.StatusMapped)),
		)

		res, err := driver.Map(ctx, empty)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.II).To(Equal(2))
		Expect(res.Attempts).To(Equal(3))
		Expect(res.Mapping.Status).To(Equal(mapping.StatusMapped))
		Expect(res.Issues).To(BeEmpty())
	})

	It("should move past an infeasible II", func() {
		gomock.InOrder(
			mockMapper.EXPECT().Map(ctx, gomock.Any(), empty).
				DoAndReturn(withStatus(mapping.StatusInfeasible)).
				Times(2),
			mockMapper.EXPECT().Map(ctx, gomock.Any(), empty).
				DoAndReturn(withStatus(mapping.StatusMapped)),
		)

		res, err := driver.Map(ctx, empty)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.II).To(Equal(2))
	})

	It("should report an exhausted sweep through the status", func() {
		mockMapper.EXPECT().Map(ctx, gomock.Any(), empty).
			DoAndReturn(withStatus(mapping.StatusUnmappedCold)).
			Times(6)

		res, err := driver.Map(ctx, empty)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.II).To(Equal(3))
		Expect(res.Attempts).To(Equal(6))
		Expect(res.Mapping.IsMapped()).To(BeFalse())
	})

	It("should retry an annealing timeout", func() {
		gomock.InOrder(
			mockMapper.EXPECT().Map(ctx, gomock.Any(), empty).
				DoAndReturn(withStatus(mapping.StatusTimeout)),
			mockMapper.EXPECT().Map(ctx, gomock.Any(), empty).
				DoAndReturn(withStatus(mapping.StatusMapped)),
		)

		res, err := driver.Map(ctx, empty)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.II).To(Equal(1))
		Expect(res.Attempts).To(Equal(2))
	})

	It("should stop at a timeout of the exact backend", func() {
		driver.cfg.Mapper = config.MapperILP

		mockMapper.EXPECT().Map(ctx, gomock.Any(), empty).
			DoAndReturn(withStatus(mapping.StatusTimeout))

		res, err := driver.Map(ctx, empty)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Attempts).To(Equal(1))
		Expect(res.Mapping.Status).To(Equal(mapping.StatusTimeout))
	})

	It("should abort on a structural error", func() {
		mockMapper.EXPECT().Map(ctx, gomock.Any(), empty).
			DoAndReturn(func(_ context.Context, g *mrrg.Graph, d *dfg.Graph) (*mapping.Mapping, error) {
				m := mapping.New(g, d)
				m.Status = mapping.StatusInfeasible

				return m, &mapping.StructuralError{Name: "mul", Reason: "no alu"}
			})

		res, err := driver.Map(ctx, empty)

		Expect(errors.Is(err, mapping.ErrStructural)).To(BeTrue())
		Expect(res.Attempts).To(Equal(1))
	})

	It("should stop when interrupted", func() {
		mockMapper.EXPECT().Map(ctx, gomock.Any(), empty).
			DoAndReturn(func(_ context.Context, g *mrrg.Graph, d *dfg.Graph) (*mapping.Mapping, error) {
				m := mapping.New(g, d)
				m.Status = mapping.StatusInterrupted

				return m, context.Canceled
			})

		res, err := driver.Map(ctx, empty)

		Expect(err).To(MatchError(context.Canceled))
		Expect(res.Mapping.Status).To(Equal(mapping.StatusInterrupted))
	})

	It("should reject a mapping that does not pass the checks", func() {
		d := dfg.New("one")
		d.MustAddOp("a", dfg.OpInput)

		mockMapper.EXPECT().Map(ctx, gomock.Any(), d).
			DoAndReturn(withStatus(mapping.StatusMapped))

		res, err := driver.Map(ctx, d)

		Expect(errors.Is(err, ErrIllegal)).To(BeTrue())
		Expect(res.Issues).NotTo(BeEmpty())
		Expect(res.Mapping.Status).To(Equal(mapping.StatusInternalError))
	})

	It("should refuse an invalid dataflow graph", func() {
		d := dfg.New("loop")
		a := d.MustAddOp("a", dfg.OpAdd)
		b := d.MustAddOp("b", dfg.OpAdd)
		d.MustConnect(a, b, 0)
		d.MustConnect(b, a, 0)

		_, err := driver.Map(ctx, d)

		Expect(err).To(HaveOccurred())
	})

	It("should run the exact backend once per II", func() {
		driver.cfg.Mapper = config.MapperILP

		mockMapper.EXPECT().Map(ctx, gomock.Any(), empty).
			DoAndReturn(withStatus(mapping.StatusInfeasible)).
			Times(3)

		res, err := driver.Map(ctx, empty)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Attempts).To(Equal(3))
	})

	It("should forward hooks to mappers", func() {
		hook := NewMockHook(mockCtrl)
		driver.AcceptHook(hook)

		mapper := &hookableMapper{MockMapper: NewMockMapper(mockCtrl)}
		driver.mapperFactory = &fixedFactory{mapper: mapper}

		mapper.EXPECT().Map(ctx, gomock.Any(), empty).
			DoAndReturn(withStatus(mapping.StatusMapped))
		hook.EXPECT().
			Func(gomock.Any()).
			Do(func(ctx sim.HookCtx) {
				Expect(ctx.Pos).To(Equal(HookPosAttempt))
				info := ctx.Detail.(AttemptInfo)
				Expect(info.II).To(Equal(1))
				Expect(info.Status).To(Equal(mapping.StatusMapped))
			})

		_, err := driver.Map(ctx, empty)

		Expect(err).NotTo(HaveOccurred())
		Expect(mapper.hooks).To(ConsistOf(hook))
	})
})

type fixedFactory struct {
	mapper mapping.Mapper
}

func (f *fixedFactory) make(int) mapping.Mapper {
	return f.mapper
}

var _ = Describe("DriverBuilder", func() {
	It("should need a provider", func() {
		Expect(func() { DriverBuilder{}.Build("driver") }).To(Panic())
	})

	It("should reject an invalid configuration", func() {
		cfg := config.Default()
		cfg.MaxII = 0

		a := arch.MakeMeshBuilder().Build("mesh")
		b := DriverBuilder{}.WithProvider(a.Provider()).WithConfig(cfg)

		Expect(func() { b.Build("driver") }).To(Panic())
	})

	It("should pick the backend from the configuration", func() {
		cfg := config.Default()
		Expect(defaultMapperFactory{cfg: cfg}.make(0)).To(BeAssignableToTypeOf(&anneal.Annealer{}))

		cfg.Mapper = config.MapperILP
		Expect(defaultMapperFactory{cfg: cfg}.make(0)).To(BeAssignableToTypeOf(&ilp.Mapper{}))
	})

	It("should map a kernel end to end", func() {
		a := arch.MakeMeshBuilder().WithWidth(1).WithHeight(1).Build("mesh")

		d := dfg.New("add-output")
		add := d.MustAddOp("add", dfg.OpAdd)
		out := d.MustAddOp("out", dfg.OpOutput)
		d.MustConnect(add, out, 0)

		driver := DriverBuilder{}.
			WithProvider(a.Provider()).
			Build("driver")
		driver.AcceptHook(TraceHook{})

		res, err := driver.Map(context.Background(), d)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.II).To(Equal(1))
		Expect(res.Mapping.Status).To(Equal(mapping.StatusMapped))
		Expect(res.Issues).To(BeEmpty())
	})

	It("should map the same kernel with both backends", func() {
		a := arch.MakeMeshBuilder().WithWidth(1).WithHeight(2).Build("mesh")

		d := dfg.New("scale")
		in := d.MustAddOp("a", dfg.OpInput)
		k := d.MustAddOp("k", dfg.OpConst)
		mul := d.MustAddOp("mul", dfg.OpMul)
		out := d.MustAddOp("out", dfg.OpOutput)
		d.MustConnect(in, mul, 0)
		d.MustConnect(k, mul, 1)
		d.MustConnect(mul, out, 0)

		for _, backend := range []string{config.MapperAnneal, config.MapperILP} {
			cfg := config.Default()
			cfg.Mapper = backend
			cfg.Attempts = 3

			driver := DriverBuilder{}.
				WithProvider(a.Provider()).
				WithConfig(cfg).
				Build("driver")

			res, err := driver.Map(context.Background(), d)

			Expect(err).NotTo(HaveOccurred(), backend)
			Expect(res.Mapping.Status).To(Equal(mapping.StatusMapped), backend)
			Expect(mapping.Verify(res.Mapping)).To(BeEmpty(), backend)
		}
	})
})

var _ = Describe("TraceHook", func() {
	It("should accept every hook position", func() {
		h := TraceHook{}

		Expect(func() {
			h.Func(sim.HookCtx{Pos: anneal.HookPosBatchEnd, Detail: anneal.BatchInfo{}})
			h.Func(sim.HookCtx{Pos: ilp.HookPosIncumbent, Detail: ilp.IncumbentInfo{}})
			h.Func(sim.HookCtx{Pos: HookPosAttempt, Detail: AttemptInfo{Status: mapping.StatusMapped}})
			h.Func(sim.HookCtx{Pos: anneal.HookPosDone})
		}).NotTo(Panic())
	})
})
