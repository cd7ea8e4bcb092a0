package arch

import "fmt"

// IOPlacement tells which tiles of a mesh get an I/O unit.
type IOPlacement string

const (
	IONone      IOPlacement = "none"
	IOPerimeter IOPlacement = "perimeter"
	IOAll       IOPlacement = "all"
)

// MeshBuilder can build HyCUBE-like mesh architectures. Each tile holds an
// ALU fed by two operand muxes, a constant unit, an output register file and
// a registered pass-through hop towards its four neighbors.
type MeshBuilder struct {
	width, height int
	fuLatency     int
	memLatency    int
	registers     int
	io            IOPlacement
	memoryColumn  bool
	caps          Capabilities
}

// MakeMeshBuilder creates a builder with default parameters.
func MakeMeshBuilder() MeshBuilder {
	return MeshBuilder{
		width:      2,
		height:     2,
		fuLatency:  1,
		memLatency: 1,
		registers:  1,
		io:         IOPerimeter,
		caps:       DefaultCapabilities(),
	}
}

// WithWidth sets the width of the mesh.
func (b MeshBuilder) WithWidth(width int) MeshBuilder {
	b.width = width
	return b
}

// WithHeight sets the height of the mesh.
func (b MeshBuilder) WithHeight(height int) MeshBuilder {
	b.height = height
	return b
}

// WithFULatency sets the latency of the ALUs.
func (b MeshBuilder) WithFULatency(latency int) MeshBuilder {
	b.fuLatency = latency
	return b
}

// WithMemLatency sets the latency of the memory units.
func (b MeshBuilder) WithMemLatency(latency int) MeshBuilder {
	b.memLatency = latency
	return b
}

// WithRegisters sets the size of the register file of each tile.
func (b MeshBuilder) WithRegisters(n int) MeshBuilder {
	b.registers = n
	return b
}

// WithIO sets which tiles get an I/O unit.
func (b MeshBuilder) WithIO(p IOPlacement) MeshBuilder {
	b.io = p
	return b
}

// WithMemoryColumn gives every tile of the westmost column a memory unit.
func (b MeshBuilder) WithMemoryColumn(on bool) MeshBuilder {
	b.memoryColumn = on
	return b
}

// WithCapabilities sets the opcode table of the units.
func (b MeshBuilder) WithCapabilities(caps Capabilities) MeshBuilder {
	b.caps = caps
	return b
}

func tileName(x, y int) string {
	return fmt.Sprintf("pe_%d_%d", x, y)
}

func (b MeshBuilder) hasIO(x, y int) bool {
	switch b.io {
	case IONone:
		return false
	case IOAll:
		return true
	case IOPerimeter:
		return x == 0 || y == 0 || x == b.width-1 || y == b.height-1
	default:
		panic("invalid I/O placement")
	}
}

func (b MeshBuilder) hasMemory(x, _ int) bool {
	return b.memoryColumn && x == 0
}

func (b MeshBuilder) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.width && y < b.height
}

type meshTile struct {
	name string

	alu, consts, reg, hop, hopMux string
	muxA, muxB                    string
	io, ioMux, ioBuf              string
	mem, memAddr, memData         string

	// results are the ALU-side outputs an I/O unit may drive out.
	results []string
	// shared are the ports the tile's own units and its neighbors may read.
	shared []string
}

func (b MeshBuilder) tile(x, y int) *meshTile {
	n := tileName(x, y)
	t := &meshTile{
		name:   n,
		alu:    n + ".alu",
		consts: n + ".const",
		reg:    n + ".reg",
		hop:    n + ".hop",
		hopMux: n + ".hop_mux",
		muxA:   n + ".mux_a",
		muxB:   n + ".mux_b",
	}

	if b.hasIO(x, y) {
		t.io, t.ioMux, t.ioBuf = n+".io", n+".io_mux", n+".io_buf"
	}

	if b.hasMemory(x, y) {
		t.mem, t.memAddr, t.memData = n+".mem", n+".mem_addr", n+".mem_data"
	}

	t.results = []string{Port(t.alu, "out"), Port(t.reg, "rd0"), Port(t.hop, "rd0")}
	t.shared = append([]string{Port(t.consts, "out")}, t.results...)

	if t.io != "" {
		t.shared = append(t.shared, Port(t.io, "out"))
	}

	if t.mem != "" {
		t.shared = append(t.shared, Port(t.mem, "out"))
	}

	return t
}

func (b MeshBuilder) neighbors(x, y int) []string {
	var tiles []string

	for _, s := range Sides {
		dx, dy := s.Offset()
		if b.inside(x+dx, y+dy) {
			tiles = append(tiles, tileName(x+dx, y+dy))
		}
	}

	return tiles
}

// Build creates the architecture.
func (b MeshBuilder) Build(name string) *Architecture {
	if b.width < 1 || b.height < 1 || b.registers < 1 {
		panic("mesh needs at least one tile and one register")
	}

	a := New(name, b.caps)
	tiles := make(map[string]*meshTile)

	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			t := b.tile(x, y)
			tiles[t.name] = t
		}
	}

	// Elements first, so that wires may point at any tile.
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			b.addTile(a, tiles, x, y)
		}
	}

	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			b.wireTile(a, tiles, x, y)
		}
	}

	return a
}

func (b MeshBuilder) operands(tiles map[string]*meshTile, x, y int) (fromNeighbors, operands []string) {
	t := tiles[tileName(x, y)]

	for _, n := range b.neighbors(x, y) {
		fromNeighbors = append(fromNeighbors, tiles[n].shared...)
	}

	operands = append(append([]string{}, t.shared...), fromNeighbors...)

	return fromNeighbors, operands
}

func (b MeshBuilder) addTile(a *Architecture, tiles map[string]*meshTile, x, y int) {
	t := tiles[tileName(x, y)]
	fromNeighbors, operands := b.operands(tiles, x, y)

	mustAdd(a, FuncUnit{Name: t.alu, Class: ClassALU, Operands: 2, Latency: b.fuLatency})
	mustAdd(a, ConstUnit{Name: t.consts})
	mustAdd(a, RegisterFile{Name: t.reg, Registers: b.registers, ReadPorts: 1, WritePorts: 1})
	mustAdd(a, RegisterFile{Name: t.hop, Registers: 1, ReadPorts: 1, WritePorts: 1})
	mustAdd(a, Mux{Name: t.hopMux, Inputs: len(fromNeighbors)})
	mustAdd(a, Mux{Name: t.muxA, Inputs: len(operands)})
	mustAdd(a, Mux{Name: t.muxB, Inputs: len(operands)})

	if t.io != "" {
		mustAdd(a, IOUnit{Name: t.io})
		mustAdd(a, Mux{Name: t.ioMux, Inputs: len(t.results)})
		mustAdd(a, Tristate{Name: t.ioBuf})
	}

	if t.mem != "" {
		mustAdd(a, MemUnit{Name: t.mem, Latency: b.memLatency})
		mustAdd(a, Mux{Name: t.memAddr, Inputs: len(t.shared)})
		mustAdd(a, Mux{Name: t.memData, Inputs: len(t.shared)})
	}
}

func (b MeshBuilder) wireTile(a *Architecture, tiles map[string]*meshTile, x, y int) {
	t := tiles[tileName(x, y)]
	fromNeighbors, operands := b.operands(tiles, x, y)

	mustConnect(a, Port(t.alu, "out"), Port(t.reg, "wr0"))
	mustConnect(a, Port(t.hopMux, "out"), Port(t.hop, "wr0"))
	mustConnect(a, Port(t.muxA, "out"), Port(t.alu, InPort(0)))
	mustConnect(a, Port(t.muxB, "out"), Port(t.alu, InPort(1)))
	connectInputs(a, t.hopMux, fromNeighbors)
	connectInputs(a, t.muxA, operands)
	connectInputs(a, t.muxB, operands)

	if t.io != "" {
		connectInputs(a, t.ioMux, t.results)
		mustConnect(a, Port(t.ioMux, "out"), Port(t.ioBuf, "in"))
		mustConnect(a, Port(t.ioBuf, "out"), Port(t.io, InPort(0)))
	}

	if t.mem != "" {
		connectInputs(a, t.memAddr, t.shared)
		connectInputs(a, t.memData, t.shared)
		mustConnect(a, Port(t.memAddr, "out"), Port(t.mem, InPort(0)))
		mustConnect(a, Port(t.memData, "out"), Port(t.mem, InPort(1)))
	}
}

func connectInputs(a *Architecture, mux string, sources []string) {
	for k, src := range sources {
		mustConnect(a, src, Port(mux, InPort(k)))
	}
}

func mustAdd(a *Architecture, e Element) {
	if err := a.Add(e); err != nil {
		panic(err)
	}
}

func mustConnect(a *Architecture, from, to string) {
	if err := a.Connect(from, to); err != nil {
		panic(err)
	}
}
