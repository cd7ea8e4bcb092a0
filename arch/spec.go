package arch

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MeshSpec is the YAML form of a mesh architecture.
//
//	name: hycube4x4
//	width: 4
//	height: 4
//	fu_latency: 1
//	registers: 2
//	io: perimeter
//	memory_column: true
//	capabilities:
//	  alu: [add, sub, mul]
type MeshSpec struct {
	Name         string              `yaml:"name"`
	Width        int                 `yaml:"width"`
	Height       int                 `yaml:"height"`
	FULatency    *int                `yaml:"fu_latency"`
	MemLatency   *int                `yaml:"mem_latency"`
	Registers    *int                `yaml:"registers"`
	IO           IOPlacement         `yaml:"io"`
	MemoryColumn bool                `yaml:"memory_column"`
	Capabilities map[string][]string `yaml:"capabilities"`
}

// LoadMeshSpec reads a mesh architecture from a YAML file.
func LoadMeshSpec(path string) (*Architecture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read architecture: %w", err)
	}

	return ParseMeshSpec(data)
}

// ParseMeshSpec builds a mesh architecture from its YAML form. Classes listed
// under capabilities replace the default opcode set of that class.
func ParseMeshSpec(data []byte) (*Architecture, error) {
	var spec MeshSpec

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	return spec.Build()
}

// Build validates the spec and builds the architecture.
func (s MeshSpec) Build() (*Architecture, error) {
	if s.Width < 1 || s.Height < 1 {
		return nil, fmt.Errorf("%w: mesh %dx%d", ErrInvalid, s.Width, s.Height)
	}

	b := MakeMeshBuilder().
		WithWidth(s.Width).
		WithHeight(s.Height).
		WithMemoryColumn(s.MemoryColumn)

	if s.FULatency != nil {
		if *s.FULatency < 0 {
			return nil, fmt.Errorf("%w: negative fu_latency", ErrInvalid)
		}

		b = b.WithFULatency(*s.FULatency)
	}

	if s.MemLatency != nil {
		if *s.MemLatency < 0 {
			return nil, fmt.Errorf("%w: negative mem_latency", ErrInvalid)
		}

		b = b.WithMemLatency(*s.MemLatency)
	}

	if s.Registers != nil {
		if *s.Registers < 1 {
			return nil, fmt.Errorf("%w: registers must be positive", ErrInvalid)
		}

		b = b.WithRegisters(*s.Registers)
	}

	switch s.IO {
	case "":
	case IONone, IOPerimeter, IOAll:
		b = b.WithIO(s.IO)
	default:
		return nil, fmt.Errorf("%w: unknown io placement %q", ErrInvalid, s.IO)
	}

	caps := DefaultCapabilities()
	for class, ops := range s.Capabilities {
		caps = caps.With(class, ops...)
	}

	name := s.Name
	if name == "" {
		name = fmt.Sprintf("mesh%dx%d", s.Width, s.Height)
	}

	return b.WithCapabilities(caps).Build(name), nil
}
