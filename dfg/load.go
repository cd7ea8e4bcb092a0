package dfg

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type opSpec struct {
	Name   string `yaml:"name"`
	Opcode string `yaml:"opcode"`
	Value  int64  `yaml:"value"`
}

type edgeSpec struct {
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Operand int    `yaml:"operand"`
}

type graphSpec struct {
	Name  string     `yaml:"name"`
	Ops   []opSpec   `yaml:"ops"`
	Edges []edgeSpec `yaml:"edges"`
}

// Load reads a graph from a YAML file.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataflow graph: %w", err)
	}

	return Parse(data)
}

// Parse builds a graph from its YAML form and validates it.
//
//	name: mac
//	ops:
//	  - {name: a, opcode: input}
//	  - {name: k, opcode: const, value: 3}
//	  - {name: m, opcode: mul}
//	edges:
//	  - {from: a, to: m, operand: 0}
//	  - {from: k, to: m, operand: 1}
func Parse(data []byte) (*Graph, error) {
	var spec graphSpec

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	g := New(spec.Name)
	for _, o := range spec.Ops {
		opcode, err := ParseOpcode(o.Opcode)
		if err != nil {
			return nil, fmt.Errorf("op %q: %w", o.Name, err)
		}

		id, err := g.AddOp(o.Name, opcode)
		if err != nil {
			return nil, err
		}

		g.Op(id).Const = o.Value
	}

	for _, e := range spec.Edges {
		from, ok := g.OpByName(e.From)
		if !ok {
			return nil, fmt.Errorf("%w: edge from unknown op %q", ErrInvalid, e.From)
		}

		to, ok := g.OpByName(e.To)
		if !ok {
			return nil, fmt.Errorf("%w: edge to unknown op %q", ErrInvalid, e.To)
		}

		if _, err := g.Connect(from, to, e.Operand); err != nil {
			return nil, err
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}

	return g, nil
}
