// Package samples bundles example kernels and a reference mesh.
package samples

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/sarchlab/cgrame/arch"
	"github.com/sarchlab/cgrame/config"
	"github.com/sarchlab/cgrame/dfg"
)

//go:embed kernels/*.yaml
var kernels embed.FS

//go:embed mesh4x4.yaml
var mesh []byte

//go:embed run.yaml
var run []byte

// Names lists the bundled kernels.
func Names() []string {
	entries, err := kernels.ReadDir("kernels")
	if err != nil {
		panic(err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}

	sort.Strings(names)

	return names
}

// Kernel parses a bundled kernel.
func Kernel(name string) (*dfg.Graph, error) {
	data, err := kernels.ReadFile(path.Join("kernels", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("unknown kernel %q", name)
	}

	return dfg.Parse(data)
}

// Mesh builds the reference 4x4 mesh.
func Mesh() *arch.Architecture {
	a, err := arch.ParseMeshSpec(mesh)
	if err != nil {
		panic(err)
	}

	return a
}

// RunConfig returns the reference run configuration.
func RunConfig() config.Config {
	cfg, err := config.Parse(run)
	if err != nil {
		panic(err)
	}

	return cfg
}
