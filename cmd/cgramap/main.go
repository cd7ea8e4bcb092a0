// Command cgramap maps a dataflow graph onto a CGRA mesh and prints the
// mapping together with the configuration bits it implies.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/sarchlab/cgrame/api"
	"github.com/sarchlab/cgrame/arch"
	"github.com/sarchlab/cgrame/config"
	"github.com/sarchlab/cgrame/dfg"
	"github.com/sarchlab/cgrame/mapping"
	"github.com/tebeka/atexit"
)

const (
	exitMapped = iota
	exitUnmapped
	exitError
)

var (
	archFlag   = flag.String("arch", "", "mesh description (YAML); a 4x4 mesh when empty")
	dfgFlag    = flag.String("dfg", "", "dataflow graph (YAML)")
	configFlag = flag.String("config", "", "run configuration (YAML)")
	logFlag    = flag.String("log", "cgramap.json.log", "trace log file")
	bitsFlag   = flag.Bool("bits", true, "print configuration bits of a mapping")
)

func main() {
	flag.Parse()

	if *dfgFlag == "" {
		fmt.Fprintln(os.Stderr, "cgramap: -dfg is required")
		flag.Usage()
		atexit.Exit(exitError)
	}

	setupLog()

	atexit.Exit(run())
}

func setupLog() {
	f, err := os.Create(*logFlag)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cgramap:", err)
		atexit.Exit(exitError)
	}

	atexit.Register(func() { f.Close() })

	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: mapping.LevelTrace,
	})

	slog.SetDefault(slog.New(handler))
}

func loadArch() (*arch.Architecture, error) {
	if *archFlag == "" {
		return arch.MakeMeshBuilder().WithWidth(4).WithHeight(4).Build("mesh"), nil
	}

	return arch.LoadMeshSpec(*archFlag)
}

func loadConfig() (config.Config, error) {
	if *configFlag == "" {
		return config.Default(), nil
	}

	return config.Load(*configFlag)
}

func run() int {
	a, err := loadArch()
	if err != nil {
		return fail(err)
	}

	d, err := dfg.Load(*dfgFlag)
	if err != nil {
		return fail(err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	driver := api.DriverBuilder{}.
		WithProvider(a.Provider()).
		WithConfig(cfg).
		Build("Driver")
	driver.AcceptHook(api.TraceHook{})

	res, err := driver.Map(ctx, d)
	if res != nil && res.Mapping != nil {
		mapping.WriteReport(os.Stdout, res.Mapping, res.Issues)
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "cgramap: interrupted")
			return exitUnmapped
		}

		return fail(err)
	}

	if !res.Mapping.IsMapped() {
		return exitUnmapped
	}

	if *bitsFlag {
		settings, err := a.ConfigBits(res.Mapping)
		if err != nil {
			return fail(err)
		}

		arch.WriteConfigTable(os.Stdout, settings)
	}

	return exitMapped
}

func fail(err error) int {
	slog.Error("cgramap failed", "error", err)
	fmt.Fprintln(os.Stderr, "cgramap:", err)

	return exitError
}
