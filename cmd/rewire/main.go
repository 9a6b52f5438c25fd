// Package main provides the rewire CLI.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rewire-ml/rewire/internal/config"
	"github.com/rewire-ml/rewire/internal/logging"
	"github.com/rewire-ml/rewire/internal/pipeline"
	"github.com/rewire-ml/rewire/onnx"
	"github.com/rewire-ml/rewire/transform"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("rewire %s\n", version)
	case "inspect":
		err = runInspect(os.Args[2:])
	case "optimize":
		err = runOptimize(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "rewire: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("rewire - graph transformations for traced computation graphs")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version                                    Show version")
	fmt.Println("  inspect <model.onnx>                       Print model metadata")
	fmt.Println("  optimize -pipeline <p.yaml> <model.onnx>   Apply a transformation pipeline")
}

func setup(fs *flag.FlagSet, args []string) (config.Config, []string, error) {
	cfgPath := fs.String("config", "", "path to rewire config YAML")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, nil, err
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("config: %w", err)
	}
	logging.Configure(logging.Options{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	return cfg, fs.Args(), nil
}

func runInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	_, rest, err := setup(fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("inspect: expected exactly one model path")
	}

	info, err := onnx.GetModelInfo(rest[0])
	if err != nil {
		return err
	}
	fmt.Printf("Producer: %s %s\n", info.ProducerName, info.ProducerVersion)
	fmt.Printf("IR version: %d\n", info.IRVersion)
	fmt.Printf("Opset: %d\n", info.OpsetVersion)
	fmt.Printf("Inputs: %v\n", info.InputNames)
	fmt.Printf("Outputs: %v\n", info.OutputNames)
	fmt.Printf("Nodes: %d (weights: %d)\n", info.NodeCount, info.WeightCount)
	fmt.Println("Operators:")
	for op, count := range info.Operators {
		fmt.Printf("  %-24s %d\n", op, count)
	}
	return nil
}

func runOptimize(args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	pipelinePath := fs.String("pipeline", "", "path to pipeline YAML (overrides config)")
	reverse := fs.Bool("reverse", false, "apply the pipeline's inverse instead")
	cfg, rest, err := setup(fs, args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("optimize: expected exactly one model path")
	}
	path := *pipelinePath
	if path == "" {
		path = cfg.Pipeline
	}
	if path == "" {
		return fmt.Errorf("optimize: no pipeline given (use -pipeline or config)")
	}

	t, err := pipeline.CompileFile(path, transform.NewRegistry())
	if err != nil {
		return err
	}

	g, err := onnx.ImportFile(rest[0])
	if err != nil {
		return err
	}
	before := g.Len()

	if *reverse {
		g, err = transform.Revert(g, t)
	} else {
		g, err = transform.Apply(g, t)
	}
	if err != nil {
		return err
	}

	logging.L().Info("pipeline applied",
		"pipeline", t.Name(), "reverse", *reverse,
		"nodes_before", before, "nodes_after", g.Len())
	fmt.Print(g.String())
	return nil
}
