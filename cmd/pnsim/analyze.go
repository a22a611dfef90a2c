package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pflow-xyz/hybridnet/collector"
	"github.com/pflow-xyz/hybridnet/config"
	"github.com/pflow-xyz/hybridnet/scheduler"
)

func analyze(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	cfgPath := fs.String("config", "", "run config file (YAML/JSON/TOML); defaults if omitted")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: pnsim analyze [options]

Run the built-in producer-consumer demo net to completion and print
species/reaction metrics plus an invariant report, without exporting
the raw recorded series.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadRunConfig(*cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	net, err := demoNet()
	if err != nil {
		return fmt.Errorf("build net: %w", err)
	}

	col := collector.New(nil)
	ctl := scheduler.NewController(net, col)

	if err := ctl.Start(cfg); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if err := ctl.RunToCompletion(context.Background()); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	return printAnalysis(col, net)
}
