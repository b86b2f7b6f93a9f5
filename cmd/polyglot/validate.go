package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/meigma/polyglot"
)

func validateCmd() *cli.Command {
	var (
		inputPath string
		asJSON    bool
		verbose   bool
	)

	return &cli.Command{
		Name:  "validate",
		Usage: "Check whether a file parses as a polyglot",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "path to the file to check",
				Destination: &inputPath,
				Required:    true,
			},
			&cli.BoolFlag{Name: "json", Usage: "emit the report as JSON", Destination: &asJSON},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "show per-format details", Destination: &verbose},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			data, err := os.ReadFile(inputPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read input: %v", err), 1)
			}

			report := polyglot.Validate(data)
			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return cli.Exit(fmt.Sprintf("error: encode report: %v", err), 1)
				}
			} else {
				printReport(report, verbose)
			}

			// An invalid report is still a successful validation; only
			// tool failures exit non-zero.
			return nil
		},
	}
}

func printReport(r *polyglot.Report, verbose bool) {
	fmt.Printf("status: %s (%d bytes)\n", r.Status(), r.Size)
	printSide("outer", r.Outer, verbose)
	printSide("inner", r.Inner, verbose)
	if r.Inner.OK && verbose {
		fmt.Printf("payload: offset=%d size=%d digest=%s\n", r.InnerOffset, r.InnerSize, r.InnerDigest)
	}
}

func printSide(label string, fr polyglot.FormatReport, verbose bool) {
	state := "ok"
	if !fr.OK {
		state = "failed"
	}
	fmt.Printf("%s: %s %s\n", label, fr.Format, state)
	if !fr.OK && verbose && fr.Detail != "" {
		fmt.Printf("  %s\n", fr.Detail)
	}
}
