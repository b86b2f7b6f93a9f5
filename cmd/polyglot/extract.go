package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/meigma/polyglot"
)

func extractCmd() *cli.Command {
	var (
		inputPath  string
		outputPath string
	)

	return &cli.Command{
		Name:  "extract",
		Usage: "Recover the embedded payload from a polyglot file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "path to the polyglot file",
				Destination: &inputPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "path for the recovered payload",
				Destination: &outputPath,
				Required:    true,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			data, err := os.ReadFile(inputPath)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read input: %v", err), 1)
			}

			payload, err := polyglot.Extract(data)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: extract payload: %v", err), 1)
			}
			if err := os.WriteFile(outputPath, payload.Data, 0o644); err != nil {
				return cli.Exit(fmt.Sprintf("error: write output: %v", err), 1)
			}

			fmt.Printf("wrote %s (%d bytes, %s at offset %d)\n",
				outputPath, len(payload.Data), payload.Format, payload.Offset)
			if !payload.Exact {
				fmt.Println("note: payload extent was not self-describing; output may carry trailing bytes")
			}
			return nil
		},
	}
}
