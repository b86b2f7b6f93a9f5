package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/polyglot"
)

func createCmd() *cli.Command {
	var (
		imagePath   string
		archivePath string
		wavPath     string
		flacPath    string
		outputPath  string
		strategy    string
		keyword     string
		entryName   string
		verbose     bool
	)

	return &cli.Command{
		Name:  "create",
		Usage: "Embed one format's file inside another's",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "image",
				Aliases:     []string{"i"},
				Usage:       "path to the PNG input",
				Destination: &imagePath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "archive",
				Aliases:     []string{"a"},
				Usage:       "path to the ZIP input",
				Destination: &archivePath,
			},
			&cli.StringFlag{Name: "wav", Usage: "path to a WAV input instead of an archive", Destination: &wavPath},
			&cli.StringFlag{Name: "flac", Usage: "path to a FLAC input instead of an archive", Destination: &flacPath},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "path for the polyglot output",
				Destination: &outputPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "strategy",
				Aliases:     []string{"s"},
				Usage:       "embedding strategy: chunk, image-data, or archive",
				Destination: &strategy,
			},
			&cli.StringFlag{Name: "keyword", Usage: "tEXt keyword for the chunk strategy", Destination: &keyword},
			&cli.StringFlag{Name: "entry-name", Usage: "entry name for the archive strategy", Destination: &entryName},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log creation steps", Destination: &verbose},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			secondPath := archivePath
			if wavPath != "" {
				secondPath = wavPath
			}
			if flacPath != "" {
				secondPath = flacPath
			}
			if secondPath == "" {
				return cli.Exit("error: one of --archive, --wav, or --flac is required", 1)
			}

			var image, second []byte
			g, _ := errgroup.WithContext(ctx)
			g.Go(func() error {
				var err error
				image, err = os.ReadFile(imagePath)
				return err
			})
			g.Go(func() error {
				var err error
				second, err = os.ReadFile(secondPath)
				return err
			})
			if err := g.Wait(); err != nil {
				return cli.Exit(fmt.Sprintf("error: read inputs: %v", err), 1)
			}

			var out []byte
			var err error
			switch {
			case wavPath != "":
				// The output extension picks the dominant side.
				imageDominant := !hasExt(outputPath, ".wav")
				out, err = polyglot.CreateWAV(image, second, imageDominant)
			case flacPath != "":
				out, err = polyglot.CreateFLAC(second, image)
			default:
				opts := []polyglot.CreateOption{
					polyglot.WithStrategy(resolveStrategy(strategy, outputPath)),
				}
				if keyword != "" {
					opts = append(opts, polyglot.WithKeyword(keyword))
				}
				if entryName != "" {
					opts = append(opts, polyglot.WithEntryName(entryName))
				}
				if verbose {
					opts = append(opts, polyglot.WithLogger(stderrLogger()))
				}
				out, err = polyglot.Create(image, second, opts...)
			}
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: create polyglot: %v", err), 1)
			}

			if err := os.WriteFile(outputPath, out, 0o644); err != nil {
				return cli.Exit(fmt.Sprintf("error: write output: %v", err), 1)
			}
			fmt.Printf("wrote %s (%d bytes)\n", outputPath, len(out))
			return nil
		},
	}
}

// resolveStrategy maps the flag to a strategy, defaulting by output
// extension: a .zip output implies the archive-dominant wrap.
func resolveStrategy(flag, outputPath string) polyglot.Strategy {
	if flag != "" {
		return polyglot.Strategy(flag)
	}
	if hasExt(outputPath, ".zip") {
		return polyglot.StrategyArchive
	}
	return polyglot.StrategyChunk
}

func hasExt(path, ext string) bool {
	return strings.HasSuffix(strings.ToLower(path), ext)
}

func stderrLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
