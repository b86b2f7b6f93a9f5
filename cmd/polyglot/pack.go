package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/meigma/polyglot/zip"
)

func packCmd() *cli.Command {
	var (
		dirPath    string
		outputPath string
		storeOnly  bool
	)

	return &cli.Command{
		Name:  "pack",
		Usage: "Build a ZIP archive from a directory, suited for embedding",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"d"},
				Usage:       "directory to archive",
				Destination: &dirPath,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "path for the archive",
				Destination: &outputPath,
				Required:    true,
			},
			&cli.BoolFlag{Name: "store", Usage: "store entries uncompressed", Destination: &storeOnly},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			w := zip.NewWriter()
			root := os.DirFS(dirPath)
			err := fs.WalkDir(root, ".", func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if d.IsDir() {
					return nil
				}
				data, err := fs.ReadFile(root, path)
				if err != nil {
					return err
				}
				if storeOnly {
					return w.AddStored(filepath.ToSlash(path), data)
				}
				return w.Add(filepath.ToSlash(path), data)
			})
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: walk %q: %v", dirPath, err), 1)
			}

			out, err := w.Finish()
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: finish archive: %v", err), 1)
			}
			if err := os.WriteFile(outputPath, out, 0o644); err != nil {
				return cli.Exit(fmt.Sprintf("error: write output: %v", err), 1)
			}
			fmt.Printf("wrote %s (%d bytes)\n", outputPath, len(out))
			return nil
		},
	}
}
