// Command validate checks room preset files. For every *.yaml file in the
// preset directory (or every file named on the command line) it checks:
//   - YAML structure and required fields
//   - Board dimensions within the server's maximum
//   - A connect length that fits on the board, so the preset can be won
//   - A positive base time and a non-negative increment
//   - A file name that matches the preset name
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/connectn/game/config"
	"github.com/wricardo/connectn/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

// validatePreset loads and validates a single preset file.
func validatePreset(filePath string, maxDimension int) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	preset, err := config.ParsePreset(data, maxDimension)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	if want := strings.TrimSuffix(result.File, filepath.Ext(result.File)); preset.Name != want {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Preset name %q does not match file name %q", preset.Name, want))
	}

	if preset.Connect > preset.Width && preset.Connect > preset.Height {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("connect %d does not fit on a %dx%d board", preset.Connect, preset.Width, preset.Height))
	}

	mode := "free placement"
	if preset.Gravity {
		mode = "gravity"
	}
	result.Errors = append(result.Errors,
		fmt.Sprintf("✓ Board: %dx%d, connect %d, %s", preset.Width, preset.Height, preset.Connect, mode),
		fmt.Sprintf("✓ Clock: %d min + %d s", preset.Minutes, preset.Increment),
	)
	return result
}

// presetFiles returns the files to check: args when given, otherwise every
// *.yaml file in dir.
func presetFiles(dir string, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	return filepath.Glob(filepath.Join(dir, "*.yaml"))
}

// report validates files, prints a concise report and tells whether all
// of them are valid.
func report(w io.Writer, files []string, maxDimension int) bool {
	allValid := true
	for _, file := range files {
		result := validatePreset(file, maxDimension)
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, info := range result.Errors {
				fmt.Fprintln(w, "  "+info)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Fprintln(w, "  ❌ "+err)
				}
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All presets are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some presets have errors")
	}
	return allValid
}

func newCommand(out io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate room preset files",
		ArgsUsage: "[file ...]",
		Writer:    out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Value:   "../presets",
				Usage:   "directory of *.yaml presets, used when no files are given",
			},
			&cli.IntFlag{
				Name:  "max-dimension",
				Value: engine.DefaultMaxLength,
				Usage: "largest allowed width, height and connect length",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files, err := presetFiles(cmd.String("dir"), cmd.Args().Slice())
			if err != nil {
				return fmt.Errorf("finding preset files: %w", err)
			}
			if len(files) == 0 {
				return cli.Exit("no preset files found", 1)
			}
			if !report(out, files, int(cmd.Int("max-dimension"))) {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

func main() {
	if err := newCommand(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
