package output

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vsinha/moplan/pkg/application/dto"
)

// Supported output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTSV  = "tsv"
	FormatXLSX = "xlsx"
	FormatSVG  = "svg"
)

// Config holds configuration for output generation
type Config struct {
	Format string
	// Path is the output file; empty means stdout.
	Path    string
	Verbose bool
}

// Generate writes the result to the configured file, or to stdout when no
// path is set
func Generate(result *dto.PlanResult, config Config) error {
	format := strings.ToLower(config.Format)
	if format == "" {
		format = FormatText
	}
	if config.Path == "" {
		if format == FormatXLSX {
			return fmt.Errorf("an output path is required for the %s format", FormatXLSX)
		}
		return Write(os.Stdout, result, format, config.Verbose)
	}

	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(config.Path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	bw := bufio.NewWriter(f)
	if err := Write(bw, result, format, config.Verbose); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", config.Path, err)
	}
	return f.Close()
}

// Write renders the result to w in the given format
func Write(w io.Writer, result *dto.PlanResult, format string, verbose bool) error {
	switch strings.ToLower(format) {
	case FormatText:
		return writeText(w, result, verbose)
	case FormatJSON:
		return writeJSON(w, result)
	case FormatYAML:
		return writeYAML(w, result)
	case FormatTSV:
		return writeTSV(w, result)
	case FormatXLSX:
		return writeXLSX(w, result)
	case FormatSVG:
		return writeSVG(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeJSON(w io.Writer, result *dto.PlanResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewReport(result)); err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, result *dto.PlanResult) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewReport(result)); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}
