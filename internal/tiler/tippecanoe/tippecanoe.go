// Package tippecanoe runs the tippecanoe binary as a tiler engine.
package tippecanoe

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/joeblew999/nyc-dob-map/internal/tiler"
)

// Tippecanoe implements tiler.Tiler by shelling out.
type Tippecanoe struct {
	// Bin is the executable name or path.
	Bin string
}

// New returns an engine running bin, "tippecanoe" when empty.
func New(bin string) *Tippecanoe {
	if bin == "" {
		bin = "tippecanoe"
	}
	return &Tippecanoe{Bin: bin}
}

var _ tiler.Tiler = (*Tippecanoe)(nil)

// Name returns the engine name.
func (t *Tippecanoe) Name() string { return "tippecanoe" }

// Available reports whether the binary is on PATH.
func (t *Tippecanoe) Available() bool {
	_, err := exec.LookPath(t.Bin)
	return err == nil
}

// Args returns the command line for one run. Points are never dropped:
// every building must stay clickable at the deepest zoom.
func Args(inputPath, outputPath string, cfg tiler.TileConfig) []string {
	cfg = cfg.Normalize()
	args := []string{
		"-o", outputPath,
		"-l", cfg.Layer,
		"-n", cfg.Name,
		"-Z", strconv.Itoa(cfg.MinZoom),
		"-z", strconv.Itoa(cfg.MaxZoom),
		"-r1",
		"--no-feature-limit",
		"--no-tile-size-limit",
		"--force",
	}
	if cfg.Description != "" {
		args = append(args, "-N", cfg.Description)
	}
	if cfg.Attribution != "" {
		args = append(args, "-A", cfg.Attribution)
	}
	return append(args, inputPath)
}

// Tile runs tippecanoe and relays its percentage output.
func (t *Tippecanoe) Tile(ctx context.Context, inputPath, outputPath string, cfg tiler.TileConfig) error {
	cmd := exec.CommandContext(ctx, t.Bin, Args(inputPath, outputPath, cfg)...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	cfg.Report(10, "running tippecanoe")
	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%s is not installed", t.Bin)
		}
		return fmt.Errorf("starting %s: %w", t.Bin, err)
	}

	tail := relay(stderr, cfg)
	if err := cmd.Wait(); err != nil {
		if tail != "" {
			return fmt.Errorf("tippecanoe: %w: %s", err, tail)
		}
		return fmt.Errorf("tippecanoe: %w", err)
	}
	return nil
}

// relay forwards "NN.N%" progress lines and returns the last other line,
// which is where tippecanoe reports failures.
func relay(r io.Reader, cfg tiler.TileConfig) string {
	var last string
	sc := bufio.NewScanner(r)
	sc.Split(scanLinesOrCR)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if pct, ok := Percent(line); ok {
			cfg.Report(10+int(pct*0.8), line)
			continue
		}
		last = line
	}
	return last
}

// Percent parses the leading percentage of a progress line.
func Percent(line string) (float64, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || !strings.HasSuffix(fields[0], "%") {
		return 0, false
	}
	pct, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
	if err != nil || pct < 0 || pct > 100 {
		return 0, false
	}
	return pct, true
}

// scanLinesOrCR splits on \n and on the \r tippecanoe uses to redraw its
// progress line.
func scanLinesOrCR(data []byte, atEOF bool) (int, []byte, error) {
	for i, b := range data {
		if b == '\n' || b == '\r' {
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
