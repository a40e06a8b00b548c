// Package mbspc runs the external BSP-to-AAS compiler and finds the file it
// produced.
package mbspc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ernie/aastools/internal/assets"
)

// candidates are the places mbspc is usually installed, tried in order when
// no compiler path is configured.
var candidates = []string{
	"mbspc",
	"mbspc.exe",
	"./mbspc.exe",
	"../mbspc.exe",
	"C:/Program Files/id Software/Quake III Arena/mbspc.exe",
	"C:/Games/Quake3/mbspc.exe",
}

// maxLineSize is the longest compiler output line that is streamed.
var maxLineSize = 1024 * 1024

// ErrNotFound is returned by FindCompiler when no compiler can be located.
var ErrNotFound = errors.New("mbspc compiler not found")

// FindCompiler returns the configured compiler if it exists, otherwise the
// first well-known location that does, otherwise mbspc from PATH.
func FindCompiler(configured string) (string, error) {
	return findCompiler(configured, candidates)
}

func findCompiler(configured string, candidates []string) (string, error) {
	if configured != "" {
		if isFile(configured) {
			return configured, nil
		}
		return "", fmt.Errorf("%w at %s", ErrNotFound, configured)
	}
	for _, c := range candidates {
		if isFile(c) {
			return c, nil
		}
	}
	if p, err := exec.LookPath("mbspc"); err == nil {
		return p, nil
	}
	return "", ErrNotFound
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// ExitError reports a compiler run that exited non-zero.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("mbspc exited with code %d", e.Code)
}

// Runner runs one compiler binary with fixed arguments.
type Runner struct {
	Compiler string
	Args     []string
	// OutputDir is the working directory of the compiler. Empty means the
	// directory of the BSP being compiled.
	OutputDir string
	// Output, if set, receives each line the compiler prints.
	Output func(line string)
	Log    zerolog.Logger
}

// Command returns the argv Run will execute for bspPath.
func (r *Runner) Command(bspPath string) []string {
	argv := append([]string{r.Compiler}, r.Args...)
	return append(argv, bspPath)
}

// Run compiles bspPath and waits for the compiler to exit. Standard output
// and standard error are merged and streamed line by line.
func (r *Runner) Run(ctx context.Context, bspPath string) error {
	abs, err := filepath.Abs(bspPath)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", bspPath, err)
	}
	workDir := r.OutputDir
	if workDir == "" {
		workDir = filepath.Dir(abs)
	}

	argv := r.Command(abs)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = workDir
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	r.Log.Info().Str("compiler", r.Compiler).Str("bsp", abs).Str("dir", workDir).Msg("starting compile")
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", r.Compiler, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		r.Log.Debug().Str("line", line).Msg("mbspc")
		if r.Output != nil {
			r.Output(line)
		}
	}
	scanErr := scanner.Err()
	if scanErr != nil {
		// Drain, or the compiler blocks on a full pipe and Wait never returns.
		r.Log.Warn().Err(scanErr).Msg("compiler output no longer streamed")
		io.Copy(io.Discard, stdout)
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("compile %s: %w", filepath.Base(abs), ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("wait %s: %w", r.Compiler, err)
	}
	if scanErr != nil {
		return fmt.Errorf("read compiler output: %w", scanErr)
	}

	r.Log.Info().Str("bsp", abs).Msg("compile finished")
	return nil
}

// DefaultAASPath is where the compiler writes the AAS for bspPath when run
// in the BSP's directory.
func DefaultAASPath(bspPath string) string {
	return filepath.Join(filepath.Dir(bspPath), assets.MapName(bspPath)+".aas")
}

// LocateAAS looks for <map>.aas in outputDir, then next to the BSP.
func LocateAAS(bspPath, outputDir string) (string, bool) {
	name := assets.MapName(bspPath) + ".aas"
	var dirs []string
	if outputDir != "" {
		dirs = append(dirs, outputDir)
	}
	dirs = append(dirs, filepath.Dir(bspPath))

	for _, d := range dirs {
		p := filepath.Join(d, name)
		if isFile(p) {
			return p, true
		}
	}
	return "", false
}
