package mbspc

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ernie/aastools/internal/assets"
)

const stubScript = `#!/bin/sh
echo "MBSPC stub"
echo "args: $@"
echo "warning: stderr line" 1>&2
for last; do :; done
name=$(basename "$last" .bsp)
printf 'EAAS\005\000\000\000' > "$name.aas"
exit 0
`

func writeStub(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stub needs /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "mbspc")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func writeBSP(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("IBSP"), 0o644))
	return path
}

func TestRunner_Run(t *testing.T) {
	stub := writeStub(t, stubScript)
	mapDir := t.TempDir()
	bsp := writeBSP(t, mapDir, "q3r_beach.bsp")

	var lines []string
	r := &Runner{
		Compiler: stub,
		Args:     []string{"-bsp2aas", "-optimize"},
		Output:   func(line string) { lines = append(lines, line) },
		Log:      zerolog.Nop(),
	}
	require.NoError(t, r.Run(context.Background(), bsp))

	assert.Contains(t, lines, "MBSPC stub")
	assert.Contains(t, lines, "warning: stderr line")
	require.NotEmpty(t, lines)

	aas, ok := LocateAAS(bsp, "")
	require.True(t, ok)
	assert.Equal(t, DefaultAASPath(bsp), aas)

	report := assets.ValidateAAS(aas)
	assert.True(t, report.OK)
}

func TestRunner_RunInOutputDir(t *testing.T) {
	stub := writeStub(t, stubScript)
	bsp := writeBSP(t, t.TempDir(), "q3r_desert.bsp")
	out := t.TempDir()

	r := &Runner{Compiler: stub, OutputDir: out, Log: zerolog.Nop()}
	require.NoError(t, r.Run(context.Background(), bsp))

	aas, ok := LocateAAS(bsp, out)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(out, "q3r_desert.aas"), aas)

	_, err := os.Stat(DefaultAASPath(bsp))
	assert.True(t, os.IsNotExist(err))
}

func TestRunner_NonZeroExit(t *testing.T) {
	stub := writeStub(t, "#!/bin/sh\necho \"ERROR: no brushes\"\nexit 3\n")
	bsp := writeBSP(t, t.TempDir(), "broken.bsp")

	var lines []string
	r := &Runner{Compiler: stub, Output: func(l string) { lines = append(lines, l) }, Log: zerolog.Nop()}
	err := r.Run(context.Background(), bsp)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, []string{"ERROR: no brushes"}, lines)
}

func TestRunner_Cancelled(t *testing.T) {
	stub := writeStub(t, "#!/bin/sh\nexec sleep 5\n")
	bsp := writeBSP(t, t.TempDir(), "slow.bsp")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	r := &Runner{Compiler: stub, Log: zerolog.Nop()}
	err := r.Run(ctx, bsp)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunner_Command(t *testing.T) {
	r := &Runner{Compiler: "mbspc", Args: []string{"-bsp2aas", "-reach"}}
	assert.Equal(t, []string{"mbspc", "-bsp2aas", "-reach", "maps/a.bsp"}, r.Command("maps/a.bsp"))
	assert.Equal(t, []string{"-bsp2aas", "-reach"}, r.Args)
}

func TestFindCompiler(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "mbspc.exe")
	require.NoError(t, os.WriteFile(present, nil, 0o755))

	got, err := findCompiler(present, nil)
	require.NoError(t, err)
	assert.Equal(t, present, got)

	_, err = findCompiler(filepath.Join(dir, "missing"), nil)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err = findCompiler("", []string{filepath.Join(dir, "nope"), dir, present})
	require.NoError(t, err)
	assert.Equal(t, present, got)
}

func TestLocateAAS_Missing(t *testing.T) {
	_, ok := LocateAAS(filepath.Join(t.TempDir(), "q3r_none.bsp"), t.TempDir())
	assert.False(t, ok)
}

func TestDefaultAASPath(t *testing.T) {
	assert.Equal(t, filepath.Join("maps", "q3r_beach.aas"), DefaultAASPath(filepath.Join("maps", "q3r_beach.bsp")))
}

func TestRunner_OverlongLineDrainsOutput(t *testing.T) {
	stub := writeStub(t, "#!/bin/sh\nhead -c 200000 /dev/zero | tr '\\000' x\necho\necho done\nexit 0\n")
	bsp := writeBSP(t, t.TempDir(), "noisy.bsp")

	old := maxLineSize
	maxLineSize = 1024
	t.Cleanup(func() { maxLineSize = old })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r := &Runner{Compiler: stub, Log: zerolog.Nop()}
	err := r.Run(ctx, bsp)
	assert.ErrorIs(t, err, bufio.ErrTooLong)
	assert.NoError(t, ctx.Err())
}
