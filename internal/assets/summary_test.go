package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"io/fs"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalBSP() *bspBuilder {
	return newBSP().lump(LumpEntities, []byte("{\"classname\" \"worldspawn\"}\x00"))
}

func TestParseBSP_Minimal(t *testing.T) {
	path := writeFile(t, "minimal.bsp", minimalBSP().bytes())

	s, err := ParseBSP(path)
	require.NoError(t, err)

	require.Len(t, s.Entities, 1)
	assert.Equal(t, "worldspawn", s.Entities[0].ClassName())
	assert.Zero(t, s.BrushCount)
	assert.Zero(t, s.FaceCount)
	assert.Zero(t, s.VertexCount)
	assert.Empty(t, s.Textures)
	assert.Empty(t, s.Warnings)
	assert.Equal(t, "minimal", s.Name)
	assert.Equal(t, "", s.Title)
	assert.EqualValues(t, bspHeaderSize+27, s.FileSize)
	assert.EqualValues(t, 46, s.Version)
	assert.Equal(t, path, s.Path)
}

func TestParseBSP_Full(t *testing.T) {
	entities := `{
"classname" "worldspawn"
"message" "Q3Rally Beach"
}
{
"classname" "info_player_start"
"origin" "0 0 64"
}
`
	textures := append(textureRecord("textures/base_wall/concrete", 0, 1), textureRecord("textures/q3rally/sand", 0x10, 1)...)
	data := newBSP().
		lump(LumpEntities, []byte(entities+"\x00")).
		lump(LumpTextures, textures).
		lump(LumpPlanes, make([]byte, 16*3)).
		lump(LumpBrushes, make([]byte, 36)).
		lump(LumpVertexes, make([]byte, 44*5)).
		lump(LumpFaces, make([]byte, 104*2)).
		lump(LumpVisdata, make([]byte, 4096)).
		bytes()
	path := writeFile(t, "q3r_beach.bsp", data)

	s, err := ParseBSP(path)
	require.NoError(t, err)

	assert.Equal(t, "q3r_beach", s.Name)
	assert.Equal(t, "Q3Rally Beach", s.Title)
	assert.Equal(t, 3, s.BrushCount)
	assert.Equal(t, 5, s.VertexCount)
	assert.Equal(t, 2, s.FaceCount)
	assert.Equal(t, []string{"textures/base_wall/concrete", "textures/q3rally/sand"}, s.TextureNames())
	require.Len(t, s.Entities, 2)
	assert.Equal(t, "info_player_start", s.Entities[1].ClassName())
	assert.EqualValues(t, len(data), s.FileSize)
	assert.EqualValues(t, 4096, s.Lumps[LumpVisdata].Length)
}

func TestParseBSPReader_DoesNotReadUndecodedLumps(t *testing.T) {
	data := minimalBSP().
		lump(LumpTextures, textureRecord("textures/common/caulk", 0, 0)).
		lump(LumpLightmaps, make([]byte, 128*128*3)).
		lump(LumpVisdata, make([]byte, 8192)).
		bytes()
	rec := &recordingReaderAt{r: bytes.NewReader(data)}

	s, err := ParseBSPReader(rec, int64(len(data)), "rec.bsp", Options{})
	require.NoError(t, err)

	assert.True(t, rec.touched(s.Lumps[LumpEntities]))
	assert.True(t, rec.touched(s.Lumps[LumpTextures]))
	assert.False(t, rec.touched(s.Lumps[LumpLightmaps]))
	assert.False(t, rec.touched(s.Lumps[LumpVisdata]))
}

func TestParseBSP_OpenError(t *testing.T) {
	_, err := ParseBSP(t.TempDir() + "/missing.bsp")

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageOpen, pe.Stage)
	assert.Equal(t, NoLump, pe.Lump)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	var pathErr *fs.PathError
	assert.ErrorAs(t, err, &pathErr)
}

func TestParseBSP_Directory(t *testing.T) {
	_, err := ParseBSP(t.TempDir())

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageOpen, pe.Stage)
	assert.ErrorContains(t, err, "not a regular file")
}

func TestParseBSP_StageErrors(t *testing.T) {
	truncated := minimalBSP().bytes()[:100]

	outOfBounds := minimalBSP().bytes()
	setEntry(outOfBounds, LumpLeafs, 10, 1<<20)

	unbalanced := newBSP().lump(LumpEntities, []byte("{\n\"classname\" \"worldspawn\"\n")).bytes()
	misaligned := minimalBSP().lump(LumpBrushes, make([]byte, 13)).bytes()

	tests := []struct {
		name     string
		data     []byte
		stage    Stage
		lump     Lump
		sentinel error
	}{
		{"truncated", truncated, StageHeader, NoLump, ErrTruncatedHeader},
		{"out of bounds", outOfBounds, StageDirectory, LumpLeafs, ErrLumpOutOfBounds},
		{"unbalanced", unbalanced, StageEntities, LumpEntities, ErrUnbalancedBraces},
		{"misaligned", misaligned, StageCounts, LumpBrushes, ErrMisaligned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "bad.bsp", tt.data)
			s, err := ParseBSP(path)
			assert.Nil(t, s)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.stage, pe.Stage)
			assert.Equal(t, tt.lump, pe.Lump)
			assert.Equal(t, path, pe.Path)
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestParseBSP_Warnings(t *testing.T) {
	b := minimalBSP().lump(LumpTextures, append(textureRecord("textures/a", 0, 0), 1, 2, 3))
	b.version = 47
	path := writeFile(t, "warn.bsp", b.bytes())

	s, err := ParseBSP(path)
	require.NoError(t, err)
	require.Len(t, s.Warnings, 2)
	assert.ErrorIs(t, s.Warnings[0], ErrVersionMismatch)
	assert.ErrorIs(t, s.Warnings[1], ErrPartialTexture)
	assert.Equal(t, []string{"textures/a"}, s.TextureNames())
	assert.EqualValues(t, 47, s.Version)

	_, err = ParseBSPWithOptions(path, Options{Strict: true})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageHeader, pe.Stage)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestParseBSP_StrictPartialTexture(t *testing.T) {
	path := writeFile(t, "partial.bsp", minimalBSP().lump(LumpTextures, make([]byte, 80)).bytes())

	_, err := ParseBSPWithOptions(path, Options{Strict: true})
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageTextures, pe.Stage)
	assert.Equal(t, LumpTextures, pe.Lump)
}

func TestParseBSP_BadMagicContinues(t *testing.T) {
	b := minimalBSP()
	b.magic = "QBSP"
	path := writeFile(t, "magic.bsp", b.bytes())

	s, err := ParseBSP(path)
	require.NoError(t, err)
	require.Len(t, s.Warnings, 1)

	var bm *BadMagicError
	require.ErrorAs(t, s.Warnings[0], &bm)
	assert.Equal(t, []byte("QBSP"), bm.Got)
	assert.Len(t, s.Entities, 1)
}

func TestParseBSP_Concurrent(t *testing.T) {
	data := minimalBSP().
		lump(LumpTextures, textureRecord("textures/q3rally/mud", 0, 0)).
		lump(LumpFaces, make([]byte, 104*4)).
		bytes()
	path := writeFile(t, "shared.bsp", data)

	want, err := ParseBSP(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*BSPSummary, 16)
	errs := make([]error, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = ParseBSP(path)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		require.NoError(t, errs[i])
		if diff := cmp.Diff(want, got, cmp.AllowUnexported(Entity{}), cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("parse %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestBSPSummaryMarshalJSON(t *testing.T) {
	b := minimalBSP()
	b.version = 47
	s, err := ParseBSPReader(bytes.NewReader(b.bytes()), int64(len(b.bytes())), "maps/x.bsp", Options{})
	require.NoError(t, err)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "x", out["name"])
	assert.Equal(t, "IBSP", out["magic"])
	assert.EqualValues(t, 47, out["version"])
	assert.Equal(t, []any{map[string]any{"classname": "worldspawn"}}, out["entities"])
	assert.Equal(t, []any{"unsupported BSP version: 47 (want 46)"}, out["warnings"])
}
