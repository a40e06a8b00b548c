package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// Options controls how forgiving ParseBSP is.
type Options struct {
	// Strict turns warnings (wrong magic, wrong version, a partial texture
	// record) into errors.
	Strict bool
}

// BSPSummary is everything the tool reports about one BSP file.
type BSPSummary struct {
	Path     string
	Name     string
	Title    string
	FileSize int64
	Magic    [4]byte
	Version  uint32
	Lumps    [bspNumLumps]LumpEntry

	BrushCount  int
	FaceCount   int
	VertexCount int
	Textures    []TextureInfo
	Entities    []Entity

	// Warnings are problems that did not stop the parse.
	Warnings []error
}

// TextureNames returns the texture names in lump order.
func (s *BSPSummary) TextureNames() []string {
	return TextureNames(s.Textures)
}

// Worldspawn returns the first worldspawn entity.
func (s *BSPSummary) Worldspawn() (Entity, bool) {
	for _, e := range s.Entities {
		if e.ClassName() == "worldspawn" {
			return e, true
		}
	}
	return Entity{}, false
}

type summaryJSON struct {
	Path        string        `json:"path"`
	Name        string        `json:"name"`
	Title       string        `json:"title,omitempty"`
	FileSize    int64         `json:"file_size"`
	Magic       string        `json:"magic"`
	Version     uint32        `json:"version"`
	BrushCount  int           `json:"brushes"`
	FaceCount   int           `json:"faces"`
	VertexCount int           `json:"vertices"`
	Textures    []TextureInfo `json:"textures"`
	Entities    []Entity      `json:"entities"`
	Warnings    []string      `json:"warnings,omitempty"`
}

func (s *BSPSummary) MarshalJSON() ([]byte, error) {
	out := summaryJSON{
		Path:        s.Path,
		Name:        s.Name,
		Title:       s.Title,
		FileSize:    s.FileSize,
		Magic:       string(s.Magic[:]),
		Version:     s.Version,
		BrushCount:  s.BrushCount,
		FaceCount:   s.FaceCount,
		VertexCount: s.VertexCount,
		Textures:    s.Textures,
		Entities:    s.Entities,
	}
	for _, w := range s.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}
	return json.Marshal(out)
}

// ParseBSP parses the Q3 BSP file at path with default (lenient) options.
func ParseBSP(path string) (*BSPSummary, error) {
	return ParseBSPWithOptions(path, Options{})
}

// ParseBSPWithOptions opens path and parses it. Only the header and the
// entities and textures lumps are read from disk.
func ParseBSPWithOptions(path string, opts Options) (*BSPSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Stage: StageOpen, Lump: NoLump, Err: err}
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, &ParseError{Path: path, Stage: StageOpen, Lump: NoLump, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return nil, &ParseError{Path: path, Stage: StageOpen, Lump: NoLump, Err: fmt.Errorf("not a regular file")}
	}

	return ParseBSPReader(f, fi.Size(), path, opts)
}

// ParseBSPReader parses a BSP of the given size from r. path is only used
// for the map name and error messages.
func ParseBSPReader(r io.ReaderAt, size int64, path string, opts Options) (*BSPSummary, error) {
	fail := func(stage Stage, lump Lump, err error) (*BSPSummary, error) {
		return nil, &ParseError{Path: path, Stage: stage, Lump: lump, Err: err}
	}

	dir, err := ReadLumpDirectory(r, size)
	if err != nil {
		var oob *LumpOutOfBoundsError
		if errors.As(err, &oob) {
			return fail(StageDirectory, oob.Lump, err)
		}
		return fail(StageHeader, NoLump, err)
	}
	if opts.Strict && len(dir.Warnings) > 0 {
		return fail(StageHeader, NoLump, dir.Warnings[0])
	}

	summary := &BSPSummary{
		Path:     path,
		Name:     MapName(path),
		FileSize: size,
		Magic:    dir.Magic,
		Version:  dir.Version,
		Lumps:    dir.Lumps,
		Warnings: append([]error(nil), dir.Warnings...),
	}

	entData, err := dir.ReadLump(LumpEntities)
	if err != nil {
		return fail(StageEntities, LumpEntities, err)
	}
	if summary.Entities, err = ParseEntities(entData); err != nil {
		return fail(StageEntities, LumpEntities, err)
	}

	texData, err := dir.ReadLump(LumpTextures)
	if err != nil {
		return fail(StageTextures, LumpTextures, err)
	}
	summary.Textures, err = DecodeTextures(texData)
	if err != nil {
		if opts.Strict {
			return fail(StageTextures, LumpTextures, err)
		}
		summary.Warnings = append(summary.Warnings, err)
	}

	for _, c := range []struct {
		lump Lump
		dst  *int
	}{
		{LumpBrushes, &summary.BrushCount},
		{LumpVertexes, &summary.VertexCount},
		{LumpFaces, &summary.FaceCount},
	} {
		n, err := CountRecords(c.lump, dir.Entry(c.lump).Length)
		if err != nil {
			return fail(StageCounts, c.lump, err)
		}
		*c.dst = n
	}

	if ws, ok := summary.Worldspawn(); ok {
		summary.Title, _ = ws.Get("message")
	}

	return summary, nil
}
