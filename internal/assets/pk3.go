package assets

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CollectPk3s returns the pk3 files under dir in Quake 3 load order:
// pak0-9 at the top level first (numerically), then every other pk3
// alphabetically.
func CollectPk3s(dir string) []string {
	var pakFiles []string
	var otherFiles []string

	filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		lowerName := strings.ToLower(d.Name())
		if !strings.HasSuffix(lowerName, ".pk3") {
			return nil
		}

		isRootLevel := filepath.Dir(path) == filepath.Clean(dir)
		if isRootLevel && strings.HasPrefix(lowerName, "pak") && len(lowerName) == 8 {
			if c := lowerName[3]; c >= '0' && c <= '9' {
				pakFiles = append(pakFiles, path)
				return nil
			}
		}
		otherFiles = append(otherFiles, path)
		return nil
	})

	sort.Strings(pakFiles)
	sort.Strings(otherFiles)
	return append(pakFiles, otherFiles...)
}

// isMapEntry reports whether a zip entry name is a BSP under maps/.
func isMapEntry(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "maps/") && strings.HasSuffix(lower, ".bsp")
}

// ListPk3Maps returns the maps/*.bsp entries of a pk3 in archive order.
func ListPk3Maps(pk3Path string) ([]string, error) {
	var maps []string
	err := IteratePk3(pk3Path, func(name string, _ func() (io.ReadCloser, error)) error {
		if isMapEntry(name) {
			maps = append(maps, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return maps, nil
}

// IndexMaps maps each lowered map name (e.g. "q3r_beach") to the pk3 that
// provides it. Later pk3s override earlier ones, as in the game.
func IndexMaps(pk3Paths []string) (map[string]string, error) {
	index := make(map[string]string)
	for _, pk3Path := range pk3Paths {
		maps, err := ListPk3Maps(pk3Path)
		if err != nil {
			return nil, err
		}
		for _, m := range maps {
			index[strings.ToLower(MapName(m))] = pk3Path
		}
	}
	return index, nil
}

// IteratePk3 calls fn for each entry of a pk3.
func IteratePk3(pk3Path string, fn func(name string, open func() (io.ReadCloser, error)) error) error {
	r, err := zip.OpenReader(pk3Path)
	if err != nil {
		return fmt.Errorf("open pk3 %s: %w", pk3Path, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := fn(f.Name, f.Open); err != nil {
			return err
		}
	}
	return nil
}

// maxMapEntrySize caps how large a map inside a pk3 may claim to be.
const maxMapEntrySize = 256 << 20

// ParseBSPFromPk3 parses the BSP stored at mapPath inside a pk3 (matched
// case-insensitively). Stored entries are read in place through the archive
// file; deflated entries have to be inflated into memory first.
func ParseBSPFromPk3(pk3Path, mapPath string, opts Options) (*BSPSummary, error) {
	display := pk3Path + ":" + mapPath

	f, err := os.Open(pk3Path)
	if err != nil {
		return nil, &ParseError{Path: display, Stage: StageOpen, Lump: NoLump, Err: err}
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, &ParseError{Path: display, Stage: StageOpen, Lump: NoLump, Err: err}
	}
	zr, err := zip.NewReader(f, fi.Size())
	if err != nil {
		return nil, &ParseError{Path: display, Stage: StageOpen, Lump: NoLump, Err: fmt.Errorf("open pk3: %w", err)}
	}

	lowerTarget := strings.ToLower(mapPath)
	for _, zf := range zr.File {
		if strings.ToLower(zf.Name) != lowerTarget {
			continue
		}
		if zf.UncompressedSize64 > maxMapEntrySize {
			return nil, &ParseError{Path: display, Stage: StageOpen, Lump: NoLump,
				Err: fmt.Errorf("%w: %s declares %d bytes, limit is %d", zip.ErrFormat, zf.Name, zf.UncompressedSize64, maxMapEntrySize)}
		}

		if zf.Method == zip.Store {
			off, err := zf.DataOffset()
			if err != nil {
				return nil, &ParseError{Path: display, Stage: StageOpen, Lump: NoLump, Err: err}
			}
			size := int64(zf.CompressedSize64)
			if zf.UncompressedSize64 != zf.CompressedSize64 || off+size > fi.Size() {
				return nil, &ParseError{Path: display, Stage: StageOpen, Lump: NoLump,
					Err: fmt.Errorf("%w: stored entry %s (%d bytes at %d) does not fit in %d-byte archive", zip.ErrFormat, zf.Name, size, off, fi.Size())}
			}
			return ParseBSPReader(io.NewSectionReader(f, off, size), size, display, opts)
		}

		rc, err := zf.Open()
		if err != nil {
			return nil, &ParseError{Path: display, Stage: StageOpen, Lump: NoLump, Err: err}
		}
		limit := int64(zf.UncompressedSize64)
		data, err := io.ReadAll(io.LimitReader(rc, limit+1))
		rc.Close()
		if err == nil && int64(len(data)) > limit {
			err = fmt.Errorf("%w: %s inflates past its declared %d bytes", zip.ErrFormat, zf.Name, limit)
		}
		if err != nil {
			return nil, &ParseError{Path: display, Stage: StageOpen, Lump: NoLump, Err: fmt.Errorf("inflate: %w", err)}
		}
		return ParseBSPReader(bytes.NewReader(data), int64(len(data)), display, opts)
	}

	return nil, &ParseError{
		Path:  display,
		Stage: StageOpen,
		Lump:  NoLump,
		Err:   fmt.Errorf("%s not found in %s: %w", mapPath, pk3Path, os.ErrNotExist),
	}
}
