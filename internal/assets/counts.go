package assets

import (
	"fmt"
	"strings"
)

// recordSizes are the fixed v46 record sizes of the lumps that are counted
// rather than decoded.
var recordSizes = map[Lump]int{
	LumpBrushes:  bspBrushSize,
	LumpVertexes: bspVertexSize,
	LumpFaces:    bspFaceSize,
}

// CountRecords returns how many records of lump l fit in a lump of the given
// length. The length must be an exact multiple of the record size.
func CountRecords(l Lump, length uint32) (int, error) {
	size, ok := recordSizes[l]
	if !ok {
		return 0, fmt.Errorf("no record size for lump %d (%s)", int(l), l)
	}
	if int(length)%size != 0 {
		return 0, &MisalignedLumpError{Lump: l, Length: length, Stride: size}
	}
	return int(length) / size, nil
}

// MapName derives a map's display name from its path: the last path element
// (either separator) without its extension. It does not touch the
// filesystem.
func MapName(path string) string {
	base := path
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}
