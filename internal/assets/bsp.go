package assets

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	bspMagic      = "IBSP"
	bspVersion    = 0x2E
	bspNumLumps   = 17
	bspHeaderSize = 8 + bspNumLumps*8 // magic(4) + version(4) + 17 lumps * (offset(4) + length(4))

	bspTextureSize  = 72 // 64 bytes name + 2x int32
	bspTextureName  = 64
	bspBrushSize    = 12 // firstside, numsides, texture
	bspVertexSize   = 44 // position, 2x texcoord, normal, rgba
	bspFaceSize     = 104
	bspLumpEntryLen = 8
)

// Lump identifies one of the 17 fixed lumps of a Q3 BSP file.
type Lump int

const (
	LumpEntities Lump = iota
	LumpTextures
	LumpPlanes
	LumpNodes
	LumpLeafs
	LumpLeafFaces
	LumpLeafBrushes
	LumpModels
	LumpBrushes
	LumpBrushSides
	LumpVertexes
	LumpMeshVerts
	LumpShaders
	LumpFaces
	LumpLightmaps
	LumpLightGrid
	LumpVisdata
)

var lumpNames = [bspNumLumps]string{
	"Entities", "Textures", "Planes", "Nodes", "Leafs", "LeafFaces",
	"LeafBrushes", "Models", "Brushes", "BrushSides", "Vertexes",
	"MeshVerts", "Shaders", "Faces", "Lightmaps", "LightGrid", "Visdata",
}

func (l Lump) String() string {
	if l < 0 || int(l) >= bspNumLumps {
		return fmt.Sprintf("Lump(%d)", int(l))
	}
	return lumpNames[l]
}

// LumpEntry is one record of the lump directory.
type LumpEntry struct {
	Offset uint32
	Length uint32
}

// End returns offset+length without wrapping.
func (e LumpEntry) End() int64 {
	return int64(e.Offset) + int64(e.Length)
}

// LumpDirectory is the parsed BSP header: magic, version and the 17 lump
// descriptors. Warnings holds magic/version mismatches that did not stop
// the read.
type LumpDirectory struct {
	Magic    [4]byte
	Version  uint32
	Lumps    [bspNumLumps]LumpEntry
	Size     int64
	Warnings []error

	r io.ReaderAt
}

// ReadLumpDirectory reads and bounds-checks the header of a BSP file of the
// given size. A wrong magic or version is recorded in Warnings and the
// directory is still returned; truncated headers and out-of-range lumps are
// errors.
func ReadLumpDirectory(r io.ReaderAt, size int64) (*LumpDirectory, error) {
	if size < bspHeaderSize {
		return nil, &TruncatedHeaderError{Size: size, Need: bspHeaderSize}
	}

	header := make([]byte, bspHeaderSize)
	if _, err := r.ReadAt(header, 0); err != nil {
		return nil, fmt.Errorf("read BSP header: %w", err)
	}

	dir := &LumpDirectory{Size: size, r: r}
	copy(dir.Magic[:], header[0:4])
	dir.Version = binary.LittleEndian.Uint32(header[4:8])

	if string(dir.Magic[:]) != bspMagic {
		dir.Warnings = append(dir.Warnings, &BadMagicError{
			Got:  dir.Magic[:],
			Want: []byte(bspMagic),
		})
	}
	if dir.Version != bspVersion {
		dir.Warnings = append(dir.Warnings, &VersionMismatchError{Got: dir.Version, Want: bspVersion})
	}

	for i := range dir.Lumps {
		base := 8 + i*bspLumpEntryLen
		entry := LumpEntry{
			Offset: binary.LittleEndian.Uint32(header[base:]),
			Length: binary.LittleEndian.Uint32(header[base+4:]),
		}
		if entry.End() > size {
			return nil, &LumpOutOfBoundsError{Lump: Lump(i), Entry: entry, FileSize: size}
		}
		dir.Lumps[i] = entry
	}

	return dir, nil
}

// Entry returns the directory record for lump l.
func (d *LumpDirectory) Entry(l Lump) LumpEntry {
	return d.Lumps[l]
}

// Section returns a bounded reader over the payload of lump l. Nothing is
// read until the caller reads from it.
func (d *LumpDirectory) Section(l Lump) *io.SectionReader {
	e := d.Lumps[l]
	return io.NewSectionReader(d.r, int64(e.Offset), int64(e.Length))
}

// ReadLump copies the full payload of lump l.
func (d *LumpDirectory) ReadLump(l Lump) ([]byte, error) {
	e := d.Lumps[l]
	if e.Length == 0 {
		return nil, nil
	}
	data := make([]byte, e.Length)
	if _, err := io.ReadFull(d.Section(l), data); err != nil {
		return nil, fmt.Errorf("read %s lump: %w", l, err)
	}
	return data, nil
}
