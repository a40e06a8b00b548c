package assets

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// bspBuilder lays out a synthetic BSP: header first, then each lump in
// index order.
type bspBuilder struct {
	magic   string
	version uint32
	lumps   [bspNumLumps][]byte
}

func newBSP() *bspBuilder {
	return &bspBuilder{magic: bspMagic, version: bspVersion}
}

func (b *bspBuilder) lump(l Lump, data []byte) *bspBuilder {
	b.lumps[l] = data
	return b
}

func (b *bspBuilder) bytes() []byte {
	buf := make([]byte, bspHeaderSize)
	copy(buf[0:4], b.magic)
	binary.LittleEndian.PutUint32(buf[4:], b.version)
	for i, data := range b.lumps {
		binary.LittleEndian.PutUint32(buf[8+i*8:], uint32(len(buf)))
		binary.LittleEndian.PutUint32(buf[12+i*8:], uint32(len(data)))
		buf = append(buf, data...)
	}
	return buf
}

// setEntry overwrites a directory entry in an already built file.
func setEntry(data []byte, l Lump, offset, length uint32) {
	binary.LittleEndian.PutUint32(data[8+int(l)*8:], offset)
	binary.LittleEndian.PutUint32(data[12+int(l)*8:], length)
}

func textureRecord(name string, flags, contents int32) []byte {
	rec := make([]byte, bspTextureSize)
	copy(rec, name)
	binary.LittleEndian.PutUint32(rec[64:], uint32(flags))
	binary.LittleEndian.PutUint32(rec[68:], uint32(contents))
	return rec
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// recordingReaderAt remembers every byte range read through it.
type recordingReaderAt struct {
	r     io.ReaderAt
	mu    sync.Mutex
	reads [][2]int64
}

func (r *recordingReaderAt) ReadAt(p []byte, off int64) (int, error) {
	r.mu.Lock()
	r.reads = append(r.reads, [2]int64{off, off + int64(len(p))})
	r.mu.Unlock()
	return r.r.ReadAt(p, off)
}

func (r *recordingReaderAt) touched(e LumpEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rd := range r.reads {
		if rd[0] < e.End() && rd[1] > int64(e.Offset) {
			return true
		}
	}
	return false
}

// newEntity builds an entity from alternating key, value arguments.
func newEntity(kv ...string) Entity {
	var e Entity
	for i := 0; i+1 < len(kv); i += 2 {
		e.set(kv[i], kv[i+1])
	}
	return e
}
