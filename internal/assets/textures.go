package assets

import (
	"encoding/binary"
)

// TextureInfo is one record of the textures lump. Flags and Contents are
// carried through but not interpreted.
type TextureInfo struct {
	Name     string `json:"name"`
	Flags    int32  `json:"flags"`
	Contents int32  `json:"contents"`
}

// DecodeTextures decodes the textures lump. A length that is not a whole
// number of records decodes the complete ones and returns a
// *PartialTextureRecordWarning alongside them.
func DecodeTextures(data []byte) ([]TextureInfo, error) {
	count := len(data) / bspTextureSize
	textures := make([]TextureInfo, 0, count)

	for i := 0; i < count; i++ {
		rec := data[i*bspTextureSize : (i+1)*bspTextureSize]
		textures = append(textures, TextureInfo{
			Name:     DecodeLossy(nullTerminated(rec[:bspTextureName])),
			Flags:    int32(binary.LittleEndian.Uint32(rec[64:68])),
			Contents: int32(binary.LittleEndian.Uint32(rec[68:72])),
		})
	}

	if rem := len(data) % bspTextureSize; rem != 0 {
		return textures, &PartialTextureRecordWarning{Length: uint32(len(data)), Remainder: rem}
	}
	return textures, nil
}

// TextureNames returns just the names, in lump order.
func TextureNames(textures []TextureInfo) []string {
	names := make([]string, len(textures))
	for i, t := range textures {
		names[i] = t.Name
	}
	return names
}
