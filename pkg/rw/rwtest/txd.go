package rwtest

import "github.com/Faultbox/rwexport/pkg/rw"

// TextureSpec describes a single-level D3D8 native texture.
type TextureSpec struct {
	Name         string
	Width        uint16
	Height       uint16
	RasterFormat uint32
	Depth        uint8
	Compression  uint8
	Palette      []byte
	Data         []byte
}

// TextureDictionary serializes textures as a .txd stream.
func TextureDictionary(textures ...TextureSpec) []byte {
	var w Writer
	w.Chunk(rw.ChunkTexDictionary, func(w *Writer) {
		w.Chunk(rw.ChunkStruct, func(w *Writer) {
			w.U16(uint16(len(textures)))
			w.U16(0)
		})
		for _, t := range textures {
			w.NativeTexture(t)
		}
		w.Extension()
	})
	return w.Bytes()
}

// NativeTexture writes a TEXTURENATIVE chunk for the D3D8 platform.
func (w *Writer) NativeTexture(t TextureSpec) {
	w.Chunk(rw.ChunkTextureNative, func(w *Writer) {
		w.Chunk(rw.ChunkStruct, func(w *Writer) {
			w.U32(rw.PlatformD3D8)
			w.U32(0x1106)
			w.Fixed(t.Name, 32)
			w.Fixed("", 32)
			w.U32(t.RasterFormat)
			w.U32(1) // has alpha
			w.U16(t.Width)
			w.U16(t.Height)
			w.U8(t.Depth)
			w.U8(1) // levels
			w.U8(4) // texture raster
			w.U8(t.Compression)
			w.Raw(t.Palette)
			w.U32(uint32(len(t.Data)))
			w.Raw(t.Data)
		})
		w.Extension()
	})
}
