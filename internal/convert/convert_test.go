package convert

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/image/bmp"

	"github.com/Faultbox/rwexport/internal/config"
	"github.com/Faultbox/rwexport/pkg/amf"
	"github.com/Faultbox/rwexport/pkg/dff"
	"github.com/Faultbox/rwexport/pkg/export"
	"github.com/Faultbox/rwexport/pkg/rw"
	"github.com/Faultbox/rwexport/pkg/rw/rwtest"
	"github.com/Faultbox/rwexport/pkg/scene"
)

func doorModel() []byte {
	return rwtest.Clump(rwtest.ClumpSpec{
		Frames: []rwtest.FrameSpec{
			{Name: "root", Parent: -1, Rotation: rwtest.Identity},
			{Name: "door_dam", Parent: 0, Rotation: rwtest.Identity},
			{Name: "door_vlo", Parent: 0, Rotation: rwtest.Identity},
		},
		Geometries: []rwtest.GeometrySpec{{
			FaceType:  1,
			Vertices:  []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
			TexCoords: []float32{0.5, 0.5},
			Materials: []rwtest.MaterialSpec{{Texture: "metal", Color: [4]uint8{10, 20, 30, 255}}},
			Splits:    []rwtest.SplitSpec{{Material: 0, Indices: []uint32{0, 1, 2}}},
		}},
		Atomics: []rwtest.AtomicSpec{{Frame: 1, Geometry: 0}},
	})
}

func remapTextures() []byte {
	// 2x1 BGRA texels: blue, then half-transparent red.
	return rwtest.TextureDictionary(rwtest.TextureSpec{
		Name:         "Remap",
		Width:        2,
		Height:       1,
		RasterFormat: rw.Raster8888,
		Depth:        32,
		Data:         []byte{255, 0, 0, 255, 0, 0, 255, 128},
	})
}

func testConverter(t *testing.T, modify func(*Options)) (*Converter, string) {
	t.Helper()
	out := t.TempDir()
	opts := Options{
		OutputDir:     out,
		JSON:          true,
		AMF:           true,
		TextureFormat: config.TexturePNG,
		Indent:        export.DefaultIndent,
		Policy:        scene.DefaultPolicy(),
		Workers:       2,
	}
	if modify != nil {
		modify(&opts)
	}
	return New(opts, zap.NewNop()), out
}

func TestModel_WritesBothFormats(t *testing.T) {
	c, out := testConverter(t, nil)

	paths, err := c.Convert("models/Door.DFF", doorModel())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(out, "door.json"), filepath.Join(out, "door.amf")}, paths)

	text, err := os.ReadFile(filepath.Join(out, "door.json"))
	require.NoError(t, err)
	assert.Contains(t, string(text), `"facetype": "Triangle_Strip"`)
	assert.NotContains(t, string(text), "door_vlo")

	f, err := amf.DecodeFile(filepath.Join(out, "door.amf"))
	require.NoError(t, err)
	assert.Equal(t, []string{"metal"}, f.TextureNames)
	require.Len(t, f.Frames, 2)
	assert.True(t, f.Frames[1].Damaged)

	// No temporary files are left behind.
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestModel_SingleFormat(t *testing.T) {
	c, out := testConverter(t, func(o *Options) { o.JSON = false })

	paths, err := c.Convert("door.dff", doorModel())
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(out, "door.amf")}, paths)
}

func TestModel_CustomPolicy(t *testing.T) {
	c, out := testConverter(t, func(o *Options) {
		o.AMF = false
		o.Policy = scene.Policy{}
	})

	_, err := c.Convert("door.dff", doorModel())
	require.NoError(t, err)
	text, err := os.ReadFile(filepath.Join(out, "door.json"))
	require.NoError(t, err)
	assert.Contains(t, string(text), "door_vlo")
	assert.NotContains(t, string(text), `"damaged": true`)
}

func TestModel_FailureWritesNothing(t *testing.T) {
	c, out := testConverter(t, nil)

	data := doorModel()
	_, err := c.Convert("door.dff", data[:len(data)/2])
	require.Error(t, err)
	assert.Equal(t, "TruncatedStream", Kind(err))

	entries, _ := os.ReadDir(out)
	assert.Empty(t, entries)
}

func TestModel_EmptyModelWritesNothing(t *testing.T) {
	c, out := testConverter(t, nil)

	paths, err := c.Convert("x.dff", rwtest.Clump(rwtest.ClumpSpec{}))
	require.Error(t, err)
	assert.Equal(t, "EmptyModel", Kind(err))
	assert.Empty(t, paths)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestModel_PartialWriteLeavesNothing(t *testing.T) {
	c, out := testConverter(t, nil)
	// A directory in the way makes the second rename fail.
	require.NoError(t, os.Mkdir(filepath.Join(out, "door.amf"), 0755))

	_, err := c.Convert("door.dff", doorModel())
	require.Error(t, err)
	assert.Equal(t, "IOFailure", Kind(err))

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "door.amf", entries[0].Name())
	assert.True(t, entries[0].IsDir())
}

func TestModel_NonFiniteVertex(t *testing.T) {
	c, out := testConverter(t, nil)
	data := rwtest.Clump(rwtest.ClumpSpec{
		Frames: []rwtest.FrameSpec{{Name: "root", Parent: -1, Rotation: rwtest.Identity}},
		Geometries: []rwtest.GeometrySpec{{
			Vertices:  []float32{float32(math.NaN()), 0, float32(math.Inf(-1))},
			Materials: []rwtest.MaterialSpec{{Color: [4]uint8{1, 2, 3, 4}}},
			Splits:    []rwtest.SplitSpec{{Material: 0, Indices: []uint32{0}}},
		}},
		Atomics: []rwtest.AtomicSpec{{Frame: 0, Geometry: 0}},
	})

	paths, err := c.Convert("nan.dff", data)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	text, err := os.ReadFile(filepath.Join(out, "nan.json"))
	require.NoError(t, err)
	assert.Contains(t, string(text), `"x": null`)
	assert.Contains(t, string(text), `"z": null`)

	f, err := amf.DecodeFile(filepath.Join(out, "nan.amf"))
	require.NoError(t, err)
	require.Len(t, f.Frames[0].Geometry.Vertices, 1)
	assert.True(t, math.IsNaN(float64(f.Frames[0].Geometry.Vertices[0].X)))
}

func TestTextures_PNG(t *testing.T) {
	c, out := testConverter(t, nil)

	paths, err := c.Convert("vehicle.txd", remapTextures())
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(out, "remap.png")}, paths)

	f, err := os.Open(paths[0])
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, 2, img.Bounds().Dx())
	r, g, b, a := img.At(0, 0).RGBA()
	assert.Equal(t, [4]uint32{0, 0, 0xFFFF, 0xFFFF}, [4]uint32{r, g, b, a}, "first texel should be blue")
	r, g, b, a = img.At(1, 0).RGBA()
	assert.Equal(t, uint32(128*0x101), a)
	assert.NotZero(t, r)
	assert.Zero(t, g)
	assert.Zero(t, b)
}

func TestTextures_BMP(t *testing.T) {
	c, out := testConverter(t, func(o *Options) { o.TextureFormat = config.TextureBMP })

	_, err := c.Convert("vehicle.txd", remapTextures())
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(out, "remap.bmp"))
	require.NoError(t, err)
	cfg, err := bmp.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Width)
	assert.Equal(t, 1, cfg.Height)
}

func TestTextures_UnsupportedPlatform(t *testing.T) {
	c, _ := testConverter(t, nil)

	data := remapTextures()
	// Platform id is the first field of the texture struct.
	off := 3*rw.HeaderSize + 4 + rw.HeaderSize
	binary.LittleEndian.PutUint32(data[off:], 0x325350) // PS2
	_, err := c.Convert("ps2.txd", data)
	assert.Equal(t, "UnsupportedPlatform", Kind(err))
}

func TestTextures_NameStaysInOutputDir(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	c, _ := testConverter(t, func(o *Options) { o.OutputDir = out })

	data := rwtest.TextureDictionary(
		rwtest.TextureSpec{Name: "../Escaped", Width: 1, Height: 1, RasterFormat: rw.Raster8888, Depth: 32, Data: []byte{1, 2, 3, 4}},
		rwtest.TextureSpec{Name: `..\..\win`, Width: 1, Height: 1, RasterFormat: rw.Raster8888, Depth: 32, Data: []byte{1, 2, 3, 4}},
		rwtest.TextureSpec{Name: "..", Width: 1, Height: 1, RasterFormat: rw.Raster8888, Depth: 32, Data: []byte{1, 2, 3, 4}},
	)
	paths, err := c.Convert("car.txd", data)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(out, "escaped.png"),
		filepath.Join(out, "win.png"),
		filepath.Join(out, "car_2.png"),
	}, paths)
	assert.NoFileExists(t, filepath.Join(root, "escaped.png"))
}

func TestTextureFileName(t *testing.T) {
	tests := map[string]string{
		"Remap":         "remap",
		"../escaped":    "escaped",
		`a\b\Wheel`:     "wheel",
		"/abs/path/tex": "tex",
		"dir/":          "dir",
		"..":            "",
		".":             "",
		"":              "",
		"/":             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, textureFileName(in), in)
	}
}

func TestConvert_UnsupportedExtension(t *testing.T) {
	c, _ := testConverter(t, nil)
	_, err := c.Convert("readme.txt", []byte("hi"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"Infernus.DFF":          "infernus",
		`models\gta3\BUS.dff`:   "bus",
		"/tmp/a.b/wheel.tar.gz": "wheel.tar",
		"noext":                 "noext",
	}
	for in, want := range tests {
		assert.Equal(t, want, BaseName(in), in)
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("reading frame 2: %w", rw.ErrTruncatedStream), "TruncatedStream"},
		{&rw.ChunkTypeError{Want: rw.ChunkClump, Got: rw.ChunkStruct}, "UnexpectedChunkType"},
		{dff.ErrEmptyModel, "EmptyModel"},
		{fmt.Errorf("%w: %w", ErrIO, os.ErrPermission), "IOFailure"},
		{context.Canceled, "Cancelled"},
		{errors.New("boom"), "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err), "%v", tt.err)
	}
}

func TestWriteTemp_MissingDir(t *testing.T) {
	_, err := writeTemp(filepath.Join(t.TempDir(), "missing"), []byte("{}"))
	assert.ErrorIs(t, err, ErrIO)
}

func TestBatch_ContinuesPastFailures(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	c, out := testConverter(t, nil)
	c.log = zap.New(core)

	jobs := []Job{
		{Name: "good.dff", Load: func() ([]byte, error) { return doorModel(), nil }},
		{Name: "broken.dff", Load: func() ([]byte, error) { return []byte{1, 2, 3}, nil }},
		{Name: "empty.dff", Load: func() ([]byte, error) { return rwtest.Clump(rwtest.ClumpSpec{}), nil }},
		{Name: "gone.txd", Load: func() ([]byte, error) { return nil, os.ErrNotExist }},
		{Name: "remap.txd", Load: func() ([]byte, error) { return remapTextures(), nil }},
	}

	report := c.Batch(context.Background(), jobs)
	ok, failed := report.Counts()
	assert.Equal(t, 2, ok)
	assert.Equal(t, 3, failed)

	kinds := map[string]string{}
	for _, res := range report.Failed() {
		kinds[res.Name] = Kind(res.Err)
	}
	assert.Equal(t, map[string]string{
		"broken.dff": "TruncatedStream",
		"empty.dff":  "EmptyModel",
		"gone.txd":   "IOFailure",
	}, kinds)

	assert.FileExists(t, filepath.Join(out, "good.json"))
	assert.FileExists(t, filepath.Join(out, "remap.png"))
	assert.NoFileExists(t, filepath.Join(out, "broken.json"))

	failures := logs.FilterMessage("conversion failed").All()
	require.Len(t, failures, 3)
	assert.Contains(t, failures[0].ContextMap(), "kind")
}

func TestBatch_Cancelled(t *testing.T) {
	c, _ := testConverter(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := c.Batch(ctx, []Job{{Name: "a.dff", Load: func() ([]byte, error) { return doorModel(), nil }}})
	ok, failed := report.Counts()
	assert.Zero(t, ok)
	assert.Equal(t, 1, failed)
	assert.Equal(t, "Cancelled", Kind(report.Failed()[0].Err))
}

func TestDirJobs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "A.DFF"), doorModel(), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txd"), remapTextures(), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.dff"), 0755))

	jobs, err := DirJobs(dir)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "A.DFF", jobs[0].Name)

	c, out := testConverter(t, func(o *Options) { o.Workers = 1 })
	report := c.Batch(context.Background(), jobs)
	_, failed := report.Counts()
	assert.Zero(t, failed)
	assert.FileExists(t, filepath.Join(out, "a.amf"))

	_, err = DirJobs(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, ErrIO)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Export.Formats = []string{"AMF"}
	cfg.Export.TextureFormat = "TIFF"
	cfg.Export.Workers = 3
	cfg.Naming.LODMarker = "_lod"

	opts := OptionsFromConfig(cfg)
	assert.False(t, opts.JSON)
	assert.True(t, opts.AMF)
	assert.Equal(t, config.TextureTIFF, opts.TextureFormat)
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, "_lod", opts.Policy.LODMarker)
	assert.Equal(t, "_dam", opts.Policy.DamageMarker)
}
