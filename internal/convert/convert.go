// Package convert turns RenderWare files into export outputs on disk.
//
// Every output is rendered fully in memory before anything is written. The
// outputs of one input are staged as temporary files in the output directory
// and renamed into place only once all of them were written.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/rwexport/internal/config"
	"github.com/Faultbox/rwexport/pkg/amf"
	"github.com/Faultbox/rwexport/pkg/dff"
	"github.com/Faultbox/rwexport/pkg/export"
	"github.com/Faultbox/rwexport/pkg/rw"
	"github.com/Faultbox/rwexport/pkg/scene"
)

// Convert errors.
var (
	ErrIO              = errors.New("I/O failure")
	ErrUnsupportedFile = errors.New("unsupported file type")
)

// Source file extensions.
const (
	ExtModel    = ".dff"
	ExtTextures = ".txd"
)

// Options controls what a Converter writes.
type Options struct {
	OutputDir     string
	JSON          bool
	AMF           bool
	TextureFormat string
	Indent        int
	Policy        scene.Policy
	Workers       int
}

// OptionsFromConfig maps the loaded configuration onto converter options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		OutputDir:     cfg.Export.OutputDir,
		JSON:          cfg.WantsFormat(config.FormatJSON),
		AMF:           cfg.WantsFormat(config.FormatAMF),
		TextureFormat: strings.ToLower(cfg.Export.TextureFormat),
		Indent:        cfg.Export.Indent,
		Policy: scene.Policy{
			LODMarker:    cfg.Naming.LODMarker,
			DamageMarker: cfg.Naming.DamageMarker,
		},
		Workers: cfg.WorkerCount(),
	}
}

// Converter exports models and texture dictionaries.
type Converter struct {
	opts Options
	log  *zap.Logger
}

// New creates a Converter. A nil logger discards all output.
func New(opts Options, log *zap.Logger) *Converter {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.TextureFormat == "" {
		opts.TextureFormat = config.TexturePNG
	}
	return &Converter{opts: opts, log: log}
}

// output is one rendered file waiting to be written.
type output struct {
	name string
	data []byte
}

// File converts a file on disk, choosing the pipeline by extension.
func (c *Converter) File(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return c.Convert(filepath.Base(path), data)
}

// Convert converts a named in-memory file, choosing the pipeline by the
// extension of name. It returns the paths written.
func (c *Converter) Convert(name string, data []byte) ([]string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ExtModel:
		return c.Model(name, data)
	case ExtTextures:
		return c.Textures(name, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, name)
	}
}

// Model exports a clump to every enabled model format.
func (c *Converter) Model(name string, data []byte) ([]string, error) {
	sc, err := dff.Decode(data)
	if err != nil {
		return nil, err
	}
	frames, err := sc.Prepare(c.opts.Policy)
	if err != nil {
		return nil, err
	}

	base := BaseName(name)
	var outputs []output
	if c.opts.JSON {
		text, err := export.Marshal(frames, c.opts.Indent)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, output{base + ".json", text})
	}
	if c.opts.AMF {
		file, err := amf.FromExport(frames)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, output{base + ".amf", amf.Encode(file)})
	}

	c.log.Debug("decoded model",
		zap.String("file", name),
		zap.Int("frames", len(sc.Frames)),
		zap.Int("exported", len(frames)),
		zap.Int("geometries", len(sc.Geometries)),
		zap.Int("vertices", sc.VertexCount()),
		zap.Int("lights", len(sc.Lights)),
	)
	return c.writeAll(outputs)
}

// Textures exports every texture of a dictionary as an image.
func (c *Converter) Textures(name string, data []byte) ([]string, error) {
	txd, err := rw.ParseTextureDictionary(data)
	if err != nil {
		return nil, err
	}

	outputs := make([]output, 0, len(txd.Textures))
	for i, tex := range txd.Textures {
		img, err := textureImage(tex)
		if err != nil {
			return nil, fmt.Errorf("texture %d %q: %w", i, tex.Name, err)
		}
		encoded, err := encodeImage(img, c.opts.TextureFormat)
		if err != nil {
			return nil, fmt.Errorf("texture %d %q: %w", i, tex.Name, err)
		}
		texName := strings.ToLower(tex.Name)
		if texName == "" {
			texName = fmt.Sprintf("%s_%d", BaseName(name), i)
		}
		c.log.Debug("decoded texture",
			zap.String("file", name),
			zap.String("texture", tex.Name),
			zap.Int("width", tex.Width()),
			zap.Int("height", tex.Height()),
			zap.Uint8("depth", tex.Depth),
			zap.Uint32("raster", tex.RasterFormat),
		)
		outputs = append(outputs, output{texName + "." + c.opts.TextureFormat, encoded})
	}
	return c.writeAll(outputs)
}

// writeAll stages every output as a temporary file in the output directory
// before renaming any of them, so a failure leaves no outputs behind.
func (c *Converter) writeAll(outputs []output) ([]string, error) {
	if err := os.MkdirAll(c.opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	staged := make([]string, 0, len(outputs))
	defer func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}()
	for _, o := range outputs {
		tmp, err := writeTemp(c.opts.OutputDir, o.data)
		if err != nil {
			return nil, fmt.Errorf("writing %s: %w", o.name, err)
		}
		staged = append(staged, tmp)
	}

	paths := make([]string, 0, len(outputs))
	for i, o := range outputs {
		dst := filepath.Join(c.opts.OutputDir, o.name)
		if err := os.Rename(staged[i], dst); err != nil {
			for _, p := range paths {
				os.Remove(p)
			}
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		}
		paths = append(paths, dst)
	}
	return paths, nil
}

// writeTemp writes data to a new temporary file in dir and returns its path.
func writeTemp(dir string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, ".rwexport-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	return tmp.Name(), nil
}

// textureFileName reduces a texture name to a lowercase file name with no
// directory part. It returns "" when nothing usable is left.
func textureFileName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	switch base {
	case ".", "..", "/":
		return ""
	}
	return strings.ToLower(base)
}

// BaseName strips the directory and final extension of a path or archive
// entry name and lowercases the rest.
func BaseName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

// Kind names the failure class of an export error for diagnostics.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, rw.ErrTruncatedStream):
		return "TruncatedStream"
	case errors.Is(err, rw.ErrUnexpectedChunkType):
		return "UnexpectedChunkType"
	case errors.Is(err, dff.ErrEmptyModel):
		return "EmptyModel"
	case errors.Is(err, ErrIO):
		return "IOFailure"
	case errors.Is(err, rw.ErrUnsupportedPlatform):
		return "UnsupportedPlatform"
	case errors.Is(err, rw.ErrUnsupportedRaster):
		return "UnsupportedRaster"
	case errors.Is(err, rw.ErrBadMaterialRef):
		return "BadMaterialRef"
	case errors.Is(err, ErrUnsupportedFile):
		return "UnsupportedFile"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Cancelled"
	default:
		return "Unknown"
	}
}
