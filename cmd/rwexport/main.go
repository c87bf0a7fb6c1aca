// rwexport converts RenderWare models and texture dictionaries into JSON,
// AMF and image files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/rwexport/internal/config"
	"github.com/Faultbox/rwexport/internal/convert"
	"github.com/Faultbox/rwexport/internal/logger"
	"github.com/Faultbox/rwexport/pkg/amf"
	"github.com/Faultbox/rwexport/pkg/dff"
	"github.com/Faultbox/rwexport/pkg/img"
	"github.com/Faultbox/rwexport/pkg/scene"
)

func main() {
	flag.Usage = printUsage
	config.ParseFlags()

	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	command, args := args[0], args[1:]
	var code int
	switch command {
	case "dff", "txd":
		code = cmdFile(cfg, command, args)
	case "dir":
		code = cmdDir(cfg, args)
	case "img":
		code = cmdImg(cfg, args)
	case "inspect":
		code = cmdInspect(cfg, args)
	case "config":
		code = cmdConfig(cfg, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		code = 1
	}

	logger.Sync()
	os.Exit(code)
}

func printUsage() {
	fmt.Println(`rwexport - RenderWare model and texture exporter

Usage:
  rwexport [flags] <command> [arguments]

Commands:
  dff <file.dff> [out_dir]                 Export a model to JSON and AMF
  txd <file.txd> [out_dir]                 Export every texture of a dictionary
  dir <in_dir> [out_dir]                   Export every .dff and .txd in a directory
  img list <file.img> [pattern]            List archive entries (optional glob pattern)
  img extract <file.img> <name> [out_dir]  Extract entries (name may be a glob)
  img convert <file.img> [out_dir]         Export every .dff and .txd in an archive
  inspect <file.amf|file.dff>              Print a summary of a model
  config init [-user] [-force] [file]      Write the effective configuration as YAML

Flags:
  -config <file>          Config file (default ./rwexport.yaml)
  -debug                  Enable debug logging
  -workers <n>            Concurrent conversions in batch mode
  -format <list>          Model formats, comma separated (json,amf)
  -texture-format <name>  png, bmp or tiff
  -indent <n>             JSON indent width

Examples:
  rwexport dff infernus.dff ./out
  rwexport -format amf dir ./models ./out
  rwexport img list gta3.img "*.txd"
  rwexport -workers 8 img convert gta3.img ./out`)
}

// newConverter builds a converter writing to outDir, or to the configured
// output directory when outDir is empty.
func newConverter(cfg *config.Config, outDir string) *convert.Converter {
	opts := convert.OptionsFromConfig(cfg)
	if outDir != "" {
		opts.OutputDir = outDir
	}
	return convert.New(opts, logger.Named("convert"))
}

func argOr(args []string, i int, def string) string {
	if len(args) > i {
		return args[i]
	}
	return def
}

func cmdFile(cfg *config.Config, kind string, args []string) int {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Usage: rwexport %s <file.%s> [out_dir]\n", kind, kind)
		return 1
	}
	path := args[0]
	if !strings.EqualFold(filepath.Ext(path), "."+kind) {
		fmt.Fprintf(os.Stderr, "Expected a .%s file: %s\n", kind, path)
		return 1
	}

	c := newConverter(cfg, argOr(args, 1, ""))
	outputs, err := c.File(path)
	if err != nil {
		logger.Error("conversion failed",
			zap.String("file", path),
			zap.String("kind", convert.Kind(err)),
			zap.Error(err),
		)
		return 1
	}
	for _, o := range outputs {
		fmt.Printf("Converted: %s -> %s\n", filepath.Base(path), o)
	}
	return 0
}

func runBatch(c *convert.Converter, jobs []convert.Job) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report := c.Batch(ctx, jobs)
	ok, failed := report.Counts()
	fmt.Fprintf(os.Stderr, "\nConverted %d files, %d failed\n", ok, failed)
	for _, res := range report.Failed() {
		fmt.Fprintf(os.Stderr, "  %s: %s: %v\n", res.Name, convert.Kind(res.Err), res.Err)
	}
	if failed > 0 {
		return 1
	}
	return 0
}

func cmdDir(cfg *config.Config, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rwexport dir <in_dir> [out_dir]")
		return 1
	}

	jobs, err := convert.DirJobs(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(jobs) == 0 {
		fmt.Fprintln(os.Stderr, "No .dff or .txd files found")
		return 0
	}
	return runBatch(newConverter(cfg, argOr(args, 1, "")), jobs)
}

func cmdImg(cfg *config.Config, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: rwexport img <list|extract|convert> <file.img> ...")
		return 1
	}

	sub, args := args[0], args[1:]
	archive, err := img.Open(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer archive.Close()

	switch sub {
	case "list", "ls":
		return imgList(archive, args[1:])
	case "extract", "x":
		return imgExtract(archive, args[1:])
	case "convert":
		jobs := convert.ArchiveJobs(archive)
		logger.Info("converting archive",
			zap.String("archive", args[0]),
			zap.Int("version", int(archive.Version())),
			zap.Int("jobs", len(jobs)),
		)
		return runBatch(newConverter(cfg, argOr(args, 1, "")), jobs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown img command: %s\n", sub)
		return 1
	}
}

func imgList(archive *img.Archive, args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	limit := fs.Int("n", 0, "Limit output to N entries (0 = all)")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	names := archive.List()
	if fs.NArg() > 0 {
		var err error
		if names, err = archive.Match(fs.Arg(0)); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	count := 0
	for _, name := range names {
		e, _ := archive.Entry(name)
		fmt.Printf("%-24s %10d\n", name, e.Size())
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}
	fmt.Fprintf(os.Stderr, "\n(%d of %d entries)\n", count, len(archive.List()))
	return 0
}

func imgExtract(archive *img.Archive, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rwexport img extract <file.img> <name|glob> [out_dir]")
		return 1
	}
	pattern := args[0]
	outDir := argOr(args, 1, ".")

	names := []string{pattern}
	if strings.ContainsAny(pattern, "*?[") {
		var err error
		if names, err = archive.Match(pattern); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	} else if !archive.Contains(pattern) {
		fmt.Fprintf(os.Stderr, "Entry not found: %s\n", pattern)
		return 1
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		return 1
	}

	extracted := 0
	for _, name := range names {
		data, err := archive.Read(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", name, err)
			continue
		}
		outputPath := filepath.Join(outDir, filepath.Base(name))
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", outputPath, err)
			continue
		}
		fmt.Printf("Extracted: %s (%d bytes)\n", outputPath, len(data))
		extracted++
	}

	fmt.Fprintf(os.Stderr, "\nExtracted %d files\n", extracted)
	return 0
}

func cmdConfig(cfg *config.Config, args []string) int {
	if len(args) < 1 || args[0] != "init" {
		fmt.Fprintln(os.Stderr, "Usage: rwexport config init [-user] [-force] [file]")
		return 1
	}

	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	user := fs.Bool("user", false, "Write to the user config directory")
	force := fs.Bool("force", false, "Overwrite an existing file")
	if err := fs.Parse(args[1:]); err != nil {
		return 1
	}

	path := config.FileName
	switch {
	case *user:
		path = filepath.Join(config.ConfigDir(), config.FileName)
	case fs.NArg() > 0:
		path = fs.Arg(0)
	}
	if _, err := os.Stat(path); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "%s already exists (use -force to overwrite)\n", path)
		return 1
	}

	if err := cfg.SaveTo(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Wrote %s\n", path)
	return 0
}

func cmdInspect(cfg *config.Config, args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rwexport inspect <file.amf|file.dff>")
		return 1
	}
	path := args[0]

	switch strings.ToLower(filepath.Ext(path)) {
	case ".amf":
		f, err := amf.DecodeFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		printAMF(path, f)
	case ".dff":
		sc, err := dff.DecodeFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error (%s): %v\n", convert.Kind(err), err)
			return 1
		}
		printScene(path, sc, scene.Policy{
			LODMarker:    cfg.Naming.LODMarker,
			DamageMarker: cfg.Naming.DamageMarker,
		})
	default:
		fmt.Fprintf(os.Stderr, "Expected a .amf or .dff file: %s\n", path)
		return 1
	}
	return 0
}

func printAMF(path string, f *amf.File) {
	fmt.Printf("Model:    %s\n", path)
	fmt.Printf("Frames:   %d\n", len(f.Frames))
	fmt.Printf("Vertices: %d\n", f.VertexCount())
	fmt.Printf("Textures: %s\n", strings.Join(f.TextureNames, ", "))
	fmt.Println()
	for _, fr := range f.Frames {
		parent := "-"
		if !fr.IsRoot() {
			parent = fmt.Sprint(fr.Parent)
		}
		flags := ""
		if fr.Damaged {
			flags = " [damaged]"
		}
		fmt.Printf("  %3d  parent %-3s  %-24s %-14s %5d verts%s\n",
			fr.Index, parent, fr.Name, fr.Geometry.FaceType, len(fr.Geometry.Vertices), flags)
	}
}

func printScene(path string, sc *scene.Scene, p scene.Policy) {
	fmt.Printf("Model:      %s\n", path)
	fmt.Printf("Frames:     %d\n", len(sc.Frames))
	fmt.Printf("Geometries: %d\n", len(sc.Geometries))
	fmt.Printf("Atomics:    %d\n", len(sc.Atomics))
	fmt.Printf("Lights:     %d\n", len(sc.Lights))
	fmt.Printf("Vertices:   %d\n", sc.VertexCount())
	fmt.Println()

	var walk func(i, depth int)
	walk = func(i, depth int) {
		f := &sc.Frames[i]
		var tags []string
		if p.Excluded(f.Name) {
			tags = append(tags, "lod")
		}
		if p.Damaged(f.Name) {
			tags = append(tags, "damaged")
		}
		if g, ok, _ := sc.GeometryFor(i); ok {
			tags = append(tags, fmt.Sprintf("%d verts %s", g.VertexCount(), g.FaceType))
		}
		fmt.Printf("%s%d %s", strings.Repeat("  ", depth+1), f.Index, f.Name)
		if world, err := sc.WorldMatrix(i); err == nil {
			t := world.Translation()
			fmt.Printf(" @ (%.3f, %.3f, %.3f)", t[0], t[1], t[2])
		}
		if len(tags) > 0 {
			fmt.Printf(" [%s]", strings.Join(tags, ", "))
		}
		fmt.Println()
		for _, child := range sc.Children(i) {
			if child > i {
				walk(child, depth+1)
			}
		}
	}
	for i := range sc.Frames {
		if f := &sc.Frames[i]; f.Parent < 0 || int(f.Parent) >= len(sc.Frames) {
			walk(i, 0)
		}
	}
}
