// Package img provides reading functionality for GTA IMG archives.
//
// Version 1 archives keep their directory in a sidecar .dir file next to
// the .img data file. Version 2 archives start with "VER2" and carry the
// directory inline. Offsets and sizes are counted in 2048-byte sectors.
package img

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/rwexport/pkg/encoding"
)

// SectorSize is the unit of entry offsets and sizes.
const SectorSize = 2048

const (
	v2Magic   = "VER2"
	nameSize  = 24
	entrySize = 32
)

// Version identifies the archive layout.
type Version int

const (
	Version1 Version = 1
	Version2 Version = 2
)

// IMG errors.
var (
	ErrInvalidArchive = errors.New("invalid IMG archive")
	ErrEntryNotFound  = errors.New("entry not found")
)

// Archive represents an opened IMG archive.
type Archive struct {
	file    *os.File
	size    int64
	version Version
	entries map[string]*Entry
}

// Entry represents a file entry in the archive.
type Entry struct {
	Name    string // as stored
	Offset  uint32 // sectors
	Sectors uint32
}

// Size returns the entry size in bytes.
func (e *Entry) Size() int64 {
	return int64(e.Sectors) * SectorSize
}

// Open opens an IMG archive for reading. For version 1 archives path may
// name either the .img or the .dir file.
func Open(p string) (*Archive, error) {
	imgPath, dirPath := p, ""
	if strings.EqualFold(filepath.Ext(p), ".dir") {
		imgPath, dirPath = swapExt(p, ".img"), p
	}

	file, err := os.Open(imgPath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("opening file: %w", err)
	}

	archive := &Archive{
		file:    file,
		size:    info.Size(),
		entries: make(map[string]*Entry),
	}

	var magic [4]byte
	if n, _ := file.ReadAt(magic[:], 0); n == len(magic) && string(magic[:]) == v2Magic {
		archive.version = Version2
		err = archive.readDirectoryV2()
	} else {
		archive.version = Version1
		if dirPath == "" {
			dirPath = swapExt(imgPath, ".dir")
		}
		err = archive.readDirectoryV1(dirPath)
	}
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	return archive, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

// Version returns the archive layout version.
func (a *Archive) Version() Version {
	return a.version
}

func (a *Archive) readDirectoryV2() error {
	var count uint32
	if err := binary.Read(io.NewSectionReader(a.file, 4, 4), binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("%w: reading entry count", ErrInvalidArchive)
	}
	if int64(count)*entrySize > a.size-8 {
		return fmt.Errorf("%w: %d entries exceed file size", ErrInvalidArchive, count)
	}

	table := make([]byte, int(count)*entrySize)
	if _, err := a.file.ReadAt(table, 8); err != nil {
		return fmt.Errorf("%w: reading directory: %v", ErrInvalidArchive, err)
	}
	for off := 0; off < len(table); off += entrySize {
		rec := table[off : off+entrySize]
		// Streaming size is used unless the archive size field is set.
		sectors := uint32(binary.LittleEndian.Uint16(rec[4:]))
		if archived := binary.LittleEndian.Uint16(rec[6:]); archived != 0 {
			sectors = uint32(archived)
		}
		a.add(&Entry{
			Name:    encoding.FixedStringToUTF8(rec[8 : 8+nameSize]),
			Offset:  binary.LittleEndian.Uint32(rec),
			Sectors: sectors,
		})
	}
	return nil
}

func (a *Archive) readDirectoryV1(dirPath string) error {
	table, err := os.ReadFile(dirPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	if len(table)%entrySize != 0 {
		return fmt.Errorf("%w: directory size %d is not a multiple of %d", ErrInvalidArchive, len(table), entrySize)
	}
	for off := 0; off < len(table); off += entrySize {
		rec := table[off : off+entrySize]
		a.add(&Entry{
			Name:    encoding.FixedStringToUTF8(rec[8 : 8+nameSize]),
			Offset:  binary.LittleEndian.Uint32(rec),
			Sectors: binary.LittleEndian.Uint32(rec[4:]),
		})
	}
	return nil
}

// add registers an entry. Later duplicates replace earlier ones.
func (a *Archive) add(e *Entry) {
	if e.Name == "" {
		return
	}
	a.entries[encoding.NormalizeArchivePath(e.Name)] = e
}

// List returns all entry names in the archive, sorted.
func (a *Archive) List() []string {
	result := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		result = append(result, e.Name)
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i]) < strings.ToLower(result[j])
	})
	return result
}

// Entry returns the entry for name.
func (a *Archive) Entry(name string) (*Entry, bool) {
	e, ok := a.entries[encoding.NormalizeArchivePath(name)]
	return e, ok
}

// Contains checks if an entry exists. Lookup is case-insensitive.
func (a *Archive) Contains(name string) bool {
	_, ok := a.Entry(name)
	return ok
}

// Read reads an entry from the archive. It is safe for concurrent use.
// The result includes the sector padding after the entry's data.
func (a *Archive) Read(name string) ([]byte, error) {
	entry, ok := a.Entry(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}

	start := int64(entry.Offset) * SectorSize
	end := start + entry.Size()
	if end > a.size {
		return nil, fmt.Errorf("%w: entry %s ends at %d past archive size %d", ErrInvalidArchive, name, end, a.size)
	}

	data := make([]byte, entry.Size())
	if _, err := a.file.ReadAt(data, start); err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// Match returns the entry names matching a shell pattern, case-insensitively.
func (a *Archive) Match(pattern string) ([]string, error) {
	pattern = strings.ToLower(pattern)
	var result []string
	for _, name := range a.List() {
		ok, err := path.Match(pattern, strings.ToLower(name))
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if ok {
			result = append(result, name)
		}
	}
	return result, nil
}

func swapExt(p, ext string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + ext
}
