// Package encoding provides text encoding utilities for RenderWare asset names.
package encoding

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Windows1252ToUTF8 converts Windows-1252 encoded bytes to a UTF-8 string.
// Plain ASCII, which covers nearly every GTA asset name, passes through unchanged.
func Windows1252ToUTF8(data []byte) string {
	if isASCII(data) {
		return string(data)
	}
	decoder := charmap.Windows1252.NewDecoder()
	result, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return string(data)
	}
	return string(result)
}

// UTF8ToWindows1252 converts a UTF-8 string to Windows-1252 bytes.
// Returns the input bytes if the string has no Windows-1252 representation.
func UTF8ToWindows1252(s string) []byte {
	encoder := charmap.Windows1252.NewEncoder()
	result, _, err := transform.Bytes(encoder, []byte(s))
	if err != nil {
		return []byte(s)
	}
	return result
}

// FixedStringToUTF8 converts a fixed-size, null-padded name field to UTF-8.
// Everything after the first null byte is ignored.
func FixedStringToUTF8(data []byte) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	return Windows1252ToUTF8(data)
}

// UTF8ToFixedString encodes s into a null-padded field of the given size.
func UTF8ToFixedString(s string, size int) []byte {
	result := make([]byte, size)
	copy(result, UTF8ToWindows1252(s))
	return result
}

// NormalizeArchivePath normalizes an archive entry path for case-insensitive lookup.
func NormalizeArchivePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	return strings.ToLower(path)
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}
