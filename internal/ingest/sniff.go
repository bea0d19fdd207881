package ingest

import (
	"bytes"
	"strings"
)

// sniffLen is how much of the stream is classified before any disk write.
const sniffLen = 512

type signature struct {
	mime   string
	offset int
	magic  []byte
}

var imageSignatures = []signature{
	{mime: "image/jpeg", magic: []byte{0xFF, 0xD8, 0xFF}},
	{mime: "image/png", magic: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{mime: "image/gif", magic: []byte("GIF87a")},
	{mime: "image/gif", magic: []byte("GIF89a")},
	{mime: "image/tiff", magic: []byte{0x49, 0x49, 0x2A, 0x00}},
	{mime: "image/tiff", magic: []byte{0x4D, 0x4D, 0x00, 0x2A}},
	{mime: "image/bmp", magic: []byte("BM")},
	{mime: "image/webp", offset: 8, magic: []byte("WEBP")},
}

var executableSignatures = []signature{
	{mime: "application/x-msdownload", magic: []byte{0x4D, 0x5A}},             // PE/DOS MZ
	{mime: "application/x-elf", magic: []byte{0x7F, 0x45, 0x4C, 0x46}},        // ELF
	{mime: "application/x-mach-binary", magic: []byte{0xFE, 0xED, 0xFA, 0xCE}},
	{mime: "application/x-mach-binary", magic: []byte{0xFE, 0xED, 0xFA, 0xCF}},
	{mime: "application/x-mach-binary", magic: []byte{0xCF, 0xFA, 0xED, 0xFE}},
	{mime: "application/x-mach-binary", magic: []byte{0xCE, 0xFA, 0xED, 0xFE}},
	{mime: "application/java-vm", magic: []byte{0xCA, 0xFE, 0xBA, 0xBE}},
	{mime: "application/x-executable-script", magic: []byte("#!")},
}

// classifyPrefix returns the detected MIME type for a byte prefix and whether
// the signature belongs to an executable format.
func classifyPrefix(prefix []byte) (mime string, executable bool) {
	for _, sig := range executableSignatures {
		if matchesSignature(prefix, sig) {
			return sig.mime, true
		}
	}
	for _, sig := range imageSignatures {
		if matchesSignature(prefix, sig) {
			return sig.mime, false
		}
	}
	return "application/octet-stream", false
}

func matchesSignature(prefix []byte, sig signature) bool {
	end := sig.offset + len(sig.magic)
	if len(prefix) < end {
		return false
	}
	return bytes.Equal(prefix[sig.offset:end], sig.magic)
}

// mimeAliases maps commonly mis-declared content types onto their canonical
// form so declared/detected comparison tolerates harmless variation.
var mimeAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
	"image/x-png": "image/png",
	"image/tif":   "image/tiff",
}

// normalizeMIME lowercases a declared content type, strips parameters, and
// resolves known aliases.
func normalizeMIME(declared string) string {
	trimmed := strings.ToLower(strings.TrimSpace(declared))
	if idx := strings.IndexByte(trimmed, ';'); idx >= 0 {
		trimmed = strings.TrimSpace(trimmed[:idx])
	}
	if canonical, ok := mimeAliases[trimmed]; ok {
		return canonical
	}
	return trimmed
}
