// Package encoding provides text encoding utilities for PMX model files.
package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// TextEncoding selects how a document stores its length-prefixed strings.
type TextEncoding uint8

const (
	UTF16LE TextEncoding = 0
	UTF8    TextEncoding = 1
)

// Encoding errors.
var (
	ErrUnknownEncoding = errors.New("unknown text encoding")
	ErrOddUTF16Length  = errors.New("UTF-16LE text has odd byte length")
	ErrLoneSurrogate   = errors.New("UTF-16LE text has an unpaired surrogate")
)

// String returns the encoding name.
func (e TextEncoding) String() string {
	switch e {
	case UTF16LE:
		return "UTF-16LE"
	case UTF8:
		return "UTF-8"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(e))
	}
}

// Valid reports whether e is one of the two encodings the format allows.
func (e TextEncoding) Valid() bool {
	return e == UTF16LE || e == UTF8
}

// utf16LE keeps byte order marks as ordinary characters so that decode and
// encode are exact inverses.
func utf16LE() encoding.Encoding {
	return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
}

// Decode converts raw text bytes in the given encoding to a UTF-8 string.
func Decode(data []byte, enc TextEncoding) (string, error) {
	switch enc {
	case UTF8:
		return string(data), nil
	case UTF16LE:
		if len(data)%2 != 0 {
			return "", fmt.Errorf("%w: %d bytes", ErrOddUTF16Length, len(data))
		}
		if off := loneSurrogate(data); off >= 0 {
			return "", fmt.Errorf("%w at byte %d", ErrLoneSurrogate, off)
		}
		out, err := utf16LE().NewDecoder().Bytes(data)
		if err != nil {
			return "", fmt.Errorf("decoding UTF-16LE: %w", err)
		}
		return string(out), nil
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownEncoding, uint8(enc))
	}
}

// loneSurrogate returns the byte offset of the first code unit that is not
// part of a valid surrogate pair, or -1. The decoder would silently replace
// such a unit with U+FFFD.
func loneSurrogate(data []byte) int {
	for i := 0; i+1 < len(data); i += 2 {
		u := rune(binary.LittleEndian.Uint16(data[i:]))
		if !utf16.IsSurrogate(u) {
			continue
		}
		if u >= 0xdc00 || i+3 >= len(data) {
			return i
		}
		next := rune(binary.LittleEndian.Uint16(data[i+2:]))
		if next < 0xdc00 || next > 0xdfff {
			return i
		}
		i += 2
	}
	return -1
}

// Encode converts a UTF-8 string to raw bytes in the given encoding.
func Encode(s string, enc TextEncoding) ([]byte, error) {
	switch enc {
	case UTF8:
		return []byte(s), nil
	case UTF16LE:
		out, err := utf16LE().NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("encoding UTF-16LE: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownEncoding, uint8(enc))
	}
}

// NormalizeTexturePath normalizes a texture path for case-insensitive lookup.
// Model files are usually authored on Windows, so both separators occur.
func NormalizeTexturePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimPrefix(path, "./")
	return strings.ToLower(path)
}
