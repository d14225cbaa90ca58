// Package texfile inspects the image files a model's texture table points to.
package texfile

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder registration
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"  // BMP decoder registration (also .sph/.spa)
	_ "golang.org/x/image/tiff" // TIFF decoder registration
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// Probe errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrInvalidTGA        = errors.New("invalid TGA header")
)

// tgaHeaderSize is the fixed size of a TGA file header.
const tgaHeaderSize = 18

// Info describes an image file without decoding its pixels.
type Info struct {
	Path   string `yaml:"path" json:"path"`
	Format string `yaml:"format" json:"format"`
	Width  int    `yaml:"width" json:"width"`
	Height int    `yaml:"height" json:"height"`
}

// Probe reads the header of the image at path and reports its format and
// dimensions. TGA files are recognized by extension since the format has no
// magic number.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("opening texture: %w", err)
	}
	defer f.Close()

	info, err := ProbeReader(f, filepath.Ext(path))
	if err != nil {
		return Info{}, fmt.Errorf("probing %s: %w", path, err)
	}
	info.Path = path
	return info, nil
}

// ProbeReader is Probe for an already opened stream. ext is the file
// extension including the dot and only matters for TGA.
func ProbeReader(r io.Reader, ext string) (Info, error) {
	if strings.EqualFold(ext, ".tga") {
		return probeTGA(r)
	}

	cfg, format, err := image.DecodeConfig(bufio.NewReader(r))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return Info{}, ErrUnsupportedFormat
		}
		return Info{}, err
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

func probeTGA(r io.Reader) (Info, error) {
	var h [tgaHeaderSize]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrInvalidTGA, err)
	}

	colorMapType := h[1]
	imageType := h[2]
	width := int(h[12]) | int(h[13])<<8
	height := int(h[14]) | int(h[15])<<8
	bpp := h[16]

	if colorMapType > 1 {
		return Info{}, fmt.Errorf("%w: color map type %d", ErrInvalidTGA, colorMapType)
	}
	switch imageType {
	case 1, 2, 3, 9, 10, 11:
	default:
		return Info{}, fmt.Errorf("%w: image type %d", ErrInvalidTGA, imageType)
	}
	switch bpp {
	case 8, 15, 16, 24, 32:
	default:
		return Info{}, fmt.Errorf("%w: %d bits per pixel", ErrInvalidTGA, bpp)
	}
	if width == 0 || height == 0 {
		return Info{}, fmt.Errorf("%w: empty image %dx%d", ErrInvalidTGA, width, height)
	}
	return Info{Format: "tga", Width: width, Height: height}, nil
}

// ResolvePath locates texPath, as stored in a model file, relative to the
// directory of modelPath. Backslash separators are accepted on every OS.
func ResolvePath(modelPath, texPath string) string {
	p := filepath.FromSlash(strings.ReplaceAll(texPath, "\\", "/"))
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(filepath.Dir(modelPath), p)
}
