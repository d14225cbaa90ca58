package pmx

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/qxdqhr/sa2kit-sub004/pkg/encoding"
)

// IndexWidth is the byte width (1, 2 or 4) of a signed index field.
type IndexWidth uint8

const (
	Width1 IndexWidth = 1
	Width2 IndexWidth = 2
	Width4 IndexWidth = 4
)

// Valid reports whether w is a width the format allows.
func (w IndexWidth) Valid() bool {
	return w == Width1 || w == Width2 || w == Width4
}

// Max returns the largest index representable at this width.
func (w IndexWidth) Max() int {
	switch w {
	case Width1:
		return math.MaxInt8
	case Width2:
		return math.MaxInt16
	default:
		return math.MaxInt32
	}
}

// Fits reports whether v (an index or -1) can be stored at this width.
func (w IndexWidth) Fits(v int) bool {
	return v >= -1 && v <= w.Max()
}

// decode sign-extends the first w bytes of b. The caller guarantees len(b) >= w.
func (w IndexWidth) decode(b []byte) int32 {
	switch w {
	case Width1:
		return int32(int8(b[0]))
	case Width2:
		return int32(int16(binary.LittleEndian.Uint16(b)))
	default:
		return int32(binary.LittleEndian.Uint32(b))
	}
}

func (w IndexWidth) encode(dst []byte, v int32) []byte {
	switch w {
	case Width1:
		return append(dst, byte(int8(v)))
	case Width2:
		return binary.LittleEndian.AppendUint16(dst, uint16(int16(v)))
	default:
		return binary.LittleEndian.AppendUint32(dst, uint32(v))
	}
}

// indexCodec carries the per-kind index widths of one document. It is built
// once from the header and used for every index field afterwards.
type indexCodec struct {
	vertex    IndexWidth
	texture   IndexWidth
	material  IndexWidth
	bone      IndexWidth
	morph     IndexWidth
	rigidBody IndexWidth
}

func newIndexCodec(g GlobalFlags) indexCodec {
	return indexCodec{
		vertex:    g.VertexIndexSize,
		texture:   g.TextureIndexSize,
		material:  g.MaterialIndexSize,
		bone:      g.BoneIndexSize,
		morph:     g.MorphIndexSize,
		rigidBody: g.RigidBodyIndexSize,
	}
}

// reader is a bounds-checked little-endian cursor over a byte slice.
type reader struct {
	data []byte
	off  int
	enc  encoding.TextEncoding
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

// take returns the next n bytes without copying.
func (r *reader) take(n int, field string) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, formatErr(field, r.off, ErrTruncatedPMXData)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) skip(n int, field string) error {
	_, err := r.take(n, field)
	return err
}

func (r *reader) u8(field string) (uint8, error) {
	b, err := r.take(1, field)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) i32(field string) (int32, error) {
	b, err := r.take(4, field)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (r *reader) f32(field string) (float32, error) {
	b, err := r.take(4, field)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

func (r *reader) floats(dst []float32, field string) error {
	b, err := r.take(4*len(dst), field)
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return nil
}

func (r *reader) index(w IndexWidth, field string) (int, error) {
	b, err := r.take(int(w), field)
	if err != nil {
		return 0, err
	}
	return int(w.decode(b)), nil
}

// count reads an int32 element count and rejects negative values and counts
// that could not possibly fit in the remaining bytes.
func (r *reader) count(minElemSize int, field string) (int, error) {
	start := r.off
	n, err := r.i32(field)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, formatErr(field, start, fmt.Errorf("%w: %d", ErrInvalidCount, n))
	}
	if minElemSize > 0 && int64(n)*int64(minElemSize) > int64(r.remaining()) {
		return 0, formatErr(field, start, fmt.Errorf("%w: %d elements exceed remaining data", ErrTruncatedPMXData, n))
	}
	return int(n), nil
}

func (r *reader) text(field string) (string, error) {
	start := r.off
	n, err := r.i32(field)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", formatErr(field, start, fmt.Errorf("%w: negative length %d", ErrInvalidText, n))
	}
	b, err := r.take(int(n), field)
	if err != nil {
		return "", err
	}
	s, err := encoding.Decode(b, r.enc)
	if err != nil {
		return "", formatErr(field, start, fmt.Errorf("%w: %v", ErrInvalidText, err))
	}
	return s, nil
}

// writer appends little-endian fields to a pre-sized buffer.
type writer struct {
	buf []byte
	enc encoding.TextEncoding
}

func newWriter(capacity int, enc encoding.TextEncoding) *writer {
	return &writer{buf: make([]byte, 0, capacity), enc: enc}
}

// Bytes returns exactly the bytes written so far.
func (w *writer) Bytes() []byte {
	return w.buf[:len(w.buf):len(w.buf)]
}

func (w *writer) raw(b []byte) {
	w.buf = append(w.buf, b...)
}

func (w *writer) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) i32(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

func (w *writer) f32(v float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v))
}

func (w *writer) floats(vs []float32) {
	for _, v := range vs {
		w.f32(v)
	}
}

func (w *writer) index(width IndexWidth, v int, field string) error {
	if !width.Fits(v) {
		return formatErr(field, len(w.buf), fmt.Errorf("%w: %d at width %d", ErrIndexOverflow, v, width))
	}
	w.buf = width.encode(w.buf, int32(v))
	return nil
}

func (w *writer) text(s string, field string) error {
	b, err := encoding.Encode(s, w.enc)
	if err != nil {
		return formatErr(field, len(w.buf), fmt.Errorf("%w: %v", ErrInvalidText, err))
	}
	if len(b) > math.MaxInt32 {
		return formatErr(field, len(w.buf), fmt.Errorf("%w: %d bytes", ErrInvalidText, len(b)))
	}
	w.i32(int32(len(b)))
	w.raw(b)
	return nil
}
