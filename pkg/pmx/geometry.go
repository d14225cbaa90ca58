package pmx

import "fmt"

// DeformKind is the bone weight layout of a vertex.
type DeformKind uint8

const (
	DeformBDEF1 DeformKind = iota
	DeformBDEF2
	DeformBDEF4
	DeformSDEF
	DeformQDEF // 2.1
)

// String returns the deform kind name.
func (k DeformKind) String() string {
	switch k {
	case DeformBDEF1:
		return "BDEF1"
	case DeformBDEF2:
		return "BDEF2"
	case DeformBDEF4:
		return "BDEF4"
	case DeformSDEF:
		return "SDEF"
	case DeformQDEF:
		return "QDEF"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// GeometryStats summarizes the opaque vertex and face sections.
type GeometryStats struct {
	Vertices    int
	FaceIndices int
}

// Faces returns the number of triangles.
func (s GeometryStats) Faces() int {
	return s.FaceIndices / 3
}

// scanGeometry walks the vertex and face sections without decoding them and
// returns their combined byte range. The reader is left at the texture table.
func scanGeometry(r *reader, g GlobalFlags, version float32, ic indexCodec) ([]byte, GeometryStats, error) {
	start := r.off
	var stats GeometryStats

	// position, normal, uv, additional vec4s
	fixed := 12 + 12 + 8 + 16*int(g.AdditionalVec4Count)
	bone := int(ic.bone)

	// smallest vertex: fixed part, deform byte, one BDEF1 bone, edge scale
	n, err := r.count(fixed+1+bone+4, "vertex count")
	if err != nil {
		return nil, stats, err
	}
	for i := 0; i < n; i++ {
		if err := r.skip(fixed, "vertex attributes"); err != nil {
			return nil, stats, err
		}
		kindOff := r.off
		kind, err := r.u8("vertex deform kind")
		if err != nil {
			return nil, stats, err
		}
		size, err := deformSize(DeformKind(kind), bone, version)
		if err != nil {
			return nil, stats, formatErr(fmt.Sprintf("vertex %d deform", i), kindOff, err)
		}
		if err := r.skip(size, "vertex deform"); err != nil {
			return nil, stats, err
		}
		if err := r.skip(4, "vertex edge scale"); err != nil {
			return nil, stats, err
		}
	}
	stats.Vertices = n

	faceOff := r.off
	m, err := r.count(int(ic.vertex), "face index count")
	if err != nil {
		return nil, stats, err
	}
	if m%3 != 0 {
		return nil, stats, formatErr("face index count", faceOff, fmt.Errorf("%w: %d is not a multiple of 3", ErrInvalidCount, m))
	}
	if err := r.skip(m*int(ic.vertex), "face indices"); err != nil {
		return nil, stats, err
	}
	stats.FaceIndices = m

	return append([]byte(nil), r.data[start:r.off]...), stats, nil
}

// deformSize returns the byte size of the bone weight block following the
// deform kind byte.
func deformSize(kind DeformKind, bone int, version float32) (int, error) {
	switch kind {
	case DeformBDEF1:
		return bone, nil
	case DeformBDEF2:
		return 2*bone + 4, nil
	case DeformBDEF4:
		return 4*bone + 16, nil
	case DeformSDEF:
		return 2*bone + 4 + 36, nil
	case DeformQDEF:
		if version < 2.1 {
			return 0, fmt.Errorf("%w: QDEF requires PMX 2.1", ErrFormat)
		}
		return 4*bone + 16, nil
	default:
		return 0, fmt.Errorf("%w: unknown deform kind %d", ErrFormat, kind)
	}
}

// GeometryStats decodes the vertex and face counts from the carried
// geometry section.
func (d *Document) GeometryStats() (GeometryStats, error) {
	r := newReader(d.Geometry)
	_, stats, err := scanGeometry(r, d.Header.Globals, d.Header.FormatVersion, newIndexCodec(d.Header.Globals))
	if err != nil {
		return stats, err
	}
	if r.remaining() != 0 {
		return stats, formatErr("geometry", r.off, fmt.Errorf("%w: %d trailing bytes", ErrFormat, r.remaining()))
	}
	return stats, nil
}
