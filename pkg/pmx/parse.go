package pmx

import (
	"fmt"
	"os"

	"github.com/qxdqhr/sa2kit-sub004/pkg/encoding"
)

// Parse parses PMX data from a byte slice. It never returns a partial
// document: on failure the document is nil and the error matches ErrFormat.
func Parse(data []byte) (*Document, error) {
	r := newReader(data)
	doc := &Document{}

	if err := parseHeader(r, &doc.Header); err != nil {
		return nil, err
	}
	g := doc.Header.Globals
	r.enc = g.TextEncoding
	ic := newIndexCodec(g)

	if err := parseModelInfo(r, &doc.Info); err != nil {
		return nil, err
	}

	geometry, _, err := scanGeometry(r, g, doc.Header.FormatVersion, ic)
	if err != nil {
		return nil, err
	}
	doc.Geometry = geometry

	if doc.Textures, err = parseTextures(r); err != nil {
		return nil, err
	}
	if doc.Materials, err = parseMaterials(r, ic); err != nil {
		return nil, err
	}
	if err := checkReferences(doc); err != nil {
		return nil, err
	}

	doc.Trailer = append([]byte(nil), r.data[r.off:]...)
	return doc, nil
}

// ParseFile parses a PMX file from disk.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading PMX file: %w", err)
	}
	return Parse(data)
}

func parseHeader(r *reader, h *Header) error {
	magic, err := r.take(4, "signature")
	if err != nil {
		return err
	}
	if string(magic) != Signature {
		return formatErr("signature", 0, ErrInvalidPMXMagic)
	}
	copy(h.Signature[:], magic)

	versionOff := r.off
	if h.FormatVersion, err = r.f32("version"); err != nil {
		return err
	}
	if h.FormatVersion != 2.0 && h.FormatVersion != 2.1 {
		return formatErr("version", versionOff, fmt.Errorf("%w: %g", ErrUnsupportedPMXVersion, h.FormatVersion))
	}

	countOff := r.off
	n, err := r.u8("global flag count")
	if err != nil {
		return err
	}
	if n != globalsCount {
		return formatErr("global flag count", countOff, fmt.Errorf("%w: %d flags, want %d", ErrInvalidGlobals, n, globalsCount))
	}

	flagsOff := r.off
	flags, err := r.take(globalsCount, "global flags")
	if err != nil {
		return err
	}
	g := GlobalFlags{
		TextEncoding:        encoding.TextEncoding(flags[0]),
		AdditionalVec4Count: flags[1],
		VertexIndexSize:     IndexWidth(flags[2]),
		TextureIndexSize:    IndexWidth(flags[3]),
		MaterialIndexSize:   IndexWidth(flags[4]),
		BoneIndexSize:       IndexWidth(flags[5]),
		MorphIndexSize:      IndexWidth(flags[6]),
		RigidBodyIndexSize:  IndexWidth(flags[7]),
	}
	if err := g.Validate(); err != nil {
		return formatErr("global flags", flagsOff, err)
	}
	h.Globals = g
	return nil
}

// Validate checks every global flag against the values the format allows.
func (g GlobalFlags) Validate() error {
	if !g.TextEncoding.Valid() {
		return fmt.Errorf("%w: text encoding %d", ErrInvalidGlobals, uint8(g.TextEncoding))
	}
	if g.AdditionalVec4Count > 4 {
		return fmt.Errorf("%w: additional vec4 count %d", ErrInvalidGlobals, g.AdditionalVec4Count)
	}
	widths := []struct {
		name string
		w    IndexWidth
	}{
		{"vertex", g.VertexIndexSize},
		{"texture", g.TextureIndexSize},
		{"material", g.MaterialIndexSize},
		{"bone", g.BoneIndexSize},
		{"morph", g.MorphIndexSize},
		{"rigid body", g.RigidBodyIndexSize},
	}
	for _, iw := range widths {
		if !iw.w.Valid() {
			return fmt.Errorf("%w: %s index size %d", ErrInvalidGlobals, iw.name, iw.w)
		}
	}
	return nil
}

func parseModelInfo(r *reader, info *ModelInfo) error {
	var err error
	if info.Name, err = r.text("model name"); err != nil {
		return err
	}
	if info.NameLocalized, err = r.text("model localized name"); err != nil {
		return err
	}
	if info.Comment, err = r.text("model comment"); err != nil {
		return err
	}
	if info.CommentLocalized, err = r.text("model localized comment"); err != nil {
		return err
	}
	return nil
}

func parseTextures(r *reader) ([]Texture, error) {
	// each path carries at least its 4-byte length
	n, err := r.count(4, "texture count")
	if err != nil {
		return nil, err
	}
	textures := make([]Texture, n)
	for i := range textures {
		path, err := r.text(fmt.Sprintf("texture %d path", i))
		if err != nil {
			return nil, err
		}
		textures[i] = Texture{Index: i, Path: path}
	}
	return textures, nil
}

// minMaterialSize is the smallest encoded material: three empty strings,
// sixteen floats, six single bytes (flags, 1-byte indices, mode, toon flag)
// and the surface count.
const minMaterialSize = 3*4 + 16*4 + 6 + 4

func parseMaterials(r *reader, ic indexCodec) ([]Material, error) {
	n, err := r.count(minMaterialSize, "material count")
	if err != nil {
		return nil, err
	}
	materials := make([]Material, n)
	for i := range materials {
		if err := parseMaterial(r, ic, i, &materials[i]); err != nil {
			return nil, fmt.Errorf("parsing material %d: %w", i, err)
		}
	}
	return materials, nil
}

func parseMaterial(r *reader, ic indexCodec, i int, m *Material) error {
	var err error
	m.Index = i

	if m.Name, err = r.text("material name"); err != nil {
		return err
	}
	if m.NameLocalized, err = r.text("material localized name"); err != nil {
		return err
	}
	if err = r.floats(m.Diffuse[:], "diffuse"); err != nil {
		return err
	}
	if err = r.floats(m.Specular[:], "specular"); err != nil {
		return err
	}
	if m.SpecularStrength, err = r.f32("specular strength"); err != nil {
		return err
	}
	if err = r.floats(m.Ambient[:], "ambient"); err != nil {
		return err
	}
	flags, err := r.u8("drawing flags")
	if err != nil {
		return err
	}
	m.DrawingFlags = DrawingFlags(flags)
	if err = r.floats(m.EdgeColor[:], "edge color"); err != nil {
		return err
	}
	if m.EdgeSize, err = r.f32("edge size"); err != nil {
		return err
	}
	if m.TextureIndex, err = r.index(ic.texture, "texture index"); err != nil {
		return err
	}
	if m.SphereTextureIndex, err = r.index(ic.texture, "sphere texture index"); err != nil {
		return err
	}

	modeOff := r.off
	mode, err := r.u8("sphere mode")
	if err != nil {
		return err
	}
	m.SphereMode = SphereMode(mode)
	if !m.SphereMode.Valid() {
		return formatErr("sphere mode", modeOff, fmt.Errorf("%w: sphere mode %d", ErrFormat, mode))
	}

	sharedOff := r.off
	shared, err := r.u8("shared toon flag")
	if err != nil {
		return err
	}
	switch shared {
	case 0:
		idxOff := r.off
		idx, err := r.index(ic.texture, "toon texture index")
		if err != nil {
			return err
		}
		if idx < -1 {
			return formatErr("toon texture index", idxOff, fmt.Errorf("%w: index %d", ErrDanglingReference, idx))
		}
		m.Toon = IndexedToon(idx)
	case 1:
		id, err := r.u8("shared toon id")
		if err != nil {
			return err
		}
		m.Toon = SharedToon(int(id))
	default:
		return formatErr("shared toon flag", sharedOff, fmt.Errorf("%w: flag %d", ErrFormat, shared))
	}

	if m.Memo, err = r.text("material memo"); err != nil {
		return err
	}
	if m.SurfaceCount, err = r.i32("surface count"); err != nil {
		return err
	}
	return nil
}

// checkReferences verifies every texture-table reference of every material.
// -1 is the only accepted out-of-table value.
func checkReferences(doc *Document) error {
	n := len(doc.Textures)
	valid := func(i int) bool { return i == -1 || (i >= 0 && i < n) }
	for _, m := range doc.Materials {
		refs := []struct {
			slot string
			idx  int
		}{
			{"texture", m.TextureIndex},
			{"sphere texture", m.SphereTextureIndex},
			{"toon texture", m.Toon.TextureIndex()},
		}
		for _, ref := range refs {
			if !valid(ref.idx) {
				return formatErr(fmt.Sprintf("material %d %s", m.Index, ref.slot), 0,
					fmt.Errorf("%w: index %d, table has %d entries", ErrDanglingReference, ref.idx, n))
			}
		}
	}
	return nil
}
