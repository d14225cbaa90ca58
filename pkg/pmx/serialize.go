package pmx

import (
	"fmt"
	"os"
	"path/filepath"
)

// Serialize writes the document back to the PMX binary layout.
//
// The geometry section and the trailer are emitted exactly as parsed, so
// Serialize(Parse(b)) reproduces b for every well-formed input.
func Serialize(doc *Document) ([]byte, error) {
	g := doc.Header.Globals
	if err := g.Validate(); err != nil {
		return nil, formatErr("global flags", 9, err)
	}
	ic := newIndexCodec(g)
	w := newWriter(estimateSize(doc), g.TextEncoding)

	writeHeader(w, &doc.Header)
	if err := writeModelInfo(w, &doc.Info); err != nil {
		return nil, err
	}
	if len(doc.Geometry) == 0 {
		w.raw(emptyGeometry())
	} else {
		w.raw(doc.Geometry)
	}
	if err := writeTextures(w, doc.Textures); err != nil {
		return nil, err
	}
	if err := writeMaterials(w, ic, doc.Materials); err != nil {
		return nil, err
	}
	if len(doc.Trailer) == 0 {
		w.raw(emptyTrailer(doc.Header.FormatVersion))
	} else {
		w.raw(doc.Trailer)
	}

	return w.Bytes(), nil
}

// WriteFile serializes the document and writes it to path, creating parent
// directories as needed.
func WriteFile(path string, doc *Document) error {
	data, err := Serialize(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing PMX file: %w", err)
	}
	return nil
}

// estimateSize over-approximates the encoded size so the writer never grows.
// No text field encodes to more than twice its UTF-8 length.
func estimateSize(doc *Document) int {
	textLen := func(s string) int { return 4 + 2*len(s) }

	size := 4 + 4 + 1 + globalsCount
	size += textLen(doc.Info.Name) + textLen(doc.Info.NameLocalized) +
		textLen(doc.Info.Comment) + textLen(doc.Info.CommentLocalized)
	size += len(doc.Geometry) + 8
	size += 4
	for _, t := range doc.Textures {
		size += textLen(t.Path)
	}
	size += 4
	for _, m := range doc.Materials {
		size += textLen(m.Name) + textLen(m.NameLocalized) + textLen(m.Memo)
		// floats, bytes, up to four 4-byte indices, surface count
		size += 16*4 + 4 + 4*4 + 4
	}
	size += len(doc.Trailer) + 24
	return size
}

// emptyGeometry encodes zero vertices and zero face indices.
func emptyGeometry() []byte {
	return make([]byte, 8)
}

// emptyTrailer encodes zero bones, morphs, display frames, rigid bodies and
// joints, plus zero soft bodies for 2.1.
func emptyTrailer(version float32) []byte {
	if version >= 2.1 {
		return make([]byte, 24)
	}
	return make([]byte, 20)
}

func writeHeader(w *writer, h *Header) {
	w.raw([]byte(Signature))
	w.f32(h.FormatVersion)
	w.u8(globalsCount)
	g := h.Globals
	w.u8(uint8(g.TextEncoding))
	w.u8(g.AdditionalVec4Count)
	w.u8(uint8(g.VertexIndexSize))
	w.u8(uint8(g.TextureIndexSize))
	w.u8(uint8(g.MaterialIndexSize))
	w.u8(uint8(g.BoneIndexSize))
	w.u8(uint8(g.MorphIndexSize))
	w.u8(uint8(g.RigidBodyIndexSize))
}

func writeModelInfo(w *writer, info *ModelInfo) error {
	fields := []struct {
		name, value string
	}{
		{"model name", info.Name},
		{"model localized name", info.NameLocalized},
		{"model comment", info.Comment},
		{"model localized comment", info.CommentLocalized},
	}
	for _, f := range fields {
		if err := w.text(f.value, f.name); err != nil {
			return err
		}
	}
	return nil
}

func writeTextures(w *writer, textures []Texture) error {
	w.i32(int32(len(textures)))
	for i, t := range textures {
		if err := w.text(t.Path, fmt.Sprintf("texture %d path", i)); err != nil {
			return err
		}
	}
	return nil
}

func writeMaterials(w *writer, ic indexCodec, materials []Material) error {
	w.i32(int32(len(materials)))
	for i := range materials {
		if err := writeMaterial(w, ic, &materials[i]); err != nil {
			return fmt.Errorf("writing material %d: %w", i, err)
		}
	}
	return nil
}

func writeMaterial(w *writer, ic indexCodec, m *Material) error {
	if err := w.text(m.Name, "material name"); err != nil {
		return err
	}
	if err := w.text(m.NameLocalized, "material localized name"); err != nil {
		return err
	}
	w.floats(m.Diffuse[:])
	w.floats(m.Specular[:])
	w.f32(m.SpecularStrength)
	w.floats(m.Ambient[:])
	w.u8(uint8(m.DrawingFlags))
	w.floats(m.EdgeColor[:])
	w.f32(m.EdgeSize)
	if err := w.index(ic.texture, m.TextureIndex, "texture index"); err != nil {
		return err
	}
	if err := w.index(ic.texture, m.SphereTextureIndex, "sphere texture index"); err != nil {
		return err
	}
	w.u8(uint8(m.SphereMode))

	switch m.Toon.Kind {
	case ToonShared:
		if m.Toon.Value < 0 || m.Toon.Value > 0xff {
			return formatErr("shared toon id", len(w.buf), fmt.Errorf("%w: %d", ErrIndexOverflow, m.Toon.Value))
		}
		w.u8(1)
		w.u8(uint8(m.Toon.Value))
	case ToonIndexed:
		w.u8(0)
		if err := w.index(ic.texture, m.Toon.Value, "toon texture index"); err != nil {
			return err
		}
	default:
		w.u8(0)
		if err := w.index(ic.texture, -1, "toon texture index"); err != nil {
			return err
		}
	}

	if err := w.text(m.Memo, "material memo"); err != nil {
		return err
	}
	w.i32(m.SurfaceCount)
	return nil
}
