// Package pmx reads, edits and writes the texture and material tables of PMX
// polygon model files.
package pmx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qxdqhr/sa2kit-sub004/pkg/encoding"
)

// Signature is the 4-byte tag every PMX file starts with.
const Signature = "PMX "

// globalsCount is the number of global flag bytes in PMX 2.0 and 2.1 headers.
const globalsCount = 8

// SharedToonCount is the number of entries in the fixed shared toon palette.
const SharedToonCount = 10

// GlobalFlags holds the per-document encoding settings from the header.
type GlobalFlags struct {
	TextEncoding        encoding.TextEncoding
	AdditionalVec4Count uint8
	VertexIndexSize     IndexWidth
	TextureIndexSize    IndexWidth
	MaterialIndexSize   IndexWidth
	BoneIndexSize       IndexWidth
	MorphIndexSize      IndexWidth
	RigidBodyIndexSize  IndexWidth
}

// Header is the fixed-layout start of a PMX file.
type Header struct {
	Signature     [4]byte
	FormatVersion float32
	Globals       GlobalFlags
}

// ModelInfo holds the four descriptive strings following the header.
type ModelInfo struct {
	Name             string
	NameLocalized    string
	Comment          string
	CommentLocalized string
}

// Texture is an entry in the texture table. Index always equals the entry's
// position in the table.
type Texture struct {
	Index int
	Path  string
}

// DrawingFlags is the material drawing bitmask.
type DrawingFlags uint8

const (
	DrawDoubleSided DrawingFlags = 1 << iota
	DrawGroundShadow
	DrawSelfShadowMap
	DrawSelfShadow
	DrawEdge
	DrawVertexColor // 2.1
	DrawPoint       // 2.1
	DrawLine        // 2.1
)

// SphereMode selects how the sphere texture is blended.
type SphereMode uint8

const (
	SphereNone       SphereMode = 0
	SphereMultiply   SphereMode = 1
	SphereAdd        SphereMode = 2
	SphereSubTexture SphereMode = 3
)

// String returns a human-readable sphere mode name.
func (m SphereMode) String() string {
	switch m {
	case SphereNone:
		return "None"
	case SphereMultiply:
		return "Multiply"
	case SphereAdd:
		return "Add"
	case SphereSubTexture:
		return "SubTexture"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// Valid reports whether m is one of the four defined modes.
func (m SphereMode) Valid() bool {
	return m <= SphereSubTexture
}

// ParseSphereMode converts a mode name ("none", "multiply", "add", "sub" or
// "subtexture", case-insensitive) to a SphereMode.
func ParseSphereMode(s string) (SphereMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return SphereNone, nil
	case "multiply", "mul", "sph":
		return SphereMultiply, nil
	case "add", "spa":
		return SphereAdd, nil
	case "sub", "subtexture":
		return SphereSubTexture, nil
	default:
		return SphereNone, fmt.Errorf("%w: unknown sphere mode %q", ErrValidation, s)
	}
}

// UnmarshalText accepts a mode name or its numeric value.
func (m *SphereMode) UnmarshalText(text []byte) error {
	s := string(text)
	if n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 8); err == nil {
		mode := SphereMode(n)
		if !mode.Valid() {
			return fmt.Errorf("%w: sphere mode %d", ErrValidation, n)
		}
		*m = mode
		return nil
	}
	mode, err := ParseSphereMode(s)
	if err != nil {
		return err
	}
	*m = mode
	return nil
}

// ToonKind tags the interpretation of a material's toon slot.
type ToonKind uint8

const (
	ToonNone ToonKind = iota
	ToonShared
	ToonIndexed
)

// String returns the toon kind name.
func (k ToonKind) String() string {
	switch k {
	case ToonNone:
		return "None"
	case ToonShared:
		return "Shared"
	case ToonIndexed:
		return "Indexed"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// ToonBinding is the tagged toon slot: a shared palette id, a texture table
// index, or nothing. Value is meaningless for ToonNone.
type ToonBinding struct {
	Kind  ToonKind
	Value int
}

// SharedToon binds a material to entry id of the shared toon palette.
func SharedToon(id int) ToonBinding {
	return ToonBinding{Kind: ToonShared, Value: id}
}

// IndexedToon binds a material to a texture table entry. A negative index
// yields an unbound slot.
func IndexedToon(textureIndex int) ToonBinding {
	if textureIndex < 0 {
		return NoToon()
	}
	return ToonBinding{Kind: ToonIndexed, Value: textureIndex}
}

// NoToon returns an unbound toon slot.
func NoToon() ToonBinding {
	return ToonBinding{Kind: ToonNone}
}

// TextureIndex returns the bound texture table index, or -1 when the slot is
// not bound to the texture table.
func (b ToonBinding) TextureIndex() int {
	if b.Kind == ToonIndexed {
		return b.Value
	}
	return -1
}

// String formats the binding as Shared(n), Indexed(n) or None.
func (b ToonBinding) String() string {
	if b.Kind == ToonNone {
		return "None"
	}
	return fmt.Sprintf("%s(%d)", b.Kind, b.Value)
}

// Material is an entry in the material table.
type Material struct {
	Index              int
	Name               string
	NameLocalized      string
	Diffuse            [4]float32
	Specular           [3]float32
	SpecularStrength   float32
	Ambient            [3]float32
	DrawingFlags       DrawingFlags
	EdgeColor          [4]float32
	EdgeSize           float32
	TextureIndex       int // -1 = none
	SphereTextureIndex int // -1 = none
	SphereMode         SphereMode
	Toon               ToonBinding
	Memo               string
	SurfaceCount       int32 // face index entries, multiple of 3
}

// Document is an editable in-memory PMX model.
//
// Geometry holds the vertex and face sections and Trailer everything after
// the material table, both exactly as they appeared in the source file.
type Document struct {
	Header    Header
	Info      ModelInfo
	Textures  []Texture
	Materials []Material
	Geometry  []byte
	Trailer   []byte
}

// NewDocument returns an empty PMX 2.0 document with zero vertices, faces,
// bones, morphs, display frames, rigid bodies and joints.
func NewDocument(enc encoding.TextEncoding) *Document {
	doc := &Document{
		Header: Header{
			FormatVersion: 2.0,
			Globals: GlobalFlags{
				TextEncoding:       enc,
				VertexIndexSize:    Width2,
				TextureIndexSize:   Width2,
				MaterialIndexSize:  Width2,
				BoneIndexSize:      Width2,
				MorphIndexSize:     Width2,
				RigidBodyIndexSize: Width2,
			},
		},
		Geometry: emptyGeometry(),
		Trailer:  emptyTrailer(2.0),
	}
	copy(doc.Header.Signature[:], Signature)
	return doc
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := *d
	out.Textures = cloneTextures(d.Textures)
	out.Materials = cloneMaterials(d.Materials)
	out.Geometry = append([]byte(nil), d.Geometry...)
	out.Trailer = append([]byte(nil), d.Trailer...)
	return &out
}

// TexturePath returns the path of texture i, or "" when i is out of range.
func (d *Document) TexturePath(i int) string {
	if i < 0 || i >= len(d.Textures) {
		return ""
	}
	return d.Textures[i].Path
}

// TotalSurfaceCount returns the sum of all material surface counts.
func (d *Document) TotalSurfaceCount() int64 {
	var total int64
	for _, m := range d.Materials {
		total += int64(m.SurfaceCount)
	}
	return total
}

func cloneTextures(src []Texture) []Texture {
	if src == nil {
		return nil
	}
	return append([]Texture(nil), src...)
}

// cloneMaterials copies the table. Material holds only value fields.
func cloneMaterials(src []Material) []Material {
	if src == nil {
		return nil
	}
	return append([]Material(nil), src...)
}
