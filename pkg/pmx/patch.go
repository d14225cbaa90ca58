package pmx

// MaterialPatch lists the material fields to change. Nil fields are left
// untouched. Colors are slices so that a wrong length can be reported
// instead of silently truncated.
type MaterialPatch struct {
	Name               *string       `yaml:"name,omitempty"`
	NameLocalized      *string       `yaml:"name_localized,omitempty"`
	Diffuse            []float32     `yaml:"diffuse,omitempty"`
	Specular           []float32     `yaml:"specular,omitempty"`
	SpecularStrength   *float32      `yaml:"specular_strength,omitempty"`
	Ambient            []float32     `yaml:"ambient,omitempty"`
	DrawingFlags       *DrawingFlags `yaml:"drawing_flags,omitempty"`
	EdgeColor          []float32     `yaml:"edge_color,omitempty"`
	EdgeSize           *float32      `yaml:"edge_size,omitempty"`
	TextureIndex       *int          `yaml:"texture_index,omitempty"`
	SphereTextureIndex *int          `yaml:"sphere_texture_index,omitempty"`
	SphereMode         *SphereMode   `yaml:"sphere_mode,omitempty"`
	Toon               *ToonBinding  `yaml:"-"`
	Memo               *string       `yaml:"memo,omitempty"`
	SurfaceCount       *int32        `yaml:"surface_count,omitempty"`
}

// IsEmpty reports whether the patch sets no field.
func (p MaterialPatch) IsEmpty() bool {
	return p.Name == nil && p.NameLocalized == nil && p.Diffuse == nil &&
		p.Specular == nil && p.SpecularStrength == nil && p.Ambient == nil &&
		p.DrawingFlags == nil && p.EdgeColor == nil && p.EdgeSize == nil &&
		p.TextureIndex == nil && p.SphereTextureIndex == nil && p.SphereMode == nil &&
		p.Toon == nil && p.Memo == nil && p.SurfaceCount == nil
}

// apply returns m with the patch merged in, or an EditError if any provided
// field is malformed. m itself is never modified.
func (p MaterialPatch) apply(m Material, textureCount int) (Material, error) {
	const op = OpUpdateMaterial

	color := func(field string, src []float32, dst []float32) error {
		if src == nil {
			return nil
		}
		if len(src) != len(dst) {
			return invalidf(op, "%s needs %d components, got %d", field, len(dst), len(src))
		}
		copy(dst, src)
		return nil
	}
	ref := func(field string, i int) error {
		if i != -1 && (i < 0 || i >= textureCount) {
			return outOfRangef(op, "%s %d not in [0, %d)", field, i, textureCount)
		}
		return nil
	}

	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.NameLocalized != nil {
		m.NameLocalized = *p.NameLocalized
	}
	if err := color("diffuse", p.Diffuse, m.Diffuse[:]); err != nil {
		return Material{}, err
	}
	if err := color("specular", p.Specular, m.Specular[:]); err != nil {
		return Material{}, err
	}
	if p.SpecularStrength != nil {
		m.SpecularStrength = *p.SpecularStrength
	}
	if err := color("ambient", p.Ambient, m.Ambient[:]); err != nil {
		return Material{}, err
	}
	if p.DrawingFlags != nil {
		m.DrawingFlags = *p.DrawingFlags
	}
	if err := color("edge color", p.EdgeColor, m.EdgeColor[:]); err != nil {
		return Material{}, err
	}
	if p.EdgeSize != nil {
		m.EdgeSize = *p.EdgeSize
	}
	if p.TextureIndex != nil {
		if err := ref("texture index", *p.TextureIndex); err != nil {
			return Material{}, err
		}
		m.TextureIndex = *p.TextureIndex
	}
	if p.SphereTextureIndex != nil {
		if err := ref("sphere texture index", *p.SphereTextureIndex); err != nil {
			return Material{}, err
		}
		m.SphereTextureIndex = *p.SphereTextureIndex
	}
	if p.SphereMode != nil {
		if !p.SphereMode.Valid() {
			return Material{}, invalidf(op, "sphere mode %d", uint8(*p.SphereMode))
		}
		m.SphereMode = *p.SphereMode
	}
	if (p.SphereTextureIndex != nil || p.SphereMode != nil) && m.SphereTextureIndex == -1 {
		m.SphereMode = SphereNone
	}
	if p.Toon != nil {
		switch p.Toon.Kind {
		case ToonNone:
			m.Toon = NoToon()
		case ToonShared:
			if p.Toon.Value < 0 || p.Toon.Value >= SharedToonCount {
				return Material{}, outOfRangef(op, "shared toon id %d outside palette [0, %d)", p.Toon.Value, SharedToonCount)
			}
			m.Toon = *p.Toon
		case ToonIndexed:
			if err := ref("toon texture index", p.Toon.Value); err != nil {
				return Material{}, err
			}
			m.Toon = IndexedToon(p.Toon.Value)
		default:
			return Material{}, invalidf(op, "toon kind %d", uint8(p.Toon.Kind))
		}
	}
	if p.Memo != nil {
		m.Memo = *p.Memo
	}
	if p.SurfaceCount != nil {
		if *p.SurfaceCount < 0 || *p.SurfaceCount%3 != 0 {
			return Material{}, invalidf(op, "surface count %d is not a non-negative multiple of 3", *p.SurfaceCount)
		}
		m.SurfaceCount = *p.SurfaceCount
	}
	return m, nil
}

// diffMaterials lists the fields that differ between a and b in wire order.
func diffMaterials(a, b Material) []FieldChange {
	var changes []FieldChange
	add := func(field string, old, new any) {
		if old != new {
			changes = append(changes, FieldChange{Field: field, Old: old, New: new})
		}
	}
	add("name", a.Name, b.Name)
	add("name_localized", a.NameLocalized, b.NameLocalized)
	add("diffuse", a.Diffuse, b.Diffuse)
	add("specular", a.Specular, b.Specular)
	add("specular_strength", a.SpecularStrength, b.SpecularStrength)
	add("ambient", a.Ambient, b.Ambient)
	add("drawing_flags", a.DrawingFlags, b.DrawingFlags)
	add("edge_color", a.EdgeColor, b.EdgeColor)
	add("edge_size", a.EdgeSize, b.EdgeSize)
	add("texture_index", a.TextureIndex, b.TextureIndex)
	add("sphere_texture_index", a.SphereTextureIndex, b.SphereTextureIndex)
	add("sphere_mode", a.SphereMode, b.SphereMode)
	add("toon", a.Toon, b.Toon)
	add("memo", a.Memo, b.Memo)
	add("surface_count", a.SurfaceCount, b.SurfaceCount)
	return changes
}
