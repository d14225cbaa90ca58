package pmx

import "fmt"

// TextureRef is a resolved main texture binding.
type TextureRef struct {
	Index int    `yaml:"index" json:"index" toml:"index"`
	Path  string `yaml:"path" json:"path" toml:"path"`
}

// SphereRef is a resolved sphere texture binding.
type SphereRef struct {
	Index int    `yaml:"index" json:"index" toml:"index"`
	Path  string `yaml:"path" json:"path" toml:"path"`
	Mode  string `yaml:"mode" json:"mode" toml:"mode"`
}

// ToonRef is a resolved toon binding. Index is a palette id when IsShared.
type ToonRef struct {
	Index    int    `yaml:"index" json:"index" toml:"index"`
	Path     string `yaml:"path" json:"path" toml:"path"`
	IsShared bool   `yaml:"is_shared" json:"isShared" toml:"is_shared"`
}

// MaterialTextureMapping is the derived per-material view of texture
// bindings. It is never persisted.
type MaterialTextureMapping struct {
	MaterialIndex int         `yaml:"material_index" json:"materialIndex" toml:"material_index"`
	MaterialName  string      `yaml:"material_name" json:"materialName" toml:"material_name"`
	MainTexture   *TextureRef `yaml:"main_texture,omitempty" json:"mainTexture,omitempty" toml:"main_texture,omitempty"`
	SphereTexture *SphereRef  `yaml:"sphere_texture,omitempty" json:"sphereTexture,omitempty" toml:"sphere_texture,omitempty"`
	ToonTexture   *ToonRef    `yaml:"toon_texture,omitempty" json:"toonTexture,omitempty" toml:"toon_texture,omitempty"`
}

// SharedToonPath returns the conventional file name of shared palette entry
// id, e.g. toon01.bmp for id 1.
func SharedToonPath(id int) string {
	return fmt.Sprintf("toon%02d.bmp", id)
}

// RegenerateMappings projects the texture and material tables into a fresh
// mapping slice. It reads its arguments only and returns equal output for
// equal input.
func RegenerateMappings(textures []Texture, materials []Material) []MaterialTextureMapping {
	out := make([]MaterialTextureMapping, len(materials))
	lookup := func(i int) (string, bool) {
		if i < 0 || i >= len(textures) {
			return "", false
		}
		return textures[i].Path, true
	}

	for i, m := range materials {
		mp := MaterialTextureMapping{
			MaterialIndex: i,
			MaterialName:  m.Name,
		}
		if path, ok := lookup(m.TextureIndex); ok {
			mp.MainTexture = &TextureRef{Index: m.TextureIndex, Path: path}
		}
		if m.SphereMode != SphereNone {
			if path, ok := lookup(m.SphereTextureIndex); ok {
				mp.SphereTexture = &SphereRef{Index: m.SphereTextureIndex, Path: path, Mode: m.SphereMode.String()}
			}
		}
		switch m.Toon.Kind {
		case ToonShared:
			mp.ToonTexture = &ToonRef{Index: m.Toon.Value, Path: SharedToonPath(m.Toon.Value), IsShared: true}
		case ToonIndexed:
			if path, ok := lookup(m.Toon.Value); ok {
				mp.ToonTexture = &ToonRef{Index: m.Toon.Value, Path: path}
			}
		}
		out[i] = mp
	}
	return out
}

// cloneMappings deep-copies a mapping slice so callers cannot reach the
// editor's snapshot.
func cloneMappings(src []MaterialTextureMapping) []MaterialTextureMapping {
	out := make([]MaterialTextureMapping, len(src))
	for i, mp := range src {
		out[i] = mp
		if mp.MainTexture != nil {
			ref := *mp.MainTexture
			out[i].MainTexture = &ref
		}
		if mp.SphereTexture != nil {
			ref := *mp.SphereTexture
			out[i].SphereTexture = &ref
		}
		if mp.ToonTexture != nil {
			ref := *mp.ToonTexture
			out[i].ToonTexture = &ref
		}
	}
	return out
}
