package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/qxdqhr/sa2kit-sub004/pkg/pmx"
)

func (c *cli) cmdAddTexture(args []string) error {
	fs, flags := c.flagSet("add-texture")
	output := fs.String("o", "", "Output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return usageError{"add-texture [-o out.pmx] <model.pmx> <path>"}
	}

	s, err := open(flags, fs.Arg(0))
	if err != nil {
		return err
	}
	if existing := s.editor.FindTexture(fs.Arg(1)); existing >= 0 {
		s.log.Warn("texture path already in table", zap.Int("index", existing))
	}
	idx, err := s.editor.AddTexture(fs.Arg(1))
	if err != nil {
		return err
	}
	return c.finish(s, *output, fmt.Sprintf("added texture %d: %s", idx, fs.Arg(1)))
}

func (c *cli) cmdRenameTexture(args []string) error {
	fs, flags := c.flagSet("rename-texture")
	output := fs.String("o", "", "Output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 3 {
		return usageError{"rename-texture [-o out.pmx] <model.pmx> <tex> <new-path>"}
	}

	s, err := open(flags, fs.Arg(0))
	if err != nil {
		return err
	}
	idx, err := s.textureArg(fs.Arg(1))
	if err != nil {
		return err
	}
	if err := s.editor.UpdateTexture(idx, fs.Arg(2)); err != nil {
		return err
	}
	return c.finish(s, *output, fmt.Sprintf("texture %d is now %s", idx, fs.Arg(2)))
}

func (c *cli) cmdDeleteTexture(args []string) error {
	fs, flags := c.flagSet("delete-texture")
	output := fs.String("o", "", "Output file")
	unbind := fs.Bool("unbind", false, "Clear every material slot bound to the texture first")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return usageError{"delete-texture [-unbind] [-o out.pmx] <model.pmx> <tex>"}
	}

	s, err := open(flags, fs.Arg(0))
	if err != nil {
		return err
	}
	idx, err := s.textureArg(fs.Arg(1))
	if err != nil {
		return err
	}
	if *unbind {
		if err := unbindTexture(s.editor, idx); err != nil {
			return err
		}
	}
	if err := s.editor.DeleteTexture(idx); err != nil {
		if errors.Is(err, pmx.ErrReferentialIntegrity) {
			return fmt.Errorf("%w (materials %v; use -unbind)", err, s.editor.TextureReferences(idx))
		}
		return err
	}
	return c.finish(s, *output, fmt.Sprintf("deleted texture %d", idx))
}

// unbindTexture clears every material slot referencing texture index.
func unbindTexture(e *pmx.Editor, index int) error {
	for _, mi := range e.TextureReferences(index) {
		m, err := e.Material(mi)
		if err != nil {
			return err
		}
		if m.TextureIndex == index {
			if err := e.SetMaterialMainTexture(mi, -1); err != nil {
				return err
			}
		}
		if m.SphereTextureIndex == index {
			if err := e.SetMaterialSphereTexture(mi, -1, pmx.SphereNone); err != nil {
				return err
			}
		}
		if m.Toon.TextureIndex() == index {
			if err := e.SetMaterialToonTexture(mi, -1, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *cli) cmdBind(args []string) error {
	fs, flags := c.flagSet("bind")
	output := fs.String("o", "", "Output file")
	material := fs.Int("material", -1, "Material index")
	slot := fs.String("slot", "main", "Slot to bind: main, sphere or toon")
	mode := fs.String("mode", "", "Sphere blend mode: none, multiply, add or sub (default from config)")
	shared := fs.Bool("shared", false, "Toon slot: treat <tex> as a shared toon id (0-9)")
	add := fs.Bool("add", false, "Add <tex> to the texture table when it is a new path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	usage := usageError{"bind -material N [-slot main|sphere|toon] [-mode m] [-shared] [-add] [-o out.pmx] <model.pmx> <tex|none>"}
	if fs.NArg() < 2 || *material < 0 {
		return usage
	}

	s, err := open(flags, fs.Arg(0))
	if err != nil {
		return err
	}
	if err := bind(s, *material, *slot, fs.Arg(1), *mode, *shared, *add); err != nil {
		return err
	}

	mp, err := s.editor.Mapping(*material)
	if err != nil {
		return err
	}
	return c.finish(s, *output, fmt.Sprintf("material %d (%s): %s", *material, mp.MaterialName, describeMapping(mp)))
}

// bind applies one slot binding. mode defaults to the configured sphere mode.
func bind(s *session, material int, slot, tex, mode string, shared, add bool) error {
	switch strings.ToLower(slot) {
	case "main":
		idx, err := s.bindArg(tex, add)
		if err != nil {
			return err
		}
		return s.editor.SetMaterialMainTexture(material, idx)

	case "sphere":
		m, err := s.cfg.SphereMode()
		if err != nil {
			return err
		}
		if mode != "" {
			if m, err = pmx.ParseSphereMode(mode); err != nil {
				return err
			}
		}
		idx, err := s.bindArg(tex, add)
		if err != nil {
			return err
		}
		return s.editor.SetMaterialSphereTexture(material, idx, m)

	case "toon":
		if shared {
			var id int
			if _, err := fmt.Sscanf(tex, "%d", &id); err != nil {
				return fmt.Errorf("shared toon id %q: %w", tex, pmx.ErrValidation)
			}
			return s.editor.SetMaterialToonTexture(material, id, true)
		}
		idx, err := s.bindArg(tex, add)
		if err != nil {
			return err
		}
		return s.editor.SetMaterialToonTexture(material, idx, false)

	default:
		return fmt.Errorf("unknown slot %q: %w", slot, pmx.ErrValidation)
	}
}

func (c *cli) cmdUpdateMaterial(args []string) error {
	fs, flags := c.flagSet("update-material")
	output := fs.String("o", "", "Output file")
	material := fs.Int("material", -1, "Material index")
	patchArg := fs.String("patch", "", "YAML fields to set, or @file.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || *material < 0 || *patchArg == "" {
		return usageError{"update-material -material N -patch '{name: skin, diffuse: [1, 1, 1, 1]}' [-o out.pmx] <model.pmx>"}
	}

	patch, err := readPatch(*patchArg)
	if err != nil {
		return err
	}
	s, err := open(flags, fs.Arg(0))
	if err != nil {
		return err
	}
	if err := s.editor.UpdateMaterial(*material, patch); err != nil {
		return err
	}

	entries := s.editor.History().Entries()
	return c.finish(s, *output, entries[len(entries)-1].Description)
}

// readPatch decodes a MaterialPatch from inline YAML or from @path.
func readPatch(arg string) (pmx.MaterialPatch, error) {
	data := []byte(arg)
	if path, ok := strings.CutPrefix(arg, "@"); ok {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return pmx.MaterialPatch{}, fmt.Errorf("reading patch: %w", err)
		}
	}
	var patch pmx.MaterialPatch
	if err := yaml.Unmarshal(data, &patch); err != nil {
		return pmx.MaterialPatch{}, fmt.Errorf("decoding patch: %w", err)
	}
	return patch, nil
}

// finish saves the session and prints a one-line summary.
func (c *cli) finish(s *session, output, summary string) error {
	target, err := s.save(output)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "%s\nwrote %s\n", summary, target)
	return nil
}

func describeMapping(mp pmx.MaterialTextureMapping) string {
	var parts []string
	if mp.MainTexture != nil {
		parts = append(parts, "main="+mp.MainTexture.Path)
	}
	if mp.SphereTexture != nil {
		parts = append(parts, fmt.Sprintf("sphere=%s (%s)", mp.SphereTexture.Path, mp.SphereTexture.Mode))
	}
	if mp.ToonTexture != nil {
		parts = append(parts, "toon="+mp.ToonTexture.Path)
	}
	if len(parts) == 0 {
		return "no textures"
	}
	return strings.Join(parts, ", ")
}
