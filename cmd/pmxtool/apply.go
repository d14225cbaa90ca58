package main

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/qxdqhr/sa2kit-sub004/pkg/pmx"
)

var errNoMaterial = errors.New("step needs a material index")

// script is a batch of edits read by the apply command.
type script struct {
	Steps []step `yaml:"steps"`
}

// step is one scripted edit. Fields not used by Op are ignored.
type step struct {
	Op       string            `yaml:"op"`
	Path     string            `yaml:"path"`
	Texture  string            `yaml:"texture"` // index or path in the table
	Material *int              `yaml:"material"`
	Slot     string            `yaml:"slot"`
	Mode     string            `yaml:"mode"`
	Shared   bool              `yaml:"shared"`
	Add      bool              `yaml:"add"`
	Unbind   bool              `yaml:"unbind"`
	Patch    pmx.MaterialPatch `yaml:"patch"`
}

func loadScript(path string) (*script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	var sc script
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("decoding script: %w", err)
	}
	return &sc, nil
}

func (c *cli) cmdApply(args []string) error {
	fs, flags := c.flagSet("apply")
	output := fs.String("o", "", "Output file")
	scriptPath := fs.String("script", "", "YAML edit script")
	dryRun := fs.Bool("dry-run", false, "Print the resulting mappings instead of writing the model")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 || *scriptPath == "" {
		return usageError{"apply -script edits.yaml [-dry-run] [-o out.pmx] <model.pmx>"}
	}

	sc, err := loadScript(*scriptPath)
	if err != nil {
		return err
	}
	s, err := open(flags, fs.Arg(0))
	if err != nil {
		return err
	}

	for i, st := range sc.Steps {
		if err := applyStep(s, st); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Op, err)
		}
	}
	s.log.Info("script applied", zap.Int("steps", len(sc.Steps)), zap.Int("edits", s.editor.History().Cursor()))

	c.printHistory(s.editor.History())
	if *dryRun {
		return writeMappings(c.stdout, s.cfg.Output.MappingFormat, s.editor.Mappings())
	}
	target, err := s.save(*output)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "wrote %s\n", target)
	return nil
}

func applyStep(s *session, st step) error {
	e := s.editor
	switch st.Op {
	case "add_texture":
		_, err := e.AddTexture(st.Path)
		return err
	case "rename_texture":
		idx, err := s.textureArg(st.Texture)
		if err != nil {
			return err
		}
		return e.UpdateTexture(idx, st.Path)
	case "delete_texture":
		idx, err := s.textureArg(st.Texture)
		if err != nil {
			return err
		}
		if st.Unbind {
			if err := unbindTexture(e, idx); err != nil {
				return err
			}
		}
		return e.DeleteTexture(idx)
	case "bind":
		if st.Material == nil {
			return errNoMaterial
		}
		return bind(s, *st.Material, st.Slot, st.Texture, st.Mode, st.Shared, st.Add)
	case "update_material":
		if st.Material == nil {
			return errNoMaterial
		}
		return e.UpdateMaterial(*st.Material, st.Patch)
	case "undo":
		_, err := e.Undo()
		return err
	case "redo":
		_, err := e.Redo()
		return err
	default:
		return fmt.Errorf("unknown op %q", st.Op)
	}
}

// printHistory lists the edit log; undone entries are marked.
func (c *cli) printHistory(h *pmx.History) {
	for i, entry := range h.Entries() {
		mark := " "
		if i >= h.Cursor() {
			mark = "~"
		}
		fmt.Fprintf(c.stdout, "%s %3d  %-18s  %s\n", mark, i+1, entry.Operation.Kind, entry.Description)
	}
}
