package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/qxdqhr/sa2kit-sub004/internal/config"
	"github.com/qxdqhr/sa2kit-sub004/pkg/pmx"
)

func (c *cli) cmdInfo(args []string) error {
	fs, flags := c.flagSet("info")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usageError{"info <model.pmx>"}
	}

	s, err := open(flags, fs.Arg(0))
	if err != nil {
		return err
	}
	doc := s.editor.Document()
	g := doc.Header.Globals

	fmt.Fprintf(c.stdout, "Model:     %s\n", fs.Arg(0))
	fmt.Fprintf(c.stdout, "Version:   %.1f\n", doc.Header.FormatVersion)
	fmt.Fprintf(c.stdout, "Encoding:  %s\n", g.TextEncoding)
	fmt.Fprintf(c.stdout, "Name:      %s (%s)\n", doc.Info.Name, doc.Info.NameLocalized)
	if doc.Info.Comment != "" {
		fmt.Fprintf(c.stdout, "Comment:   %s\n", firstLine(doc.Info.Comment))
	}
	fmt.Fprintf(c.stdout, "Indices:   vertex %d, texture %d, material %d, bone %d, morph %d, rigid body %d bytes\n",
		g.VertexIndexSize, g.TextureIndexSize, g.MaterialIndexSize, g.BoneIndexSize, g.MorphIndexSize, g.RigidBodyIndexSize)

	stats, err := doc.GeometryStats()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Vertices:  %d\n", stats.Vertices)
	fmt.Fprintf(c.stdout, "Faces:     %d\n", stats.Faces())
	fmt.Fprintf(c.stdout, "Textures:  %d\n", len(doc.Textures))
	fmt.Fprintf(c.stdout, "Materials: %d\n", len(doc.Materials))
	fmt.Fprintf(c.stdout, "Trailer:   %d bytes\n", len(doc.Trailer))

	if total := doc.TotalSurfaceCount(); total != int64(stats.FaceIndices) {
		fmt.Fprintf(c.stdout, "Warning:   materials cover %d face indices, geometry has %d\n", total, stats.FaceIndices)
	}
	return nil
}

func (c *cli) cmdTextures(args []string) error {
	fs, flags := c.flagSet("textures")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usageError{"textures <model.pmx>"}
	}

	s, err := open(flags, fs.Arg(0))
	if err != nil {
		return err
	}
	for _, t := range s.editor.Textures() {
		refs := s.editor.TextureReferences(t.Index)
		fmt.Fprintf(c.stdout, "%4d  %-48s  %d ref(s)\n", t.Index, t.Path, len(refs))
	}
	return nil
}

func (c *cli) cmdMaterials(args []string) error {
	fs, flags := c.flagSet("materials")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usageError{"materials <model.pmx>"}
	}

	s, err := open(flags, fs.Arg(0))
	if err != nil {
		return err
	}
	for _, m := range s.editor.Materials() {
		fmt.Fprintf(c.stdout, "%4d  %-24s  main %-4d  sphere %-4d %-10s  toon %-12s  faces %d\n",
			m.Index, m.Name, m.TextureIndex, m.SphereTextureIndex, m.SphereMode, m.Toon, m.SurfaceCount/3)
	}
	return nil
}

func (c *cli) cmdMappings(args []string) error {
	fs, flags := c.flagSet("mappings")
	format := fs.String("format", "", "Output format: yaml, json or toml (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usageError{"mappings [-format yaml|json|toml] <model.pmx>"}
	}

	s, err := open(flags, fs.Arg(0))
	if err != nil {
		return err
	}
	f := *format
	if f == "" {
		f = s.cfg.Output.MappingFormat
	}
	return writeMappings(c.stdout, f, s.editor.Mappings())
}

// mappingDocument is the exported mapping table.
type mappingDocument struct {
	Materials []pmx.MaterialTextureMapping `yaml:"materials" json:"materials" toml:"materials"`
}

func writeMappings(w io.Writer, format string, mappings []pmx.MaterialTextureMapping) error {
	out := mappingDocument{Materials: mappings}
	switch format {
	case config.FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return fmt.Errorf("encoding yaml: %w", err)
		}
		return enc.Close()
	case config.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(out)
	case config.FormatTOML:
		if err := toml.NewEncoder(w).Encode(out); err != nil {
			return fmt.Errorf("encoding toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown mapping format %q", format)
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\r' || r == '\n' {
			return s[:i] + " ..."
		}
	}
	return s
}
