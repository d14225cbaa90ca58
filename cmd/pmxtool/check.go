package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/qxdqhr/sa2kit-sub004/pkg/pmx"
	"github.com/qxdqhr/sa2kit-sub004/pkg/texfile"
)

var errCheckFailed = errors.New("texture check failed")

// textureStatus is the on-disk state of one texture table entry.
type textureStatus struct {
	Index    int
	Path     string
	Resolved string
	Refs     int
	Info     texfile.Info
	Err      error
}

func (t textureStatus) ok() bool { return t.Err == nil }

// checkTextures resolves every texture next to modelPath and, when probe is
// set, decodes its image header.
func checkTextures(modelPath string, e *pmx.Editor, probe bool) []textureStatus {
	textures := e.Textures()
	out := make([]textureStatus, len(textures))
	for i, t := range textures {
		st := textureStatus{
			Index:    t.Index,
			Path:     t.Path,
			Resolved: texfile.ResolvePath(modelPath, t.Path),
			Refs:     len(e.TextureReferences(t.Index)),
		}
		if probe {
			st.Info, st.Err = texfile.Probe(st.Resolved)
		} else if _, err := os.Stat(st.Resolved); err != nil {
			st.Err = err
		}
		out[i] = st
	}
	return out
}

func printStatus(w io.Writer, statuses []textureStatus) (failed int) {
	for _, st := range statuses {
		switch {
		case st.ok() && st.Info.Format != "":
			fmt.Fprintf(w, "ok      %4d  %-40s  %s %dx%d\n", st.Index, st.Path, st.Info.Format, st.Info.Width, st.Info.Height)
		case st.ok():
			fmt.Fprintf(w, "ok      %4d  %s\n", st.Index, st.Path)
		case errors.Is(st.Err, os.ErrNotExist):
			failed++
			fmt.Fprintf(w, "missing %4d  %-40s  %d ref(s)\n", st.Index, st.Path, st.Refs)
		default:
			failed++
			fmt.Fprintf(w, "bad     %4d  %-40s  %v\n", st.Index, st.Path, st.Err)
		}
	}
	return failed
}

func (c *cli) cmdCheck(args []string) error {
	fs, flags := c.flagSet("check")
	noProbe := fs.Bool("no-probe", false, "Only check that files exist")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usageError{"check [-no-probe] <model.pmx>"}
	}

	s, err := open(flags, fs.Arg(0))
	if err != nil {
		return err
	}
	probe := s.cfg.Textures.Probe && !*noProbe
	return c.check(s, probe)
}

func (c *cli) check(s *session, probe bool) error {
	statuses := checkTextures(s.path, s.editor, probe)
	failed := printStatus(c.stdout, statuses)

	doc := s.editor.Document()
	stats, err := doc.GeometryStats()
	if err != nil {
		return err
	}
	if total := doc.TotalSurfaceCount(); total != int64(stats.FaceIndices) {
		fmt.Fprintf(c.stdout, "warning: materials cover %d face indices, geometry has %d\n", total, stats.FaceIndices)
	}

	fmt.Fprintf(c.stdout, "%d texture(s), %d problem(s)\n", len(statuses), failed)
	s.log.Info("textures checked", zap.Int("textures", len(statuses)), zap.Int("failed", failed), zap.Bool("probe", probe))
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d textures", errCheckFailed, failed, len(statuses))
	}
	return nil
}
