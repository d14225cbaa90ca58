package main

import (
	"errors"
	"flag"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/qxdqhr/sa2kit-sub004/internal/config"
	"github.com/qxdqhr/sa2kit-sub004/internal/logger"
	"github.com/qxdqhr/sa2kit-sub004/pkg/pmx"
)

var errNoOutput = errors.New("no output file: pass -o or -overwrite")

// session is one loaded model plus the settings it is edited with.
type session struct {
	cfg    *config.Config
	log    *zap.Logger
	path   string
	editor *pmx.Editor
}

// flagSet returns a FlagSet for command carrying the shared config flags.
func (c *cli) flagSet(command string) (*flag.FlagSet, *config.Flags) {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	return fs, config.RegisterFlags(fs)
}

// setup loads configuration and initializes logging.
func setup(flags *config.Flags) (*config.Config, error) {
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, nil
}

// open parses the model at path and wraps it in an editor.
func open(flags *config.Flags, path string) (*session, error) {
	cfg, err := setup(flags)
	if err != nil {
		return nil, err
	}

	doc, err := pmx.ParseFile(path)
	if err != nil {
		return nil, err
	}
	log := logger.Named("pmxtool").With(zap.String("model", path))
	log.Debug("model loaded",
		zap.Int("textures", len(doc.Textures)),
		zap.Int("materials", len(doc.Materials)),
		zap.Stringer("encoding", doc.Header.Globals.TextEncoding))

	editor := pmx.NewEditor(doc,
		pmx.WithLogger(logger.Named("editor")),
		pmx.WithHistoryLimit(cfg.Editor.HistoryLimit))
	return &session{cfg: cfg, log: log, path: path, editor: editor}, nil
}

// save writes the edited model to output, or over the input when allowed.
func (s *session) save(output string) (string, error) {
	target := output
	if target == "" {
		if !s.cfg.Output.Overwrite {
			return "", errNoOutput
		}
		target = s.path
	}
	if err := pmx.WriteFile(target, s.editor.Document()); err != nil {
		return "", err
	}
	s.log.Info("model written", zap.String("output", target), zap.Int("edits", s.editor.History().Cursor()))
	return target, nil
}

// textureArg resolves a texture given as an index or as a path in the table.
func (s *session) textureArg(arg string) (int, error) {
	if i, err := strconv.Atoi(arg); err == nil {
		return i, nil
	}
	if i := s.editor.FindTexture(arg); i >= 0 {
		return i, nil
	}
	return -1, fmt.Errorf("texture %q is not in the texture table", arg)
}

// bindArg resolves a texture for binding. "none" and -1 unbind; a path not
// yet in the table is added first when add is set.
func (s *session) bindArg(arg string, add bool) (int, error) {
	if arg == "none" {
		return -1, nil
	}
	i, err := s.textureArg(arg)
	if err == nil || !add {
		return i, err
	}
	return s.editor.AddTexture(arg)
}
