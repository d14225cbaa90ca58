package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/qxdqhr/sa2kit-sub004/internal/logger"
	"github.com/qxdqhr/sa2kit-sub004/internal/watch"
	"github.com/qxdqhr/sa2kit-sub004/pkg/pmx"
	"github.com/qxdqhr/sa2kit-sub004/pkg/texfile"
)

func (c *cli) cmdWatch(args []string) error {
	fs, flags := c.flagSet("watch")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return usageError{"watch <model.pmx>"}
	}

	s, err := open(flags, fs.Arg(0))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return c.watch(ctx, s)
}

// watch re-checks the model until ctx is done. A model that fails to parse
// is reported and the last good version stays loaded.
func (c *cli) watch(ctx context.Context, s *session) error {
	w, err := watch.New(s.path, s.cfg.Textures.WatchDebounce, logger.Named("watch"))
	if err != nil {
		return err
	}
	defer w.Close()

	track := func() {
		var paths []string
		for _, t := range s.editor.Textures() {
			paths = append(paths, texfile.ResolvePath(s.path, t.Path))
		}
		if err := w.Track(paths...); err != nil {
			s.log.Warn("tracking textures", zap.Error(err))
		}
	}
	track()
	_ = c.check(s, s.cfg.Textures.Probe)
	fmt.Fprintf(c.stdout, "watching %s (%d files)\n", s.path, w.Tracked())

	err = w.Run(ctx, func(batch []watch.Event) {
		if batch[0].Model {
			doc, err := pmx.ParseFile(s.path)
			if err != nil {
				fmt.Fprintf(c.stdout, "reload failed: %v\n", err)
				return
			}
			s.editor = pmx.NewEditor(doc,
				pmx.WithLogger(logger.Named("editor")),
				pmx.WithHistoryLimit(s.cfg.Editor.HistoryLimit))
			track()
			fmt.Fprintf(c.stdout, "reloaded %s: %d textures, %d materials\n", s.path, len(doc.Textures), len(doc.Materials))
			_ = c.check(s, s.cfg.Textures.Probe)
			return
		}
		for _, ev := range batch {
			if ev.Removed {
				fmt.Fprintf(c.stdout, "removed %s\n", ev.Path)
				continue
			}
			if info, err := texfile.Probe(ev.Path); err != nil {
				fmt.Fprintf(c.stdout, "changed %s: %v\n", ev.Path, err)
			} else {
				fmt.Fprintf(c.stdout, "changed %s: %s %dx%d\n", ev.Path, info.Format, info.Width, info.Height)
			}
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
