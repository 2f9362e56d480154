package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/npratt/mindmesh/internal/config"
	"github.com/npratt/mindmesh/internal/editor"
	"github.com/npratt/mindmesh/internal/events"
	"github.com/npratt/mindmesh/internal/geometry"
	"github.com/npratt/mindmesh/internal/layout"
	"github.com/npratt/mindmesh/internal/mesh"
	"github.com/npratt/mindmesh/internal/shutdown"
	"github.com/npratt/mindmesh/internal/storage"
	"github.com/npratt/mindmesh/internal/tui"
)

const (
	shutdownTimeout = 10 * time.Second
	tuiBufferSize   = 500
)

func newEditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit [path]",
		Short: "Open a document in the terminal editor",
		Long: `Open a document on the terminal canvas. A missing or unreadable document
is replaced by a fresh one (or --sample); an unreadable file is kept as
<path>.backup before the first save.

Mouse: drag a node to move it, drag the canvas to pan, wheel to zoom.
Press ? for the key bindings.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal() {
				return errors.New("edit needs a terminal; use tree or convert for scripted use")
			}

			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			a.applyEditFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			return a.runEditor(cmd.Context(), cfg, documentPath(cfg, args))
		},
	}

	cmd.Flags().String(FlagFormat, "", "Format when the extension is not recognized (json/yaml/toml/sqlite)")
	cmd.Flags().String(FlagSample, config.SampleNone, "Content for a missing document (none/static/procedural)")
	cmd.Flags().Uint64(FlagSeed, 0, "Seed for layout jitter and the procedural sample")
	cmd.Flags().Duration(FlagAutosave, 0, "Autosave interval (0 = only on ctrl+s)")
	cmd.Flags().Bool(FlagNoWatch, false, "Do not reload the document when it changes on disk")
	cmd.Flags().Bool(FlagJitter, false, "Randomize new child angles slightly")
	cmd.Flags().Float64(FlagChildDistance, editor.DefaultChildDistance, "Distance of new children from their parent")
	cmd.Flags().Bool(FlagHelp, false, "Start with the full key help shown")
	return cmd
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// applyEditFlags copies explicitly set edit flags over the loaded config.
func (a *app) applyEditFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed(FlagFormat) {
		cfg.Storage.Format = a.v.GetString(FlagFormat)
	}
	if flags.Changed(FlagSample) {
		cfg.Document.Sample = a.v.GetString(FlagSample)
	}
	if flags.Changed(FlagSeed) {
		cfg.Editor.JitterSeed = a.v.GetUint64(FlagSeed)
	}
	if flags.Changed(FlagAutosave) {
		cfg.TUI.AutosaveInterval = a.v.GetDuration(FlagAutosave)
	}
	if flags.Changed(FlagNoWatch) {
		cfg.TUI.Watch = !a.v.GetBool(FlagNoWatch)
	}
	if flags.Changed(FlagJitter) {
		cfg.Editor.Jitter = a.v.GetBool(FlagJitter)
	}
	if flags.Changed(FlagChildDistance) {
		cfg.Editor.ChildDistance = a.v.GetFloat64(FlagChildDistance)
	}
	if flags.Changed(FlagHelp) {
		cfg.TUI.ShowHelp = a.v.GetBool(FlagHelp)
	}
}

// runEditor opens path and runs the canvas until the user quits or a signal
// arrives. Quit and signal share one cleanup stack.
func (a *app) runEditor(ctx context.Context, cfg *config.Config, path string) error {
	logResult, err := SetupEditorLogger(cfg.Paths.Log, a.logLevel, cfg.LogRotation)
	if err != nil {
		return err
	}
	logger := logResult.Logger
	slog.SetDefault(logger)

	cleanup := shutdown.NewStack(logger)
	cleanup.Push("log file", func(context.Context) error { return logResult.Close() })

	format, err := storage.ParseFormat(cfg.Storage.Format)
	if err != nil {
		_ = cleanup.Run(ctx)
		return err
	}
	lock := storage.NewLock(path)
	if err := lock.Acquire(); err != nil {
		_ = cleanup.Run(ctx)
		return err
	}
	cleanup.Push("document lock", func(context.Context) error { return lock.Release() })

	store, err := storage.OpenAs(path, format)
	if err != nil {
		_ = cleanup.Run(ctx)
		return err
	}
	cleanup.Push("store", func(context.Context) error { return store.Close() })

	session, err := a.openSession(ctx, cfg, store, logger)
	if err != nil {
		_ = cleanup.Run(ctx)
		return err
	}
	cleanup.Push("event sinks", session.stop)

	logger.Info("mindmesh starting",
		"version", version,
		"document", store.Path(),
		"nodes", session.editor.Mesh().NodeCount(),
		"restored", session.restored,
		"log_file", logResult.FilePath,
	)

	return shutdown.RunWithGracefulShutdown(ctx, logger, shutdownTimeout,
		func(runCtx context.Context) error {
			return a.runSession(runCtx, cfg, store, session, logger)
		},
		cleanup,
	)
}

// session is an open document with its event plumbing.
type session struct {
	editor    *editor.Editor
	router    *events.Router
	logSink   *events.LogSink
	stateSink *events.StateSink
	tuiEvents <-chan events.Event
	restored  bool
}

// openSession restores the document, starts the activity log and state
// sinks, and returns an editor publishing to them.
func (a *app) openSession(ctx context.Context, cfg *config.Config, store storage.Store, logger *slog.Logger) (*session, error) {
	m, restored := storage.Restore(ctx, store, logger)
	if !restored && cfg.Document.Sample != config.SampleNone {
		seeded, err := seedDocument(cfg.Document.Sample, cfg.Editor.JitterSeed)
		if err != nil {
			return nil, err
		}
		m = seeded
	}

	jitter := layout.Zero
	if cfg.Editor.Jitter {
		jitter = layout.NewRandom(cfg.Editor.JitterSeed)
	}

	router := events.NewRouter(events.DefaultBufferSize)
	ed := editor.New(m,
		editor.WithEmitter(router),
		editor.WithLayout(layout.New(jitter)),
		editor.WithChildDistance(cfg.Editor.ChildDistance),
	)

	docPath, err := filepath.Abs(store.Path())
	if err != nil {
		docPath = store.Path()
	}
	if restored {
		restoreView(ed, cfg.Paths.State, docPath, logger)
	}

	s := &session{
		editor:    ed,
		router:    router,
		logSink:   events.NewLogSink(cfg.Paths.Activity, cfg.LogRotation.MaxBackups),
		stateSink: events.NewStateSink(cfg.Paths.State),
		restored:  restored,
	}

	// Sinks outlive the run context so they can record the final save.
	if err := s.logSink.Start(context.Background(), router.Subscribe()); err != nil {
		router.Close()
		return nil, fmt.Errorf("start log sink: %w", err)
	}
	if err := s.stateSink.Start(context.Background(), router.SubscribeBuffered(events.StateBufferSize)); err != nil {
		router.Close()
		_ = s.logSink.Stop()
		return nil, fmt.Errorf("start state sink: %w", err)
	}
	s.tuiEvents = router.SubscribeBuffered(tuiBufferSize)

	router.Emit(&events.DocumentOpenedEvent{
		BaseEvent: events.NewStorageEvent(events.EventDocumentOpened),
		Path:      docPath,
		Nodes:     m.NodeCount(),
		Restored:  restored,
	})
	return s, nil
}

// stop closes the router and waits for both sinks to drain.
func (s *session) stop(context.Context) error {
	s.router.Close()
	return errors.Join(s.logSink.Stop(), s.stateSink.Stop())
}

// restoreView reapplies the zoom, pan and selection of the last session
// when it edited the same document.
func restoreView(ed *editor.Editor, statePath, docPath string, logger *slog.Logger) {
	state, err := events.ReadState(statePath)
	if err != nil || state.Document != docPath {
		return
	}
	ed.RestoreView(state.Zoom, geometry.Vector{DX: state.PanX, DY: state.PanY})
	if state.Selected != "" {
		if id, err := mesh.ParseNodeID(state.Selected); err == nil {
			ed.Select(id)
		}
	}
	logger.Debug("session view restored",
		"zoom", state.Zoom,
		"pan_x", state.PanX,
		"pan_y", state.PanY,
		"selected", state.Selected)
}

// runSession runs the canvas and, for file documents, the change watcher.
// The watcher stops when the canvas exits.
func (a *app) runSession(ctx context.Context, cfg *config.Config, store storage.Store, s *session, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	opts := []tui.Option{
		tui.WithEmitter(s.router),
		tui.WithEvents(s.tuiEvents),
		tui.WithAutosave(cfg.TUI.AutosaveInterval),
		tui.WithCellSize(cfg.TUI.CellWidth, cfg.TUI.CellHeight),
		tui.WithHelp(cfg.TUI.ShowHelp),
		tui.WithLogger(logger),
		tui.WithOnQuit(func() { logger.Info("editor quit") }),
	}

	if fileStore, ok := store.(*storage.FileStore); ok && cfg.TUI.Watch {
		changes := make(chan struct{}, 1)
		w := storage.NewWatcher(fileStore.Path(), logger)
		w.SetDebounce(cfg.Storage.WatchDebounce)
		fileStore.NotifyWrites(w.Remember)
		opts = append(opts, tui.WithChanges(changes))

		g.Go(func() error {
			return w.Run(gctx, func() {
				select {
				case changes <- struct{}{}:
				default:
				}
			})
		})
	}

	g.Go(func() error {
		defer cancel()
		return tui.New(s.editor, store, opts...).Run(gctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
