package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand/v2"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/npratt/mindmesh/internal/config"
	"github.com/npratt/mindmesh/internal/events"
	"github.com/npratt/mindmesh/internal/layout"
	"github.com/npratt/mindmesh/internal/mesh"
	"github.com/npratt/mindmesh/internal/storage"
)

var (
	rootColor   = color.New(color.FgCyan, color.Bold)
	orphanColor = color.New(color.FgYellow)
	faintColor  = color.New(color.FgHiBlack)
	okColor     = color.New(color.FgGreen)
	errColor    = color.New(color.FgRed)
)

// seedDocument builds the starting document for sample. A zero seed draws
// one from the clock.
func seedDocument(sample string, seed uint64) (*mesh.Mesh, error) {
	switch sample {
	case config.SampleNone, "":
		return mesh.New(), nil
	case config.SampleStatic:
		return mesh.Sample(), nil
	case config.SampleProcedural:
		if seed == 0 {
			seed = uint64(time.Now().UnixNano())
		}
		return layout.SampleProcedural(rand.New(rand.NewPCG(seed, seed>>1))), nil
	default:
		return nil, fmt.Errorf("unknown sample %q", sample)
	}
}

// documentPath returns the first argument or the configured document.
func documentPath(cfg *config.Config, args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Document.Path
}

// formatOverride returns the --format flag when set, else the configured
// storage format.
func (a *app) formatOverride(cmd *cobra.Command, cfg *config.Config) (storage.Format, error) {
	name := cfg.Storage.Format
	if cmd.Flags().Changed(FlagFormat) {
		name = a.v.GetString(FlagFormat)
	}
	return storage.ParseFormat(name)
}

func newNewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new [path]",
		Short: "Create a new document",
		Long: `Create a new document holding only the root node, or one of the
sample maps with --sample static|procedural.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			path := documentPath(cfg, args)

			if storage.NewLock(path).Held() {
				return fmt.Errorf("%s: %w", path, storage.ErrLocked)
			}
			if !a.v.GetBool(FlagForce) {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("stat %s: %w", path, err)
				}
			}

			sample := cfg.Document.Sample
			if cmd.Flags().Changed(FlagSample) {
				sample = a.v.GetString(FlagSample)
			}
			m, err := seedDocument(sample, a.v.GetUint64(FlagSeed))
			if err != nil {
				return err
			}

			format, err := a.formatOverride(cmd, cfg)
			if err != nil {
				return err
			}
			store, err := storage.OpenAs(path, format)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.Save(cmd.Context(), m.Snapshot()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%d nodes)\n", store.Path(), m.NodeCount())
			return nil
		},
	}

	cmd.Flags().String(FlagSample, config.SampleNone, "Starting content (none/static/procedural)")
	cmd.Flags().Uint64(FlagSeed, 0, "Seed for the procedural sample (0 = random)")
	cmd.Flags().String(FlagFormat, "", "Format when the extension is not recognized (json/yaml/toml/sqlite)")
	cmd.Flags().Bool(FlagForce, false, "Overwrite an existing document")
	return cmd
}

func newTreeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tree [path]",
		Short: "Print a document's hierarchy",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			m, err := loadMesh(cmd, documentPath(cfg, args))
			if err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), m, a.v.GetBool(FlagPositions))
			return nil
		},
	}
	cmd.Flags().Bool(FlagPositions, false, "Show node positions")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [path]",
		Short: "Check that a document is a well formed mind map",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			path := documentPath(cfg, args)
			out := cmd.OutOrStdout()

			m, err := loadMesh(cmd, path)
			if err != nil {
				errColor.Fprintf(out, "invalid: %v\n", err)
				return err
			}
			okColor.Fprintf(out, "ok: %s\n", path)
			fmt.Fprintf(out, "  nodes:   %d\n", m.NodeCount())
			fmt.Fprintf(out, "  edges:   %d\n", m.EdgeCount())
			if orphans := len(m.Orphans()); orphans > 0 {
				orphanColor.Fprintf(out, "  orphans: %d\n", orphans)
			}
			return nil
		},
	}
}

func newConvertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <src> <dst>",
		Short: "Copy a document into another format",
		Long: `Copy a document into another store. Both formats follow the file
extensions; --format names the destination format when its extension is
not recognized.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}

			src, err := storage.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = src.Close() }()

			format, err := a.formatOverride(cmd, cfg)
			if err != nil {
				return err
			}
			if storage.NewLock(args[1]).Held() {
				return fmt.Errorf("%s: %w", args[1], storage.ErrLocked)
			}
			dst, err := storage.OpenAs(args[1], format)
			if err != nil {
				return err
			}
			defer func() { _ = dst.Close() }()

			if err := storage.Convert(cmd.Context(), src, dst); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "converted %s to %s\n", src.Path(), dst.Path())
			return nil
		},
	}
	cmd.Flags().String(FlagFormat, "", "Destination format when the extension is not recognized")
	return cmd
}

// loadMesh loads and validates the document at path. Unlike the editor it
// reports failures instead of starting over.
func loadMesh(cmd *cobra.Command, path string) (*mesh.Mesh, error) {
	store, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	snap, err := store.Load(cmd.Context())
	if err != nil {
		return nil, err
	}
	return mesh.Load(snap)
}

// printTree writes the hierarchy under the root, then any orphaned
// subtrees.
func printTree(w io.Writer, m *mesh.Mesh, positions bool) {
	root := m.Root()
	rootColor.Fprint(w, label(root.Text))
	printPosition(w, root, positions)
	fmt.Fprintln(w)
	printChildren(w, m, root.ID, "", positions)

	orphans := m.Orphans()
	if len(orphans) == 0 {
		return
	}
	fmt.Fprintln(w)
	orphanColor.Fprintf(w, "orphans (%d)\n", len(orphans))
	for _, id := range orphans {
		n, _ := m.Node(id)
		orphanColor.Fprint(w, label(n.Text))
		printPosition(w, n, positions)
		fmt.Fprintln(w)
		printChildren(w, m, id, "", positions)
	}
}

func printChildren(w io.Writer, m *mesh.Mesh, parent mesh.NodeID, prefix string, positions bool) {
	children := m.Children(parent)
	for i, id := range children {
		n, _ := m.Node(id)
		branch, indent := "├── ", "│   "
		if i == len(children)-1 {
			branch, indent = "└── ", "    "
		}
		fmt.Fprint(w, prefix+branch+label(n.Text))
		printPosition(w, n, positions)
		fmt.Fprintln(w)
		printChildren(w, m, id, prefix+indent, positions)
	}
}

func printPosition(w io.Writer, n mesh.Node, positions bool) {
	if positions {
		faintColor.Fprintf(w, " (%.0f, %.0f)", n.Position.X, n.Position.Y)
	}
}

func label(text string) string {
	if text = events.SafeString(text); text == "" {
		return `""`
	}
	return text
}
