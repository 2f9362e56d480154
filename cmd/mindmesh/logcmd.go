package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/npratt/mindmesh/internal/events"
)

const followPollInterval = 100 * time.Millisecond

func newLogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "View recent editing activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}

			if a.v.GetBool(FlagFollow) {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
				defer stop()
				return tailFollow(ctx, cmd.OutOrStdout(), cfg.Paths.Activity)
			}
			return tailLast(cmd.OutOrStdout(), cfg.Paths.Activity, a.v.GetInt(FlagCount))
		},
	}

	cmd.Flags().Bool(FlagFollow, false, "Follow the activity log (like tail -f)")
	cmd.Flags().Int(FlagCount, 20, "Number of recent events to show")
	return cmd
}

// tailLast prints the last n events of the activity log at path.
func tailLast(w io.Writer, path string, n int) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintln(w, "No activity yet (log file does not exist)")
			return nil
		}
		return fmt.Errorf("open activity log: %w", err)
	}
	defer func() { _ = file.Close() }()

	evs, err := events.ReadLog(file)
	if err != nil {
		return err
	}
	if len(evs) == 0 {
		fmt.Fprintln(w, "No activity yet")
		return nil
	}

	start := max(len(evs)-n, 0)
	for _, ev := range evs[start:] {
		fmt.Fprintln(w, events.FormatWithTimestamp(ev))
	}
	return nil
}

// waitForFile polls until path can be opened.
func waitForFile(ctx context.Context, path string) (*os.File, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			file, err := os.Open(path)
			if err == nil {
				return file, nil
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("open activity log: %w", err)
			}
		}
	}
}

// tailFollow prints events appended to the activity log until ctx is done.
func tailFollow(ctx context.Context, w io.Writer, path string) error {
	file, err := os.Open(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("open activity log: %w", err)
		}
		fmt.Fprintln(w, "Waiting for activity log to be created...")
		file, err = waitForFile(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek to end: %w", err)
	}

	fmt.Fprintln(w, "Following activity (Ctrl+C to stop)...")
	reader := bufio.NewReader(file)
	var partial string
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("read activity log: %w", err)
			}
			partial += line
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(followPollInterval):
			}
			continue
		}

		line = strings.TrimSuffix(partial+line, "\n")
		partial = ""
		ev, err := events.ParseEvent([]byte(line))
		if err != nil || ev == nil {
			continue
		}
		fmt.Fprintln(w, events.FormatWithTimestamp(ev))
	}
}
