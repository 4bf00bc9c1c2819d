package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/StoryLoom/internal/app"
	"github.com/AaronLay10/StoryLoom/internal/fixture"
	"github.com/AaronLay10/StoryLoom/internal/terminal"
)

func playCmd() *cobra.Command {
	var noColor bool
	cmd := &cobra.Command{
		Use:   "play [story]",
		Short: "Play a story in the terminal",
		Long:  "Play a built-in example or a fixture file. Without an argument the configured story is played.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()
			if len(args) == 1 {
				cfg.Engine.Story = args[0]
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess, err := openSession(ctx, cfg, app.Options{
				Layout:          cfg.Graph.Layout,
				MaxCommandChain: cfg.Playback.MaxCommandChain,
				Logger:          logger,
			})
			if err != nil {
				return err
			}
			if snap := sess.Snapshot(); len(snap.Diagnostics.Errors) > 0 {
				return fmt.Errorf("story does not compile: %s", strings.Join(snap.Diagnostics.Errors, "; "))
			}

			repl := terminal.New(sess, terminal.Options{
				In:      cmd.InOrStdin(),
				Out:     cmd.OutOrStdout(),
				NoColor: noColor,
				Source:  fixture.Source,
			})
			return repl.Run(ctx)
		},
	}
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}
