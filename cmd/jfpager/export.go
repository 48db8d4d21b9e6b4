package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func newExportCmd(c *cli) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "export",
		Short:   "Write every list entry as JSON lines",
		PreRunE: c.load,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			start := time.Now()
			n, err := a.export(ctx, c.sel, w)
			if err != nil {
				return err
			}

			a.logger.Info().
				Str("kind", c.sel.Kind).
				Int("entries", n).
				Dur("duration", time.Since(start)).
				Msg("Export complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	return cmd
}
