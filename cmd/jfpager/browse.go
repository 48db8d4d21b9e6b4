package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBrowseCmd(c *cli) *cobra.Command {
	var start, count int

	cmd := &cobra.Command{
		Use:     "browse",
		Short:   "Print a window of list positions",
		PreRunE: c.load,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			v, err := a.open(ctx, c.sel)
			if err != nil {
				return err
			}
			defer v.Close()

			if err := v.Init(ctx, start); err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			end := min(start+count, v.TotalCount())
			for position := start; position < end; position++ {
				e, ok, err := v.EntryBlocking(ctx, position)
				if err != nil {
					return err
				}
				if !ok {
					break
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", position, e.ID, e.Kind, e.Title)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%d total\n", v.TotalCount())
			return nil
		},
	}

	cmd.Flags().IntVar(&start, "start", 0, "first position")
	cmd.Flags().IntVar(&count, "count", 20, "number of positions")
	return cmd
}
