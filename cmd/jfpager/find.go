package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFindCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:     "find TEXT",
		Short:   "Print the first position whose title contains TEXT",
		Args:    cobra.ExactArgs(1),
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

			position, err := v.Find(ctx, args[0])
			if err != nil {
				return err
			}
			if position < 0 {
				return fmt.Errorf("%q not found", args[0])
			}

			e, _, err := v.EntryBlocking(ctx, position)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", position, e.ID, e.Title)
			return nil
		},
	}
}
