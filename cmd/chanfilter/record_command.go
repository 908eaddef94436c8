package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chanfilter/internal/catalog/models"
)

func newRecordCommand(ctx *commandContext) *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Submit channels to the catalog without resolving them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeIn, err := openInput(cmd, inputPath)
			if err != nil {
				return err
			}
			defer closeIn()

			items, err := readItems(in, false)
			if err != nil {
				return err
			}
			keys := make([]models.IdentityKey, 0, len(items))
			for _, it := range items {
				if it.Key.Valid() {
					keys = append(keys, it.Key)
				}
			}
			keys, dups := models.DedupeIdentities(keys)
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing to record")
				return nil
			}
			if err := ctx.client().Record(cmd.Context(), keys); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "submitted %d channel(s), %d duplicate(s) skipped, %d incomplete skipped\n",
				len(keys), dups, len(items)-len(keys)-dups)
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "Input file, - for stdin")
	return cmd
}
