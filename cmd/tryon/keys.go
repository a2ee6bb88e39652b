package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/manash/tryon/internal/keys"
)

func newKeysCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage the stored Gemini API key",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key>",
		Short: "Store the API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := keys.NewStore()
			if err != nil {
				return err
			}
			if err := store.Set(keys.Provider, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Stored %s key (%s) in %s\n", keys.Provider, keys.MaskKey(args[0]), store.Path())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the stored key (masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := keys.NewStore()
			if err != nil {
				return err
			}
			key, err := store.Get(keys.Provider)
			if err != nil {
				return err
			}
			if key == "" {
				fmt.Fprintf(app.Out, "No stored key: run 'tryon keys set' or set %s\n", keys.EnvVar)
				return nil
			}
			fmt.Fprintf(app.Out, "%s: %s\n", keys.Provider, keys.MaskKey(key))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete",
		Short: "Delete the stored key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := keys.NewStore()
			if err != nil {
				return err
			}
			if err := store.Delete(keys.Provider); err != nil {
				return err
			}
			fmt.Fprintf(app.Out, "Deleted %s key\n", keys.Provider)
			return nil
		},
	})

	return cmd
}
