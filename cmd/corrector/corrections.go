package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/lilyanlefevre/formula-corrector/internal/correction"
)

func correctionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corrections",
		Short: "Inspect and edit the correction library",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the library, one canonical formula per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			list, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s (%d corrections)\n", repo.Path(), len(list))
			printLibrary(cmd.OutOrStdout(), list)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <formula>...",
		Short: "Add corrections that are not already in the library",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			add := make([]correction.Correction, len(args))
			for i, arg := range args {
				add[i] = correction.Parse(arg)
			}
			list, err := repo.Add(cmd.Context(), add...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "library now holds %d corrections\n", len(list))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <formula>...",
		Short: "Remove corrections; formulas are compared in canonical form",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			names := make([]string, len(args))
			for i, arg := range args {
				names[i] = correction.Parse(arg).Name()
			}
			list, removed, err := repo.Remove(cmd.Context(), names...)
			if err != nil {
				return err
			}
			if removed == 0 {
				return fmt.Errorf("no matching correction in the library")
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "removed %d, %d remaining\n", removed, len(list))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the bundled default library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, err := a.repository()
			if err != nil {
				return err
			}
			list, err := repo.Reset(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "library reset to %d default corrections\n", len(list))
			return nil
		},
	})
	return cmd
}

func printLibrary(w io.Writer, list []correction.Correction) {
	for _, c := range list {
		fmt.Fprintln(w, c.Name())
	}
}
