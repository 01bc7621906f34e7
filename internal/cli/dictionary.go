package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDictionaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dictionary",
		Short: "Inspect and manage the word list",
	}

	cmd.AddCommand(newDictionaryShowCmd())
	cmd.AddCommand(newDictionaryImportCmd())

	return cmd
}

func newDictionaryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the active dictionary in the order it is tried",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.DictionaryService.Load(cmd.Context(), cfg.Dictionary); err != nil {
				return err
			}
			d, err := app.DictionaryService.Dictionary()
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			out.Print(DictionaryListing{Words: d.Words()})
			return nil
		},
	}
}

func newDictionaryImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Store a word list as the default dictionary",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.DictionaryService.LoadFromFile(cmd.Context(), args[0]); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout(), cmd.ErrOrStderr())
			out.PrintMessage(fmt.Sprintf("Imported %d words", app.DictionaryService.WordCount()))
			return nil
		},
	}
}
