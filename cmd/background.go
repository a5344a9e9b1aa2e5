package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/certsmith/internal/designer"
)

var backgroundCmd = &cobra.Command{
	Use:     "background <image>",
	Aliases: []string{"bg"},
	Short:   "Replace the background of a template",
	Long: `Swap the background image of an existing template. The template is
resized to the new image's natural pixel size; its id, name and fields are
kept as they are.

Examples:
  certsmith background designs/diploma-v2.png
  certsmith bg https://example.com/frame.png -t designs/diploma.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runBackground,
}

var backgroundTemplate string

func init() {
	rootCmd.AddCommand(backgroundCmd)

	backgroundCmd.Flags().StringVarP(&backgroundTemplate, "template", "t", "template.yaml", "Template descriptor to update")
}

func runBackground(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	tpl, err := designer.Load(backgroundTemplate)
	if err != nil {
		return err
	}

	eng, err := newEngine(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}

	ref := args[0]
	dims, err := eng.loader.Dimensions(ctx, ref)
	if err != nil {
		return err
	}

	next, err := designer.ReplaceBackground(tpl, relativeRef(backgroundTemplate, ref), dims)
	if err != nil {
		return err
	}
	if err := saveEdited(backgroundTemplate, next); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s -> %s)\n", backgroundTemplate, tpl.Dimensions(), dims)
	return nil
}
