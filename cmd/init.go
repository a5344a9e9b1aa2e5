package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conneroisu/certsmith/internal/designer"
)

var initCmd = &cobra.Command{
	Use:     "init <background>",
	Aliases: []string{"i"},
	Short:   "Create a template from a background image",
	Long: `Create a template descriptor sized to the natural pixel size of a
background image. The background may be a file path, an http(s) URL or a
data: URL.

Examples:
  certsmith init background.png
  certsmith init designs/diploma.jpg -o designs/diploma.yaml --name Diploma
  certsmith init https://example.com/frame.png -o frame.json`,
	Args: cobra.ExactArgs(1),
	RunE: runInit,
}

var (
	initOutput string
	initName   string
	initForce  bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVarP(&initOutput, "output", "o", "template.yaml", "Template descriptor to write (.yaml, .yml or .json)")
	initCmd.Flags().StringVar(&initName, "name", "", "Template name")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing descriptor")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if !initForce {
		if err := ValidateFileExists(initOutput); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", initOutput)
		}
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

	tpl, err := designer.CreateFromBackground(relativeRef(initOutput, ref), dims)
	if err != nil {
		return err
	}
	if initName != "" {
		tpl.Name = initName
	}

	if err := designer.Save(initOutput, tpl); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s, %s)\n", initOutput, tpl.Name, dims)
	return nil
}

// relativeRef rewrites a local background path relative to the directory of
// the descriptor that will reference it.
func relativeRef(descriptorPath, ref string) string {
	if strings.Contains(ref, "://") || strings.HasPrefix(ref, "data:") {
		return ref
	}
	absRef, err := filepath.Abs(ref)
	if err != nil {
		return ref
	}
	absDir, err := filepath.Abs(filepath.Dir(descriptorPath))
	if err != nil {
		return ref
	}
	rel, err := filepath.Rel(absDir, absRef)
	if err != nil {
		return absRef
	}
	return filepath.ToSlash(rel)
}
