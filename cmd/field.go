package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/conneroisu/certsmith/internal/designer"
	"github.com/conneroisu/certsmith/internal/types"
)

var fieldCmd = &cobra.Command{
	Use:     "field",
	Aliases: []string{"f"},
	Short:   "Edit the fields of a template",
	Long: `Add, update, move, remove and list the text fields of a template
descriptor. Each field binds one record column, by name, to a position and
style on the certificate.

Examples:
  certsmith field add --name name --x 400 --y 260 --font-size 48
  certsmith field update 3f2a... --color "#1a237e" --align left
  certsmith field move 3f2a... 120 540
  certsmith field remove 3f2a...
  certsmith field list -o json`,
}

var fieldAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Append a field with default styling",
	Args:  cobra.NoArgs,
	RunE:  runFieldAdd,
}

var fieldUpdateCmd = &cobra.Command{
	Use:   "update <field-id>",
	Short: "Change the properties of a field",
	Args:  cobra.ExactArgs(1),
	RunE:  runFieldUpdate,
}

var fieldMoveCmd = &cobra.Command{
	Use:   "move <field-id> <x> <y>",
	Short: "Reposition a field",
	Args:  cobra.ExactArgs(3),
	RunE:  runFieldMove,
}

var fieldRemoveCmd = &cobra.Command{
	Use:     "remove <field-id>",
	Aliases: []string{"rm"},
	Short:   "Remove a field",
	Args:    cobra.ExactArgs(1),
	RunE:    runFieldRemove,
}

var fieldListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the fields of a template",
	Args:    cobra.NoArgs,
	RunE:    runFieldList,
}

// fieldFlags holds the style flags shared by add and update.
type fieldFlags struct {
	name       string
	x, y       float64
	fontSize   float64
	fontFamily string
	color      string
	align      *enumValue
}

var (
	fieldTemplate string
	fieldOpts     = fieldFlags{align: newEnum(string(designer.DefaultAlign), "left", "center", "right")}
	fieldOutput   = newEnum("table", outputFormats...)
)

func init() {
	rootCmd.AddCommand(fieldCmd)
	fieldCmd.AddCommand(fieldAddCmd, fieldUpdateCmd, fieldMoveCmd, fieldRemoveCmd, fieldListCmd)

	fieldCmd.PersistentFlags().StringVarP(&fieldTemplate, "template", "t", "template.yaml", "Template descriptor to edit")

	for _, c := range []*cobra.Command{fieldAddCmd, fieldUpdateCmd} {
		c.Flags().StringVar(&fieldOpts.name, "name", "", "Record column the field shows")
		c.Flags().Float64Var(&fieldOpts.x, "x", designer.DefaultFieldX, "Horizontal anchor in template pixels")
		c.Flags().Float64Var(&fieldOpts.y, "y", designer.DefaultFieldY, "Top of the text in template pixels")
		c.Flags().Float64Var(&fieldOpts.fontSize, "font-size", designer.DefaultFontSize, "Font size in pixels")
		c.Flags().StringVar(&fieldOpts.fontFamily, "font-family", designer.DefaultFontFamily, "Font family")
		c.Flags().StringVar(&fieldOpts.color, "color", designer.DefaultColor, "Text color (#rrggbb, rgb(), or a color name)")
		c.Flags().Var(fieldOpts.align, "align", "Text alignment (left, center, right)")
	}

	fieldListCmd.Flags().VarP(fieldOutput, "output", "o", "Output format (table, json, yaml)")
}

// fieldUpdate collects the flags the user actually set.
func fieldUpdate(cmd *cobra.Command) designer.FieldUpdate {
	var u designer.FieldUpdate
	flags := cmd.Flags()
	if flags.Changed("name") {
		u.FieldName = designer.Ptr(fieldOpts.name)
	}
	if flags.Changed("x") {
		u.X = designer.Ptr(fieldOpts.x)
	}
	if flags.Changed("y") {
		u.Y = designer.Ptr(fieldOpts.y)
	}
	if flags.Changed("font-size") {
		u.FontSize = designer.Ptr(fieldOpts.fontSize)
	}
	if flags.Changed("font-family") {
		u.FontFamily = designer.Ptr(fieldOpts.fontFamily)
	}
	if flags.Changed("color") {
		u.Color = designer.Ptr(fieldOpts.color)
	}
	if flags.Changed("align") {
		u.Align = designer.Ptr(types.Align(fieldOpts.align.String()))
	}
	return u
}

func runFieldAdd(cmd *cobra.Command, args []string) error {
	tpl, err := designer.Load(fieldTemplate)
	if err != nil {
		return err
	}

	next := designer.AddField(tpl)
	added := next.Fields[len(next.Fields)-1]
	next = designer.UpdateField(next, added.ID, fieldUpdate(cmd))

	if err := saveEdited(fieldTemplate, next); err != nil {
		return err
	}
	added, _ = next.FieldByID(added.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "Added field %s (%s)\n", added.ID, added.FieldName)
	return nil
}

func runFieldUpdate(cmd *cobra.Command, args []string) error {
	update := fieldUpdate(cmd)
	if update.Empty() {
		return fmt.Errorf("nothing to update: set at least one of --name, --x, --y, --font-size, --font-family, --color, --align")
	}
	return editField(cmd, args[0], "Updated", func(t types.Template) types.Template {
		return designer.UpdateField(t, args[0], update)
	})
}

func runFieldMove(cmd *cobra.Command, args []string) error {
	x, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid x %q: %w", args[1], err)
	}
	y, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("invalid y %q: %w", args[2], err)
	}
	return editField(cmd, args[0], "Moved", func(t types.Template) types.Template {
		return designer.MoveField(t, args[0], x, y)
	})
}

func runFieldRemove(cmd *cobra.Command, args []string) error {
	return editField(cmd, args[0], "Removed", func(t types.Template) types.Template {
		return designer.RemoveField(t, args[0])
	})
}

// editField applies edit to the template on disk. Unknown ids leave the
// template untouched and are reported rather than treated as errors.
func editField(cmd *cobra.Command, id, verb string, edit func(types.Template) types.Template) error {
	tpl, err := designer.Load(fieldTemplate)
	if err != nil {
		return err
	}
	if _, ok := tpl.FieldByID(id); !ok {
		fmt.Fprintf(cmd.OutOrStdout(), "No field with id %s in %s\n", id, fieldTemplate)
		return nil
	}
	if err := saveEdited(fieldTemplate, edit(tpl)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s field %s\n", verb, id)
	return nil
}

func saveEdited(path string, t types.Template) error {
	if err := designer.Validate(t); err != nil {
		return err
	}
	return designer.Save(path, t)
}

func runFieldList(cmd *cobra.Command, args []string) error {
	tpl, err := designer.Load(fieldTemplate)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format := fieldOutput.String(); format != "table" {
		return writeStructured(out, format, tpl.Fields)
	}

	rows := make([][]string, 0, len(tpl.Fields))
	for _, f := range tpl.Fields {
		rows = append(rows, []string{
			f.ID, f.FieldName,
			strconv.FormatFloat(f.X, 'g', -1, 64),
			strconv.FormatFloat(f.Y, 'g', -1, 64),
			strconv.FormatFloat(f.FontSize, 'g', -1, 64),
			f.FontFamily, f.Color, string(f.Align),
		})
	}
	return writeTable(out, []string{"ID", "FIELD", "X", "Y", "SIZE", "FONT", "COLOR", "ALIGN"}, rows)
}
