package commands

import (
	"context"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ideaboard/internal/models"
	"ideaboard/internal/services"
	contextutils "ideaboard/internal/utils"
	"ideaboard/internal/views"
)

// FormCommands returns the idea-form configuration commands
func FormCommands(app *App) *cobra.Command {
	formCmd := &cobra.Command{
		Use:   "form",
		Short: "View and edit the idea form",
		Long: `View and edit the fields of the idea submission form.

Anyone may show the form. Changing it is limited to the superadmin. Each change is
saved immediately and fails if someone else saved the form in the meantime.`,
	}

	formCmd.AddCommand(formShowCmd(app))
	formCmd.AddCommand(formAddCmd(app))
	formCmd.AddCommand(formRemoveCmd(app))
	formCmd.AddCommand(formMoveCmd(app))
	formCmd.AddCommand(formOptionsCmd(app))
	formCmd.AddCommand(formSetCmd(app))
	formCmd.AddCommand(formSaveCmd(app))
	formCmd.AddCommand(formResetCmd(app))

	return formCmd
}

func (a *App) formService(ctx context.Context) (*services.FormConfigService, error) {
	c, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetFormConfigService()
}

// requireSuperadmin gates form edits
func (a *App) requireSuperadmin(ctx context.Context) (*services.FormConfigService, error) {
	session, err := a.loggedIn(ctx)
	if err != nil {
		return nil, err
	}
	if !session.IsSuperadmin() {
		return nil, contextutils.Errorf(contextutils.ErrForbidden, "Only the superadmin can change the idea form")
	}
	return a.container.GetFormConfigService()
}

// editForm opens a draft, applies change and saves it against the revision it was opened at
func (a *App) editForm(cmd *cobra.Command, action string, change func(*services.FormConfigDraft) error) error {
	ctx := cmd.Context()
	forms, err := a.requireSuperadmin(ctx)
	if err != nil {
		return a.fail(ctx, action, err)
	}
	draft, err := forms.Edit(ctx)
	if err != nil {
		return a.fail(ctx, action, err)
	}
	if err := change(draft); err != nil {
		return a.fail(ctx, action, err)
	}
	rev, err := forms.SaveDraft(ctx, draft)
	if err != nil {
		return a.fail(ctx, action, err)
	}
	a.printf("Form saved (revision %d)\n", rev)
	return nil
}

func parseFieldID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, contextutils.Errorf(contextutils.ErrInvalidInput, "Invalid field id %q", arg)
	}
	return id, nil
}

func formShowCmd(app *App) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the form fields in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			forms, err := app.formService(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to load the idea form", err)
			}
			fields, err := forms.Load(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to load the idea form", err)
			}
			if asYAML {
				enc := yaml.NewEncoder(app.out)
				enc.SetIndent(2)
				if err := enc.Encode(fields); err != nil {
					return app.fail(ctx, "Failed to encode the idea form", err)
				}
				return enc.Close()
			}
			rev, err := forms.Revision(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to load the idea form", err)
			}
			app.printf("Revision %d\n", rev)
			return views.FieldTable(app.out, fields)
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the fields as YAML, suitable for 'form save'")
	return cmd
}

// fieldFlags are the editable attributes of a field
type fieldFlags struct {
	name           string
	label          string
	fieldType      string
	required       bool
	placeholder    string
	options        string
	dependsOn      string
	dependsOnValue string
}

func (f *fieldFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "field name used as the idea property")
	cmd.Flags().StringVar(&f.label, "label", "", "label shown to the user")
	cmd.Flags().StringVar(&f.fieldType, "type", "", "text, email, password, textarea, dropdown, radio or multiselect")
	cmd.Flags().BoolVar(&f.required, "required", false, "the field must be filled to submit")
	cmd.Flags().StringVar(&f.placeholder, "placeholder", "", "hint shown for an empty field")
	cmd.Flags().StringVar(&f.options, "options", "", "comma-separated choices for dropdown, radio and multiselect")
	cmd.Flags().StringVar(&f.dependsOn, "depends-on", "", "show only when this field holds --depends-value")
	cmd.Flags().StringVar(&f.dependsOnValue, "depends-value", "", "value of --depends-on that shows the field")
}

// apply copies the flags the user set onto field
func (f *fieldFlags) apply(cmd *cobra.Command, field *models.FormField) {
	changed := cmd.Flags().Changed
	if changed("name") {
		field.Name = strings.TrimSpace(f.name)
	}
	if changed("label") {
		field.Label = f.label
	}
	if changed("type") {
		field.Type = models.FieldType(strings.ToLower(strings.TrimSpace(f.fieldType)))
	}
	if changed("required") {
		field.Required = f.required
	}
	if changed("placeholder") {
		field.Placeholder = f.placeholder
	}
	if changed("depends-on") {
		field.DependsOn = strings.TrimSpace(f.dependsOn)
	}
	if changed("depends-value") {
		field.DependsOnValue = f.dependsOnValue
	}
}

func (f *fieldFlags) update(cmd *cobra.Command, draft *services.FormConfigDraft, id int64) error {
	if err := draft.UpdateField(id, func(field *models.FormField) { f.apply(cmd, field) }); err != nil {
		return err
	}
	if cmd.Flags().Changed("options") {
		return draft.SetOptions(id, f.options)
	}
	return nil
}

func formAddCmd(app *App) *cobra.Command {
	var flags fieldFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a field",
		Long: `Append a field. Without flags it is an optional text field labelled "New Field"
with a generated name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.editForm(cmd, "Failed to add field", func(draft *services.FormConfigDraft) error {
				field := draft.AddField()
				if err := flags.update(cmd, draft, field.ID); err != nil {
					return err
				}
				app.printf("Added field %d\n", field.ID)
				return nil
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func formSetCmd(app *App) *cobra.Command {
	var flags fieldFlags
	cmd := &cobra.Command{
		Use:   "set <field-id>",
		Short: "Change attributes of a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFieldID(args[0])
			if err != nil {
				return app.fail(cmd.Context(), "Invalid field id", err)
			}
			return app.editForm(cmd, "Failed to update field", func(draft *services.FormConfigDraft) error {
				return flags.update(cmd, draft, id)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func formRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <field-id>",
		Short: "Remove a field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFieldID(args[0])
			if err != nil {
				return app.fail(cmd.Context(), "Invalid field id", err)
			}
			return app.editForm(cmd, "Failed to remove field", func(draft *services.FormConfigDraft) error {
				return draft.RemoveField(id)
			})
		},
	}
}

func formMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "move <position> <up|down>",
		Short: "Swap the field at position (from 'form show') with its neighbour",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return app.fail(ctx, "Invalid position", contextutils.Errorf(contextutils.ErrInvalidInput, "Invalid position %q", args[0]))
			}
			var direction int
			switch strings.ToLower(args[1]) {
			case "up":
				direction = -1
			case "down":
				direction = 1
			default:
				return app.fail(ctx, "Invalid direction", contextutils.Errorf(contextutils.ErrInvalidInput, "Direction must be up or down"))
			}
			return app.editForm(cmd, "Failed to move field", func(draft *services.FormConfigDraft) error {
				if !draft.MoveField(index, direction) {
					return contextutils.Errorf(contextutils.ErrInvalidInput, "Field %d cannot move %s", index, args[1])
				}
				return nil
			})
		},
	}
}

func formOptionsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "options <field-id> <comma-separated-options>",
		Short: "Replace the choices of a field",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseFieldID(args[0])
			if err != nil {
				return app.fail(cmd.Context(), "Invalid field id", err)
			}
			return app.editForm(cmd, "Failed to set options", func(draft *services.FormConfigDraft) error {
				return draft.SetOptions(id, strings.Join(args[1:], " "))
			})
		},
	}
}

func formSaveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "save <file>",
		Short: "Replace the whole form with the fields in a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return app.fail(ctx, "Failed to read form file", contextutils.WrapErrorf(err, "failed to read %s", args[0]))
			}
			fields, err := decodeFields(data)
			if err != nil {
				return app.fail(ctx, "Failed to read form file", err)
			}
			forms, err := app.requireSuperadmin(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to save form", err)
			}
			rev, err := forms.Save(ctx, fields)
			if err != nil {
				return app.fail(ctx, "Failed to save form", err)
			}
			app.printf("Form saved (revision %d, %d fields)\n", rev, len(fields))
			return nil
		},
	}
}

// decodeFields reads a field list, bare or under a "fields" key. YAML is a superset of JSON,
// so one decoder covers both.
func decodeFields(data []byte) ([]models.FormField, error) {
	var doc struct {
		Fields []models.FormField `yaml:"fields"`
	}
	if err := yaml.Unmarshal(data, &doc); err == nil && len(doc.Fields) > 0 {
		return doc.Fields, nil
	}
	var fields []models.FormField
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, contextutils.WrapError(contextutils.ErrInvalidFormat, "form file is neither a field list nor a {fields: [...]} document")
	}
	if len(fields) == 0 {
		return nil, contextutils.Errorf(contextutils.ErrInvalidInput, "form file has no fields")
	}
	return fields, nil
}

func formResetCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore the built-in form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			forms, err := app.requireSuperadmin(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to reset form", err)
			}
			if !app.confirm(yes, "Replace the idea form with the built-in fields?") {
				app.printf("Cancelled\n")
				return nil
			}
			rev, err := forms.Reset(ctx)
			if err != nil {
				return app.fail(ctx, "Failed to reset form", err)
			}
			app.printf("Form reset (revision %d)\n", rev)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
