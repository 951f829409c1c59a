package services

import (
	"context"
	"strings"
	"time"

	"ideaboard/internal/apiclient"
	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	contextutils "ideaboard/internal/utils"
)

// WidgetKind is the input control a field renders as
type WidgetKind string

const (
	WidgetInput       WidgetKind = "input"
	WidgetMultiline   WidgetKind = "multiline"
	WidgetSelect      WidgetKind = "select"
	WidgetRadio       WidgetKind = "radio"
	WidgetMultiselect WidgetKind = "multiselect"
)

// Widget is one rendered form control
type Widget struct {
	Field models.FormField
	Kind  WidgetKind
	// InputType is text, email or password for WidgetInput
	InputType string
	// Choices lists the selectable values; a single select starts with a blank placeholder
	Choices []string
	Value   interface{}
}

// Multiple reports whether the widget holds a set of values
func (w Widget) Multiple() bool {
	return w.Kind == WidgetMultiselect
}

// Names of the fields a draft needs
const (
	FieldEmployeeName = "employeeName"
	FieldIdeaTitle    = "ideaTitle"
)

// FormRenderer turns a field configuration and the values entered so far into widgets
type FormRenderer struct {
	fields []models.FormField
}

// NewFormRenderer creates a renderer over fields
func NewFormRenderer(fields []models.FormField) *FormRenderer {
	return &FormRenderer{fields: models.CloneFields(fields)}
}

// Fields returns the configured fields, visible or not
func (r *FormRenderer) Fields() []models.FormField {
	return models.CloneFields(r.fields)
}

// Visible returns the fields shown for values: a dependent field is hidden unless its
// controlling field holds exactly dependsOnValue.
func (r *FormRenderer) Visible(values models.FormValues) []models.FormField {
	visible := make([]models.FormField, 0, len(r.fields))
	for _, f := range r.fields {
		if f.DependsOn != "" && values.Get(f.DependsOn) != f.DependsOnValue {
			continue
		}
		visible = append(visible, f)
	}
	return visible
}

// Render returns one widget per visible field, in configuration order
func (r *FormRenderer) Render(values models.FormValues) []Widget {
	visible := r.Visible(values)
	widgets := make([]Widget, 0, len(visible))
	for _, f := range visible {
		w := Widget{Field: f, Value: values[f.Name]}
		switch f.Type {
		case models.FieldTextarea:
			w.Kind = WidgetMultiline
		case models.FieldDropdown:
			w.Kind = WidgetSelect
			w.Choices = append([]string{""}, f.Options...)
		case models.FieldRadio:
			w.Kind = WidgetRadio
			w.Choices = append([]string(nil), f.Options...)
		case models.FieldMultiselect:
			w.Kind = WidgetMultiselect
			w.Choices = append([]string(nil), f.Options...)
		default:
			w.Kind = WidgetInput
			w.InputType = string(f.Type)
		}
		widgets = append(widgets, w)
	}
	return widgets
}

// Missing returns the labels of visible required fields that have no value
func (r *FormRenderer) Missing(values models.FormValues) []string {
	var missing []string
	for _, f := range r.Visible(values) {
		if f.Required && values.IsBlank(f.Name) {
			missing = append(missing, fieldLabel(f))
		}
	}
	return missing
}

// IsSubmittable reports whether every visible required field is filled
func (r *FormRenderer) IsSubmittable(values models.FormValues) bool {
	return len(r.Missing(values)) == 0
}

// IsDraftable reports whether values carry enough to save a draft
func IsDraftable(values models.FormValues) bool {
	return !values.IsBlank(FieldEmployeeName) && !values.IsBlank(FieldIdeaTitle)
}

// Validate checks values against the rule for status: Submitted needs every required field,
// Draft needs the employee name and idea title.
func (r *FormRenderer) Validate(values models.FormValues, status models.IdeaStatus) error {
	switch status {
	case models.StatusDraft:
		var missing []string
		for _, name := range []string{FieldEmployeeName, FieldIdeaTitle} {
			if values.IsBlank(name) {
				label := name
				if f, ok := models.FindField(r.fields, name); ok {
					label = fieldLabel(f)
				}
				missing = append(missing, label)
			}
		}
		if len(missing) > 0 {
			return contextutils.Errorf(contextutils.ErrMissingRequired,
				"A draft needs: %s", strings.Join(missing, ", "))
		}
	case models.StatusSubmitted:
		if missing := r.Missing(values); len(missing) > 0 {
			return contextutils.Errorf(contextutils.ErrMissingRequired,
				"Please fill all required fields: %s", strings.Join(missing, ", "))
		}
	default:
		return contextutils.Errorf(contextutils.ErrInvalidInput,
			"ideas can only be saved as %s or %s", models.StatusDraft, models.StatusSubmitted)
	}
	return nil
}

// Payload builds the request body: every configured field (blank when unanswered) overlaid
// with values.
func (r *FormRenderer) Payload(values models.FormValues) map[string]interface{} {
	payload := make(map[string]interface{}, len(r.fields)+len(values)+3)
	for _, f := range r.fields {
		if f.Type == models.FieldMultiselect {
			payload[f.Name] = []string{}
		} else {
			payload[f.Name] = ""
		}
	}
	for k, v := range values.Clone() {
		payload[k] = v
	}
	return payload
}

func fieldLabel(f models.FormField) string {
	if strings.TrimSpace(f.Label) != "" {
		return f.Label
	}
	return f.Name
}

// SubmitResult identifies the idea a submit produced or changed
type SubmitResult struct {
	ID      int
	Created bool
	Status  models.IdeaStatus
}

// IdeaSubmitter sends a filled form to the backend
type IdeaSubmitter struct {
	client  *apiclient.Client
	session *SessionService
	logger  *observability.Logger
	now     func() time.Time
}

// NewIdeaSubmitter creates a submitter for the current session
func NewIdeaSubmitter(client *apiclient.Client, session *SessionService, logger *observability.Logger) *IdeaSubmitter {
	if client == nil {
		panic("NewIdeaSubmitter: client is nil")
	}
	if session == nil {
		panic("NewIdeaSubmitter: session is nil")
	}
	if logger == nil {
		panic("NewIdeaSubmitter: logger is nil")
	}
	return &IdeaSubmitter{client: client, session: session, logger: logger, now: time.Now}
}

// Submit validates values for status and sends them once: POST for a new idea, PUT when
// editingID is set. It never retries.
func (s *IdeaSubmitter) Submit(ctx context.Context, renderer *FormRenderer, values models.FormValues, status models.IdeaStatus, editingID int) (result0 *SubmitResult, err error) {
	ctx, span := observability.TraceFormFunction(ctx, "submit_idea",
		observability.AttributeStatus(string(status)), observability.AttributeIdeaID(editingID))
	defer observability.FinishSpan(span, &err)

	user, err := s.session.RequireUser()
	if err != nil {
		return nil, err
	}
	if err := renderer.Validate(values, status); err != nil {
		return nil, err
	}

	payload := renderer.Payload(values)
	payload["status"] = string(status)
	payload["submissionDate"] = s.now().UTC().Format(time.RFC3339)
	payload["userId"] = user.ID

	if editingID != 0 {
		if err := s.client.UpdateIdea(ctx, editingID, payload); err != nil {
			s.logger.Warn(ctx, "Idea update failed", map[string]interface{}{
				"idea_id": editingID,
				"error":   err.Error(),
			})
			return nil, err
		}
		s.logger.Info(ctx, "Idea updated", map[string]interface{}{"idea_id": editingID, "status": status})
		return &SubmitResult{ID: editingID, Status: status}, nil
	}

	id, err := s.client.CreateIdea(ctx, payload)
	if err != nil {
		s.logger.Warn(ctx, "Idea submission failed", map[string]interface{}{"error": err.Error()})
		return nil, err
	}
	s.logger.Info(ctx, "Idea created", map[string]interface{}{"idea_id": id, "status": status})
	return &SubmitResult{ID: id, Created: true, Status: status}, nil
}

// Editable returns the caller's own idea when it may still be edited (Draft or Submitted)
func (s *IdeaSubmitter) Editable(ctx context.Context, ideaID int) (result0 *models.Idea, err error) {
	ctx, span := observability.TraceFormFunction(ctx, "editable_idea", observability.AttributeIdeaID(ideaID))
	defer observability.FinishSpan(span, &err)

	user, err := s.session.RequireUser()
	if err != nil {
		return nil, err
	}
	ideas, err := s.client.UserIdeas(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	idx := indexOfIdea(ideas, ideaID)
	if idx < 0 {
		return nil, contextutils.Errorf(contextutils.ErrRecordNotFound, "Idea %d is not one of your ideas", ideaID)
	}
	idea := ideas[idx]
	if idea.Status != models.StatusDraft && idea.Status != models.StatusSubmitted {
		return nil, contextutils.Errorf(contextutils.ErrForbidden,
			"Idea %d is %s and can no longer be edited", ideaID, idea.Status)
	}
	return &idea, nil
}
