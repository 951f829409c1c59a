package services

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"ideaboard/internal/config"
	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	"ideaboard/internal/storage"
	contextutils "ideaboard/internal/utils"
)

//go:embed schemas/form_config.schema.json
var formConfigSchemaJSON []byte

// formConfigDocument is the persisted form configuration
type formConfigDocument struct {
	Revision uint64             `json:"revision"`
	Fields   []models.FormField `json:"fields"`
}

// FormConfigService persists the idea form's field list. Saves overwrite the whole list.
type FormConfigService struct {
	store  *storage.JSONFile
	logger *observability.Logger

	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
}

// NewFormConfigService creates a store at the configured state path
func NewFormConfigService(cfg *config.Config, logger *observability.Logger) *FormConfigService {
	if cfg == nil {
		panic("NewFormConfigService: cfg is nil")
	}
	return NewFormConfigServiceWithStore(
		storage.NewJSONFile(cfg.StatePath(config.FormConfigFileName),
			storage.WithPerm(0o644), storage.WithLockTimeout(cfg.Storage.LockTimeout)),
		logger)
}

// NewFormConfigServiceWithStore creates a store over an explicit file (for testing)
func NewFormConfigServiceWithStore(store *storage.JSONFile, logger *observability.Logger) *FormConfigService {
	if store == nil {
		panic("NewFormConfigServiceWithStore: store is nil")
	}
	if logger == nil {
		panic("NewFormConfigServiceWithStore: logger is nil")
	}
	return &FormConfigService{store: store, logger: logger}
}

// Load returns the persisted field list, or the built-in default when nothing usable is stored.
// An unreadable or invalid document is logged and replaced by the default; it is not an error.
func (s *FormConfigService) Load(ctx context.Context) (result0 []models.FormField, err error) {
	doc, err := s.loadDocument(ctx)
	if err != nil {
		return nil, err
	}
	return doc.Fields, nil
}

// Revision returns the revision of the persisted list (0 when nothing is stored)
func (s *FormConfigService) Revision(ctx context.Context) (uint64, error) {
	doc, err := s.loadDocument(ctx)
	if err != nil {
		return 0, err
	}
	return doc.Revision, nil
}

func (s *FormConfigService) loadDocument(ctx context.Context) (result0 *formConfigDocument, err error) {
	ctx, span := observability.TraceFormFunction(ctx, "load_form_config")
	defer observability.FinishSpan(span, &err)

	var raw json.RawMessage
	found, err := s.store.Load(ctx, &raw)
	if err != nil {
		if contextutils.IsError(err, contextutils.ErrTimeout) {
			return nil, err
		}
		s.logger.Warn(ctx, "Form configuration unreadable, using defaults", map[string]interface{}{
			"path":  s.store.Path(),
			"error": err.Error(),
		})
		return defaultDocument(), nil
	}
	if !found {
		return defaultDocument(), nil
	}

	doc, err := s.parseDocument(raw)
	if err != nil {
		s.logger.Warn(ctx, "Form configuration invalid, using defaults", map[string]interface{}{
			"path":  s.store.Path(),
			"error": err.Error(),
		})
		return defaultDocument(), nil
	}
	return doc, nil
}

func defaultDocument() *formConfigDocument {
	return &formConfigDocument{Fields: models.DefaultFormFields()}
}

// parseDocument checks raw against the schema and decodes it. A bare field array (the
// older format) is accepted as revision 0.
func (s *FormConfigService) parseDocument(raw json.RawMessage) (*formConfigDocument, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		trimmed = []byte(fmt.Sprintf(`{"revision":0,"fields":%s}`, trimmed))
	}
	if err := s.validateDocument(trimmed); err != nil {
		return nil, err
	}

	var doc formConfigDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, contextutils.WrapError(err, "failed to decode form configuration")
	}
	if err := ValidateFields(doc.Fields); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *FormConfigService) validateDocument(data []byte) error {
	s.schemaOnce.Do(func() {
		s.schema, s.schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(formConfigSchemaJSON))
	})
	if s.schemaErr != nil {
		return contextutils.WrapError(s.schemaErr, "failed to compile form configuration schema")
	}

	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return contextutils.WrapErrorf(contextutils.ErrInvalidFormat, "form configuration is not valid JSON: %v", err)
	}
	if !result.Valid() {
		var problems []string
		for _, validationErr := range result.Errors() {
			problems = append(problems, fmt.Sprintf("%s: %s", validationErr.Field(), validationErr.Description()))
		}
		return contextutils.Errorf(contextutils.ErrInvalidFormat, "schema validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateFields checks the rules the schema cannot express: unique ids and names, and
// dependencies that point at another field.
func ValidateFields(fields []models.FormField) error {
	ids := make(map[int64]bool, len(fields))
	names := make(map[string]bool, len(fields))
	for _, f := range fields {
		if ids[f.ID] {
			return contextutils.Errorf(contextutils.ErrValidationFailed, "duplicate field id %d", f.ID)
		}
		ids[f.ID] = true
		if names[f.Name] {
			return contextutils.Errorf(contextutils.ErrValidationFailed, "duplicate field name %q", f.Name)
		}
		names[f.Name] = true
		if !f.Type.IsValid() {
			return contextutils.Errorf(contextutils.ErrValidationFailed, "field %q has unknown type %q", f.Name, f.Type)
		}
	}
	for _, f := range fields {
		if f.DependsOn != "" && (!names[f.DependsOn] || f.DependsOn == f.Name) {
			return contextutils.Errorf(contextutils.ErrValidationFailed, "field %q depends on unknown field %q", f.Name, f.DependsOn)
		}
	}
	return nil
}

// Save overwrites the stored list with fields (last writer wins) and returns the new revision
func (s *FormConfigService) Save(ctx context.Context, fields []models.FormField) (result0 uint64, err error) {
	ctx, span := observability.TraceFormFunction(ctx, "save_form_config")
	defer observability.FinishSpan(span, &err)

	return s.write(ctx, fields, nil)
}

// Reset restores the built-in default list
func (s *FormConfigService) Reset(ctx context.Context) (uint64, error) {
	return s.Save(ctx, models.DefaultFormFields())
}

// SaveDraft saves d only if nobody else saved since d was opened; otherwise it fails with
// ErrConflict and nothing is written.
func (s *FormConfigService) SaveDraft(ctx context.Context, d *FormConfigDraft) (result0 uint64, err error) {
	ctx, span := observability.TraceFormFunction(ctx, "save_form_config_draft")
	defer observability.FinishSpan(span, &err)

	base := d.Revision()
	rev, err := s.write(ctx, d.Fields(), &base)
	if err != nil {
		return 0, err
	}
	d.rebase(rev)
	return rev, nil
}

func (s *FormConfigService) write(ctx context.Context, fields []models.FormField, expected *uint64) (uint64, error) {
	if err := ValidateFields(fields); err != nil {
		return 0, err
	}

	var raw json.RawMessage
	var next formConfigDocument
	err := s.store.Update(ctx, &raw, func(found bool) error {
		current := uint64(0)
		if found {
			if doc, perr := s.parseDocument(raw); perr == nil {
				current = doc.Revision
			}
		}
		if expected != nil && *expected != current {
			return contextutils.Errorf(contextutils.ErrConflict,
				"form configuration changed since it was opened (revision %d, now %d)", *expected, current)
		}
		next = formConfigDocument{Revision: current + 1, Fields: models.CloneFields(fields)}
		encoded, merr := json.Marshal(next)
		if merr != nil {
			return contextutils.WrapError(merr, "failed to encode form configuration")
		}
		raw = encoded
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info(ctx, "Form configuration saved", map[string]interface{}{
		"revision": next.Revision,
		"fields":   len(next.Fields),
	})
	return next.Revision, nil
}

// Edit opens a draft over the current list
func (s *FormConfigService) Edit(ctx context.Context) (*FormConfigDraft, error) {
	doc, err := s.loadDocument(ctx)
	if err != nil {
		return nil, err
	}
	return &FormConfigDraft{fields: doc.Fields, revision: doc.Revision}, nil
}

// FormConfigDraft is an in-memory working copy of the field list. Nothing persists until it is
// passed to SaveDraft. A draft is not safe for concurrent use.
type FormConfigDraft struct {
	fields   []models.FormField
	revision uint64
	dirty    bool
}

// NewFormConfigDraft starts a draft from fields at revision
func NewFormConfigDraft(fields []models.FormField, revision uint64) *FormConfigDraft {
	return &FormConfigDraft{fields: models.CloneFields(fields), revision: revision}
}

// Fields returns a copy of the draft's list
func (d *FormConfigDraft) Fields() []models.FormField {
	return models.CloneFields(d.fields)
}

// Revision is the stored revision the draft was opened at
func (d *FormConfigDraft) Revision() uint64 {
	return d.revision
}

// Dirty reports unsaved changes
func (d *FormConfigDraft) Dirty() bool {
	return d.dirty
}

func (d *FormConfigDraft) rebase(revision uint64) {
	d.revision = revision
	d.dirty = false
}

// AddField appends a blank text field with a fresh id and a generated name
func (d *FormConfigDraft) AddField() models.FormField {
	var maxID int64
	for _, f := range d.fields {
		if f.ID > maxID {
			maxID = f.ID
		}
	}
	field := models.FormField{
		ID:    maxID + 1,
		Name:  "customField" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Label: "New Field",
		Type:  models.FieldText,
	}
	d.fields = append(d.fields, field)
	d.dirty = true
	return field
}

// RemoveField deletes the field with id
func (d *FormConfigDraft) RemoveField(id int64) error {
	idx := d.index(id)
	if idx < 0 {
		return contextutils.Errorf(contextutils.ErrRecordNotFound, "no field with id %d", id)
	}
	d.fields = append(d.fields[:idx:idx], d.fields[idx+1:]...)
	d.dirty = true
	return nil
}

// MoveField swaps the field at index with its neighbour in direction (-1 up, +1 down). A move
// past either end does nothing and reports false.
func (d *FormConfigDraft) MoveField(index, direction int) bool {
	target := index + direction
	if direction == 0 || index < 0 || index >= len(d.fields) || target < 0 || target >= len(d.fields) {
		return false
	}
	d.fields[index], d.fields[target] = d.fields[target], d.fields[index]
	d.dirty = true
	return true
}

// SetOptions replaces the options of field id with the comma-separated list raw
func (d *FormConfigDraft) SetOptions(id int64, raw string) error {
	idx := d.index(id)
	if idx < 0 {
		return contextutils.Errorf(contextutils.ErrRecordNotFound, "no field with id %d", id)
	}
	options := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		options = append(options, strings.TrimSpace(part))
	}
	d.fields[idx].Options = options
	d.dirty = true
	return nil
}

// UpdateField applies mutate to field id. The id cannot be changed and the type must stay valid.
func (d *FormConfigDraft) UpdateField(id int64, mutate func(*models.FormField)) error {
	idx := d.index(id)
	if idx < 0 {
		return contextutils.Errorf(contextutils.ErrRecordNotFound, "no field with id %d", id)
	}
	updated := d.fields[idx].Clone()
	mutate(&updated)
	updated.ID = id
	if !updated.Type.IsValid() {
		return contextutils.Errorf(contextutils.ErrInvalidInput, "unknown field type %q", updated.Type)
	}
	d.fields[idx] = updated
	d.dirty = true
	return nil
}

func (d *FormConfigDraft) index(id int64) int {
	for i := range d.fields {
		if d.fields[i].ID == id {
			return i
		}
	}
	return -1
}
