package models

import (
	"strings"
)

// FieldType selects the input widget for a form field
type FieldType string

const (
	FieldText        FieldType = "text"
	FieldEmail       FieldType = "email"
	FieldPassword    FieldType = "password"
	FieldTextarea    FieldType = "textarea"
	FieldDropdown    FieldType = "dropdown"
	FieldRadio       FieldType = "radio"
	FieldMultiselect FieldType = "multiselect"
)

// FieldTypes lists every supported field type in menu order
var FieldTypes = []FieldType{
	FieldText, FieldEmail, FieldPassword, FieldTextarea, FieldDropdown, FieldRadio, FieldMultiselect,
}

// IsValid reports whether t is a supported field type
func (t FieldType) IsValid() bool {
	for _, candidate := range FieldTypes {
		if t == candidate {
			return true
		}
	}
	return false
}

// HasOptions reports whether the type draws its choices from Options
func (t FieldType) HasOptions() bool {
	return t == FieldDropdown || t == FieldRadio || t == FieldMultiselect
}

// FormField is one entry of the idea form configuration
type FormField struct {
	ID             int64     `json:"id" yaml:"id"`
	Name           string    `json:"name" yaml:"name"`
	Label          string    `json:"label" yaml:"label"`
	Type           FieldType `json:"type" yaml:"type"`
	Required       bool      `json:"required" yaml:"required"`
	Options        []string  `json:"options,omitempty" yaml:"options,omitempty"`
	Placeholder    string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	ClassName      string    `json:"className" yaml:"className"`
	DependsOn      string    `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	DependsOnValue string    `json:"dependsOnValue,omitempty" yaml:"dependsOnValue,omitempty"`
}

// Clone returns a deep copy of the field
func (f FormField) Clone() FormField {
	if f.Options != nil {
		f.Options = append([]string(nil), f.Options...)
	}
	return f
}

// CloneFields deep-copies a field list
func CloneFields(fields []FormField) []FormField {
	if fields == nil {
		return nil
	}
	out := make([]FormField, len(fields))
	for i, f := range fields {
		out[i] = f.Clone()
	}
	return out
}

// FindField returns the field with the given name
func FindField(fields []FormField, name string) (FormField, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return FormField{}, false
}

// FormValues holds entered values keyed by field name. Values are string, or []string for multiselect.
type FormValues map[string]interface{}

// Get returns the value for name as a string; list values are joined with ", "
func (v FormValues) Get(name string) string {
	switch val := v[name].(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case StringList:
		return strings.Join(val, ", ")
	default:
		return ""
	}
}

// List returns the value for name as a list
func (v FormValues) List(name string) []string {
	switch val := v[name].(type) {
	case []string:
		return val
	case StringList:
		return []string(val)
	case string:
		if strings.TrimSpace(val) == "" {
			return nil
		}
		return []string{val}
	default:
		return nil
	}
}

// IsBlank reports whether name has no usable value
func (v FormValues) IsBlank(name string) bool {
	switch val := v[name].(type) {
	case string:
		return strings.TrimSpace(val) == ""
	case []string:
		return len(val) == 0
	case StringList:
		return len(val) == 0
	default:
		return true
	}
}

// Clone copies the map and any list values
func (v FormValues) Clone() FormValues {
	out := make(FormValues, len(v))
	for k, val := range v {
		if list, ok := val.([]string); ok {
			val = append([]string(nil), list...)
		}
		out[k] = val
	}
	return out
}

// DefaultFormFields returns a fresh copy of the built-in idea form
func DefaultFormFields() []FormField {
	return CloneFields(defaultFormFields)
}

var defaultFormFields = []FormField{
	{ID: 1, Name: "employeeName", Label: "Employee Name", Type: FieldText, Required: true},
	{ID: 2, Name: "company", Label: "Company", Type: FieldDropdown, Required: true,
		Options: []string{"Simon India Ltd", "Zuari Management Services Ltd", "Zuari Agro Chemicals Ltd", "Paradeep Phosphates Ltd"}},
	{ID: 3, Name: "ideaTitle", Label: "Idea Title", Type: FieldText, Required: true,
		Placeholder: "e.g., Automated Customer Support Chatbot", ClassName: "md:col-span-2"},
	{ID: 4, Name: "ideaCategory", Label: "Idea Category", Type: FieldDropdown, Required: true,
		Options: []string{"AI Leadership / Thought Leadership", "Productivity Enhancement Tools", "Optimization"}},
	{ID: 5, Name: "departmentsImpacted", Label: "Department Impacted", Type: FieldDropdown, Required: true,
		Options: []string{"Finance", "HR", "Operations", "Sales", "IT", "Supply Chain"}},
	{ID: 6, Name: "problemStatement", Label: "Problem Statement", Type: FieldTextarea, Required: true,
		Placeholder: "Describe the current problem.", ClassName: "md:col-span-2"},
	{ID: 7, Name: "proposedSolution", Label: "Proposed Solution", Type: FieldTextarea, Required: true,
		Placeholder: "Describe your proposed solution.", ClassName: "md:col-span-2"},
	{ID: 8, Name: "expectedBenefits", Label: "Expected Benefits / ROI", Type: FieldTextarea, Required: true,
		Placeholder: "e.g., Cost savings, efficiency gains.", ClassName: "md:col-span-2"},
	{ID: 9, Name: "availabilityOfData", Label: "Availability of Data", Type: FieldRadio, Required: true,
		Options: []string{"Yes", "No"}, ClassName: "md:col-span-2"},
	{ID: 10, Name: "dataSources", Label: "Data Sources", Type: FieldTextarea, Required: true,
		Placeholder: "Describe the data sources.", DependsOn: "availabilityOfData", DependsOnValue: "Yes"},
	{ID: 11, Name: "estimatedCost", Label: "Estimated Cost / Resource Need", Type: FieldTextarea, Required: true,
		Placeholder: "e.g., Software licenses, personnel.", ClassName: "md:col-span-2"},
	{ID: 12, Name: "implementationTimeline", Label: "Estimated Implementation Timeline", Type: FieldDropdown, Required: true,
		Options: []string{"0–3 months", "3–6 months", "6–12 months", "12+ months"}},
}
