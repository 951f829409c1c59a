package models

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// IdeaStatus is the lifecycle state of an idea
type IdeaStatus string

const (
	StatusDraft       IdeaStatus = "Draft"
	StatusSubmitted   IdeaStatus = "Submitted"
	StatusUnderReview IdeaStatus = "Under Review"
	StatusShortlisted IdeaStatus = "Shortlisted"
	StatusApproved    IdeaStatus = "Approved"
	StatusRejected    IdeaStatus = "Rejected"
	StatusImplemented IdeaStatus = "Implemented"
)

// ReviewStatuses are the values an admin may assign from the review table
var ReviewStatuses = []IdeaStatus{
	StatusSubmitted,
	StatusUnderReview,
	StatusShortlisted,
	StatusApproved,
	StatusRejected,
}

// IsValid reports whether s is a known status
func (s IdeaStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusShortlisted,
		StatusApproved, StatusRejected, StatusImplemented:
		return true
	}
	return false
}

// ParseIdeaStatus matches a status case-insensitively, accepting "under-review" style input
func ParseIdeaStatus(s string) (IdeaStatus, bool) {
	normalized := strings.ReplaceAll(strings.TrimSpace(s), "-", " ")
	for _, candidate := range append([]IdeaStatus{StatusDraft, StatusImplemented}, ReviewStatuses...) {
		if strings.EqualFold(string(candidate), normalized) {
			return candidate, true
		}
	}
	return "", false
}

// ReactionType is the caller's reaction to an idea
type ReactionType string

const (
	ReactionNone    ReactionType = ""
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

// IsValid reports whether r is a reaction the server accepts as input
func (r ReactionType) IsValid() bool {
	return r == ReactionLike || r == ReactionDislike
}

// MarshalJSON encodes the none state as null, matching the backend
func (r ReactionType) MarshalJSON() ([]byte, error) {
	if r == ReactionNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

// String renders the none state as "none"
func (r ReactionType) String() string {
	if r == ReactionNone {
		return "none"
	}
	return string(r)
}

// StringList decodes from either a JSON array of strings or a single JSON string
// (possibly itself a JSON-encoded array), and always encodes as an array.
type StringList []string

// UnmarshalJSON accepts null, "a", "[\"a\",\"b\"]" and ["a","b"]
func (l *StringList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	trimmed := strings.TrimSpace(single)
	if strings.HasPrefix(trimmed, "[") {
		var items []string
		if err := json.Unmarshal([]byte(trimmed), &items); err == nil {
			*l = items
			return nil
		}
	}
	if trimmed == "" {
		*l = nil
		return nil
	}
	*l = StringList{single}
	return nil
}

// MarshalJSON always emits an array, never null
func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

// Idea is one idea row as returned by GET /ideas
type Idea struct {
	ID                     int          `json:"id" yaml:"id"`
	UserID                 int          `json:"user_id" yaml:"user_id"`
	Email                  string       `json:"email,omitempty" yaml:"email,omitempty"`
	EmployeeName           string       `json:"employeeName" yaml:"employeeName"`
	Company                string       `json:"company" yaml:"company"`
	IdeaTitle              string       `json:"ideaTitle" yaml:"ideaTitle"`
	IdeaCategory           string       `json:"ideaCategory" yaml:"ideaCategory"`
	DepartmentsImpacted    StringList   `json:"departmentsImpacted" yaml:"departmentsImpacted"`
	ProblemStatement       string       `json:"problemStatement" yaml:"problemStatement"`
	ProposedSolution       string       `json:"proposedSolution" yaml:"proposedSolution"`
	ExpectedBenefits       string       `json:"expectedBenefits" yaml:"expectedBenefits"`
	AvailabilityOfData     string       `json:"availabilityOfData" yaml:"availabilityOfData"`
	DataSources            *string      `json:"dataSources,omitempty" yaml:"dataSources,omitempty"`
	EstimatedCost          string       `json:"estimatedCost" yaml:"estimatedCost"`
	ImplementationTimeline string       `json:"implementationTimeline" yaml:"implementationTimeline"`
	Status                 IdeaStatus   `json:"status" yaml:"status"`
	SubmissionDate         string       `json:"submissionDate" yaml:"submissionDate"`
	LastEditedAt           *string      `json:"last_edited_at,omitempty" yaml:"last_edited_at,omitempty"`
	Likes                  int          `json:"likes" yaml:"likes"`
	Dislikes               int          `json:"dislikes" yaml:"dislikes"`
	Points                 int          `json:"points" yaml:"points"`
	UserReaction           ReactionType `json:"user_reaction" yaml:"user_reaction"`
}

// UnmarshalJSON tolerates a null user_reaction and string-typed counts
func (i *Idea) UnmarshalJSON(data []byte) error {
	type plain Idea
	aux := struct {
		*plain
		UserReaction *string `json:"user_reaction"`
		Likes        flexInt `json:"likes"`
		Dislikes     flexInt `json:"dislikes"`
		Points       flexInt `json:"points"`
	}{plain: (*plain)(i)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	i.UserReaction = ReactionNone
	if aux.UserReaction != nil {
		i.UserReaction = ReactionType(*aux.UserReaction)
	}
	i.Likes = int(aux.Likes)
	i.Dislikes = int(aux.Dislikes)
	i.Points = int(aux.Points)
	return nil
}

// NetScore is likes minus dislikes, always derived from the counts
func (i *Idea) NetScore() int {
	return i.Likes - i.Dislikes
}

// SubmittedAt parses SubmissionDate
func (i *Idea) SubmittedAt() time.Time {
	return ParseTimestamp(i.SubmissionDate)
}

// IsDraft reports whether the idea has not been submitted
func (i *Idea) IsDraft() bool {
	return i.Status == StatusDraft
}

// Values flattens the form-backed fields into a value map keyed by field name
func (i *Idea) Values() map[string]interface{} {
	values := map[string]interface{}{
		"employeeName":           i.EmployeeName,
		"company":                i.Company,
		"ideaTitle":              i.IdeaTitle,
		"ideaCategory":           i.IdeaCategory,
		"departmentsImpacted":    []string(i.DepartmentsImpacted),
		"problemStatement":       i.ProblemStatement,
		"proposedSolution":       i.ProposedSolution,
		"expectedBenefits":       i.ExpectedBenefits,
		"availabilityOfData":     i.AvailabilityOfData,
		"estimatedCost":          i.EstimatedCost,
		"implementationTimeline": i.ImplementationTimeline,
	}
	if i.DataSources != nil {
		values["dataSources"] = *i.DataSources
	}
	return values
}

// flexInt accepts JSON numbers, numeric strings and null
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(strings.TrimSpace(s))
		if len(data) == 0 {
			*f = 0
			return nil
		}
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	v, err := n.Float64()
	if err != nil {
		return err
	}
	*f = flexInt(int(v))
	return nil
}

// ReactionResult is the body of a successful POST /ideas/:id/react
type ReactionResult struct {
	Message      string       `json:"message"`
	Likes        int          `json:"likes"`
	Dislikes     int          `json:"dislikes"`
	Points       int          `json:"points"`
	UserReaction ReactionType `json:"user_reaction"`
}

// UnmarshalJSON tolerates a null user_reaction
func (r *ReactionResult) UnmarshalJSON(data []byte) error {
	type plain ReactionResult
	aux := struct {
		*plain
		UserReaction *string `json:"user_reaction"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.UserReaction = ReactionNone
	if aux.UserReaction != nil {
		r.UserReaction = ReactionType(*aux.UserReaction)
	}
	return nil
}

// StatusUpdate is one entry of POST /ideas/update-status
type StatusUpdate struct {
	ID     int        `json:"id"`
	Status IdeaStatus `json:"status"`
}
