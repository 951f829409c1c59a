package services

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	contextutils "ideaboard/internal/utils"
)

// ChartKind names one of the dashboard frequency charts
type ChartKind string

const (
	ChartStatus     ChartKind = "status"
	ChartCompany    ChartKind = "company"
	ChartCategory   ChartKind = "category"
	ChartDepartment ChartKind = "department"
)

// ChartKinds lists every chart in display order
var ChartKinds = []ChartKind{ChartStatus, ChartCompany, ChartCategory, ChartDepartment}

// DefaultCharts is the selection a fresh dashboard shows
var DefaultCharts = []ChartKind{ChartStatus, ChartCompany}

var chartTitles = map[ChartKind]string{
	ChartStatus:     "Ideas by Status",
	ChartCompany:    "Ideas by Company",
	ChartCategory:   "Ideas by Category",
	ChartDepartment: "Ideas by Department",
}

const unspecifiedLabel = "Unspecified"

// Title returns the chart heading
func (k ChartKind) Title() string {
	return chartTitles[k]
}

// ParseChartKinds converts names such as "status,company" into kinds
func ParseChartKinds(names []string) ([]ChartKind, error) {
	var kinds []ChartKind
	for _, raw := range names {
		for _, name := range strings.Split(raw, ",") {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			kind := ChartKind(name)
			if _, ok := chartTitles[kind]; !ok {
				return nil, contextutils.Errorf(contextutils.ErrInvalidInput, "unknown chart %q", name)
			}
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}

// ChartSelection is the set of charts the dashboard shows
type ChartSelection struct {
	selected map[ChartKind]bool
}

// NewChartSelection starts with kinds selected, or DefaultCharts when none are given
func NewChartSelection(kinds ...ChartKind) *ChartSelection {
	if len(kinds) == 0 {
		kinds = DefaultCharts
	}
	s := &ChartSelection{selected: make(map[ChartKind]bool, len(ChartKinds))}
	for _, k := range kinds {
		s.selected[k] = true
	}
	return s
}

// Toggle flips kind and reports whether it is now selected
func (s *ChartSelection) Toggle(kind ChartKind) bool {
	s.selected[kind] = !s.selected[kind]
	return s.selected[kind]
}

// Has reports whether kind is selected
func (s *ChartSelection) Has(kind ChartKind) bool {
	return s.selected[kind]
}

// Kinds returns the selected charts in display order
func (s *ChartSelection) Kinds() []ChartKind {
	var kinds []ChartKind
	for _, k := range ChartKinds {
		if s.selected[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// Bucket is one label and its count
type Bucket struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// Chart is one frequency table
type Chart struct {
	Kind    ChartKind `json:"kind" yaml:"kind"`
	Title   string    `json:"title" yaml:"title"`
	Buckets []Bucket  `json:"buckets" yaml:"buckets"`
}

// Total sums the bucket counts
func (c Chart) Total() int {
	total := 0
	for _, b := range c.Buckets {
		total += b.Count
	}
	return total
}

// Max returns the largest bucket count
func (c Chart) Max() int {
	max := 0
	for _, b := range c.Buckets {
		if b.Count > max {
			max = b.Count
		}
	}
	return max
}

// KPI holds the headline counts of the admin dashboard
type KPI struct {
	Total       int `json:"total" yaml:"total"`
	Approved    int `json:"approved" yaml:"approved"`
	UnderReview int `json:"under_review" yaml:"under_review"`
	Rejected    int `json:"rejected" yaml:"rejected"`
}

// DashboardService aggregates idea lists into charts and exports. It holds no state.
type DashboardService struct {
	logger *observability.Logger
}

// NewDashboardService creates a DashboardService
func NewDashboardService(logger *observability.Logger) *DashboardService {
	if logger == nil {
		panic("NewDashboardService: logger is nil")
	}
	return &DashboardService{logger: logger}
}

// counter keeps labels in first-seen order
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) seed(label string) {
	if _, ok := c.counts[label]; !ok {
		c.order = append(c.order, label)
		c.counts[label] = 0
	}
}

func (c *counter) add(label string) {
	c.seed(label)
	c.counts[label]++
}

func (c *counter) buckets() []Bucket {
	out := make([]Bucket, 0, len(c.order))
	for _, label := range c.order {
		out = append(out, Bucket{Label: label, Count: c.counts[label]})
	}
	return out
}

// Aggregate builds the selected charts from ideas. Drafts are left out. The department chart
// lists every option of the departmentsImpacted field, including those with no ideas.
func (s *DashboardService) Aggregate(ideas []models.Idea, kinds []ChartKind, fields []models.FormField) []Chart {
	charts := make([]Chart, 0, len(kinds))
	for _, kind := range kinds {
		c := newCounter()
		switch kind {
		case ChartStatus:
			for _, idea := range ideas {
				if !idea.IsDraft() {
					c.add(labelOrUnspecified(string(idea.Status)))
				}
			}
		case ChartCompany:
			for _, idea := range ideas {
				if !idea.IsDraft() {
					c.add(labelOrUnspecified(idea.Company))
				}
			}
		case ChartCategory:
			for _, idea := range ideas {
				if !idea.IsDraft() && strings.TrimSpace(idea.IdeaCategory) != "" {
					c.add(idea.IdeaCategory)
				}
			}
		case ChartDepartment:
			field, ok := models.FindField(fields, "departmentsImpacted")
			if !ok {
				break
			}
			for _, option := range field.Options {
				c.seed(option)
			}
			for _, idea := range ideas {
				if idea.IsDraft() {
					continue
				}
				for _, dept := range idea.DepartmentsImpacted {
					if _, known := c.counts[dept]; known {
						c.counts[dept]++
					}
				}
			}
		default:
			continue
		}
		charts = append(charts, Chart{Kind: kind, Title: kind.Title(), Buckets: c.buckets()})
	}
	return charts
}

func labelOrUnspecified(label string) string {
	if strings.TrimSpace(label) == "" {
		return unspecifiedLabel
	}
	return label
}

// KPIs counts submitted ideas by headline status
func (s *DashboardService) KPIs(ideas []models.Idea) KPI {
	var k KPI
	for _, idea := range ideas {
		if idea.IsDraft() {
			continue
		}
		k.Total++
		switch idea.Status {
		case models.StatusApproved:
			k.Approved++
		case models.StatusUnderReview:
			k.UnderReview++
		case models.StatusRejected:
			k.Rejected++
		}
	}
	return k
}

// CSVHeader is the first row of ExportCSV
var CSVHeader = []string{"ID", "Title", "Submitter", "Company", "Category", "Status", "Submission Date"}

// ExportCSV writes one row per idea under CSVHeader
func (s *DashboardService) ExportCSV(w io.Writer, ideas []models.Idea) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return contextutils.WrapError(err, "failed to write CSV header")
	}
	for _, idea := range ideas {
		row := []string{
			strconv.Itoa(idea.ID),
			idea.IdeaTitle,
			idea.EmployeeName,
			idea.Company,
			idea.IdeaCategory,
			string(idea.Status),
			models.DateOnly(idea.SubmissionDate),
		}
		if err := cw.Write(row); err != nil {
			return contextutils.WrapErrorf(err, "failed to write CSV row for idea %d", idea.ID)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return contextutils.WrapError(err, "failed to flush CSV")
	}
	return nil
}
