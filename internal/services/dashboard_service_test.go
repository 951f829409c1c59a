package services

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaboard/internal/models"
	"ideaboard/internal/observability"
	contextutils "ideaboard/internal/utils"
)

func dashboardIdeas() []models.Idea {
	return []models.Idea{
		{ID: 1, Status: models.StatusSubmitted, Company: "Zuari", IdeaCategory: "Optimization",
			DepartmentsImpacted: models.StringList{"IT"}, IdeaTitle: "One", EmployeeName: "Ann", SubmissionDate: "2025-01-05T10:00:00Z"},
		{ID: 2, Status: models.StatusApproved, Company: "Simon", IdeaCategory: "",
			DepartmentsImpacted: models.StringList{"HR", "IT"}, IdeaTitle: "Two, with comma", EmployeeName: "Bob", SubmissionDate: "2025-01-06T10:00:00.000000"},
		{ID: 3, Status: models.StatusSubmitted, Company: "Zuari", IdeaCategory: "Optimization",
			DepartmentsImpacted: models.StringList{"Legal"}, IdeaTitle: "Three"},
		{ID: 4, Status: models.StatusDraft, Company: "Paradeep", IdeaCategory: "Drafts",
			DepartmentsImpacted: models.StringList{"Finance"}, IdeaTitle: "Four"},
		{ID: 5, Status: models.StatusRejected, Company: "", IdeaCategory: "Productivity Enhancement Tools",
			IdeaTitle: "Five"},
	}
}

func bucketMap(c Chart) map[string]int {
	out := make(map[string]int, len(c.Buckets))
	for _, b := range c.Buckets {
		out[b.Label] = b.Count
	}
	return out
}

func bucketLabels(c Chart) []string {
	out := make([]string, 0, len(c.Buckets))
	for _, b := range c.Buckets {
		out = append(out, b.Label)
	}
	return out
}

func TestDashboardService_Aggregate(t *testing.T) {
	svc := NewDashboardService(observability.NewNopLogger())
	charts := svc.Aggregate(dashboardIdeas(), ChartKinds, models.DefaultFormFields())
	require.Len(t, charts, 4)

	status := charts[0]
	assert.Equal(t, ChartStatus, status.Kind)
	assert.Equal(t, "Ideas by Status", status.Title)
	assert.Equal(t, []string{"Submitted", "Approved", "Rejected"}, bucketLabels(status), "first-appearance order")
	assert.Equal(t, 2, bucketMap(status)["Submitted"])
	assert.Equal(t, 4, status.Total(), "drafts excluded")

	company := charts[1]
	assert.Equal(t, []string{"Zuari", "Simon", unspecifiedLabel}, bucketLabels(company))
	assert.Equal(t, 2, company.Max())

	category := charts[2]
	assert.Equal(t, map[string]int{"Optimization": 2, "Productivity Enhancement Tools": 1}, bucketMap(category))

	department := charts[3]
	assert.Equal(t, []string{"Finance", "HR", "Operations", "Sales", "IT", "Supply Chain"}, bucketLabels(department))
	counts := bucketMap(department)
	assert.Equal(t, 2, counts["IT"])
	assert.Equal(t, 1, counts["HR"])
	assert.Equal(t, 0, counts["Finance"], "draft departments not counted")
	assert.NotContains(t, counts, "Legal")
}

func TestDashboardService_AggregateIsFreshEachCall(t *testing.T) {
	svc := NewDashboardService(observability.NewNopLogger())
	ideas := dashboardIdeas()

	first := svc.Aggregate(ideas, []ChartKind{ChartStatus}, nil)
	second := svc.Aggregate(ideas[:1], []ChartKind{ChartStatus}, nil)
	assert.Equal(t, 4, first[0].Total())
	assert.Equal(t, 1, second[0].Total())

	none := svc.Aggregate(ideas, []ChartKind{ChartDepartment}, nil)
	require.Len(t, none, 1)
	assert.Empty(t, none[0].Buckets, "no departmentsImpacted field, no buckets")
}

func TestChartSelection(t *testing.T) {
	sel := NewChartSelection()
	assert.Equal(t, DefaultCharts, sel.Kinds())

	assert.True(t, sel.Toggle(ChartDepartment))
	assert.False(t, sel.Toggle(ChartStatus))
	assert.Equal(t, []ChartKind{ChartCompany, ChartDepartment}, sel.Kinds())
	assert.False(t, sel.Has(ChartStatus))

	kinds, err := ParseChartKinds([]string{"Category, status", ""})
	require.NoError(t, err)
	assert.Equal(t, []ChartKind{ChartCategory, ChartStatus}, kinds)

	_, err = ParseChartKinds([]string{"pie"})
	assert.ErrorIs(t, err, contextutils.ErrInvalidInput)
}

func TestDashboardService_KPIs(t *testing.T) {
	svc := NewDashboardService(observability.NewNopLogger())
	ideas := append(dashboardIdeas(), models.Idea{ID: 6, Status: models.StatusUnderReview})

	assert.Equal(t, KPI{Total: 5, Approved: 1, UnderReview: 1, Rejected: 1}, svc.KPIs(ideas))
}

func TestDashboardService_ExportCSV(t *testing.T) {
	svc := NewDashboardService(observability.NewNopLogger())
	var buf bytes.Buffer

	require.NoError(t, svc.ExportCSV(&buf, dashboardIdeas()[:2]))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, CSVHeader, rows[0])
	assert.Equal(t, []string{"1", "One", "Ann", "Zuari", "Optimization", "Submitted", "2025-01-05"}, rows[1])
	assert.Equal(t, "Two, with comma", rows[2][1])
	assert.Equal(t, "2025-01-06", rows[2][6])
}
