package views

import (
	"bytes"
	"strings"
	"testing"

	"ideaboard/internal/models"
	"ideaboard/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Chatbot", "Chatbot"},
		{"tags stripped", "<b>Fish</b> &amp; Chips", "Fish & Chips"},
		{"ampersand kept", "Tom & Jerry", "Tom & Jerry"},
		{"whitespace trimmed", "  spaced  ", "spaced"},
		{"link text kept", `<a href="http://x">site</a>`, "site"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}

func TestIdeaTable(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, IdeaTable(&buf, nil))
		assert.Equal(t, "No ideas found.\n", buf.String())
	})

	t.Run("rows", func(t *testing.T) {
		var buf bytes.Buffer
		ideas := []models.Idea{
			{ID: 7, IdeaTitle: "<i>Chatbot</i>", EmployeeName: "Ann", Company: "Simon India Ltd",
				Status: models.StatusSubmitted, SubmissionDate: "2024-05-02T10:00:00Z", Likes: 3, Dislikes: 1,
				UserReaction: models.ReactionLike},
			{ID: 8, IdeaTitle: "Dashboards", Status: models.StatusApproved},
		}
		require.NoError(t, IdeaTable(&buf, ideas))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "ID"))
		assert.Contains(t, lines[1], "Chatbot")
		assert.NotContains(t, lines[1], "<i>")
		assert.Contains(t, lines[1], "2024-05-02")
		assert.True(t, strings.HasSuffix(lines[1], "2 +"))
		assert.Contains(t, lines[2], "Approved")
		assert.Contains(t, lines[2], dash)
	})
}

func TestIdeaDetail(t *testing.T) {
	sources := "CRM exports"
	idea := models.Idea{
		ID: 3, IdeaTitle: "Chatbot", EmployeeName: "Ann", DepartmentsImpacted: models.StringList{"IT", "HR"},
		AvailabilityOfData: "Yes", DataSources: &sources, Likes: 2, UserReaction: models.ReactionLike,
	}
	var buf bytes.Buffer
	require.NoError(t, IdeaDetail(&buf, idea))

	out := buf.String()
	assert.Contains(t, out, "Chatbot")
	assert.Contains(t, out, "IT, HR")
	assert.Contains(t, out, "Data sources:")
	assert.Contains(t, out, "CRM exports")
	assert.Contains(t, out, "2 likes, 0 dislikes (net 2), you liked this")

	buf.Reset()
	idea.DataSources = nil
	require.NoError(t, IdeaDetail(&buf, idea))
	assert.NotContains(t, buf.String(), "Data sources:")
}

func TestCommentThread(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CommentThread(&buf, nil))
	assert.Equal(t, "No comments yet.\n", buf.String())

	buf.Reset()
	comments := []models.Comment{
		{Email: "hr@adventz.com", Role: models.RoleHR, Comment: "<p>Looks good</p>", CreatedAt: "2024-05-03 09:00:00"},
	}
	require.NoError(t, CommentThread(&buf, comments))
	assert.Equal(t, "[2024-05-03] hr@adventz.com (hr)\n  Looks good\n", buf.String())
}

func TestNotificationList(t *testing.T) {
	var buf bytes.Buffer
	notifications := []models.Notification{
		{ID: 1, Message: "Your idea 'Chatbot' status updated to Approved", CreatedAt: "2024-05-03T09:00:00Z"},
		{ID: 2, Message: "Bob commented on your idea", IsRead: true, CreatedAt: "2024-05-04T09:00:00Z"},
	}
	require.NoError(t, NotificationList(&buf, notifications))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "*"))
	assert.Contains(t, lines[0], string(models.KindStatusUpdate))
	assert.True(t, strings.HasPrefix(lines[1], " "))
	assert.Contains(t, lines[1], string(models.KindNewComment))
}

func TestChartText(t *testing.T) {
	chart := services.Chart{
		Kind:  services.ChartStatus,
		Title: "Ideas by Status",
		Buckets: []services.Bucket{
			{Label: "Submitted", Count: 4},
			{Label: "Approved", Count: 2},
			{Label: "Rejected", Count: 0},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, ChartText(&buf, chart))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Ideas by Status (6)", lines[0])
	assert.True(t, strings.HasSuffix(lines[1], strings.Repeat("#", BarWidth)+" 4"))
	assert.True(t, strings.HasSuffix(lines[2], " "+strings.Repeat("#", BarWidth/2)+" 2"))
	assert.NotContains(t, lines[3], "#")

	buf.Reset()
	require.NoError(t, ChartText(&buf, services.Chart{Title: "Ideas by Company"}))
	assert.Equal(t, "Ideas by Company (0)\n  no data\n", buf.String())
}

func TestFieldTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, FieldTable(&buf, models.DefaultFormFields()))
	out := buf.String()
	assert.Contains(t, out, "availabilityOfData=Yes")
	assert.Contains(t, out, "Finance, HR, Operations")
	assert.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 13)
}
