// Package views renders ideas, comments, notifications and charts as terminal text.
package views

import (
	"fmt"
	"html"
	"io"
	"strings"
	"text/tabwriter"

	"ideaboard/internal/models"
	"ideaboard/internal/services"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// Sanitize strips markup from user-supplied text and collapses surrounding whitespace
func Sanitize(s string) string {
	return strings.TrimSpace(html.UnescapeString(sanitizer.Sanitize(s)))
}

// BarWidth is the length of the longest bar drawn by ChartText
const BarWidth = 40

const dash = "-"

func orDash(s string) string {
	if s = Sanitize(s); s == "" {
		return dash
	}
	return s
}

// IdeaDetail writes every field of idea, followed by its reaction counts
func IdeaDetail(w io.Writer, idea models.Idea) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"ID", fmt.Sprintf("%d", idea.ID)},
		{"Title", orDash(idea.IdeaTitle)},
		{"Submitted by", orDash(idea.EmployeeName)},
		{"Company", orDash(idea.Company)},
		{"Category", orDash(idea.IdeaCategory)},
		{"Departments", orDash(strings.Join(idea.DepartmentsImpacted, ", "))},
		{"Status", orDash(string(idea.Status))},
		{"Submitted", orDash(models.DateOnly(idea.SubmissionDate))},
		{"Problem", orDash(idea.ProblemStatement)},
		{"Solution", orDash(idea.ProposedSolution)},
		{"Benefits", orDash(idea.ExpectedBenefits)},
		{"Data available", orDash(idea.AvailabilityOfData)},
	}
	if idea.DataSources != nil {
		rows = append(rows, [2]string{"Data sources", orDash(*idea.DataSources)})
	}
	rows = append(rows,
		[2]string{"Estimated cost", orDash(idea.EstimatedCost)},
		[2]string{"Timeline", orDash(idea.ImplementationTimeline)},
		[2]string{"Reactions", reactionLine(idea)},
	)
	for _, row := range rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func reactionLine(idea models.Idea) string {
	line := fmt.Sprintf("%d likes, %d dislikes (net %d)", idea.Likes, idea.Dislikes, idea.NetScore())
	switch idea.UserReaction {
	case models.ReactionLike:
		line += ", you liked this"
	case models.ReactionDislike:
		line += ", you disliked this"
	}
	return line
}

// IdeaTable writes one row per idea
func IdeaTable(w io.Writer, ideas []models.Idea) error {
	if len(ideas) == 0 {
		_, err := fmt.Fprintln(w, "No ideas found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tTITLE\tSUBMITTER\tCOMPANY\tSTATUS\tDATE\tSCORE"); err != nil {
		return err
	}
	for _, idea := range ideas {
		marker := ""
		switch idea.UserReaction {
		case models.ReactionLike:
			marker = " +"
		case models.ReactionDislike:
			marker = " -"
		}
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%d%s\n",
			idea.ID,
			truncate(orDash(idea.IdeaTitle), 40),
			truncate(orDash(idea.EmployeeName), 24),
			orDash(idea.Company),
			orDash(string(idea.Status)),
			orDash(models.DateOnly(idea.SubmissionDate)),
			idea.NetScore(), marker); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// CommentThread writes comments oldest first, as given
func CommentThread(w io.Writer, comments []models.Comment) error {
	if len(comments) == 0 {
		_, err := fmt.Fprintln(w, "No comments yet.")
		return err
	}
	for _, c := range comments {
		author := orDash(c.Email)
		if c.Role != "" {
			author = fmt.Sprintf("%s (%s)", author, c.Role)
		}
		if _, err := fmt.Fprintf(w, "[%s] %s\n  %s\n", orDash(models.DateOnly(c.CreatedAt)), author, orDash(c.Comment)); err != nil {
			return err
		}
	}
	return nil
}

// NotificationList writes notifications with their kind and read marker
func NotificationList(w io.Writer, notifications []models.Notification) error {
	if len(notifications) == 0 {
		_, err := fmt.Fprintln(w, "No notifications.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, n := range notifications {
		marker := "*"
		if n.Read() {
			marker = " "
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			marker, orDash(models.DateOnly(n.CreatedAt)), n.Kind(), orDash(n.Message)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// ChartText draws chart as horizontal bars scaled to BarWidth
func ChartText(w io.Writer, chart services.Chart) error {
	if _, err := fmt.Fprintf(w, "%s (%d)\n", chart.Title, chart.Total()); err != nil {
		return err
	}
	if len(chart.Buckets) == 0 {
		_, err := fmt.Fprintln(w, "  no data")
		return err
	}
	max := chart.Max()
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, b := range chart.Buckets {
		n := 0
		if max > 0 {
			n = b.Count * BarWidth / max
		}
		if b.Count > 0 && n == 0 {
			n = 1
		}
		if _, err := fmt.Fprintf(tw, "  %s\t%s %d\n", Sanitize(b.Label), strings.Repeat("#", n), b.Count); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// KPILine writes the dashboard headline counts
func KPILine(w io.Writer, kpi services.KPI) error {
	_, err := fmt.Fprintf(w, "Total: %d  Approved: %d  Under Review: %d  Rejected: %d\n",
		kpi.Total, kpi.Approved, kpi.UnderReview, kpi.Rejected)
	return err
}

// UserTable writes one row per user
func UserTable(w io.Writer, users []models.User) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tROLE"); err != nil {
		return err
	}
	for _, u := range users {
		if _, err := fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", u.ID, orDash(u.Email), orDash(u.FullName), orDash(string(u.Role))); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// FieldTable writes the form configuration in order
func FieldTable(w io.Writer, fields []models.FormField) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "#\tID\tNAME\tLABEL\tTYPE\tREQUIRED\tOPTIONS\tDEPENDS ON"); err != nil {
		return err
	}
	for i, f := range fields {
		depends := dash
		if f.DependsOn != "" {
			depends = fmt.Sprintf("%s=%s", f.DependsOn, f.DependsOnValue)
		}
		required := "no"
		if f.Required {
			required = "yes"
		}
		if _, err := fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i, f.ID, f.Name, orDash(f.Label), f.Type, required,
			orDash(strings.Join(f.Options, ", ")), depends); err != nil {
			return err
		}
	}
	return tw.Flush()
}
