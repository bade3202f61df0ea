package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/youthhub-metrics-api/internal/models"
)

// Activity is a user acting at a point in time. Without a session log the
// creation timestamp of the user's own records is the activity signal.
type Activity struct {
	UserID string
	At     time.Time
}

type trailingWindow struct {
	label  string
	length time.Duration
}

// Trailing windows are anchored on the evaluation instant, not on the report
// window. A 90 day report still says who was active yesterday.
var trailingWindows = []trailingWindow{
	{label: "1d", length: 24 * time.Hour},
	{label: "7d", length: 7 * 24 * time.Hour},
	{label: "30d", length: 30 * 24 * time.Hour},
}

// PeriodWindow labels the activity count over the report window itself.
const PeriodWindow = "period"

type engagementAggregator struct {
	src Sources
}

func (a *engagementAggregator) Name() Name { return Engagement }

// Run reads activity over the union of the report window and the longest
// trailing window so a single fetch per source serves every sub-window.
func (a *engagementAggregator) Run(ctx context.Context, scope models.Scope) (models.ReportData, error) {
	now := asOf(scope)
	longest := trailingWindows[len(trailingWindows)-1].length
	fetch := scope.WithWindow(scope.Window.Hull(models.Window{Start: now.Add(-longest), End: now}))

	activity := make([]Activity, 0)
	var messages []models.Message

	if f := fetch.Applications; f != nil {
		if a.src.Applications == nil {
			return models.ReportData{}, errSourceMissing("applications")
		}
		apps, err := a.src.Applications.List(ctx, *f)
		if err != nil {
			return models.ReportData{}, fmt.Errorf("list applications: %w", err)
		}
		for _, app := range apps {
			activity = append(activity, Activity{UserID: app.ApplicantID, At: app.AppliedAt})
		}
	}
	if f := fetch.Enrollments; f != nil {
		if a.src.Enrollments == nil {
			return models.ReportData{}, errSourceMissing("enrollments")
		}
		enrollments, err := a.src.Enrollments.List(ctx, *f)
		if err != nil {
			return models.ReportData{}, fmt.Errorf("list enrollments: %w", err)
		}
		for _, e := range enrollments {
			activity = append(activity, Activity{UserID: e.StudentID, At: e.EnrolledAt})
		}
	}
	if f := fetch.BusinessPlans; f != nil {
		if a.src.BusinessPlans == nil {
			return models.ReportData{}, errSourceMissing("business plans")
		}
		plans, err := a.src.BusinessPlans.List(ctx, *f)
		if err != nil {
			return models.ReportData{}, fmt.Errorf("list business plans: %w", err)
		}
		for _, p := range plans {
			activity = append(activity, Activity{UserID: p.OwnerID, At: p.CreatedAt})
		}
	}
	if f := fetch.Messages; f != nil {
		if a.src.Messages == nil {
			return models.ReportData{}, errSourceMissing("messages")
		}
		listed, err := a.src.Messages.List(ctx, *f)
		if err != nil {
			return models.ReportData{}, fmt.Errorf("list messages: %w", err)
		}
		// A participant filter also returns messages received from users
		// outside the scope; only the participant's own messages count.
		messages = sentBy(listed, f.ParticipantID)
		for _, m := range messages {
			activity = append(activity, Activity{UserID: m.SenderID, At: m.CreatedAt})
		}
	}

	stats := ComputeEngagement(activity, messages, scope.Window, now)
	return models.ReportData{Engagement: &stats}, nil
}

// ComputeEngagement counts distinct active users per trailing window ending
// at now, plus over the report window.
func ComputeEngagement(activity []Activity, messages []models.Message, window models.Window, now time.Time) models.EngagementStats {
	stats := models.EngagementStats{
		ActivityWindows:        make([]models.ActivityWindow, 0, len(trailingWindows)+1),
		AverageSessionDuration: models.NotYetInstrumented(),
	}

	for _, tw := range trailingWindows {
		sub := models.Window{Start: now.Add(-tw.length), End: now}
		stats.ActivityWindows = append(stats.ActivityWindows, models.ActivityWindow{
			Window:      tw.label,
			ActiveUsers: distinctUsers(activity, sub),
		})
	}

	stats.ActiveUsers = distinctUsers(activity, window)
	stats.ActivityWindows = append(stats.ActivityWindows, models.ActivityWindow{
		Window:      PeriodWindow,
		ActiveUsers: stats.ActiveUsers,
	})

	for _, m := range messages {
		if window.Contains(m.CreatedAt) {
			stats.MessagesSent++
		}
	}
	return stats
}

func sentBy(messages []models.Message, participantID string) []models.Message {
	if participantID == "" {
		return messages
	}
	out := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		if m.SenderID == participantID {
			out = append(out, m)
		}
	}
	return out
}

func distinctUsers(activity []Activity, w models.Window) int {
	seen := make(map[string]struct{})
	for _, act := range activity {
		if act.UserID == "" || !w.Contains(act.At) {
			continue
		}
		seen[act.UserID] = struct{}{}
	}
	return len(seen)
}
