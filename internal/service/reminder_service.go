package service

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"daybook/internal/model"
)

// ReminderService builds human-readable summaries for daily notifications.
type ReminderService struct {
	store *Store
}

func NewReminderService(store *Store) *ReminderService {
	return &ReminderService{store: store}
}

// DailySummary renders today's agenda as Telegram HTML.
func (s *ReminderService) DailySummary(now time.Time) string {
	now = now.In(s.store.Location())

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily summary</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("Mon, 02 Jan 2006")))

	builder.WriteString("🕒 <b>Schedule</b>\n")
	events := s.store.EventsOn(now)
	if len(events) == 0 {
		builder.WriteString("— nothing on the calendar\n")
	}
	for _, e := range events {
		builder.WriteString(FormatEvent(e))
	}

	presets := s.store.TodayPresetTasks()
	done := 0
	for _, t := range presets {
		if t.IsCompleted() {
			done++
		}
	}
	builder.WriteString(fmt.Sprintf("\n✅ <b>Check-ins</b> %d/%d\n", done, len(presets)))
	streaks := s.store.Streaks()
	names := make([]string, 0, len(streaks))
	for name, n := range streaks {
		if n > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		builder.WriteString(fmt.Sprintf("🔥 %s · %dd\n", html.EscapeString(name), streaks[name]))
	}

	var pending []model.Task
	for _, t := range s.store.OtherTasks() {
		if !t.IsCompleted() {
			pending = append(pending, t)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		switch {
		case pending[i].DueAt == nil && pending[j].DueAt == nil:
			return pending[i].CreatedAt.After(pending[j].CreatedAt)
		case pending[i].DueAt == nil:
			return false
		case pending[j].DueAt == nil:
			return true
		default:
			return pending[i].DueAt.Before(*pending[j].DueAt)
		}
	})

	builder.WriteString("\n📌 <b>Open tasks</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— no open tasks\n")
	}
	for _, task := range pending {
		builder.WriteString(formatTask(task, now))
	}

	if note := s.store.CurrentNote(); note != nil && note.Date.Equal(s.store.Today()) && strings.TrimSpace(note.Content) != "" {
		builder.WriteString(fmt.Sprintf("\n📝 %s\n", html.EscapeString(preview(note.Content, 200))))
	}

	return strings.TrimSpace(builder.String())
}

// FormatEvent renders one calendar line.
func FormatEvent(e model.Event) string {
	title := html.EscapeString(e.Title)
	switch {
	case e.AllDay:
		return fmt.Sprintf("• all day · %s\n", title)
	case e.End != nil:
		return fmt.Sprintf("• %s–%s · %s\n", e.Start.Format("15:04"), e.End.Format("15:04"), title)
	default:
		return fmt.Sprintf("• %s · %s\n", e.Start.Format("15:04"), title)
	}
}

func formatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	if task.DueAt != nil {
		d := task.DueAt.In(now.Location())
		switch {
		case now.After(d):
			icon = "⚠️"
		case d.Sub(now) <= 48*time.Hour:
			icon = "⏳"
		}
	}

	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Title))))
	if task.Priority != model.PriorityNone {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", task.Priority))
	}

	if task.DueAt != nil {
		d := task.DueAt.In(now.Location())
		if now.After(d) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ %s · <b>overdue</b>", d.Format("2006-01-02 15:04")))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ %s", d.Format("2006-01-02 15:04")))
		}
	}
	if task.Notes != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(task.Notes))))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func preview(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "…"
}
