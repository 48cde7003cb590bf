package store

import (
	"context"
	"fmt"
	"time"
)

// SectionStat counts how many page views scrolled a section into view.
type SectionStat struct {
	Section string `json:"section"`
	Reveals int64  `json:"reveals"`
}

// AdminStats is the dashboard summary.
type AdminStats struct {
	TotalVisitors       int64         `json:"total_visitors"`
	UniqueVisitors      int64         `json:"unique_visitors"`
	VisitorsToday       int64         `json:"visitors_today"`
	VisitorsThisWeek    int64         `json:"visitors_this_week"`
	TotalMessages       int64         `json:"total_messages"`
	UndeliveredMessages int64         `json:"undelivered_messages"`
	SectionReveals      []SectionStat `json:"section_reveals"`
	RecentVisitors      []Visitor     `json:"recent_visitors"`
	RecentMessages      []Message     `json:"recent_messages"`
}

// Stats gathers the admin dashboard numbers as of now.
func (s *Store) Stats(ctx context.Context, now time.Time) (*AdminStats, error) {
	stats := &AdminStats{}
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{midnight}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{now.Add(-7 * 24 * time.Hour)}},
		{&stats.TotalMessages, `SELECT COUNT(*) FROM messages`, nil},
		{&stats.UndeliveredMessages, `SELECT COUNT(*) FROM messages WHERE delivered = 0`, nil},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("counting: %w", err)
		}
	}

	var err error
	if stats.SectionReveals, err = s.SectionReveals(ctx); err != nil {
		return nil, err
	}
	if stats.RecentVisitors, err = s.RecentVisitors(ctx, 50); err != nil {
		return nil, err
	}
	if stats.RecentMessages, err = s.RecentMessages(ctx, 10); err != nil {
		return nil, err
	}
	return stats, nil
}

// SectionReveals returns reveal counts per section, most seen first.
func (s *Store) SectionReveals(ctx context.Context) ([]SectionStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT section, COUNT(*) AS reveals
		FROM reveals
		GROUP BY section
		ORDER BY reveals DESC, section ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("counting reveals: %w", err)
	}
	defer rows.Close()

	var out []SectionStat
	for rows.Next() {
		var st SectionStat
		if err := rows.Scan(&st.Section, &st.Reveals); err != nil {
			return nil, fmt.Errorf("scanning reveal count: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
