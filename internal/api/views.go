package api

import (
	"github.com/friendsincode/timegate/internal/schedule"
)

type windowView struct {
	ID              int    `json:"id"`
	Weekday         int    `json:"weekday"`
	Day             string `json:"day"`
	StartTime       string `json:"start_time"`
	DurationSeconds int64  `json:"duration_seconds"`
}

type scheduleView struct {
	ID      int          `json:"id"`
	Name    string       `json:"name"`
	Active  bool         `json:"active"`
	Windows []windowView `json:"windows"`
}

func scheduleViews(in []schedule.Schedule) []scheduleView {
	out := make([]scheduleView, 0, len(in))
	for _, s := range in {
		windows := s.Windows()
		view := scheduleView{
			ID:      s.ID(),
			Name:    s.Name(),
			Active:  s.Active(),
			Windows: make([]windowView, 0, len(windows)),
		}
		for _, w := range windows {
			view.Windows = append(view.Windows, windowView{
				ID:              w.ID(),
				Weekday:         int(w.Weekday()),
				Day:             w.Weekday().String(),
				StartTime:       w.StartTime().String(),
				DurationSeconds: int64(w.Duration().Seconds()),
			})
		}
		out = append(out, view)
	}
	return out
}
