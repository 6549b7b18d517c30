package charts

import (
	"strconv"
	"time"

	"github.com/aristath/roi-tracker/internal/dashboard"
	"github.com/aristath/roi-tracker/internal/domain"
)

// AlertView is an alert prepared for display
type AlertView struct {
	Severity domain.Severity `json:"severity"`
	RawType  domain.Severity `json:"raw_type"`
	Title    string          `json:"title"`
	Message  string          `json:"message"`
	// Time is nil when the timestamp could not be parsed
	Time      *time.Time `json:"time,omitempty"`
	Timestamp string     `json:"timestamp"`
}

// View is everything a dashboard client renders for one snapshot
type View struct {
	Version       uint64               `json:"version"`
	CurrentPeriod int                  `json:"current_period"`
	Loading       bool                 `json:"loading"`
	LoadingText   string               `json:"loading_text,omitempty"`
	Error         string               `json:"error,omitempty"`
	StopReason    dashboard.StopReason `json:"stop_reason,omitempty"`
	Alerts        []AlertView          `json:"alerts"`
	Chart         Chart                `json:"chart"`
	Detail        *Detail              `json:"detail,omitempty"`
	Outlook       *Outlook             `json:"outlook,omitempty"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// BuildView renders a snapshot
func BuildView(snap *dashboard.Snapshot) View {
	view := View{
		Version:       snap.Version,
		CurrentPeriod: snap.CurrentPeriod,
		Loading:       snap.Loading,
		Error:         snap.Error,
		StopReason:    snap.StopReason,
		Alerts:        BuildAlerts(snap.Alerts),
		Chart:         BuildChart(snap.Records, snap.Selected),
		Outlook:       BuildOutlook(snap.Records),
		UpdatedAt:     snap.UpdatedAt,
	}
	if snap.Loading {
		view.LoadingText = LoadingText(snap.CurrentPeriod)
	}
	if record, ok := snap.Selection(); ok {
		detail := BuildDetail(record, snap.Selected)
		view.Detail = &detail
	}
	return view
}

// BuildAlerts prepares alerts in the order received
func BuildAlerts(alerts []domain.Alert) []AlertView {
	out := make([]AlertView, len(alerts))
	for i, a := range alerts {
		out[i] = AlertView{
			Severity:  a.Type.Display(),
			RawType:   a.Type,
			Title:     a.Type.Title(),
			Message:   a.Message,
			Timestamp: a.Timestamp,
		}
		if t, ok := a.Time(); ok {
			out[i].Time = &t
		}
	}
	return out
}

// LoadingText is the progress line shown while a sync loop runs
func LoadingText(currentPeriod int) string {
	return "Loading periods... Currently at Period " + strconv.Itoa(currentPeriod)
}
