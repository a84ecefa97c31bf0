package notify

import (
	"fmt"
	"math"
	"time"

	"github.com/hamed0406/statusledger/internal/domain"
)

const dateLayout = "1/02, 15:04"

// Format renders an intent as a Message, with times shown in loc.
// A nil loc means UTC.
func Format(in domain.Intent, loc *time.Location) Message {
	if loc == nil {
		loc = time.UTC
	}
	minutes := int(math.Round(float64(in.Now-in.IncidentStart) / 60))
	duration := fmt.Sprintf("%d minutes", minutes)
	name := in.Target.Name
	if name == "" {
		name = string(in.Target.ID)
	}

	if in.IsUp {
		return Message{
			Title:            fmt.Sprintf("✅ %s is up!", name),
			Body:             fmt.Sprintf("The service is up again after being down for %d minutes.", minutes),
			MonitorName:      name,
			Status:           "Up",
			DowntimeDuration: duration,
			Reason:           "OK",
		}
	}

	reason := in.Reason
	if reason == "" {
		reason = "unspecified"
	}
	if in.Now == in.IncidentStart {
		now := time.Unix(in.Now, 0).In(loc).Format(dateLayout)
		return Message{
			Title:            fmt.Sprintf("🔴 %s is currently down.", name),
			Body:             fmt.Sprintf("Service is unavailable at %s. Issue: %s", now, reason),
			MonitorName:      name,
			Status:           "Down",
			DowntimeDuration: "0 minutes",
			Reason:           reason,
		}
	}
	since := time.Unix(in.IncidentStart, 0).In(loc).Format(dateLayout)
	return Message{
		Title:            fmt.Sprintf("🔴 %s is still down.", name),
		Body:             fmt.Sprintf("Service is unavailable since %s (%d minutes). Issue: %s", since, minutes, reason),
		MonitorName:      name,
		Status:           "Down",
		DowntimeDuration: duration,
		Reason:           reason,
	}
}
