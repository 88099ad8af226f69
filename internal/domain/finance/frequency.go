package finance

import (
	"fmt"
	"strings"

	"finance_automation/internal/clock"
)

// Frequency is the recurrence cadence attached to a financial record or a repeating event.
type Frequency string

const (
	FrequencyOnOff     Frequency = "on-off"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// ParseFrequency normalizes user-facing spellings ("Monthly", "on_off", "one-off").
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "_", "-"))) {
	case "on-off", "one-off", "once", "":
		return FrequencyOnOff, nil
	case "weekly":
		return FrequencyWeekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	case "quarterly":
		return FrequencyQuarterly, nil
	case "yearly", "annually":
		return FrequencyYearly, nil
	default:
		return "", fmt.Errorf("unknown frequency %q", s)
	}
}

// Period maps the cadence to calendar arithmetic. On-off returns the zero period.
func (f Frequency) Period() clock.Period {
	switch f {
	case FrequencyWeekly:
		return clock.Period{Days: 7}
	case FrequencyMonthly:
		return clock.Period{Months: 1}
	case FrequencyQuarterly:
		return clock.Period{Months: 3}
	case FrequencyYearly:
		return clock.Period{Months: 12}
	default:
		return clock.Period{}
	}
}

func (f Frequency) IsPeriodic() bool { return !f.Period().IsZero() }
