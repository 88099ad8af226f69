package clock

import "time"

// Period is a calendar cadence. Exactly one of Months or Days is expected to be non-zero.
type Period struct {
	Months int
	Days   int
}

func (p Period) IsZero() bool { return p.Months <= 0 && p.Days <= 0 }

// AddPeriods returns anchor + n periods. Month arithmetic is computed from the original anchor
// and clamps to the last day of the target month: Jan 31 + 1 month is Feb 28 (Feb 29 in leap
// years), Jan 31 + 2 months is Mar 31.
func AddPeriods(anchor time.Time, p Period, n int) time.Time {
	if p.Days > 0 {
		return anchor.AddDate(0, 0, p.Days*n)
	}
	if p.Months <= 0 {
		return anchor
	}
	y, m, d := anchor.Date()
	hh, mm, ss := anchor.Clock()

	total := int(m) - 1 + p.Months*n
	ty := y + total/12
	tm := total % 12
	if tm < 0 {
		tm += 12
		ty--
	}
	month := time.Month(tm + 1)
	if last := daysIn(ty, month); d > last {
		d = last
	}
	return time.Date(ty, month, d, hh, mm, ss, anchor.Nanosecond(), anchor.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DueOccurrence reports whether today (UTC day) equals anchor + k periods for some k >= 1 and
// returns that occurrence at UTC midnight.
func DueOccurrence(anchor time.Time, p Period, today time.Time) (time.Time, bool) {
	from, _, due := DuePeriod(anchor, p, today)
	return from, due
}

// DuePeriod is DueOccurrence that also returns the end of the occurrence's period: the due
// occurrence owns [from, to) where to is anchor + k+1 periods, both at UTC midnight.
func DuePeriod(anchor time.Time, p Period, today time.Time) (from, to time.Time, due bool) {
	k, ok := dueIndex(anchor, p, today)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	a := StartOfDayUTC(anchor)
	return AddPeriods(a, p, k), AddPeriods(a, p, k+1), true
}

func dueIndex(anchor time.Time, p Period, today time.Time) (int, bool) {
	if p.IsZero() {
		return 0, false
	}
	a := StartOfDayUTC(anchor)
	t := StartOfDayUTC(today)
	if !t.After(a) {
		return 0, false
	}

	var k int
	if p.Days > 0 {
		days := int(t.Sub(a).Hours() / 24)
		if days%p.Days != 0 {
			return 0, false
		}
		k = days / p.Days
	} else {
		months := (t.Year()-a.Year())*12 + int(t.Month()) - int(a.Month())
		if months <= 0 || months%p.Months != 0 {
			return 0, false
		}
		k = months / p.Months
	}
	if k < 1 || !AddPeriods(a, p, k).Equal(t) {
		return 0, false
	}
	return k, true
}

// NextOccurrenceAfter advances the local date by whole periods until the instant produced by
// at is strictly after now. It returns the advanced local date and its instant. The search is
// bounded so malformed input cannot loop forever.
func NextOccurrenceAfter(localDate time.Time, p Period, now time.Time, at func(time.Time) (time.Time, error)) (time.Time, time.Time, error) {
	if p.IsZero() {
		return time.Time{}, time.Time{}, errZeroPeriod
	}
	for n := 1; n <= maxRolloverSteps; n++ {
		next := AddPeriods(localDate, p, n)
		instant, err := at(next)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if instant.After(now) {
			return next, instant, nil
		}
	}
	return time.Time{}, time.Time{}, errRolloverExhausted
}

const maxRolloverSteps = 1200
