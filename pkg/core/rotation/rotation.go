package rotation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/jakechorley/whoseonfirst/pkg/db"
)

var (
	// ErrInsufficientMembers indicates there are no active team members to rotate
	ErrInsufficientMembers = errors.New("no active team members available for rotation")
	// ErrNoShiftsConfigured indicates no shift definitions exist
	ErrNoShiftsConfigured = errors.New("no shifts configured")
	// ErrInvalidWeekCount indicates the requested week count is below 1
	ErrInvalidWeekCount = errors.New("week count must be at least 1")
	// ErrInvalidStartDate indicates the start date is unset
	ErrInvalidStartDate = errors.New("start date must be set")
)

// dayOffsets maps weekday names to offsets from Monday
var dayOffsets = map[string]int{
	"Monday":    0,
	"Tuesday":   1,
	"Wednesday": 2,
	"Thursday":  3,
	"Friday":    4,
	"Saturday":  5,
	"Sunday":    6,
}

const defaultStartTime = "08:00"

// Generate produces assignment drafts for the given members and shifts over
// the requested number of weeks using a circular rotation: the member for
// shift index i in week w is members[(i+w) mod len(members)], so every member
// advances one shift position each week. With equal member and shift counts
// every member works every shift exactly once per full cycle.
//
// members must already be in rotation order and shifts in shift_number order.
// The start date is normalized to the Monday 00:00 of its week in the date's
// own location. Drafts carry Notified=false and no IDs; persistence is the
// caller's job.
func Generate(members []db.Member, shifts []db.Shift, startDate time.Time, weeks int) ([]db.Assignment, error) {
	if startDate.IsZero() {
		return nil, ErrInvalidStartDate
	}
	if weeks < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidWeekCount, weeks)
	}
	if len(members) == 0 {
		return nil, ErrInsufficientMembers
	}
	if len(shifts) == 0 {
		return nil, ErrNoShiftsConfigured
	}

	monday := WeekStart(startDate)

	// Expand each shift's weekly occurrences up front so assignments can be
	// emitted week-major, matching the order they are worked.
	starts := make([][]time.Time, len(shifts))
	for i, shift := range shifts {
		first, err := firstOccurrence(monday, shift)
		if err != nil {
			return nil, err
		}

		rule, err := rrule.NewRRule(rrule.ROption{
			Freq:    rrule.WEEKLY,
			Count:   weeks,
			Dtstart: first,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build recurrence for shift %d: %w", shift.ShiftNumber, err)
		}
		starts[i] = rule.All()
	}

	drafts := make([]db.Assignment, 0, weeks*len(shifts))
	for w := 0; w < weeks; w++ {
		for i := range shifts {
			member := &members[(i+w)%len(members)]
			shift := &shifts[i]

			startAt := starts[i][w]
			endAt := startAt.Add(time.Duration(shift.DurationHours) * time.Hour)
			_, isoWeek := startAt.ISOWeek()

			drafts = append(drafts, db.Assignment{
				MemberID:   member.ID,
				ShiftID:    shift.ID,
				WeekNumber: isoWeek,
				StartAt:    startAt,
				EndAt:      endAt,
				Notified:   false,
				Member:     member,
				Shift:      shift,
			})
		}
	}

	return drafts, nil
}

// WeekStart normalizes a date to the Monday 00:00 of its week, preserving
// the date's location.
func WeekStart(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}

// firstOccurrence computes the first start datetime of a shift relative to
// the base Monday. A day-pair shift like "Tuesday-Wednesday" starts on its
// first day.
func firstOccurrence(monday time.Time, shift db.Shift) (time.Time, error) {
	dayName := shift.DayOfWeek
	if i := strings.IndexByte(dayName, '-'); i >= 0 {
		dayName = dayName[:i]
	}

	offset, ok := dayOffsets[dayName]
	if !ok {
		return time.Time{}, fmt.Errorf("shift %d has unknown day of week %q", shift.ShiftNumber, shift.DayOfWeek)
	}

	hour, minute, err := parseStartTime(shift.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("shift %d has invalid start time: %w", shift.ShiftNumber, err)
	}

	d := monday.AddDate(0, 0, offset)
	return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, monday.Location()), nil
}

func parseStartTime(s string) (int, int, error) {
	if s == "" {
		s = defaultStartTime
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}
