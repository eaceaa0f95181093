package timing

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// maxScanDays bounds how many calendar days a request is compared against
// the weekly schedule.
const maxScanDays = 366

var datetimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
}

// ParseDatetime parses the local date-times the timing API exchanges.
func ParseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date-time %q: expected YYYY-MM-DDTHH:MM", s)
}

// ParseClock parses a HH:MM or HH:MM:SS time of day into its offset from
// midnight.
func ParseClock(s string) (time.Duration, error) {
	if (len(s) != 5 && len(s) != 8) || s[2] != ':' || (len(s) == 8 && s[5] != ':') {
		return 0, fmt.Errorf("invalid time format %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(s[:2])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(s[3:5])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	second := 0
	if len(s) == 8 {
		second, err = strconv.Atoi(s[6:])
		if err != nil || second < 0 || second > 59 {
			return 0, fmt.Errorf("invalid second in %q", s)
		}
	}
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second, nil
}

// Overlaps reports whether [start1, end1) and [start2, end2) intersect.
// Adjacent ranges and zero-length ranges never overlap.
func Overlaps(start1, end1, start2, end2 time.Time) bool {
	if !start1.Before(end1) || !start2.Before(end2) {
		return false
	}
	return start1.Before(end2) && start2.Before(end1)
}

func formatSlot(t time.Time) string { return t.Format("2006-01-02T15:04") }

func weekday(t time.Time) string { return strings.ToUpper(t.Weekday().String()) }

// AvailabilityConflicts returns the weekly durations that [start, end)
// overlaps, on every calendar day it covers.
func AvailabilityConflicts(start, end time.Time, rows []Availability) []Conflict {
	var out []Conflict
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	for i := 0; i < maxScanDays && day.Before(end); i++ {
		name := weekday(day)
		for _, a := range rows {
			if !strings.EqualFold(a.DayOfWeek, name) {
				continue
			}
			for _, d := range a.Durations {
				from, err1 := ParseClock(d.StartTime)
				to, err2 := ParseClock(d.EndTime)
				if err1 != nil || err2 != nil {
					continue
				}
				s, e := day.Add(from), day.Add(to)
				if !Overlaps(start, end, s, e) {
					continue
				}
				msg := fmt.Sprintf("Overlaps scheduled availability on %s %s-%s", name[:1]+strings.ToLower(name[1:]), d.StartTime[:5], d.EndTime[:5])
				if d.IsEmergency {
					msg += " (emergency)"
				}
				out = append(out, Conflict{
					Source:  SourceAvailability,
					ID:      a.ID.String(),
					Start:   formatSlot(s),
					End:     formatSlot(e),
					Message: msg,
				})
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

// TimeOffConflicts returns the active time-offs that [start, end) overlaps.
// skipID excludes the record being edited.
func TimeOffConflicts(start, end time.Time, rows []TimeOff, skipID string) []Conflict {
	var out []Conflict
	for _, t := range rows {
		if !t.Active() || (skipID != "" && t.ID.String() == skipID) {
			continue
		}
		s, err1 := ParseDatetime(t.StartDatetime)
		e, err2 := ParseDatetime(t.EndDatetime)
		if err1 != nil || err2 != nil || !Overlaps(start, end, s, e) {
			continue
		}
		kind := "time-off"
		if t.IsAvailable {
			kind = "special availability"
		}
		msg := fmt.Sprintf("Overlaps existing %s %s to %s", kind, formatSlot(s), formatSlot(e))
		if t.Description != "" {
			msg += ": " + t.Description
		}
		out = append(out, Conflict{
			Source:  SourceTimeOff,
			ID:      t.ID.String(),
			Start:   formatSlot(s),
			End:     formatSlot(e),
			Message: msg,
		})
	}
	return out
}

// DetectConflicts compares a time-off request with data already loaded for
// the doctor. A special availability adds time, so only other time-offs can
// conflict with it.
func DetectConflicts(in TimeOffInput, availability []Availability, timeOffs []TimeOff, skipID string) ([]Conflict, error) {
	start, end, err := requestRange(in)
	if err != nil {
		return nil, err
	}
	var out []Conflict
	if !in.IsAvailable {
		out = append(out, AvailabilityConflicts(start, end, availability)...)
	}
	out = append(out, TimeOffConflicts(start, end, timeOffs, skipID)...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func requestRange(in TimeOffInput) (time.Time, time.Time, error) {
	start, err := ParseDatetime(in.StartDatetime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseDatetime(in.EndDatetime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// overlappingDurations returns the index pairs of durations within one day
// that overlap each other.
func overlappingDurations(ds []DurationInput) [][2]int {
	var out [][2]int
	day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range ds {
		si, err1 := ParseClock(ds[i].StartTime)
		ei, err2 := ParseClock(ds[i].EndTime)
		if err1 != nil || err2 != nil {
			continue
		}
		for j := i + 1; j < len(ds); j++ {
			sj, err1 := ParseClock(ds[j].StartTime)
			ej, err2 := ParseClock(ds[j].EndTime)
			if err1 != nil || err2 != nil {
				continue
			}
			if Overlaps(day.Add(si), day.Add(ei), day.Add(sj), day.Add(ej)) {
				out = append(out, [2]int{i, j})
			}
		}
	}
	return out
}
