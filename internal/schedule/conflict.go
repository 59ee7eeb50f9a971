package schedule

import "time"

// Event carries the minimal fields the conflict checker inspects. Callers map
// their richer event representations into this shape.
type Event struct {
	ID        string
	TrainerID string
	Start     time.Time
	End       time.Time
	Cancelled bool
}

// Conflict details an overlapping event relation that callers can present to users.
type Conflict struct {
	WithEventID string
	TrainerID   string
	Start       time.Time
	End         time.Time
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) share any instant. Touching boundaries do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// HasConflict reports whether the proposed [start, end) interval collides with
// any non-cancelled event of the trainer. Events matching excludeID are skipped
// so a reschedule does not conflict with itself. The scan short-circuits on the
// first collision.
//
// Callers must reject start >= end before calling.
func HasConflict(events []Event, trainerID string, start, end time.Time, excludeID string) bool {
	for _, event := range events {
		if event.TrainerID != trainerID || event.Cancelled {
			continue
		}
		if excludeID != "" && event.ID == excludeID {
			continue
		}
		if Overlaps(start, end, event.Start, event.End) {
			return true
		}
	}
	return false
}

// FindConflicts returns every non-cancelled event of the trainer whose interval
// overlaps the proposed [start, end) window. Unlike HasConflict it does not
// short-circuit, so the result can be surfaced as a diagnostic listing.
func FindConflicts(events []Event, trainerID string, start, end time.Time, excludeID string) []Conflict {
	var conflicts []Conflict
	for _, event := range events {
		if event.TrainerID != trainerID || event.Cancelled {
			continue
		}
		if excludeID != "" && event.ID == excludeID {
			continue
		}
		if Overlaps(start, end, event.Start, event.End) {
			conflicts = append(conflicts, Conflict{
				WithEventID: event.ID,
				TrainerID:   event.TrainerID,
				Start:       event.Start,
				End:         event.End,
			})
		}
	}
	return conflicts
}
