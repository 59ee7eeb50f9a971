package sync

import (
	"time"

	"github.com/example/fitclub-scheduler/internal/application"
)

// pendingOp tags an optimistic local edit awaiting authoritative confirmation.
type pendingOp int

const (
	pendingAdd pendingOp = iota
	pendingUpdate
	pendingRemove
)

// pendingEvent records an optimistic event edit and when it was applied.
type pendingEvent struct {
	op        pendingOp
	event     application.EnrichedEvent
	appliedAt time.Time
}

// pendingTrainer records an optimistic trainer edit and when it was applied.
type pendingTrainer struct {
	op        pendingOp
	trainer   application.Trainer
	appliedAt time.Time
}

// mergeEvents reconciles an authoritative listing with the pending ledger.
// Authoritative data wins once it has observed an edit; until then the tagged
// local state is re-applied on top so a slow sync does not visibly undo a
// user's recent action. Returns the merged listing and the surviving ledger.
func mergeEvents(authoritative []application.EnrichedEvent, pending map[string]pendingEvent) ([]application.EnrichedEvent, map[string]pendingEvent) {
	remaining := make(map[string]pendingEvent, len(pending))
	byID := make(map[string]int, len(authoritative))

	merged := make([]application.EnrichedEvent, len(authoritative))
	copy(merged, authoritative)
	for i, event := range merged {
		byID[event.ID] = i
	}

	for id, entry := range pending {
		idx, observed := byID[id]
		switch entry.op {
		case pendingAdd:
			if observed {
				// Server has the record; the optimistic copy is retired.
				continue
			}
			merged = append(merged, entry.event)
			remaining[id] = entry
		case pendingUpdate:
			if !observed {
				// Record vanished server-side; a full sync has spoken.
				continue
			}
			if !merged[idx].UpdatedAt.Before(entry.appliedAt) {
				// The authoritative copy includes the edit (or something newer).
				continue
			}
			merged[idx] = entry.event
			remaining[id] = entry
		case pendingRemove:
			if !observed {
				continue
			}
			merged = append(merged[:idx], merged[idx+1:]...)
			for i := idx; i < len(merged); i++ {
				byID[merged[i].ID] = i
			}
			delete(byID, id)
			remaining[id] = entry
		}
	}

	return merged, remaining
}

// mergeTrainers mirrors mergeEvents for the trainer collection. Trainers carry
// no update timestamp, so a pending update is re-applied for the sync that
// first observes the record and retired afterwards.
func mergeTrainers(authoritative []application.Trainer, pending map[string]pendingTrainer) ([]application.Trainer, map[string]pendingTrainer) {
	remaining := make(map[string]pendingTrainer, len(pending))
	byID := make(map[string]int, len(authoritative))

	merged := make([]application.Trainer, len(authoritative))
	copy(merged, authoritative)
	for i, trainer := range merged {
		byID[trainer.ID] = i
	}

	for id, entry := range pending {
		idx, observed := byID[id]
		switch entry.op {
		case pendingAdd:
			if observed {
				continue
			}
			merged = append(merged, entry.trainer)
			remaining[id] = entry
		case pendingUpdate:
			if !observed {
				continue
			}
			merged[idx] = entry.trainer
		case pendingRemove:
			if !observed {
				continue
			}
			merged = append(merged[:idx], merged[idx+1:]...)
			for i := idx; i < len(merged); i++ {
				byID[merged[i].ID] = i
			}
			delete(byID, id)
			remaining[id] = entry
		}
	}

	return merged, remaining
}
