package simulation

import (
	"sync"

	"github.com/reveal-labs/reveal/internal/ai"
)

// Badge is an achievement granted for safe decision-making.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Reward is the outcome of one evaluated turn.
type Reward struct {
	Points int      `json:"points"`
	Badges []string `json:"badges,omitempty"`
}

// ModeProgress is the accumulated state for one mode.
type ModeProgress struct {
	Points int     `json:"points"`
	Badges []Badge `json:"badges"`
}

const earnedBadgeDescription = "Earned for showing safe decision-making."

// ProgressTracker accumulates points and badges per mode. Each mode starts
// with a seed badge so the progress view is never empty.
type ProgressTracker struct {
	mu    sync.Mutex
	state map[ai.Mode]*ModeProgress
}

// NewProgressTracker creates a tracker with the per-mode seed badges.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{
		state: map[ai.Mode]*ModeProgress{
			ai.ModeLearner: {
				Badges: []Badge{{
					ID:          "welcome",
					Name:        "Safety Starter",
					Description: "Begin your first simulation and learn the basics.",
				}},
			},
			ai.ModeTutor: {
				Badges: []Badge{{
					ID:          "mentor",
					Name:        "Trusted Mentor",
					Description: "Review the educational resources for supporting youth.",
				}},
			},
		},
	}
}

// Apply adds a reward to the given mode. Badge grants are deduplicated by ID
// so repeated achievements never stack.
func (t *ProgressTracker) Apply(mode ai.Mode, reward Reward) {
	t.mu.Lock()
	defer t.mu.Unlock()

	progress := t.modeState(mode)
	progress.Points += reward.Points

	for _, id := range reward.Badges {
		if t.hasBadge(progress, id) {
			continue
		}

		progress.Badges = append(progress.Badges, Badge{
			ID:          id,
			Name:        id,
			Description: earnedBadgeDescription,
		})
	}
}

// Snapshot returns a copy of the progress for one mode.
func (t *ProgressTracker) Snapshot(mode ai.Mode) ModeProgress {
	t.mu.Lock()
	defer t.mu.Unlock()

	progress := t.modeState(mode)

	return ModeProgress{
		Points: progress.Points,
		Badges: append([]Badge(nil), progress.Badges...),
	}
}

func (t *ProgressTracker) modeState(mode ai.Mode) *ModeProgress {
	progress, ok := t.state[mode]
	if !ok {
		progress = &ModeProgress{}
		t.state[mode] = progress
	}

	return progress
}

func (t *ProgressTracker) hasBadge(progress *ModeProgress, id string) bool {
	for _, badge := range progress.Badges {
		if badge.ID == id {
			return true
		}
	}

	return false
}
