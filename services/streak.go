package services

import (
	stderrors "errors"
	"log/slog"
	"time"

	"pulsechat/domain"
	"pulsechat/errors"
	"pulsechat/repositories"
)

// StreakResult reports the streak value after an evaluation and whether this
// call actually recomputed it.
type StreakResult struct {
	Streak  uint32
	Updated bool
}

// StreakTracker derives the rolling mutual-activity counter for a pair from
// message history. Evaluation is idempotent within one calendar day: the
// first call of the day decides, later calls return the cached value.
type StreakTracker struct {
	contacts repositories.IContactRepository
	messages repositories.IMessageRepository
	log      *slog.Logger
}

func NewStreakTracker(
	contacts repositories.IContactRepository,
	messages repositories.IMessageRepository,
	log *slog.Logger,
) *StreakTracker {
	return &StreakTracker{contacts: contacts, messages: messages, log: log}
}

// Evaluate recomputes the streak for a pair at most once per calendar day.
// If both sides sent at least one message in the trailing 24h, the streak
// increments on both edges and stamps the day; a one-sided window resets a
// running streak exactly once. A one-sided window over an already-zero
// streak writes nothing, so the day stays open and a mutual exchange later
// the same day can still count. Pairs without two edges carry no streak.
func (t *StreakTracker) Evaluate(userA, userB string, now time.Time) (StreakResult, error) {
	edgeA, err := t.contacts.Get(userA, userB)
	if stderrors.Is(err, errors.ErrNotFound) {
		return StreakResult{}, nil
	}
	if err != nil {
		return StreakResult{}, err
	}
	edgeB, err := t.contacts.Get(userB, userA)
	if stderrors.Is(err, errors.ErrNotFound) {
		return StreakResult{}, nil
	}
	if err != nil {
		return StreakResult{}, err
	}

	today := domain.DayKey(now)
	if edgeA.LastStreakUpdate == today || edgeB.LastStreakUpdate == today {
		return StreakResult{Streak: edgeA.Streak, Updated: false}, nil
	}

	since := now.Add(-24 * time.Hour)
	aSent, err := t.messages.HasMessageSince(userA, userB, since)
	if err != nil {
		return StreakResult{}, err
	}
	bSent, err := t.messages.HasMessageSince(userB, userA, since)
	if err != nil {
		return StreakResult{}, err
	}

	if !aSent || !bSent {
		// Nothing to lapse: leave the day unstamped so a mutual exchange
		// later today can still start a streak.
		if edgeA.Streak == 0 && edgeB.Streak == 0 {
			return StreakResult{}, nil
		}
		edgeA.Streak = 0
		edgeA.LastStreakUpdate = today
		edgeB.Streak = 0
		edgeB.LastStreakUpdate = today
		if err := t.contacts.UpdatePair(edgeA, edgeB); err != nil {
			return StreakResult{}, err
		}
		t.log.Debug("Streak lapsed", "a", userA, "b", userB)
		return StreakResult{Streak: 0, Updated: true}, nil
	}

	streak := edgeA.Streak + 1

	// Both edges carry the same streak and stamp; one transaction keeps the
	// mirror invariant even if we crash in between.
	edgeA.Streak = streak
	edgeA.LastStreakUpdate = today
	edgeB.Streak = streak
	edgeB.LastStreakUpdate = today
	if err := t.contacts.UpdatePair(edgeA, edgeB); err != nil {
		return StreakResult{}, err
	}

	t.log.Debug("Streak evaluated", "a", userA, "b", userB, "streak", streak)
	return StreakResult{Streak: streak, Updated: true}, nil
}
