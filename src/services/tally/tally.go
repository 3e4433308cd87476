// Package tally keeps the per-option vote counters embedded in a poll.
package tally

import (
	"context"
	"errors"
	"fmt"

	"Backend-PollSurvey/src/models"
	"Backend-PollSurvey/src/repository"
	"Backend-PollSurvey/src/services/apperr"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Aggregator applies counter deltas. Every call is exactly one poll write.
type Aggregator struct {
	polls repository.PollRepository
}

func NewAggregator(polls repository.PollRepository) *Aggregator {
	return &Aggregator{polls: polls}
}

// ApplyVoteDelta adds +1 or -1 to one option counter.
func (a *Aggregator) ApplyVoteDelta(ctx context.Context, pollID primitive.ObjectID, optionIndex, delta int) error {
	if delta != 1 && delta != -1 {
		return fmt.Errorf("vote delta must be +1 or -1, got %d", delta)
	}
	if optionIndex < 0 {
		return fmt.Errorf("option %d: %w", optionIndex, apperr.ErrInvalidOption)
	}
	return a.write(ctx, pollID, map[int]int{optionIndex: delta})
}

// ChangeVote moves one vote from one option to another in a single write.
func (a *Aggregator) ChangeVote(ctx context.Context, pollID primitive.ObjectID, from, to int) error {
	if from < 0 || to < 0 {
		return fmt.Errorf("change %d->%d: %w", from, to, apperr.ErrInvalidOption)
	}
	deltas := Deltas(from, to)
	if len(deltas) == 0 {
		return nil
	}
	return a.write(ctx, pollID, deltas)
}

func (a *Aggregator) write(ctx context.Context, pollID primitive.ObjectID, deltas map[int]int) error {
	if err := a.polls.IncrementVotes(ctx, pollID, deltas); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("poll %s: %w", pollID.Hex(), apperr.ErrNotFound)
		}
		return fmt.Errorf("update tally of poll %s: %w", pollID.Hex(), err)
	}
	return nil
}

// Deltas returns the counter changes for moving a vote. from < 0 means a first vote.
func Deltas(from, to int) map[int]int {
	if from == to {
		return map[int]int{}
	}
	if from < 0 {
		return map[int]int{to: 1}
	}
	return map[int]int{from: -1, to: 1}
}

// Validate rejects an index outside [0, len(options)).
func Validate(options []models.PollOption, index int) error {
	if index < 0 || index >= len(options) {
		return fmt.Errorf("option %d of %d: %w", index, len(options), apperr.ErrInvalidOption)
	}
	return nil
}

// Apply adds deltas to a copy of options. Out-of-range indexes are skipped.
func Apply(options []models.PollOption, deltas map[int]int) []models.PollOption {
	out := append([]models.PollOption(nil), options...)
	for index, delta := range deltas {
		if index < 0 || index >= len(out) {
			continue
		}
		out[index].VoteCount += delta
	}
	return out
}

func Total(options []models.PollOption) int {
	total := 0
	for _, o := range options {
		total += o.VoteCount
	}
	return total
}

// Recount derives the counters from the responses themselves.
func Recount(optionCount int, responses []models.PollResponse) []int {
	counts := make([]int, optionCount)
	for _, r := range responses {
		if r.OptionIndex >= 0 && r.OptionIndex < optionCount {
			counts[r.OptionIndex]++
		}
	}
	return counts
}

// Consistent reports whether the stored counters match the responses.
func Consistent(options []models.PollOption, responses []models.PollResponse) bool {
	counts := Recount(len(options), responses)
	for i, o := range options {
		if o.VoteCount != counts[i] {
			return false
		}
	}
	return true
}
