package memory

import (
	"context"
	"sort"
	"sync"

	"pawpal/internal/domain/challenges"
)

type challengesRepo struct {
	mu         sync.RWMutex
	challenges map[string]challenges.Challenge
	entries    map[string]challenges.Entry
	votes      []challenges.Vote
}

func NewChallengeRepo() challenges.Repository {
	return &challengesRepo{
		challenges: make(map[string]challenges.Challenge),
		entries:    make(map[string]challenges.Entry),
	}
}

func (r *challengesRepo) Create(ctx context.Context, c challenges.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.challenges[c.ID] = c
	return nil
}

func (r *challengesRepo) Update(ctx context.Context, c challenges.Challenge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.challenges[c.ID]; !ok {
		return challenges.ErrNotFound
	}
	r.challenges[c.ID] = c
	return nil
}

func (r *challengesRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.challenges[id]; !ok {
		return challenges.ErrNotFound
	}
	delete(r.challenges, id)
	for eid, e := range r.entries {
		if e.ChallengeID == id {
			delete(r.entries, eid)
		}
	}
	r.votes = filterVotes(r.votes, func(v challenges.Vote) bool { return v.ChallengeID != id })
	return nil
}

func (r *challengesRepo) GetByID(ctx context.Context, id string) (challenges.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.challenges[id]
	if !ok {
		return challenges.Challenge{}, challenges.ErrNotFound
	}
	return c, nil
}

// List: más recientes primero.
func (r *challengesRepo) List(ctx context.Context) ([]challenges.Challenge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]challenges.Challenge, 0, len(r.challenges))
	for _, c := range r.challenges {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartsAt.After(out[j].StartsAt)
	})
	return out, nil
}

func (r *challengesRepo) CreateEntry(ctx context.Context, e challenges.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.entries {
		if it.ChallengeID == e.ChallengeID && it.PetID == e.PetID {
			return challenges.ErrAlreadyEntered
		}
	}
	e.Votes = 0
	r.entries[e.ID] = e
	return nil
}

func (r *challengesRepo) GetEntry(ctx context.Context, id string) (challenges.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return challenges.Entry{}, challenges.ErrEntryNotFound
	}
	e.Votes = r.countLocked(id)
	return e, nil
}

func (r *challengesRepo) ListEntries(ctx context.Context, challengeID string) ([]challenges.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]challenges.Entry, 0)
	for _, e := range r.entries {
		if e.ChallengeID != challengeID {
			continue
		}
		e.Votes = r.countLocked(e.ID)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *challengesRepo) countLocked(entryID string) int {
	n := 0
	for _, v := range r.votes {
		if v.EntryID == entryID {
			n++
		}
	}
	return n
}

func (r *challengesRepo) DeleteEntry(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return challenges.ErrEntryNotFound
	}
	delete(r.entries, id)
	r.votes = filterVotes(r.votes, func(v challenges.Vote) bool { return v.EntryID != id })
	return nil
}

func (r *challengesRepo) AddVote(ctx context.Context, v challenges.Vote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, it := range r.votes {
		if it.EntryID == v.EntryID && it.UserID == v.UserID {
			return challenges.ErrAlreadyVoted
		}
	}
	r.votes = append(r.votes, v)
	return nil
}

func (r *challengesRepo) RemoveVote(ctx context.Context, entryID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.votes)
	r.votes = filterVotes(r.votes, func(v challenges.Vote) bool {
		return v.EntryID != entryID || v.UserID != userID
	})
	if len(r.votes) == before {
		return challenges.ErrNotVoted
	}
	return nil
}

func (r *challengesRepo) VotedEntries(ctx context.Context, challengeID, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0)
	for _, v := range r.votes {
		if v.ChallengeID == challengeID && v.UserID == userID {
			out = append(out, v.EntryID)
		}
	}
	return out, nil
}

func filterVotes(in []challenges.Vote, keep func(challenges.Vote) bool) []challenges.Vote {
	out := make([]challenges.Vote, 0, len(in))
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
