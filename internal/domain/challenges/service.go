package challenges

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"pawpal/internal/domain/notifications"
	"pawpal/internal/domain/pets"
	"pawpal/internal/platform/cache"
	"pawpal/internal/ports/media"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotFound        = errors.New("challenge not found")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrForbidden       = errors.New("forbidden")
	ErrChallengeClosed = errors.New("challenge is not open")
	ErrAlreadyEntered  = errors.New("pet already entered")
	ErrVotingClosed    = errors.New("voting closed")
	ErrAlreadyVoted    = errors.New("already voted")
	ErrNotVoted        = errors.New("not voted")
)

type Admins interface {
	IsAdmin(ctx context.Context, userID string) bool
}

// Pets resuelve el dueño de una mascota (pets.Service).
type Pets interface {
	OwnerOf(ctx context.Context, petID string) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID string, kind notifications.Kind, title, body string, data map[string]string) error
}

type Service struct {
	repo     Repository
	cache    *cache.Cache
	admins   Admins
	pets     Pets
	notifier Notifier
	uploader media.Uploader
	now      func() time.Time
}

func NewService(repo Repository, c *cache.Cache, admins Admins, petOwners Pets, notifier Notifier, uploader media.Uploader) *Service {
	return &Service{
		repo:     repo,
		cache:    c,
		admins:   admins,
		pets:     petOwners,
		notifier: notifier,
		uploader: uploader,
		now:      time.Now,
	}
}

var listKey = cache.Key{"challenges", "list"}

func challengeKey(id string) cache.Key { return cache.Key{"challenges", id} }
func entriesKey(id string) cache.Key { return cache.Key{"challenges", id, "entries"} }
func votesKey(id, userID string) cache.Key {
	return cache.Key{"challenges", id, "votes", userID}
}

func (s *Service) isAdmin(ctx context.Context, userID string) bool {
	return s.admins != nil && s.admins.IsAdmin(ctx, userID)
}

type Input struct {
	Title       string
	Description string
	StartsAt    time.Time
	EndsAt      time.Time
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title required", ErrInvalidInput)
	}
	if in.StartsAt.IsZero() || in.EndsAt.IsZero() {
		return fmt.Errorf("%w: starts_at and ends_at required", ErrInvalidInput)
	}
	if !in.EndsAt.After(in.StartsAt) {
		return fmt.Errorf("%w: ends_at must be after starts_at", ErrInvalidInput)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, actorID string, in Input) (Challenge, error) {
	if !s.isAdmin(ctx, actorID) {
		return Challenge{}, ErrForbidden
	}
	if err := in.validate(); err != nil {
		return Challenge{}, err
	}

	now := s.now()
	c := Challenge{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Challenge{}, err
	}
	s.cache.Invalidate(listKey)
	return c, nil
}

func (s *Service) Update(ctx context.Context, id, actorID string, in Input) (Challenge, error) {
	if !s.isAdmin(ctx, actorID) {
		return Challenge{}, ErrForbidden
	}
	if err := in.validate(); err != nil {
		return Challenge{}, err
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Challenge{}, err
	}

	c.Title = strings.TrimSpace(in.Title)
	c.Description = strings.TrimSpace(in.Description)
	c.StartsAt = in.StartsAt
	c.EndsAt = in.EndsAt
	c.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, c); err != nil {
		return Challenge{}, err
	}
	s.cache.Invalidate(challengeKey(c.ID), listKey)
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	if !s.isAdmin(ctx, actorID) {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Remove(challengeKey(id))
	s.cache.Invalidate(listKey)
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (Challenge, error) {
	return cache.Fetch(ctx, s.cache, challengeKey(id), func(ctx context.Context) (Challenge, error) {
		c, err := s.repo.GetByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return Challenge{}, cache.Permanent(err)
		}
		return c, err
	})
}

func (s *Service) List(ctx context.Context) ([]Challenge, error) {
	return cache.Fetch(ctx, s.cache, listKey, func(ctx context.Context) ([]Challenge, error) {
		return s.repo.List(ctx)
	})
}

// VotingEnabled: hasta ends_at para todos; después solo admins.
func (s *Service) VotingEnabled(ctx context.Context, c Challenge, viewerID string) bool {
	if !c.Ended(s.now()) {
		return true
	}
	return s.isAdmin(ctx, viewerID)
}

func (s *Service) entries(ctx context.Context, challengeID string) ([]Entry, error) {
	return cache.Fetch(ctx, s.cache, entriesKey(challengeID), func(ctx context.Context) ([]Entry, error) {
		return s.repo.ListEntries(ctx, challengeID)
	})
}

func (s *Service) myVotes(ctx context.Context, challengeID, userID string) (map[string]bool, error) {
	ids, err := cache.Fetch(ctx, s.cache, votesKey(challengeID, userID), func(ctx context.Context) ([]string, error) {
		return s.repo.VotedEntries(ctx, challengeID, userID)
	})
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// View arma el detalle del challenge para viewerID, entradas en orden de envío.
func (s *Service) View(ctx context.Context, challengeID, viewerID string) (View, error) {
	c, err := s.Get(ctx, challengeID)
	if err != nil {
		return View{}, err
	}
	entries, err := s.entries(ctx, c.ID)
	if err != nil {
		return View{}, err
	}
	voted, err := s.myVotes(ctx, c.ID, viewerID)
	if err != nil {
		return View{}, err
	}

	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryView{Entry: e, VotedByMe: voted[e.ID]})
	}
	return View{
		Challenge:     c,
		VotingEnabled: s.VotingEnabled(ctx, c, viewerID),
		Entries:       out,
	}, nil
}

// Leaderboard: votos desc, a igualdad la entrada más vieja primero.
func (s *Service) Leaderboard(ctx context.Context, challengeID string) ([]Entry, error) {
	if _, err := s.Get(ctx, challengeID); err != nil {
		return nil, err
	}
	entries, err := s.entries(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Votes != out[j].Votes {
			return out[i].Votes > out[j].Votes
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type EntryInput struct {
	PetID    string
	PhotoURL string
	Caption  string
}

// SubmitEntry: una entrada por mascota, solo su dueño y con el challenge abierto.
func (s *Service) SubmitEntry(ctx context.Context, challengeID, userID string, in EntryInput) (Entry, error) {
	petID := strings.TrimSpace(in.PetID)
	photo := strings.TrimSpace(in.PhotoURL)
	if strings.TrimSpace(userID) == "" || petID == "" || photo == "" {
		return Entry{}, fmt.Errorf("%w: pet_id and photo required", ErrInvalidInput)
	}
	c, err := s.checkSubmit(ctx, challengeID, userID, petID)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{
		ID:          uuid.NewString(),
		ChallengeID: c.ID,
		PetID:       petID,
		UserID:      userID,
		PhotoURL:    photo,
		Caption:     strings.TrimSpace(in.Caption),
		CreatedAt:   s.now(),
	}
	if err := s.repo.CreateEntry(ctx, e); err != nil {
		return Entry{}, err
	}
	s.cache.Invalidate(entriesKey(c.ID))
	return e, nil
}

// SubmitEntryPhoto sube la foto al CDN y después crea la entrada.
func (s *Service) SubmitEntryPhoto(ctx context.Context, challengeID, userID, petID, caption, filename string, content io.Reader) (Entry, error) {
	if _, err := s.checkSubmit(ctx, challengeID, userID, strings.TrimSpace(petID)); err != nil {
		return Entry{}, err
	}
	if s.uploader == nil {
		return Entry{}, media.ErrNotConfigured
	}
	asset, err := s.uploader.Upload(ctx, media.Upload{Folder: "challenges", Filename: filename, Content: content})
	if err != nil {
		return Entry{}, err
	}
	return s.SubmitEntry(ctx, challengeID, userID, EntryInput{PetID: petID, PhotoURL: asset.URL, Caption: caption})
}

func (s *Service) checkSubmit(ctx context.Context, challengeID, userID, petID string) (Challenge, error) {
	c, err := s.repo.GetByID(ctx, challengeID)
	if err != nil {
		return Challenge{}, err
	}
	if !c.Open(s.now()) {
		return Challenge{}, ErrChallengeClosed
	}
	owner, err := s.pets.OwnerOf(ctx, petID)
	if errors.Is(err, pets.ErrNotFound) {
		return Challenge{}, fmt.Errorf("%w: unknown pet", ErrInvalidInput)
	}
	if err != nil {
		return Challenge{}, err
	}
	if owner != userID {
		return Challenge{}, ErrForbidden
	}
	return c, nil
}

// DeleteEntry: dueño de la entrada o admin (moderación, se avisa al dueño).
func (s *Service) DeleteEntry(ctx context.Context, entryID, actorID string) error {
	e, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	moderated := e.UserID != actorID
	if moderated && !s.isAdmin(ctx, actorID) {
		return ErrForbidden
	}
	if err := s.repo.DeleteEntry(ctx, e.ID); err != nil {
		return err
	}
	s.cache.Invalidate(entriesKey(e.ChallengeID), cache.Key{"challenges", e.ChallengeID, "votes"})

	if moderated && s.notifier != nil {
		_ = s.notifier.Notify(ctx, e.UserID, notifications.KindModeration,
			"Challenge entry removed", "Your challenge entry was removed by a moderator",
			map[string]string{"challenge_id": e.ChallengeID, "entry_id": e.ID})
	}
	return nil
}

func (s *Service) Vote(ctx context.Context, entryID, userID string) error {
	return s.vote(ctx, entryID, userID, 1)
}

func (s *Service) Unvote(ctx context.Context, entryID, userID string) error {
	return s.vote(ctx, entryID, userID, -1)
}

// vote aplica el cambio de conteo optimista sobre las entradas cacheadas
// y lo revierte si el repo falla.
func (s *Service) vote(ctx context.Context, entryID, userID string, delta int) error {
	if strings.TrimSpace(userID) == "" {
		return ErrInvalidInput
	}
	e, err := s.repo.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	c, err := s.Get(ctx, e.ChallengeID)
	if err != nil {
		return err
	}
	if !s.VotingEnabled(ctx, c, userID) {
		return ErrVotingClosed
	}

	rollback := cache.Update(s.cache, entriesKey(c.ID), func(old []Entry, ok bool) []Entry {
		out := make([]Entry, len(old))
		copy(out, old)
		for i := range out {
			if out[i].ID == e.ID {
				out[i].Votes += delta
			}
		}
		return out
	})

	if delta > 0 {
		err = s.repo.AddVote(ctx, Vote{EntryID: e.ID, ChallengeID: c.ID, UserID: userID, CreatedAt: s.now()})
	} else {
		err = s.repo.RemoveVote(ctx, e.ID, userID)
	}
	if err != nil {
		rollback()
		return err
	}
	s.cache.Invalidate(entriesKey(c.ID), votesKey(c.ID, userID))
	return nil
}
