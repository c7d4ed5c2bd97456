package pets

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"pawpal/internal/platform/cache"
	"pawpal/internal/ports/media"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("pet not found")
	ErrForbidden    = errors.New("forbidden")
)

// Admins resuelve si un usuario es admin (lo implementa profiles.Service).
type Admins interface {
	IsAdmin(ctx context.Context, userID string) bool
}

type Service struct {
	repo     Repository
	cache    *cache.Cache
	admins   Admins
	uploader media.Uploader
	now      func() time.Time
}

func NewService(repo Repository, c *cache.Cache, admins Admins, uploader media.Uploader) *Service {
	return &Service{
		repo:     repo,
		cache:    c,
		admins:   admins,
		uploader: uploader,
		now:      time.Now,
	}
}

func petKey(id string) cache.Key { return cache.Key{"pets", id} }
func ownerKey(ownerID string) cache.Key { return cache.Key{"pets", "owner", ownerID} }

type CreateInput struct {
	Name      string
	Species   string
	Breed     string
	Sex       string
	BirthDate *time.Time
	Microchip string
	Notes     string
}

func (s *Service) Create(ctx context.Context, ownerUserID string, in CreateInput) (Pet, error) {
	if strings.TrimSpace(ownerUserID) == "" {
		return Pet{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.Name) == "" {
		return Pet{}, ErrInvalidInput
	}
	species := Species(strings.ToLower(strings.TrimSpace(in.Species)))
	if !species.Valid() {
		return Pet{}, ErrInvalidInput
	}
	sex := Sex(strings.ToLower(strings.TrimSpace(in.Sex)))
	if sex == "" {
		sex = SexUnknown
	}
	if !sex.Valid() {
		return Pet{}, ErrInvalidInput
	}

	now := s.now()
	p := Pet{
		ID:          uuid.NewString(),
		OwnerUserID: ownerUserID,
		Name:        strings.TrimSpace(in.Name),
		Species:     species,
		Breed:       strings.TrimSpace(in.Breed),
		Sex:         sex,
		BirthDate:   in.BirthDate,
		Microchip:   strings.TrimSpace(in.Microchip),
		Notes:       strings.TrimSpace(in.Notes),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return Pet{}, err
	}
	s.cache.Invalidate(ownerKey(ownerUserID))
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Pet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Pet{}, ErrNotFound
	}
	return cache.Fetch(ctx, s.cache, petKey(id), func(ctx context.Context) (Pet, error) {
		p, err := s.repo.GetByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return Pet{}, cache.Permanent(err)
		}
		return p, err
	})
}

func (s *Service) ListByOwner(ctx context.Context, ownerUserID string) ([]Pet, error) {
	return cache.Fetch(ctx, s.cache, ownerKey(ownerUserID), func(ctx context.Context) ([]Pet, error) {
		return s.repo.ListByOwner(ctx, ownerUserID)
	})
}

// PatchBirthDate distingue "no enviado" de "null" (limpiar).
type PatchBirthDate struct {
	Present bool
	Value   *time.Time
}

type UpdateProfileInput struct {
	Name      *string
	Species   *string
	Breed     *string
	Sex       *string
	BirthDate PatchBirthDate
	Microchip *string
	Notes     *string
}

// UpdateProfile aplica un PATCH. Solo dueño o admin.
func (s *Service) UpdateProfile(ctx context.Context, petID, actorUserID string, in UpdateProfileInput) (Pet, error) {
	p, err := s.authorize(ctx, petID, actorUserID)
	if err != nil {
		return Pet{}, err
	}

	if in.Name != nil {
		v := strings.TrimSpace(*in.Name)
		if v == "" {
			return Pet{}, ErrInvalidInput
		}
		p.Name = v
	}
	if in.Species != nil {
		v := Species(strings.ToLower(strings.TrimSpace(*in.Species)))
		if !v.Valid() {
			return Pet{}, ErrInvalidInput
		}
		p.Species = v
	}
	if in.Breed != nil {
		p.Breed = strings.TrimSpace(*in.Breed)
	}
	if in.Sex != nil {
		v := Sex(strings.ToLower(strings.TrimSpace(*in.Sex)))
		if !v.Valid() {
			return Pet{}, ErrInvalidInput
		}
		p.Sex = v
	}
	if in.BirthDate.Present {
		if in.BirthDate.Value != nil && in.BirthDate.Value.After(s.now()) {
			return Pet{}, ErrInvalidInput
		}
		p.BirthDate = in.BirthDate.Value
	}
	if in.Microchip != nil {
		p.Microchip = strings.TrimSpace(*in.Microchip)
	}
	if in.Notes != nil {
		p.Notes = strings.TrimSpace(*in.Notes)
	}
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return Pet{}, err
	}
	s.cache.Invalidate(petKey(p.ID), ownerKey(p.OwnerUserID))
	return p, nil
}

// Delete borra la mascota. Solo dueño o admin (moderación).
func (s *Service) Delete(ctx context.Context, petID, actorUserID string) error {
	p, err := s.authorize(ctx, petID, actorUserID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, p.ID); err != nil {
		return err
	}
	s.cache.Remove(petKey(p.ID))
	s.cache.Invalidate(ownerKey(p.OwnerUserID))
	return nil
}

// UploadPhoto sube la foto al CDN y guarda la URL en la mascota.
func (s *Service) UploadPhoto(ctx context.Context, petID, actorUserID, filename string, content io.Reader) (Pet, error) {
	p, err := s.authorize(ctx, petID, actorUserID)
	if err != nil {
		return Pet{}, err
	}
	if s.uploader == nil {
		return Pet{}, media.ErrNotConfigured
	}

	asset, err := s.uploader.Upload(ctx, media.Upload{
		Folder:   "pets",
		Filename: filename,
		Content:  content,
	})
	if err != nil {
		return Pet{}, err
	}

	p.PhotoURL = asset.URL
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return Pet{}, err
	}
	s.cache.Invalidate(petKey(p.ID), ownerKey(p.OwnerUserID))
	return p, nil
}

func (s *Service) authorize(ctx context.Context, petID, actorUserID string) (Pet, error) {
	if strings.TrimSpace(actorUserID) == "" {
		return Pet{}, ErrInvalidInput
	}
	// lectura directa: no queremos decidir permisos con un dato stale
	p, err := s.repo.GetByID(ctx, petID)
	if err != nil {
		return Pet{}, err
	}
	if p.OwnerUserID != actorUserID && (s.admins == nil || !s.admins.IsAdmin(ctx, actorUserID)) {
		return Pet{}, ErrForbidden
	}
	return p, nil
}
