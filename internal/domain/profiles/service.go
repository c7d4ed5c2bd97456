package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pawpal/internal/platform/cache"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("profile not found")
	ErrAlreadyExists = errors.New("profile already exists")
	ErrForbidden     = errors.New("forbidden")
	ErrEmailDomain   = errors.New("email domain not allowed")
)

// EmailDomainError es el rechazo del formulario de registro.
type EmailDomainError struct {
	Domain string
}

func (e *EmailDomainError) Error() string {
	return fmt.Sprintf("please sign up with your @%s email address", e.Domain)
}

func (e *EmailDomainError) Is(target error) bool { return target == ErrEmailDomain }

// ValidateEmailDomain exige que el email termine en @domain (case-insensitive).
// domain vacío => sin restricción.
func ValidateEmailDomain(email, domain string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	domain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(domain), "@"))

	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return fmt.Errorf("%w: email is not valid", ErrInvalidInput)
	}
	if domain == "" {
		return nil
	}
	if email[at+1:] != domain {
		return &EmailDomainError{Domain: domain}
	}
	return nil
}

type Service struct {
	repo        Repository
	cache       *cache.Cache
	emailDomain string
	admins      map[string]struct{}
	now         func() time.Time
}

// NewService crea el servicio. adminIDs son usuarios que siempre son admin (bootstrap).
func NewService(repo Repository, c *cache.Cache, emailDomain string, adminIDs []string) *Service {
	admins := map[string]struct{}{}
	for _, id := range adminIDs {
		if id = strings.TrimSpace(id); id != "" {
			admins[id] = struct{}{}
		}
	}
	return &Service{
		repo:        repo,
		cache:       c,
		emailDomain: emailDomain,
		admins:      admins,
		now:         time.Now,
	}
}

func profileKey(id string) cache.Key { return cache.Key{"profiles", id} }

var listKey = cache.Key{"profiles", "list"}

type SignUpInput struct {
	UserID           string
	Email            string
	DisplayName      string
	Role             Role // member | organization
	OrganizationName string
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (Profile, error) {
	userID := strings.TrimSpace(in.UserID)
	name := strings.TrimSpace(in.DisplayName)
	if userID == "" || name == "" {
		return Profile{}, ErrInvalidInput
	}
	if err := ValidateEmailDomain(in.Email, s.emailDomain); err != nil {
		return Profile{}, err
	}

	role := in.Role
	if role == "" {
		role = RoleMember
	}
	// admin no se auto-asigna
	if role != RoleMember && role != RoleOrganization {
		return Profile{}, ErrInvalidInput
	}
	org := strings.TrimSpace(in.OrganizationName)
	if role == RoleOrganization && org == "" {
		return Profile{}, fmt.Errorf("%w: organization_name required", ErrInvalidInput)
	}
	if _, ok := s.admins[userID]; ok {
		role = RoleAdmin
	}

	if _, err := s.repo.GetByID(ctx, userID); err == nil {
		return Profile{}, ErrAlreadyExists
	}

	now := s.now()
	p := Profile{
		ID:               userID,
		Email:            strings.ToLower(strings.TrimSpace(in.Email)),
		DisplayName:      name,
		Role:             role,
		OrganizationName: org,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Profile{}, err
	}

	s.cache.Invalidate(profileKey(userID), listKey)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Profile{}, ErrInvalidInput
	}
	return cache.Fetch(ctx, s.cache, profileKey(id), func(ctx context.Context) (Profile, error) {
		p, err := s.repo.GetByID(ctx, id)
		if errors.Is(err, ErrNotFound) {
			return Profile{}, cache.Permanent(err)
		}
		return p, err
	})
}

type UpdateInput struct {
	DisplayName      *string
	Bio              *string
	AvatarURL        *string
	OrganizationName *string
}

func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}

	if in.DisplayName != nil {
		v := strings.TrimSpace(*in.DisplayName)
		if v == "" {
			return Profile{}, ErrInvalidInput
		}
		p.DisplayName = v
	}
	if in.Bio != nil {
		p.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.AvatarURL != nil {
		p.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if in.OrganizationName != nil {
		p.OrganizationName = strings.TrimSpace(*in.OrganizationName)
	}
	p.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, p); err != nil {
		return Profile{}, err
	}
	s.cache.Invalidate(profileKey(id), listKey)
	return p, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]Profile, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	key := append(cache.Key{}, listKey...)
	key = append(key, string(filter.Role), strings.ToLower(strings.TrimSpace(filter.Query)), fmt.Sprint(filter.Limit))
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) ([]Profile, error) {
		return s.repo.List(ctx, filter)
	})
}

// RoleOf devuelve el rol del usuario; sin perfil => member (o admin si es bootstrap).
func (s *Service) RoleOf(ctx context.Context, userID string) Role {
	if _, ok := s.admins[userID]; ok {
		return RoleAdmin
	}
	p, err := s.Get(ctx, userID)
	if err != nil || !p.Role.Valid() {
		return RoleMember
	}
	return p.Role
}

func (s *Service) IsAdmin(ctx context.Context, userID string) bool {
	return s.RoleOf(ctx, userID) == RoleAdmin
}

// CanOrganize: organizaciones y admins pueden crear eventos de outreach.
func (s *Service) CanOrganize(ctx context.Context, userID string) bool {
	r := s.RoleOf(ctx, userID)
	return r == RoleOrganization || r == RoleAdmin
}

func (s *Service) IsSuspended(ctx context.Context, userID string) bool {
	p, err := s.Get(ctx, userID)
	return err == nil && p.Suspended
}

// DisplayName para armar textos de notificaciones; fallback "Someone".
func (s *Service) DisplayName(ctx context.Context, userID string) string {
	p, err := s.Get(ctx, userID)
	if err != nil || p.DisplayName == "" {
		return "Someone"
	}
	return p.DisplayName
}

// SetRole es una acción de admin.
func (s *Service) SetRole(ctx context.Context, adminID, userID string, role Role) (Profile, error) {
	if !s.IsAdmin(ctx, adminID) {
		return Profile{}, ErrForbidden
	}
	if !role.Valid() {
		return Profile{}, ErrInvalidInput
	}
	return s.adminMutate(ctx, userID, func(p *Profile) { p.Role = role })
}

// SetSuspended es una acción de admin; un admin no puede suspenderse a sí mismo.
func (s *Service) SetSuspended(ctx context.Context, adminID, userID string, suspended bool) (Profile, error) {
	if !s.IsAdmin(ctx, adminID) {
		return Profile{}, ErrForbidden
	}
	if adminID == userID {
		return Profile{}, ErrInvalidInput
	}
	return s.adminMutate(ctx, userID, func(p *Profile) { p.Suspended = suspended })
}

func (s *Service) adminMutate(ctx context.Context, userID string, fn func(p *Profile)) (Profile, error) {
	p, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	fn(&p)
	p.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, p); err != nil {
		return Profile{}, err
	}
	s.cache.Invalidate(profileKey(userID), listKey)
	return p, nil
}
