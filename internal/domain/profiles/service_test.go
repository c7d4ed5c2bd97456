package profiles

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type testRepo struct {
	byID map[string]Profile
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Profile{}}
}

func (r *testRepo) Create(ctx context.Context, p Profile) error {
	if _, ok := r.byID[p.ID]; ok {
		return ErrAlreadyExists
	}
	r.byID[p.ID] = p
	return nil
}

func (r *testRepo) Update(ctx context.Context, p Profile) error {
	if _, ok := r.byID[p.ID]; !ok {
		return ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Profile, error) {
	p, ok := r.byID[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *testRepo) List(ctx context.Context, filter ListFilter) ([]Profile, error) {
	out := make([]Profile, 0)
	for _, p := range r.byID {
		if filter.Role != "" && p.Role != filter.Role {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func TestSignUp_RejectsOtherEmailDomain(t *testing.T) {
	svc := NewService(newTestRepo(), nil, "up.edu.ph", nil)

	_, err := svc.SignUp(context.Background(), SignUpInput{
		UserID:      "u-1",
		Email:       "juan@gmail.com",
		DisplayName: "Juan",
	})
	if !errors.Is(err, ErrEmailDomain) {
		t.Fatalf("expected ErrEmailDomain, got %v", err)
	}
	if err.Error() != "please sign up with your @up.edu.ph email address" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestSignUp_AcceptsDomainCaseInsensitive(t *testing.T) {
	svc := NewService(newTestRepo(), nil, "up.edu.ph", nil)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	p, err := svc.SignUp(context.Background(), SignUpInput{
		UserID:      "u-1",
		Email:       "  Maria@UP.edu.ph ",
		DisplayName: "Maria",
	})
	if err != nil {
		t.Fatalf("SignUp error: %v", err)
	}
	if p.Email != "maria@up.edu.ph" {
		t.Fatalf("expected normalized email, got %q", p.Email)
	}
	if p.Role != RoleMember {
		t.Fatalf("expected default role member, got %s", p.Role)
	}
	if !p.CreatedAt.Equal(now) {
		t.Fatalf("expected CreatedAt=now")
	}

	if _, err := svc.SignUp(context.Background(), SignUpInput{UserID: "u-1", Email: "maria@up.edu.ph", DisplayName: "M"}); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists on second sign up, got %v", err)
	}
}

func TestSignUp_OrganizationRequiresName_AdminNotSelfAssigned(t *testing.T) {
	svc := NewService(newTestRepo(), nil, "", nil)

	_, err := svc.SignUp(context.Background(), SignUpInput{UserID: "u-1", Email: "a@b.c", DisplayName: "A", Role: RoleOrganization})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without organization name, got %v", err)
	}

	_, err = svc.SignUp(context.Background(), SignUpInput{UserID: "u-1", Email: "a@b.c", DisplayName: "A", Role: RoleAdmin})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for admin sign up, got %v", err)
	}
}

func TestAdminActions(t *testing.T) {
	svc := NewService(newTestRepo(), nil, "", []string{"boss"})
	ctx := context.Background()

	admin, err := svc.SignUp(ctx, SignUpInput{UserID: "boss", Email: "boss@x.org", DisplayName: "Boss"})
	if err != nil {
		t.Fatalf("SignUp admin: %v", err)
	}
	if admin.Role != RoleAdmin {
		t.Fatalf("bootstrap admin should get admin role, got %s", admin.Role)
	}
	if _, err := svc.SignUp(ctx, SignUpInput{UserID: "m-1", Email: "m@x.org", DisplayName: "Member"}); err != nil {
		t.Fatalf("SignUp member: %v", err)
	}

	if _, err := svc.SetSuspended(ctx, "m-1", "boss", true); !errors.Is(err, ErrForbidden) {
		t.Fatalf("member must not suspend, got %v", err)
	}
	if _, err := svc.SetSuspended(ctx, "boss", "boss", true); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("admin must not suspend itself, got %v", err)
	}

	p, err := svc.SetSuspended(ctx, "boss", "m-1", true)
	if err != nil || !p.Suspended {
		t.Fatalf("expected suspended profile, got %+v err=%v", p, err)
	}
	if !svc.IsSuspended(ctx, "m-1") {
		t.Fatalf("IsSuspended should be true")
	}

	p, err = svc.SetRole(ctx, "boss", "m-1", RoleOrganization)
	if err != nil || p.Role != RoleOrganization {
		t.Fatalf("expected organization role, got %+v err=%v", p, err)
	}
	if !svc.CanOrganize(ctx, "m-1") {
		t.Fatalf("organization should be able to organize")
	}
	if _, err := svc.SetRole(ctx, "boss", "m-1", Role("owner")); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown role, got %v", err)
	}
}

func TestUpdate_AndDisplayNameFallback(t *testing.T) {
	svc := NewService(newTestRepo(), nil, "", nil)
	ctx := context.Background()

	if got := svc.DisplayName(ctx, "ghost"); got != "Someone" {
		t.Fatalf("expected fallback name, got %q", got)
	}
	if _, err := svc.Get(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := svc.SignUp(ctx, SignUpInput{UserID: "u-1", Email: "a@b.c", DisplayName: "Ana"}); err != nil {
		t.Fatalf("SignUp: %v", err)
	}

	empty := "  "
	if _, err := svc.Update(ctx, "u-1", UpdateInput{DisplayName: &empty}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank name, got %v", err)
	}

	bio := "  vet student "
	p, err := svc.Update(ctx, "u-1", UpdateInput{Bio: &bio})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p.Bio != strings.TrimSpace(bio) || p.DisplayName != "Ana" {
		t.Fatalf("unexpected profile after update: %+v", p)
	}
}
