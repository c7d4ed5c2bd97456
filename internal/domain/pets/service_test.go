package pets

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"pawpal/internal/platform/cache"
	"pawpal/internal/ports/media"
)

type testRepo struct {
	byID map[string]Pet
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Pet{}}
}

func (r *testRepo) Create(ctx context.Context, p Pet) error {
	r.byID[p.ID] = p
	return nil
}

func (r *testRepo) Update(ctx context.Context, p Pet) error {
	if _, ok := r.byID[p.ID]; !ok {
		return ErrNotFound
	}
	r.byID[p.ID] = p
	return nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Pet, error) {
	p, ok := r.byID[id]
	if !ok {
		return Pet{}, ErrNotFound
	}
	return p, nil
}

func (r *testRepo) ListByOwner(ctx context.Context, ownerUserID string) ([]Pet, error) {
	out := make([]Pet, 0)
	for _, p := range r.byID {
		if p.OwnerUserID == ownerUserID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeAdmins map[string]bool

func (f fakeAdmins) IsAdmin(ctx context.Context, userID string) bool { return f[userID] }

type fakeUploader struct {
	folder string
	body   string
}

func (f *fakeUploader) Upload(ctx context.Context, in media.Upload) (media.Asset, error) {
	b, _ := io.ReadAll(in.Content)
	f.folder = in.Folder
	f.body = string(b)
	return media.Asset{URL: "https://cdn.test/" + in.Filename}, nil
}

func TestService_Create_Validates(t *testing.T) {
	svc := NewService(newTestRepo(), nil, nil, nil)

	if _, err := svc.Create(context.Background(), "owner-1", CreateInput{Name: "Milo", Species: "dragon"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown species, got %v", err)
	}

	p, err := svc.Create(context.Background(), "owner-1", CreateInput{Name: " Milo ", Species: "Dog"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if p.Name != "Milo" || p.Species != SpeciesDog || p.Sex != SexUnknown {
		t.Fatalf("unexpected pet: %+v", p)
	}
}

func TestService_ListByOwner_InvalidatedAfterCreate(t *testing.T) {
	c := cache.New(cache.Options{StaleTime: time.Hour})
	svc := NewService(newTestRepo(), c, nil, nil)
	ctx := context.Background()

	items, err := svc.ListByOwner(ctx, "owner-1")
	if err != nil || len(items) != 0 {
		t.Fatalf("expected empty list, got %v err=%v", items, err)
	}

	if _, err := svc.Create(ctx, "owner-1", CreateInput{Name: "Luna", Species: "cat"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	items, err = svc.ListByOwner(ctx, "owner-1")
	if err != nil || len(items) != 1 {
		t.Fatalf("expected list refetched after create, got %v err=%v", items, err)
	}
}

func TestService_UpdateProfile_OwnerOrAdmin(t *testing.T) {
	svc := NewService(newTestRepo(), nil, fakeAdmins{"admin-1": true}, nil)
	ctx := context.Background()

	bd := time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)
	p, _ := svc.Create(ctx, "owner-1", CreateInput{Name: "Milo", Species: "dog", BirthDate: &bd})

	name := "Milo II"
	if _, err := svc.UpdateProfile(ctx, p.ID, "stranger", UpdateProfileInput{Name: &name}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for stranger, got %v", err)
	}

	updated, err := svc.UpdateProfile(ctx, p.ID, "admin-1", UpdateProfileInput{
		Name:      &name,
		BirthDate: PatchBirthDate{Present: true, Value: nil},
	})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if updated.Name != name || updated.BirthDate != nil {
		t.Fatalf("expected name changed and birth date cleared, got %+v", updated)
	}

	// birth_date ausente => no se toca
	notes := "likes walks"
	updated, err = svc.UpdateProfile(ctx, p.ID, "owner-1", UpdateProfileInput{Notes: &notes})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if updated.BirthDate != nil || updated.Notes != notes {
		t.Fatalf("unexpected pet after notes update: %+v", updated)
	}
}

func TestService_Delete(t *testing.T) {
	svc := NewService(newTestRepo(), cache.New(cache.Options{}), nil, nil)
	ctx := context.Background()

	p, _ := svc.Create(ctx, "owner-1", CreateInput{Name: "Milo", Species: "dog"})
	if _, err := svc.GetByID(ctx, p.ID); err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if err := svc.Delete(ctx, p.ID, "other"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := svc.Delete(ctx, p.ID, "owner-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.GetByID(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestService_UploadPhoto(t *testing.T) {
	ctx := context.Background()

	noCDN := NewService(newTestRepo(), nil, nil, nil)
	p, _ := noCDN.Create(ctx, "owner-1", CreateInput{Name: "Milo", Species: "dog"})
	if _, err := noCDN.UploadPhoto(ctx, p.ID, "owner-1", "milo.jpg", strings.NewReader("img")); !errors.Is(err, media.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	up := &fakeUploader{}
	svc := NewService(newTestRepo(), nil, nil, up)
	p, _ = svc.Create(ctx, "owner-1", CreateInput{Name: "Milo", Species: "dog"})

	updated, err := svc.UploadPhoto(ctx, p.ID, "owner-1", "milo.jpg", strings.NewReader("img"))
	if err != nil {
		t.Fatalf("UploadPhoto: %v", err)
	}
	if updated.PhotoURL != "https://cdn.test/milo.jpg" || up.folder != "pets" || up.body != "img" {
		t.Fatalf("unexpected upload result: %+v uploader=%+v", updated, up)
	}
}
