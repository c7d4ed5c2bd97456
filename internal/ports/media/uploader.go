package media

import (
	"context"
	"errors"
	"io"
)

// ErrNotConfigured: no hay CDN configurado (modo dev).
var ErrNotConfigured = errors.New("image upload not configured")

// Uploader sube imágenes al CDN y devuelve la URL pública.
type Uploader interface {
	Upload(ctx context.Context, in Upload) (Asset, error)
}

type Upload struct {
	Folder   string // subcarpeta lógica: pets, outreach, challenges, avatars
	Filename string
	Content  io.Reader
}

type Asset struct {
	URL      string
	PublicID string
	Width    int
	Height   int
}
