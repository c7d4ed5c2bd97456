// Package cloudinary implementa media.Uploader con uploads firmados.
package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"pawpal/internal/platform/httpclient"
	"pawpal/internal/ports/media"
)

const DefaultBaseURL = "https://api.cloudinary.com"

var ErrUpstream = errors.New("cloudinary upstream error")

type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	// Folder raíz; Upload.Folder se agrega debajo.
	Folder string

	// BaseURL permite apuntar a un fake en tests.
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *httpclient.Client
	now  func() time.Time
}

func NewClient(cfg Config) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: httpclient.New(timeout),
		now:  time.Now,
	}
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.cfg.CloudName != "" && c.cfg.APIKey != "" && c.cfg.APISecret != ""
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

func (c *Client) Upload(ctx context.Context, in media.Upload) (media.Asset, error) {
	if !c.IsConfigured() {
		return media.Asset{}, media.ErrNotConfigured
	}
	if in.Content == nil {
		return media.Asset{}, errors.New("cloudinary: empty content")
	}

	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	if folder := joinFolder(c.cfg.Folder, in.Folder); folder != "" {
		params["folder"] = folder
	}

	fields := make(map[string]string, len(params)+2)
	for k, v := range params {
		fields[k] = v
	}
	fields["api_key"] = c.cfg.APIKey
	fields["signature"] = Sign(params, c.cfg.APISecret)

	filename := in.Filename
	if filename == "" {
		filename = "upload"
	}

	var out uploadResponse
	u := fmt.Sprintf("%s/v1_1/%s/image/upload", c.cfg.BaseURL, c.cfg.CloudName)
	err := c.http.DoMultipart(ctx, u, nil, fields, httpclient.FilePart{
		Field:    "file",
		Filename: filename,
		Content:  in.Content,
	}, &out)
	if err != nil {
		return media.Asset{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if out.SecureURL == "" {
		return media.Asset{}, fmt.Errorf("%w: response without secure_url", ErrUpstream)
	}

	return media.Asset{
		URL:      out.SecureURL,
		PublicID: out.PublicID,
		Width:    out.Width,
		Height:   out.Height,
	}, nil
}

// Sign arma la firma de Cloudinary: params ordenados "k=v&k=v" + secret, en SHA-1 hex.
func Sign(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "&") + secret))
	return hex.EncodeToString(sum[:])
}

func joinFolder(root, sub string) string {
	root = strings.Trim(strings.TrimSpace(root), "/")
	sub = strings.Trim(strings.TrimSpace(sub), "/")
	switch {
	case root == "":
		return sub
	case sub == "":
		return root
	}
	return path.Join(root, sub)
}
