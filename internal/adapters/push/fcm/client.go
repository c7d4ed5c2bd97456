// Package fcm manda push por Firebase Cloud Messaging HTTP v1 con una service account.
package fcm

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"pawpal/internal/domain/push"
	"pawpal/internal/platform/httpclient"

	"github.com/golang-jwt/jwt/v5"
)

const (
	Scope           = "https://www.googleapis.com/auth/firebase.messaging"
	DefaultTokenURI = "https://oauth2.googleapis.com/token"
	DefaultEndpoint = "https://fcm.googleapis.com"

	assertionTTL = time.Hour
	// renovamos antes de que venza
	tokenSkew = time.Minute
)

var (
	ErrNotConfigured = errors.New("fcm client not configured")
	ErrUpstream      = errors.New("fcm upstream error")
)

// ServiceAccount son los campos que usamos del JSON de la service account.
type ServiceAccount struct {
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	TokenURI     string `json:"token_uri"`
}

type Config struct {
	ServiceAccountJSON string
	// Endpoint permite apuntar a un fake en tests.
	Endpoint string
	Timeout  time.Duration
}

type Client struct {
	sa       ServiceAccount
	key      *rsa.PrivateKey
	endpoint string
	http     *httpclient.Client

	mu     sync.Mutex
	token  string
	expiry time.Time

	now func() time.Time
}

func NewClient(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.ServiceAccountJSON)
	if raw == "" {
		return nil, ErrNotConfigured
	}

	var sa ServiceAccount
	if err := json.Unmarshal([]byte(raw), &sa); err != nil {
		return nil, fmt.Errorf("fcm: parse service account: %w", err)
	}
	if sa.ProjectID == "" || sa.ClientEmail == "" || sa.PrivateKey == "" {
		return nil, fmt.Errorf("%w: service account missing project_id/client_email/private_key", ErrNotConfigured)
	}
	if sa.TokenURI == "" {
		sa.TokenURI = DefaultTokenURI
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(sa.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("fcm: parse private key: %w", err)
	}

	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	return &Client{
		sa:       sa,
		key:      key,
		endpoint: endpoint,
		http:     httpclient.New(cfg.Timeout),
		now:      time.Now,
	}, nil
}

// assertion firma el JWT RS256 que se intercambia por un access token.
func (c *Client) assertion(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":   c.sa.ClientEmail,
		"scope": Scope,
		"aud":   c.sa.TokenURI,
		"iat":   now.Unix(),
		"exp":   now.Add(assertionTTL).Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if c.sa.PrivateKeyID != "" {
		t.Header["kid"] = c.sa.PrivateKeyID
	}
	return t.SignedString(c.key)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// AccessToken devuelve un bearer token cacheado hasta que esté por vencer.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c == nil {
		return "", ErrNotConfigured
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && now.Before(c.expiry.Add(-tokenSkew)) {
		return c.token, nil
	}

	assertion, err := c.assertion(now)
	if err != nil {
		return "", fmt.Errorf("fcm: sign assertion: %w", err)
	}

	var out tokenResponse
	err = c.http.DoForm(ctx, c.sa.TokenURI, nil, url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}, &out)
	if err != nil {
		return "", fmt.Errorf("%w: token exchange: %v", ErrUpstream, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%w: token exchange returned no access_token", ErrUpstream)
	}

	ttl := time.Duration(out.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = assertionTTL
	}
	c.token = out.AccessToken
	c.expiry = now.Add(ttl)
	return c.token, nil
}

type sendRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// Send implementa push.Sender: un mensaje FCM v1 por token con el bearer de AccessToken.
// bearer vacío => lo pide acá.
func (c *Client) Send(ctx context.Context, bearer, token string, msg push.Message) error {
	if c == nil {
		return ErrNotConfigured
	}
	if bearer == "" {
		var err error
		if bearer, err = c.AccessToken(ctx); err != nil {
			return err
		}
	}

	u := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.endpoint, url.PathEscape(c.sa.ProjectID))
	err := c.http.DoJSON(ctx, http.MethodPost, u, map[string]string{
		"Authorization": "Bearer " + bearer,
	}, sendRequest{Message: fcmMessage{
		Token:        token,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	}}, nil)
	if err != nil {
		return fmt.Errorf("%w: send: %v", ErrUpstream, err)
	}
	return nil
}
