package push

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"pawpal/internal/domain/notifications"
	"pawpal/internal/platform/logger"

	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotConfigured = errors.New("push sender not configured")
)

// maxConcurrentSends limita el fan-out por usuario.
const maxConcurrentSends = 8

// Message es el payload que se manda a cada dispositivo.
type Message struct {
	UserID string
	Title  string
	Body   string
	Data   map[string]string
}

// Sender entrega mensajes por FCM. El bearer se pide una vez por dispatch
// con AccessToken y después se usa en cada Send.
type Sender interface {
	AccessToken(ctx context.Context) (string, error)
	Send(ctx context.Context, bearer, token string, msg Message) error
}

// Result resume un dispatch. Los fallos por token solo se loguean.
type Result struct {
	Tokens int
	Sent   int
	Failed int
}

type Service struct {
	tokens notifications.TokenRepository
	sender Sender
	log    logger.Logger
}

func NewService(tokens notifications.TokenRepository, sender Sender, log logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		tokens: tokens,
		sender: sender,
		log:    log.With(logger.Fields{"component": "push"}),
	}
}

// Dispatch manda msg a todos los tokens únicos del usuario, en paralelo,
// y vuelve cuando terminaron todos los envíos. Sin reintentos.
// Si no se puede obtener el bearer el dispatch falla entero; los fallos por
// token solo se loguean.
func (s *Service) Dispatch(ctx context.Context, msg Message) (Result, error) {
	msg.UserID = strings.TrimSpace(msg.UserID)
	if msg.UserID == "" {
		return Result{}, ErrInvalidInput
	}
	if s.sender == nil {
		return Result{}, ErrNotConfigured
	}

	rows, err := s.tokens.ListByUser(ctx, msg.UserID)
	if err != nil {
		return Result{}, err
	}
	tokens := UniqueTokens(rows)
	res := Result{Tokens: len(tokens)}
	if len(tokens) == 0 {
		return res, nil
	}

	bearer, err := s.sender.AccessToken(ctx)
	if err != nil {
		s.log.Error("push access token failed", logger.Fields{"user_id": msg.UserID, "err": err})
		return res, fmt.Errorf("push: access token: %w", err)
	}

	var sent, failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(maxConcurrentSends)
	for _, tok := range tokens {
		tok := tok
		g.Go(func() error {
			if err := s.sender.Send(ctx, bearer, tok, msg); err != nil {
				failed.Add(1)
				s.log.Warn("push send failed", logger.Fields{"user_id": msg.UserID, "token": shortToken(tok), "err": err})
				return nil
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	res.Sent = int(sent.Load())
	res.Failed = int(failed.Load())
	s.log.Info("push dispatched", logger.Fields{"user_id": msg.UserID, "tokens": res.Tokens, "sent": res.Sent, "failed": res.Failed})
	return res, nil
}

// Push implementa notifications.Pusher.
func (s *Service) Push(ctx context.Context, n notifications.Notification) error {
	_, err := s.Dispatch(ctx, Message{UserID: n.UserID, Title: n.Title, Body: n.Body, Data: n.Data})
	return err
}

// UniqueTokens dedupe por valor de token; gana la primera aparición.
func UniqueTokens(rows []notifications.DeviceToken) []string {
	seen := make(map[string]struct{}, len(rows))
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		t := strings.TrimSpace(r.Token)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func shortToken(t string) string {
	if len(t) <= 12 {
		return t
	}
	return t[:12] + "…"
}
