package lavalink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jose-valero/dj-session-bot/internal/domain"
)

const clientName = "dj-session-bot/1.0"

// Node habla REST + websocket v4 con un nodo Lavalink. Implementa service.AudioNode.
type Node struct {
	password string
	userID   string

	http    *http.Client
	dialer  *websocket.Dialer
	baseURL string
	wsURL   string
	secure  bool
	log     *zap.Logger

	resumeTimeout time.Duration

	mu        sync.RWMutex
	sessionID string
	ready     chan struct{}
	readyOnce sync.Once

	events chan domain.PlayerEvent
}

// New: addr es host:port. userID es el id del bot en Discord.
func New(addr, password, userID string, opts ...Option) *Node {
	n := &Node{
		password: password,
		userID:   userID,
		http:     &http.Client{Timeout: 10 * time.Second},
		dialer:   websocket.DefaultDialer,
		log:      zap.NewNop(),
		ready:    make(chan struct{}),
		events:   make(chan domain.PlayerEvent, 64),
	}
	for _, o := range opts {
		o(n)
	}
	if n.baseURL == "" {
		scheme := "http"
		if n.secure {
			scheme = "https"
		}
		WithBaseURL(scheme + "://" + addr)(n)
	}
	return n
}

// Events es el stream que consume service.PlayerService.Run.
func (n *Node) Events() <-chan domain.PlayerEvent { return n.events }

func (n *Node) SessionID() string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.sessionID
}

// WaitReady bloquea hasta el primer op "ready" del websocket.
func (n *Node) WaitReady(ctx context.Context) error {
	select {
	case <-n.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Node) playerPath(guildID string) (string, error) {
	sid := n.SessionID()
	if sid == "" {
		return "", ErrNotConnected
	}
	return "/v4/sessions/" + url.PathEscape(sid) + "/players/" + url.PathEscape(guildID), nil
}

// doJSON: arma la URL, agrega Authorization y traduce 404 / no-2xx.
func (n *Node) doJSON(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := n.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", n.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := n.http.Do(req)
	if err != nil {
		return fmt.Errorf("lavalink http: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return &APIError{Status: res.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	if out == nil || res.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}
