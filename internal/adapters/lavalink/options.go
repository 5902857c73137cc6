package lavalink

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Option func(*Node)

func WithHTTPClient(h *http.Client) Option {
	return func(n *Node) { n.http = h }
}

// WithBaseURL fija la URL REST; la del websocket se deriva de ella.
func WithBaseURL(u string) Option {
	return func(n *Node) {
		n.baseURL = strings.TrimRight(u, "/")
		n.wsURL = wsFromHTTP(n.baseURL) + "/v4/websocket"
	}
}

func WithSecure(secure bool) Option {
	return func(n *Node) { n.secure = secure }
}

func WithLogger(l *zap.Logger) Option {
	return func(n *Node) { n.log = l }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(n *Node) { n.dialer = d }
}

// WithResumeTimeout pide al nodo que conserve los players tras un corte del websocket.
func WithResumeTimeout(d time.Duration) Option {
	return func(n *Node) { n.resumeTimeout = d }
}

func wsFromHTTP(u string) string {
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}
