package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	gommonlog "github.com/labstack/gommon/log"

	"storyloom/pkg/utils"
)

// DefaultPort is the loopback port registered with the OAuth client; the
// redirect URI is bound to it, so it is not configurable per flow.
const DefaultPort = 8765

// FlowTimeout is how long a flow waits for the browser redirect.
const FlowTimeout = 300 * time.Second

var (
	ErrFlowInProgress = errors.New("an authorization flow is already in progress")
	ErrFlowTimeout    = errors.New("authorization timed out")
	ErrNoCode         = errors.New("redirect carried no authorization code")
)

// callbackHTML closes the browser tab once the code is captured.
const callbackHTML = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>인증 완료</title></head>
<body><p>인증이 완료되었습니다. 이 창은 곧 닫힙니다.</p>
<script>setTimeout(function(){window.close()},1500)</script>
</body></html>`

// Token is the persisted credential document.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Expiry       string `json:"expiry,omitempty"`
}

// SaveToken persists a token document at path.
func SaveToken(path string, tok Token) error {
	return utils.Save(path, tok)
}

// LoadToken reads a token document from path.
func LoadToken(path string) (Token, error) {
	return utils.Load[Token](path)
}

// Listener runs the local callback server for one authorization flow at a
// time. Only a single flow may be in progress; a second AwaitCode while one
// is pending fails immediately.
type Listener struct {
	port int

	mu     sync.Mutex
	active bool
}

func NewListener(port int) *Listener {
	if port <= 0 {
		port = DefaultPort
	}
	return &Listener{port: port}
}

// RedirectURI returns the URI to register with the OAuth client.
func (l *Listener) RedirectURI() string {
	return fmt.Sprintf("http://localhost:%d/", l.port)
}

// AwaitCode binds the loopback server, waits for GET /?code=... from the
// browser redirect, answers with a self-closing page, and returns the code.
// The server always shuts down before returning.
func (l *Listener) AwaitCode(ctx context.Context) (string, error) {
	l.mu.Lock()
	if l.active {
		l.mu.Unlock()
		return "", ErrFlowInProgress
	}
	l.active = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.active = false
		l.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, FlowTimeout)
	defer cancel()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(gommonlog.OFF)

	codeCh := make(chan string, 1)
	e.GET("/", func(c echo.Context) error {
		code := c.QueryParam("code")
		if code == "" {
			if desc := c.QueryParam("error"); desc != "" {
				log.Warn("authorization denied", "error", desc)
			}
			return c.HTML(http.StatusBadRequest, "<p>인증 코드가 없습니다.</p>")
		}
		select {
		case codeCh <- code:
		default:
		}
		return c.HTML(http.StatusOK, callbackHTML)
	})

	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(fmt.Sprintf("localhost:%d", l.port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Warn("callback server shutdown", "error", err)
		}
	}()

	log.Info("waiting for authorization", "redirect_uri", l.RedirectURI())
	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", fmt.Errorf("callback server: %w", err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrFlowTimeout
		}
		return "", ctx.Err()
	}
}
