package oauth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// testPort keeps the suite off the registered loopback port.
const testPort = 18765

func TestAwaitCodeCapturesRedirect(t *testing.T) {
	l := NewListener(testPort)

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		code, err := l.AwaitCode(context.Background())
		done <- result{code, err}
	}()

	var resp *http.Response
	var err error
	for range 50 {
		resp, err = http.Get(fmt.Sprintf("http://localhost:%d/?code=abc123", testPort))
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("callback server never came up: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "window.close") {
		t.Error("response is not the self-closing page")
	}

	res := <-done
	if res.err != nil || res.code != "abc123" {
		t.Fatalf("AwaitCode = %q, %v", res.code, res.err)
	}
}

func TestAwaitCodeSingleFlow(t *testing.T) {
	l := NewListener(testPort + 1)

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		close(started)
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-release
			cancel()
		}()
		l.AwaitCode(ctx)
	}()
	<-started
	time.Sleep(50 * time.Millisecond)

	_, err := l.AwaitCode(context.Background())
	if !errors.Is(err, ErrFlowInProgress) {
		t.Errorf("second flow err = %v, want ErrFlowInProgress", err)
	}
	close(release)
}

func TestAwaitCodeCancellation(t *testing.T) {
	l := NewListener(testPort + 2)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	_, err := l.AwaitCode(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	tok := Token{AccessToken: "at", RefreshToken: "rt", TokenType: "Bearer"}
	if err := SaveToken(path, tok); err != nil {
		t.Fatal(err)
	}
	loaded, err := LoadToken(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded != tok {
		t.Errorf("loaded = %+v, want %+v", loaded, tok)
	}
}
