package comfy

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// StepProgress is one sampling progress report pushed by the server.
type StepProgress struct {
	Value int `json:"value"`
	Max   int `json:"max"`
}

// TrackProgress connects to the server's websocket feed and forwards
// per-step sampling progress until ctx is cancelled or the connection drops.
// The polling wait in WaitForCompletion is the authoritative completion
// signal; this feed only refines the progress display between polls.
func (c *Client) TrackProgress(ctx context.Context, onStep func(StepProgress)) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	wsURL := scheme + "://" + u.Host + "/ws?clientId=" + url.QueryEscape(c.clientID)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if strings.Contains(err.Error(), "use of closed") {
				return nil
			}
			return err
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case "progress":
			var step StepProgress
			if err := json.Unmarshal(msg.Data, &step); err == nil && onStep != nil {
				onStep(step)
			}
		case "execution_error":
			log.Warn("server reported execution error", "data", string(msg.Data))
		}
	}
}
