package comfy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// DefaultBaseURL is the image server's usual local address.
const DefaultBaseURL = "http://127.0.0.1:8188"

const (
	DefaultWaitTimeout  = 300 * time.Second
	DefaultPollInterval = time.Second
)

// ErrWaitTimeout means the prompt never reached history before the deadline.
var ErrWaitTimeout = errors.New("generation timed out")

// ProgressFunc receives the prompt's queue position and the combined queue
// length on each poll.
type ProgressFunc func(position, total int)

// Client drives one image-generation server. Each client carries its own
// random identifier so the server can attribute queue entries and websocket
// traffic to it.
type Client struct {
	baseURL  string
	clientID string
	http     *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  baseURL,
		clientID: uuid.NewString(),
		http:     &http.Client{},
	}
}

func (c *Client) BaseURL() string  { return c.baseURL }
func (c *Client) ClientID() string { return c.clientID }

// IsConnected reports whether the server answers its stats endpoint.
func (c *Client) IsConnected(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/system_stats", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// QueuePrompt submits a workflow and returns the server-assigned prompt id.
func (c *Client) QueuePrompt(ctx context.Context, wf Workflow) (string, error) {
	body, err := json.Marshal(map[string]any{
		"prompt":    wf,
		"client_id": c.clientID,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("queue prompt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		log.Error("prompt rejected", "status", resp.StatusCode, "body", string(raw))
		return "", fmt.Errorf("queue prompt: server returned %d", resp.StatusCode)
	}

	var parsed struct {
		PromptID string `json:"prompt_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("queue prompt: %w", err)
	}
	if parsed.PromptID == "" {
		return "", errors.New("queue prompt: no prompt id in response")
	}
	return parsed.PromptID, nil
}

// Execution is one finished prompt's history entry.
type Execution struct {
	Outputs map[string]NodeOutput `json:"outputs"`
}

type NodeOutput struct {
	Images []ImageRef `json:"images"`
}

type ImageRef struct {
	Filename  string `json:"filename"`
	Subfolder string `json:"subfolder"`
	Type      string `json:"type"`
}

// WaitForCompletion polls history until the prompt shows outputs or the
// timeout expires. On each poll the prompt's position within the combined
// running and pending queues is reported to progress, when set.
func (c *Client) WaitForCompletion(ctx context.Context, promptID string, timeout, pollInterval time.Duration, progress ProgressFunc) (*Execution, error) {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	deadline := time.Now().Add(timeout)

	for {
		if exec, err := c.history(ctx, promptID); err == nil && exec != nil && len(exec.Outputs) > 0 {
			return exec, nil
		}

		// A prompt in neither queue is already executing; there is no
		// position to report for that poll.
		if progress != nil {
			if position, total, err := c.queuePosition(ctx, promptID); err == nil && position >= 0 {
				progress(position, total)
			}
		}

		if time.Now().After(deadline) {
			return nil, ErrWaitTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (c *Client) history(ctx context.Context, promptID string) (*Execution, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/history/"+promptID, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history: server returned %d", resp.StatusCode)
	}

	var parsed map[string]Execution
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if exec, ok := parsed[promptID]; ok {
		return &exec, nil
	}
	return nil, nil
}

// queuePosition returns the prompt's index within running+pending and the
// combined length. Queue entries are arrays whose second element is the
// prompt id.
func (c *Client) queuePosition(ctx context.Context, promptID string) (int, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/queue", nil)
	if err != nil {
		return 0, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("queue: server returned %d", resp.StatusCode)
	}

	var parsed struct {
		Running [][]any `json:"queue_running"`
		Pending [][]any `json:"queue_pending"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, 0, err
	}

	combined := append(parsed.Running, parsed.Pending...)
	position := -1
	for i, entry := range combined {
		if len(entry) > 1 {
			if id, ok := entry[1].(string); ok && id == promptID {
				position = i
				break
			}
		}
	}
	return position, len(combined), nil
}

// GetImage downloads one output image.
func (c *Client) GetImage(ctx context.Context, filename, subfolder, folderType string) ([]byte, error) {
	q := url.Values{}
	q.Set("filename", filename)
	q.Set("subfolder", subfolder)
	q.Set("type", folderType)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/view?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get image: server returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// SaveOutputImages downloads every image in the execution's outputs into dir,
// prefixing filenames when prefix is non-empty. Returns the written paths.
func (c *Client) SaveOutputImages(ctx context.Context, exec *Execution, dir, prefix string) ([]string, error) {
	if exec == nil {
		return nil, errors.New("no execution result")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var paths []string
	for nodeID, output := range exec.Outputs {
		for _, img := range output.Images {
			data, err := c.GetImage(ctx, img.Filename, img.Subfolder, img.Type)
			if err != nil {
				log.Warn("failed downloading output image", "node", nodeID, "filename", img.Filename, "error", err)
				return paths, err
			}
			name := img.Filename
			if prefix != "" {
				name = prefix + "_" + name
			}
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		}
	}
	return paths, nil
}
