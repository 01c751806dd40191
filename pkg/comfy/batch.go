package comfy

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Per-item status markers shown in the batch list.
const (
	StatusDone    = "완료"
	StatusError   = "오류"
	StatusTimeout = "타임아웃"
	StatusFailed  = "실패"
)

// BatchItem is one workflow to run, with a display name for reporting.
type BatchItem struct {
	Name     string
	Workflow Workflow
}

// BatchResult records one item's outcome.
type BatchResult struct {
	Name   string
	Status string
	Paths  []string
	Err    error
}

// BatchRunner executes workflows strictly in order, one at a time. A stop
// request is honored between items; the in-flight wait finishes naturally.
type BatchRunner struct {
	client *Client

	Timeout      time.Duration
	PollInterval time.Duration

	stop atomic.Bool
}

func NewBatchRunner(client *Client) *BatchRunner {
	return &BatchRunner{
		client:       client,
		Timeout:      DefaultWaitTimeout,
		PollInterval: DefaultPollInterval,
	}
}

// Stop requests a cooperative stop. Safe from any goroutine.
func (r *BatchRunner) Stop() { r.stop.Store(true) }

// Run processes the items in list order, saving outputs under outDir. The
// progress callback fires after every item, success or not. Returns the
// per-item results and the success count.
func (r *BatchRunner) Run(ctx context.Context, items []BatchItem, outDir string, progress func(done, total int)) ([]BatchResult, int) {
	r.stop.Store(false)
	total := len(items)
	results := make([]BatchResult, 0, total)
	succeeded := 0

	if total == 0 {
		log.Info("image batch empty, nothing to do")
		if progress != nil {
			progress(0, 0)
		}
		return results, 0
	}

	for i, item := range items {
		if r.stop.Load() {
			log.Warn("image batch stopped", "done", i, "total", total)
			break
		}

		result := r.runOne(ctx, item, outDir)
		results = append(results, result)
		if result.Status == StatusDone {
			succeeded++
		} else {
			log.Warn("image batch item failed", "item", item.Name, "status", result.Status, "error", result.Err)
		}
		if progress != nil {
			progress(i+1, total)
		}
	}

	log.Info("image batch complete", "succeeded", succeeded, "failed", len(results)-succeeded, "total", total)
	return results, succeeded
}

func (r *BatchRunner) runOne(ctx context.Context, item BatchItem, outDir string) BatchResult {
	promptID, err := r.client.QueuePrompt(ctx, item.Workflow)
	if err != nil {
		return BatchResult{Name: item.Name, Status: StatusError, Err: err}
	}

	exec, err := r.client.WaitForCompletion(ctx, promptID, r.Timeout, r.PollInterval, nil)
	if err != nil {
		if errors.Is(err, ErrWaitTimeout) {
			return BatchResult{Name: item.Name, Status: StatusTimeout, Err: err}
		}
		return BatchResult{Name: item.Name, Status: StatusError, Err: err}
	}

	paths, err := r.client.SaveOutputImages(ctx, exec, outDir, item.Name)
	if err != nil {
		return BatchResult{Name: item.Name, Status: StatusFailed, Paths: paths, Err: err}
	}
	return BatchResult{Name: item.Name, Status: StatusDone, Paths: paths}
}
