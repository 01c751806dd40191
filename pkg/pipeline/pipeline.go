package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/segmentio/ksuid"

	"storyloom/pkg/diff"
	"storyloom/pkg/flight"
	"storyloom/pkg/generate"
	"storyloom/pkg/project"
)

// Per-item status markers surfaced in batch item lists.
const (
	StatusDone    = "완료"
	StatusError   = "오류"
	StatusTimeout = "타임아웃"
	StatusFailed  = "실패"
)

// ScriptDelay is the pause between chapters when generating every script in
// one run, keeping the provider's rate limiter happy.
const ScriptDelay = 3 * time.Second

// ItemResult records one batch item's outcome.
type ItemResult struct {
	JobID  string
	Label  string
	Status string
	Err    error
}

// Summary counts a finished batch.
type Summary struct {
	Succeeded int
	Failed    int
	Total     int
}

// Runner drives the generation batches over one open project. Items run
// strictly in order; a stop request is honored between items while the
// in-flight call finishes naturally. Not safe for concurrent batches.
type Runner struct {
	gen   *generate.Generator
	store *project.Store
	model *project.Model

	// Delay between items. Script batches default to ScriptDelay; the
	// others run back to back.
	Delay time.Duration

	stop atomic.Bool
}

func New(gen *generate.Generator, store *project.Store, model *project.Model) *Runner {
	return &Runner{gen: gen, store: store, model: model}
}

// Stop requests a cooperative stop. Safe from any goroutine.
func (r *Runner) Stop() { r.stop.Store(true) }

func classify(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	case errors.Is(err, generate.ErrUnparsable), errors.Is(err, generate.ErrNoScript):
		return StatusFailed
	default:
		return StatusError
	}
}

// GenerateScripts writes a fresh script for each listed chapter, in order.
// Each chapter's prompt carries the tail of the previous chapter's script,
// preferring the one generated earlier in this same run. Overwrites of an
// existing script log a word-level change count first.
func (r *Runner) GenerateScripts(ctx context.Context, chapterNumbers []int, progress func(done, total int)) ([]ItemResult, Summary) {
	r.stop.Store(false)
	delay := r.Delay
	if delay == 0 {
		delay = ScriptDelay
	}

	characters := generate.FormatCharacters(r.model.Characters())
	synopsis := r.model.Synopsis()
	total := len(chapterNumbers)
	results := make([]ItemResult, 0, total)

	fresh := make(map[int]string)

	for i, n := range chapterNumbers {
		if r.stop.Load() {
			log.Warn("script batch stopped", "done", i, "total", total)
			break
		}
		if i > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
		}

		jobID := ksuid.New().String()
		chapter := r.model.GetChapterByNumber(n)
		if chapter == nil {
			results = append(results, ItemResult{JobID: jobID, Label: project.ChapterFilename(n), Status: StatusError, Err: errors.New("no such chapter")})
			report(progress, i+1, total)
			continue
		}

		previous := fresh[n-1]
		if previous == "" {
			if rec := r.store.LoadScript(n - 1); rec != nil {
				previous = rec.Script
			}
		}

		text, err := r.gen.Script(ctx, chapter, synopsis, characters, previous)
		if err != nil {
			results = append(results, ItemResult{JobID: jobID, Label: chapter.Title(), Status: classify(err), Err: err})
			report(progress, i+1, total)
			continue
		}

		if old := r.store.LoadScript(n); old != nil && old.Script != "" {
			d := diff.Scripts(old.Script, text)
			ins, del := d.Stats()
			log.Info("overwriting script", "chapter", n, "words_added", ins, "words_removed", del)
		}

		if !r.store.SaveScript(n, text, nil) {
			results = append(results, ItemResult{JobID: jobID, Label: chapter.Title(), Status: StatusFailed, Err: errors.New("save failed")})
			report(progress, i+1, total)
			continue
		}
		fresh[n] = text
		chapter["script"] = text
		r.model.MarkDirty(project.DirtyChapters)

		results = append(results, ItemResult{JobID: jobID, Label: chapter.Title(), Status: StatusDone})
		report(progress, i+1, total)
	}

	return results, summarize(results, total)
}

// GenerateScenes storyboards each listed chapter's script. The script text is
// pulled from the script file when the chapter record has no cached copy, and
// only the scenes and their timestamp are written back.
func (r *Runner) GenerateScenes(ctx context.Context, chapterNumbers []int, progress func(done, total int)) ([]ItemResult, Summary) {
	r.stop.Store(false)

	characters := generate.FormatCharacters(r.model.Characters())
	synopsis := r.model.Synopsis()
	excerpts := r.promptExcerpts()
	total := len(chapterNumbers)
	results := make([]ItemResult, 0, total)

	for i, n := range chapterNumbers {
		if r.stop.Load() {
			log.Warn("scene batch stopped", "done", i, "total", total)
			break
		}
		if i > 0 && r.Delay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(r.Delay):
			}
		}

		jobID := ksuid.New().String()
		chapter := r.model.GetChapterByNumber(n)
		if chapter == nil {
			results = append(results, ItemResult{JobID: jobID, Label: project.ChapterFilename(n), Status: StatusError, Err: errors.New("no such chapter")})
			report(progress, i+1, total)
			continue
		}
		if chapter.Script() == "" {
			if rec := r.store.LoadScript(n); rec != nil {
				chapter["script"] = rec.Script
			}
		}

		drafts, err := r.gen.Scenes(ctx, chapter, synopsis, characters, excerpts)
		if err != nil {
			results = append(results, ItemResult{JobID: jobID, Label: chapter.Title(), Status: classify(err), Err: err})
			report(progress, i+1, total)
			continue
		}

		scenes := make([]project.Scene, 0, len(drafts))
		for _, d := range drafts {
			scenes = append(scenes, project.Scene{
				SceneID:      sceneID(d.SceneNumber),
				SceneTitle:   d.Title,
				ImagePrompts: &project.ScenePrompts{Positive: d.ImagePrompt},
			})
		}
		if !r.store.SaveScenesToScript(n, scenes) {
			results = append(results, ItemResult{JobID: jobID, Label: chapter.Title(), Status: StatusFailed, Err: errors.New("save failed")})
			report(progress, i+1, total)
			continue
		}

		results = append(results, ItemResult{JobID: jobID, Label: chapter.Title(), Status: StatusDone})
		report(progress, i+1, total)
	}

	return results, summarize(results, total)
}

// GenerateImagePrompts fills the seven-variant prompt set for each named
// character and saves the profile. A name listed twice in one batch costs one
// inference; a later batch always regenerates.
func (r *Runner) GenerateImagePrompts(ctx context.Context, names []string, progress func(done, total int)) ([]ItemResult, Summary) {
	r.stop.Store(false)

	// The cache lives for this batch only. Regeneration is an intentional
	// overwrite, so results must never survive into the next run.
	cache := flight.NewCache(func(name string) (map[string]project.PromptRecord, error) {
		character := r.model.GetCharacterByName(name)
		if character == nil {
			return nil, errors.New("no such character")
		}
		return r.gen.CharacterImagePrompts(ctx, character, r.model.Synopsis())
	})

	total := len(names)
	results := make([]ItemResult, 0, total)

	for i, name := range names {
		if r.stop.Load() {
			log.Warn("image prompt batch stopped", "done", i, "total", total)
			break
		}

		jobID := ksuid.New().String()
		prompts, err := cache.Get(name)
		if err != nil {
			results = append(results, ItemResult{JobID: jobID, Label: name, Status: classify(err), Err: err})
			report(progress, i+1, total)
			continue
		}

		character := r.model.GetCharacterByName(name)
		if character == nil {
			results = append(results, ItemResult{JobID: jobID, Label: name, Status: StatusError, Err: errors.New("no such character")})
			report(progress, i+1, total)
			continue
		}
		slots := make(map[string]any, len(prompts))
		for j, variant := range generate.PromptVariants {
			rec, ok := prompts[variant]
			if !ok {
				continue
			}
			slots[promptSlot(j+1)] = rec
		}
		character.SetImagePrompts(slots)
		r.model.MarkDirty(project.DirtyCharacters)

		if !r.store.SaveCharacter(character) {
			results = append(results, ItemResult{JobID: jobID, Label: name, Status: StatusFailed, Err: errors.New("save failed")})
			report(progress, i+1, total)
			continue
		}

		results = append(results, ItemResult{JobID: jobID, Label: name, Status: StatusDone})
		report(progress, i+1, total)
	}

	return results, summarize(results, total)
}

func (r *Runner) promptExcerpts() map[string]string {
	out := make(map[string]string)
	for _, ch := range r.model.Characters() {
		if rec, ok := project.PromptRecordFrom(ch.ImagePrompts()["prompt_1"]); ok {
			out[ch.Name()] = rec.Text()
		}
	}
	return out
}

func sceneID(n int) string {
	return fmt.Sprintf("scene_%02d", n)
}

func promptSlot(n int) string {
	return fmt.Sprintf("prompt_%d", n)
}

func report(progress func(done, total int), done, total int) {
	if progress != nil {
		progress(done, total)
	}
}

func summarize(results []ItemResult, total int) Summary {
	s := Summary{Total: total}
	for _, r := range results {
		if r.Status == StatusDone {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	log.Info("batch complete", "succeeded", s.Succeeded, "failed", s.Failed, "total", s.Total)
	return s
}
