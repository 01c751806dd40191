package project

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gofrs/flock"

	"storyloom/pkg/utils"
)

// Fixed subdirectories of a project, created on demand.
const (
	CharactersDir = "02_characters"
	ChaptersDir   = "03_chapters"
	ScriptsDir    = "04_scripts"
	ScenesDir     = "scenes"
	ImagesDir     = "images"

	SynopsisFile = "synopsis.json"
	lockFile     = ".lock"
)

var imageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}

// Store owns all filesystem access under one project root. It is not safe
// for concurrent use; serialize writes through a single goroutine.
type Store struct {
	root string
	lock *flock.Flock
}

// Open binds a store to an existing project directory and takes the project
// lock so a second process cannot write the same tree.
func Open(root string) (*Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("project root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("project root is not a directory: %s", root)
	}

	fl := flock.New(filepath.Join(root, lockFile))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("project lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("project is already open elsewhere: %s", root)
	}

	return &Store{root: root, lock: fl}, nil
}

// Close releases the project lock.
func (s *Store) Close() {
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil {
			log.Warn("failed releasing project lock", "error", err)
		}
		s.lock = nil
	}
}

// Root returns the absolute project directory.
func (s *Store) Root() string { return s.root }

// Name returns the project directory name (NNN_<slug>).
func (s *Store) Name() string { return filepath.Base(s.root) }

func (s *Store) path(parts ...string) string {
	return filepath.Join(append([]string{s.root}, parts...)...)
}

func (s *Store) ensureDir(parts ...string) bool {
	dir := s.path(parts...)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn("failed creating directory", "dir", dir, "error", err)
		return false
	}
	return true
}

// CreateProjectFolder creates the next NNN_<slug> directory under category
// plus the fixed subdirectories, and returns its absolute path. Numbering is
// 1 + max(existing leading integers), so gaps from deletions never collide.
func CreateProjectFolder(category, title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("project title is empty")
	}
	if err := os.MkdirAll(category, 0o755); err != nil {
		return "", fmt.Errorf("category dir: %w", err)
	}

	next := 1
	entries, err := os.ReadDir(category)
	if err != nil {
		return "", fmt.Errorf("scan category: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if n := LeadingNumber(e.Name()); n >= next {
			next = n + 1
		}
	}

	root := filepath.Join(category, ProjectFolderName(next, title))
	for _, sub := range []string{"", CharactersDir, ChaptersDir, ScriptsDir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return "", fmt.Errorf("create project tree: %w", err)
		}
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return root, nil
	}
	log.Info("created project", "path", abs)
	return abs, nil
}

// LoadSynopsis returns the synopsis document, or an empty one when the file
// is missing or unreadable.
func (s *Store) LoadSynopsis() Synopsis {
	path := s.path(SynopsisFile)
	syn, err := utils.Load[Synopsis](path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("failed loading synopsis", "path", path, "error", err)
		}
		return Synopsis{}
	}
	if syn == nil {
		return Synopsis{}
	}
	return syn
}

// SaveSynopsis writes the synopsis document whole.
func (s *Store) SaveSynopsis(syn Synopsis) bool {
	if err := utils.Save(s.path(SynopsisFile), syn); err != nil {
		log.Warn("failed saving synopsis", "error", err)
		return false
	}
	return true
}

// LoadCharacters reads every *.json directly under 02_characters, attaching
// the source filename on the reserved transient key. Files that fail to
// parse are skipped with a warning.
func (s *Store) LoadCharacters() []Character {
	dir := s.path(CharactersDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("failed reading characters dir", "dir", dir, "error", err)
		}
		return nil
	}

	var out []Character
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ch, err := utils.Load[Character](filepath.Join(dir, e.Name()))
		if err != nil {
			log.Warn("skipping unreadable character file", "file", e.Name(), "error", err)
			continue
		}
		ch.Normalize()
		ch[FilenameKey] = e.Name()
		out = append(out, ch)
	}
	return out
}

// SaveCharacters writes each character to its own file. The transient
// filename key wins when present; otherwise the name derives the filename.
func (s *Store) SaveCharacters(chars []Character) bool {
	if !s.ensureDir(CharactersDir) {
		return false
	}
	ok := true
	for _, ch := range chars {
		if !s.SaveCharacter(ch) {
			ok = false
		}
	}
	return ok
}

// SaveCharacter writes one character profile file.
func (s *Store) SaveCharacter(ch Character) bool {
	if !s.ensureDir(CharactersDir) {
		return false
	}
	filename, _ := ch[FilenameKey].(string)
	if filename == "" {
		if ch.Name() == "" {
			log.Warn("refusing to save character without a name")
			return false
		}
		filename = CharacterFilename(ch.Name())
	}

	ch.Normalize()
	onDisk := make(Character, len(ch))
	for k, v := range ch {
		if k == FilenameKey {
			continue
		}
		onDisk[k] = v
	}

	if err := utils.Save(s.path(CharactersDir, filename), onDisk); err != nil {
		log.Warn("failed saving character", "file", filename, "error", err)
		return false
	}
	return true
}

// CharacterImageDir returns the images directory for one character.
func (s *Store) CharacterImageDir(name string) string {
	return s.path(CharactersDir, ImagesDir, name)
}

// ListCharacterImages enumerates existing prompt_<N> images for a character,
// keyed by prompt number. Regeneration uses this to skip present variants.
func (s *Store) ListCharacterImages(name string) map[int]string {
	dir := s.CharacterImageDir(name)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	out := make(map[int]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !slices.Contains(imageExts, ext) {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ext)
		var n int
		if _, err := fmt.Sscanf(base, "prompt_%d", &n); err == nil && n > 0 {
			out[n] = filepath.Join(dir, e.Name())
		}
	}
	return out
}

// LoadChapters reads every chapter file in 03_chapters, sorted by chapter
// number. Unreadable files are skipped with a warning.
func (s *Store) LoadChapters() []Chapter {
	dir := s.path(ChaptersDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("failed reading chapters dir", "dir", dir, "error", err)
		}
		return nil
	}

	var out []Chapter
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		ch, err := utils.Load[Chapter](filepath.Join(dir, e.Name()))
		if err != nil {
			log.Warn("skipping unreadable chapter file", "file", e.Name(), "error", err)
			continue
		}
		ch[FilenameKey] = e.Name()
		out = append(out, ch)
	}
	slices.SortFunc(out, func(a, b Chapter) int { return a.Number() - b.Number() })
	return out
}

// SaveChapters writes each chapter to its own file.
func (s *Store) SaveChapters(chapters []Chapter) bool {
	ok := true
	for _, ch := range chapters {
		if !s.SaveChapter(ch) {
			ok = false
		}
	}
	return ok
}

// SaveChapter writes one chapter file, named chapter_NN.json unless the
// transient filename key says otherwise.
func (s *Store) SaveChapter(ch Chapter) bool {
	if !s.ensureDir(ChaptersDir) {
		return false
	}
	filename, _ := ch[FilenameKey].(string)
	if filename == "" {
		if ch.Number() <= 0 {
			log.Warn("refusing to save chapter without a positive number")
			return false
		}
		filename = ChapterFilename(ch.Number())
	}

	onDisk := make(Chapter, len(ch))
	for k, v := range ch {
		if k == FilenameKey {
			continue
		}
		onDisk[k] = v
	}

	if err := utils.Save(s.path(ChaptersDir, filename), onDisk); err != nil {
		log.Warn("failed saving chapter", "file", filename, "error", err)
		return false
	}
	return true
}

// LoadScript returns the script record for a chapter, or nil when absent.
func (s *Store) LoadScript(chapterNumber int) *Script {
	path := s.path(ScriptsDir, ScriptFilename(chapterNumber))
	rec, err := utils.Load[Script](path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("failed loading script", "chapter", chapterNumber, "error", err)
		}
		return nil
	}
	return &rec
}

// SaveScript overwrites the chapter's script file. script_length is derived
// from the text and the generation timestamp is refreshed. When the caller
// passes no scenes, ones already in the file are carried over untouched.
func (s *Store) SaveScript(chapterNumber int, text string, scenes []Scene) bool {
	if !s.ensureDir(ScriptsDir) {
		return false
	}
	rec := Script{
		ChapterNumber:     chapterNumber,
		Script:            text,
		ScriptLength:      len([]rune(text)),
		ScriptGeneratedAt: time.Now().Format(time.RFC3339),
	}
	if scenes != nil {
		rec.Scenes = scenes
		rec.ScenesGeneratedAt = rec.ScriptGeneratedAt
	} else if old := s.LoadScript(chapterNumber); old != nil {
		rec.Scenes = old.Scenes
		rec.ScenesGeneratedAt = old.ScenesGeneratedAt
	}

	if err := utils.Save(s.path(ScriptsDir, ScriptFilename(chapterNumber)), rec); err != nil {
		log.Warn("failed saving script", "chapter", chapterNumber, "error", err)
		return false
	}
	log.Info("saved script", "chapter", chapterNumber, "chars", rec.ScriptLength)
	return true
}

// SaveScenesToScript updates only the scenes of an existing script record,
// creating an empty record when none exists. The script text and its
// timestamp are left untouched.
func (s *Store) SaveScenesToScript(chapterNumber int, scenes []Scene) bool {
	if !s.ensureDir(ScriptsDir) {
		return false
	}
	rec := s.LoadScript(chapterNumber)
	if rec == nil {
		rec = &Script{ChapterNumber: chapterNumber}
	}
	rec.Scenes = scenes
	rec.ScenesGeneratedAt = time.Now().Format(time.RFC3339)

	if err := utils.Save(s.path(ScriptsDir, ScriptFilename(chapterNumber)), *rec); err != nil {
		log.Warn("failed saving scenes", "chapter", chapterNumber, "error", err)
		return false
	}
	log.Info("saved scenes", "chapter", chapterNumber, "count", len(scenes))
	return true
}

// SaveSceneSet writes one episode's scene set under scenes/<actFolder>/.
func (s *Store) SaveSceneSet(actFolder, episodeFile string, set SceneSet) bool {
	actFolder = NormalizeFilename(actFolder)
	if !s.ensureDir(ScenesDir, actFolder) {
		return false
	}
	if !strings.HasSuffix(episodeFile, ".json") {
		episodeFile += ".json"
	}
	if err := utils.Save(s.path(ScenesDir, actFolder, NormalizeFilename(episodeFile)), set); err != nil {
		log.Warn("failed saving scene set", "act", actFolder, "episode", episodeFile, "error", err)
		return false
	}
	return true
}

// LoadSceneSet reads one episode's scene set, or nil when absent.
func (s *Store) LoadSceneSet(actFolder, episodeFile string) *SceneSet {
	if !strings.HasSuffix(episodeFile, ".json") {
		episodeFile += ".json"
	}
	set, err := utils.Load[SceneSet](s.path(ScenesDir, actFolder, episodeFile))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("failed loading scene set", "act", actFolder, "episode", episodeFile, "error", err)
		}
		return nil
	}
	return &set
}

// ListSceneSets returns act folder -> episode files found under scenes/.
func (s *Store) ListSceneSets() map[string][]string {
	dir := s.path(ScenesDir)
	acts, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	out := make(map[string][]string)
	for _, act := range acts {
		if !act.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(dir, act.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if !f.IsDir() && strings.HasSuffix(f.Name(), ".json") {
				out[act.Name()] = append(out[act.Name()], f.Name())
			}
		}
		slices.Sort(out[act.Name()])
	}
	return out
}
