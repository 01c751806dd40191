package project

// Dirty-set keys tracked by the model.
const (
	DirtySynopsis   = "synopsis"
	DirtyCharacters = "characters"
	DirtyChapters   = "chapters"
)

// Model is the in-memory copy of one open project. Getters hand out live
// references; setters replace wholesale and mark the key dirty. The model
// never watches the filesystem — reloads are the caller's decision.
type Model struct {
	synopsis   Synopsis
	characters []Character
	chapters   []Chapter
	dirty      map[string]bool
}

// NewModel builds an empty model.
func NewModel() *Model {
	return &Model{
		synopsis: Synopsis{},
		dirty:    make(map[string]bool),
	}
}

// LoadModel fills a model from the store in one pass.
func LoadModel(store *Store) *Model {
	m := NewModel()
	m.synopsis = store.LoadSynopsis()
	m.characters = store.LoadCharacters()
	m.chapters = store.LoadChapters()
	return m
}

func (m *Model) Synopsis() Synopsis      { return m.synopsis }
func (m *Model) Characters() []Character { return m.characters }
func (m *Model) Chapters() []Chapter     { return m.chapters }

func (m *Model) SetSynopsis(s Synopsis) {
	m.synopsis = s
	m.dirty[DirtySynopsis] = true
}

func (m *Model) SetCharacters(cs []Character) {
	m.characters = cs
	m.dirty[DirtyCharacters] = true
}

func (m *Model) SetChapters(cs []Chapter) {
	m.chapters = cs
	m.dirty[DirtyChapters] = true
}

// AddChapter appends a chapter with the next monotonic number and returns it.
// Numbers are never reused after deletion, so gaps are expected.
func (m *Model) AddChapter(ch Chapter) Chapter {
	next := 1
	for _, existing := range m.chapters {
		if n := existing.Number(); n >= next {
			next = n + 1
		}
	}
	ch["chapter_number"] = next
	m.chapters = append(m.chapters, ch)
	m.dirty[DirtyChapters] = true
	return ch
}

// GetChapterByNumber returns the chapter with that number, or nil. Duplicate
// numbers are a loader bug the model does not repair.
func (m *Model) GetChapterByNumber(n int) Chapter {
	for _, ch := range m.chapters {
		if ch.Number() == n {
			return ch
		}
	}
	return nil
}

// GetCharacterByName returns the character with that name, or nil.
func (m *Model) GetCharacterByName(name string) Character {
	for _, ch := range m.characters {
		if ch.Name() == name {
			return ch
		}
	}
	return nil
}

// MarkDirty flags a key explicitly, for callers that mutate a live reference.
func (m *Model) MarkDirty(key string) {
	m.dirty[key] = true
}

// HasUnsavedChanges reports whether any key is dirty.
func (m *Model) HasUnsavedChanges() bool {
	for _, d := range m.dirty {
		if d {
			return true
		}
	}
	return false
}

// ClearUnsaved resets the dirty-set, typically after a full save.
func (m *Model) ClearUnsaved() {
	m.dirty = make(map[string]bool)
}
