package tts

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeEngine struct {
	name      string
	available bool
	calls     []string
	fail      bool
}

func (f *fakeEngine) Name() string               { return f.name }
func (f *fakeEngine) Ext() string                { return ".mp3" }
func (f *fakeEngine) Capabilities() Capabilities { return Capabilities{} }
func (f *fakeEngine) Available() bool            { return f.available }
func (f *fakeEngine) Voices() map[string]string  { return map[string]string{"v": "v"} }

func (f *fakeEngine) Generate(_ context.Context, text, outputPath string, _ Options) error {
	f.calls = append(f.calls, text)
	if f.fail {
		return ErrNoEngine
	}
	return os.WriteFile(outputPath, []byte(text), 0o644)
}

func TestRegistryFirstAvailableIsDefault(t *testing.T) {
	a := &fakeEngine{name: "a", available: false}
	b := &fakeEngine{name: "b", available: true}
	c := &fakeEngine{name: "c", available: true}

	r := NewRegistry(a, b, c)
	def, err := r.Default()
	if err != nil {
		t.Fatal(err)
	}
	if def.Name() != "b" {
		t.Errorf("default = %s, want b", def.Name())
	}
	if got := len(r.Available()); got != 2 {
		t.Errorf("available = %d, want 2", got)
	}
}

func TestRegistryNoneAvailable(t *testing.T) {
	r := NewRegistry(&fakeEngine{name: "a"})
	if _, err := r.Default(); err != ErrNoEngine {
		t.Fatalf("err = %v, want ErrNoEngine", err)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry(&fakeEngine{name: "a", available: true})
	if _, err := r.Get("nope"); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestGenerateBatchSkipsEmptyText(t *testing.T) {
	engine := &fakeEngine{name: "fake", available: true}
	items := []BatchItem{
		{Text: "A", Filename: "a"},
		{Text: "", Filename: "b"},
	}

	var reports [][2]int
	dir := t.TempDir()
	written, failed := GenerateBatch(context.Background(), engine, items, dir, Options{}, func(done, total int) {
		reports = append(reports, [2]int{done, total})
	})
	if failed != 0 {
		t.Fatalf("failed = %d", failed)
	}
	if len(written) != 1 || written[0] != filepath.Join(dir, "a.mp3") {
		t.Fatalf("written = %v", written)
	}
	if _, err := os.Stat(filepath.Join(dir, "b.mp3")); !os.IsNotExist(err) {
		t.Error("empty item should not write a file")
	}
	want := [][2]int{{1, 2}, {2, 2}}
	if len(reports) != 2 || reports[0] != want[0] || reports[1] != want[1] {
		t.Errorf("progress = %v, want %v", reports, want)
	}
}

func TestGenerateBatchCountsFailures(t *testing.T) {
	engine := &fakeEngine{name: "fake", available: true, fail: true}
	items := []BatchItem{{Text: "A", Filename: "a"}, {Text: "B", Filename: "b"}}

	written, failed := GenerateBatch(context.Background(), engine, items, t.TempDir(), Options{}, nil)
	if len(written) != 0 || failed != 2 {
		t.Errorf("written = %v, failed = %d", written, failed)
	}
}

func TestSignedPercent(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{10, "+10%"},
		{-5, "-5%"},
		{0, "+0%"},
	}
	for _, c := range cases {
		if got := signedPercent(c.in); got != c.want {
			t.Errorf("signedPercent(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestGoogleEngineSlowFlag(t *testing.T) {
	var speeds []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		speeds = append(speeds, r.URL.Query().Get("ttsspeed"))
		w.Write([]byte("mp3data"))
	}))
	defer srv.Close()

	engine := NewGoogleEngine()
	engine.endpoint = srv.URL

	out := filepath.Join(t.TempDir(), "out.mp3")
	if err := engine.Generate(context.Background(), "안녕하세요", out, Options{Rate: -30}); err != nil {
		t.Fatal(err)
	}
	if err := engine.Generate(context.Background(), "안녕하세요", out, Options{Rate: -20}); err != nil {
		t.Fatal(err)
	}
	if speeds[0] != "0.24" {
		t.Errorf("rate -30 should synthesize slow, got ttsspeed %q", speeds[0])
	}
	if speeds[1] != "1" {
		t.Errorf("rate -20 should synthesize normal, got ttsspeed %q", speeds[1])
	}
}

func TestGoogleEngineChunksLongText(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	engine := NewGoogleEngine()
	engine.endpoint = srv.URL

	long := make([]rune, chunkRunes*2+1)
	for i := range long {
		long[i] = '가'
	}
	out := filepath.Join(t.TempDir(), "out.mp3")
	if err := engine.Generate(context.Background(), string(long), out, Options{}); err != nil {
		t.Fatal(err)
	}
	if requests != 3 {
		t.Errorf("requests = %d, want 3", requests)
	}
}

func TestEdgeEngineClampsAndEscapes(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Write([]byte("mp3data"))
	}))
	defer srv.Close()

	engine := NewEdgeEngine()
	engine.endpoint = srv.URL

	out := filepath.Join(t.TempDir(), "out.mp3")
	err := engine.Generate(context.Background(), "a < b", out, Options{Rate: 150, Volume: -80, Pitch: 10})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`rate="+100%"`, `volume="-50%"`, `pitch="+10%"`, "a &lt; b"} {
		if !strings.Contains(body, want) {
			t.Errorf("ssml missing %q: %s", want, body)
		}
	}
}
