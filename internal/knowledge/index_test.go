// internal/knowledge/index_test.go
package knowledge

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"os"
	"path/filepath"
	"testing"

	"github.com/philippgille/chromem-go"
)

// fakeEmbedding produces a deterministic unit vector from the text so
// tests run without a live embedding endpoint.
func fakeEmbedding(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()
	vec := make([]float32, 8)
	var norm float32
	for i := range vec {
		seed = seed*6364136223846793005 + 1442695040888963407
		vec[i] = float32(int64(seed>>33)) / float32(1<<30)
		norm += vec[i] * vec[i]
	}
	// Normalize so cosine similarity is well defined.
	inv := 1.0 / float32(1e-9+sqrt32(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

func sqrt32(f float32) float32 {
	if f <= 0 {
		return 0
	}
	x := f
	for i := 0; i < 20; i++ {
		x = 0.5 * (x + f/x)
	}
	return x
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "corpus"), chromem.EmbeddingFunc(fakeEmbedding))
	if err != nil {
		t.Fatal(err)
	}
	return idx
}

func TestRetrieveEmptyCorpus(t *testing.T) {
	idx := newTestIndex(t)
	passages, err := idx.Retrieve(context.Background(), "anything", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(passages) != 0 {
		t.Errorf("expected no passages, got %d", len(passages))
	}
}

func TestAddAndRetrieve(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	entries := []struct{ id, title, subject, content string }{
		{"1", "Lesson 3 Chords", "mathematics", "A chord is a segment whose endpoints lie on a circle."},
		{"2", "Atmosphere Layers", "science", "The atmosphere has five major layers."},
	}
	for _, e := range entries {
		if err := idx.Add(ctx, e.id, e.title, e.subject, e.content); err != nil {
			t.Fatal(err)
		}
	}
	if idx.Count() != 2 {
		t.Fatalf("count = %d", idx.Count())
	}

	// Limit larger than corpus must not error.
	passages, err := idx.Retrieve(ctx, "tangent and chord angles", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(passages))
	}
	// Query names a mathematics topic, so that subject is preferred.
	if passages[0].Subject != "mathematics" {
		t.Errorf("expected mathematics passage first, got %q", passages[0].Subject)
	}
	if passages[0].Title == "" {
		t.Error("passage title must be preserved for citations")
	}
}

func TestSeedFromFile(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "seed.json")
	seed := []map[string]string{
		{"title": "School Details", "subject": "general", "content": "Campus hours are 7am to 5pm."},
	}
	data, _ := json.Marshal(seed)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := idx.SeedFromFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || idx.Count() != 1 {
		t.Errorf("seeded %d, count %d", n, idx.Count())
	}

	// Seeding is skipped once the collection has content.
	n, err = idx.SeedFromFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("expected seed skip, ingested %d", n)
	}
}

func TestInferSubject(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"what is the tangent of a circle", "mathematics"},
		{"explain the atmosphere layers", "science"},
		{"when do admissions open", "general"},
		{"tell me a joke", ""},
	}
	for _, tt := range tests {
		if got := InferSubject(tt.query); got != tt.want {
			t.Errorf("InferSubject(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}
}
