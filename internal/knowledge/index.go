// Package knowledge provides retrieval over the pre-indexed school
// corpus backed by an embedded vector store.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/philippgille/chromem-go"
)

const collectionName = "school-corpus"

// Passage is one retrieved corpus fragment. Title identifies the
// passage for citation purposes.
type Passage struct {
	Title   string  `json:"title"`
	Subject string  `json:"subject"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

// Index wraps a persistent chromem-go collection holding the corpus.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	mu         sync.RWMutex
}

// Open loads (or creates) the persistent vector store at dir. The
// embedding function is used both for ingestion and queries.
func Open(dir string, embed chromem.EmbeddingFunc) (*Index, error) {
	db, err := chromem.NewPersistentDB(dir, true)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	collection, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("open corpus collection: %w", err)
	}
	return &Index{db: db, collection: collection}, nil
}

// Add ingests a single corpus entry.
func (i *Index) Add(ctx context.Context, id, title, subject, content string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	doc := chromem.Document{
		ID:      id,
		Content: content,
		Metadata: map[string]string{
			"title":   title,
			"subject": subject,
		},
	}
	if err := i.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add corpus entry: %w", err)
	}
	return nil
}

// Count returns the number of indexed passages.
func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.collection.Count()
}

// Retrieve returns up to limit passages ranked by similarity to query.
// When the query names a recognizable subject, passages of that subject
// are preferred in the result order. An empty corpus yields no passages
// and no error.
func (i *Index) Retrieve(ctx context.Context, query string, limit int) ([]Passage, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	count := i.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}
	results, err := i.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query corpus: %w", err)
	}

	passages := make([]Passage, 0, len(results))
	for _, r := range results {
		passages = append(passages, Passage{
			Title:   r.Metadata["title"],
			Subject: r.Metadata["subject"],
			Content: r.Content,
			Score:   r.Similarity,
		})
	}

	if subject := InferSubject(query); subject != "" {
		passages = preferSubject(passages, subject)
	}
	return passages, nil
}

// preferSubject stable-partitions passages so that those matching the
// inferred subject come first.
func preferSubject(passages []Passage, subject string) []Passage {
	ordered := make([]Passage, 0, len(passages))
	for _, p := range passages {
		if p.Subject == subject {
			ordered = append(ordered, p)
		}
	}
	for _, p := range passages {
		if p.Subject != subject {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// seedEntry is the on-disk format of a corpus seed file.
type seedEntry struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// SeedFromFile ingests corpus entries from a JSON file, but only when
// the collection is empty. It lets the service start cold without a
// separate indexing run.
func (i *Index) SeedFromFile(ctx context.Context, path string) (int, error) {
	if i.Count() > 0 {
		return 0, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var entries []seedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}
	for n, entry := range entries {
		id := entry.ID
		if id == "" {
			id = fmt.Sprintf("seed-%d", n)
		}
		if err := i.Add(ctx, id, entry.Title, entry.Subject, entry.Content); err != nil {
			return n, err
		}
	}
	return len(entries), nil
}
