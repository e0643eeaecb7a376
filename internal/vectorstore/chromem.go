package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/cloo-solutions/ragdocs/internal/domain"
	"github.com/philippgille/chromem-go"
)

var errEmbeddingDisabled = errors.New("vectorstore: entries must be embedded before they are stored")

// noEmbedding is installed on every collection so chromem never calls out
// to an embedding provider on its own.
func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errEmbeddingDisabled
}

// DirectoryStoreConfig configures a DirectoryStore
type DirectoryStoreConfig struct {
	Path           string
	Collection     string
	Compress       bool
	EmbeddingModel string
}

// DirectoryStore keeps one chromem collection under a directory on disk.
type DirectoryStore struct {
	cfg DirectoryStoreConfig
	now func() time.Time

	mu       sync.Mutex
	db       *chromem.DB
	loadedAs os.FileInfo
	model    modelGuard
}

func NewDirectoryStore(cfg DirectoryStoreConfig) *DirectoryStore {
	if cfg.Path == "" {
		cfg.Path = "chroma"
	}
	if cfg.Collection == "" {
		cfg.Collection = "documents"
	}
	return &DirectoryStore{cfg: cfg, now: time.Now, model: modelGuard{model: cfg.EmbeddingModel}}
}

// Name returns the store directory.
func (s *DirectoryStore) Name() string {
	return s.cfg.Path
}

// Exists reports whether an index directory is present.
func (s *DirectoryStore) Exists() bool {
	fi, err := os.Stat(s.cfg.Path)
	return err == nil && fi.IsDir()
}

// Replace deletes the directory and writes a fresh collection holding
// exactly entries.
func (s *DirectoryStore) Replace(ctx context.Context, entries []domain.StoreEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.db = nil
	if err := os.RemoveAll(s.cfg.Path); err != nil {
		return fmt.Errorf("failed to remove store directory: %w", err)
	}

	db, err := chromem.NewPersistentDB(s.cfg.Path, s.cfg.Compress)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	col, err := db.CreateCollection(s.cfg.Collection, map[string]string{
		domain.MetadataEmbeddingModel: s.cfg.EmbeddingModel,
	}, noEmbedding)
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if len(entries) > 0 {
		docs := make([]chromem.Document, len(entries))
		for i, e := range entries {
			docs[i] = chromem.Document{
				ID:        e.ID,
				Metadata:  e.Metadata,
				Embedding: e.Embedding,
				Content:   e.Content,
			}
		}
		if err := col.AddDocuments(ctx, docs, 1); err != nil {
			return fmt.Errorf("failed to add documents: %w", err)
		}
	}

	s.db = db
	s.loadedAs = s.stat()
	return nil
}

// Search returns up to k entries by descending relevance. A store that has
// never been built yields no results.
func (s *DirectoryStore) Search(ctx context.Context, embedding []float32, k int) ([]domain.QueryResult, error) {
	col, err := s.collection()
	if errors.Is(err, domain.ErrStoreNotFound) {
		log.Printf("vectorstore: no index at %s, returning no results", s.cfg.Path)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	n := min(k, col.Count())
	if n <= 0 {
		return nil, nil
	}

	res, err := col.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	results := make([]domain.QueryResult, 0, len(res))
	for _, r := range res {
		results = append(results, domain.QueryResult{
			ID:       r.ID,
			Content:  r.Content,
			Metadata: r.Metadata,
			Score:    RelevanceScore(float64(r.Similarity)),
		})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	s.model.check(results)
	return results, nil
}

// Backup moves the current directory aside so the next Replace starts
// clean. It returns the new location, or "" if there was no store.
func (s *DirectoryStore) Backup(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.cfg.Path); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}

	target := fmt.Sprintf("%s.bak-%s", filepath.Clean(s.cfg.Path), s.now().UTC().Format("20060102T150405Z"))
	if err := os.Rename(s.cfg.Path, target); err != nil {
		return "", fmt.Errorf("failed to move store aside: %w", err)
	}

	s.db = nil
	s.loadedAs = nil
	return target, nil
}

// Snapshot writes the collection to w as a gzip-compressed gob stream.
func (s *DirectoryStore) Snapshot(ctx context.Context, w io.Writer) error {
	if _, err := s.collection(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return domain.ErrStoreNotFound
	}
	if err := s.db.ExportToWriter(w, true, "", s.cfg.Collection); err != nil {
		return fmt.Errorf("failed to export collection: %w", err)
	}
	return nil
}

// Refresh drops the in-memory copy when the directory on disk was replaced
// or removed since it was loaded, so the next Search reads the new index.
func (s *DirectoryStore) Refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return false, nil
	}

	current := s.stat()
	if current != nil && s.loadedAs != nil &&
		os.SameFile(current, s.loadedAs) && current.ModTime().Equal(s.loadedAs.ModTime()) {
		return false, nil
	}

	s.db = nil
	s.loadedAs = nil
	return true, nil
}

func (s *DirectoryStore) stat() os.FileInfo {
	fi, err := os.Stat(s.cfg.Path)
	if err != nil {
		return nil
	}
	return fi
}

func (s *DirectoryStore) collection() (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		if !s.Exists() {
			return nil, domain.ErrStoreNotFound
		}
		info := s.stat()
		db, err := chromem.NewPersistentDB(s.cfg.Path, s.cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("failed to open store: %w", err)
		}
		s.db = db
		s.loadedAs = info
	}

	col := s.db.GetCollection(s.cfg.Collection, noEmbedding)
	if col == nil {
		return nil, domain.ErrStoreNotFound
	}
	return col, nil
}
