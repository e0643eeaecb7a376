package vectorstore

import (
	"log"
	"sync"

	"github.com/cloo-solutions/ragdocs/internal/domain"
)

// modelGuard warns once when results were embedded with a different model
// than the one used for queries.
type modelGuard struct {
	model string
	once  sync.Once
}

func (g *modelGuard) check(results []domain.QueryResult) {
	if len(results) == 0 || g.model == "" {
		return
	}
	indexed := results[0].Metadata[domain.MetadataEmbeddingModel]
	if indexed == "" || indexed == g.model {
		return
	}
	g.once.Do(func() {
		log.Printf("vectorstore: index was built with %s but queries use %s; scores may be meaningless", indexed, g.model)
	})
}
