package jobs

import (
	"context"
	"log"
)

// Refresher is a store that can notice it was rebuilt underneath it
type Refresher interface {
	Refresh(ctx context.Context) (bool, error)
	Name() string
}

// StoreRefreshTask lets a long-running server pick up an index rebuilt by
// a separate ragindex run.
type StoreRefreshTask struct {
	store Refresher
}

func NewStoreRefreshTask(store Refresher) *StoreRefreshTask {
	return &StoreRefreshTask{store: store}
}

func (t *StoreRefreshTask) Name() string {
	return "store_refresh"
}

func (t *StoreRefreshTask) Run(ctx context.Context) error {
	changed, err := t.store.Refresh(ctx)
	if err != nil {
		return err
	}
	if changed {
		log.Printf("store_refresh: %s changed on disk, reloading on next query", t.store.Name())
	}
	return nil
}
