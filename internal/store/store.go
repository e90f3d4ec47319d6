package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ilnaes/downstream/internal/config"
)

// Snapshot is a saved world body, as produced by the sender.
type Snapshot struct {
	Scene   string    `bson:"scene"`
	Frame   int32     `bson:"frame"`
	Sprites int       `bson:"sprites"`
	Body    []byte    `bson:"body"`
	SavedAt time.Time `bson:"saved_at"`
}

// Store keeps the latest snapshot per scene. Load returns nil, nil when
// the scene was never saved.
type Store interface {
	Save(ctx context.Context, snap *Snapshot) error
	Load(ctx context.Context, scene string) (*Snapshot, error)
	Close(ctx context.Context) error
}

// Open connects the backend named by cfg.Driver. An empty driver returns
// a nil Store.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case config.StoreMongo:
		return NewMongo(ctx, cfg.URI, cfg.Database, cfg.Collection)
	case config.StoreBolt:
		return NewBolt(cfg.Path, cfg.Collection)
	case config.StorePostgres:
		return NewPostgres(ctx, cfg.URI, cfg.Collection)
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
