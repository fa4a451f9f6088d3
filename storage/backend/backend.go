// Package backend opens the repositories selected by STORAGE.
package backend

import (
	"context"
	"fmt"
	"log"
	"time"

	"newgenmusic/config"
	"newgenmusic/database"
	"newgenmusic/storage"
	"newgenmusic/storage/inmemory"
	"newgenmusic/storage/mongodb"
	"newgenmusic/storage/postgres"
)

func Open(ctx context.Context, cfg *config.Config) (*storage.Repositories, error) {
	switch cfg.Storage {
	case config.StorageMongo:
		log.Println("🔌 Connecting to MongoDB...")
		db, err := database.ConnectMongoWithRetry(cfg.MongoURI, cfg.MongoDatabase, 3, 2*time.Second)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = database.DisconnectMongo(db)
			return nil, err
		}
		repos := mongodb.New(db)
		repos.Close = func(context.Context) error { return database.DisconnectMongo(db) }
		return repos, nil

	case config.StoragePostgres:
		log.Println("🔌 Connecting to PostgreSQL...")
		db, err := database.ConnectPostgres(cfg.DatabaseURL, cfg.DatabaseDebug)
		if err != nil {
			return nil, err
		}
		return postgres.New(db), nil

	case config.StorageMemory:
		log.Println("⚠️ Using in-memory storage; data is lost on restart")
		return inmemory.New().Repositories(), nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
}
