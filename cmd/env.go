package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/rueda-la-rola/leadgen/internal/board"
	"github.com/rueda-la-rola/leadgen/internal/generator"
	"github.com/rueda-la-rola/leadgen/internal/store"
	"github.com/rueda-la-rola/leadgen/pkg/places"
	"github.com/rueda-la-rola/leadgen/pkg/textgen"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leadgen.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initPlaces() (places.Client, error) {
	if err := cfg.Validate(true, false); err != nil {
		return nil, err
	}
	opts := []places.Option{places.WithRateLimit(cfg.Places.RequestsPerSecond)}
	if cfg.Places.BaseURL != "" {
		opts = append(opts, places.WithBaseURL(cfg.Places.BaseURL))
	}
	return places.NewClient(cfg.Places.Key, opts...), nil
}

func initGenerator(st store.Store) (*generator.Generator, error) {
	if err := cfg.Validate(false, true); err != nil {
		return nil, err
	}
	client := textgen.NewClient(cfg.TextGen.Key)
	return generator.New(client, st, generator.Config{
		Model:        cfg.TextGen.Model,
		MaxTokens:    cfg.TextGen.MaxTokens,
		MaxAttempts:  cfg.Generate.MaxAttempts,
		RetryBackoff: time.Duration(cfg.Generate.RetryBackoffSecs) * time.Second,
	}), nil
}

// initBoard builds the board and hydrates it from the store.
func initBoard(ctx context.Context, st store.Store) (*board.Board, error) {
	b := board.New(st)
	if err := b.Refresh(ctx); err != nil {
		return nil, eris.Wrap(err, "load board state")
	}
	return b, nil
}
