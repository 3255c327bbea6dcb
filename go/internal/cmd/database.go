package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mcdev12/typerace/go/internal/dbconfig"
	"github.com/mcdev12/typerace/go/internal/migrations"
)

func setupDatabase(ctx context.Context, dbConfig dbconfig.Config) (*sql.DB, error) {
	database, err := dbconfig.Open(ctx, dbConfig)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(ctx, database, dbConfig.Driver); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return database, nil
}
