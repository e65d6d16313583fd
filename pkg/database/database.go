package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/viper"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"geolocation-client/pkg/models"
)

type DB struct {
	*bun.DB
}

func NewDB() (*DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		viper.GetString("database.user"),
		viper.GetString("database.password"),
		viper.GetString("database.host"),
		viper.GetInt("database.port"),
		viper.GetString("database.dbname"),
		viper.GetString("database.sslmode"),
	)

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))

	db := bun.NewDB(sqldb, pgdialect.New())

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db}, nil
}

// InitSchema creates the locations table if it doesn't exist
func (db *DB) InitSchema(ctx context.Context) error {
	_, err := db.NewCreateTable().
		Model((*models.Location)(nil)).
		IfNotExists().
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return nil
}

// InsertLocation saves one completed lookup.
func (db *DB) InsertLocation(ctx context.Context, loc *models.Location) error {
	_, err := db.NewInsert().
		Model(loc).
		Exec(ctx)

	if err != nil {
		return fmt.Errorf("error inserting location: %w", err)
	}

	return nil
}

// RecentLocations returns the newest persisted lookups, most recent first.
func (db *DB) RecentLocations(ctx context.Context, limit int) ([]models.Location, error) {
	var locations []models.Location
	err := db.NewSelect().
		Model(&locations).
		Order("created_at DESC").
		Limit(limit).
		Scan(ctx)

	if err != nil {
		return nil, fmt.Errorf("error getting recent locations: %w", err)
	}

	return locations, nil
}

// LastLocationForIP returns the most recent record for an IP, or
// sql.ErrNoRows when the IP was never seen.
func (db *DB) LastLocationForIP(ctx context.Context, ip string) (*models.Location, error) {
	var loc models.Location
	err := db.NewSelect().
		Model(&loc).
		Where("ip = ?", ip).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("error querying location: %w", err)
	}

	return &loc, nil
}
