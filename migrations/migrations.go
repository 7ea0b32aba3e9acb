// Package migrations embeds the SQL schema so the binary can migrate without a checkout.
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	pgxstd "github.com/jackc/pgx/v5/stdlib"
)

//go:embed *.sql
var FS embed.FS

// New returns a migrator for the embedded schema against dsn. Callers must Close it.
func New(dsn string) (*migrate.Migrate, error) {
	config, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	db := pgxstd.OpenDB(*config)

	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("pgx migration driver error: %w", err)
	}

	source, err := iofs.New(FS, ".")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("embedded migration source error: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "pgx5", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate.New error: %w", err)
	}

	return m, nil
}

// Up applies every pending migration. An already current schema is not an error.
func Up(dsn string) error {
	m, err := New(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}
