package persist

import (
	"context"
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// VersionTable keeps goose's bookkeeping apart from other tools sharing the
// database.
const VersionTable = "citydefense_schema_version"

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the runs schema up to date and returns the applied version.
func (db *DB) Migrate(ctx context.Context) (int64, error) {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations)
	goose.SetTableName(VersionTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return 0, fmt.Errorf("set dialect: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return 0, fmt.Errorf("run migrations: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	db.log.Info("schema migrated", zap.Int64("version", version), zap.String("table", VersionTable))
	return version, nil
}
