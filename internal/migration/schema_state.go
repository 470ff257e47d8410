package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
)

var ErrSchemaOutdated = errors.New("database schema does not match this build; run the migrate command")

func recordSchemaState(ctx context.Context, db *sql.DB, state Embedded) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO schema_state (id, schema_version, checksum, applied_at)
		VALUES (TRUE, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET schema_version = EXCLUDED.schema_version,
		    checksum = EXCLUDED.checksum,
		    applied_at = EXCLUDED.applied_at
	`, strconv.FormatUint(uint64(state.Latest), 10), state.Checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record schema state: %w", err)
	}
	return nil
}

// CheckSchema refuses to start an API or worker against a postgres database
// whose recorded schema differs from the embedded migrations.
func CheckSchema(ctx context.Context, conn *gorm.DB, driver string) error {
	if driver != "postgres" {
		return nil
	}

	want, err := Describe()
	if err != nil {
		return err
	}

	var row struct {
		SchemaVersion string
		Checksum      *string
	}
	res := conn.WithContext(ctx).Raw(`SELECT schema_version, checksum FROM schema_state WHERE id = TRUE`).Scan(&row)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", ErrSchemaOutdated, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSchemaOutdated
	}

	if row.SchemaVersion != strconv.FormatUint(uint64(want.Latest), 10) {
		return fmt.Errorf("%w: have version %s, want %d", ErrSchemaOutdated, row.SchemaVersion, want.Latest)
	}
	if row.Checksum == nil || *row.Checksum != want.Checksum {
		return fmt.Errorf("%w: checksum mismatch", ErrSchemaOutdated)
	}
	return nil
}
