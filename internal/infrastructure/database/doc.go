// Package database provides SQLite connectivity for MirAIe Core.
//
// The database holds config entries (MirAIe accounts added through the API)
// and the entity registry that keeps entity IDs stable across restarts.
// Device state is never persisted here; it lives in the MirAIe cloud.
//
// This package manages:
//   - Database connection with WAL mode
//   - Schema migrations read from any fs.FS (embedded in production)
//   - Connection lifecycle and health checks
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600, since config entries
//     contain MirAIe account passwords
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    log.Fatal(err)
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.up.sql with an
// optional matching .down.sql.
package database
