// Package database provides SQLite connectivity for StageLink Core.
//
// The database holds the parameter-change journal. This package manages:
//   - Connection setup with WAL mode for concurrent access
//   - Embedded schema migrations (additive-only)
//   - Health checks and lifecycle management
//
// Security considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	repo := journal.NewSQLiteRepository(db.DB)
//
// Migration strategy:
//
// Migrations are additive-only so a rolled-back binary can still read the
// schema a newer one left behind:
//   - New columns must be NULLABLE or have DEFAULT values
//   - Never DROP or RENAME columns
//   - Each migration file has both .up.sql and .down.sql
package database
