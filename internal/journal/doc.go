// Package journal persists console parameter changes to SQLite.
//
// Every parameter change observed by the core - whether initiated through
// the REST API, MCP tools, MQTT commands, or moved on the console surface
// itself - is recorded as a journal entry. The journal is the local audit
// trail and survives restarts; the InfluxDB metrics pipeline is the
// dashboard-facing complement and may be disabled independently.
//
// # Usage
//
//	repo := journal.NewSQLiteRepository(db.DB)
//	err := repo.Record(ctx, "/ch/01/mix/fader", 0.75, "float", journal.SourceAPI)
//
//	entries, err := repo.Recent(ctx, "", 50)
//
// Retention is enforced by a background Pruner:
//
//	pruner := journal.NewPruner(repo, 30*24*time.Hour, time.Hour)
//	pruner.Start()
//	defer pruner.Stop()
//
// # Thread Safety
//
// The repository is safe for concurrent use; it delegates locking to the
// database/sql pool. Timestamps are stored and compared as UTC RFC3339
// strings, matching the schema defaults.
package journal
