// Package database provides SQLite storage for controlhub.
//
// The database holds two kinds of local state:
//   - controller snapshots, so the service can start while the backend is down
//   - dashboards, the widget layouts per controller
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns are nullable or carry a default,
// and every .up.sql has a matching .down.sql. Tables use STRICT mode.
// All queries are parameterised and the file is created 0600.
package database
