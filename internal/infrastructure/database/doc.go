// Package database provides SQLite connectivity for Gray Logic Access.
//
// This package manages:
//   - Database connection with WAL mode and enforced foreign keys
//   - Forward schema migrations read from an injected filesystem
//   - The WithTx transaction wrapper used by the hardware and zone
//     repositories to run their before/after-write validation inside one
//     all-or-nothing unit
//
// Security Considerations:
//   - All queries use parameterised statements
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.Source()); err != nil {
//	    log.Fatal(err)
//	}
//
//	err = database.WithTx(ctx, db.DB, func(ctx context.Context, tx *sql.Tx) error {
//	    // every statement goes through tx
//	    return nil
//	})
package database
