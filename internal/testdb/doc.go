// Package testdb provides helpers for tests that run against a real
// PostgreSQL database.
//
// The database is taken from RECALL_TEST_DB_URL, falling back to
// DATABASE_URL. When neither is set, tests calling GetTestDB are skipped.
// The embedded migrations are applied once per test binary, and RunInTx
// gives every test its own transaction that is rolled back on cleanup:
//
//	func TestPoolStore_Create(t *testing.T) {
//		db := testdb.GetTestDB(t)
//		testdb.RunInTx(t, db, func(t *testing.T, tx *sql.Tx) {
//			store := postgres.NewPostgresPoolStore(tx, nil)
//			...
//		})
//	}
package testdb
