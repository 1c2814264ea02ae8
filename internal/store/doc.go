// Package store defines interfaces for data persistence operations.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing business rules to remain
// independent of specific database technologies or persistence details.
//
// Every store exposes WithTx so services can compose several writes into one
// transaction with RunInTransaction, or several reads into one snapshot with
// RunInSnapshot.
package store
