// Package service contains the application-level use cases of the retention
// engine and the error kinds they share.
//
// The root package holds pool management and question generation. The
// sub-packages build on it:
//
//   - dueset resolves which items are due, per pool and across pools, and
//     derives progress statistics
//   - evaluation accepts answers without waiting for judgment, judges them in
//     background tasks and commits each scheduling transition exactly once
//   - quiz drives sittings: creation, resume, submission, completion
//   - auth validates the bearer tokens that identify an owner
//
// Services receive their stores and collaborators through constructor
// injection and run multi-store writes through a store.Transactor. Every
// error returned to callers unwraps to one of the sentinels declared in
// errors.go, which the API layer maps to HTTP status codes.
package service
