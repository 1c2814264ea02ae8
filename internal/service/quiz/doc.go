// Package quiz drives sittings: it builds them from the due set, keeps the
// cursor in step with the answers that were accepted, hands answers to the
// evaluation pipeline and settles the final state once every verdict is in.
//
// The cursor is always derived from stored submissions, so a sitting resumed
// after a restart never shows an item that was already answered. A failed
// evaluation reopens its item.
package quiz
