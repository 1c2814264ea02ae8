// Package evaluation implements the answer pipeline.
//
// Submit stores an answer as a pending submission together with a durable
// evaluation task and returns at once. A task worker later calls
// EvaluateSubmission, which serializes work per item, asks the judge for a
// verdict with bounded retries and commits the scheduler transition. A
// review log keyed by submission makes every transition apply at most once,
// so commits can be replayed safely by Reconcile.
package evaluation
