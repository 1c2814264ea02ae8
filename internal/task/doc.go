// Package task manages background job queuing, processing, and lifecycle.
//
// Tasks are persisted before they are queued, so an answer accepted by the
// API is evaluated even if the process restarts. On startup the runner
// requeues pending tasks and resets tasks left in processing; a periodic
// sweep resets stuck tasks and picks up pending tasks that a full queue
// turned away. A Registry rebuilds executable tasks from stored rows.
package task
