// Package events provides types and interfaces for an event-driven architecture.
//
// Services emit events without knowing which handlers will process them. The
// evaluation pipeline emits answer.incorrect after committing an incorrect
// verdict; the task package turns it into a re-explanation task.
//
// The primary components are:
// - TaskRequestEvent: an event that may lead to a background task
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
