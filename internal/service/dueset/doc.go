// Package dueset resolves which items are due for review and derives the
// progress statistics shown on the dashboard. Nothing here is stored: every
// number is computed from the items' scheduling state at read time.
package dueset
