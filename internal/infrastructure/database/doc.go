// Package database opens the embedded SQLite store backing the session
// event audit trail.
package database
