// Package audit keeps an append-only SQLite trail of session activity:
// client connects, device attachments, and code runs. The trail feeds the
// REST stats endpoint and post-hoc debugging of classroom sessions.
package audit
