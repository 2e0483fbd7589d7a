package models

import "time"

// Event represents a client event stored in the analytics database.
// These come from /api/log, order correlations, support requests and
// first visits on the live channel.
type Event struct {
	// ID is the primary key with auto-increment functionality
	ID uint `gorm:"primaryKey"`

	// UID is the anonymous client identifier from the X-KOLO-UID header
	// - index: first-visit and per-client queries filter on it
	UID string `gorm:"size:64;index"`

	// IPAddress is the best-effort originating IP, resolved through the
	// proxy headers before falling back to the socket peer
	// - size:50: sufficient for both IPv4 and IPv6 addresses
	IPAddress string `gorm:"size:50"`

	// Action names the event ("click_phone", "order", "support", ...)
	Action string `gorm:"size:64;index"`

	// Extra carries the JSON-encoded free-form payload sent by the client
	Extra string

	// Timestamp records when the event reached the server
	Timestamp time.Time
}

// EventRecord is a raw event intended to be passed through channels.
// This lightweight struct is used for asynchronous processing between
// goroutines; workers turn it into an Event row later.
type EventRecord struct {
	UID       string
	IPAddress string
	Action    string
	Extra     string
	Timestamp time.Time
}
