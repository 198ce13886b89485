// Package realtime keeps the registry of live terminal connections and
// fans committed mutations out to all of them, best-effort.
package realtime

import "time"

// SourceServer marks every envelope as server-originated. Clients use it
// to tell external events from self-originated echoes in future protocol
// versions.
const SourceServer = "server"

// EnvelopeVersion is the current wire version of the envelope.
const EnvelopeVersion = 1

// Envelope is one unit of realtime notification. It is created once per
// committed mutation, serialized immediately and never persisted.
type Envelope struct {
	Type    string    `json:"type"`
	TS      time.Time `json:"ts"`
	Data    any       `json:"data"`
	Source  string    `json:"source"`
	Version int       `json:"version"`
}

// NewEnvelope builds a server-originated envelope for a business event
// such as "sale.created".
func NewEnvelope(kind string, ts time.Time, data any) Envelope {
	return Envelope{
		Type:    kind,
		TS:      ts,
		Data:    data,
		Source:  SourceServer,
		Version: EnvelopeVersion,
	}
}
