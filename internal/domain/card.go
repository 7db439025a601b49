// Package domain holds the core types shared across the relay pipeline.
package domain

import "time"

// Provider identifies the telecom operator a card belongs to.
type Provider string

const (
	ProviderVodafone Provider = "Vodafone"
	ProviderWE       Provider = "WE"
	ProviderOrange   Provider = "Orange"
)

// Units sentinels. UnitsPending marks a card forwarded before its units
// value could be resolved; UnitsUnknown is the terminal state after the
// validation budget expires.
const (
	UnitsPending = "Validating..."
	UnitsUnknown = "Unknown"
)

// CardCandidate is an ephemeral extraction result for one message line.
// NormalizedCode is the dedup identity key.
type CardCandidate struct {
	Provider       Provider
	RawCode        string
	NormalizedCode string
	Units          string
	SourceChannel  string
}

// ForwardedCard is the persistent record for a unique normalized code.
// Units may transition exactly once after insert (Pending to final).
type ForwardedCard struct {
	ID             string
	NormalizedCode string
	Provider       Provider
	Units          string
	SourceChannel  string
	ForwardedAt    time.Time
	Timestamp      int64
}

// ChannelMessage is one message fetched from a source channel.
type ChannelMessage struct {
	ID        int64
	Text      string
	ReplyToID int64
}
