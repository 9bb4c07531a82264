// Package common contains shared constants and sentinel errors used across
// chatsync components.
package common

import "time"

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// bearer token on outbound requests to the relay.
const AccessTokenHeaderName = "access_token"

// Collection names as they exist in the remote document store.
const (
	CollectionUsers     = "users"
	CollectionChannels  = "channels"
	CollectionThreads   = "threads"
	CollectionReactions = "reactions"
)

const (
	// ActiveWindow is how long after the last reported activity a user
	// still counts as active.
	ActiveWindow = 180 * time.Second

	// ActivityReportInterval bounds local activity writes and drives the
	// presence reconciliation tick.
	ActivityReportInterval = 30 * time.Second

	// LoggedOutActivity is the lastActivity sentinel for an explicit sign-out.
	LoggedOutActivity int64 = -1

	// TeamChannelName is the well-known channel created once per installation.
	TeamChannelName = "Team"

	// MaxAttachmentSize is the upper bound for message attachments.
	MaxAttachmentSize = 500 * 1024
)
