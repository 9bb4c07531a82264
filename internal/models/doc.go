// Package models defines the chat entities mirrored from the remote
// document store: users, channels, posts, threads and reactions, plus the
// derived presence state.
//
// Every persisted entity knows its document id (DocID/WithDocID) and can
// produce a deep copy (Clone) so that mirrors never hand out references into
// their live arrays. Nested values (a reaction's user, a channel's posts) are
// value copies; updating the source user does not change embedded copies
// until the next snapshot rewrites them.
//
// JSON tags are the document field names used by every store adapter.
// Validation tags are checked with Validate before anything is written.
package models
