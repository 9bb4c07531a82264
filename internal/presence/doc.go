// Package presence derives active/idle/loggedOut states from the users'
// lastActivity timestamps.
//
// Two independent units cooperate:
//
//   - Throttle bounds how often the local user's activity is written to the
//     store (one write per interval per user).
//   - Reconciler periodically recomputes every user's state from the users
//     snapshot and republishes the full list.
//
// Tracker joins them with the current-user identity and the input events
// that count as activity. Other users' states are only as fresh as the last
// reconciliation tick; the local user's own state is patched in right after
// a successful report.
package presence
