// Package session owns the signed-in identity of the client: the bearer
// credential, the current user record and the three-state status every
// screen gates on.
//
// A Manager starts StatusUnresolved and leaves it exactly once, through
// Resolve or a successful sign-in. Consumers read Snapshots and never mutate
// session state except through Manager operations.
package session
