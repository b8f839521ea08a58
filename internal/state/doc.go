// Package state stores live session snapshots on the filesystem so a shell
// can be resumed later.
package state
