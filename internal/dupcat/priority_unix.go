//go:build unix

package dupcat

import "golang.org/x/sys/unix"

// scanNiceness is the niceness the scanner requests for itself before
// walking a tree, as a courtesy to other load on the host.
const scanNiceness = 10

// lowerPriority lowers the scheduling priority of the current process.
// Failure is reported to the caller but must never fail a scan.
func lowerPriority() error {
	return unix.Setpriority(unix.PRIO_PROCESS, 0, scanNiceness)
}
