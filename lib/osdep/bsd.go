//go:build darwin || freebsd || openbsd || netbsd || dragonfly

package osdep

import (
	"golang.org/x/sys/unix"
)

// ResourceUsage returns user and system CPU time of the OS process in nanoseconds.
func ResourceUsage() (int64, int64) {
	var usage unix.Rusage
	var utime, stime int64
	if err := unix.Getrusage(unix.RUSAGE_SELF, &usage); err == nil {
		utime = usage.Utime.Nano()
		stime = usage.Stime.Nano()
	}
	return utime, stime
}
