// Copyright © 2026 Appyard Authors
// SPDX-License-Identifier: Apache-2.0

package ports

import (
	gnet "github.com/shirou/gopsutil/v3/net"
)

// ListenerPID reports whether any OS process is listening on the given TCP
// port, and if so which PID. A PID of 0 means the owner could not be
// determined (insufficient permissions).
func ListenerPID(port int) (pid int32, listening bool, err error) {
	conns, err := gnet.Connections("tcp")
	if err != nil {
		return 0, false, err
	}

	for _, c := range conns {
		if c.Status == "LISTEN" && c.Laddr.Port == uint32(port) {
			return c.Pid, true, nil
		}
	}
	return 0, false, nil
}

// IsListening reports whether the given TCP port has a listener. Probe
// errors are treated as "not listening", so a start waiting on this
// confirmation times out rather than passing unverified.
func IsListening(port int) bool {
	_, listening, err := ListenerPID(port)
	return err == nil && listening
}
