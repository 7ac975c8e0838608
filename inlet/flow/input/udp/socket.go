// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package udp

import (
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// socketOption is a socket option to set on a listening socket.
// Non-mandatory options are best effort.
type socketOption struct {
	Name      string
	Level     int
	Option    int
	Mandatory bool
}

// oobMessage is the decoded out-of-band data attached to a datagram.
type oobMessage struct {
	Drops    uint32
	Received time.Time
}

// listenConfig configures a listening socket to reuse port and to
// report queue overflows.
var listenConfig = net.ListenConfig{
	Control: func(network, address string, c syscall.RawConn) error {
		var err error
		c.Control(func(fd uintptr) {
			for _, opt := range udpSocketOptions {
				if setErr := unix.SetsockoptInt(int(fd), opt.Level, opt.Option, 1); setErr != nil && opt.Mandatory {
					err = setErr
					return
				}
			}
		})
		return err
	},
}
