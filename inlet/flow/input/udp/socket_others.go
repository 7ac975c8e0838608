// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

//go:build !linux

package udp

import "golang.org/x/sys/unix"

var (
	oobLength        = 0
	udpSocketOptions = []socketOption{
		{
			Name:      "SO_REUSEADDR",
			Level:     unix.SOL_SOCKET,
			Option:    unix.SO_REUSEADDR,
			Mandatory: true,
		}, {
			Name:      "SO_REUSEPORT",
			Level:     unix.SOL_SOCKET,
			Option:    unix.SO_REUSEPORT,
			Mandatory: true,
		},
	}
)

// parseSocketControlMessage always returns an empty message.
func parseSocketControlMessage(_ []byte) (oobMessage, error) {
	return oobMessage{}, nil
}
