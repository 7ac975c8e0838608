// SPDX-FileCopyrightText: 2022 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package file handles use of files as data input (for testing and
// replay of captured payloads).
package file

import (
	"errors"
	"net"
	"os"
	"time"

	"gopkg.in/tomb.v2"

	"flowmill/common/daemon"
	"flowmill/common/reporter"
	"flowmill/inlet/flow/decoder"
	"flowmill/inlet/flow/input"
)

// Input represents the state of a file input.
type Input struct {
	r      *reporter.Reporter
	t      tomb.Tomb
	config *Configuration
	send   input.SendFunc
}

var (
	_ input.Input         = &Input{}
	_ input.Configuration = &Configuration{}
)

// New instantiates a new file input from the provided configuration.
func (configuration *Configuration) New(r *reporter.Reporter, daemon daemon.Component, send input.SendFunc) (input.Input, error) {
	if len(configuration.Paths) == 0 {
		return nil, errors.New("no paths provided for file input")
	}
	in := &Input{
		r:      r,
		config: configuration,
		send:   send,
	}
	daemon.Track(&in.t, "inlet/flow/input/file")
	return in, nil
}

// Start starts streaming the files in a loop.
func (in *Input) Start() error {
	in.r.Info().Msg("file input starting")
	in.t.Go(func() error {
		count := uint(0)
		source := net.ParseIP("127.0.0.1")
		for idx := 0; ; idx++ {
			if in.config.MaxFlows > 0 && count >= in.config.MaxFlows {
				<-in.t.Dying()
				return nil
			}

			path := in.config.Paths[idx%len(in.config.Paths)]
			data, err := os.ReadFile(path)
			if err != nil {
				in.r.Err(err).Str("path", path).Msg("unable to read path")
				return err
			}

			in.send(decoder.RawFlow{
				TimeReceived: time.Now(),
				Payload:      data,
				Source:       source,
			})
			count++
			select {
			case <-in.t.Dying():
				return nil
			default:
			}
		}
	})
	return nil
}

// Stop stops the file input.
func (in *Input) Stop() error {
	defer in.r.Info().Msg("file input stopped")
	in.t.Kill(nil)
	return in.t.Wait()
}
