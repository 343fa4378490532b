// SPDX-License-Identifier: MIT

// Package analytics synthesizes side-channel records for selected commands.
// Emission is fire-and-forget: a full buffer drops the record, never the
// dispatch that produced it.
package analytics

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/streambridge/core/internal/domain"
	"github.com/streambridge/core/internal/log"
	"github.com/streambridge/core/internal/metrics"
)

// Data identifies the addon a record is about.
type Data struct {
	AddonTransportURL string `json:"addon_transport_url"`
	AddonID           string `json:"addon_id"`
}

// StateParams is the navigation-state payload of a record.
type StateParams struct {
	Cat    string  `json:"cat"`
	ColURL *string `json:"col_url"`
	Type   string  `json:"type"`
}

// State names the client navigation state a record was produced in.
type State struct {
	Name   string      `json:"name"`
	Params StateParams `json:"params"`
}

// AppContext carries the navigation context of a record.
type AppContext struct {
	URL   string `json:"url"`
	State State  `json:"state"`
}

// Record is one analytics message.
type Record struct {
	Name       string     `json:"name"`
	Data       Data       `json:"data"`
	AppContext AppContext `json:"app_context"`
}

// Sink consumes emitted records. The default sink only logs them; a real
// pipeline can be attached by the embedding process.
type Sink func(Record)

// Emitter buffers records and hands them to the sink on a background
// goroutine.
type Emitter struct {
	records chan Record
	done    chan struct{}
	logger  zerolog.Logger
}

// NewEmitter starts an emitter with the given buffer size. A nil sink logs
// each record at debug level.
func NewEmitter(buffer int, sink Sink) *Emitter {
	if buffer <= 0 {
		buffer = 64
	}
	e := &Emitter{
		records: make(chan Record, buffer),
		done:    make(chan struct{}),
		logger:  log.WithComponent("analytics"),
	}
	if sink == nil {
		sink = func(record Record) {
			e.logger.Debug().
				Str("name", record.Name).
				Str(log.FieldAddonID, record.Data.AddonID).
				Msg("analytics record")
		}
	}
	go func() {
		defer close(e.done)
		for record := range e.records {
			sink(record)
		}
	}()
	return e
}

// TrackInstallAddon emits the install-addon record: category official or
// community by the descriptor's flag, with the navigation context of the
// addon catalog the install originated from.
func (e *Emitter) TrackInstallAddon(descriptor *domain.Descriptor) {
	category := "community"
	if descriptor.Flags.Official {
		category = "official"
	}
	e.emit(Record{
		Name: "installAddon",
		Data: Data{
			AddonTransportURL: descriptor.TransportURL,
			AddonID:           descriptor.Manifest.ID,
		},
		AppContext: AppContext{
			URL: fmt.Sprintf("/addons/%s/all", category),
			State: State{
				Name: "addons.cat.type",
				Params: StateParams{
					Cat:  category,
					Type: "all",
				},
			},
		},
	})
}

// emit never blocks; a full buffer drops the record and counts the drop.
func (e *Emitter) emit(record Record) {
	select {
	case e.records <- record:
	default:
		metrics.AnalyticsDropsTotal.Inc()
		e.logger.Warn().Str("name", record.Name).Msg("analytics buffer full, record dropped")
	}
}

// Close stops the emitter after draining buffered records.
func (e *Emitter) Close() {
	close(e.records)
	<-e.done
}
