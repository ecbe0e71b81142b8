package events

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// LogPublisher writes events to the process log as raw JSON. It is the
// default sink when no external bus is wired in.
type LogPublisher struct{}

func (LogPublisher) Publish(event Event) {
	entry, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("event", event.Name).Msg("failed to marshal domain event")
		return
	}
	log.Info().RawJSON("domain_event", entry).Msg("")
}
