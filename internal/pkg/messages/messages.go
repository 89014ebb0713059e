package messages

import (
	amessages "github.com/airenas/async-api/pkg/messages"
)

const (
	st = "SCRIBE/"
	// Scrub queue name, used for retrying audio payload deletes
	Scrub = st + "Scrub"
)

// ScrubMessage asks the worker to drop an audio payload from the file storage
type ScrubMessage struct {
	amessages.QueueMessage
	Filename string `json:"filename,omitempty"`
}

// NewScrubMessage creates msg for an audio clip
func NewScrubMessage(id, filename string) *ScrubMessage {
	return &ScrubMessage{QueueMessage: amessages.QueueMessage{ID: id}, Filename: filename}
}
