package tui

import (
	"github.com/earlyspark/scrollguard/internal/pipeline"
)

type eventMsg struct {
	event pipeline.Event
}

type eventsClosedMsg struct{}

type statsTickMsg struct {
	stats pipeline.Stats
	masks int
}
