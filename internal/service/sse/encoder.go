package sse

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
)

// WriteFrame writes one frame in wire form with the given event name.
func WriteFrame(w io.Writer, event string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", event, err)
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, b); err != nil {
		return fmt.Errorf("write %s frame: %w", event, err)
	}
	return nil
}

// Encode renders a typed frame using the backend's class-style event names.
func Encode(w io.Writer, f models.Frame) error {
	switch ev := f.(type) {
	case *models.StartEvent:
		return WriteFrame(w, "StartEvent", ev)
	case *models.ProgressEvent:
		return WriteFrame(w, "ProgressUpdateEvent", ev)
	case *models.CompleteEvent:
		return WriteFrame(w, "CompleteEvent", ev)
	case *models.ErrorEvent:
		return WriteFrame(w, "ErrorEvent", ev)
	case *models.UnknownEvent:
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Event, ev.Data); err != nil {
			return fmt.Errorf("write %s frame: %w", ev.Event, err)
		}
		return nil
	default:
		return fmt.Errorf("encode: unsupported frame type %T", f)
	}
}
