// Package sse decodes the backend's event stream wire protocol:
// "event: <name>\ndata: <json>\n\n". All wire fragility lives here so the
// rest of the engine only sees typed frames.
package sse

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
)

// Payloads can carry full reasoning bodies for every agent, so allow frames
// well past bufio's default token size.
const maxFrameSize = 4 * 1024 * 1024

var errDanglingFrame = errors.New("unterminated trailing frame")

// RawFrame is one wire frame before payload decoding.
type RawFrame struct {
	Event string
	Data  string
}

// DropFunc is invoked when a frame is discarded instead of delivered.
type DropFunc func(raw RawFrame, err error)

// FrameScanner reads typed frames from a byte stream. The API mirrors
// bufio.Scanner: Scan advances to the next deliverable frame, Frame returns
// it, Err reports the first transport error.
//
// Malformed frames are dropped, reported through the drop callback, and do
// not stop the scan. A trailing frame without its blank-line terminator is
// discarded at EOF.
type FrameScanner struct {
	sc      *bufio.Scanner
	frame   models.Frame
	raw     RawFrame
	dropped int
	err     error
	done    bool
	onDrop  DropFunc
}

// NewFrameScanner wraps r. The reader is not closed by the scanner.
func NewFrameScanner(r io.Reader) *FrameScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxFrameSize)
	return &FrameScanner{sc: sc}
}

// OnDrop registers a callback for discarded frames.
func (s *FrameScanner) OnDrop(fn DropFunc) { s.onDrop = fn }

// Scan advances to the next decodable frame. It returns false at end of
// stream or on a read error.
func (s *FrameScanner) Scan() bool {
	if s.done {
		return false
	}

	var event string
	var dataLines []string

	for s.sc.Scan() {
		line := strings.TrimRight(s.sc.Text(), "\r")

		// Blank line terminates the pending frame.
		if line == "" {
			if event == "" && len(dataLines) == 0 {
				continue
			}
			raw := RawFrame{Event: event, Data: strings.Join(dataLines, "\n")}
			event, dataLines = "", nil

			frame, err := Decode(raw)
			if err != nil {
				s.drop(raw, err)
				continue
			}
			s.frame = frame
			s.raw = raw
			return true
		}

		switch {
		case strings.HasPrefix(line, ":"):
			// comment
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		default:
			// unknown field, ignore
		}
	}

	s.done = true
	if err := s.sc.Err(); err != nil {
		s.err = err
	}

	// The stream closed mid-frame. The partial block is never delivered.
	if event != "" || len(dataLines) > 0 {
		s.drop(RawFrame{Event: event, Data: strings.Join(dataLines, "\n")}, errDanglingFrame)
	}
	return false
}

// Frame returns the frame produced by the last successful Scan.
func (s *FrameScanner) Frame() models.Frame { return s.frame }

// Raw returns the undecoded form of the last frame.
func (s *FrameScanner) Raw() RawFrame { return s.raw }

// Err returns the first transport error, if any. A clean EOF returns nil.
func (s *FrameScanner) Err() error { return s.err }

// Dropped returns how many frames were discarded so far.
func (s *FrameScanner) Dropped() int { return s.dropped }

func (s *FrameScanner) drop(raw RawFrame, err error) {
	s.dropped++
	if s.onDrop != nil {
		s.onDrop(raw, err)
	}
}

// Decode turns a raw frame into its typed variant. Both the backend's
// class-style event names and the lowercase short names are accepted.
// Unrecognized names decode to UnknownEvent with the payload untouched.
func Decode(raw RawFrame) (models.Frame, error) {
	data := []byte(raw.Data)
	switch raw.Event {
	case "StartEvent", "start":
		var ev models.StartEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode start frame: %w", err)
		}
		return &ev, nil
	case "ProgressUpdateEvent", "progress":
		var ev models.ProgressEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode progress frame: %w", err)
		}
		return &ev, nil
	case "CompleteEvent", "complete":
		var ev models.CompleteEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode complete frame: %w", err)
		}
		return &ev, nil
	case "ErrorEvent", "error":
		var ev models.ErrorEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode error frame: %w", err)
		}
		return &ev, nil
	default:
		return &models.UnknownEvent{Event: raw.Event, Data: append(json.RawMessage(nil), data...)}, nil
	}
}
