package websocket

import (
	"encoding/json"
	"fmt"
)

// FrameType discriminates outbound frames.
type FrameType string

// Outbound frame types. Notification and status frames go to operators only.
const (
	FrameMessage            FrameType = "message"
	FrameUserStatus         FrameType = "user_status"
	FrameSystemNotification FrameType = "system_notification"
	FrameSystemStatus       FrameType = "system_status"
)

// Frame is the envelope of every hub → client frame.
type Frame struct {
	Type FrameType `json:"type"`
	Data any       `json:"data"`
}

// EncodeFrame marshals data into a frame of the given type.
func EncodeFrame(frameType FrameType, data any) ([]byte, error) {
	b, err := json.Marshal(Frame{Type: frameType, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", frameType, err)
	}
	return b, nil
}
