// Package game owns the per-room session state machine: round lifecycle,
// guess and hint bookkeeping, roster management, and broadcast fan-out to
// connected sockets.
package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ProtocolVersion is carried in every message. Mismatches are rejected with
// an error reply, never silently dropped.
const ProtocolVersion = 1

var ErrBadJSON = errors.New("invalid JSON")

type UnsupportedVersionError struct {
	Version int
}

func (e UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported protocol version: %d", e.Version)
}

type UnknownTypeError struct {
	Type string
}

func (e UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown message type: %q", e.Type)
}

// JoinUser is the identity tuple handed over by the auth collaborator. It is
// trusted as-is after length sanitization.
type JoinUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// ClientMessage is the envelope for everything a client sends.
type ClientMessage struct {
	V int    `json:"v"`
	T string `json:"t"`

	// join
	User       *JoinUser `json:"user,omitempty"`
	GuildID    string    `json:"guildId,omitempty"`
	ChannelID  string    `json:"channelId,omitempty"`
	RoomKey    string    `json:"roomKey,omitempty"`
	InstanceID string    `json:"instanceId,omitempty"`

	// guess
	Word string `json:"word,omitempty"`
}

var clientTypes = map[string]struct{}{
	"join":         {},
	"guess":        {},
	"hint_request": {},
	"stats":        {},
}

// ParseClientMessage decodes and validates one inbound frame. Every frame
// must carry the protocol version; a frame without one reads as version 0
// and is rejected like any other mismatch.
func ParseClientMessage(raw []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, ErrBadJSON
	}
	if msg.V != ProtocolVersion {
		return msg, UnsupportedVersionError{Version: msg.V}
	}
	if _, ok := clientTypes[msg.T]; !ok {
		return msg, UnknownTypeError{Type: msg.T}
	}
	return msg, nil
}

// RoomIDFromJoin derives a room key from whichever identifiers the join
// message carried, in priority order.
func RoomIDFromJoin(msg ClientMessage) string {
	guildID := CleanText(msg.GuildID, 64)
	channelID := CleanText(msg.ChannelID, 64)
	roomKey := CleanText(msg.RoomKey, 140)
	instanceID := CleanText(msg.InstanceID, 120)

	switch {
	case guildID != "" && channelID != "":
		return guildID + ":" + channelID
	case roomKey != "":
		return roomKey
	case channelID != "":
		return channelID
	case instanceID != "":
		return "instance:" + instanceID
	}
	return ""
}

// CleanText collapses whitespace, trims, and truncates to max runes.
func CleanText(input string, max int) string {
	cleaned := strings.Join(strings.Fields(input), " ")
	runes := []rune(cleaned)
	if len(runes) > max {
		return string(runes[:max])
	}
	return cleaned
}
