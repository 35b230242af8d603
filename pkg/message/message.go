// Package message implements the decode/dispatch core for capability and
// event-queue messages. An inbound envelope is a structured-data map carrying
// no explicit variant discriminator; a registry maps the wire type-tag to a
// family of shapes whose discriminating key sets are held as data, and the
// first shape (in registration order) whose key predicate matches the
// envelope wins.
package message

import (
	"errors"
	"fmt"

	"github.com/irctrakz/vwproto/pkg/sdata"
)

// Message is one concrete, fully-typed variant of a wire message. A variant
// knows only its own field layout: Serialize produces a fresh envelope and
// Deserialize populates the receiver from one.
type Message interface {
	// Serialize encodes the message into a new structured-data tree.
	Serialize() sdata.Map

	// Deserialize populates the message from an envelope, or fails with a
	// *DecodeError naming the offending key.
	Deserialize(env sdata.Map) error
}

// ErrUnknownMessageType is returned when an envelope's type-tag has no
// registered family. Recoverable; the caller drops the single message.
var ErrUnknownMessageType = errors.New("message: unknown message type")

// DecodeError reports a malformed envelope for a known tag. It carries the
// family and shape that were being decoded and the key that was missing or
// of the wrong type, to aid diagnosing protocol drift. Recoverable
// per-message; decode state is never poisoned.
type DecodeError struct {
	Family string
	Shape  string
	Key    string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("message: decode %s/%s: %s", e.Family, e.Shape, e.Reason)
	}
	return fmt.Sprintf("message: decode %s/%s: key %q: %s", e.Family, e.Shape, e.Key, e.Reason)
}

// missingKey builds the standard DecodeError for an absent or mistyped key.
func missingKey(family, shape, key string) error {
	return &DecodeError{Family: family, Shape: shape, Key: key, Reason: "missing or invalid"}
}
