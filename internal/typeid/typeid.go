// Package typeid mints the prefixed, sortable ids used for boards, shapes,
// snapshots and agent requests.
package typeid

import (
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixBoard    = "board"
	PrefixSnapshot = "snap"
	PrefixShape    = "shape"
	PrefixRequest  = "areq"
)

// ErrInvalidID wraps every Validate failure.
var ErrInvalidID = errors.New("invalid id")

func New(prefix string) string {
	return typeid.MustGenerate(prefix).String()
}

func NewBoardID() string    { return New(PrefixBoard) }
func NewSnapshotID() string { return New(PrefixSnapshot) }
func NewShapeID() string    { return New(PrefixShape) }
func NewRequestID() string  { return New(PrefixRequest) }

// Validate reports whether id parses as a typeid carrying prefix.
func Validate(id, prefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidID, id, err)
	}
	if parsed.Prefix() != prefix {
		return fmt.Errorf("%w %q: want prefix %q, got %q", ErrInvalidID, id, prefix, parsed.Prefix())
	}
	return nil
}
