// Package agent turns a natural-language request into shape operations by running
// a bounded tool-calling loop against a shadow copy of the board.
package agent

import (
	"strings"

	"github.com/inkboard/inkboard/internal/shape"
)

type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// Operation is one planned edit. Create carries a draft, update carries changes
// and delete carries only the target id.
type Operation struct {
	Op      OpKind       `json:"op"`
	ID      string       `json:"id"`
	Shape   *shape.Draft `json:"shape,omitempty"`
	Changes *Changes     `json:"changes,omitempty"`
}

// Request is what a client sends to plan edits.
type Request struct {
	RequestID string          `json:"requestId,omitempty"`
	Prompt    string          `json:"prompt"`
	Shapes    []shape.Summary `json:"shapes"`
}

// Response is the outcome of a run. Error is set only when the model or its
// transport failed, in which case Operations is empty.
type Response struct {
	RequestID  string      `json:"requestId,omitempty"`
	Operations []Operation `json:"operations"`
	Message    string      `json:"message"`
	Truncated  bool        `json:"truncated,omitempty"`
	Error      string      `json:"error,omitempty"`
}

const tempIDPrefix = "tmp_"

// IsTempID reports whether id was assigned by a shadow board.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}
