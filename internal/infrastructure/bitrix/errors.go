package bitrix

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrEmptyBatch is returned when a batch is issued with no commands.
var ErrEmptyBatch = errors.New("bitrix: batch contains no commands")

// TransportError indicates the HTTP call itself failed or returned a
// non-success status.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bitrix: batch transport failed: %v", e.Err)
	}
	return fmt.Sprintf("bitrix: batch request failed with status %d", e.Status)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError indicates the response decoded but did not carry the
// expected result envelope.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "bitrix: unexpected batch response: " + e.Reason
}

// CommandFault is the error info the remote store reports for one
// command inside a batch.
type CommandFault struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

// CommandError aggregates per-command failures from one batch chunk.
// The store executes every command in a batch even after one fails
// (halt:0), so Results still carries the outcomes of the commands that
// succeeded; callers that want partial success can recover them.
type CommandError struct {
	Faults  map[string]CommandFault
	Results []json.RawMessage
}

func (e *CommandError) Error() string {
	names := make([]string, 0, len(e.Faults))
	for name := range e.Faults {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		fault := e.Faults[name]
		desc := fault.Description
		if desc == "" {
			desc = fault.Code
		}
		if desc == "" {
			desc = "unknown error"
		}
		parts = append(parts, fmt.Sprintf("command %s failed: %s", name, desc))
	}
	return "bitrix: batch errors: " + strings.Join(parts, "; ")
}
