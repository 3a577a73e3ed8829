package unit

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// MessageType labels a message exchanged between the controller and a unit.
type MessageType string

const (
	// TypeLevenshteinBatch asks a unit for edit distances of query against targets.
	TypeLevenshteinBatch MessageType = "levenshteinBatch"
	// TypeTrigramBatch asks a unit for trigram similarity of query against targets.
	TypeTrigramBatch MessageType = "trigramBatch"

	// TypeReady is sent once by a unit after its setup completes.
	TypeReady MessageType = "ready"
	// TypeResult carries the scores for one request or chunk.
	TypeResult MessageType = "result"
	// TypeError reports that a unit could not compute one request or chunk.
	TypeError MessageType = "error"
)

// Message is the only thing that crosses the boundary between the controller
// and a unit. It always travels msgpack-encoded; units echo back the ID they
// were given and nothing else about the request.
type Message struct {
	Type    MessageType `msgpack:"type"`
	ID      string      `msgpack:"id,omitempty"`
	Query   string      `msgpack:"query,omitempty"`
	Targets []string    `msgpack:"targets,omitempty"`
	Results []float64   `msgpack:"results,omitempty"`
	Error   string      `msgpack:"error,omitempty"`
}

// Encode serializes m for posting to a unit or back to the controller.
func Encode(m Message) ([]byte, error) {
	data, err := msgpack.Marshal(&m)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", m.Type, err)
	}
	return data, nil
}

// Decode parses a message produced by Encode.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	return m, nil
}
