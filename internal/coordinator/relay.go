// internal/coordinator/relay.go
package coordinator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jason-s-yu/lobbyrelay/internal/models"
)

// senderField is the leading field of every relayed payload.
const senderField = "sender"

var (
	errNotObject     = errors.New("relay payload is not a JSON object")
	errSpoofedSender = errors.New("relay payload carries a sender field after the first key")
)

// rewriteSender replaces the leading "sender" field of a JSON object payload with
// the given id, or prepends one when the client left it out. The whole object is
// validated; a "sender" key anywhere but first rejects the payload. Field bytes are
// copied as sent.
func rewriteSender(payload []byte, sender models.ID) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errNotObject, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errNotObject
	}
	// rest starts right after the opening brace, or after a leading claimed sender
	restStart := dec.InputOffset()
	hasSender := false

	for first := true; dec.More(); first = false {
		key, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errNotObject, err)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("%w: %v", errNotObject, err)
		}
		if key != senderField {
			continue
		}
		if !first {
			return nil, errSpoofedSender
		}
		hasSender = true
		restStart = dec.InputOffset()
	}

	if tok, err := dec.Token(); err != nil || tok != json.Delim('}') {
		return nil, errNotObject
	}
	end := dec.InputOffset()
	if len(bytes.TrimSpace(payload[end:])) != 0 {
		return nil, errNotObject
	}

	rest := bytes.TrimLeft(payload[restStart:end], " \t\r\n")
	head := fmt.Sprintf(`{"%s":"%s"`, senderField, sender)
	out := make([]byte, 0, len(head)+len(rest)+1)
	out = append(out, head...)
	if !hasSender && rest[0] != '}' {
		out = append(out, ',')
	}
	out = append(out, rest...)
	return out, nil
}
