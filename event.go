package mdview

import (
	"bytes"
	"encoding/json"
)

// Event is a single message pushed to a live-refresh client. Two shapes
// exist on the wire: an "updating" notification announcing that a refresh
// is in progress, and a "content" payload carrying the re-rendered HTML.
// Within a session an updating event always precedes its content event.
type Event struct {
	Updating bool
	Content  string
}

// MarshalJSON encodes the event as exactly one of the two wire shapes.
// HTML characters in the content are not escaped; the payload is consumed
// by a script, not interpolated into markup.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Updating {
		return []byte(`{"updating": true}`), nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]string{"content": e.Content}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
