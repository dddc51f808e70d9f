package domain

import "encoding/base64"

// AudioPayload is one finalized recording: raw samples plus the encoding tag.
// It is created by the recorder, consumed exactly once by a transport call
// and never persisted.
type AudioPayload struct {
	Data     []byte
	MimeType string
}

func (p AudioPayload) Empty() bool {
	return len(p.Data) == 0
}

// Base64 returns the wire encoding expected by the dialogue and auth services.
func (p AudioPayload) Base64() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}
