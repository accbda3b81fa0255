// SPDX-License-Identifier: MIT
package signal

// Container labels.
const (
	ContainerWAV  = "wav"
	ContainerOgg  = "ogg"
	ContainerRaw  = "raw"
	MIMETypeWAV   = "audio/wav"
	MIMETypeOgg   = "audio/ogg"
	MIMETypeOctet = "application/octet-stream"
)

// Clip is an encoded audio buffer. The producer owns Data until it hands the
// Clip over; readers that need to keep the bytes use Bytes.
type Clip struct {
	Data      []byte
	Container string
}

// MIMEType returns the label a caller attaches to a download of this clip.
func (c *Clip) MIMEType() string {
	switch c.Container {
	case ContainerWAV:
		return MIMETypeWAV
	case ContainerOgg:
		return MIMETypeOgg
	default:
		return MIMETypeOctet
	}
}

// Bytes returns a copy of the encoded data.
func (c *Clip) Bytes() []byte {
	out := make([]byte, len(c.Data))
	copy(out, c.Data)
	return out
}

func (c *Clip) Len() int {
	return len(c.Data)
}
