// Package codec selects the wire format for the sync exchange. JSON is
// the default; terminals on slow links can negotiate msgpack for the
// compact binary frame.
package codec

import (
	"encoding/json"
	"mime"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	ContentTypeJSON    = "application/json"
	ContentTypeMsgpack = "application/msgpack"
)

// Codec marshals and unmarshals one wire format.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, dst any) error
	ContentType() string
}

type JSON struct{}

func (JSON) Marshal(v any) ([]byte, error)        { return json.Marshal(v) }
func (JSON) Unmarshal(data []byte, dst any) error { return json.Unmarshal(data, dst) }
func (JSON) ContentType() string                  { return ContentTypeJSON }

type Msgpack struct{}

func (Msgpack) Marshal(v any) ([]byte, error)        { return msgpack.Marshal(v) }
func (Msgpack) Unmarshal(data []byte, dst any) error { return msgpack.Unmarshal(data, dst) }
func (Msgpack) ContentType() string                  { return ContentTypeMsgpack }

// ForContentType picks the codec matching a Content-Type or Accept
// header value. Anything unrecognized falls back to JSON.
func ForContentType(header string) Codec {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		mediaType = strings.TrimSpace(strings.ToLower(header))
	}
	if mediaType == ContentTypeMsgpack {
		return Msgpack{}
	}
	return JSON{}
}
