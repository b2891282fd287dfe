package persist

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Codec turns values into bytes at rest. With Legacy set, JSON is wrapped
// as base64(urlencode(json)), the envelope the browser app used; Decode
// accepts either form regardless.
type Codec struct {
	Legacy bool
}

// Encode marshals v.
func (c Codec) Encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	if !c.Legacy {
		return raw, nil
	}
	escaped := encodeURIComponent(string(raw))
	return []byte(base64.StdEncoding.EncodeToString([]byte(escaped))), nil
}

// Decode unmarshals data into v.
func (c Codec) Decode(data []byte, v any) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("decode: empty value")
	}
	if data[0] != '{' && data[0] != '[' && !bytes.Equal(data, []byte("null")) {
		raw, err := unwrapLegacy(data)
		if err != nil {
			return fmt.Errorf("decode: %w", err)
		}
		data = raw
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// encodeURIComponent escapes s so the browser's decodeURIComponent
// restores it. A space must become %20, not '+'.
func encodeURIComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func unwrapLegacy(data []byte) ([]byte, error) {
	decoded, err := base64.StdEncoding.DecodeString(string(data))
	if err != nil {
		return nil, err
	}
	// decodeURIComponent leaves '+' alone.
	plain, err := url.PathUnescape(string(decoded))
	if err != nil {
		return nil, err
	}
	return []byte(plain), nil
}
