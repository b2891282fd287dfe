package persist

import (
	"context"
	"encoding/base64"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Load(ctx, KeyRoster)
	assert.ErrorIs(t, err, ErrNotFound)

	buf := []byte(`[1,2]`)
	require.NoError(t, m.Save(ctx, KeyRoster, buf))
	buf[0] = 'x'
	got, err := m.Load(ctx, KeyRoster)
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(got))
	assert.Equal(t, []Key{KeyRoster}, m.Stored())
}

func TestCodecLegacyEnvelope(t *testing.T) {
	in := []sample{{Name: "Zoë & Amir", Points: 30}}

	enc, err := Codec{Legacy: true}.Encode(in)
	require.NoError(t, err)
	assert.NotEqual(t, byte('['), enc[0])

	var out []sample
	require.NoError(t, Codec{}.Decode(enc, &out))
	assert.Equal(t, in, out)
}

func TestCodecReadsBrowserBlob(t *testing.T) {
	// btoa(encodeURIComponent(JSON.stringify(...))) as written by the web app.
	js := `[{"name":"Liam Scout","points":150}]`
	escaped := url.PathEscape(js)
	blob := base64.StdEncoding.EncodeToString([]byte(escaped))

	var out []sample
	require.NoError(t, Codec{}.Decode([]byte(blob), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Liam Scout", out[0].Name)
}

func TestCodecLegacyMatchesBrowserEscaping(t *testing.T) {
	enc, err := Codec{Legacy: true}.Encode(sample{Name: "Zoe Explorer 1+1", Points: 5})
	require.NoError(t, err)
	escaped, err := base64.StdEncoding.DecodeString(string(enc))
	require.NoError(t, err)
	assert.NotContains(t, string(escaped), "+")
	assert.Contains(t, string(escaped), "Zoe%20Explorer%201%2B1")

	// The browser reads the blob back with decodeURIComponent semantics.
	plain, err := url.PathUnescape(string(escaped))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Zoe Explorer 1+1","points":5}`, plain)

	// A bare '+' in a browser blob is a literal plus.
	blob := base64.StdEncoding.EncodeToString([]byte(`%7B%22name%22%3A%22A+B%22%2C%22points%22%3A1%7D`))
	var out sample
	require.NoError(t, Codec{}.Decode([]byte(blob), &out))
	assert.Equal(t, "A+B", out.Name)
}

func TestCodecPlainJSON(t *testing.T) {
	enc, err := Codec{}.Encode(sample{Name: "x", Points: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"x","points":1}`, string(enc))

	var out sample
	require.NoError(t, Codec{Legacy: true}.Decode(enc, &out))
	assert.Equal(t, 1, out.Points)

	assert.Error(t, Codec{}.Decode([]byte("   "), &out))
	assert.Error(t, Codec{}.Decode([]byte("!!not-base64"), &out))
}
