package cachedec

import (
	"bytes"
	"encoding/gob"

	"github.com/cockroachdb/errors"
)

// GobCodec is the default Codec for byte-oriented cache bases.
type GobCodec struct{}

func (GobCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&v); err != nil {
		return nil, errors.Wrap(err, "cachedec: gob encode")
	}
	return buf.Bytes(), nil
}

func (GobCodec) Decode(b []byte) (any, error) {
	var v any
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
		return nil, errors.Wrap(err, "cachedec: gob decode")
	}
	return v, nil
}
