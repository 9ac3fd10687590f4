package packet

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeMsgpack writes p as a raw 16-byte binary value rather than letting
// msgpack reflect over the [16]byte array element-by-element. Required for
// spec.md §4.1's "Identifier fields inside the payload are encoded as raw
// bytes (no base64 on the wire)" to hold exactly, rather than depending on
// the library's default handling of fixed-size byte arrays.
func (p PID) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeBytes(p[:])
}

// DecodeMsgpack reads the raw-bytes form written by EncodeMsgpack.
func (p *PID) DecodeMsgpack(dec *msgpack.Decoder) error {
	b, err := dec.DecodeBytes()
	if err != nil {
		return err
	}
	if len(b) != len(p) {
		return fmt.Errorf("packet: PID must be %d bytes, got %d", len(p), len(b))
	}
	copy(p[:], b)
	return nil
}
