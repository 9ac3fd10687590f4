package packet

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec encodes and decodes the tagged envelope described in spec.md §4.1:
// a single top-level map with exactly one key (the kind tag) whose value is
// the flat field map (envelope fields inlined alongside kind-specific
// fields). It is the direct Go counterpart of
// original_source/netbound/packet.py's MessagePack serialize/deserialize —
// same wire shape, same library family, just ported.
type Codec struct {
	registry *Registry
}

// NewCodec builds a codec bound to registry. The codec never mutates the
// registry; lookups happen at decode time.
func NewCodec(registry *Registry) *Codec {
	return &Codec{registry: registry}
}

// Encode produces `{ kind_tag: payload }` as MessagePack bytes.
func (c *Codec) Encode(p Packet) ([]byte, error) {
	wire := map[string]Packet{p.Kind(): p}
	b, err := msgpack.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("packet: encode %s: %w", p.Kind(), err)
	}
	return b, nil
}

// Decode parses bytes into a typed Packet. It never returns an error other
// than (wrapping) ErrMalformed or ErrUnknown, per spec.md §4.1.
func (c *Codec) Decode(data []byte) (Packet, error) {
	var outer map[string]msgpack.RawMessage
	if err := msgpack.Unmarshal(data, &outer); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(outer) == 0 {
		return nil, fmt.Errorf("%w: empty envelope", ErrMalformed)
	}
	if len(outer) != 1 {
		return nil, fmt.Errorf("%w: envelope must have exactly one kind key, got %d", ErrMalformed, len(outer))
	}

	var tag string
	var raw msgpack.RawMessage
	for k, v := range outer {
		tag, raw = k, v
	}

	factory, ok := c.registry.Lookup(tag)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknown, tag)
	}

	p := factory()
	if err := msgpack.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("%w: payload for %q: %v", ErrMalformed, tag, err)
	}
	if p.GetEnvelope().FromPID == Broadcast {
		return nil, fmt.Errorf("%w: from_pid must not be the broadcast sentinel", ErrMalformed)
	}
	return p, nil
}
