package packet

import "testing"

func TestCodecRoundTrip(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Disconnect", func() Packet { return &DisconnectPacket{} })
	codec := NewCodec(reg)

	from := NewPID()
	p := NewDisconnect(from, "bye")

	data, err := codec.Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	got, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	dp, ok := got.(*DisconnectPacket)
	if !ok {
		t.Fatalf("decoded type = %T, want *DisconnectPacket", got)
	}
	if dp.Reason != "bye" {
		t.Errorf("Reason = %q, want %q", dp.Reason, "bye")
	}
	if dp.FromPID != from {
		t.Errorf("FromPID mismatch after round trip")
	}
}

func TestCodecDecodeUnknownKind(t *testing.T) {
	reg := NewRegistry()
	reg.Register("Known", func() Packet { return &DisconnectPacket{} })
	codec := NewCodec(NewRegistry())

	other := NewCodec(reg)
	data, err := other.Encode(NewDisconnect(NewPID(), "x"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if _, err := codec.Decode(data); err == nil {
		t.Fatal("expected error decoding a kind not registered on this codec")
	}
}

func TestCodecDecodeMalformed(t *testing.T) {
	reg := NewRegistry()
	codec := NewCodec(reg)

	if _, err := codec.Decode([]byte("not msgpack")); err == nil {
		t.Fatal("expected error decoding garbage bytes")
	}
}

func TestCodecDecodeRejectsBroadcastFromPID(t *testing.T) {
	reg := NewRegistry()
	codec := NewCodec(reg)

	p := NewDisconnect(Broadcast, "bad")
	data, err := codec.Encode(p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := codec.Decode(data); err == nil {
		t.Fatal("expected error decoding a packet whose from_pid is the broadcast sentinel")
	}
}
