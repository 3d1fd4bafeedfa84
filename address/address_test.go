package address

import "testing"

func TestServiceAddressRoundTrip(t *testing.T) {
	var chanID [ChannelIDLen]byte
	for i := range chanID {
		chanID[i] = byte(i)
	}

	cases := []ServiceAddress{
		Loopback,
		Supervisor,
		Gossip,
		Router,
		Peer("1.2.3.4:9735"),
		Channel(chanID),
		Foreign("unknown-daemon"),
	}

	for _, a := range cases {
		encoded := EncodeBytes(a)
		decoded, err := DecodeBytes(encoded)
		if err != nil {
			t.Fatalf("decode(%s): %v", a, err)
		}
		if !decoded.Equal(a) {
			t.Fatalf("round trip mismatch: got %s, want %s", decoded, a)
		}
	}
}

func TestAsBytesRoundTrip(t *testing.T) {
	var chanID [ChannelIDLen]byte
	for i := range chanID {
		chanID[i] = byte(i + 1)
	}

	cases := []ServiceAddress{
		Loopback,
		Supervisor,
		Gossip,
		Router,
		Channel(chanID),
		Peer("10.0.0.1:9735"),
	}

	for _, a := range cases {
		got := FromBytes(a.AsBytes())
		if !got.Equal(a) {
			t.Fatalf("FromBytes(AsBytes(%s)) = %s, want %s", a, got, a)
		}
	}
}

func TestFromBytesFallsBackToForeign(t *testing.T) {
	got := FromBytes([]byte("some-other-service"))
	if got.Kind != KindForeign || got.Name != "some-other-service" {
		t.Fatalf("expected Foreign, got %#v", got)
	}
}

func TestFromBytesChannelByLength(t *testing.T) {
	raw := make([]byte, ChannelIDLen)
	for i := range raw {
		raw[i] = byte(i)
	}
	got := FromBytes(raw)
	if got.Kind != KindChannel {
		t.Fatalf("expected Channel for 32-byte input, got %s", got)
	}
}

func TestIsNodeEndpoint(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"1.2.3.4:9735", true},
		{"example.com:9735", true},
		{"not-an-endpoint", false},
		{"", false},
		{"channel", false},
	}
	for _, tc := range tests {
		if got := IsNodeEndpoint(tc.in); got != tc.want {
			t.Errorf("IsNodeEndpoint(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
