package domain

import (
	"errors"
	"testing"
)

func TestProbeRequest_WithDefaults(t *testing.T) {
	got := ProbeRequest{Host: "  example.com "}.WithDefaults()
	if got.Host != "example.com" {
		t.Fatalf("host not trimmed: %q", got.Host)
	}
	if got.TimeoutMS != 1000 || got.PacketSizeBytes != 32 || got.DurationMS != 60000 {
		t.Fatalf("defaults wrong: %+v", got)
	}

	kept := ProbeRequest{Host: "h", TimeoutMS: 200, PacketSizeBytes: 64, DurationMS: 5000}.WithDefaults()
	if kept.TimeoutMS != 200 || kept.PacketSizeBytes != 64 || kept.DurationMS != 5000 {
		t.Fatalf("explicit values overwritten: %+v", kept)
	}
}

func TestProbeRequest_Validate(t *testing.T) {
	b := DefaultBounds()
	ok := ProbeRequest{Host: "8.8.8.8", TimeoutMS: 1000, PacketSizeBytes: 32, DurationMS: 60000}

	cases := []struct {
		name  string
		mut   func(r *ProbeRequest)
		field string
	}{
		{"valid", func(r *ProbeRequest) {}, ""},
		{"hostname", func(r *ProbeRequest) { r.Host = "example.com" }, ""},
		{"ipv6", func(r *ProbeRequest) { r.Host = "::1" }, ""},
		{"empty host", func(r *ProbeRequest) { r.Host = "" }, "host"},
		{"flag host", func(r *ProbeRequest) { r.Host = "-c100" }, "host"},
		{"spaces", func(r *ProbeRequest) { r.Host = "a b" }, "host"},
		{"timeout low", func(r *ProbeRequest) { r.TimeoutMS = 99 }, "timeoutMs"},
		{"timeout high", func(r *ProbeRequest) { r.TimeoutMS = 5001 }, "timeoutMs"},
		{"timeout edge", func(r *ProbeRequest) { r.TimeoutMS = 5000 }, ""},
		{"packet low", func(r *ProbeRequest) { r.PacketSizeBytes = 31 }, "packetSizeBytes"},
		{"packet high", func(r *ProbeRequest) { r.PacketSizeBytes = 65508 }, "packetSizeBytes"},
		{"duration low", func(r *ProbeRequest) { r.DurationMS = 999 }, "durationMs"},
		{"duration high", func(r *ProbeRequest) { r.DurationMS = 3600001 }, "durationMs"},
	}
	for _, c := range cases {
		r := ok
		c.mut(&r)
		err := r.Validate(b)
		if c.field == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", c.name, err)
			}
			continue
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: want ValidationError, got %v", c.name, err)
		}
		if ve.Field != c.field {
			t.Fatalf("%s: want field %q, got %q", c.name, c.field, ve.Field)
		}
	}
}
