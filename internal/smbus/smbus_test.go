package smbus

import (
	"strings"
	"testing"
)

func TestRequestValidate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"quick", Request{Addr: 0x10, RW: Write, Kind: Quick}, false},
		{"quick with payload", Request{Addr: 0x10, RW: Write, Kind: Quick, Data: []byte{1}}, true},
		{"byte write", Request{Addr: 0x10, RW: Write, Command: 0x42, Kind: Byte}, false},
		{"byte write with payload", Request{Addr: 0x10, RW: Write, Kind: Byte, Data: []byte{1}}, true},
		{"byte-data write", Request{Addr: 0x10, RW: Write, Kind: ByteData, Data: []byte{1}}, false},
		{"byte-data write short", Request{Addr: 0x10, RW: Write, Kind: ByteData}, true},
		{"byte-data read", Request{Addr: 0x10, RW: Read, Kind: ByteData}, false},
		{"byte-data read with payload", Request{Addr: 0x10, RW: Read, Kind: ByteData, Data: []byte{1}}, true},
		{"word write", Request{Addr: 0x10, RW: Write, Kind: WordData, Data: []byte{1, 2}}, false},
		{"word write short", Request{Addr: 0x10, RW: Write, Kind: WordData, Data: []byte{1}}, true},
		{"block write oversize ok", Request{Addr: 0x10, RW: Write, Kind: BlockData, Data: make([]byte, 40)}, false},
		{"unknown kind", Request{Addr: 0x10, RW: Write, Kind: Kind(9)}, true},
		{"bad direction", Request{Addr: 0x10, RW: RW(3), Kind: Quick}, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{
		"quick":      Quick,
		"byte":       Byte,
		"byte-data":  ByteData,
		"word_data":  WordData,
		"BLOCK-DATA": BlockData,
	} {
		got, err := ParseKind(in)
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseKind(%q): got %v want %v", in, got, want)
		}
	}
	if _, err := ParseKind("proc-call"); err == nil {
		t.Fatalf("ParseKind accepted proc-call")
	}
}

func TestCapabilityString(t *testing.T) {
	caps := CapQuick | CapWordData
	s := caps.String()
	if !strings.Contains(s, "quick") || !strings.Contains(s, "word-data") {
		t.Fatalf("capability string %q missing flags", s)
	}
	if Capability(0).String() != "none" {
		t.Fatalf("zero capability: got %q want none", Capability(0).String())
	}
	if !caps.Has(CapQuick) {
		t.Fatalf("Has(CapQuick) false")
	}
	if caps.Has(CapBlockData) {
		t.Fatalf("Has(CapBlockData) true")
	}
}

type nopAdapter struct{}

func (nopAdapter) Perform(Request) ([]byte, error) { return nil, nil }
func (nopAdapter) Capabilities() Capability        { return CapQuick }

func TestRegistry(t *testing.T) {
	const name = "test adapter"
	if err := Register(name, nopAdapter{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	defer Unregister(name)

	if err := Register(name, nopAdapter{}); err == nil {
		t.Fatalf("duplicate registration succeeded")
	}
	if _, ok := Lookup(name); !ok {
		t.Fatalf("lookup failed after register")
	}
	found := false
	for _, n := range Names() {
		if n == name {
			found = true
		}
	}
	if !found {
		t.Fatalf("Names() missing %q: %v", name, Names())
	}

	Unregister(name)
	if _, ok := Lookup(name); ok {
		t.Fatalf("lookup succeeded after unregister")
	}
}
