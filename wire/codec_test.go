package wire

import "testing"

func TestDecodeHello(t *testing.T) {
	d := Decode([]byte("10.0.0.2:HELLO:7"))
	if d.Kind != KindHello {
		t.Fatalf("want KindHello, got %v", d.Kind)
	}
	if d.Hello.IP != "10.0.0.2" || d.Hello.Seq != 7 {
		t.Errorf("unexpected hello: %+v", d.Hello)
	}
}

func TestDecodeHelloMissingSeq(t *testing.T) {
	d := Decode([]byte("10.0.0.2:HELLO"))
	if d.Kind != Invalid {
		t.Fatalf("want Invalid, got %v", d.Kind)
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	d := Decode([]byte("10.0.0.2:PING:0"))
	if d.Kind != Invalid {
		t.Fatalf("want Invalid, got %v", d.Kind)
	}
}

func TestDecodeTooFewTokens(t *testing.T) {
	d := Decode([]byte("10.0.0.2"))
	if d.Kind != Invalid {
		t.Fatalf("want Invalid, got %v", d.Kind)
	}
}

func TestDecodeDV(t *testing.T) {
	d := Decode([]byte("10.0.0.2:DV:(10.0.0.3,0):(10.0.0.4,2):"))
	if d.Kind != KindDV {
		t.Fatalf("want KindDV, got %v", d.Kind)
	}
	if d.DV.Sender != "10.0.0.2" {
		t.Errorf("unexpected sender: %q", d.DV.Sender)
	}
	want := []DVPair{{"10.0.0.3", 0}, {"10.0.0.4", 2}}
	if len(d.DV.Pairs) != len(want) {
		t.Fatalf("want %d pairs, got %d (%+v)", len(want), len(d.DV.Pairs), d.DV.Pairs)
	}
	for i, p := range want {
		if d.DV.Pairs[i] != p {
			t.Errorf("pair %d: want %+v, got %+v", i, p, d.DV.Pairs[i])
		}
	}
}

func TestDecodeDVNoTrailingColon(t *testing.T) {
	d := Decode([]byte("10.0.0.2:DV:(10.0.0.3,0)"))
	if d.Kind != KindDV {
		t.Fatalf("want KindDV, got %v", d.Kind)
	}
	if len(d.DV.Pairs) != 1 || d.DV.Pairs[0] != (DVPair{"10.0.0.3", 0}) {
		t.Errorf("unexpected pairs: %+v", d.DV.Pairs)
	}
}

func TestDecodeDVSkipsMalformedTuples(t *testing.T) {
	d := Decode([]byte("10.0.0.2:DV:(10.0.0.3,0):garbage:(10.0.0.4,2):"))
	if d.Kind != KindDV {
		t.Fatalf("want KindDV, got %v", d.Kind)
	}
	if len(d.DV.Pairs) != 2 {
		t.Fatalf("want 2 surviving pairs, got %d (%+v)", len(d.DV.Pairs), d.DV.Pairs)
	}
}

func TestDecodeDVEmpty(t *testing.T) {
	d := Decode([]byte("10.0.0.2:DV:"))
	if d.Kind != KindDV {
		t.Fatalf("want KindDV, got %v", d.Kind)
	}
	if len(d.DV.Pairs) != 0 {
		t.Errorf("want no pairs, got %+v", d.DV.Pairs)
	}
}

func TestEncodeHello(t *testing.T) {
	got := EncodeHello("10.0.0.1", 42)
	want := "10.0.0.1:HELLO:42"
	if got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}

func TestEncodeDVDedupesAndPicksBest(t *testing.T) {
	got := EncodeDV("10.0.0.1", []DVPair{
		{"X", 4}, {"X", 2}, {"Y", 5},
	})
	want := "10.0.0.1:DV:(X,2):(Y,5):"
	if got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	encoded := EncodeDV("10.0.0.1", []DVPair{{"10.0.0.3", 1}, {"10.0.0.4", 3}})
	d := Decode([]byte(encoded))
	if d.Kind != KindDV || d.DV.Sender != "10.0.0.1" || len(d.DV.Pairs) != 2 {
		t.Fatalf("round trip failed: %+v", d)
	}
}
