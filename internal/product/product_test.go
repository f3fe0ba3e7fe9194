package product

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestCodec_RoundTrip(t *testing.T) {
	products := []Product{
		{ID: "P1", Title: "Boat", PassengerCapacity: 4, MaximumSpeed: 30, InStock: 10, Available: true},
		{ID: "P2", Title: "Sloop: blue", PassengerCapacity: 0, MaximumSpeed: 0, InStock: -3, Available: false},
		{ID: "a:b", Title: "", PassengerCapacity: 1 << 20, MaximumSpeed: 12, InStock: 0, Available: true},
	}

	for _, p := range products {
		got, err := Decode(Encode(p))
		if err != nil {
			t.Fatalf("decode %q: %v", p.ID, err)
		}
		if got != p {
			t.Fatalf("round trip: got %+v want %+v", got, p)
		}
	}
}

func TestEncode_BooleanLiterals(t *testing.T) {
	on := Encode(Product{ID: "x", Available: true})
	if on[FieldAvailable] != "True" {
		t.Fatalf("available=%q", on[FieldAvailable])
	}
	off := Encode(Product{ID: "x"})
	if off[FieldAvailable] != "False" {
		t.Fatalf("available=%q", off[FieldAvailable])
	}
}

func TestDecode_AvailableIsLiteral(t *testing.T) {
	fields := Encode(Product{ID: "x", Title: "t", Available: true})
	fields[FieldAvailable] = "true"

	p, err := Decode(fields)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Available {
		t.Fatalf("lowercase true must not decode as available")
	}
}

func TestDecode_MissingAvailableMeansAvailable(t *testing.T) {
	fields := Encode(Product{ID: "x", Title: "t"})
	delete(fields, FieldAvailable)

	p, err := Decode(fields)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !p.Available {
		t.Fatalf("expected available")
	}
}

func TestDecode_Corrupt(t *testing.T) {
	full := Encode(Product{ID: "x", Title: "t", InStock: 1, Available: true})

	cases := map[string]map[string]string{
		"stock only":      {FieldInStock: "-4"},
		"missing title":   without(full, FieldTitle),
		"missing speed":   without(full, FieldMaximumSpeed),
		"non numeric cap": with(full, FieldPassengerCapacity, "four"),
		"empty stock":     with(full, FieldInStock, ""),
	}

	for name, fields := range cases {
		_, err := Decode(fields)
		if !errors.Is(err, ErrCorruptRecord) {
			t.Fatalf("%s: err=%v", name, err)
		}
		if KindOf(err) != KindCorruptRecord {
			t.Fatalf("%s: kind=%s", name, KindOf(err))
		}
	}
}

func TestKey(t *testing.T) {
	if Key("P1") != "products:P1" {
		t.Fatalf("key=%s", Key("P1"))
	}
	if KeyPattern != "products:*" {
		t.Fatalf("pattern=%s", KeyPattern)
	}
}

func TestInput_Validate(t *testing.T) {
	var in Input
	raw := `{"id":" P1 ","title":"Boat","passenger_capacity":"4","maximum_speed":30,"in_stock":10}`
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	p, err := in.Validate()
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := Product{ID: "P1", Title: "Boat", PassengerCapacity: 4, MaximumSpeed: 30, InStock: 10}
	if p != want {
		t.Fatalf("got %+v want %+v", p, want)
	}
}

func TestInput_ValidateRejects(t *testing.T) {
	cases := map[string]string{
		"id":                 `{"title":"Boat","passenger_capacity":4,"maximum_speed":30,"in_stock":10}`,
		"title":              `{"id":"P1","title":"  ","passenger_capacity":4,"maximum_speed":30,"in_stock":10}`,
		"passenger_capacity": `{"id":"P1","title":"Boat","passenger_capacity":-1,"maximum_speed":30,"in_stock":10}`,
		"maximum_speed":      `{"id":"P1","title":"Boat","passenger_capacity":4,"in_stock":10}`,
		"in_stock":           `{"id":"P1","title":"Boat","passenger_capacity":4,"maximum_speed":30}`,
	}

	for field, raw := range cases {
		var in Input
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			t.Fatalf("%s: unmarshal: %v", field, err)
		}
		_, err := in.Validate()

		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: err=%v", field, err)
		}
		if ve.Field != field {
			t.Fatalf("field=%s want %s", ve.Field, field)
		}
		if !errors.Is(err, ErrValidation) || KindOf(err) != KindValidation {
			t.Fatalf("%s: not classified as validation: %v", field, err)
		}
	}
}

func TestFlexInt_RejectsGarbage(t *testing.T) {
	var in Input
	err := json.Unmarshal([]byte(`{"id":"P1","title":"Boat","passenger_capacity":"four"}`), &in)
	if err == nil {
		t.Fatalf("expected unmarshal error")
	}
}

func TestFromProduct_Validates(t *testing.T) {
	p := Product{ID: "P9", Title: "Ferry", PassengerCapacity: 200, MaximumSpeed: 18, InStock: 2}
	got, err := FromProduct(p).Validate()
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != p {
		t.Fatalf("got %+v want %+v", got, p)
	}
}

func TestKindOf_Unknown(t *testing.T) {
	if KindOf(errors.New("dial tcp: refused")) != KindUnknown {
		t.Fatalf("infrastructure errors must stay unclassified")
	}
}

func without(m map[string]string, k string) map[string]string {
	out := make(map[string]string, len(m))
	for kk, v := range m {
		if kk != k {
			out[kk] = v
		}
	}
	return out
}

func with(m map[string]string, k, v string) map[string]string {
	out := without(m, k)
	out[k] = v
	return out
}
