package graph

import "testing"

func TestParseDataType(t *testing.T) {
	cases := []struct {
		name string
		want DataType
	}{
		{"uint8", DataType{UInt, 8}},
		{"uint13", DataType{UInt, 13}},
		{"int32", DataType{Int, 32}},
		{"int1", DataType{Int, 1}},
		{"float16", DataType{Float, 16}},
		{"float32", DataType{Float, 32}},
		{"float64", DataType{Float, 64}},
	}
	for _, c := range cases {
		got, err := ParseDataType(c.name)
		if err != nil {
			t.Fatalf("ParseDataType(%q): %v", c.name, err)
		}
		if got != c.want {
			t.Fatalf("ParseDataType(%q) = %v, want %v", c.name, got, c.want)
		}
		if got.String() != c.name {
			t.Fatalf("%v.String() = %q, want %q", got, got.String(), c.name)
		}
	}

	for _, name := range []string{"", "uint", "uint0", "int-3", "float8", "float33", "double", "u8"} {
		if _, err := ParseDataType(name); err == nil {
			t.Fatalf("ParseDataType(%q) should have failed", name)
		}
	}
}

func TestAcceptsFrom(t *testing.T) {
	u8 := DataType{UInt, 8}
	u9 := DataType{UInt, 9}
	i8 := DataType{Int, 8}

	if !u9.AcceptsFrom(u8) {
		t.Fatal("widening within a kind must be accepted")
	}
	if !u8.AcceptsFrom(u8) {
		t.Fatal("identical types must be accepted")
	}
	if u8.AcceptsFrom(u9) {
		t.Fatal("narrowing must be rejected")
	}
	if i8.AcceptsFrom(u8) || u8.AcceptsFrom(i8) {
		t.Fatal("kinds must match exactly")
	}
}
