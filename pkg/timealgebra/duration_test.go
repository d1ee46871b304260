package timealgebra

import "testing"

func TestParseSeconds(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"0", 0, false},
		{"30s", 30, false},
		{"2m30s", 150, false},
		{"1h", 3600, false},
		{"1d2h3m4s", 93784, false},
		{"", 0, false},
		{"abc", 0, true},
		{"5mx", 0, true},
	}

	for _, c := range cases {
		got, err := ParseSeconds(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseSeconds(%q): expected error, got %d", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSeconds(%q): unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("ParseSeconds(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestFormat(t *testing.T) {
	cases := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{30, "30s"},
		{150, "2m30s"},
		{3600, "1h"},
		{93784, "1d2h3m4s"},
	}
	for _, c := range cases {
		if got := Format(c.in); got != c.want {
			t.Errorf("Format(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, seconds := range []int{0, 1, 59, 60, 61, 3661, 90061} {
		formatted := Format(seconds)
		parsed, err := ParseSeconds(formatted)
		if err != nil {
			t.Fatalf("ParseSeconds(%q): %v", formatted, err)
		}
		if parsed != seconds {
			t.Errorf("round trip %d -> %q -> %d", seconds, formatted, parsed)
		}
	}
}
