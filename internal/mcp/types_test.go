package mcp

import "testing"

func TestNormalizeID(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"u1", "u1", true},
		{"  u1  ", "u1", true},
		{"", "", false},
		{"   ", "", false},
		{"a/b", "", false},
		{`a\b`, "", false},
		{".", "", false},
		{"..", "", false},
	}
	for _, tc := range cases {
		got, err := normalizeID("user_id", tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Errorf("normalizeID(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
			continue
		}
		if err == nil {
			t.Errorf("normalizeID(%q) should fail", tc.in)
		}
	}
}
