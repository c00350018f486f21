package transport

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Living Room Speaker", "living_room_speaker"},
		{"  Kitchen!!  ", "kitchen"},
		{"Office (Desk)", "office_desk"},
		{"___leading", "leading"},
		{"trailing___", "trailing"},
		{"Already_Snake_Case", "already_snake_case"},
		{"a--b--c", "a_b_c"},
	}
	for _, c := range cases {
		if got := slugify(c.in); got != c.want {
			t.Errorf("slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
