package model

import "testing"

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		minutes uint32
		want    string
	}{
		{0, "0 minutes"},
		{1, "1 minute"},
		{45, "45 minutes"},
		{60, "1 hour"},
		{61, "1 hour and 1 minute"},
		{90, "1 hour and 30 minutes"},
		{120, "2 hours"},
		{240, "4 hours"},
		{151, "2 hours and 31 minutes"},
	}
	for _, c := range cases {
		if got := FormatDuration(c.minutes); got != c.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", c.minutes, got, c.want)
		}
	}
}

func TestUserFullName(t *testing.T) {
	u := User{Email: "ana@example.com", FirstName: "Ana", LastName: "Souza"}
	if got := u.FullName(); got != "Ana Souza" {
		t.Errorf("FullName() = %q, want %q", got, "Ana Souza")
	}
	u.LastName = ""
	if got := u.FullName(); got != "Ana" {
		t.Errorf("FullName() = %q, want %q", got, "Ana")
	}
	u.FirstName = ""
	if got := u.FullName(); got != "ana@example.com" {
		t.Errorf("FullName() = %q, want email fallback", got)
	}
}
