package parser

import "testing"

func TestNormalizeQuickRef(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"web-42", "WEB-42", false},
		{" OPS2-7 ", "OPS2-7", false},
		{"", "", false},
		{"42", "", true},
		{"web_42", "", true},
		{"-42", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeQuickRef(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeQuickRef(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeQuickRef(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsQuickRef(t *testing.T) {
	if !IsQuickRef("abc-1") {
		t.Error("abc-1 should be a quick ref")
	}
	for _, s := range []string{"", "abc", "12"} {
		if IsQuickRef(s) {
			t.Errorf("%q should not be a quick ref", s)
		}
	}
}
