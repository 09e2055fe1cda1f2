package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("抹茶ラテとどら焼き", 4); got != "抹茶ラテ..." {
		t.Errorf("multibyte truncate got %s", got)
	}
}

func TestParseIntList(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"1,4,8", []int{1, 4, 8}, false},
		{" 1, 4 ,, 8 ", []int{1, 4, 8}, false},
		{"", nil, false},
		{"1,x", nil, true},
	}
	for _, tt := range tests {
		got, err := ParseIntList(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseIntList(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParseIntList(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseIntList(%q) = %v, want %v", tt.in, got, tt.want)
			}
		}
	}
}
