package main

import (
	"reflect"
	"testing"
)

func TestParseSteps(t *testing.T) {
	tests := []struct {
		in      string
		want    []float64
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "-150,-300", want: []float64{-150, -300}},
		{in: " -100 , 20.5 ", want: []float64{-100, 20.5}},
		{in: "-100,,", wantErr: true},
		{in: "up", wantErr: true},
	}
	for _, tt := range tests {
		got, err := parseSteps(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseSteps(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSteps(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("parseSteps(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOrDash(t *testing.T) {
	if got := orDash(""); got != "-" {
		t.Errorf("orDash(\"\") = %q", got)
	}
	if got := orDash("HOME"); got != "HOME" {
		t.Errorf("orDash(HOME) = %q", got)
	}
}
