package query

import (
	"reflect"
	"testing"
	"time"
)

func TestParse_NoDirective(t *testing.T) {
	q := Parse([]string{"스타벅스", "쿠폰"}, time.UTC)
	if q.HasDirective() {
		t.Fatal("expected no directive")
	}
	want := []Token{{"스타벅스", Normal}, {"쿠폰", Normal}}
	if !reflect.DeepEqual(q.Tokens(), want) {
		t.Errorf("tokens = %v, want %v", q.Tokens(), want)
	}
	if q.Text() != "스타벅스 쿠폰" {
		t.Errorf("text = %q", q.Text())
	}
}

func TestParse_Directives(t *testing.T) {
	tests := []struct {
		name     string
		raw      []string
		dir      Directive
		valid    bool
		wantRef  time.Time
		residual []string
	}{
		{
			name: "before date", raw: []string{"이전", "2025-02-13", "쿠폰"},
			dir: Before, valid: true, wantRef: time.Date(2025, 2, 13, 0, 0, 0, 0, time.UTC),
			residual: []string{"쿠폰"},
		},
		{
			name: "after datetime", raw: []string{"이후", "2025-02-13 14:30:00"},
			dir: After, valid: true, wantRef: time.Date(2025, 2, 13, 14, 30, 0, 0, time.UTC),
		},
		{
			name: "unparseable reference", raw: []string{"이후", "내일", "영화"},
			dir: After, valid: false, residual: []string{"영화"},
		},
		{
			name: "directive only", raw: []string{"이전"},
			dir: Before, valid: false,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := Parse(tc.raw, time.UTC)
			if q.Directive() != tc.dir {
				t.Errorf("directive = %q, want %q", q.Directive(), tc.dir)
			}
			ref, ok := q.Reference()
			if ok != tc.valid {
				t.Fatalf("reference valid = %v, want %v", ok, tc.valid)
			}
			if ok && !ref.Equal(tc.wantRef) {
				t.Errorf("reference = %v, want %v", ref, tc.wantRef)
			}
			if q.InvalidReference() == tc.valid {
				t.Errorf("InvalidReference() = %v", q.InvalidReference())
			}
			if len(q.Residual()) != len(tc.residual) {
				t.Errorf("residual = %v, want %v", q.Residual(), tc.residual)
			}
		})
	}
}

func TestStripParticles(t *testing.T) {
	tests := []struct {
		in   []string
		want []string
	}{
		{[]string{"스타벅스에서"}, []string{"스타벅스"}},
		{[]string{"친구와"}, []string{"친구"}},
		{[]string{"영화를"}, []string{"영화"}},
		{[]string{"가"}, []string{"가"}}, // never stripped to empty
		{[]string{"집으로부터"}, []string{"집"}},
		{[]string{"책도만"}, []string{"책"}},         // iterates until stable
		{[]string{"서울 역에"}, []string{"서울", "역"}}, // re-split on exposed spaces
	}
	for _, tc := range tests {
		got := StripParticles(tc.in)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("StripParticles(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		in   string
		want Token
	}{
		{"2월", Token{"2", Month}},
		{"13일", Token{"13", Day}},
		{"3시", Token{"3", Time}},
		{"30분", Token{"30", Time}},
		{"10초", Token{"10", Time}},
		{"서울에서의", Token{"서울", Location}},
		{"부산까지", Token{"부산", Location}},
		{"강남으로", Token{"강남", Location}},
		{"토요일", Token{"토요일", Normal}},
		{"시", Token{"시", Normal}},
		{"쿠폰", Token{"쿠폰", Normal}},
	}
	for _, tc := range tests {
		if got := Classify(tc.in); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParse_TypedTokens(t *testing.T) {
	q := Parse([]string{"2월", "13일에", "메가박스"}, time.UTC)
	want := []Token{{"2", Month}, {"13", Day}, {"메가박스", Normal}}
	if !reflect.DeepEqual(q.Tokens(), want) {
		t.Errorf("tokens = %v, want %v", q.Tokens(), want)
	}
}
