package index

import "testing"

func TestParseKind(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Kind
		err  bool
	}{
		{in: "", want: KindBrute},
		{in: "brute", want: KindBrute},
		{in: "vptree", want: KindVPTree},
		{in: "sql", want: KindSQL},
		{in: "auto", want: KindAuto},
		{in: "cover", err: true},
	} {
		got, err := ParseKind(tc.in)
		if tc.err {
			if err == nil {
				t.Fatalf("ParseKind(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseKind(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestResolveKind(t *testing.T) {
	if got := ResolveKind(KindAuto, 10, 1024); got != KindBrute {
		t.Fatalf("small dataset: got %q", got)
	}
	if got := ResolveKind(KindAuto, 20000, 1024); got != KindVPTree {
		t.Fatalf("dense dataset: got %q", got)
	}
	if got := ResolveKind(KindAuto, 5000, 1024); got != KindBrute {
		t.Fatalf("sparse dataset: got %q", got)
	}
	if got := ResolveKind(KindSQL, 20000, 1024); got != KindSQL {
		t.Fatalf("explicit kind: got %q", got)
	}
}
