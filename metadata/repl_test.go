package metadata

import "testing"

func TestParseReplSourcePositionValid(t *testing.T) {
	lid, eid, ok := ParseReplSourcePosition(map[string]string{ReplSourcePositionKey: "10:5"})
	if !ok {
		t.Fatal("expected ok=true")
	}
	if lid != 10 || eid != 5 {
		t.Fatalf("got (%d, %d), want (10, 5)", lid, eid)
	}
}

func TestParseReplSourcePositionMissing(t *testing.T) {
	_, _, ok := ParseReplSourcePosition(map[string]string{})
	if ok {
		t.Fatal("expected ok=false when property absent")
	}
}

func TestParseReplSourcePositionMalformed(t *testing.T) {
	cases := []string{"", "10", "10:", ":5", "10:5:6", "a:b", "10 : 5", "-1:5", "10:-5"}
	for _, raw := range cases {
		_, _, ok := ParseReplSourcePosition(map[string]string{ReplSourcePositionKey: raw})
		if ok {
			t.Errorf("ParseReplSourcePosition(%q) = ok, want malformed", raw)
		}
	}
}

func TestIsReplicationMarker(t *testing.T) {
	cases := []struct {
		markerType int32
		want       bool
	}{
		{0, false},
		{1, true},
		{50, true},
		{99, true},
		{100, false},
		{-1, false},
	}
	for _, tc := range cases {
		if got := IsReplicationMarker(tc.markerType); got != tc.want {
			t.Errorf("IsReplicationMarker(%d) = %v, want %v", tc.markerType, got, tc.want)
		}
	}
}
