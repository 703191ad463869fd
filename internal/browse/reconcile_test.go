package browse

import (
	"slices"
	"testing"
)

func TestReconcile(t *testing.T) {
	cases := []struct {
		name   string
		active []int64
		dead   []int64
		want   []int64
	}{
		{name: "drops dead-lettered", active: []int64{1, 2, 3, 4}, dead: []int64{2, 4, 9}, want: []int64{1, 3}},
		{name: "no overlap", active: []int64{1, 2}, dead: []int64{5}, want: []int64{1, 2}},
		{name: "empty dead-letter", active: []int64{1, 2}, want: []int64{1, 2}},
		{name: "empty active", dead: []int64{1}, want: []int64{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dead := msgs(tc.dead...)
			deadBefore := slices.Clone(dead)

			got := Reconcile(msgs(tc.active...), dead)
			if !slices.Equal(seqsOf(got), tc.want) {
				t.Fatalf("got %v, want %v", seqsOf(got), tc.want)
			}
			if !slices.Equal(dead, deadBefore) {
				t.Fatalf("dead-letter input was modified")
			}
			again := Reconcile(got, dead)
			if !slices.Equal(seqsOf(again), tc.want) {
				t.Fatalf("not idempotent: %v", seqsOf(again))
			}
		})
	}
}
