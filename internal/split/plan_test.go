package split

import (
	"errors"
	"reflect"
	"testing"
)

func TestPlan_FourSegments(t *testing.T) {
	segments, err := Plan([]string{"1:30", "3:45", "5:20"}, 600, "output", ".mp4")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	want := []Segment{
		{Start: 0, End: 90, HasEnd: true, Index: 1, OutputName: "output_segment_1.mp4"},
		{Start: 90, End: 225, HasEnd: true, Index: 2, OutputName: "output_segment_2.mp4"},
		{Start: 225, End: 320, HasEnd: true, Index: 3, OutputName: "output_segment_3.mp4"},
		{Start: 320, Index: 4, OutputName: "output_segment_4.mp4"},
	}
	if !reflect.DeepEqual(segments, want) {
		t.Errorf("Plan() = %+v, want %+v", segments, want)
	}
}

func TestPlan_OrderIndependent(t *testing.T) {
	sorted, err := Plan([]string{"1:30", "3:45", "5:20"}, 600, "output", ".mp4")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	shuffled, err := Plan([]string{"3:45", "5:20", "1:30"}, 600, "output", ".mp4")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !reflect.DeepEqual(sorted, shuffled) {
		t.Errorf("input order changed the plan:\n%+v\n%+v", sorted, shuffled)
	}
}

func TestPlan_DuplicateZeroCollapses(t *testing.T) {
	segments, err := Plan([]string{"0", "90"}, 600, "output", ".mp4")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("Plan() produced %d segments, want 2", len(segments))
	}
	if segments[0].Start != 0 || segments[0].End != 90 {
		t.Errorf("first segment = %+v, want [0,90)", segments[0])
	}
	if segments[1].Start != 90 || segments[1].HasEnd {
		t.Errorf("last segment = %+v, want open end from 90", segments[1])
	}
}

func TestPlan_DuplicateCutPoints(t *testing.T) {
	segments, err := Plan([]string{"90", "1:30", "0:90"}, 600, "output", ".mp4")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("duplicates did not collapse: %d segments", len(segments))
	}
}

func TestPlan_NoCutPoints(t *testing.T) {
	segments, err := Plan(nil, 600, "output", ".mp4")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(segments) != 1 {
		t.Fatalf("Plan(nil) produced %d segments, want 1", len(segments))
	}
	seg := segments[0]
	if seg.Start != 0 || seg.HasEnd || seg.Index != 1 {
		t.Errorf("whole-media segment = %+v", seg)
	}
	if seg.OutputName != "output_segment_1.mp4" {
		t.Errorf("OutputName = %q", seg.OutputName)
	}
}

func TestPlan_OutOfRange(t *testing.T) {
	tests := []struct {
		name       string
		timestamps []string
	}{
		{name: "past the end", timestamps: []string{"700"}},
		{name: "exactly the end", timestamps: []string{"600"}},
		{name: "one good one bad", timestamps: []string{"90", "700"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Plan(tc.timestamps, 600, "output", ".mp4")
			if !errors.Is(err, ErrTimestampOutOfRange) {
				t.Errorf("Plan(%v) error = %v, want ErrTimestampOutOfRange", tc.timestamps, err)
			}
		})
	}
}

func TestPlan_UnknownDurationSkipsRangeCheck(t *testing.T) {
	segments, err := Plan([]string{"700"}, 0, "output", ".mp4")
	if err != nil {
		t.Fatalf("Plan() with unknown duration error = %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("Plan() produced %d segments, want 2", len(segments))
	}
}

func TestPlan_InvalidTimestampPropagates(t *testing.T) {
	_, err := Plan([]string{"90", "abc"}, 600, "output", ".mp4")
	if !errors.Is(err, ErrInvalidTimestamp) {
		t.Errorf("Plan() error = %v, want ErrInvalidTimestamp", err)
	}
}

// A NaN cut-point compares false against everything, so it would survive
// dedup, sort arbitrarily and slip past the range check, yielding a
// segment with a NaN start. It must be rejected at parse time instead.
func TestPlan_NonFiniteTimestampRejected(t *testing.T) {
	for _, timestamps := range [][]string{
		{"nan", "30"},
		{"inf"},
		{"90", "+Inf"},
	} {
		if _, err := Plan(timestamps, 600, "output", ".mp4"); !errors.Is(err, ErrInvalidTimestamp) {
			t.Errorf("Plan(%v) error = %v, want ErrInvalidTimestamp", timestamps, err)
		}
	}
}

func TestPlan_CoverageAndOrdering(t *testing.T) {
	cases := [][]string{
		{"10", "20", "30"},
		{"5:20", "1:30", "3:45"},
		{"0.5", "1.25", "599"},
		{},
	}

	for _, raw := range cases {
		segments, err := Plan(raw, 600, "p", ".mkv")
		if err != nil {
			t.Fatalf("Plan(%v) error = %v", raw, err)
		}

		if segments[0].Start != 0 {
			t.Errorf("Plan(%v) does not start at 0: %+v", raw, segments[0])
		}
		last := segments[len(segments)-1]
		if last.HasEnd {
			t.Errorf("Plan(%v) final segment has numeric end: %+v", raw, last)
		}

		for i := range segments {
			if segments[i].Index != i+1 {
				t.Errorf("Plan(%v) segment %d has index %d", raw, i, segments[i].Index)
			}
			if i == 0 {
				continue
			}
			prev := segments[i-1]
			if !prev.HasEnd || prev.End != segments[i].Start {
				t.Errorf("Plan(%v) gap or overlap between %+v and %+v", raw, prev, segments[i])
			}
			if prev.Start >= segments[i].Start {
				t.Errorf("Plan(%v) not strictly ascending at %d", raw, i)
			}
		}
	}
}

func TestPlan_Idempotent(t *testing.T) {
	first, err := Plan([]string{"1:00", "2:00"}, 300, "take", ".mov")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	second, err := Plan([]string{"1:00", "2:00"}, 300, "take", ".mov")
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated planning diverged:\n%+v\n%+v", first, second)
	}
}

func TestSegmentDuration(t *testing.T) {
	bounded := Segment{Start: 90, End: 225, HasEnd: true}
	if d := bounded.Duration(600); d != 135 {
		t.Errorf("bounded Duration = %v, want 135", d)
	}

	open := Segment{Start: 320}
	if d := open.Duration(600); d != 280 {
		t.Errorf("open Duration with known total = %v, want 280", d)
	}
	if d := open.Duration(0); d != 0 {
		t.Errorf("open Duration with unknown total = %v, want 0", d)
	}
}
