package metrics

import "testing"

func TestComputeWPM(t *testing.T) {
	cases := []struct {
		name    string
		correct int
		elapsed float64
		want    int
	}{
		{"one word one minute", 5, 60, 1},
		{"two chars two seconds", 2, 2, 12},
		{"zero elapsed", 50, 0, 0},
		{"negative elapsed", 50, -3, 0},
		{"nothing correct", 0, 30, 0},
		{"unclamped burst", 500, 0.5, 12000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ComputeWPM(tc.correct, tc.elapsed); got != tc.want {
				t.Fatalf("ComputeWPM(%d, %v) = %d, want %d", tc.correct, tc.elapsed, got, tc.want)
			}
		})
	}
}

func TestComputeWPMNonPositiveElapsedIsZero(t *testing.T) {
	for correct := 0; correct < 200; correct += 7 {
		for _, elapsed := range []float64{0, -0.001, -1, -60} {
			if got := ComputeWPM(correct, elapsed); got != 0 {
				t.Fatalf("ComputeWPM(%d, %v) = %d, want 0", correct, elapsed, got)
			}
		}
	}
}

func TestComputeAccuracy(t *testing.T) {
	cases := []struct {
		typed, correct, want int
	}{
		{0, 0, 100},
		{10, 10, 100},
		{20, 10, 50},
		{3, 2, 67},
		{3, 0, 0},
	}
	for _, tc := range cases {
		if got := ComputeAccuracy(tc.typed, tc.correct); got != tc.want {
			t.Fatalf("ComputeAccuracy(%d, %d) = %d, want %d", tc.typed, tc.correct, got, tc.want)
		}
	}
}

func TestComputeAccuracyBounds(t *testing.T) {
	for typed := 0; typed <= 60; typed++ {
		for correct := 0; correct <= typed; correct++ {
			got := ComputeAccuracy(typed, correct)
			if got < 0 || got > 100 {
				t.Fatalf("ComputeAccuracy(%d, %d) = %d out of range", typed, correct, got)
			}
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := map[int]string{
		0:   "0s",
		5:   "5s",
		59:  "59s",
		60:  "1:00",
		65:  "1:05",
		125: "2:05",
	}
	for in, want := range cases {
		if got := FormatDuration(in); got != want {
			t.Fatalf("FormatDuration(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestCountCorrect(t *testing.T) {
	if got := CountCorrect([]rune("abc"), []rune("axc")); got != 2 {
		t.Fatalf("expected 2 correct, got %d", got)
	}
	if got := CountCorrect([]rune("ab"), []rune("")); got != 0 {
		t.Fatalf("expected 0 correct, got %d", got)
	}
}

func TestGrade(t *testing.T) {
	cases := []struct {
		wpm, acc int
		want     string
	}{
		{85, 96, "Excellent!"},
		{85, 91, "Great!"},
		{45, 86, "Good"},
		{45, 80, "Keep Practicing"},
	}
	for _, tc := range cases {
		if got := Grade(tc.wpm, tc.acc); got != tc.want {
			t.Fatalf("Grade(%d, %d) = %q, want %q", tc.wpm, tc.acc, got, tc.want)
		}
	}
}
