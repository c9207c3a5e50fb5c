package memory

import (
	"testing"
)

func TestWeightedScore(t *testing.T) {
	tests := []struct {
		name        string
		newestFirst []float64
		want        float64
	}{
		{"empty", nil, 0},
		{"single", []float64{80}, 80},
		{"uniform", []float64{70, 70, 70}, 70},
		// weights 1 and 0.85: 100/1.85 = 54.05 -> 54
		{"newest dominates", []float64{100, 0}, 54},
		{"oldest fades", []float64{0, 100}, 46},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WeightedScore(tt.newestFirst); got != tt.want {
				t.Errorf("WeightedScore(%v) = %v, want %v", tt.newestFirst, got, tt.want)
			}
		})
	}
}

func TestComputeTrend(t *testing.T) {
	tests := []struct {
		name        string
		newestFirst []float64
		want        string
	}{
		{"empty", nil, TrendStable},
		{"too few points even when swinging", []float64{95, 10, 12}, TrendStable},
		{"improving", []float64{90, 90, 50, 50}, TrendImproving},
		{"declining", []float64{50, 50, 90, 90}, TrendDeclining},
		{"within threshold", []float64{72, 70, 68, 69}, TrendStable},
		{"odd length splits short recent half", []float64{80, 80, 60, 60, 60}, TrendImproving},
		{"exactly at threshold stays stable", []float64{75, 75, 70, 70}, TrendStable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeTrend(tt.newestFirst); got != tt.want {
				t.Errorf("ComputeTrend(%v) = %q, want %q", tt.newestFirst, got, tt.want)
			}
		})
	}
}

func TestNormalizers(t *testing.T) {
	if got := inverseCount(0, 5); got != 100 {
		t.Errorf("inverseCount(0, 5) = %v, want 100", got)
	}
	if got := inverseCount(5, 5); got != 0 {
		t.Errorf("inverseCount(5, 5) = %v, want 0", got)
	}
	if got := inverseCount(10, 5); got != 0 {
		t.Errorf("inverseCount(10, 5) = %v, want 0 (clamped)", got)
	}
	if got := countScore(5, 10); got != 50 {
		t.Errorf("countScore(5, 10) = %v, want 50", got)
	}
	if got := countScore(20, 10); got != 100 {
		t.Errorf("countScore(20, 10) = %v, want 100 (clamped)", got)
	}
	if got := talkRatioScore(50); got != 100 {
		t.Errorf("talkRatioScore(50) = %v, want 100", got)
	}
	if got := talkRatioScore(60); got != 75 {
		t.Errorf("talkRatioScore(60) = %v, want 75", got)
	}
	if got := talkRatioScore(95); got != 0 {
		t.Errorf("talkRatioScore(95) = %v, want 0", got)
	}
	if got := fillerRateScore(0); got != 100 {
		t.Errorf("fillerRateScore(0) = %v, want 100", got)
	}
	if got := fillerRateScore(3); got != 50 {
		t.Errorf("fillerRateScore(3) = %v, want 50", got)
	}
	if got := fillerRateScore(12); got != 0 {
		t.Errorf("fillerRateScore(12) = %v, want 0 (clamped)", got)
	}
}

func TestSkillLabel(t *testing.T) {
	if got := SkillLabel(SkillObjectionHandling); got != "Objection handling" {
		t.Errorf("SkillLabel(objection_handling) = %q", got)
	}
	if got := SkillLabel("something_custom"); got != "something_custom" {
		t.Errorf("SkillLabel falls back to the key, got %q", got)
	}
}
