package instrumentation

import "testing"

func TestBatchSizeBucket(t *testing.T) {
	tests := []struct {
		n        int
		expected string
	}{
		{-1, "0"},
		{0, "0"},
		{1, "1"},
		{2, "2-10"},
		{10, "2-10"},
		{11, "11-25"},
		{25, "11-25"},
		{26, "26-50"},
		{50, "26-50"},
		{51, "50+"},
		{1000, "50+"},
	}

	for _, tt := range tests {
		if got := BatchSizeBucket(tt.n); got != tt.expected {
			t.Errorf("BatchSizeBucket(%d) = %q, want %q", tt.n, got, tt.expected)
		}
	}
}
