package payments

import "testing"

func TestApplicationFee(t *testing.T) {
	cases := []struct {
		amount, pct, want int64
	}{
		{10000, 15, 1500},
		{999, 15, 150}, // 149.85 rounds up
		{990, 15, 149}, // 148.5 rounds half up
		{1, 15, 0},
		{0, 15, 0},
		{-100, 15, 0},
		{10000, 0, 0},
	}
	for _, c := range cases {
		if got := ApplicationFee(c.amount, c.pct); got != c.want {
			t.Fatalf("ApplicationFee(%d, %d) = %d, want %d", c.amount, c.pct, got, c.want)
		}
	}
}

func TestSplit(t *testing.T) {
	fee, share := Split(10000, 1500)
	if fee != 1500 || share != 8500 {
		t.Fatalf("Split(10000,1500) = %d/%d", fee, share)
	}
	fee, share = Split(100, 500)
	if fee != 100 || share != 0 {
		t.Fatalf("fee above gross should clamp, got %d/%d", fee, share)
	}
	fee, share = Split(100, -5)
	if fee != 0 || share != 100 {
		t.Fatalf("negative fee should clamp to zero, got %d/%d", fee, share)
	}
}
