package gesture

import (
	"testing"

	"github.com/ayusman/volverse/internal/detector"
)

func TestIsThumbsUp(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(h *detector.HandLandmarks)
		want   bool
	}{
		{
			name:   "preset thumbs up",
			mutate: func(h *detector.HandLandmarks) {},
			want:   true,
		},
		{
			name: "index extended still counts",
			mutate: func(h *detector.HandLandmarks) {
				h.Points[detector.IndexTip].Y = 0.40
			},
			want: true,
		},
		{
			name: "thumb level with index tip",
			mutate: func(h *detector.HandLandmarks) {
				h.Points[detector.ThumbTip].Y = h.Points[detector.IndexTip].Y
			},
			want: false,
		},
		{
			name: "thumb below index tip",
			mutate: func(h *detector.HandLandmarks) {
				h.Points[detector.ThumbTip].Y = 0.9
			},
			want: false,
		},
		{
			name: "middle finger extended",
			mutate: func(h *detector.HandLandmarks) {
				h.Points[detector.MiddleTip].Y = 0.3
			},
			want: false,
		},
		{
			name: "ring finger extended",
			mutate: func(h *detector.HandLandmarks) {
				h.Points[detector.RingTip].Y = 0.3
			},
			want: false,
		},
		{
			name: "pinky tip level with its base",
			mutate: func(h *detector.HandLandmarks) {
				h.Points[detector.PinkyTip].Y = h.Points[detector.PinkyMCP].Y
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := detector.ThumbsUpLandmarks()
			tt.mutate(&h)
			if got := IsThumbsUp(&h); got != tt.want {
				t.Errorf("IsThumbsUp() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("nil hand", func(t *testing.T) {
		if IsThumbsUp(nil) {
			t.Error("nil hand should not classify")
		}
	})

	t.Run("open palm is not thumbs up", func(t *testing.T) {
		h := detector.OpenPalmLandmarks()
		if IsThumbsUp(&h) {
			t.Error("open palm classified as thumbs up")
		}
	})
}

func TestIsIndexUp(t *testing.T) {
	pointing := detector.IndexUpLandmarks(0.3, 0.4)
	if !IsIndexUp(&pointing) {
		t.Error("pointing hand should be index up")
	}

	palm := detector.OpenPalmLandmarks()
	if IsIndexUp(&palm) {
		t.Error("open palm should not be index up")
	}

	thumbs := detector.ThumbsUpLandmarks()
	if IsIndexUp(&thumbs) {
		t.Error("thumbs up should not be index up")
	}
}

func TestIsOpenPalm(t *testing.T) {
	palm := detector.OpenPalmLandmarks()
	if !IsOpenPalm(&palm) {
		t.Error("preset open palm should classify")
	}

	t.Run("thumb tucked", func(t *testing.T) {
		h := detector.OpenPalmLandmarks()
		h.Points[detector.ThumbTip].X = h.Points[detector.ThumbMCP].X + 0.05
		if IsOpenPalm(&h) {
			t.Error("tucked thumb should not be an open palm")
		}
	})

	t.Run("pinky curled", func(t *testing.T) {
		h := detector.OpenPalmLandmarks()
		h.Points[detector.PinkyTip].Y = 0.9
		if IsOpenPalm(&h) {
			t.Error("curled pinky should not be an open palm")
		}
	})
}

func TestFindThumbsUp(t *testing.T) {
	t.Run("no hands", func(t *testing.T) {
		if _, ok := FindThumbsUp(nil); ok {
			t.Error("no hands should yield no detection")
		}
	})

	t.Run("second hand matches", func(t *testing.T) {
		hands := []detector.HandLandmarks{detector.OpenPalmLandmarks(), detector.ThumbsUpLandmarks()}
		d, ok := FindThumbsUp(hands)
		if !ok {
			t.Fatal("expected a detection")
		}
		if d.Type != TypeThumbsUp {
			t.Errorf("Type = %q, want %q", d.Type, TypeThumbsUp)
		}
		if d.Hand != &hands[1] {
			t.Error("detection should point at the matching hand")
		}
		if d.Score != 0.95 {
			t.Errorf("Score = %f, want 0.95", d.Score)
		}
	})
}
