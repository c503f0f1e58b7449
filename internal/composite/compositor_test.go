package composite

import (
	"errors"
	"image"
	"testing"

	"gocv.io/x/gocv"

	"github.com/ayusman/volverse/internal/effect"
	"github.com/ayusman/volverse/testdata"
)

func uniformMask(score float32) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(score), 0, 0, 0), testdata.Height, testdata.Width, gocv.MatTypeCV32F)
}

func personMask() gocv.Mat {
	m := uniformMask(0)
	r := testdata.PersonRect
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.SetFloatAt(y, x, 1)
		}
	}
	return m
}

func TestNew_Defaults(t *testing.T) {
	c := New(4, 1.5)
	if c.BlurSize != DefaultBlurSize || c.Threshold != DefaultThreshold {
		t.Errorf("New(4, 1.5) = %+v, want defaults", c)
	}
	c = New(7, 0.4)
	if c.BlurSize != 7 || c.Threshold != 0.4 {
		t.Errorf("New(7, 0.4) = %+v", c)
	}
}

func TestForegroundMask(t *testing.T) {
	c := New(15, 0.6)
	size := image.Pt(testdata.Width, testdata.Height)

	t.Run("confident person becomes foreground", func(t *testing.T) {
		seg := personMask()
		defer seg.Close()

		fg := c.ForegroundMask(seg, size)
		defer fg.Close()

		if fg.Type() != gocv.MatTypeCV8U {
			t.Fatalf("mask type = %v, want CV_8U", fg.Type())
		}
		if got := fg.GetUCharAt(75, 80); got != 255 {
			t.Errorf("center of person = %d, want 255", got)
		}
		if got := fg.GetUCharAt(5, 5); got != 0 {
			t.Errorf("far corner = %d, want 0", got)
		}
	})

	t.Run("unsure scores stay background", func(t *testing.T) {
		seg := uniformMask(0.5)
		defer seg.Close()

		fg := c.ForegroundMask(seg, size)
		defer fg.Close()

		if n := gocv.CountNonZero(fg); n != 0 {
			t.Errorf("CountNonZero = %d, want 0 for scores not above threshold", n)
		}
	})

	t.Run("smaller model output is scaled to the frame", func(t *testing.T) {
		seg := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(1, 0, 0, 0), 30, 40, gocv.MatTypeCV32F)
		defer seg.Close()

		fg := c.ForegroundMask(seg, size)
		defer fg.Close()

		if fg.Cols() != testdata.Width || fg.Rows() != testdata.Height {
			t.Fatalf("mask size = %dx%d, want %dx%d", fg.Cols(), fg.Rows(), testdata.Width, testdata.Height)
		}
		if n := gocv.CountNonZero(fg); n != testdata.Width*testdata.Height {
			t.Errorf("CountNonZero = %d, want all pixels", n)
		}
	})
}

func TestSubstitute(t *testing.T) {
	c := New(15, 0.6)
	plate := testdata.PlateFrame()
	defer plate.Close()
	frame := testdata.PersonFrame()
	defer frame.Close()

	seg := personMask()
	defer seg.Close()
	fg := c.ForegroundMask(seg, image.Pt(testdata.Width, testdata.Height))
	defer fg.Close()

	out, err := c.Substitute(frame, plate, fg)
	if err != nil {
		t.Fatalf("Substitute() error = %v", err)
	}
	defer out.Close()

	if got := testdata.Pixel(out, 80, 75); got != testdata.BGR(testdata.Wall) {
		t.Errorf("person pixel = %v, want plate color %v", got, testdata.BGR(testdata.Wall))
	}
	if got := testdata.Pixel(frame, 80, 75); got != testdata.BGR(testdata.Person) {
		t.Errorf("input frame was modified: %v", got)
	}

	t.Run("plate size mismatch", func(t *testing.T) {
		small := gocv.NewMatWithSize(10, 10, gocv.MatTypeCV8UC3)
		defer small.Close()

		m, err := c.Substitute(frame, small, fg)
		defer m.Close()
		if !errors.Is(err, ErrSizeMismatch) {
			t.Errorf("err = %v, want ErrSizeMismatch", err)
		}
	})
}

// Replacing a frame with itself must not change it, whatever the mask says.
func TestSubstitute_PlateIdentity(t *testing.T) {
	c := New(15, 0.6)
	plate := testdata.PlateFrame()
	defer plate.Close()

	for _, score := range []float32{0, 1} {
		frame := plate.Clone()
		seg := uniformMask(score)
		fg := c.ForegroundMask(seg, image.Pt(testdata.Width, testdata.Height))

		out, err := c.Substitute(frame, plate, fg)
		if err != nil {
			t.Fatalf("score %v: Substitute() error = %v", score, err)
		}

		diff := gocv.NewMat()
		gocv.AbsDiff(out, plate, &diff)
		gray := gocv.NewMat()
		gocv.CvtColor(diff, &gray, gocv.ColorBGRToGray)
		if n := gocv.CountNonZero(gray); n != 0 {
			t.Errorf("score %v: %d pixels differ from the plate", score, n)
		}

		gray.Close()
		diff.Close()
		out.Close()
		fg.Close()
		seg.Close()
		frame.Close()
	}
}

func TestBlend(t *testing.T) {
	white := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 200, 200, 0), testdata.Height, testdata.Width, gocv.MatTypeCV8UC3)
	defer white.Close()
	zero := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), testdata.Height, testdata.Width, gocv.MatTypeCV8UC3)
	defer zero.Close()

	out := Blend(white, zero, 0.25)
	defer out.Close()

	if got := testdata.Pixel(out, 10, 10); got != [3]uint8{50, 50, 50} {
		t.Errorf("Blend pixel = %v, want 50s", got)
	}
}

func TestRender(t *testing.T) {
	c := New(15, 0.6)
	plate := testdata.PlateFrame()
	defer plate.Close()
	frame := testdata.PersonFrame()
	defer frame.Close()
	seg := personMask()
	defer seg.Close()

	person := testdata.BGR(testdata.Person)
	wall := testdata.BGR(testdata.Wall)

	tests := []struct {
		name string
		view effect.View
		want [3]uint8
	}{
		{name: "normal emits raw", view: effect.View{Phase: effect.PhaseNormal}, want: person},
		{name: "invisible emits plate", view: effect.View{Phase: effect.PhaseInvisible, Opacity: 1}, want: wall},
		{
			name: "half fade mixes",
			view: effect.View{Phase: effect.PhaseFadingToInvisible, Opacity: 0.5, Blend: true},
			want: [3]uint8{
				uint8((int(person[0]) + int(wall[0]) + 1) / 2),
				uint8((int(person[1]) + int(wall[1]) + 1) / 2),
				uint8((int(person[2]) + int(wall[2]) + 1) / 2),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := c.Render(frame, plate, seg, tt.view)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			defer out.Close()

			got := testdata.Pixel(out, 80, 75)
			for i := range got {
				d := int(got[i]) - int(tt.want[i])
				if d < -1 || d > 1 {
					t.Errorf("pixel = %v, want %v", got, tt.want)
					break
				}
			}
			// Outside the person nothing changes.
			if bg := testdata.Pixel(out, 5, 5); bg != wall {
				t.Errorf("background pixel = %v, want %v", bg, wall)
			}
		})
	}

	t.Run("missing mask", func(t *testing.T) {
		empty := gocv.NewMat()
		defer empty.Close()

		out, err := c.Render(frame, plate, empty, effect.View{Phase: effect.PhaseInvisible, Opacity: 1})
		defer out.Close()
		if err == nil {
			t.Error("expected error without a mask")
		}
	})
}
