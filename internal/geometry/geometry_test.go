package geometry

import (
	"errors"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/manash/pixedit/pkg/models"
)

func TestPlanExpansion(t *testing.T) {
	tests := []struct {
		name   string
		w, h   int
		aspect float64
		want   ExpansionPlan
	}{
		{
			name: "landscape to square grows height",
			w:    1000, h: 500, aspect: 1,
			want: ExpansionPlan{
				CanvasW: 1000, CanvasH: 1000,
				ImageW: 1000, ImageH: 500,
				OffsetX: 0, OffsetY: 250,
				Scale: 1,
			},
		},
		{
			name: "portrait to square grows width",
			w:    500, h: 1000, aspect: 1,
			want: ExpansionPlan{
				CanvasW: 1000, CanvasH: 1000,
				ImageW: 500, ImageH: 1000,
				OffsetX: 250, OffsetY: 0,
				Scale: 1,
			},
		},
		{
			name: "square to 16:9 grows width",
			w:    900, h: 900, aspect: 16.0 / 9.0,
			want: ExpansionPlan{
				CanvasW: 1600, CanvasH: 900,
				ImageW: 900, ImageH: 900,
				OffsetX: 350, OffsetY: 0,
				Scale: 1,
			},
		},
		{
			name: "oversized canvas is downscaled",
			w:    3000, h: 1500, aspect: 1,
			want: ExpansionPlan{
				CanvasW: 2048, CanvasH: 2048,
				ImageW: 2048, ImageH: 1024,
				OffsetX: 0, OffsetY: 512,
				Scale: 2048.0 / 3000.0,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PlanExpansion(tt.w, tt.h, tt.aspect)
			if err != nil {
				t.Fatalf("PlanExpansion() error = %v", err)
			}
			if got.CanvasW != tt.want.CanvasW || got.CanvasH != tt.want.CanvasH {
				t.Errorf("canvas = %dx%d, want %dx%d", got.CanvasW, got.CanvasH, tt.want.CanvasW, tt.want.CanvasH)
			}
			if got.ImageW != tt.want.ImageW || got.ImageH != tt.want.ImageH {
				t.Errorf("image = %dx%d, want %dx%d", got.ImageW, got.ImageH, tt.want.ImageW, tt.want.ImageH)
			}
			if got.OffsetX != tt.want.OffsetX || got.OffsetY != tt.want.OffsetY {
				t.Errorf("offset = (%d,%d), want (%d,%d)", got.OffsetX, got.OffsetY, tt.want.OffsetX, tt.want.OffsetY)
			}
			if diff := got.Scale - tt.want.Scale; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("scale = %f, want %f", got.Scale, tt.want.Scale)
			}
		})
	}
}

func TestPlanExpansion_Invalid(t *testing.T) {
	if _, err := PlanExpansion(0, 100, 1); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("PlanExpansion(0, 100, 1) error = %v, want ErrInvalidDimensions", err)
	}
	if _, err := PlanExpansion(100, 100, 0); !errors.Is(err, models.ErrInvalidAspect) {
		t.Errorf("PlanExpansion(100, 100, 0) error = %v, want ErrInvalidAspect", err)
	}
}

func TestPadForExpansion(t *testing.T) {
	img := imaging.New(100, 50, color.NRGBA{R: 255, A: 255})
	plan, err := PlanExpansion(100, 50, 1)
	if err != nil {
		t.Fatalf("PlanExpansion() error = %v", err)
	}

	padded := PadForExpansion(img, plan)
	b := padded.Bounds()
	if b.Dx() != 100 || b.Dy() != 100 {
		t.Errorf("padded size = %dx%d, want 100x100", b.Dx(), b.Dy())
	}

	// Image content is centered; the border stays blank.
	if c := padded.NRGBAAt(50, 50); c.R != 255 {
		t.Errorf("center pixel = %v, want red", c)
	}
	if c := padded.NRGBAAt(50, 10); c.A != 0 {
		t.Errorf("border pixel = %v, want transparent", c)
	}
}

func TestExtractCrop(t *testing.T) {
	img := imaging.New(100, 100, color.NRGBA{G: 255, A: 255})

	cropped, err := ExtractCrop(img, models.CropRegion{X: 10, Y: 20, Width: 30, Height: 40}, 1)
	if err != nil {
		t.Fatalf("ExtractCrop() error = %v", err)
	}
	b := cropped.Bounds()
	if b.Dx() != 30 || b.Dy() != 40 {
		t.Errorf("cropped size = %dx%d, want 30x40", b.Dx(), b.Dy())
	}
}

func TestExtractCrop_PixelRatio(t *testing.T) {
	img := imaging.New(100, 100, color.NRGBA{B: 255, A: 255})

	cropped, err := ExtractCrop(img, models.CropRegion{X: 0, Y: 0, Width: 50, Height: 50}, 2)
	if err != nil {
		t.Fatalf("ExtractCrop() error = %v", err)
	}
	b := cropped.Bounds()
	if b.Dx() != 100 || b.Dy() != 100 {
		t.Errorf("cropped size = %dx%d, want 100x100", b.Dx(), b.Dy())
	}
}

func TestExtractCrop_OutOfBounds(t *testing.T) {
	img := imaging.New(100, 100, color.NRGBA{})

	tests := []struct {
		name   string
		region models.CropRegion
	}{
		{"past right edge", models.CropRegion{X: 80, Y: 0, Width: 30, Height: 30}},
		{"negative origin", models.CropRegion{X: -5, Y: 0, Width: 30, Height: 30}},
		{"empty", models.CropRegion{X: 10, Y: 10, Width: 0, Height: 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExtractCrop(img, tt.region, 1); !errors.Is(err, ErrRegionOutOfBounds) {
				t.Errorf("ExtractCrop() error = %v, want ErrRegionOutOfBounds", err)
			}
		})
	}
}

func TestNaturalRegion(t *testing.T) {
	// Image rendered at half size: display coordinates double.
	got, err := NaturalRegion(models.CropRegion{X: 10, Y: 20, Width: 30, Height: 40}, 2000, 1000, 1000, 500)
	if err != nil {
		t.Fatalf("NaturalRegion() error = %v", err)
	}
	want := models.CropRegion{X: 20, Y: 40, Width: 60, Height: 80}
	if got != want {
		t.Errorf("NaturalRegion() = %+v, want %+v", got, want)
	}
}

func TestNaturalPoint(t *testing.T) {
	got, err := NaturalPoint(models.Hotspot{X: 100, Y: 50}, 3000, 1500, 1000, 500)
	if err != nil {
		t.Fatalf("NaturalPoint() error = %v", err)
	}
	want := models.Hotspot{X: 300, Y: 150}
	if got != want {
		t.Errorf("NaturalPoint() = %+v, want %+v", got, want)
	}

	if _, err := NaturalPoint(models.Hotspot{}, 100, 100, 0, 100); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("NaturalPoint() error = %v, want ErrInvalidDimensions", err)
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	src := imaging.New(8, 8, color.NRGBA{R: 1, G: 2, B: 3, A: 255})
	data, err := EncodePNG(src)
	if err != nil {
		t.Fatalf("EncodePNG() error = %v", err)
	}

	w, h, err := Dimensions(data)
	if err != nil {
		t.Fatalf("Dimensions() error = %v", err)
	}
	if w != 8 || h != 8 {
		t.Errorf("Dimensions() = %dx%d, want 8x8", w, h)
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte("not an image")); !errors.Is(err, models.ErrInvalidEncoding) {
		t.Errorf("Decode() error = %v, want ErrInvalidEncoding", err)
	}
}
