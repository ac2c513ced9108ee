package pdfprimitives

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLaplacianVariance(t *testing.T) {
	t.Run("solid image is zero", func(t *testing.T) {
		img := FillSolid(50, 50, color.Gray{Y: 128})
		assert.Equal(t, 0.0, LaplacianVariance(img))
	})

	t.Run("undersized image is zero", func(t *testing.T) {
		img := FillSolid(2, 2, color.Gray{Y: 10})
		assert.Equal(t, 0.0, LaplacianVariance(img))
	})

	t.Run("checkerboard has signal", func(t *testing.T) {
		w, h := 20, 20
		img := &Image{Width: w, Height: h, Gray: make([]uint8, w*h)}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if (x+y)%2 == 0 {
					img.Gray[y*w+x] = 255
				}
			}
		}
		assert.Greater(t, LaplacianVariance(img), 0.0)
	})
}

func TestColumnFor(t *testing.T) {
	bounds := []float64{0, 100, 250, 400}
	tests := []struct {
		x    float64
		want int
	}{
		{5, 0},
		{99, 0},
		{100, 1},
		{260, 2},
		{999, 3},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, columnFor(tc.x, bounds), "columnFor(%v)", tc.x)
	}
}

func TestGroupByY(t *testing.T) {
	words := []Word{
		{X0: 10, Top: 200, Text: "A"},
		{X0: 50, Top: 201, Text: "B"},
		{X0: 10, Top: 150, Text: "C"},
	}
	rows := groupByY(words, 4)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 2, "the two close-y words share a band")
}

func TestParsePDFDate(t *testing.T) {
	tm, ok := parsePDFDate("D:20240115103045+08'00'")
	require.True(t, ok)
	assert.Equal(t, 2024, tm.Year())
	assert.Equal(t, 1, int(tm.Month()))
	assert.Equal(t, 15, tm.Day())

	_, ok = parsePDFDate("not a date")
	assert.False(t, ok)
}

func TestNonWhitespaceLen(t *testing.T) {
	assert.Equal(t, 3, nonWhitespaceLen("  a b\tc\n"))
}
