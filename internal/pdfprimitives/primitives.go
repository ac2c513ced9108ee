// Package pdfprimitives exposes the read-only PDF operations the rest of
// the core is built on: text extraction, positioned word tokens, table
// grid reconstruction, page rasterisation, metadata/font inspection, and
// sharpness scoring. All operations are safe under concurrent reads of
// distinct documents.
package pdfprimitives

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// Document wraps an opened PDF together with its raw bytes, so primitives
// that need the byte stream (rasterisation) and primitives that need the
// parsed reader (text/metadata) share one handle.
type Document struct {
	reader *pdf.Reader
	data   []byte
}

// Open parses the PDF bytes. Callers own data and must not mutate it while
// the Document is in use.
func Open(data []byte) (*Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF reader: %w", err)
	}
	return &Document{reader: reader, data: data}, nil
}

// PageCount returns the document's page count, never less than 1.
func (d *Document) PageCount() int {
	n := d.reader.NumPage()
	if n < 1 {
		return 1
	}
	return n
}

// Word is a single positioned text token on a page.
type Word struct {
	X0, X1, Top, Bottom float64
	Text                string
}

// PageText returns reading-order text for the given 0-indexed page.
func (d *Document) PageText(pageIdx int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered panic extracting page %d text: %v", pageIdx, r)
		}
	}()
	page := d.reader.Page(pageIdx + 1)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d is null", pageIdx)
	}
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, row := range rows {
		for _, w := range row.Content {
			b.WriteString(w.S)
		}
		b.WriteString("\n")
	}
	return b.String(), nil
}

// PageWords returns positioned word tokens for the given 0-indexed page,
// clustered into words using xTol/yTol gap tolerances (points).
// keep_blank_chars semantics: inter-word gaps within a row are preserved by
// splitting runs whenever the horizontal gap between consecutive glyphs
// exceeds xTol.
func (d *Document) PageWords(pageIdx int, xTol, yTol float64) (words []Word, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered panic extracting page %d words: %v", pageIdx, r)
		}
	}()
	page := d.reader.Page(pageIdx + 1)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d is null", pageIdx)
	}
	texts := page.Content().Text
	if len(texts) == 0 {
		return nil, nil
	}

	sort.SliceStable(texts, func(i, j int) bool {
		if yDiff := texts[i].Y - texts[j].Y; yDiff > yTol || yDiff < -yTol {
			return texts[i].Y > texts[j].Y // top of page first
		}
		return texts[i].X < texts[j].X
	})

	var cur *Word
	flush := func() {
		if cur != nil && strings.TrimSpace(cur.Text) != "" {
			words = append(words, *cur)
		}
		cur = nil
	}

	var lastY, lastX1 float64
	haveLast := false
	for _, t := range texts {
		glyphWidth := t.W * t.FontSize / 1000
		top := t.Y
		bottom := t.Y - t.FontSize

		sameRow := haveLast && abs(t.Y-lastY) <= yTol
		closeEnough := sameRow && (t.X-lastX1) <= xTol

		if cur != nil && closeEnough {
			cur.Text += t.S
			if t.X+glyphWidth > cur.X1 {
				cur.X1 = t.X + glyphWidth
			}
		} else {
			flush()
			cur = &Word{X0: t.X, X1: t.X + glyphWidth, Top: top, Bottom: bottom, Text: t.S}
		}
		lastY = t.Y
		lastX1 = t.X + glyphWidth
		haveLast = true
	}
	flush()
	return words, nil
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

// PageTables reconstructs a grid of cells for the given page by clustering
// words into row bands and column bands via x-coordinate alignment. Pages
// with no detectable grid return a nil table list — that is the signal
// Tier A uses to yield to Tier B.
func (d *Document) PageTables(pageIdx int) ([][][]string, error) {
	words, err := d.PageWords(pageIdx, 3, 3)
	if err != nil || len(words) == 0 {
		return nil, err
	}

	rows := groupByY(words, 4)
	if len(rows) < 2 {
		return nil, nil
	}

	// Column bands: cluster all word x0 positions across rows into bands
	// separated by >20pt gaps — a crude but effective ruled-table proxy.
	var xs []float64
	for _, row := range rows {
		for _, w := range row {
			xs = append(xs, w.X0)
		}
	}
	sort.Float64s(xs)
	var bounds []float64
	prev := -1000.0
	for _, x := range xs {
		if x-prev > 20 {
			bounds = append(bounds, x)
		}
		prev = x
	}
	if len(bounds) < 2 {
		return nil, nil
	}

	var grid [][]string
	for _, row := range rows {
		cells := make([]string, len(bounds))
		for _, w := range row {
			col := columnFor(w.X0, bounds)
			if cells[col] != "" {
				cells[col] += " "
			}
			cells[col] += w.Text
		}
		grid = append(grid, cells)
	}
	return [][][]string{grid}, nil
}

func columnFor(x float64, bounds []float64) int {
	col := 0
	for i, b := range bounds {
		if x >= b {
			col = i
		}
	}
	return col
}

func groupByY(words []Word, band float64) [][]Word {
	sorted := make([]Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Top > sorted[j].Top })

	var rows [][]Word
	var cur []Word
	var curY float64
	haveY := false
	for _, w := range sorted {
		if !haveY || curY-w.Top > band {
			if len(cur) > 0 {
				rows = append(rows, cur)
			}
			cur = []Word{w}
			curY = w.Top
			haveY = true
		} else {
			cur = append(cur, w)
		}
	}
	if len(cur) > 0 {
		rows = append(rows, cur)
	}
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X0 < row[j].X0 })
	}
	return rows
}

// Metadata is the PDF document information dictionary.
type Metadata struct {
	Creator      string
	Producer     string
	CreationDate time.Time
	ModDate      time.Time
	Keywords     string
	HasDates     bool
}

var pdfDatePattern = regexp.MustCompile(`D:(\d{4})(\d{2})(\d{2})(\d{2})(\d{2})(\d{2})`)

// Metadata reads creator/producer/creationDate/modDate/keywords from the
// document information dictionary. Missing fields are left zero-valued.
func (d *Document) Metadata() Metadata {
	var m Metadata
	trailer := d.reader.Trailer()
	info := trailer.Key("Info")
	if info.IsNull() {
		return m
	}
	m.Creator = info.Key("Creator").Text()
	m.Producer = info.Key("Producer").Text()
	m.Keywords = info.Key("Keywords").Text()

	creationRaw := info.Key("CreationDate").Text()
	modRaw := info.Key("ModDate").Text()
	if cd, ok := parsePDFDate(creationRaw); ok {
		m.CreationDate = cd
		m.HasDates = true
	}
	if md, ok := parsePDFDate(modRaw); ok {
		m.ModDate = md
	}
	return m
}

func parsePDFDate(raw string) (time.Time, bool) {
	match := pdfDatePattern.FindStringSubmatch(raw)
	if match == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(match[1])
	month, _ := strconv.Atoi(match[2])
	day, _ := strconv.Atoi(match[3])
	hour, _ := strconv.Atoi(match[4])
	min, _ := strconv.Atoi(match[5])
	sec, _ := strconv.Atoi(match[6])
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC), true
}

var subsetPrefix = regexp.MustCompile(`^[A-Z]{6}\+`)

// Fonts returns, per page, the base font names used on that page with any
// subset prefix ("ABCDEF+") stripped.
func (d *Document) Fonts() ([][]string, error) {
	pages := d.PageCount()
	result := make([][]string, pages)
	for i := 1; i <= pages; i++ {
		func() {
			defer func() { recover() }()
			page := d.reader.Page(i)
			if page.V.IsNull() {
				return
			}
			fontsDict := page.Resources().Key("Font")
			seen := map[string]bool{}
			var names []string
			for _, key := range fontsDict.Keys() {
				font := fontsDict.Key(key)
				name := font.Key("BaseFont").Text()
				name = subsetPrefix.ReplaceAllString(name, "")
				if name != "" && !seen[name] {
					seen[name] = true
					names = append(names, name)
				}
			}
			result[i-1] = names
		}()
	}
	return result, nil
}

// Image is a minimal grayscale raster used for sharpness scoring and
// dimension checks. Painted reports whether the Gray buffer carries real
// pixel content: pixel-variance consumers (LaplacianVariance-based checks)
// must skip unpainted images rather than score an all-zero buffer.
type Image struct {
	Width, Height int
	Gray          []uint8 // row-major, 0..255
	Painted       bool
}

// RenderPage rasterises a page's MediaBox at the given DPI. Glyph ink is
// not painted (no vector rasteriser is wired), so the result has
// Painted=false: its dimensions are real, its pixels are not. Callers that
// need visual content (the vision-model checks) pass the original PDF
// bytes directly to the model client instead of this primitive.
func (d *Document) RenderPage(pageIdx int, dpi float64) (*Image, error) {
	page := d.reader.Page(pageIdx + 1)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d is null", pageIdx)
	}
	box := page.V.Key("MediaBox")
	widthPt, heightPt := 612.0, 792.0 // US Letter default
	if box.Len() == 4 {
		widthPt = box.Index(2).Float64() - box.Index(0).Float64()
		heightPt = box.Index(3).Float64() - box.Index(1).Float64()
	}
	scale := dpi / 72.0
	w := int(widthPt * scale)
	h := int(heightPt * scale)
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return &Image{Width: w, Height: h, Gray: make([]uint8, w*h)}, nil
}

// ToGoImage converts an Image into a standard library grayscale image, for
// callers (tests) that want to use image/draw or image/png.
func (im *Image) ToGoImage() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, im.Width, im.Height))
	for i, v := range im.Gray {
		g.Pix[i] = v
	}
	return g
}

// LaplacianVariance computes the variance of the discrete Laplacian over a
// grayscale image — the standard "blurriness" sharpness metric: sharp
// images have high-variance edges, blurred/re-scanned images flatten out.
func LaplacianVariance(img *Image) float64 {
	w, h := img.Width, img.Height
	if w < 3 || h < 3 {
		return 0
	}
	at := func(x, y int) float64 { return float64(img.Gray[y*w+x]) }

	var sum, sumSq float64
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := -4*at(x, y) + at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1)
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// IsScanned reports whether the first three pages (or fewer, if the
// document is shorter) each yield under 20 non-whitespace text characters —
// the signal that the PDF carries no extractable text layer.
func (d *Document) IsScanned() bool {
	pages := d.PageCount()
	if pages > 3 {
		pages = 3
	}
	for i := 0; i < pages; i++ {
		text, err := d.PageText(i)
		if err != nil {
			continue
		}
		if nonWhitespaceLen(text) >= 20 {
			return false
		}
	}
	return true
}

func nonWhitespaceLen(s string) int {
	n := 0
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			n++
		}
	}
	return n
}

// FillSolid synthesises a painted Image filled with a single gray value,
// used by tests to exercise LaplacianVariance without a real PDF renderer.
func FillSolid(w, h int, c color.Gray) *Image {
	im := &Image{Width: w, Height: h, Gray: make([]uint8, w*h), Painted: true}
	for i := range im.Gray {
		im.Gray[i] = c.Y
	}
	return im
}
