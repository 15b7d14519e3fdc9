// Package writer encodes a rendered certificate raster into a PDF. Each page
// embeds one JPEG strip of the raster as an image XObject.
package writer

import (
	"bytes"
	"compress/flate"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"
	"time"
)

type PDFVersion string

const (
	PDF14 PDFVersion = "1.4"
	PDF17 PDFVersion = "1.7"
)

// PageBreak controls how a raster taller than one page is handled.
type PageBreak int

const (
	// PageBreakAvoid scales the raster to fit one page.
	PageBreakAvoid PageBreak = iota
	// PageBreakSlice cuts the raster into page-height strips.
	PageBreakSlice
)

// ParsePageBreak maps "avoid" and "slice" to their modes.
func ParsePageBreak(s string) (PageBreak, error) {
	switch s {
	case "", "avoid":
		return PageBreakAvoid, nil
	case "slice":
		return PageBreakSlice, nil
	}
	return PageBreakAvoid, fmt.Errorf("unknown page break mode %q", s)
}

func (p PageBreak) String() string {
	if p == PageBreakSlice {
		return "slice"
	}
	return "avoid"
}

// PageSize is in points.
type PageSize struct {
	Width, Height float64
}

var A4 = PageSize{Width: 595.28, Height: 841.89}

const (
	DefaultMargin      = 10.0
	DefaultJPEGQuality = 98
)

// Info populates the document information dictionary.
type Info struct {
	Title    string
	Author   string
	Subject  string
	Creator  string
	Producer string
}

type Config struct {
	Version       PDFVersion
	PageSize      PageSize
	Margin        float64
	JPEGQuality   int
	Compress      bool
	PageBreak     PageBreak
	Deterministic bool
	Info          Info
	// Now stamps CreationDate. Nil omits it in deterministic mode and uses
	// the wall clock otherwise.
	Now func() time.Time
}

func (c Config) version() string {
	if c.Version == "" {
		return string(PDF17)
	}
	return string(c.Version)
}

func (c Config) withDefaults() Config {
	if c.PageSize.Width <= 0 || c.PageSize.Height <= 0 {
		c.PageSize = A4
	}
	if c.Margin < 0 || c.Margin*2 >= math.Min(c.PageSize.Width, c.PageSize.Height) {
		c.Margin = DefaultMargin
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = DefaultJPEGQuality
	}
	if c.Info.Producer == "" {
		c.Info.Producer = "certgen"
	}
	return c
}

// Result is an encoded document held in memory.
type Result struct {
	Bytes []byte
	Pages int
}

// Encoder turns rasters into PDF documents. It never touches storage.
type Encoder struct {
	cfg Config
}

type Option func(*Config)

func WithCompress(on bool) Option           { return func(c *Config) { c.Compress = on } }
func WithPageBreak(p PageBreak) Option      { return func(c *Config) { c.PageBreak = p } }
func WithJPEGQuality(q int) Option          { return func(c *Config) { c.JPEGQuality = q } }
func WithMargin(pt float64) Option          { return func(c *Config) { c.Margin = pt } }
func WithPageSize(s PageSize) Option        { return func(c *Config) { c.PageSize = s } }
func WithInfo(info Info) Option             { return func(c *Config) { c.Info = info } }
func WithDeterministic(on bool) Option      { return func(c *Config) { c.Deterministic = on } }
func WithClock(now func() time.Time) Option { return func(c *Config) { c.Now = now } }

// New returns an encoder for cfg with opts applied on top.
func New(cfg Config, opts ...Option) *Encoder {
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Encoder{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (e *Encoder) Config() Config { return e.cfg }

type placedPage struct {
	jpeg       []byte
	pxW, pxH   int
	x, y, w, h float64
}

// Encode lays img onto pages and serializes the document.
func (e *Encoder) Encode(ctx context.Context, img image.Image) (*Result, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, errors.New("writer: empty raster")
	}
	cfg := e.cfg
	strips := e.paginate(img.Bounds())

	pages := make([]placedPage, 0, len(strips))
	var digest bytes.Buffer
	for i, s := range strips {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := encodeJPEG(crop(img, s.rect), cfg.JPEGQuality)
		if err != nil {
			return nil, fmt.Errorf("writer: page %d: %w", i+1, err)
		}
		digest.Write(data[:min(len(data), 512)])
		s.jpeg = data
		pages = append(pages, s.placedPage)
	}

	objects := objectSet{}
	catalogRef := ObjectRef{Num: 1}
	pagesRef := ObjectRef{Num: 2}
	infoRef := ObjectRef{Num: 3}

	kids := NewArray()
	next := 4
	for i, pg := range pages {
		pageRef := ObjectRef{Num: next}
		contentRef := ObjectRef{Num: next + 1}
		imageRef := ObjectRef{Num: next + 2}
		next += 3

		imgDict := Dict()
		imgDict.Set("Type", Name("XObject"))
		imgDict.Set("Subtype", Name("Image"))
		imgDict.Set("Width", Int(int64(pg.pxW)))
		imgDict.Set("Height", Int(int64(pg.pxH)))
		imgDict.Set("ColorSpace", Name("DeviceRGB"))
		imgDict.Set("BitsPerComponent", Int(8))
		imgDict.Set("Filter", Name("DCTDecode"))
		objects[imageRef] = NewStream(imgDict, pg.jpeg)

		content := []byte(fmt.Sprintf("q\n%s 0 0 %s %s %s cm\n/Im%d Do\nQ\n",
			formatReal(pg.w), formatReal(pg.h), formatReal(pg.x), formatReal(pg.y), i+1))
		contentDict := Dict()
		if cfg.Compress {
			compressed, err := flateEncode(content, flate.BestCompression)
			if err != nil {
				return nil, fmt.Errorf("writer: compress content: %w", err)
			}
			content = compressed
			contentDict.Set("Filter", Name("FlateDecode"))
		}
		objects[contentRef] = NewStream(contentDict, content)

		xobjects := Dict()
		xobjects.Set(fmt.Sprintf("Im%d", i+1), Ref(imageRef))
		resources := Dict()
		resources.Set("XObject", xobjects)
		resources.Set("ProcSet", NewArray(Name("PDF"), Name("ImageC")))

		page := Dict()
		page.Set("Type", Name("Page"))
		page.Set("Parent", Ref(pagesRef))
		page.Set("MediaBox", NewArray(Int(0), Int(0), Real(cfg.PageSize.Width), Real(cfg.PageSize.Height)))
		page.Set("Resources", resources)
		page.Set("Contents", Ref(contentRef))
		objects[pageRef] = page
		kids.Append(Ref(pageRef))
	}

	pagesDict := Dict()
	pagesDict.Set("Type", Name("Pages"))
	pagesDict.Set("Kids", kids)
	pagesDict.Set("Count", Int(int64(len(pages))))
	objects[pagesRef] = pagesDict

	catalog := Dict()
	catalog.Set("Type", Name("Catalog"))
	catalog.Set("Pages", Ref(pagesRef))
	objects[catalogRef] = catalog

	objects[infoRef] = infoDict(cfg)

	ids := fileID(cfg, len(pages), digest.Bytes())
	trailer := Dict()
	trailer.Set("Root", Ref(catalogRef))
	trailer.Set("Info", Ref(infoRef))
	trailer.Set("ID", NewArray(HexStr(ids[0]), HexStr(ids[1])))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{Bytes: serialize(cfg.version(), objects, trailer), Pages: len(pages)}, nil
}

type strip struct {
	rect image.Rectangle
	placedPage
}

// paginate computes the raster strip and placement of every page. Pages are
// top-aligned inside the margins.
func (e *Encoder) paginate(b image.Rectangle) []strip {
	cfg := e.cfg
	boxW := cfg.PageSize.Width - 2*cfg.Margin
	boxH := cfg.PageSize.Height - 2*cfg.Margin
	pxW, pxH := float64(b.Dx()), float64(b.Dy())
	top := cfg.PageSize.Height - cfg.Margin

	if cfg.PageBreak == PageBreakAvoid {
		scale := math.Min(boxW/pxW, boxH/pxH)
		w, h := pxW*scale, pxH*scale
		return []strip{{rect: b, placedPage: placedPage{
			pxW: b.Dx(), pxH: b.Dy(),
			x: cfg.Margin + (boxW-w)/2, y: top - h, w: w, h: h,
		}}}
	}

	scale := boxW / pxW
	perPage := int(math.Floor(boxH / scale))
	if perPage < 1 {
		perPage = 1
	}
	var out []strip
	for y0 := b.Min.Y; y0 < b.Max.Y; y0 += perPage {
		y1 := min(y0+perPage, b.Max.Y)
		h := float64(y1-y0) * scale
		out = append(out, strip{
			rect: image.Rect(b.Min.X, y0, b.Max.X, y1),
			placedPage: placedPage{
				pxW: b.Dx(), pxH: y1 - y0,
				x: cfg.Margin, y: top - h, w: boxW, h: h,
			},
		})
	}
	return out
}

func infoDict(cfg Config) *DictObj {
	d := Dict()
	set := func(key, val string) {
		if val != "" {
			d.Set(key, textString(val))
		}
	}
	set("Title", cfg.Info.Title)
	set("Author", cfg.Info.Author)
	set("Subject", cfg.Info.Subject)
	set("Creator", cfg.Info.Creator)
	set("Producer", cfg.Info.Producer)
	switch {
	case cfg.Now != nil:
		d.Set("CreationDate", Str([]byte(pdfDate(cfg.Now()))))
	case !cfg.Deterministic:
		d.Set("CreationDate", Str([]byte(pdfDate(time.Now()))))
	}
	return d
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func crop(img image.Image, r image.Rectangle) image.Image {
	if r == img.Bounds() {
		return img
	}
	if s, ok := img.(subImager); ok {
		return s.SubImage(r)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(dst, dst.Bounds(), img, r.Min, draw.Src)
	return dst
}

type opaquer interface {
	Opaque() bool
}

// encodeJPEG flattens translucent pixels onto white first; JPEG has no alpha.
func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	if o, ok := img.(opaquer); !ok || !o.Opaque() {
		b := img.Bounds()
		flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(flat, flat.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Over)
		img = flat
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
