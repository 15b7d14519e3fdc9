package fonts

import (
	"unicode"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Measure returns the advance width of text in pixels at size.
func (l *Library) Measure(text string, w Weight, size float64) float64 {
	if text == "" || size <= 0 {
		return 0
	}
	runes := []rune(text)
	script := detectScript(runes)

	l.mu.Lock()
	out := l.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: scriptDirection(script),
		Face:      l.shape[index(w)],
		Size:      fixed.Int26_6(size * 64),
		Script:    script,
		Language:  language.DefaultLanguage(),
	})
	l.mu.Unlock()

	if out.Advance > 0 || len(out.Glyphs) > 0 {
		return float64(out.Advance) / 64
	}
	return l.measureFallback(text, w, size)
}

func (l *Library) measureFallback(text string, w Weight, size float64) float64 {
	face, err := l.NewFace(w, size)
	if err != nil {
		return float64(len(text)) * size * 0.5
	}
	defer face.Close()
	return float64(font.MeasureString(face, text)) / 64
}

func scriptDirection(script language.Script) di.Direction {
	switch script {
	case language.Arabic, language.Hebrew:
		return di.DirectionRTL
	default:
		return di.DirectionLTR
	}
}

func detectScript(runes []rune) language.Script {
	counts := make(map[language.Script]int)
	maxCount := 0
	best := language.Latin
	for _, r := range runes {
		s := scriptFromRune(r)
		if s == language.Unknown {
			continue
		}
		counts[s]++
		if counts[s] > maxCount {
			maxCount = counts[s]
			best = s
		}
	}
	return best
}

func scriptFromRune(r rune) language.Script {
	switch {
	case unicode.Is(unicode.Latin, r):
		return language.Latin
	case unicode.Is(unicode.Arabic, r):
		return language.Arabic
	case unicode.Is(unicode.Hebrew, r):
		return language.Hebrew
	case unicode.Is(unicode.Cyrillic, r):
		return language.Cyrillic
	case unicode.Is(unicode.Greek, r):
		return language.Greek
	}
	return language.Unknown
}
