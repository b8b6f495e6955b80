package render

import (
	"bytes"
	"encoding/xml"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/northbynortheast/signmaker/pkg/bounds"
)

const (
	// glyphAdvance is the average advance width of the heavy sans fonts, in em.
	glyphAdvance = 0.7
	// slotFill caps the font size at this fraction of the slot height.
	slotFill = 0.8
	// baseline is where the text baseline sits, as a fraction of slot height.
	baseline = 0.75

	textFill = "#1A1A1A"
)

// FitFontSize returns the largest font size in millimetres at which text is
// expected to fit slot on one line.
func FitFontSize(text string, slot bounds.Rect) float64 {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		n = 1
	}
	return min(slot.Width/(float64(n)*glyphAdvance), slot.Height*slotFill)
}

// num formats a coordinate with fixed precision so output is stable.
func num(v float64) string {
	if math.Abs(v) < 0.0005 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', 3, 64)
}

func escapeText(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
