package svg

import (
	"bytes"
	"errors"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var ErrNotSVG = errors.New("not an svg document")

// Shape, paint and gradient elements only. Names are lower case because the
// tokenizer folds them.
var allowedElements = []string{
	"svg", "g", "defs", "symbol",
	"path", "rect", "circle", "ellipse", "line", "polyline", "polygon",
	"text", "tspan",
	"lineargradient", "radialgradient", "stop", "clippath", "mask",
}

var allowedAttrs = []string{
	"id", "version", "viewbox", "preserveaspectratio", "width", "height",
	"x", "y", "x1", "y1", "x2", "y2", "cx", "cy", "r", "rx", "ry", "fx", "fy",
	"d", "points", "transform", "opacity", "offset",
	"fill", "fill-opacity", "fill-rule",
	"stroke", "stroke-width", "stroke-linecap", "stroke-linejoin", "stroke-opacity",
	"stop-color", "stop-opacity",
	"gradientunits", "gradienttransform", "clip-path", "clip-rule", "clippathunits",
	"mask", "maskunits", "font-family", "font-size", "font-weight", "text-anchor",
}

// Values may reference fragments like url(#g) but never carry a scheme or markup.
var safeValue = regexp.MustCompile(`^[\w\s#(),.%+-]*$`)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// caseRestorer puts back the camelCase names SVG renderers require.
var caseRestorer = strings.NewReplacer(
	"<lineargradient", "<linearGradient", "</lineargradient", "</linearGradient",
	"<radialgradient", "<radialGradient", "</radialgradient", "</radialGradient",
	"<clippath", "<clipPath", "</clippath", "</clipPath",
	" viewbox=", " viewBox=",
	" preserveaspectratio=", " preserveAspectRatio=",
	" gradientunits=", " gradientUnits=",
	" gradienttransform=", " gradientTransform=",
	" clippathunits=", " clipPathUnits=",
	" maskunits=", " maskUnits=",
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(allowedElements...)
	p.AllowNoAttrs().OnElements(allowedElements...)
	p.AllowAttrs(allowedAttrs...).Matching(safeValue).OnElements(allowedElements...)
	p.AllowAttrs("xmlns").Matching(regexp.MustCompile(`^http://www\.w3\.org/2000/svg$`)).OnElements("svg")
	return p
}

// Sanitize rebuilds an uploaded avatar from an allowlist of drawing elements and
// attributes. Scripts, event handlers, links and embedded documents are dropped.
func Sanitize(input []byte) ([]byte, error) {
	if !bytes.Contains(bytes.ToLower(input), []byte("<svg")) {
		return nil, ErrNotSVG
	}

	clean := policy.SanitizeBytes(input)
	if !bytes.Contains(clean, []byte("<svg")) {
		return nil, ErrNotSVG
	}

	clean = tagPattern.ReplaceAllFunc(clean, func(tag []byte) []byte {
		return []byte(caseRestorer.Replace(string(tag)))
	})
	return clean, nil
}
