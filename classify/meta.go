package classify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/wudi/doctext/document"
)

// PageMeta describes the geometry signals of one page.
type PageMeta struct {
	Page   int
	Width  float64 // points
	Height float64 // points
	// ImageCoverage is the fraction of the page area covered by drawn
	// image XObjects, capped at 1. A typical scanned page is ~1.0.
	ImageCoverage float64
	// ImageCount is the number of image XObjects in the page resources.
	ImageCount int
}

// MetaSource supplies per-page geometry for classification.
type MetaSource interface {
	PageCount() int
	PageMeta(page int) (PageMeta, error)
}

// pdfcpuMeta reads page geometry through a pdfcpu context.
type pdfcpuMeta struct {
	path string
	ctx  *model.Context
}

// OpenMeta parses the document's structure (not its content) at path.
// Unparsable or zero-page files surface document.ErrDocumentUnreadable.
func OpenMeta(path string) (MetaSource, error) {
	const op = "open page metadata"

	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, document.NewError(op, path, document.ErrDocumentUnreadable, err.Error())
	}
	if ctx.PageCount < 1 {
		return nil, document.NewError(op, path, document.ErrDocumentUnreadable, "document has no pages")
	}
	return &pdfcpuMeta{path: path, ctx: ctx}, nil
}

func (m *pdfcpuMeta) PageCount() int {
	return m.ctx.PageCount
}

func (m *pdfcpuMeta) PageMeta(page int) (PageMeta, error) {
	const op = "read page metadata"

	if page < 1 || page > m.ctx.PageCount {
		return PageMeta{}, document.NewError(op, m.path, document.ErrPageRangeInvalid,
			fmt.Sprintf("page %d out of range (1-%d)", page, m.ctx.PageCount)).WithPage(page)
	}

	pageDict, _, attrs, err := m.ctx.PageDict(page, false)
	if err != nil {
		return PageMeta{}, document.NewError(op, m.path, document.ErrDocumentUnreadable, err.Error()).WithPage(page)
	}

	pm := PageMeta{Page: page, Width: 612, Height: 792}
	if attrs != nil && attrs.MediaBox != nil {
		pm.Width = attrs.MediaBox.Width()
		pm.Height = attrs.MediaBox.Height()
	}

	images := m.imageXObjects(pageDict)
	pm.ImageCount = len(images)
	if pm.ImageCount == 0 {
		return pm, nil
	}

	content := m.pageContent(pageDict)
	pageArea := pm.Width * pm.Height
	if covered, ok := placedImageArea(content, images); ok && pageArea > 0 {
		pm.ImageCoverage = covered / pageArea
		if pm.ImageCoverage > 1 {
			pm.ImageCoverage = 1
		}
	} else {
		// Images exist but their placement could not be measured. Err
		// toward treating the page as scanned; the cost of a needless
		// OCR pass beats silently returning nothing.
		pm.ImageCoverage = 1
	}
	return pm, nil
}

// imageXObjects collects the names of image XObjects in the page's
// resource dictionary.
func (m *pdfcpuMeta) imageXObjects(pageDict types.Dict) map[string]bool {
	images := make(map[string]bool)

	res, err := m.ctx.DereferenceDict(pageDict["Resources"])
	if err != nil || res == nil {
		return images
	}
	xobjs, err := m.ctx.DereferenceDict(res["XObject"])
	if err != nil || xobjs == nil {
		return images
	}

	for name, obj := range xobjs {
		indRef, ok := obj.(types.IndirectRef)
		if !ok {
			if p, ok := obj.(*types.IndirectRef); ok {
				indRef = *p
			} else {
				continue
			}
		}
		sd, valid, err := m.ctx.DereferenceStreamDict(indRef)
		if err != nil || !valid || sd == nil {
			continue
		}
		if subtype := sd.Dict.NameEntry("Subtype"); subtype != nil && *subtype == "Image" {
			images[name] = true
		}
	}
	return images
}

// pageContent returns the decoded, concatenated content streams of the
// page, or nil when they cannot be read.
func (m *pdfcpuMeta) pageContent(pageDict types.Dict) []byte {
	var streams [][]byte

	appendStream := func(obj types.Object) {
		indRef, ok := obj.(types.IndirectRef)
		if !ok {
			if p, ok := obj.(*types.IndirectRef); ok {
				indRef = *p
			} else {
				return
			}
		}
		sd, valid, err := m.ctx.DereferenceStreamDict(indRef)
		if err != nil || !valid || sd == nil {
			return
		}
		if err := sd.Decode(); err != nil {
			return
		}
		streams = append(streams, sd.Content)
	}

	switch v := pageDict["Contents"].(type) {
	case types.IndirectRef, *types.IndirectRef:
		appendStream(v)
	case types.Array:
		for _, item := range v {
			appendStream(item)
		}
	}

	if len(streams) == 0 {
		return nil
	}
	var combined []byte
	for _, s := range streams {
		combined = append(combined, s...)
		combined = append(combined, '\n')
	}
	return combined
}

// placedImageArea scans a content stream for image draws and sums the
// area each occupies: the current transformation before "<name> Do" is
// the placement rectangle, so its determinant is the drawn area in
// square points. Only the flat "cm ... Do" shape scanners emit is
// understood; anything fancier reports !ok and the caller falls back.
func placedImageArea(content []byte, images map[string]bool) (area float64, ok bool) {
	if len(content) == 0 || len(images) == 0 {
		return 0, false
	}

	var nums [6]float64
	var numCount int
	var cm [6]float64
	var cmSet bool
	var lastName string

	for _, tok := range strings.Fields(string(content)) {
		if f, err := strconv.ParseFloat(tok, 64); err == nil {
			if numCount < 6 {
				nums[numCount] = f
				numCount++
			} else {
				copy(nums[:], nums[1:])
				nums[5] = f
			}
			continue
		}
		switch {
		case tok == "cm" && numCount >= 6:
			cm = nums
			cmSet = true
			numCount = 0
		case tok == "Do":
			if images[lastName] && cmSet {
				area += abs(cm[0]*cm[3] - cm[1]*cm[2])
				ok = true
			}
			numCount = 0
		case strings.HasPrefix(tok, "/"):
			lastName = tok[1:]
			numCount = 0
		default:
			numCount = 0
		}
	}
	return area, ok
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
