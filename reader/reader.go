package reader

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wudi/doctext/cache"
	"github.com/wudi/doctext/classify"
	"github.com/wudi/doctext/document"
	"github.com/wudi/doctext/pipeline"
	"github.com/wudi/doctext/textlayer"
)

// Stage is one state of the per-request read machine.
type Stage string

const (
	StageCacheCheck Stage = "CACHE_CHECK"
	StageClassify   Stage = "CLASSIFY"
	StageTextLayer  Stage = "TEXT_LAYER_READ"
	StageOCRRun     Stage = "OCR_RUN"
	StageMixedMerge Stage = "MIXED_MERGE"
	StageCacheStore Stage = "CACHE_STORE"
	StageDone       Stage = "DONE"
	StageFailed     Stage = "FAILED"
)

// Config tunes reader behavior that is not owned by a collaborator.
type Config struct {
	// SamplePages is how many leading pages ScanDir classifies per file.
	SamplePages int
}

// Reader is the façade over classification, text-layer reads, the OCR
// pipeline, and the result cache. One Reader serves many concurrent
// requests.
type Reader struct {
	cache      *cache.Cache
	pipe       *pipeline.Runner
	classifier *classify.Classifier
	cfg        Config
	log        zerolog.Logger
}

// New wires a Reader from its collaborators.
func New(c *cache.Cache, pipe *pipeline.Runner, classifier *classify.Classifier, cfg Config, log zerolog.Logger) *Reader {
	if cfg.SamplePages < 1 {
		cfg.SamplePages = 3
	}
	return &Reader{cache: c, pipe: pipe, classifier: classifier, cfg: cfg, log: log}
}

// ReadOption adjusts a single Read call.
type ReadOption func(*request)

// WithForceOCR skips classification and OCRs every requested page. A
// previously cached OCR result for the same content and range is still
// reused; edit the file or prune the cache to force a recompute.
func WithForceOCR() ReadOption {
	return func(req *request) { req.forceOCR = true }
}

// request carries one read through its stages.
type request struct {
	path      string
	rangeSpec string
	forceOCR  bool

	stage Stage
	doc   document.Document
	pr    document.PageRange
	pages []int

	text *textlayer.Reader
	meta classify.MetaSource
	cls  classify.Classification

	result *document.ExtractionResult
}

func (req *request) flightKey() string {
	fk := cache.FlightKey(req.doc.Fingerprint, req.pr.Key())
	if req.forceOCR {
		// Forced OCR is a different computation than an automatic read and
		// must not share its in-flight result.
		fk += "|force-ocr"
	}
	return fk
}

// probeMethods is the cache probe order. Forced OCR only ever produces (and
// therefore only ever reuses) a pure OCR entry.
func (req *request) probeMethods() []document.Method {
	if req.forceOCR {
		return []document.Method{document.MethodOCR}
	}
	return allMethods
}

func (req *request) close() {
	if req.text != nil {
		req.text.Close()
		req.text = nil
	}
}

// Read extracts the text of the requested pages, serving from the cache when
// the document content and range match a prior read. pageRange accepts
// "all" (or ""), single pages, and comma-separated pages and spans
// ("1,3-5"). Errors: document.ErrDocumentUnreadable,
// document.ErrPageRangeInvalid, document.ErrOCRUnavailable.
func (r *Reader) Read(ctx context.Context, path, pageRange string, opts ...ReadOption) (*document.ExtractionResult, error) {
	req := &request{path: path, rangeSpec: pageRange, stage: StageCacheCheck}
	for _, opt := range opts {
		opt(req)
	}

	if err := r.cacheCheck(ctx, req); err != nil {
		return nil, r.fail(req, err)
	}
	if req.stage == StageDone {
		r.log.Debug().Str("path", path).Str("range", req.pr.Key()).Str("method", string(req.result.Method)).Msg("cache hit")
		return req.result, nil
	}

	// Everything from classification onward runs once per document+range:
	// concurrent readers of the same uncached content join this flight and
	// share the leader's result.
	result, shared, err := r.cache.Do(ctx, req.flightKey(), func() (*document.ExtractionResult, error) {
		return r.compute(ctx, req)
	})
	if err != nil {
		return nil, r.fail(req, err)
	}
	if shared {
		r.log.Debug().Str("path", path).Str("range", req.pr.Key()).Msg("joined in-flight extraction")
	}
	req.stage = StageDone
	return result, nil
}

// fail marks the request FAILED and returns the wrapped error.
func (r *Reader) fail(req *request, err error) error {
	req.stage = StageFailed
	r.log.Debug().Err(err).Str("path", req.path).Str("stage", string(StageFailed)).Msg("read failed")
	return document.WrapError("read", req.path, err, "")
}

// cacheCheck resolves the document identity and range, then probes the store.
// Preconditions: none; this is the entry stage.
func (r *Reader) cacheCheck(ctx context.Context, req *request) error {
	doc, err := document.Resolve(req.path)
	if err != nil {
		return err
	}
	req.doc = doc

	pr, err := document.ParsePageRange(req.rangeSpec)
	if err != nil {
		return err
	}
	req.pr = pr

	for _, m := range req.probeMethods() {
		entry, err := r.cache.Get(ctx, cache.Key{Fingerprint: doc.Fingerprint, RangeKey: pr.Key(), Method: m})
		if err != nil {
			return err
		}
		if entry != nil {
			req.result = &entry.Result
			req.stage = StageDone
			return nil
		}
	}
	req.stage = StageClassify
	return nil
}

// compute drives the post-cache stages for the flight leader.
func (r *Reader) compute(ctx context.Context, req *request) (*document.ExtractionResult, error) {
	defer req.close()

	// A sibling flight may have stored this entry while we queued behind it.
	for _, m := range req.probeMethods() {
		entry, err := r.cache.Get(ctx, cache.Key{Fingerprint: req.doc.Fingerprint, RangeKey: req.pr.Key(), Method: m})
		if err != nil {
			return nil, err
		}
		if entry != nil {
			return &entry.Result, nil
		}
	}

	for {
		var err error
		switch req.stage {
		case StageClassify:
			err = r.classifyStage(ctx, req)
		case StageTextLayer:
			err = r.textLayerStage(ctx, req)
		case StageOCRRun:
			err = r.ocrStage(ctx, req)
		case StageMixedMerge:
			err = r.mixedStage(ctx, req)
		case StageCacheStore:
			err = r.storeStage(ctx, req)
		case StageDone:
			return req.result, nil
		default:
			err = fmt.Errorf("read reached invalid stage %q", req.stage)
		}
		if err != nil {
			req.stage = StageFailed
			return nil, err
		}
	}
}

// classifyStage opens the document, resolves the page range against the real
// page count, and decides the extraction route. Preconditions: cache miss,
// document resolved. A forced-OCR request skips the classifier and routes
// straight to OCR_RUN.
func (r *Reader) classifyStage(ctx context.Context, req *request) error {
	text, meta, err := r.openSources(req.path)
	if err != nil {
		return err
	}
	req.text, req.meta = text, meta

	pages, err := req.pr.Resolve(text.PageCount())
	if err != nil {
		return err
	}
	req.pages = pages

	if req.forceOCR {
		req.stage = StageOCRRun
		return nil
	}

	cls, err := r.classifier.Classify(ctx, text, meta, pages)
	if err != nil {
		return err
	}
	req.cls = cls
	r.log.Debug().Str("path", req.path).Str("overall", string(cls.Overall)).Int("pages", len(pages)).Msg("document classified")

	switch cls.Overall {
	case classify.OverallHasText:
		req.stage = StageTextLayer
	case classify.OverallNeedsOCR:
		req.stage = StageOCRRun
	default:
		req.stage = StageMixedMerge
	}
	return nil
}

// textLayerStage reads every requested page from the embedded text layer.
// Preconditions: classification says the text layer suffices everywhere.
func (r *Reader) textLayerStage(ctx context.Context, req *request) error {
	pages := make([]document.PageText, 0, len(req.pages))
	for _, p := range req.pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		pages = append(pages, r.textPage(req, p))
	}
	req.result = &document.ExtractionResult{Method: document.MethodTextLayer, Pages: pages}
	req.stage = StageCacheStore
	return nil
}

// ocrStage rasterizes and recognizes every requested page. Preconditions:
// classification says no usable text layer, or OCR was forced.
func (r *Reader) ocrStage(ctx context.Context, req *request) error {
	pages, err := r.pipe.Run(ctx, req.path, req.pages)
	if err != nil {
		return err
	}
	req.result = &document.ExtractionResult{Method: document.MethodOCR, Pages: pages}
	req.stage = StageCacheStore
	return nil
}

// mixedStage OCRs the scanned subset and reads the rest from the text layer,
// merging in request order. Preconditions: classification disagrees across
// pages.
func (r *Reader) mixedStage(ctx context.Context, req *request) error {
	ocrPages := req.cls.OCRPages(req.pages)
	ocrOut, err := r.pipe.Run(ctx, req.path, ocrPages)
	if err != nil {
		return err
	}
	byPage := make(map[int]document.PageText, len(ocrOut))
	for _, pt := range ocrOut {
		byPage[pt.Number] = pt
	}

	pages := make([]document.PageText, 0, len(req.pages))
	for _, p := range req.pages {
		if pt, ok := byPage[p]; ok {
			pages = append(pages, pt)
			continue
		}
		pages = append(pages, r.textPage(req, p))
	}
	req.result = &document.ExtractionResult{Method: document.MethodHybrid, Pages: pages}
	req.stage = StageCacheStore
	return nil
}

// storeStage persists the result. Preconditions: a result exists. Store
// failures are logged and never fail the request; partial results from a
// canceled request are not persisted.
func (r *Reader) storeStage(ctx context.Context, req *request) error {
	if ctx.Err() != nil {
		r.log.Debug().Str("path", req.path).Msg("request canceled, skipping cache store")
		req.stage = StageDone
		return nil
	}

	entry := &cache.Entry{
		Key: cache.Key{
			Fingerprint: req.doc.Fingerprint,
			RangeKey:    req.pr.Key(),
			Method:      req.result.Method,
		},
		Result:    *req.result,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.cache.Put(ctx, entry); err != nil {
		r.log.Warn().Err(err).Str("path", req.path).Msg("cache write failed, returning uncached result")
	}
	req.stage = StageDone
	return nil
}

// textPage reads one page from the text layer, folding failures into the
// page record instead of failing the request.
func (r *Reader) textPage(req *request, page int) document.PageText {
	text, err := req.text.PageText(page)
	if err != nil {
		r.log.Warn().Err(err).Str("path", req.path).Int("page", page).Msg("text layer read failed")
		return document.PageText{Number: page, Status: document.PageFailed, Reason: document.FailReason(err)}
	}
	pt := document.PageText{Number: page, Status: document.PageOK, Text: text}
	if text == "" {
		pt.Status = document.PageEmpty
	}
	return pt
}

// openSources opens the text layer and the page-geometry source for one
// document. A structure parser failure on a document the text-layer parser
// accepted downgrades to a no-image source instead of failing the read.
func (r *Reader) openSources(path string) (*textlayer.Reader, classify.MetaSource, error) {
	text, err := textlayer.Open(path)
	if err != nil {
		return nil, nil, err
	}
	meta, err := classify.OpenMeta(path)
	if err != nil {
		r.log.Warn().Err(err).Str("path", path).Msg("page geometry unavailable, classifying by text layer only")
		meta = noMeta{pages: text.PageCount()}
	}
	return text, meta, nil
}

// noMeta reports every page as image-free, so low-text pages classify as
// blank rather than scanned.
type noMeta struct{ pages int }

func (n noMeta) PageCount() int { return n.pages }

func (n noMeta) PageMeta(page int) (classify.PageMeta, error) {
	return classify.PageMeta{Page: page}, nil
}
