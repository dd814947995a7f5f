package parsing

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Abraxas-365/hybridparse/pkg/ai/ocr"
	"github.com/Abraxas-365/hybridparse/pkg/errx"
	"github.com/Abraxas-365/hybridparse/pkg/fsx"
	"github.com/Abraxas-365/hybridparse/pkg/logx"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/extract"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/parsecache"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/quality"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/render"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/scheduler"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/scoring"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/tabledetect"
	"github.com/Abraxas-365/hybridparse/pkg/parsing/tablemerge"
)

// Directly extracted PDF text shorter than this is treated as a scan.
const minDirectTextRunes = 100

type Parser struct {
	cfg       Config
	files     fsx.FileReader
	extractor extract.Extractor
	renderer  render.Renderer
	scheduler *scheduler.Scheduler
	merger    *tablemerge.Merger
	scorer    *scoring.Scorer
	cache     *parsecache.Cache
}

type Option func(*Parser)

// WithSource reads documents through files instead of the local filesystem.
func WithSource(files fsx.FileReader) Option { return func(p *Parser) { p.files = files } }

func WithExtractor(x extract.Extractor) Option { return func(p *Parser) { p.extractor = x } }

func WithRenderer(r render.Renderer) Option { return func(p *Parser) { p.renderer = r } }

func WithMerger(m *tablemerge.Merger) Option { return func(p *Parser) { p.merger = m } }

// WithCache should be the cache the scheduler was built with. It enables
// the fully-cached short circuit and the cache progress metadata.
func WithCache(c *parsecache.Cache) Option { return func(p *Parser) { p.cache = c } }

func New(cfg Config, sched *scheduler.Scheduler, opts ...Option) *Parser {
	p := &Parser{
		cfg:       cfg,
		extractor: extract.New(),
		renderer:  render.New(),
		scheduler: sched,
		merger:    tablemerge.New(tablemerge.DefaultConfig()),
		scorer:    scoring.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse runs the requested mode. ForceOCR promotes every request to OCR and
// a disabled hybrid parser turns AUTO into OCR.
func (p *Parser) Parse(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Path) == "" {
		return nil, ErrRegistry.NewWithMessage(ErrInvalidRequest, "path is required")
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeAuto
	}
	if p.cfg.ForceOCR || (mode == ModeAuto && !p.cfg.EnableHybrid) {
		mode = ModeOCR
	}

	start := time.Now()
	log := logx.WithFields(logx.Fields{"path": req.Path, "mode": mode})

	doc, err := p.open(ctx, req.Path)
	if err != nil {
		return nil, err
	}
	defer doc.cleanup()

	var res *Result
	switch mode {
	case ModeSimple:
		res, err = p.parseSimple(ctx, doc, log)
	case ModeOCR:
		res, err = p.parseOCR(ctx, doc, "")
		if err == nil {
			res.setMeta("parsingMode", "OCR")
		}
	default:
		res, err = p.parseAuto(ctx, doc, log)
	}
	if err != nil {
		log.WithError(err).Error("document parse failed")
		return nil, err
	}

	res.setMeta("processingTimeMs", time.Since(start).Milliseconds())
	log.WithFields(logx.Fields{
		"method":   res.Method,
		"status":   res.Status(),
		"quality":  res.QualityScore,
		"chars":    utf8.RuneCountInString(res.FinalText),
		"parsedAs": res.Metadata["parsingMode"],
	}).Info("document parsed")
	return res, nil
}

// parseSimple extracts text directly. Empty text or an extraction error
// sends the document to OCR.
func (p *Parser) parseSimple(ctx context.Context, doc *sourceDoc, log *logx.Entry) (*Result, error) {
	ext, err := p.extractor.Extract(ctx, doc.local)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.WithError(err).Warn("direct extraction failed, falling back to OCR")
		return p.simpleFallback(ctx, doc)
	}
	if strings.TrimSpace(ext.Text) == "" {
		log.Warn("direct extraction returned no text, falling back to OCR")
		return p.simpleFallback(ctx, doc)
	}

	res := textResult(ext)
	res.setMeta("parsingMode", "SIMPLE")
	return res, nil
}

func (p *Parser) simpleFallback(ctx context.Context, doc *sourceDoc) (*Result, error) {
	res, err := p.parseOCR(ctx, doc, "")
	if err != nil {
		return nil, err
	}
	res.setMeta("parsingMode", "SIMPLE->OCR")
	return res, nil
}

// parseAuto only inspects PDFs; every other format is parsed as SIMPLE.
func (p *Parser) parseAuto(ctx context.Context, doc *sourceDoc, log *logx.Entry) (*Result, error) {
	if doc.format != extract.FormatPDF {
		return p.parseSimple(ctx, doc, log)
	}

	quick, err := p.extractor.Extract(ctx, doc.local)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.WithError(err).Warn("auto detection failed, using OCR")
		return p.autoOCR(ctx, doc, DetectedFallback, "", nil)
	}

	text := quick.Text
	if utf8.RuneCountInString(text) < minDirectTextRunes {
		log.Info("little or no text layer, treating as scan")
		return p.autoOCR(ctx, doc, DetectedScan, text, nil)
	}

	extra := map[string]any{}
	hasTable := false
	if p.cfg.EnableTableDetection {
		det := tabledetect.Detect(quick.Pages)
		hasTable = det.HasTable
		extra["tableScore"] = det.Score
		if hasTable {
			extra["tablePages"] = det.TablePages()
		}
	}
	extra["hasTable"] = hasTable

	assessment := quality.Evaluate(text)
	if hasTable || !assessment.HighQuality {
		log.WithFields(logx.Fields{"hasTable": hasTable, "quality": assessment.Reason}).
			Info("complex document, using OCR")
		return p.autoOCR(ctx, doc, DetectedComplex, text, extra)
	}

	res := textResult(quick)
	for k, v := range extra {
		res.setMeta(k, v)
	}
	res.setMeta("autoDetectedType", DetectedText)
	res.setMeta("parsingMode", "AUTO->SIMPLE")
	return res, nil
}

func (p *Parser) autoOCR(ctx context.Context, doc *sourceDoc, detected, original string, extra map[string]any) (*Result, error) {
	res, err := p.parseOCR(ctx, doc, original)
	if err != nil {
		return nil, err
	}
	for k, v := range extra {
		res.setMeta(k, v)
	}
	res.setMeta("autoDetectedType", detected)
	res.setMeta("parsingMode", "AUTO->OCR")
	return res, nil
}

func textResult(ext extract.Result) *Result {
	res := &Result{
		FinalText:    ext.Text,
		QualityScore: quality.Score(ext.Text),
		Method:       MethodTextExtraction,
		Metadata:     make(map[string]any, len(ext.Metadata)+2),
	}
	for k, v := range ext.Metadata {
		res.Metadata[k] = v
	}
	res.setMeta("qualityScore", res.QualityScore)
	res.setMeta("parsingStatus", string(scheduler.StatusComplete))
	return res
}

// parseOCR renders the document, runs the page scheduler and assembles the
// structured result. original is the directly extracted text, used for the
// compression metrics; it is extracted here when empty.
func (p *Parser) parseOCR(ctx context.Context, doc *sourceDoc, original string) (*Result, error) {
	if doc.format != extract.FormatPDF && doc.format != extract.FormatImage {
		return nil, ErrRegistry.New(ErrOCRUnsupported).
			WithDetail("path", doc.path).
			WithDetail("format", string(doc.format)).
			NonRetryable()
	}

	start := time.Now()
	fp := parsecache.Fingerprint(doc.path, doc.size, doc.modTime)
	log := logx.WithFields(logx.Fields{"fingerprint": fp, "path": doc.path})

	batch, err := p.batch(ctx, doc, fp, log, true)
	if err != nil {
		return nil, err
	}

	outcome, err := p.scheduler.Run(ctx, batch)
	if errx.HasCode(err, scheduler.ErrMissingImage) {
		log.WithError(err).Warn("cached pages expired before use, rendering document")
		if batch, err = p.batch(ctx, doc, fp, log, false); err != nil {
			return nil, err
		}
		outcome, err = p.scheduler.Run(ctx, batch)
	}
	if err != nil {
		return nil, err
	}

	d := &ocr.Document{
		Pages:            outcome.Pages,
		ModelInfo:        outcome.ModelInfo,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	method := MethodOCR
	if outcome.FromCache {
		method = MethodOCRCached
		d.ModelInfo = "cached"
	}

	merged := 0
	if p.cfg.EnableTableMerge && len(d.Pages) > 1 {
		merged = p.merger.Merge(d).Count()
	}

	final := d.Markdown(p.cfg.ConfidenceThreshold)
	if original == "" && doc.format == extract.FormatPDF {
		if ext, err := p.extractor.Extract(ctx, doc.local); err == nil {
			original = ext.Text
		}
	}
	report := p.scorer.Score(d, original, final)
	units := d.ChunkableUnits()
	chunking := ocr.RecommendChunking(units)

	res := &Result{
		FinalText:      final,
		Document:       d,
		QualityScore:   report.QualityScore,
		Method:         method,
		ChunkableUnits: units,
		Chunking:       &chunking,
		Report:         &report,
		Metadata: map[string]any{
			"pageCount":         len(d.Pages),
			"totalPages":        len(batch.Pages),
			"elementCount":      d.ElementCount(),
			"tableCount":        d.TableCount(),
			"averageConfidence": d.AverageConfidence(),
			"qualityScore":      report.QualityScore,
			"compressionRatio":  report.Compression.Ratio,
			"originalTokens":    report.Compression.OriginalTokens,
			"compressedTokens":  report.Compression.CompressedTokens,
			"usedCache":         outcome.UsedCache,
			"fromCache":         outcome.FromCache,
			"failedPages":       len(outcome.FailedPages),
			"parsingStatus":     string(outcome.Status),
			"ocrRounds":         outcome.Rounds,
			"tablesMerged":      merged,
			"processingTimeMs":  d.ProcessingTimeMs,
		},
	}
	if len(report.Recommendations) > 0 {
		res.setMeta("recommendations", report.Recommendations)
	}
	if outcome.Status == scheduler.StatusPartial {
		res.setMeta("failedPageNumbers", outcome.FailedPages)
		log.WithField("failedPages", outcome.FailedPages).
			Warn("some pages failed OCR, resubmit the document to retry them")
	}
	if doc.format == extract.FormatImage {
		res.setMeta("imageSizeBytes", doc.size)
	}
	if p.cache != nil {
		res.setMeta("documentKey", fp)
		if prog, err := p.cache.Progress(ctx, fp); err == nil {
			res.setMeta("cacheProgress", prog.String())
		}
	}
	return res, nil
}

// batch builds the scheduler input. With useCache set, a document whose
// every page is cached is not rendered again.
func (p *Parser) batch(ctx context.Context, doc *sourceDoc, fp string, log *logx.Entry, useCache bool) (scheduler.Batch, error) {
	b := scheduler.Batch{Fingerprint: fp}

	if total := p.cachedPages(ctx, fp); useCache && total > 0 {
		log.WithField("pages", total).Info("document fully cached, skipping render")
		for no := 1; no <= total; no++ {
			b.Pages = append(b.Pages, scheduler.Page{No: no})
		}
		return b, nil
	}

	images, err := p.renderer.Render(ctx, doc.local)
	if err != nil {
		return b, ErrRegistry.NewWithCause(ErrRender, err).WithDetail("path", doc.path)
	}
	for _, img := range images {
		b.Pages = append(b.Pages, scheduler.Page{No: img.PageNo, Image: ocr.NewImage(img.Data, img.MimeType)})
	}
	return b, nil
}

// cachedPages returns the page count of a complete cached state, or 0.
func (p *Parser) cachedPages(ctx context.Context, fp string) int {
	if p.cache == nil {
		return 0
	}
	s, err := p.cache.State(ctx, fp)
	if err != nil || s == nil || !s.Complete() {
		return 0
	}
	return s.TotalPages
}
