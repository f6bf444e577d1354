package orchestrator

import (
	"context"

	"github.com/GriffinCanCode/encounter-tracker/internal/diag"
	"github.com/GriffinCanCode/encounter-tracker/internal/frame"
	"github.com/GriffinCanCode/encounter-tracker/internal/ocr"
	"github.com/GriffinCanCode/encounter-tracker/internal/screen"
	"github.com/GriffinCanCode/encounter-tracker/internal/trace"
)

// Pipeline reads the text inside one screen region: capture, crop, mask,
// normalize, OCR.
type Pipeline struct {
	capturer screen.Capturer
	engine   ocr.Engine
	session  *diag.Session
	detector *screen.ChangeDetector
}

// NewPipeline builds a pipeline. session and detector may be nil.
func NewPipeline(capturer screen.Capturer, engine ocr.Engine, session *diag.Session, detector *screen.ChangeDetector) *Pipeline {
	return &Pipeline{capturer: capturer, engine: engine, session: session, detector: detector}
}

// Read returns the OCR text of region with masks painted over the crop.
// With dedup set, a crop matching the previous deduped crop is skipped and
// reported with skipped true. An OCR failure reads as empty text; only
// capture and region errors are returned.
func (p *Pipeline) Read(ctx context.Context, region frame.Region, masks []frame.Region, dedup bool) (text string, skipped bool, err error) {
	ctx, span := trace.StartSpan(ctx, "pipeline.Read")
	defer span.End()
	log := trace.Logger(ctx)

	shot, err := p.capturer.Capture(ctx)
	if err != nil {
		return "", false, err
	}

	crop, err := frame.CropByFraction(shot, region)
	if err != nil {
		return "", false, err
	}
	if len(masks) > 0 {
		if crop, err = frame.MaskRegions(crop, masks...); err != nil {
			return "", false, err
		}
	}
	input := frame.Normalize(crop)

	if dedup && p.detector != nil && !p.detector.Changed(input.Image()) {
		span.SetAttr("skipped", true)
		return "", true, nil
	}

	text, err = p.engine.Recognize(ctx, input)
	if err != nil {
		log.Warn("ocr failed, treating as empty text", "error", err)
		text = ""
	}

	if p.session != nil {
		if err := p.session.Dump(shot.Image(), crop.Image(), input.Image()); err != nil {
			log.Warn("failed to dump scan images", "error", err)
		}
	}
	return text, false, nil
}

// ResetDedup forgets the last deduped crop.
func (p *Pipeline) ResetDedup() {
	if p.detector != nil {
		p.detector.Reset()
	}
}
