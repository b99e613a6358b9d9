package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"docsort/internal/label"
	"docsort/internal/logging"
	"docsort/internal/model"
	"docsort/internal/report"
	"docsort/internal/vision"
)

const sideEffectTimeout = 2 * time.Second

// ReportGenerator renders the PDF for a prediction.
type ReportGenerator interface {
	Generate(in report.Input) ([]byte, error)
}

// StatsRecorder counts successful predictions.
type StatsRecorder interface {
	Record(ctx context.Context, p model.Prediction) error
}

// EventPublisher forwards classification events to downstream filing.
type EventPublisher interface {
	Publish(ctx context.Context, event model.ClassificationEvent) error
}

// Upload is one request's image. It lives only as long as the request.
type Upload struct {
	Data      []byte
	Filename  string
	RequestID string
}

type Result struct {
	Prediction model.Prediction
	Format     vision.Format
	PDF        []byte
}

type ClassifyOptions struct {
	ChannelOrder     vision.ChannelOrder
	InferenceTimeout time.Duration
	ReportTimeout    time.Duration
	// MaxPixels caps width*height before pixels are decoded.
	MaxPixels int64
	// Stats and Events are optional.
	Stats  StatsRecorder
	Events EventPublisher
}

// ClassifyService runs validate -> preprocess -> infer -> resolve -> report and
// stops at the first failing stage.
type ClassifyService struct {
	classifier vision.Classifier
	reports    ReportGenerator
	opts       ClassifyOptions
	logger     *zap.Logger
}

func NewClassifyService(classifier vision.Classifier, reports ReportGenerator, opts ClassifyOptions, logger *zap.Logger) *ClassifyService {
	if opts.InferenceTimeout <= 0 {
		opts.InferenceTimeout = 10 * time.Second
	}
	if opts.ReportTimeout <= 0 {
		opts.ReportTimeout = 10 * time.Second
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = vision.DefaultMaxPixels
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassifyService{
		classifier: classifier,
		reports:    reports,
		opts:       opts,
		logger:     logger,
	}
}

func (s *ClassifyService) Process(ctx context.Context, up Upload) (*Result, error) {
	log := logging.WithOperation(s.logger, "process_image", up.RequestID)

	if len(up.Data) == 0 {
		return nil, newStageError(KindValidation, "No file uploaded", ErrNoUpload)
	}

	img, format, err := vision.DecodeLimit(up.Data, s.opts.MaxPixels)
	if errors.Is(err, vision.ErrImageTooLarge) {
		return nil, newStageError(KindValidation, fmt.Sprintf("image is too large: at most %d pixels are accepted", s.opts.MaxPixels), err)
	}
	if err != nil {
		return nil, newStageError(KindValidation, "invalid image format: supported formats are JPEG, PNG and HEIC", err)
	}
	log.Debug("image accepted",
		zap.String("format", string(format)),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
		zap.Int("bytes", len(up.Data)),
	)

	tensor := vision.PreprocessImage(img, s.opts.ChannelOrder)
	if err := tensor.Validate(); err != nil {
		return nil, newStageError(KindPreprocess, "failed to preprocess image", err)
	}

	started := time.Now()
	scores, err := withTimeout(ctx, s.opts.InferenceTimeout, func(ctx context.Context) ([]float32, error) {
		return s.classifier.Predict(ctx, tensor)
	})
	if err != nil {
		return nil, stageFailure(KindInference, "inference", err)
	}
	prediction, err := resolve(scores)
	if err != nil {
		return nil, newStageError(KindInference, "inference failed", err)
	}
	log.Info("image classified",
		zap.String("label", prediction.Label),
		zap.Int("label_index", prediction.LabelIndex),
		zap.String("category", prediction.Category),
		zap.Float64("confidence", prediction.Confidence),
		zap.Duration("inference", time.Since(started)),
	)

	pdf, err := withTimeout(ctx, s.opts.ReportTimeout, func(context.Context) ([]byte, error) {
		return s.reports.Generate(report.Input{
			Label:      prediction.Label,
			Category:   prediction.Category,
			Confidence: prediction.Confidence,
			Filename:   up.Filename,
			Image:      img,
			Raw:        up.Data,
			Format:     string(format),
		})
	})
	if err != nil {
		return nil, stageFailure(KindReport, "report generation", err)
	}

	s.observe(ctx, log, up, prediction)

	return &Result{Prediction: prediction, Format: format, PDF: pdf}, nil
}

// observe feeds stats and filing. Failures are logged and never reach the caller.
func (s *ClassifyService) observe(ctx context.Context, log *zap.Logger, up Upload, p model.Prediction) {
	if s.opts.Stats == nil && s.opts.Events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if s.opts.Stats != nil {
		if err := s.opts.Stats.Record(ctx, p); err != nil {
			log.Warn("record prediction stats failed", zap.Error(err))
		}
	}
	if s.opts.Events != nil {
		event := model.ClassificationEvent{
			ID:           uuid.NewString(),
			RequestID:    up.RequestID,
			Filename:     up.Filename,
			Label:        p.Label,
			Category:     p.Category,
			Confidence:   p.Confidence,
			ClassifiedAt: time.Now().UTC(),
		}
		if err := s.opts.Events.Publish(ctx, event); err != nil {
			log.Warn("publish classification event failed", zap.Error(err))
		}
	}
}

// resolve turns raw scores into a prediction. Vectors that are not already
// probabilities (logits) go through softmax first so confidence stays in [0,1].
func resolve(scores []float32) (model.Prediction, error) {
	if len(scores) == 0 {
		return model.Prediction{}, errors.New("classifier returned no scores")
	}
	probs := scores
	for _, v := range scores {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return model.Prediction{}, fmt.Errorf("classifier returned non-finite score %v", v)
		}
		if v < 0 || v > 1 {
			probs = softmax(scores)
			break
		}
	}

	index, confidence := vision.ArgMax(probs)
	lbl := label.Resolve(index)
	return model.Prediction{
		LabelIndex: lbl.Index(),
		Label:      lbl.Name(),
		Category:   lbl.Category(),
		Confidence: float64(confidence),
		Scores:     probs,
	}, nil
}

func softmax(logits []float32) []float32 {
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		maxLogit = max(maxLogit, v)
	}
	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxLogit))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}

func stageFailure(kind Kind, stage string, err error) *StageError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newStageError(KindTimeout, stage+" timed out", err)
	case errors.Is(err, context.Canceled):
		return newStageError(KindCanceled, "request canceled", err)
	default:
		return newStageError(kind, stage+" failed", err)
	}
}

// withTimeout runs fn in its own goroutine so a stuck backend cannot hold the
// request past d. fn keeps running after the deadline; its result is dropped.
func withTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- outcome{zero, fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
