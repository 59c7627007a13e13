package policy

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"edge-resizer/edge"
	"edge-resizer/metrics"
	"edge-resizer/storage"
	"edge-resizer/transform"
	"edge-resizer/validation"
)

// DefaultInlineLimit is the largest encoded result served inline; anything
// bigger is stored and redirected to.
const DefaultInlineLimit = 1 << 20

// Transformer produces the resized variant of an asset.
type Transformer interface {
	Transform(asset *storage.Object, spec validation.SizeSpec) (*transform.Result, error)
}

// Policy decides what to do with an origin response.
type Policy struct {
	logger      *zap.Logger
	storage     storage.Storage
	transformer Transformer
	counters    *metrics.Metrics
	performance *metrics.PerformanceMetrics
	inlineLimit int
}

func New(logger *zap.Logger, store storage.Storage, transformer Transformer, counters *metrics.Metrics, performance *metrics.PerformanceMetrics, inlineLimit int) *Policy {
	if inlineLimit <= 0 {
		inlineLimit = DefaultInlineLimit
	}

	// unregistered collectors keep the pipeline free of nil checks
	if counters == nil {
		counters = metrics.InitializeMetrics(prometheus.NewRegistry(), nil)
	}
	if performance == nil {
		performance = metrics.InitializePerformanceMetrics(prometheus.NewRegistry(), nil)
	}

	return &Policy{
		logger:      logger,
		storage:     store,
		transformer: transformer,
		counters:    counters,
		performance: performance,
		inlineLimit: inlineLimit,
	}
}

// Handle runs the pipeline for one origin response and returns resp. On any
// fault the fault is logged and resp is returned exactly as received.
func (p *Policy) Handle(ctx context.Context, req edge.Request, resp *edge.Response) *edge.Response {
	decision, err := p.run(ctx, req, resp)
	if err != nil {
		p.logFault(ctx, req, err)
		return resp
	}

	Apply(decision, resp)

	switch d := decision.(type) {
	case Passthrough:
		p.counters.RecordDecision(OutcomePassthrough, string(d.Reason))
		p.logger.Debug("origin response passed through", zap.String("reason", string(d.Reason)), zap.String("uri", req.URI), zap.String("querystring", req.QueryString))
	case InlineServe:
		p.counters.RecordDecision(OutcomeInline, string(ReasonResized))
		p.logger.Info("resized image served inline", zap.String("uri", req.URI), zap.String("querystring", req.QueryString), zap.Int("size", len(d.Body)), zap.String("content_type", d.ContentType))
	case Redirect:
		p.counters.RecordDecision(OutcomeRedirect, string(ReasonResized))
		p.logger.Info("resized image stored, redirecting", zap.String("uri", req.URI), zap.String("querystring", req.QueryString), zap.String("location", d.Location()), zap.Int("size", len(d.Body)))
	}

	return resp
}

// run decides and, for a redirect, persists the derived asset. Nothing in
// resp is touched here.
func (p *Policy) run(ctx context.Context, req edge.Request, resp *edge.Response) (decision Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			decision = nil
			err = &Fault{Stage: StagePanic, Err: errors.Errorf("recovered: %v", r)}
		}
	}()

	decision, err = p.Decide(ctx, req, resp)
	if err != nil {
		return nil, err
	}

	if redirect, ok := decision.(Redirect); ok {
		_, err = metrics.TimeFunction(func() (struct{}, error) {
			return struct{}{}, p.storage.Put(ctx, redirect.Key, redirect.ContentType, redirect.Body)
		}, p.performance.StorageTime, "put")
		if err != nil {
			return nil, newFault(StagePersist, err)
		}
	}

	return decision, nil
}

// Decide evaluates the guards in order and, when all pass, transforms the
// original asset. Guard failures are Passthrough decisions, not errors.
func (p *Policy) Decide(ctx context.Context, req edge.Request, resp *edge.Response) (Decision, error) {
	if resp == nil || resp.Status != http.StatusOK {
		return Passthrough{Reason: ReasonStatus}, nil
	}

	key := req.Key()
	asset, err := metrics.TimeFunction(func() (*storage.Object, error) {
		return p.storage.Get(ctx, key)
	}, p.performance.StorageTime, "get")
	if errors.Is(err, storage.ErrNotFound) || (err == nil && asset == nil) {
		return Passthrough{Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return nil, newFault(StageFetch, err)
	}

	if !validation.IsRasterMime(asset.ContentType) {
		return Passthrough{Reason: ReasonContentType}, nil
	}

	spec, err := validation.ParseSizeSpec(req.QueryString)
	if err != nil {
		return nil, newFault(StageParse, err)
	}
	if spec == nil || !spec.Active() {
		return Passthrough{Reason: ReasonNotResize}, nil
	}

	format := validation.NormalizeMime(asset.ContentType)
	result, err := metrics.TimeFunction(func() (*transform.Result, error) {
		return p.transformer.Transform(asset, *spec)
	}, p.performance.TransformTime, format)
	if err != nil {
		return nil, newFault(StageTransform, err)
	}
	p.performance.ObserveSize(format, result.Size)

	if result.Size > p.inlineLimit {
		return Redirect{
			Key:         storage.DerivedKey(key, *spec),
			ContentType: asset.ContentType,
			Body:        result.Body,
		}, nil
	}

	return InlineServe{Body: result.Body, ContentType: asset.ContentType}, nil
}

func (p *Policy) logFault(ctx context.Context, req edge.Request, err error) {
	stage := StagePanic
	var fault *Fault
	if errors.As(err, &fault) {
		stage = fault.Stage
	}

	p.counters.RecordFault(string(stage))
	p.counters.RecordDecision(OutcomeErrorPassthrough, string(stage))

	fields := []zap.Field{
		zap.String("stage", string(stage)),
		zap.String("uri", req.URI),
		zap.String("querystring", req.QueryString),
		zap.Error(err),
	}
	if spanContext := trace.SpanContextFromContext(ctx); spanContext.IsValid() {
		fields = append(fields, zap.String("trace_id", spanContext.TraceID().String()), zap.String("span_id", spanContext.SpanID().String()))
	}

	p.logger.Error("image transformation failed, serving original response", fields...)
}
