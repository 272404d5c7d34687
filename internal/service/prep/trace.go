package prep

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/zhouzirui/z-interview/backend/internal/model/interview"
	"github.com/zhouzirui/z-interview/backend/internal/storage"
)

// TraceSink receives the single trace record produced by each run.
type TraceSink interface {
	Record(ctx context.Context, trace *interview.PipelineTrace) error
}

// LogSink writes a one-line summary per run.
type LogSink struct{}

func (LogSink) Record(_ context.Context, trace *interview.PipelineTrace) error {
	parts := make([]string, 0, len(trace.Stages))
	for _, stage := range trace.Stages {
		status := "ok"
		if !stage.Success {
			status = "failed:" + stage.ErrorKind
		}
		parts = append(parts, stage.Name+"="+status)
	}
	log.Printf("[prep] trace session=%s total=%dms fallback=%t stages=[%s]",
		trace.SessionID, trace.TotalMs, trace.UsedFallback, strings.Join(parts, ", "))
	return nil
}

// StoreSink persists the trace next to the session artifacts.
type StoreSink struct {
	Store storage.Store
}

func (s StoreSink) Record(ctx context.Context, trace *interview.PipelineTrace) error {
	if s.Store == nil || trace.SessionID == "" {
		return nil
	}
	return s.Store.SaveJSON(ctx, trace.SessionID, storage.KindPipelineTrace, trace)
}

// MultiSink fans a trace out to every sink and joins their errors.
type MultiSink []TraceSink

func (m MultiSink) Record(ctx context.Context, trace *interview.PipelineTrace) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, trace); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
