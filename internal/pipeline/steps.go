package pipeline

import (
	"context"
	"time"

	"github.com/nao1215/linkspider/internal/crawler"
	"github.com/nao1215/linkspider/internal/model"
	"github.com/nao1215/linkspider/internal/report"
)

// WriteStep writes each address on its own line.
type WriteStep struct {
	w *report.LineWriter
}

// NewWriteStep creates a WriteStep writing through w.
func NewWriteStep(w *report.LineWriter) *WriteStep {
	return &WriteStep{w: w}
}

// Name returns the step name.
func (s *WriteStep) Name() string { return "write" }

// Do writes addr.
func (s *WriteStep) Do(_ context.Context, addr string) error {
	return s.w.WriteLine(addr)
}

// SummaryStep tallies addresses into a run summary. The summary must not be
// read until the pipeline has returned.
type SummaryStep struct {
	summary *model.Summary
}

// NewSummaryStep creates a SummaryStep feeding summary.
func NewSummaryStep(summary *model.Summary) *SummaryStep {
	return &SummaryStep{summary: summary}
}

// Name returns the step name.
func (s *SummaryStep) Name() string { return "summary" }

// Do adds addr to the summary.
func (s *SummaryStep) Do(_ context.Context, addr string) error {
	s.summary.Add(addr)
	return nil
}

// Recorder stores discovered addresses. *database.HistoryDB implements it.
type Recorder interface {
	RecordDiscovery(ctx context.Context, runID int64, addr string, at time.Time) error
}

// RecordStep stores each address against a history run.
type RecordStep struct {
	recorder Recorder
	runID    int64
	now      func() time.Time
}

// NewRecordStep creates a RecordStep for the given run.
func NewRecordStep(recorder Recorder, runID int64) *RecordStep {
	return &RecordStep{recorder: recorder, runID: runID, now: time.Now}
}

// Name returns the step name.
func (s *RecordStep) Name() string { return "record" }

// Do records addr. An address that reached the pipeline is recorded even if
// the crawl is cancelled meanwhile.
func (s *RecordStep) Do(ctx context.Context, addr string) error {
	return s.recorder.RecordDiscovery(context.WithoutCancel(ctx), s.runID, addr, s.now())
}

// Submitter schedules a background download. *download.Pool implements it.
type Submitter interface {
	Submit(ctx context.Context, addr string)
}

// DownloadStep submits addresses that pass filter to the download pool, so
// only pages the crawl expands are mirrored.
type DownloadStep struct {
	filter crawler.Filter
	pool   Submitter
	// downloadCtx outlives the crawl so downloads survive a result limit.
	downloadCtx context.Context //nolint:containedctx
}

// NewDownloadStep creates a DownloadStep. Downloads run under ctx rather
// than the per-address context passed to Do.
func NewDownloadStep(ctx context.Context, filter crawler.Filter, pool Submitter) *DownloadStep {
	if filter == nil {
		filter = crawler.ExpandNone()
	}
	return &DownloadStep{filter: filter, pool: pool, downloadCtx: ctx}
}

// Name returns the step name.
func (s *DownloadStep) Name() string { return "download" }

// Do submits addr if it passes the filter.
func (s *DownloadStep) Do(_ context.Context, addr string) error {
	if s.filter(addr) {
		s.pool.Submit(s.downloadCtx, addr)
	}
	return nil
}
