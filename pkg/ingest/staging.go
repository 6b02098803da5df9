package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/coboxhq/abra/pkg/metrics"
	"github.com/coboxhq/abra/pkg/store"
)

// ContentIDPlaceholder in a binding's target_ref is substituted with the id
// of the content blob stored for the same staging entry.
const ContentIDPlaceholder = "__CONTENT_ID__"

// BindingSpec is one binding inside a staging entry.
type BindingSpec struct {
	Scope        string `json:"scope"`
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	TargetType   string `json:"target_type"`
	TargetRef    string `json:"target_ref"`
	Qualifier    string `json:"qualifier"`
	Permanence   string `json:"permanence"`
	SourceDate   string `json:"source_date"`
	Catcode      string `json:"catcode"`
}

// Entry is one unit of a staging file: a content blob plus the bindings
// anchored to it.
type Entry struct {
	SourceFile string        `json:"source_file"`
	Content    string        `json:"content"`
	NoteDate   string        `json:"note_date"`
	Catcode    string        `json:"catcode"`
	Bindings   []BindingSpec `json:"bindings"`
}

// LoadStaging parses a staging file: a JSON array of entries.
func LoadStaging(r io.Reader) ([]Entry, error) {
	var entries []Entry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse staging file: %w", err)
	}
	return entries, nil
}

// Importer runs ingestion pipelines against one store.
type Importer struct {
	Store   *store.Store
	Log     *slog.Logger
	Metrics metrics.Collector
}

// NewImporter wires an importer with a no-op metrics collector unless one
// is provided later.
func NewImporter(s *store.Store, log *slog.Logger) *Importer {
	return &Importer{Store: s, Log: log, Metrics: metrics.NewNoopCollector()}
}

// ImportStaging writes staged entries: each entry's content blob first,
// then its bindings, replacing the content-id placeholder. The order is a
// sequencing contract: a binding referencing the blob must see its id.
//
// PII rejections are counted and skipped, never aborting the batch. A
// backing-store failure stops the run; the committed prefix stays
// committed, and the partial report is returned along with the error.
func (imp *Importer) ImportStaging(ctx context.Context, entries []Entry) (*Report, error) {
	report := newReport("import-bindings")
	timer := startStage("write", report)

	for _, entry := range entries {
		contentID, err := imp.Store.StoreContent(ctx, entry.SourceFile, entry.Content, entry.NoteDate, entry.Catcode)
		if err != nil {
			report.Errors++
			imp.Metrics.RecordError(ctx, report.Operation, "database")
			timer.finish(imp.stagingCounters(report))
			return report, fmt.Errorf("failed to store content for %s: %w", entry.SourceFile, err)
		}
		report.Created++

		for _, spec := range entry.Bindings {
			ref := spec.TargetRef
			if ref == ContentIDPlaceholder {
				ref = strconv.FormatInt(contentID, 10)
			}
			_, err := imp.Store.WriteBinding(ctx, store.Binding{
				Scope:        spec.Scope,
				Name:         spec.Name,
				Relationship: spec.Relationship,
				TargetType:   spec.TargetType,
				TargetRef:    ref,
				Qualifier:    spec.Qualifier,
				Permanence:   spec.Permanence,
				SourceDate:   spec.SourceDate,
				Catcode:      spec.Catcode,
			})
			if errors.Is(err, store.ErrPIIRejected) {
				report.RejectedPII++
				imp.Metrics.RecordRejection(ctx, report.Operation, "pii")
				continue
			}
			if err != nil {
				report.Errors++
				imp.Metrics.RecordError(ctx, report.Operation, "database")
				timer.finish(imp.stagingCounters(report))
				return report, fmt.Errorf("failed to write binding %s %s: %w", spec.Name, spec.Relationship, err)
			}
			report.Created++
		}

		imp.Log.Info("staged entry imported",
			"source_file", entry.SourceFile,
			"content_id", contentID,
			"bindings", len(entry.Bindings))
	}

	timer.finish(imp.stagingCounters(report))
	imp.recordStages(ctx, report)
	imp.Metrics.RecordOperation(ctx, report.Operation, "ok", report.TotalDurationMs)
	return report, nil
}

func (imp *Importer) recordStages(ctx context.Context, report *Report) {
	for _, s := range report.Stages {
		imp.Metrics.RecordStage(ctx, report.Operation, s.Name, s.DurationMs)
	}
}

func (imp *Importer) stagingCounters(report *Report) map[string]int64 {
	return map[string]int64{
		"writes":      int64(report.Created),
		"piiRejected": int64(report.RejectedPII),
	}
}
