package ingest

import (
	"context"
	"fmt"

	"github.com/coboxhq/abra/pkg/store"
)

// ContactBlobOptions configures the scrubbed contact-list import.
type ContactBlobOptions struct {
	Scope         string
	Catcode       string
	ParentCatcode string
	Label         string
	BindingName   string // subject name carrying the IS/ABOUT bindings
	NoteDate      string
	ChunkSize     int  // contacts per blob, default 200
	Replace       bool // delete prior chunks and bindings first
}

// defaultChunkSize is the number of contact lines per content blob.
const defaultChunkSize = 200

// chunkSourceFile names a stored chunk; the shared prefix is what Replace
// matches against.
func chunkSourceFile(i int) string {
	return fmt.Sprintf("contacts-full-list-chunk-%d.csv", i)
}

// ImportContactBlobs stores scrubbed contact lines as chunked content blobs
// under a catcode, bound to one subject: an IS binding describing the list
// and an ABOUT binding per chunk. Lines are expected to be PII-free
// already; the blob path does not run the guard.
func (imp *Importer) ImportContactBlobs(ctx context.Context, lines []string, opts ContactBlobOptions) (*Report, error) {
	report := newReport("import-contacts")
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}

	if err := imp.Store.RegisterCatcode(ctx, opts.Catcode, opts.ParentCatcode, opts.Label); err != nil {
		imp.Metrics.RecordError(ctx, report.Operation, "namespace")
		return report, fmt.Errorf("failed to register catcode %s: %w", opts.Catcode, err)
	}

	if opts.Replace {
		timer := startStage("replace", report)
		oldContent, err := imp.Store.DeleteContentBySource(ctx, opts.Catcode, "contacts-full-list-chunk-%")
		if err != nil {
			return report, err
		}
		oldBindings, err := imp.Store.DeleteBindings(ctx, opts.Scope, opts.BindingName)
		if err != nil {
			return report, err
		}
		timer.finish(map[string]int64{"contentDeleted": oldContent, "bindingsDeleted": oldBindings})
		imp.Log.Info("replaced previous import",
			"content_deleted", oldContent, "bindings_deleted", oldBindings)
	}

	chunks := chunkLines(lines, opts.ChunkSize)
	timer := startStage("write", report)

	var contentIDs []int64
	for i, chunk := range chunks {
		text := fmt.Sprintf("Contacts list (chunk %d/%d)\n", i+1, len(chunks))
		text += "Scrubbed: no emails or phone numbers. For PII see CRM.\n\n"
		for _, line := range chunk {
			text += line + "\n"
		}
		id, err := imp.Store.StoreContent(ctx, chunkSourceFile(i+1), text, opts.NoteDate, opts.Catcode)
		if err != nil {
			report.Errors++
			imp.Metrics.RecordError(ctx, report.Operation, "database")
			timer.finish(nil)
			return report, fmt.Errorf("failed to store chunk %d: %w", i+1, err)
		}
		contentIDs = append(contentIDs, id)
		report.Created++
	}

	// One IS binding for the list, one ABOUT per chunk.
	_, err := imp.Store.WriteBinding(ctx, store.Binding{
		Scope:        opts.Scope,
		Name:         opts.BindingName,
		Relationship: store.RelIs,
		TargetType:   store.TargetText,
		TargetRef:    "Full contacts list (scrubbed, no PII)",
		Permanence:   store.PermIntrinsic,
		SourceDate:   opts.NoteDate,
		Catcode:      opts.Catcode,
	})
	if err != nil {
		report.Errors++
		timer.finish(nil)
		return report, fmt.Errorf("failed to write list binding: %w", err)
	}
	report.Created++

	for i, id := range contentIDs {
		_, err := imp.Store.WriteBinding(ctx, store.Binding{
			Scope:        opts.Scope,
			Name:         opts.BindingName,
			Relationship: store.RelAbout,
			TargetType:   store.TargetContent,
			TargetRef:    fmt.Sprintf("%d", id),
			Qualifier:    fmt.Sprintf("contacts list chunk %d/%d", i+1, len(chunks)),
			SourceDate:   opts.NoteDate,
			Catcode:      opts.Catcode,
		})
		if err != nil {
			report.Errors++
			timer.finish(nil)
			return report, fmt.Errorf("failed to write chunk binding %d: %w", i+1, err)
		}
		report.Created++
	}

	timer.finish(map[string]int64{
		"entries": int64(len(lines)),
		"chunks":  int64(len(chunks)),
	})
	imp.recordStages(ctx, report)
	imp.Metrics.RecordOperation(ctx, report.Operation, "ok", report.TotalDurationMs)
	return report, nil
}

func chunkLines(lines []string, size int) [][]string {
	var chunks [][]string
	for start := 0; start < len(lines); start += size {
		end := start + size
		if end > len(lines) {
			end = len(lines)
		}
		chunks = append(chunks, lines[start:end])
	}
	return chunks
}
