package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/coboxhq/abra/pkg/crm"
	"github.com/coboxhq/abra/pkg/identity"
	"github.com/coboxhq/abra/pkg/store"
)

// IdentityImportOptions configures the identity import.
type IdentityImportOptions struct {
	Scope   string
	Catcode string // position for all contact bindings, e.g. "a0010101"
}

// ImportIdentities pushes canonical (already deduplicated) contacts into
// the CRM sink and writes their PII-free bindings. Per-contact failures are
// counted and skipped; a contact whose email is already known to the CRM is
// skipped without error, which makes re-runs safe.
func (imp *Importer) ImportIdentities(ctx context.Context, contacts []identity.Contact, sink crm.Connector, opts IdentityImportOptions) (*Report, error) {
	report := newReport("import-identities")
	if !sink.Ready() {
		return report, crm.ErrNotConfigured
	}

	timer := startStage("import", report)
	for _, c := range contacts {
		if err := imp.importOne(ctx, c, sink, opts, report); err != nil {
			report.Errors++
			imp.Metrics.RecordError(ctx, report.Operation, "database")
			imp.Log.Error("identity import failed", "pet_name", c.PetName, "error", err)
		}
	}
	timer.finish(map[string]int64{
		"created":     int64(report.Created),
		"skipped":     int64(report.Skipped),
		"piiRejected": int64(report.RejectedPII),
	})
	imp.recordStages(ctx, report)
	imp.Metrics.RecordOperation(ctx, report.Operation, "ok", report.TotalDurationMs)
	return report, nil
}

func (imp *Importer) importOne(ctx context.Context, c identity.Contact, sink crm.Connector, opts IdentityImportOptions, report *Report) error {
	if c.Email != "" {
		existing, err := sink.FindByEmail(ctx, c.Email)
		if err != nil {
			return fmt.Errorf("failed to look up contact: %w", err)
		}
		if len(existing) > 0 {
			report.Skipped++
			imp.Metrics.RecordRejection(ctx, report.Operation, "already-exists")
			return nil
		}
	}

	// PII goes to the CRM side of the boundary only.
	title := c.Title
	if title == "" {
		title = "n/a"
	}
	crmID, err := sink.CreateContact(ctx, crm.NewContact{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Company: c.Company,
		Catcode: opts.Catcode,
		Notes:   fmt.Sprintf("Imported from %s. Title: %s", c.Source, title),
	})
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	if c.PetName != "" {
		bindings := []store.Binding{
			{
				Scope:        opts.Scope,
				Name:         c.PetName,
				Relationship: store.RelIs,
				TargetType:   store.TargetText,
				TargetRef:    c.Name,
				Permanence:   store.PermIntrinsic,
				Catcode:      opts.Catcode,
			},
			{
				Scope:        opts.Scope,
				Name:         c.PetName,
				Relationship: store.RelHas,
				TargetType:   store.TargetURI,
				TargetRef:    fmt.Sprintf("crm:odoo/contact/%d", crmID),
				Permanence:   store.PermCurrent,
				Catcode:      opts.Catcode,
			},
		}
		if c.ProfileURL != "" {
			bindings = append(bindings, store.Binding{
				Scope:        opts.Scope,
				Name:         c.PetName,
				Relationship: store.RelHas,
				TargetType:   store.TargetURI,
				TargetRef:    c.ProfileURL,
				Permanence:   store.PermCurrent,
				Catcode:      opts.Catcode,
			})
		}
		for _, b := range bindings {
			_, err := imp.Store.WriteBinding(ctx, b)
			if errors.Is(err, store.ErrPIIRejected) {
				report.RejectedPII++
				imp.Metrics.RecordRejection(ctx, report.Operation, "pii")
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to write binding: %w", err)
			}
		}
	}

	report.Created++
	return nil
}
