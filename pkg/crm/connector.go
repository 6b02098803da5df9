// Package crm is the boundary to the external CRM sink. Contact PII (name,
// email, phone) lives exclusively on that side; the binding store only ever
// sees opaque external ids like "crm:odoo/contact/42".
package crm

import "context"

// NewContact carries the fields handed to the CRM when creating a contact.
type NewContact struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Catcode string
	Notes   string
}

// Connector is the CRM sink contract.
type Connector interface {
	// Ready reports whether the sink is configured and usable.
	Ready() bool

	// CreateContact stores a contact and returns its external id.
	CreateContact(ctx context.Context, c NewContact) (int64, error)

	// FindByEmail returns the external ids of existing contacts with the
	// given email, possibly none.
	FindByEmail(ctx context.Context, email string) ([]int64, error)
}

// NullConnector is the Connector used when no CRM sink is configured.
// It is never ready; importers that need a sink refuse to run against it.
type NullConnector struct{}

// Ready always reports false.
func (NullConnector) Ready() bool { return false }

// CreateContact always fails.
func (NullConnector) CreateContact(context.Context, NewContact) (int64, error) {
	return 0, ErrNotConfigured
}

// FindByEmail always fails.
func (NullConnector) FindByEmail(context.Context, string) ([]int64, error) {
	return nil, ErrNotConfigured
}
