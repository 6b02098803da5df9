package abra

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/coboxhq/abra/pkg/catcode"
	"github.com/coboxhq/abra/pkg/crm"
	"github.com/coboxhq/abra/pkg/store"
)

// Error type constants for classification
const (
	ErrTypeGovernance = "governance"
	ErrTypeNamespace  = "namespace"
	ErrTypeCRM        = "crm"
	ErrTypeNetwork    = "network"
	ErrTypeTimeout    = "timeout"
	ErrTypeDatabase   = "database"
	ErrTypeValidation = "validation"
	ErrTypeUnknown    = "unknown"
)

// ClassifyError inspects an error and returns its type classification.
// This enables grouping errors by category in metrics and reports.
func ClassifyError(err error) string {
	if err == nil {
		return ""
	}

	// Sentinels first; they are exact.
	if errors.Is(err, store.ErrPIIRejected) {
		return ErrTypeGovernance
	}
	if errors.Is(err, store.ErrBadCatcode) ||
		errors.Is(err, store.ErrParentNotFound) ||
		errors.Is(err, catcode.ErrSpaceExhausted) {
		return ErrTypeNamespace
	}
	if errors.Is(err, crm.ErrNotConfigured) {
		return ErrTypeCRM
	}
	if errors.Is(err, store.ErrContentNotFound) {
		return ErrTypeValidation
	}

	errStrLower := strings.ToLower(err.Error())

	// Check for timeout errors
	if errors.Is(err, context.DeadlineExceeded) ||
		strings.Contains(errStrLower, "timeout") ||
		strings.Contains(errStrLower, "deadline exceeded") {
		return ErrTypeTimeout
	}

	// Check for network errors
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return ErrTypeNetwork
	}
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "connection reset") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "network is unreachable") ||
		strings.Contains(errStrLower, "dial tcp") {
		return ErrTypeNetwork
	}

	// Check for CRM/RPC errors
	if strings.Contains(errStrLower, "odoo") ||
		strings.Contains(errStrLower, "rpc") ||
		strings.Contains(errStrLower, "authentication") {
		return ErrTypeCRM
	}

	// Check for database errors (SQLite specific)
	if strings.Contains(errStrLower, "sql") ||
		strings.Contains(errStrLower, "database") ||
		strings.Contains(errStrLower, "constraint") ||
		strings.Contains(errStrLower, "unique") && strings.Contains(errStrLower, "failed") {
		return ErrTypeDatabase
	}

	// Check for validation errors
	if strings.Contains(errStrLower, "validation") ||
		strings.Contains(errStrLower, "invalid") ||
		strings.Contains(errStrLower, "require") ||
		strings.Contains(errStrLower, "cannot be empty") ||
		strings.Contains(errStrLower, "must be") {
		return ErrTypeValidation
	}

	// Default to unknown
	return ErrTypeUnknown
}
