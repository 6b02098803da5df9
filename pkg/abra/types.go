package abra

import (
	"github.com/coboxhq/abra/pkg/ingest"
	"github.com/coboxhq/abra/pkg/store"
)

// Type re-exports for caller convenience

// Binding is re-exported from store package
type Binding = store.Binding

// Content is re-exported from store package
type Content = store.Content

// CatcodeEntry is re-exported from store package
type CatcodeEntry = store.CatcodeEntry

// Report is re-exported from ingest package
type Report = ingest.Report

// Relationship constants re-exported from store package
const (
	RelIs      = store.RelIs
	RelHas     = store.RelHas
	RelAbout   = store.RelAbout
	RelRelated = store.RelRelated
)

// Target type constants re-exported from store package
const (
	TargetText    = store.TargetText
	TargetContent = store.TargetContent
	TargetURI     = store.TargetURI
	TargetName    = store.TargetName
)

// Permanence constants re-exported from store package
const (
	PermIntrinsic = store.PermIntrinsic
	PermCurrent   = store.PermCurrent
	PermEphemeral = store.PermEphemeral
)
