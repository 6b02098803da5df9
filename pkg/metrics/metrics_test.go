package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCollector_RecordOperation(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordOperation(ctx, "write-binding", "ok", 12)
	collector.RecordOperation(ctx, "write-binding", "ok", 8)
	collector.RecordOperation(ctx, "write-binding", "error", 5)
	collector.RecordOperation(ctx, "store-content", "ok", 20)

	if got := testutil.CollectAndCount(collector.operationsTotal); got != 3 {
		t.Errorf("expected 3 metric series, got %d", got)
	}

	ok := testutil.ToFloat64(collector.operationsTotal.WithLabelValues("write-binding", "ok"))
	if ok != 2 {
		t.Errorf("expected 2 write-binding/ok operations, got %f", ok)
	}
}

func TestPrometheusCollector_RecordRejection(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordRejection(ctx, "import-bindings", "pii")
	collector.RecordRejection(ctx, "import-bindings", "pii")
	collector.RecordRejection(ctx, "import-identities", "already-exists")

	pii := testutil.ToFloat64(collector.rejectionsTotal.WithLabelValues("import-bindings", "pii"))
	if pii != 2 {
		t.Errorf("expected 2 pii rejections, got %f", pii)
	}
}

func TestPrometheusCollector_RecordError(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordError(ctx, "import-identities", "database")
	collector.RecordError(ctx, "import-identities", "database")
	collector.RecordError(ctx, "catcode-register", "namespace")

	dbErrors := testutil.ToFloat64(collector.errorsTotal.WithLabelValues("import-identities", "database"))
	if dbErrors != 2 {
		t.Errorf("expected 2 database errors, got %f", dbErrors)
	}
}

func TestPrometheusCollector_SetStorageCount(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.SetStorageCount(ctx, "bindings", 120)
	collector.SetStorageCount(ctx, "bindings", 125)
	collector.SetStorageCount(ctx, "content", 9)

	bindings := testutil.ToFloat64(collector.storageCount.WithLabelValues("bindings"))
	if bindings != 125 {
		t.Errorf("expected gauge 125, got %f", bindings)
	}
}

func TestNoopCollector_Implements(t *testing.T) {
	var _ Collector = NewNoopCollector()
	var _ Collector = NewCollector()
}
