package tree

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	RBTreeStatsName = "xordered/rbtree"
)

type fixupOp string

const (
	insertOp fixupOp = "insert"
	removeOp fixupOp = "remove"
)

var (
	rotateLeftAttrs  = metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.rotation.direction", "left")))
	rotateRightAttrs = metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.rotation.direction", "right")))
	insertFixupAttrs = metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.fixup.op", string(insertOp))))
	removeFixupAttrs = metric.WithAttributeSet(attribute.NewSet(attribute.String("rbtree.fixup.op", string(removeOp))))
)

// rbtreeStats is nil when the stats are disabled, every method is a no-op then.
type rbtreeStats struct {
	insertCount   metric.Int64Counter
	removeCount   metric.Int64Counter
	rotationCount metric.Int64Counter
	fixupSteps    metric.Int64Histogram
	nodeCount     metric.Int64UpDownCounter
}

func (stats *rbtreeStats) IncreaseInsertCount() {
	if stats == nil {
		return
	}
	stats.insertCount.Add(context.Background(), 1)
	stats.nodeCount.Add(context.Background(), 1)
}

func (stats *rbtreeStats) IncreaseRemoveCount() {
	if stats == nil {
		return
	}
	stats.removeCount.Add(context.Background(), 1)
	stats.nodeCount.Add(context.Background(), -1)
}

// RecordRelease accounts for a whole tree torn down at once.
func (stats *rbtreeStats) RecordRelease(released int64) {
	if stats == nil || released <= 0 {
		return
	}
	stats.removeCount.Add(context.Background(), released)
	stats.nodeCount.Add(context.Background(), -released)
}

func (stats *rbtreeStats) IncreaseRotationCount(dir RBDirection) {
	if stats == nil {
		return
	}
	attrs := rotateLeftAttrs
	if dir == Right {
		attrs = rotateRightAttrs
	}
	stats.rotationCount.Add(context.Background(), 1, attrs)
}

func (stats *rbtreeStats) RecordFixupSteps(op fixupOp, steps int64) {
	if stats == nil {
		return
	}
	attrs := insertFixupAttrs
	if op == removeOp {
		attrs = removeFixupAttrs
	}
	stats.fixupSteps.Record(context.Background(), steps, attrs)
}

// Trees sharing a name share the instruments, their counts are summed.
func newRBTreeStats(name string) *rbtreeStats {
	meterName := fmt.Sprintf("%s/%s", RBTreeStatsName, name)
	return &rbtreeStats{
		insertCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"rbtree.insert.count",
				metric.WithDescription("The number of nodes inserted into the rbtree."),
			),
		),
		removeCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"rbtree.remove.count",
				metric.WithDescription("The number of nodes removed from the rbtree."),
			),
		),
		rotationCount: lo.Must[metric.Int64Counter](otel.Meter(meterName).
			Int64Counter(
				"rbtree.rotation.count",
				metric.WithDescription("The number of rotations applied while rebalancing."),
			),
		),
		fixupSteps: lo.Must[metric.Int64Histogram](otel.Meter(meterName).
			Int64Histogram(
				"rbtree.fixup.steps",
				metric.WithDescription("The number of rebalance loop iterations per insert or remove."),
			),
		),
		nodeCount: lo.Must[metric.Int64UpDownCounter](otel.Meter(meterName).
			Int64UpDownCounter(
				"rbtree.node.count",
				metric.WithDescription("The number of nodes held by the rbtrees."),
			),
		),
	}
}
