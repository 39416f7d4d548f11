// Package numerator provides domain contracts for document auto-numbering.
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
	"fmt"
	"time"
)

// Config holds numbering configuration for one document type.
type Config struct {
	// Prefix added to all numbers (e.g., "PO", "GRN")
	Prefix string

	// PadWidth is the minimum number width
	PadWidth int
}

// PurchaseOrder numbers look like PO-2026-00001.
var PurchaseOrder = Config{Prefix: "PO", PadWidth: 5}

// GoodsReceipt numbers look like GRN-2026-00001.
var GoodsReceipt = Config{Prefix: "GRN", PadWidth: 5}

// Generator generates sequential document numbers. Sequences reset every year.
type Generator interface {
	GetNextNumber(ctx context.Context, cfg Config, period time.Time) (string, error)
}

// Format renders PREFIX-YEAR-NNNNN.
func Format(cfg Config, period time.Time, n int64) string {
	width := cfg.PadWidth
	if width <= 0 {
		width = 5
	}
	return fmt.Sprintf("%s-%d-%0*d", cfg.Prefix, period.Year(), width, n)
}
