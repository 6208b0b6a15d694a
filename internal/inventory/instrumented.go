package inventory

import (
	"context"
	"time"

	"ecommerce-datagen/internal/util"
)

type instrumented struct {
	Ledger
	backend string
}

// Instrument wraps a ledger with reservation latency and failure metrics
func Instrument(l Ledger, backend string) Ledger {
	return &instrumented{Ledger: l, backend: backend}
}

func (i *instrumented) Reserve(ctx context.Context, productID string, qty int) (bool, error) {
	start := time.Now()
	ok, err := i.Ledger.Reserve(ctx, productID, qty)
	util.LedgerReserveLatency.WithLabelValues(i.backend).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		util.ReservationsFailedTotal.WithLabelValues("error").Inc()
	case !ok:
		util.ReservationsFailedTotal.WithLabelValues("insufficient_stock").Inc()
	}
	return ok, err
}
