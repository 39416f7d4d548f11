package numerator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "procura/internal/core/numerator"
)

type fakeRow struct {
	val int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.val
	return nil
}

// fakeQuerier keeps one counter per (prefix, year) like the sys_sequences upsert.
type fakeQuerier struct {
	counters map[string]int64
	err      error
}

func (q *fakeQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	if q.err != nil {
		return fakeRow{err: q.err}
	}
	key := args[0].(string) + "/" + time.Date(args[1].(int), 1, 1, 0, 0, 0, 0, time.UTC).Format("2006")
	if len(args) == 3 {
		q.counters[key] = args[2].(int64)
	} else {
		q.counters[key]++
	}
	return fakeRow{val: q.counters[key]}
}

func TestService_GetNextNumber(t *testing.T) {
	q := &fakeQuerier{counters: map[string]int64{}}
	svc := NewWithQuerier(q)
	ctx := context.Background()
	period := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	first, err := svc.GetNextNumber(ctx, corenumerator.PurchaseOrder, period)
	require.NoError(t, err)
	second, err := svc.GetNextNumber(ctx, corenumerator.PurchaseOrder, period)
	require.NoError(t, err)
	grn, err := svc.GetNextNumber(ctx, corenumerator.GoodsReceipt, period)
	require.NoError(t, err)

	assert.Equal(t, "PO-2026-00001", first)
	assert.Equal(t, "PO-2026-00002", second)
	assert.Equal(t, "GRN-2026-00001", grn)

	require.NoError(t, svc.SetNextNumber(ctx, corenumerator.PurchaseOrder, period, 41))
	next, err := svc.GetNextNumber(ctx, corenumerator.PurchaseOrder, period)
	require.NoError(t, err)
	assert.Equal(t, "PO-2026-00042", next)
}

func TestService_GetNextNumberError(t *testing.T) {
	svc := NewWithQuerier(&fakeQuerier{err: errors.New("connection reset")})

	_, err := svc.GetNextNumber(context.Background(), corenumerator.GoodsReceipt, time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "next GRN number")
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"PO-2026-00042", 42},
		{"GRN-2027-00001", 1},
		{"PO-00042", -1},
		{"PO-2026-abc", -1},
		{"", -1},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseNumber(tt.in))
		})
	}
}
