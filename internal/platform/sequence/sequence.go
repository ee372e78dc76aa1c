// Package sequence allocates the human-readable sequential identifiers used
// across the clinic: patient UHIDs, appointment numbers, staff account ids
// and receipt/invoice numbers.
//
// Numbers come from a per-kind counter that is incremented atomically in the
// store, so two concurrent bookings can never be handed the same identifier.
// A counter that does not exist yet is seeded from the records already on
// file (see FloorFunc), which keeps numbering continuous for tenants whose
// data predates the counter table.
package sequence

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/dentalcare/clinic/pkg/apperr"
)

// Kind names an identifier namespace.
type Kind string

const (
	KindUHID      Kind = "uhid"
	KindAppID     Kind = "appId"
	KindAccountID Kind = "accountId"
	KindReceipt   Kind = "receipt"
	KindInvoice   Kind = "invoice"
)

var kinds = map[Kind]string{
	KindUHID:      "UHID-%03d",
	KindAppID:     "%d",
	KindAccountID: "DCA%05d",
	KindReceipt:   "RCT-%05d",
	KindInvoice:   "INV-%05d",
}

// ParseKind validates a kind coming from a request path.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kinds[k]; !ok {
		return "", apperr.Invalid("kind", "unknown sequence kind %q", s)
	}
	return k, nil
}

// Format renders n in the kind's display format.
func (k Kind) Format(n int64) string {
	layout, ok := kinds[k]
	if !ok {
		layout = "%d"
	}
	return fmt.Sprintf(layout, n)
}

var trailingDigits = regexp.MustCompile(`\d+$`)

// ParseSuffix returns the trailing number of an identifier such as
// "UHID-012" or "DCA00041". Identifiers without trailing digits yield 0.
func ParseSuffix(id string) int64 {
	m := trailingDigits.FindString(id)
	if m == "" {
		return 0
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FloorFunc reports the highest number already in use for a kind. It is only
// consulted when the kind's counter is created.
type FloorFunc func(ctx context.Context) (int64, error)

// Store hands out counter values.
type Store interface {
	// Next increments the kind's counter and returns the new value. When the
	// counter does not exist it is created at floor()+1.
	Next(ctx context.Context, kind Kind, floor FloorFunc) (int64, error)
	// Current returns the last value handed out; ok is false when the
	// counter has not been created yet.
	Current(ctx context.Context, kind Kind) (value int64, ok bool, err error)
}

// Generator formats counter values into identifiers.
type Generator struct {
	store  Store
	floors map[Kind]FloorFunc
}

func NewGenerator(store Store, floors map[Kind]FloorFunc) *Generator {
	if floors == nil {
		floors = map[Kind]FloorFunc{}
	}
	return &Generator{store: store, floors: floors}
}

func (g *Generator) floor(kind Kind) FloorFunc {
	if f, ok := g.floors[kind]; ok && f != nil {
		return f
	}
	return func(context.Context) (int64, error) { return 0, nil }
}

// Next allocates and formats the next identifier of kind.
func (g *Generator) Next(ctx context.Context, kind Kind) (string, error) {
	if _, ok := kinds[kind]; !ok {
		return "", fmt.Errorf("unknown sequence kind %q", kind)
	}
	n, err := g.store.Next(ctx, kind, g.floor(kind))
	if err != nil {
		return "", fmt.Errorf("next %s: %w", kind, err)
	}
	return kind.Format(n), nil
}

// Peek returns the identifier Next would most likely return, without
// consuming it. A concurrent Next may take it first.
func (g *Generator) Peek(ctx context.Context, kind Kind) (string, error) {
	if _, ok := kinds[kind]; !ok {
		return "", fmt.Errorf("unknown sequence kind %q", kind)
	}
	cur, ok, err := g.store.Current(ctx, kind)
	if err != nil {
		return "", fmt.Errorf("peek %s: %w", kind, err)
	}
	if !ok {
		cur, err = g.floor(kind)(ctx)
		if err != nil {
			return "", fmt.Errorf("peek %s: %w", kind, err)
		}
	}
	return kind.Format(cur + 1), nil
}
