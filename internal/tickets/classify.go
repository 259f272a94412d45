// Package tickets derives the ticket list of a client from its bookings:
// the payment countdown of every unpaid booking, the hiding of bookings
// whose payment window lapsed, and the unpaid / future / past buckets.
//
// Everything here is a pure function of its inputs and the supplied "now";
// recomputation is driven by the clock and by cache refreshes elsewhere.
package tickets

import (
	"sort"
	"time"

	"github.com/iliyamo/cinema-booking-gateway/internal/model"
)

// ViewModel is the derived state of one booking.  It is recomputed on every
// tick and never stored.
//
// Fields:
//  Booking         – the cached booking.
//  Session         – enriched session details, nil when not fetched.
//  StartTimeMs     – session start (unix ms), nil when unknown.
//  BookedAtMs      – booking creation (unix ms), nil when unparseable.
//  IsExpiredUnpaid – unpaid and the payment window has elapsed.
//  RemainingMs     – time left to pay, only set for unpaid bookings with a
//                    known creation time.
type ViewModel struct {
	Booking         model.Booking
	Session         *model.MovieSessionDetails
	StartTimeMs     *int64
	BookedAtMs      *int64
	IsExpiredUnpaid bool
	RemainingMs     *int64
}

// Buckets is the partition of the visible tickets.  Expired holds the
// expired-unpaid view models, which are hidden from the list and only used
// to drive reconciliation.
type Buckets struct {
	Unpaid  []ViewModel
	Future  []ViewModel
	Past    []ViewModel
	Expired []ViewModel
}

// Visible returns the number of tickets shown across all buckets.
func (b Buckets) Visible() int { return len(b.Unpaid) + len(b.Future) + len(b.Past) }

// ExpiredIDs returns the booking ids of the expired-unpaid tickets.
func (b Buckets) ExpiredIDs() []string {
	ids := make([]string, 0, len(b.Expired))
	for _, vm := range b.Expired {
		ids = append(ids, vm.Booking.ID)
	}
	return ids
}

// Evaluate computes the view model of a single booking at now.
func Evaluate(b model.Booking, session *model.MovieSessionDetails, paymentSeconds int, now time.Time) ViewModel {
	vm := ViewModel{Booking: b, Session: session}
	if session != nil {
		if start, ok := session.StartAt(); ok {
			vm.StartTimeMs = ptr(start.UnixMilli())
		}
	}
	if created, ok := b.CreatedAt(); ok {
		vm.BookedAtMs = ptr(created.UnixMilli())
	}
	if !b.IsPaid && vm.BookedAtMs != nil {
		deadline := *vm.BookedAtMs + int64(paymentSeconds)*1000
		remaining := deadline - now.UnixMilli()
		vm.RemainingMs = ptr(remaining)
		vm.IsExpiredUnpaid = paymentSeconds > 0 && remaining <= 0
	}
	return vm
}

// Classify evaluates every booking and partitions the non-expired ones.
// sessions maps movie session ids to their details; a missing entry means
// the details are not (yet) available.
func Classify(bookings []model.Booking, sessions map[int]*model.MovieSessionDetails, settings model.Settings, now time.Time) Buckets {
	nowMs := now.UnixMilli()
	var out Buckets
	for _, b := range bookings {
		vm := Evaluate(b, sessions[b.MovieSessionID], settings.BookingPaymentTimeSeconds, now)
		switch {
		case vm.IsExpiredUnpaid:
			out.Expired = append(out.Expired, vm)
		case !b.IsPaid:
			out.Unpaid = append(out.Unpaid, vm)
		case vm.StartTimeMs == nil || *vm.StartTimeMs > nowMs:
			out.Future = append(out.Future, vm)
		default:
			out.Past = append(out.Past, vm)
		}
	}
	SortBucket(out.Unpaid)
	SortBucket(out.Future)
	SortBucket(out.Past)
	return out
}

// SortBucket orders tickets ascending by session start, falling back to the
// booking's creation time.  Tickets with neither go last, and the booking id
// breaks every tie so the order is total and stable across ticks.
func SortBucket(vms []ViewModel) {
	sort.SliceStable(vms, func(i, j int) bool {
		ki, oki := orderKey(vms[i])
		kj, okj := orderKey(vms[j])
		if oki != okj {
			return oki
		}
		if oki && ki != kj {
			return ki < kj
		}
		return vms[i].Booking.ID < vms[j].Booking.ID
	})
}

func orderKey(vm ViewModel) (int64, bool) {
	if vm.StartTimeMs != nil {
		return *vm.StartTimeMs, true
	}
	if vm.BookedAtMs != nil {
		return *vm.BookedAtMs, true
	}
	return 0, false
}

func ptr(v int64) *int64 { return &v }
