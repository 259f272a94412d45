package tickets

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-gateway/internal/model"
)

var t0 = time.Date(2026, 1, 26, 12, 0, 0, 0, time.UTC)

func iso(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func unpaidAt(id string, bookedAt time.Time) model.Booking {
	return model.Booking{ID: id, MovieSessionID: 1, BookedAt: iso(bookedAt)}
}

func TestEvaluate_ExpiryBoundary(t *testing.T) {
	b := unpaidAt("a", t0)

	before := Evaluate(b, nil, 120, t0.Add(119_999*time.Millisecond))
	assert.False(t, before.IsExpiredUnpaid)
	require.NotNil(t, before.RemainingMs)
	assert.Equal(t, int64(1), *before.RemainingMs)

	after := Evaluate(b, nil, 120, t0.Add(120_001*time.Millisecond))
	assert.True(t, after.IsExpiredUnpaid)
	assert.Equal(t, int64(-1), *after.RemainingMs)

	exact := Evaluate(b, nil, 120, t0.Add(120*time.Second))
	assert.True(t, exact.IsExpiredUnpaid, "remaining == 0 counts as expired")
}

func TestEvaluate_ZeroPaymentWindowNeverExpires(t *testing.T) {
	b := unpaidAt("a", t0)
	vm := Evaluate(b, nil, 0, t0.Add(365*24*time.Hour))
	assert.False(t, vm.IsExpiredUnpaid)
}

func TestEvaluate_PaidNeverExpires(t *testing.T) {
	b := unpaidAt("a", t0)
	b.IsPaid = true
	vm := Evaluate(b, nil, 60, t0.Add(time.Hour))
	assert.False(t, vm.IsExpiredUnpaid)
	assert.Nil(t, vm.RemainingMs)
}

func TestEvaluate_UnparseableBookedAt(t *testing.T) {
	b := model.Booking{ID: "a", BookedAt: "not a date"}
	vm := Evaluate(b, nil, 60, t0)
	assert.Nil(t, vm.BookedAtMs)
	assert.Nil(t, vm.RemainingMs)
	assert.False(t, vm.IsExpiredUnpaid)
}

func TestEvaluate_SessionStart(t *testing.T) {
	session := &model.MovieSessionDetails{MovieSession: model.MovieSession{ID: 1, StartTime: iso(t0.Add(time.Hour))}}
	vm := Evaluate(unpaidAt("a", t0), session, 60, t0)
	require.NotNil(t, vm.StartTimeMs)
	assert.Equal(t, t0.Add(time.Hour).UnixMilli(), *vm.StartTimeMs)

	broken := &model.MovieSessionDetails{MovieSession: model.MovieSession{ID: 1, StartTime: "soon"}}
	assert.Nil(t, Evaluate(unpaidAt("a", t0), broken, 60, t0).StartTimeMs)
}

func TestClassify_PartitionIsCompleteAndExclusive(t *testing.T) {
	now := t0.Add(10 * time.Minute)
	sessions := map[int]*model.MovieSessionDetails{
		1: {MovieSession: model.MovieSession{ID: 1, StartTime: iso(now.Add(time.Hour))}},
		2: {MovieSession: model.MovieSession{ID: 2, StartTime: iso(now.Add(-time.Hour))}},
	}
	bookings := []model.Booking{
		{ID: "unpaid-fresh", MovieSessionID: 1, BookedAt: iso(now.Add(-time.Minute))},
		{ID: "unpaid-expired", MovieSessionID: 1, BookedAt: iso(now.Add(-5 * time.Minute))},
		{ID: "paid-future", MovieSessionID: 1, BookedAt: iso(t0), IsPaid: true},
		{ID: "paid-past", MovieSessionID: 2, BookedAt: iso(t0), IsPaid: true},
		{ID: "paid-unknown-session", MovieSessionID: 3, BookedAt: iso(t0), IsPaid: true},
	}

	got := Classify(bookings, sessions, model.Settings{BookingPaymentTimeSeconds: 120}, now)

	ids := func(vms []ViewModel) []string {
		out := []string{}
		for _, vm := range vms {
			out = append(out, vm.Booking.ID)
		}
		return out
	}
	assert.Equal(t, []string{"unpaid-fresh"}, ids(got.Unpaid))
	assert.ElementsMatch(t, []string{"paid-future", "paid-unknown-session"}, ids(got.Future))
	assert.Equal(t, []string{"paid-past"}, ids(got.Past))
	assert.Equal(t, []string{"unpaid-expired"}, got.ExpiredIDs())

	seen := map[string]int{}
	for _, list := range [][]ViewModel{got.Unpaid, got.Future, got.Past} {
		for _, vm := range list {
			seen[vm.Booking.ID]++
		}
	}
	for _, b := range bookings {
		if b.ID == "unpaid-expired" {
			assert.Zero(t, seen[b.ID])
			continue
		}
		assert.Equal(t, 1, seen[b.ID], b.ID)
	}
	assert.Equal(t, 4, got.Visible())
}

func TestClassify_StartInThePastBoundary(t *testing.T) {
	sessions := map[int]*model.MovieSessionDetails{
		1: {MovieSession: model.MovieSession{ID: 1, StartTime: iso(t0)}},
	}
	b := model.Booking{ID: "x", MovieSessionID: 1, BookedAt: iso(t0.Add(-time.Hour)), IsPaid: true}

	got := Classify([]model.Booking{b}, sessions, model.Settings{}, t0)
	assert.Len(t, got.Past, 1, "start == now is past")
}

func TestSortBucket_ByStartTime(t *testing.T) {
	vms := []ViewModel{
		{Booking: model.Booking{ID: "c"}, StartTimeMs: ptr(5000)},
		{Booking: model.Booking{ID: "a"}, StartTimeMs: ptr(1000)},
		{Booking: model.Booking{ID: "b"}, StartTimeMs: ptr(3000)},
	}
	SortBucket(vms)
	assert.Equal(t, []int64{1000, 3000, 5000}, []int64{*vms[0].StartTimeMs, *vms[1].StartTimeMs, *vms[2].StartTimeMs})
}

func TestSortBucket_FallsBackToBookedAt(t *testing.T) {
	vms := []ViewModel{
		{Booking: model.Booking{ID: "x"}, BookedAtMs: ptr(10)},
		{Booking: model.Booking{ID: "y"}, BookedAtMs: ptr(5)},
		{Booking: model.Booking{ID: "z"}, BookedAtMs: ptr(20)},
	}
	SortBucket(vms)
	assert.Equal(t, []string{"y", "x", "z"}, []string{vms[0].Booking.ID, vms[1].Booking.ID, vms[2].Booking.ID})
}

func TestSortBucket_KeylessLastById(t *testing.T) {
	vms := []ViewModel{
		{Booking: model.Booking{ID: "k2"}},
		{Booking: model.Booking{ID: "dated"}, BookedAtMs: ptr(1 << 40)},
		{Booking: model.Booking{ID: "k1"}},
		{Booking: model.Booking{ID: "b-tie"}, StartTimeMs: ptr(7)},
		{Booking: model.Booking{ID: "a-tie"}, BookedAtMs: ptr(7)},
	}
	for i := 0; i < 3; i++ {
		SortBucket(vms)
		got := make([]string, len(vms))
		for j, vm := range vms {
			got[j] = vm.Booking.ID
		}
		assert.Equal(t, []string{"a-tie", "b-tie", "dated", "k1", "k2"}, got, fmt.Sprintf("pass %d", i))
	}
}

func TestExpiryTracker_OncePerBooking(t *testing.T) {
	tr := NewExpiryTracker()
	assert.False(t, tr.Observe(nil))
	assert.True(t, tr.Observe([]string{"a"}))
	assert.False(t, tr.Observe([]string{"a"}))
	assert.True(t, tr.Observe([]string{"a", "b"}))
	assert.False(t, tr.Observe([]string{"b", "a"}))
	assert.True(t, tr.Seen("b"))
	assert.False(t, tr.Seen("c"))
}

func TestExpiryTracker_FreshReturnsNewIDsOnly(t *testing.T) {
	tr := NewExpiryTracker()
	assert.Equal(t, []string{"a", "b"}, tr.Fresh([]string{"a", "b"}))
	assert.Equal(t, []string{"c"}, tr.Fresh([]string{"b", "c", "a"}))
	assert.Empty(t, tr.Fresh([]string{"c"}))
}
