package domain_test

import (
	"testing"
	"time"

	"github.com/willow-wellness/bookings-api/internal/domain"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := domain.DefaultCatalog()

	cases := []struct {
		id       string
		duration int
		price    int64
	}{
		{"discovery", 30, 0},
		{"one_on_one", 60, 10700},
		{"family", 90, 12700},
		{"endometriosis_support", 180, 14700},
		{"premium_consultation", 60, 8700},
	}

	for _, tc := range cases {
		st, ok := catalog.Lookup(tc.id)
		if !ok {
			t.Fatalf("catalog missing session type %q", tc.id)
		}
		if st.DurationMinutes != tc.duration {
			t.Errorf("%s: duration = %d, want %d", tc.id, st.DurationMinutes, tc.duration)
		}
		if st.PriceCents != tc.price {
			t.Errorf("%s: price = %d, want %d", tc.id, st.PriceCents, tc.price)
		}
		if st.RequiresPayment != (tc.price > 0) {
			t.Errorf("%s: RequiresPayment = %v with price %d", tc.id, st.RequiresPayment, tc.price)
		}
	}

	if _, ok := catalog.Lookup("couples"); ok {
		t.Error("Lookup returned ok for unknown session type")
	}
}

func TestTierOrdering(t *testing.T) {
	if !domain.TierPremium.AtLeast(domain.TierBasic) {
		t.Error("premium should satisfy basic")
	}
	if !domain.TierBasic.AtLeast(domain.TierFree) {
		t.Error("basic should satisfy free")
	}
	if domain.TierFree.AtLeast(domain.TierBasic) {
		t.Error("free should not satisfy basic")
	}
	if !domain.TierBasic.AtLeast(domain.TierBasic) {
		t.Error("a tier should satisfy itself")
	}
}

func TestTierForProduct(t *testing.T) {
	if tier, ok := domain.TierForProduct("yearly_basic"); !ok || tier != domain.TierBasic {
		t.Errorf("yearly_basic = %q, %v", tier, ok)
	}
	if tier, ok := domain.TierForProduct("yearly_premium"); !ok || tier != domain.TierPremium {
		t.Errorf("yearly_premium = %q, %v", tier, ok)
	}
	if _, ok := domain.TierForProduct("lifetime"); ok {
		t.Error("unknown product should not map to a tier")
	}
}

func TestBookingOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	b := &domain.Booking{
		StartTime: base,
		EndTime:   base.Add(time.Hour),
	}

	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"identical", base, base.Add(time.Hour), true},
		{"contained", base.Add(15 * time.Minute), base.Add(30 * time.Minute), true},
		{"straddles start", base.Add(-30 * time.Minute), base.Add(30 * time.Minute), true},
		{"straddles end", base.Add(30 * time.Minute), base.Add(90 * time.Minute), true},
		{"back to back after", base.Add(time.Hour), base.Add(2 * time.Hour), false},
		{"back to back before", base.Add(-time.Hour), base, false},
		{"far away", base.Add(5 * time.Hour), base.Add(6 * time.Hour), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := b.Overlaps(tc.start, tc.end); got != tc.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tc.start, tc.end, got, tc.want)
			}
		})
	}
}

func TestBookingStatus(t *testing.T) {
	for _, s := range []domain.BookingStatus{domain.BookingConfirmed, domain.BookingPendingPayment, domain.BookingScheduled} {
		if !s.Active() {
			t.Errorf("%s should hold its slot", s)
		}
	}
	for _, s := range []domain.BookingStatus{domain.BookingCancelled, domain.BookingCompleted, domain.BookingExpired, domain.BookingNoShow} {
		if s.Active() {
			t.Errorf("%s should not hold a slot", s)
		}
	}

	if _, ok := domain.ParseBookingStatus("double_booked"); ok {
		t.Error("ParseBookingStatus accepted an unknown status")
	}
	if st, ok := domain.ParseBookingStatus("pending_payment"); !ok || st != domain.BookingPendingPayment {
		t.Errorf("ParseBookingStatus(pending_payment) = %q, %v", st, ok)
	}

	if domain.BookingConfirmed.AdminStatus() {
		t.Error("confirmed is not an administrative transition")
	}
	if !domain.BookingNoShow.AdminStatus() {
		t.Error("no_show is an administrative transition")
	}
}

func TestDatesCovered(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

	cases := []struct {
		name  string
		start time.Time
		end   time.Time
		want  []time.Time
	}{
		{
			"within one day",
			time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 4, 11, 0, 0, 0, time.UTC),
			[]time.Time{day(4)},
		},
		{
			"spans midnight",
			time.Date(2026, 3, 4, 23, 0, 0, 0, time.UTC),
			time.Date(2026, 3, 5, 2, 0, 0, 0, time.UTC),
			[]time.Time{day(4), day(5)},
		},
		{
			"ends exactly at midnight",
			time.Date(2026, 3, 4, 23, 0, 0, 0, time.UTC),
			day(5),
			[]time.Time{day(4)},
		},
		{
			"starts at midnight",
			day(5),
			time.Date(2026, 3, 5, 3, 0, 0, 0, time.UTC),
			[]time.Time{day(5)},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.DatesCovered(tc.start, tc.end)
			if len(got) != len(tc.want) {
				t.Fatalf("DatesCovered = %v, want %v", got, tc.want)
			}
			for i := range got {
				if !got[i].Equal(tc.want[i]) {
					t.Errorf("date[%d] = %v, want %v", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	// 02:30 on March 5 in UTC+5 is still March 4 in UTC.
	in := time.Date(2026, 3, 5, 2, 30, 0, 0, loc)
	got := domain.DateOf(in)
	want := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOf = %v, want %v", got, want)
	}
}
