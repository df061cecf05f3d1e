package service_test

import (
	"context"
	"fmt"
	"time"

	"github.com/willow-wellness/bookings-api/internal/domain"
	"github.com/willow-wellness/bookings-api/internal/platform/payments"
)

// ---------- Mocks ----------

type mockBookingRepo struct {
	nextID     int64
	bookings   map[int64]*domain.Booking
	bySession  map[string]int64 // checkout_session_id -> booking_id
	createErr  error
	setSessErr error
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{
		nextID:    1,
		bookings:  make(map[int64]*domain.Booking),
		bySession: make(map[string]int64),
	}
}

func (m *mockBookingRepo) CreateIfSlotFree(_ context.Context, b *domain.Booking) (*domain.Booking, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	for _, existing := range m.bookings {
		if existing.Status.Active() && existing.Overlaps(b.StartTime, b.EndTime) {
			return nil, domain.Conflictf("this time slot is no longer available")
		}
	}

	created := *b
	created.ID = m.nextID
	m.nextID++
	created.ManageToken = fmt.Sprintf("token-%d", created.ID)
	created.CreatedAt = time.Now()
	created.UpdatedAt = created.CreatedAt
	m.bookings[created.ID] = &created

	out := created
	return &out, nil
}

func (m *mockBookingRepo) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	out := *b
	return &out, nil
}

func (m *mockBookingRepo) GetByManageToken(_ context.Context, token string) (*domain.Booking, error) {
	for _, b := range m.bookings {
		if b.ManageToken == token {
			out := *b
			return &out, nil
		}
	}
	return nil, nil
}

func (m *mockBookingRepo) SetCheckoutSession(_ context.Context, id int64, sessionID string, expiresAt time.Time) error {
	if m.setSessErr != nil {
		return m.setSessErr
	}
	b, ok := m.bookings[id]
	if !ok {
		return nil
	}
	b.CheckoutSessionID = &sessionID
	b.PaymentExpiresAt = &expiresAt
	m.bySession[sessionID] = id
	return nil
}

func (m *mockBookingRepo) ConfirmByCheckoutSession(_ context.Context, sessionID string) (*domain.Booking, error) {
	id, ok := m.bySession[sessionID]
	if !ok {
		return nil, nil
	}
	b := m.bookings[id]
	if b.Status != domain.BookingPendingPayment {
		return nil, nil
	}
	b.Status = domain.BookingConfirmed
	out := *b
	return &out, nil
}

func (m *mockBookingRepo) UpdateStatus(_ context.Context, id int64, status domain.BookingStatus) (*domain.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	b.Status = status
	out := *b
	return &out, nil
}

func (m *mockBookingRepo) List(_ context.Context, limit, offset int, status *domain.BookingStatus) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range m.bookings {
		if status != nil && b.Status != *status {
			continue
		}
		out = append(out, *b)
	}
	return out, nil
}

func (m *mockBookingRepo) ListByEmail(_ context.Context, email string, limit, offset int) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.IsOwner(email) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (m *mockBookingRepo) ExpireOverdue(_ context.Context, now time.Time) ([]domain.Booking, error) {
	var expired []domain.Booking
	for _, b := range m.bookings {
		if b.Status == domain.BookingPendingPayment && b.PaymentExpiresAt != nil && b.PaymentExpiresAt.Before(now) {
			b.Status = domain.BookingExpired
			expired = append(expired, *b)
		}
	}
	return expired, nil
}

type mockAvailabilityRepo struct {
	openWeekdays map[int]bool
	blockedDates map[string]bool
	windowErr    error
	blockedErr   error
}

func newMockAvailabilityRepo(openWeekdays ...int) *mockAvailabilityRepo {
	m := &mockAvailabilityRepo{
		openWeekdays: make(map[int]bool),
		blockedDates: make(map[string]bool),
	}
	for _, d := range openWeekdays {
		m.openWeekdays[d] = true
	}
	return m
}

func (m *mockAvailabilityRepo) block(date time.Time) {
	m.blockedDates[domain.DateOf(date).Format("2006-01-02")] = true
}

func (m *mockAvailabilityRepo) HasActiveWindow(_ context.Context, weekday int) (bool, error) {
	if m.windowErr != nil {
		return false, m.windowErr
	}
	return m.openWeekdays[weekday], nil
}

func (m *mockAvailabilityRepo) IsDateBlocked(_ context.Context, date time.Time) (bool, error) {
	if m.blockedErr != nil {
		return false, m.blockedErr
	}
	return m.blockedDates[domain.DateOf(date).Format("2006-01-02")], nil
}

func (m *mockAvailabilityRepo) ListWindows(context.Context) ([]domain.AvailabilityWindow, error) {
	var out []domain.AvailabilityWindow
	for d, active := range m.openWeekdays {
		out = append(out, domain.AvailabilityWindow{Weekday: d, Active: active})
	}
	return out, nil
}

func (m *mockAvailabilityRepo) SetWindowActive(_ context.Context, weekday int, active bool) error {
	m.openWeekdays[weekday] = active
	return nil
}

func (m *mockAvailabilityRepo) ListBlockedDates(context.Context) ([]domain.BlockedDate, error) {
	return nil, nil
}

func (m *mockAvailabilityRepo) AddBlockedDate(_ context.Context, date time.Time, _ string) error {
	m.block(date)
	return nil
}

func (m *mockAvailabilityRepo) RemoveBlockedDate(_ context.Context, date time.Time) (bool, error) {
	key := domain.DateOf(date).Format("2006-01-02")
	if !m.blockedDates[key] {
		return false, nil
	}
	delete(m.blockedDates, key)
	return true, nil
}

type mockGateway struct {
	sessions   []payments.CheckoutParams
	createErr  error
	nextID     string
	nextURL    string
	periodEnd  time.Time
	periodErr  error
	subLookups []string
}

func (m *mockGateway) CreateCheckoutSession(_ context.Context, p payments.CheckoutParams) (*payments.CheckoutSession, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.sessions = append(m.sessions, p)
	id := m.nextID
	if id == "" {
		id = "cs_test_1"
	}
	url := m.nextURL
	if url == "" {
		url = "https://checkout.stripe.test/c/pay/" + id
	}
	return &payments.CheckoutSession{ID: id, URL: url}, nil
}

func (m *mockGateway) SubscriptionPeriodEnd(_ context.Context, subscriptionID string) (time.Time, error) {
	m.subLookups = append(m.subLookups, subscriptionID)
	if m.periodErr != nil {
		return time.Time{}, m.periodErr
	}
	return m.periodEnd, nil
}

type publishedEvent struct {
	subject string
	data    interface{}
}

type mockPublisher struct {
	published []publishedEvent
}

func (m *mockPublisher) Publish(_ context.Context, subject string, data interface{}) error {
	m.published = append(m.published, publishedEvent{subject: subject, data: data})
	return nil
}

func (m *mockPublisher) Close() error { return nil }

func (m *mockPublisher) subjects() []string {
	var out []string
	for _, e := range m.published {
		out = append(out, e.subject)
	}
	return out
}

type sentMail struct {
	to      string
	name    string
	session string
	start   time.Time
}

type mockMailer struct {
	sent    []sentMail
	sendErr error
}

func (m *mockMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	return "mock-id", m.sendErr
}

func (m *mockMailer) SendBookingConfirmation(toEmail, toName, sessionLabel string, start time.Time) error {
	m.sent = append(m.sent, sentMail{to: toEmail, name: toName, session: sessionLabel, start: start})
	return m.sendErr
}

type mockProfileRepo struct {
	profiles map[string]*domain.MembershipProfile // by user id
	byCust   map[string]string                    // customer id -> user id
}

func newMockProfileRepo() *mockProfileRepo {
	return &mockProfileRepo{
		profiles: make(map[string]*domain.MembershipProfile),
		byCust:   make(map[string]string),
	}
}

func (m *mockProfileRepo) seed(p *domain.MembershipProfile) {
	m.profiles[p.UserID] = p
	if p.StripeCustomerID != "" {
		m.byCust[p.StripeCustomerID] = p.UserID
	}
}

func (m *mockProfileRepo) GetByUserID(_ context.Context, userID string) (*domain.MembershipProfile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (m *mockProfileRepo) GetByCustomerID(_ context.Context, customerID string) (*domain.MembershipProfile, error) {
	userID, ok := m.byCust[customerID]
	if !ok {
		return nil, nil
	}
	return m.GetByUserID(context.Background(), userID)
}

func (m *mockProfileRepo) UpsertMembership(_ context.Context, userID string, tier domain.Tier, start, expiry time.Time, customerID string) error {
	p, ok := m.profiles[userID]
	if !ok {
		p = &domain.MembershipProfile{UserID: userID, Tier: domain.TierFree}
		m.profiles[userID] = p
	}
	p.Tier = tier
	p.MembershipStart = &start
	p.MembershipExpiry = &expiry
	if customerID != "" {
		p.StripeCustomerID = customerID
		m.byCust[customerID] = userID
	}
	return nil
}

func (m *mockProfileRepo) UpdateExpiryByCustomer(_ context.Context, customerID string, expiry time.Time) (bool, error) {
	userID, ok := m.byCust[customerID]
	if !ok {
		return false, nil
	}
	m.profiles[userID].MembershipExpiry = &expiry
	return true, nil
}

func (m *mockProfileRepo) DowngradeByCustomer(_ context.Context, customerID string) (bool, error) {
	userID, ok := m.byCust[customerID]
	if !ok {
		return false, nil
	}
	p := m.profiles[userID]
	p.Tier = domain.TierFree
	p.MembershipExpiry = nil
	return true, nil
}

func (m *mockProfileRepo) AddHub(_ context.Context, userID, slug string) (bool, error) {
	p, ok := m.profiles[userID]
	if !ok {
		p = &domain.MembershipProfile{UserID: userID, Tier: domain.TierFree}
		m.profiles[userID] = p
	}
	if p.HasHub(slug) {
		return false, nil
	}
	p.PurchasedHubs = append(p.PurchasedHubs, slug)
	return true, nil
}
