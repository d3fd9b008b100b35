package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	bookingserrors "carhive/internal/bookings/errors"
	"carhive/internal/bookings/repository"
	bookingsvc "carhive/internal/bookings/service"
	"carhive/pkg/config"
	mongotx "carhive/pkg/db/mongo"
	apperrors "carhive/pkg/errors"
	"carhive/pkg/logger"
	"carhive/pkg/model"
	"carhive/pkg/stripe"
)

// ────────────────────────────────────────────────
// Mocks
// ────────────────────────────────────────────────

type mockBookingService struct {
	createFunc func(ctx context.Context, in *bookingsvc.CreateInput) (*model.Booking, error)
	deleted    []string
}

func (m *mockBookingService) Create(ctx context.Context, in *bookingsvc.CreateInput) (*model.Booking, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, in)
	}
	return testBooking(), nil
}

func (m *mockBookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	return nil, apperrors.NotFoundWithID("Booking", id)
}

func (m *mockBookingService) List(ctx context.Context, filter repository.SearchFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) Update(ctx context.Context, id string, update *model.BookingUpdate) (*model.Booking, error) {
	return nil, apperrors.NotFoundWithID("Booking", id)
}

func (m *mockBookingService) UpdateStatus(ctx context.Context, id string, status string) (*model.Booking, error) {
	return nil, apperrors.NotFoundWithID("Booking", id)
}

func (m *mockBookingService) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockBookingService) CancelExpired(ctx context.Context) (int, error) {
	return 0, nil
}

type mockBookingRepository struct {
	findByIDFunc        func(ctx context.Context, id string) (*model.Booking, error)
	findBySessionFunc   func(ctx context.Context, sessionID string) (*model.Booking, error)
	markPaidFunc        func(ctx context.Context, id string, paymentIntentID string, details *model.PaymentDetails) (*model.Booking, error)
	setSessionFunc      func(ctx context.Context, id string, sessionID string) error
	storedSessions      map[string]string
	markPaidCalls       int
	transactionsStarted int
}

func (m *mockBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return nil
}

func (m *mockBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) FindBySessionID(ctx context.Context, sessionID string) (*model.Booking, error) {
	if m.findBySessionFunc != nil {
		return m.findBySessionFunc(ctx, sessionID)
	}
	return nil, bookingserrors.ErrNotFound
}

func (m *mockBookingRepository) Search(ctx context.Context, filter repository.SearchFilter, limit int, offset int64) ([]*model.Booking, error) {
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) CountSearch(ctx context.Context, filter repository.SearchFilter) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepository) CountOverlapping(ctx context.Context, vehicleID string, pickup, returnDate time.Time, excludeID string) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepository) Update(ctx context.Context, id string, booking *model.Booking) (*mongo.UpdateResult, error) {
	return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (m *mockBookingRepository) SetStatus(ctx context.Context, id string, status string) error {
	return nil
}

func (m *mockBookingRepository) SetSession(ctx context.Context, id string, sessionID string) error {
	if m.setSessionFunc != nil {
		return m.setSessionFunc(ctx, id, sessionID)
	}
	if m.storedSessions == nil {
		m.storedSessions = map[string]string{}
	}
	m.storedSessions[id] = sessionID
	return nil
}

func (m *mockBookingRepository) MarkPaid(ctx context.Context, id string, paymentIntentID string, details *model.PaymentDetails) (*model.Booking, error) {
	m.markPaidCalls++
	if m.markPaidFunc != nil {
		return m.markPaidFunc(ctx, id, paymentIntentID, details)
	}
	b := testBooking()
	b.Status = model.StatusActive
	b.PaymentStatus = model.PaymentPaid
	b.PaymentIntentID = paymentIntentID
	b.Payment = details
	return b, nil
}

func (m *mockBookingRepository) FindStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*model.Booking, error) {
	return []*model.Booking{}, nil
}

func (m *mockBookingRepository) Delete(ctx context.Context, id string) error {
	return nil
}

func (m *mockBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	m.transactionsStarted++
	return fn(nil)
}

type mockMirrorRepository struct {
	setReservationStatusFunc func(ctx context.Context, vehicleID string, bookingID string, status string) error
	statusCalls              []string
}

func (m *mockMirrorRepository) FindVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	return nil, bookingserrors.ErrVehicleNotFound
}

func (m *mockMirrorRepository) PushReservation(ctx context.Context, vehicleID string, entry model.ReservationSummary) error {
	return nil
}

func (m *mockMirrorRepository) PullReservation(ctx context.Context, vehicleID string, bookingID string) error {
	return nil
}

func (m *mockMirrorRepository) UpdateReservation(ctx context.Context, vehicleID string, entry model.ReservationSummary) error {
	return nil
}

func (m *mockMirrorRepository) SetReservationStatus(ctx context.Context, vehicleID string, bookingID string, status string) error {
	m.statusCalls = append(m.statusCalls, status)
	if m.setReservationStatusFunc != nil {
		return m.setReservationStatusFunc(ctx, vehicleID, bookingID, status)
	}
	return nil
}

type mockGateway struct {
	createFunc   func(ctx context.Context, params stripe.CheckoutParams) (*stripe.CheckoutSession, error)
	retrieveFunc func(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
	lastParams   stripe.CheckoutParams
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, params stripe.CheckoutParams) (*stripe.CheckoutSession, error) {
	m.lastParams = params
	if m.createFunc != nil {
		return m.createFunc(ctx, params)
	}
	return &stripe.CheckoutSession{
		ID:  testSessionID,
		URL: "https://checkout.stripe.com/c/pay/" + testSessionID,
	}, nil
}

func (m *mockGateway) RetrieveSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
	if m.retrieveFunc != nil {
		return m.retrieveFunc(ctx, sessionID)
	}
	return nil, stripe.ErrSessionNotFound
}

type mockEvents struct {
	published []string
}

func (m *mockEvents) Publish(ctx context.Context, eventType string, booking *model.Booking) {
	m.published = append(m.published, eventType)
}

func (m *mockEvents) Close() error { return nil }

// ────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────

const (
	testVehicleID = "66a1b2c3d4e5f6a7b8c9d0e1"
	testBookingID = "66a1b2c3d4e5f6a7b8c9d0ff"
	testSessionID = "cs_test_a1b2c3d4e5f6"
)

func testConfig() *config.Config {
	log := logger.New(logger.Config{
		Level:     "error",
		Format:    logger.JSON,
		AddSource: false,
		Service:   "test",
	})
	return &config.Config{
		Log:              log,
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     5 * time.Second,
		CheckoutCurrency: "inr",
		ClientBaseURL:    "https://carhive.example.com",
	}
}

func testBooking() *model.Booking {
	return &model.Booking{
		ID:     testBookingID,
		UserID: "user-42",
		Vehicle: model.VehicleSnapshot{
			ID:          testVehicleID,
			Make:        "Mahindra",
			Model:       "Thar",
			PricePerDay: 4500,
		},
		PickupDate:    time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		ReturnDate:    time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		Amount:        22500,
		Currency:      "inr",
		Status:        model.StatusPending,
		PaymentStatus: model.PaymentPending,
		CreatedAt:     time.Now(),
	}
}

func testCheckoutInput() *CheckoutInput {
	return &CheckoutInput{
		Booking: &bookingsvc.CreateInput{
			UserID: "user-42",
			Vehicle: model.VehicleRef{
				ID: testVehicleID,
			},
			PickupDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
			ReturnDate: time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
		},
		CustomerEmail: "renter@example.com",
	}
}

func newTestService(
	bookings *mockBookingService,
	repo *mockBookingRepository,
	mirror *mockMirrorRepository,
	gateway *mockGateway,
	events *mockEvents,
) PaymentService {
	return NewPaymentService(bookings, repo, mirror, gateway, events, testConfig())
}

func paidSession() *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:            testSessionID,
		Status:        "complete",
		PaymentStatus: stripe.PaymentStatusPaid,
		PaymentIntent: "pi_test_123",
		AmountTotal:   2250000,
		Currency:      "inr",
		Metadata:      map[string]string{"bookingId": testBookingID},
	}
}

// ────────────────────────────────────────────────
// OpenCheckout
// ────────────────────────────────────────────────

func TestOpenCheckout_Success(t *testing.T) {
	bookings := &mockBookingService{}
	repo := &mockBookingRepository{}
	gateway := &mockGateway{}
	events := &mockEvents{}

	svc := newTestService(bookings, repo, &mockMirrorRepository{}, gateway, events)

	result, err := svc.OpenCheckout(context.Background(), testCheckoutInput())
	if err != nil {
		t.Fatalf("OpenCheckout failed: %v", err)
	}

	if result.BookingID != testBookingID {
		t.Errorf("expected booking id %s, got %s", testBookingID, result.BookingID)
	}
	if result.SessionID != testSessionID {
		t.Errorf("expected session id %s, got %s", testSessionID, result.SessionID)
	}
	if result.URL == "" {
		t.Error("expected a redirect URL")
	}

	if repo.storedSessions[testBookingID] != testSessionID {
		t.Errorf("expected session id stored on booking, got %v", repo.storedSessions)
	}
	if len(bookings.deleted) != 0 {
		t.Errorf("expected no rollback, got deletions %v", bookings.deleted)
	}
}

func TestOpenCheckout_ParamsCarryBookingContext(t *testing.T) {
	gateway := &mockGateway{}

	svc := newTestService(&mockBookingService{}, &mockBookingRepository{}, &mockMirrorRepository{}, gateway, &mockEvents{})

	if _, err := svc.OpenCheckout(context.Background(), testCheckoutInput()); err != nil {
		t.Fatalf("OpenCheckout failed: %v", err)
	}

	params := gateway.lastParams
	if params.AmountMinor != 2250000 {
		t.Errorf("expected amount 2250000 minor units, got %d", params.AmountMinor)
	}
	if params.Currency != "inr" {
		t.Errorf("expected currency inr, got %s", params.Currency)
	}
	if params.ProductName != "Mahindra Thar" {
		t.Errorf("expected product name from vehicle snapshot, got %q", params.ProductName)
	}
	if params.Metadata["bookingId"] != testBookingID {
		t.Errorf("expected bookingId metadata, got %v", params.Metadata)
	}
	if params.Metadata["vehicleId"] != testVehicleID {
		t.Errorf("expected vehicleId metadata, got %v", params.Metadata)
	}
	if params.CustomerEmail != "renter@example.com" {
		t.Errorf("expected customer email forwarded, got %q", params.CustomerEmail)
	}
	if params.SuccessURL != "https://carhive.example.com/success?session_id={CHECKOUT_SESSION_ID}&payment_status=success" {
		t.Errorf("unexpected success URL %q", params.SuccessURL)
	}
}

func TestOpenCheckout_GatewayFailureRollsBackBooking(t *testing.T) {
	bookings := &mockBookingService{}
	gateway := &mockGateway{
		createFunc: func(ctx context.Context, params stripe.CheckoutParams) (*stripe.CheckoutSession, error) {
			return nil, fmt.Errorf("stripe: connection refused")
		},
	}

	svc := newTestService(bookings, &mockBookingRepository{}, &mockMirrorRepository{}, gateway, &mockEvents{})

	_, err := svc.OpenCheckout(context.Background(), testCheckoutInput())
	if err == nil {
		t.Fatal("expected error when gateway fails")
	}

	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeProviderUnavailable {
		t.Errorf("expected provider unavailable error, got %v", err)
	}

	if len(bookings.deleted) != 1 || bookings.deleted[0] != testBookingID {
		t.Errorf("expected booking %s rolled back, got %v", testBookingID, bookings.deleted)
	}
}

func TestOpenCheckout_BookingFailureSkipsGateway(t *testing.T) {
	bookings := &mockBookingService{
		createFunc: func(ctx context.Context, in *bookingsvc.CreateInput) (*model.Booking, error) {
			return nil, apperrors.Conflict("Vehicle is already booked for the selected dates")
		},
	}
	gateway := &mockGateway{
		createFunc: func(ctx context.Context, params stripe.CheckoutParams) (*stripe.CheckoutSession, error) {
			t.Fatal("gateway should not be called when booking creation fails")
			return nil, nil
		},
	}

	svc := newTestService(bookings, &mockBookingRepository{}, &mockMirrorRepository{}, gateway, &mockEvents{})

	_, err := svc.OpenCheckout(context.Background(), testCheckoutInput())
	if err == nil {
		t.Fatal("expected booking error to surface")
	}

	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeConflict {
		t.Errorf("expected conflict error passthrough, got %v", err)
	}
}

func TestOpenCheckout_SessionStoreFailureTolerated(t *testing.T) {
	repo := &mockBookingRepository{
		setSessionFunc: func(ctx context.Context, id string, sessionID string) error {
			return fmt.Errorf("write conflict")
		},
	}

	svc := newTestService(&mockBookingService{}, repo, &mockMirrorRepository{}, &mockGateway{}, &mockEvents{})

	result, err := svc.OpenCheckout(context.Background(), testCheckoutInput())
	if err != nil {
		t.Fatalf("expected checkout to succeed despite session store failure, got %v", err)
	}
	if result.SessionID != testSessionID {
		t.Errorf("expected session id %s, got %s", testSessionID, result.SessionID)
	}
}

// ────────────────────────────────────────────────
// Confirm
// ────────────────────────────────────────────────

func TestConfirm_PaidSessionReconcilesBooking(t *testing.T) {
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			if id != testBookingID {
				return nil, bookingserrors.ErrNotFound
			}
			return testBooking(), nil
		},
	}
	mirror := &mockMirrorRepository{}
	gateway := &mockGateway{
		retrieveFunc: func(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
			return paidSession(), nil
		},
	}
	events := &mockEvents{}

	svc := newTestService(&mockBookingService{}, repo, mirror, gateway, events)

	result, err := svc.Confirm(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	if !result.Paid {
		t.Error("expected result to report paid")
	}
	if result.Booking == nil || result.Booking.PaymentStatus != model.PaymentPaid {
		t.Errorf("expected paid booking in result, got %+v", result.Booking)
	}
	if result.Booking.Status != model.StatusActive {
		t.Errorf("expected booking activated, got status %s", result.Booking.Status)
	}

	if repo.markPaidCalls != 1 {
		t.Errorf("expected one MarkPaid call, got %d", repo.markPaidCalls)
	}
	if repo.transactionsStarted != 1 {
		t.Errorf("expected reconciliation inside a transaction, got %d", repo.transactionsStarted)
	}
	if len(mirror.statusCalls) != 1 || mirror.statusCalls[0] != model.StatusActive {
		t.Errorf("expected mirror entry set active, got %v", mirror.statusCalls)
	}
	if len(events.published) != 1 || events.published[0] != bookingsvc.EventPaymentReconciled {
		t.Errorf("expected payment reconciled event, got %v", events.published)
	}
}

func TestConfirm_UnpaidSessionIsNotAnError(t *testing.T) {
	repo := &mockBookingRepository{}
	gateway := &mockGateway{
		retrieveFunc: func(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
			s := paidSession()
			s.PaymentStatus = "unpaid"
			return s, nil
		},
	}

	svc := newTestService(&mockBookingService{}, repo, &mockMirrorRepository{}, gateway, &mockEvents{})

	result, err := svc.Confirm(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("expected no error for unpaid session, got %v", err)
	}

	if result.Paid {
		t.Error("expected result to report unpaid")
	}
	if result.PaymentState != "unpaid" {
		t.Errorf("expected payment state unpaid, got %s", result.PaymentState)
	}
	if repo.markPaidCalls != 0 {
		t.Errorf("expected no reconciliation for unpaid session, got %d MarkPaid calls", repo.markPaidCalls)
	}
}

func TestConfirm_ReplayIsIdempotent(t *testing.T) {
	repo := &mockBookingRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Booking, error) {
			b := testBooking()
			b.Status = model.StatusActive
			b.PaymentStatus = model.PaymentPaid
			return b, nil
		},
	}
	gateway := &mockGateway{
		retrieveFunc: func(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
			return paidSession(), nil
		},
	}
	events := &mockEvents{}

	svc := newTestService(&mockBookingService{}, repo, &mockMirrorRepository{}, gateway, events)

	result, err := svc.Confirm(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	if !result.Paid {
		t.Error("expected replay to still report paid")
	}
	if repo.markPaidCalls != 0 {
		t.Errorf("expected replay to skip MarkPaid, got %d calls", repo.markPaidCalls)
	}
	if len(events.published) != 0 {
		t.Errorf("expected no events on replay, got %v", events.published)
	}
}

func TestConfirm_FallsBackToSessionLookup(t *testing.T) {
	repo := &mockBookingRepository{
		findBySessionFunc: func(ctx context.Context, sessionID string) (*model.Booking, error) {
			if sessionID != testSessionID {
				return nil, bookingserrors.ErrNotFound
			}
			return testBooking(), nil
		},
	}
	gateway := &mockGateway{
		retrieveFunc: func(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error) {
			s := paidSession()
			s.Metadata = nil
			return s, nil
		},
	}

	svc := newTestService(&mockBookingService{}, repo, &mockMirrorRepository{}, gateway, &mockEvents{})

	result, err := svc.Confirm(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}
	if !result.Paid {
		t.Error("expected session lookup fallback to reconcile the booking")
	}
}

func TestConfirm_UnknownSession(t *testing.T) {
	svc := newTestService(&mockBookingService{}, &mockBookingRepository{}, &mockMirrorRepository{}, &mockGateway{}, &mockEvents{})

	_, err := svc.Confirm(context.Background(), "cs_test_missing")
	if err == nil {
		t.Fatal("expected error for unknown session")
	}

	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeNotFound {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestConfirm_EmptySessionID(t *testing.T) {
	svc := newTestService(&mockBookingService{}, &mockBookingRepository{}, &mockMirrorRepository{}, &mockGateway{}, &mockEvents{})

	_, err := svc.Confirm(context.Background(), "")
	if err == nil {
		t.Fatal("expected error for empty session id")
	}

	appErr := apperrors.AsAppError(err)
	if appErr == nil || appErr.Code != apperrors.CodeInvalidInput {
		t.Errorf("expected invalid input error, got %v", err)
	}
}
