package controllers

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingController_Register(t *testing.T) {
	result := &domain.BookingResult{EventID: "ev-1", Status: domain.StatusActive, Capacity: 10, BookedSeats: 3, RemainingSeats: 7, PointsAwarded: 30}

	tests := []struct {
		name         string
		body         string
		caller       domain.Principal
		fakeErr      error
		wantStatus   int
		wantCode     string
		wantQuantity int
	}{
		{name: "quantity defaults to one", body: `{}`, caller: alice, wantStatus: http.StatusCreated, wantQuantity: 1},
		{name: "explicit quantity", body: `{"quantity":3,"paymentStatus":"completed"}`, caller: alice, wantStatus: http.StatusCreated, wantQuantity: 3},
		{name: "client tickets and amount are ignored", body: `{"quantity":2,"tickets":["T-1","T-2"],"totalAmount":1}`, caller: alice, wantStatus: http.StatusCreated, wantQuantity: 2},
		{name: "negative quantity", body: `{"quantity":-1}`, caller: alice, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "event not open", body: `{}`, caller: alice, fakeErr: &domain.NotOpenError{Status: domain.StatusDraft}, wantStatus: http.StatusBadRequest, wantCode: "event_not_open", wantQuantity: 1},
		{name: "already registered", body: `{}`, caller: alice, fakeErr: domain.ErrAlreadyRegistered, wantStatus: http.StatusBadRequest, wantCode: "already_registered", wantQuantity: 1},
		{name: "insufficient capacity", body: `{"quantity":5}`, caller: alice, fakeErr: &domain.CapacityError{Remaining: 2, Requested: 5}, wantStatus: http.StatusBadRequest, wantCode: "insufficient_capacity", wantQuantity: 5},
		{name: "booking for someone else", body: `{"username":"bob"}`, caller: alice, fakeErr: domain.ErrForbidden, wantStatus: http.StatusForbidden, wantCode: "forbidden", wantQuantity: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeBookingService{result: result, err: tt.fakeErr}
			ctrl := NewBookingController(testLogger, fake, &fakeQR{})
			req := httptest.NewRequest(http.MethodPost, "/events/ev-1/register", bytes.NewBufferString(tt.body))
			req.SetPathValue("eventID", "ev-1")
			rr := httptest.NewRecorder()

			ctrl.Register(rr, withPrincipal(req, tt.caller))

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantQuantity, fake.lastReq.Quantity)
			if tt.wantCode == "" {
				var got domain.BookingResult
				decodeEnvelope(t, rr, &got)
				assert.Equal(t, 7, got.RemainingSeats)
				assert.Equal(t, "ev-1", fake.lastEventID)
				return
			}
			envelope := decodeEnvelope(t, rr, nil)
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.wantCode, envelope.Error.Code)
		})
	}
}

func TestBookingController_CapacityMessage(t *testing.T) {
	fake := &fakeBookingService{err: &domain.CapacityError{Remaining: 1, Requested: 3}}
	ctrl := NewBookingController(testLogger, fake, &fakeQR{})
	req := httptest.NewRequest(http.MethodPost, "/events/ev-1/register", bytes.NewBufferString(`{"quantity":3}`))
	rr := httptest.NewRecorder()

	ctrl.Register(rr, withPrincipal(req, alice))

	envelope := decodeEnvelope(t, rr, nil)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "only 1 seat remaining, requested 3", envelope.Error.Message)
}

func TestBookingController_Unregister(t *testing.T) {
	result := &domain.BookingResult{EventID: "ev-1", Status: domain.StatusActive, PointsAwarded: -20}

	t.Run("empty body cancels the caller's booking", func(t *testing.T) {
		fake := &fakeBookingService{result: result}
		ctrl := NewBookingController(testLogger, fake, &fakeQR{})
		req := httptest.NewRequest(http.MethodDelete, "/events/ev-1/register", nil)
		req.SetPathValue("eventID", "ev-1")
		rr := httptest.NewRecorder()

		ctrl.Unregister(rr, withPrincipal(req, alice))

		require.Equal(t, http.StatusOK, rr.Code)
		var got domain.BookingResult
		decodeEnvelope(t, rr, &got)
		assert.Equal(t, -20, got.PointsAwarded)
		assert.Empty(t, fake.lastUsername)
	})

	t.Run("admin names the user", func(t *testing.T) {
		fake := &fakeBookingService{result: result}
		ctrl := NewBookingController(testLogger, fake, &fakeQR{})
		req := httptest.NewRequest(http.MethodDelete, "/events/ev-1/register", bytes.NewBufferString(`{"username":"bob"}`))
		rr := httptest.NewRecorder()

		ctrl.Unregister(rr, withPrincipal(req, admin))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "bob", fake.lastUsername)
		assert.Equal(t, admin, fake.lastCaller)
	})

	t.Run("not registered", func(t *testing.T) {
		fake := &fakeBookingService{err: domain.ErrNotRegistered}
		ctrl := NewBookingController(testLogger, fake, &fakeQR{})
		rr := httptest.NewRecorder()

		ctrl.Unregister(rr, withPrincipal(httptest.NewRequest(http.MethodDelete, "/events/ev-1/register", nil), alice))

		require.Equal(t, http.StatusBadRequest, rr.Code)
		envelope := decodeEnvelope(t, rr, nil)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, "not_registered", envelope.Error.Code)
	})
}

func TestBookingController_TicketQR(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}

	t.Run("owner gets png", func(t *testing.T) {
		fake := &fakeBookingService{owner: &domain.Registration{Username: "alice", Tickets: []string{"t-1"}}}
		qr := &fakeQR{png: png}
		ctrl := NewBookingController(testLogger, fake, qr)
		req := httptest.NewRequest(http.MethodGet, "/events/ev-1/tickets/t-1/qr?size=4096", nil)
		req.SetPathValue("eventID", "ev-1")
		req.SetPathValue("ticketID", "t-1")
		rr := httptest.NewRecorder()

		ctrl.TicketQR(rr, withPrincipal(req, alice))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
		assert.Equal(t, png, rr.Body.Bytes())
		assert.Equal(t, 1024, qr.lastSize)
		assert.Equal(t, "t-1", fake.lastTicketID)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		fake := &fakeBookingService{err: domain.ErrForbidden}
		qr := &fakeQR{png: png}
		ctrl := NewBookingController(testLogger, fake, qr)
		rr := httptest.NewRecorder()

		ctrl.TicketQR(rr, withPrincipal(httptest.NewRequest(http.MethodGet, "/events/ev-1/tickets/t-1/qr", nil), alice))

		require.Equal(t, http.StatusForbidden, rr.Code)
		assert.Zero(t, qr.lastSize)
	})

	t.Run("render failure", func(t *testing.T) {
		fake := &fakeBookingService{owner: &domain.Registration{Username: "alice"}}
		ctrl := NewBookingController(testLogger, fake, &fakeQR{err: errors.New("encode failed")})
		rr := httptest.NewRecorder()

		ctrl.TicketQR(rr, withPrincipal(httptest.NewRequest(http.MethodGet, "/events/ev-1/tickets/t-1/qr", nil), alice))

		require.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestBookingController_CheckIn(t *testing.T) {
	owner := &domain.Registration{Username: "alice", Quantity: 2, Tickets: []string{"T-1", "T-2"}}

	tests := []struct {
		name        string
		body        string
		fakeErr     error
		wantStatus  int
		wantCode    string
		wantChecked int
	}{
		{name: "valid ticket", body: `{"payload":"signed:ev-1:T-2"}`, wantStatus: http.StatusOK, wantChecked: 1},
		{name: "missing payload", body: `{}`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "bad signature", body: `{"payload":"forged:ev-1:T-2"}`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "ticket for another event", body: `{"payload":"signed:ev-9:T-2"}`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "caller does not manage the event", body: `{"payload":"signed:ev-1:T-2"}`, fakeErr: domain.ErrForbidden, wantStatus: http.StatusForbidden, wantCode: "forbidden", wantChecked: 1},
		{name: "unknown ticket", body: `{"payload":"signed:ev-1:T-7"}`, fakeErr: domain.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found", wantChecked: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeBookingService{owner: owner, err: tt.fakeErr}
			ctrl := NewBookingController(testLogger, fake, &fakeQR{})
			req := httptest.NewRequest(http.MethodPost, "/events/ev-1/checkin", bytes.NewBufferString(tt.body))
			req.SetPathValue("eventID", "ev-1")
			rr := httptest.NewRecorder()

			ctrl.CheckIn(rr, withPrincipal(req, admin))

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantChecked, fake.checked)
			if tt.wantCode == "" {
				var got CheckInResponse
				decodeEnvelope(t, rr, &got)
				assert.Equal(t, "ev-1", got.EventID)
				assert.Equal(t, "T-2", got.TicketID)
				require.NotNil(t, got.Registration)
				assert.Equal(t, "alice", got.Registration.Username)
				assert.Equal(t, admin, fake.lastCaller)
				return
			}
			envelope := decodeEnvelope(t, rr, nil)
			require.NotNil(t, envelope.Error)
			assert.Equal(t, tt.wantCode, envelope.Error.Code)
		})
	}
}
