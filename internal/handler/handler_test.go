package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/trekker-booking/internal/ledger"
	"github.com/iliyamo/trekker-booking/internal/middleware"
	"github.com/iliyamo/trekker-booking/internal/model"
	"github.com/iliyamo/trekker-booking/internal/repository"
	"github.com/iliyamo/trekker-booking/internal/service"
	"github.com/iliyamo/trekker-booking/internal/utils"
)

const secret = "handler-secret"

func token(t *testing.T, uid uint64, staff bool) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, uid, "customer", staff, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

// stubHotelBookings returns canned results per call.
type stubHotelBookings struct {
	reserveErr error
	cancelErr  error
	lastInput  service.ReserveRoomInput
	lastCaller service.Caller
}

func (s *stubHotelBookings) Reserve(_ context.Context, c service.Caller, in service.ReserveRoomInput) (*repository.HotelReservationDetail, error) {
	s.lastInput, s.lastCaller = in, c
	if s.reserveErr != nil {
		return nil, s.reserveErr
	}
	return &repository.HotelReservationDetail{
		HotelReservation: model.HotelReservation{ID: 41, UserID: c.UserID, RoomID: in.RoomID, NumRooms: in.NumRooms, Status: ledger.StatusPending, Reference: "ref-41"},
		HotelName:        "Alpine Lodge",
	}, nil
}

func (s *stubHotelBookings) Get(_ context.Context, c service.Caller, id uint64) (*repository.HotelReservationDetail, error) {
	if id != 41 {
		return nil, repository.ErrNotFound
	}
	return &repository.HotelReservationDetail{HotelReservation: model.HotelReservation{ID: 41, UserID: c.UserID}}, nil
}

func (s *stubHotelBookings) List(_ context.Context, c service.Caller, mine bool, orderBy string) ([]repository.HotelReservationDetail, error) {
	s.lastCaller = c
	return []repository.HotelReservationDetail{}, nil
}

func (s *stubHotelBookings) Cancel(_ context.Context, c service.Caller, id uint64) (ledger.Record, error) {
	if s.cancelErr != nil {
		return ledger.Record{}, s.cancelErr
	}
	return ledger.Record{ID: id, Status: ledger.StatusCancelled}, nil
}

func (s *stubHotelBookings) Confirm(_ context.Context, c service.Caller, id uint64) (ledger.Record, error) {
	return ledger.Record{ID: id, Status: ledger.StatusConfirmed}, nil
}

func (s *stubHotelBookings) Complete(_ context.Context, c service.Caller, id uint64) (ledger.Record, error) {
	return ledger.Record{ID: id, Status: ledger.StatusCompleted}, nil
}

func hotelReservationServer(b HotelBookings) *echo.Echo {
	e := echo.New()
	h := NewHotelReservationHandler(b, nil)
	g := e.Group("/api/hotel-reservations", middleware.JWTAuth(secret))
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/cancel", h.Cancel)
	return e
}

func TestHotelReservation_Create(t *testing.T) {
	stub := &stubHotelBookings{}
	e := hotelReservationServer(stub)

	body := `{"room_id":12,"check_in":"2026-07-01","check_out":"2026-07-04","num_guests":2,"num_rooms":1}`
	rec := do(e, http.MethodPost, "/api/hotel-reservations", token(t, 7, false), body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	m := decode(t, rec)
	assert.Equal(t, "ref-41", m["reference"])
	assert.Equal(t, "PENDING", m["status"])
	assert.Equal(t, "Alpine Lodge", m["hotel_name"])
	assert.Equal(t, "2026-07-04", stub.lastInput.CheckOut.String())
	assert.Equal(t, uint64(7), stub.lastCaller.UserID)

	rec = do(e, http.MethodPost, "/api/hotel-reservations", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHotelReservation_CreateRejections(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"capacity", &ledger.InsufficientCapacityError{Pool: ledger.PoolKey{Kind: ledger.KindRoom, ID: 12}, Requested: 3, Available: 2},
			http.StatusBadRequest, "Only 2 rooms available"},
		{"validation", &service.ValidationError{Field: "check_out", Message: "Check-out date must be after check-in date."},
			http.StatusBadRequest, "Check-out date must be after check-in date."},
		{"contention", ledger.ErrContention, http.StatusConflict, "inventory is busy, please retry"},
		{"pool", ledger.ErrPoolNotFound, http.StatusNotFound, "reservation not found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := hotelReservationServer(&stubHotelBookings{reserveErr: tc.err})
			rec := do(e, http.MethodPost, "/api/hotel-reservations", token(t, 7, false), `{"room_id":12}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, decode(t, rec)["error"])
			if tc.err == ledger.ErrContention {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			}
		})
	}
}

func TestHotelReservation_CancelMessages(t *testing.T) {
	cases := []struct {
		err    error
		status int
		key    string
		msg    string
	}{
		{nil, http.StatusOK, "message", "Reservation cancelled successfully"},
		{&ledger.InvalidTransitionError{Current: ledger.StatusCancelled, Target: ledger.StatusCancelled},
			http.StatusBadRequest, "error", "Reservation is already cancelled"},
		{&ledger.InvalidTransitionError{Current: ledger.StatusCompleted, Target: ledger.StatusCancelled},
			http.StatusBadRequest, "error", "Cannot cancel completed reservation"},
		{repository.ErrForbidden, http.StatusForbidden, "error", "forbidden"},
	}
	for _, tc := range cases {
		e := hotelReservationServer(&stubHotelBookings{cancelErr: tc.err})
		rec := do(e, http.MethodPost, "/api/hotel-reservations/41/cancel", token(t, 7, false), "")
		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, tc.msg, decode(t, rec)[tc.key])
	}

	e := hotelReservationServer(&stubHotelBookings{})
	rec := do(e, http.MethodPost, "/api/hotel-reservations/abc/cancel", token(t, 7, false), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTourBooking_CancelMessages(t *testing.T) {
	r := record{noun: "booking"}
	assert.Equal(t, "Booking is already cancelled",
		r.transitionMessage(&ledger.InvalidTransitionError{Current: ledger.StatusCancelled, Target: ledger.StatusCancelled}))
	assert.Equal(t, "Cannot cancel completed booking",
		r.transitionMessage(&ledger.InvalidTransitionError{Current: ledger.StatusCompleted, Target: ledger.StatusCancelled}))
	assert.Equal(t, "Cannot move booking from PENDING to COMPLETED",
		r.transitionMessage(&ledger.InvalidTransitionError{Current: ledger.StatusPending, Target: ledger.StatusCompleted}))

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	rec := c.Response().Writer.(*httptest.ResponseRecorder)
	require.NoError(t, r.fail(c, &ledger.InsufficientCapacityError{Pool: ledger.PoolKey{Kind: ledger.KindTour, ID: 4}, Available: 3}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only 3 spots available", decode(t, rec)["error"])
}

type stubTours struct{ tours []model.Tour }

func (s stubTours) List(_ context.Context, f repository.TourFilter) ([]model.Tour, error) {
	return s.tours, nil
}

func (s stubTours) GetByID(_ context.Context, id uint64) (*model.Tour, error) {
	for _, t := range s.tours {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

type nopEditor struct{ CatalogueEditor }

type stubHotels struct{}

func (stubHotels) List(context.Context, repository.HotelFilter) ([]repository.HotelSummary, error) {
	return []repository.HotelSummary{}, nil
}

func (stubHotels) GetByID(context.Context, uint64) (*model.Hotel, error) {
	return nil, repository.ErrNotFound
}

type stubRooms struct{}

func (stubRooms) List(context.Context, repository.RoomFilter) ([]model.Room, error) { return nil, nil }
func (stubRooms) ListByHotel(context.Context, uint64, bool) ([]model.Room, error)   { return nil, nil }
func (stubRooms) GetByID(context.Context, uint64) (*model.Room, error) {
	return nil, repository.ErrNotFound
}

func TestCatalogue_Tours(t *testing.T) {
	tours := stubTours{tours: []model.Tour{
		{ID: 1, Name: "Andes", IsActive: true, IncludedServices: "guide, meals, transport, lodging"},
		{ID: 2, Name: "Retired", IsActive: false},
	}}
	h := NewCatalogueHandler(stubHotels{}, stubRooms{}, tours, nopEditor{}, nil)
	e := echo.New()
	e.GET("/api/tours", h.ListTours)
	e.GET("/api/tours/:id", h.GetTour, middleware.OptionalJWT(secret))
	e.GET("/api/hotels", h.ListHotels)
	e.GET("/api/hotels/:id", h.GetHotel)

	rec := do(e, http.MethodGet, "/api/tours?available=true", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list[0]["included_services_list"], 3)

	rec = do(e, http.MethodGet, "/api/tours?start_date=soon", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/tours/1", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["included_services_list"], 4)

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/tours/2", "", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/tours/2", token(t, 1, true), "").Code)

	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/api/hotels?star_rating=9", "", "").Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/hotels/5", "", "").Code)
}

type memPosts struct {
	posts map[string]*model.Post
	likes map[uint64]map[uint64]bool
}

func newMemPosts() *memPosts {
	return &memPosts{posts: map[string]*model.Post{}, likes: map[uint64]map[uint64]bool{}}
}

func (m *memPosts) ListPublished(context.Context, string) ([]model.Post, error) { return nil, nil }

func (m *memPosts) GetBySlug(_ context.Context, s string) (*model.Post, error) {
	p, ok := m.posts[s]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPosts) SlugTaken(_ context.Context, s string) (bool, error) {
	_, ok := m.posts[s]
	return ok, nil
}

func (m *memPosts) Create(_ context.Context, p *model.Post, _ []uint64) error {
	p.ID = uint64(len(m.posts) + 1)
	cp := *p
	m.posts[p.Slug] = &cp
	return nil
}

func (m *memPosts) Update(_ context.Context, p *model.Post, _ []uint64) error {
	cp := *p
	m.posts[p.Slug] = &cp
	return nil
}

func (m *memPosts) Delete(_ context.Context, id uint64) error {
	for s, p := range m.posts {
		if p.ID == id {
			delete(m.posts, s)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memPosts) IncrementViews(_ context.Context, id uint64) error { return nil }

func (m *memPosts) ToggleLike(_ context.Context, postID, userID uint64) (bool, int, error) {
	if m.likes[postID] == nil {
		m.likes[postID] = map[uint64]bool{}
	}
	liked := !m.likes[postID][userID]
	if liked {
		m.likes[postID][userID] = true
	} else {
		delete(m.likes[postID], userID)
	}
	return liked, len(m.likes[postID]), nil
}

type noCategories struct{ CategoryStore }
type noComments struct{ CommentStore }

func TestBlog_PostsAndLikes(t *testing.T) {
	posts := newMemPosts()
	h := NewBlogHandler(noCategories{}, posts, noComments{}, nil, nil)
	e := echo.New()
	auth := middleware.JWTAuth(secret)
	e.POST("/api/posts", h.CreatePost, auth)
	e.PUT("/api/posts/:slug", h.UpdatePost, auth)
	e.POST("/api/posts/:slug/like", h.LikePost, auth)
	e.GET("/api/posts/:slug", h.GetPost, middleware.OptionalJWT(secret))

	body := `{"title":"Hiking the Alps!","body":"Long walk."}`
	rec := do(e, http.MethodPost, "/api/posts", token(t, 5, false), body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "hiking-the-alps", decode(t, rec)["slug"])

	rec = do(e, http.MethodPost, "/api/posts", token(t, 6, false), body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "hiking-the-alps-2", decode(t, rec)["slug"])

	rec = do(e, http.MethodPut, "/api/posts/hiking-the-alps", token(t, 6, false), `{"title":"Mine now"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(e, http.MethodPut, "/api/posts/hiking-the-alps", token(t, 1, true), `{"is_published":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/api/posts/hiking-the-alps", "", "").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/posts/hiking-the-alps", token(t, 5, false), "").Code)

	rec = do(e, http.MethodPost, "/api/posts/hiking-the-alps-2/like", token(t, 9, false), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Post liked", decode(t, rec)["message"])
	assert.EqualValues(t, 1, decode(t, rec)["likes_count"])

	rec = do(e, http.MethodPost, "/api/posts/hiking-the-alps-2/like", token(t, 9, false), "")
	assert.Equal(t, "Post unliked", decode(t, rec)["message"])
	assert.EqualValues(t, 0, decode(t, rec)["likes_count"])
}

func TestHealth(t *testing.T) {
	e := echo.New()
	e.GET("/healthz", Health)
	rec := do(e, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
