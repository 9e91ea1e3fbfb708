// Package router mounts the HTTP API on an echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/trekker-booking/internal/handler"
	"github.com/iliyamo/trekker-booking/internal/middleware"
)

// Handlers bundles everything the routes dispatch to.
type Handlers struct {
	Catalogue         *handler.CatalogueHandler
	HotelReservations *handler.HotelReservationHandler
	TourBookings      *handler.TourBookingHandler
	Blog              *handler.BlogHandler
	Cache             *middleware.ResponseCache
	RateLimit         echo.MiddlewareFunc
	JWTSecret         string
}

// RegisterRoutes exposes /healthz and the /api tree.
//
// Public reads run behind OptionalJWT so staff see staff views.  Booking
// routes require a token.  Catalogue writes and the confirm and complete
// transitions require the staff claim.
func RegisterRoutes(e *echo.Echo, h Handlers) {
	e.GET("/healthz", handler.Health)

	api := e.Group("/api")
	if h.RateLimit != nil {
		api.Use(h.RateLimit)
	}
	optional := middleware.OptionalJWT(h.JWTSecret)
	auth := middleware.JWTAuth(h.JWTSecret)
	staff := middleware.RequireStaff()

	registerHotels(api, h, optional, auth, staff)
	registerTours(api, h, optional, auth, staff)
	registerBlog(api, h, optional, auth, staff)
}

func registerHotels(api *echo.Group, h Handlers, optional, auth, staff echo.MiddlewareFunc) {
	c := h.Catalogue
	hotels := h.Cache.Middleware(middleware.CacheHotels)
	rooms := h.Cache.Middleware(middleware.CacheRooms)

	api.GET("/hotels", c.ListHotels, optional, hotels)
	api.GET("/hotels/search", c.ListHotels, optional, hotels)
	api.GET("/hotels/:id", c.GetHotel, optional, hotels)
	api.GET("/hotels/:id/rooms", c.HotelRooms, optional, rooms)
	api.POST("/hotels", c.CreateHotel, auth, staff)
	api.PUT("/hotels/:id", c.UpdateHotel, auth, staff)
	api.DELETE("/hotels/:id", c.DeleteHotel, auth, staff)

	api.GET("/rooms", c.ListRooms, optional, rooms)
	api.GET("/rooms/:id", c.GetRoom, optional, rooms)
	api.POST("/rooms", c.CreateRoom, auth, staff)
	api.PUT("/rooms/:id", c.UpdateRoom, auth, staff)
	api.DELETE("/rooms/:id", c.DeleteRoom, auth, staff)

	r := h.HotelReservations
	g := api.Group("/hotel-reservations", auth)
	g.POST("", r.Create)
	g.GET("", r.List)
	g.GET("/my", r.My)
	g.GET("/:id", r.Get)
	g.POST("/:id/cancel", r.Cancel)
	g.POST("/:id/confirm", r.Confirm, staff)
	g.POST("/:id/complete", r.Complete, staff)
}

func registerTours(api *echo.Group, h Handlers, optional, auth, staff echo.MiddlewareFunc) {
	c := h.Catalogue
	tours := h.Cache.Middleware(middleware.CacheTours)

	api.GET("/tours", c.ListTours, optional, tours)
	api.GET("/tours/search", c.ListTours, optional, tours)
	api.GET("/tours/:id", c.GetTour, optional, tours)
	api.POST("/tours", c.CreateTour, auth, staff)
	api.PUT("/tours/:id", c.UpdateTour, auth, staff)
	api.DELETE("/tours/:id", c.DeleteTour, auth, staff)

	b := h.TourBookings
	g := api.Group("/tour-bookings", auth)
	g.POST("", b.Create)
	g.GET("", b.List)
	g.GET("/my", b.My)
	g.GET("/:id", b.Get)
	g.POST("/:id/cancel", b.Cancel)
	g.POST("/:id/confirm", b.Confirm, staff)
	g.POST("/:id/complete", b.Complete, staff)
}

func registerBlog(api *echo.Group, h Handlers, optional, auth, staff echo.MiddlewareFunc) {
	b := h.Blog
	posts := h.Cache.Middleware(middleware.CachePosts)

	api.GET("/categories", b.ListCategories, optional)
	api.GET("/categories/:slug", b.GetCategory, optional)
	api.POST("/categories", b.CreateCategory, auth, staff)
	api.DELETE("/categories/:slug", b.DeleteCategory, auth, staff)

	api.GET("/posts", b.ListPosts, optional, posts)
	api.GET("/posts/:slug", b.GetPost, optional)
	api.POST("/posts", b.CreatePost, auth)
	api.PUT("/posts/:slug", b.UpdatePost, auth)
	api.DELETE("/posts/:slug", b.DeletePost, auth)
	api.POST("/posts/:slug/like", b.LikePost, auth)
	api.GET("/posts/:slug/comments", b.ListComments, optional)
	api.POST("/posts/:slug/comments", b.CreateComment, auth)
	api.DELETE("/comments/:id", b.DeleteComment, auth)
}
