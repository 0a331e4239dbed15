package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	carts := s.echo.Group("/cart")
	carts.Use(s.middleware.RateLimit.Handler())
	carts.POST("/store", s.storeCart)
	carts.POST("/checkout", s.checkout)
	carts.GET("/:userId", s.getCart)
	carts.DELETE("/:userId", s.deleteCart)
}
