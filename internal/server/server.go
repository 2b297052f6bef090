package server

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"mess-backend/internal/config"
	"mess-backend/internal/domain"
	"mess-backend/internal/infrastructure/events"
	"mess-backend/internal/infrastructure/razorpay"
	"mess-backend/internal/orderstatus"
	"mess-backend/internal/usecase"
)

type Server struct {
	cfg     config.Config
	auth    *usecase.AuthService
	orders  *usecase.OrderService
	messes  *usecase.MessService
	hub     *events.Hub
	gateway *razorpay.Client
	engine  *gin.Engine
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func New(cfg config.Config, auth *usecase.AuthService, orders *usecase.OrderService, messes *usecase.MessService, hub *events.Hub, gateway *razorpay.Client) *Server {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	s := &Server{
		cfg:     cfg,
		auth:    auth,
		orders:  orders,
		messes:  messes,
		hub:     hub,
		gateway: gateway,
		engine:  gin.New(),
	}
	s.engine.Use(gin.Recovery(), cors())
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)
	api.GET("/messes", s.handleListMesses)
	api.GET("/messes/:id", s.handleGetMess)
	api.GET("/ws", s.handleWS)

	authed := api.Group("", s.authRequired())
	authed.GET("/auth/me", s.handleMe)
	authed.PUT("/auth/address", s.handleUpdateAddress)
	authed.POST("/messes", s.handleRegisterMess)
	authed.PUT("/messes/:id/menu", s.handleUpdateMenu)
	authed.POST("/orders", s.handleCashCheckout)
	authed.POST("/orders/online", s.handleOnlineCheckout)
	authed.GET("/orders", s.handleListOrders)
	authed.GET("/orders/:id/actions", s.handleOrderActions)
	authed.PATCH("/orders/:id/status", s.handleUpdateStatus)
	authed.POST("/razorpay/create-order", s.handleCreateGatewayOrder)
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) authRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
		if token == "" || token == h {
			s.abort(c, http.StatusUnauthorized, "Unauthorized", "bearer token required")
			return
		}
		uid, ut, err := s.auth.Verify(token)
		if err != nil || uid == "" {
			s.abort(c, http.StatusUnauthorized, "Unauthorized", "invalid token")
			return
		}
		c.Set("userId", uid)
		c.Set("userType", ut)
		c.Next()
	}
}

func (s *Server) userID(c *gin.Context) string {
	return c.GetString("userId")
}

func (s *Server) userType(c *gin.Context) domain.UserType {
	v, _ := c.Get("userType")
	ut, _ := v.(domain.UserType)
	return ut
}

type signupReq struct {
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Password string          `json:"password"`
	UserType domain.UserType `json:"userType"`
}

func (s *Server) handleSignup(c *gin.Context) {
	var req signupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	token, u, err := s.auth.Signup(req.Name, req.Email, req.Password, req.UserType)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": u})
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	token, u, err := s.auth.Login(req.Email, req.Password)
	if err != nil {
		s.abort(c, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": u})
}

func (s *Server) handleMe(c *gin.Context) {
	u, err := s.auth.User(s.userID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (s *Server) handleUpdateAddress(c *gin.Context) {
	var addr domain.Address
	if err := c.ShouldBindJSON(&addr); err != nil {
		s.abort(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	u, err := s.auth.UpdateAddress(s.userID(c), &addr)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type registerMessReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Location    string `json:"location"`
}

func (s *Server) handleRegisterMess(c *gin.Context) {
	if s.userType(c) != domain.UserOwner {
		s.abort(c, http.StatusForbidden, "Forbidden", "owner account required")
		return
	}
	var req registerMessReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	m, err := s.messes.Register(s.userID(c), req.Name, req.Description, req.Location)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) handleListMesses(c *gin.Context) {
	list, err := s.messes.List()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messes": list})
}

func (s *Server) handleGetMess(c *gin.Context) {
	m, err := s.messes.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (s *Server) handleUpdateMenu(c *gin.Context) {
	if s.userType(c) != domain.UserOwner || c.Param("id") != s.userID(c) {
		s.abort(c, http.StatusForbidden, "Forbidden", "not your mess")
		return
	}
	var menu []domain.MenuItem
	if err := c.ShouldBindJSON(&menu); err != nil {
		s.abort(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	m, err := s.messes.UpdateMenu(s.userID(c), menu)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type checkoutReq struct {
	Items           []domain.CartItem `json:"items"`
	OrderType       domain.OrderType  `json:"orderType"`
	DeliveryAddress *domain.Address   `json:"deliveryAddress"`
	CheckoutKey     string            `json:"checkoutKey"`
}

func (s *Server) checkout(c *gin.Context, req checkoutReq) (usecase.Checkout, bool) {
	u, err := s.auth.User(s.userID(c))
	if err != nil {
		s.fail(c, err)
		return usecase.Checkout{}, false
	}
	addr := req.DeliveryAddress
	if addr == nil {
		addr = u.Address
	}
	return usecase.Checkout{
		Cart:      req.Items,
		OrderType: req.OrderType,
		Address:   addr,
		Customer: usecase.Customer{
			ID:    u.UserID,
			Name:  u.Name,
			Email: u.Email,
			Phone: u.Phone,
		},
		CheckoutKey: req.CheckoutKey,
	}, true
}

func (s *Server) handleCashCheckout(c *gin.Context) {
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	co, ok := s.checkout(c, req)
	if !ok {
		return
	}
	ids, err := s.orders.PlaceCashOrders(co)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderIds": ids})
}

type onlineCheckoutReq struct {
	checkoutReq
	RazorpayOrderID   string `json:"razorpayOrderId"`
	RazorpayPaymentID string `json:"razorpayPaymentId"`
	RazorpaySignature string `json:"razorpaySignature"`
}

func (s *Server) handleOnlineCheckout(c *gin.Context) {
	var req onlineCheckoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	co, ok := s.checkout(c, req.checkoutReq)
	if !ok {
		return
	}
	ids, err := s.orders.PlaceOnlineOrders(co, usecase.PaymentConfirmation{
		GatewayOrderID: req.RazorpayOrderID,
		PaymentID:      req.RazorpayPaymentID,
		Signature:      req.RazorpaySignature,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orderIds": ids})
}

func (s *Server) handleListOrders(c *gin.Context) {
	uid := s.userID(c)
	if messID := c.Query("messId"); messID != "" {
		if s.userType(c) != domain.UserOwner || messID != uid {
			s.abort(c, http.StatusForbidden, "Forbidden", "not your mess")
			return
		}
		out, err := s.orders.OrdersForMess(messID)
		if err != nil {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": out})
		return
	}
	if studentID := c.Query("studentId"); studentID != "" && studentID != uid {
		s.abort(c, http.StatusForbidden, "Forbidden", "not your orders")
		return
	}
	var (
		out []domain.Order
		err error
	)
	if s.userType(c) == domain.UserOwner {
		out, err = s.orders.OrdersForMess(uid)
	} else {
		out, err = s.orders.OrdersForStudent(uid)
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func (s *Server) handleOrderActions(c *gin.Context) {
	o, err := s.orders.Order(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	uid := s.userID(c)
	if o.MessID != uid && o.StudentID != uid {
		s.abort(c, http.StatusForbidden, "Forbidden", "not your order")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":    o,
		"actions":  orderstatus.NextActions(o.Status, o.OrderType),
		"info":     orderstatus.StatusInfo(o.Status),
		"progress": orderstatus.Progress(o.Status),
	})
}

type updateStatusReq struct {
	Status domain.OrderStatus `json:"status"`
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	if s.userType(c) != domain.UserOwner {
		s.abort(c, http.StatusForbidden, "Forbidden", "owner account required")
		return
	}
	o, err := s.orders.Order(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	if o.MessID != s.userID(c) {
		s.abort(c, http.StatusForbidden, "Forbidden", "not your order")
		return
	}
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	updated, err := s.orders.UpdateStatus(o.ID, req.Status)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type createGatewayOrderReq struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt"`
}

func (s *Server) handleCreateGatewayOrder(c *gin.Context) {
	var req createGatewayOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		s.abort(c, http.StatusBadRequest, "BadRequest", "invalid json")
		return
	}
	if req.Amount <= 0 {
		s.abort(c, http.StatusBadRequest, "BadRequest", "invalid amount")
		return
	}
	order, err := s.gateway.CreateOrder(c.Request.Context(), req.Amount, req.Currency, req.Receipt)
	if err != nil {
		log.Printf("razorpay create order: %v", err)
		s.abort(c, http.StatusBadGateway, "GatewayError", "failed to create payment order")
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// handleWS streams the full order set for a mess or a student over a
// websocket; every change pushes a fresh snapshot.
func (s *Server) handleWS(c *gin.Context) {
	uid, ut, err := s.auth.Verify(c.Query("token"))
	if err != nil || uid == "" {
		s.abort(c, http.StatusUnauthorized, "Unauthorized", "invalid token")
		return
	}
	messID := c.Query("messId")
	studentID := c.Query("studentId")
	switch {
	case messID != "":
		if ut != domain.UserOwner || messID != uid {
			s.abort(c, http.StatusForbidden, "Forbidden", "not your mess")
			return
		}
	case studentID != "":
		if studentID != uid {
			s.abort(c, http.StatusForbidden, "Forbidden", "not your orders")
			return
		}
	default:
		s.abort(c, http.StatusBadRequest, "BadRequest", "messId or studentId required")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	var wmu sync.Mutex
	push := func(orders []domain.Order) {
		wmu.Lock()
		defer wmu.Unlock()
		if err := conn.WriteJSON(gin.H{"orders": orders}); err != nil {
			conn.Close()
		}
	}
	var cancel func()
	if messID != "" {
		cancel = s.hub.SubscribeMess(messID, push)
		if out, err := s.orders.OrdersForMess(messID); err == nil {
			push(out)
		}
	} else {
		cancel = s.hub.SubscribeStudent(studentID, push)
		if out, err := s.orders.OrdersForStudent(studentID); err == nil {
			push(out)
		}
	}
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			conn.Close()
			return
		}
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrPaymentVerificationFailed):
		s.abort(c, http.StatusPaymentRequired, "PaymentVerificationFailed", err.Error())
	case errors.Is(err, usecase.ErrIllegalTransition):
		s.abort(c, http.StatusConflict, "IllegalTransition", err.Error())
	case errors.Is(err, usecase.ErrStoreUnavailable):
		s.abort(c, http.StatusServiceUnavailable, "StoreUnavailable", err.Error())
	default:
		switch err.(type) {
		case usecase.ErrNotFound:
			s.abort(c, http.StatusNotFound, "NotFound", err.Error())
		case usecase.ErrConflict:
			s.abort(c, http.StatusConflict, "Conflict", err.Error())
		case usecase.ErrBadRequest:
			s.abort(c, http.StatusBadRequest, "BadRequest", err.Error())
		default:
			s.abort(c, http.StatusInternalServerError, "ServerError", "internal error")
		}
	}
}

func (s *Server) abort(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"code": code, "message": msg},
	})
}
