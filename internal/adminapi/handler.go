// Package adminapi é a API administrativa de demonstração servida atrás do
// pipeline: CRUD de fornecedores, login e endpoints de operação do gateway.
package adminapi

import (
	"crypto/subtle"
	"net/http"
	"strconv"

	"admin-gateway/middleware/apierror"
	"admin-gateway/middleware/identity"
	rldomain "admin-gateway/middleware/ratelimit/domain"
	rlinfra "admin-gateway/middleware/ratelimit/infra"
	cachedomain "admin-gateway/middleware/respcache/domain"

	"github.com/gin-gonic/gin"
	"github.com/mailgun/holster/v4/setter"
	"github.com/sirupsen/logrus"
)

// RateStats é a leitura dos contadores do rate limit.
type RateStats interface {
	Total() rlinfra.Counters
	ByCategory() map[rldomain.Category]rlinfra.Counters
	ByRoute() map[string]rlinfra.Counters
}

// CacheAdmin é o que a API precisa do cache de respostas.
type CacheAdmin interface {
	Stats() cachedomain.Stats
	Clear()
}

// User é uma credencial de demonstração para /api/auth/login.
type User struct {
	ID       string
	Password string
	Role     string
}

type Options struct {
	Store *SupplierStore
	Users map[string]User
	Stats RateStats
	Cache CacheAdmin
	Log   logrus.FieldLogger
}

type Handler struct {
	store *SupplierStore
	users map[string]User
	stats RateStats
	cache CacheAdmin
	log   logrus.FieldLogger
}

func NewHandler(opts Options) *Handler {
	setter.SetDefault(&opts.Store, NewSupplierStore())
	setter.SetDefault(&opts.Log, logrus.WithField("category", "adminapi"))
	return &Handler{
		store: opts.Store,
		users: opts.Users,
		stats: opts.Stats,
		cache: opts.Cache,
		log:   opts.Log,
	}
}

// Router monta o engine gin com todas as rotas.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	h.RegisterRoutes(router)
	router.NoRoute(func(c *gin.Context) {
		apierror.Write(c.Writer, apierror.New(http.StatusNotFound, apierror.CodeNotFound, "Route not found."))
	})
	return router
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")

	api.POST("/auth/login", h.Login)

	suppliers := api.Group("/suppliers")
	suppliers.GET("", h.ListSuppliers)
	suppliers.GET("/:id", h.GetSupplier)
	suppliers.POST("", h.CreateSupplier)
	suppliers.PUT("/:id", h.UpdateSupplier)
	suppliers.DELETE("/:id", h.DeleteSupplier)

	admin := api.Group("/admin", requireAdmin)
	admin.GET("/ratelimit/stats", h.RateLimitStats)
	admin.GET("/cache/stats", h.CacheStats)
	admin.DELETE("/cache", h.ClearCache)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login só valida a credencial; sessão e token ficam com o serviço de
// autenticação real. Falhas respondem 401 e contam no orçamento de auth.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Write(c.Writer, apierror.New(http.StatusBadRequest, apierror.CodeValidation, "username and password are required"))
		return
	}

	u, ok := h.users[req.Username]
	if !ok || subtle.ConstantTimeCompare([]byte(u.Password), []byte(req.Password)) != 1 {
		h.log.WithField("username", req.Username).Info("login failed")
		apierror.Write(c.Writer, apierror.New(http.StatusUnauthorized, apierror.CodeUnauthorized, "Invalid username or password."))
		return
	}

	apierror.WriteData(c.Writer, http.StatusOK, gin.H{"userId": u.ID, "role": u.Role})
}

type supplierRequest struct {
	Name   string `json:"name" binding:"required"`
	Email  string `json:"email" binding:"required,email"`
	Status string `json:"status" binding:"omitempty,oneof=active inactive"`
}

func (r supplierRequest) supplier() Supplier {
	status := r.Status
	if status == "" {
		status = StatusActive
	}
	return Supplier{Name: r.Name, Email: r.Email, Status: status}
}

func (h *Handler) ListSuppliers(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		q = c.Query("search")
	}
	apierror.WriteData(c.Writer, http.StatusOK, h.store.List(c.Query("status"), q))
}

func (h *Handler) GetSupplier(c *gin.Context) {
	id, ok := supplierID(c)
	if !ok {
		return
	}
	it, found := h.store.Get(id)
	if !found {
		notFound(c)
		return
	}
	apierror.WriteData(c.Writer, http.StatusOK, it)
}

func (h *Handler) CreateSupplier(c *gin.Context) {
	var req supplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Write(c.Writer, apierror.New(http.StatusBadRequest, apierror.CodeValidation, err.Error()))
		return
	}
	apierror.WriteData(c.Writer, http.StatusCreated, h.store.Create(req.supplier()))
}

func (h *Handler) UpdateSupplier(c *gin.Context) {
	id, ok := supplierID(c)
	if !ok {
		return
	}
	var req supplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierror.Write(c.Writer, apierror.New(http.StatusBadRequest, apierror.CodeValidation, err.Error()))
		return
	}
	it, found := h.store.Update(id, req.supplier())
	if !found {
		notFound(c)
		return
	}
	apierror.WriteData(c.Writer, http.StatusOK, it)
}

func (h *Handler) DeleteSupplier(c *gin.Context) {
	id, ok := supplierID(c)
	if !ok {
		return
	}
	if !h.store.Delete(id) {
		notFound(c)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) RateLimitStats(c *gin.Context) {
	if h.stats == nil {
		apierror.Write(c.Writer, apierror.New(http.StatusNotFound, apierror.CodeNotFound, "Rate limit stats are not kept in memory."))
		return
	}
	apierror.WriteData(c.Writer, http.StatusOK, gin.H{
		"total":      h.stats.Total(),
		"byCategory": h.stats.ByCategory(),
		"byRoute":    h.stats.ByRoute(),
	})
}

func (h *Handler) CacheStats(c *gin.Context) {
	if h.cache == nil {
		apierror.Write(c.Writer, apierror.New(http.StatusNotFound, apierror.CodeNotFound, "Response cache is disabled."))
		return
	}
	st := h.cache.Stats()
	apierror.WriteData(c.Writer, http.StatusOK, gin.H{
		"hits":      st.Hits,
		"misses":    st.Misses,
		"sets":      st.Sets,
		"evictions": st.Evictions,
		"size":      st.Size,
		"hitRate":   st.HitRate,
	})
}

func (h *Handler) ClearCache(c *gin.Context) {
	if h.cache != nil {
		h.cache.Clear()
		h.log.Info("response cache cleared")
	}
	c.Status(http.StatusNoContent)
}

// requireAdmin usa a identidade já resolvida pelo pipeline.
func requireAdmin(c *gin.Context) {
	id, ok := identity.FromContext(c.Request.Context())
	if !ok || id.Role != "admin" {
		apierror.Write(c.Writer, apierror.New(http.StatusForbidden, apierror.CodeForbidden, "Administrator role required."))
		c.Abort()
		return
	}
	c.Next()
}

func supplierID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		apierror.Write(c.Writer, apierror.New(http.StatusBadRequest, apierror.CodeValidation, "invalid supplier id"))
		return 0, false
	}
	return id, true
}

func notFound(c *gin.Context) {
	apierror.Write(c.Writer, apierror.New(http.StatusNotFound, apierror.CodeNotFound, "Supplier not found."))
}
