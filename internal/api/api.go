// Package api exposes the record store over HTTP: the staff CRUD surface,
// the audit query, the gated admin surface, and the portal surface behind the
// access filter.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wealthos-dev/wealthos-store/internal/audit"
	"github.com/wealthos-dev/wealthos-store/internal/engine"
	"github.com/wealthos-dev/wealthos-store/internal/portal"
	"github.com/wealthos-dev/wealthos-store/internal/seed"
	"github.com/wealthos-dev/wealthos-store/pkg/record"
)

// Handler wires the store subsystems to the HTTP routes.
type Handler struct {
	Store      *engine.Store
	Audit      *audit.Log
	Seeder     *seed.Manager
	Sessions   *portal.Sessions
	AdminToken string
	Log        *slog.Logger
}

// Register mounts every route group on r.
func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/collections", h.ListCollections)
		api.GET("/collections/:name", h.List)
		api.GET("/collections/:name/:id", h.Get)
		api.POST("/collections/:name", h.Create)
		api.PATCH("/collections/:name/:id", h.Update)
		api.DELETE("/collections/:name/:id", h.Delete)
		api.GET("/audit/:id", h.AuditForRecord)
	}

	admin := r.Group("/admin", h.requireAdmin)
	{
		admin.POST("/seed-reset", h.SeedReset)
	}

	p := r.Group("/portal")
	{
		p.POST("/login", h.PortalLogin)
		p.POST("/logout", h.PortalLogout)

		authed := p.Group("/collections", h.requirePortalUser)
		authed.GET("/:name", h.PortalList)
		authed.GET("/:name/:id", h.PortalGet)
	}
}

// ListCollections returns the names of every non-reserved collection.
func (h *Handler) ListCollections(c *gin.Context) {
	names, err := h.Store.Collections()
	if err != nil {
		h.fail(c, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	c.JSON(http.StatusOK, names)
}

// List returns a collection, optionally filtered by query-string equality
// predicates (field=value, string comparison).
func (h *Handler) List(c *gin.Context) {
	records, err := h.Store.List(c.Param("name"), queryPredicate(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if records == nil {
		records = []record.Record{}
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) Get(c *gin.Context) {
	rec, err := h.Store.Get(c.Param("name"), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Create stores a new record and echoes it with generated id and timestamps.
func (h *Handler) Create(c *gin.Context) {
	var fields record.Record
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := h.Store.Create(c.Param("name"), fields, actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// Update applies merge-patch semantics: top-level keys override, the rest of
// the record survives.
func (h *Handler) Update(c *gin.Context) {
	var patch record.Record
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rec, err := h.Store.Update(c.Param("name"), c.Param("id"), patch, actorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.Store.Delete(c.Param("name"), c.Param("id"), actorFrom(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// AuditForRecord returns every audit event for the target id, oldest first.
func (h *Handler) AuditForRecord(c *gin.Context) {
	events, err := h.Audit.ForRecord(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, events)
}

// SeedReset clears the has-seeded flag and re-seeds unconditionally.
// Demo and test environments only; unreachable without the admin token.
func (h *Handler) SeedReset(c *gin.Context) {
	h.Seeder.Reset()
	if err := h.Seeder.EnsureSeedOnce(true); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reseeded"})
}

func (h *Handler) requireAdmin(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if h.AdminToken == "" || token != h.AdminToken {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
		return
	}
	c.Next()
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, record.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, record.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, portal.ErrSessionExpired), errors.Is(err, portal.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		h.Log.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// actorFrom identifies the staff caller for the audit trail. The surrounding
// system authenticates staff upstream and forwards the identity.
func actorFrom(c *gin.Context) string {
	if actor := c.GetHeader("X-Actor-Id"); actor != "" {
		return actor
	}
	return "system"
}

// queryPredicate turns query-string parameters into an in-memory equality
// predicate. Every parameter must match its record field stringwise.
func queryPredicate(c *gin.Context) record.Predicate {
	params := c.Request.URL.Query()
	if len(params) == 0 {
		return nil
	}
	return func(r record.Record) bool {
		for field, values := range params {
			if len(values) == 0 {
				continue
			}
			v, ok := r[field]
			if !ok || fmt.Sprint(v) != values[0] {
				return false
			}
		}
		return true
	}
}
