package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wealthos-dev/wealthos-store/internal/portal"
	"github.com/wealthos-dev/wealthos-store/pkg/record"
	"github.com/wealthos-dev/wealthos-store/pkg/schema"
)

const portalUserKey = "portalUser"

// PortalLogin exchanges an email/PIN pair for a session access token.
func (h *Handler) PortalLogin(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required"`
		Pin   string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, user, err := h.Sessions.Login(input.Email, input.Pin)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":       token,
		"displayName": user.DisplayName,
		"language":    user.LanguageDefaultKey,
	})
}

// PortalLogout destroys the session behind the presented token.
func (h *Handler) PortalLogout(c *gin.Context) {
	if err := h.Sessions.Logout(bearerToken(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

// requirePortalUser authenticates the token and stashes the portal user for
// the handlers behind it. Fails closed on any authentication problem.
func (h *Handler) requirePortalUser(c *gin.Context) {
	user, err := h.Sessions.Authenticate(bearerToken(c))
	if err != nil {
		status := http.StatusUnauthorized
		c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
		return
	}
	c.Set(portalUserKey, user)
	c.Next()
}

// PortalList lists a collection through the access filter. Scope comes from
// the authenticated user, never from the request; the query string may only
// tighten visibility (shared=true, published=true).
func (h *Handler) PortalList(c *gin.Context) {
	user := c.MustGet(portalUserKey).(schema.PortalUser)

	records, err := h.Store.List(c.Param("name"), nil)
	if err != nil {
		h.fail(c, err)
		return
	}

	out := h.clientSafe(records, user, c)
	if out == nil {
		out = []record.Record{}
	}
	c.JSON(http.StatusOK, out)
}

// PortalGet returns one record if and only if it survives the access filter.
// A record that exists but is out of scope is indistinguishable from one
// that does not exist.
func (h *Handler) PortalGet(c *gin.Context) {
	user := c.MustGet(portalUserKey).(schema.PortalUser)

	rec, err := h.Store.Get(c.Param("name"), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}

	out := h.clientSafe([]record.Record{rec}, user, c)
	if len(out) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}
	c.JSON(http.StatusOK, out[0])
}

// clientSafe runs the full boundary contract: scope filter first, then the
// internal-field denylist on every surviving record.
func (h *Handler) clientSafe(records []record.Record, user schema.PortalUser, c *gin.Context) []record.Record {
	filter := portal.ClientSafeFilter{
		SharedToPortal: c.Query("shared") == "true",
		Published:      c.Query("published") == "true",
		HouseholdID:    user.HouseholdID,
		ClientID:       user.ClientID,
	}

	var out []record.Record
	for _, r := range portal.EnforceClientSafe(records, filter) {
		out = append(out, portal.StripInternalFields(r))
	}
	return out
}

func bearerToken(c *gin.Context) string {
	return strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
}
