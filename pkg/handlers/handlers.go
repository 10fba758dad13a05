package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civicworks/shiftsync/pkg/auth"
	"github.com/civicworks/shiftsync/pkg/database"
	"github.com/civicworks/shiftsync/pkg/models"
	"github.com/civicworks/shiftsync/pkg/store"
)

// ReconcileRunner runs one reconciliation pass.
type ReconcileRunner interface {
	Reconcile(ctx context.Context, futureOnly bool) (*models.RunStats, error)
}

// SyncRunner pulls fresh data from the upstream API.
type SyncRunner interface {
	SyncAll(ctx context.Context) error
}

// Handler contains dependencies for the route handlers
type Handler struct {
	DB         *gorm.DB
	Statuses   *store.StatusStore
	Meta       *store.MetadataStore
	Reconciler ReconcileRunner
	Syncer     SyncRunner
}

// AuthMiddleware verifies the JWT token for admin routes
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		// Strip "Bearer " if present
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := auth.VerifyToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("username", claims.Username)
		c.Next()
	}
}

// APIKeyMiddleware verifies the API key for query routes using HMAC
func (h *Handler) APIKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("Authorization")
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "API Key required"})
			c.Abort()
			return
		}

		if len(key) > 7 && key[:7] == "Bearer " {
			key = key[7:]
		}

		userID, err := auth.VerifyHMACKey(key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API Key signature"})
			c.Abort()
			return
		}

		// Fetch or create API key record to track usage
		var apiKey database.APIKey
		h.DB.Where(database.APIKey{Key: key}).FirstOrCreate(&apiKey, database.APIKey{
			Key:       key,
			Name:      userID,
			RateLimit: 10000,
		})

		c.Set("apiKey", &apiKey)
		c.Set("userID", userID)
		c.Next()
	}
}

// Health reports service liveness and database reachability
func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.DB.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListShifts returns shift statuses filtered by need, checkin status and
// start window
func (h *Handler) ListShifts(c *gin.Context) {
	q := store.Query{
		CheckinStatus: c.Query("status"),
	}
	if v := c.Query("need_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid need_id"})
			return
		}
		q.NeedID = id
	}
	if v := c.Query("from"); v != "" {
		t, err := parseQueryTime(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from time"})
			return
		}
		q.From = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := parseQueryTime(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to time"})
			return
		}
		q.To = &t
	}
	if v := c.Query("limit"); v != "" {
		q.Limit, _ = strconv.Atoi(v)
	}

	shifts, err := h.Statuses.Search(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch shifts"})
		return
	}

	h.RecordUsage(c, len(shifts))
	c.JSON(http.StatusOK, gin.H{"count": len(shifts), "shifts": shifts})
}

// TodayShifts returns shift statuses starting today
func (h *Handler) TodayShifts(c *gin.Context) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	shifts, err := h.Statuses.Search(c.Request.Context(), store.Query{From: &from, To: &to, Limit: 1000})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch shifts"})
		return
	}

	h.RecordUsage(c, len(shifts))
	c.JSON(http.StatusOK, gin.H{"count": len(shifts), "shifts": shifts})
}

// GetShift returns one shift status by id
func (h *Handler) GetShift(c *gin.Context) {
	shift, err := h.Statuses.Get(c.Request.Context(), c.Param("id"))
	if err == store.ErrNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "Shift not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch shift"})
		return
	}

	h.RecordUsage(c, 1)
	c.JSON(http.StatusOK, shift)
}

// PendingCheckout lists volunteers who checked in but never checked out
func (h *Handler) PendingCheckout(c *gin.Context) {
	shifts, err := h.Statuses.Search(c.Request.Context(), store.Query{
		CheckinStatus: models.CheckinPending,
		Limit:         1000,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch shifts"})
		return
	}

	type pendingUser struct {
		ShiftID    string           `json:"shift_id"`
		ShiftTitle string           `json:"shift_title"`
		User       models.ShiftUser `json:"user"`
	}

	var pending []pendingUser
	for i := range shifts {
		for _, u := range shifts[i].Users {
			if u.CheckinStatus == models.CheckinPending && u.HasCheckin && !u.HasCheckout {
				pending = append(pending, pendingUser{
					ShiftID:    shifts[i].ID,
					ShiftTitle: shifts[i].Title,
					User:       u,
				})
			}
		}
	}

	h.RecordUsage(c, len(pending))
	c.JSON(http.StatusOK, gin.H{"count": len(pending), "users": pending})
}

// LastSync returns the recorded sync times for every upstream resource
func (h *Handler) LastSync(c *gin.Context) {
	metas, err := h.Meta.All(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not fetch metadata"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resources": metas})
}

// TriggerReconcile runs one reconciliation pass and returns its stats
func (h *Handler) TriggerReconcile(c *gin.Context) {
	futureOnly := c.Query("future_only") == "true"

	stats, err := h.Reconciler.Reconcile(c.Request.Context(), futureOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TriggerSync pulls fresh data from the upstream API
func (h *Handler) TriggerSync(c *gin.Context) {
	if h.Syncer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Upstream sync not configured"})
		return
	}
	if err := h.Syncer.SyncAll(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Sync complete"})
}

// RecordUsage records API usage in the database using an efficient upsert
func (h *Handler) RecordUsage(c *gin.Context, shiftCount int) {
	apiKeyRaw, exists := c.Get("apiKey")
	if !exists {
		return
	}
	apiKey := apiKeyRaw.(*database.APIKey)

	today := time.Now().Format("2006-01-02")

	// Use OnConflict for a single-query upsert (supported by both Postgres and SQLite)
	h.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"request_count": gorm.Expr("request_count + ?", 1),
			"shifts_served": gorm.Expr("shifts_served + ?", shiftCount),
		}),
	}).Create(&database.APIUsage{
		KeyID:        apiKey.ID,
		Date:         today,
		RequestCount: 1,
		ShiftsServed: shiftCount,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}
