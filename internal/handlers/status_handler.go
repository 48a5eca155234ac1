package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GetWishedUsers handles GET /api/wished
// Returns the ledger size and the most recently wished users.
func (h *Handlers) GetWishedUsers(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "25")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 {
		limit = 25
	}
	if limit > 100 {
		limit = 100
	}

	count, err := h.wishes.WishedCount()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count wished users"})
		return
	}
	recent, err := h.wishes.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list wished users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  count,
		"recent": recent,
	})
}

// GetSubreddits handles GET /api/subreddits
// Returns every tracked subreddit with its scan cursor.
func (h *Handlers) GetSubreddits(c *gin.Context) {
	subs, err := h.subs.States()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list subreddits"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"subreddits": subs,
		"count":      len(subs),
	})
}

// GetMetrics handles GET /api/metrics and GET /api/metrics?name=...&since=1h
// Without a name it lists known series; with one it returns the windowed
// samples and their average.
func (h *Handlers) GetMetrics(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusOK, gin.H{"series": h.metrics.Names()})
		return
	}

	window := time.Hour
	if sinceStr := c.Query("since"); sinceStr != "" {
		d, err := time.ParseDuration(sinceStr)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since duration"})
			return
		}
		window = d
	}

	since := time.Now().Add(-window)
	samples := h.metrics.Window(name, since)
	avg, _ := h.metrics.Average(name, since)
	c.JSON(http.StatusOK, gin.H{
		"name":    name,
		"samples": samples,
		"average": avg,
	})
}

// TriggerScan handles POST /api/scan/:subreddit
// Queues an out-of-schedule scan for one subreddit.
func (h *Handlers) TriggerScan(c *gin.Context) {
	if h.trigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Scan triggering is not enabled"})
		return
	}
	name := c.Param("subreddit")

	select {
	case h.trigger <- name:
		c.JSON(http.StatusAccepted, gin.H{"message": "Scan queued", "subreddit": name})
	default:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "A scan is already queued"})
	}
}
