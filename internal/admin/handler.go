package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/muhtarbag/fenomen-pet/internal/database"
	"github.com/muhtarbag/fenomen-pet/internal/logs"
	"github.com/muhtarbag/fenomen-pet/internal/store"
)

const dateLayout = "2006-01-02"

// counter accumulates COUNT(*) queries and keeps the first error.
type counter struct {
	err error
}

func (k *counter) count(table, where string, args ...interface{}) int64 {
	if k.err != nil {
		return 0
	}
	var n int64
	q := database.DB.Table(table)
	if where != "" {
		q = q.Where(where, args...)
	}
	k.err = q.Count(&n).Error
	return n
}

func parseRange(c *gin.Context) (time.Time, time.Time, bool) {
	startDate := time.Now().AddDate(0, 0, -30)
	endDate := time.Now()

	if s := c.Query("start_date"); s != "" {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date için geçersiz tarih biçimi"})
			return startDate, endDate, false
		}
		startDate = d
	}
	if s := c.Query("end_date"); s != "" {
		d, err := time.Parse(dateLayout, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date için geçersiz tarih biçimi"})
			return startDate, endDate, false
		}
		endDate = d
	}
	return startDate, endDate, true
}

// GetDashboardStats GET /api/admin/stats
func GetDashboardStats(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	startDate, endDate, ok := parseRange(c)
	if !ok {
		return
	}

	var k counter
	total := k.count(store.SubmissionsTable, "")
	pending := k.count(store.SubmissionsTable, "status IS NULL OR status = ?", store.StatusPending)
	approved := k.count(store.SubmissionsTable, "status = ?", store.StatusApproved)
	rejected := k.count(store.SubmissionsTable, "status = ?", store.StatusRejected)
	memberLikes := k.count(store.SubmissionLikesTable, "")
	anonymousLikes := k.count(store.AnonymousLikesTable, "")
	archived := k.count(store.RejectedSubmissionsTable, "")
	if k.err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "İstatistikler alınamadı"})
		logs.LogJSON("ERROR", "Error during stats retrieval", map[string]interface{}{
			"error":  k.err,
			"route":  route,
			"userID": userID,
		})
		return
	}

	stats := gin.H{
		"total_submissions":    total,
		"pending_submissions":  pending,
		"approved_submissions": approved,
		"rejected_submissions": rejected,
		"member_likes":         memberLikes,
		"anonymous_likes":      anonymousLikes,
		"rejection_archive":    archived,
		"date_range": gin.H{
			"start": startDate.Format(dateLayout),
			"end":   endDate.Format(dateLayout),
		},
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
	logs.LogJSON("INFO", "Admin stats retrieved successfully", map[string]interface{}{
		"route":  route,
		"userID": userID,
	})
}

// GetChartData GET /api/admin/charts/:type
func GetChartData(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")
	chartType := c.Param("type")

	startDate, endDate, ok := parseRange(c)
	if !ok {
		return
	}

	var (
		data []gin.H
		err  error
	)
	switch chartType {
	case "evolution":
		data, err = evolutionData(startDate, endDate)
	case "distribution":
		data, err = distributionData(startDate, endDate)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Desteklenmeyen grafik türü"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Grafik verisi alınamadı"})
		logs.LogJSON("ERROR", "Error during chart retrieval", map[string]interface{}{
			"error":     err,
			"route":     route,
			"chartType": chartType,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": data})
	logs.LogJSON("INFO", "Chart data retrieved successfully", map[string]interface{}{
		"route":     route,
		"userID":    userID,
		"chartType": chartType,
		"startDate": startDate.Format(dateLayout),
		"endDate":   endDate.Format(dateLayout),
	})
}

func evolutionData(startDate, endDate time.Time) ([]gin.H, error) {
	results := []gin.H{}
	var k counter

	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		dayStart := d
		dayEnd := d.AddDate(0, 0, 1)
		window := "created_at >= ? AND created_at < ?"

		submissions := k.count(store.SubmissionsTable, window, dayStart, dayEnd)
		memberLikes := k.count(store.SubmissionLikesTable, window, dayStart, dayEnd)
		anonymousLikes := k.count(store.AnonymousLikesTable, window, dayStart, dayEnd)
		if k.err != nil {
			return nil, k.err
		}

		results = append(results, gin.H{
			"date":            d.Format(dateLayout),
			"submissions":     submissions,
			"member_likes":    memberLikes,
			"anonymous_likes": anonymousLikes,
		})
	}
	return results, nil
}

func distributionData(startDate, endDate time.Time) ([]gin.H, error) {
	var k counter
	window := "created_at >= ? AND created_at <= ?"

	pending := k.count(store.SubmissionsTable, window+" AND (status IS NULL OR status = ?)", startDate, endDate, store.StatusPending)
	approved := k.count(store.SubmissionsTable, window+" AND status = ?", startDate, endDate, store.StatusApproved)
	rejected := k.count(store.SubmissionsTable, window+" AND status = ?", startDate, endDate, store.StatusRejected)
	if k.err != nil {
		return nil, k.err
	}

	return []gin.H{
		{"name": "İnceleniyor", "value": pending, "color": "#F59E0B"},
		{"name": "Onaylandı", "value": approved, "color": "#10B981"},
		{"name": "Reddedildi", "value": rejected, "color": "#EF4444"},
	}, nil
}

type topSubmission struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	ImageURL string `json:"image_url"`
	Likes    int64  `json:"likes"`
}

// GetTopSubmissions GET /api/admin/top-submissions
func GetTopSubmissions(c *gin.Context) {
	route := c.FullPath()
	userID := c.GetString("user_id")

	limit := 10
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var top []topSubmission
	err := database.DB.Table(store.SubmissionsTable).
		Select("id, username, image_url, COALESCE(likes, 0) AS likes").
		Where("status = ?", store.StatusApproved).
		Order("likes DESC").
		Limit(limit).
		Scan(&top).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Bir hata oluştu. Lütfen tekrar deneyin."})
		logs.LogJSON("ERROR", "Error during top submissions retrieval", map[string]interface{}{
			"error": err,
			"route": route,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"top_by_likes": top})
	logs.LogJSON("INFO", "Top submissions retrieved successfully", map[string]interface{}{
		"route":  route,
		"userID": userID,
		"limit":  limit,
	})
}
