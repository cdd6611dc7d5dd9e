package activity

import (
	"fmt"

	"perakende-backend/internal/auth"
	"perakende-backend/internal/database"
	"perakende-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type ActivityLogResponse struct {
	ID            uint                  `json:"id"`
	CreatedAt     string                `json:"created_at"`
	BranchID      *uint                 `json:"branch_id"`
	UserID        uint                  `json:"user_id"`
	UserName      string                `json:"user_name"`
	EntityType    string                `json:"entity_type"`
	EntityID      uint                  `json:"entity_id"`
	Action        models.ActivityAction `json:"action"`
	Description   string                `json:"description"`
	CorrelationID string                `json:"correlation_id"`
}

// GET /api/activity-logs?entity_type=sale&entity_id=1&branch_id=1
func ListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := auth.ClaimsFrom(c)
		if err != nil {
			return err
		}

		var branchID *uint
		if claims.Role == models.RoleBranchAdmin {
			branchID = claims.BranchID
		} else if bidStr := c.Query("branch_id"); bidStr != "" {
			var bid uint
			if _, err := fmt.Sscan(bidStr, &bid); err == nil && bid > 0 {
				branchID = &bid
			}
		}

		dbq := database.DB.Model(&models.ActivityLog{})
		if branchID != nil {
			dbq = dbq.Where("branch_id = ?", *branchID)
		}
		if et := c.Query("entity_type"); et != "" {
			dbq = dbq.Where("entity_type = ?", et)
		}
		if eidStr := c.Query("entity_id"); eidStr != "" {
			var eid uint
			if _, err := fmt.Sscan(eidStr, &eid); err == nil && eid > 0 {
				dbq = dbq.Where("entity_id = ?", eid)
			}
		}
		if corr := c.Query("correlation_id"); corr != "" {
			dbq = dbq.Where("correlation_id = ?", corr)
		}

		limit := c.QueryInt("limit", 100)
		if limit < 1 || limit > 500 {
			limit = 100
		}
		offset := c.QueryInt("offset", 0)

		var logs []models.ActivityLog
		if err := dbq.Order("created_at DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kayıtlar getirilemedi")
		}

		resp := make([]ActivityLogResponse, 0, len(logs))
		for _, l := range logs {
			resp = append(resp, ActivityLogResponse{
				ID:            l.ID,
				CreatedAt:     l.CreatedAt.Format("2006-01-02 15:04:05"),
				BranchID:      l.BranchID,
				UserID:        l.UserID,
				UserName:      l.UserName,
				EntityType:    l.EntityType,
				EntityID:      l.EntityID,
				Action:        l.Action,
				Description:   l.Description,
				CorrelationID: l.CorrelationID,
			})
		}
		return c.JSON(resp)
	}
}
