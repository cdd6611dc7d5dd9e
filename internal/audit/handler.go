package audit

import (
	"fmt"

	"perakende-backend/internal/activity"
	"perakende-backend/internal/auth"
	"perakende-backend/internal/database"
	"perakende-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type SessionResponse struct {
	ID            uint    `json:"id"`
	BranchID      uint    `json:"branch_id"`
	Mode          string  `json:"mode"`
	Status        string  `json:"status"`
	ExpectedCount int     `json:"expected_count"`
	ScannedCount  int     `json:"scanned_count"`
	MissingCount  int     `json:"missing_count"`
	StartedAt     string  `json:"started_at"`
	ConfirmedAt   *string `json:"confirmed_at"`
	CancelledAt   *string `json:"cancelled_at"`
}

func toSessionResponse(s *models.CountSession) SessionResponse {
	resp := SessionResponse{
		ID:            s.ID,
		BranchID:      s.BranchID,
		Mode:          string(s.Mode),
		Status:        string(s.Status),
		ExpectedCount: s.ExpectedCount,
		ScannedCount:  s.ScannedCount,
		MissingCount:  s.ExpectedCount - s.ScannedCount,
		StartedAt:     s.StartedAt.Format("2006-01-02 15:04:05"),
	}
	if s.ConfirmedAt != nil {
		t := s.ConfirmedAt.Format("2006-01-02 15:04:05")
		resp.ConfirmedAt = &t
	}
	if s.CancelledAt != nil {
		t := s.CancelledAt.Format("2006-01-02 15:04:05")
		resp.CancelledAt = &t
	}
	return resp
}

type StartSessionRequest struct {
	BranchID *uint `json:"branch_id"`
}

// POST /api/count-sessions
func StartSessionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body StartSessionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		branchID, err := auth.ResolveBranchIDFromBody(c, body.BranchID)
		if err != nil {
			return err
		}
		userID, userName, _, err := auth.UserInfo(c)
		if err != nil {
			return err
		}

		session, err := StartSession(database.DB, branchID, userID)
		if err != nil {
			return err
		}

		activity.Log(activity.LogOptions{
			BranchID:    &branchID,
			UserID:      userID,
			UserName:    userName,
			EntityType:  "count_session",
			EntityID:    session.ID,
			Action:      models.ActivityCreate,
			Description: fmt.Sprintf("Sayım başlatıldı, beklenen %d ürün", session.ExpectedCount),
			After:       session,
		})

		return c.Status(fiber.StatusCreated).JSON(toSessionResponse(session))
	}
}

type ScanRequest struct {
	Code     string `json:"code"`
	SerialNo string `json:"serial_no"`
}

// POST /api/count-sessions/:id/scan
func ScanHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID, err := c.ParamsInt("id")
		if err != nil || sessionID < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz oturum id")
		}

		var body ScanRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}
		userID, _, _, err := auth.UserInfo(c)
		if err != nil {
			return err
		}

		item, err := Scan(database.DB, uint(sessionID), branchID, userID, body.Code, body.SerialNo)
		if err != nil {
			return err
		}

		return c.JSON(fiber.Map{
			"snapshot_item_id": item.ID,
			"code":             item.Code,
			"scanned_at":       item.ScannedAt.Format("2006-01-02 15:04:05"),
		})
	}
}

type ConfirmRequest struct {
	Strategy string `json:"strategy"` // mark-lost / mark-pending (varsayılan)
}

// POST /api/count-sessions/:id/confirm
func ConfirmHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID, err := c.ParamsInt("id")
		if err != nil || sessionID < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz oturum id")
		}

		var body ConfirmRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		session, err := Confirm(database.DB, uint(sessionID), branchID, body.Strategy)
		if err != nil {
			return err
		}

		if userID, userName, _, uerr := auth.UserInfo(c); uerr == nil {
			activity.Log(activity.LogOptions{
				BranchID:    &branchID,
				UserID:      userID,
				UserName:    userName,
				EntityType:  "count_session",
				EntityID:    session.ID,
				Action:      models.ActivityUpdate,
				Description: fmt.Sprintf("Sayım onaylandı: %d/%d okutuldu", session.ScannedCount, session.ExpectedCount),
				After:       session,
			})
		}

		return c.JSON(toSessionResponse(session))
	}
}

// POST /api/count-sessions/:id/cancel
func CancelHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID, err := c.ParamsInt("id")
		if err != nil || sessionID < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz oturum id")
		}

		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		session, err := Cancel(database.DB, uint(sessionID), branchID)
		if err != nil {
			return err
		}

		if userID, userName, _, uerr := auth.UserInfo(c); uerr == nil {
			activity.Log(activity.LogOptions{
				BranchID:    &branchID,
				UserID:      userID,
				UserName:    userName,
				EntityType:  "count_session",
				EntityID:    session.ID,
				Action:      models.ActivityUpdate,
				Description: "Sayım iptal edildi",
				After:       session,
			})
		}

		return c.JSON(toSessionResponse(session))
	}
}

// GET /api/count-sessions/:id
func OverviewHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID, err := c.ParamsInt("id")
		if err != nil || sessionID < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz oturum id")
		}

		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		ov, err := Overview(database.DB, uint(sessionID), branchID)
		if err != nil {
			return err
		}
		return c.JSON(toSessionResponse(ov.Session))
	}
}

type SnapshotItemResponse struct {
	ID          uint    `json:"id"`
	Code        string  `json:"code"`
	SerialNo    *string `json:"serial_no"`
	ProductName string  `json:"product_name"`
	Scanned     bool    `json:"scanned"`
	ScannedAt   *string `json:"scanned_at"`
}

// GET /api/count-sessions/:id/items?scanned=false&q=ABC
func ListItemsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionID, err := c.ParamsInt("id")
		if err != nil || sessionID < 1 {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz oturum id")
		}

		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		filter := ListItemsFilter{
			Query:  c.Query("q"),
			Limit:  c.QueryInt("limit", 100),
			Offset: c.QueryInt("offset", 0),
		}
		if sc := c.Query("scanned"); sc != "" {
			v := sc == "true" || sc == "1"
			filter.Scanned = &v
		}

		items, total, err := ListItems(database.DB, uint(sessionID), branchID, filter)
		if err != nil {
			return err
		}

		resp := make([]SnapshotItemResponse, 0, len(items))
		for _, it := range items {
			r := SnapshotItemResponse{
				ID:          it.ID,
				Code:        it.Code,
				SerialNo:    it.SerialNo,
				ProductName: it.ProductName,
				Scanned:     it.Scanned,
			}
			if it.ScannedAt != nil {
				t := it.ScannedAt.Format("2006-01-02 15:04:05")
				r.ScannedAt = &t
			}
			resp = append(resp, r)
		}
		return c.JSON(fiber.Map{"total": total, "items": resp})
	}
}

// GET /api/count-sessions?status=draft
func ListSessionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := auth.ResolveBranchIDFromQuery(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.CountSession{}).Where("branch_id = ?", branchID)
		if st := c.Query("status"); st != "" {
			dbq = dbq.Where("status = ?", st)
		}

		var sessions []models.CountSession
		if err := dbq.Order("started_at DESC").Limit(100).Find(&sessions).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Oturumlar getirilemedi")
		}

		resp := make([]SessionResponse, 0, len(sessions))
		for i := range sessions {
			resp = append(resp, toSessionResponse(&sessions[i]))
		}
		return c.JSON(resp)
	}
}
