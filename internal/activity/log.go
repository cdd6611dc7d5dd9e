// Package activity: mutasyonların izleme kaydı. Yazım fire-and-forget'tir;
// log yazılamazsa asıl işlem etkilenmez, sadece loglanır.
package activity

import (
	"encoding/json"

	"perakende-backend/internal/database"
	"perakende-backend/internal/models"

	"github.com/sirupsen/logrus"
)

type LogOptions struct {
	BranchID      *uint
	UserID        uint
	UserName      string
	EntityType    string
	EntityID      uint
	Action        models.ActivityAction
	Description   string
	CorrelationID string
	Before        any
	After         any
}

func Log(opts LogOptions) {
	// jsonb kolonu için boş string yerine "null"
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.ActivityLog{
		BranchID:      opts.BranchID,
		UserID:        opts.UserID,
		UserName:      opts.UserName,
		EntityType:    opts.EntityType,
		EntityID:      opts.EntityID,
		Action:        opts.Action,
		Description:   opts.Description,
		CorrelationID: opts.CorrelationID,
		BeforeData:    beforeStr,
		AfterData:     afterStr,
	}

	if err := database.DB.Create(&entry).Error; err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"entity_type": opts.EntityType,
			"entity_id":   opts.EntityID,
		}).Warn("Aktivite kaydı yazılamadı")
	}
}
