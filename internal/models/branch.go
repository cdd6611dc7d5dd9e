package models

import "time"

type Branch struct {
	ID        uint   `gorm:"primaryKey"`
	Code      int    `gorm:"not null;uniqueIndex"` // basılı etiket kodlarında kullanılan şube numarası
	Name      string `gorm:"size:100;not null;unique"`
	Address   string `gorm:"size:255"`
	Phone     string `gorm:"size:50"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Users []User
}
