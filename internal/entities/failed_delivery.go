package entities

import "time"

type FailedDelivery struct {
	ID        uint `gorm:"primaryKey"`
	JobID     string
	Subject   string
	Payload   string
	Reason    string
	Attempts  int `gorm:"default:1"`
	CreatedAt time.Time
}
