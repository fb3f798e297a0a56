package models

import (
	"time"

	"github.com/google/uuid"
)

// SnapshotRow is embedded by every row that belongs to a snapshot
type SnapshotRow struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	SnapshotID uuid.UUID `gorm:"type:varchar(36);not null;index"`
	Position   int       `gorm:"not null"`
}

// SnapshotModel is the header row of a persisted warehouse
type SnapshotModel struct {
	ID                uuid.UUID `gorm:"type:varchar(36);primaryKey" json:"id"`
	Digest            string    `gorm:"type:varchar(64);not null;index" json:"digest"`
	Source            string    `gorm:"type:varchar(1024);not null" json:"source"`
	Partners          int       `gorm:"not null;default:0" json:"partners"`
	SimpleProducts    int       `gorm:"not null;default:0" json:"simple_products"`
	AggregateProducts int       `gorm:"not null;default:0" json:"aggregate_products"`
	Batches           int       `gorm:"not null;default:0" json:"batches"`
	CreatedAt         time.Time `gorm:"not null;index" json:"created_at"`
}

// TableName returns the table name for GORM
func (SnapshotModel) TableName() string {
	return "snapshots"
}

// All returns every model the snapshot store migrates
func All() []any {
	return []any{
		&SnapshotModel{},
		&PartnerModel{},
		&ProductModel{},
		&ComponentModel{},
		&BatchModel{},
	}
}
