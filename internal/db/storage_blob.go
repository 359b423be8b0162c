package db

import "gorm.io/gorm"

// StorageBlob 以字符串键值对的形式存放追踪器的持久化数据。
type StorageBlob struct {
	gorm.Model
	Key   string `gorm:"size:100;uniqueIndex;not null"`
	Value string `gorm:"type:text"`
}

// TableName 自定义表名以保持命名一致。
func (StorageBlob) TableName() string {
	return "storage_blobs"
}

const (
	// StorageKeyDailyTarget 表示每日目标饮水量（毫升，字符串化整数）。
	StorageKeyDailyTarget = "waterTarget"
	// StorageKeyCupSizes 表示杯量预设列表（JSON）。
	StorageKeyCupSizes = "cupSizes"
	// StorageKeyHistory 表示按日聚合的饮水历史（JSON）。
	StorageKeyHistory = "waterHistory"
)
