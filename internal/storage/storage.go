package storage

import (
	"errors"
	"log"

	"github.com/droplog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store 抽象追踪器使用的持久化键值存储。
// 实现必须容忍后端缺失：读取返回 absent，写入静默丢弃。
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// BlobStore 基于 sqlite 的 storage_blobs 表实现 Store。
// 写入为尽力而为：失败只记录日志，不向调用方传播。
type BlobStore struct {
	db *gorm.DB
}

// NewBlobStore 构造 BlobStore，gdb 允许为 nil（无存储环境）。
func NewBlobStore(gdb *gorm.DB) *BlobStore {
	return &BlobStore{db: gdb}
}

// Get 读取指定键的值，键不存在或后端缺失时返回 absent。
func (s *BlobStore) Get(key string) (string, bool) {
	if s.db == nil {
		return "", false
	}

	var blob db.StorageBlob
	if err := s.db.Where("key = ?", key).First(&blob).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("storage: get %s: %v", key, err)
		}
		return "", false
	}
	return blob.Value, true
}

// Set 写入指定键的值，已存在时覆盖。
func (s *BlobStore) Set(key, value string) {
	if s.db == nil {
		return
	}

	blob := db.StorageBlob{Key: key, Value: value}
	if err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
		}),
	}).Create(&blob).Error; err != nil {
		log.Printf("storage: set %s: %v", key, err)
	}
}

// Remove 删除指定键，键不存在时不报错。
func (s *BlobStore) Remove(key string) {
	if s.db == nil {
		return
	}

	if err := s.db.Unscoped().Where("key = ?", key).Delete(&db.StorageBlob{}).Error; err != nil {
		log.Printf("storage: remove %s: %v", key, err)
	}
}

// MemoryStore 是基于内存 map 的 Store 实现，用于测试与临时运行。
type MemoryStore struct {
	values map[string]string
}

// NewMemoryStore 构造空的 MemoryStore。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool) {
	value, ok := s.values[key]
	return value, ok
}

func (s *MemoryStore) Set(key, value string) {
	s.values[key] = value
}

func (s *MemoryStore) Remove(key string) {
	delete(s.values, key)
}
