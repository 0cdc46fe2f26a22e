package db

import "time"

// Document 以键值形式保存一份 JSON 文档，是 SQLite 后端的唯一数据表。
// Key 形如 users/<id>/habits，整组集合作为一个文档读写。
type Document struct {
	Key       string `gorm:"primaryKey;size:255"`
	Value     []byte `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName 固定表名
func (Document) TableName() string {
	return "documents"
}
