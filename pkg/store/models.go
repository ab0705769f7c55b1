package store

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// GORM models used for persistence.
type DocumentModel struct {
	ID         string `gorm:"primaryKey"`
	OwnerEmail string `gorm:"not null;uniqueIndex:idx_documents_scope,priority:1"`
	Filename   string `gorm:"not null;uniqueIndex:idx_documents_scope,priority:2"`
	FileURL    string
	TokenCount int       `gorm:"not null"`
	SizeBytes  int64     `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

type ChunkModel struct {
	ID         string `gorm:"primaryKey"`
	OwnerEmail string `gorm:"not null;index:idx_chunks_scope,priority:1"`
	Filename   string `gorm:"not null;index:idx_chunks_scope,priority:2"`
	Seq        int    `gorm:"not null"`
	Content    string `gorm:"type:text;not null"`
	Metadata   datatypes.JSON `gorm:"type:jsonb"`
	Embedding  *pgvector.Vector `gorm:"type:vector(1536)"`
	CreatedAt  time.Time `gorm:"not null"`
}

type SummaryModel struct {
	ID         string `gorm:"primaryKey"`
	OwnerEmail string `gorm:"not null;index:idx_summaries_scope,priority:1"`
	Filename   string `gorm:"not null;index:idx_summaries_scope,priority:2"`
	Content    string `gorm:"type:text;not null"`
	UsedRAG    bool   `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

type MessageModel struct {
	ID         string `gorm:"primaryKey"`
	// Seq gives a total append order per table; created-at alone cannot
	// order the two turns of one exchange.
	Seq        int64  `gorm:"autoIncrement;uniqueIndex"`
	OwnerEmail string `gorm:"not null;index:idx_messages_scope,priority:1"`
	Filename   string `gorm:"not null;index:idx_messages_scope,priority:2"`
	Role       string `gorm:"not null"`
	Content    string `gorm:"type:text;not null"`
	CreatedAt  time.Time `gorm:"not null;index"`
}
