package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"docuchat/pkg/domain"
)

const migrateLockID int64 = 82118211

const defaultEmbeddingDim = 1536

type GormStoreOptions struct {
	EmbeddingDim int
}

type GormStoreOption func(*GormStoreOptions)

// WithEmbeddingDim sets the canonical embedding dimension used by storage.
func WithEmbeddingDim(dim int) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.EmbeddingDim = dim
	}
}

// GormStore implements Store using GORM + Postgres with pgvector columns.
type GormStore struct {
	db           *gorm.DB
	embeddingDim int
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string, options ...GormStoreOption) (*GormStore, error) {
	opts := GormStoreOptions{}
	for _, option := range options {
		if option != nil {
			option(&opts)
		}
	}
	embeddingDim := opts.EmbeddingDim
	if embeddingDim <= 0 {
		embeddingDim = defaultEmbeddingDim
	}

	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("create pgvector extension: %w", err)
		}
		if err := tx.AutoMigrate(&DocumentModel{}, &ChunkModel{}, &SummaryModel{}, &MessageModel{}); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(fmt.Sprintf(`
			DO $$
			BEGIN
			IF EXISTS (
				SELECT 1 FROM information_schema.columns
				WHERE table_name = 'chunk_models' AND column_name = 'embedding'
			) THEN
				ALTER TABLE chunk_models ALTER COLUMN embedding TYPE vector(%d);
			END IF;
			END $$;
		`, embeddingDim)).Error; err != nil {
			return fmt.Errorf("alter chunk embedding type: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db, embeddingDim: embeddingDim}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// SaveDocument upserts the document reference for its (owner, filename) scope.
func (s *GormStore) SaveDocument(ctx context.Context, doc domain.Document) error {
	model := documentToModel(doc)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_email"}, {Name: "filename"}},
		DoUpdates: clause.AssignmentColumns([]string{"file_url", "token_count", "size_bytes", "updated_at"}),
	}).Create(&model).Error
}

// GetDocument retrieves a document reference by scope.
func (s *GormStore) GetDocument(ctx context.Context, owner, filename string) (domain.Document, bool, error) {
	var model DocumentModel
	err := s.db.WithContext(ctx).
		Where("owner_email = ? AND filename = ?", owner, filename).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Document{}, false, nil
		}
		return domain.Document{}, false, err
	}
	return documentFromModel(model), true, nil
}

// ListDocuments returns an owner's documents ordered by upload time.
func (s *GormStore) ListDocuments(ctx context.Context, owner string) ([]domain.Document, error) {
	var models []DocumentModel
	if err := s.db.WithContext(ctx).
		Where("owner_email = ?", owner).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(models))
	for _, model := range models {
		docs = append(docs, documentFromModel(model))
	}
	return docs, nil
}

// AppendSummary adds a summary to the scope's history.
func (s *GormStore) AppendSummary(ctx context.Context, summary domain.Summary) error {
	model := summaryToModel(summary)
	return s.db.WithContext(ctx).Create(&model).Error
}

// ListSummaries returns the scope's summary history, oldest first.
func (s *GormStore) ListSummaries(ctx context.Context, owner, filename string) ([]domain.Summary, error) {
	var models []SummaryModel
	if err := s.db.WithContext(ctx).
		Where("owner_email = ? AND filename = ?", owner, filename).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	summaries := make([]domain.Summary, 0, len(models))
	for _, model := range models {
		summaries = append(summaries, summaryFromModel(model))
	}
	return summaries, nil
}

// ReplaceChunks swaps the full chunk set for a scope in one transaction.
func (s *GormStore) ReplaceChunks(ctx context.Context, owner, filename string, chunks []domain.Chunk) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ChunkModel{}, "owner_email = ? AND filename = ?", owner, filename).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		models := make([]ChunkModel, 0, len(chunks))
		for _, chunk := range chunks {
			if s.embeddingDim > 0 && len(chunk.Embedding) != s.embeddingDim {
				return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(chunk.Embedding), s.embeddingDim)
			}
			model := chunkToModel(chunk)
			model.OwnerEmail = owner
			model.Filename = filename
			models = append(models, model)
		}
		return tx.CreateInBatches(&models, 200).Error
	})
}

// QueryScope returns all chunks for the exact scope in insertion order.
func (s *GormStore) QueryScope(ctx context.Context, owner, filename string) ([]domain.Chunk, error) {
	var models []ChunkModel
	if err := s.db.WithContext(ctx).
		Where("owner_email = ? AND filename = ?", owner, filename).
		Order("seq ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, 0, len(models))
	for _, model := range models {
		chunks = append(chunks, chunkFromModel(model))
	}
	return chunks, nil
}

// AppendMessages records turns in order as one transaction, so a pair is
// stored whole or not at all.
func (s *GormStore) AppendMessages(ctx context.Context, msgs []domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, msg := range msgs {
			model := messageToModel(msg)
			if err := tx.Create(&model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ListMessages returns the last limit turns in chronological order.
func (s *GormStore) ListMessages(ctx context.Context, owner, filename string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return []domain.Message{}, nil
	}
	var models []MessageModel
	if err := s.db.WithContext(ctx).
		Where("owner_email = ? AND filename = ?", owner, filename).
		Order("seq DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	msgs := make([]domain.Message, 0, len(models))
	for i := len(models) - 1; i >= 0; i-- {
		msgs = append(msgs, messageFromModel(models[i]))
	}
	return msgs, nil
}

func documentToModel(doc domain.Document) DocumentModel {
	return DocumentModel{
		ID:         doc.Owner + "/" + doc.Filename,
		OwnerEmail: doc.Owner,
		Filename:   doc.Filename,
		FileURL:    doc.FileURL,
		TokenCount: doc.TokenCount,
		SizeBytes:  doc.SizeBytes,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

func documentFromModel(m DocumentModel) domain.Document {
	return domain.Document{
		Owner:      m.OwnerEmail,
		Filename:   m.Filename,
		FileURL:    m.FileURL,
		TokenCount: m.TokenCount,
		SizeBytes:  m.SizeBytes,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func summaryToModel(s domain.Summary) SummaryModel {
	return SummaryModel{
		ID:         s.ID,
		OwnerEmail: s.Owner,
		Filename:   s.Filename,
		Content:    s.Content,
		UsedRAG:    s.UsedRAG,
		CreatedAt:  s.CreatedAt,
	}
}

func summaryFromModel(m SummaryModel) domain.Summary {
	return domain.Summary{
		ID:        m.ID,
		Owner:     m.OwnerEmail,
		Filename:  m.Filename,
		Content:   m.Content,
		UsedRAG:   m.UsedRAG,
		CreatedAt: m.CreatedAt,
	}
}

func chunkToModel(chunk domain.Chunk) ChunkModel {
	meta, _ := json.Marshal(chunk.Metadata)
	model := ChunkModel{
		ID:         chunk.ID,
		OwnerEmail: chunk.Owner,
		Filename:   chunk.Filename,
		Seq:        chunk.Seq,
		Content:    chunk.Content,
		Metadata:   meta,
		CreatedAt:  chunk.CreatedAt,
	}
	if len(chunk.Embedding) > 0 {
		vec := pgvector.NewVector(chunk.Embedding)
		model.Embedding = &vec
	}
	return model
}

func chunkFromModel(model ChunkModel) domain.Chunk {
	var meta map[string]string
	if len(model.Metadata) > 0 {
		_ = json.Unmarshal(model.Metadata, &meta)
	}
	chunk := domain.Chunk{
		ID:        model.ID,
		Owner:     model.OwnerEmail,
		Filename:  model.Filename,
		Seq:       model.Seq,
		Content:   model.Content,
		Metadata:  meta,
		CreatedAt: model.CreatedAt,
	}
	if model.Embedding != nil {
		chunk.Embedding = model.Embedding.Slice()
	}
	return chunk
}

func messageToModel(msg domain.Message) MessageModel {
	return MessageModel{
		ID:         msg.ID,
		OwnerEmail: msg.Owner,
		Filename:   msg.Filename,
		Role:       msg.Role,
		Content:    msg.Content,
		CreatedAt:  msg.CreatedAt,
	}
}

func messageFromModel(m MessageModel) domain.Message {
	return domain.Message{
		ID:        m.ID,
		Owner:     m.OwnerEmail,
		Filename:  m.Filename,
		Role:      m.Role,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}
