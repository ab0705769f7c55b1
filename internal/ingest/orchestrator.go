// Package ingest runs the document upload pipeline: store the original
// file, extract text, chunk, embed, persist, and summarize.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"docuchat/internal/chunk"
	"docuchat/internal/events"
	"docuchat/internal/extract"
	"docuchat/internal/retrieval"
	"docuchat/internal/summarize"
	"docuchat/internal/util"
	"docuchat/pkg/ai"
	"docuchat/pkg/domain"
	"docuchat/pkg/store"
	"docuchat/pkg/storage"
)

const (
	// DefaultRAGTokenThreshold routes summarization: below it the whole
	// document goes to the model, at or above it the summary is built from
	// retrieved chunks only.
	DefaultRAGTokenThreshold = 100000

	// minExtractedChars triggers the OCR fallback; minUsableChars below
	// that means the document carries no text worth indexing.
	minExtractedChars = 50
	minUsableChars    = 20

	// embedWorkers bounds concurrent embedding calls per ingest.
	embedWorkers = 4

	summaryQuery = "Summarize the main key points of this document."

	noReadableTextMessage = "File uploaded but no readable text could be extracted"
)

// TokenCounter reports how many model tokens a text occupies.
type TokenCounter interface {
	Count(text string) int
}

// Orchestrator wires the ingest pipeline stages together.
type Orchestrator struct {
	store        store.Store
	objects      storage.ObjectStore
	extractor    *extract.Extractor
	ocr          *extract.OCR
	counter      TokenCounter
	embedder     ai.Embedder
	retriever    *retrieval.Retriever
	summarizer   *summarize.Summarizer
	publisher    events.Publisher
	chunkWords   int
	topK         int
	ragThreshold int
}

// Config wires Orchestrator dependencies. OCR and Publisher are optional;
// zero ChunkMaxWords, TopK, and RAGTokenThreshold select defaults.
type Config struct {
	Store             store.Store
	Objects           storage.ObjectStore
	Extractor         *extract.Extractor
	OCR               *extract.OCR
	Counter           TokenCounter
	Embedder          ai.Embedder
	Retriever         *retrieval.Retriever
	Summarizer        *summarize.Summarizer
	Publisher         events.Publisher
	ChunkMaxWords     int
	TopK              int
	RAGTokenThreshold int
}

func NewOrchestrator(cfg Config) *Orchestrator {
	chunkWords := cfg.ChunkMaxWords
	if chunkWords <= 0 {
		chunkWords = chunk.DefaultMaxWords
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	ragThreshold := cfg.RAGTokenThreshold
	if ragThreshold <= 0 {
		ragThreshold = DefaultRAGTokenThreshold
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Orchestrator{
		store:        cfg.Store,
		objects:      cfg.Objects,
		extractor:    cfg.Extractor,
		ocr:          cfg.OCR,
		counter:      cfg.Counter,
		embedder:     cfg.Embedder,
		retriever:    cfg.Retriever,
		summarizer:   cfg.Summarizer,
		publisher:    publisher,
		chunkWords:   chunkWords,
		topK:         topK,
		ragThreshold: ragThreshold,
	}
}

// Ingest processes one uploaded file already written to path. Re-uploading
// a filename for the same owner replaces its chunks and refreshes the
// document reference; summaries accumulate as history.
func (o *Orchestrator) Ingest(ctx context.Context, owner, path, filename string) (domain.IngestResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("stat upload: %w", err)
	}

	fileURL, err := o.storeOriginal(ctx, owner, path, filename, info.Size())
	if err != nil {
		return domain.IngestResult{}, err
	}

	text, err := o.extractText(ctx, path, filename)
	if err != nil {
		return domain.IngestResult{}, err
	}

	now := time.Now().UTC()
	if len(strings.TrimSpace(text)) < minUsableChars {
		doc := domain.Document{
			Owner:      owner,
			Filename:   filename,
			FileURL:    fileURL,
			TokenCount: 0,
			SizeBytes:  info.Size(),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := o.store.SaveDocument(ctx, doc); err != nil {
			return domain.IngestResult{}, fmt.Errorf("save document: %w", err)
		}
		slog.Info("ingest finished without text", "owner", owner, "filename", filename)
		return domain.IngestResult{
			Message:    noReadableTextMessage,
			TokenCount: 0,
			FileURL:    fileURL,
		}, nil
	}

	tokenCount := o.counter.Count(text)

	chunks, err := o.embedChunks(ctx, owner, filename, chunk.Split(text, o.chunkWords), now)
	if err != nil {
		return domain.IngestResult{}, err
	}
	if err := o.store.ReplaceChunks(ctx, owner, filename, chunks); err != nil {
		return domain.IngestResult{}, fmt.Errorf("store chunks: %w", err)
	}

	summaryText, usedRAG, err := o.summarize(ctx, owner, filename, text, tokenCount)
	if err != nil {
		return domain.IngestResult{}, err
	}
	summary := domain.Summary{
		ID:        util.NewID(),
		Owner:     owner,
		Filename:  filename,
		Content:   summaryText,
		UsedRAG:   usedRAG,
		CreatedAt: now,
	}
	if err := o.store.AppendSummary(ctx, summary); err != nil {
		return domain.IngestResult{}, fmt.Errorf("save summary: %w", err)
	}

	doc := domain.Document{
		Owner:      owner,
		Filename:   filename,
		FileURL:    fileURL,
		TokenCount: tokenCount,
		SizeBytes:  info.Size(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := o.store.SaveDocument(ctx, doc); err != nil {
		return domain.IngestResult{}, fmt.Errorf("save document: %w", err)
	}

	if err := o.publisher.PublishDocumentIngested(ctx, events.DocumentIngested{
		Owner:      owner,
		Filename:   filename,
		TokenCount: tokenCount,
		UsedRAG:    usedRAG,
		IngestedAt: now,
	}); err != nil {
		// The document is fully stored; a broker outage must not fail the upload.
		slog.Warn("publish ingest event", "error", err, "owner", owner, "filename", filename)
	}

	slog.Info("ingest finished",
		"owner", owner, "filename", filename,
		"tokens", tokenCount, "chunks", len(chunks), "usedRag", usedRAG)
	return domain.IngestResult{
		Message:    "File processed successfully",
		Summary:    summaryText,
		TokenCount: tokenCount,
		FileURL:    fileURL,
		UsedRAG:    usedRAG,
	}, nil
}

func (o *Orchestrator) storeOriginal(ctx context.Context, owner, path, filename string, size int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	key := owner + "/" + filename
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := o.objects.Put(ctx, key, f, size, contentType); err != nil {
		return "", fmt.Errorf("store original: %w", err)
	}
	url, err := o.objects.URL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("resolve file url: %w", err)
	}
	return url, nil
}

// extractText runs type-specific extraction and, when it yields almost
// nothing, retries the file through OCR. Only a hard parse failure is an
// error; a file with no text comes back empty.
func (o *Orchestrator) extractText(ctx context.Context, path, filename string) (string, error) {
	fileType := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	text, err := o.extractor.Extract(path, fileType)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", fileType, err)
	}
	if len(strings.TrimSpace(text)) < minExtractedChars && o.ocr != nil {
		if ocrText := o.ocr.ExtractText(ctx, path); len(strings.TrimSpace(ocrText)) > len(strings.TrimSpace(text)) {
			slog.Info("ocr fallback used", "filename", filename, "chars", len(ocrText))
			text = ocrText
		}
	}
	return text, nil
}

// embedChunks embeds all chunk texts with a bounded worker group. Order is
// preserved by writing into the slot matching the chunk's sequence.
func (o *Orchestrator) embedChunks(ctx context.Context, owner, filename string, parts []string, now time.Time) ([]domain.Chunk, error) {
	chunks := make([]domain.Chunk, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedWorkers)
	for i, part := range parts {
		g.Go(func() error {
			vec, err := o.embedder.EmbedText(gctx, part)
			if err != nil {
				return fmt.Errorf("embed chunk %d: %w", i, err)
			}
			chunks[i] = domain.Chunk{
				ID:        util.NewID(),
				Owner:     owner,
				Filename:  filename,
				Seq:       i,
				Content:   part,
				Embedding: vec,
				CreatedAt: now,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// summarize picks the input for the summary model: the raw text when the
// document fits under the token threshold, otherwise the top-K chunks
// retrieved for a generic key-points query.
func (o *Orchestrator) summarize(ctx context.Context, owner, filename, text string, tokenCount int) (string, bool, error) {
	if tokenCount < o.ragThreshold {
		s, err := o.summarizer.Summarize(ctx, text, summarize.ModeFull)
		if err != nil {
			return "", false, fmt.Errorf("summarize: %w", err)
		}
		return s, false, nil
	}

	queryVec, err := o.embedder.EmbedText(ctx, summaryQuery)
	if err != nil {
		return "", false, fmt.Errorf("embed summary query: %w", err)
	}
	retrieved, err := o.retriever.Retrieve(ctx, queryVec, owner, filename, o.topK)
	if err != nil {
		return "", false, fmt.Errorf("retrieve for summary: %w", err)
	}
	s, err := o.summarizer.Summarize(ctx, strings.Join(retrieved, "\n\n"), summarize.ModeRAG)
	if err != nil {
		return "", false, fmt.Errorf("summarize: %w", err)
	}
	return s, true, nil
}
