package domain

import "time"

// Scope identifies the (owner, document) pair that partitions chunks,
// summaries, and conversation history. Owners are identified by email;
// filenames are unique per owner only.
type Scope struct {
	Owner    string `json:"owner"`
	Filename string `json:"filename"`
}

type Document struct {
	Owner      string    `json:"owner"`
	Filename   string    `json:"filename"`
	FileURL    string    `json:"fileUrl"`
	TokenCount int       `json:"tokenCount"`
	SizeBytes  int64     `json:"sizeBytes"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Chunk struct {
	ID        string            `json:"id"`
	Owner     string            `json:"owner"`
	Filename  string            `json:"filename"`
	Seq       int               `json:"seq"`
	Content   string            `json:"content"`
	Embedding []float32         `json:"-"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

type Summary struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Filename  string    `json:"filename"`
	Content   string    `json:"summary"`
	UsedRAG   bool      `json:"usedRag"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is one conversation turn. Turns are appended in (user, assistant)
// pairs and never mutated afterwards.
type Message struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Filename  string    `json:"filename"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

type IngestResult struct {
	Message    string `json:"message"`
	Summary    string `json:"summary,omitempty"`
	TokenCount int    `json:"tokens"`
	FileURL    string `json:"fileurl"`
	UsedRAG    bool   `json:"usedRag"`
}

type Answer struct {
	Answer string `json:"answer"`
}
