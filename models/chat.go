package models

// ChatRequest is a question scoped to a single document.
type ChatRequest struct {
	Query     string `json:"query" binding:"required"`
	TopK      int    `json:"topK,omitempty"`
	MaxTokens int    `json:"maxTokens,omitempty"`
}

// QueryRequest is a question against the whole corpus, optionally with
// recent dialogue turns for generation context.
type QueryRequest struct {
	Query               string             `json:"query" binding:"required"`
	ConversationHistory []ConversationTurn `json:"conversationHistory,omitempty"`
	TopK                int                `json:"topK,omitempty"`
	MaxTokens           int                `json:"maxTokens,omitempty"`
}

// SourceRef is one retrieved passage as surfaced to the caller: an excerpt
// of the text, its similarity score and the passage metadata.
type SourceRef struct {
	Text       string                 `json:"text"`
	Similarity float64                `json:"similarity"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// AnswerResponse is the terminal output of the retrieval pipeline.
type AnswerResponse struct {
	Answer     string      `json:"answer"`
	Sources    []SourceRef `json:"sources"`
	DocumentID string      `json:"documentId,omitempty"`
	ChunksUsed int         `json:"chunksUsed"`
}

// UploadResponse is returned after a document upload.
type UploadResponse struct {
	DocumentID string `json:"documentId,omitempty"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunkCount,omitempty"`
	Status     string `json:"status"`
	TaskID     string `json:"taskId,omitempty"`
	Message    string `json:"message"`
}

// Ingestion status constants.
const (
	StatusCompleted = "completed"
	StatusQueued    = "queued"
	StatusFailed    = "failed"
)
