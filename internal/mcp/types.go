// Package mcp exposes the knowledge engine to MCP clients.
package mcp

// QueryKnowledgeInput defines the input parameters for the query_knowledge tool.
type QueryKnowledgeInput struct {
	// Query is the question to search the knowledge base with.
	Query string `json:"query" jsonschema:"The question to search the coaching knowledge base with"`
	// Category optionally restricts results to one knowledge category.
	Category string `json:"category,omitempty" jsonschema:"Optional knowledge category filter (e.g. boxing, crossfit)"`
	// TopK is the maximum number of chunks to return.
	TopK int `json:"top_k,omitempty" jsonschema:"Maximum number of knowledge chunks to return"`
}

// QueryKnowledgeOutput contains ranked chunks and the assembled context block.
type QueryKnowledgeOutput struct {
	// Context is the citation-annotated block ready for prompt construction.
	Context string `json:"context"`
	// Results is the raw ranked result list for citation display.
	Results []ResultEntry `json:"results"`
	// Message provides informational context (e.g. nothing matched).
	Message string `json:"message,omitempty"`
}

// ResultEntry is one ranked knowledge chunk.
type ResultEntry struct {
	Text       string  `json:"text"`
	Category   string  `json:"category"`
	SourceName string  `json:"source_name"`
	ChunkIndex int     `json:"chunk_index"`
	Distance   float64 `json:"distance"`
}

// ListCategoriesInput takes no parameters.
type ListCategoriesInput struct{}

// ListCategoriesOutput lists the knowledge categories available for filtering.
type ListCategoriesOutput struct {
	Categories []string `json:"categories"`
	Count      int      `json:"count"`
}

// KnowledgeStatsInput takes no parameters.
type KnowledgeStatsInput struct{}

// KnowledgeStatsOutput reports index size and build configuration.
type KnowledgeStatsOutput struct {
	Chunks         int      `json:"chunks"`
	Categories     []string `json:"categories"`
	EmbeddingModel string   `json:"embedding_model"`
	ChunkSize      int      `json:"chunk_size"`
	ChunkOverlap   int      `json:"chunk_overlap"`
}

// CoachAdviceInput defines the input parameters for the coach_advice tool.
type CoachAdviceInput struct {
	// Question is the athlete's question.
	Question string `json:"question" jsonschema:"The athlete's coaching question"`
	// Category optionally names the athlete's activity focus.
	Category string `json:"category,omitempty" jsonschema:"Optional activity focus used to scope retrieval (e.g. boxing)"`
}

// CoachAdviceOutput contains the generated answer and its grounding.
type CoachAdviceOutput struct {
	// Answer is the generated coaching answer.
	Answer string `json:"answer"`
	// Context is the knowledge block the answer was grounded in.
	Context string `json:"context"`
	// Results is the raw ranked result list for citation display.
	Results []ResultEntry `json:"results"`
	// Grounded is false when retrieval failed and the answer fell back to
	// general guidance.
	Grounded bool `json:"grounded"`
}
