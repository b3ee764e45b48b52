// Package mcp exposes the document pipeline over the Model Context Protocol.
package mcp

import "time"

// AskDocsInput defines the input parameters for the ask_docs tool.
type AskDocsInput struct {
	// Question is the natural-language question to answer.
	Question string `json:"question" jsonschema:"required,description=The question to answer from the indexed documentation"`
	// MaxSources is the maximum number of retrieved passages to ground the answer on.
	MaxSources int `json:"max_sources,omitempty" jsonschema:"minimum=1,maximum=20,default=5,description=Maximum number of source passages to use"`
	// QuestionType optionally forces a prompt template instead of automatic classification.
	QuestionType string `json:"question_type,omitempty" jsonschema:"description=Optional question type: summary comparison how_to key_points or general"`
}

// AskDocsOutput contains the generated answer and its provenance.
type AskDocsOutput struct {
	// Answer is the generated response text.
	Answer string `json:"answer"`
	// Sources lists the passages the answer was grounded on.
	Sources []AnswerSource `json:"sources"`
	// QuestionType is the template used for the answer.
	QuestionType string `json:"question_type"`
	// KeyPoints holds extracted bullet points for key_points questions.
	KeyPoints []string `json:"key_points,omitempty"`
	// Attempts is the number of backend calls made.
	Attempts int `json:"attempts"`
	// Error is set when generation failed after retries; Answer still
	// carries a user-facing message.
	Error string `json:"error,omitempty"`
}

// AnswerSource is one passage an answer was grounded on.
type AnswerSource struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
	Excerpt    string  `json:"excerpt"`
}

// SearchDocsInput defines the input parameters for the search_docs tool.
type SearchDocsInput struct {
	// Query is the search query.
	Query string `json:"query" jsonschema:"required,description=The search query for finding relevant passages"`
	// MaxResults is the maximum number of passages to return.
	MaxResults int `json:"max_results,omitempty" jsonschema:"minimum=1,maximum=20,default=5,description=Maximum number of passages to return"`
}

// SearchDocsOutput contains the search results.
type SearchDocsOutput struct {
	// Results is the list of matching passages with scores.
	Results []SearchResult `json:"results"`
	// Message provides informational context (e.g., "No matching passages found").
	Message string `json:"message,omitempty"`
}

// SearchResult represents a single passage match from hybrid search.
type SearchResult struct {
	// DocumentID identifies the parent document.
	DocumentID string `json:"document_id"`
	// Title is the document title from metadata.
	Title string `json:"title"`
	// HeaderPath is the section hierarchy for markdown sources.
	HeaderPath string `json:"header_path,omitempty"`
	// Content is the passage text.
	Content string `json:"content"`
	// VectorScore is the cosine similarity component.
	VectorScore float64 `json:"vector_score"`
	// LexicalScore is the keyword overlap component.
	LexicalScore float64 `json:"lexical_score"`
	// Score is the combined relevance score.
	Score float64 `json:"score"`
}

// ListDocumentsInput defines the input parameters for the list_documents
// tool. This tool takes no parameters and lists all indexed documents.
type ListDocumentsInput struct {
	// No input parameters required
}

// ListDocumentsOutput contains the list of indexed documents.
type ListDocumentsOutput struct {
	// Documents is all indexed documents.
	Documents []DocumentEntry `json:"documents"`
	// Count is the total number of documents.
	Count int `json:"count"`
}

// DocumentEntry is a summary of one indexed document.
type DocumentEntry struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SourcePath string    `json:"source_path"`
	CreatedAt  time.Time `json:"created_at"`
}

// IndexStatusInput defines the input parameters for the index_status tool.
type IndexStatusInput struct {
	// No input parameters required
}

// IndexStatusOutput reports collection counts.
type IndexStatusOutput struct {
	// TotalDocuments is the number of indexed documents.
	TotalDocuments int `json:"total_documents"`
	// TotalChunks is the number of indexed passages.
	TotalChunks int `json:"total_chunks"`
}
