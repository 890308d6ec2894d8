package models

// Chunk represents one overlapping word-window of a document's extracted text.
type Chunk struct {
	Source  string
	ChunkID int
	Text    string
}

// Source is a single citation returned alongside a generated answer.
// Text is capped at SourceTextLimit characters.
type Source struct {
	Source  string `json:"source"`
	ChunkID int    `json:"chunk_id"`
	Text    string `json:"text"`
}

// QueryRequest is the body of a POST /query call.
type QueryRequest struct {
	Question string `json:"question" binding:"required"`
	NResults int    `json:"n_results"`
}

// QueryResponse carries the generated answer and its citations in rank order.
type QueryResponse struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// UploadResponse reports how many chunks a processed document contributed.
type UploadResponse struct {
	Message     string `json:"message"`
	Filename    string `json:"filename"`
	ChunksAdded int    `json:"chunks_added"`
}

// Excerpt caps text at limit characters, marking the cut with an ellipsis.
// Text at or under the limit is returned unchanged. The limit counts runes,
// not bytes, so multi-byte text is never cut mid-rune.
func Excerpt(text string, limit int) string {
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return text
}
