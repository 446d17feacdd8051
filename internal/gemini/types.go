package gemini

// Content is one conversation turn in a generateContent request
type Content struct {
	Role  string `json:"role"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// Part holds the text of a turn
type Part struct {
	Text string `json:"text"`
}

// GenerationConfig carries the fixed sampling parameters sent with every request
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// GenerateRequest is the body of a generateContent call
type GenerateRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// GenerateResponse is the subset of the generateContent response we read
type GenerateResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
}

// Candidate is one generated answer
type Candidate struct {
	Content      *Content `json:"content"`
	FinishReason string   `json:"finishReason"`
}

// PromptFeedback explains why a prompt produced no candidates
type PromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

// errorEnvelope is the JSON body returned with non-success statuses
type errorEnvelope struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// RequestContext is the history snapshot plus the pending user message for one call.
// It is assembled fresh for each turn and never persisted.
type RequestContext struct {
	History []Content
	Message string
}

// Contents returns the request contents: history followed by the new user turn
func (rc RequestContext) Contents() []Content {
	contents := make([]Content, 0, len(rc.History)+1)
	contents = append(contents, rc.History...)
	contents = append(contents, Content{
		Role:  RoleUser,
		Parts: []Part{{Text: rc.Message}},
	})
	return contents
}

// Roles accepted by the API
const (
	RoleUser  = "user"
	RoleModel = "model"
)
