// Package domain holds the normalized wire types shared by the selector,
// the registry and every vendor adapter. Nothing here is vendor-specific.
package domain

// ChatCompletionRequest is the normalized OpenAI-shaped chat completion
// request the gateway accepts and routes to a provider.
type ChatCompletionRequest struct {
	Model            string    `json:"model"`
	Messages         []Message `json:"messages"`
	Temperature      *float64  `json:"temperature,omitempty"`
	MaxTokens        *int      `json:"max_tokens,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	PresencePenalty  *float64  `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64  `json:"frequency_penalty,omitempty"`
	Stream           *bool     `json:"stream,omitempty"`
	User             *string   `json:"user,omitempty"`
}

// WithModel returns a shallow copy of the request with Model replaced.
// Used by the selector when the request names no model and the
// provider's configured default must be substituted.
func (r ChatCompletionRequest) WithModel(model string) ChatCompletionRequest {
	r.Model = model
	return r
}

// OptionalScalars returns the non-null optional scalars the passthrough
// vendors (Cerebras, OpenRouter) forward verbatim alongside model and
// messages.
func (r ChatCompletionRequest) OptionalScalars() map[string]any {
	out := map[string]any{}
	if r.Temperature != nil {
		out["temperature"] = *r.Temperature
	}
	if r.MaxTokens != nil {
		out["max_tokens"] = *r.MaxTokens
	}
	if r.TopP != nil {
		out["top_p"] = *r.TopP
	}
	if r.Stream != nil {
		out["stream"] = *r.Stream
	}
	if r.User != nil {
		out["user"] = *r.User
	}
	if r.PresencePenalty != nil {
		out["presence_penalty"] = *r.PresencePenalty
	}
	if r.FrequencyPenalty != nil {
		out["frequency_penalty"] = *r.FrequencyPenalty
	}
	return out
}

// Message is one entry in a conversation. Content is either a plain string
// or an ordered sequence of typed parts; Parts is nil when Content carries
// the plain-string form.
type Message struct {
	Role    string
	Content string
	Parts   []ContentPart

	// ToolCalls and Metadata are populated by vendor adapters on response
	// messages; the gateway never sends them upstream.
	ToolCalls []ToolCall
	Metadata  map[string]any
}

// IsPlainText reports whether Content should be used verbatim rather than
// Parts.
func (m Message) IsPlainText() bool {
	return m.Parts == nil
}

// ContentPart is one element of a multi-part message, e.g. a text segment
// or an image reference.
type ContentPart struct {
	Type string // "text" | "image_url" | "image" | ...

	Text string

	// ImageURL carries the resolved image reference for "image_url"/"image"
	// parts, in OpenAI's {url, media_type?} shape.
	ImageURL *ImageURL

	// Raw preserves any fields this gateway does not otherwise model, so a
	// part can round-trip unchanged when a vendor adapter has no opinion
	// about it.
	Raw map[string]any
}

// ImageURL is the OpenAI-shaped image reference carried by an image part.
type ImageURL struct {
	URL       string
	MediaType string
}

// ToolCall is the OpenAI-shaped function/tool call attached to an assistant
// message.
type ToolCall struct {
	ID       string
	Type     string
	Function ToolCallFunction
}

// ToolCallFunction is the function payload of a ToolCall.
type ToolCallFunction struct {
	Name      string
	Arguments string
}

// ChatCompletionResponse is the normalized OpenAI-shaped response returned
// to the caller regardless of which vendor served the request.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice is one completion choice. The Cohere and Gemini adapters, and the
// Hugging Face generated_text fallback, return exactly one; the
// OpenAI-shaped passthrough vendors return the vendor's choices as sent.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// ResponseMessage is the assistant message returned in a Choice. Content is
// either a plain string (when no non-text parts are present) or an ordered
// list of content parts.
type ResponseMessage struct {
	Role      string
	Content   string
	Parts     []ContentPart
	ToolCalls []ToolCall
	Metadata  map[string]any
}

// Usage is token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
