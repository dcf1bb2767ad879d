package domain

import (
	"encoding/json"
	"fmt"
)

// wireMessage mirrors the OpenAI wire shape for one message, where Content
// is either a JSON string or an ordered array of typed parts. Kept private:
// callers only ever see the normalized Message/ContentPart types.
type wireMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// UnmarshalJSON accepts both the plain-string and typed-parts content shapes
// that OpenAI-compatible clients send.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	m.Role = wire.Role

	if len(wire.Content) == 0 || string(wire.Content) == "null" {
		m.Content = ""
		m.Parts = nil
		return nil
	}

	var asString string
	if err := json.Unmarshal(wire.Content, &asString); err == nil {
		m.Content = asString
		m.Parts = nil
		return nil
	}

	var rawParts []map[string]any
	if err := json.Unmarshal(wire.Content, &rawParts); err != nil {
		return fmt.Errorf("message content must be a string or an array of parts: %w", err)
	}
	parts := make([]ContentPart, 0, len(rawParts))
	for _, raw := range rawParts {
		parts = append(parts, parseContentPart(raw))
	}
	m.Parts = parts
	return nil
}

// MarshalJSON emits the plain-string shape when Parts is unset, otherwise
// the typed-parts array shape.
func (m Message) MarshalJSON() ([]byte, error) {
	if m.Parts == nil {
		return json.Marshal(struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}{m.Role, m.Content})
	}
	return json.Marshal(struct {
		Role    string        `json:"role"`
		Content []ContentPart `json:"content"`
	}{m.Role, m.Parts})
}

func parseContentPart(raw map[string]any) ContentPart {
	part := ContentPart{Type: stringField(raw, "type"), Raw: raw}
	switch part.Type {
	case "text", "input_text":
		part.Text = stringField(raw, "text")
	case "image_url":
		if nested, ok := raw["image_url"].(map[string]any); ok {
			part.ImageURL = &ImageURL{
				URL:       stringField(nested, "url"),
				MediaType: stringField(nested, "media_type"),
			}
		}
	case "image", "input_image":
		part.ImageURL = resolveImageField(raw)
	}
	return part
}

func resolveImageField(raw map[string]any) *ImageURL {
	if img, ok := raw["image"].(map[string]any); ok {
		if url := stringField(img, "url"); url != "" {
			return &ImageURL{URL: url, MediaType: stringField(img, "media_type")}
		}
		if b64 := firstNonEmpty(stringField(img, "b64_json"), stringField(img, "base64")); b64 != "" {
			mediaType := stringField(img, "media_type")
			if mediaType == "" {
				mediaType = "image/png"
			}
			return &ImageURL{URL: "data:" + mediaType + ";base64," + b64, MediaType: mediaType}
		}
	}
	if url := stringField(raw, "image_url"); url != "" {
		return &ImageURL{URL: url}
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// MarshalJSON for ContentPart emits the OpenAI-shaped part for each
// recognized type, falling back to Raw for anything passed through
// unmodified.
func (p ContentPart) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case "text":
		return json.Marshal(map[string]any{"type": "text", "text": p.Text})
	case "image_url":
		img := map[string]any{"url": p.ImageURL.URL}
		if p.ImageURL.MediaType != "" {
			img["media_type"] = p.ImageURL.MediaType
		}
		return json.Marshal(map[string]any{"type": "image_url", "image_url": img})
	default:
		if p.Raw != nil {
			return json.Marshal(p.Raw)
		}
		return json.Marshal(map[string]any{"type": p.Type})
	}
}

// MarshalJSON for ResponseMessage mirrors Message's polymorphic content
// encoding, plus the optional tool_calls/metadata fields vendor adapters
// attach.
func (m ResponseMessage) MarshalJSON() ([]byte, error) {
	out := map[string]any{"role": m.Role}
	if m.Parts != nil {
		out["content"] = m.Parts
	} else {
		out["content"] = m.Content
	}
	if len(m.ToolCalls) > 0 {
		out["tool_calls"] = m.ToolCalls
	}
	if len(m.Metadata) > 0 {
		out["metadata"] = m.Metadata
	}
	return json.Marshal(out)
}

// MarshalJSON for ToolCall emits the OpenAI-shaped {id, type, function}
// object.
func (t ToolCall) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"id":   t.ID,
		"type": t.Type,
		"function": map[string]any{
			"name":      t.Function.Name,
			"arguments": t.Function.Arguments,
		},
	})
}
