package menulens

// Part is one piece of a provider message: prompt text or image bytes.
type Part struct {
	Type     string
	Text     string
	Data     []byte
	MimeType string
}

// NewTextPart creates a new text part
func NewTextPart(text string) *Part {
	return &Part{Type: "text", Text: text}
}

// NewImagePart creates a new image part with data and mime type
func NewImagePart(img *Image) *Part {
	return &Part{Type: "image", Data: img.Data, MimeType: img.MIMEType}
}

// Message is a single user turn sent to a provider.
type Message struct {
	Role  string
	Parts []*Part
}

// NewUserMessage creates a new user message
func NewUserMessage(parts ...*Part) *Message {
	return &Message{Role: "user", Parts: parts}
}

// messageFor builds the user turn for a request: prompt first, then the image.
func messageFor(req Request) *Message {
	parts := []*Part{NewTextPart(req.Prompt)}
	if req.Image != nil && len(req.Image.Data) > 0 {
		parts = append(parts, NewImagePart(req.Image))
	}
	return NewUserMessage(parts...)
}
