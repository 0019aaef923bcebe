package dto

// Update is the inbound webhook envelope from the Telegram Bot API.
// Only the fields the ingestion pipeline reads are modelled.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64       `json:"message_id"`
	From      *Sender     `json:"from"`
	Chat      Chat        `json:"chat"`
	Text      string      `json:"text"`
	Caption   string      `json:"caption"`
	Photo     []PhotoSize `json:"photo"`
	Document  *Document   `json:"document"`
}

type Sender struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type PhotoSize struct {
	FileID   string `json:"file_id"`
	FileSize int64  `json:"file_size"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type Document struct {
	FileID   string `json:"file_id"`
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name"`
}

// ImageFileID returns the file id of the image attached to the message, if
// any. Telegram sends photos in multiple sizes; the last entry is the
// largest. Documents count only when their mime type is an image.
func (m *Message) ImageFileID() (string, bool) {
	if len(m.Photo) > 0 {
		return m.Photo[len(m.Photo)-1].FileID, true
	}
	if m.Document != nil && len(m.Document.MimeType) >= 6 && m.Document.MimeType[:6] == "image/" {
		return m.Document.FileID, true
	}
	return "", false
}

// DisplayName builds a human-readable name for the sender.
func (s *Sender) DisplayName() string {
	name := s.FirstName
	if s.LastName != "" {
		if name != "" {
			name += " "
		}
		name += s.LastName
	}
	if name == "" {
		name = s.Username
	}
	return name
}
