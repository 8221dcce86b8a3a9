package domain

import "time"

// SendIntent is a client-submitted request to deliver a message, prior to
// persistence. At least one of Text and MediaURL must be set.
type SendIntent struct {
	To        string `json:"to"`
	Text      string `json:"text,omitempty"`
	MediaURL  string `json:"media_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// Message is a durably persisted directed message. Immutable once created.
type Message struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text,omitempty"`
	MediaURL  string    `json:"media_url,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DeliveredMessage is a Message annotated with sender display attributes for
// delivery, so recipients can render the sender without a second lookup.
// Read-augmentation only; never written back.
type DeliveredMessage struct {
	Message
	FromName string `json:"from_name"`
}

// MessageModel is the GORM model for the messages table.
type MessageModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	FromID    string    `gorm:"type:varchar(36);index:idx_messages_pair;not null"`
	ToID      string    `gorm:"type:varchar(36);index:idx_messages_pair;not null"`
	Text      string    `gorm:"type:text"`
	MediaURL  string    `gorm:"type:varchar(512)"`
	MediaType string    `gorm:"type:varchar(100)"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// TableName specifies the table name for MessageModel.
func (MessageModel) TableName() string {
	return "messages"
}

// ToDomain converts MessageModel to domain Message.
func (m *MessageModel) ToDomain() *Message {
	return &Message{
		ID:        m.ID,
		From:      m.FromID,
		To:        m.ToID,
		Text:      m.Text,
		MediaURL:  m.MediaURL,
		MediaType: m.MediaType,
		CreatedAt: m.CreatedAt,
	}
}

// MessageToModel converts domain Message to MessageModel.
func MessageToModel(msg *Message) *MessageModel {
	return &MessageModel{
		ID:        msg.ID,
		FromID:    msg.From,
		ToID:      msg.To,
		Text:      msg.Text,
		MediaURL:  msg.MediaURL,
		MediaType: msg.MediaType,
		CreatedAt: msg.CreatedAt,
	}
}
