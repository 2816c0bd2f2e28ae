package domain

// Chat is an aggregate view over the messages of one conversation. Chats are
// derived from the message store by distinct chat id, not stored separately;
// only the agent assignment is kept as its own record.
type Chat struct {
	ID            string   `bson:"_id" json:"id"`
	IsGroup       bool     `bson:"is_group" json:"isGroup"`
	Participants  []string `bson:"participants" json:"participants"`
	AssignedAgent string   `bson:"assigned_agent,omitempty" json:"assignedAgent,omitempty"`
	LastMessage   *Message `bson:"last_message,omitempty" json:"lastMessage,omitempty"`
	UnreadCount   int64    `bson:"unread_count" json:"unreadCount"`
}
