package events

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

type Type string

const (
	NewMeme     Type = "NEW_MEME"
	NewComment  Type = "NEW_COMMENT"
	VoteUpdated Type = "VOTE_UPDATED"
)

// Event is the envelope delivered to subscribers. Payload is the resource view.
type Event struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload"`
}

// Message is an Event addressed to a topic, as written to WebSocket clients.
type Message struct {
	Topic   string `json:"topic"`
	Type    Type   `json:"type"`
	Payload any    `json:"payload"`
}

// Publisher announces an event to every current subscriber of topic. Delivery is
// fire-and-forget: there is no acknowledgement and no replay for late subscribers.
type Publisher interface {
	Publish(ctx context.Context, topic string, event Event) error
}

const MemesTopic = "/topic/memes"

func CommentsTopic(memeID uint) string {
	return fmt.Sprintf("%s/%d/comments", MemesTopic, memeID)
}

func VotesTopic(memeID uint) string {
	return fmt.Sprintf("%s/%d/votes", MemesTopic, memeID)
}

// ValidTopic reports whether clients may subscribe to topic.
func ValidTopic(topic string) bool {
	if topic == MemesTopic {
		return true
	}
	rest, ok := strings.CutPrefix(topic, MemesTopic+"/")
	if !ok {
		return false
	}
	id, kind, ok := strings.Cut(rest, "/")
	if !ok || (kind != "comments" && kind != "votes") {
		return false
	}
	n, err := strconv.ParseUint(id, 10, 64)
	return err == nil && n > 0
}
