// Package store contains entities of the news board and the collection that holds them.
package store

import (
	"context"
	"errors"

	"github.com/samber/lo"
)

// ErrNotFound is an error that is returned when the requested entity is not found.
var ErrNotFound = errors.New("not found")

// Interface defines methods for the bot users storage.
type Interface interface {
	Put(ctx context.Context, u User) error
	Get(ctx context.Context, chatID string) (User, error)
	List(ctx context.Context, req ListRequest) ([]User, error)
	Delete(ctx context.Context, chatID string) error
}

// ListRequest defines parameters for listing users from store.
type ListRequest struct {
	SubscribedOnly bool
}

// User is a struct that contains the chat's data.
type User struct {
	ChatID     string `json:"chat_id"`
	Username   string `json:"username"`
	Authorized bool   `json:"authorized"`
	Subscribed bool   `json:"subscribed"`
}

// CommentStatus describes whether the comment is acknowledged by the remote store.
type CommentStatus string

// Comment statuses.
const (
	StatusConfirmed CommentStatus = "confirmed"
	StatusPending   CommentStatus = "pending"
)

// Comment is a single comment on the article.
// ID is assigned locally and is stable for the lifetime of the comment.
type Comment struct {
	ID     string        `json:"id"`
	Text   string        `json:"text"`
	Status CommentStatus `json:"status"`
}

// Pending returns true if the comment is not confirmed yet.
func (c Comment) Pending() bool { return c.Status == StatusPending }

// Article is a scraped news item.
type Article struct {
	ID       string    `json:"id"`
	Site     string    `json:"site"`
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Summary  string    `json:"summary"`
	Comments []Comment `json:"comments"`
}

func (a Article) clone() Article {
	if a.Comments != nil {
		a.Comments = append([]Comment(nil), a.Comments...)
	}
	return a
}

// settled returns a copy of the article without pending comments.
func (a Article) settled() Article {
	a = a.clone()
	if a.Comments != nil {
		a.Comments = lo.Filter(a.Comments, func(c Comment, _ int) bool { return !c.Pending() })
	}
	return a
}

// Snapshot is a point-in-time copy of the collection.
type Snapshot struct {
	Version  uint64    `json:"version"`
	Articles []Article `json:"articles"`
}

// Settled returns a copy of the snapshot holding only confirmed comments,
// pending ones are not known to the remote store yet.
func (s Snapshot) Settled() Snapshot {
	return Snapshot{
		Version:  s.Version,
		Articles: lo.Map(s.Articles, func(a Article, _ int) Article { return a.settled() }),
	}
}
