package store

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// Collection is the in-memory set of articles, ordered as received
// from the remote store. It is safe for concurrent use.
type Collection struct {
	mu       sync.RWMutex
	articles []Article
	version  uint64
	newID    func() string
}

// NewCollection makes a new empty collection.
func NewCollection() *Collection {
	return &Collection{newID: uuid.NewString}
}

// Sites returns the sorted set of sites of the given articles.
func Sites(articles []Article) []string {
	sites := lo.Uniq(lo.Map(articles, func(a Article, _ int) string { return a.Site }))
	slices.Sort(sites)
	return sites
}

// Replace substitutes the whole collection with the given articles.
// Summaries are normalized, pending comments are dropped and
// comments without ids get one.
func (c *Collection) Replace(articles []Article) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.articles = make([]Article, 0, len(articles))
	for _, a := range articles {
		a = a.settled()
		a.Summary = NormalizeSummary(a.Summary)
		for i := range a.Comments {
			if a.Comments[i].ID == "" {
				a.Comments[i].ID = c.newID()
			}
			if a.Comments[i].Status == "" {
				a.Comments[i].Status = StatusConfirmed
			}
		}
		c.articles = append(c.articles, a)
	}
	c.version++
}

// Snapshot returns a deep copy of the collection.
func (c *Collection) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		Version:  c.version,
		Articles: lo.Map(c.articles, func(a Article, _ int) Article { return a.clone() }),
	}
}

// Version returns the number of changes applied to the collection.
func (c *Collection) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Len returns the number of articles.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.articles)
}

// DistinctSites returns the sorted set of sites present in the collection.
func (c *Collection) DistinctSites() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Sites(c.articles)
}

// Article returns a copy of the article with the given id.
func (c *Collection) Article(id string) (Article, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, err := c.indexOf(id)
	if err != nil {
		return Article{}, err
	}
	return c.articles[idx].clone(), nil
}

// ArticlesForSite returns articles of the site in collection order.
func (c *Collection) ArticlesForSite(site string) []Article {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var res []Article
	for _, a := range c.articles {
		if a.Site == site {
			res = append(res, a.clone())
		}
	}
	return res
}

// RemoveArticlesForSite removes every article of the site and
// returns the number of removed articles.
func (c *Collection) RemoveArticlesForSite(site string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.articles[:0]
	for _, a := range c.articles {
		if a.Site != site {
			kept = append(kept, a)
		}
	}

	removed := len(c.articles) - len(kept)
	// clear the tail to not hold references to removed articles
	for i := len(kept); i < len(c.articles); i++ {
		c.articles[i] = Article{}
	}
	c.articles = kept

	if removed > 0 {
		c.version++
	}
	return removed
}

// AppendComment adds the comment to the end of the article's comments.
// Empty id and status are filled with a fresh id and StatusConfirmed.
func (c *Collection) AppendComment(articleID string, cmt Comment) (Comment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, err := c.indexOf(articleID)
	if err != nil {
		return Comment{}, err
	}

	if cmt.ID == "" {
		cmt.ID = c.newID()
	}
	if cmt.Status == "" {
		cmt.Status = StatusConfirmed
	}

	c.articles[idx].Comments = append(c.articles[idx].Comments, cmt)
	c.version++
	return cmt, nil
}

// InsertComment puts the comment at the given position of the article's comments.
// Out of range positions are clamped.
func (c *Collection) InsertComment(articleID string, pos int, cmt Comment) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, err := c.indexOf(articleID)
	if err != nil {
		return err
	}

	comments := c.articles[idx].Comments
	if pos < 0 {
		pos = 0
	}
	if pos > len(comments) {
		pos = len(comments)
	}
	c.articles[idx].Comments = slices.Insert(comments, pos, cmt)
	c.version++
	return nil
}

// SetCommentStatus updates the status of the comment.
func (c *Collection) SetCommentStatus(articleID, commentID string, status CommentStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, pos, err := c.commentIndex(articleID, func(cmt Comment) bool { return cmt.ID == commentID })
	if err != nil {
		return fmt.Errorf("comment %s: %w", commentID, err)
	}

	c.articles[idx].Comments[pos].Status = status
	c.version++
	return nil
}

// RemoveComment removes the comment with the given id and returns it
// along with the position it had.
func (c *Collection) RemoveComment(articleID, commentID string) (Comment, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, pos, err := c.commentIndex(articleID, func(cmt Comment) bool { return cmt.ID == commentID })
	if err != nil {
		return Comment{}, -1, fmt.Errorf("comment %s: %w", commentID, err)
	}

	return c.removeCommentAt(idx, pos), pos, nil
}

// RemoveCommentText removes the first comment whose text equals the given one.
// The match is exact and case-sensitive.
func (c *Collection) RemoveCommentText(articleID, text string) (Comment, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, pos, err := c.commentIndex(articleID, func(cmt Comment) bool { return cmt.Text == text })
	if err != nil {
		return Comment{}, -1, fmt.Errorf("comment %q: %w", text, err)
	}

	return c.removeCommentAt(idx, pos), pos, nil
}

func (c *Collection) removeCommentAt(idx, pos int) Comment {
	cmt := c.articles[idx].Comments[pos]
	c.articles[idx].Comments = slices.Delete(c.articles[idx].Comments, pos, pos+1)
	c.version++
	return cmt
}

func (c *Collection) commentIndex(articleID string, match func(Comment) bool) (idx, pos int, err error) {
	if idx, err = c.indexOf(articleID); err != nil {
		return -1, -1, err
	}

	if pos = slices.IndexFunc(c.articles[idx].Comments, match); pos < 0 {
		return -1, -1, ErrNotFound
	}

	return idx, pos, nil
}

func (c *Collection) indexOf(articleID string) (int, error) {
	idx := slices.IndexFunc(c.articles, func(a Article) bool { return a.ID == articleID })
	if idx < 0 {
		return -1, fmt.Errorf("article %s: %w", articleID, ErrNotFound)
	}
	return idx, nil
}
