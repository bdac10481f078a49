package render

import (
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/markdown-blog/internal/models"
)

// FeedInfo describes the channel of a post feed
type FeedInfo struct {
	Title       string
	Description string
	SiteURL     string
	Updated     time.Time
}

// WriteRSS renders posts as an RSS 2.0 feed. Items keep the given order and
// carry the rendered HTML as their content.
func WriteRSS(w io.Writer, r Renderer, info FeedInfo, posts []models.Post) error {
	feed, err := BuildFeed(r, info, posts)
	if err != nil {
		return err
	}
	return feed.WriteRss(w)
}

// BuildFeed assembles the gorilla feed without serializing it
func BuildFeed(r Renderer, info FeedInfo, posts []models.Post) (*feeds.Feed, error) {
	base := strings.TrimRight(info.SiteURL, "/")
	feed := &feeds.Feed{
		Title:       info.Title,
		Link:        &feeds.Link{Href: base + "/posts"},
		Description: info.Description,
		Created:     info.Updated,
	}

	for _, post := range posts {
		view, err := r.Render(post)
		if err != nil {
			return nil, err
		}
		link := base + "/posts/" + url.PathEscape(post.Slug)
		feed.Items = append(feed.Items, &feeds.Item{
			Id:      link,
			Title:   view.Title,
			Link:    &feeds.Link{Href: link},
			Content: string(view.HTML),
			Created: info.Updated,
		})
	}
	return feed, nil
}
