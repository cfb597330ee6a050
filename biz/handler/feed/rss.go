package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/gorilla/feeds"

	"hnpulse/biz/model"
)

const rssContentType = "application/rss+xml; charset=utf-8"

var feedTitles = map[model.Feed]string{
	model.FeedTop:  "Hacker News Top Stories",
	model.FeedNew:  "Hacker News New Stories",
	model.FeedBest: "Hacker News Best Stories",
}

// buildRSS 把一页条目转换为 RSS 2.0 文档。
// 没有外链的条目（Ask HN 等）使用讨论页作为链接。
func buildRSS(feed model.Feed, page int, items []*model.Item, now time.Time) (string, error) {
	f := &feeds.Feed{
		Title:       feedTitles[feed],
		Link:        &feeds.Link{Href: "https://news.ycombinator.com/"},
		Description: fmt.Sprintf("%s, page %d", feedTitles[feed], page),
		Id:          fmt.Sprintf("tag:news.ycombinator.com,%s:%d", feed, page),
		Created:     now,
		Updated:     now,
	}

	for _, it := range items {
		if it == nil {
			continue
		}
		link := model.StringValue(it.URL)
		if link == "" {
			link = it.CommentsURL()
		}
		entry := &feeds.Item{
			Id:    it.CommentsURL(),
			Title: model.StringValue(it.Title),
			Link:  &feeds.Link{Href: link},
			Description: fmt.Sprintf(`%d points, <a href="%s">%d comments</a>`,
				model.IntValue(it.Score), it.CommentsURL(), model.IntValue(it.Descendants)),
		}
		if by := model.StringValue(it.By); by != "" {
			entry.Author = &feeds.Author{Name: by}
		}
		if it.Time != nil {
			entry.Created = time.Unix(*it.Time, 0).UTC()
		}
		f.Items = append(f.Items, entry)
	}
	return f.ToRss()
}

// FeedRSS .
// @router /api/v1/feeds/:feed/rss [GET]
func FeedRSS(ctx context.Context, c *app.RequestContext) {
	feed, err := parseFeed(c)
	if err != nil {
		fail(c, err)
		return
	}
	page, err := parsePage(c.Query("page"))
	if err != nil {
		fail(c, err)
		return
	}

	p, err := feedService.GetPage(ctx, feed, page)
	if err != nil {
		fail(c, err)
		return
	}
	doc, err := buildRSS(feed, page, p.Items, time.Now())
	if err != nil {
		fail(c, fmt.Errorf("render rss: %w", err))
		return
	}
	c.Data(consts.StatusOK, rssContentType, []byte(doc))
}
