package xactions

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"
	"sync"
)

const (
	postPageSize = 20
	userPageSize = 100
)

// query runs a GraphQL GET for operation and returns the raw body.
func (c *Client) query(ctx context.Context, operation string, variables, fieldToggles map[string]any) ([]byte, error) {
	ep, err := lookupEndpoint(operation)
	if err != nil {
		return nil, err
	}
	url := addGraphQLParams(ep.URL(), variables, ep.Features, fieldToggles)

	resp, err := c.guard.do(ctx, request{endpoint: operation, method: "GET", url: url})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return resp.body, nil
}

// GetUser fetches a user profile by handle. A leading "@" is ignored.
func (c *Client) GetUser(ctx context.Context, username string) (*User, error) {
	variables := map[string]any{
		"screen_name":              strings.TrimPrefix(username, "@"),
		"withSafetyModeUserFields": true,
	}
	body, err := c.query(ctx, "UserByScreenName", variables, nil)
	if err != nil {
		return nil, err
	}
	return parseUserByScreenName(body)
}

// GetPost fetches a single post by ID.
func (c *Client) GetPost(ctx context.Context, postID string) (*Post, error) {
	variables := map[string]any{
		"tweetId":                postID,
		"withCommunity":          false,
		"includePromotedContent": false,
		"withVoice":              false,
	}
	body, err := c.query(ctx, "TweetResultByRestId", variables, nil)
	if err != nil {
		return nil, err
	}
	return parseTweetResult(body)
}

// SearchTimeline lazily walks search results for query.
func (c *Client) SearchTimeline(ctx context.Context, query string, opts SearchOptions) iter.Seq2[*Post, error] {
	return paginate(ctx, c.searchFeed(query, opts.Product), opts.ListOptions, c.pageConfig(), pickPost)
}

// SearchUsers lazily walks the People tab of a search.
func (c *Client) SearchUsers(ctx context.Context, query string, opts ListOptions) iter.Seq2[*User, error] {
	return paginate(ctx, c.searchFeed(query, SearchPeople), opts, c.pageConfig(), pickUser)
}

func (c *Client) searchFeed(query string, product SearchProduct) pageFunc {
	if product == "" {
		product = SearchLatest
	}
	return func(ctx context.Context, cursor string) (*page, error) {
		variables := map[string]any{
			"rawQuery":    query,
			"count":       postPageSize,
			"querySource": "typed_query",
			"product":     string(product),
		}
		if cursor != "" {
			variables["cursor"] = cursor
		}
		fieldToggles := map[string]any{
			"withArticleRichContentState": false,
		}
		body, err := c.query(ctx, "SearchTimeline", variables, fieldToggles)
		if err != nil {
			return nil, err
		}
		p, err := searchPage(body)
		if err != nil {
			return nil, fmt.Errorf("parse SearchTimeline: %w", err)
		}
		return p, nil
	}
}

// UserTimeline lazily walks a user's posts, newest first.
func (c *Client) UserTimeline(ctx context.Context, username string, opts ListOptions) iter.Seq2[*Post, error] {
	feed := c.userFeed(username, "UserTweets", postPageSize, map[string]any{
		"withQuickPromoteEligibilityTweetFields": true,
		"withVoice":                              true,
		"withV2Timeline":                         true,
	})
	return paginate(ctx, feed, opts, c.pageConfig(), pickPost)
}

// Followers lazily walks the accounts following username.
func (c *Client) Followers(ctx context.Context, username string, opts ListOptions) iter.Seq2[*User, error] {
	return paginate(ctx, c.userFeed(username, "Followers", userPageSize, nil), opts, c.pageConfig(), pickUser)
}

// Following lazily walks the accounts username follows.
func (c *Client) Following(ctx context.Context, username string, opts ListOptions) iter.Seq2[*User, error] {
	return paginate(ctx, c.userFeed(username, "Following", userPageSize, nil), opts, c.pageConfig(), pickUser)
}

// ScrapeMedia lazily walks the photos, videos and GIFs a user has posted.
func (c *Client) ScrapeMedia(ctx context.Context, username string, opts ListOptions) iter.Seq2[*Media, error] {
	feed := c.userFeed(username, "UserMedia", postPageSize, map[string]any{
		"withClientEventToken": false,
		"withBirdwatchNotes":   false,
		"withVoice":            true,
		"withV2Timeline":       true,
	})
	return paginate(ctx, feed, opts, c.pageConfig(), pickMedia)
}

// userFeed returns a page fetcher for a user-keyed timeline. The handle is
// resolved to a user ID on the first fetch and remembered once it succeeds.
func (c *Client) userFeed(username, operation string, count int, extra map[string]any) pageFunc {
	var (
		mu     sync.Mutex
		userID string
	)
	resolve := func(ctx context.Context) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if userID != "" {
			return userID, nil
		}
		u, err := c.GetUser(ctx, username)
		if err != nil {
			return "", err
		}
		userID = u.ID
		return userID, nil
	}

	return func(ctx context.Context, cursor string) (*page, error) {
		id, err := resolve(ctx)
		if err != nil {
			return nil, err
		}
		variables := map[string]any{
			"userId":                 id,
			"count":                  count,
			"includePromotedContent": false,
		}
		maps.Copy(variables, extra)
		if cursor != "" {
			variables["cursor"] = cursor
		}
		body, err := c.query(ctx, operation, variables, nil)
		if err != nil {
			return nil, err
		}
		p, err := userTimelinePage(body)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", operation, err)
		}
		return p, nil
	}
}

func (c *Client) conversationFeed(postID string) pageFunc {
	return func(ctx context.Context, cursor string) (*page, error) {
		variables := map[string]any{
			"focalTweetId":                           postID,
			"with_rux_injections":                    false,
			"rankingMode":                            "Relevance",
			"includePromotedContent":                 false,
			"withCommunity":                          true,
			"withQuickPromoteEligibilityTweetFields": true,
			"withBirdwatchNotes":                     true,
			"withVoice":                              true,
		}
		if cursor != "" {
			variables["cursor"] = cursor
			variables["referrer"] = "tweet"
		}
		fieldToggles := map[string]any{
			"withArticleRichContentState": true,
			"withArticlePlainText":        false,
		}
		body, err := c.query(ctx, "TweetDetail", variables, fieldToggles)
		if err != nil {
			return nil, err
		}
		p, err := conversationPage(body)
		if err != nil {
			return nil, fmt.Errorf("parse TweetDetail: %w", err)
		}
		return p, nil
	}
}

// ThreadOf returns the self-thread containing postID: the conversation root
// and every reply its author chained onto it, oldest first.
func (c *Client) ThreadOf(ctx context.Context, postID string) ([]*Post, error) {
	opts := ListOptions{Limit: c.cfg.ThreadLimit}
	posts, err := Collect(paginate(ctx, c.conversationFeed(postID), opts, c.pageConfig(), pickPost))
	if err != nil {
		return nil, err
	}
	return selfThread(posts, postID)
}

// selfThread filters a conversation down to the root author's reply chain.
func selfThread(posts []*Post, focalID string) ([]*Post, error) {
	byID := make(map[string]*Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	focal, ok := byID[focalID]
	if !ok {
		return nil, notFound("TweetDetail", "post")
	}

	authorID := focal.AuthorID
	if root, ok := byID[focal.ConversationID]; ok {
		authorID = root.AuthorID
	}

	slices.SortFunc(posts, func(a, b *Post) int { return compareIDs(a.ID, b.ID) })

	included := make(map[string]bool)
	var thread []*Post
	for _, p := range posts {
		if p.AuthorID != authorID {
			continue
		}
		// Without the root in the fetched window, the oldest orphan starts the chain.
		isRoot := p.ID == focal.ConversationID || (len(thread) == 0 && byID[p.InReplyToID] == nil)
		if !isRoot && !included[p.InReplyToID] {
			continue
		}
		included[p.ID] = true
		thread = append(thread, p)
	}
	return thread, nil
}

// compareIDs orders numeric snowflake IDs without parsing them.
func compareIDs(a, b string) int {
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	return strings.Compare(a, b)
}

// GetVideoURL returns the best playable video URL of a post, or "" when the
// post carries no video or GIF.
func (c *Client) GetVideoURL(ctx context.Context, postID string) (string, error) {
	p, err := c.GetPost(ctx, postID)
	if err != nil {
		return "", err
	}
	return bestVideoURL(p), nil
}
