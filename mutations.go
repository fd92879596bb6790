package xactions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

const (
	jsonContentType = "application/json"
	maxAltTextRunes = 1000
)

// mutate POSTs a GraphQL mutation and returns the raw body.
func (c *Client) mutate(ctx context.Context, operation string, variables map[string]any) ([]byte, error) {
	ep, err := lookupEndpoint(operation)
	if err != nil {
		return nil, err
	}
	payload, err := graphQLBody(ep, variables)
	if err != nil {
		return nil, fmt.Errorf("%s: encode: %w", operation, err)
	}
	resp, err := c.guard.do(ctx, request{
		endpoint:    operation,
		method:      "POST",
		url:         ep.URL(),
		body:        bytes.NewReader(payload),
		contentType: jsonContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return resp.body, nil
}

// CreatePost publishes text, optionally with uploaded media or as a reply,
// and returns the new post ID.
func (c *Client) CreatePost(ctx context.Context, text string, opts PostOptions) (string, error) {
	entities := make([]map[string]any, 0, len(opts.MediaIDs))
	for _, id := range opts.MediaIDs {
		entities = append(entities, map[string]any{"media_id": id, "tagged_users": []string{}})
	}
	variables := map[string]any{
		"tweet_text":   text,
		"dark_request": false,
		"media": map[string]any{
			"media_entities":     entities,
			"possibly_sensitive": false,
		},
		"semantic_annotation_ids": []string{},
	}
	if opts.ReplyTo != "" {
		variables["reply"] = map[string]any{
			"in_reply_to_tweet_id":   opts.ReplyTo,
			"exclude_reply_user_ids": []string{},
		}
	}

	body, err := c.mutate(ctx, "CreateTweet", variables)
	if err != nil {
		return "", err
	}
	return parseCreateTweet(body)
}

// Like favorites a post.
func (c *Client) Like(ctx context.Context, postID string) error {
	body, err := c.mutate(ctx, "FavoriteTweet", map[string]any{"tweet_id": postID})
	if err != nil {
		return err
	}
	return parseMutationAck(body, "FavoriteTweet", "favorite_tweet")
}

// DeletePost removes one of the session's own posts.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	body, err := c.mutate(ctx, "DeleteTweet", map[string]any{"tweet_id": postID, "dark_request": false})
	if err != nil {
		return err
	}
	return parseMutationAck(body, "DeleteTweet", "delete_tweet")
}

// SetAltText attaches accessibility text to uploaded media before it is posted.
func (c *Client) SetAltText(ctx context.Context, mediaID, text string) error {
	if n := utf8.RuneCountInString(text); n > maxAltTextRunes {
		return fmt.Errorf("%s: alt text is %d characters, limit is %d", opMediaMetadata, n, maxAltTextRunes)
	}
	payload, err := json.Marshal(map[string]any{
		"media_id": mediaID,
		"alt_text": map[string]string{"text": text},
	})
	if err != nil {
		return fmt.Errorf("%s: encode: %w", opMediaMetadata, err)
	}
	if _, err := c.guard.do(ctx, request{
		endpoint:    opMediaMetadata,
		method:      "POST",
		url:         mediaMetadataURL,
		body:        bytes.NewReader(payload),
		contentType: jsonContentType,
	}); err != nil {
		return fmt.Errorf("%s: %w", opMediaMetadata, err)
	}
	return nil
}
