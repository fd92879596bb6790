package xactions

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// maxNestDepth caps quote/repost recursion. Upstream never nests deeper
// than one level; the cap only guards against malformed input.
const maxNestDepth = 3

const createdAtLayout = "Mon Jan 02 15:04:05 +0000 2006"

// --- Raw timeline shapes ---

type timelineObj struct {
	Instructions []timelineInstruction `json:"instructions"`
}

type timelineInstruction struct {
	Type        string          `json:"type"`
	Entries     []timelineEntry `json:"entries"`
	Entry       *timelineEntry  `json:"entry"`
	ModuleItems []moduleItem    `json:"moduleItems"`
}

type timelineEntry struct {
	EntryID   string          `json:"entryId"`
	SortIndex string          `json:"sortIndex"`
	Content   timelineContent `json:"content"`
}

type timelineContent struct {
	EntryType   string          `json:"entryType"`
	TypeName    string          `json:"__typename"`
	ItemContent json.RawMessage `json:"itemContent"`
	Items       []moduleItem    `json:"items"`
	Value       string          `json:"value"`
	CursorType  string          `json:"cursorType"`
}

type moduleItem struct {
	EntryID string `json:"entryId"`
	Item    struct {
		ItemContent json.RawMessage `json:"itemContent"`
	} `json:"item"`
}

type itemContent struct {
	TypeName     string `json:"__typename"`
	ItemType     string `json:"itemType"`
	TweetResults struct {
		Result *tweetResult `json:"result"`
	} `json:"tweet_results"`
	UserResults struct {
		Result userResult `json:"result"`
	} `json:"user_results"`
	Value      string `json:"value"`
	CursorType string `json:"cursorType"`
}

type userResult struct {
	TypeName string `json:"__typename"`
	ID       string `json:"id"`
	RestID   string `json:"rest_id"`
	Core     struct {
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
		CreatedAt  string `json:"created_at"`
	} `json:"core"`
	Legacy struct {
		Name            string `json:"name"`
		ScreenName      string `json:"screen_name"`
		FollowersCount  int    `json:"followers_count"`
		FriendsCount    int    `json:"friends_count"`
		StatusesCount   int    `json:"statuses_count"`
		ListedCount     int    `json:"listed_count"`
		CreatedAt       string `json:"created_at"`
		Verified        bool   `json:"verified"`
		Protected       bool   `json:"protected"`
		Description     string `json:"description"`
		ProfileImageURL string `json:"profile_image_url_https"`
	} `json:"legacy"`
	IsBlueVerified bool `json:"is_blue_verified"`
}

type tweetResult struct {
	TypeName string       `json:"__typename"`
	RestID   string       `json:"rest_id"`
	Tweet    *tweetResult `json:"tweet"`
	Core     struct {
		UserResults struct {
			Result userResult `json:"result"`
		} `json:"user_results"`
	} `json:"core"`
	NoteTweet struct {
		NoteTweetResults struct {
			Result struct {
				Text string `json:"text"`
			} `json:"result"`
		} `json:"note_tweet_results"`
	} `json:"note_tweet"`
	QuotedStatusResult struct {
		Result *tweetResult `json:"result"`
	} `json:"quoted_status_result"`
	Legacy tweetLegacy `json:"legacy"`
	Views  struct {
		Count string `json:"count"`
	} `json:"views"`
}

type tweetLegacy struct {
	FullText              string `json:"full_text"`
	CreatedAt             string `json:"created_at"`
	FavoriteCount         int    `json:"favorite_count"`
	RetweetCount          int    `json:"retweet_count"`
	ReplyCount            int    `json:"reply_count"`
	QuoteCount            int    `json:"quote_count"`
	BookmarkCount         int    `json:"bookmark_count"`
	UserIDStr             string `json:"user_id_str"`
	ConversationIDStr     string `json:"conversation_id_str"`
	InReplyToStatusIDStr  string `json:"in_reply_to_status_id_str"`
	RetweetedStatusResult struct {
		Result *tweetResult `json:"result"`
	} `json:"retweeted_status_result"`
	Entities struct {
		Media []mediaEntity `json:"media"`
	} `json:"entities"`
	ExtendedEntities struct {
		Media []mediaEntity `json:"media"`
	} `json:"extended_entities"`
}

type mediaEntity struct {
	IDStr         string `json:"id_str"`
	MediaKey      string `json:"media_key"`
	Type          string `json:"type"`
	MediaURLHTTPS string `json:"media_url_https"`
	ExtAltText    string `json:"ext_alt_text"`
	OriginalInfo  struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"original_info"`
	VideoInfo *struct {
		DurationMillis int `json:"duration_millis"`
		Variants       []struct {
			Bitrate     int    `json:"bitrate"`
			ContentType string `json:"content_type"`
			URL         string `json:"url"`
		} `json:"variants"`
	} `json:"video_info"`
}

// --- Decoding ---

// page is one decoded response: feed-ordered items plus the edge cursors.
type page struct {
	items  []Item
	top    string
	bottom string
	// more holds show-more cursors in feed order.
	more []string
}

// newPage splits cursors out of items. The last top and bottom cursors win;
// every show-more cursor is kept.
func newPage(items []Item) *page {
	p := &page{items: items}
	for _, it := range items {
		if it.Kind != ItemCursor {
			continue
		}
		switch it.Cursor.Direction {
		case CursorTop:
			p.top = it.Cursor.Value
		case CursorBottom:
			p.bottom = it.Cursor.Value
		case CursorShowMore:
			p.more = append(p.more, it.Cursor.Value)
		}
	}
	return p
}

// decodeTimeline flattens all instructions into feed-ordered items.
// Entries it does not recognize are skipped.
func decodeTimeline(tl timelineObj) []Item {
	var items []Item
	for _, instruction := range tl.Instructions {
		entries := instruction.Entries
		if instruction.Entry != nil {
			entries = append(entries, *instruction.Entry)
		}
		for _, entry := range entries {
			items = append(items, decodeEntry(entry)...)
		}
		for _, mi := range instruction.ModuleItems {
			items = append(items, decodeItemContent(mi.EntryID, mi.Item.ItemContent)...)
		}
	}
	return items
}

func decodeEntry(entry timelineEntry) []Item {
	c := entry.Content
	kind := c.EntryType
	if kind == "" {
		kind = c.TypeName
	}
	switch kind {
	case "TimelineTimelineCursor":
		if it, ok := cursorItem(entry.EntryID, c.Value, c.CursorType); ok {
			return []Item{it}
		}
		return nil
	case "TimelineTimelineItem":
		return decodeItemContent(entry.EntryID, c.ItemContent)
	case "TimelineTimelineModule":
		var items []Item
		for _, mi := range c.Items {
			items = append(items, decodeItemContent(mi.EntryID, mi.Item.ItemContent)...)
		}
		return items
	}
	slog.Debug("skip timeline entry", slog.String("entry", entry.EntryID), slog.String("type", kind))
	return nil
}

func decodeItemContent(entryID string, raw json.RawMessage) []Item {
	if len(raw) == 0 {
		return nil
	}
	var ic itemContent
	if err := json.Unmarshal(raw, &ic); err != nil {
		slog.Debug("skip undecodable item", slog.String("entry", entryID), slog.Any("error", err))
		return nil
	}
	kind := ic.TypeName
	if kind == "" {
		kind = ic.ItemType
	}
	switch kind {
	case "TimelineTweet":
		p := decodeTweet(ic.TweetResults.Result, 0)
		if p == nil {
			slog.Debug("skip unavailable post", slog.String("entry", entryID))
			return nil
		}
		return []Item{{Kind: ItemPost, EntryID: entryID, Post: p}}
	case "TimelineUser":
		u, err := decodeUser(ic.UserResults.Result)
		if err != nil {
			slog.Debug("skip user parse error", slog.String("entry", entryID), slog.Any("error", err))
			return nil
		}
		return []Item{{Kind: ItemUser, EntryID: entryID, User: u}}
	case "TimelineTimelineCursor":
		if it, ok := cursorItem(entryID, ic.Value, ic.CursorType); ok {
			return []Item{it}
		}
		return nil
	}
	slog.Debug("skip item content", slog.String("entry", entryID), slog.String("type", kind))
	return nil
}

func cursorItem(entryID, value, cursorType string) (Item, bool) {
	if value == "" {
		return Item{}, false
	}
	dir := CursorBottom
	switch {
	case cursorType == "Top" || strings.Contains(entryID, "cursor-top"):
		dir = CursorTop
	case cursorType == "ShowMore":
		dir = CursorShowMore
	}
	return Item{Kind: ItemCursor, EntryID: entryID, Cursor: &Cursor{Value: value, Direction: dir}}, true
}

// decodeTweet converts a tweet result, following quotes and reposts up to maxNestDepth.
// It returns nil for tombstones and results without an ID.
func decodeTweet(r *tweetResult, depth int) *Post {
	if r == nil || depth > maxNestDepth {
		return nil
	}
	switch r.TypeName {
	case "TweetWithVisibilityResults":
		return decodeTweet(r.Tweet, depth)
	case "TweetTombstone", "TweetUnavailable":
		return nil
	}
	if r.RestID == "" {
		return nil
	}

	author := r.Core.UserResults.Result
	p := &Post{
		ID:             r.RestID,
		AuthorID:       r.Legacy.UserIDStr,
		AuthorHandle:   firstNonEmpty(author.Core.ScreenName, author.Legacy.ScreenName),
		AuthorName:     firstNonEmpty(author.Core.Name, author.Legacy.Name),
		Text:           firstNonEmpty(r.NoteTweet.NoteTweetResults.Result.Text, r.Legacy.FullText),
		ConversationID: r.Legacy.ConversationIDStr,
		InReplyToID:    r.Legacy.InReplyToStatusIDStr,
		CreatedAt:      parseCreatedAt(r.Legacy.CreatedAt),
		Likes:          r.Legacy.FavoriteCount,
		Reposts:        r.Legacy.RetweetCount,
		Replies:        r.Legacy.ReplyCount,
		Quotes:         r.Legacy.QuoteCount,
		Bookmarks:      r.Legacy.BookmarkCount,
	}
	if p.AuthorID == "" {
		p.AuthorID = author.RestID
	}
	if r.Views.Count != "" {
		p.Views, _ = strconv.Atoi(r.Views.Count)
	}

	p.Quoted = decodeTweet(r.QuotedStatusResult.Result, depth+1)
	p.Original = decodeTweet(r.Legacy.RetweetedStatusResult.Result, depth+1)

	media := r.Legacy.ExtendedEntities.Media
	if len(media) == 0 {
		media = r.Legacy.Entities.Media
	}
	for _, m := range media {
		p.Media = append(p.Media, decodeMedia(m, p.ID))
	}
	return p
}

func decodeMedia(m mediaEntity, postID string) *Media {
	out := &Media{
		Type:    MediaPhoto,
		ID:      m.IDStr,
		Key:     m.MediaKey,
		PostID:  postID,
		URL:     m.MediaURLHTTPS,
		Width:   m.OriginalInfo.Width,
		Height:  m.OriginalInfo.Height,
		AltText: m.ExtAltText,
	}
	switch m.Type {
	case "video":
		out.Type = MediaVideo
	case "animated_gif":
		out.Type = MediaGIF
	}
	if m.VideoInfo != nil {
		out.DurationMillis = m.VideoInfo.DurationMillis
		for _, v := range m.VideoInfo.Variants {
			out.Variants = append(out.Variants, Variant{URL: v.URL, Bitrate: v.Bitrate, ContentType: v.ContentType})
		}
	}
	return out
}

func decodeUser(r userResult) (*User, error) {
	if r.TypeName == "UserUnavailable" {
		return nil, fmt.Errorf("user unavailable (suspended or restricted)")
	}
	if r.RestID == "" {
		return nil, fmt.Errorf("empty user rest_id (typename=%s)", r.TypeName)
	}
	bio := strings.TrimSpace(r.Legacy.Description)
	return &User{
		ID:          r.RestID,
		Handle:      firstNonEmpty(r.Core.ScreenName, r.Legacy.ScreenName),
		DisplayName: firstNonEmpty(r.Core.Name, r.Legacy.Name),
		Bio:         bio,
		Followers:   r.Legacy.FollowersCount,
		Following:   r.Legacy.FriendsCount,
		PostCount:   r.Legacy.StatusesCount,
		ListedCount: r.Legacy.ListedCount,
		CreatedAt:   parseCreatedAt(firstNonEmpty(r.Core.CreatedAt, r.Legacy.CreatedAt)),
		IsVerified:  r.Legacy.Verified || r.IsBlueVerified,
		Protected:   r.Legacy.Protected,
		HasAvatar:   r.Legacy.ProfileImageURL != "" && !strings.Contains(r.Legacy.ProfileImageURL, "default_profile"),
		HasBio:      bio != "",
	}, nil
}

func parseCreatedAt(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(createdAtLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
