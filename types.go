package xactions

import "time"

// User represents an account profile.
type User struct {
	ID          string
	Handle      string
	DisplayName string
	Bio         string
	Followers   int
	Following   int
	PostCount   int
	ListedCount int
	CreatedAt   time.Time
	IsVerified  bool
	Protected   bool
	HasAvatar   bool
	HasBio      bool
}

// Post represents a single post. ID is stable and used as the pagination dedup key.
type Post struct {
	ID             string
	AuthorID       string
	AuthorHandle   string
	AuthorName     string
	Text           string
	ConversationID string
	InReplyToID    string
	CreatedAt      time.Time
	Views          int
	Likes          int
	Reposts        int
	Replies        int
	Quotes         int
	Bookmarks      int

	// Quoted is the post embedded by a quote-post.
	Quoted *Post
	// Original is the reposted post when this entry is a plain repost.
	Original *Post

	Media []*Media
}

// IsRepost reports whether the post is a plain repost of Original.
func (p *Post) IsRepost() bool { return p.Original != nil }

// MediaType tags a media entity.
type MediaType string

const (
	MediaPhoto MediaType = "photo"
	MediaVideo MediaType = "video"
	MediaGIF   MediaType = "gif"
)

// Media is a photo, video or GIF attached to a post.
type Media struct {
	Type           MediaType
	ID             string
	Key            string
	PostID         string
	URL            string
	Width          int
	Height         int
	AltText        string
	DurationMillis int

	// Variants lists the encoded renditions of a video or GIF. It may include
	// streaming manifests that are not directly playable.
	Variants []Variant
}

// Variant is one encoded rendition of a video or GIF.
type Variant struct {
	URL         string
	Bitrate     int
	ContentType string
	Width       int
	Height      int
}

// CursorDirection tells which end of a feed a cursor points to.
type CursorDirection string

const (
	CursorTop    CursorDirection = "top"
	CursorBottom CursorDirection = "bottom"
	// CursorShowMore expands a collapsed part of a conversation in place.
	CursorShowMore CursorDirection = "show_more"
)

// Cursor is an opaque position in a paginated feed. A cursor only has
// meaning for the query and variables that produced it.
type Cursor struct {
	Value     string
	Direction CursorDirection
}

// ItemKind tags a timeline item.
type ItemKind int

const (
	ItemPost ItemKind = iota + 1
	ItemUser
	ItemCursor
)

// Item is one decoded timeline entry. Exactly one of Post, User or Cursor is set,
// matching Kind.
type Item struct {
	Kind    ItemKind
	EntryID string
	Post    *Post
	User    *User
	Cursor  *Cursor
}

// ListOptions bounds a paginated read.
type ListOptions struct {
	// Limit caps the number of items yielded. Zero or negative uses the client default.
	Limit int
	// Cursor starts the walk from an externally obtained cursor for the same query.
	Cursor string
}

// SearchProduct selects the search tab.
type SearchProduct string

const (
	SearchLatest SearchProduct = "Latest"
	SearchTop    SearchProduct = "Top"
	SearchPeople SearchProduct = "People"
	SearchMedia  SearchProduct = "Media"
)

// SearchOptions configures SearchTimeline.
type SearchOptions struct {
	ListOptions
	// Product defaults to SearchLatest.
	Product SearchProduct
}

// PostOptions configures CreatePost.
type PostOptions struct {
	MediaIDs []string
	// ReplyTo makes the post a reply to the given post ID.
	ReplyTo string
}
