package xactions

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (c recordedCall) variables(t *testing.T) map[string]any {
	t.Helper()
	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(c.query(t).Get("variables")), &v))
	return v
}

func (c recordedCall) operation() string {
	path := c.url
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path[strings.LastIndexByte(path, '/')+1:]
}

// routeByOperation answers GraphQL calls by operation name. Each operation
// serves its bodies in order, repeating the last one.
func routeByOperation(routes map[string][]string) func(recordedCall) fakeReply {
	served := map[string]int{}
	return func(call recordedCall) fakeReply {
		op := call.operation()
		bodies, found := routes[op]
		if !found {
			return fakeReply{status: 404, body: `{"errors":[{"code":34,"message":"no route for ` + op + `"}]}`}
		}
		i := min(served[op], len(bodies)-1)
		served[op]++
		return okReply(bodies[i])
	}
}

func callsFor(calls []recordedCall, op string) []recordedCall {
	var out []recordedCall
	for _, c := range calls {
		if c.operation() == op {
			out = append(out, c)
		}
	}
	return out
}

func TestGetUser(t *testing.T) {
	doer := &fakeDoer{replies: []fakeReply{okReply(userByScreenNameBody)}}
	c := newTestClient(t, doer)

	u, err := c.GetUser(context.Background(), "@testuser")
	require.NoError(t, err)
	assert.Equal(t, "12345", u.ID)
	assert.Equal(t, "testuser", u.Handle)
	assert.Equal(t, 100, u.Followers)
	assert.True(t, u.IsVerified)
	assert.True(t, u.HasAvatar)
	assert.True(t, u.HasBio)

	call := doer.recorded()[0]
	assert.Equal(t, "GET", call.method)
	assert.Equal(t, "UserByScreenName", call.operation())
	assert.Equal(t, "testuser", call.variables(t)["screen_name"])
	assert.NotEmpty(t, call.query(t).Get("features"))
}

func TestGetUser_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind ErrorKind
	}{
		{"unavailable", `{"data":{"user":{"result":{"__typename":"UserUnavailable"}}}}`, KindProtocol},
		{"empty user", `{"data":{"user":{}}}`, KindProtocol},
		{"no data", `{"meta":{}}`, KindMalformedResponse},
		{"not json", `<html>`, KindMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &fakeDoer{replies: []fakeReply{okReply(tt.body)}})
			_, err := c.GetUser(context.Background(), "x")
			assert.Equal(t, tt.kind, KindOf(err), "err: %v", err)
		})
	}
}

func TestUserTimeline(t *testing.T) {
	doer := &fakeDoer{handler: routeByOperation(map[string][]string{
		"UserByScreenName": {userByScreenNameBody},
		"UserTweets": {
			userTimelineBody(
				tweetEntry(tweet{id: "3", author: "12345", handle: "testuser", text: "c"}),
				tweetEntry(tweet{id: "2", author: "12345", handle: "testuser", text: "b"}),
				cursorEntry("top", "T1"),
				cursorEntry("bottom", "B1"),
			),
			userTimelineBody(
				tweetEntry(tweet{id: "1", author: "12345", handle: "testuser", text: "a"}),
				cursorEntry("top", "T2"),
			),
		},
	})}
	c := newTestClient(t, doer)

	posts, err := Collect(c.UserTimeline(context.Background(), "testuser", ListOptions{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2", "1"}, postIDs(t, posts))

	calls := doer.recorded()
	assert.Len(t, callsFor(calls, "UserByScreenName"), 1)
	pages := callsFor(calls, "UserTweets")
	require.Len(t, pages, 2)
	first := pages[0].variables(t)
	assert.Equal(t, "12345", first["userId"])
	assert.NotContains(t, first, "cursor")
	assert.Equal(t, "B1", pages[1].variables(t)["cursor"])
}

func TestUserTimeline_MalformedPage(t *testing.T) {
	doer := &fakeDoer{handler: routeByOperation(map[string][]string{
		"UserByScreenName": {userByScreenNameBody},
		"UserTweets":       {`{"data":{"user":{}}}`},
	})}
	c := newTestClient(t, doer)

	_, err := Collect(c.UserTimeline(context.Background(), "testuser", ListOptions{}))
	var shapeErr *MalformedResponseError
	require.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, "data.user.result", shapeErr.Path)
}

func TestFollowersAndFollowing(t *testing.T) {
	for _, op := range []string{"Followers", "Following"} {
		t.Run(op, func(t *testing.T) {
			doer := &fakeDoer{handler: routeByOperation(map[string][]string{
				"UserByScreenName": {userByScreenNameBody},
				op: {
					userTimelineBody(userEntry("1", "a"), userEntry("2", "b"), cursorEntry("bottom", "N1")),
					userTimelineBody(userEntry("3", "c"), userEntry("4", "d"), cursorEntry("bottom", "N2")),
				},
			})}
			c := newTestClient(t, doer)

			seq := c.Followers
			if op == "Following" {
				seq = c.Following
			}
			users, err := Collect(seq(context.Background(), "testuser", ListOptions{Limit: 3}))
			require.NoError(t, err)
			require.Len(t, users, 3)
			assert.Equal(t, "c", users[2].Handle)
			assert.Len(t, callsFor(doer.recorded(), op), 2)
		})
	}
}

func TestSearchTimeline(t *testing.T) {
	doer := &fakeDoer{handler: routeByOperation(map[string][]string{
		"SearchTimeline": {
			searchBody(tweetEntry(tweet{id: "50", author: "1", handle: "a", text: "golang"}), cursorEntry("bottom", "S1")),
			searchBody(cursorEntry("bottom", "S1")),
		},
	})}
	c := newTestClient(t, doer)

	posts, err := Collect(c.SearchTimeline(context.Background(), "golang lang:en", SearchOptions{Product: SearchTop}))
	require.NoError(t, err)
	assert.Equal(t, []string{"50"}, postIDs(t, posts))

	calls := doer.recorded()
	require.Len(t, calls, 2)
	v := calls[0].variables(t)
	assert.Equal(t, "golang lang:en", v["rawQuery"])
	assert.Equal(t, "Top", v["product"])
	assert.NotEmpty(t, calls[0].query(t).Get("fieldToggles"))
	assert.Equal(t, "S1", calls[1].variables(t)["cursor"])
}

func TestSearchUsers(t *testing.T) {
	doer := &fakeDoer{handler: routeByOperation(map[string][]string{
		"SearchTimeline": {searchBody(userEntry("8", "gopher"))},
	})}
	c := newTestClient(t, doer)

	users, err := Collect(c.SearchUsers(context.Background(), "gopher", ListOptions{}))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "gopher", users[0].Handle)
	assert.Equal(t, "People", doer.recorded()[0].variables(t)["product"])
}

func TestScrapeMedia(t *testing.T) {
	doer := &fakeDoer{handler: routeByOperation(map[string][]string{
		"UserByScreenName": {userByScreenNameBody},
		"UserMedia": {userTimelineBody(
			moduleEntry("profile-grid-0",
				tweet{id: "70", author: "12345", handle: "testuser", text: "v", legacyExtra: videoMediaJSON},
				tweet{id: "71", author: "12345", handle: "testuser", text: "p", legacyExtra: photoMediaJSON},
			),
		)},
	})}
	c := newTestClient(t, doer)

	media, err := Collect(c.ScrapeMedia(context.Background(), "testuser", ListOptions{}))
	require.NoError(t, err)
	require.Len(t, media, 2)
	assert.Equal(t, MediaVideo, media[0].Type)
	assert.Equal(t, "70", media[0].PostID)
	assert.Equal(t, MediaPhoto, media[1].Type)
	assert.Equal(t, "a cat", media[1].AltText)
}

func TestThreadOf(t *testing.T) {
	root := tweet{id: "998", author: "1", handle: "author", text: "1/", conversation: "998"}
	second := tweet{id: "999", author: "1", handle: "author", text: "2/", conversation: "998", replyTo: "998"}
	other := tweet{id: "1000", author: "2", handle: "someone", text: "nice", conversation: "998", replyTo: "998"}
	third := tweet{id: "1001", author: "1", handle: "author", text: "3/", conversation: "998", replyTo: "999"}
	answer := tweet{id: "1002", author: "1", handle: "author", text: "thanks", conversation: "998", replyTo: "1000"}

	doer := &fakeDoer{handler: routeByOperation(map[string][]string{
		"TweetDetail": {
			conversationBody(
				tweetEntry(second),
				moduleEntry("conversationthread-1000", other, answer),
				tweetEntry(root),
				cursorEntry("bottom", "MORE"),
			),
			conversationBody(moduleEntry("conversationthread-1001", third)),
		},
	})}
	c := newTestClient(t, doer)

	thread, err := c.ThreadOf(context.Background(), "999")
	require.NoError(t, err)
	assert.Equal(t, []string{"998", "999", "1001"}, postIDs(t, thread))

	calls := doer.recorded()
	require.Len(t, calls, 2)
	assert.Equal(t, "999", calls[0].variables(t)["focalTweetId"])
	assert.Equal(t, "MORE", calls[1].variables(t)["cursor"])
}

func TestThreadOf_FocalMissing(t *testing.T) {
	doer := &fakeDoer{replies: []fakeReply{okReply(conversationBody())}}
	c := newTestClient(t, doer)

	_, err := c.ThreadOf(context.Background(), "5")
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, 404, protoErr.Status)
}

func TestCompareIDs(t *testing.T) {
	assert.Negative(t, compareIDs("999", "1000"))
	assert.Positive(t, compareIDs("1001", "1000"))
	assert.Zero(t, compareIDs("42", "42"))
}

func TestGetPostAndVideoURL(t *testing.T) {
	videoPost := tweet{id: "60", author: "1", handle: "a", text: "watch", legacyExtra: videoMediaJSON}
	photoPost := tweet{id: "61", author: "1", handle: "a", text: "look", legacyExtra: photoMediaJSON}
	doer := &fakeDoer{replies: []fakeReply{
		okReply(tweetResultBody(videoPost)),
		okReply(tweetResultBody(photoPost)),
		okReply(`{"data":{"tweetResult":{"result":{"__typename":"TweetTombstone"}}}}`),
	}}
	c := newTestClient(t, doer)

	u, err := c.GetVideoURL(context.Background(), "60")
	require.NoError(t, err)
	assert.Equal(t, "https://video.twimg.com/ext_tw_video/777/vid/1280x720/high.mp4", u)

	u, err = c.GetVideoURL(context.Background(), "61")
	require.NoError(t, err)
	assert.Empty(t, u)

	_, err = c.GetPost(context.Background(), "62")
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, 404, protoErr.Status)

	assert.Equal(t, "60", doer.recorded()[0].variables(t)["tweetId"])
}

func TestThreadOf_ExpandsShowMore(t *testing.T) {
	root := tweet{id: "998", author: "1", handle: "author", text: "1/", conversation: "998"}
	second := tweet{id: "999", author: "1", handle: "author", text: "2/", conversation: "998", replyTo: "998"}
	third := tweet{id: "1001", author: "1", handle: "author", text: "3/", conversation: "998", replyTo: "999"}
	fourth := tweet{id: "1003", author: "1", handle: "author", text: "4/", conversation: "998", replyTo: "1001"}

	doer := &fakeDoer{handler: func(call recordedCall) fakeReply {
		switch {
		case strings.Contains(call.url, "SHOWMORE"):
			return okReply(conversationBody(moduleEntry("conversationthread-999", third, fourth)))
		case strings.Contains(call.url, "BOTTOM"):
			return okReply(conversationBody())
		}
		return okReply(conversationBody(
			tweetEntry(root),
			moduleOf("conversationthread-999",
				moduleTweet("conversationthread-999", second),
				moduleShowMore("conversationthread-999", "SHOWMORE"),
			),
			cursorEntry("bottom", "BOTTOM"),
		))
	}}
	c := newTestClient(t, doer)

	thread, err := c.ThreadOf(context.Background(), "999")
	require.NoError(t, err)
	assert.Equal(t, []string{"998", "999", "1001", "1003"}, postIDs(t, thread))

	calls := doer.recorded()
	require.Len(t, calls, 3)
	assert.Equal(t, "SHOWMORE", calls[1].variables(t)["cursor"])
	assert.Equal(t, "BOTTOM", calls[2].variables(t)["cursor"])
}
