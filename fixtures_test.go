package xactions

import (
	"fmt"
	"strings"
)

const userByScreenNameBody = `{
	"data": {
		"user": {
			"result": {
				"__typename": "User",
				"id": "VXNlcjoxMjM0NQ==",
				"rest_id": "12345",
				"legacy": {
					"name": "Test User",
					"screen_name": "testuser",
					"followers_count": 100,
					"friends_count": 50,
					"statuses_count": 200,
					"listed_count": 5,
					"created_at": "Mon Jan 02 15:04:05 +0000 2020",
					"verified": false,
					"description": "Hello world",
					"profile_image_url_https": "https://pbs.twimg.com/profile_images/123/photo.jpg"
				},
				"is_blue_verified": true
			}
		}
	}
}`

// tweet is a compact description of a fixture post.
type tweet struct {
	id, author, handle, text string
	conversation, replyTo    string
	likes                    int
	extra                    string // raw JSON members appended to the result object
	legacyExtra              string // raw JSON members appended to legacy
}

func (tw tweet) result() string {
	conv := tw.conversation
	if conv == "" {
		conv = tw.id
	}
	legacy := fmt.Sprintf(`"full_text":%q,"created_at":"Wed Oct 10 20:19:24 +0000 2018","favorite_count":%d,"retweet_count":2,"reply_count":1,"user_id_str":%q,"conversation_id_str":%q`,
		tw.text, tw.likes, tw.author, conv)
	if tw.replyTo != "" {
		legacy += fmt.Sprintf(`,"in_reply_to_status_id_str":%q`, tw.replyTo)
	}
	if tw.legacyExtra != "" {
		legacy += "," + tw.legacyExtra
	}
	out := fmt.Sprintf(`{"__typename":"Tweet","rest_id":%q,"core":{"user_results":{"result":{"__typename":"User","rest_id":%q,"legacy":{"name":"Name %s","screen_name":%q}}}},"views":{"count":"1000"},"legacy":{%s}`,
		tw.id, tw.author, tw.handle, tw.handle, legacy)
	if tw.extra != "" {
		out += "," + tw.extra
	}
	return out + "}"
}

func tweetEntry(tw tweet) string {
	return fmt.Sprintf(`{"entryId":"tweet-%s","sortIndex":"1","content":{"entryType":"TimelineTimelineItem","__typename":"TimelineTimelineItem","itemContent":{"itemType":"TimelineTweet","__typename":"TimelineTweet","tweet_results":{"result":%s}}}}`,
		tw.id, tw.result())
}

func userEntry(id, handle string) string {
	return fmt.Sprintf(`{"entryId":"user-%s","sortIndex":"1","content":{"entryType":"TimelineTimelineItem","__typename":"TimelineTimelineItem","itemContent":{"itemType":"TimelineUser","__typename":"TimelineUser","user_results":{"result":{"__typename":"User","rest_id":%q,"legacy":{"name":"Name %s","screen_name":%q,"followers_count":3}}}}}}`,
		id, id, handle, handle)
}

func cursorEntry(direction, value string) string {
	entryType := "Bottom"
	if direction == "top" {
		entryType = "Top"
	}
	return fmt.Sprintf(`{"entryId":"cursor-%s-0","sortIndex":"0","content":{"entryType":"TimelineTimelineCursor","__typename":"TimelineTimelineCursor","value":%q,"cursorType":%q}}`,
		direction, value, entryType)
}

func moduleEntry(id string, tweets ...tweet) string {
	items := make([]string, len(tweets))
	for i, tw := range tweets {
		items[i] = moduleTweet(id, tw)
	}
	return moduleOf(id, items...)
}

func moduleTweet(moduleID string, tw tweet) string {
	return fmt.Sprintf(`{"entryId":"%s-tweet-%s","item":{"itemContent":{"itemType":"TimelineTweet","__typename":"TimelineTweet","tweet_results":{"result":%s}}}}`,
		moduleID, tw.id, tw.result())
}

// moduleShowMore is the cursor that expands a collapsed conversation module.
func moduleShowMore(moduleID, value string) string {
	return fmt.Sprintf(`{"entryId":"%s-cursor-showmore-%s","item":{"itemContent":{"itemType":"TimelineTimelineCursor","__typename":"TimelineTimelineCursor","value":%q,"cursorType":"ShowMore"}}}`,
		moduleID, value, value)
}

func moduleOf(id string, items ...string) string {
	return fmt.Sprintf(`{"entryId":%q,"sortIndex":"1","content":{"entryType":"TimelineTimelineModule","__typename":"TimelineTimelineModule","items":[%s]}}`,
		id, strings.Join(items, ","))
}

func timelineJSON(entries ...string) string {
	return fmt.Sprintf(`{"instructions":[{"type":"TimelineClearCache"},{"type":"TimelineAddEntries","entries":[%s]}]}`,
		strings.Join(entries, ","))
}

func userTimelineBody(entries ...string) string {
	return fmt.Sprintf(`{"data":{"user":{"result":{"__typename":"User","timeline":{"timeline":%s}}}}}`, timelineJSON(entries...))
}

func searchBody(entries ...string) string {
	return fmt.Sprintf(`{"data":{"search_by_raw_query":{"search_timeline":{"timeline":%s}}}}`, timelineJSON(entries...))
}

func conversationBody(entries ...string) string {
	return fmt.Sprintf(`{"data":{"threaded_conversation_with_injections_v2":%s}}`, timelineJSON(entries...))
}

func tweetResultBody(tw tweet) string {
	return fmt.Sprintf(`{"data":{"tweetResult":{"result":%s}}}`, tw.result())
}

const videoMediaJSON = `"extended_entities":{"media":[{"id_str":"777","media_key":"7_777","type":"video","media_url_https":"https://pbs.twimg.com/thumb.jpg","original_info":{"width":1920,"height":1080},"video_info":{"duration_millis":12000,"variants":[
	{"content_type":"application/x-mpegURL","url":"https://video.twimg.com/ext_tw_video/777/pl/playlist.m3u8"},
	{"bitrate":256000,"content_type":"video/mp4","url":"https://video.twimg.com/ext_tw_video/777/vid/480x270/low.mp4"},
	{"bitrate":2176000,"content_type":"video/mp4","url":"https://video.twimg.com/ext_tw_video/777/vid/1280x720/high.mp4"},
	{"bitrate":832000,"content_type":"video/mp4","url":"https://video.twimg.com/ext_tw_video/777/vid/640x360/mid.mp4"}
]}}]}`

const photoMediaJSON = `"extended_entities":{"media":[{"id_str":"555","media_key":"3_555","type":"photo","media_url_https":"https://pbs.twimg.com/media/a.jpg","ext_alt_text":"a cat","original_info":{"width":800,"height":600}}]}`
