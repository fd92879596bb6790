package xactions

import (
	"encoding/json"
)

type gqlErrors struct {
	Errors []apiError `json:"errors"`
}

// firstError turns an in-body error list into a ProtocolError.
func (e gqlErrors) firstError(endpoint string) error {
	if len(e.Errors) == 0 {
		return nil
	}
	return &ProtocolError{Endpoint: endpoint, Status: 200, Code: e.Errors[0].Code, Message: e.Errors[0].Message}
}

func notFound(endpoint, what string) error {
	return &ProtocolError{Endpoint: endpoint, Status: 404, Message: what + " not found"}
}

// userTimelinePage decodes Followers, Following, UserTweets and UserMedia responses.
func userTimelinePage(body []byte) (*page, error) {
	var raw struct {
		Data *struct {
			User struct {
				Result *struct {
					TypeName string `json:"__typename"`
					Timeline struct {
						Timeline timelineObj `json:"timeline"`
					} `json:"timeline"`
					TimelineV2 struct {
						Timeline timelineObj `json:"timeline"`
					} `json:"timeline_v2"`
				} `json:"result"`
			} `json:"user"`
		} `json:"data"`
	}
	if err := decodeJSON(body, &raw, "$"); err != nil {
		return nil, err
	}
	if raw.Data == nil {
		return nil, &MalformedResponseError{Path: "data"}
	}
	res := raw.Data.User.Result
	if res == nil {
		return nil, &MalformedResponseError{Path: "data.user.result"}
	}
	tl := res.Timeline.Timeline
	if len(tl.Instructions) == 0 {
		tl = res.TimelineV2.Timeline
	}
	return newPage(decodeTimeline(tl)), nil
}

// searchPage decodes a SearchTimeline response.
func searchPage(body []byte) (*page, error) {
	var raw struct {
		Data *struct {
			SearchByRawQuery *struct {
				SearchTimeline struct {
					Timeline timelineObj `json:"timeline"`
				} `json:"search_timeline"`
			} `json:"search_by_raw_query"`
		} `json:"data"`
	}
	if err := decodeJSON(body, &raw, "$"); err != nil {
		return nil, err
	}
	if raw.Data == nil {
		return nil, &MalformedResponseError{Path: "data"}
	}
	if raw.Data.SearchByRawQuery == nil {
		return nil, &MalformedResponseError{Path: "data.search_by_raw_query"}
	}
	return newPage(decodeTimeline(raw.Data.SearchByRawQuery.SearchTimeline.Timeline)), nil
}

// conversationPage decodes a TweetDetail response.
func conversationPage(body []byte) (*page, error) {
	var raw struct {
		Data *struct {
			Conversation *timelineObj `json:"threaded_conversation_with_injections_v2"`
		} `json:"data"`
	}
	if err := decodeJSON(body, &raw, "$"); err != nil {
		return nil, err
	}
	if raw.Data == nil {
		return nil, &MalformedResponseError{Path: "data"}
	}
	if raw.Data.Conversation == nil {
		return nil, &MalformedResponseError{Path: "data.threaded_conversation_with_injections_v2"}
	}
	return newPage(decodeTimeline(*raw.Data.Conversation)), nil
}

// parseUserByScreenName parses the UserByScreenName response.
func parseUserByScreenName(body []byte) (*User, error) {
	var raw struct {
		Data *struct {
			User *struct {
				Result *userResult `json:"result"`
			} `json:"user"`
		} `json:"data"`
		gqlErrors
	}
	if err := decodeJSON(body, &raw, "$"); err != nil {
		return nil, err
	}
	if raw.Data == nil {
		if err := raw.firstError("UserByScreenName"); err != nil {
			return nil, err
		}
		return nil, &MalformedResponseError{Path: "data"}
	}
	if raw.Data.User == nil || raw.Data.User.Result == nil {
		return nil, notFound("UserByScreenName", "user")
	}
	u, err := decodeUser(*raw.Data.User.Result)
	if err != nil {
		return nil, &ProtocolError{Endpoint: "UserByScreenName", Status: 404, Message: err.Error()}
	}
	return u, nil
}

// parseTweetResult parses the TweetResultByRestId response.
func parseTweetResult(body []byte) (*Post, error) {
	var raw struct {
		Data *struct {
			TweetResult struct {
				Result *tweetResult `json:"result"`
			} `json:"tweetResult"`
		} `json:"data"`
		gqlErrors
	}
	if err := decodeJSON(body, &raw, "$"); err != nil {
		return nil, err
	}
	if raw.Data == nil {
		if err := raw.firstError("TweetResultByRestId"); err != nil {
			return nil, err
		}
		return nil, &MalformedResponseError{Path: "data"}
	}
	p := decodeTweet(raw.Data.TweetResult.Result, 0)
	if p == nil {
		return nil, notFound("TweetResultByRestId", "post")
	}
	return p, nil
}

// parseCreateTweet extracts the post ID from a CreateTweet mutation response.
func parseCreateTweet(body []byte) (string, error) {
	var raw struct {
		Data struct {
			CreateTweet struct {
				TweetResults struct {
					Result struct {
						RestID string `json:"rest_id"`
					} `json:"result"`
				} `json:"tweet_results"`
			} `json:"create_tweet"`
		} `json:"data"`
		gqlErrors
	}
	if err := decodeJSON(body, &raw, "$"); err != nil {
		return "", err
	}
	if err := raw.firstError("CreateTweet"); err != nil {
		return "", err
	}
	id := raw.Data.CreateTweet.TweetResults.Result.RestID
	if err := requireField(id, "data.create_tweet.tweet_results.result.rest_id"); err != nil {
		return "", err
	}
	return id, nil
}

// parseMutationAck checks a mutation whose payload is only an acknowledgement.
func parseMutationAck(body []byte, endpoint, field string) error {
	var raw struct {
		Data map[string]json.RawMessage `json:"data"`
		gqlErrors
	}
	if err := decodeJSON(body, &raw, "$"); err != nil {
		return err
	}
	if err := raw.firstError(endpoint); err != nil {
		return err
	}
	if _, ok := raw.Data[field]; !ok {
		return &MalformedResponseError{Path: "data." + field}
	}
	return nil
}
