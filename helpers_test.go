package xactions

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	method  string
	url     string
	headers map[string]string
	body    []byte
}

// form decodes an urlencoded or multipart body. File parts are returned
// under their field name with the byte length as value.
func (c recordedCall) form(t *testing.T) url.Values {
	t.Helper()
	ct := c.headers["content-type"]
	if strings.HasPrefix(ct, formContentType) {
		v, err := url.ParseQuery(string(c.body))
		require.NoError(t, err)
		return v
	}
	_, params, err := mime.ParseMediaType(ct)
	require.NoError(t, err)
	r := multipart.NewReader(bytes.NewReader(c.body), params["boundary"])
	out := url.Values{}
	for {
		part, err := r.NextPart()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		data, err := io.ReadAll(part)
		require.NoError(t, err)
		if part.FileName() != "" {
			out.Set(part.FormName(), strconv.Itoa(len(data)))
			continue
		}
		out.Set(part.FormName(), string(data))
	}
}

func (c recordedCall) query(t *testing.T) url.Values {
	t.Helper()
	u, err := url.Parse(c.url)
	require.NoError(t, err)
	return u.Query()
}

type fakeReply struct {
	status  int
	body    string
	headers map[string]string
	err     error
	delay   time.Duration
}

// fakeDoer records every exchange and answers from a script.
type fakeDoer struct {
	mu      sync.Mutex
	calls   []recordedCall
	replies []fakeReply
	handler func(recordedCall) fakeReply
}

func (f *fakeDoer) DoWithHeaderOrder(method, rawURL string, headers map[string]string, body io.Reader, _ []string) ([]byte, map[string]string, int, error) {
	var b []byte
	if body != nil {
		b, _ = io.ReadAll(body)
	}
	call := recordedCall{method: method, url: rawURL, headers: headers, body: b}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	var r fakeReply
	switch {
	case f.handler != nil:
		r = f.handler(call)
	case len(f.replies) > 0:
		r = f.replies[0]
		f.replies = f.replies[1:]
	default:
		r = fakeReply{status: 500, body: `{"errors":[{"code":0,"message":"unexpected call"}]}`}
	}
	f.mu.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return []byte(r.body), r.headers, r.status, r.err
}

func (f *fakeDoer) recorded() []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedCall(nil), f.calls...)
}

func okReply(body string) fakeReply { return fakeReply{status: 200, body: body} }

func newTestClient(t *testing.T, doer Doer, mutate ...func(*ClientConfig)) *Client {
	t.Helper()
	cfg := ClientConfig{
		Credentials:    StaticCredentials(NewAccount("tester", "token", "csrf")),
		Doer:           doer,
		DisableJitter:  true,
		RequestTimeout: 5 * time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}
