package xactions

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	stealth "github.com/anatolykoptev/go-stealth"

	"github.com/nirholas/go-xactions/sniff"
)

// Upload categories.
const (
	CategoryImage = "tweet_image"
	CategoryGIF   = "tweet_gif"
	CategoryVideo = "tweet_video"
)

// Payload ceilings per category, checked before INIT.
var uploadLimits = map[string]int{
	CategoryImage: 5 * 1024 * 1024,
	CategoryGIF:   15 * 1024 * 1024,
	CategoryVideo: 512 * 1024 * 1024,
}

// Content types sent when the payload cannot be sniffed.
var fallbackContentType = map[string]string{
	CategoryImage: sniff.JPEG,
	CategoryGIF:   sniff.GIF,
	CategoryVideo: sniff.MP4,
}

// statusBackoff paces STATUS polls when the server gives no check_after_secs.
var statusBackoff = stealth.BackoffConfig{
	InitialWait: time.Second,
	MaxWait:     10 * time.Second,
	Multiplier:  1.5,
	JitterPct:   0.2,
}

// UploadState is the position of an upload in the INIT/APPEND/FINALIZE/STATUS sequence.
type UploadState int

const (
	StateIdle UploadState = iota
	StateInitialized
	StateAppending
	StateFinalized
	StateProcessing
	StateSucceeded
	StateFailed
)

func (s UploadState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitialized:
		return "initialized"
	case StateAppending:
		return "appending"
	case StateFinalized:
		return "finalized"
	case StateProcessing:
		return "processing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// UploadOptions tunes a single upload.
type UploadOptions struct {
	// Category is tweet_image, tweet_gif or tweet_video. Empty means sniff it.
	Category string
	// Filename names the payload; its extension outranks content sniffing.
	Filename string
	// ChunkSize overrides the client's APPEND segment size.
	ChunkSize int
	// OnProgress is called after each APPEND and each processing report.
	OnProgress func(UploadProgress)
}

// UploadProgress reports upload advancement. Phase is "append" or "processing".
type UploadProgress struct {
	Phase   string
	Percent int
}

// UploadResult identifies uploaded media for CreatePost.
type UploadResult struct {
	MediaID  string
	MediaKey string
}

type processingInfo struct {
	State           string `json:"state"`
	CheckAfterSecs  *int   `json:"check_after_secs"`
	ProgressPercent int    `json:"progress_percent"`
	Error           *struct {
		Code    int    `json:"code"`
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"error"`
}

type uploadResponse struct {
	MediaIDString  string          `json:"media_id_string"`
	MediaKey       string          `json:"media_key"`
	ProcessingInfo *processingInfo `json:"processing_info"`
}

// uploadSession carries one upload through its states. It lives for a single
// call and is never reused.
type uploadSession struct {
	g           *guard
	data        []byte
	category    string
	contentType string
	filename    string
	chunkSize   int
	onProgress  func(UploadProgress)

	state      UploadState
	mediaID    string
	mediaKey   string
	processing *processingInfo
	polls      int
}

// UploadImage uploads a still image (tweet_image, up to 5 MB).
func (c *Client) UploadImage(ctx context.Context, data []byte) (*UploadResult, error) {
	return c.UploadMedia(ctx, data, UploadOptions{Category: CategoryImage})
}

// UploadGif uploads an animated GIF (tweet_gif, up to 15 MB).
func (c *Client) UploadGif(ctx context.Context, data []byte) (*UploadResult, error) {
	return c.UploadMedia(ctx, data, UploadOptions{Category: CategoryGIF})
}

// UploadVideo uploads a video (tweet_video, up to 512 MB) and waits for
// server-side processing to finish.
func (c *Client) UploadVideo(ctx context.Context, data []byte, opts UploadOptions) (*UploadResult, error) {
	opts.Category = CategoryVideo
	return c.UploadMedia(ctx, data, opts)
}

// UploadMedia runs the chunked upload sequence for data.
func (c *Client) UploadMedia(ctx context.Context, data []byte, opts UploadOptions) (*UploadResult, error) {
	s, err := c.newUploadSession(data, opts)
	if err != nil {
		return nil, err
	}
	return s.run(ctx)
}

func (c *Client) newUploadSession(data []byte, opts UploadOptions) (*uploadSession, error) {
	ct := sniff.Detect(opts.Filename, data)
	category := opts.Category
	if category == "" {
		category = categoryFor(ct)
	}
	limit, ok := uploadLimits[category]
	if !ok {
		return nil, fmt.Errorf("upload: unknown media category %q", category)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("upload: empty payload")
	}
	if len(data) > limit {
		return nil, &PayloadTooLargeError{Category: category, Size: len(data), Limit: limit}
	}
	if ct == "" {
		ct = fallbackContentType[category]
	}
	chunk := opts.ChunkSize
	if chunk <= 0 {
		chunk = c.cfg.ChunkSize
	}
	name := opts.Filename
	if name == "" {
		name = "blob"
	}
	return &uploadSession{
		g:           c.guard,
		data:        data,
		category:    category,
		contentType: ct,
		filename:    name,
		chunkSize:   chunk,
		onProgress:  opts.OnProgress,
	}, nil
}

func categoryFor(contentType string) string {
	switch {
	case contentType == sniff.GIF:
		return CategoryGIF
	case sniff.IsVideo(contentType):
		return CategoryVideo
	}
	return CategoryImage
}

func (s *uploadSession) run(ctx context.Context) (*UploadResult, error) {
	if err := s.initialize(ctx); err != nil {
		return nil, err
	}
	if err := s.appendChunks(ctx); err != nil {
		return nil, err
	}
	if err := s.finalize(ctx); err != nil {
		return nil, err
	}
	for s.state == StateProcessing {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		if err := s.status(ctx); err != nil {
			return nil, err
		}
	}
	if s.state == StateFailed {
		return nil, s.processingError()
	}

	key := s.mediaKey
	if key == "" {
		key = "3_" + s.mediaID
	}
	slog.Debug("upload complete",
		slog.String("media_id", s.mediaID),
		slog.String("category", s.category),
		slog.Int("bytes", len(s.data)))
	return &UploadResult{MediaID: s.mediaID, MediaKey: key}, nil
}

func (s *uploadSession) initialize(ctx context.Context) error {
	body, ct := encodeForm(url.Values{
		"command":        {"INIT"},
		"total_bytes":    {strconv.Itoa(len(s.data))},
		"media_type":     {s.contentType},
		"media_category": {s.category},
	})
	resp, err := s.send(ctx, opUploadInit, "POST", uploadURL, body, ct)
	if err != nil {
		return err
	}
	if err := requireField(resp.MediaIDString, "media_id_string"); err != nil {
		return fmt.Errorf("%s: %w", opUploadInit, err)
	}
	s.mediaID = resp.MediaIDString
	s.mediaKey = resp.MediaKey
	s.state = StateInitialized
	return nil
}

func (s *uploadSession) appendChunks(ctx context.Context) error {
	s.state = StateAppending
	n := (len(s.data) + s.chunkSize - 1) / s.chunkSize
	for i := range n {
		end := min((i+1)*s.chunkSize, len(s.data))
		body, ct, err := encodeMultipart([]formField{
			{Name: "command", Value: "APPEND"},
			{Name: "media_id", Value: s.mediaID},
			{Name: "segment_index", Value: strconv.Itoa(i)},
		}, "media", s.filename, s.data[i*s.chunkSize:end])
		if err != nil {
			return fmt.Errorf("%s: %w", opUploadAppend, err)
		}
		if _, err := s.g.do(ctx, request{
			endpoint:    opUploadAppend,
			method:      "POST",
			url:         uploadURL,
			body:        body,
			contentType: ct,
		}); err != nil {
			return fmt.Errorf("%s segment %d: %w", opUploadAppend, i, err)
		}
		s.progress("append", (i+1)*100/n)
	}
	return nil
}

func (s *uploadSession) finalize(ctx context.Context) error {
	body, ct := encodeForm(url.Values{
		"command":  {"FINALIZE"},
		"media_id": {s.mediaID},
	})
	resp, err := s.send(ctx, opUploadFinalize, "POST", uploadURL, body, ct)
	if err != nil {
		return err
	}
	s.state = StateFinalized
	if resp.MediaKey != "" {
		s.mediaKey = resp.MediaKey
	}
	if err := s.observe(resp.ProcessingInfo); err != nil {
		return fmt.Errorf("%s: %w", opUploadFinalize, err)
	}
	return nil
}

func (s *uploadSession) status(ctx context.Context) error {
	q := url.Values{
		"command":  {"STATUS"},
		"media_id": {s.mediaID},
	}
	resp, err := s.send(ctx, opUploadStatus, "GET", uploadURL+"?"+q.Encode(), nil, "")
	if err != nil {
		return err
	}
	s.polls++
	if resp.ProcessingInfo == nil {
		return fmt.Errorf("%s: %w", opUploadStatus, &MalformedResponseError{Path: "processing_info"})
	}
	if err := s.observe(resp.ProcessingInfo); err != nil {
		return fmt.Errorf("%s: %w", opUploadStatus, err)
	}
	return nil
}

// observe applies a processing report to the session state.
func (s *uploadSession) observe(info *processingInfo) error {
	if info == nil {
		return nil
	}
	s.processing = info
	switch info.State {
	case "pending", "in_progress":
		s.state = StateProcessing
		s.progress("processing", info.ProgressPercent)
	case "succeeded":
		s.state = StateSucceeded
		s.progress("processing", 100)
	case "failed":
		s.state = StateFailed
	default:
		s.state = StateFailed
		return &MalformedResponseError{Path: "processing_info.state", Err: fmt.Errorf("unknown state %q", info.State)}
	}
	return nil
}

// wait sleeps for the server-suggested interval before the next STATUS call.
func (s *uploadSession) wait(ctx context.Context) error {
	var delay time.Duration
	if s.processing != nil && s.processing.CheckAfterSecs != nil {
		delay = time.Duration(*s.processing.CheckAfterSecs) * time.Second
	} else {
		delay = statusBackoff.Duration(s.polls)
	}
	if delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *uploadSession) processingError() error {
	e := &MediaProcessingError{MediaID: s.mediaID}
	if s.processing != nil && s.processing.Error != nil {
		e.Code = s.processing.Error.Code
		e.Name = s.processing.Error.Name
		e.Message = s.processing.Error.Message
	}
	return e
}

func (s *uploadSession) progress(phase string, percent int) {
	if s.onProgress != nil {
		s.onProgress(UploadProgress{Phase: phase, Percent: percent})
	}
}

// send performs one upload step whose response is JSON.
func (s *uploadSession) send(ctx context.Context, endpoint, method, rawURL string, body io.Reader, contentType string) (*uploadResponse, error) {
	resp, err := s.g.do(ctx, request{endpoint: endpoint, method: method, url: rawURL, body: body, contentType: contentType})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	var out uploadResponse
	if len(resp.body) == 0 {
		return &out, nil
	}
	if err := decodeJSON(resp.body, &out, "$"); err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	return &out, nil
}
