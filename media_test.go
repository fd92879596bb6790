package xactions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBestVariant(t *testing.T) {
	tests := []struct {
		name     string
		media    *Media
		wantURL  string
		wantW    int
		wantH    int
		wantNone bool
	}{
		{
			name: "highest mp4 bitrate, manifest ignored",
			media: &Media{Type: MediaVideo, Width: 1920, Height: 1080, Variants: []Variant{
				{URL: "https://v/pl/playlist.m3u8", ContentType: "application/x-mpegURL", Bitrate: 9_000_000},
				{URL: "https://v/vid/480x270/low.mp4", ContentType: "video/mp4", Bitrate: 256000},
				{URL: "https://v/vid/1280x720/high.mp4", ContentType: "video/mp4", Bitrate: 2176000},
				{URL: "https://v/vid/640x360/mid.mp4", ContentType: "video/mp4", Bitrate: 832000},
			}},
			wantURL: "https://v/vid/1280x720/high.mp4",
			wantW:   1280,
			wantH:   720,
		},
		{
			name: "gif without size in url falls back to media size",
			media: &Media{Type: MediaGIF, Width: 498, Height: 280, Variants: []Variant{
				{URL: "https://video.twimg.com/tweet_video/abc.mp4", ContentType: "video/mp4"},
			}},
			wantURL: "https://video.twimg.com/tweet_video/abc.mp4",
			wantW:   498,
			wantH:   280,
		},
		{
			name: "manifest only",
			media: &Media{Type: MediaVideo, Variants: []Variant{
				{URL: "https://v/pl/playlist.m3u8", ContentType: "application/x-mpegURL"},
			}},
			wantNone: true,
		},
		{name: "photo", media: &Media{Type: MediaPhoto, URL: "https://pbs/a.jpg"}, wantNone: true},
		{name: "nil", wantNone: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := SelectBestVariant(tt.media)
			if tt.wantNone {
				assert.Nil(t, v)
				return
			}
			require.NotNil(t, v)
			assert.Equal(t, tt.wantURL, v.URL)
			assert.Equal(t, "video/mp4", v.ContentType)
			assert.Equal(t, tt.wantW, v.Width)
			assert.Equal(t, tt.wantH, v.Height)
		})
	}
}

func TestSelectBestVariant_DoesNotMutateMedia(t *testing.T) {
	m := &Media{Width: 10, Height: 20, Variants: []Variant{{URL: "https://v/a.mp4", ContentType: "video/mp4"}}}
	_ = SelectBestVariant(m)
	assert.Zero(t, m.Variants[0].Width)
}

func TestBestVideoURL(t *testing.T) {
	video := &Media{Type: MediaVideo, Variants: []Variant{{URL: "https://v/q.mp4", ContentType: "video/mp4", Bitrate: 1}}}
	p := &Post{ID: "1", Media: []*Media{{Type: MediaPhoto}}, Quoted: &Post{ID: "2", Media: []*Media{video}}}
	assert.Equal(t, "https://v/q.mp4", bestVideoURL(p))
	assert.Empty(t, bestVideoURL(&Post{ID: "3"}))
}
