package xactions

import (
	"regexp"
	"strconv"
)

const playableContentType = "video/mp4"

// variantSizeRe matches the "/1280x720/" path segment of variant URLs.
var variantSizeRe = regexp.MustCompile(`/(\d+)x(\d+)/`)

// SelectBestVariant returns the highest-bitrate directly playable MP4
// rendition of m, or nil when m has none (photos, manifest-only media).
func SelectBestVariant(m *Media) *Variant {
	if m == nil {
		return nil
	}
	var best *Variant
	for i := range m.Variants {
		v := m.Variants[i]
		if v.ContentType != playableContentType || v.URL == "" {
			continue
		}
		if best == nil || v.Bitrate > best.Bitrate {
			best = &v
		}
	}
	if best == nil {
		return nil
	}
	if best.Width == 0 && best.Height == 0 {
		best.Width, best.Height = m.Width, m.Height
		if sm := variantSizeRe.FindStringSubmatch(best.URL); sm != nil {
			best.Width, _ = strconv.Atoi(sm[1])
			best.Height, _ = strconv.Atoi(sm[2])
		}
	}
	return best
}

// bestVideoURL returns the best playable URL among p's media, looking at the
// reposted and quoted posts when p carries none itself.
func bestVideoURL(p *Post) string {
	for _, candidate := range []*Post{p, p.Original, p.Quoted} {
		if candidate == nil {
			continue
		}
		for _, m := range candidate.Media {
			if v := SelectBestVariant(m); v != nil {
				return v.URL
			}
		}
	}
	return ""
}
