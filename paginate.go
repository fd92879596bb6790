package xactions

import (
	"context"
	"iter"
)

// pageFunc fetches one page of a feed. An empty cursor requests the first page.
type pageFunc func(ctx context.Context, cursor string) (*page, error)

type pageConfig struct {
	defaultLimit  int
	maxEmptyPages int
}

// paginate walks a feed by its cursors, yielding pick(item) for every item
// not seen earlier in the walk. Show-more cursors are followed before the
// bottom cursor of the same page, and no cursor is fetched twice. The walk
// stops when limit values have been yielded, when no unvisited cursor is
// left, or after maxEmptyPages consecutive pages without new items. Every
// range over the returned sequence starts a fresh walk from opts.Cursor.
func paginate[T any](ctx context.Context, fetch pageFunc, opts ListOptions, cfg pageConfig, pick func(Item) []T) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		limit := opts.Limit
		if limit <= 0 {
			limit = cfg.defaultLimit
		}
		cursor := opts.Cursor
		visited := map[string]struct{}{cursor: {}}
		var pending []string
		seen := make(map[string]struct{})
		yielded, emptyPages := 0, 0

		for {
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}
			p, err := fetch(ctx, cursor)
			if err != nil {
				yield(zero, err)
				return
			}

			fresh := 0
			for _, it := range p.items {
				if it.Kind == ItemCursor {
					continue
				}
				if key := itemKey(it); key != "" {
					if _, dup := seen[key]; dup {
						continue
					}
					seen[key] = struct{}{}
				}
				fresh++
				for _, v := range pick(it) {
					if !yield(v, nil) {
						return
					}
					yielded++
					if yielded >= limit {
						return
					}
				}
			}

			if fresh == 0 {
				emptyPages++
				if emptyPages >= cfg.maxEmptyPages {
					return
				}
			} else {
				emptyPages = 0
			}

			pending = append(pending, p.more...)
			pending = append(pending, p.bottom)
			next, rest, ok := popCursor(pending, visited)
			if !ok {
				return
			}
			cursor, pending = next, rest
		}
	}
}

// popCursor takes the first unvisited cursor off the queue and marks it visited.
func popCursor(pending []string, visited map[string]struct{}) (string, []string, bool) {
	for len(pending) > 0 {
		c := pending[0]
		pending = pending[1:]
		if _, done := visited[c]; done || c == "" {
			continue
		}
		visited[c] = struct{}{}
		return c, pending, true
	}
	return "", pending, false
}

func itemKey(it Item) string {
	switch it.Kind {
	case ItemPost:
		return "post:" + it.Post.ID
	case ItemUser:
		return "user:" + it.User.ID
	}
	return ""
}

// Collect drains seq into a slice. On error it returns the values gathered so far.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

func pickPost(it Item) []*Post {
	if it.Kind == ItemPost {
		return []*Post{it.Post}
	}
	return nil
}

func pickUser(it Item) []*User {
	if it.Kind == ItemUser {
		return []*User{it.User}
	}
	return nil
}

func pickMedia(it Item) []*Media {
	if it.Kind != ItemPost {
		return nil
	}
	return it.Post.Media
}
