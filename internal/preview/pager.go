/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package preview

import (
	"context"
	"fmt"
	"image"

	"goscreenwriter/internal/pagination"
	"goscreenwriter/internal/render"
	"goscreenwriter/internal/storage"
)

// ThumbWidth is the pixel width of page strip thumbnails.
const ThumbWidth = 160

// Pager serves page images for one pagination result and keeps at most
// the current window in memory. With a project root set, encoded pages and
// thumbnails are also persisted in the project index.
type Pager struct {
	Renderer *Renderer
	Options  render.Options
	Overscan int
	// Root is the project directory; empty disables the persistent cache.
	Root string

	res   pagination.Result
	cache *Cache
}

// NewPager returns a pager over res.
func NewPager(r *Renderer, res pagination.Result, opts render.Options, overscan int) *Pager {
	return &Pager{Renderer: r, Options: opts, Overscan: overscan, res: res, cache: NewCache()}
}

// Update swaps in a new pagination result. Cached pages whose content
// changed are re-rendered on next access.
func (p *Pager) Update(res pagination.Result) { p.res = res }

// PageCount returns the number of pages of the current result.
func (p *Pager) PageCount() int { return p.res.PageCount }

// Scroll computes the window for v, evicts pages outside it and returns
// the window. Nothing is rendered here.
func (p *Pager) Scroll(v Viewport) Window {
	w := Visible(v, p.res.PageCount, p.Overscan)
	p.cache.Retain(w)
	return w
}

// Page returns the image of page n, rendering it on a cache miss.
func (p *Pager) Page(n int) (image.Image, error) {
	if n < 1 || n > p.res.PageCount {
		return nil, fmt.Errorf("page %d out of range 1..%d", n, p.res.PageCount)
	}
	placements := p.res.Page(n)
	hash := Hash(placements, p.Options)
	if img, ok := p.cache.Get(n, hash); ok {
		return img, nil
	}
	img := p.Renderer.Draw(render.Page(placements, n, p.Options), p.Options.Watermark)
	p.cache.Put(n, hash, img)
	return img, nil
}

// Window renders every page of w.
func (p *Pager) Window(w Window) ([]image.Image, error) {
	out := make([]image.Image, 0, len(w.Pages()))
	for _, n := range w.Pages() {
		img, err := p.Page(n)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, nil
}

// Cached returns the number of pages currently held in memory.
func (p *Pager) Cached() int { return p.cache.Len() }

// PNG returns the encoded page n of the given kind, going through the
// project's preview cache when Root is set.
func (p *Pager) PNG(ctx context.Context, n int, kind string) ([]byte, error) {
	gen := func(context.Context) ([]byte, error) {
		img, err := p.Page(n)
		if err != nil {
			return nil, err
		}
		if kind == storage.PreviewKindThumb {
			img = Thumbnail(img, ThumbWidth)
		}
		return EncodePNG(img)
	}
	if p.Root == "" {
		return gen(ctx)
	}
	w, h := p.Renderer.Size()
	if kind == storage.PreviewKindThumb {
		h = h * ThumbWidth / w
		w = ThumbWidth
	}
	key := storage.PreviewKey{Page: n, Kind: kind, W: w, H: h, Hash: Hash(p.res.Page(n), p.Options)}
	return storage.GetOrCreatePreview(ctx, p.Root, key, gen)
}
