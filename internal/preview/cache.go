/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package preview

import (
	"image"
	"sync"
)

// Cache holds rendered pages for the current window. Retain evicts every
// page outside it, so memory stays bounded by the window size no matter
// how long the script is.
type Cache struct {
	mu    sync.Mutex
	pages map[int]image.Image
	hash  map[int]string
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{pages: map[int]image.Image{}, hash: map[int]string{}}
}

// Get returns page n if it is cached with the given content hash.
func (c *Cache) Get(n int, hash string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	img, ok := c.pages[n]
	if !ok || c.hash[n] != hash {
		return nil, false
	}
	return img, true
}

// Put stores page n.
func (c *Cache) Put(n int, hash string, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pages[n] = img
	c.hash[n] = hash
}

// Retain drops every page outside w and returns how many were evicted.
func (c *Cache) Retain(w Window) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for p := range c.pages {
		if !w.Contains(p) {
			delete(c.pages, p)
			delete(c.hash, p)
			n++
		}
	}
	return n
}

// Len returns the number of cached pages.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pages)
}
