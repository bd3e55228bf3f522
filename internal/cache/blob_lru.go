// Package cache 는 프로세스 안에서 쓰는 바이트 LRU 캐시다.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type blob struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// BlobLRU 는 항목 수와 총 바이트 수를 함께 제한하는 만료 LRU 다.
// 한도를 넘으면 가장 오래 쓰지 않은 항목부터 버린다.
type BlobLRU struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	maxBytes   int
	size       int
	order      *list.List
	items      map[string]*list.Element
	now        func() time.Time
}

// NewBlobLRU 는 캐시를 만든다. maxBytes 가 0 이하면 바이트 한도를 두지 않는다.
func NewBlobLRU(maxEntries int, maxBytes int, ttl time.Duration) *BlobLRU {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return &BlobLRU{
		ttl:        ttl,
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		order:      list.New(),
		items:      make(map[string]*list.Element, maxEntries),
		now:        time.Now,
	}
}

// Get 은 값을 반환한다. 만료된 항목은 이때 지운다.
func (c *BlobLRU) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		return nil, false
	}
	item := element.Value.(*blob)
	if c.now().After(item.expiresAt) {
		c.remove(element)
		return nil, false
	}
	c.order.MoveToFront(element)
	return item.value, true
}

// Set 은 값을 저장하고 만료 시각을 갱신한다.
// 값 하나가 바이트 한도보다 크면 저장하지 않고 false 를 반환한다.
func (c *BlobLRU) Set(key string, value []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxBytes > 0 && len(value) > c.maxBytes {
		if element, ok := c.items[key]; ok {
			c.remove(element)
		}
		return false
	}

	expiresAt := c.now().Add(c.ttl)
	if element, ok := c.items[key]; ok {
		item := element.Value.(*blob)
		c.size += len(value) - len(item.value)
		item.value = value
		item.expiresAt = expiresAt
		c.order.MoveToFront(element)
	} else {
		c.items[key] = c.order.PushFront(&blob{key: key, value: value, expiresAt: expiresAt})
		c.size += len(value)
	}
	c.evict()
	return true
}

// Len 은 저장된 항목 수다. 아직 지워지지 않은 만료 항목도 센다.
func (c *BlobLRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Bytes 는 저장된 값의 총 크기다.
func (c *BlobLRU) Bytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *BlobLRU) evict() {
	for len(c.items) > c.maxEntries || (c.maxBytes > 0 && c.size > c.maxBytes) {
		element := c.order.Back()
		if element == nil {
			return
		}
		c.remove(element)
	}
}

func (c *BlobLRU) remove(element *list.Element) {
	item := c.order.Remove(element).(*blob)
	c.size -= len(item.value)
	delete(c.items, item.key)
}
