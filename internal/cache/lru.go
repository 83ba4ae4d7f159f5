// 包 cache：服务商单页结果缓存后端
package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"poi-miner/internal/provider"
)

// 文档注释：进程内 LRU 页缓存
// 背景：未配置 Redis 时的兜底缓存；同一进程内重复挖掘同一区域可直接复用已取回的页。
// 约束：容量按条目计；过期条目在读取时惰性淘汰。
type LRU struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	lst  *list.List
	dict map[string]*list.Element
	now  func() time.Time
}

type entry struct {
	k   string
	v   provider.Page
	exp time.Time
}

// NewLRU 创建 LRU；capacity <= 0 时返回 nil（即不缓存）
func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		return nil
	}
	return &LRU{cap: capacity, ttl: ttl, lst: list.New(), dict: make(map[string]*list.Element), now: time.Now}
}

func (c *LRU) Get(_ context.Context, k string) (provider.Page, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.dict[k]; ok {
		it := e.Value.(entry)
		if c.now().Before(it.exp) {
			c.lst.MoveToFront(e)
			return it.v, true
		}
		c.lst.Remove(e)
		delete(c.dict, k)
	}
	return provider.Page{}, false
}

func (c *LRU) Set(_ context.Context, k string, v provider.Page) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exp := c.now().Add(c.ttl)
	if e, ok := c.dict[k]; ok {
		e.Value = entry{k: k, v: v, exp: exp}
		c.lst.MoveToFront(e)
		return
	}
	c.dict[k] = c.lst.PushFront(entry{k: k, v: v, exp: exp})
	for c.lst.Len() > c.cap {
		back := c.lst.Back()
		if back == nil {
			break
		}
		delete(c.dict, back.Value.(entry).k)
		c.lst.Remove(back)
	}
}

// Len 当前条目数（含未淘汰的过期条目）
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lst.Len()
}
