package sim

import (
	"sync"
	"time"
)

// queued 在途消息：到达 deliverAt 之前不可见
type queued[T any] struct {
	deliverAt time.Time
	payload   T
}

// LagQueue 模拟单向延迟信道：消息只延迟、不丢弃、不损坏
// 每个连接方向各持有一个强类型实例（输入上行 / 快照下行），
// 避免对载荷做运行时类型判别
type LagQueue[T any] struct {
	mu    sync.Mutex
	items []queued[T]
}

// Send 入队一条消息，deliverAt = now + lag
// 不同消息可用不同延迟，后发的短延迟消息可能先于先发的长延迟消息到达（模拟乱序）
func (q *LagQueue[T]) Send(payload T, now time.Time, lag time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, queued[T]{deliverAt: now.Add(lag), payload: payload})
}

// Receive 取出至多一条已到达（deliverAt <= now）的消息
// 多条就绪时按 deliverAt 最早者优先，deliverAt 相同按入队先后；
// 无就绪消息返回 false，这是正常稳态而非错误
func (q *LagQueue[T]) Receive(now time.Time) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	best := -1
	for i, m := range q.items {
		if m.deliverAt.After(now) {
			continue
		}
		if best < 0 || m.deliverAt.Before(q.items[best].deliverAt) {
			best = i
		}
	}
	var zero T
	if best < 0 {
		return zero, false
	}
	payload := q.items[best].payload
	q.items = append(q.items[:best], q.items[best+1:]...)
	return payload, true
}

// Len 当前在途消息数（含未到达的）
func (q *LagQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
