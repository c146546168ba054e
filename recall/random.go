package recall

import (
	"math/rand/v2"
	"sync"
)

// Rand 是兜底采样使用的均匀随机源。
// 测试中用 NewRand 固定种子，生产环境使用进程级的 DefaultRand。
type Rand interface {
	// IntN 返回 [0, n) 内的均匀随机整数，n 必须大于 0
	IntN(n int) int
}

// DefaultRand 使用 math/rand/v2 的全局随机源，并发安全。
var DefaultRand Rand = globalRand{}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// NewRand 返回固定种子的随机源，相同种子产生相同序列。
// 返回值并发安全，但并发调用的先后顺序会影响各自拿到的值。
func NewRand(seed uint64) Rand {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
