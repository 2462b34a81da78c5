package matchmaker

import (
	"context"

	"github.com/samber/lo"
)

type memQueue struct {
	ids []string
}

// NewMemoryQueue is the default wait queue; state lives and dies with the
// process.
func NewMemoryQueue() Queue {
	return &memQueue{}
}

func (m *memQueue) Enqueue(ctx context.Context, id string) error {
	m.ids = append(m.ids, id)
	return nil
}

func (m *memQueue) PopPair(ctx context.Context) ([]string, bool, error) {
	if len(m.ids) < 2 {
		return nil, false, nil
	}
	pair := []string{m.ids[0], m.ids[1]}
	m.ids = m.ids[2:]
	return pair, true, nil
}

func (m *memQueue) Remove(ctx context.Context, id string) error {
	m.ids = lo.Filter(m.ids, func(x string, _ int) bool { return x != id })
	return nil
}

func (m *memQueue) Count(ctx context.Context) (int64, error) {
	return int64(len(m.ids)), nil
}
