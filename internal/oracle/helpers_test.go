package oracle_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mrz1836/hdscan/internal/discovery"
)

// queryOnce runs one query and waits for its reply.
func queryOnce(t *testing.T, q discovery.Querier, batch []string) (any, error) {
	t.Helper()

	type reply struct {
		result any
		err    error
	}
	ch := make(chan reply, 1)
	q.Query(context.Background(), batch, func(result any, err error) {
		ch <- reply{result, err}
	})

	select {
	case r := <-ch:
		return r.result, r.err
	case <-time.After(5 * time.Second):
		require.FailNow(t, "query did not reply")
		return nil, nil
	}
}

// usedOf returns the used members of batch according to result.
func usedOf(t *testing.T, result any, batch []string) []string {
	t.Helper()
	isUsed, err := discovery.UsedSet(result)
	require.NoError(t, err)

	used := []string{}
	for _, a := range batch {
		if isUsed(a) {
			used = append(used, a)
		}
	}
	return used
}

// countingQuerier records the batches it receives and answers from used.
type countingQuerier struct {
	used    map[string]bool
	batches [][]string
	err     error
}

func (c *countingQuerier) Query(_ context.Context, batch []string, reply discovery.Reply) {
	c.batches = append(c.batches, append([]string(nil), batch...))
	if c.err != nil {
		reply(nil, c.err)
		return
	}
	result := map[string]any{}
	for _, a := range batch {
		if c.used[a] {
			result[a] = 1
		}
	}
	reply(result, nil)
}
