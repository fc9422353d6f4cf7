package quadkv

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/quadkv/core"
	"github.com/poiesic/quadkv/query"
)

// Request is one Run call submitted to RunBatch.
type Request struct {
	Key     core.Key
	Query   string
	Options *core.Options
}

// Response pairs a Request with its outcome.
type Response struct {
	Request Request
	Result  query.Result
	Err     error
}

// RunBatch runs every request and returns responses in request order.
// Requests for the same key run one after another in submission order;
// requests for different keys run concurrently on the worker pool.
func (db *Database) RunBatch(ctx context.Context, reqs []Request) []Response {
	responses := make([]Response, len(reqs))

	var order []string
	groups := make(map[string][]int)
	for i, req := range reqs {
		responses[i].Request = req
		id := strings.Join(req.Key, "\x00")
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], i)
	}

	var wg sync.WaitGroup
	for _, id := range order {
		indexes := groups[id]
		wg.Add(1)
		err := db.pool.Submit(func() {
			defer wg.Done()
			for _, i := range indexes {
				req := reqs[i]
				responses[i].Result, responses[i].Err = db.Run(ctx, req.Key, req.Query, req.Options)
			}
		})
		if err != nil {
			wg.Done()
			db.logger.Error("error submitting batch task", "err", err)
			for _, i := range indexes {
				responses[i].Err = err
			}
		}
	}
	wg.Wait()
	return responses
}
