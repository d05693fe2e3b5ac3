package converter

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ConvertAll converts every request, at most Config.Concurrency at a time.
// Items are returned in request order. A failed request does not stop the
// others; its error is stored on its item.
func (c *Converter) ConvertAll(ctx context.Context, reqs []Request) []BatchItem {
	items := make([]BatchItem, len(reqs))

	var g errgroup.Group
	g.SetLimit(c.config.Concurrency)
	for i, req := range reqs {
		g.Go(func() error {
			res, err := c.Convert(ctx, req)
			items[i] = BatchItem{Request: req, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return items
}
