package reports

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// tbBuildGroup coalesces concurrent trial balance builds for the same date
// window; the build scans every journal line.
var tbBuildGroup singleflight.Group

func singleflightBuild(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error, bool) {
	resultChan := tbBuildGroup.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err(), false
	case res := <-resultChan:
		return res.Val, res.Err, res.Shared
	}
}
