package deps

import (
	"context"
	"time"

	"github.com/valyala/fasthttp"
)

// Pinger checks datastore reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// HTTPDoer performs one HTTP exchange; *fasthttp.Client implements it
type HTTPDoer interface {
	DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error
}
