package probe

import (
	"context"
	"fmt"

	"github.com/hamed0406/statusledger/internal/domain"
)

// KindRouter sends each target to the checker registered for its kind.
type KindRouter struct {
	Checkers map[domain.Kind]Checker
}

func NewKindRouter(httpC, tcpC Checker) *KindRouter {
	return &KindRouter{Checkers: map[domain.Kind]Checker{
		domain.KindHTTP: httpC,
		domain.KindTCP:  tcpC,
	}}
}

// NewDefault returns a router over the stock HTTP and TCP checkers.
func NewDefault() *KindRouter {
	return NewKindRouter(NewHTTPChecker(), NewTCPChecker())
}

func (r *KindRouter) Check(ctx context.Context, t domain.Target) domain.Outcome {
	c, ok := r.Checkers[t.Kind]
	if !ok || c == nil {
		return domain.Outcome{Err: fmt.Sprintf("unsupported probe kind %q", t.Kind)}
	}
	return c.Check(ctx, t)
}
