package grpc

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/aponysus/await/classify"
	"github.com/aponysus/await/policy"
	"github.com/aponysus/await/waiter"
)

// KeyForMethod maps a full method name to a waiter key.
// "/pkg.Service/Method" -> {Namespace: "pkg.Service", Name: "Method"}
func KeyForMethod(method string) policy.Key {
	method = strings.TrimPrefix(method, "/")
	parts := strings.Split(method, "/")
	if len(parts) == 2 {
		return policy.Key{Namespace: parts[0], Name: parts[1]}
	}
	return policy.Key{Name: method}
}

// Invoke returns a waiter invoker calling a unary method on cc. Resp is the
// response message type; a fresh *Resp is allocated per attempt.
func Invoke[Req, Resp any](cc grpc.ClientConnInterface, method string, opts ...grpc.CallOption) waiter.Invoker[Req, *Resp] {
	return func(ctx context.Context, req Req) (*Resp, error) {
		reply := new(Resp)
		if err := cc.Invoke(ctx, method, req, reply, opts...); err != nil {
			return nil, err
		}
		return reply, nil
	}
}

// Unary adapts a generated client method, e.g. client.GetTable, to a waiter
// invoker.
func Unary[Req, Resp any](call func(ctx context.Context, req Req, opts ...grpc.CallOption) (Resp, error), opts ...grpc.CallOption) waiter.Invoker[Req, Resp] {
	return func(ctx context.Context, req Req) (Resp, error) {
		return call(ctx, req, opts...)
	}
}

// Codes extracts gRPC status codes so errorType acceptors can name them,
// e.g. "NotFound" or "Unavailable". Errors without a status are not
// recognized.
var Codes classify.CodeExtractor = classify.CodeExtractorFunc(func(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	st, ok := status.FromError(err)
	if !ok {
		return "", false
	}
	return st.Code().String(), true
})

// WithCodes registers Codes ahead of classify.APICodes on an executor.
func WithCodes() waiter.ExecutorOption {
	return waiter.WithCodeExtractors(Codes, classify.APICodes)
}
