package grpc_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	integration "github.com/aponysus/await/integrations/grpc"
	"github.com/aponysus/await/policy"
	"github.com/aponysus/await/waiter"
)

type getTableRequest struct{ Name string }

type getTableResponse struct{ Status string }

// fakeConn answers Invoke from a list of scripted results.
type fakeConn struct {
	results []func(reply any) error
	calls   int
	methods []string
}

func (c *fakeConn) Invoke(_ context.Context, method string, _ any, reply any, _ ...grpc.CallOption) error {
	c.methods = append(c.methods, method)
	i := c.calls
	c.calls++
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	return c.results[i](reply)
}

func (c *fakeConn) NewStream(context.Context, *grpc.StreamDesc, string, ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, errors.New("streams not supported")
}

func reply(status string) func(any) error {
	return func(r any) error {
		r.(*getTableResponse).Status = status
		return nil
	}
}

func fail(code codes.Code) func(any) error {
	return func(any) error { return status.Error(code, "scripted") }
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

const getTable = "/tables.v1.TableService/GetTable"

func TestInvoke_RetriesOnStatusCode(t *testing.T) {
	conn := &fakeConn{results: []func(any) error{fail(codes.NotFound), reply("CREATING"), reply("ACTIVE")}}

	exec := waiter.NewDefaultExecutor(
		integration.WithCodes(),
		waiter.WithSleep(noSleep),
		waiter.WithSpecKey(integration.KeyForMethod(getTable),
			policy.SucceedWhen(policy.Output("Status", policy.StringEquals, "ACTIVE")),
			policy.RetryWhen(policy.ErrorType("NotFound")),
		),
	)

	w, err := waiter.ForKey(context.Background(), exec, integration.KeyForMethod(getTable),
		integration.Invoke[getTableRequest, getTableResponse](conn, getTable))
	require.NoError(t, err)

	out, err := w.WaitForOutput(context.Background(), getTableRequest{Name: "orders"}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", out.Status)
	assert.Equal(t, 3, conn.calls)
	assert.Equal(t, getTable, conn.methods[0])
}

func TestInvoke_UnmatchedStatusFails(t *testing.T) {
	conn := &fakeConn{results: []func(any) error{fail(codes.PermissionDenied)}}
	spec := policy.MustNew("tables.TableActive",
		policy.SucceedWhen(policy.Success()),
		policy.RetryWhen(policy.ErrorType("Unavailable")),
	)
	exec := waiter.NewDefaultExecutor(integration.WithCodes(), waiter.WithSleep(noSleep))
	w := waiter.NewWithExecutor(exec, spec, integration.Invoke[getTableRequest, getTableResponse](conn, getTable))

	err := w.Wait(context.Background(), getTableRequest{}, time.Minute)
	require.Error(t, err)
	assert.Equal(t, waiter.KindAcceptorFailure, waiter.KindOf(err))
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	assert.Equal(t, 1, conn.calls)
}

func TestUnary(t *testing.T) {
	calls := 0
	call := func(_ context.Context, req getTableRequest, _ ...grpc.CallOption) (*getTableResponse, error) {
		calls++
		if calls == 1 {
			return nil, status.Error(codes.Unavailable, "try again")
		}
		return &getTableResponse{Status: "ACTIVE"}, nil
	}

	spec := policy.MustNew("tables.TableActive",
		policy.SucceedWhen(policy.Output("Status", policy.StringEquals, "ACTIVE")),
		policy.RetryWhen(policy.ErrorType("Unavailable")),
	)
	exec := waiter.NewDefaultExecutor(integration.WithCodes(), waiter.WithSleep(noSleep))
	w := waiter.NewWithExecutor(exec, spec, integration.Unary(call))

	require.NoError(t, w.Wait(context.Background(), getTableRequest{}, time.Minute))
	assert.Equal(t, 2, calls)
}

func TestCodes(t *testing.T) {
	code, ok := integration.Codes.ErrorCode(fmt.Errorf("wrapped: %w", status.Error(codes.NotFound, "x")))
	assert.True(t, ok)
	assert.Equal(t, "NotFound", code)

	_, ok = integration.Codes.ErrorCode(errors.New("plain"))
	assert.False(t, ok)
}

func TestKeyForMethod(t *testing.T) {
	assert.Equal(t, policy.Key{Namespace: "tables.v1.TableService", Name: "GetTable"}, integration.KeyForMethod(getTable))
	assert.Equal(t, policy.Key{Name: "Ping"}, integration.KeyForMethod("Ping"))
}
