/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package rpcflood

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
)

const (
	TransportFastHTTP = "fasthttp"
	TransportHTTP     = "http"
	TransportGeth     = "geth"
)

func init() {
	RegisterAttacker(TransportFastHTTP, &FastHTTPRPCAttacker{})
	RegisterAttacker(TransportHTTP, &HTTPRPCAttacker{})
	RegisterAttacker(TransportGeth, &GethRPCAttacker{})
}

func sharedCalls(r *Runner) (*SharedDataSlice, error) {
	calls, ok := r.TestData.(*SharedDataSlice)
	if !ok || calls.Len() == 0 {
		return nil, errNoTestData
	}
	return calls, nil
}

func nextCall(calls *SharedDataSlice) *RPCCall {
	c, _ := calls.Get().(*RPCCall)
	return c
}

// checkRPCResponse returns json-rpc error of a response body, empty string for a successful response
func checkRPCResponse(body []byte) string {
	if len(body) == 0 {
		return "empty response"
	}
	if !jsoniter.Valid(body) {
		return "invalid json response"
	}
	errAny := jsoniter.Get(body, "error")
	switch errAny.ValueType() {
	case jsoniter.InvalidValue, jsoniter.NilValue:
		return ""
	}
	return fmt.Sprintf("rpc error %d: %s", errAny.Get("code").ToInt(), errAny.Get("message").ToString())
}

// FastHTTPRPCAttacker posts json-rpc calls with fasthttp client
type FastHTTPRPCAttacker struct {
	*Runner
	calls *SharedDataSlice
}

func (a *FastHTTPRPCAttacker) Clone(r *Runner) Attack {
	return &FastHTTPRPCAttacker{Runner: r}
}

func (a *FastHTTPRPCAttacker) Setup(_ RunnerConfig) error {
	calls, err := sharedCalls(a.Runner)
	if err != nil {
		return err
	}
	a.calls = calls
	return nil
}

func (a *FastHTTPRPCAttacker) Do(ctx context.Context) DoResult {
	call := nextCall(a.calls)
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.SetRequestURI(a.Cfg.TargetUrl)
	req.Header.SetMethod("POST")
	req.Header.SetContentType("application/json")
	req.SetBody(call.Body())

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(time.Duration(a.Cfg.AttackerTimeout) * time.Second)
	}
	res := DoResult{RequestLabel: a.Name, BytesIn: int64(len(call.Body()))}
	if err := a.FastHTTPClient.DoDeadline(req, resp, deadline); err != nil {
		res.Error = err.Error()
		return res
	}
	res.StatusCode = resp.StatusCode()
	body := resp.Body()
	res.BytesOut = int64(len(body))
	if res.StatusCode >= 400 {
		res.Error = fmt.Sprintf("http status %d", res.StatusCode)
		return res
	}
	res.Error = checkRPCResponse(body)
	return res
}

func (a *FastHTTPRPCAttacker) Teardown() error {
	return nil
}

// HTTPRPCAttacker posts json-rpc calls with net/http client, dumps traffic if configured
type HTTPRPCAttacker struct {
	*Runner
	calls *SharedDataSlice
}

func (a *HTTPRPCAttacker) Clone(r *Runner) Attack {
	return &HTTPRPCAttacker{Runner: r}
}

func (a *HTTPRPCAttacker) Setup(_ RunnerConfig) error {
	calls, err := sharedCalls(a.Runner)
	if err != nil {
		return err
	}
	a.calls = calls
	return nil
}

func (a *HTTPRPCAttacker) Do(ctx context.Context) DoResult {
	call := nextCall(a.calls)
	res := DoResult{RequestLabel: a.Name, BytesIn: int64(len(call.Body()))}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.Cfg.TargetUrl, bytes.NewReader(call.Body()))
	if err != nil {
		res.Error = err.Error()
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	res.StatusCode = resp.StatusCode
	res.BytesOut = int64(len(body))
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if res.StatusCode >= 400 {
		res.Error = fmt.Sprintf("http status %d", res.StatusCode)
		return res
	}
	res.Error = checkRPCResponse(body)
	return res
}

func (a *HTTPRPCAttacker) Teardown() error {
	return nil
}

// GethRPCAttacker sends calls with go-ethereum rpc client, supports ws and ipc endpoints
type GethRPCAttacker struct {
	*Runner
	calls  *SharedDataSlice
	client *rpc.Client
}

func (a *GethRPCAttacker) Clone(r *Runner) Attack {
	return &GethRPCAttacker{Runner: r}
}

func (a *GethRPCAttacker) Setup(c RunnerConfig) error {
	calls, err := sharedCalls(a.Runner)
	if err != nil {
		return err
	}
	a.calls = calls
	a.client, err = rpc.DialOptions(
		context.Background(),
		c.TargetUrl,
		rpc.WithHTTPClient(NewLoggingHTTPClient(c.DumpTransport, c.AttackerTimeout)),
	)
	return err
}

func (a *GethRPCAttacker) Do(ctx context.Context) DoResult {
	call := nextCall(a.calls)
	res := DoResult{RequestLabel: a.Name, BytesIn: int64(len(call.Body()))}
	var raw json.RawMessage
	if err := a.client.CallContext(ctx, &raw, call.Method, call.Params...); err != nil {
		if rpcErr, ok := err.(rpc.Error); ok {
			res.Error = fmt.Sprintf("rpc error %d: %s", rpcErr.ErrorCode(), rpcErr.Error())
			return res
		}
		res.Error = err.Error()
		return res
	}
	res.BytesOut = int64(len(raw))
	return res
}

func (a *GethRPCAttacker) Teardown() error {
	if a.client != nil {
		a.client.Close()
	}
	return nil
}
