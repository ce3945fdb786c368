/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package rpcflood

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func runTestNode(t *testing.T) *DummyNode {
	n, err := RunDummyNode("127.0.0.1:0", 0)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = n.Close()
	})
	return n
}

type chainIDResponse struct {
	JSONRPC string
	Result  string
}

func TestFastHttpMarshal(t *testing.T) {
	n := runTestNode(t)
	c := NewLoggingFastHTTPClient(true)

	call, err := NewRPCCall(1, MethodChainID)
	require.NoError(t, err)
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.SetRequestURI(n.Addr)
	req.Header.SetMethod("POST")
	req.Header.SetContentType("application/json")
	req.SetBody(call.Body())

	require.NoError(t, c.Do(req, resp))
	respBody, err := UnmarshalAnyJson(resp.Body(), &chainIDResponse{})
	require.NoError(t, err)
	require.Equal(t, &chainIDResponse{JSONRPC: "2.0", Result: "0x539"}, respBody)
}

func TestFastHttpDeadline(t *testing.T) {
	n, err := RunDummyNode("127.0.0.1:0", 500*time.Millisecond)
	require.NoError(t, err)
	defer n.Close()
	c := NewLoggingFastHTTPClient(false)

	call, err := NewRPCCall(1, MethodChainID)
	require.NoError(t, err)
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)
	req.SetRequestURI(n.Addr)
	req.Header.SetMethod("POST")
	req.SetBody(call.Body())

	err = c.DoDeadline(req, resp, time.Now().Add(50*time.Millisecond))
	require.Equal(t, fasthttp.ErrTimeout, err)
}

func TestUnmarshalAnyJsonNil(t *testing.T) {
	v, err := UnmarshalAnyJson(nil, &chainIDResponse{})
	require.NoError(t, err)
	require.Nil(t, v)

	_, err = UnmarshalAnyJson([]byte("{"), &chainIDResponse{})
	require.Error(t, err)
}
