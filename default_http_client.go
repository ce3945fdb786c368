/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package rpcflood

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

// NewLoggingHTTPClient creates new client with debug http
func NewLoggingHTTPClient(debug bool, transportTimeout int) *http.Client {
	var transport http.RoundTripper
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.MaxConnsPerHost = 65535
	base.MaxIdleConns = 65535
	base.MaxIdleConnsPerHost = 65535
	base.DisableCompression = true
	base.ResponseHeaderTimeout = time.Duration(transportTimeout) * time.Second
	if debug {
		transport = &DumpTransport{base}
	} else {
		transport = base
	}
	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(transportTimeout) * time.Second,
	}
}

const (
	RequestHeader      = "========== REQUEST ==========\n%s\n"
	RequestHeaderBody  = "========== REQUEST ==========\n%s\n%s\n"
	ResponseHeaderBody = "========== RESPONSE ==========\n%s\n%s\n"
	ResponseHeader     = "========== RESPONSE ==========\n%s\n"
	HTTPBodyDelimiter  = "\r\n\r\n"
)

// DumpTransport log http request/responses, pprint bodies
type DumpTransport struct {
	r http.RoundTripper
}

func (d *DumpTransport) RoundTrip(h *http.Request) (*http.Response, error) {
	dump, _ := httputil.DumpRequestOut(h, true)
	if bodyIsJson(h.Header) {
		req, pprintBody := d.prettyPrintJsonBody(dump)
		fmt.Printf(RequestHeaderBody, req, pprintBody)
	} else {
		fmt.Printf(RequestHeader, dump)
	}
	resp, err := d.r.RoundTrip(h)
	if err != nil {
		return nil, err
	}
	// DumpResponse restores the body, it's still readable by the caller
	dump, _ = httputil.DumpResponse(resp, true)
	if bodyIsJson(resp.Header) {
		respString, pprintBody := d.prettyPrintJsonBody(dump)
		fmt.Printf(ResponseHeaderBody, respString, pprintBody)
		return resp, nil
	}
	fmt.Printf(ResponseHeader, dump)
	return resp, nil
}

// prettyPrintJsonBody returns http format request and pretty printed json body,
// body is returned as is if it's not a valid json
func (d *DumpTransport) prettyPrintJsonBody(b []byte) (string, string) {
	sp := strings.SplitN(string(b), HTTPBodyDelimiter, 2)
	if len(sp) != 2 {
		return sp[0], ""
	}
	body := sp[1]
	var obj interface{}
	if strings.HasPrefix(body, "[") {
		obj = &[]*jsoniter.RawMessage{}
	} else {
		obj = &map[string]*jsoniter.RawMessage{}
	}
	if err := jsoniter.Unmarshal([]byte(body), obj); err != nil {
		return sp[0], body
	}
	pprintBody, err := jsoniter.MarshalIndent(obj, "", "    ")
	if err != nil {
		return sp[0], body
	}
	return sp[0], string(pprintBody)
}

func bodyIsJson(h http.Header) bool {
	return strings.Contains(h.Get("content-type"), "application/json")
}
