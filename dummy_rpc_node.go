/*
 * // Copyright 2020 Insolar Network Ltd.
 * // All rights reserved.
 * // This material is licensed under the Insolar License version 1.0,
 * // available at https://github.com/insolar/assured-ledger/blob/master/LICENSE.md.
 */

package rpcflood

import (
	"context"
	"math/big"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
)

const (
	DummyLatestBlock  = 32
	DummyTxsPerBlock  = 2
	DummyChainID      = 1337
	dummyContractAddr = "0x00000000000000000000000000000000000c0de5"
)

type dummyRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// DummyNode json-rpc node serving a small deterministic chain
type DummyNode struct {
	// Addr node url
	Addr    string
	srv     *http.Server
	latency time.Duration
	l       *Logger
	mu      sync.Mutex
	calls   map[string]int
}

// RunDummyNode starts node on listen address, use "127.0.0.1:0" for a random port
func RunDummyNode(listen string, latency time.Duration) (*DummyNode, error) {
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	n := &DummyNode{
		Addr:    "http://" + ln.Addr().String(),
		latency: latency,
		l:       NewLogger("info", "console").With("dummy_node", ln.Addr().String()),
		calls:   make(map[string]int),
	}
	r.POST("/", n.handle)
	n.srv = &http.Server{Handler: r}
	go func() {
		if err := n.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			n.l.Error(err)
		}
	}()
	return n, nil
}

// Calls amount of received calls of a method
func (n *DummyNode) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *DummyNode) TotalCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	total := 0
	for _, c := range n.calls {
		total += c
	}
	return total
}

func (n *DummyNode) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return n.srv.Shutdown(ctx)
}

func (n *DummyNode) handle(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusOK, rpcErrorResponse(nil, -32700, "parse error"))
		return
	}
	if len(body) > 0 && body[0] == '[' {
		var batch []dummyRequest
		if err := jsoniter.Unmarshal(body, &batch); err != nil || len(batch) == 0 {
			c.JSON(http.StatusOK, rpcErrorResponse(nil, -32700, "parse error"))
			return
		}
		for _, req := range batch {
			n.count(req.Method)
		}
		n.wait()
		responses := make([]gin.H, 0, len(batch))
		for _, req := range batch {
			responses = append(responses, n.respond(req))
		}
		c.JSON(http.StatusOK, responses)
		return
	}
	var req dummyRequest
	if err := jsoniter.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusOK, rpcErrorResponse(nil, -32700, "parse error"))
		return
	}
	n.count(req.Method)
	n.wait()
	c.JSON(http.StatusOK, n.respond(req))
}

func (n *DummyNode) wait() {
	if n.latency > 0 {
		time.Sleep(n.latency)
	}
}

// count registers call on receive, so calls cut by client timeouts are counted too
func (n *DummyNode) count(method string) {
	n.mu.Lock()
	n.calls[method]++
	n.mu.Unlock()
}

func (n *DummyNode) respond(req dummyRequest) gin.H {
	result, ok := dummyResult(req)
	if !ok {
		return rpcErrorResponse(req.ID, -32601, "the method "+req.Method+" does not exist/is not available")
	}
	return gin.H{"jsonrpc": "2.0", "id": req.ID, "result": result}
}

func rpcErrorResponse(id interface{}, code int, msg string) gin.H {
	return gin.H{"jsonrpc": "2.0", "id": id, "error": gin.H{"code": code, "message": msg}}
}

func dummyResult(req dummyRequest) (interface{}, bool) {
	switch req.Method {
	case MethodBlockNumber:
		return hexutil.EncodeUint64(DummyLatestBlock), true
	case MethodChainID:
		return hexutil.EncodeUint64(DummyChainID), true
	case MethodGasPrice:
		return hexutil.EncodeUint64(1_000_000_000), true
	case MethodGetBlockByNumber:
		num, ok := dummyBlockParam(req.Params)
		if !ok || num > DummyLatestBlock {
			return nil, true
		}
		full := len(req.Params) > 1 && req.Params[1] == true
		return dummyBlock(num, full), true
	case MethodGetBalance:
		return "0xde0b6b3a7640000", true
	case MethodGetCode:
		return "0x6080604052", true
	case MethodGetStorageAt, MethodCall:
		return common.Hash{}.Hex(), true
	case MethodGetTransactionCount:
		return "0x1", true
	case MethodGetLogs:
		return []interface{}{}, true
	case MethodGetTransactionByHash:
		return gin.H{"hash": dummyParamString(req.Params), "blockNumber": hexutil.EncodeUint64(DummyLatestBlock)}, true
	case MethodGetTransactionReceipt:
		return gin.H{"transactionHash": dummyParamString(req.Params), "status": "0x1"}, true
	}
	return nil, false
}

func dummyParamString(params []interface{}) string {
	if len(params) == 0 {
		return ""
	}
	s, _ := params[0].(string)
	return s
}

func dummyBlockParam(params []interface{}) (uint64, bool) {
	s := dummyParamString(params)
	if s == "latest" {
		return DummyLatestBlock, true
	}
	num, err := hexutil.DecodeUint64(s)
	if err != nil {
		return 0, false
	}
	return num, true
}

func dummyBlock(num uint64, fullTxs bool) gin.H {
	txs := make([]interface{}, 0, DummyTxsPerBlock)
	for i := 0; i < DummyTxsPerBlock; i++ {
		hash := dummyTxHash(num, i)
		if !fullTxs {
			txs = append(txs, hash.Hex())
			continue
		}
		txs = append(txs, gin.H{
			"hash":  hash.Hex(),
			"from":  common.BigToAddress(new(big.Int).SetUint64(num*10 + uint64(i) + 1)).Hex(),
			"to":    dummyContractAddr,
			"input": "0xa9059cbb",
		})
	}
	return gin.H{
		"number":       hexutil.EncodeUint64(num),
		"hash":         common.BigToHash(new(big.Int).SetUint64(num + 1)).Hex(),
		"transactions": txs,
	}
}

func dummyTxHash(block uint64, i int) common.Hash {
	return common.HexToHash("0x" + strconv.FormatUint(block, 16) + "0" + strconv.Itoa(i))
}
