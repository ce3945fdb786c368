package rpcflood

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

const (
	MethodCall                  = "eth_call"
	MethodGetBalance            = "eth_getBalance"
	MethodGetBlockByNumber      = "eth_getBlockByNumber"
	MethodGetCode               = "eth_getCode"
	MethodGetLogs               = "eth_getLogs"
	MethodGetStorageAt          = "eth_getStorageAt"
	MethodGetTransactionByHash  = "eth_getTransactionByHash"
	MethodGetTransactionCount   = "eth_getTransactionCount"
	MethodGetTransactionReceipt = "eth_getTransactionReceipt"
	MethodBlockNumber           = "eth_blockNumber"
	MethodChainID               = "eth_chainId"
	MethodGasPrice              = "eth_gasPrice"

	blockTagLatest = "latest"
)

// totalSupply() selector, answered by every erc20 contract
var totalSupplySelector = hexutil.Bytes{0x18, 0x16, 0x0d, 0xdd}

var rpcJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// RPCCall single json-rpc request, body is encoded once and reused by every attack
type RPCCall struct {
	Method string
	Params []interface{}
	body   []byte
}

type jsonrpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

func NewRPCCall(id int, method string, params ...interface{}) (*RPCCall, error) {
	if params == nil {
		params = []interface{}{}
	}
	body, err := rpcJSON.Marshal(jsonrpcRequest{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s call", method)
	}
	return &RPCCall{Method: method, Params: params, body: body}, nil
}

// Body json-rpc 2.0 request body
func (c *RPCCall) Body() []byte {
	return c.body
}

type paramsFunc func(s *ChainSample, i int) ([]interface{}, error)

var callParams = map[string]paramsFunc{
	MethodCall: func(s *ChainSample, i int) ([]interface{}, error) {
		to, err := pickAddress(s.Contracts, i)
		if err != nil {
			return nil, err
		}
		return []interface{}{
			map[string]interface{}{"to": to, "data": totalSupplySelector},
			blockTagLatest,
		}, nil
	},
	MethodGetBalance: func(s *ChainSample, i int) ([]interface{}, error) {
		addr, err := pickAddress(s.Addresses, i)
		if err != nil {
			return nil, err
		}
		return []interface{}{addr, blockTagLatest}, nil
	},
	MethodGetBlockByNumber: func(s *ChainSample, i int) ([]interface{}, error) {
		num, err := pickBlock(s.Blocks, i)
		if err != nil {
			return nil, err
		}
		return []interface{}{num, false}, nil
	},
	MethodGetCode: func(s *ChainSample, i int) ([]interface{}, error) {
		addr, err := pickAddress(s.Contracts, i)
		if err != nil {
			return nil, err
		}
		return []interface{}{addr, blockTagLatest}, nil
	},
	MethodGetLogs: func(s *ChainSample, i int) ([]interface{}, error) {
		num, err := pickBlock(s.Blocks, i)
		if err != nil {
			return nil, err
		}
		return []interface{}{map[string]interface{}{"fromBlock": num, "toBlock": num}}, nil
	},
	MethodGetStorageAt: func(s *ChainSample, i int) ([]interface{}, error) {
		addr, err := pickAddress(s.Contracts, i)
		if err != nil {
			return nil, err
		}
		return []interface{}{addr, "0x0", blockTagLatest}, nil
	},
	MethodGetTransactionByHash: func(s *ChainSample, i int) ([]interface{}, error) {
		hash, err := pickHash(s.TxHashes, i)
		if err != nil {
			return nil, err
		}
		return []interface{}{hash}, nil
	},
	MethodGetTransactionCount: func(s *ChainSample, i int) ([]interface{}, error) {
		addr, err := pickAddress(s.Addresses, i)
		if err != nil {
			return nil, err
		}
		return []interface{}{addr, blockTagLatest}, nil
	},
	MethodGetTransactionReceipt: func(s *ChainSample, i int) ([]interface{}, error) {
		hash, err := pickHash(s.TxHashes, i)
		if err != nil {
			return nil, err
		}
		return []interface{}{hash}, nil
	},
	MethodBlockNumber: noParams,
	MethodChainID:     noParams,
	MethodGasPrice:    noParams,
}

func noParams(_ *ChainSample, _ int) ([]interface{}, error) {
	return nil, nil
}

func pickAddress(addrs []common.Address, i int) (common.Address, error) {
	if len(addrs) == 0 {
		return common.Address{}, ErrNoSampleData
	}
	return addrs[i%len(addrs)], nil
}

func pickHash(hashes []common.Hash, i int) (common.Hash, error) {
	if len(hashes) == 0 {
		return common.Hash{}, ErrNoSampleData
	}
	return hashes[i%len(hashes)], nil
}

func pickBlock(blocks []uint64, i int) (string, error) {
	if len(blocks) == 0 {
		return "", ErrNoSampleData
	}
	return hexutil.EncodeUint64(blocks[i%len(blocks)]), nil
}

// SupportedMethods methods calls can be generated for
func SupportedMethods() []string {
	methods := make([]string, 0, len(callParams))
	for m := range callParams {
		methods = append(methods, m)
	}
	sort.Strings(methods)
	return methods
}

func ValidateMethod(method string) error {
	if _, ok := callParams[method]; !ok {
		return errors.Wrap(ErrUnknownMethod, method)
	}
	return nil
}

// GenerateCalls builds n calls of a method cycling over sampled chain data
func GenerateCalls(method string, s *ChainSample, n int) ([]*RPCCall, error) {
	params, ok := callParams[method]
	if !ok {
		return nil, errors.Wrap(ErrUnknownMethod, method)
	}
	if n <= 0 {
		return nil, errors.Errorf("calls amount must be > 0, got %d", n)
	}
	if s == nil {
		s = &ChainSample{}
	}
	calls := make([]*RPCCall, 0, n)
	for i := 0; i < n; i++ {
		p, err := params(s, i)
		if err != nil {
			return nil, errors.Wrapf(err, "generate %s params", method)
		}
		call, err := NewRPCCall(i+1, method, p...)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, nil
}
