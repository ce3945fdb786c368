package rpcflood

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
)

func testSample() *ChainSample {
	return &ChainSample{
		Latest:    0x20,
		Blocks:    []uint64{0x20, 0x1f},
		TxHashes:  []common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02"), common.HexToHash("0x03")},
		Addresses: []common.Address{common.HexToAddress("0xaa")},
		Contracts: []common.Address{common.HexToAddress("0xc0de5")},
	}
}

func TestNewRPCCallBody(t *testing.T) {
	c, err := NewRPCCall(7, MethodGetBalance, common.HexToAddress("0xaa"), "latest")
	require.NoError(t, err)
	require.Equal(t,
		`{"jsonrpc":"2.0","id":7,"method":"eth_getBalance","params":["0x00000000000000000000000000000000000000aa","latest"]}`,
		string(c.Body()),
	)

	c, err = NewRPCCall(1, MethodBlockNumber)
	require.NoError(t, err)
	require.Equal(t, `{"jsonrpc":"2.0","id":1,"method":"eth_blockNumber","params":[]}`, string(c.Body()))
	require.NotNil(t, c.Params)
}

func TestGenerateCallsParams(t *testing.T) {
	s := testSample()
	cases := map[string]string{
		MethodCall:                  `[{"data":"0x18160ddd","to":"0x00000000000000000000000000000000000c0de5"},"latest"]`,
		MethodGetBalance:            `["0x00000000000000000000000000000000000000aa","latest"]`,
		MethodGetBlockByNumber:      `["0x20",false]`,
		MethodGetCode:               `["0x00000000000000000000000000000000000c0de5","latest"]`,
		MethodGetLogs:               `[{"fromBlock":"0x20","toBlock":"0x20"}]`,
		MethodGetStorageAt:          `["0x00000000000000000000000000000000000c0de5","0x0","latest"]`,
		MethodGetTransactionByHash:  `["0x0000000000000000000000000000000000000000000000000000000000000001"]`,
		MethodGetTransactionCount:   `["0x00000000000000000000000000000000000000aa","latest"]`,
		MethodGetTransactionReceipt: `["0x0000000000000000000000000000000000000000000000000000000000000001"]`,
		MethodGasPrice:              `[]`,
	}
	for method, params := range cases {
		calls, err := GenerateCalls(method, s, 4)
		require.NoError(t, err, method)
		require.Len(t, calls, 4)
		body := calls[0].Body()
		require.Equal(t, method, jsoniter.Get(body, "method").ToString())
		require.Equal(t, 1, jsoniter.Get(body, "id").ToInt())
		require.JSONEq(t, params, jsoniter.Get(body, "params").ToString(), method)
	}
}

func TestGenerateCallsCyclesSample(t *testing.T) {
	calls, err := GenerateCalls(MethodGetTransactionReceipt, testSample(), 4)
	require.NoError(t, err)
	hashes := make([]string, 0)
	for _, c := range calls {
		hashes = append(hashes, c.Params[0].(common.Hash).Hex())
	}
	require.Equal(t, hashes[0], hashes[3])
	require.NotEqual(t, hashes[0], hashes[1])

	calls, err = GenerateCalls(MethodGetBlockByNumber, testSample(), 2)
	require.NoError(t, err)
	require.Equal(t, "0x1f", calls[1].Params[0])
}

func TestGenerateCallsErrors(t *testing.T) {
	_, err := GenerateCalls("eth_sendRawTransaction", testSample(), 1)
	require.True(t, errors.Is(err, ErrUnknownMethod))

	_, err = GenerateCalls(MethodCall, testSample(), 0)
	require.Error(t, err)

	for _, method := range []string{MethodCall, MethodGetBalance, MethodGetLogs, MethodGetTransactionByHash} {
		_, err = GenerateCalls(method, &ChainSample{}, 1)
		require.True(t, errors.Is(err, ErrNoSampleData), method)
	}

	calls, err := GenerateCalls(MethodChainID, nil, 1)
	require.NoError(t, err)
	require.Len(t, calls, 1)
}

func TestSupportedMethods(t *testing.T) {
	methods := SupportedMethods()
	require.Len(t, methods, 12)
	require.Contains(t, methods, MethodGetTransactionReceipt)
	require.NoError(t, ValidateMethod(MethodGetLogs))
	require.Error(t, ValidateMethod("eth_mining"))
}
