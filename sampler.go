package rpcflood

import (
	"context"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

// ChainSample recent chain data used as call params
type ChainSample struct {
	Latest    uint64
	Blocks    []uint64
	TxHashes  []common.Hash
	Addresses []common.Address
	Contracts []common.Address
}

type sampledTx struct {
	Hash  common.Hash     `json:"hash"`
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to"`
	Input hexutil.Bytes   `json:"input"`
}

type sampledBlock struct {
	Number       hexutil.Uint64 `json:"number"`
	Hash         common.Hash    `json:"hash"`
	Transactions []sampledTx    `json:"transactions"`
}

// SampleChain reads latest blocks with full transactions from the node
func SampleChain(ctx context.Context, node string, blocks int, hc *http.Client) (*ChainSample, error) {
	client, err := rpc.DialOptions(ctx, node, rpc.WithHTTPClient(hc))
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", node)
	}
	defer client.Close()

	var latest hexutil.Uint64
	if err := client.CallContext(ctx, &latest, MethodBlockNumber); err != nil {
		return nil, errors.Wrapf(err, "%s %s", MethodBlockNumber, node)
	}
	s := &ChainSample{Latest: uint64(latest)}
	seenAddr := make(map[common.Address]struct{})
	seenContract := make(map[common.Address]struct{})
	for i := 0; i < blocks && uint64(i) <= s.Latest; i++ {
		num := s.Latest - uint64(i)
		var b *sampledBlock
		if err := client.CallContext(ctx, &b, MethodGetBlockByNumber, hexutil.EncodeUint64(num), true); err != nil {
			return nil, errors.Wrapf(err, "%s %d %s", MethodGetBlockByNumber, num, node)
		}
		if b == nil {
			continue
		}
		s.Blocks = append(s.Blocks, uint64(b.Number))
		for _, tx := range b.Transactions {
			s.TxHashes = append(s.TxHashes, tx.Hash)
			if _, ok := seenAddr[tx.From]; !ok {
				seenAddr[tx.From] = struct{}{}
				s.Addresses = append(s.Addresses, tx.From)
			}
			if tx.To == nil || len(tx.Input) == 0 {
				continue
			}
			if _, ok := seenContract[*tx.To]; !ok {
				seenContract[*tx.To] = struct{}{}
				s.Contracts = append(s.Contracts, *tx.To)
			}
		}
	}
	return s, nil
}
