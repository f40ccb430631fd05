package eth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/6529-Collections/6529stats/internal/engine"
	"github.com/6529-Collections/6529stats/internal/registry"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

var (
	erc1155ABI = mustParseABI(`[
    {"anonymous":false,"name":"TransferSingle","type":"event","inputs":[
        {"indexed":true,"name":"operator","type":"address"},
        {"indexed":true,"name":"from","type":"address"},
        {"indexed":true,"name":"to","type":"address"},
        {"indexed":false,"name":"id","type":"uint256"},
        {"indexed":false,"name":"value","type":"uint256"}]},
    {"anonymous":false,"name":"TransferBatch","type":"event","inputs":[
        {"indexed":true,"name":"operator","type":"address"},
        {"indexed":true,"name":"from","type":"address"},
        {"indexed":true,"name":"to","type":"address"},
        {"indexed":false,"name":"ids","type":"uint256[]"},
        {"indexed":false,"name":"values","type":"uint256[]"}]}
	]`)

	erc20ABI = mustParseABI(`[
    {"anonymous":false,"name":"Transfer","type":"event","inputs":[
        {"indexed":true,"name":"from","type":"address"},
        {"indexed":true,"name":"to","type":"address"},
        {"indexed":false,"name":"value","type":"uint256"}]}
	]`)

	erc4626ABI = mustParseABI(`[
    {"anonymous":false,"name":"Deposit","type":"event","inputs":[
        {"indexed":true,"name":"sender","type":"address"},
        {"indexed":true,"name":"owner","type":"address"},
        {"indexed":false,"name":"assets","type":"uint256"},
        {"indexed":false,"name":"shares","type":"uint256"}]},
    {"anonymous":false,"name":"Withdraw","type":"event","inputs":[
        {"indexed":true,"name":"sender","type":"address"},
        {"indexed":true,"name":"receiver","type":"address"},
        {"indexed":true,"name":"owner","type":"address"},
        {"indexed":false,"name":"assets","type":"uint256"},
        {"indexed":false,"name":"shares","type":"uint256"}]}
	]`)

	stakingABI = mustParseABI(`[
    {"anonymous":false,"name":"Staked","type":"event","inputs":[
        {"indexed":true,"name":"user","type":"address"},
        {"indexed":false,"name":"amount","type":"uint256"}]},
    {"anonymous":false,"name":"Unstaked","type":"event","inputs":[
        {"indexed":true,"name":"user","type":"address"},
        {"indexed":false,"name":"amount","type":"uint256"}]},
    {"anonymous":false,"name":"RewardClaimed","type":"event","inputs":[
        {"indexed":true,"name":"user","type":"address"},
        {"indexed":false,"name":"amount","type":"uint256"}]}
	]`)

	lendingABI = mustParseABI(`[
    {"anonymous":false,"name":"LiquidateBorrow","type":"event","inputs":[
        {"indexed":false,"name":"liquidator","type":"address"},
        {"indexed":false,"name":"borrower","type":"address"},
        {"indexed":false,"name":"repayAmount","type":"uint256"},
        {"indexed":false,"name":"cTokenCollateral","type":"address"},
        {"indexed":false,"name":"seizeTokens","type":"uint256"}]}
	]`)

	tradeABI = mustParseABI(`[
    {"anonymous":false,"name":"TradeProposed","type":"event","inputs":[
        {"indexed":true,"name":"tradeId","type":"uint256"},
        {"indexed":true,"name":"proposer","type":"address"},
        {"indexed":true,"name":"counterparty","type":"address"},
        {"indexed":false,"name":"offeredTokenId","type":"uint256"},
        {"indexed":false,"name":"requestedTokenId","type":"uint256"}]},
    {"anonymous":false,"name":"TradeAccepted","type":"event","inputs":[
        {"indexed":true,"name":"tradeId","type":"uint256"},
        {"indexed":true,"name":"proposer","type":"address"},
        {"indexed":true,"name":"counterparty","type":"address"}]},
    {"anonymous":false,"name":"TradeCancelled","type":"event","inputs":[
        {"indexed":true,"name":"tradeId","type":"uint256"},
        {"indexed":true,"name":"proposer","type":"address"}]}
	]`)
)

// ERC-20 and ERC-721 share the Transfer signature and differ in topic count.
var transferSig = erc20ABI.Events["Transfer"].ID

var errSkipLog = errors.New("log not relevant")

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("failed to parse ABI: %v", err))
	}
	return parsed
}

// logDecoder turns one raw log into zero or more event types with params.
type logDecoder func(lg types.Log) (engine.EventType, engine.Params, error)

type topicKey struct {
	kind registry.AssetKind
	sig  common.Hash
}

var decoders = map[topicKey]logDecoder{
	{registry.KindERC721, transferSig}:                              decodeERC721Transfer,
	{registry.KindERC20, transferSig}:                               decodeERC20Transfer,
	{registry.KindERC1155, erc1155ABI.Events["TransferSingle"].ID}:  decodeTransferSingle,
	{registry.KindERC1155, erc1155ABI.Events["TransferBatch"].ID}:   decodeTransferBatch,
	{registry.KindVault, erc4626ABI.Events["Deposit"].ID}:           decodeVaultDeposit,
	{registry.KindVault, erc4626ABI.Events["Withdraw"].ID}:          decodeVaultWithdraw,
	{registry.KindStaking, stakingABI.Events["Staked"].ID}:          decodeStaking(engine.EventStaked, "Staked"),
	{registry.KindStaking, stakingABI.Events["Unstaked"].ID}:        decodeStaking(engine.EventUnstaked, "Unstaked"),
	{registry.KindStaking, stakingABI.Events["RewardClaimed"].ID}:   decodeStaking(engine.EventRewardClaimed, "RewardClaimed"),
	{registry.KindLending, lendingABI.Events["LiquidateBorrow"].ID}: decodeLiquidation,
	{registry.KindTrade, tradeABI.Events["TradeProposed"].ID}:       decodeTrade(engine.EventTradeProposed),
	{registry.KindTrade, tradeABI.Events["TradeAccepted"].ID}:       decodeTrade(engine.EventTradeAccepted),
	{registry.KindTrade, tradeABI.Events["TradeCancelled"].ID}:      decodeTrade(engine.EventTradeCancelled),
}

// EventTopics lists every topic0 the decoder understands, for log filters.
func EventTopics() []common.Hash {
	seen := map[common.Hash]bool{}
	var out []common.Hash
	for k := range decoders {
		if !seen[k.sig] {
			seen[k.sig] = true
			out = append(out, k.sig)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hex() < out[j].Hex() })
	return out
}

type EthTransactionLogsDecoder interface {
	Decode(ctx context.Context, allLogs []types.Log) ([]engine.Event, error)
}

type DefaultEthTransactionLogsDecoder struct {
	chainID   uint64
	ethClient EthClient
	registry  *registry.Registry
	signer    types.Signer
}

func NewDefaultEthTransactionLogsDecoder(chainID uint64, ethClient EthClient, reg *registry.Registry) *DefaultEthTransactionLogsDecoder {
	return &DefaultEthTransactionLogsDecoder{
		chainID:   chainID,
		ethClient: ethClient,
		registry:  reg,
		signer:    types.LatestSignerForChainID(new(big.Int).SetUint64(chainID)),
	}
}

// Decode converts logs into engine events ordered by block, transaction and
// log index. Logs from unregistered contracts or with unknown signatures are
// skipped; logs that match a known signature but fail to unpack are logged
// and skipped. RPC failures abort the whole batch.
func (d *DefaultEthTransactionLogsDecoder) Decode(ctx context.Context, allLogs []types.Log) ([]engine.Event, error) {
	logs := make([]types.Log, 0, len(allLogs))
	for _, lg := range allLogs {
		if len(lg.Topics) == 0 || lg.Removed {
			continue
		}
		logs = append(logs, lg)
	}
	sort.Slice(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		if logs[i].TxIndex != logs[j].TxIndex {
			return logs[i].TxIndex < logs[j].TxIndex
		}
		return logs[i].Index < logs[j].Index
	})

	blockTimes := map[uint64]uint64{}
	txMetas := map[common.Hash]engine.TxMeta{}
	var events []engine.Event
	for _, lg := range logs {
		contract := strings.ToLower(lg.Address.Hex())
		asset, ok := d.registry.Lookup(d.chainID, contract)
		if !ok {
			continue
		}
		decode, ok := decoders[topicKey{asset.Kind, lg.Topics[0]}]
		if !ok {
			continue
		}
		eventType, params, err := decode(lg)
		if errors.Is(err, errSkipLog) {
			continue
		}
		if err != nil {
			zap.L().Error("error decoding log",
				zap.Uint64("chainId", d.chainID),
				zap.String("contract", contract),
				zap.String("txHash", lg.TxHash.Hex()),
				zap.Uint("logIndex", lg.Index),
				zap.Error(err),
			)
			continue
		}

		blockTime, ok := blockTimes[lg.BlockNumber]
		if !ok {
			header, err := d.ethClient.HeaderByNumber(ctx, new(big.Int).SetUint64(lg.BlockNumber))
			if err != nil {
				return nil, fmt.Errorf("header %d: %w", lg.BlockNumber, err)
			}
			blockTime = header.Time
			blockTimes[lg.BlockNumber] = blockTime
		}

		txMeta, ok := txMetas[lg.TxHash]
		if !ok {
			txMeta, err = d.txMeta(ctx, lg.TxHash)
			if isUndecodableTx(err) {
				zap.L().Warn("transaction cannot be decoded, burn attribution falls back to user",
					zap.Uint64("chainId", d.chainID),
					zap.String("txHash", lg.TxHash.Hex()),
					zap.Error(err),
				)
				txMeta, err = engine.TxMeta{}, nil
			}
			if err != nil {
				return nil, err
			}
			txMetas[lg.TxHash] = txMeta
		}

		events = append(events, engine.Event{
			Type:        eventType,
			ChainID:     d.chainID,
			BlockNumber: lg.BlockNumber,
			Timestamp:   blockTime,
			TxHash:      strings.ToLower(lg.TxHash.Hex()),
			LogIndex:    uint64(lg.Index),
			Contract:    contract,
			Tx:          txMeta,
			Params:      params,
		})
	}
	return events, nil
}

// txMeta resolves the externally owned sender and the top-level called
// contract of a transaction.
func (d *DefaultEthTransactionLogsDecoder) txMeta(ctx context.Context, hash common.Hash) (engine.TxMeta, error) {
	tx, _, err := d.ethClient.TransactionByHash(ctx, hash)
	if err != nil {
		return engine.TxMeta{}, fmt.Errorf("transaction %s: %w", hash.Hex(), err)
	}
	var meta engine.TxMeta
	if to := tx.To(); to != nil {
		meta.To = strings.ToLower(to.Hex())
	}
	from, err := types.Sender(d.signer, tx)
	if err != nil {
		zap.L().Warn("could not recover transaction sender", zap.String("txHash", hash.Hex()), zap.Error(err))
		return meta, nil
	}
	meta.From = strings.ToLower(from.Hex())
	return meta, nil
}

// isUndecodableTx reports lookup failures that no retry can fix, such as
// chain specific transaction types go-ethereum does not know.
func isUndecodableTx(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, types.ErrTxTypeNotSupported) {
		return true
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

func topicAddress(h common.Hash) string {
	return strings.ToLower(common.BytesToAddress(h.Bytes()).Hex())
}

func decodeERC721Transfer(lg types.Log) (engine.EventType, engine.Params, error) {
	if len(lg.Topics) != 4 {
		return "", nil, errSkipLog
	}
	return engine.EventERC721Transfer, engine.TransferParams{
		From:    topicAddress(lg.Topics[1]),
		To:      topicAddress(lg.Topics[2]),
		TokenID: new(big.Int).SetBytes(lg.Topics[3].Bytes()),
		Amount:  big.NewInt(1),
	}, nil
}

func decodeERC20Transfer(lg types.Log) (engine.EventType, engine.Params, error) {
	if len(lg.Topics) != 3 {
		return "", nil, errSkipLog
	}
	var data struct {
		Value *big.Int `abi:"value"`
	}
	if err := erc20ABI.UnpackIntoInterface(&data, "Transfer", lg.Data); err != nil {
		return "", nil, err
	}
	return engine.EventERC20Transfer, engine.TransferParams{
		From:   topicAddress(lg.Topics[1]),
		To:     topicAddress(lg.Topics[2]),
		Amount: data.Value,
	}, nil
}

func decodeTransferSingle(lg types.Log) (engine.EventType, engine.Params, error) {
	if len(lg.Topics) < 4 {
		return "", nil, errors.New("invalid TransferSingle topics length")
	}
	var data struct {
		ID    *big.Int `abi:"id"`
		Value *big.Int `abi:"value"`
	}
	if err := erc1155ABI.UnpackIntoInterface(&data, "TransferSingle", lg.Data); err != nil {
		return "", nil, err
	}
	return engine.EventERC1155TransferSingle, engine.TransferParams{
		From:    topicAddress(lg.Topics[2]),
		To:      topicAddress(lg.Topics[3]),
		TokenID: data.ID,
		Amount:  data.Value,
	}, nil
}

func decodeTransferBatch(lg types.Log) (engine.EventType, engine.Params, error) {
	if len(lg.Topics) < 4 {
		return "", nil, errors.New("invalid TransferBatch topics length")
	}
	var data struct {
		Ids    []*big.Int `abi:"ids"`
		Values []*big.Int `abi:"values"`
	}
	if err := erc1155ABI.UnpackIntoInterface(&data, "TransferBatch", lg.Data); err != nil {
		return "", nil, err
	}
	return engine.EventERC1155TransferBatch, engine.BatchTransferParams{
		From:     topicAddress(lg.Topics[2]),
		To:       topicAddress(lg.Topics[3]),
		TokenIDs: data.Ids,
		Amounts:  data.Values,
	}, nil
}

type vaultAmounts struct {
	Assets *big.Int `abi:"assets"`
	Shares *big.Int `abi:"shares"`
}

func decodeVaultDeposit(lg types.Log) (engine.EventType, engine.Params, error) {
	if len(lg.Topics) < 3 {
		return "", nil, errors.New("invalid Deposit topics length")
	}
	var data vaultAmounts
	if err := erc4626ABI.UnpackIntoInterface(&data, "Deposit", lg.Data); err != nil {
		return "", nil, err
	}
	return engine.EventVaultDeposit, engine.VaultParams{
		Sender: topicAddress(lg.Topics[1]),
		Owner:  topicAddress(lg.Topics[2]),
		Assets: data.Assets,
		Shares: data.Shares,
	}, nil
}

func decodeVaultWithdraw(lg types.Log) (engine.EventType, engine.Params, error) {
	if len(lg.Topics) < 4 {
		return "", nil, errors.New("invalid Withdraw topics length")
	}
	var data vaultAmounts
	if err := erc4626ABI.UnpackIntoInterface(&data, "Withdraw", lg.Data); err != nil {
		return "", nil, err
	}
	return engine.EventVaultWithdraw, engine.VaultParams{
		Sender:   topicAddress(lg.Topics[1]),
		Receiver: topicAddress(lg.Topics[2]),
		Owner:    topicAddress(lg.Topics[3]),
		Assets:   data.Assets,
		Shares:   data.Shares,
	}, nil
}

func decodeStaking(eventType engine.EventType, name string) logDecoder {
	return func(lg types.Log) (engine.EventType, engine.Params, error) {
		if len(lg.Topics) < 2 {
			return "", nil, fmt.Errorf("invalid %s topics length", name)
		}
		var data struct {
			Amount *big.Int `abi:"amount"`
		}
		if err := stakingABI.UnpackIntoInterface(&data, name, lg.Data); err != nil {
			return "", nil, err
		}
		return eventType, engine.StakingParams{
			User:   topicAddress(lg.Topics[1]),
			Amount: data.Amount,
		}, nil
	}
}

func decodeLiquidation(lg types.Log) (engine.EventType, engine.Params, error) {
	var data struct {
		Liquidator       common.Address `abi:"liquidator"`
		Borrower         common.Address `abi:"borrower"`
		RepayAmount      *big.Int       `abi:"repayAmount"`
		CTokenCollateral common.Address `abi:"cTokenCollateral"`
		SeizeTokens      *big.Int       `abi:"seizeTokens"`
	}
	if err := lendingABI.UnpackIntoInterface(&data, "LiquidateBorrow", lg.Data); err != nil {
		return "", nil, err
	}
	return engine.EventLiquidated, engine.LiquidationParams{
		Borrower:   strings.ToLower(data.Borrower.Hex()),
		Liquidator: strings.ToLower(data.Liquidator.Hex()),
		Repaid:     data.RepayAmount,
		Seized:     data.SeizeTokens,
	}, nil
}

func decodeTrade(eventType engine.EventType) logDecoder {
	return func(lg types.Log) (engine.EventType, engine.Params, error) {
		if len(lg.Topics) < 3 {
			return "", nil, fmt.Errorf("invalid %s topics length", eventType)
		}
		params := engine.TradeParams{
			TradeID:  new(big.Int).SetBytes(lg.Topics[1].Bytes()),
			Proposer: topicAddress(lg.Topics[2]),
		}
		if len(lg.Topics) > 3 {
			params.Counterparty = topicAddress(lg.Topics[3])
		}
		if eventType == engine.EventTradeProposed {
			var data struct {
				OfferedTokenId   *big.Int `abi:"offeredTokenId"`
				RequestedTokenId *big.Int `abi:"requestedTokenId"`
			}
			if err := tradeABI.UnpackIntoInterface(&data, "TradeProposed", lg.Data); err != nil {
				return "", nil, err
			}
			params.OfferedTokenID = data.OfferedTokenId
			params.RequestedTokenID = data.RequestedTokenId
		}
		return eventType, params, nil
	}
}
