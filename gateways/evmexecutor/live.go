package evmexecutor

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"time"

	commonerrors "github.com/crosslane/bridge-orchestrator/common/errors"
	"github.com/crosslane/bridge-orchestrator/common/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// interchainTokenABI is the destination contract surface the executor
// needs: the mint entrypoint, the token registry view and the per-holder
// balance view.
const interchainTokenABI = `[
  {"type":"function","name":"mintTokens","inputs":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"},{"name":"symbol","type":"string"},{"name":"sourceChain","type":"string"},{"name":"transferId","type":"string"}],"outputs":[]},
  {"type":"function","name":"tokenInfo","stateMutability":"view","inputs":[{"name":"symbol","type":"string"}],"outputs":[{"name":"token","type":"address"},{"name":"decimals","type":"uint8"},{"name":"supported","type":"bool"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"symbol","type":"string"},{"name":"holder","type":"address"}],"outputs":[{"name":"balance","type":"uint256"}]}
]`

const receiptPollInterval = time.Second

// Executor is the live DestinationExecutor driving the interchain token
// contract over an EVM RPC endpoint.
type Executor struct {
	client       *ethclient.Client
	contract     ethcommon.Address
	contractABI  abi.ABI
	operatorKey  *ecdsa.PrivateKey
	operatorAddr ethcommon.Address
	chainID      *big.Int
	logger       *logrus.Logger
}

// NewExecutor creates a live executor.
//
// Parameters:
// - rpcURL: the destination chain RPC endpoint.
// - contractAddr: the interchain token contract address.
// - operatorKeyHex: the operator's private key for mint calls.
// - logger: the logger for logging events.
//
// Returns:
// - *Executor: the live executor instance.
// - error: an error if the client or key setup fails.
func NewExecutor(ctx context.Context, rpcURL, contractAddr, operatorKeyHex string, logger *logrus.Logger) (*Executor, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create client")
	}

	parsed, err := abi.JSON(strings.NewReader(interchainTokenABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse contract ABI")
	}

	key, err := crypto.HexToECDSA(operatorKeyHex)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse operator key")
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get chain id")
	}

	return &Executor{
		client:       client,
		contract:     ethcommon.HexToAddress(contractAddr),
		contractABI:  parsed,
		operatorKey:  key,
		operatorAddr: crypto.PubkeyToAddress(key.PublicKey),
		chainID:      chainID,
		logger:       logger,
	}, nil
}

// Close releases the RPC client.
func (e *Executor) Close() {
	e.client.Close()
}

// DecodeMessage validates and decodes a relayed payload.
func (e *Executor) DecodeMessage(payload string) (*types.TransferIntent, error) {
	return DecodeTransferMessage(payload)
}

// LookupToken reads the contract's token registry.
func (e *Executor) LookupToken(ctx context.Context, symbol string) (*types.TokenInfo, error) {
	data, err := e.contractABI.Pack("tokenInfo", symbol)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack tokenInfo call")
	}

	result, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &e.contract, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrap(commonerrors.ErrNetwork, err.Error())
	}

	out, err := e.contractABI.Unpack("tokenInfo", result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack tokenInfo result")
	}
	if len(out) != 3 {
		return nil, errors.Errorf("tokenInfo returned %d outputs, want 3", len(out))
	}

	token := out[0].(ethcommon.Address)
	decimals := out[1].(uint8)
	supported := out[2].(bool)
	if !supported {
		return nil, errors.Wrapf(commonerrors.ErrUnsupportedToken, "no record for symbol %q", symbol)
	}

	return &types.TokenInfo{
		Symbol:          symbol,
		Decimals:        decimals,
		ContractAddress: token.Hex(),
	}, nil
}

// Execute performs the mint call and waits for its receipt. A revert whose
// reason names the transfer id as already executed is surfaced as
// ErrDuplicateExecution; the contract is the source of truth for replays.
func (e *Executor) Execute(ctx context.Context, intent *types.TransferIntent) (*types.ExecutionResult, error) {
	info, err := e.LookupToken(ctx, intent.TokenSymbol)
	if err != nil {
		return nil, err
	}

	amount, err := scaleToUnits(intent.Amount, info.Decimals)
	if err != nil {
		return nil, errors.Wrap(commonerrors.ErrExecution, err.Error())
	}

	data, err := e.contractABI.Pack("mintTokens",
		ethcommon.HexToAddress(intent.DestinationAddress),
		amount,
		intent.TokenSymbol,
		intent.SourceChain,
		intent.TransferID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack mintTokens call")
	}

	nonce, err := e.client.PendingNonceAt(ctx, e.operatorAddr)
	if err != nil {
		return nil, errors.Wrap(commonerrors.ErrNetwork, err.Error())
	}
	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(commonerrors.ErrNetwork, err.Error())
	}
	gasLimit, err := e.client.EstimateGas(ctx, ethereum.CallMsg{
		From: e.operatorAddr,
		To:   &e.contract,
		Data: data,
	})
	if err != nil {
		if isDuplicateRevert(err) {
			return nil, errors.Wrapf(commonerrors.ErrDuplicateExecution,
				"transfer %s already executed", intent.TransferID)
		}
		return nil, errors.Wrap(commonerrors.ErrExecution, err.Error())
	}

	tx := ethtypes.NewTransaction(nonce, e.contract, big.NewInt(0), gasLimit, gasPrice, data)
	signedTx, err := ethtypes.SignTx(tx, ethtypes.LatestSignerForChainID(e.chainID), e.operatorKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}
	if err := e.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, errors.Wrap(commonerrors.ErrNetwork, err.Error())
	}

	receipt, err := e.waitReceipt(ctx, signedTx.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, errors.Wrapf(commonerrors.ErrExecution,
			"mint transaction %s reverted", signedTx.Hash().Hex())
	}

	e.logger.WithFields(logrus.Fields{
		"txHash":     signedTx.Hash().Hex(),
		"transferId": intent.TransferID,
		"recipient":  intent.DestinationAddress,
	}).Info("destination mint executed")

	return &types.ExecutionResult{
		TxHash: signedTx.Hash().Hex(),
		Events: []types.ExecutionEvent{{
			Name:       "TokensMinted",
			Recipient:  intent.DestinationAddress,
			Amount:     intent.Amount,
			TransferID: intent.TransferID,
		}},
	}, nil
}

// GetTokenBalance reads a holder's balance from the contract, scaled back
// to a decimal string.
func (e *Executor) GetTokenBalance(ctx context.Context, address, symbol string) (string, error) {
	info, err := e.LookupToken(ctx, symbol)
	if err != nil {
		return "", err
	}

	data, err := e.contractABI.Pack("balanceOf", symbol, ethcommon.HexToAddress(address))
	if err != nil {
		return "", errors.Wrap(err, "failed to pack balanceOf call")
	}
	result, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &e.contract, Data: data}, nil)
	if err != nil {
		return "", errors.Wrap(commonerrors.ErrNetwork, err.Error())
	}
	if len(result) == 0 {
		return "", errors.New("empty result from balanceOf call")
	}

	balance := new(big.Int).SetBytes(result)
	return scaleFromUnits(balance, info.Decimals), nil
}

func (e *Executor) waitReceipt(ctx context.Context, hash ethcommon.Hash) (*ethtypes.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			receipt, err := e.client.TransactionReceipt(ctx, hash)
			if err != nil {
				if errors.Is(err, ethereum.NotFound) {
					continue
				}
				return nil, errors.Wrap(commonerrors.ErrNetwork, err.Error())
			}
			return receipt, nil
		}
	}
}

func isDuplicateRevert(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already executed")
}

// scaleToUnits converts a decimal amount string into the token's smallest
// units.
func scaleToUnits(amount string, decimals uint8) (*big.Int, error) {
	f, ok := new(big.Float).SetString(amount)
	if !ok {
		return nil, errors.Errorf("malformed amount %q", amount)
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	f.Mul(f, scale)
	i, _ := f.Int(nil)
	return i, nil
}

// scaleFromUnits converts smallest units back into a decimal string.
func scaleFromUnits(units *big.Int, decimals uint8) string {
	f := new(big.Float).SetInt(units)
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	f.Quo(f, scale)
	return types.FormatAmount(f)
}
