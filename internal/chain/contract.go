package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/lafiyatech/medimint/internal/fault"
)

// Backend is the JSON-RPC surface the contract clients need.
// *ethclient.Client satisfies it; tests substitute doubles.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Dial connects to a JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fault.Wrap(fault.Network, "chain.dial", err, "connect to rpc endpoint")
	}
	return client, nil
}

// AllNFTs is the column-oriented listing returned by the NFT contract.
type AllNFTs struct {
	TokenIDs  []*big.Int
	Creators  []common.Address
	Owners    []common.Address
	TokenURIs []string
}

// MintedEvent is the authoritative outcome of a mint, decoded from the
// NFTMinted log in the transaction receipt.
type MintedEvent struct {
	TokenID  *big.Int
	Creator  common.Address
	To       common.Address
	TokenURI string
	Reward   *big.Int
	TxHash   common.Hash
}

// NFTContract wraps read and write calls against the deployed NFT
// contract. Reads are idempotent eth_call queries; Mint is the single
// state-changing entry point and is never retried automatically.
type NFTContract struct {
	backend      Backend
	abi          abi.ABI
	address      common.Address
	pollInterval time.Duration
}

// NFTOption customizes contract client construction.
type NFTOption func(*NFTContract)

// WithPollInterval adjusts how often the receipt is polled after
// submission (tests shorten it).
func WithPollInterval(d time.Duration) NFTOption {
	return func(c *NFTContract) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// NewNFTContract binds the client to a deployed contract address.
func NewNFTContract(backend Backend, address common.Address, opts ...NFTOption) (*NFTContract, error) {
	parsed, err := abi.JSON(strings.NewReader(nftABIJSON))
	if err != nil {
		return nil, fmt.Errorf("chain: parse nft abi: %w", err)
	}
	c := &NFTContract{
		backend:      backend,
		abi:          parsed,
		address:      address,
		pollInterval: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *NFTContract) call(ctx context.Context, op, method string, args ...any) ([]any, error) {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, fault.Wrap(fault.Validation, op, err, "encode call")
	}
	out, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.address, Data: data}, nil)
	if err != nil {
		return nil, fault.Wrap(fault.Network, op, err, "contract read failed")
	}
	values, err := c.abi.Unpack(method, out)
	if err != nil {
		return nil, fault.Wrap(fault.RemoteRejection, op, err, "decode contract response")
	}
	return values, nil
}

// TotalSupply returns the number of minted tokens.
func (c *NFTContract) TotalSupply(ctx context.Context) (*big.Int, error) {
	values, err := c.call(ctx, "chain.total_supply", "totalSupply")
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// CreatorToken returns the reward token contract address.
func (c *NFTContract) CreatorToken(ctx context.Context) (common.Address, error) {
	values, err := c.call(ctx, "chain.creator_token", "creatorToken")
	if err != nil {
		return common.Address{}, err
	}
	return values[0].(common.Address), nil
}

// CreatorOf returns the minting creator of a token.
func (c *NFTContract) CreatorOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	values, err := c.call(ctx, "chain.creator_of", "creatorOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return values[0].(common.Address), nil
}

// AllNFTsList returns the full token listing.
func (c *NFTContract) AllNFTsList(ctx context.Context) (AllNFTs, error) {
	values, err := c.call(ctx, "chain.get_all_nfts", "getAllNFTs")
	if err != nil {
		return AllNFTs{}, err
	}
	return AllNFTs{
		TokenIDs:  values[0].([]*big.Int),
		Creators:  values[1].([]common.Address),
		Owners:    values[2].([]common.Address),
		TokenURIs: values[3].([]string),
	}, nil
}

// NFTsByCreator returns the ids and token URIs minted by one creator.
func (c *NFTContract) NFTsByCreator(ctx context.Context, creator common.Address) ([]*big.Int, []string, error) {
	values, err := c.call(ctx, "chain.get_nfts_by_creator", "getNFTsByCreator", creator)
	if err != nil {
		return nil, nil, err
	}
	return values[0].([]*big.Int), values[1].([]string), nil
}

// Mint submits the mintNFT transaction and waits for its receipt. The
// signer may refuse (UserCancelled); a reverted receipt is
// ExecutionReverted. Neither outcome is ever retried here: resubmitting a
// mint is not idempotent.
func (c *NFTContract) Mint(ctx context.Context, session Session, signer Signer, to common.Address, tokenURI string) (*MintedEvent, error) {
	const op = "chain.mint"

	if !session.Connected {
		return nil, fault.New(fault.Validation, op, "wallet session not connected")
	}

	data, err := c.abi.Pack("mintNFT", to, tokenURI)
	if err != nil {
		return nil, fault.Wrap(fault.Validation, op, err, "encode mint call")
	}

	from := signer.Address()
	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fault.Wrap(fault.Network, op, err, "fetch account nonce")
	}
	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fault.Wrap(fault.Network, op, err, "fetch gas price")
	}
	gas, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &c.address,
		Data: data,
	})
	if err != nil {
		return nil, fault.Wrap(fault.RemoteRejection, op, err, "mint would not execute")
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.address,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := signer.SignTx(tx, session.ChainID)
	if err != nil {
		if errors.Is(err, ErrSigningDeclined) {
			return nil, fault.Wrap(fault.UserCancelled, op, err, "signature request dismissed")
		}
		return nil, fault.Wrap(fault.Validation, op, err, "sign transaction")
	}

	if err := c.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fault.Wrap(fault.RemoteRejection, op, err, "submit transaction")
	}

	receipt, err := c.waitReceipt(ctx, signed.Hash())
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fault.New(fault.ExecutionReverted, op, "transaction %s reverted", signed.Hash().Hex())
	}

	event, err := c.decodeMinted(receipt.Logs)
	if err != nil {
		return nil, err
	}
	event.TxHash = signed.Hash()
	return event, nil
}

func (c *NFTContract) waitReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	const op = "chain.mint"
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := c.backend.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fault.Wrap(fault.Network, op, err, "fetch transaction receipt")
		}
		select {
		case <-ctx.Done():
			return nil, fault.Wrap(fault.Network, op, ctx.Err(), "abandoned waiting for receipt")
		case <-ticker.C:
		}
	}
}

// decodeMinted extracts the mint outcome from the receipt's NFTMinted log.
// The NFTMinted event is authoritative over the ERC-721 Transfer event:
// it carries the reward amount the UI displays alongside the token id.
func (c *NFTContract) decodeMinted(logs []*types.Log) (*MintedEvent, error) {
	const op = "chain.mint"
	event := c.abi.Events["NFTMinted"]
	for _, entry := range logs {
		if entry.Address != c.address || len(entry.Topics) != 4 || entry.Topics[0] != event.ID {
			continue
		}
		nonIndexed, err := event.Inputs.NonIndexed().Unpack(entry.Data)
		if err != nil {
			return nil, fault.Wrap(fault.RemoteRejection, op, err, "decode NFTMinted event")
		}
		return &MintedEvent{
			TokenID:  new(big.Int).SetBytes(entry.Topics[1].Bytes()),
			Creator:  common.BytesToAddress(entry.Topics[2].Bytes()),
			To:       common.BytesToAddress(entry.Topics[3].Bytes()),
			TokenURI: nonIndexed[0].(string),
			Reward:   nonIndexed[1].(*big.Int),
		}, nil
	}
	return nil, fault.New(fault.RemoteRejection, op, "receipt carries no NFTMinted event")
}

// RewardToken wraps the fungible reward token's read calls.
type RewardToken struct {
	backend Backend
	abi     abi.ABI
	address common.Address
}

// NewRewardToken binds the client to the deployed reward token.
func NewRewardToken(backend Backend, address common.Address) (*RewardToken, error) {
	parsed, err := abi.JSON(strings.NewReader(rewardABIJSON))
	if err != nil {
		return nil, fmt.Errorf("chain: parse reward abi: %w", err)
	}
	return &RewardToken{backend: backend, abi: parsed, address: address}, nil
}

func (t *RewardToken) call(ctx context.Context, op, method string, args ...any) (*big.Int, error) {
	data, err := t.abi.Pack(method, args...)
	if err != nil {
		return nil, fault.Wrap(fault.Validation, op, err, "encode call")
	}
	out, err := t.backend.CallContract(ctx, ethereum.CallMsg{To: &t.address, Data: data}, nil)
	if err != nil {
		return nil, fault.Wrap(fault.Network, op, err, "token read failed")
	}
	values, err := t.abi.Unpack(method, out)
	if err != nil {
		return nil, fault.Wrap(fault.RemoteRejection, op, err, "decode token response")
	}
	return values[0].(*big.Int), nil
}

// BalanceOf returns the reward balance of an account.
func (t *RewardToken) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	return t.call(ctx, "chain.reward_balance", "balanceOf", account)
}

// RewardAmount returns the per-mint reward constant.
func (t *RewardToken) RewardAmount(ctx context.Context) (*big.Int, error) {
	return t.call(ctx, "chain.reward_amount", "REWARD_AMOUNT")
}
