package chain

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/lafiyatech/medimint/internal/fault"
)

// fakeBackend scripts the RPC surface per test.
type fakeBackend struct {
	callContract    func(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	sendTransaction func(ctx context.Context, tx *types.Transaction) error
	receipt         func(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	sendCount       int
}

func (f *fakeBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if f.callContract == nil {
		return nil, errors.New("unexpected CallContract")
	}
	return f.callContract(ctx, call, blockNumber)
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 210_000, nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.sendCount++
	if f.sendTransaction == nil {
		return nil
	}
	return f.sendTransaction(ctx, tx)
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if f.receipt == nil {
		return nil, ethereum.NotFound
	}
	return f.receipt(ctx, txHash)
}

func newTestSigner(t *testing.T) *KeySigner {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &KeySigner{key: key}
}

func testSession(account common.Address) Session {
	return Session{Account: account, ChainID: big.NewInt(31337), Connected: true}
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(common.LeftPadBytes(addr.Bytes(), 32))
}

// mintedLog builds an NFTMinted receipt log the way the contract emits it.
func mintedLog(t *testing.T, contract common.Address, tokenID *big.Int, creator, to common.Address, uri string, reward *big.Int) *types.Log {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(nftABIJSON))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	event := parsed.Events["NFTMinted"]
	data, err := event.Inputs.NonIndexed().Pack(uri, reward)
	if err != nil {
		t.Fatalf("pack event data: %v", err)
	}
	return &types.Log{
		Address: contract,
		Topics: []common.Hash{
			event.ID,
			common.BigToHash(tokenID),
			addressTopic(creator),
			addressTopic(to),
		},
		Data: data,
	}
}

func TestMintDecodesNFTMintedEvent(t *testing.T) {
	signer := newTestSigner(t)
	contractAddr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	log := mintedLog(t, contractAddr, big.NewInt(12), signer.Address(), recipient, "https://gw.example/ipfs/QmMeta", big.NewInt(50))

	polls := 0
	backend := &fakeBackend{
		receipt: func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
			polls++
			if polls == 1 {
				return nil, ethereum.NotFound
			}
			return &types.Receipt{Status: types.ReceiptStatusSuccessful, Logs: []*types.Log{log}}, nil
		},
	}
	contract, err := NewNFTContract(backend, contractAddr, WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("new contract: %v", err)
	}

	event, err := contract.Mint(context.Background(), testSession(signer.Address()), signer, recipient, "https://gw.example/ipfs/QmMeta")
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if event.TokenID.Int64() != 12 {
		t.Fatalf("token id = %s, want 12", event.TokenID)
	}
	if event.Creator != signer.Address() || event.To != recipient {
		t.Fatalf("unexpected parties: %+v", event)
	}
	if event.TokenURI != "https://gw.example/ipfs/QmMeta" || event.Reward.Int64() != 50 {
		t.Fatalf("unexpected payload: %+v", event)
	}
	if backend.sendCount != 1 {
		t.Fatalf("expected exactly one submission, got %d", backend.sendCount)
	}
}

func TestMintRevertedReceiptIsExecutionReverted(t *testing.T) {
	signer := newTestSigner(t)
	backend := &fakeBackend{
		receipt: func(context.Context, common.Hash) (*types.Receipt, error) {
			return &types.Receipt{Status: types.ReceiptStatusFailed}, nil
		},
	}
	contract, err := NewNFTContract(backend, common.Address{}, WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("new contract: %v", err)
	}
	_, err = contract.Mint(context.Background(), testSession(signer.Address()), signer, signer.Address(), "uri")
	if fault.KindOf(err) != fault.ExecutionReverted {
		t.Fatalf("expected execution_reverted, got %v", err)
	}
}

func TestMintDeclinedSignatureIsUserCancelled(t *testing.T) {
	signer := newTestSigner(t)
	declining := &ConfirmSigner{Inner: signer, Confirm: func(*types.Transaction) bool { return false }}
	backend := &fakeBackend{}
	contract, err := NewNFTContract(backend, common.Address{}, WithPollInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("new contract: %v", err)
	}
	_, err = contract.Mint(context.Background(), testSession(signer.Address()), declining, signer.Address(), "uri")
	if fault.KindOf(err) != fault.UserCancelled {
		t.Fatalf("expected user_cancelled, got %v", err)
	}
	if backend.sendCount != 0 {
		t.Fatal("declined signature must not submit a transaction")
	}
}

func TestMintRequiresConnectedSession(t *testing.T) {
	signer := newTestSigner(t)
	contract, err := NewNFTContract(&fakeBackend{}, common.Address{})
	if err != nil {
		t.Fatalf("new contract: %v", err)
	}
	_, err = contract.Mint(context.Background(), Session{}, signer, signer.Address(), "uri")
	if fault.KindOf(err) != fault.Validation {
		t.Fatalf("expected validation fault, got %v", err)
	}
}

func TestAllNFTsListUnpacksColumns(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(nftABIJSON))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	creator := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	owner := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	packed, err := parsed.Methods["getAllNFTs"].Outputs.Pack(
		[]*big.Int{big.NewInt(1), big.NewInt(2)},
		[]common.Address{creator, creator},
		[]common.Address{owner, creator},
		[]string{"uri-1", "uri-2"},
	)
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}

	backend := &fakeBackend{
		callContract: func(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
			return packed, nil
		},
	}
	contract, err := NewNFTContract(backend, common.Address{})
	if err != nil {
		t.Fatalf("new contract: %v", err)
	}
	listing, err := contract.AllNFTsList(context.Background())
	if err != nil {
		t.Fatalf("all nfts: %v", err)
	}
	if len(listing.TokenIDs) != 2 || listing.TokenIDs[1].Int64() != 2 {
		t.Fatalf("token ids wrong: %+v", listing.TokenIDs)
	}
	if listing.Owners[0] != owner || listing.TokenURIs[0] != "uri-1" {
		t.Fatalf("columns misaligned: %+v", listing)
	}
}

func TestContractReadsDispatchByMethod(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(nftABIJSON))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	creator := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	supplyOut, err := parsed.Methods["totalSupply"].Outputs.Pack(big.NewInt(9))
	if err != nil {
		t.Fatalf("pack supply: %v", err)
	}
	creatorOut, err := parsed.Methods["creatorOf"].Outputs.Pack(creator)
	if err != nil {
		t.Fatalf("pack creator: %v", err)
	}

	backend := &fakeBackend{
		callContract: func(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
			switch {
			case strings.HasPrefix(common.Bytes2Hex(call.Data), common.Bytes2Hex(parsed.Methods["totalSupply"].ID)):
				return supplyOut, nil
			case strings.HasPrefix(common.Bytes2Hex(call.Data), common.Bytes2Hex(parsed.Methods["creatorOf"].ID)):
				return creatorOut, nil
			}
			return nil, errors.New("unexpected method")
		},
	}
	contract, err := NewNFTContract(backend, common.Address{})
	if err != nil {
		t.Fatalf("new contract: %v", err)
	}

	supply, err := contract.TotalSupply(context.Background())
	if err != nil {
		t.Fatalf("total supply: %v", err)
	}
	if supply.Int64() != 9 {
		t.Fatalf("supply = %s, want 9", supply)
	}
	got, err := contract.CreatorOf(context.Background(), big.NewInt(3))
	if err != nil {
		t.Fatalf("creator of: %v", err)
	}
	if got != creator {
		t.Fatalf("creator = %s, want %s", got, creator)
	}
}

func TestRewardTokenReads(t *testing.T) {
	parsed, err := abi.JSON(strings.NewReader(rewardABIJSON))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	packed, err := parsed.Methods["balanceOf"].Outputs.Pack(big.NewInt(150))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	backend := &fakeBackend{
		callContract: func(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
			return packed, nil
		},
	}
	token, err := NewRewardToken(backend, common.Address{})
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	balance, err := token.BalanceOf(context.Background(), common.Address{})
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Int64() != 150 {
		t.Fatalf("balance = %s, want 150", balance)
	}
}
