package chain

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/lafiyatech/medimint/internal/fault"
)

// ErrSigningDeclined is returned by signers when the signature prompt is
// dismissed. Callers map it to a UserCancelled fault so the UI never
// offers a retry for it.
var ErrSigningDeclined = errors.New("chain: signature request declined")

// Signer authorizes a transaction. The wallet prompt of the original
// design becomes an explicit suspension point here: SignTx may block on a
// confirmation and may refuse with ErrSigningDeclined.
type Signer interface {
	Address() common.Address
	SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// KeySigner signs with a locally held private key, no confirmation step.
type KeySigner struct {
	key *ecdsa.PrivateKey
}

// NewKeySigner parses a hex private key. An empty or malformed key means
// no wallet is available.
func NewKeySigner(hexKey string) (*KeySigner, error) {
	if hexKey == "" {
		return nil, fault.New(fault.Validation, "chain.signer", "no wallet key configured")
	}
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fault.Wrap(fault.Validation, "chain.signer", err, "invalid wallet key")
	}
	return &KeySigner{key: key}, nil
}

// Address returns the account derived from the key.
func (s *KeySigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// SignTx signs with the latest signer for the session chain.
func (s *KeySigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
}

// ConfirmFunc decides whether a pending transaction may be signed.
type ConfirmFunc func(tx *types.Transaction) bool

// ConfirmSigner wraps another signer behind a confirmation prompt. A
// negative answer yields ErrSigningDeclined without touching the inner
// signer.
type ConfirmSigner struct {
	Inner   Signer
	Confirm ConfirmFunc
}

// Address returns the wrapped signer's account.
func (s *ConfirmSigner) Address() common.Address {
	return s.Inner.Address()
}

// SignTx asks for confirmation before delegating to the inner signer.
func (s *ConfirmSigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	if s.Confirm != nil && !s.Confirm(tx) {
		return nil, ErrSigningDeclined
	}
	return s.Inner.SignTx(tx, chainID)
}
