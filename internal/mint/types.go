package mint

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Request is the transient input to the mint workflow. It is discarded on
// completion or failure; nothing from it becomes authoritative state.
type Request struct {
	Name        string
	Description string
	Recipient   string // hex address
	AssetPath   string // local file selected for upload
}

// Metadata is the pinned JSON document a token URI points at.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Record is one NFT as the chain reports it. TokenID is the authoritative
// identity; Metadata is fetched lazily and may stay nil between refreshes.
type Record struct {
	TokenID  *big.Int
	Creator  common.Address
	Owner    common.Address
	TokenURI string
	Reward   *big.Int
	Metadata *Metadata
}

// Phase is the mint workflow's explicit state. The ordering is fixed:
// everything before the signature is freely abortable, everything after
// is terminal on-chain.
type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseUploading         Phase = "uploading"
	PhaseAwaitingSignature Phase = "awaiting_signature"
	PhaseConfirming        Phase = "confirming"
	PhaseReconciling       Phase = "reconciling"
)
