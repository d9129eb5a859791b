// internal/mint/workflow.go
//
// The mint workflow sequences upload -> sign -> submit -> reconcile.
// Content pinning duplicates harmlessly, so everything before the
// signature can be retried by simply running again; the transaction
// itself cannot be undone, so nothing after submission is retried and
// the on-chain reference is only ever created once its target content
// exists.

package mint

import (
	"context"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"

	"github.com/lafiyatech/medimint/internal/chain"
	"github.com/lafiyatech/medimint/internal/fault"
	"github.com/lafiyatech/medimint/internal/logbook"
)

// Pinner is the content gateway surface the workflow needs.
// *pinning.Client satisfies it.
type Pinner interface {
	PinFile(ctx context.Context, r io.Reader, name string) (string, error)
	PinJSON(ctx context.Context, v any, name string) (string, error)
	FetchJSON(ctx context.Context, ref string, out any) error
	ContentURL(cid string) string
}

// Minter submits the mint transaction. *chain.NFTContract satisfies it.
type Minter interface {
	Mint(ctx context.Context, session chain.Session, signer chain.Signer, to common.Address, tokenURI string) (*chain.MintedEvent, error)
}

// Workflow runs the multi-step mint flow and reconciles its outcome into
// the gallery.
type Workflow struct {
	pinner  Pinner
	minter  Minter
	gallery *Gallery
	log     *logbook.Logbook

	observer  atomic.Pointer[func(Phase)]
	openAsset func(path string) (io.ReadCloser, error)

	// busy refuses re-entrant runs the way the UI disables its mint
	// button; concurrent duplicate mints would mint duplicate assets.
	busy atomic.Bool
}

// WorkflowOption customizes workflow construction.
type WorkflowOption func(*Workflow)

// WithWorkflowLogbook attaches an activity log.
func WithWorkflowLogbook(log *logbook.Logbook) WorkflowOption {
	return func(w *Workflow) { w.log = log }
}

// WithAssetOpener overrides how the selected asset file is opened (tests).
func WithAssetOpener(open func(path string) (io.ReadCloser, error)) WorkflowOption {
	return func(w *Workflow) {
		if open != nil {
			w.openAsset = open
		}
	}
}

// NewWorkflow wires the workflow to its remote clients and gallery.
func NewWorkflow(pinner Pinner, minter Minter, gallery *Gallery, opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		pinner:  pinner,
		minter:  minter,
		gallery: gallery,
		openAsset: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetObserver registers a phase callback. The view layer uses it to render
// progress; it may be set after construction, once the UI program exists.
func (w *Workflow) SetObserver(fn func(Phase)) {
	if fn == nil {
		return
	}
	w.observer.Store(&fn)
}

func (w *Workflow) setPhase(p Phase) {
	if fn := w.observer.Load(); fn != nil {
		(*fn)(p)
	}
}

// phaseSigner reports the upload->confirming boundary: the moment the
// signature is granted the transaction is about to be submitted.
type phaseSigner struct {
	inner    chain.Signer
	onSigned func()
}

func (s *phaseSigner) Address() common.Address { return s.inner.Address() }

func (s *phaseSigner) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := s.inner.SignTx(tx, chainID)
	if err != nil {
		return nil, err
	}
	if s.onSigned != nil {
		s.onSigned()
	}
	return signed, nil
}

// Run executes the mint flow for one request. Preflight violations make
// zero remote calls; upload failures abort before anything touches the
// chain; a failed metadata fetch after a successful mint only leaves
// metadata absent until the next refresh.
func (w *Workflow) Run(ctx context.Context, session chain.Session, signer chain.Signer, req Request) (Record, error) {
	const op = "mint.run"

	if strings.TrimSpace(req.Name) == "" {
		return Record{}, fault.New(fault.Validation, op, "please enter a name for the NFT")
	}
	if !common.IsHexAddress(req.Recipient) {
		return Record{}, fault.New(fault.Validation, op, "recipient is not a valid address")
	}
	if strings.TrimSpace(req.AssetPath) == "" {
		return Record{}, fault.New(fault.Validation, op, "please select an asset file")
	}
	if !session.Connected {
		return Record{}, fault.New(fault.Validation, op, "connect a wallet first")
	}

	if !w.busy.CompareAndSwap(false, true) {
		return Record{}, fault.New(fault.Validation, op, "a mint is already in progress")
	}
	defer w.busy.Store(false)
	defer w.setPhase(PhaseIdle)

	runID := uuid.NewString()[:8]
	log := w.log.Run(runID)
	log.Info("mint: %q for %s", req.Name, req.Recipient)

	w.setPhase(PhaseUploading)
	asset, err := w.openAsset(req.AssetPath)
	if err != nil {
		return Record{}, fault.Wrap(fault.Validation, op, err, "open asset file")
	}
	assetCID, err := w.pinner.PinFile(ctx, asset, filepath.Base(req.AssetPath))
	asset.Close()
	if err != nil {
		log.Error("mint: asset upload failed: %v", err)
		return Record{}, fault.Wrap(fault.Network, op, err, "asset upload failed")
	}
	log.Info("mint: asset pinned as %s", assetCID)

	metaCID, err := w.pinner.PinJSON(ctx, Metadata{
		Name:        req.Name,
		Description: req.Description,
		Image:       w.pinner.ContentURL(assetCID),
	}, req.Name+"-metadata")
	if err != nil {
		log.Error("mint: metadata upload failed: %v", err)
		return Record{}, fault.Wrap(fault.Network, op, err, "metadata upload failed")
	}
	tokenURI := w.pinner.ContentURL(metaCID)
	log.Info("mint: metadata pinned, tokenURI %s", tokenURI)

	w.setPhase(PhaseAwaitingSignature)
	event, err := w.minter.Mint(ctx, session, &phaseSigner{
		inner:    signer,
		onSigned: func() { w.setPhase(PhaseConfirming) },
	}, common.HexToAddress(req.Recipient), tokenURI)
	if err != nil {
		log.Error("mint: %v", err)
		return Record{}, err
	}
	log.Info("mint: token %s minted in %s", event.TokenID, event.TxHash.Hex())

	w.setPhase(PhaseReconciling)
	record := Record{
		TokenID:  event.TokenID,
		Creator:  event.Creator,
		Owner:    event.To,
		TokenURI: event.TokenURI,
		Reward:   event.Reward,
	}
	var md Metadata
	if err := w.pinner.FetchJSON(ctx, record.TokenURI, &md); err != nil {
		// The mint is final on-chain; the gallery just shows the token
		// without metadata until the next full refresh.
		log.Warn("mint: metadata fetch failed for token %s: %v", record.TokenID, err)
	} else {
		record.Metadata = &md
	}
	w.gallery.Upsert(record)
	return record, nil
}
