// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cardano

import (
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/gouroboros/cbor"
	"github.com/blinklabs-io/gouroboros/ledger"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"

	"github.com/txpipe/dolos/entity"
	"github.com/txpipe/dolos/storage"
)

// Slot tag dimensions a visitor may emit against produced UTxOs or
// archived blocks.
const (
	DimAddress       storage.Dimension = "address"
	DimPaymentCred   storage.Dimension = "payment_cred"
	DimStakeCred     storage.Dimension = "stake_cred"
	DimPolicy        storage.Dimension = "policy"
	DimAssetFp       storage.Dimension = "asset_fingerprint"
	DimDatumHash     storage.Dimension = "datum_hash"
	DimMetadataLabel storage.Dimension = "metadata_label"
	DimTxHash        storage.Dimension = "tx_hash"
)

// PointerTable resolves pointer-address components (slot, tx index, cert
// index) to the stake credential that address certificate introduced.
// Valid and garbage pointers coexist on-chain; a miss is not an error, it
// just means the output's stake dimension tag is dropped for that UTxO.
type PointerTable struct {
	entries map[[3]uint64][]byte
}

func NewPointerTable() *PointerTable {
	return &PointerTable{entries: make(map[[3]uint64][]byte)}
}

// Record stores the stake credential introduced by the cert at
// (slot, txIndex, certIndex) so later pointer addresses can resolve it.
func (t *PointerTable) Record(slot, txIndex, certIndex uint64, credential []byte) {
	t.entries[[3]uint64{slot, txIndex, certIndex}] = credential
}

// Resolve looks up the credential for a pointer address. Overflowed or
// fabricated components (as Cardano mainnet is known to contain) simply
// miss; ok is false and the caller drops the stake dimension tag.
func (t *PointerTable) Resolve(slot, txIndex, certIndex uint64) ([]byte, bool) {
	cred, ok := t.entries[[3]uint64{slot, txIndex, certIndex}]
	return cred, ok
}

// ImportStats tracks batch-level counters surfaced to an operator running
// in import mode, where missing inputs are skipped rather than fatal.
type ImportStats struct {
	SkippedInputs int
}

// BuildContext is the read-side state a DeltaBuilder needs while
// traversing one roll batch: access to committed state for entity
// pre-images and UTxO resolution, the in-batch UTxO map for outputs
// produced earlier in the same batch, and the chain constants that gate
// era-dependent behavior.
type BuildContext struct {
	State           storage.StateStore
	ImportMode      bool
	ProtocolVersion uint
	CurrentEpoch    uint64
	GovActionTTL    uint64
	Pointers        *PointerTable
	Logger          *slog.Logger

	// batch holds outputs produced earlier in the same batch, consulted
	// before falling back to State.GetUtxos (spec 4.6.1).
	batch map[storage.UtxoRef]storage.UtxoBody
	Stats ImportStats
}

func NewBuildContext(state storage.StateStore, importMode bool, protocolVersion uint, epoch uint64, pointers *PointerTable, logger *slog.Logger) *BuildContext {
	if logger == nil {
		logger = slog.Default()
	}
	if pointers == nil {
		pointers = NewPointerTable()
	}
	return &BuildContext{
		State:           state,
		ImportMode:      importMode,
		ProtocolVersion: protocolVersion,
		CurrentEpoch:    epoch,
		GovActionTTL:    6,
		Pointers:        pointers,
		Logger:          logger,
		batch:           make(map[storage.UtxoRef]storage.UtxoBody),
	}
}

// ResolveInput implements 4.6.1: check the in-batch map, then
// StateStore.GetUtxos, then (import mode only) skip.
func (c *BuildContext) ResolveInput(ref storage.UtxoRef) (storage.UtxoBody, bool, error) {
	if body, ok := c.batch[ref]; ok {
		return body, true, nil
	}
	found, err := c.State.GetUtxos([]storage.UtxoRef{ref})
	if err != nil {
		return storage.UtxoBody{}, false, err
	}
	if body, ok := found[ref]; ok {
		return body, true, nil
	}
	if c.ImportMode {
		c.Stats.SkippedInputs++
		return storage.UtxoBody{}, false, nil
	}
	return storage.UtxoBody{}, false, fmt.Errorf("cardano: unresolved input %x#%d", ref.TxHash, ref.Index)
}

func (c *BuildContext) recordProduced(ref storage.UtxoRef, body storage.UtxoBody) {
	c.batch[ref] = body
}

// BlockResult is everything one block contributes to a roll batch: the
// entity deltas (in strict block/tx/cert order), UTxO set changes, and
// slot tags for the index store.
type BlockResult struct {
	Slot     uint64
	Hash     []byte
	Deltas   []entity.Delta
	Produced map[storage.UtxoRef]storage.UtxoBody
	// Consumed carries the evicted body alongside each ref so the WAL
	// entry can restore it verbatim on rollback without consulting
	// archive (spec 4.3).
	Consumed map[storage.UtxoRef]storage.UtxoBody
	Tags     storage.SlotTags
}

// DeltaBuilder traverses one block at a time, dispatching to the capability
// methods below in the fixed order spec 5 requires: block header, then
// each transaction's inputs, outputs, mints, certificates (never
// resorted), withdrawals, protocol updates, and governance actions.
type DeltaBuilder struct {
	ctx *BuildContext
}

func NewDeltaBuilder(ctx *BuildContext) *DeltaBuilder {
	return &DeltaBuilder{ctx: ctx}
}

// BuildBlock visits one decoded block and returns everything it
// contributes to the enclosing roll batch.
func (b *DeltaBuilder) BuildBlock(block ledger.Block) (BlockResult, error) {
	res := BlockResult{
		Slot:     block.SlotNumber(),
		Hash:     block.Hash().Bytes(),
		Produced: make(map[storage.UtxoRef]storage.UtxoBody),
		Consumed: make(map[storage.UtxoRef]storage.UtxoBody),
	}

	if err := b.visitBlockHeader(block, &res); err != nil {
		return res, err
	}

	for txIndex, tx := range block.Transactions() {
		if err := b.visitTransaction(block, tx, txIndex, &res); err != nil {
			return res, fmt.Errorf("cardano: tx %d: %w", txIndex, err)
		}
	}

	return res, nil
}

func (b *DeltaBuilder) visitBlockHeader(block ledger.Block, res *BlockResult) error {
	issuer := block.IssuerVkey()
	poolKeyHash := lcommon.Blake2b224Hash(issuer.Bytes()).Bytes()
	prev, found, err := b.ctx.State.ReadEntity(entity.NamespacePools, entity.KeyFromBytes(poolKeyHash))
	if err != nil {
		return err
	}
	if !found {
		// Block issued by a key we have no pool registration for (e.g.
		// an OBFT/federated issuer pre-Shelley): nothing to credit.
		return nil
	}
	res.Deltas = append(res.Deltas, &PoolBlockMintedDelta{KeyHash: poolKeyHash, Prev: prev})
	return nil
}

func (b *DeltaBuilder) visitTransaction(block ledger.Block, tx ledger.Transaction, txIndex int, res *BlockResult) error {
	txHash := tx.Hash().Bytes()
	res.Tags.ArchiveTags = append(res.Tags.ArchiveTags, storage.ArchiveTag{Dimension: DimTxHash, Key: txHash})

	for _, input := range tx.Inputs() {
		ref := storage.UtxoRef{Index: uint32(input.Index())}
		copy(ref.TxHash[:], input.Id().Bytes())
		body, ok, err := b.ctx.ResolveInput(ref)
		if err != nil {
			return fmt.Errorf("resolve input: %w", err)
		}
		if !ok {
			continue
		}
		res.Consumed[ref] = body
		if err := b.visitOutputTags(ref, body, res, true); err != nil {
			return err
		}
	}

	for outIdx, output := range tx.Outputs() {
		ref := storage.UtxoRef{Index: uint32(outIdx)}
		copy(ref.TxHash[:], txHash)
		outCbor, err := cbor.Encode(output)
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		body := storage.UtxoBody{Era: uint16(block.Era().Id), Cbor: outCbor}
		res.Produced[ref] = body
		b.ctx.recordProduced(ref, body)
		if err := b.visitOutputTags(ref, body, res, false); err != nil {
			return err
		}
		b.visitOutputAddress(ref, output, res)
	}

	if err := b.visitMint(tx, block.SlotNumber(), res); err != nil {
		return fmt.Errorf("mint: %w", err)
	}

	for i, cert := range tx.Certificates() {
		if err := b.visitCertificate(block.SlotNumber(), uint64(txIndex), uint64(i), cert, res); err != nil {
			return fmt.Errorf("cert %d: %w", i, err)
		}
	}

	for addr, amount := range tx.Withdrawals() {
		cred := addr.StakeKeyHash().Bytes()
		prev, _, err := b.ctx.State.ReadEntity(entity.NamespaceAccounts, entity.KeyFromBytes(cred))
		if err != nil {
			return err
		}
		res.Deltas = append(res.Deltas, &AccountWithdrawDelta{Cred: cred, Amount: amount.Uint64(), Prev: prev})
	}

	if updateEpoch, paramUpdates := tx.ProtocolParameterUpdates(); len(paramUpdates) > 0 {
		_ = updateEpoch
		b.ctx.Logger.Debug("protocol parameter update observed", "tx", fmt.Sprintf("%x", txHash))
	}

	if err := b.visitProposals(tx, txHash, res); err != nil {
		return err
	}
	b.visitVotes(tx, txHash)

	return nil
}

func (b *DeltaBuilder) visitOutputTags(ref storage.UtxoRef, body storage.UtxoBody, res *BlockResult, removed bool) error {
	// UTxO filter index tags are maintained by the caller (rollbatch.go)
	// from Produced/Consumed directly; this hook exists for dimension
	// tags that need the decoded body (assets, datum) rather than the
	// raw ref/body pair alone. Kept as a no-op extension point for now.
	return nil
}

// visitMint records each minted or burned native asset as an
// AssetMintDelta. Amount carries the signed quantity gouroboros reports
// for mint entries directly, so a burn is just a negative delta against
// the same running-supply entity a mint touches.
func (b *DeltaBuilder) visitMint(tx ledger.Transaction, slot uint64, res *BlockResult) error {
	mint := tx.AssetMint()
	if mint == nil {
		return nil
	}
	for _, policyId := range mint.Policies() {
		policyBytes := policyId.Bytes()
		for _, name := range mint.Assets(policyId) {
			nameBytes := []byte(name)
			amount := mint.Asset(policyId, name)
			key := entity.KeyFromBytes(append(append([]byte{}, policyBytes...), nameBytes...))
			prev, _, err := b.ctx.State.ReadEntity(entity.NamespaceAssets, key)
			if err != nil {
				return err
			}
			res.Deltas = append(res.Deltas, &AssetMintDelta{
				PolicyId: policyBytes,
				Name:     nameBytes,
				Amount:   amount.Int64(),
				Slot:     slot,
				Prev:     prev,
			})
		}
	}
	return nil
}

func (b *DeltaBuilder) visitOutputAddress(ref storage.UtxoRef, output ledger.TransactionOutput, res *BlockResult) {
	addr := output.Address()
	addrBytes, err := addr.Bytes()
	if err == nil {
		res.Tags.UtxoTags = append(res.Tags.UtxoTags, storage.UtxoTag{Dimension: DimAddress, Key: addrBytes, Ref: ref})
	}
	res.Tags.UtxoTags = append(res.Tags.UtxoTags,
		storage.UtxoTag{Dimension: DimPaymentCred, Key: addr.PaymentKeyHash().Bytes(), Ref: ref},
	)

	stakeCred := addr.StakeKeyHash().Bytes()
	if err == nil {
		if slot, txIndex, certIndex, isPointer := decodeAddressPointer(addrBytes); isPointer {
			cred, resolved := b.ctx.Pointers.Resolve(slot, txIndex, certIndex)
			if !resolved {
				// Garbage or unresolved pointer: drop the stake dimension
				// tag for this UTxO rather than tag it with a credential
				// nothing points to.
				return
			}
			stakeCred = cred
		}
	}
	res.Tags.UtxoTags = append(res.Tags.UtxoTags, storage.UtxoTag{Dimension: DimStakeCred, Key: stakeCred, Ref: ref})
}

// decodeAddressPointer extracts the (slot, txIndex, certIndex) triple a
// pointer address (type 4/5) encodes after its header byte and 28-byte
// payment credential: three base-128 variable-length unsigned integers.
// gouroboros exposes PaymentKeyHash/StakeKeyHash but no decoded pointer
// accessor, so this reads the raw layout directly the same way
// extractAddressKeys does for the payment credential.
func decodeAddressPointer(addr []byte) (slot, txIndex, certIndex uint64, ok bool) {
	if len(addr) < 29 {
		return 0, 0, 0, false
	}
	addrType := (addr[0] >> 4) & 0x0f
	if addrType != 4 && addrType != 5 {
		return 0, 0, 0, false
	}
	rest := addr[29:]
	var vals [3]uint64
	for i := range vals {
		v, n, ok := readVarUint(rest)
		if !ok {
			return 0, 0, 0, false
		}
		vals[i] = v
		rest = rest[n:]
	}
	return vals[0], vals[1], vals[2], true
}

// readVarUint decodes one base-128 varint: 7 value bits per byte, most
// significant byte first, continuation signaled by the top bit.
func readVarUint(b []byte) (value uint64, consumed int, ok bool) {
	for consumed < len(b) {
		next := b[consumed]
		value = (value << 7) | uint64(next&0x7f)
		consumed++
		if next&0x80 == 0 {
			return value, consumed, true
		}
	}
	return 0, 0, false
}

func (b *DeltaBuilder) visitCertificate(slot, txIndex, certIndex uint64, cert lcommon.Certificate, res *BlockResult) error {
	readAccount := func(cred []byte) ([]byte, error) {
		prev, _, err := b.ctx.State.ReadEntity(entity.NamespaceAccounts, entity.KeyFromBytes(cred))
		return prev, err
	}
	readPool := func(keyHash []byte) ([]byte, error) {
		prev, _, err := b.ctx.State.ReadEntity(entity.NamespacePools, entity.KeyFromBytes(keyHash))
		return prev, err
	}
	readDrep := func(cred []byte) ([]byte, error) {
		prev, _, err := b.ctx.State.ReadEntity(entity.NamespaceDReps, entity.KeyFromBytes(cred))
		return prev, err
	}

	switch c := cert.(type) {
	case *lcommon.StakeRegistrationCertificate:
		cred := c.StakeRegistration.Credential
		prev, err := readAccount(cred)
		if err != nil {
			return err
		}
		res.Deltas = append(res.Deltas, &AccountRegisterDelta{Cred: cred, Slot: slot, Prev: prev})
		b.ctx.Pointers.Record(slot, txIndex, certIndex, cred)
	case *lcommon.RegistrationCertificate:
		cred := c.StakeCredential.Credential
		prev, err := readAccount(cred)
		if err != nil {
			return err
		}
		res.Deltas = append(res.Deltas, &AccountRegisterDelta{Cred: cred, Slot: slot, Prev: prev})
		b.ctx.Pointers.Record(slot, txIndex, certIndex, cred)
	case *lcommon.StakeDeregistrationCertificate:
		cred := c.StakeDeregistration.Credential
		prev, err := readAccount(cred)
		if err != nil {
			return err
		}
		res.Deltas = append(res.Deltas, &AccountDeregisterDelta{Cred: cred, Prev: prev})
	case *lcommon.DeregistrationCertificate:
		cred := c.StakeCredential.Credential
		prev, err := readAccount(cred)
		if err != nil {
			return err
		}
		res.Deltas = append(res.Deltas, &AccountDeregisterDelta{Cred: cred, Prev: prev})
	case *lcommon.StakeDelegationCertificate:
		cred := c.StakeCredential.Credential
		prev, err := readAccount(cred)
		if err != nil {
			return err
		}
		res.Deltas = append(res.Deltas, &AccountDelegateDelta{Cred: cred, PoolId: c.PoolKeyHash[:], Prev: prev})
	case *lcommon.PoolRegistrationCertificate:
		prev, err := readPool(c.Operator[:])
		if err != nil {
			return err
		}
		owners := make([][]byte, 0, len(c.PoolOwners))
		for _, o := range c.PoolOwners {
			owners = append(owners, o.Bytes())
		}
		var relays [][]byte
		res.Deltas = append(res.Deltas, &PoolRegisterDelta{
			KeyHash:       c.Operator[:],
			VrfKeyHash:    c.VrfKeyHash[:],
			RewardAccount: c.RewardAccount.Bytes(),
			Pledge:        c.Pledge,
			Cost:          c.Cost,
			Owners:        owners,
			Relays:        relays,
			Slot:          slot,
			Prev:          prev,
		})
	case *lcommon.PoolRetirementCertificate:
		prev, err := readPool(c.PoolKeyHash[:])
		if err != nil {
			return err
		}
		res.Deltas = append(res.Deltas, &PoolRetireDelta{KeyHash: c.PoolKeyHash[:], RetiringEpoch: c.Epoch, Prev: prev})
	case *lcommon.RegistrationDrepCertificate:
		cred := c.DrepCredential.Credential
		prev, err := readDrep(cred)
		if err != nil {
			return err
		}
		res.Deltas = append(res.Deltas, &DRepWriteDelta{Cred: cred, Slot: slot, Prev: prev})
	case *lcommon.DeregistrationDrepCertificate:
		cred := c.DrepCredential.Credential
		prev, err := readDrep(cred)
		if err != nil {
			return err
		}
		res.Deltas = append(res.Deltas, &DRepRetireDelta{Cred: cred, Prev: prev})
	case *lcommon.UpdateDrepCertificate:
		cred := c.DrepCredential.Credential
		prev, err := readDrep(cred)
		if err != nil {
			return err
		}
		res.Deltas = append(res.Deltas, &DRepWriteDelta{Cred: cred, Slot: slot, Prev: prev})
	case *lcommon.VoteDelegationCertificate:
		cred := c.StakeCredential.Credential
		prev, err := readAccount(cred)
		if err != nil {
			return err
		}
		res.Deltas = append(res.Deltas, &AccountVoteDelegateDelta{Cred: cred, Drep: drepBytes(c.Drep), Prev: prev})
	case *lcommon.StakeVoteDelegationCertificate:
		cred := c.StakeCredential.Credential
		prevAcc, err := readAccount(cred)
		if err != nil {
			return err
		}
		res.Deltas = append(res.Deltas,
			&AccountDelegateDelta{Cred: cred, PoolId: c.PoolKeyHash[:], Prev: prevAcc},
			&AccountVoteDelegateDelta{Cred: cred, Drep: drepBytes(c.Drep), Prev: nil},
		)
	case *lcommon.StakeRegistrationDelegationCertificate:
		cred := c.StakeCredential.Credential
		prev, err := readAccount(cred)
		if err != nil {
			return err
		}
		res.Deltas = append(res.Deltas,
			&AccountRegisterDelta{Cred: cred, Slot: slot, Prev: prev},
			&AccountDelegateDelta{Cred: cred, PoolId: c.PoolKeyHash[:], Prev: nil},
		)
	case *lcommon.StakeVoteRegistrationDelegationCertificate:
		cred := c.StakeCredential.Credential
		prev, err := readAccount(cred)
		if err != nil {
			return err
		}
		res.Deltas = append(res.Deltas,
			&AccountRegisterDelta{Cred: cred, Slot: slot, Prev: prev},
			&AccountDelegateDelta{Cred: cred, PoolId: c.PoolKeyHash[:], Prev: nil},
			&AccountVoteDelegateDelta{Cred: cred, Drep: drepBytes(c.Drep), Prev: nil},
		)
	case *lcommon.VoteRegistrationDelegationCertificate:
		cred := c.StakeCredential.Credential
		prev, err := readAccount(cred)
		if err != nil {
			return err
		}
		res.Deltas = append(res.Deltas,
			&AccountRegisterDelta{Cred: cred, Slot: slot, Prev: prev},
			&AccountVoteDelegateDelta{Cred: cred, Drep: drepBytes(c.Drep), Prev: nil},
		)
	case *lcommon.MoveInstantaneousRewardsCertificate:
		var total int64
		for cred, coin := range c.Reward.Rewards {
			credBytes := cred.Hash().Bytes()
			prev, err := readAccount(credBytes)
			if err != nil {
				return err
			}
			res.Deltas = append(res.Deltas, &MirDelta{
				Cred:            credBytes,
				Amount:          int64(coin),
				ProtocolVersion: b.ctx.ProtocolVersion,
				Prev:            prev,
			})
			total += int64(coin)
		}
		if total != 0 || c.Reward.OtherPot != 0 {
			epPrev, _, err := b.ctx.State.ReadEntity(entity.NamespaceEpochs, EpochKey(b.ctx.CurrentEpoch))
			if err != nil {
				return err
			}
			// c.Reward.Source: 0=reserves, 1=treasury (per the pool of the
			// move-instantaneous-rewards certificate; not itself a typed
			// gouroboros enum in the retrieved tree, so compared as a raw
			// value here rather than against a named constant).
			sourceIsTreasury := c.Reward.Source == 1
			if total != 0 {
				field := EpochPotReserves
				if sourceIsTreasury {
					field = EpochPotTreasury
				}
				d := &EpochAdjustDelta{EpochKey: EpochKey(b.ctx.CurrentEpoch), Field: field, Amount: -total, Prev: epPrev}
				res.Deltas = append(res.Deltas, d)
				epPrev, _ = d.Apply(nil)
			}
			if c.Reward.OtherPot != 0 {
				// OtherPot moves the remainder between reserves and
				// treasury directly (not to any stake credential) -- the
				// pot that isn't Source's gains it.
				otherField := EpochPotTreasury
				if sourceIsTreasury {
					otherField = EpochPotReserves
				}
				res.Deltas = append(res.Deltas, &EpochAdjustDelta{
					EpochKey: EpochKey(b.ctx.CurrentEpoch), Field: otherField, Amount: int64(c.Reward.OtherPot), Prev: epPrev,
				})
			}
		}
	default:
		b.ctx.Logger.Warn(fmt.Sprintf("cardano: ignoring unsupported certificate type %T", cert))
	}
	return nil
}

// drepBytes extracts a stable credential-shaped byte slice for a DRep
// choice, including the special abstain/no-confidence markers gouroboros
// represents as sentinel DRep values rather than a credential.
func drepBytes(d lcommon.Drep) []byte {
	if cred := d.Credential(); cred != nil {
		return cred.Bytes()
	}
	return []byte(d.Type().String())
}

func (b *DeltaBuilder) visitProposals(tx ledger.Transaction, txHash []byte, res *BlockResult) error {
	proposals := tx.ProposalProcedures()
	for i, proposal := range proposals {
		rewardAddr, err := proposal.RewardAccount().Bytes()
		if err != nil {
			return fmt.Errorf("proposal %d: encode reward address: %w", i, err)
		}
		entKey := entity.KeyFromBytes(append(append([]byte{}, txHash...), uint32ToBytes(uint32(i))...))
		res.Deltas = append(res.Deltas, &ProposalWriteDelta{
			EntKey: entKey,
			New: Proposal{
				TxHash:        txHash,
				ActionIndex:   uint32(i),
				Deposit:       proposal.Deposit(),
				ReturnAddress: rewardAddr,
				ProposedEpoch: b.ctx.CurrentEpoch,
				ExpiresEpoch:  b.ctx.CurrentEpoch + b.ctx.GovActionTTL,
				Outcome:       ProposalOutcomeUnknown,
			},
		})
	}
	return nil
}

func (b *DeltaBuilder) visitVotes(tx ledger.Transaction, txHash []byte) {
	// Governance votes are observed but not tallied: this node sources
	// proposal outcomes from the decision table (package governance),
	// not from DRep voting power, so there is nothing to accumulate
	// here beyond the capability hook spec 4.6.2 names.
	_ = tx.VotingProcedures()
}

func uint32ToBytes(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
