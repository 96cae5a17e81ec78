// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package delegation implements the delegation core: the operator
// registry, the staker delegation relation, the delegated share ledger
// and the time-delayed withdrawal queue.
package delegation

import (
	"math/big"
	"strconv"

	"github.com/openrestake/restake/contracts"
	"github.com/openrestake/restake/contracts/delegation/operators"
	"github.com/openrestake/restake/contracts/delegation/shares"
	"github.com/openrestake/restake/contracts/delegation/withdrawals"
	"github.com/openrestake/restake/contracts/pauser"
	"github.com/openrestake/restake/contracts/storage"
	"github.com/openrestake/restake/contracts/strategies"
	"github.com/openrestake/restake/log"
	"github.com/openrestake/restake/metrics"
	"github.com/openrestake/restake/restake"
	"github.com/openrestake/restake/runtime"
	"github.com/openrestake/restake/sigverify"
)

var logger = log.WithContext("pkg", "delegation")

var (
	metricOps = metrics.CounterVec("delegation_ops_total", []string{"op"})
	// blocks waited between queueing and completing a withdrawal
	metricWithdrawalWait = metrics.HistogramVec("withdrawal_wait_blocks", []string{"asTokens"},
		[]int64{100, 1000, 10000, 50000, 216000})
)

func countOp(op string) {
	metricOps.AddWithLabel(1, map[string]string{"op": op})
}

var (
	slotOwner       = storage.NameToSlot("owner")
	slotDelegatedTo = storage.NameToSlot("delegated-to")
	slotSaltSpent   = storage.NameToSlot("approver-salt-spent")
)

type saltKey struct {
	Staker   restake.Address
	Operator restake.Address
	Salt     restake.Bytes32
}

func (k saltKey) Bytes() []byte {
	b := make([]byte, 0, 72)
	b = append(b, k.Staker.Bytes()...)
	b = append(b, k.Operator.Bytes()...)
	return append(b, k.Salt.Bytes()...)
}

// DelegationManager is the facade over the delegation services. All
// public operations run under the environment's transaction discipline:
// a failed operation leaves no storage write or event behind.
type DelegationManager struct {
	env      *runtime.Environment
	addr     restake.Address
	registry strategies.Registry
	verifier *sigverify.Verifier
	pauser   *pauser.Pauser

	owner       *storage.Raw[restake.Address]
	delegatedTo *storage.Mapping[restake.Address, restake.Address]
	saltSpent   *storage.Mapping[saltKey, bool]

	operators   *operators.Service
	shares      *shares.Service
	withdrawals *withdrawals.Service
}

// New creates a delegation manager sharing the environment's state.
func New(env *runtime.Environment, registry strategies.Registry, verifier *sigverify.Verifier) *DelegationManager {
	sctx := storage.NewContext(contracts.DelegationManagerAddress, env.State())
	return &DelegationManager{
		env:         env,
		addr:        contracts.DelegationManagerAddress,
		registry:    registry,
		verifier:    verifier,
		pauser:      pauser.New(env),
		owner:       storage.NewRaw[restake.Address](sctx, slotOwner),
		delegatedTo: storage.NewMapping[restake.Address, restake.Address](sctx, slotDelegatedTo),
		saltSpent:   storage.NewMapping[saltKey, bool](sctx, slotSaltSpent),
		operators:   operators.New(sctx),
		shares:      shares.New(sctx),
		withdrawals: withdrawals.New(sctx),
	}
}

var _ strategies.DepositObserver = (*DelegationManager)(nil)

// RegisterAsOperator registers the caller as an operator and delegates
// it to itself, crediting its own deposits to its share ledger.
func (d *DelegationManager) RegisterAsOperator(details *operators.Details, metadataURI string) error {
	return d.env.Transact(func() error {
		if err := d.pauser.RequireNotPaused(pauser.PausedNewDelegation); err != nil {
			return err
		}
		operator := d.env.Caller()
		delegated, err := d.delegatedTo.Get(operator)
		if err != nil {
			return err
		}
		if !delegated.IsZero() {
			return errAlreadyDelegated
		}
		if err := d.operators.Set(operator, details); err != nil {
			return err
		}
		if err := d.operators.SetMetadataURI(operator, metadataURI); err != nil {
			return err
		}
		d.env.Log(EventOperatorRegistered{Operator: operator, Details: *details})
		d.env.Log(EventOperatorMetadataURIUpdated{Operator: operator, MetadataURI: metadataURI})
		if err := d.delegate(operator, operator, nil, restake.Bytes32{}); err != nil {
			return err
		}
		logger.Info("operator registered", "operator", operator)
		countOp("registerAsOperator")
		return nil
	})
}

// ModifyOperatorDetails replaces the caller's operator details.
func (d *DelegationManager) ModifyOperatorDetails(details *operators.Details) error {
	return d.env.Transact(func() error {
		operator := d.env.Caller()
		registered, err := d.IsOperator(operator)
		if err != nil {
			return err
		}
		if !registered {
			return errOperatorNotFound
		}
		if err := d.operators.Set(operator, details); err != nil {
			return err
		}
		d.env.Log(EventOperatorDetailsModified{Operator: operator, Details: *details})
		return nil
	})
}

// UpdateOperatorMetadataURI replaces the caller's metadata URI.
func (d *DelegationManager) UpdateOperatorMetadataURI(metadataURI string) error {
	return d.env.Transact(func() error {
		operator := d.env.Caller()
		registered, err := d.IsOperator(operator)
		if err != nil {
			return err
		}
		if !registered {
			return errOperatorNotFound
		}
		if err := d.operators.SetMetadataURI(operator, metadataURI); err != nil {
			return err
		}
		d.env.Log(EventOperatorMetadataURIUpdated{Operator: operator, MetadataURI: metadataURI})
		return nil
	})
}

// DelegateTo delegates the caller's deposits to operator. When the
// operator has a delegation approver, approverSig must carry that
// approver's unexpired signature over a fresh salt.
func (d *DelegationManager) DelegateTo(operator restake.Address, approverSig *SignatureWithExpiry, approverSalt restake.Bytes32) error {
	return d.env.Transact(func() error {
		if err := d.pauser.RequireNotPaused(pauser.PausedNewDelegation); err != nil {
			return err
		}
		staker := d.env.Caller()
		if err := d.checkAndDelegate(staker, operator, approverSig, approverSalt); err != nil {
			return err
		}
		countOp("delegateTo")
		return nil
	})
}

// DelegateToBySignature delegates staker to operator on the strength of
// the staker's own signature, letting a third party submit it. The
// staker digest carries no consumable nonce: replaying it fails the
// already-delegated check, and after an undelegation the staker's
// explicit re-authorization is exactly what the signature expresses.
func (d *DelegationManager) DelegateToBySignature(
	staker, operator restake.Address,
	stakerSig SignatureWithExpiry,
	approverSig *SignatureWithExpiry,
	approverSalt restake.Bytes32,
) error {
	return d.env.Transact(func() error {
		if err := d.pauser.RequireNotPaused(pauser.PausedNewDelegation); err != nil {
			return err
		}
		if stakerSig.Expiry < d.env.BlockNumber() {
			return errStakerSigExpired
		}
		digest := sigverify.StakerDelegationDigest(d.env.ChainID(), d.addr, staker, operator, stakerSig.Expiry)
		ok, err := d.verifier.Verify(staker, digest, stakerSig.Signature)
		if err != nil {
			return err
		}
		if !ok {
			return errStakerSigInvalid
		}
		if err := d.checkAndDelegate(staker, operator, approverSig, approverSalt); err != nil {
			return err
		}
		countOp("delegateToBySignature")
		return nil
	})
}

func (d *DelegationManager) checkAndDelegate(staker, operator restake.Address, approverSig *SignatureWithExpiry, approverSalt restake.Bytes32) error {
	delegated, err := d.delegatedTo.Get(staker)
	if err != nil {
		return err
	}
	if !delegated.IsZero() {
		return errAlreadyDelegated
	}
	registered, err := d.IsOperator(operator)
	if err != nil {
		return err
	}
	if !registered {
		return errOperatorNotFound
	}
	return d.delegate(staker, operator, approverSig, approverSalt)
}

// delegate records the delegation and credits the staker's deposits to
// the operator. Callers have already ensured the staker is undelegated
// and the operator registered.
func (d *DelegationManager) delegate(staker, operator restake.Address, approverSig *SignatureWithExpiry, approverSalt restake.Bytes32) error {
	details, err := d.operators.Get(operator)
	if err != nil {
		return err
	}
	approver := details.DelegationApprover
	caller := d.env.Caller()
	// the approver's signature is waived when the approver itself or
	// the operator drives the call
	if !approver.IsZero() && caller != approver && caller != operator {
		if approverSig == nil {
			return errApproverSigInvalid
		}
		if approverSig.Expiry < d.env.BlockNumber() {
			return errApproverSigExpired
		}
		key := saltKey{Staker: staker, Operator: operator, Salt: approverSalt}
		spent, err := d.saltSpent.Get(key)
		if err != nil {
			return err
		}
		if spent {
			return errApproverSaltSpent
		}
		digest := sigverify.DelegationApprovalDigest(d.env.ChainID(), d.addr, staker, operator, approverSalt, approverSig.Expiry)
		ok, err := d.verifier.Verify(approver, digest, approverSig.Signature)
		if err != nil {
			return err
		}
		if !ok {
			return errApproverSigInvalid
		}
		if err := d.saltSpent.Set(key, true); err != nil {
			return err
		}
	}

	if err := d.delegatedTo.Set(staker, operator); err != nil {
		return err
	}
	d.env.Log(EventStakerDelegated{Staker: staker, Operator: operator})

	strats, deposits, err := d.registry.GetDeposits(staker)
	if err != nil {
		return err
	}
	for i, strategy := range strats {
		if err := d.increaseOperatorShares(operator, staker, strategy, deposits[i]); err != nil {
			return err
		}
	}
	logger.Info("staker delegated", "staker", staker, "operator", operator)
	return nil
}

// Undelegate breaks the staker's delegation and queues one withdrawal
// per deposited strategy, returning the withdrawal roots. The staker,
// its operator or the operator's delegation approver may call.
func (d *DelegationManager) Undelegate(staker restake.Address) (roots []restake.Bytes32, err error) {
	err = d.env.Transact(func() error {
		if err := d.pauser.RequireNotPaused(pauser.PausedEnterWithdrawalQueue); err != nil {
			return err
		}
		operator, err := d.delegatedTo.Get(staker)
		if err != nil {
			return err
		}
		if operator.IsZero() {
			return errNotDelegated
		}
		if operator == staker {
			return errOperatorUndelegate
		}
		details, err := d.operators.Get(operator)
		if err != nil {
			return err
		}
		caller := d.env.Caller()
		if caller != staker && caller != operator && caller != details.DelegationApprover {
			return errUndelegateForbidden
		}

		strats, deposits, err := d.registry.GetDeposits(staker)
		if err != nil {
			return err
		}
		if err := d.delegatedTo.Clear(staker); err != nil {
			return err
		}
		d.env.Log(EventStakerUndelegated{Staker: staker, Operator: operator})

		for i, strategy := range strats {
			root, err := d.removeSharesAndQueue(staker, operator, staker,
				[]restake.Address{strategy}, []*big.Int{deposits[i]})
			if err != nil {
				return err
			}
			roots = append(roots, root)
		}
		logger.Info("staker undelegated", "staker", staker, "operator", operator, "withdrawals", len(roots))
		countOp("undelegate")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return roots, nil
}

// QueueWithdrawals moves deposit shares of the caller into the
// withdrawal queue, one withdrawal per parameter set, and returns the
// queued roots.
func (d *DelegationManager) QueueWithdrawals(params []QueuedWithdrawalParams) (roots []restake.Bytes32, err error) {
	err = d.env.Transact(func() error {
		if err := d.pauser.RequireNotPaused(pauser.PausedEnterWithdrawalQueue); err != nil {
			return err
		}
		staker := d.env.Caller()
		operator, err := d.delegatedTo.Get(staker)
		if err != nil {
			return err
		}
		for _, p := range params {
			if len(p.Strategies) != len(p.Shares) {
				return errLengthMismatch
			}
			if p.Withdrawer != staker {
				return errWithdrawerNotStaker
			}
			root, err := d.removeSharesAndQueue(staker, operator, p.Withdrawer, p.Strategies, p.Shares)
			if err != nil {
				return err
			}
			roots = append(roots, root)
		}
		countOp("queueWithdrawals")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return roots, nil
}

// removeSharesAndQueue debits deposit and operator shares and records
// a pending withdrawal, returning its root.
func (d *DelegationManager) removeSharesAndQueue(staker, operator, withdrawer restake.Address, strats []restake.Address, amounts []*big.Int) (restake.Bytes32, error) {
	for i, strategy := range strats {
		if !operator.IsZero() {
			if err := d.shares.Decrease(operator, strategy, amounts[i]); err != nil {
				return restake.Bytes32{}, err
			}
			d.env.Log(EventOperatorSharesDecreased{
				Operator: operator, Staker: staker, Strategy: strategy, Shares: amounts[i],
			})
		}
		if err := d.registry.RemoveShares(staker, strategy, amounts[i]); err != nil {
			return restake.Bytes32{}, err
		}
	}

	nonce, err := d.withdrawals.ConsumeNonce(staker)
	if err != nil {
		return restake.Bytes32{}, err
	}
	w := Withdrawal{
		Staker:      staker,
		DelegatedTo: operator,
		Withdrawer:  withdrawer,
		Nonce:       nonce,
		StartBlock:  d.env.BlockNumber(),
		Strategies:  strats,
		Shares:      amounts,
	}
	root, err := w.Root()
	if err != nil {
		return restake.Bytes32{}, err
	}
	if err := d.withdrawals.SetPending(root); err != nil {
		return restake.Bytes32{}, err
	}
	d.env.Log(EventWithdrawalQueued{Root: root, Withdrawal: w})
	logger.Info("withdrawal queued", "staker", staker, "root", root, "startBlock", w.StartBlock)
	return root, nil
}

// CompleteQueuedWithdrawal completes a withdrawal whose delay has
// elapsed. With receiveAsTokens the shares leave the system as
// underlying tokens (tokens lists one token per strategy); otherwise
// they return as deposit shares, re-delegating to the withdrawer's
// current operator if any.
func (d *DelegationManager) CompleteQueuedWithdrawal(w *Withdrawal, tokens []restake.Address, receiveAsTokens bool) error {
	return d.env.Transact(func() error {
		return d.completeQueuedWithdrawal(w, tokens, receiveAsTokens)
	})
}

// CompleteQueuedWithdrawals completes a batch of withdrawals
// atomically: one failure rolls back the whole batch.
func (d *DelegationManager) CompleteQueuedWithdrawals(ws []*Withdrawal, tokens [][]restake.Address, receiveAsTokens []bool) error {
	return d.env.Transact(func() error {
		if len(ws) != len(tokens) || len(ws) != len(receiveAsTokens) {
			return errLengthMismatch
		}
		for i, w := range ws {
			if err := d.completeQueuedWithdrawal(w, tokens[i], receiveAsTokens[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (d *DelegationManager) completeQueuedWithdrawal(w *Withdrawal, tokens []restake.Address, receiveAsTokens bool) error {
	if err := d.pauser.RequireNotPaused(pauser.PausedExitWithdrawalQueue); err != nil {
		return err
	}
	root, err := w.Root()
	if err != nil {
		return err
	}
	pending, err := d.withdrawals.IsPending(root)
	if err != nil {
		return err
	}
	if !pending {
		return errWithdrawalNotPending
	}
	if d.env.Caller() != w.Withdrawer {
		return errNotWithdrawer
	}
	delay, err := d.withdrawals.EffectiveDelay(w.Strategies)
	if err != nil {
		return err
	}
	if uint64(d.env.BlockNumber()) < uint64(w.StartBlock)+uint64(delay) {
		return errDelayNotElapsed
	}
	if receiveAsTokens && len(tokens) != len(w.Strategies) {
		return errLengthMismatch
	}

	// the pending mark is cleared before any share or token movement,
	// so re-entering completions find nothing to complete
	if err := d.withdrawals.ClearPending(root); err != nil {
		return err
	}

	if receiveAsTokens {
		for i, strategy := range w.Strategies {
			if err := d.registry.WithdrawSharesAsTokens(w.Withdrawer, strategy, tokens[i], w.Shares[i]); err != nil {
				return err
			}
		}
	} else {
		operator, err := d.delegatedTo.Get(w.Withdrawer)
		if err != nil {
			return err
		}
		for i, strategy := range w.Strategies {
			if err := d.registry.AddShares(w.Withdrawer, strategy, w.Shares[i]); err != nil {
				return err
			}
			if !operator.IsZero() {
				if err := d.increaseOperatorShares(operator, w.Withdrawer, strategy, w.Shares[i]); err != nil {
					return err
				}
			}
		}
	}
	d.env.Log(EventWithdrawalCompleted{Root: root})
	logger.Info("withdrawal completed", "root", root, "asTokens", receiveAsTokens)
	countOp("completeQueuedWithdrawal")
	metricWithdrawalWait.ObserveWithLabels(
		int64(d.env.BlockNumber())-int64(w.StartBlock),
		map[string]string{"asTokens": strconv.FormatBool(receiveAsTokens)},
	)
	return nil
}

// OnDepositSharesIncreased credits new deposit shares to the staker's
// operator. It is the strategy registry's deposit hook and runs inside
// the deposit's own transaction.
func (d *DelegationManager) OnDepositSharesIncreased(staker, strategy restake.Address, amount *big.Int) error {
	operator, err := d.delegatedTo.Get(staker)
	if err != nil {
		return err
	}
	if operator.IsZero() {
		return nil
	}
	return d.increaseOperatorShares(operator, staker, strategy, amount)
}

func (d *DelegationManager) increaseOperatorShares(operator, staker, strategy restake.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	if err := d.shares.Increase(operator, strategy, amount); err != nil {
		return err
	}
	d.env.Log(EventOperatorSharesIncreased{
		Operator: operator, Staker: staker, Strategy: strategy, Shares: amount,
	})
	return nil
}

// SetMinWithdrawalDelayBlocks updates the global minimum withdrawal
// delay. Owner only; existing queued withdrawals keep the delay rule
// evaluated at completion time.
func (d *DelegationManager) SetMinWithdrawalDelayBlocks(blocks uint32) error {
	return d.env.Transact(func() error {
		if err := d.requireOwner(); err != nil {
			return err
		}
		previous, err := d.withdrawals.MinDelayBlocks()
		if err != nil {
			return err
		}
		if err := d.withdrawals.SetMinDelayBlocks(blocks); err != nil {
			return err
		}
		d.env.Log(EventMinWithdrawalDelayBlocksSet{Previous: previous, New: blocks})
		return nil
	})
}

// SetStrategyWithdrawalDelayBlocks updates per-strategy withdrawal
// delays. Owner only.
func (d *DelegationManager) SetStrategyWithdrawalDelayBlocks(strats []restake.Address, blocks []uint32) error {
	return d.env.Transact(func() error {
		if err := d.requireOwner(); err != nil {
			return err
		}
		if len(strats) != len(blocks) {
			return errLengthMismatch
		}
		for i, strategy := range strats {
			previous, err := d.withdrawals.StrategyDelayBlocks(strategy)
			if err != nil {
				return err
			}
			if err := d.withdrawals.SetStrategyDelayBlocks(strategy, blocks[i]); err != nil {
				return err
			}
			d.env.Log(EventStrategyWithdrawalDelayBlocksSet{
				Strategy: strategy, Previous: previous, New: blocks[i],
			})
		}
		return nil
	})
}

func (d *DelegationManager) requireOwner() error {
	owner, err := d.owner.Get()
	if err != nil {
		return err
	}
	if d.env.Caller() != owner {
		return errNotOwner
	}
	return nil
}

// SetOwner writes the owner address. Meant for genesis initialization
// only.
func (d *DelegationManager) SetOwner(owner restake.Address) error {
	return d.owner.Set(owner)
}

// Owner returns the admin address.
func (d *DelegationManager) Owner() (restake.Address, error) {
	return d.owner.Get()
}

// DelegatedTo returns the operator the staker is delegated to, zero
// when undelegated.
func (d *DelegationManager) DelegatedTo(staker restake.Address) (restake.Address, error) {
	return d.delegatedTo.Get(staker)
}

// IsDelegated reports whether the staker is actively delegated.
func (d *DelegationManager) IsDelegated(staker restake.Address) (bool, error) {
	operator, err := d.delegatedTo.Get(staker)
	if err != nil {
		return false, err
	}
	return !operator.IsZero(), nil
}

// IsOperator reports whether the address is a registered operator.
// Operators are exactly the addresses delegated to themselves.
func (d *DelegationManager) IsOperator(operator restake.Address) (bool, error) {
	delegated, err := d.delegatedTo.Get(operator)
	if err != nil {
		return false, err
	}
	return delegated == operator, nil
}

// OperatorDetails returns the operator's delegation configuration.
func (d *DelegationManager) OperatorDetails(operator restake.Address) (*operators.Details, error) {
	return d.operators.Get(operator)
}

// OperatorMetadataURI returns the operator's metadata URI.
func (d *DelegationManager) OperatorMetadataURI(operator restake.Address) (string, error) {
	return d.operators.MetadataURI(operator)
}

// OperatorShares returns the operator's delegated shares in strategy.
func (d *DelegationManager) OperatorShares(operator, strategy restake.Address) (*big.Int, error) {
	return d.shares.Get(operator, strategy)
}

// CumulativeWithdrawalsQueued returns the staker's withdrawal nonce.
func (d *DelegationManager) CumulativeWithdrawalsQueued(staker restake.Address) (*big.Int, error) {
	return d.withdrawals.Nonce(staker)
}

// PendingWithdrawal reports whether root is queued and uncompleted.
func (d *DelegationManager) PendingWithdrawal(root restake.Bytes32) (bool, error) {
	return d.withdrawals.IsPending(root)
}

// MinWithdrawalDelayBlocks returns the global minimum withdrawal delay.
func (d *DelegationManager) MinWithdrawalDelayBlocks() (uint32, error) {
	return d.withdrawals.MinDelayBlocks()
}

// StrategyWithdrawalDelayBlocks returns the strategy's extra delay.
func (d *DelegationManager) StrategyWithdrawalDelayBlocks(strategy restake.Address) (uint32, error) {
	return d.withdrawals.StrategyDelayBlocks(strategy)
}

// EffectiveWithdrawalDelay returns the delay applied to a withdrawal
// over the given strategies.
func (d *DelegationManager) EffectiveWithdrawalDelay(strats []restake.Address) (uint32, error) {
	return d.withdrawals.EffectiveDelay(strats)
}

// ApproverSaltSpent reports whether the approver salt has been consumed
// for the (staker, operator) pair.
func (d *DelegationManager) ApproverSaltSpent(staker, operator restake.Address, salt restake.Bytes32) (bool, error) {
	return d.saltSpent.Get(saltKey{Staker: staker, Operator: operator, Salt: salt})
}

// StakerDelegationDigest returns the digest a staker signs for
// DelegateToBySignature.
func (d *DelegationManager) StakerDelegationDigest(staker, operator restake.Address, expiry uint32) restake.Bytes32 {
	return sigverify.StakerDelegationDigest(d.env.ChainID(), d.addr, staker, operator, expiry)
}

// DelegationApprovalDigest returns the digest a delegation approver
// signs to admit a staker.
func (d *DelegationManager) DelegationApprovalDigest(staker, operator restake.Address, salt restake.Bytes32, expiry uint32) restake.Bytes32 {
	return sigverify.DelegationApprovalDigest(d.env.ChainID(), d.addr, staker, operator, salt, expiry)
}
