// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package delegationapi exposes read access to the delegation core.
package delegationapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/openrestake/restake/api/restutil"
	"github.com/openrestake/restake/contracts/delegation"
	"github.com/openrestake/restake/contracts/pauser"
	"github.com/openrestake/restake/contracts/strategies"
	"github.com/openrestake/restake/restake"
	"github.com/openrestake/restake/runtime"
	"github.com/openrestake/restake/sigverify"
	"github.com/openrestake/restake/state"
)

// DelegationAPI serves delegation state reads over a fresh state per
// request.
type DelegationAPI struct {
	stater  *state.Stater
	chainID uint64
}

// New creates the delegation api.
func New(stater *state.Stater, chainID uint64) *DelegationAPI {
	return &DelegationAPI{stater: stater, chainID: chainID}
}

func (a *DelegationAPI) facade() (*delegation.DelegationManager, *strategies.Manager) {
	env := runtime.New(a.stater.NewState(), runtime.Context{ChainID: a.chainID})
	m := strategies.NewManager(env)
	return delegation.New(env, m, sigverify.NewVerifier(nil)), m
}

func pathAddress(r *http.Request, name string) (restake.Address, error) {
	addr, err := restake.ParseAddress(mux.Vars(r)[name])
	if err != nil {
		return restake.Address{}, restutil.BadRequest(errors.WithMessage(err, name))
	}
	return addr, nil
}

type operatorResponse struct {
	Registered               bool   `json:"registered"`
	DelegationApprover       string `json:"delegationApprover"`
	StakerOptOutWindowBlocks uint32 `json:"stakerOptOutWindowBlocks"`
	MetadataURI              string `json:"metadataURI"`
}

func (a *DelegationAPI) handleGetOperator(w http.ResponseWriter, r *http.Request) error {
	operator, err := pathAddress(r, "address")
	if err != nil {
		return err
	}
	dm, _ := a.facade()
	registered, err := dm.IsOperator(operator)
	if err != nil {
		return err
	}
	details, err := dm.OperatorDetails(operator)
	if err != nil {
		return err
	}
	uri, err := dm.OperatorMetadataURI(operator)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &operatorResponse{
		Registered:               registered,
		DelegationApprover:       details.DelegationApprover.String(),
		StakerOptOutWindowBlocks: details.StakerOptOutWindowBlocks,
		MetadataURI:              uri,
	})
}

type sharesResponse struct {
	Operator string `json:"operator"`
	Strategy string `json:"strategy"`
	Shares   string `json:"shares"`
}

func (a *DelegationAPI) handleGetOperatorShares(w http.ResponseWriter, r *http.Request) error {
	operator, err := pathAddress(r, "address")
	if err != nil {
		return err
	}
	strategy, err := pathAddress(r, "strategy")
	if err != nil {
		return err
	}
	dm, _ := a.facade()
	shares, err := dm.OperatorShares(operator, strategy)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &sharesResponse{
		Operator: operator.String(),
		Strategy: strategy.String(),
		Shares:   shares.String(),
	})
}

type stakerResponse struct {
	Delegated                   bool   `json:"delegated"`
	DelegatedTo                 string `json:"delegatedTo"`
	CumulativeWithdrawalsQueued string `json:"cumulativeWithdrawalsQueued"`
}

func (a *DelegationAPI) handleGetStaker(w http.ResponseWriter, r *http.Request) error {
	staker, err := pathAddress(r, "address")
	if err != nil {
		return err
	}
	dm, _ := a.facade()
	operator, err := dm.DelegatedTo(staker)
	if err != nil {
		return err
	}
	nonce, err := dm.CumulativeWithdrawalsQueued(staker)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &stakerResponse{
		Delegated:                   !operator.IsZero(),
		DelegatedTo:                 operator.String(),
		CumulativeWithdrawalsQueued: nonce.String(),
	})
}

type depositEntry struct {
	Strategy string `json:"strategy"`
	Shares   string `json:"shares"`
}

func (a *DelegationAPI) handleGetStakerDeposits(w http.ResponseWriter, r *http.Request) error {
	staker, err := pathAddress(r, "address")
	if err != nil {
		return err
	}
	_, m := a.facade()
	strats, shares, err := m.GetDeposits(staker)
	if err != nil {
		return err
	}
	deposits := make([]depositEntry, 0, len(strats))
	for i, strategy := range strats {
		deposits = append(deposits, depositEntry{
			Strategy: strategy.String(),
			Shares:   shares[i].String(),
		})
	}
	return restutil.WriteJSON(w, deposits)
}

type withdrawalStatusResponse struct {
	Root    string `json:"root"`
	Pending bool   `json:"pending"`
}

func (a *DelegationAPI) handleGetWithdrawalStatus(w http.ResponseWriter, r *http.Request) error {
	root, err := restake.ParseBytes32(mux.Vars(r)["root"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "root"))
	}
	dm, _ := a.facade()
	pending, err := dm.PendingWithdrawal(root)
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &withdrawalStatusResponse{Root: root.String(), Pending: pending})
}

type delaysResponse struct {
	MinDelayBlocks       uint32 `json:"minDelayBlocks"`
	EffectiveDelayBlocks uint32 `json:"effectiveDelayBlocks"`
}

func (a *DelegationAPI) handleGetDelays(w http.ResponseWriter, r *http.Request) error {
	dm, _ := a.facade()
	minDelay, err := dm.MinWithdrawalDelayBlocks()
	if err != nil {
		return err
	}
	effective := minDelay
	if raw := r.URL.Query().Get("strategies"); raw != "" {
		var strats []restake.Address
		for _, s := range strings.Split(raw, ",") {
			addr, err := restake.ParseAddress(s)
			if err != nil {
				return restutil.BadRequest(errors.WithMessage(err, "strategies"))
			}
			strats = append(strats, addr)
		}
		if effective, err = dm.EffectiveWithdrawalDelay(strats); err != nil {
			return err
		}
	}
	return restutil.WriteJSON(w, &delaysResponse{
		MinDelayBlocks:       minDelay,
		EffectiveDelayBlocks: effective,
	})
}

type pauseStatusResponse struct {
	Paused                     string `json:"paused"`
	PausedNewDelegation        bool   `json:"pausedNewDelegation"`
	PausedEnterWithdrawalQueue bool   `json:"pausedEnterWithdrawalQueue"`
	PausedExitWithdrawalQueue  bool   `json:"pausedExitWithdrawalQueue"`
}

func (a *DelegationAPI) handleGetPauseStatus(w http.ResponseWriter, _ *http.Request) error {
	env := runtime.New(a.stater.NewState(), runtime.Context{ChainID: a.chainID})
	p := pauser.New(env)
	flags, err := p.Paused()
	if err != nil {
		return err
	}
	return restutil.WriteJSON(w, &pauseStatusResponse{
		Paused:                     flags.String(),
		PausedNewDelegation:        flags.Bit(int(pauser.PausedNewDelegation)) == 1,
		PausedEnterWithdrawalQueue: flags.Bit(int(pauser.PausedEnterWithdrawalQueue)) == 1,
		PausedExitWithdrawalQueue:  flags.Bit(int(pauser.PausedExitWithdrawalQueue)) == 1,
	})
}

// Mount attaches the api routes under pathPrefix.
func (a *DelegationAPI) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/operators/{address}").
		Methods(http.MethodGet).
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetOperator))
	sub.Path("/operators/{address}/shares/{strategy}").
		Methods(http.MethodGet).
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetOperatorShares))
	sub.Path("/stakers/{address}").
		Methods(http.MethodGet).
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetStaker))
	sub.Path("/stakers/{address}/deposits").
		Methods(http.MethodGet).
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetStakerDeposits))
	sub.Path("/withdrawals/{root}").
		Methods(http.MethodGet).
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetWithdrawalStatus))
	sub.Path("/delays").
		Methods(http.MethodGet).
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetDelays))
	sub.Path("/pause").
		Methods(http.MethodGet).
		HandlerFunc(restutil.WrapHandlerFunc(a.handleGetPauseStatus))
}
