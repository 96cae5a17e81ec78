// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package operators stores per-operator configuration.
package operators

import (
	"github.com/openrestake/restake/contracts/reverts"
	"github.com/openrestake/restake/contracts/storage"
	"github.com/openrestake/restake/restake"
)

var (
	slotDetails      = storage.NameToSlot("operator-details")
	slotMetadataURIs = storage.NameToSlot("operator-metadata-uris")

	errOptOutWindowTooLarge = reverts.New("operators: opt-out window exceeds maximum")
)

// Details is an operator's delegation configuration. A zero
// DelegationApprover means stakers may delegate without approval.
type Details struct {
	DelegationApprover       restake.Address
	StakerOptOutWindowBlocks uint32
}

// Service manages operator details and metadata.
type Service struct {
	details      *storage.Mapping[restake.Address, *Details]
	metadataURIs *storage.Mapping[restake.Address, string]
}

// New creates the operator service on the given storage context.
func New(sctx *storage.Context) *Service {
	return &Service{
		details:      storage.NewMapping[restake.Address, *Details](sctx, slotDetails),
		metadataURIs: storage.NewMapping[restake.Address, string](sctx, slotMetadataURIs),
	}
}

// Get returns the operator's details, zero-valued when never set.
func (s *Service) Get(operator restake.Address) (*Details, error) {
	return s.details.Get(operator)
}

// Set stores the operator's details. The opt-out window is bounded but
// otherwise unconstrained: operators may shorten it as well as extend
// it, and the new value applies to future undelegations only.
func (s *Service) Set(operator restake.Address, details *Details) error {
	if details.StakerOptOutWindowBlocks > restake.MaxStakerOptOutWindowBlocks {
		return errOptOutWindowTooLarge
	}
	return s.details.Set(operator, details)
}

// MetadataURI returns the operator's metadata URI.
func (s *Service) MetadataURI(operator restake.Address) (string, error) {
	return s.metadataURIs.Get(operator)
}

// SetMetadataURI stores the operator's metadata URI.
func (s *Service) SetMetadataURI(operator restake.Address, uri string) error {
	return s.metadataURIs.Set(operator, uri)
}
