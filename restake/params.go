// Copyright (c) 2025 The OpenRestake developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package restake

// Protocol-wide bounds. These are hard constants, not configuration:
// runtime-settable values (the global minimum withdrawal delay and the
// per-strategy overrides) may never exceed them.
const (
	// MaxWithdrawalDelayBlocks caps both the global minimum withdrawal
	// delay and any per-strategy delay override. ~30 days of blocks.
	MaxWithdrawalDelayBlocks uint32 = 216000

	// MaxStakerOptOutWindowBlocks caps an operator's declared opt-out
	// window. ~180 days of blocks.
	MaxStakerOptOutWindowBlocks uint32 = 1296000
)
