// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package torus

import (
	"math/big"

	"github.com/torus-network/torus-client-go/lib/call"
	"github.com/torus-network/torus-client-go/lib/storage"
	"github.com/torus-network/torus-client-go/lib/value"
	"github.com/torus-network/torus-client-go/pkg/scale"
)

// Pallet names of the Torus runtime.
const (
	System      = "System"
	Balances    = "Balances"
	Torus0      = "Torus0"
	Emission0   = "Emission0"
	Governance  = "Governance"
	Permission0 = "Permission0"
)

// DefaultPallets returns the pallets checked for compatibility when
// none are configured.
func DefaultPallets() []string {
	return []string{System, Balances, Torus0, Emission0, Governance, Permission0}
}

// DefaultRuntimeAPIs returns the runtime APIs checked for compatibility
// when none are configured. They only exist in V15 metadata.
func DefaultRuntimeAPIs() []string {
	return []string{"Core", "AccountNonceApi"}
}

// Remark returns a System.remark call.
func Remark(remark []byte) call.Call {
	return call.New(System, "remark", value.Bytes(remark))
}

// TransferAllowDeath returns a Balances.transfer_allow_death call.
func TransferAllowDeath(dest AccountID, amount *big.Int) call.Call {
	return call.New(Balances, "transfer_allow_death", dest.Value(), value.BigUint(amount))
}

// TransferKeepAlive returns a Balances.transfer_keep_alive call.
func TransferKeepAlive(dest AccountID, amount *big.Int) call.Call {
	return call.New(Balances, "transfer_keep_alive", dest.Value(), value.BigUint(amount))
}

// AddStake returns a Torus0.add_stake call.
func AddStake(agent AccountID, amount *big.Int) call.Call {
	return call.New(Torus0, "add_stake", agent.Value(), value.BigUint(amount))
}

// RemoveStake returns a Torus0.remove_stake call.
func RemoveStake(agent AccountID, amount *big.Int) call.Call {
	return call.New(Torus0, "remove_stake", agent.Value(), value.BigUint(amount))
}

// RegisterAgent returns a Torus0.register_agent call.
func RegisterAgent(agent AccountID, name, url, metadata string) call.Call {
	return call.New(Torus0, "register_agent",
		agent.Value(),
		value.Bytes([]byte(name)),
		value.Bytes([]byte(url)),
		value.Bytes([]byte(metadata)),
	)
}

// VoteProposal returns a Governance.vote_proposal call.
func VoteProposal(proposalID uint64, agree bool) call.Call {
	return call.New(Governance, "vote_proposal", value.Uint(proposalID), value.Bool(agree))
}

// AccountKey returns the System.Account storage key of an account.
func AccountKey(codec *storage.Codec, account AccountID) (storage.Key, error) {
	return codec.Key(System, "Account", account.Value())
}

// AgentKey returns the Torus0.Agents storage key of an agent.
func AgentKey(codec *storage.Codec, agent AccountID) (storage.Key, error) {
	return codec.Key(Torus0, "Agents", agent.Value())
}

// StakingToKey returns the Torus0.StakingTo storage key of a staker and
// agent. Without agents it returns the iteration only key of all the
// stakes of the staker.
func StakingToKey(codec *storage.Codec, staker AccountID, agent ...AccountID) (storage.Key, error) {
	parts := []value.Value{staker.Value()}
	for _, a := range agent {
		parts = append(parts, a.Value())
	}
	return codec.Key(Torus0, "StakingTo", parts...)
}

// AccountData is the balance part of an AccountInfo.
type AccountData struct {
	Free     scale.Uint128
	Reserved scale.Uint128
	Frozen   scale.Uint128
	Flags    scale.Uint128
}

// AccountInfo is the System.Account storage value.
type AccountInfo struct {
	Nonce       uint32
	Consumers   uint32
	Providers   uint32
	Sufficients uint32
	Data        AccountData
}

// DecodeAccountInfo decodes a System.Account storage value.
func DecodeAccountInfo(b []byte) (info AccountInfo, err error) {
	err = scale.Unmarshal(b, &info)
	return info, err
}

// Agent is the Torus0.Agents storage value.
type Agent struct {
	Key               AccountID
	Name              []byte
	URL               []byte
	Metadata          []byte
	RegistrationBlock uint64
}

// DecodeAgent decodes a Torus0.Agents storage value.
func DecodeAgent(b []byte) (agent Agent, err error) {
	err = scale.Unmarshal(b, &agent)
	return agent, err
}
