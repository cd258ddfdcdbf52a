// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package metadatatest

import (
	"encoding/binary"

	"github.com/torus-network/torus-client-go/lib/metadata"
)

// Pallet indices of the Torus fixture.
const (
	SystemIndex      uint8 = 0
	BalancesIndex    uint8 = 4
	Torus0Index      uint8 = 12
	Emission0Index   uint8 = 13
	GovernanceIndex  uint8 = 14
	Permission0Index uint8 = 15
)

// ExistentialDeposit is the Balances.ExistentialDeposit constant of the fixture.
const ExistentialDeposit = 1_000_000_000_000

// Fixture is a builder populated with a subset of the Torus runtime.
// The exported ids let tests build values of the fixture types.
type Fixture struct {
	*Builder

	Bool, U8, U16, U32, U64, U128 metadata.TypeID
	Str, Bytes, H256, AccountID   metadata.TypeID
	CompactU64, CompactU128       metadata.TypeID
	AccountInfo, AccountData      metadata.TypeID
	Agent, Proposal, ProposalData metadata.TypeID
	OptionU64, StakeTuple         metadata.TypeID
	EventRecords, RuntimeEvent    metadata.TypeID
	Phase, DispatchInfo           metadata.TypeID
	RuntimeVersion                metadata.TypeID
}

// Torus returns the Torus fixture for the given metadata version.
func Torus(version uint8) *Fixture {
	f := &Fixture{Builder: New(version)}
	b := f.Builder

	f.Bool = b.Primitive(metadata.Bool)
	f.U8 = b.Primitive(metadata.U8)
	f.U16 = b.Primitive(metadata.U16)
	f.U32 = b.Primitive(metadata.U32)
	f.U64 = b.Primitive(metadata.U64)
	f.U128 = b.Primitive(metadata.U128)
	f.Str = b.Primitive(metadata.Str)
	f.Bytes = b.Sequence(f.U8)
	f.CompactU64 = b.Compact(f.U64)
	f.CompactU128 = b.Compact(f.U128)

	bytes32 := b.Array(32, f.U8)
	f.AccountID = b.Composite([]string{"sp_core", "crypto", "AccountId32"}, metadata.Field{Type: bytes32, TypeName: "[u8; 32]"})
	f.H256 = b.Composite([]string{"primitive_types", "H256"}, metadata.Field{Type: bytes32, TypeName: "[u8; 32]"})
	f.OptionU64 = b.Variant([]string{"Option"}, V("None", 0), V("Some", 1, metadata.Field{Type: f.U64}))
	f.StakeTuple = b.Tuple(f.AccountID, f.AccountID)
	percent := b.Composite([]string{"sp_arithmetic", "per_things", "Percent"}, metadata.Field{Type: f.U8})

	f.system()
	f.balances()
	f.torus0()
	f.emission0(percent)
	f.governance(percent)
	f.permission0()
	f.outer()

	if version >= metadata.V15 {
		f.RuntimeVersion = b.Composite([]string{"sp_version", "RuntimeVersion"},
			F("spec_name", f.Str), F("spec_version", f.U32))
		b.APIs = []API{
			{
				Name: "Core",
				Methods: []Method{
					{Name: "version", Output: f.RuntimeVersion, Docs: []string{" Returns the version of the runtime."}},
				},
				Docs: []string{" The `Core` runtime api that every Substrate runtime needs to implement."},
			},
			{
				Name: "AccountNonceApi",
				Methods: []Method{
					{
						Name:   "account_nonce",
						Inputs: []metadata.RuntimeAPIParam{{Name: "account", Type: f.AccountID}},
						Output: f.U32,
					},
				},
			},
		}
		b.Custom = map[string]metadata.CustomValue{
			"network": {Type: f.Str, Value: append([]byte{0x14}, "torus"...)},
		}
	}
	return f
}

// MustTorus parses the Torus fixture for the given version and panics on error.
func MustTorus(version uint8) *metadata.Descriptor {
	d, err := metadata.Parse(Torus(version).Build())
	if err != nil {
		panic(err)
	}
	return d
}

func u16LE(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func u32LE(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func u64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func u128LE(v uint64) []byte {
	return append(u64LE(v), make([]byte, 8)...)
}

func (f *Fixture) system() {
	b := f.Builder

	extraFlags := b.Composite([]string{"pallet_balances", "types", "ExtraFlags"}, metadata.Field{Type: f.U128})
	f.AccountData = b.Composite([]string{"pallet_balances", "types", "AccountData"},
		F("free", f.U128), F("reserved", f.U128), F("frozen", f.U128), F("flags", extraFlags))
	f.AccountInfo = b.Composite([]string{"frame_system", "AccountInfo"},
		F("nonce", f.U32), F("consumers", f.U32), F("providers", f.U32), F("sufficients", f.U32),
		F("data", f.AccountData))

	weight := b.Composite([]string{"sp_weights", "weight_v2", "Weight"},
		F("ref_time", f.CompactU64), F("proof_size", f.CompactU64))
	class := b.Variant([]string{"frame_support", "dispatch", "DispatchClass"},
		V("Normal", 0), V("Operational", 1), V("Mandatory", 2))
	pays := b.Variant([]string{"frame_support", "dispatch", "Pays"}, V("Yes", 0), V("No", 1))
	f.DispatchInfo = b.Composite([]string{"frame_support", "dispatch", "DispatchInfo"},
		F("weight", weight), F("class", class), F("pays_fee", pays))

	calls := b.Variant([]string{"frame_system", "pallet", "Call"},
		V("remark", 0, F("remark", f.Bytes)),
		V("remark_with_event", 7, F("remark", f.Bytes)),
	)
	events := b.Variant([]string{"frame_system", "pallet", "Event"},
		V("ExtrinsicSuccess", 0, F("dispatch_info", f.DispatchInfo)),
		V("NewAccount", 3, F("account", f.AccountID)),
		V("KilledAccount", 4, F("account", f.AccountID)),
		V("Remarked", 7, F("sender", f.AccountID), F("hash", f.H256)),
	)
	errors := b.Variant([]string{"frame_system", "pallet", "Error"},
		V("InvalidSpecName", 0), V("SpecVersionNeedsToIncrease", 1), V("CallFiltered", 5))

	// System.Events value type is patched by outer once the runtime
	// event enum exists.
	f.EventRecords = b.Reserve()

	b.Pallets = append(b.Pallets, Pallet{
		Name:  "System",
		Index: SystemIndex,
		Storage: []Storage{
			{
				Name:     "Account",
				Modifier: metadata.Default,
				Hashers:  []metadata.Hasher{metadata.Blake2_128Concat},
				Key:      Ptr(f.AccountID),
				Value:    f.AccountInfo,
				Default:  make([]byte, 80),
				Docs:     []string{" The full account information for a particular account ID."},
			},
			{Name: "Number", Modifier: metadata.Default, Value: f.U32, Default: u32LE(0)},
			{
				Name:     "BlockHash",
				Modifier: metadata.Default,
				Hashers:  []metadata.Hasher{metadata.Twox64Concat},
				Key:      Ptr(f.U32),
				Value:    f.H256,
				Default:  make([]byte, 32),
			},
			{Name: "Events", Modifier: metadata.Default, Value: f.EventRecords, Default: []byte{0}},
		},
		Calls:  Ptr(calls),
		Events: Ptr(events),
		Constants: []Constant{
			{Name: "BlockHashCount", Type: f.U32, Value: u32LE(2400)},
			{Name: "SS58Prefix", Type: f.U16, Value: u16LE(42), Docs: []string{" The designated SS58 prefix of this chain."}},
		},
		Errors: Ptr(errors),
	})
}

func (f *Fixture) balances() {
	b := f.Builder

	calls := b.Variant([]string{"pallet_balances", "pallet", "Call"},
		V("transfer_allow_death", 0, F("dest", f.AccountID), F("value", f.CompactU128)),
		V("transfer_keep_alive", 3, F("dest", f.AccountID), F("value", f.CompactU128)),
		V("transfer_all", 4, F("dest", f.AccountID), F("keep_alive", f.Bool)),
	)
	events := b.Variant([]string{"pallet_balances", "pallet", "Event"},
		V("Endowed", 0, F("account", f.AccountID), F("free_balance", f.U128)),
		V("Transfer", 2, F("from", f.AccountID), F("to", f.AccountID), F("amount", f.U128)),
		V("Deposit", 7, F("who", f.AccountID), F("amount", f.U128)),
		V("Withdraw", 8, F("who", f.AccountID), F("amount", f.U128)),
	)
	errors := b.Variant([]string{"pallet_balances", "pallet", "Error"},
		V("VestingBalance", 0), V("InsufficientBalance", 2), V("ExistentialDeposit", 3))

	b.Pallets = append(b.Pallets, Pallet{
		Name:  "Balances",
		Index: BalancesIndex,
		Storage: []Storage{
			{Name: "TotalIssuance", Modifier: metadata.Default, Value: f.U128, Default: make([]byte, 16)},
			{
				Name:     "Account",
				Modifier: metadata.Default,
				Hashers:  []metadata.Hasher{metadata.Blake2_128Concat},
				Key:      Ptr(f.AccountID),
				Value:    f.AccountData,
				Default:  make([]byte, 64),
			},
		},
		Calls:  Ptr(calls),
		Events: Ptr(events),
		Constants: []Constant{
			{Name: "ExistentialDeposit", Type: f.U128, Value: u128LE(ExistentialDeposit)},
			{Name: "MaxLocks", Type: f.U32, Value: u32LE(50)},
		},
		Errors: Ptr(errors),
	})
}

func (f *Fixture) torus0() {
	b := f.Builder

	f.Agent = b.Composite([]string{"pallet_torus0", "agent", "Agent"},
		F("key", f.AccountID), F("name", f.Bytes), F("url", f.Bytes), F("metadata", f.Bytes),
		F("registration_block", f.U64))

	calls := b.Variant([]string{"pallet_torus0", "pallet", "Call"},
		V("add_stake", 0, F("agent_key", f.AccountID), F("amount", f.U128)),
		V("remove_stake", 1, F("agent_key", f.AccountID), F("amount", f.U128)),
		V("transfer_stake", 2, F("agent_key", f.AccountID), F("new_agent_key", f.AccountID), F("amount", f.U128)),
		V("register_agent", 3, F("agent_key", f.AccountID), F("name", f.Bytes), F("url", f.Bytes), F("metadata", f.Bytes)),
		V("unregister_agent", 4),
	)
	events := b.Variant([]string{"pallet_torus0", "pallet", "Event"},
		V("StakeAdded", 0, metadata.Field{Type: f.AccountID}, metadata.Field{Type: f.AccountID}, metadata.Field{Type: f.U128}),
		V("StakeRemoved", 1, metadata.Field{Type: f.AccountID}, metadata.Field{Type: f.AccountID}, metadata.Field{Type: f.U128}),
		V("AgentRegistered", 2, metadata.Field{Type: f.AccountID}),
		V("AgentUnregistered", 3, metadata.Field{Type: f.AccountID}),
	)
	errors := b.Variant([]string{"pallet_torus0", "pallet", "Error"},
		V("AgentDoesNotExist", 0), V("NotEnoughStakeToWithdraw", 1), V("AgentAlreadyRegistered", 3))

	b.Pallets = append(b.Pallets, Pallet{
		Name:  "Torus0",
		Index: Torus0Index,
		Storage: []Storage{
			{
				Name:     "Agents",
				Modifier: metadata.Optional,
				Hashers:  []metadata.Hasher{metadata.Identity},
				Key:      Ptr(f.AccountID),
				Value:    f.Agent,
			},
			{
				Name:     "StakingTo",
				Modifier: metadata.Default,
				Hashers:  []metadata.Hasher{metadata.Identity, metadata.Identity},
				Key:      Ptr(f.StakeTuple),
				Value:    f.U128,
				Default:  make([]byte, 16),
			},
			{
				Name:     "StakedBy",
				Modifier: metadata.Default,
				Hashers:  []metadata.Hasher{metadata.Identity, metadata.Identity},
				Key:      Ptr(f.StakeTuple),
				Value:    f.U128,
				Default:  make([]byte, 16),
			},
			{Name: "TotalStake", Modifier: metadata.Default, Value: f.U128, Default: make([]byte, 16)},
		},
		Calls:  Ptr(calls),
		Events: Ptr(events),
		Constants: []Constant{
			{Name: "DefaultMinNameLength", Type: f.U16, Value: u16LE(2)},
			{Name: "DefaultMaxNameLength", Type: f.U16, Value: u16LE(32)},
		},
		Errors: Ptr(errors),
	})
}

func (f *Fixture) emission0(percent metadata.TypeID) {
	b := f.Builder

	weights := b.Sequence(b.Tuple(f.AccountID, f.U16))
	calls := b.Variant([]string{"pallet_emission0", "pallet", "Call"},
		V("set_weights", 0, F("weights", weights)),
		V("delegate_weight_control", 1, F("target", f.AccountID)),
	)
	events := b.Variant([]string{"pallet_emission0", "pallet", "Event"},
		V("WeightsSet", 0, metadata.Field{Type: f.AccountID}),
	)

	b.Pallets = append(b.Pallets, Pallet{
		Name:  "Emission0",
		Index: Emission0Index,
		Storage: []Storage{
			{
				Name:     "WeightControlDelegation",
				Modifier: metadata.Optional,
				Hashers:  []metadata.Hasher{metadata.Identity},
				Key:      Ptr(f.AccountID),
				Value:    f.AccountID,
			},
			{Name: "PendingEmission", Modifier: metadata.Default, Value: f.U128, Default: make([]byte, 16)},
			{Name: "IncentivesRatio", Modifier: metadata.Default, Value: percent, Default: []byte{50}},
		},
		Calls:  Ptr(calls),
		Events: Ptr(events),
		Constants: []Constant{
			{Name: "HalvingInterval", Type: f.U64, Value: u64LE(144_000_000)},
		},
	})
}

func (f *Fixture) governance(percent metadata.TypeID) {
	b := f.Builder

	f.ProposalData = b.Variant([]string{"pallet_governance", "proposal", "ProposalData"},
		V("GlobalCustom", 0),
		V("Emission", 1, F("recycling_percentage", percent), F("treasury_percentage", percent)),
		V("TransferDaoTreasury", 2, F("account", f.AccountID), F("amount", f.U128)),
	)
	accounts := b.Sequence(f.AccountID)
	status := b.Variant([]string{"pallet_governance", "proposal", "ProposalStatus"},
		V("Open", 0, F("votes_for", accounts), F("votes_against", accounts),
			F("stake_for", f.U128), F("stake_against", f.U128)),
		V("Accepted", 1, F("block", f.U64), F("stake_for", f.U128), F("stake_against", f.U128)),
		V("Refused", 2, F("block", f.U64), F("stake_for", f.U128), F("stake_against", f.U128)),
		V("Expired", 3),
	)
	f.Proposal = b.Composite([]string{"pallet_governance", "proposal", "Proposal"},
		F("id", f.U64), F("proposer", f.AccountID), F("expiration_block", f.U64),
		F("data", f.ProposalData), F("status", status), F("metadata", f.Bytes))

	calls := b.Variant([]string{"pallet_governance", "pallet", "Call"},
		V("add_global_custom_proposal", 4, F("metadata", f.Bytes)),
		V("vote_proposal", 8, F("proposal_id", f.U64), F("agree", f.Bool)),
		V("remove_vote_proposal", 9, F("proposal_id", f.U64)),
	)
	events := b.Variant([]string{"pallet_governance", "pallet", "Event"},
		V("ProposalCreated", 0, metadata.Field{Type: f.U64}),
		V("ProposalAccepted", 1, metadata.Field{Type: f.U64}),
		V("ProposalVotedFor", 4, metadata.Field{Type: f.U64}, metadata.Field{Type: f.AccountID}),
	)

	b.Pallets = append(b.Pallets, Pallet{
		Name:  "Governance",
		Index: GovernanceIndex,
		Storage: []Storage{
			{
				Name:     "Proposals",
				Modifier: metadata.Optional,
				Hashers:  []metadata.Hasher{metadata.Identity},
				Key:      Ptr(f.U64),
				Value:    f.Proposal,
			},
			{
				Name:     "Whitelist",
				Modifier: metadata.Optional,
				Hashers:  []metadata.Hasher{metadata.Identity},
				Key:      Ptr(f.AccountID),
				Value:    b.Unit(),
			},
			{Name: "NextProposalId", Modifier: metadata.Optional, Value: f.OptionU64},
		},
		Calls:  Ptr(calls),
		Events: Ptr(events),
	})
}

func (f *Fixture) permission0() {
	b := f.Builder

	contract := b.Composite([]string{"pallet_permission0", "permission", "PermissionContract"},
		F("grantor", f.AccountID), F("grantee", f.AccountID), F("created_at", f.U64))
	calls := b.Variant([]string{"pallet_permission0", "pallet", "Call"},
		V("revoke_permission", 1, F("permission_id", f.H256)),
	)

	b.Pallets = append(b.Pallets, Pallet{
		Name:  "Permission0",
		Index: Permission0Index,
		Storage: []Storage{
			{
				Name:     "Permissions",
				Modifier: metadata.Optional,
				Hashers:  []metadata.Hasher{metadata.Identity},
				Key:      Ptr(f.H256),
				Value:    contract,
			},
			{
				Name:     "PermissionsByParticipants",
				Modifier: metadata.Default,
				Hashers:  []metadata.Hasher{metadata.Twox64Concat, metadata.Blake2_256},
				Key:      Ptr(f.StakeTuple),
				Value:    b.Sequence(f.H256),
				Default:  []byte{0},
			},
		},
		Calls: Ptr(calls),
	})
}

// outer builds the runtime event enum and defines the System.Events record type.
func (f *Fixture) outer() {
	b := f.Builder

	var variants []metadata.Variant
	for _, p := range b.Pallets {
		if p.Events == nil {
			continue
		}
		variants = append(variants, V(p.Name, p.Index, metadata.Field{Type: *p.Events}))
	}
	f.RuntimeEvent = b.Variant([]string{"torus_runtime", "RuntimeEvent"}, variants...)

	f.Phase = b.Variant([]string{"frame_system", "Phase"},
		V("ApplyExtrinsic", 0, metadata.Field{Type: f.U32}),
		V("Finalization", 1),
		V("Initialization", 2),
	)
	record := b.Composite([]string{"frame_system", "EventRecord"},
		F("phase", f.Phase), F("event", f.RuntimeEvent), F("topics", b.Sequence(f.H256)))
	b.Define(f.EventRecords, nil, metadata.TypeDef{Kind: metadata.KindSequence, Elem: record})
}

// MutateCall applies mutate to the call variant with the given index of
// a pallet, which lets tests derive a diverging runtime from the fixture.
func (f *Fixture) MutateCall(pallet string, index uint8, mutate func(v *metadata.Variant)) {
	callsID := *f.Pallet(pallet).Calls
	def := f.Def(callsID)
	variants := make([]metadata.Variant, len(def.Variants))
	for i, v := range def.Variants {
		v.Fields = append([]metadata.Field(nil), v.Fields...)
		if v.Index == index {
			mutate(&v)
		}
		variants[i] = v
	}
	def.Variants = variants
	f.Define(callsID, f.Types()[callsID].Path, def)
}
