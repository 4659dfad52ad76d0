package state

import "github.com/evmcore/evmcore/core/types"

// accessList tracks warm addresses and storage slots per EIP-2929.
// An address maps to its warm slot set; a nil set means the address is
// warm but no slots under it are.
type accessList struct {
	entries map[types.Address]map[types.Hash]struct{}
}

func newAccessList() *accessList {
	return &accessList{
		entries: make(map[types.Address]map[types.Hash]struct{}),
	}
}

// AddAddress marks an address warm. Returns true if it was already warm.
func (al *accessList) AddAddress(addr types.Address) bool {
	if _, ok := al.entries[addr]; ok {
		return true
	}
	al.entries[addr] = nil
	return false
}

// AddSlot marks an (address, slot) pair warm. Returns whether the address
// and the slot were already warm.
func (al *accessList) AddSlot(addr types.Address, slot types.Hash) (addrPresent bool, slotPresent bool) {
	slots, addrPresent := al.entries[addr]
	if slots == nil {
		al.entries[addr] = map[types.Hash]struct{}{slot: {}}
		return addrPresent, false
	}
	if _, ok := slots[slot]; ok {
		return true, true
	}
	slots[slot] = struct{}{}
	return true, false
}

// ContainsAddress reports whether the address is warm.
func (al *accessList) ContainsAddress(addr types.Address) bool {
	_, ok := al.entries[addr]
	return ok
}

// ContainsSlot reports whether the address and slot are warm.
func (al *accessList) ContainsSlot(addr types.Address, slot types.Hash) (addressOk bool, slotOk bool) {
	slots, ok := al.entries[addr]
	if !ok {
		return false, false
	}
	if slots == nil {
		return true, false
	}
	_, slotOk = slots[slot]
	return true, slotOk
}

// DeleteAddress removes an address. Used during revert.
func (al *accessList) DeleteAddress(addr types.Address) {
	delete(al.entries, addr)
}

// DeleteSlot removes a slot under an address. Used during revert.
func (al *accessList) DeleteSlot(addr types.Address, slot types.Hash) {
	if slots := al.entries[addr]; slots != nil {
		delete(slots, slot)
	}
}
