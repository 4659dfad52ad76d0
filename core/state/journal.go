package state

import (
	"github.com/holiman/uint256"

	"github.com/evmcore/evmcore/core/types"
)

// journalEntry is a modification to the state that can be reverted.
type journalEntry interface {
	revert(s *MemoryStateDB)
}

// journal records state modifications in execution order so that a
// range of them can be unwound on RevertToSnapshot.
type journal struct {
	entries   []journalEntry
	snapshots map[int]int // snapshot id -> journal length at snapshot time
	nextID    int
}

func newJournal() *journal {
	return &journal{
		snapshots: make(map[int]int),
	}
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
}

func (j *journal) snapshot() int {
	id := j.nextID
	j.nextID++
	j.snapshots[id] = len(j.entries)
	return id
}

func (j *journal) revertToSnapshot(id int, s *MemoryStateDB) {
	length, ok := j.snapshots[id]
	if !ok {
		return
	}
	for i := len(j.entries) - 1; i >= length; i-- {
		j.entries[i].revert(s)
	}
	j.entries = j.entries[:length]
	// Invalidate this snapshot and any later ones.
	for sid, slen := range j.snapshots {
		if sid >= id || slen > length {
			delete(j.snapshots, sid)
		}
	}
}

type createAccountChange struct {
	addr types.Address
	prev *stateObject
}

func (c createAccountChange) revert(s *MemoryStateDB) {
	if c.prev == nil {
		delete(s.stateObjects, c.addr)
	} else {
		s.stateObjects[c.addr] = c.prev
	}
}

type balanceChange struct {
	addr types.Address
	prev *uint256.Int
}

func (c balanceChange) revert(s *MemoryStateDB) {
	if obj := s.getStateObject(c.addr); obj != nil {
		obj.account.Balance = c.prev
	}
}

type nonceChange struct {
	addr types.Address
	prev uint64
}

func (c nonceChange) revert(s *MemoryStateDB) {
	if obj := s.getStateObject(c.addr); obj != nil {
		obj.account.Nonce = c.prev
	}
}

type codeChange struct {
	addr     types.Address
	prevCode []byte
	prevHash []byte
}

func (c codeChange) revert(s *MemoryStateDB) {
	if obj := s.getStateObject(c.addr); obj != nil {
		obj.code = c.prevCode
		obj.account.CodeHash = c.prevHash
	}
}

type storageChange struct {
	addr       types.Address
	key        types.Hash
	prev       types.Hash
	prevExists bool
}

func (c storageChange) revert(s *MemoryStateDB) {
	if obj := s.getStateObject(c.addr); obj != nil {
		if c.prevExists {
			obj.dirtyStorage[c.key] = c.prev
		} else {
			delete(obj.dirtyStorage, c.key)
		}
	}
}

type selfDestructChange struct {
	addr           types.Address
	prevDestructed bool
	prevBalance    *uint256.Int
}

func (c selfDestructChange) revert(s *MemoryStateDB) {
	if obj := s.getStateObject(c.addr); obj != nil {
		obj.selfDestructed = c.prevDestructed
		obj.account.Balance = c.prevBalance
	}
}

type accessListAddAccountChange struct {
	addr types.Address
}

func (c accessListAddAccountChange) revert(s *MemoryStateDB) {
	s.accessList.DeleteAddress(c.addr)
}

type accessListAddSlotChange struct {
	addr types.Address
	slot types.Hash
}

func (c accessListAddSlotChange) revert(s *MemoryStateDB) {
	s.accessList.DeleteSlot(c.addr, c.slot)
}

type transientStorageChange struct {
	addr types.Address
	key  types.Hash
	prev types.Hash
}

func (c transientStorageChange) revert(s *MemoryStateDB) {
	if c.prev == (types.Hash{}) {
		if slots, ok := s.transientStorage[c.addr]; ok {
			delete(slots, c.key)
			if len(slots) == 0 {
				delete(s.transientStorage, c.addr)
			}
		}
		return
	}
	if _, ok := s.transientStorage[c.addr]; !ok {
		s.transientStorage[c.addr] = make(map[types.Hash]types.Hash)
	}
	s.transientStorage[c.addr][c.key] = c.prev
}

type logChange struct {
	prevLen int
}

func (c logChange) revert(s *MemoryStateDB) {
	s.logs = s.logs[:c.prevLen]
}

type refundChange struct {
	prev uint64
}

func (c refundChange) revert(s *MemoryStateDB) {
	s.refund = c.prev
}
