// Package skiplist implements the tower-linked, arena-indexed skip list
// that backs the memory table: an ordered map from uint64 keys to
// byte-string values, with head/tail sentinels on every level and four
// neighbor links per node (predecessor, successor, upper, lower).
//
// Nodes live in a single growable slice owned by the list (the "arena")
// and are referred to by index rather than pointer, so the whole
// structure is reclaimed by dropping the slice — no node outlives its
// owning list.
package skiplist

import "math/rand/v2"

// maxLevelCap bounds tower height. The spec calls this "practically
// unbounded"; in practice a skip list never needs more than ~log(n)
// levels, so a generous constant cap avoids unbounded slice growth from
// a pathological run of random draws.
const maxLevelCap = 32

// boundP is the 16-bit threshold used for level sampling: a draw in
// [0, boundP) continues climbing, giving each additional level roughly
// 1/e probability (24108/65536 ≈ 0.368).
const boundP = 24108

const maxKey = ^uint64(0)

const none = -1

type node struct {
	key                       uint64
	value                     []byte
	pred, succ, above, below int
}

// SkipList is an ordered map keyed by uint64, implemented as a
// probabilistic tower-linked skip list.
type SkipList struct {
	arena []node
	head  []int // head[i] is the arena index of level i's head sentinel
	tail  []int // tail[i] is the arena index of level i's tail sentinel
	rnd   *rand.Rand
	n     int
}

// New returns an empty skip list.
func New() *SkipList {
	sl := &SkipList{
		rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	h := sl.newNode(0, nil)
	t := sl.newNode(maxKey, nil)
	sl.arena[h].succ = t
	sl.arena[t].pred = h
	sl.head = []int{h}
	sl.tail = []int{t}
	return sl
}

func (sl *SkipList) newNode(key uint64, value []byte) int {
	sl.arena = append(sl.arena, node{key: key, value: value, pred: none, succ: none, above: none, below: none})
	return len(sl.arena) - 1
}

// Len returns the number of distinct keys stored.
func (sl *SkipList) Len() int {
	return sl.n
}

func (sl *SkipList) randHeight() int {
	h := 0
	for h < maxLevelCap-1 {
		r := sl.rnd.Uint32() & 0xFFFF
		if r >= boundP {
			break
		}
		h++
	}
	return h
}

// searchUtil is the shared lookup core described in the spec: it returns
// either the node matching key (found=true), or the level-0 predecessor
// at which key would be inserted (found=false). It special-cases the two
// sentinel key values (0 and math.MaxUint64) to avoid confusing a real
// key equal to a sentinel value with the sentinel node itself.
func (sl *SkipList) searchUtil(key uint64) (p int, found bool) {
	if key == 0 {
		first := sl.arena[sl.head[0]].succ
		if first != sl.tail[0] && sl.arena[first].key == 0 {
			return first, true
		}
		return sl.head[0], false
	}
	if key == maxKey {
		last := sl.arena[sl.tail[0]].pred
		if last != sl.head[0] && sl.arena[last].key == maxKey {
			return last, true
		}
		return last, false
	}

	t := sl.head[len(sl.head)-1]
	for {
		for sl.arena[sl.arena[t].succ].key <= key {
			t = sl.arena[t].succ
		}
		if sl.arena[t].key == key {
			for sl.arena[t].below != none {
				t = sl.arena[t].below
			}
			return t, true
		}
		if sl.arena[t].below == none {
			return t, false
		}
		t = sl.arena[t].below
	}
}

// Search returns the value stored for key, and whether it was found.
func (sl *SkipList) Search(key uint64) ([]byte, bool) {
	n, found := sl.searchUtil(key)
	if !found {
		return nil, false
	}
	return sl.arena[n].value, true
}

// ensureHeight grows the sentinel towers so at least `height` levels
// exist, linking each new level's head/tail down to the previous top.
func (sl *SkipList) ensureHeight(height int) {
	for height > len(sl.head) {
		lvl := len(sl.head)
		h := sl.newNode(0, nil)
		t := sl.newNode(maxKey, nil)
		sl.arena[h].succ = t
		sl.arena[t].pred = h
		sl.arena[h].below = sl.head[lvl-1]
		sl.arena[sl.head[lvl-1]].above = h
		sl.arena[t].below = sl.tail[lvl-1]
		sl.arena[sl.tail[lvl-1]].above = t
		sl.head = append(sl.head, h)
		sl.tail = append(sl.tail, t)
	}
}

// insertUntil splices a new tower of the given key/value to the right of
// predIdx (a level-0 predecessor), climbing `extraLevels` levels above
// level 0 by walking left/right to find splice points on each level up.
func (sl *SkipList) insertUntil(key uint64, value []byte, predIdx int, extraLevels int) int {
	sl.ensureHeight(extraLevels + 1)

	pLeft := predIdx
	pRight := sl.arena[pLeft].succ

	newIdx := sl.newNode(key, value)
	sl.arena[newIdx].pred = pLeft
	sl.arena[newIdx].succ = pRight
	sl.arena[pLeft].succ = newIdx
	sl.arena[pRight].pred = newIdx

	below := newIdx
	for range extraLevels {
		for sl.arena[pLeft].above == none {
			pLeft = sl.arena[pLeft].pred
		}
		pLeft = sl.arena[pLeft].above
		for sl.arena[pRight].above == none {
			pRight = sl.arena[pRight].succ
		}
		pRight = sl.arena[pRight].above

		aboveIdx := sl.newNode(key, value)
		sl.arena[aboveIdx].pred = pLeft
		sl.arena[aboveIdx].succ = pRight
		sl.arena[aboveIdx].below = below
		sl.arena[below].above = aboveIdx
		sl.arena[pLeft].succ = aboveIdx
		sl.arena[pRight].pred = aboveIdx

		below = aboveIdx
	}
	return newIdx
}

// Insert inserts key/value iff key is not already present. It returns
// false without modifying the list if key already exists.
func (sl *SkipList) Insert(key uint64, value []byte) bool {
	predIdx, found := sl.searchUtil(key)
	if found {
		return false
	}
	sl.insertUntil(key, value, predIdx, sl.randHeight())
	sl.n++
	return true
}

// InsertOrAssign overwrites key's value (on every level of its tower) if
// present, or inserts it if absent. It returns true iff an insertion (as
// opposed to an overwrite) took place.
func (sl *SkipList) InsertOrAssign(key uint64, value []byte) bool {
	predOrNode, found := sl.searchUtil(key)
	if found {
		n := predOrNode
		for n != none {
			sl.arena[n].value = value
			n = sl.arena[n].above
		}
		return false
	}
	sl.insertUntil(key, value, predOrNode, sl.randHeight())
	sl.n++
	return true
}

// KV is a single (key, value) pair returned by Enumerate.
type KV struct {
	Key   uint64
	Value []byte
}

// Enumerate returns the in-order (ascending key) sequence of all pairs at
// level 0.
func (sl *SkipList) Enumerate() []KV {
	out := make([]KV, 0, sl.n)
	for n := sl.arena[sl.head[0]].succ; n != sl.tail[0]; n = sl.arena[n].succ {
		out = append(out, KV{Key: sl.arena[n].key, Value: sl.arena[n].value})
	}
	return out
}
