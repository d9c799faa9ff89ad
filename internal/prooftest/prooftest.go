// Package prooftest builds small, real Merkle-Patricia tries in memory so
// tests can exercise the genuine MPT verification code path in
// internal/proof against witnesses with a known-correct (or deliberately
// corrupted) structure, without needing a live RPC node or chain fixture.
package prooftest

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

type kind int

const (
	leafKind kind = iota
	extKind
	branchKind
)

type node struct {
	kind        kind
	path        []byte // remaining key nibbles consumed by this node
	value       []byte // leaf value
	child       *node  // extension child
	children    [17]*node
	branchValue []byte
}

// Builder accumulates key/value entries and produces the root hash and
// root-to-leaf proof paths of the resulting trie.
type Builder struct {
	root *node
}

// New returns an empty trie builder.
func New() *Builder { return &Builder{} }

// Insert adds (or overwrites) a 32-byte key with the given value. value
// should already be the RLP-encoded leaf content (e.g. RLP(StateAccount) or
// RLP(trimmed big-endian word)), matching what a real eth_getProof leaf
// stores.
func (b *Builder) Insert(key common.Hash, value []byte) {
	b.root = insert(b.root, keyToNibbles(key), value)
}

// Root finalizes the trie and returns its root hash.
func (b *Builder) Root() common.Hash {
	nodeHash := map[*node][]byte{}
	if b.root == nil {
		return common.Hash{}
	}
	hashNode(b.root, nodeHash)
	return common.BytesToHash(crypto.Keccak256(nodeHash[b.root]))
}

// Proof returns the ordered list of RLP-encoded trie nodes from the root
// down to the leaf holding key, the same shape as an eth_getProof
// accountProof/storageProof entry.
func (b *Builder) Proof(key common.Hash) [][]byte {
	nodeHash := map[*node][]byte{}
	if b.root == nil {
		return nil
	}
	hashNode(b.root, nodeHash)
	return walk(b.root, keyToNibbles(key), nodeHash)
}

func keyToNibbles(key common.Hash) []byte {
	raw := key.Bytes()
	nibbles := make([]byte, len(raw)*2)
	for i, byt := range raw {
		nibbles[i*2] = byt >> 4
		nibbles[i*2+1] = byt & 0x0f
	}
	return nibbles
}

func commonPrefixLen(a, b []byte) int {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return i
}

func insert(n *node, nibbles, value []byte) *node {
	if n == nil {
		return &node{kind: leafKind, path: nibbles, value: value}
	}

	switch n.kind {
	case leafKind:
		cp := commonPrefixLen(n.path, nibbles)
		if cp == len(n.path) && cp == len(nibbles) {
			n.value = value
			return n
		}
		branch := &node{kind: branchKind}
		if cp == len(n.path) {
			branch.branchValue = n.value
		} else {
			branch.children[n.path[cp]] = &node{kind: leafKind, path: n.path[cp+1:], value: n.value}
		}
		if cp == len(nibbles) {
			branch.branchValue = value
		} else {
			branch.children[nibbles[cp]] = &node{kind: leafKind, path: nibbles[cp+1:], value: value}
		}
		if cp == 0 {
			return branch
		}
		return &node{kind: extKind, path: nibbles[:cp], child: branch}

	case extKind:
		cp := commonPrefixLen(n.path, nibbles)
		if cp == len(n.path) {
			n.child = insert(n.child, nibbles[cp:], value)
			return n
		}
		branch := &node{kind: branchKind}
		if cp+1 == len(n.path) {
			branch.children[n.path[cp]] = n.child
		} else {
			branch.children[n.path[cp]] = &node{kind: extKind, path: n.path[cp+1:], child: n.child}
		}
		if cp == len(nibbles) {
			branch.branchValue = value
		} else {
			branch.children[nibbles[cp]] = &node{kind: leafKind, path: nibbles[cp+1:], value: value}
		}
		if cp == 0 {
			return branch
		}
		return &node{kind: extKind, path: nibbles[:cp], child: branch}

	default: // branchKind
		if len(nibbles) == 0 {
			n.branchValue = value
			return n
		}
		idx := nibbles[0]
		n.children[idx] = insert(n.children[idx], nibbles[1:], value)
		return n
	}
}

// hexToCompact implements Ethereum's hex-prefix encoding: the high nibble
// of the first byte carries 2*terminator+oddlen, an odd nibble count folds
// its first nibble into that same byte, and the rest pack two-per-byte.
func hexToCompact(nibbles []byte, terminator bool) []byte {
	oddlen := len(nibbles) % 2
	flag := oddlen
	if terminator {
		flag += 2
	}
	buf := make([]byte, len(nibbles)/2+1)
	buf[0] = byte(flag << 4)
	rest := nibbles
	if oddlen == 1 {
		buf[0] |= nibbles[0]
		rest = nibbles[1:]
	}
	for i := 0; i < len(rest); i += 2 {
		buf[i/2+1] = rest[i]<<4 | rest[i+1]
	}
	return buf
}

// hashNode post-order serializes the subtree rooted at n into RLP bytes,
// recording each node's own encoding (not yet hashed) in nodeHash so a
// later traversal can emit root-to-leaf proofs without re-deriving refs.
// Every child reference is a 32-byte keccak hash of the child's RLP, never
// the small-node "embed inline" optimization real tries use — VerifyProof
// only needs a valid hash pointer per level, so this keeps the builder
// simple while still exercising the genuine hex-prefix/branch decoding.
func hashNode(n *node, nodeHash map[*node][]byte) []byte {
	var elems [][]byte
	switch n.kind {
	case leafKind:
		elems = [][]byte{hexToCompact(n.path, true), n.value}
	case extKind:
		childRef := crypto.Keccak256(hashNode(n.child, nodeHash))
		elems = [][]byte{hexToCompact(n.path, false), childRef}
	default: // branchKind
		elems = make([][]byte, 17)
		for i := 0; i < 16; i++ {
			if n.children[i] != nil {
				elems[i] = crypto.Keccak256(hashNode(n.children[i], nodeHash))
			} else {
				elems[i] = []byte{}
			}
		}
		if n.branchValue != nil {
			elems[16] = n.branchValue
		} else {
			elems[16] = []byte{}
		}
	}
	raw, err := rlp.EncodeToBytes(elems)
	if err != nil {
		panic(err) // elems is always []byte entries; encoding cannot fail
	}
	nodeHash[n] = raw
	return raw
}

func walk(n *node, nibbles []byte, nodeHash map[*node][]byte) [][]byte {
	self := nodeHash[n]
	path := [][]byte{self}

	switch n.kind {
	case leafKind:
		return path
	case extKind:
		cp := len(n.path)
		if cp > len(nibbles) {
			return path
		}
		return append(path, walk(n.child, nibbles[cp:], nodeHash)...)
	default: // branchKind
		if len(nibbles) == 0 {
			return path
		}
		idx := nibbles[0]
		if n.children[idx] == nil {
			return path
		}
		return append(path, walk(n.children[idx], nibbles[1:], nodeHash)...)
	}
}
