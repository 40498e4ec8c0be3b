package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ProofStep is one sibling on the path from a leaf to the Merkle root.
// Side "L": parent = sha256(sibling || current); side "R": parent = sha256(current || sibling).
type ProofStep struct {
	Hash string `json:"hash"`
	Side string `json:"side"`
}

func hashPair(left, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}

// merkleTree holds every level, level 0 being the leaves. An odd node at the
// end of a level is paired with itself.
type merkleTree [][][]byte

func buildMerkleTree(leaves [][]byte) (merkleTree, error) {
	if len(leaves) == 0 {
		return nil, errors.New("no leaves")
	}
	level := make([][]byte, len(leaves))
	for i, leaf := range leaves {
		if len(leaf) == 0 {
			return nil, errors.New("empty leaf")
		}
		level[i] = bytes.Clone(leaf)
	}

	tree := merkleTree{level}
	for len(level) > 1 {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, hashPair(level[i], right))
		}
		tree = append(tree, next)
		level = next
	}
	return tree, nil
}

func (t merkleTree) root() []byte {
	return t[len(t)-1][0]
}

// proof returns the inclusion proof of the leaf at index.
func (t merkleTree) proof(index int) ([]ProofStep, error) {
	if index < 0 || index >= len(t[0]) {
		return nil, errors.New("leaf index out of range")
	}
	steps := make([]ProofStep, 0, len(t)-1)
	for _, nodes := range t[:len(t)-1] {
		sib, side := index+1, "R"
		if index%2 == 1 {
			sib, side = index-1, "L"
		}
		if sib >= len(nodes) {
			sib = index
		}
		steps = append(steps, ProofStep{Hash: hex.EncodeToString(nodes[sib]), Side: side})
		index /= 2
	}
	return steps, nil
}

func rootFromProof(leaf []byte, steps []ProofStep) ([]byte, error) {
	if len(leaf) == 0 {
		return nil, errors.New("empty leaf")
	}
	curr := leaf
	for _, step := range steps {
		sib, err := hex.DecodeString(step.Hash)
		if err != nil {
			return nil, errors.New("invalid proof hash encoding")
		}
		switch step.Side {
		case "L":
			curr = hashPair(sib, curr)
		case "R":
			curr = hashPair(curr, sib)
		default:
			return nil, fmt.Errorf("invalid proof side %q", step.Side)
		}
	}
	return curr, nil
}

func encodeProof(steps []ProofStep) (string, error) {
	b, err := json.Marshal(steps)
	if err != nil {
		return "", fmt.Errorf("encode merkle proof: %w", err)
	}
	return string(b), nil
}

// VerifyMerkleProof reports whether the leaf digest and JSON-encoded proof
// lead to the expected root. All hashes are hex.
func VerifyMerkleProof(leafHex, proofJSON, rootHex string) (bool, error) {
	leaf, err := hex.DecodeString(leafHex)
	if err != nil {
		return false, errors.New("invalid leaf hash encoding")
	}
	root, err := hex.DecodeString(rootHex)
	if err != nil {
		return false, errors.New("invalid root hash encoding")
	}
	var steps []ProofStep
	if err := json.Unmarshal([]byte(proofJSON), &steps); err != nil {
		return false, errors.New("invalid proof json")
	}
	computed, err := rootFromProof(leaf, steps)
	if err != nil {
		return false, err
	}
	return bytes.Equal(computed, root), nil
}
