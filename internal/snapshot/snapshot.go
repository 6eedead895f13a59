// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

// Package snapshot exports and imports all the nodes of a state
// root as a zstd compressed stream of cbor encoded records.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ChainSafe/jellyfish/internal/log"
	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt"
	"github.com/ChainSafe/jellyfish/pkg/jmt/nibble"
	"github.com/ChainSafe/jellyfish/pkg/jmt/node"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

var logger = log.NewFromGlobal(log.AddContext("pkg", "snapshot"))

const formatMagic = "jellyfish-snapshot-v1"

// importBatchSize is the maximum number of nodes written to the
// node store in a single batch when importing.
const importBatchSize = 1024

var (
	// ErrFormat is returned when the snapshot header is not recognised.
	ErrFormat = errors.New("snapshot format not recognised")
	// ErrNodeHashMismatch is returned when the hash of an imported
	// node does not match the hash of its record.
	ErrNodeHashMismatch = errors.New("node hash mismatch")
	// ErrRootMissing is returned when the snapshot does not
	// contain the node of its root.
	ErrRootMissing = errors.New("root node missing")
	// ErrNodeMissing is returned when a node referenced by an imported
	// internal node is neither in the snapshot nor in the node store.
	ErrNodeMissing = errors.New("referenced node missing")
)

type header struct {
	_     struct{} `cbor:",toarray"`
	Magic string
	Root  common.Hash
}

type record struct {
	_        struct{} `cbor:",toarray"`
	Hash     common.Hash
	Encoding []byte
}

// Export writes all the nodes reachable from the root given to the writer,
// in breadth first order, and returns the number of nodes written.
func Export(ctx context.Context, reader jmt.NodeReader, root common.Hash,
	w io.Writer) (nodes int, err error) {
	zstdWriter, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("creating zstd writer: %w", err)
	}

	encoder := cbor.NewEncoder(zstdWriter)
	err = encoder.Encode(header{Magic: formatMagic, Root: root})
	if err != nil {
		_ = zstdWriter.Close()
		return 0, fmt.Errorf("encoding header: %w", err)
	}

	tree := jmt.New(reader)
	err = tree.Walk(root, func(_ nibble.Path, hash common.Hash, n node.Node) error {
		err := ctx.Err()
		if err != nil {
			return err
		}

		err = encoder.Encode(record{Hash: hash, Encoding: node.Encode(n)})
		if err != nil {
			return fmt.Errorf("encoding node %s: %w", hash, err)
		}
		nodes++
		return nil
	})
	if err != nil {
		_ = zstdWriter.Close()
		return 0, fmt.Errorf("walking tree: %w", err)
	}

	err = zstdWriter.Close()
	if err != nil {
		return 0, fmt.Errorf("closing zstd writer: %w", err)
	}

	logger.Infof("exported %d nodes of root %s", nodes, root)
	return nodes, nil
}

// Import reads the nodes written by Export from the reader, verifies
// their hashes and writes them to the node store in batches. It returns
// the root of the snapshot and the number of nodes imported.
func Import(ctx context.Context, r io.Reader, store jmt.NodeStore) (
	root common.Hash, nodes int, err error) {
	zstdReader, err := zstd.NewReader(r)
	if err != nil {
		return root, 0, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zstdReader.Close()

	decoder := cbor.NewDecoder(zstdReader)
	var snapshotHeader header
	err = decoder.Decode(&snapshotHeader)
	if err != nil {
		return root, 0, fmt.Errorf("decoding header: %w", err)
	} else if snapshotHeader.Magic != formatMagic {
		return root, 0, fmt.Errorf("%w: %q", ErrFormat, snapshotHeader.Magic)
	}
	root = snapshotHeader.Root

	// unresolved holds the hashes referenced but not yet imported.
	unresolved := make(map[common.Hash]struct{})
	if root != common.EmptyHash {
		unresolved[root] = struct{}{}
	}
	imported := make(map[common.Hash]struct{})

	batch := make(map[common.Hash][]byte, importBatchSize)
	for {
		err = ctx.Err()
		if err != nil {
			return root, 0, err
		}

		var nodeRecord record
		err = decoder.Decode(&nodeRecord)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return root, 0, fmt.Errorf("decoding record %d: %w", nodes, err)
		}

		var n node.Node
		n, err = verifyRecord(nodeRecord)
		if err != nil {
			return root, 0, err
		}

		delete(unresolved, nodeRecord.Hash)
		imported[nodeRecord.Hash] = struct{}{}
		if internal, ok := n.(*node.Internal); ok {
			for _, child := range internal.Children {
				if child == nil {
					continue
				}
				_, ok := imported[child.Hash]
				if !ok {
					unresolved[child.Hash] = struct{}{}
				}
			}
		}

		batch[nodeRecord.Hash] = nodeRecord.Encoding
		nodes++

		if len(batch) == importBatchSize {
			err = store.PutBatch(batch)
			if err != nil {
				return root, 0, fmt.Errorf("%w: %w", jmt.ErrWrite, err)
			}
			batch = make(map[common.Hash][]byte, importBatchSize)
		}
	}

	err = checkUnresolved(store, root, unresolved)
	if err != nil {
		return root, 0, err
	}

	err = store.PutBatch(batch)
	if err != nil {
		return root, 0, fmt.Errorf("%w: %w", jmt.ErrWrite, err)
	}

	logger.Infof("imported %d nodes of root %s", nodes, root)
	return root, nodes, nil
}

// checkUnresolved returns an error if any of the hashes given
// is not in the node store.
func checkUnresolved(store jmt.NodeStore, root common.Hash,
	unresolved map[common.Hash]struct{}) error {
	for hash := range unresolved {
		encoding, err := store.Get(hash)
		if err != nil {
			return fmt.Errorf("getting node %s: %w", hash, err)
		} else if encoding != nil {
			continue
		}

		if hash == root {
			return fmt.Errorf("%w: %s", ErrRootMissing, root)
		}
		return fmt.Errorf("%w: %s", ErrNodeMissing, hash)
	}
	return nil
}

func verifyRecord(nodeRecord record) (n node.Node, err error) {
	n, err = node.Decode(nodeRecord.Encoding)
	if err != nil {
		return nil, fmt.Errorf("decoding node %s: %w", nodeRecord.Hash, err)
	}

	hash := n.Hash()
	if hash != nodeRecord.Hash {
		return nil, fmt.Errorf("%w: record has hash %s but node hashes to %s",
			ErrNodeHashMismatch, nodeRecord.Hash, hash)
	}
	return n, nil
}
