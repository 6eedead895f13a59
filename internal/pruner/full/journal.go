// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package full

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/ChainSafe/jellyfish/internal/database"
	"github.com/ChainSafe/jellyfish/internal/pruner"
	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/fxamacker/cbor/v2"
)

const (
	highestCommitKey         = "highest_commit"
	lastPrunedKey            = "last_pruned"
	versionToRootsPrefix     = "version_roots_"
	deletedNodeHashKeyPrefix = "deleted_"
	recordKeyPrefix          = "record_"
	parentKeyPrefix          = "parent_"
)

func makeVersionKey(prefix string, version uint64) (key []byte) {
	return []byte(prefix + fmt.Sprint(version))
}

func makeCommitKey(prefix string, commit pruner.Commit) (key []byte, err error) {
	encodedCommit, err := cbor.Marshal(commit)
	if err != nil {
		return nil, fmt.Errorf("cbor encoding commit: %w", err)
	}
	key = make([]byte, 0, len(prefix)+len(encodedCommit))
	key = append(key, []byte(prefix)...)
	key = append(key, encodedCommit...)
	return key, nil
}

func makeDeletedKey(hash common.Hash) (key []byte) {
	key = make([]byte, 0, len(deletedNodeHashKeyPrefix)+common.HashLength)
	key = append(key, []byte(deletedNodeHashKeyPrefix)...)
	key = append(key, hash.ToBytes()...)
	return key
}

func sortHashes(hashes []common.Hash) {
	sort.Slice(hashes, func(i, j int) bool {
		return bytes.Compare(hashes[i][:], hashes[j][:]) < 0
	})
}

// storeDeletedNodeHashes stores the node hashes retired by the commit
// given, and indexes the commit for each of these node hashes.
func storeDeletedNodeHashes(journalDatabase Getter, batch Setter,
	commit pruner.Commit, deletedNodeHashes map[common.Hash]struct{}) (err error) {
	record := make([]common.Hash, 0, len(deletedNodeHashes))
	for deletedNodeHash := range deletedNodeHashes {
		record = append(record, deletedNodeHash)
	}
	// Sort the node hashes to have a deterministic encoding for tests
	sortHashes(record)

	err = setEncoded(batch, recordKeyPrefix, commit, record)
	if err != nil {
		return fmt.Errorf("storing journal record: %w", err)
	}

	for _, deletedNodeHash := range record {
		deletedKey := makeDeletedKey(deletedNodeHash)
		commits, err := getCommitsFromKey(journalDatabase, deletedKey)
		if err != nil {
			return fmt.Errorf("getting commits for deleted node hash %s: %w",
				deletedNodeHash, err)
		}

		commits = append(commits, commit)
		err = setValue(batch, deletedKey, commits)
		if err != nil {
			return fmt.Errorf("indexing deleted node hash %s: %w", deletedNodeHash, err)
		}
	}

	return nil
}

func getDeletedNodeHashes(journalDatabase Getter, commit pruner.Commit) (
	deletedNodeHashes []common.Hash, err error) {
	key, err := makeCommitKey(recordKeyPrefix, commit)
	if err != nil {
		return nil, err
	}

	encodedNodeHashes, err := journalDatabase.Get(key)
	if err != nil {
		return nil, fmt.Errorf("getting from database: %w", err)
	}

	err = cbor.Unmarshal(encodedNodeHashes, &deletedNodeHashes)
	if err != nil {
		return nil, fmt.Errorf("cbor decoding deleted node hashes: %w", err)
	}

	return deletedNodeHashes, nil
}

// getCommitsFromKey returns the commits stored at the key given,
// or no commit if the key is not found.
func getCommitsFromKey(journalDatabase Getter, key []byte) (commits []pruner.Commit, err error) {
	encodedCommits, err := journalDatabase.Get(key)
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("getting from database: %w", err)
	}

	err = cbor.Unmarshal(encodedCommits, &commits)
	if err != nil {
		return nil, fmt.Errorf("cbor decoding commits: %w", err)
	}
	return commits, nil
}

func storeCommitAtKey(batch Setter, key []byte, commit pruner.Commit) error {
	err := setValue(batch, key, commit)
	if err != nil {
		return fmt.Errorf("putting commit %s: %w", commit, err)
	}
	return nil
}

// getCommitFromKey obtains the commit from the database at the given key.
// It returns an error wrapping database.ErrKeyNotFound if the key is not found.
func getCommitFromKey(journalDatabase Getter, key []byte) (commit pruner.Commit, err error) {
	encodedCommit, err := journalDatabase.Get(key)
	if err != nil {
		return commit, fmt.Errorf("getting commit from database: %w", err)
	}

	err = cbor.Unmarshal(encodedCommit, &commit)
	if err != nil {
		return commit, fmt.Errorf("decoding commit: %w", err)
	}

	return commit, nil
}

func storeParent(batch Setter, commit, parent pruner.Commit) error {
	key, err := makeCommitKey(parentKeyPrefix, commit)
	if err != nil {
		return err
	}
	return storeCommitAtKey(batch, key, parent)
}

func getParent(journalDatabase Getter, commit pruner.Commit) (parent pruner.Commit, err error) {
	key, err := makeCommitKey(parentKeyPrefix, commit)
	if err != nil {
		return parent, err
	}
	return getCommitFromKey(journalDatabase, key)
}

// loadRoots returns the roots committed at the version given.
func loadRoots(version uint64, journalDatabase Getter) (roots []common.Hash, err error) {
	key := makeVersionKey(versionToRootsPrefix, version)
	encodedRoots, err := journalDatabase.Get(key)
	if err != nil {
		return nil, fmt.Errorf("getting roots for version %d: %w", version, err)
	}

	// Roots are concatenated so a root can be appended without decoding.
	numberOfRoots := len(encodedRoots) / common.HashLength
	roots = make([]common.Hash, numberOfRoots)
	for i := 0; i < numberOfRoots; i++ {
		startIndex := i * common.HashLength
		endIndex := startIndex + common.HashLength
		roots[i] = common.NewHash(encodedRoots[startIndex:endIndex])
	}

	return roots, nil
}

// appendRoot appends the root to the roots committed at the version,
// and returns false if the root was already recorded for this version.
func appendRoot(version uint64, root common.Hash, journalDatabase Getter,
	batch Setter) (appended bool, err error) {
	key := makeVersionKey(versionToRootsPrefix, version)
	encodedRoots, err := journalDatabase.Get(key)
	if err != nil && !errors.Is(err, database.ErrKeyNotFound) {
		return false, fmt.Errorf("getting roots for version %d: %w", version, err)
	}

	for i := 0; i+common.HashLength <= len(encodedRoots); i += common.HashLength {
		if bytes.Equal(encodedRoots[i:i+common.HashLength], root[:]) {
			return false, nil
		}
	}

	encodedRoots = append(encodedRoots, root.ToBytes()...)

	err = batch.Set(key, encodedRoots)
	if err != nil {
		return false, fmt.Errorf("putting roots for version %d: %w", version, err)
	}

	return true, nil
}

func setEncoded(batch Setter, prefix string, commit pruner.Commit, value interface{}) error {
	key, err := makeCommitKey(prefix, commit)
	if err != nil {
		return err
	}
	return setValue(batch, key, value)
}

func setValue(batch Setter, key []byte, value interface{}) error {
	encoded, err := cbor.Marshal(value)
	if err != nil {
		return fmt.Errorf("cbor encoding: %w", err)
	}

	err = batch.Set(key, encoded)
	if err != nil {
		return fmt.Errorf("setting in batch: %w", err)
	}
	return nil
}
