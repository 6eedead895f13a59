// Copyright 2023 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package full

import (
	"errors"
	"fmt"

	"github.com/ChainSafe/jellyfish/internal/database"
	"github.com/ChainSafe/jellyfish/internal/pruner"
	"github.com/ChainSafe/jellyfish/lib/common"
)

// handleInsertedKeys delists the node hashes inserted by the commit given
// from the deleted node hashes of the ancestor commits they were deleted in.
func (p *Pruner) handleInsertedKeys(insertedNodeHashes map[common.Hash]struct{},
	parent, commit pruner.Commit, journalDBBatch SetDeleter) (err error) {
	delistings := make(map[pruner.Commit]map[common.Hash]struct{})
	for insertedNodeHash := range insertedNodeHashes {
		err = p.handleInsertedKey(insertedNodeHash, parent, commit, delistings, journalDBBatch)
		if err != nil {
			return fmt.Errorf("handling inserted key %s: %w",
				insertedNodeHash, err)
		}
	}

	// Each journal record is rewritten once, since the
	// batch writes are not visible to the database reads.
	for deletedAt, reInsertedNodeHashes := range delistings {
		err = handleReInsertedKeys(reInsertedNodeHashes, deletedAt, p.journalDatabase, journalDBBatch)
		if err != nil {
			return fmt.Errorf("handling re-inserted keys for commit %s: %w", deletedAt, err)
		}
	}

	return nil
}

func (p *Pruner) handleInsertedKey(insertedNodeHash common.Hash, parent, commit pruner.Commit,
	delistings map[pruner.Commit]map[common.Hash]struct{}, journalDBBatch SetDeleter) (err error) {
	// Try to find if the node hash was deleted in another commit before
	// since we no longer want to prune it, as it was re-inserted.
	deletedNodeHashKey := makeDeletedKey(insertedNodeHash)
	commitsDeletedAt, err := getCommitsFromKey(p.journalDatabase, deletedNodeHashKey)
	if err != nil {
		return fmt.Errorf("getting commits for node hash from journal database: %w", err)
	} else if len(commitsDeletedAt) == 0 {
		return nil
	}

	remaining := make([]pruner.Commit, 0, len(commitsDeletedAt))
	for _, commitDeletedAt := range commitsDeletedAt {
		deletedInUncleCommit := commitDeletedAt.Version >= commit.Version
		if deletedInUncleCommit {
			// do not remove the deleted node hash from the uncle commit journal data
			remaining = append(remaining, commitDeletedAt)
			continue
		}

		isDescendant, err := p.isDescendantOf(commitDeletedAt, parent)
		if err != nil {
			return fmt.Errorf("checking if commit %s is descendant of commit %s: %w",
				parent, commitDeletedAt, err)
		}
		if !isDescendant {
			// do not remove the deleted node hash from the non-parent commit journal data
			remaining = append(remaining, commitDeletedAt)
			continue
		}

		reInserted, ok := delistings[commitDeletedAt]
		if !ok {
			reInserted = make(map[common.Hash]struct{})
			delistings[commitDeletedAt] = reInserted
		}
		reInserted[insertedNodeHash] = struct{}{}
	}

	if len(remaining) == len(commitsDeletedAt) {
		return nil
	} else if len(remaining) == 0 {
		return journalDBBatch.Delete(deletedNodeHashKey)
	}
	return setValue(journalDBBatch, deletedNodeHashKey, remaining)
}

func handleReInsertedKeys(reInsertedNodeHashes map[common.Hash]struct{}, commitDeletedAt pruner.Commit,
	journalDatabase Getter, journalDBBatch Setter) (err error) {
	deletedNodeHashes, err := getDeletedNodeHashes(journalDatabase, commitDeletedAt)
	if err != nil {
		return fmt.Errorf("getting deleted node hashes: %w", err)
	}

	kept := deletedNodeHashes[:0]
	for _, deletedNodeHash := range deletedNodeHashes {
		if _, reInserted := reInsertedNodeHashes[deletedNodeHash]; reInserted {
			continue
		}
		kept = append(kept, deletedNodeHash)
	}

	err = setEncoded(journalDBBatch, recordKeyPrefix, commitDeletedAt, kept)
	if err != nil {
		return fmt.Errorf("putting updated deleted node hashes in journal database batch: %w", err)
	}

	return nil
}

// isDescendantOf returns true if the descendant commit given is the
// ancestor commit given or has it in its chain of parents.
func (p *Pruner) isDescendantOf(ancestor, descendant pruner.Commit) (isDescendant bool, err error) {
	current := descendant
	for current.Version > ancestor.Version {
		parent, err := getParent(p.journalDatabase, current)
		if errors.Is(err, database.ErrKeyNotFound) {
			// the chain of parents is broken, for example by pruning
			return false, nil
		} else if err != nil {
			return false, fmt.Errorf("getting parent of commit %s: %w", current, err)
		}

		if parent.Version >= current.Version {
			return false, fmt.Errorf("%w: parent %s of commit %s",
				ErrParentVersion, parent, current)
		}
		current = parent
	}

	return current == ancestor, nil
}
