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

// pruneAll prunes all the versions from the next version to prune up to
// the highest version minus the number of versions to retain. Nodes are
// deleted from the storage database before this function returns, and the
// journal updates are written to the journal batch given.
func (p *Pruner) pruneAll(journalDBBatch SetDeleter) (err error) {
	nothingRecorded := p.highestCommit == pruner.Commit{}
	if nothingRecorded || p.highestCommit.Version < p.retainVersions {
		return nil
	}

	lastVersionToPrune := p.highestCommit.Version - p.retainVersions
	if p.nextVersionToPrune > lastVersionToPrune {
		return nil
	}

	branchVersion, err := p.lowestRetainedBranchVersion(lastVersionToPrune)
	if err != nil {
		return fmt.Errorf("finding retained forks: %w", err)
	}
	if branchVersion < lastVersionToPrune {
		p.logger.Debugf("pruning held back to version %d by a retained fork commit", branchVersion)
		lastVersionToPrune = branchVersion
		if p.nextVersionToPrune > lastVersionToPrune {
			return nil
		}
	}

	storageBatch := p.storageDatabase.NewWriteBatch()
	// indexRemovals maps deleted node hashes to the pruned commits to
	// remove from their deleted index, so each index is rewritten once.
	indexRemovals := make(map[common.Hash]map[pruner.Commit]struct{})
	for version := p.nextVersionToPrune; version <= lastVersionToPrune; version++ {
		err = p.prune(version, journalDBBatch, storageBatch, indexRemovals)
		if err != nil {
			storageBatch.Cancel()
			return fmt.Errorf("pruning version %d: %w", version, err)
		}
	}

	for nodeHash, prunedCommits := range indexRemovals {
		err = removeFromDeletedIndex(p.journalDatabase, journalDBBatch, nodeHash, prunedCommits)
		if err != nil {
			storageBatch.Cancel()
			return fmt.Errorf("removing pruned commits from deleted index of node hash %s: %w",
				nodeHash, err)
		}
	}

	err = storageBatch.Flush()
	if err != nil {
		return fmt.Errorf("flushing storage database batch: %w", err)
	}

	lastPruned := pruner.Commit{Version: lastVersionToPrune}
	err = storeCommitAtKey(journalDBBatch, []byte(lastPrunedKey), lastPruned)
	if err != nil {
		return fmt.Errorf("storing last pruned version: %w", err)
	}

	p.logger.Debugf("pruned versions %d to %d", p.nextVersionToPrune, lastVersionToPrune)
	p.nextVersionToPrune = lastVersionToPrune + 1
	return nil
}

func (p *Pruner) prune(version uint64, journalDBBatch SetDeleter,
	storageBatch database.WriteBatch,
	indexRemovals map[common.Hash]map[pruner.Commit]struct{}) (err error) {
	roots, err := loadRoots(version, p.journalDatabase)
	if errors.Is(err, database.ErrKeyNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("loading roots: %w", err)
	}

	for _, root := range roots {
		commit := pruner.Commit{Version: version, Root: root}
		err = p.pruneCommit(commit, journalDBBatch, storageBatch, indexRemovals)
		if err != nil {
			return fmt.Errorf("pruning commit %s: %w", commit, err)
		}
	}

	err = journalDBBatch.Delete(makeVersionKey(versionToRootsPrefix, version))
	if err != nil {
		return fmt.Errorf("deleting roots from journal database: %w", err)
	}

	return nil
}

func (p *Pruner) pruneCommit(commit pruner.Commit, journalDBBatch SetDeleter,
	storageBatch database.WriteBatch,
	indexRemovals map[common.Hash]map[pruner.Commit]struct{}) (err error) {
	// Nodes retired by a commit outside the canonical chain may still be
	// used by the canonical chain, so they are left for offline pruning.
	canonical, err := p.isDescendantOf(commit, p.highestCommit)
	if err != nil {
		return fmt.Errorf("checking if commit is canonical: %w", err)
	}

	deletedNodeHashes, err := getDeletedNodeHashes(p.journalDatabase, commit)
	if err != nil {
		return fmt.Errorf("getting deleted node hashes: %w", err)
	}

	for _, deletedNodeHash := range deletedNodeHashes {
		if canonical {
			err = storageBatch.Delete(deletedNodeHash.ToBytes())
			if err != nil {
				return fmt.Errorf("deleting node hash %s from storage batch: %w", deletedNodeHash, err)
			}
		}

		prunedCommits, ok := indexRemovals[deletedNodeHash]
		if !ok {
			prunedCommits = make(map[pruner.Commit]struct{})
			indexRemovals[deletedNodeHash] = prunedCommits
		}
		prunedCommits[commit] = struct{}{}
	}

	if canonical {
		p.logger.Debugf("pruning %d nodes retired by commit %s", len(deletedNodeHashes), commit)
	} else {
		p.logger.Debugf("dropping journal of non canonical commit %s", commit)
	}

	for _, prefix := range [...]string{recordKeyPrefix, parentKeyPrefix} {
		key, err := makeCommitKey(prefix, commit)
		if err != nil {
			return err
		}
		err = journalDBBatch.Delete(key)
		if err != nil {
			return fmt.Errorf("deleting %s journal data: %w", prefix, err)
		}
	}

	return nil
}

func removeFromDeletedIndex(journalDatabase Getter, journalDBBatch SetDeleter,
	nodeHash common.Hash, prunedCommits map[pruner.Commit]struct{}) (err error) {
	key := makeDeletedKey(nodeHash)
	commits, err := getCommitsFromKey(journalDatabase, key)
	if err != nil {
		return err
	}

	remaining := commits[:0]
	for _, commit := range commits {
		if _, pruned := prunedCommits[commit]; pruned {
			continue
		}
		remaining = append(remaining, commit)
	}

	if len(remaining) == 0 {
		return journalDBBatch.Delete(key)
	}
	return setValue(journalDBBatch, key, remaining)
}

// lowestRetainedBranchVersion returns the lowest version at which a
// retained commit outside the canonical chain branches off the canonical
// chain. Such a fork commit may still use the nodes retired by canonical
// commits above its branch version, so these cannot be pruned until the
// fork commit falls behind the retained versions. It returns
// lastVersionToPrune if no retained commit is outside the canonical chain.
func (p *Pruner) lowestRetainedBranchVersion(lastVersionToPrune uint64) (
	branchVersion uint64, err error) {
	canonical, err := p.canonicalCommits()
	if err != nil {
		return 0, fmt.Errorf("loading canonical chain: %w", err)
	}

	branchVersion = lastVersionToPrune
	for version := lastVersionToPrune + 1; version <= p.highestCommit.Version; version++ {
		roots, err := loadRoots(version, p.journalDatabase)
		if errors.Is(err, database.ErrKeyNotFound) {
			continue
		} else if err != nil {
			return 0, fmt.Errorf("loading roots: %w", err)
		}

		for _, root := range roots {
			commit := pruner.Commit{Version: version, Root: root}
			if _, ok := canonical[commit]; ok {
				continue
			}

			forkBranchVersion, err := p.branchVersion(commit, canonical)
			if err != nil {
				return 0, fmt.Errorf("finding branch of commit %s: %w", commit, err)
			}
			if forkBranchVersion < branchVersion {
				branchVersion = forkBranchVersion
			}
		}
	}
	return branchVersion, nil
}

// canonicalCommits returns the highest commit and its ancestors
// still recorded in the journal, including the parent of the
// oldest recorded ancestor.
func (p *Pruner) canonicalCommits() (canonical map[pruner.Commit]struct{}, err error) {
	canonical = make(map[pruner.Commit]struct{})
	current := p.highestCommit
	for {
		canonical[current] = struct{}{}
		parent, err := getParent(p.journalDatabase, current)
		if errors.Is(err, database.ErrKeyNotFound) {
			return canonical, nil
		} else if err != nil {
			return nil, fmt.Errorf("getting parent of commit %s: %w", current, err)
		}

		if parent.Version >= current.Version {
			return nil, fmt.Errorf("%w: parent %s of commit %s",
				ErrParentVersion, parent, current)
		}
		current = parent
	}
}

// branchVersion returns the version of the first canonical ancestor of
// the commit given. If the chain of parents is broken before reaching the
// canonical chain, the version of the oldest ancestor found is returned.
func (p *Pruner) branchVersion(commit pruner.Commit,
	canonical map[pruner.Commit]struct{}) (version uint64, err error) {
	current := commit
	for {
		if _, ok := canonical[current]; ok {
			return current.Version, nil
		}

		parent, err := getParent(p.journalDatabase, current)
		if errors.Is(err, database.ErrKeyNotFound) {
			return current.Version, nil
		} else if err != nil {
			return 0, fmt.Errorf("getting parent of commit %s: %w", current, err)
		}

		if parent.Version >= current.Version {
			return 0, fmt.Errorf("%w: parent %s of commit %s",
				ErrParentVersion, parent, current)
		}
		current = parent
	}
}
