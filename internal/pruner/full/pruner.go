// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package full

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ChainSafe/jellyfish/internal/database"
	"github.com/ChainSafe/jellyfish/internal/pruner"
	"github.com/ChainSafe/jellyfish/lib/common"
)

var (
	// ErrVersionPruned is returned when recording a commit at a version
	// which is already pruned.
	ErrVersionPruned = errors.New("version is already pruned")
	// ErrParentVersion is returned when a parent commit version is not
	// lower than the version of its child commit.
	ErrParentVersion = errors.New("parent version is not lower than child version")
)

// Pruner prunes tree nodes retired at versions older than the highest
// version minus the number of versions to retain specified.
// It keeps track through a journal database of the tree changes for every commit
// in order to determine what can be pruned and what should be kept.
// Only the nodes retired by commits of the canonical chain, which is the
// chain of ancestors of the highest commit, are deleted.
type Pruner struct {
	// Configuration
	retainVersions uint64

	// Dependency injected
	logger          Logger
	storageDatabase NodeDatabase
	journalDatabase JournalDatabase

	// Internal state
	// nextVersionToPrune is the next version to prune.
	// It is updated on disk but cached in memory as this field.
	nextVersionToPrune uint64
	// highestCommit is the commit with the highest version stored in
	// the journal, the last one recorded if several share this version.
	// It is updated on disk but cached in memory as this field.
	highestCommit pruner.Commit
	// mutex protects the in memory data members since RecordAndPrune
	// can be called from several state databases sharing the pruner.
	mutex sync.RWMutex
}

// New creates a full node pruner.
func New(journalDB JournalDatabase, storageDB NodeDatabase, retainVersions uint64,
	logger Logger) (p *Pruner, err error) {
	highestCommit, err := getCommitFromKey(journalDB, []byte(highestCommitKey))
	if err != nil && !errors.Is(err, database.ErrKeyNotFound) {
		return nil, fmt.Errorf("getting highest commit: %w", err)
	}
	logger.Debugf("highest commit stored in journal: %s", highestCommit)

	var nextVersionToPrune uint64
	lastPruned, err := getCommitFromKey(journalDB, []byte(lastPrunedKey))
	if errors.Is(err, database.ErrKeyNotFound) {
		// we have not pruned any version yet, so leave
		// the next version to prune as 0.
		nextVersionToPrune = 0
	} else if err != nil {
		return nil, fmt.Errorf("getting last pruned version: %w", err)
	} else {
		nextVersionToPrune = lastPruned.Version + 1
	}
	logger.Debugf("next version to prune: %d", nextVersionToPrune)

	p = &Pruner{
		storageDatabase:    storageDB,
		journalDatabase:    journalDB,
		retainVersions:     retainVersions,
		nextVersionToPrune: nextVersionToPrune,
		highestCommit:      highestCommit,
		logger:             logger,
	}

	// Prune all versions necessary, if for example the
	// user lowers the retainVersions parameter.
	journalDBBatch := journalDB.NewWriteBatch()
	err = p.pruneAll(journalDBBatch)
	if err != nil {
		journalDBBatch.Cancel()
		return nil, fmt.Errorf("pruning: %w", err)
	}
	err = journalDBBatch.Flush()
	if err != nil {
		return nil, fmt.Errorf("flushing journal database batch: %w", err)
	}

	return p, nil
}

// RecordAndPrune stores the tree node changes of the commit given, committed
// on top of the parent commit given. It first delists re-inserted node hashes
// from being pruned, then prunes all versions falling off the window of
// versions to keep, before inserting the new record. It is thread safe to call.
func (p *Pruner) RecordAndPrune(deletedNodeHashes, insertedNodeHashes map[common.Hash]struct{},
	parent, commit pruner.Commit) (err error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if commit.Version < p.nextVersionToPrune {
		return fmt.Errorf("%w: recording commit %s but next version to prune is %d",
			ErrVersionPruned, commit, p.nextVersionToPrune)
	} else if parent.Version >= commit.Version {
		return fmt.Errorf("%w: parent %s of commit %s", ErrParentVersion, parent, commit)
	}

	// Delist re-inserted keys from being pruned.
	// WARNING: this must be before the pruning to avoid
	// pruning still needed database keys.
	journalDBBatch := p.journalDatabase.NewWriteBatch()
	err = p.handleInsertedKeys(insertedNodeHashes, parent, commit, journalDBBatch)
	if err != nil {
		journalDBBatch.Cancel()
		return fmt.Errorf("handling inserted keys: %w", err)
	}

	err = journalDBBatch.Flush()
	if err != nil {
		return fmt.Errorf("flushing re-inserted keys updates to journal database: %w", err)
	}

	// Store the journal data of the commit before pruning, so the
	// canonical chain includes the new commit. Note we store
	// version <-> roots in the database so we can pick up the roots
	// after a program restart using the stored last pruned version
	// and stored highest commit encountered.
	journalDBBatch = p.journalDatabase.NewWriteBatch()
	isHighest, err := p.storeJournalData(journalDBBatch, deletedNodeHashes, parent, commit)
	if err != nil {
		journalDBBatch.Cancel()
		return fmt.Errorf("storing journal data: %w", err)
	}

	err = journalDBBatch.Flush()
	if err != nil {
		return fmt.Errorf("flushing journal database batch: %w", err)
	}
	if isHighest {
		p.highestCommit = commit
	}
	p.logger.Debugf("journal data stored for commit %s", commit)

	journalDBBatch = p.journalDatabase.NewWriteBatch()
	err = p.pruneAll(journalDBBatch)
	if err != nil {
		journalDBBatch.Cancel()
		return fmt.Errorf("pruning database: %w", err)
	}

	err = journalDBBatch.Flush()
	if err != nil {
		return fmt.Errorf("flushing pruning updates to journal database: %w", err)
	}

	return nil
}

func (p *Pruner) storeJournalData(journalDBBatch Setter, deletedNodeHashes map[common.Hash]struct{},
	parent, commit pruner.Commit) (isHighest bool, err error) {
	appended, err := appendRoot(commit.Version, commit.Root, p.journalDatabase, journalDBBatch)
	if err != nil {
		return false, fmt.Errorf("recording root: %w", err)
	} else if !appended {
		p.logger.Debugf("commit %s is already recorded", commit)
		return false, nil
	}

	err = storeParent(journalDBBatch, commit, parent)
	if err != nil {
		return false, fmt.Errorf("storing parent of commit %s: %w", commit, err)
	}

	err = storeDeletedNodeHashes(p.journalDatabase, journalDBBatch, commit, deletedNodeHashes)
	if err != nil {
		return false, fmt.Errorf("storing deleted node hashes for commit %s: %w", commit, err)
	}

	// Update highest commit on disk so `pruneAll` can use it.
	if commit.Version < p.highestCommit.Version {
		return false, nil
	}
	err = storeCommitAtKey(journalDBBatch, []byte(highestCommitKey), commit)
	if err != nil {
		return false, fmt.Errorf("storing highest commit: %w", err)
	}
	return true, nil
}
