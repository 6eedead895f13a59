// Copyright 2019 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package state

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/ChainSafe/jellyfish/internal/database"
	"github.com/ChainSafe/jellyfish/internal/database/badger"
	"github.com/ChainSafe/jellyfish/internal/database/memory"
	"github.com/ChainSafe/jellyfish/internal/database/pebble"
	"github.com/ChainSafe/jellyfish/internal/log"
	"github.com/ChainSafe/jellyfish/internal/pruner"
	"github.com/ChainSafe/jellyfish/internal/pruner/archive"
	"github.com/ChainSafe/jellyfish/internal/pruner/full"
	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt"
)

var logger = log.NewFromGlobal(
	log.AddContext("pkg", "state"),
)

// Backend is the database backend of the state service.
type Backend string

const (
	// MemoryBackend keeps all the data in memory.
	MemoryBackend Backend = "memory"
	// BadgerBackend stores the data in a badger database.
	BadgerBackend Backend = "badger"
	// PebbleBackend stores the data in a pebble database.
	PebbleBackend Backend = "pebble"
)

var (
	// ErrBackendNotSupported is returned when the database backend is not supported.
	ErrBackendNotSupported = errors.New("database backend not supported")
	// ErrPendingChanges is returned when changing the head of a
	// state database which has uncommitted changes.
	ErrPendingChanges = errors.New("head has uncommitted changes")
	// ErrServiceNotStarted is returned when using the service before starting it.
	ErrServiceNotStarted = errors.New("state service is not started")
	// ErrRootNotFound is returned when the root node of a head
	// or fork is not in the node storage.
	ErrRootNotFound = errors.New("root node not found")
)

// Pruner records the node changes of committed roots and
// prunes the nodes which are no longer needed.
type Pruner interface {
	RecordAndPrune(deletedNodeHashes, insertedNodeHashes map[common.Hash]struct{},
		parent, commit pruner.Commit) error
}

// Config is the configuration of the state service.
type Config struct {
	// Path is the directory of the database, unused by the memory backend.
	Path    string
	Backend Backend
	// CacheNodes is the maximum number of nodes cached in memory,
	// and 0 disables the cache.
	CacheNodes int64
	// SyncWrites syncs the writes of the badger and pebble
	// backends to disk before they return.
	SyncWrites     bool
	PruningMode    pruner.Mode
	RetainVersions uint64
	LogLevel       log.Level
	// Metrics enables the Prometheus metrics of the tree engine.
	Metrics bool
}

// Service owns the database, the node storage, the pruner
// and the state database of the canonical head.
type Service struct {
	config  Config
	db      database.Database
	storage *NodeStorage
	cache   *jmt.CachedReader
	pruner  Pruner
	forks   *Forks

	head *StateDB
	// committed is the last committed canonical head.
	committed Head
	// unrecorded holds the change sets of commits whose nodes are
	// written but which the pruner failed to record.
	unrecorded map[pruner.Commit]*jmt.ChangeSet
	// mutex serialises the changes of the head.
	mutex sync.Mutex
}

// NewService creates a new state service.
func NewService(config Config) *Service {
	logger.Patch(log.SetLevel(config.LogLevel))

	return &Service{
		config:     config,
		forks:      NewForks(),
		unrecorded: make(map[pruner.Commit]*jmt.ChangeSet),
	}
}

// Start opens the database and loads the stored head.
func (s *Service) Start() (err error) {
	s.db, err = openDatabase(s.config.Backend, s.config.Path, s.config.SyncWrites)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	s.storage = NewNodeStorage(s.db)

	treeOptions := []jmt.Option{jmt.WithLogger(logger)}
	var metrics jmt.Metrics = jmt.NoopMetrics{}
	if s.config.Metrics {
		prometheusMetrics, err := jmt.NewPrometheus()
		if err != nil {
			return fmt.Errorf("creating tree metrics: %w", err)
		}
		metrics = prometheusMetrics
		treeOptions = append(treeOptions, jmt.WithMetrics(metrics))
	}

	var reader jmt.NodeReader = jmt.NewStoreReader(s.storage)
	if s.config.CacheNodes > 0 {
		s.cache, err = jmt.NewCachedReader(reader, s.config.CacheNodes, metrics)
		if err != nil {
			return fmt.Errorf("creating node cache: %w", err)
		}
		reader = s.cache
	}

	switch s.config.PruningMode {
	case pruner.Full:
		journalDB := s.db.NewTable(journalPrefix)
		s.pruner, err = full.New(journalDB, s.storage, s.config.RetainVersions, logger)
		if err != nil {
			return fmt.Errorf("creating full pruner: %w", err)
		}
	default:
		s.pruner = archive.New()
	}

	s.committed, err = LoadHead(s.db)
	if err != nil && !errors.Is(err, database.ErrKeyNotFound) {
		return fmt.Errorf("loading head: %w", err)
	}

	s.head = NewStateDB(s.storage, s.committed.Root, s.committed.Version,
		WithNodeReader(reader), WithTreeOptions(treeOptions...))
	logger.Infof("created state service with head %s", s.committed)
	return nil
}

func openDatabase(backend Backend, path string, syncWrites bool) (db database.Database, err error) {
	switch backend {
	case MemoryBackend:
		return memory.New(), nil
	case BadgerBackend:
		inMemory := false
		return badger.New(badger.Settings{
			Path:       filepath.Join(path, "badger"),
			InMemory:   &inMemory,
			SyncWrites: &syncWrites,
		})
	case PebbleBackend:
		return pebble.New(pebble.Settings{
			Path:       filepath.Join(path, "pebble"),
			SyncWrites: &syncWrites,
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrBackendNotSupported, backend)
	}
}

// Stop closes the database.
func (s *Service) Stop() error {
	if s.db == nil {
		return nil
	}

	if s.cache != nil {
		s.cache.Close()
	}

	logger.Debugf("stop with head %s", s.committed)
	return s.db.Close()
}

// DB returns the database of the service.
func (s *Service) DB() database.Database {
	return s.db
}

// Storage returns the node storage of the service.
func (s *Service) Storage() *NodeStorage {
	return s.storage
}

// Head returns the last committed canonical head.
func (s *Service) Head() Head {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.committed
}

// StateDB returns the state database of the canonical head.
func (s *Service) StateDB() *StateDB {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.head
}

// CommitBlock applies the entries given on top of the canonical head,
// commits the resulting nodes, records them for pruning and stores the
// new head. If any step fails, the head state database is reset to the
// last committed head so the same block can be committed again.
func (s *Service) CommitBlock(entries []jmt.KeyValue) (head Head, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.head == nil {
		return head, ErrServiceNotStarted
	}

	_, err = s.head.Put(entries)
	if err != nil {
		return head, fmt.Errorf("putting entries: %w", err)
	}

	head, err = s.commit(s.head, s.committed)
	if err == nil {
		err = StoreHead(s.db, head)
		if err != nil {
			err = fmt.Errorf("storing head: %w", err)
		}
	}
	if err != nil {
		// Committing the block again recomputes its full change set.
		delete(s.unrecorded, pruner.Commit{Version: head.Version, Root: head.Root})
		s.head = s.head.Fork(s.committed.Root, s.committed.Version)
		return Head{}, err
	}

	s.committed = head
	return head, nil
}

// Fork returns a new state database forked at the committed root and
// version given. Each call returns a distinct state database, and the
// root is tracked until it is dropped with DropFork.
func (s *Service) Fork(root common.Hash, version uint64) (*StateDB, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.head == nil {
		return nil, ErrServiceNotStarted
	}

	err := s.checkRoot(root)
	if err != nil {
		return nil, err
	}

	count := s.forks.add(root)
	logger.Debugf("forked state database %d at root %s and version %d",
		count, root.Short(), version)
	return s.head.Fork(root, version), nil
}

// DropFork stops tracking the fork created at the root given.
func (s *Service) DropFork(root common.Hash) {
	s.forks.delete(root)
}

// CommitFork commits the state database given and records its nodes
// for pruning, as a child of the parent head given. The canonical
// head is not changed. If the pruner fails to record the commit,
// calling CommitFork again with the same state database and parent
// records it with the change set already written.
func (s *Service) CommitFork(stateDB *StateDB, parent Head) (head Head, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.head == nil {
		return head, ErrServiceNotStarted
	}
	return s.commit(stateDB, parent)
}

// SetHead sets the committed head given as the canonical head.
func (s *Service) SetHead(head Head) (err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.head == nil {
		return ErrServiceNotStarted
	}

	_, pending := s.head.LastChangeSet()
	if !pending.IsEmpty() {
		return fmt.Errorf("%w: %d pending nodes", ErrPendingChanges, len(pending.NodeBatch))
	}

	err = s.checkRoot(head.Root)
	if err != nil {
		return err
	}

	err = StoreHead(s.db, head)
	if err != nil {
		return fmt.Errorf("storing head: %w", err)
	}

	s.head = s.head.Fork(head.Root, head.Version)
	s.committed = head
	logger.Infof("head set to %s", head)
	return nil
}

// checkRoot returns an error wrapping ErrRootNotFound if the root
// given is not the empty hash and is not in the node storage.
func (s *Service) checkRoot(root common.Hash) error {
	if root == common.EmptyHash {
		return nil
	}

	encoding, err := s.storage.Get(root)
	if err != nil {
		return fmt.Errorf("getting root node: %w", err)
	} else if encoding == nil {
		return fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}
	return nil
}

func (s *Service) commit(stateDB *StateDB, parent Head) (head Head, err error) {
	changeSet, err := stateDB.Commit()
	if err != nil {
		return head, fmt.Errorf("committing nodes: %w", err)
	}

	head = Head{
		Root:    stateDB.RootHash(),
		Version: stateDB.Version(),
	}

	parentCommit := pruner.Commit{Version: parent.Version, Root: parent.Root}
	commit := pruner.Commit{Version: head.Version, Root: head.Root}
	unrecorded, ok := s.unrecorded[commit]
	if ok && changeSet.IsEmpty() {
		changeSet = unrecorded
	}

	err = s.pruner.RecordAndPrune(changeSet.StaleNodeHashes(), changeSet.InsertedNodeHashes(),
		parentCommit, commit)
	if err != nil {
		s.unrecorded[commit] = changeSet
		return head, fmt.Errorf("recording and pruning commit %s: %w", commit, err)
	}
	delete(s.unrecorded, commit)

	logger.Debugf("committed %s with %d new nodes and %d stale nodes",
		head, len(changeSet.NodeBatch), len(changeSet.StaleNodeIndexBatch))
	return head, nil
}
