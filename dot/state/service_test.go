// Copyright 2019 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package state

import (
	"errors"
	"testing"

	"github.com/ChainSafe/jellyfish/internal/log"
	"github.com/ChainSafe/jellyfish/internal/pruner"
	"github.com/ChainSafe/jellyfish/lib/common"
	"github.com/ChainSafe/jellyfish/pkg/jmt"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, config Config) *Service {
	t.Helper()

	if config.Backend == "" {
		config.Backend = MemoryBackend
	}
	config.LogLevel = log.Critical

	service := NewService(config)
	err := service.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		err := service.Stop()
		assert.NoError(t, err)
	})
	return service
}

func Test_Service_notStarted(t *testing.T) {
	t.Parallel()

	service := NewService(Config{Backend: MemoryBackend, LogLevel: log.Critical})

	_, err := service.CommitBlock(nil)
	assert.ErrorIs(t, err, ErrServiceNotStarted)

	_, err = service.Fork(common.EmptyHash, 0)
	assert.ErrorIs(t, err, ErrServiceNotStarted)

	err = service.Stop()
	assert.NoError(t, err)
}

func Test_Service_Start_backendNotSupported(t *testing.T) {
	t.Parallel()

	service := NewService(Config{Backend: "leveldb", LogLevel: log.Critical})
	err := service.Start()
	assert.ErrorIs(t, err, ErrBackendNotSupported)
	assert.EqualError(t, err, "opening database: database backend not supported: \"leveldb\"")
}

func Test_Service_CommitBlock(t *testing.T) {
	t.Parallel()

	service := newTestService(t, Config{PruningMode: pruner.Archive, CacheNodes: 1000})
	assert.Equal(t, Head{}, service.Head())

	keyA := fixtureKey(1, 2)
	keyB := fixtureKey(2, 2)

	head1, err := service.CommitBlock([]jmt.KeyValue{{Key: keyA, Value: []byte{1}}})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), head1.Version)

	head2, err := service.CommitBlock([]jmt.KeyValue{{Key: keyB, Value: []byte{2}}})
	require.NoError(t, err)
	assert.Equal(t, Head{Root: service.StateDB().RootHash(), Version: 2}, head2)
	assert.Equal(t, head2, service.Head())

	storedHead, err := LoadHead(service.DB())
	require.NoError(t, err)
	assert.Equal(t, head2, storedHead)

	// archive mode keeps all versions
	value, err := service.StateDB().GetAt(head1.Root, keyA)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, value)
	value, err = service.StateDB().GetAt(head1.Root, keyB)
	require.NoError(t, err)
	assert.Nil(t, value)
}

func Test_Service_CommitBlock_fullPruning(t *testing.T) {
	t.Parallel()

	service := newTestService(t, Config{PruningMode: pruner.Full, RetainVersions: 1})

	keyA := fixtureKey(1, 2)
	keyB := fixtureKey(2, 2)

	head1, err := service.CommitBlock([]jmt.KeyValue{
		{Key: keyA, Value: []byte{1}},
		{Key: keyB, Value: []byte{2}},
	})
	require.NoError(t, err)
	head2, err := service.CommitBlock([]jmt.KeyValue{{Key: keyA, Value: []byte{3}}})
	require.NoError(t, err)

	// version 1 is retained
	value, err := service.StateDB().GetAt(head1.Root, keyA)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, value)

	_, err = service.CommitBlock([]jmt.KeyValue{{Key: keyB, Value: []byte{4}}})
	require.NoError(t, err)

	// nodes retired by version 2 are pruned
	encoding, err := service.Storage().Get(head1.Root)
	require.NoError(t, err)
	assert.Nil(t, encoding)
	_, err = service.StateDB().GetAt(head1.Root, keyA)
	assert.ErrorIs(t, err, jmt.ErrNodeNotFound)

	value, err = service.StateDB().GetAt(head2.Root, keyA)
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, value)
	value, err = service.StateDB().Get(keyB)
	require.NoError(t, err)
	assert.Equal(t, []byte{4}, value)
}

func Test_Service_CommitBlock_retainedFork(t *testing.T) {
	t.Parallel()

	service := newTestService(t, Config{PruningMode: pruner.Full, RetainVersions: 2})

	keyA := fixtureKey(1, 2)
	keyB := fixtureKey(2, 2)

	head1, err := service.CommitBlock([]jmt.KeyValue{{Key: keyA, Value: []byte{1}}})
	require.NoError(t, err)

	fork, err := service.Fork(head1.Root, head1.Version)
	require.NoError(t, err)
	_, err = fork.Put([]jmt.KeyValue{{Key: keyB, Value: []byte{1}}})
	require.NoError(t, err)
	_, err = fork.Put([]jmt.KeyValue{{Key: keyB, Value: []byte{2}}})
	require.NoError(t, err)
	forkHead, err := service.CommitFork(fork, head1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), forkHead.Version)

	for value := byte(2); value <= 4; value++ {
		_, err = service.CommitBlock([]jmt.KeyValue{{Key: keyA, Value: []byte{value}}})
		require.NoError(t, err)
	}

	// the fork commit at version 3 is retained, so are
	// the canonical nodes it shares with version 1
	value, err := fork.GetAt(forkHead.Root, keyA)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, value)
	value, err = fork.Get(keyB)
	require.NoError(t, err)
	assert.Equal(t, []byte{2}, value)
}

func Test_Service_CommitBlock_prunerError(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	service := newTestService(t, Config{})
	errTest := errors.New("test error")
	prunerMock := NewMockPruner(ctrl)
	service.pruner = prunerMock

	entries := []jmt.KeyValue{{Key: fixtureKey(1, 2), Value: []byte{1}}}
	reference := NewStateDB(jmt.NewMemoryStore(), common.EmptyHash, 0)
	expectedRoot, err := reference.Put(entries)
	require.NoError(t, err)
	_, changeSet := reference.LastChangeSet()

	expectedCommit := pruner.Commit{Version: 1, Root: expectedRoot}
	prunerMock.EXPECT().RecordAndPrune(changeSet.StaleNodeHashes(), changeSet.InsertedNodeHashes(),
		pruner.Commit{}, expectedCommit).Return(errTest)

	head, err := service.CommitBlock(entries)
	assert.ErrorIs(t, err, errTest)
	assert.EqualError(t, err, "recording and pruning commit "+expectedCommit.String()+": test error")
	assert.Equal(t, Head{}, head)
	// the head is reset to the last committed head
	assert.Equal(t, Head{}, service.Head())
	assert.Equal(t, common.EmptyHash, service.StateDB().RootHash())
	assert.Equal(t, uint64(0), service.StateDB().Version())
	assert.Empty(t, service.unrecorded)

	// the same block is committed again with the same change set
	prunerMock.EXPECT().RecordAndPrune(changeSet.StaleNodeHashes(), changeSet.InsertedNodeHashes(),
		pruner.Commit{}, expectedCommit).Return(nil)

	head, err = service.CommitBlock(entries)
	require.NoError(t, err)
	expectedHead := Head{Root: expectedRoot, Version: 1}
	assert.Equal(t, expectedHead, head)
	assert.Equal(t, expectedHead, service.Head())
}

func Test_Service_CommitFork_prunerError(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	service := newTestService(t, Config{})
	errTest := errors.New("test error")
	prunerMock := NewMockPruner(ctrl)
	service.pruner = prunerMock

	entries := []jmt.KeyValue{{Key: fixtureKey(1, 2), Value: []byte{1}}}
	reference := NewStateDB(jmt.NewMemoryStore(), common.EmptyHash, 0)
	expectedRoot, err := reference.Put(entries)
	require.NoError(t, err)
	_, changeSet := reference.LastChangeSet()
	expectedCommit := pruner.Commit{Version: 1, Root: expectedRoot}

	fork, err := service.Fork(common.EmptyHash, 0)
	require.NoError(t, err)
	_, err = fork.Put(entries)
	require.NoError(t, err)

	gomock.InOrder(
		prunerMock.EXPECT().RecordAndPrune(changeSet.StaleNodeHashes(), changeSet.InsertedNodeHashes(),
			pruner.Commit{}, expectedCommit).Return(errTest),
		prunerMock.EXPECT().RecordAndPrune(changeSet.StaleNodeHashes(), changeSet.InsertedNodeHashes(),
			pruner.Commit{}, expectedCommit).Return(nil),
	)

	_, err = service.CommitFork(fork, Head{})
	assert.ErrorIs(t, err, errTest)
	assert.Len(t, service.unrecorded, 1)

	// the nodes are already written and the change set is recorded on retry
	head, err := service.CommitFork(fork, Head{})
	require.NoError(t, err)
	assert.Equal(t, Head{Root: expectedRoot, Version: 1}, head)
	assert.Empty(t, service.unrecorded)
}

func Test_Service_forks(t *testing.T) {
	t.Parallel()

	service := newTestService(t, Config{PruningMode: pruner.Full, RetainVersions: 10})

	keyA := fixtureKey(1, 2)
	keyB := fixtureKey(2, 2)
	head1, err := service.CommitBlock([]jmt.KeyValue{{Key: keyA, Value: []byte{1}}})
	require.NoError(t, err)
	_, err = service.CommitBlock([]jmt.KeyValue{{Key: keyA, Value: []byte{2}}})
	require.NoError(t, err)

	fork, err := service.Fork(head1.Root, head1.Version)
	require.NoError(t, err)
	assert.Equal(t, 1, service.forks.len())

	_, err = fork.Put([]jmt.KeyValue{{Key: keyB, Value: []byte{3}}})
	require.NoError(t, err)
	forkHead, err := service.CommitFork(fork, head1)
	require.NoError(t, err)
	assert.Equal(t, Head{Root: fork.RootHash(), Version: 2}, forkHead)
	assert.NotEqual(t, forkHead, service.Head())

	// forking the same root again returns a new state
	// database at this root, not the moved fork
	otherFork, err := service.Fork(head1.Root, head1.Version)
	require.NoError(t, err)
	assert.NotSame(t, fork, otherFork)
	assert.Equal(t, head1.Root, otherFork.RootHash())
	assert.Equal(t, head1.Version, otherFork.Version())
	value, err := otherFork.Get(keyB)
	require.NoError(t, err)
	assert.Nil(t, value)
	assert.Equal(t, 1, service.forks.len())

	err = service.SetHead(forkHead)
	require.NoError(t, err)
	assert.Equal(t, forkHead, service.Head())

	value, err = service.StateDB().Get(keyA)
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, value)
	value, err = service.StateDB().Get(keyB)
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, value)

	service.DropFork(head1.Root)
	assert.Equal(t, 0, service.forks.len())

	// the head cannot change with uncommitted changes
	_, err = service.StateDB().Put([]jmt.KeyValue{{Key: keyB, Value: []byte{4}}})
	require.NoError(t, err)
	err = service.SetHead(head1)
	assert.ErrorIs(t, err, ErrPendingChanges)
}

func Test_Service_rootNotFound(t *testing.T) {
	t.Parallel()

	service := newTestService(t, Config{})
	head, err := service.CommitBlock([]jmt.KeyValue{{Key: fixtureKey(1, 2), Value: []byte{1}}})
	require.NoError(t, err)

	unknownRoot := common.Hash{9}
	_, err = service.Fork(unknownRoot, 1)
	assert.ErrorIs(t, err, ErrRootNotFound)
	assert.EqualError(t, err, "root node not found: "+unknownRoot.String())
	assert.Equal(t, 0, service.forks.len())

	err = service.SetHead(Head{Root: unknownRoot, Version: 1})
	assert.ErrorIs(t, err, ErrRootNotFound)
	assert.Equal(t, head, service.Head())
	storedHead, err := LoadHead(service.DB())
	require.NoError(t, err)
	assert.Equal(t, head, storedHead)

	// the empty root is always accepted
	err = service.SetHead(Head{})
	require.NoError(t, err)
	assert.Equal(t, Head{}, service.Head())
}

func Test_Service_restart(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		backend    Backend
		syncWrites bool
	}{
		"pebble with synced writes": {backend: PebbleBackend, syncWrites: true},
		"pebble":                    {backend: PebbleBackend},
		"badger with synced writes": {backend: BadgerBackend, syncWrites: true},
	}

	for name, testCase := range testCases {
		testCase := testCase
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			config := Config{
				Path:           t.TempDir(),
				Backend:        testCase.backend,
				SyncWrites:     testCase.syncWrites,
				PruningMode:    pruner.Full,
				RetainVersions: 2,
				LogLevel:       log.Critical,
			}
			keyA := fixtureKey(1, 2)

			service := NewService(config)
			err := service.Start()
			require.NoError(t, err)
			head, err := service.CommitBlock([]jmt.KeyValue{{Key: keyA, Value: []byte{1}}})
			require.NoError(t, err)
			err = service.Stop()
			require.NoError(t, err)

			service = NewService(config)
			err = service.Start()
			require.NoError(t, err)
			defer func() {
				err := service.Stop()
				assert.NoError(t, err)
			}()

			assert.Equal(t, head, service.Head())
			value, err := service.StateDB().Get(keyA)
			require.NoError(t, err)
			assert.Equal(t, []byte{1}, value)
		})
	}
}
