// Copyright 2022 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package memory

type operationKind uint8

const (
	operationSet operationKind = iota
	operationDelete
)

type operation struct {
	kind  operationKind
	key   string
	value []byte
}

// writeBatch records operations in memory and applies
// them all at once on the database when flushed.
type writeBatch struct {
	prefix     string
	database   *Database
	operations []operation
}

func newWriteBatch(prefix string, database *Database) *writeBatch {
	return &writeBatch{
		prefix:   prefix,
		database: database,
	}
}

// Set records a set operation for the key prefixed with
// the write batch prefix. The value is deep copied.
func (wb *writeBatch) Set(key, value []byte) (err error) {
	wb.operations = append(wb.operations, operation{
		kind:  operationSet,
		key:   wb.prefix + string(key),
		value: copyBytes(value),
	})
	return nil
}

// Delete records a delete operation for the key prefixed
// with the write batch prefix.
func (wb *writeBatch) Delete(key []byte) (err error) {
	wb.operations = append(wb.operations, operation{
		kind: operationDelete,
		key:  wb.prefix + string(key),
	})
	return nil
}

// Flush applies all the operations recorded atomically
// on the database and clears the write batch.
func (wb *writeBatch) Flush() (err error) {
	wb.database.mutex.Lock()
	defer wb.database.mutex.Unlock()
	wb.database.panicOnClosed()

	for _, operation := range wb.operations {
		switch operation.kind {
		case operationSet:
			wb.database.keyValues[operation.key] = operation.value
		case operationDelete:
			delete(wb.database.keyValues, operation.key)
		}
	}
	wb.operations = nil
	return nil
}

// Cancel discards all the operations recorded.
func (wb *writeBatch) Cancel() {
	wb.operations = nil
}
