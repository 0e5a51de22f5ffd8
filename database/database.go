// Package database is a memory database with redis compatible interface
package database

import (
	"github.com/hdt3213/minidis/interface/database"
	"github.com/hdt3213/minidis/interface/redis"
)

// DB stores data of one numbered database, all methods require Server.mu
type DB struct {
	index int
	// key -> DataEntity
	data map[string]*database.DataEntity
	// commands waiting for execution, used when the queue is database scoped
	queue []redis.Command
	// closed and replaced each time a list of this database receives values
	pushSignal chan struct{}
}

// makeDB create DB instance
func makeDB(index int) *DB {
	return &DB{
		index:      index,
		data:       make(map[string]*database.DataEntity),
		pushSignal: make(chan struct{}),
	}
}

// GetEntity returns DataEntity bind to given key
func (db *DB) GetEntity(key string) (*database.DataEntity, bool) {
	entity, ok := db.data[key]
	return entity, ok
}

// PutEntity a DataEntity into DB
func (db *DB) PutEntity(key string, entity *database.DataEntity) {
	db.data[key] = entity
}

// Exists tells whether key holds a value of any type
func (db *DB) Exists(key string) bool {
	_, ok := db.data[key]
	return ok
}

func (db *DB) enqueue(cmd redis.Command) {
	db.queue = append(db.queue, cmd)
}

func (db *DB) dequeue() (redis.Command, bool) {
	if len(db.queue) == 0 {
		return nil, false
	}
	cmd := db.queue[0]
	db.queue[0] = nil
	db.queue = db.queue[1:]
	if len(db.queue) == 0 {
		db.queue = nil
	}
	return cmd, true
}

// notifyPush wakes up blocking pops waiting on this database
func (db *DB) notifyPush() {
	close(db.pushSignal)
	db.pushSignal = make(chan struct{})
}
