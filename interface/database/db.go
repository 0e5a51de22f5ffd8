package database

import (
	"context"

	"github.com/hdt3213/minidis/interface/redis"
)

// DB is the interface for a redis style storage engine
type DB interface {
	// Exec runs a decoded command on behalf of the given session and returns the reply
	Exec(ctx context.Context, client redis.Connection, cmd redis.Command) redis.Reply
	// AfterClientClose releases resources held by the session
	AfterClientClose(c redis.Connection)
	Close()
}

// DataEntity stores data bound to a key, a []byte scalar or a *list.LinkedList
type DataEntity struct {
	Data interface{}
}
