package database

import (
	"context"
	"time"

	"github.com/hdt3213/minidis/interface/redis"
	"github.com/hdt3213/minidis/redis/command"
	"github.com/hdt3213/minidis/redis/protocol"
)

// popResult is the outcome of one scan over the candidate keys
type popResult struct {
	reply redis.Reply
	// signal is closed by the next push into the database
	signal <-chan struct{}
}

// popFrom pops one value of the list at key, the lock is held by caller
func (db *DB) popFrom(key string, front bool) ([]byte, bool) {
	// scalars are skipped like absent keys
	list, errReply := db.getAsList(key)
	if errReply != nil || list == nil || list.Len() == 0 {
		return nil, false
	}
	if front {
		return list.RemoveFirst(), true
	}
	return list.RemoveLast(), true
}

// scan checks keys in the given order and pops from the first non-empty list.
// The registry lock is taken once per key, never across keys.
func (server *Server) scan(dbIndex int, keys []string, front bool) popResult {
	var result popResult
	errReply := server.withDB(dbIndex, func(db *DB) redis.Reply {
		result.signal = db.pushSignal
		return nil
	})
	if errReply != nil {
		result.reply = errReply
		return result
	}
	for _, key := range keys {
		reply := server.withDB(dbIndex, func(db *DB) redis.Reply {
			value, ok := db.popFrom(key, front)
			if !ok {
				return nil
			}
			return protocol.MakeMultiBulkReply([][]byte{[]byte(key), value})
		})
		if reply != nil {
			result.reply = reply
			return result
		}
	}
	return result
}

// blockingPop tries every key at once, then waits until a push, a poll tick or the deadline.
// On the deadline it scans a last time, so a zero timeout means one more try and no wait.
func (server *Server) blockingPop(ctx context.Context, c redis.Connection, pop *command.BlockingPop, name string, front bool) redis.Reply {
	start := time.Now()
	dbIndex := c.GetDBIndex()

	result := server.scan(dbIndex, pop.Keys, front)
	if result.reply != nil {
		server.observePop(name, start, result.reply)
		return result.reply
	}

	deadline := time.NewTimer(pop.Timeout())
	defer deadline.Stop()
	ticker := time.NewTicker(server.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-result.signal:
		case <-ticker.C:
		case <-deadline.C:
			result = server.scan(dbIndex, pop.Keys, front)
			if result.reply == nil {
				result.reply = &protocol.TimeoutErrReply{}
			}
			server.observePop(name, start, result.reply)
			return result.reply
		case <-ctx.Done():
			server.observePop(name, start, &protocol.TimeoutErrReply{})
			return &protocol.TimeoutErrReply{}
		case <-server.closing:
			server.observePop(name, start, &protocol.TimeoutErrReply{})
			return &protocol.TimeoutErrReply{}
		}
		result = server.scan(dbIndex, pop.Keys, front)
		if result.reply != nil {
			server.observePop(name, start, result.reply)
			return result.reply
		}
	}
}

func (server *Server) observePop(name string, start time.Time, reply redis.Reply) {
	if server.metrics == nil {
		return
	}
	outcome := "hit"
	if _, ok := reply.(*protocol.TimeoutErrReply); ok {
		outcome = "timeout"
	} else if protocol.IsErrorReply(reply) {
		outcome = "error"
	}
	server.metrics.BlockingPopWait.WithLabelValues(name, outcome).Observe(time.Since(start).Seconds())
}

// execBLPop pops the head of the first non-empty list among keys, waiting up to the timeout
func execBLPop(ctx context.Context, server *Server, c redis.Connection, cmd redis.Command) redis.Reply {
	blpop := cmd.(*command.BLPop)
	return server.blockingPop(ctx, c, &blpop.BlockingPop, blpop.Name(), true)
}

// execBRPop pops the tail of the first non-empty list among keys, waiting up to the timeout
func execBRPop(ctx context.Context, server *Server, c redis.Connection, cmd redis.Command) redis.Reply {
	brpop := cmd.(*command.BRPop)
	return server.blockingPop(ctx, c, &brpop.BlockingPop, brpop.Name(), false)
}

func init() {
	registerCommand("BLPop", execBLPop)
	registerCommand("BRPop", execBRPop)
}
