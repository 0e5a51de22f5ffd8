package database

import (
	"context"

	"github.com/hdt3213/minidis/interface/database"
	"github.com/hdt3213/minidis/interface/redis"
	"github.com/hdt3213/minidis/redis/command"
	"github.com/hdt3213/minidis/redis/protocol"
)

func (db *DB) getAsString(key string) ([]byte, bool, protocol.ErrorReply) {
	entity, ok := db.GetEntity(key)
	if !ok {
		return nil, false, nil
	}
	bytes, ok := entity.Data.([]byte)
	if !ok {
		return nil, false, &protocol.NotScalarErrReply{}
	}
	return bytes, true, nil
}

// execGet returns string value bound to the given key
func execGet(ctx context.Context, server *Server, c redis.Connection, cmd redis.Command) redis.Reply {
	key := cmd.(*command.Get).Key
	return server.withDB(c.GetDBIndex(), func(db *DB) redis.Reply {
		bytes, exists, err := db.getAsString(key)
		if err != nil {
			return err
		}
		if !exists {
			return &protocol.NullBulkReply{}
		}
		return protocol.MakeStatusReply(string(bytes))
	})
}

// execSet overwrites the given key with a scalar, whatever it held before
func execSet(ctx context.Context, server *Server, c redis.Connection, cmd redis.Command) redis.Reply {
	set := cmd.(*command.Set)
	return server.withDB(c.GetDBIndex(), func(db *DB) redis.Reply {
		db.PutEntity(set.Key, &database.DataEntity{
			Data: []byte(set.Value),
		})
		return protocol.MakeOkReply()
	})
}

// execPing answers PONG or echoes the message, it touches no database
func execPing(ctx context.Context, server *Server, c redis.Connection, cmd redis.Command) redis.Reply {
	ping := cmd.(*command.Ping)
	if ping.Echo {
		return protocol.MakeStatusReply(ping.Message)
	}
	return &protocol.PongReply{}
}

// execExists counts present keys, a key given twice is counted twice
func execExists(ctx context.Context, server *Server, c redis.Connection, cmd redis.Command) redis.Reply {
	keys := cmd.(*command.Exists).Keys
	return server.withDB(c.GetDBIndex(), func(db *DB) redis.Reply {
		result := int64(0)
		for _, key := range keys {
			if db.Exists(key) {
				result++
			}
		}
		return protocol.MakeIntReply(result)
	})
}

func init() {
	registerCommand("Get", execGet)
	registerCommand("Set", execSet)
	registerCommand("Ping", execPing)
	registerCommand("Exists", execExists)
}
