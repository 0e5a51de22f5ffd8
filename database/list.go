package database

import (
	"context"

	List "github.com/hdt3213/minidis/datastruct/list"
	"github.com/hdt3213/minidis/interface/database"
	"github.com/hdt3213/minidis/interface/redis"
	"github.com/hdt3213/minidis/redis/command"
	"github.com/hdt3213/minidis/redis/protocol"
)

func (db *DB) getAsList(key string) (*List.LinkedList, protocol.ErrorReply) {
	entity, ok := db.GetEntity(key)
	if !ok {
		return nil, nil
	}
	list, ok := entity.Data.(*List.LinkedList)
	if !ok {
		return nil, &protocol.WrongTypeErrReply{}
	}
	return list, nil
}

func (db *DB) getOrInitList(key string) (list *List.LinkedList, isNew bool, errReply protocol.ErrorReply) {
	list, errReply = db.getAsList(key)
	if errReply != nil {
		return nil, false, errReply
	}
	isNew = false
	if list == nil {
		list = List.Make()
		db.PutEntity(key, &database.DataEntity{
			Data: list,
		})
		isNew = true
	}
	return list, isNew, nil
}

// push adds values to the list at key, one at a time at the chosen end
func (server *Server) push(c redis.Connection, key string, values []string, front bool) redis.Reply {
	return server.withDB(c.GetDBIndex(), func(db *DB) redis.Reply {
		list, _, errReply := db.getOrInitList(key)
		if errReply != nil {
			return errReply
		}
		for _, value := range values {
			if front {
				list.PushFront([]byte(value))
			} else {
				list.Add([]byte(value))
			}
		}
		db.notifyPush()
		return protocol.MakeIntReply(int64(list.Len()))
	})
}

// execRPush appends values to the tail of list
func execRPush(ctx context.Context, server *Server, c redis.Connection, cmd redis.Command) redis.Reply {
	rpush := cmd.(*command.RPush)
	return server.push(c, rpush.Key, rpush.Values, false)
}

// execLPush inserts values at head of list, the last value ends up first
func execLPush(ctx context.Context, server *Server, c redis.Connection, cmd redis.Command) redis.Reply {
	lpush := cmd.(*command.LPush)
	return server.push(c, lpush.Key, lpush.Values, true)
}

func init() {
	registerCommand("RPush", execRPush)
	registerCommand("LPush", execLPush)
}
