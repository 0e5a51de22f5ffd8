package database

import (
	"context"
	"testing"
	"time"

	"github.com/hdt3213/minidis/interface/redis"
	"github.com/hdt3213/minidis/lib/utils"
	"github.com/hdt3213/minidis/redis/command"
	"github.com/hdt3213/minidis/redis/connection"
	"github.com/hdt3213/minidis/redis/protocol"
)

const testPollInterval = 10 * time.Millisecond

var testServer = NewStandaloneServer(WithPollInterval(testPollInterval))

// execLine parses and executes a command line, a reply made of one command is unwrapped
func execLine(t *testing.T, server *Server, c redis.Connection, line ...string) redis.Reply {
	t.Helper()
	cmd, err := parseLine(line...)
	if err != nil {
		t.Fatalf("parse %v failed: %v", line, err)
	}
	result := server.Exec(context.Background(), c, cmd)
	if concat, ok := result.(*protocol.ConcatReply); ok && len(concat.Replies) == 1 {
		return concat.Replies[0]
	}
	return result
}

// listValues reads a list without going through a command
func listValues(server *Server, dbIndex int, key string) []string {
	var result []string
	server.withDB(dbIndex, func(db *DB) redis.Reply {
		list, _ := db.getAsList(key)
		if list != nil {
			result = utils.BytesToStrings(list.Values())
		}
		return nil
	})
	return result
}

func parseLine(line ...string) (redis.Command, error) {
	return command.Parse(utils.ToCmdLine(line...))
}

func newSession() *connection.FakeConn {
	return connection.NewFakeConn()
}
