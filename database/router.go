package database

import (
	"context"
	"strings"

	"github.com/hdt3213/minidis/interface/redis"
)

var cmdTable = make(map[string]*commandEntry)

// ExecFunc executes a typed command for the session c
type ExecFunc func(ctx context.Context, server *Server, c redis.Connection, cmd redis.Command) redis.Reply

type commandEntry struct {
	name     string
	executor ExecFunc
}

// registerCommand registers an executor, the name must match redis.Command.Name()
func registerCommand(name string, executor ExecFunc) *commandEntry {
	name = strings.ToLower(name)
	cmd := &commandEntry{
		name:     name,
		executor: executor,
	}
	cmdTable[name] = cmd
	return cmd
}
