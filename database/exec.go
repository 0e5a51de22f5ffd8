package database

import (
	"context"

	"github.com/hdt3213/minidis/interface/redis"
	"github.com/hdt3213/minidis/redis/command"
	"github.com/hdt3213/minidis/redis/protocol"
)

var (
	selectLateErrReply  = protocol.MakeErrReply("SELECT can only be called at the start of the session")
	unsupportedErrReply = protocol.MakeErrReply(command.ErrUnsupported.Error())
)

// execSessionQueue queues cmd on the session and drains it, the reply only holds this session's commands
func (server *Server) execSessionQueue(ctx context.Context, c redis.Connection, cmd redis.Command) redis.Reply {
	c.EnqueueCmd(cmd)
	var replies []redis.Reply
	for {
		next, ok := c.DequeueCmd()
		if !ok {
			break
		}
		replies = append(replies, server.execCommand(ctx, c, next))
	}
	return protocol.MakeConcatReply(replies)
}

// execDatabaseQueue queues cmd on the selected database and drains that queue.
// Commands queued by other sessions on the same database may be executed here, with this session's state,
// and their replies are part of this response.
func (server *Server) execDatabaseQueue(ctx context.Context, c redis.Connection, cmd redis.Command) redis.Reply {
	errReply := server.withDB(c.GetDBIndex(), func(db *DB) redis.Reply {
		db.enqueue(cmd)
		return nil
	})
	if errReply != nil {
		return errReply
	}
	var replies []redis.Reply
	for {
		var next redis.Command
		// the session may switch database while draining, the queue is looked up again for each pop
		errReply = server.withDB(c.GetDBIndex(), func(db *DB) redis.Reply {
			next, _ = db.dequeue()
			return nil
		})
		if errReply != nil {
			replies = append(replies, errReply)
			break
		}
		if next == nil {
			break
		}
		replies = append(replies, server.execCommand(ctx, c, next))
	}
	if len(replies) == 0 {
		return &protocol.NoReply{}
	}
	return protocol.MakeConcatReply(replies)
}

// execCommand runs one command, SELECT is handled here since it changes the session
func (server *Server) execCommand(ctx context.Context, c redis.Connection, cmd redis.Command) redis.Reply {
	if sel, ok := cmd.(*command.Select); ok {
		return server.execSelect(c, sel)
	}
	c.MarkCommandExecuted()
	var result redis.Reply
	exec, ok := cmdTable[cmd.Name()]
	if !ok {
		result = unsupportedErrReply
	} else {
		result = exec.executor(ctx, server, c, cmd)
	}
	server.recordCommand(cmd.Name(), result)
	return result
}

// execSelect switches the session to another database, only allowed before any other command ran
func (server *Server) execSelect(c redis.Connection, cmd *command.Select) redis.Reply {
	if c.CommandExecuted() {
		server.recordCommand(cmd.Name(), selectLateErrReply)
		return selectLateErrReply
	}
	server.selectDB(cmd.Index)
	c.SelectDB(cmd.Index)
	c.MarkCommandExecuted()
	server.recordCommand(cmd.Name(), protocol.MakeOkReply())
	return protocol.MakeOkReply()
}

func (server *Server) recordCommand(name string, result redis.Reply) {
	if server.metrics == nil {
		return
	}
	server.metrics.CommandsTotal.WithLabelValues(name).Inc()
	if protocol.IsErrorReply(result) {
		server.metrics.CommandErrors.WithLabelValues(name).Inc()
	}
}
