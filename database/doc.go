package database

/*
Server is an implementation of interface DB (interface/database/db.go).

redis/server.Handler holds an instance of Server as storage engine, and passes decoded commands to Server through the Exec method.

Server is a registry of numbered databases, database 0 exists from the start and SELECT creates the others.
One mutex guards the whole registry, every handler takes it through withDB for a single key check or a single command.

Server.Exec never runs a command directly. It appends the command to a queue and drains that queue, the response is the
concatenation of every drained reply. The queue lives on the session by default, with the database queue scope it lives on
the selected database and is shared by every session selecting it.

Blocking pops (BLPOP, BRPOP) try their keys once, then wait for a push into the database, a poll tick or the deadline,
without holding the lock while waiting.

registerCommand binds a command name to its ExecFunc, for example execRPush in list.go.
*/
