package database

import "github.com/oklog/ulid/v2"

// removeDB drops a database, database 0 is kept
func (server *Server) removeDB(dbIndex int) {
	if dbIndex == 0 {
		return
	}
	server.mu.Lock()
	defer server.mu.Unlock()
	delete(server.dbSet, dbIndex)
}

func (server *Server) dbCount() int {
	server.mu.Lock()
	defer server.mu.Unlock()
	return len(server.dbSet)
}

// randKey returns a key no other test uses
func randKey() string {
	return "key:" + ulid.Make().String()
}
