package redis

import (
	"context"
	"strconv"
	"strings"

	"github.com/tradefind/tradefind/internal/db"
)

// Info fetches server statistics via INFO and extracts the fields the cache
// admin surface reports.
func (s *Store) Info(ctx context.Context) (*db.ServerInfo, error) {
	cmd := s.b().Info().Build()
	raw, err := s.do(ctx, cmd).ToString()
	if err != nil {
		return nil, &db.Error{Op: db.OpInfo, Err: err}
	}
	return parseInfo(raw), nil
}

// parseInfo extracts known fields from the line-oriented INFO payload.
// Unknown or malformed lines are skipped.
func parseInfo(raw string) *db.ServerInfo {
	info := &db.ServerInfo{}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch name {
		case "used_memory_human":
			info.UsedMemoryHuman = value
		case "connected_clients":
			info.ConnectedClients = parseInt(value)
		case "total_commands_processed":
			info.TotalCommandsProcessed = parseInt(value)
		case "keyspace_hits":
			info.KeyspaceHits = parseInt(value)
		case "keyspace_misses":
			info.KeyspaceMisses = parseInt(value)
		}
	}
	return info
}

func parseInt(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
