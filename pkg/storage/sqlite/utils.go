package sqlite

import (
	"database/sql"
	"strings"

	"github.com/longformai/longmem-go/pkg/storage"
)

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanMemory scans one memory record from a row.
func scanMemory(scanner rowScanner) (*storage.Memory, error) {
	var mem storage.Memory
	var isActive int
	var expiresAt sql.NullTime

	err := scanner.Scan(
		&mem.ID,
		&mem.UserID,
		&mem.Type,
		&mem.Key,
		&mem.Value,
		&mem.Context,
		&mem.Confidence,
		&mem.Importance,
		&mem.SourceTurn,
		&mem.SourceConversationID,
		&mem.CreatedAt,
		&mem.UpdatedAt,
		&isActive,
		&mem.AccessCount,
		&mem.LastAccessedTurn,
		&expiresAt,
		&mem.VectorKey,
	)
	if err != nil {
		return nil, err
	}

	mem.IsActive = isActive != 0
	if expiresAt.Valid {
		mem.ExpiresAt = &expiresAt.Time
	}

	return &mem, nil
}

// scanMemories drains rows into memory records and closes them.
func scanMemories(rows *sql.Rows) ([]*storage.Memory, error) {
	defer func() { _ = rows.Close() }()

	var memories []*storage.Memory
	for rows.Next() {
		mem, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, mem)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return memories, nil
}

// inClause builds a "?, ?, ..." placeholder list and the matching args.
func inClause(ids []int64) (string, []interface{}) {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	return strings.Join(placeholders, ", "), args
}

// boolToInt converts a bool to the 0/1 representation SQLite stores.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
