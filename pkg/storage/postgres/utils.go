package postgres

import (
	"database/sql"
	"fmt"
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
		&mem.IsActive,
		&mem.AccessCount,
		&mem.LastAccessedTurn,
		&expiresAt,
		&mem.VectorKey,
	)
	if err != nil {
		return nil, err
	}

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

// inClause builds a "$n, $n+1, ..." placeholder list starting at start and
// the matching args.
func inClause(ids []int64, start int) (string, []interface{}) {
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", start+i)
		args[i] = id
	}
	return strings.Join(placeholders, ", "), args
}
