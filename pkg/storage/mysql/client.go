// Package mysql provides the MySQL implementation of the memory record store.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/longformai/longmem-go/pkg/storage"
)

// Client implements storage.Store using MySQL as the backend.
type Client struct {
	// db is the MySQL database connection pool.
	db *sql.DB

	// tableName is the name of the table storing memory records.
	tableName string
}

// Config contains configuration for creating a MySQL record store.
type Config struct {
	// Host is the MySQL server host.
	Host string

	// Port is the MySQL server port.
	Port int

	// User is the database user.
	User string

	// Password is the database password.
	Password string

	// DBName is the database name.
	DBName string

	// TableName is the name of the table to use. Defaults to "memories".
	TableName string
}

// NewClient creates a new MySQL record store client.
func NewClient(cfg *Config) (*Client, error) {
	// parseTime=true makes the driver scan DATETIME columns into time.Time.
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("NewMySQLClient: %w", err)
	}

	tableName := cfg.TableName
	if tableName == "" {
		tableName = "memories"
	}

	client := &Client{
		db:        db,
		tableName: tableName,
	}

	if err := client.initTables(context.Background()); err != nil {
		return nil, err
	}

	return client, nil
}

// initTables initializes the table and the retrieval indexes.
func (c *Client) initTables(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			memory_type VARCHAR(32) NOT NULL,
			mem_key VARCHAR(255) NOT NULL,
			value TEXT NOT NULL,
			context TEXT,
			confidence DOUBLE NOT NULL DEFAULT 0.5,
			importance DOUBLE NOT NULL DEFAULT 0.5,
			source_turn INT NOT NULL DEFAULT 0,
			source_conversation_id VARCHAR(255) NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			is_active TINYINT(1) NOT NULL DEFAULT 1,
			access_count INT NOT NULL DEFAULT 0,
			last_accessed_turn INT NOT NULL DEFAULT 0,
			expires_at DATETIME NULL,
			vector_key VARCHAR(255) NOT NULL DEFAULT '',
			INDEX idx_user_active (user_id, is_active),
			INDEX idx_logical_key (user_id, memory_type, mem_key, is_active)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("initTables: %w", err)
	}

	return nil
}

const memoryColumns = `id, user_id, memory_type, mem_key, value, context,
	confidence, importance, source_turn, source_conversation_id,
	created_at, updated_at, is_active, access_count, last_accessed_turn,
	expires_at, vector_key`

// Supersede deactivates all active records for the new record's logical key
// and inserts the new record, in one transaction.
func (c *Client) Supersede(ctx context.Context, mem *storage.Memory) ([]*storage.Memory, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Supersede: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// FOR UPDATE serializes concurrent writers targeting the same key.
	selectQuery := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = ? AND memory_type = ? AND mem_key = ? AND is_active = 1
		FOR UPDATE
	`, memoryColumns, c.tableName)

	rows, err := tx.QueryContext(ctx, selectQuery, mem.UserID, mem.Type, mem.Key)
	if err != nil {
		return nil, fmt.Errorf("Supersede: %w", err)
	}
	deactivated, err := scanMemories(rows)
	if err != nil {
		return nil, fmt.Errorf("Supersede: %w", err)
	}

	now := mem.UpdatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if len(deactivated) > 0 {
		updateQuery := fmt.Sprintf(`
			UPDATE %s SET is_active = 0, updated_at = ?
			WHERE user_id = ? AND memory_type = ? AND mem_key = ? AND is_active = 1
		`, c.tableName)
		if _, err := tx.ExecContext(ctx, updateQuery, now, mem.UserID, mem.Type, mem.Key); err != nil {
			return nil, fmt.Errorf("Supersede: %w", err)
		}
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.tableName, memoryColumns)

	if _, err := tx.ExecContext(ctx, insertQuery,
		mem.ID,
		mem.UserID,
		mem.Type,
		mem.Key,
		mem.Value,
		mem.Context,
		mem.Confidence,
		mem.Importance,
		mem.SourceTurn,
		mem.SourceConversationID,
		mem.CreatedAt,
		now,
		boolToInt(mem.IsActive),
		mem.AccessCount,
		mem.LastAccessedTurn,
		mem.ExpiresAt,
		mem.VectorKey,
	); err != nil {
		return nil, fmt.Errorf("Supersede: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Supersede: %w", err)
	}

	for _, old := range deactivated {
		old.IsActive = false
		old.UpdatedAt = now
	}

	return deactivated, nil
}

// Get retrieves a record by primary key.
func (c *Client) Get(ctx context.Context, id int64) (*storage.Memory, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, memoryColumns, c.tableName)

	mem, err := scanMemory(c.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Get: %w", err)
	}

	return mem, nil
}

// GetMany retrieves records for the given primary keys.
func (c *Client) GetMany(ctx context.Context, ids []int64) ([]*storage.Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders, args := inClause(ids)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id IN (%s)`, memoryColumns, c.tableName, placeholders)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("GetMany: %w", err)
	}

	memories, err := scanMemories(rows)
	if err != nil {
		return nil, fmt.Errorf("GetMany: %w", err)
	}

	return memories, nil
}

// FindActiveByKey returns the active, unexpired records for one logical key.
func (c *Client) FindActiveByKey(ctx context.Context, userID string, t storage.MemoryType, key string) ([]*storage.Memory, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = ? AND memory_type = ? AND mem_key = ? AND is_active = 1
		  AND (expires_at IS NULL OR expires_at > ?)
	`, memoryColumns, c.tableName)

	rows, err := c.db.QueryContext(ctx, query, userID, t, key, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("FindActiveByKey: %w", err)
	}

	memories, err := scanMemories(rows)
	if err != nil {
		return nil, fmt.Errorf("FindActiveByKey: %w", err)
	}

	return memories, nil
}

// FindByUser lists a user's records with optional filtering and pagination.
func (c *Client) FindByUser(ctx context.Context, userID string, opts *storage.ListOptions) ([]*storage.Memory, error) {
	if opts == nil {
		opts = &storage.ListOptions{}
	}

	where := "WHERE user_id = ?"
	args := []interface{}{userID}

	if opts.Type != "" {
		where += " AND memory_type = ?"
		args = append(args, opts.Type)
	}
	if !opts.IncludeInactive {
		where += " AND is_active = 1"
	}

	orderBy := "ORDER BY created_at DESC, source_turn DESC"
	if opts.SortBy == storage.SortByImportance {
		orderBy = "ORDER BY importance DESC, created_at DESC"
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}

	query := fmt.Sprintf(`SELECT %s FROM %s %s %s LIMIT ? OFFSET ?`,
		memoryColumns, c.tableName, where, orderBy)
	args = append(args, limit, opts.Offset)

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("FindByUser: %w", err)
	}

	memories, err := scanMemories(rows)
	if err != nil {
		return nil, fmt.Errorf("FindByUser: %w", err)
	}

	return memories, nil
}

// FindRecent returns active, unexpired records created at or after since.
func (c *Client) FindRecent(ctx context.Context, userID string, since time.Time, limit int) ([]*storage.Memory, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = ? AND is_active = 1 AND created_at >= ?
		  AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY created_at DESC
		LIMIT ?
	`, memoryColumns, c.tableName)

	rows, err := c.db.QueryContext(ctx, query, userID, since, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("FindRecent: %w", err)
	}

	memories, err := scanMemories(rows)
	if err != nil {
		return nil, fmt.Errorf("FindRecent: %w", err)
	}

	return memories, nil
}

// FindCritical returns high-importance records that have gone stale.
func (c *Client) FindCritical(ctx context.Context, userID string, minImportance float64, staleBefore int, limit int) ([]*storage.Memory, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE user_id = ? AND is_active = 1 AND importance >= ? AND last_accessed_turn < ?
		  AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY importance DESC, created_at DESC
		LIMIT ?
	`, memoryColumns, c.tableName)

	rows, err := c.db.QueryContext(ctx, query, userID, minImportance, staleBefore, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("FindCritical: %w", err)
	}

	memories, err := scanMemories(rows)
	if err != nil {
		return nil, fmt.Errorf("FindCritical: %w", err)
	}

	return memories, nil
}

// RecordAccess increments access_count and sets last_accessed_turn.
func (c *Client) RecordAccess(ctx context.Context, id int64, currentTurn int) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET access_count = access_count + 1, last_accessed_turn = ?, updated_at = ?
		WHERE id = ?
	`, c.tableName)

	result, err := c.db.ExecContext(ctx, query, currentTurn, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("RecordAccess: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("RecordAccess: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// Deactivate soft-deletes a record after verifying ownership.
func (c *Client) Deactivate(ctx context.Context, id int64, userID string) (*storage.Memory, error) {
	mem, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if mem.UserID != userID {
		return nil, storage.ErrOwnership
	}

	now := time.Now().UTC()
	query := fmt.Sprintf(`
		UPDATE %s SET is_active = 0, updated_at = ? WHERE id = ? AND user_id = ?
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, query, now, id, userID); err != nil {
		return nil, fmt.Errorf("Deactivate: %w", err)
	}

	mem.IsActive = false
	mem.UpdatedAt = now
	return mem, nil
}

// PurgeConversation permanently deletes every record sourced from the conversation.
func (c *Client) PurgeConversation(ctx context.Context, userID, conversationID string) ([]*storage.Memory, error) {
	selectQuery := fmt.Sprintf(`
		SELECT %s FROM %s WHERE user_id = ? AND source_conversation_id = ?
	`, memoryColumns, c.tableName)

	rows, err := c.db.QueryContext(ctx, selectQuery, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("PurgeConversation: %w", err)
	}
	purged, err := scanMemories(rows)
	if err != nil {
		return nil, fmt.Errorf("PurgeConversation: %w", err)
	}
	if len(purged) == 0 {
		return nil, nil
	}

	deleteQuery := fmt.Sprintf(`
		DELETE FROM %s WHERE user_id = ? AND source_conversation_id = ?
	`, c.tableName)

	if _, err := c.db.ExecContext(ctx, deleteQuery, userID, conversationID); err != nil {
		return nil, fmt.Errorf("PurgeConversation: %w", err)
	}

	return purged, nil
}

// Stats summarizes the user's active memories.
func (c *Client) Stats(ctx context.Context, userID string) (*storage.Stats, error) {
	query := fmt.Sprintf(`
		SELECT memory_type, COUNT(*), SUM(CASE WHEN importance >= 0.8 THEN 1 ELSE 0 END)
		FROM %s
		WHERE user_id = ? AND is_active = 1
		GROUP BY memory_type
	`, c.tableName)

	rows, err := c.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &storage.Stats{ByType: make(map[storage.MemoryType]int)}
	for rows.Next() {
		var memType storage.MemoryType
		var count, high int
		if err := rows.Scan(&memType, &count, &high); err != nil {
			return nil, fmt.Errorf("Stats: %w", err)
		}
		stats.ByType[memType] = count
		stats.Total += count
		stats.HighImportance += high
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Stats: %w", err)
	}

	return stats, nil
}

// Close closes the database connection pool.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
