// Package sqlite archives fetched messages in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tidemark-labs/mailpoll/internal/core/domain"
	"github.com/tidemark-labs/mailpoll/internal/core/ports/driven"
)

// Ensure Store implements the port.
var _ driven.MessageStore = (*Store)(nil)

// Store is a SQLite-backed message archive keyed by (account, message id).
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive database under dataDir.
func Open(ctx context.Context, dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, "mailpoll.db"))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS messages (
            account TEXT NOT NULL,
            id TEXT NOT NULL,
            internet_message_id TEXT,
            subject TEXT NOT NULL DEFAULT '',
            sender TEXT NOT NULL DEFAULT '{}',
            to_recipients TEXT NOT NULL DEFAULT '[]',
            cc_recipients TEXT NOT NULL DEFAULT '[]',
            text_body TEXT,
            html_body TEXT,
            received_at INTEGER,
            provider TEXT NOT NULL DEFAULT '',
            run_id TEXT NOT NULL DEFAULT '',
            fetched_at INTEGER NOT NULL,
            PRIMARY KEY (account, id)
        );`,
		`CREATE TABLE IF NOT EXISTS attachments (
            account TEXT NOT NULL,
            message_id TEXT NOT NULL,
            idx INTEGER NOT NULL,
            filename TEXT NOT NULL DEFAULT '',
            content_type TEXT NOT NULL DEFAULT '',
            content BLOB NOT NULL,
            PRIMARY KEY (account, message_id, idx),
            FOREIGN KEY (account, message_id) REFERENCES messages(account, id) ON DELETE CASCADE
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_received ON messages(account, received_at);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Save archives a message and its inline attachments. Saving the same
// (account, id) twice replaces the earlier row.
func (s *Store) Save(ctx context.Context, runID string, msg *domain.EmailMessage) error {
	sender, err := json.Marshal(msg.From)
	if err != nil {
		return fmt.Errorf("encode sender: %w", err)
	}
	to, err := encodeAddresses(msg.To)
	if err != nil {
		return fmt.Errorf("encode to recipients: %w", err)
	}
	cc, err := encodeAddresses(msg.Cc)
	if err != nil {
		return fmt.Errorf("encode cc recipients: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var receivedAt any
	if !msg.ReceivedAt.IsZero() {
		receivedAt = msg.ReceivedAt.UTC().Unix()
	}

	_, err = tx.ExecContext(ctx, `
        INSERT OR REPLACE INTO messages
            (account, id, internet_message_id, subject, sender, to_recipients, cc_recipients,
             text_body, html_body, received_at, provider, run_id, fetched_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.Account, msg.ID, msg.MessageID, msg.Subject, string(sender), to, cc,
		nullable(msg.TextBody), nullable(msg.HTMLBody), receivedAt,
		string(msg.Provider), runID, time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM attachments WHERE account = ? AND message_id = ?`,
		msg.Account, msg.ID); err != nil {
		return fmt.Errorf("clear attachments: %w", err)
	}
	for i, att := range msg.Attachments {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO attachments (account, message_id, idx, filename, content_type, content)
            VALUES (?, ?, ?, ?, ?, ?)`,
			msg.Account, msg.ID, i, att.Filename, att.ContentType, att.Content); err != nil {
			return fmt.Errorf("insert attachment %q: %w", att.Filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Seen reports whether the message was archived previously.
func (s *Store) Seen(ctx context.Context, account, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM messages WHERE account = ? AND id = ?`, account, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query seen: %w", err)
	}
	return true, nil
}

// Get loads an archived message with its attachments.
func (s *Store) Get(ctx context.Context, account, id string) (*domain.EmailMessage, error) {
	var (
		msg              domain.EmailMessage
		sender, to, cc   string
		textBody, html   sql.NullString
		receivedAt       sql.NullInt64
		provider, rawAcc string
	)
	err := s.db.QueryRowContext(ctx, `
        SELECT account, id, internet_message_id, subject, sender, to_recipients, cc_recipients,
               text_body, html_body, received_at, provider
        FROM messages WHERE account = ? AND id = ?`, account, id).
		Scan(&rawAcc, &msg.ID, &msg.MessageID, &msg.Subject, &sender, &to, &cc,
			&textBody, &html, &receivedAt, &provider)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrMessageNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query message: %w", err)
	}

	msg.Account = rawAcc
	msg.Provider = domain.ProviderType(provider)
	msg.TextBody = textBody.String
	msg.HTMLBody = html.String
	if receivedAt.Valid {
		msg.ReceivedAt = time.Unix(receivedAt.Int64, 0).UTC()
	}

	if err := json.Unmarshal([]byte(sender), &msg.From); err != nil {
		return nil, fmt.Errorf("decode sender: %w", err)
	}
	if msg.To, err = decodeAddresses(to); err != nil {
		return nil, fmt.Errorf("decode to recipients: %w", err)
	}
	if msg.Cc, err = decodeAddresses(cc); err != nil {
		return nil, fmt.Errorf("decode cc recipients: %w", err)
	}

	if msg.Attachments, err = s.attachments(ctx, account, id); err != nil {
		return nil, err
	}

	return &msg, nil
}

func (s *Store) attachments(ctx context.Context, account, id string) ([]domain.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT filename, content_type, content
        FROM attachments WHERE account = ? AND message_id = ? ORDER BY idx`, account, id)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	var out []domain.Attachment
	for rows.Next() {
		var att domain.Attachment
		if err := rows.Scan(&att.Filename, &att.ContentType, &att.Content); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		out = append(out, att)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func encodeAddresses(addrs []domain.EmailAddress) (string, error) {
	if addrs == nil {
		addrs = []domain.EmailAddress{}
	}
	raw, err := json.Marshal(addrs)
	return string(raw), err
}

func decodeAddresses(raw string) ([]domain.EmailAddress, error) {
	var out []domain.EmailAddress
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
