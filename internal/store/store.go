package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Item is one canonical harvested publication.
type Item struct {
	GUID               string   `db:"guid" json:"guid"`
	Source             string   `db:"source" json:"source"`
	Title              string   `db:"title" json:"title"`
	Link               string   `db:"link" json:"link"`
	Content            string   `db:"content" json:"content"`
	Summary            string   `db:"summary" json:"summary"`
	AISummary          string   `db:"ai_summary" json:"ai_summary"`
	AISummaryUpdatedAt string   `db:"ai_summary_updated_at" json:"ai_summary_updated_at,omitempty"`
	PublishedAt        string   `db:"published_at" json:"published_at"`
	Tags               []string `db:"-" json:"tags"`
	TagsJSON           string   `db:"tags" json:"-"`
}

// Control is one compliance requirement with a keyword vocabulary.
type Control struct {
	ID           int64    `db:"id" json:"id"`
	Ref          string   `db:"ref" json:"ref"`
	Name         string   `db:"name" json:"name"`
	Description  string   `db:"description" json:"description"`
	Themes       string   `db:"themes" json:"themes"`
	Keywords     []string `db:"-" json:"keywords"`
	KeywordsJSON string   `db:"keywords" json:"-"`
	Framework    string   `db:"framework" json:"framework"`
	Version      string   `db:"version" json:"version"`
}

// ItemControlLink is a scored many-to-many edge between an item and a control.
type ItemControlLink struct {
	ItemGUID  string  `db:"item_guid" json:"item_guid"`
	ControlID int64   `db:"control_id" json:"control_id"`
	Relevance float64 `db:"relevance" json:"relevance"`
	CreatedAt string  `db:"created_at" json:"created_at"`
}

// LinkInfo is a link row joined with its control, for read paths.
type LinkInfo struct {
	Ref       string  `db:"ref" json:"ref"`
	Name      string  `db:"name" json:"name"`
	Relevance float64 `db:"relevance" json:"relevance"`
	CreatedAt string  `db:"created_at" json:"created_at"`
}

// ListOpts controls item listing.
type ListOpts struct {
	Source         string
	Limit          int
	MissingSummary bool // only items with no cached ai_summary
}

// Store is the persistence interface for the pipeline.
type Store interface {
	UpsertItem(ctx context.Context, item *Item) error
	Exists(ctx context.Context, guidOrLink string) (bool, error)
	GetItem(ctx context.Context, guid string) (*Item, error)
	ListItems(ctx context.Context, opts ListOpts) ([]Item, error)

	GetSummary(ctx context.Context, guid string) (string, error)
	PutSummary(ctx context.Context, guid, summary string) error

	UpsertControl(ctx context.Context, c *Control) error
	ListControls(ctx context.Context) ([]Control, error)

	ReplaceItemLinks(ctx context.Context, itemGUID string, links []ItemControlLink) error
	ListItemLinks(ctx context.Context, itemGUID string) ([]LinkInfo, error)
	ControlRefsForItems(ctx context.Context, guids []string) (map[string][]string, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir %s: %w", dir, err)
		}
	}

	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertItem inserts or updates one item keyed by guid. The cached ai_summary
// is left untouched on update so re-ingesting never invalidates it.
func (s *SQLiteStore) UpsertItem(ctx context.Context, item *Item) error {
	if item.GUID == "" {
		item.GUID = item.Link
	}
	if item.GUID == "" {
		return fmt.Errorf("upsert item: empty guid and link")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (guid, source, title, link, content, summary, published_at, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guid) DO UPDATE SET
			source = excluded.source,
			title = excluded.title,
			link = excluded.link,
			content = excluded.content,
			summary = excluded.summary,
			published_at = excluded.published_at,
			tags = excluded.tags
	`, item.GUID, item.Source, item.Title, item.Link,
		item.Content, item.Summary, item.PublishedAt, DumpTags(item.Tags))
	if err != nil {
		return fmt.Errorf("upsert item %s: %w", item.GUID, err)
	}
	return nil
}

// Exists reports whether an item with this guid, or sharing this link,
// is already stored.
func (s *SQLiteStore) Exists(ctx context.Context, guidOrLink string) (bool, error) {
	var one int
	err := s.db.GetContext(ctx, &one,
		"SELECT 1 FROM items WHERE guid = ? OR link = ? LIMIT 1",
		guidOrLink, guidOrLink)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", guidOrLink, err)
	}
	return true, nil
}

func (s *SQLiteStore) GetItem(ctx context.Context, guid string) (*Item, error) {
	var item Item
	err := s.db.GetContext(ctx, &item, "SELECT * FROM items WHERE guid = ?", guid)
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", guid, err)
	}
	item.Tags = LoadTags(item.TagsJSON)
	return &item, nil
}

func (s *SQLiteStore) ListItems(ctx context.Context, opts ListOpts) ([]Item, error) {
	query := "SELECT * FROM items WHERE 1=1"
	var args []any

	if opts.Source != "" {
		query += " AND source = ?"
		args = append(args, opts.Source)
	}
	if opts.MissingSummary {
		query += " AND ai_summary = ''"
	}

	query += " ORDER BY datetime(CASE WHEN published_at = '' THEN '1970-01-01T00:00:00Z' ELSE published_at END) DESC, rowid DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += " LIMIT ?"
	args = append(args, limit)

	var items []Item
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	for i := range items {
		items[i].Tags = LoadTags(items[i].TagsJSON)
	}
	return items, nil
}

// GetSummary returns the cached summary for guid, or "" when none is stored.
func (s *SQLiteStore) GetSummary(ctx context.Context, guid string) (string, error) {
	var summary string
	err := s.db.GetContext(ctx, &summary, "SELECT ai_summary FROM items WHERE guid = ?", guid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get summary %s: %w", guid, err)
	}
	return summary, nil
}

func (s *SQLiteStore) PutSummary(ctx context.Context, guid, summary string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE items SET ai_summary = ?, ai_summary_updated_at = ? WHERE guid = ?",
		summary, time.Now().UTC().Format(time.RFC3339), guid)
	if err != nil {
		return fmt.Errorf("put summary %s: %w", guid, err)
	}
	return nil
}

// UpsertControl inserts or updates a control keyed by ref and fills in its
// row id.
func (s *SQLiteStore) UpsertControl(ctx context.Context, c *Control) error {
	keywordsJSON, _ := json.Marshal(c.Keywords)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO controls (ref, name, description, themes, keywords, framework, version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ref) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			themes = excluded.themes,
			keywords = excluded.keywords,
			framework = excluded.framework,
			version = excluded.version
	`, c.Ref, c.Name, c.Description, c.Themes, string(keywordsJSON), c.Framework, c.Version)
	if err != nil {
		return fmt.Errorf("upsert control %s: %w", c.Ref, err)
	}

	if err := s.db.GetContext(ctx, &c.ID, "SELECT id FROM controls WHERE ref = ?", c.Ref); err != nil {
		return fmt.Errorf("resolve control id %s: %w", c.Ref, err)
	}
	return nil
}

func (s *SQLiteStore) ListControls(ctx context.Context) ([]Control, error) {
	var controls []Control
	if err := s.db.SelectContext(ctx, &controls, "SELECT * FROM controls ORDER BY ref"); err != nil {
		return nil, fmt.Errorf("list controls: %w", err)
	}
	for i := range controls {
		json.Unmarshal([]byte(controls[i].KeywordsJSON), &controls[i].Keywords)
	}
	return controls, nil
}

// ReplaceItemLinks atomically swaps the item's link rows for the given set.
// An empty set still deletes prior rows: the links are a pure function of the
// item's current text.
func (s *SQLiteStore) ReplaceItemLinks(ctx context.Context, itemGUID string, links []ItemControlLink) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin relink %s: %w", itemGUID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM item_control_links WHERE item_guid = ?", itemGUID); err != nil {
		return fmt.Errorf("clear links %s: %w", itemGUID, err)
	}
	for _, l := range links {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO item_control_links (item_guid, control_id, relevance, created_at)
			VALUES (?, ?, ?, ?)
		`, itemGUID, l.ControlID, l.Relevance, l.CreatedAt); err != nil {
			return fmt.Errorf("insert link %s->%d: %w", itemGUID, l.ControlID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit relink %s: %w", itemGUID, err)
	}
	return nil
}

func (s *SQLiteStore) ListItemLinks(ctx context.Context, itemGUID string) ([]LinkInfo, error) {
	var links []LinkInfo
	err := s.db.SelectContext(ctx, &links, `
		SELECT c.ref, c.name, l.relevance, l.created_at
		FROM item_control_links l
		JOIN controls c ON c.id = l.control_id
		WHERE l.item_guid = ?
		ORDER BY l.relevance DESC
	`, itemGUID)
	if err != nil {
		return nil, fmt.Errorf("list links %s: %w", itemGUID, err)
	}
	return links, nil
}

// ControlRefsForItems returns, per guid, the control refs linked to it in
// descending relevance order.
func (s *SQLiteStore) ControlRefsForItems(ctx context.Context, guids []string) (map[string][]string, error) {
	refs := make(map[string][]string)
	if len(guids) == 0 {
		return refs, nil
	}

	query, args, err := sqlx.In(`
		SELECT l.item_guid, c.ref
		FROM item_control_links l
		JOIN controls c ON c.id = l.control_id
		WHERE l.item_guid IN (?)
		ORDER BY l.relevance DESC
	`, guids)
	if err != nil {
		return nil, fmt.Errorf("build refs query: %w", err)
	}

	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("control refs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var guid, ref string
		if err := rows.Scan(&guid, &ref); err != nil {
			return nil, err
		}
		refs[guid] = append(refs[guid], ref)
	}
	return refs, rows.Err()
}
