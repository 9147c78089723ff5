package store

const schema = `
CREATE TABLE IF NOT EXISTS items (
    guid                  TEXT PRIMARY KEY,
    source                TEXT NOT NULL DEFAULT '',
    title                 TEXT NOT NULL DEFAULT '',
    link                  TEXT NOT NULL DEFAULT '',
    content               TEXT NOT NULL DEFAULT '',
    summary               TEXT NOT NULL DEFAULT '',
    ai_summary            TEXT NOT NULL DEFAULT '',
    ai_summary_updated_at TEXT NOT NULL DEFAULT '',
    published_at          TEXT NOT NULL DEFAULT '',
    tags                  TEXT NOT NULL DEFAULT '[]'
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_items_guid ON items(guid);
CREATE INDEX IF NOT EXISTS idx_items_link ON items(link);
CREATE INDEX IF NOT EXISTS idx_items_source ON items(source);
CREATE INDEX IF NOT EXISTS idx_items_published ON items(published_at);

CREATE TABLE IF NOT EXISTS controls (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    ref         TEXT NOT NULL UNIQUE,
    name        TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    themes      TEXT NOT NULL DEFAULT '',
    keywords    TEXT NOT NULL DEFAULT '[]',
    framework   TEXT NOT NULL DEFAULT '',
    version     TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_controls_ref ON controls(ref);

CREATE TABLE IF NOT EXISTS item_control_links (
    item_guid  TEXT NOT NULL,
    control_id INTEGER NOT NULL,
    relevance  REAL NOT NULL,
    created_at TEXT NOT NULL,
    PRIMARY KEY (item_guid, control_id),
    FOREIGN KEY (control_id) REFERENCES controls(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_icl_item ON item_control_links(item_guid);
CREATE INDEX IF NOT EXISTS idx_icl_control ON item_control_links(control_id);
`
