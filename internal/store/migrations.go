package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS task_snapshots (
	filter           TEXT NOT NULL,
	position         INTEGER NOT NULL,
	id               INTEGER NOT NULL,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	priority         INTEGER NOT NULL DEFAULT 0,
	category         TEXT NOT NULL DEFAULT 'unclassified',
	status           TEXT NOT NULL DEFAULT 'active',
	deferral_count   INTEGER NOT NULL DEFAULT 0,
	completion_count INTEGER NOT NULL DEFAULT 0,
	sort_order       INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL DEFAULT '',
	updated_at       TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (filter, position)
);

CREATE TABLE IF NOT EXISTS snapshot_meta (
	filter     TEXT PRIMARY KEY,
	fetched_at DATETIME NOT NULL
);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS plan_snapshots (
	date       TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	fetched_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_task_snapshots_id ON task_snapshots(id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
