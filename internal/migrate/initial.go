package migrate

const initialSchemaUp = `
CREATE TABLE IF NOT EXISTS items (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	status           TEXT NOT NULL DEFAULT 'inbox',
	item_type        TEXT NOT NULL,
	project_id       TEXT REFERENCES items(id) ON DELETE SET NULL,
	due_date         DATETIME,
	energy_level     INTEGER,
	success_criteria TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	completed_at     DATETIME,
	CHECK (status IN ('inbox', 'clarified', 'organized', 'reviewing', 'complete', 'someday')),
	CHECK (item_type IN ('action', 'project')),
	CHECK (energy_level IS NULL OR (energy_level BETWEEN 1 AND 5))
);

CREATE TABLE IF NOT EXISTS contexts (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS action_contexts (
	action_id  TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	context_id TEXT NOT NULL REFERENCES contexts(id) ON DELETE CASCADE,
	PRIMARY KEY (action_id, context_id)
);

CREATE TABLE IF NOT EXISTS organizations (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	type        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	CHECK (type IN ('internal', 'customer', 'partner', 'other'))
);

CREATE TABLE IF NOT EXISTS stakeholders (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	email           TEXT NOT NULL,
	organization_id TEXT REFERENCES organizations(id) ON DELETE SET NULL,
	team_id         TEXT NOT NULL DEFAULT '',
	role            TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS item_stakeholders (
	item_id        TEXT NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	stakeholder_id TEXT NOT NULL REFERENCES stakeholders(id) ON DELETE CASCADE,
	raci_role      TEXT NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (item_id, stakeholder_id, raci_role),
	CHECK (raci_role IN ('responsible', 'accountable', 'consulted', 'informed'))
);

CREATE TRIGGER IF NOT EXISTS update_items_timestamp
AFTER UPDATE ON items
FOR EACH ROW
WHEN NEW.updated_at = OLD.updated_at
BEGIN
	UPDATE items SET updated_at = datetime('now') WHERE id = NEW.id;
END;

CREATE INDEX IF NOT EXISTS idx_items_status ON items(status);
CREATE INDEX IF NOT EXISTS idx_items_type ON items(item_type);
CREATE INDEX IF NOT EXISTS idx_items_project ON items(project_id);
CREATE INDEX IF NOT EXISTS idx_items_created ON items(created_at);
CREATE INDEX IF NOT EXISTS idx_contexts_name ON contexts(name);
CREATE INDEX IF NOT EXISTS idx_stakeholders_email ON stakeholders(email);
CREATE INDEX IF NOT EXISTS idx_stakeholders_org ON stakeholders(organization_id);
`

// Drop order matters: the trigger and junction tables go before the tables
// they reference.
const initialSchemaDown = `
DROP TRIGGER IF EXISTS update_items_timestamp;
DROP TABLE IF EXISTS item_stakeholders;
DROP TABLE IF EXISTS stakeholders;
DROP TABLE IF EXISTS organizations;
DROP TABLE IF EXISTS action_contexts;
DROP TABLE IF EXISTS contexts;
DROP TABLE IF EXISTS items;
`

// InitialSchema returns the version-1 migration creating the core task
// tables, relationship tables, update trigger, and indexes.
func InitialSchema() *Script {
	return NewScript(1,
		"create initial schema with items, contexts, and relationships",
		initialSchemaUp, initialSchemaDown)
}

// DefaultCatalog returns the catalog of migrations this build knows about.
func DefaultCatalog() *Catalog {
	return NewCatalog(InitialSchema())
}
