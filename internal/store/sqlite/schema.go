package sqlite

// Nodes carry the tenant scope; edges reference nodes and repeat the scope so
// GetAll/DeleteAll never need a join for filtering. Referential integrity is
// managed at the application level. valid=0 marks a soft-deleted edge.
const schema = `
CREATE TABLE IF NOT EXISTS nodes (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    entity_type TEXT NOT NULL DEFAULT 'unknown',
    embedding TEXT NOT NULL,
    user_id TEXT NOT NULL,
    agent_id TEXT,
    run_id TEXT,
    mentions INTEGER NOT NULL DEFAULT 1,
    created INTEGER NOT NULL,
    updated INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_scope ON nodes(user_id, agent_id, run_id);
CREATE INDEX IF NOT EXISTS idx_nodes_name ON nodes(name);

CREATE TABLE IF NOT EXISTS edges (
    id TEXT PRIMARY KEY,
    source_id TEXT NOT NULL,
    destination_id TEXT NOT NULL,
    relationship TEXT NOT NULL,
    user_id TEXT NOT NULL,
    agent_id TEXT,
    run_id TEXT,
    mentions INTEGER NOT NULL DEFAULT 1,
    valid INTEGER NOT NULL DEFAULT 1,
    created INTEGER NOT NULL,
    updated INTEGER NOT NULL,
    UNIQUE(source_id, destination_id, relationship)
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id) WHERE valid = 1;
CREATE INDEX IF NOT EXISTS idx_edges_destination ON edges(destination_id) WHERE valid = 1;
CREATE INDEX IF NOT EXISTS idx_edges_scope ON edges(user_id, agent_id, run_id);
`
