package store

// The schema sticks to SQL both DuckDB and PostgreSQL accept. Neither foreign
// keys nor triggers are used: DuckDB has no ON DELETE CASCADE, so cascades and
// the default hunt are done inside store transactions.
const coreSchema = `
CREATE SEQUENCE IF NOT EXISTS profiles_id_seq START 1;
CREATE SEQUENCE IF NOT EXISTS hunts_id_seq START 1;
CREATE SEQUENCE IF NOT EXISTS encounters_id_seq START 1;
CREATE SEQUENCE IF NOT EXISTS manual_encounters_id_seq START 1;

CREATE TABLE IF NOT EXISTS profiles (
    id    BIGINT DEFAULT nextval('profiles_id_seq') PRIMARY KEY,
    name  VARCHAR NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS hunts (
    id          BIGINT DEFAULT nextval('hunts_id_seq') PRIMARY KEY,
    name        VARCHAR NOT NULL,
    profile_id  BIGINT NOT NULL,
    UNIQUE (profile_id, name)
);

CREATE TABLE IF NOT EXISTS encounters (
    id          BIGINT DEFAULT nextval('encounters_id_seq') PRIMARY KEY,
    seen_at     TIMESTAMP NOT NULL,
    species_id  INTEGER NOT NULL,
    level       INTEGER,
    shiny       BOOLEAN NOT NULL,
    alpha       BOOLEAN NOT NULL,
    hunt_id     BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_encounters_hunt ON encounters(hunt_id);

CREATE TABLE IF NOT EXISTS manual_encounters (
    id          BIGINT DEFAULT nextval('manual_encounters_id_seq') PRIMARY KEY,
    seen_at     TIMESTAMP NOT NULL,
    species_id  INTEGER NOT NULL,
    qty         INTEGER NOT NULL,
    shiny       BOOLEAN NOT NULL,
    alpha       BOOLEAN NOT NULL,
    hunt_id     BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_manual_encounters_hunt ON manual_encounters(hunt_id);

CREATE TABLE IF NOT EXISTS species_names (
    species_id  INTEGER PRIMARY KEY,
    name        VARCHAR NOT NULL
);
`
