// Package app — migrations.go содержит встроенные SQL-миграции.
// Миграции выполняются по порядку через postgres.ExecMigrationSQL;
// применённые версии отслеживаются в schema_migrations.
package app

// Миграция 1: участники и сессии.
const migration001Members = `
	CREATE TABLE IF NOT EXISTS users (
		id          BIGSERIAL PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		username    TEXT NOT NULL DEFAULT '',
		role        TEXT NOT NULL DEFAULT 'member',
		notes       TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS user_sessions (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id),
		token      TEXT NOT NULL UNIQUE,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_user_sessions_token ON user_sessions(token);
`

// Миграция 2: проекты и события смены статуса.
// deleted — SMALLINT NULL: в исторических данных «не удалён» это NULL.
const migration002Projects = `
	CREATE TABLE IF NOT EXISTS projects (
		id             BIGSERIAL PRIMARY KEY,
		user_id        BIGINT NOT NULL REFERENCES users(id),
		title          TEXT NOT NULL,
		status         TEXT NOT NULL DEFAULT 'draft',
		repo_url       TEXT,
		hours          DOUBLE PRECISION,
		hours_override DOUBLE PRECISION,
		tier           INTEGER NOT NULL DEFAULT 0,
		scraps_awarded BIGINT NOT NULL DEFAULT 0,
		scraps_paid_at TIMESTAMPTZ,
		deleted        SMALLINT,
		work_sessions  TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS project_status_events (
		id          BIGSERIAL PRIMARY KEY,
		project_id  BIGINT NOT NULL REFERENCES projects(id),
		from_status TEXT NOT NULL,
		to_status   TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id);
	CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
	CREATE INDEX IF NOT EXISTS idx_status_events_project ON project_status_events(project_id, to_status);
`

// Миграция 3: ручные бонусы (append-only).
const migration003Bonuses = `
	CREATE TABLE IF NOT EXISTS bonuses (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id),
		amount     BIGINT NOT NULL CHECK (amount > 0),
		reason     TEXT NOT NULL DEFAULT '',
		granted_by BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_bonuses_user ON bonuses(user_id);
`

// Миграция 4: магазин — товары, заказы, апгрейды, штрафы, попытки.
const migration004Shop = `
	CREATE TABLE IF NOT EXISTS shop_items (
		id                BIGSERIAL PRIMARY KEY,
		name              TEXT NOT NULL,
		description       TEXT,
		price             BIGINT NOT NULL CHECK (price > 0),
		stock             INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
		base_probability  INTEGER NOT NULL CHECK (base_probability BETWEEN 0 AND 100),
		base_upgrade_cost BIGINT NOT NULL CHECK (base_upgrade_cost > 0),
		cost_multiplier   INTEGER NOT NULL CHECK (cost_multiplier > 100),
		boost_amount      INTEGER NOT NULL DEFAULT 1 CHECK (boost_amount >= 0),
		active            BOOLEAN NOT NULL DEFAULT TRUE,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS orders (
		id               BIGSERIAL PRIMARY KEY,
		reference        UUID NOT NULL UNIQUE,
		user_id          BIGINT NOT NULL REFERENCES users(id),
		item_id          BIGINT NOT NULL REFERENCES shop_items(id),
		order_type       TEXT NOT NULL,
		status           TEXT NOT NULL DEFAULT 'pending',
		quantity         INTEGER NOT NULL CHECK (quantity > 0),
		price_per_item   BIGINT NOT NULL,
		total_price      BIGINT NOT NULL,
		shipping_address TEXT,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS refinery_orders (
		id            BIGSERIAL PRIMARY KEY,
		user_id       BIGINT NOT NULL REFERENCES users(id),
		item_id       BIGINT NOT NULL REFERENCES shop_items(id),
		cost          BIGINT NOT NULL,
		boost_percent INTEGER NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS refinery_spend_history (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id),
		item_id    BIGINT NOT NULL REFERENCES shop_items(id),
		cost       BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS shop_penalties (
		user_id    BIGINT NOT NULL REFERENCES users(id),
		item_id    BIGINT NOT NULL REFERENCES shop_items(id),
		multiplier INTEGER NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, item_id)
	);

	CREATE TABLE IF NOT EXISTS rolls (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users(id),
		item_id    BIGINT NOT NULL REFERENCES shop_items(id),
		drawn      INTEGER NOT NULL,
		threshold  INTEGER NOT NULL,
		won        BOOLEAN NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_orders_user_item ON orders(user_id, item_id, order_type);
	CREATE INDEX IF NOT EXISTS idx_refinery_orders_user_item ON refinery_orders(user_id, item_id);
	CREATE INDEX IF NOT EXISTS idx_spend_history_user ON refinery_spend_history(user_id);
	CREATE INDEX IF NOT EXISTS idx_rolls_user ON rolls(user_id);
`
