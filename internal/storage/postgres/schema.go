package postgres

const schema = `
CREATE TABLE IF NOT EXISTS router_settings (
	id                   SMALLINT PRIMARY KEY CHECK (id = 1),
	admin                TEXT NOT NULL,
	default_slippage_bps INTEGER NOT NULL,
	max_slippage_bps     INTEGER NOT NULL,
	swap_enabled         BOOLEAN NOT NULL,
	liquidity_enabled    BOOLEAN NOT NULL,
	auto_swap_threshold  NUMERIC(78, 0) NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS protocols (
	address         TEXT PRIMARY KEY,
	registered_seq  BIGSERIAL NOT NULL,
	name            TEXT NOT NULL,
	enabled         BOOLEAN NOT NULL,
	fee_tier_bps    INTEGER NOT NULL,
	min_swap_amount NUMERIC(78, 0) NOT NULL,
	max_swap_amount NUMERIC(78, 0) NOT NULL,
	supported_pairs JSONB NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS nonce_ledger (
	protocol   TEXT PRIMARY KEY,
	last_nonce NUMERIC(20, 0) NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS swap_history (
	sequence_id  BIGSERIAL PRIMARY KEY,
	user_address TEXT NOT NULL,
	protocol     TEXT NOT NULL,
	token_in     TEXT NOT NULL,
	token_out    TEXT NOT NULL,
	amount_in    NUMERIC(78, 0) NOT NULL,
	amount_out   NUMERIC(78, 0) NOT NULL,
	ts           BIGINT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS swap_history_user_idx ON swap_history (user_address, sequence_id);
`
