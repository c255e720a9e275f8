package postgresql

// migrations returns the schema migrations for the checkpoint store, keyed by
// version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS onboarding_sessions (
				thread_id      TEXT PRIMARY KEY,
				tenant_id      TEXT NOT NULL,
				version        BIGINT NOT NULL,
				status         TEXT NOT NULL,
				awaiting_input BOOLEAN NOT NULL DEFAULT FALSE,
				state          JSONB NOT NULL,
				created_at     TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at     TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_onboarding_sessions_tenant
				ON onboarding_sessions (tenant_id);

			CREATE INDEX IF NOT EXISTS idx_onboarding_sessions_idle
				ON onboarding_sessions (status, awaiting_input, updated_at);
		`,
	}
}
