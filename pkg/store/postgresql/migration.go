package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE invocations (
				id VARCHAR(255) PRIMARY KEY,
				provider VARCHAR(255) NOT NULL,
				action VARCHAR(255) NOT NULL,
				args JSONB,
				output JSONB,
				error TEXT,
				status VARCHAR(50) NOT NULL,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				finished_at TIMESTAMP WITH TIME ZONE NOT NULL,
				duration_ms BIGINT NOT NULL
			);

			CREATE INDEX idx_invocations_provider ON invocations(provider);
			CREATE INDEX idx_invocations_status ON invocations(status);
			CREATE INDEX idx_invocations_started_at ON invocations(started_at);

			CREATE TABLE provider_health (
				id BIGSERIAL PRIMARY KEY,
				provider VARCHAR(255) NOT NULL,
				healthy BOOLEAN NOT NULL,
				detail JSONB,
				error TEXT,
				checked_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_provider_health_provider ON provider_health(provider, checked_at);
		`,
	}
}
