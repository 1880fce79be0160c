package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow configuration
			CREATE TABLE workflow_states (
				seq BIGSERIAL,
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(64) NOT NULL,
				title VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				rules JSONB,
				records_are_private BOOLEAN NOT NULL DEFAULT FALSE,
				revert_target_id VARCHAR(255) REFERENCES workflow_states(id),
				status VARCHAR(16) NOT NULL CHECK (status IN ('active', 'deleted')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE UNIQUE INDEX idx_workflow_states_name ON workflow_states(name);
			CREATE INDEX idx_workflow_states_status ON workflow_states(status);
			CREATE INDEX idx_workflow_states_revert_target ON workflow_states(revert_target_id);

			CREATE TABLE workflow_transitions (
				seq BIGSERIAL,
				id VARCHAR(255) PRIMARY KEY,
				from_state_id VARCHAR(255) REFERENCES workflow_states(id),
				to_state_id VARCHAR(255) NOT NULL REFERENCES workflow_states(id),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- A NULL origin is a wildcard; it is unique per target like any other origin
			CREATE UNIQUE INDEX idx_workflow_transitions_pair
				ON workflow_transitions(COALESCE(from_state_id, ''), to_state_id);
			CREATE INDEX idx_workflow_transitions_to ON workflow_transitions(to_state_id);

			CREATE TABLE workflow_metrics (
				seq BIGSERIAL,
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL UNIQUE,
				title VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				evaluator VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE workflow_rules (
				seq BIGSERIAL,
				id VARCHAR(255) PRIMARY KEY,
				state_id VARCHAR(255) NOT NULL REFERENCES workflow_states(id),
				metric_id VARCHAR(255) NOT NULL REFERENCES workflow_metrics(id),
				body JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE(state_id, metric_id)
			);

			-- Metadata standards
			CREATE TABLE metadata_standards (
				seq BIGSERIAL,
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				version VARCHAR(64) NOT NULL,
				schema JSONB NOT NULL,
				template JSONB,
				parent_id VARCHAR(255) REFERENCES metadata_standards(id),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE(name, version)
			);

			CREATE TABLE metadata_json_attr_maps (
				seq BIGSERIAL,
				id VARCHAR(255) PRIMARY KEY,
				standard_id VARCHAR(255) NOT NULL REFERENCES metadata_standards(id) ON DELETE CASCADE,
				json_path TEXT NOT NULL,
				record_attr VARCHAR(255) NOT NULL,
				is_key BOOLEAN NOT NULL DEFAULT FALSE,
				UNIQUE(standard_id, record_attr)
			);

			CREATE TABLE vocabularies (
				name VARCHAR(255) PRIMARY KEY,
				tags TEXT[] NOT NULL DEFAULT '{}'
			);
		`,
	}
}
