package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Create flows table
			CREATE TABLE flows (
				id UUID PRIMARY KEY,
				tenant_id VARCHAR(255) NOT NULL,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				is_template BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_flows_tenant_id ON flows(tenant_id);
			CREATE INDEX idx_flows_created_at ON flows(created_at);
			CREATE INDEX idx_flows_deleted_at ON flows(deleted_at);

			-- Create flow_versions table
			CREATE TABLE flow_versions (
				id UUID PRIMARY KEY,
				flow_id UUID NOT NULL REFERENCES flows(id) ON DELETE CASCADE,
				tenant_id VARCHAR(255) NOT NULL,
				number INT NOT NULL,
				status VARCHAR(20) NOT NULL CHECK (status IN ('draft', 'staged', 'live', 'archived')),
				graph JSONB,
				promoted_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (flow_id, number)
			);

			CREATE INDEX idx_flow_versions_flow_id ON flow_versions(flow_id);
			CREATE INDEX idx_flow_versions_tenant_id ON flow_versions(tenant_id);
			CREATE INDEX idx_flow_versions_status ON flow_versions(status);

			-- The lifecycle allows at most one draft, one staged and one live
			-- version per flow; the database is the last line of defense.
			CREATE UNIQUE INDEX idx_flow_versions_one_draft ON flow_versions(flow_id) WHERE status = 'draft';
			CREATE UNIQUE INDEX idx_flow_versions_one_staged ON flow_versions(flow_id) WHERE status = 'staged';
			CREATE UNIQUE INDEX idx_flow_versions_one_live ON flow_versions(flow_id) WHERE status = 'live';
		`,
	}
}
