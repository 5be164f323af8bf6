package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE accounts (
				id UUID PRIMARY KEY,
				email VARCHAR(255) NOT NULL UNIQUE,
				is_admin BOOLEAN NOT NULL DEFAULT FALSE,
				status VARCHAR(50) NOT NULL DEFAULT 'active',
				quota_granted INT NOT NULL DEFAULT 0,
				quota_used INT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE instances (
				id UUID PRIMARY KEY,
				owner_id UUID NOT NULL,
				name VARCHAR(255) NOT NULL,
				api_url TEXT NOT NULL,
				api_key TEXT NOT NULL,
				instance_key VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_instances_owner ON instances(owner_id);

			CREATE TABLE contact_lists (
				id UUID PRIMARY KEY,
				owner_id UUID NOT NULL,
				name VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_contact_lists_owner ON contact_lists(owner_id);

			CREATE TABLE contacts (
				id UUID PRIMARY KEY,
				contact_list_id UUID NOT NULL REFERENCES contact_lists(id) ON DELETE CASCADE,
				phone VARCHAR(50) NOT NULL,
				first_name VARCHAR(255),
				full_name VARCHAR(255),
				custom_data JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_contacts_list ON contacts(contact_list_id);

			CREATE TABLE flows (
				id UUID PRIMARY KEY,
				owner_id UUID NOT NULL,
				name VARCHAR(255) NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_flows_owner ON flows(owner_id);

			CREATE TABLE flow_nodes (
				flow_id UUID NOT NULL REFERENCES flows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				node_type VARCHAR(50) NOT NULL,
				data JSONB DEFAULT '{}',
				PRIMARY KEY (flow_id, id)
			);

			CREATE TABLE flow_edges (
				flow_id UUID NOT NULL REFERENCES flows(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				source_node_id VARCHAR(255) NOT NULL,
				target_node_id VARCHAR(255) NOT NULL,
				source_handle VARCHAR(255),
				PRIMARY KEY (flow_id, id)
			);

			CREATE INDEX idx_flow_edges_source ON flow_edges(flow_id, source_node_id);

			CREATE TABLE executions (
				id UUID PRIMARY KEY,
				owner_id UUID NOT NULL,
				flow_id UUID NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('running', 'success', 'failed')),
				context JSONB DEFAULT '{}',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				error_message TEXT
			);

			CREATE INDEX idx_executions_owner ON executions(owner_id);
			CREATE INDEX idx_executions_flow ON executions(flow_id);

			CREATE TABLE jobs (
				id UUID PRIMARY KEY,
				owner_id UUID NOT NULL,
				execution_id UUID NOT NULL REFERENCES executions(id) ON DELETE CASCADE,
				node_id VARCHAR(255) NOT NULL,
				node_type VARCHAR(50) NOT NULL,
				node_data JSONB DEFAULT '{}',
				status VARCHAR(50) NOT NULL CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
				scheduled_at TIMESTAMP WITH TIME ZONE NOT NULL,
				processed_at TIMESTAMP WITH TIME ZONE,
				retry_count INT NOT NULL DEFAULT 0,
				max_retries INT NOT NULL DEFAULT 3,
				error_message TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			-- The due-job selection predicate.
			CREATE INDEX idx_jobs_due ON jobs(status, scheduled_at);
			CREATE INDEX idx_jobs_execution ON jobs(execution_id);

			CREATE TABLE campaigns (
				id UUID PRIMARY KEY,
				owner_id UUID NOT NULL,
				instance_id UUID NOT NULL,
				contact_list_id UUID NOT NULL,
				name VARCHAR(255) NOT NULL,
				message TEXT NOT NULL,
				media_url TEXT,
				media_caption TEXT,
				min_delay INT NOT NULL DEFAULT 1,
				max_delay INT NOT NULL DEFAULT 1,
				scheduled_at TIMESTAMP WITH TIME ZONE,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'scheduled', 'running', 'completed', 'failed', 'stopped')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_campaigns_owner ON campaigns(owner_id);
			CREATE INDEX idx_campaigns_due ON campaigns(status, scheduled_at);

			-- Append-only observability log; never read back by the engine.
			CREATE TABLE events (
				id UUID PRIMARY KEY,
				owner_id UUID,
				event_type VARCHAR(100) NOT NULL,
				data JSONB DEFAULT '{}',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_events_owner ON events(owner_id);
			CREATE INDEX idx_events_type ON events(event_type);
		`,
	}
}
