package store

// schemaStatements creates every table this repo persists to, plus the
// indexes called for by the external-interfaces contract: (folder_id)
// on files, (file_id, chunk_index) unique on chunks, a vector index on
// chunks.chunk_embedding, a GIN index on chunks.search_vector, and
// (status, retry_after, priority, created_at) on indexing_jobs.
//
// Dimension 768 matches the teacher's own pgvector column width
// (db_models.py's Vector(768)) and is the common embedding size across
// the wired providers' smaller models.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		external_id TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		access_token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id)`,

	`CREATE TABLE IF NOT EXISTS folders (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		remote_folder_id TEXT NOT NULL,
		name TEXT,
		index_status TEXT NOT NULL DEFAULT 'pending',
		files_total INT NOT NULL DEFAULT 0,
		files_indexed INT NOT NULL DEFAULT 0,
		last_synced_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_folders_user_id ON folders(user_id)`,

	`CREATE TABLE IF NOT EXISTS files (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		folder_id UUID NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
		remote_file_id TEXT NOT NULL,
		name TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		modified_time TIMESTAMPTZ,
		file_preview TEXT,
		file_embedding vector(768),
		index_status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_folder_id ON files(folder_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_files_folder_remote ON files(folder_id, remote_file_id)`,

	`CREATE TABLE IF NOT EXISTS chunks (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		file_id UUID NOT NULL REFERENCES files(id) ON DELETE CASCADE,
		user_id UUID NOT NULL,
		chunk_text TEXT NOT NULL,
		chunk_embedding vector(768),
		search_vector tsvector,
		location JSONB NOT NULL,
		chunk_index INT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_chunks_file_chunk_index ON chunks(file_id, chunk_index)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_user_id ON chunks(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_embedding ON chunks USING ivfflat (chunk_embedding vector_cosine_ops) WITH (lists = 100)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_search_vector ON chunks USING GIN (search_vector)`,

	`CREATE TABLE IF NOT EXISTS conversations (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		folder_id UUID NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
		title TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversations_folder_id ON conversations(folder_id)`,

	`CREATE TABLE IF NOT EXISTS messages (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		citations JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id)`,

	`CREATE TABLE IF NOT EXISTS indexing_jobs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		folder_id UUID NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
		file_id UUID NOT NULL UNIQUE REFERENCES files(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'pending',
		priority INT NOT NULL DEFAULT 0,
		attempts INT NOT NULL DEFAULT 0,
		max_attempts INT NOT NULL DEFAULT 5,
		last_error TEXT,
		retry_after TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_indexing_jobs_claim ON indexing_jobs(status, retry_after, priority, created_at)`,

	`CREATE TABLE IF NOT EXISTS failed_tasks (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		upstream_task_id UUID NOT NULL UNIQUE,
		task_name TEXT NOT NULL,
		args JSONB,
		exception_type TEXT NOT NULL,
		message TEXT NOT NULL,
		traceback_excerpt TEXT,
		retries INT NOT NULL DEFAULT 0,
		failed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		resolved_at TIMESTAMPTZ,
		resolution_notes TEXT
	)`,
}
