package sqlinline

const QInsertJob = `--sql ce7103c6-0603-471c-82bb-f61bc9f18f1b
insert into generation_jobs(
    id,
    owner_id,
    prompt,
    mode,
    credit_cost,
    status,
    auxiliary_inputs,
    metadata,
    created_at,
    updated_at
)
values ($1::uuid, $2::uuid, $3::text, $4::text, $5::int, 'pending', $6::jsonb, '{}'::jsonb, now(), now());
`

const QSelectJobByID = `--sql 94f19f84-1ec7-4bbe-bb96-ea1907c2d635
select
    id,
    owner_id,
    prompt,
    mode,
    credit_cost,
    status,
    coalesce(external_run_id, ''),
    coalesce(result_url, ''),
    coalesce(storage_key, ''),
    auxiliary_inputs,
    metadata,
    created_at,
    updated_at
from generation_jobs
where id = $1::uuid
limit 1;
`

const QListJobsByOwner = `--sql da7f4df0-3bf3-4725-9680-a649c9a6ddf7
select
    id,
    owner_id,
    prompt,
    mode,
    credit_cost,
    status,
    coalesce(external_run_id, ''),
    coalesce(result_url, ''),
    coalesce(storage_key, ''),
    auxiliary_inputs,
    metadata,
    created_at,
    updated_at
from generation_jobs
where owner_id = $1::uuid
  and ($2::text is null or $2::text = case
      when status = 'processing' and coalesce(external_run_id, '') = '' then 'pending'
      else status
    end)
order by created_at desc
limit $3::int;
`

const QMarkJobProcessing = `--sql d2047c93-3f3a-45be-9d8a-075d8f6ca9ca
update generation_jobs
set status = 'processing', updated_at = now()
where id = $1::uuid
  and status in ('pending', 'processing');
`

const QRecordJobDispatch = `--sql 5a802358-094d-4e5b-a052-fddcda4f9daf
update generation_jobs
set external_run_id = coalesce(external_run_id, $2::text),
    metadata = metadata || $3::jsonb,
    updated_at = now()
where id = $1::uuid
  and status in ('pending', 'processing');
`

const QMergeJobMetadata = `--sql 81b7a58d-613a-4ee0-95cb-9d447c22e485
update generation_jobs
set metadata = metadata || $2::jsonb, updated_at = now()
where id = $1::uuid
  and status in ('pending', 'processing');
`

const QMarkJobFailed = `--sql 558d5090-365f-4d74-a540-4e5d766fe4c8
update generation_jobs
set status = 'failed',
    metadata = metadata || $2::jsonb,
    updated_at = now()
where id = $1::uuid
  and status in ('pending', 'processing');
`

const QMarkJobCompleted = `--sql 5c2ce796-65cd-4e2b-9809-d598da9ecfd3
update generation_jobs
set status = 'completed',
    result_url = $2::text,
    storage_key = $3::text,
    metadata = metadata || $4::jsonb,
    updated_at = now()
where id = $1::uuid
  and status in ('pending', 'processing');
`
