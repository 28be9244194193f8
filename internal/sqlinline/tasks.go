package sqlinline

const QEnqueueTask = `--sql 517671b9-39f9-4351-afcf-2885207bdd23
insert into scheduled_tasks(id, kind, payload, available_at, created_at)
values (gen_random_uuid(), $1::text, $2::jsonb, now() + ($3::int * interval '1 millisecond'), now());
`

// QClaimTask picks the oldest due task. SKIP LOCKED keeps concurrent workers
// from blocking on each other's claims.
const QClaimTask = `--sql 98bdf5c6-4050-4e5a-8bd6-9799e85bf869
with next_task as (
    select id
    from scheduled_tasks
    where available_at <= now()
      and claimed_at is null
    order by available_at asc
    for update skip locked
    limit 1
),
claimed as (
    update scheduled_tasks
    set claimed_at = now()
    where id in (select id from next_task)
    returning id, kind, payload
)
select * from claimed;
`

const QDeleteTask = `--sql 3c0dad14-f6f9-4cd4-a2f4-5d19c19b41da
delete from scheduled_tasks
where id = $1::uuid;
`

// QReleaseStaleTasks returns tasks claimed by a worker that died mid-flight
// to the queue. Stage handlers are idempotent, so re-delivery is safe.
const QReleaseStaleTasks = `--sql efc05388-e1bc-4b89-af67-92ac0e96fbac
update scheduled_tasks
set claimed_at = null
where claimed_at is not null
  and claimed_at < now() - ($1::int * interval '1 second');
`
