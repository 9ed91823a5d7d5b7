package sqlinline

// Column order shared by every generation_jobs select; see repo.scanJob.
const jobColumns = `id, user_id, prompt, status, preview_video_object, preview_thumbnail_object,
  error_message, published_video_id, dispatch_attempts, created_at, updated_at`

const QLockUserQuota = `--sql 028071a4-f009-4ec0-9ffe-ea3c147faefe
select pg_advisory_xact_lock($1::bigint);
`

const QCountJobsSince = `--sql 1a6977c6-a78a-4a5a-9332-c8fcec0755fd
select count(*)
from generation_jobs
where user_id = $1::bigint
  and created_at >= $2::timestamptz;
`

const QInsertJob = `--sql 0e4f692c-21ca-4e7f-bfc7-9f8bc9497214
insert into generation_jobs (user_id, prompt, status)
values ($1::bigint, $2::text, 'QUEUED')
returning ` + jobColumns + `;
`

const QSelectJobByID = `--sql 59770582-30fa-498e-9e93-8b7faf6164b2
select ` + jobColumns + `
from generation_jobs
where id = $1::bigint;
`

const QSelectJobForUser = `--sql 4ffd6802-42dd-414c-810c-e025db30ecbe
select ` + jobColumns + `
from generation_jobs
where id = $1::bigint
  and user_id = $2::bigint;
`

const QSelectJobsByUser = `--sql 62e71a93-bdd6-4374-8d12-3a40681c06b9
select ` + jobColumns + `
from generation_jobs
where user_id = $1::bigint
order by updated_at desc, id desc;
`

const QSelectJobsByStatusBefore = `--sql 891f5535-ea89-4c41-8eba-4c7881051af3
select ` + jobColumns + `
from generation_jobs
where status = $1::text
  and updated_at < $2::timestamptz
order by updated_at asc
limit $3::int;
`

const QClaimJob = `--sql c91ea012-3013-4c5a-926e-27ba2d0438d2
update generation_jobs
set status = 'RUNNING',
    updated_at = greatest(now(), updated_at)
where id = $1::bigint
  and status = 'QUEUED';
`

const QMarkJobSucceeded = `--sql 73038516-c4c4-431e-aa44-cd56b2387b8d
update generation_jobs
set status = 'SUCCEEDED',
    preview_video_object = $2::text,
    preview_thumbnail_object = $3::text,
    error_message = null,
    updated_at = greatest(now(), updated_at)
where id = $1::bigint
  and status = 'RUNNING';
`

const QMarkJobFailed = `--sql 5ac8c350-4ff1-4f64-bddc-7231f3309d45
update generation_jobs
set status = 'FAILED',
    error_message = $3::text,
    preview_video_object = null,
    preview_thumbnail_object = null,
    updated_at = greatest(now(), updated_at)
where id = $1::bigint
  and status = $2::text;
`

const QRecordDispatchAttempt = `--sql 2d4ed253-fe6d-4239-919f-dea55c8649ee
update generation_jobs
set dispatch_attempts = dispatch_attempts + 1,
    updated_at = greatest(now(), updated_at)
where id = $1::bigint
  and status = 'QUEUED'
returning dispatch_attempts;
`
