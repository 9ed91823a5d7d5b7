package sqlinline

const videoColumns = `id, user_id, job_id, caption, video_object, thumbnail_object, status, created_at, updated_at`

// QPublishJob locks the job row, copies its artifact into published_videos and
// links the new id back. It returns no row when the job is missing, not owned,
// not SUCCEEDED or already published.
const QPublishJob = `--sql 8e3a30d8-657a-46ea-ac13-3efe4fabcf98
with target as (
  select id, user_id, prompt, preview_video_object, preview_thumbnail_object
  from generation_jobs
  where id = $1::bigint
    and user_id = $2::bigint
    and status = 'SUCCEEDED'
    and published_video_id is null
    and preview_video_object is not null
  for update
),
inserted as (
  insert into published_videos (user_id, job_id, caption, video_object, thumbnail_object, status)
  select user_id, id, prompt, preview_video_object, preview_thumbnail_object, 'READY'
  from target
  returning ` + videoColumns + `
),
linked as (
  update generation_jobs j
  set published_video_id = inserted.id,
      updated_at = greatest(now(), j.updated_at)
  from inserted
  where j.id = inserted.job_id
  returning j.id
)
select ` + videoColumns + `
from inserted;
`

const QSelectVideoByID = `--sql 583fb249-b226-4f52-9d4e-621048996681
select ` + videoColumns + `
from published_videos
where id = $1::bigint;
`

const QSelectVideosByUser = `--sql 2b6f94d0-8c1e-4a57-b3d9-e05a7c1f4b68
select ` + videoColumns + `
from published_videos
where user_id = $1::bigint
  and status = 'READY'
order by created_at desc, id desc;
`
