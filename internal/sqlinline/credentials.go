package sqlinline

const QSelectProviderKey = `--sql 7d1f0c52-64b8-4d7e-a3f1-2b9e0c6a8d34
select api_key
from provider_credentials
where provider = $1::text;
`

const QUpsertProviderKey = `--sql c4e8a9b1-0f27-4d63-9a5e-81d2f6b3c7e0
insert into provider_credentials (provider, api_key, updated_at)
values ($1::text, $2::text, now())
on conflict (provider) do update
  set api_key = excluded.api_key,
      updated_at = now();
`
