package sqlinline

const QNotifyDispatch = `--sql faf28611-03c4-4eeb-b276-db5a2eab9ca5
select pg_notify($1::text, $2::text);
`
